package emit

import (
	"bytes"
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
)

// WriteLLVM writes the textual LLVM IR of a module.
func WriteLLVM(w io.Writer, mod *ir.Module) error {
	if _, err := mod.WriteTo(w); err != nil {
		return fmt.Errorf("writing LLVM IR: %w", err)
	}

	return nil
}

// LLVMText returns the textual LLVM IR of a module.
func LLVMText(mod *ir.Module) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteLLVM(&buf, mod); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
