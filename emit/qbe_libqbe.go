//go:build !windows

package emit

import (
	"bytes"
	"fmt"
	"strings"

	"modernc.org/libqbe"
)

// Assemble compiles QBE IL into assembly for the given target.  An empty
// target selects the host.
func Assemble(il string, target string) ([]byte, error) {
	if target == "" {
		target = DefaultTarget()
	}

	var asmBuf bytes.Buffer
	if err := libqbe.Main(target, "input.ssa", strings.NewReader(il), &asmBuf, nil); err != nil {
		return nil, fmt.Errorf("QBE compilation failed: %w", err)
	}

	return asmBuf.Bytes(), nil
}
