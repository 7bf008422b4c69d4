//go:build windows

package emit

import (
	"fmt"
	"os"
	"os/exec"
)

// Assemble compiles QBE IL into assembly for the given target using the qbe
// executable on the path.  An empty target selects the host.
func Assemble(il string, target string) ([]byte, error) {
	if _, err := exec.LookPath("qbe"); err != nil {
		return nil, fmt.Errorf("QBE not found in PATH: %w", err)
	}

	if target == "" {
		target = DefaultTarget()
	}

	inputFile, err := os.CreateTemp("", "lowc-qbe-*.ssa")
	if err != nil {
		return nil, err
	}
	defer os.Remove(inputFile.Name())

	_, err = inputFile.WriteString(il)
	inputFile.Close()
	if err != nil {
		return nil, err
	}

	outputPath := inputFile.Name() + ".s"
	defer os.Remove(outputPath)

	cmd := exec.Command("qbe", "-o", outputPath, "-t", target, inputFile.Name())
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("QBE compilation failed: %w\n%s", err, output)
	}

	return os.ReadFile(outputPath)
}
