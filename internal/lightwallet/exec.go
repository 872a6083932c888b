package lightwallet

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// ProcessExecutor drives the native engine binary, one process per command.
// The binary's contract is argv = (command, args) and a JSON response on
// stdout; killing the process on ctx expiry is our only cancellation lever.
type ProcessExecutor struct {
	bin     string
	dataDir string
}

// NewProcessExecutor creates an executor for the engine binary at path,
// pointing it at the wallet data directory.
func NewProcessExecutor(bin, dataDir string) *ProcessExecutor {
	return &ProcessExecutor{bin: bin, dataDir: dataDir}
}

// Execute runs one engine command and returns its stdout verbatim.
func (e *ProcessExecutor) Execute(ctx context.Context, command, args string) (string, error) {
	argv := []string{"--data-dir", e.dataDir, command}
	if args != "" {
		argv = append(argv, args)
	}

	cmd := exec.CommandContext(ctx, e.bin, argv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Wrapf(err, "engine %s failed: %s", command, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}
