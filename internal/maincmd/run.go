package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/ember/internal/corelib"
	"github.com/mna/ember/lang/machine"
)

// exitError wraps a machine.Status into an error that carries ember's own
// process exit code (65 for a compile error, 70 for a runtime error), rather
// than mainer's generic Failure code.
type exitError struct {
	status machine.Status
}

func (e exitError) Error() string { return e.status.String() }

func (e exitError) ExitCode() mainer.ExitCode {
	switch e.status {
	case machine.StatusCompileErr:
		return 65
	case machine.StatusRuntimeErr:
		return 70
	}
	return mainer.Success
}

func newVM(stdio mainer.Stdio) *machine.VM {
	vm := machine.New()
	vm.Stdout = stdio.Stdout
	vm.Stderr = stdio.Stderr
	vm.Stdin = stdio.Stdin
	vm.RegisterGlobalFunctions(corelib.Funcs())
	return vm
}

// Run compiles and executes the script at args[0].
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFile(ctx, stdio, args[0])
}

func RunFile(ctx context.Context, stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", path, err))
	}

	vm := newVM(stdio)
	status := vm.Interpret(string(src))
	if status != machine.StatusOK {
		return exitError{status: status}
	}
	return nil
}
