package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/ember/lang/compiler"
)

// Disasm compiles args[0] and prints a human-readable bytecode listing of
// its top-level Funcode and every function nested within it.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return DisasmFile(ctx, stdio, args[0])
}

func DisasmFile(ctx context.Context, stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", path, err))
	}

	fn, err := compiler.Compile(string(src))
	if err != nil {
		return printError(stdio, err)
	}

	compiler.Disassemble(stdio.Stdout, fn)
	return nil
}
