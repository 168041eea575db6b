package maincmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
	"github.com/mna/mainer"
)

// Repl starts an interactive read-eval-print loop against a single,
// long-lived VM: each line is compiled and run as its own top-level script,
// sharing the VM's globals (and therefore its struct/enum/function
// declarations) across lines.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		Stdin:           io.NopCloser(stdio.Stdin),
		Stdout:          stdio.Stdout,
		Stderr:          stdio.Stderr,
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return printError(stdio, err)
	}
	defer rl.Close()

	vm := newVM(stdio)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil { // io.EOF, or rl's own EOFPrompt case
			break
		}
		if line == "" {
			continue
		}

		vm.Interpret(line)
	}

	fmt.Fprintln(stdio.Stdout)
	return nil
}
