package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/ember/lang/scanner"
	"github.com/mna/ember/lang/token"
)

// Tokenize runs the scanner phase alone over args[0] and prints the
// resulting tokens, one per line.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFile(ctx, stdio, args[0])
}

func TokenizeFile(ctx context.Context, stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", path, err))
	}

	s := scanner.New(string(src))
	for {
		tok := s.Next()
		fmt.Fprintf(stdio.Stdout, "%4d  %-20s", tok.Line, tok.Type)
		switch {
		case tok.Lexeme != "":
			fmt.Fprintf(stdio.Stdout, " %q", tok.Lexeme)
		}
		fmt.Fprintln(stdio.Stdout)
		if tok.Type == token.EOF {
			break
		}
	}
	return nil
}
