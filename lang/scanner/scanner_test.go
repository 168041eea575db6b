package scanner_test

import (
	"testing"

	"github.com/mna/ember/lang/scanner"
	"github.com/mna/ember/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(src string) []scanner.Tok {
	s := scanner.New(src)
	var toks []scanner.Tok
	for {
		tok := s.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func TestBasicTokens(t *testing.T) {
	toks := scanAll("var x = 1 + 2.5 .. \"hi\"")
	types := make([]token.Token, 0, len(toks))
	for _, tk := range toks {
		types = append(types, tk.Type)
	}
	require.Equal(t, []token.Token{
		token.VAR, token.IDENT, token.EQ, token.NUMBER, token.PLUS,
		token.NUMBER, token.DOTDOT, token.STRING, token.EOF,
	}, types)
}

func TestBOMSkipped(t *testing.T) {
	src := "\xEF\xBB\xBFvar x = 1;"
	toks := scanAll(src)
	require.Equal(t, token.VAR, toks[0].Type)
	require.Equal(t, "var", toks[0].Lexeme)
}

func TestLineTracking(t *testing.T) {
	toks := scanAll("var x = 1;\n\nvar y = 2;")
	var last scanner.Tok
	for _, tk := range toks {
		if tk.Lexeme == "y" {
			last = tk
		}
	}
	assert.Equal(t, 3, last.Line)
}

func TestCarriageReturnDoesNotIncrementLine(t *testing.T) {
	toks := scanAll("var x = 1;\r\nvar y = 2;")
	var y scanner.Tok
	for _, tk := range toks {
		if tk.Lexeme == "y" {
			y = tk
		}
	}
	assert.Equal(t, 2, y.Line)
}

func TestKeywords(t *testing.T) {
	toks := scanAll("global var break case continue while false for func loop if else enum match static struct self true nil return")
	want := []token.Token{
		token.GLOBAL, token.VAR, token.BREAK, token.CASE, token.CONTINUE,
		token.WHILE, token.FALSE, token.FOR, token.FUNC, token.LOOP,
		token.IF, token.ELSE, token.ENUM, token.MATCH, token.STATIC,
		token.STRUCT, token.SELF, token.TRUE, token.NIL, token.RETURN,
		token.EOF,
	}
	got := make([]token.Token, 0, len(toks))
	for _, tk := range toks {
		got = append(got, tk.Type)
	}
	require.Equal(t, want, got)
}

func TestStringEscapes(t *testing.T) {
	toks := scanAll(`"a\nb\tc\rd\ae\"f\'g\\h"`)
	require.Len(t, toks, 2)
	require.Equal(t, "a\nb\tc\rd\ae\"f'g\\h", toks[0].Literal)
}

func TestUnterminatedString(t *testing.T) {
	toks := scanAll(`"abc`)
	require.Equal(t, token.ERROR, toks[0].Type)
	assert.Equal(t, "Unclosed string.", toks[0].Lexeme)
}

func TestInvalidEscape(t *testing.T) {
	toks := scanAll(`"a\qb"`)
	require.Equal(t, token.ERROR, toks[0].Type)
	assert.Equal(t, "Invalid escape code.", toks[0].Lexeme)
}

func TestBitwiseOperatorsRejected(t *testing.T) {
	for _, src := range []string{"&", "|"} {
		toks := scanAll(src)
		require.Equal(t, token.ERROR, toks[0].Type, src)
	}
	toks := scanAll("&&")
	require.Equal(t, token.AMP_AMP, toks[0].Type)
	toks = scanAll("||")
	require.Equal(t, token.PIPE_PIPE, toks[0].Type)
}

func TestOperators(t *testing.T) {
	toks := scanAll("** **= += -= *= /= %= == != <= >= => ..=")
	want := []token.Token{
		token.STARSTAR, token.STARSTAR_EQ, token.PLUS_EQ, token.MINUS_EQ,
		token.STAR_EQ, token.SLASH_EQ, token.PERCENT_EQ, token.EQEQ,
		token.BANG_EQ, token.LE, token.GE, token.ARROW, token.DOTDOT_EQ,
		token.EOF,
	}
	got := make([]token.Token, 0, len(toks))
	for _, tk := range toks {
		got = append(got, tk.Type)
	}
	require.Equal(t, want, got)
}

func TestNumberLiteral(t *testing.T) {
	toks := scanAll("123 4.5")
	require.Equal(t, float64(123), toks[0].Number)
	require.Equal(t, 4.5, toks[1].Number)
}

func TestComment(t *testing.T) {
	toks := scanAll("var x = 1; // a comment\nvar y = 2;")
	var found bool
	for _, tk := range toks {
		if tk.Lexeme == "a" || tk.Lexeme == "comment" {
			found = true
		}
	}
	assert.False(t, found, "comment text must not be tokenized")
}
