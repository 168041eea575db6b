// Package scanner implements the tokenizer for the language: a BOM-tolerant
// lexer over a source buffer that produces a stream of tokens carrying line
// numbers and, for literals, their decoded value.
package scanner

import (
	"strconv"
	"strings"

	"github.com/mna/ember/lang/token"
)

// Tok is a single lexical token: its type, source lexeme, line number and,
// for NUMBER and STRING tokens, the decoded literal value.
type Tok struct {
	Type    token.Token
	Lexeme  string
	Line    int
	Number  float64
	Literal string // decoded string value, for STRING tokens
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// Scanner tokenizes a single source buffer. It is stateless between calls to
// Next beyond its own cursor (no multi-file support is needed: the language
// has no separate compilation units).
type Scanner struct {
	src   string
	start int // byte offset of the start of the token being scanned
	pos   int // byte offset of the next unread byte
	line  int
}

// New returns a Scanner ready to tokenize src. A leading UTF-8 BOM is
// skipped.
func New(src string) *Scanner {
	if strings.HasPrefix(src, string(bom)) {
		src = src[len(bom):]
	}
	return &Scanner{src: src, line: 1}
}

func (s *Scanner) atEnd() bool { return s.pos >= len(s.src) }

func (s *Scanner) advance() byte {
	c := s.src[s.pos]
	s.pos++
	return c
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.src[s.pos]
}

func (s *Scanner) peekNext() byte {
	if s.pos+1 >= len(s.src) {
		return 0
	}
	return s.src[s.pos+1]
}

func (s *Scanner) match(want byte) bool {
	if s.atEnd() || s.src[s.pos] != want {
		return false
	}
	s.pos++
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (s *Scanner) skipWhitespace() {
	for {
		switch s.peek() {
		case '\n':
			s.line++
			s.advance()
		case ' ', '\r', '\t':
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) make(typ token.Token) Tok {
	return Tok{Type: typ, Lexeme: s.src[s.start:s.pos], Line: s.line}
}

func (s *Scanner) errorTok(msg string) Tok {
	return Tok{Type: token.ERROR, Lexeme: msg, Line: s.line}
}

// Next scans and returns the next token. Once an EOF token is returned,
// subsequent calls keep returning EOF.
func (s *Scanner) Next() Tok {
	s.skipWhitespace()
	s.start = s.pos

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()
	switch {
	case isAlpha(c):
		return s.identifier()
	case isDigit(c):
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LPAREN)
	case ')':
		return s.make(token.RPAREN)
	case '{':
		return s.make(token.LBRACE)
	case '}':
		return s.make(token.RBRACE)
	case '[':
		return s.make(token.LBRACK)
	case ']':
		return s.make(token.RBRACK)
	case ';':
		return s.make(token.SEMI)
	case ',':
		return s.make(token.COMMA)
	case ':':
		if s.match(':') {
			return s.make(token.COLONCOLON)
		}
		return s.make(token.COLON)
	case '.':
		if s.match('.') {
			if s.match('=') {
				return s.make(token.DOTDOT_EQ)
			}
			return s.make(token.DOTDOT)
		}
		return s.make(token.DOT)
	case '+':
		if s.match('=') {
			return s.make(token.PLUS_EQ)
		}
		return s.make(token.PLUS)
	case '-':
		if s.match('=') {
			return s.make(token.MINUS_EQ)
		}
		return s.make(token.MINUS)
	case '*':
		if s.match('*') {
			if s.match('=') {
				return s.make(token.STARSTAR_EQ)
			}
			return s.make(token.STARSTAR)
		}
		if s.match('=') {
			return s.make(token.STAR_EQ)
		}
		return s.make(token.STAR)
	case '/':
		if s.match('=') {
			return s.make(token.SLASH_EQ)
		}
		return s.make(token.SLASH)
	case '%':
		if s.match('=') {
			return s.make(token.PERCENT_EQ)
		}
		return s.make(token.PERCENT)
	case '&':
		if s.match('&') {
			return s.make(token.AMP_AMP)
		}
		return s.errorTok("Did you mean '&&'? Bitwise operators not supported.")
	case '|':
		if s.match('|') {
			return s.make(token.PIPE_PIPE)
		}
		return s.errorTok("Did you mean '||'? Bitwise operators not supported.")
	case '!':
		if s.match('=') {
			return s.make(token.BANG_EQ)
		}
		return s.make(token.BANG)
	case '=':
		if s.match('>') {
			return s.make(token.ARROW)
		}
		if s.match('=') {
			return s.make(token.EQEQ)
		}
		return s.make(token.EQ)
	case '>':
		if s.match('=') {
			return s.make(token.GE)
		}
		return s.make(token.GT)
	case '<':
		if s.match('=') {
			return s.make(token.LE)
		}
		return s.make(token.LT)
	case '\'', '"':
		return s.string(c)
	}

	return s.errorTok("Unexpected character.")
}

func (s *Scanner) identifier() Tok {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	tok := s.make(token.IDENT)
	if kw, ok := token.Keywords[tok.Lexeme]; ok {
		tok.Type = kw
	}
	return tok
}

func (s *Scanner) number() Tok {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	tok := s.make(token.NUMBER)
	n, err := strconv.ParseFloat(tok.Lexeme, 64)
	if err != nil {
		return s.errorTok("Invalid number literal.")
	}
	tok.Number = n
	return tok
}

func (s *Scanner) string(terminator byte) Tok {
	var sb strings.Builder
	for s.peek() != terminator {
		if s.atEnd() || s.peek() == '\n' {
			return s.errorTok("Unclosed string.")
		}

		c := s.advance()
		if c == '\\' {
			if s.atEnd() {
				return s.errorTok("Unclosed string.")
			}
			e := s.advance()
			switch e {
			case 'n':
				c = '\n'
			case 't':
				c = '\t'
			case 'r':
				c = '\r'
			case 'a':
				c = '\a'
			case '"', '\'', '\\':
				c = e
			default:
				return s.errorTok("Invalid escape code.")
			}
		}
		sb.WriteByte(c)
	}
	s.advance() // closing quote

	tok := s.make(token.STRING)
	tok.Literal = sb.String()
	return tok
}
