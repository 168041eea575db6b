package token

import "fmt"

// An Error describes a single lexical or syntactic error at a given source
// line, in the style of go/scanner.Error. Where is the location clause
// ("at 'x'", "at end"), or empty when the message itself already
// names the problem (e.g. a scanner error token) and no location clause
// should be printed.
type Error struct {
	Line  int
	Where string
	Msg   string
}

func (e Error) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("[line %d] Error %s: %s", e.Line, e.Where, e.Msg)
}

// ErrorList is a list of Error values, in the order they were added. Its Err method returns nil
// if the list is empty, so it can be returned directly as the error result of
// a function that accumulates zero or more errors.
type ErrorList []Error

// Add appends an error with no location clause to the list.
func (l *ErrorList) Add(line int, msg string) {
	*l = append(*l, Error{Line: line, Msg: msg})
}

// AddAt appends an error with a location clause (e.g. "at 'x'", "at end") to
// the list.
func (l *ErrorList) AddAt(line int, where, msg string) {
	*l = append(*l, Error{Line: line, Where: where, Msg: msg})
}

// Err returns l as an error, or nil if l is empty.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	s := l[0].Error()
	return fmt.Sprintf("%s (and %d more errors)", s, len(l)-1)
}
