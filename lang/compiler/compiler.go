package compiler

import (
	"github.com/mna/ember/lang/scanner"
	"github.com/mna/ember/lang/token"
)

const (
	// maxLocals bounds the one-byte GET_LOCAL/SET_LOCAL operand.
	maxLocals = 256
	// maxUpvalues bounds the one-byte GET_UPVALUE/SET_UPVALUE operand.
	maxUpvalues = 256
	// maxConstants bounds the one-byte CONSTANT operand.
	maxConstants = 256
	// maxArgs bounds the one-byte CALL/INVOKE argc operand.
	maxArgs = 255
	// maxEnumValues bounds the one-byte ENUM_VALUE ordinal operand.
	maxEnumValues = 256
	// maxJump bounds the two-byte JUMP/LOOP offset operand.
	maxJump = 1<<16 - 1
)

// local is a resolved local variable slot in the current frame.
type local struct {
	name       string
	depth      int // -1 while the initializer is being compiled
	isCaptured bool
}

// loopCtx tracks the state needed to patch break/continue within the loop
// currently being compiled.
type loopCtx struct {
	enclosing  *loopCtx
	start      int // LOOP target, the top of the loop body
	breaks     []int
	scopeDepth int
}

// frame holds the compiler state for one function (or the top-level script)
// being compiled. Frames nest: compiling a nested function literal pushes a
// new frame whose enclosing field points back to the outer one, which is how
// upvalue resolution walks outward.
type frame struct {
	enclosing *frame
	fn        *Funcode
	locals    []local
	scope     int
	loop      *loopCtx
	// locals[0] is always reserved: in an instance method it is named "self";
	// plain functions, static methods and the script reserve it for the
	// callee value but never bind it to a name.
}

// Compiler drives single-pass compilation: it scans tokens on demand and
// emits bytecode directly into the Funcode of the frame currently being
// compiled, with no separate AST or resolution pass.
type Compiler struct {
	scan *scanner.Scanner

	previous scanner.Tok
	current  scanner.Tok

	cur *frame

	errs      token.ErrorList
	panicMode bool

	// globals tracks names already bound at global scope, to diagnose
	// redefinition the way the enclosing program would at load time.
	globals map[string]bool

	// noCompoundLiteral disables parsing `Name { ... }` as a struct literal
	// while parsing the condition of if/while/for/match, so that the opening
	// brace of the statement's body is never mistaken for a literal.
	noCompoundLiteral bool
}

// Compile compiles source into a top-level Funcode representing the script.
// It returns an error (a token.ErrorList) if any lexical or syntax error was
// found; in that case the returned Funcode is nil.
func Compile(source string) (*Funcode, error) {
	c := &Compiler{scan: scanner.New(source)}
	c.cur = &frame{fn: &Funcode{Name: "", Type: FuncScript}}
	// Slot 0 is reserved for the callee value in every frame (receiver for
	// methods), matching the VM's calling convention.
	c.cur.locals = append(c.cur.locals, local{name: "", depth: 0})

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}

	fn := c.endFrame()
	if err := c.errs.Err(); err != nil {
		return nil, err
	}
	return fn, nil
}

// --- token stream helpers ---

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scan.Next()
		if c.current.Type != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t token.Token) bool { return c.current.Type == t }

func (c *Compiler) match(t token.Token) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.Token, msg string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

// --- error reporting with panic-mode recovery ---

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) errorAtPrevious(msg string) { c.errorAt(c.previous, msg) }

func (c *Compiler) errorAt(tok scanner.Tok, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	if tok.Type == token.ERROR {
		c.errs.Add(tok.Line, msg)
		return
	}
	where := "at end"
	if tok.Type != token.EOF {
		where = "at '" + tok.Lexeme + "'"
	}
	c.errs.AddAt(tok.Line, where, msg)
}

// synchronize consumes tokens until it finds a statement boundary, after a
// compile error, so that a single mistake does not cascade into a wall of
// spurious follow-on errors.
func (c *Compiler) synchronize() {
	c.panicMode = false

	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMI {
			return
		}
		switch c.current.Type {
		case token.GLOBAL, token.VAR, token.FOR, token.IF, token.WHILE,
			token.LOOP, token.FUNC, token.RETURN, token.STRUCT, token.ENUM,
			token.BREAK, token.CONTINUE, token.MATCH, token.RBRACE:
			return
		}
		c.advance()
	}
}

// --- bytecode emission ---

func (c *Compiler) emitByte(b byte) {
	c.cur.fn.Code = append(c.cur.fn.Code, b)
	c.cur.fn.Lines = append(c.cur.fn.Lines, c.previous.Line)
}

func (c *Compiler) emitOp(op Opcode) { c.emitByte(byte(op)) }

func (c *Compiler) emitOpByte(op Opcode, arg byte) {
	c.emitOp(op)
	c.emitByte(arg)
}

func (c *Compiler) emitLoop(start int) {
	c.emitOp(LOOP)
	offset := len(c.cur.fn.Code) - start + 2
	if offset > maxJump {
		c.errorAtPrevious("Loop body too large.")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset & 0xff))
}

// emitJump emits a jump instruction with a placeholder offset and returns the
// index of the first of its two operand bytes, to be patched later.
func (c *Compiler) emitJump(op Opcode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.cur.fn.Code) - 2
}

func (c *Compiler) patchJump(offsetPos int) {
	jump := len(c.cur.fn.Code) - offsetPos - 2
	if jump > maxJump {
		c.errorAtPrevious("Too much code to jump over.")
	}
	c.cur.fn.Code[offsetPos] = byte(jump >> 8)
	c.cur.fn.Code[offsetPos+1] = byte(jump & 0xff)
}

func (c *Compiler) makeConstant(v interface{}) byte {
	for i, k := range c.cur.fn.Constants {
		if k == v {
			return byte(i)
		}
	}
	if len(c.cur.fn.Constants) >= maxConstants {
		c.errorAtPrevious("Too many constants in one function.")
		return 0
	}
	c.cur.fn.Constants = append(c.cur.fn.Constants, v)
	return byte(len(c.cur.fn.Constants) - 1)
}

func (c *Compiler) emitConstant(v interface{}) {
	c.emitOpByte(CONSTANT, c.makeConstant(v))
}

func (c *Compiler) identifierConstant(name string) byte { return c.makeConstant(name) }

// endFrame closes out the current frame's function, emitting the implicit
// `return nil` every function falls through to, and pops back to the
// enclosing frame (nil at the top-level script).
func (c *Compiler) endFrame() *Funcode {
	c.emitOp(NIL)
	c.emitOp(RETURN)

	fn := c.cur.fn
	fn.UpvalueCount = len(fn.Upvalues)
	c.cur = c.cur.enclosing
	return fn
}
