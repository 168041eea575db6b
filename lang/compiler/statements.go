package compiler

import "github.com/mna/ember/lang/token"

// declaration compiles one top-level-or-block item: a global/var binding, a
// struct or enum declaration, a function declaration, or a plain statement.
// It resynchronizes at the next statement boundary after a compile error so
// that one mistake doesn't cascade.
func (c *Compiler) declaration() {
	switch {
	case c.match(token.GLOBAL):
		c.globalDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	case c.match(token.FUNC):
		c.funcDeclaration()
	case c.match(token.STRUCT):
		c.structDeclaration()
	case c.match(token.ENUM):
		c.enumDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

// varDeclaration parses `var name [= expr] ;`. At global scope it produces a
// DEFINE_GLOBAL; inside a block it simply leaves the initializer value on the
// stack in the new local's slot. `var [a, b] = expr;` destructures an array
// instead.
func (c *Compiler) varDeclaration() {
	if c.match(token.LBRACK) {
		c.destructuringDeclaration()
		return
	}
	c.consume(token.IDENT, "Expect variable name.")
	name := c.previous.Lexeme
	global := c.cur.scope == 0

	if global {
		c.declareGlobal(name)
	} else {
		c.declareVariable(name)
	}

	if c.match(token.EQ) {
		c.expression()
	} else {
		c.emitOp(NIL)
	}
	c.consume(token.SEMI, "Expect ';' after variable declaration.")

	if global {
		c.emitOpByte(DEFINE_GLOBAL, c.identifierConstant(name))
	} else {
		c.markInitialized()
	}
}

// destructuringDeclaration parses the tail of `var [a, b, c] = expr;`: each
// name binds the element of expr at its position. Locals are declared with a
// nil placeholder slot first, then each element is pulled off the array with
// DESTRUCT_ARRAY and stored into its slot; globals are defined one by one as
// the elements come off. In both cases the array stays on top of the stack
// between elements and is popped once every name is bound.
func (c *Compiler) destructuringDeclaration() {
	global := c.cur.scope == 0

	var names []string
	for {
		c.consume(token.IDENT, "Expect variable name.")
		names = append(names, c.previous.Lexeme)
		if len(names) > 256 {
			c.errorAtPrevious("Too many variables in destructuring declaration.")
		}
		if !c.match(token.COMMA) {
			break
		}
	}
	c.consume(token.RBRACK, "Expect ']' after variable names.")

	slots := make([]int, len(names))
	for i, name := range names {
		if global {
			c.declareGlobal(name)
		} else {
			c.declareVariable(name)
			c.emitOp(NIL)
			c.markInitialized()
			slots[i] = len(c.cur.locals) - 1
		}
	}

	c.consume(token.EQ, "Expect '=' after variable names.")
	c.expression()
	c.consume(token.SEMI, "Expect ';' after variable declaration.")

	for i, name := range names {
		c.emitOpByte(DESTRUCT_ARRAY, byte(i))
		if global {
			c.emitOpByte(DEFINE_GLOBAL, c.identifierConstant(name))
		} else {
			c.emitOpByte(SET_LOCAL, byte(slots[i]))
			c.emitOp(POP)
		}
	}
	c.emitOp(POP)
}

// globalDeclaration parses `global name [= expr] ;`, the sibling of var
// that always binds in the globals table, even when written
// inside a function body (matching the script's single flat global scope).
func (c *Compiler) globalDeclaration() {
	c.consume(token.IDENT, "Expect variable name.")
	name := c.previous.Lexeme
	c.declareGlobal(name)

	if c.match(token.EQ) {
		c.expression()
	} else {
		c.emitOp(NIL)
	}
	c.consume(token.SEMI, "Expect ';' after variable declaration.")
	c.emitOpByte(DEFINE_GLOBAL, c.identifierConstant(name))
}

func (c *Compiler) declareGlobal(name string) {
	if c.globals == nil {
		c.globals = map[string]bool{}
	}
	if c.globals[name] {
		c.errorAtPrevious("Redefinition of '" + name + "'.")
	}
	c.globals[name] = true
}

func (c *Compiler) funcDeclaration() {
	c.consume(token.IDENT, "Expect function name.")
	name := c.previous.Lexeme
	global := c.cur.scope == 0

	if global {
		c.declareGlobal(name)
	} else {
		c.declareVariable(name)
		c.markInitialized()
	}

	c.compileFunction(FuncFunction, name)

	if global {
		c.emitOpByte(DEFINE_GLOBAL, c.identifierConstant(name))
	}
}

// compileFunction parses `(params) { body }` for a function literal, method,
// or static method, pushing a new frame, and emits a CLOSURE instruction
// (plus one local/index pair per captured upvalue) into the enclosing frame.
func (c *Compiler) compileFunction(typ FuncType, name string) {
	enclosing := c.cur
	c.cur = &frame{enclosing: enclosing, fn: &Funcode{Name: name, Type: typ}}
	// Slot 0: `self` for methods, unnamed receiver slot otherwise.
	selfName := ""
	if typ == FuncMethod {
		selfName = "self"
	}
	c.cur.locals = append(c.cur.locals, local{name: selfName, depth: 0})

	c.beginScope()
	c.consume(token.LPAREN, "Expect '(' after function name.")
	if !c.check(token.RPAREN) {
		for {
			c.cur.fn.Arity++
			if c.cur.fn.Arity > maxArgs {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			c.consume(token.IDENT, "Expect parameter name.")
			c.declareVariable(c.previous.Lexeme)
			c.markInitialized()
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after parameters.")
	c.consume(token.LBRACE, "Expect '{' before function body.")
	c.block()

	fn := c.endFrame()

	c.cur = enclosing
	constIdx := c.makeConstant(fn)
	c.emitOpByte(CLOSURE, constIdx)
	for _, up := range fn.Upvalues {
		if up.IsLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(up.Index)
	}
}

// block compiles statements up to (and consuming) the closing '}'. The
// opening '{' must already have been consumed by the caller.
func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "Expect '}' after block.")
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.LOOP):
		c.loopStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.BREAK):
		c.breakStatement()
	case c.match(token.CONTINUE):
		c.continueStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.MATCH):
		c.matchStatement()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMI, "Expect ';' after expression.")
	c.emitOp(POP)
}

// withoutCompoundLiteral runs fn with struct-literal parsing disabled, so
// that the condition of a control-flow statement can't swallow its body's
// opening brace as a struct literal.
func (c *Compiler) withoutCompoundLiteral(fn func()) {
	prev := c.noCompoundLiteral
	c.noCompoundLiteral = true
	fn()
	c.noCompoundLiteral = prev
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "Expect '(' after 'if'.")
	c.withoutCompoundLiteral(c.expression)
	c.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(JUMP_IF_FALSE)
	c.emitOp(POP)
	c.statement()

	elseJump := c.emitJump(JUMP)
	c.patchJump(thenJump)
	c.emitOp(POP)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) pushLoop() *loopCtx {
	l := &loopCtx{enclosing: c.cur.loop, scopeDepth: c.cur.scope}
	c.cur.loop = l
	return l
}

// popLoop rewrites every BREAK placeholder recorded for the loop into a
// forward JUMP targeting the code after the loop, then restores the enclosing
// loop context. No BREAK opcode survives compilation.
func (c *Compiler) popLoop() {
	l := c.cur.loop
	for _, b := range l.breaks {
		c.cur.fn.Code[b] = byte(JUMP)
		c.patchJump(b + 1)
	}
	c.cur.loop = l.enclosing
}

func (c *Compiler) whileStatement() {
	l := c.pushLoop()
	l.start = len(c.cur.fn.Code)

	c.consume(token.LPAREN, "Expect '(' after 'while'.")
	c.withoutCompoundLiteral(c.expression)
	c.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(JUMP_IF_FALSE)
	c.emitOp(POP)
	c.statement()
	c.emitLoop(l.start)

	c.patchJump(exitJump)
	c.emitOp(POP)
	c.popLoop()
}

// loopStatement compiles `loop { body }`, an unconditional loop that can
// only be exited with break.
func (c *Compiler) loopStatement() {
	l := c.pushLoop()
	l.start = len(c.cur.fn.Code)

	c.consume(token.LBRACE, "Expect '{' after 'loop'.")
	c.beginScope()
	c.block()
	c.endScope()

	c.emitLoop(l.start)
	c.popLoop()
}

// forStatement compiles the C-style `for (init; cond; post) body`.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "Expect '(' after 'for'.")

	switch {
	case c.match(token.SEMI):
		// no initializer
	case c.match(token.VAR):
		c.varDeclarationNoGlobal()
	default:
		c.expressionStatement()
	}

	l := c.pushLoop()
	l.start = len(c.cur.fn.Code)

	exitJump := -1
	if !c.match(token.SEMI) {
		c.withoutCompoundLiteral(c.expression)
		c.consume(token.SEMI, "Expect ';' after loop condition.")
		exitJump = c.emitJump(JUMP_IF_FALSE)
		c.emitOp(POP)
	}

	if !c.check(token.RPAREN) {
		bodyJump := c.emitJump(JUMP)
		incStart := len(c.cur.fn.Code)
		c.withoutCompoundLiteral(func() {
			c.expression()
			c.emitOp(POP)
		})
		c.consume(token.RPAREN, "Expect ')' after for clauses.")
		c.emitLoop(l.start)
		l.start = incStart
		c.patchJump(bodyJump)
	} else {
		c.consume(token.RPAREN, "Expect ')' after for clauses.")
	}

	c.statement()
	c.emitLoop(l.start)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(POP)
	}
	c.popLoop()
	c.endScope()
}

// varDeclarationNoGlobal parses a `var` clause inside a for-init, which is
// always local to the for statement's own scope.
func (c *Compiler) varDeclarationNoGlobal() {
	c.consume(token.IDENT, "Expect variable name.")
	name := c.previous.Lexeme
	c.declareVariable(name)
	if c.match(token.EQ) {
		c.expression()
	} else {
		c.emitOp(NIL)
	}
	c.consume(token.SEMI, "Expect ';' after loop variable.")
	c.markInitialized()
}

func (c *Compiler) breakStatement() {
	if c.cur.loop == nil {
		c.errorAtPrevious("Can't use 'break' outside of a loop.")
		c.consume(token.SEMI, "Expect ';' after 'break'.")
		return
	}
	c.consume(token.SEMI, "Expect ';' after 'break'.")

	l := c.cur.loop
	for i := len(c.cur.locals) - 1; i >= 0 && c.cur.locals[i].depth > l.scopeDepth; i-- {
		if c.cur.locals[i].isCaptured {
			c.emitOp(CLOSE_UPVALUE)
		} else {
			c.emitOp(POP)
		}
	}
	// A BREAK placeholder, rewritten to a forward JUMP when the enclosing loop
	// ends (popLoop); the opcode position is recorded, not the operand's.
	l.breaks = append(l.breaks, len(c.cur.fn.Code))
	c.emitOp(BREAK)
	c.emitByte(0xff)
	c.emitByte(0xff)
}

func (c *Compiler) continueStatement() {
	if c.cur.loop == nil {
		c.errorAtPrevious("Can't use 'continue' outside of a loop.")
		c.consume(token.SEMI, "Expect ';' after 'continue'.")
		return
	}
	c.consume(token.SEMI, "Expect ';' after 'continue'.")

	l := c.cur.loop
	for i := len(c.cur.locals) - 1; i >= 0 && c.cur.locals[i].depth > l.scopeDepth; i-- {
		if c.cur.locals[i].isCaptured {
			c.emitOp(CLOSE_UPVALUE)
		} else {
			c.emitOp(POP)
		}
	}
	c.emitLoop(l.start)
}

func (c *Compiler) returnStatement() {
	if c.cur.fn.Type == FuncScript {
		c.errorAtPrevious("Can't return from top-level code.")
	}
	if c.match(token.SEMI) {
		c.emitOp(NIL)
		c.emitOp(RETURN)
		return
	}
	c.expression()
	c.consume(token.SEMI, "Expect ';' after return value.")
	c.emitOp(RETURN)
}

// matchStatement compiles `match (expr) { val1, val2 => stmt  val3 => stmt  else => stmt }`.
// Each arm is tested in turn with INEQUALITY_JUMP, which leaves the subject
// on the stack for the next comparison; the subject is only popped once a
// match (or the else arm) is taken.
func (c *Compiler) matchStatement() {
	c.consume(token.LPAREN, "Expect '(' after 'match'.")
	c.withoutCompoundLiteral(c.expression)
	c.consume(token.RPAREN, "Expect ')' after match subject.")
	c.consume(token.LBRACE, "Expect '{' before match body.")

	var endJumps []int
	var pendingNoMatch []int // mismatch jumps from the previous arm, patched to this arm's first test
	sawElse := false

	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		for _, j := range pendingNoMatch {
			c.patchJump(j)
		}
		pendingNoMatch = nil

		if c.match(token.ELSE) {
			sawElse = true
			c.consume(token.ARROW, "Expect '=>' after 'else'.")
			c.emitOp(POP)
			c.statement()
			break
		}

		var matchedJumps []int
		for {
			c.expression()
			mismatchJump := c.emitJump(INEQUALITY_JUMP)
			if c.check(token.COMMA) {
				matchedJumps = append(matchedJumps, c.emitJump(JUMP))
				c.patchJump(mismatchJump)
			} else {
				pendingNoMatch = append(pendingNoMatch, mismatchJump)
			}
			if !c.match(token.COMMA) {
				break
			}
		}
		for _, j := range matchedJumps {
			c.patchJump(j)
		}
		c.emitOp(POP)
		c.consume(token.ARROW, "Expect '=>' after match pattern.")
		c.statement()
		endJumps = append(endJumps, c.emitJump(JUMP))
	}
	c.consume(token.RBRACE, "Expect '}' after match body.")

	for _, j := range pendingNoMatch {
		c.patchJump(j)
	}
	if !sawElse {
		c.emitOp(POP)
	}
	for _, j := range endJumps {
		c.patchJump(j)
	}
}

// structDeclaration compiles `struct Name { field [= default] ; ... func m() {} static func s() {} }`.
func (c *Compiler) structDeclaration() {
	c.consume(token.IDENT, "Expect struct name.")
	name := c.previous.Lexeme
	global := c.cur.scope == 0

	if global {
		c.declareGlobal(name)
	} else {
		c.declareVariable(name)
		c.markInitialized()
	}

	nameConst := c.identifierConstant(name)
	c.emitOpByte(STRUCT, nameConst)

	if global {
		c.emitOpByte(DEFINE_GLOBAL, nameConst)
	}
	namedVariable(c, name, false)

	c.consume(token.LBRACE, "Expect '{' before struct body.")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		static := c.match(token.STATIC)
		switch {
		case c.match(token.FUNC):
			c.consume(token.IDENT, "Expect method name.")
			mname := c.previous.Lexeme
			mconst := c.identifierConstant(mname)
			typ := FuncMethod
			if static {
				typ = FuncStaticMethod
			}
			c.compileFunction(typ, mname)
			if static {
				c.emitOpByte(STATIC_METHOD, mconst)
			} else {
				c.emitOpByte(METHOD, mconst)
			}
		default:
			c.consume(token.IDENT, "Expect field name.")
			fname := c.previous.Lexeme
			fconst := c.identifierConstant(fname)
			if c.match(token.EQ) {
				c.expression()
			} else {
				c.emitOp(NIL)
			}
			c.consume(token.SEMI, "Expect ';' after field declaration.")
			c.emitOpByte(STRUCT_FIELD, fconst)
		}
	}
	c.consume(token.RBRACE, "Expect '}' after struct body.")
	c.emitOp(POP)
}

// enumDeclaration compiles `enum Name { A, B, C }`, assigning each value its
// position as a one-byte ordinal.
func (c *Compiler) enumDeclaration() {
	c.consume(token.IDENT, "Expect enum name.")
	name := c.previous.Lexeme
	global := c.cur.scope == 0

	if global {
		c.declareGlobal(name)
	} else {
		c.declareVariable(name)
		c.markInitialized()
	}

	nameConst := c.identifierConstant(name)
	c.emitOpByte(ENUM, nameConst)

	c.consume(token.LBRACE, "Expect '{' before enum body.")
	ordinal := 0
	if !c.check(token.RBRACE) {
		for {
			c.consume(token.IDENT, "Expect enum value name.")
			vname := c.previous.Lexeme
			// Each new value name also needs a constant-pool slot; a full pool
			// ends the enum just like the one-byte ordinal limit does.
			poolFull := len(c.cur.fn.Constants) >= maxConstants
			for _, k := range c.cur.fn.Constants {
				if k == vname {
					poolFull = false
					break
				}
			}
			if ordinal >= maxEnumValues || poolFull {
				c.errorAtPrevious("Too many values in enum.")
			}
			vconst := c.identifierConstant(vname)
			c.emitOpByte(ENUM_VALUE, vconst)
			c.emitByte(byte(ordinal))
			ordinal++
			if !c.match(token.COMMA) {
				break
			}
			if c.check(token.RBRACE) {
				break
			}
		}
	}
	c.consume(token.RBRACE, "Expect '}' after enum body.")

	if global {
		c.emitOpByte(DEFINE_GLOBAL, nameConst)
	}
	// Local case: the enum value built above already sits in the local's
	// reserved stack slot (ENUM_VALUE mutates peek(0) in place), so unlike
	// structDeclaration there is no working copy to pop here.
}
