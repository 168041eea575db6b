package compiler

import "github.com/mna/ember/lang/token"

type precedence uint8

const (
	precNone precedence = iota
	precAssignment       // =  +=  -=  etc.
	precOr               // ||
	precAnd              // &&
	precEquality         // == !=
	precComparison       // < > <= >=
	precConcat           // ..
	precTerm             // + -
	precFactor           // * / %
	precPower            // **
	precUnary            // ! -
	precCall             // . () [] ::
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

var rules map[token.Token]parseRule

func init() {
	rules = map[token.Token]parseRule{
		token.LPAREN:     {prefix: grouping, infix: call, prec: precCall},
		token.LBRACK:     {prefix: arrayLiteral, infix: subscript, prec: precCall},
		token.DOT:        {infix: dot, prec: precCall},
		token.COLONCOLON: {infix: staticAccess, prec: precCall},
		token.MINUS:      {prefix: unary, infix: binary, prec: precTerm},
		token.PLUS:       {infix: binary, prec: precTerm},
		token.SLASH:      {infix: binary, prec: precFactor},
		token.STAR:       {infix: binary, prec: precFactor},
		token.PERCENT:    {infix: binary, prec: precFactor},
		token.STARSTAR:   {infix: binary, prec: precPower},
		token.DOTDOT:     {infix: binary, prec: precConcat},
		token.BANG:       {prefix: unary},
		token.BANG_EQ:    {infix: binary, prec: precEquality},
		token.EQEQ:       {infix: binary, prec: precEquality},
		token.GT:         {infix: binary, prec: precComparison},
		token.GE:         {infix: binary, prec: precComparison},
		token.LT:         {infix: binary, prec: precComparison},
		token.LE:         {infix: binary, prec: precComparison},
		token.AMP_AMP:    {infix: and_, prec: precAnd},
		token.PIPE_PIPE:  {infix: or_, prec: precOr},
		token.IDENT:      {prefix: variable},
		token.STRING:     {prefix: stringLit},
		token.NUMBER:     {prefix: number},
		token.TRUE:       {prefix: literal},
		token.FALSE:      {prefix: literal},
		token.NIL:        {prefix: literal},
		token.SELF:       {prefix: selfExpr},
		token.FUNC:       {prefix: funcLiteral},
	}
}

func getRule(t token.Token) parseRule { return rules[t] }

func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.errorAtPrevious("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= getRule(c.current.Type).prec {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}
}

func number(c *Compiler, _ bool) { c.emitConstant(c.previous.Number) }

func stringLit(c *Compiler, _ bool) { c.emitConstant(c.previous.Literal) }

func literal(c *Compiler, _ bool) {
	switch c.previous.Type {
	case token.TRUE:
		c.emitOp(TRUE)
	case token.FALSE:
		c.emitOp(FALSE)
	case token.NIL:
		c.emitOp(NIL)
	}
}

// selfExpr compiles a use of `self`: legal in an instance method, or in a
// function literal nested within one (where it resolves as an upvalue on the
// method's receiver slot). A static method has no receiver.
func selfExpr(c *Compiler, _ bool) {
	for f := c.cur; f != nil; f = f.enclosing {
		switch f.fn.Type {
		case FuncMethod:
			namedVariable(c, "self", false)
			return
		case FuncFunction:
			continue
		default: // script or static method
			c.errorAtPrevious("Can't use 'self' outside of a method.")
			return
		}
	}
	c.errorAtPrevious("Can't use 'self' outside of a method.")
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

func unary(c *Compiler, _ bool) {
	op := c.previous.Type
	c.parsePrecedence(precUnary)
	switch op {
	case token.MINUS:
		c.emitOp(NEGATE)
	case token.BANG:
		c.emitOp(NOT)
	}
}

var binaryOps = map[token.Token]Opcode{
	token.PLUS:     ADD,
	token.MINUS:    SUBTRACT,
	token.STAR:     MULTIPLY,
	token.SLASH:    DIVIDE,
	token.PERCENT:  MODULO,
	token.STARSTAR: POW,
	token.DOTDOT:   CONCAT,
	token.EQEQ:     EQUAL,
	token.BANG_EQ:  NOT_EQUAL,
	token.GT:       GREATER,
	token.GE:       GREATER_EQUAL,
	token.LT:       LESSER,
	token.LE:       LESSER_EQUAL,
}

func binary(c *Compiler, _ bool) {
	op := c.previous.Type
	rule := getRule(op)
	c.parsePrecedence(rule.prec + 1)
	c.emitOp(binaryOps[op])
}

func and_(c *Compiler, _ bool) {
	endJump := c.emitJump(JUMP_IF_FALSE)
	c.emitOp(POP)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func or_(c *Compiler, _ bool) {
	elseJump := c.emitJump(JUMP_IF_FALSE)
	endJump := c.emitJump(JUMP)
	c.patchJump(elseJump)
	c.emitOp(POP)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func arrayLiteral(c *Compiler, _ bool) {
	count := 0
	if !c.check(token.RBRACK) {
		for {
			c.expression()
			count++
			if count > 255 {
				c.errorAtPrevious("Too many elements in array literal.")
			}
			if !c.match(token.COMMA) {
				break
			}
			if c.check(token.RBRACK) {
				break
			}
		}
	}
	c.consume(token.RBRACK, "Expect ']' after array elements.")
	c.emitOpByte(ARRAY, byte(count))
}

func subscript(c *Compiler, canAssign bool) {
	c.expression()
	c.consume(token.RBRACK, "Expect ']' after index.")

	if canAssign && c.match(token.EQ) {
		c.expression()
		c.emitOp(SET_SUBSCRIPT)
		return
	}
	if canAssign && c.matchCompoundAssign() {
		c.errorAtPrevious("Compound assignment is not supported on subscript targets.")
		return
	}
	c.emitOp(GET_SUBSCRIPT)
}

func dot(c *Compiler, canAssign bool) {
	c.consume(token.IDENT, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous.Lexeme)

	switch {
	case canAssign && c.match(token.EQ):
		c.expression()
		c.emitOpByte(SET_PROPERTY, name)
	case canAssign && c.matchCompoundAssign():
		op := c.previous.Type
		c.emitOpByte(PUSH_PROPERTY, name)
		c.expression()
		c.emitOp(binaryOps[compoundBase(op)])
		c.emitOpByte(SET_PROPERTY, name)
	case c.match(token.LPAREN):
		argc := c.argumentList()
		c.emitOpByte(INVOKE, name)
		c.emitByte(byte(argc))
	default:
		c.emitOpByte(GET_PROPERTY, name)
	}
}

func staticAccess(c *Compiler, _ bool) {
	c.consume(token.IDENT, "Expect name after '::'.")
	name := c.identifierConstant(c.previous.Lexeme)
	c.emitOpByte(GET_STATIC, name)
}

func (c *Compiler) argumentList() int {
	argc := 0
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if argc == maxArgs {
				c.errorAtPrevious("Can't have more than 255 arguments.")
			}
			argc++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after arguments.")
	return argc
}

func call(c *Compiler, _ bool) {
	argc := c.argumentList()
	c.emitOpByte(CALL, byte(argc))
}

func (c *Compiler) matchCompoundAssign() bool {
	switch c.current.Type {
	case token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ,
		token.PERCENT_EQ, token.STARSTAR_EQ, token.DOTDOT_EQ:
		c.advance()
		return true
	}
	return false
}

func compoundBase(op token.Token) token.Token {
	switch op {
	case token.PLUS_EQ:
		return token.PLUS
	case token.MINUS_EQ:
		return token.MINUS
	case token.STAR_EQ:
		return token.STAR
	case token.SLASH_EQ:
		return token.SLASH
	case token.PERCENT_EQ:
		return token.PERCENT
	case token.STARSTAR_EQ:
		return token.STARSTAR
	case token.DOTDOT_EQ:
		return token.DOTDOT
	}
	return token.ILLEGAL
}

func variable(c *Compiler, canAssign bool) {
	name := c.previous.Lexeme

	if canAssign && c.match(token.EQ) {
		c.expression()
		c.emitNamedSet(name)
		return
	}
	if canAssign && c.matchCompoundAssign() {
		op := c.previous.Type
		namedVariable(c, name, false)
		c.expression()
		c.emitOp(binaryOps[compoundBase(op)])
		c.emitNamedSet(name)
		return
	}

	// `Name { ... }` is a struct literal, unless compound literals are
	// disabled (while parsing the condition of if/while/for/match, so that
	// the statement body's opening brace isn't swallowed as a literal).
	if !c.noCompoundLiteral && c.check(token.LBRACE) {
		structLiteral(c, name)
		return
	}

	namedVariable(c, name, false)
}

// namedVariable emits the get (or, if set is true, the set) for name,
// resolving it as a local, an upvalue, or a global in that order.
func namedVariable(c *Compiler, name string, set bool) {
	if slot := resolveLocal(c.cur, name); slot >= 0 {
		if set {
			c.emitOpByte(SET_LOCAL, byte(slot))
		} else {
			c.emitOpByte(GET_LOCAL, byte(slot))
		}
		return
	}
	if slot := resolveUpvalue(c.cur, name); slot >= 0 {
		if set {
			c.emitOpByte(SET_UPVALUE, byte(slot))
		} else {
			c.emitOpByte(GET_UPVALUE, byte(slot))
		}
		return
	}
	nameConst := c.identifierConstant(name)
	if set {
		c.emitOpByte(SET_GLOBAL, nameConst)
	} else {
		c.emitOpByte(GET_GLOBAL, nameConst)
	}
}

func (c *Compiler) emitNamedSet(name string) { namedVariable(c, name, true) }

// structLiteral compiles `Name { field = expr, ... }`: it looks up Name (the
// struct), allocates an instance, then emits one INIT_PROPERTY per field.
func structLiteral(c *Compiler, name string) {
	namedVariable(c, name, false)
	c.consume(token.LBRACE, "Expect '{' to begin struct literal.")
	c.emitOp(INSTANCE)

	if !c.check(token.RBRACE) {
		for {
			c.consume(token.IDENT, "Expect field name.")
			field := c.identifierConstant(c.previous.Lexeme)
			c.consume(token.EQ, "Expect '=' after field name.")
			c.expression()
			c.emitOpByte(INIT_PROPERTY, field)
			if !c.match(token.COMMA) {
				break
			}
			if c.check(token.RBRACE) {
				break
			}
		}
	}
	c.consume(token.RBRACE, "Expect '}' after struct literal.")
}

// funcLiteral compiles an anonymous `func(params) { body }` expression.
func funcLiteral(c *Compiler, _ bool) {
	c.compileFunction(FuncFunction, "")
}
