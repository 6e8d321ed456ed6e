package vm

import (
	"github.com/filipefalcaos/falcon/internal/runtime"
	"github.com/filipefalcaos/falcon/internal/token"
)

// Precedence levels, lowest to highest
type Precedence int

const (
	PREC_NONE Precedence = iota
	PREC_ASSIGN
	PREC_TERNARY
	PREC_OR
	PREC_AND
	PREC_EQUAL
	PREC_COMPARE
	PREC_TERM
	PREC_FACTOR
	PREC_UNARY
	PREC_POW
	PREC_TOP // calls, subscript, field access
)

// parseFn is a Pratt handler. canAssign tells handlers with assignable
// targets whether an '=' may follow.
type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   Precedence
}

// rules is the Pratt table: one entry per token kind that can start or
// continue an expression. Populated in init because the handlers reach
// back into the table through parsePrecedence, which a composite literal
// initializer would make a declaration cycle.
var rules map[token.TokenType]parseRule

func init() {
	rules = map[token.TokenType]parseRule{
		token.LPAREN:   {(*Compiler).grouping, (*Compiler).call, PREC_TOP},
		token.LBRACKET: {(*Compiler).list, (*Compiler).subscript, PREC_TOP},
		token.LBRACE:   {(*Compiler).mapLiteral, nil, PREC_NONE},
		token.DOT:      {nil, (*Compiler).dot, PREC_TOP},
		token.MINUS:    {(*Compiler).unary, (*Compiler).binary, PREC_TERM},
		token.PLUS:     {nil, (*Compiler).binary, PREC_TERM},
		token.STAR:     {nil, (*Compiler).binary, PREC_FACTOR},
		token.SLASH:    {nil, (*Compiler).binary, PREC_FACTOR},
		token.PERCENT:  {nil, (*Compiler).binary, PREC_FACTOR},
		token.CARET:    {nil, (*Compiler).binary, PREC_POW},
		token.QUESTION: {nil, (*Compiler).ternary, PREC_TERNARY},
		token.NOT_EQ:   {nil, (*Compiler).binary, PREC_EQUAL},
		token.EQ:       {nil, (*Compiler).binary, PREC_EQUAL},
		token.LT:       {nil, (*Compiler).binary, PREC_COMPARE},
		token.LE:       {nil, (*Compiler).binary, PREC_COMPARE},
		token.GT:       {nil, (*Compiler).binary, PREC_COMPARE},
		token.GE:       {nil, (*Compiler).binary, PREC_COMPARE},
		token.IDENT:    {(*Compiler).variable, nil, PREC_NONE},
		token.NUMBER:   {(*Compiler).number, nil, PREC_NONE},
		token.STRING:   {(*Compiler).stringLiteral, nil, PREC_NONE},
		token.AND:      {nil, (*Compiler).and, PREC_AND},
		token.OR:       {nil, (*Compiler).or, PREC_OR},
		token.NOT:      {(*Compiler).unary, nil, PREC_NONE},
		token.TRUE:     {(*Compiler).literal, nil, PREC_NONE},
		token.FALSE:    {(*Compiler).literal, nil, PREC_NONE},
		token.NULL:     {(*Compiler).literal, nil, PREC_NONE},
		token.THIS:     {(*Compiler).this, nil, PREC_NONE},
		token.SUPER:    {(*Compiler).super, nil, PREC_NONE},
	}
}

func getRule(t token.TokenType) parseRule {
	return rules[t]
}

func (c *Compiler) expression() {
	c.parsePrecedence(PREC_ASSIGN)
}

// parsePrecedence is the Pratt driver: run the prefix handler for the
// token just consumed, then fold infix handlers while their precedence is
// at least p.
func (c *Compiler) parsePrecedence(p Precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.error("Expected expression.")
		return
	}

	canAssign := p <= PREC_TERNARY
	prefix(c, canAssign)

	for p <= getRule(c.current.Type).prec {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.ASSIGN) {
		c.error("Invalid assignment target.")
	}
}

// Prefix handlers

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RPAREN, "Expected ')' after expression.")
}

func (c *Compiler) number(canAssign bool) {
	value := c.previous.Literal.(float64)
	c.emitConstant(runtime.NumberVal(value))
}

func (c *Compiler) stringLiteral(canAssign bool) {
	s := c.heap.Intern(c.previous.Literal.(string))
	c.emitConstant(runtime.ObjVal(s))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Type {
	case token.TRUE:
		c.emitOp(OP_TRUE)
	case token.FALSE:
		c.emitOp(OP_FALSE)
	case token.NULL:
		c.emitOp(OP_NULL)
	}
}

func (c *Compiler) unary(canAssign bool) {
	op := c.previous.Type
	c.parsePrecedence(PREC_UNARY)
	switch op {
	case token.MINUS:
		c.emitOp(OP_NEG)
	case token.NOT:
		c.emitOp(OP_NOT)
	}
}

func (c *Compiler) list(canAssign bool) {
	count := 0
	if !c.check(token.RBRACKET) {
		for {
			c.expression()
			count++
			if count > maxCollectionLen {
				c.error("Too many elements in list literal.")
			}
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RBRACKET, "Expected ']' after list elements.")
	c.emitOp(OP_DEF_LIST)
	c.emitShort(count)
}

func (c *Compiler) mapLiteral(canAssign bool) {
	count := 0
	if !c.check(token.RBRACE) {
		for {
			c.expression() // key
			c.consume(token.COLON, "Expected ':' after map key.")
			c.expression() // value
			count++
			if count > maxCollectionLen {
				c.error("Too many entries in map literal.")
			}
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RBRACE, "Expected '}' after map entries.")
	c.emitOp(OP_DEF_MAP)
	c.emitShort(count)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous.Lexeme, canAssign)
}

// namedVariable resolves a name to a local slot, an upvalue or a global,
// emitting the matching get or set opcode.
func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp Opcode
	var arg int

	if slot := c.resolveLocal(c.fc, name); slot != -1 {
		arg = slot
		getOp, setOp = OP_GET_LOCAL, OP_SET_LOCAL
	} else if upvalue := c.resolveUpvalue(c.fc, name); upvalue != -1 {
		arg = upvalue
		getOp, setOp = OP_GET_UPVALUE, OP_SET_UPVALUE
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = OP_GET_GLOBAL, OP_SET_GLOBAL
	}

	if canAssign && c.match(token.ASSIGN) {
		c.expression()
		c.emitBytes(byte(setOp), byte(arg))
	} else {
		c.emitBytes(byte(getOp), byte(arg))
	}
}

func (c *Compiler) this(canAssign bool) {
	if c.class == nil {
		c.error("Cannot use 'this' outside of a class.")
		return
	}
	c.namedVariable("this", false)
}

func (c *Compiler) super(canAssign bool) {
	if c.class == nil {
		c.error("Cannot use 'super' outside of a class.")
	} else if !c.class.hasSuper {
		c.error("Cannot use 'super' in a class with no superclass.")
	}

	c.consume(token.DOT, "Expected '.' after 'super'.")
	c.consume(token.IDENT, "Expected superclass method name.")
	name := c.identifierConstant(c.previous.Lexeme)

	c.namedVariable("this", false)
	if c.match(token.LPAREN) {
		argCount := c.argumentList()
		c.namedVariable("super", false)
		c.emitOp(OP_INV_SUPER)
		c.emitBytes(byte(name), byte(argCount))
	} else {
		c.namedVariable("super", false)
		c.emitBytes(byte(OP_SUPER), byte(name))
	}
}

// Infix handlers

func (c *Compiler) binary(canAssign bool) {
	op := c.previous.Type
	rule := getRule(op)
	if op == token.CARET {
		// Exponentiation is right-associative
		c.parsePrecedence(PREC_POW)
	} else {
		c.parsePrecedence(rule.prec + 1)
	}

	switch op {
	case token.PLUS:
		c.emitOp(OP_ADD)
	case token.MINUS:
		c.emitOp(OP_SUB)
	case token.STAR:
		c.emitOp(OP_MULT)
	case token.SLASH:
		c.emitOp(OP_DIV)
	case token.PERCENT:
		c.emitOp(OP_MOD)
	case token.CARET:
		c.emitOp(OP_POW)
	case token.EQ:
		c.emitOp(OP_EQUAL)
	case token.NOT_EQ:
		c.emitOp(OP_EQUAL)
		c.emitOp(OP_NOT)
	case token.LT:
		c.emitOp(OP_LESS)
	case token.GT:
		c.emitOp(OP_GREATER)
	case token.LE:
		c.emitOp(OP_GREATER)
		c.emitOp(OP_NOT)
	case token.GE:
		c.emitOp(OP_LESS)
		c.emitOp(OP_NOT)
	}
}

// and short-circuits: OP_AND jumps past the right operand when the left is
// falsey, leaving it on the stack; otherwise it pops.
func (c *Compiler) and(canAssign bool) {
	endJump := c.emitJump(OP_AND)
	c.parsePrecedence(PREC_AND)
	c.patchJump(endJump)
}

func (c *Compiler) or(canAssign bool) {
	endJump := c.emitJump(OP_OR)
	c.parsePrecedence(PREC_OR)
	c.patchJump(endJump)
}

func (c *Compiler) ternary(canAssign bool) {
	elseJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	c.parsePrecedence(PREC_TERNARY)
	endJump := c.emitJump(OP_JUMP)

	c.consume(token.COLON, "Expected ':' in conditional expression.")
	c.patchJump(elseJump)
	c.emitOp(OP_POP)
	c.parsePrecedence(PREC_TERNARY)
	c.patchJump(endJump)
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitBytes(byte(OP_CALL), byte(argCount))
}

func (c *Compiler) argumentList() int {
	count := 0
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if count == maxCallArgs {
				c.error("Cannot have more than 255 arguments.")
			}
			count++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expected ')' after arguments.")
	return count
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENT, "Expected property name after '.'.")
	name := c.identifierConstant(c.previous.Lexeme)

	if canAssign && c.match(token.ASSIGN) {
		c.expression()
		c.emitBytes(byte(OP_SET_PROP), byte(name))
	} else if c.match(token.LPAREN) {
		argCount := c.argumentList()
		c.emitOp(OP_INV_PROP)
		c.emitBytes(byte(name), byte(argCount))
	} else {
		c.emitBytes(byte(OP_GET_PROP), byte(name))
	}
}

func (c *Compiler) subscript(canAssign bool) {
	c.expression()
	c.consume(token.RBRACKET, "Expected ']' after subscript.")

	if canAssign && c.match(token.ASSIGN) {
		c.expression()
		c.emitOp(OP_SET_INDEX)
	} else {
		c.emitOp(OP_GET_INDEX)
	}
}
