package vm

import (
	"github.com/filipefalcaos/falcon/internal/runtime"
	"github.com/filipefalcaos/falcon/internal/token"
)

func (c *Compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FN):
		c.fnDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

// varDeclaration compiles "var a = expr, b, c = expr;". Declarators
// without an initializer default to null.
func (c *Compiler) varDeclaration() {
	for {
		global := c.parseVariable("Expected variable name.")
		if c.match(token.ASSIGN) {
			c.expression()
		} else {
			c.emitOp(OP_NULL)
		}
		c.defineVariable(global)
		if !c.match(token.COMMA) {
			break
		}
	}
	c.consume(token.SEMICOLON, "Expected ';' after variable declaration.")
}

// fnDeclaration marks the name initialized before the body so the
// function can call itself.
func (c *Compiler) fnDeclaration() {
	global := c.parseVariable("Expected function name.")
	name := c.previous.Lexeme
	c.markInitialized()
	c.function(TYPE_FUNCTION, name)
	c.defineVariable(global)
}

// function compiles a parameter list and body in a fresh funcCompiler,
// then emits OP_CLOSURE with the upvalue transfer list in the enclosing
// function.
func (c *Compiler) function(kind FunctionKind, name string) {
	c.pushFuncCompiler(kind, c.heap.Intern(name))
	c.beginScope()

	c.consume(token.LPAREN, "Expected '(' after function name.")
	if !c.check(token.RPAREN) {
		for {
			c.fc.function.Arity++
			if c.fc.function.Arity > maxParams {
				c.errorAtCurrent("Cannot have more than 255 parameters.")
			}
			param := c.parseVariable("Expected parameter name.")
			c.defineVariable(param)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expected ')' after parameters.")
	c.consume(token.LBRACE, "Expected '{' before function body.")
	c.block()

	fc := c.fc
	fn := c.endFuncCompiler()

	idx := c.makeConstant(runtime.ObjVal(fn))
	if idx > 0xff {
		c.error("Too many constants in one chunk.")
		idx = 0
	}
	c.emitBytes(byte(OP_CLOSURE), byte(idx))
	for i := 0; i < fn.UpvalueCount; i++ {
		uv := fc.upvalues[i]
		if uv.IsLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(uv.Index)
	}
}

func (c *Compiler) classDeclaration() {
	c.consume(token.IDENT, "Expected class name.")
	className := c.previous.Lexeme
	nameConstant := c.identifierConstant(className)
	c.declareVariable()

	c.emitBytes(byte(OP_DEF_CLASS), byte(nameConstant))
	c.defineVariable(nameConstant)

	cc := &classCompiler{enclosing: c.class}
	c.class = cc

	if c.match(token.LT) {
		c.consume(token.IDENT, "Expected superclass name.")
		c.variable(false)
		if c.previous.Lexeme == className {
			c.error("A class cannot inherit from itself.")
		}

		// "super" lives in a synthetic scope around the class body so
		// nested methods capture it as a normal upvalue.
		c.beginScope()
		c.addLocal("super")
		c.defineVariable(0)

		c.namedVariable(className, false)
		c.emitOp(OP_INHERIT)
		cc.hasSuper = true
	}

	c.namedVariable(className, false)
	c.consume(token.LBRACE, "Expected '{' before class body.")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RBRACE, "Expected '}' after class body.")
	c.emitOp(OP_POP)

	if cc.hasSuper {
		c.endScope()
	}
	c.class = cc.enclosing
}

func (c *Compiler) method() {
	c.consume(token.FN, "Expected method declaration.")
	c.consume(token.IDENT, "Expected method name.")
	name := c.previous.Lexeme
	constant := c.identifierConstant(name)

	kind := TYPE_METHOD
	if name == "init" {
		kind = TYPE_INIT
	}
	c.function(kind, name)
	c.emitBytes(byte(OP_DEF_METHOD), byte(constant))
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.SWITCH):
		c.switchStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.BREAK):
		c.breakStatement()
	case c.match(token.NEXT):
		c.nextStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

// block assumes the opening '{' was consumed.
func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "Expected '}' after block.")
}

func (c *Compiler) ifStatement() {
	c.expression()

	thenJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	c.consume(token.LBRACE, "Expected '{' after condition.")
	c.beginScope()
	c.block()
	c.endScope()

	elseJump := c.emitJump(OP_JUMP)
	c.patchJump(thenJump)
	c.emitOp(OP_POP)

	if c.match(token.ELSE) {
		if c.match(token.IF) {
			c.ifStatement()
		} else {
			c.consume(token.LBRACE, "Expected '{' after 'else'.")
			c.beginScope()
			c.block()
			c.endScope()
		}
	}
	c.patchJump(elseJump)
}

func (c *Compiler) returnStatement() {
	if c.fc.kind == TYPE_SCRIPT {
		c.error("Cannot return from top-level code.")
	}

	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}

	if c.fc.kind == TYPE_INIT {
		c.error("Cannot return a value from an initializer.")
	}
	c.expression()
	c.consume(token.SEMICOLON, "Expected ';' after return value.")
	c.emitOp(OP_RETURN)
}

// expressionStatement discards the value, or prints it first at the
// REPL's top level.
func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expected ';' after expression.")
	if c.repl && c.fc.kind == TYPE_SCRIPT {
		c.emitOp(OP_POP_EXPR)
	} else {
		c.emitOp(OP_POP)
	}
}
