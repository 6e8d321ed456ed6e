package vm

import (
	"github.com/filipefalcaos/falcon/internal/runtime"
	"github.com/filipefalcaos/falcon/internal/token"
)

// beginLoop pushes a Loop whose entry is the current chunk offset.
func (c *Compiler) beginLoop() *Loop {
	loop := &Loop{
		enclosing:  c.fc.loop,
		entry:      c.currentChunk().Count(),
		scopeDepth: c.fc.scopeDepth,
	}
	c.fc.loop = loop
	return loop
}

// endLoop rewrites every break placeholder in the loop body to a forward
// jump targeting the current chunk end, then pops the Loop.
func (c *Compiler) endLoop() {
	loop := c.fc.loop
	chunk := c.currentChunk()

	for offset := loop.body; offset < chunk.Count(); {
		if Opcode(chunk.Code[offset]) == OP_TEMP {
			chunk.Code[offset] = byte(OP_JUMP)
			c.patchJump(offset + 1)
			offset += 3
		} else {
			offset += instructionWidth(chunk, offset)
		}
	}

	c.fc.loop = loop.enclosing
}

// instructionWidth returns the byte length of the instruction at offset,
// including the variable-width CLOSURE transfer list.
func instructionWidth(chunk *runtime.Chunk, offset int) int {
	switch Opcode(chunk.Code[offset]) {
	case OP_CONST, OP_DEF_LIST, OP_DEF_MAP,
		OP_AND, OP_OR, OP_JUMP, OP_JUMP_IF_FALSE, OP_LOOP,
		OP_INV_PROP, OP_INV_SUPER, OP_TEMP:
		return 3
	case OP_CALL, OP_DEF_GLOBAL, OP_GET_GLOBAL, OP_SET_GLOBAL,
		OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE,
		OP_DEF_CLASS, OP_DEF_METHOD, OP_GET_PROP, OP_SET_PROP, OP_SUPER:
		return 2
	case OP_CLOSURE:
		fn := chunk.Constants.At(int(chunk.Code[offset+1])).Obj.(*runtime.ObjFunction)
		return 2 + 2*fn.UpvalueCount
	default:
		return 1
	}
}

// discardLoopLocals emits pops for locals declared inside the loop body
// without forgetting them, so break/next can leave mid-scope.
func (c *Compiler) discardLoopLocals(loop *Loop) {
	fc := c.fc
	for i := fc.localCount - 1; i >= 0 && fc.locals[i].Depth > loop.scopeDepth; i-- {
		if fc.locals[i].IsCaptured {
			c.emitOp(OP_CLOSE_UPVALUE)
		} else {
			c.emitOp(OP_POP)
		}
	}
}

func (c *Compiler) whileStatement() {
	loop := c.beginLoop()
	c.expression()

	exitJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)

	c.consume(token.LBRACE, "Expected '{' after condition.")
	loop.body = c.currentChunk().Count()
	c.beginScope()
	c.block()
	c.endScope()
	c.emitLoop(loop.entry)

	c.patchJump(exitJump)
	c.emitOp(OP_POP)
	c.endLoop()
}

// forStatement compiles "for init, cond, incr { body }". The increment
// compiles before the body in the bytecode, so the loop entry for next
// and the body's back-jump is the increment start.
func (c *Compiler) forStatement() {
	c.beginScope()

	if c.match(token.VAR) {
		global := c.parseVariable("Expected variable name.")
		if c.match(token.ASSIGN) {
			c.expression()
		} else {
			c.emitOp(OP_NULL)
		}
		c.defineVariable(global)
	} else {
		c.expression()
		c.emitOp(OP_POP)
	}
	c.consume(token.COMMA, "Expected ',' after loop initializer.")

	loop := c.beginLoop()
	condStart := loop.entry
	c.expression()
	c.consume(token.COMMA, "Expected ',' after loop condition.")

	exitJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)

	bodyJump := c.emitJump(OP_JUMP)
	incrStart := c.currentChunk().Count()
	c.expression()
	c.emitOp(OP_POP)
	c.emitLoop(condStart)
	loop.entry = incrStart
	c.patchJump(bodyJump)

	c.consume(token.LBRACE, "Expected '{' after loop increment.")
	loop.body = c.currentChunk().Count()
	c.beginScope()
	c.block()
	c.endScope()
	c.emitLoop(loop.entry)

	c.patchJump(exitJump)
	c.emitOp(OP_POP)
	c.endLoop()

	c.endScope()
}

// breakStatement emits a placeholder jump rewritten by endLoop.
func (c *Compiler) breakStatement() {
	loop := c.fc.loop
	if loop == nil {
		c.error("Cannot use 'break' outside of a loop.")
		return
	}
	c.consume(token.SEMICOLON, "Expected ';' after 'break'.")

	c.discardLoopLocals(loop)
	c.emitJump(OP_TEMP)
}

func (c *Compiler) nextStatement() {
	loop := c.fc.loop
	if loop == nil {
		c.error("Cannot use 'next' outside of a loop.")
		return
	}
	c.consume(token.SEMICOLON, "Expected ';' after 'next'.")

	c.discardLoopLocals(loop)
	c.emitLoop(loop.entry)
}

// switchStatement compiles "switch v { when e -> stmts ... else -> stmts }"
// as a chain of DUP/EQUAL tests over the discriminant.
func (c *Compiler) switchStatement() {
	c.expression()
	c.consume(token.LBRACE, "Expected '{' after switch value.")

	var endJumps []int
	for c.match(token.WHEN) {
		c.emitOp(OP_DUP)
		c.expression()
		c.consume(token.ARROW, "Expected '->' after case value.")
		c.emitOp(OP_EQUAL)

		missJump := c.emitJump(OP_JUMP_IF_FALSE)
		c.emitOp(OP_POP)
		for !c.check(token.WHEN) && !c.check(token.ELSE) &&
			!c.check(token.RBRACE) && !c.check(token.EOF) {
			c.statement()
		}
		endJumps = append(endJumps, c.emitJump(OP_JUMP))

		c.patchJump(missJump)
		c.emitOp(OP_POP)
	}

	if c.match(token.ELSE) {
		c.consume(token.ARROW, "Expected '->' after 'else'.")
		for !c.check(token.RBRACE) && !c.check(token.EOF) {
			c.statement()
		}
	}

	for _, jump := range endJumps {
		c.patchJump(jump)
	}
	c.consume(token.RBRACE, "Expected '}' after switch cases.")
	c.emitOp(OP_POP)
}
