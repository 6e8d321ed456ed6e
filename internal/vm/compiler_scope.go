package vm

import (
	"github.com/filipefalcaos/falcon/internal/runtime"
	"github.com/filipefalcaos/falcon/internal/token"
)

// Compile-time limits
const (
	maxLocals        = 256 // slot 0 reserved, so 255 declarable locals
	maxUpvalues      = 256
	maxCallArgs      = 255
	maxParams        = 255
	maxJump          = 0xffff
	maxConstants     = 0xffff
	maxCollectionLen = 0xffff
)

// Local is a block-scoped variable resolved to a stack slot. Depth -1
// marks a variable that is declared but not yet initialized.
type Local struct {
	Name       string
	Depth      int
	IsCaptured bool // captured by a nested function; close on scope exit
}

// Upvalue records a captured variable during compilation: either a parent
// local (IsLocal) or a parent upvalue.
type Upvalue struct {
	Index   uint8
	IsLocal bool
}

// Loop tracks the innermost loop being compiled, for break/next.
type Loop struct {
	enclosing  *Loop
	entry      int // offset next jumps back to
	body       int // offset of the first body instruction
	scopeDepth int // depth outside the loop body
}

// Scopes

func (c *Compiler) beginScope() {
	c.fc.scopeDepth++
}

func (c *Compiler) endScope() {
	fc := c.fc
	fc.scopeDepth--

	for fc.localCount > 0 && fc.locals[fc.localCount-1].Depth > fc.scopeDepth {
		if fc.locals[fc.localCount-1].IsCaptured {
			c.emitOp(OP_CLOSE_UPVALUE)
		} else {
			c.emitOp(OP_POP)
		}
		fc.localCount--
	}
}

// Variable declaration and resolution

func (c *Compiler) addLocal(name string) {
	fc := c.fc
	if fc.localCount >= maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	fc.locals[fc.localCount] = Local{Name: name, Depth: -1}
	fc.localCount++
}

// declareVariable records a new local. Globals are late-bound and need no
// declaration. Redeclaring a name in the same scope is an error.
func (c *Compiler) declareVariable() {
	fc := c.fc
	if fc.scopeDepth == 0 {
		return
	}

	name := c.previous.Lexeme
	for i := fc.localCount - 1; i >= 0; i-- {
		local := &fc.locals[i]
		if local.Depth != -1 && local.Depth < fc.scopeDepth {
			break
		}
		if local.Name == name {
			c.error("Variable '" + name + "' is already declared in this scope.")
		}
	}
	c.addLocal(name)
}

// parseVariable consumes an identifier and returns the name-constant index
// for globals, or 0 for locals.
func (c *Compiler) parseVariable(message string) uint8 {
	c.consume(token.IDENT, message)
	c.declareVariable()
	if c.fc.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous.Lexeme)
}

// markInitialized gives the newest local its real depth so it becomes
// readable.
func (c *Compiler) markInitialized() {
	fc := c.fc
	if fc.scopeDepth == 0 {
		return
	}
	fc.locals[fc.localCount-1].Depth = fc.scopeDepth
}

// defineVariable finishes a declaration: globals emit DEF_GLOBAL, locals
// simply become initialized in place.
func (c *Compiler) defineVariable(nameConstant uint8) {
	if c.fc.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(byte(OP_DEF_GLOBAL), byte(nameConstant))
}

// resolveLocal finds name among fc's locals, newest first. Reading a
// variable inside its own initializer is an error.
func (c *Compiler) resolveLocal(fc *funcCompiler, name string) int {
	for i := fc.localCount - 1; i >= 0; i-- {
		local := &fc.locals[i]
		if local.Name == name {
			if local.Depth == -1 {
				c.error("Cannot read variable '" + name + "' in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue recursively looks for name in enclosing functions,
// creating the upvalue chain needed to reach it.
func (c *Compiler) resolveUpvalue(fc *funcCompiler, name string) int {
	if fc.enclosing == nil {
		return -1
	}

	if slot := c.resolveLocal(fc.enclosing, name); slot != -1 {
		fc.enclosing.locals[slot].IsCaptured = true
		return c.addUpvalue(fc, uint8(slot), true)
	}

	if upvalue := c.resolveUpvalue(fc.enclosing, name); upvalue != -1 {
		return c.addUpvalue(fc, uint8(upvalue), false)
	}

	return -1
}

// addUpvalue registers a capture, deduplicating by (index, isLocal).
func (c *Compiler) addUpvalue(fc *funcCompiler, index uint8, isLocal bool) int {
	count := fc.function.UpvalueCount
	for i := 0; i < count; i++ {
		uv := &fc.upvalues[i]
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}

	if count >= maxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}

	fc.upvalues[count] = Upvalue{Index: index, IsLocal: isLocal}
	fc.function.UpvalueCount++
	return count
}

// identifierConstant interns name and stores it in the constant pool,
// reusing an existing slot so 1-byte name operands do not run out.
func (c *Compiler) identifierConstant(name string) uint8 {
	s := c.heap.Intern(name)
	chunk := c.currentChunk()
	for i, v := range chunk.Constants.Values() {
		if v.IsObj() && v.Obj == s {
			return uint8(i)
		}
	}
	idx := chunk.AddConstant(runtime.ObjVal(s))
	if idx > 0xff {
		c.error("Too many identifiers in one chunk.")
		return 0
	}
	return uint8(idx)
}

// Emit helpers

func (c *Compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op Opcode) {
	c.emitByte(byte(op))
}

func (c *Compiler) emitBytes(b1, b2 byte) {
	c.emitByte(b1)
	c.emitByte(b2)
}

// emitShort writes a 16-bit operand, LSB first.
func (c *Compiler) emitShort(v int) {
	c.emitByte(byte(v & 0xff))
	c.emitByte(byte((v >> 8) & 0xff))
}

func (c *Compiler) makeConstant(v runtime.Value) int {
	idx := c.currentChunk().AddConstant(v)
	if idx > maxConstants {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return idx
}

func (c *Compiler) emitConstant(v runtime.Value) {
	idx := c.makeConstant(v)
	c.emitOp(OP_CONST)
	c.emitShort(idx)
}

// emitJump writes op plus a 2-byte placeholder and returns the operand
// offset for later patching.
func (c *Compiler) emitJump(op Opcode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return c.currentChunk().Count() - 2
}

// patchJump rewrites the placeholder at offset to jump to the current end
// of the chunk.
func (c *Compiler) patchJump(offset int) {
	jump := c.currentChunk().Count() - offset - 2
	if jump > maxJump {
		c.error("Too much code to jump over.")
	}
	c.currentChunk().Code[offset] = byte(jump & 0xff)
	c.currentChunk().Code[offset+1] = byte((jump >> 8) & 0xff)
}

// emitLoop jumps backward to start.
func (c *Compiler) emitLoop(start int) {
	c.emitOp(OP_LOOP)
	offset := c.currentChunk().Count() - start + 2
	if offset > maxJump {
		c.error("Loop body too large.")
	}
	c.emitByte(byte(offset & 0xff))
	c.emitByte(byte((offset >> 8) & 0xff))
}

// emitReturn writes the implicit function return: initializers return the
// receiver, everything else returns null.
func (c *Compiler) emitReturn() {
	if c.fc.kind == TYPE_INIT {
		c.emitBytes(byte(OP_GET_LOCAL), 0)
	} else {
		c.emitOp(OP_NULL)
	}
	c.emitOp(OP_RETURN)
}
