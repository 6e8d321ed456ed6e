package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/filipefalcaos/falcon/internal/lexer"
	"github.com/filipefalcaos/falcon/internal/runtime"
	"github.com/filipefalcaos/falcon/internal/token"
)

// ErrCompile is returned when compilation fails; diagnostics were already
// written to the compiler's error writer.
var ErrCompile = errors.New("compile error")

// FunctionKind distinguishes the kinds of function bodies being compiled
type FunctionKind int

const (
	TYPE_SCRIPT FunctionKind = iota
	TYPE_FUNCTION
	TYPE_METHOD
	TYPE_INIT
)

// Compiler is the single-pass Pratt compiler: it pulls tokens from the
// lexer and emits bytecode directly into the function being built, with no
// intermediate AST.
type Compiler struct {
	lex  *lexer.Lexer
	heap *runtime.Heap

	fileName string
	lines    []string // source lines for diagnostics

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool

	repl   bool
	errOut io.Writer

	fc    *funcCompiler  // innermost function being compiled
	class *classCompiler // innermost class being compiled, nil outside
}

// funcCompiler holds the per-function compile state. Instances chain
// through enclosing, mirroring lexical function nesting.
type funcCompiler struct {
	enclosing *funcCompiler
	function  *runtime.ObjFunction
	kind      FunctionKind

	locals     [maxLocals]Local
	localCount int
	upvalues   [maxUpvalues]Upvalue
	scopeDepth int

	loop *Loop // innermost enclosing loop, nil outside loops
}

// classCompiler tracks the class declaration being compiled
type classCompiler struct {
	enclosing *classCompiler
	hasSuper  bool
}

// NewCompiler prepares a compiler for one unit of source.
func NewCompiler(heap *runtime.Heap, source, fileName string) *Compiler {
	return &Compiler{
		lex:      lexer.New(source),
		heap:     heap,
		fileName: fileName,
		lines:    strings.Split(source, "\n"),
		errOut:   os.Stderr,
	}
}

// SetREPL makes top-level expression statements print their value.
func (c *Compiler) SetREPL(on bool) {
	c.repl = on
}

// SetErrOut redirects compile diagnostics.
func (c *Compiler) SetErrOut(w io.Writer) {
	c.errOut = w
}

// Compile runs the parser over the whole source and returns the top-level
// function, or ErrCompile if any diagnostic was produced.
func (c *Compiler) Compile() (*runtime.ObjFunction, error) {
	// The in-progress function chain is a GC root: constants allocated
	// mid-compile are only reachable through it.
	c.heap.AddRootMarker(c)
	defer c.heap.RemoveRootMarker(c)

	c.pushFuncCompiler(TYPE_SCRIPT, nil)

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}

	fn := c.endFuncCompiler()
	if c.hadError {
		return nil, ErrCompile
	}
	return fn, nil
}

// MarkRoots marks every function in the compile chain.
func (c *Compiler) MarkRoots(h *runtime.Heap) {
	for fc := c.fc; fc != nil; fc = fc.enclosing {
		h.MarkObject(fc.function)
	}
}

func (c *Compiler) pushFuncCompiler(kind FunctionKind, name *runtime.ObjString) {
	fc := &funcCompiler{
		enclosing: c.fc,
		kind:      kind,
		function:  c.heap.NewFunction(name),
	}

	// Slot 0 is reserved: it holds the receiver in methods and is
	// inaccessible in plain functions.
	slot0 := &fc.locals[0]
	fc.localCount = 1
	slot0.Depth = 0
	if kind == TYPE_METHOD || kind == TYPE_INIT {
		slot0.Name = "this"
	}

	c.fc = fc
}

func (c *Compiler) endFuncCompiler() *runtime.ObjFunction {
	c.emitReturn()
	fn := c.fc.function
	c.fc = c.fc.enclosing
	return fn
}

func (c *Compiler) currentChunk() *runtime.Chunk {
	return &c.fc.function.Chunk
}

// Token stream handling

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lex.NextToken()
		if c.current.Type != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) consume(t token.TokenType, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

func (c *Compiler) check(t token.TokenType) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t token.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

// Error reporting with panic-mode recovery

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

func (c *Compiler) error(message string) {
	c.errorAt(c.previous, message)
}

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	fmt.Fprintf(c.errOut, "%s:%d:%d => CompilerError: %s\n", c.fileName, tok.Line, tok.Column, message)
	if tok.Line-1 >= 0 && tok.Line-1 < len(c.lines) {
		line := c.lines[tok.Line-1]
		fmt.Fprintf(c.errOut, "%s\n", line)
		col := tok.Column - 1
		if col < 0 {
			col = 0
		}
		if col > len(line) {
			col = len(line)
		}
		fmt.Fprintf(c.errOut, "%s^\n", strings.Repeat(" ", col))
	}
}

// synchronize skips tokens until a statement boundary so independent
// errors can still surface.
func (c *Compiler) synchronize() {
	c.panicMode = false

	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}
		switch c.current.Type {
		case token.CLASS, token.FN, token.VAR, token.FOR, token.IF,
			token.WHILE, token.SWITCH, token.RETURN, token.BREAK, token.NEXT:
			return
		}
		c.advance()
	}
}
