package vm

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/filipefalcaos/falcon/internal/runtime"
)

// ErrRuntime is returned when execution fails; the diagnostic and stack
// trace were already written to the VM's error writer.
var ErrRuntime = errors.New("runtime error")

var errStackOverflow = errors.New("stack overflow")

// Fixed execution limits
const (
	FramesMax = 1000
	StackMax  = FramesMax * 256

	// Stack traces longer than this print half from each end
	stackTraceMax = 20
)

// CallFrame is one ongoing function call. base is the stack slot holding
// the callee (or receiver), with arguments and locals above it.
type CallFrame struct {
	closure *runtime.ObjClosure
	ip      int
	base    int
}

// VM executes compiled bytecode over a single shared value stack.
type VM struct {
	heap *runtime.Heap

	stack []runtime.Value
	sp    int // next free slot

	frames     []CallFrame
	frameCount int
	frame      *CallFrame // current frame

	globals      runtime.Table
	openUpvalues *runtime.ObjUpvalue // sorted by descending slot

	// "init" is interned once so constructor lookup never allocates
	initString *runtime.ObjString

	fileName string
	repl     bool
	out      io.Writer
	errOut   io.Writer
}

// New creates a VM bound to heap and registers the native functions. The
// VM registers itself as a GC root.
func New(heap *runtime.Heap) *VM {
	vm := &VM{
		heap:   heap,
		stack:  make([]runtime.Value, StackMax),
		frames: make([]CallFrame, FramesMax),
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	vm.initString = heap.Intern("init")
	heap.AddRootMarker(vm)
	vm.defineNatives()
	return vm
}

// Free unregisters the VM from the heap's root set.
func (vm *VM) Free() {
	vm.heap.RemoveRootMarker(vm)
}

// SetREPL makes top-level expression statements print their value.
func (vm *VM) SetREPL(on bool) {
	vm.repl = on
}

// SetOutput redirects program output (print and REPL echo).
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetErrOut redirects diagnostics.
func (vm *VM) SetErrOut(w io.Writer) {
	vm.errOut = w
}

// MarkRoots marks the value stack, call frames, open upvalues, globals
// and the interned init string.
func (vm *VM) MarkRoots(h *runtime.Heap) {
	for i := 0; i < vm.sp; i++ {
		h.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		h.MarkObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		h.MarkObject(uv)
	}
	vm.globals.Mark(h)
	h.MarkObject(vm.initString)
}

// Interpret compiles source and runs the resulting top-level function.
// It returns ErrCompile or ErrRuntime; diagnostics go to the error
// writer.
func (vm *VM) Interpret(source, fileName string) error {
	vm.fileName = fileName

	compiler := NewCompiler(vm.heap, source, fileName)
	compiler.SetREPL(vm.repl)
	compiler.SetErrOut(vm.errOut)
	fn, err := compiler.Compile()
	if err != nil {
		return err
	}

	// The function must be stack-visible while the closure allocates.
	vm.push(runtime.ObjVal(fn))
	closure := vm.heap.NewClosure(fn)
	vm.pop()
	vm.push(runtime.ObjVal(closure))
	if err := vm.call(closure, 0); err != nil {
		return err
	}

	return vm.run()
}

// Stack primitives. Overflow panics with errStackOverflow; run recovers
// and reports it as a runtime error.

func (vm *VM) push(v runtime.Value) {
	if vm.sp >= StackMax {
		panic(errStackOverflow)
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() runtime.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) runtime.Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCount = 0
	vm.frame = nil
	vm.openUpvalues = nil
}

// Bytecode read helpers

func (vm *VM) readByte() byte {
	b := vm.frame.closure.Function.Chunk.Code[vm.frame.ip]
	vm.frame.ip++
	return b
}

// readShort decodes a 2-byte operand, LSB first.
func (vm *VM) readShort() int {
	low := vm.readByte()
	high := vm.readByte()
	return int(low) | int(high)<<8
}

func (vm *VM) readConstant() runtime.Value {
	return vm.frame.closure.Function.Chunk.Constants.At(vm.readShort())
}

// readString reads a 1-byte constant index holding an interned name.
func (vm *VM) readString() *runtime.ObjString {
	idx := int(vm.readByte())
	return vm.frame.closure.Function.Chunk.Constants.At(idx).Obj.(*runtime.ObjString)
}

// Error reporting

// runtimeError prints the message and a stack trace, resets the stack
// and returns ErrRuntime for the run loop to propagate.
func (vm *VM) runtimeError(format string, args ...interface{}) error {
	fmt.Fprintf(vm.errOut, "RuntimeError: "+format+"\n", args...)
	vm.printStackTrace()
	vm.resetStack()
	return ErrRuntime
}

func (vm *VM) printStackTrace() {
	fmt.Fprintln(vm.errOut, "Stack trace (last call first):")

	total := vm.frameCount
	if total <= stackTraceMax {
		for i := total - 1; i >= 0; i-- {
			vm.printTraceFrame(i)
		}
		return
	}

	half := stackTraceMax / 2
	for i := total - 1; i >= total-half; i-- {
		vm.printTraceFrame(i)
	}
	fmt.Fprintf(vm.errOut, "    ... (%d more)\n", total-stackTraceMax)
	for i := half - 1; i >= 0; i-- {
		vm.printTraceFrame(i)
	}
}

func (vm *VM) printTraceFrame(i int) {
	frame := &vm.frames[i]
	fn := frame.closure.Function
	line := fn.Chunk.Line(frame.ip - 1)
	if fn.Name == nil {
		fmt.Fprintf(vm.errOut, "    [Line %d] in script\n", line)
	} else {
		fmt.Fprintf(vm.errOut, "    [Line %d] in %s()\n", line, fn.Name.Chars)
	}
}
