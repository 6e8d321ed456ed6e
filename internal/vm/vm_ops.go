package vm

import (
	"math"
	"strings"

	"github.com/filipefalcaos/falcon/internal/runtime"
)

// addOp adds two numbers or concatenates two strings. Operands stay on
// the stack until the result exists so a mid-concat GC sees them.
func (vm *VM) addOp() error {
	b := vm.peek(0)
	a := vm.peek(1)

	switch {
	case a.IsString() && b.IsString():
		s := vm.heap.Intern(a.AsString().Chars + b.AsString().Chars)
		vm.sp -= 2
		vm.push(runtime.ObjVal(s))
	case a.IsNumber() && b.IsNumber():
		vm.sp -= 2
		vm.push(runtime.NumberVal(a.AsNumber() + b.AsNumber()))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

func (vm *VM) arithmeticOp(op Opcode) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()

	switch op {
	case OP_SUB:
		vm.push(runtime.NumberVal(a - b))
	case OP_MULT:
		vm.push(runtime.NumberVal(a * b))
	case OP_DIV:
		if b == 0 {
			return vm.runtimeError("Cannot perform a division by zero.")
		}
		vm.push(runtime.NumberVal(a / b))
	case OP_MOD:
		if b == 0 {
			return vm.runtimeError("Cannot perform a division by zero.")
		}
		vm.push(runtime.NumberVal(math.Mod(a, b)))
	case OP_POW:
		vm.push(runtime.NumberVal(math.Pow(a, b)))
	}
	return nil
}

// compareOp orders two numbers, or two strings lexicographically.
func (vm *VM) compareOp(op Opcode) error {
	b := vm.peek(0)
	a := vm.peek(1)

	var result bool
	switch {
	case a.IsString() && b.IsString():
		cmp := strings.Compare(a.AsString().Chars, b.AsString().Chars)
		if op == OP_GREATER {
			result = cmp > 0
		} else {
			result = cmp < 0
		}
	case a.IsNumber() && b.IsNumber():
		if op == OP_GREATER {
			result = a.AsNumber() > b.AsNumber()
		} else {
			result = a.AsNumber() < b.AsNumber()
		}
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}

	vm.sp -= 2
	vm.push(runtime.BoolVal(result))
	return nil
}

// resolveIndex normalizes a possibly negative index against length,
// reporting whether it lands in bounds. Fractional indices never
// resolve; truncating one would silently read the wrong element.
func resolveIndex(index float64, length int) (int, bool) {
	i := int(index)
	if float64(i) != index {
		return 0, false
	}
	if i < 0 {
		i += length
	}
	return i, i >= 0 && i < length
}

// getIndex handles subscript reads: [target, index] -> [element].
func (vm *VM) getIndex() error {
	index := vm.peek(0)
	target := vm.peek(1)

	if target.IsObj() {
		switch obj := target.Obj.(type) {
		case *runtime.ObjList:
			if !index.IsNumber() {
				return vm.runtimeError("List index must be a number.")
			}
			i, ok := resolveIndex(index.AsNumber(), obj.Elements.Count())
			if !ok {
				return vm.runtimeError("List index out of bounds.")
			}
			vm.sp -= 2
			vm.push(obj.Elements.At(i))
			return nil

		case *runtime.ObjMap:
			if !index.IsString() {
				return vm.runtimeError("Map key must be a string.")
			}
			value, ok := obj.Pairs.Get(index.AsString())
			if !ok {
				value = runtime.NullVal()
			}
			vm.sp -= 2
			vm.push(value)
			return nil

		case *runtime.ObjString:
			if !index.IsNumber() {
				return vm.runtimeError("String index must be a number.")
			}
			i, ok := resolveIndex(index.AsNumber(), len(obj.Chars))
			if !ok {
				return vm.runtimeError("String index out of bounds.")
			}
			s := vm.heap.Intern(obj.Chars[i : i+1])
			vm.sp -= 2
			vm.push(runtime.ObjVal(s))
			return nil
		}
	}
	return vm.runtimeError("Cannot subscript value of type '%s'.", target.TypeName())
}

// setIndex handles subscript writes: [target, index, value] -> [value].
// Strings are immutable.
func (vm *VM) setIndex() error {
	value := vm.peek(0)
	index := vm.peek(1)
	target := vm.peek(2)

	if target.IsObj() {
		switch obj := target.Obj.(type) {
		case *runtime.ObjList:
			if !index.IsNumber() {
				return vm.runtimeError("List index must be a number.")
			}
			i, ok := resolveIndex(index.AsNumber(), obj.Elements.Count())
			if !ok {
				return vm.runtimeError("List index out of bounds.")
			}
			obj.Elements.Set(i, value)
			vm.sp -= 3
			vm.push(value)
			return nil

		case *runtime.ObjMap:
			if !index.IsString() {
				return vm.runtimeError("Map key must be a string.")
			}
			obj.Pairs.Set(index.AsString(), value)
			vm.sp -= 3
			vm.push(value)
			return nil

		case *runtime.ObjString:
			return vm.runtimeError("Strings are immutable.")
		}
	}
	return vm.runtimeError("Cannot subscript value of type '%s'.", target.TypeName())
}
