package vm

import (
	"fmt"

	"github.com/filipefalcaos/falcon/internal/runtime"
)

// run is the dispatch loop: fetch an opcode, advance, execute. It returns
// nil when the top-level script returns, or ErrRuntime after a reported
// error.
func (vm *VM) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if r == errStackOverflow {
				err = vm.runtimeError("Stack overflow.")
				return
			}
			panic(r)
		}
	}()

	vm.frame = &vm.frames[vm.frameCount-1]

	for {
		switch op := Opcode(vm.readByte()); op {
		case OP_CONST:
			vm.push(vm.readConstant())
		case OP_NULL:
			vm.push(runtime.NullVal())
		case OP_TRUE:
			vm.push(runtime.BoolVal(true))
		case OP_FALSE:
			vm.push(runtime.BoolVal(false))

		case OP_POP:
			vm.pop()
		case OP_POP_EXPR:
			if v := vm.pop(); !v.IsNull() {
				fmt.Fprintln(vm.out, v.String())
			}
		case OP_DUP:
			vm.push(vm.peek(0))

		case OP_DEF_LIST:
			count := vm.readShort()
			list := vm.heap.NewList(vm.stack[vm.sp-count : vm.sp])
			vm.sp -= count
			vm.push(runtime.ObjVal(list))

		case OP_DEF_MAP:
			count := vm.readShort()
			m := vm.heap.NewMap()
			base := vm.sp - 2*count
			for i := 0; i < count; i++ {
				key := vm.stack[base+2*i]
				if !key.IsString() {
					return vm.runtimeError("Map keys must be strings.")
				}
				m.Pairs.Set(key.AsString(), vm.stack[base+2*i+1])
			}
			vm.sp = base
			vm.push(runtime.ObjVal(m))

		case OP_AND:
			offset := vm.readShort()
			if vm.peek(0).IsFalsey() {
				vm.frame.ip += offset
			} else {
				vm.pop()
			}
		case OP_OR:
			offset := vm.readShort()
			if vm.peek(0).IsFalsey() {
				vm.pop()
			} else {
				vm.frame.ip += offset
			}

		case OP_EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(runtime.BoolVal(a.Equals(b)))
		case OP_GREATER:
			if err := vm.compareOp(op); err != nil {
				return err
			}
		case OP_LESS:
			if err := vm.compareOp(op); err != nil {
				return err
			}

		case OP_ADD:
			if err := vm.addOp(); err != nil {
				return err
			}
		case OP_SUB, OP_MULT, OP_DIV, OP_MOD, OP_POW:
			if err := vm.arithmeticOp(op); err != nil {
				return err
			}
		case OP_NEG:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(runtime.NumberVal(-vm.pop().AsNumber()))
		case OP_NOT:
			vm.push(runtime.BoolVal(vm.pop().IsFalsey()))

		case OP_DEF_GLOBAL:
			name := vm.readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case OP_GET_GLOBAL:
			name := vm.readString()
			value, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(value)
		case OP_SET_GLOBAL:
			name := vm.readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case OP_GET_LOCAL:
			slot := int(vm.readByte())
			vm.push(vm.stack[vm.frame.base+slot])
		case OP_SET_LOCAL:
			slot := int(vm.readByte())
			vm.stack[vm.frame.base+slot] = vm.peek(0)

		case OP_GET_UPVALUE:
			uv := vm.frame.closure.Upvalues[vm.readByte()]
			if uv.IsOpen() {
				vm.push(vm.stack[uv.Slot])
			} else {
				vm.push(uv.Closed)
			}
		case OP_SET_UPVALUE:
			uv := vm.frame.closure.Upvalues[vm.readByte()]
			if uv.IsOpen() {
				vm.stack[uv.Slot] = vm.peek(0)
			} else {
				uv.Closed = vm.peek(0)
			}

		case OP_GET_INDEX:
			if err := vm.getIndex(); err != nil {
				return err
			}
		case OP_SET_INDEX:
			if err := vm.setIndex(); err != nil {
				return err
			}

		case OP_JUMP:
			vm.frame.ip += vm.readShort()
		case OP_JUMP_IF_FALSE:
			offset := vm.readShort()
			if vm.peek(0).IsFalsey() {
				vm.frame.ip += offset
			}
		case OP_LOOP:
			vm.frame.ip -= vm.readShort()

		case OP_CALL:
			argCount := int(vm.readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}

		case OP_CLOSURE:
			fn := vm.frame.closure.Function.Chunk.Constants.
				At(int(vm.readByte())).Obj.(*runtime.ObjFunction)
			closure := vm.heap.NewClosure(fn)
			vm.push(runtime.ObjVal(closure))
			for i := range closure.Upvalues {
				isLocal := vm.readByte()
				index := int(vm.readByte())
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(vm.frame.base + index)
				} else {
					closure.Upvalues[i] = vm.frame.closure.Upvalues[index]
				}
			}

		case OP_CLOSE_UPVALUE:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case OP_RETURN:
			result := vm.pop()
			vm.closeUpvalues(vm.frame.base)
			base := vm.frame.base
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop() // script closure
				return nil
			}
			vm.sp = base
			vm.frame = &vm.frames[vm.frameCount-1]
			vm.push(result)

		case OP_DEF_CLASS:
			vm.push(runtime.ObjVal(vm.heap.NewClass(vm.readString())))

		case OP_INHERIT:
			super := vm.peek(1)
			if !super.IsObjType(runtime.ClassType) {
				return vm.runtimeError("Superclass must be a class.")
			}
			sub := vm.peek(0).Obj.(*runtime.ObjClass)
			sub.Methods.AddAll(&super.Obj.(*runtime.ObjClass).Methods)
			vm.pop()

		case OP_DEF_METHOD:
			name := vm.readString()
			method := vm.peek(0)
			class := vm.peek(1).Obj.(*runtime.ObjClass)
			class.Methods.Set(name, method)
			vm.pop()

		case OP_GET_PROP:
			if !vm.peek(0).IsObjType(runtime.InstanceType) {
				return vm.runtimeError("Only instances have properties.")
			}
			instance := vm.peek(0).Obj.(*runtime.ObjInstance)
			name := vm.readString()
			if value, ok := instance.Fields.Get(name); ok {
				vm.pop()
				vm.push(value)
			} else if err := vm.bindMethod(instance.Class, name); err != nil {
				return err
			}

		case OP_SET_PROP:
			if !vm.peek(1).IsObjType(runtime.InstanceType) {
				return vm.runtimeError("Only instances have fields.")
			}
			instance := vm.peek(1).Obj.(*runtime.ObjInstance)
			name := vm.readString()
			instance.Fields.Set(name, vm.peek(0))
			value := vm.pop()
			vm.pop()
			vm.push(value)

		case OP_INV_PROP:
			name := vm.readString()
			argCount := int(vm.readByte())
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}

		case OP_SUPER:
			name := vm.readString()
			super := vm.pop().Obj.(*runtime.ObjClass)
			if err := vm.bindMethod(super, name); err != nil {
				return err
			}

		case OP_INV_SUPER:
			name := vm.readString()
			argCount := int(vm.readByte())
			super := vm.pop().Obj.(*runtime.ObjClass)
			if err := vm.invokeFromClass(super, name, argCount); err != nil {
				return err
			}

		default:
			// OP_TEMP included: break placeholders never survive compilation
			return vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}
