package vm

import "github.com/filipefalcaos/falcon/internal/runtime"

// callValue dispatches a call on callee with argCount arguments already
// stacked above it.
func (vm *VM) callValue(callee runtime.Value, argCount int) error {
	if callee.IsObj() {
		switch obj := callee.Obj.(type) {
		case *runtime.ObjClosure:
			return vm.call(obj, argCount)

		case *runtime.ObjClass:
			// The instance replaces the class in the callee slot so init
			// sees it as "this".
			instance := vm.heap.NewInstance(obj)
			vm.stack[vm.sp-argCount-1] = runtime.ObjVal(instance)
			if init, ok := obj.Methods.Get(vm.initString); ok {
				return vm.call(init.Obj.(*runtime.ObjClosure), argCount)
			}
			if argCount != 0 {
				return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
			}
			return nil

		case *runtime.ObjBoundMethod:
			vm.stack[vm.sp-argCount-1] = obj.Receiver
			return vm.call(obj.Method, argCount)

		case *runtime.ObjNative:
			result := obj.Fn(vm.stack[vm.sp-argCount : vm.sp])
			if result.IsErr() {
				// The native already reported and reset
				return ErrRuntime
			}
			vm.sp -= argCount + 1
			vm.push(result)
			return nil
		}
	}
	return vm.runtimeError("Cannot call value of type '%s'.", callee.TypeName())
}

// call pushes a frame for a closure after checking arity and frame depth.
func (vm *VM) call(closure *runtime.ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.",
			closure.Function.Arity, argCount)
	}
	if vm.frameCount == FramesMax {
		return vm.runtimeError("Stack overflow.")
	}

	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.base = vm.sp - argCount - 1
	vm.frame = frame
	return nil
}

// invoke calls receiver.name(args) without allocating a bound method.
// Fields shadow methods.
func (vm *VM) invoke(name *runtime.ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	if !receiver.IsObjType(runtime.InstanceType) {
		return vm.runtimeError("Only instances have methods.")
	}
	instance := receiver.Obj.(*runtime.ObjInstance)

	if value, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.sp-argCount-1] = value
		return vm.callValue(value, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *runtime.ObjClass, name *runtime.ObjString, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method.Obj.(*runtime.ObjClosure), argCount)
}

// bindMethod replaces the instance on top of the stack with a bound
// method, or errors if the class has no such method.
func (vm *VM) bindMethod(class *runtime.ObjClass, name *runtime.ObjString) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}

	bound := vm.heap.NewBoundMethod(vm.peek(0), method.Obj.(*runtime.ObjClosure))
	vm.pop()
	vm.push(runtime.ObjVal(bound))
	return nil
}

// captureUpvalue returns the open upvalue for a stack slot, creating and
// linking one in descending-slot order if none exists.
func (vm *VM) captureUpvalue(slot int) *runtime.ObjUpvalue {
	var prev *runtime.ObjUpvalue
	uv := vm.openUpvalues
	for uv != nil && uv.Slot > slot {
		prev = uv
		uv = uv.NextOpen
	}
	if uv != nil && uv.Slot == slot {
		return uv
	}

	created := vm.heap.NewUpvalue(slot)
	created.NextOpen = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues moves every open upvalue at or above lastSlot off the
// stack into its own storage.
func (vm *VM) closeUpvalues(lastSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot >= lastSlot {
		uv := vm.openUpvalues
		uv.Closed = vm.stack[uv.Slot]
		uv.Slot = -1
		vm.openUpvalues = uv.NextOpen
		uv.NextOpen = nil
	}
}
