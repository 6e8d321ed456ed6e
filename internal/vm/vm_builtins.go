package vm

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/filipefalcaos/falcon/internal/runtime"
)

var processStart = time.Now()

// defineNatives installs the native functions as globals. GC stays paused
// so the interned names survive until they are table keys.
func (vm *VM) defineNatives() {
	vm.heap.PauseGC()
	defer vm.heap.ResumeGC()

	natives := []struct {
		name string
		fn   runtime.NativeFn
	}{
		{"print", vm.nativePrint},
		{"type", vm.nativeType},
		{"bool", vm.nativeBool},
		{"num", vm.nativeNum},
		{"str", vm.nativeStr},
		{"len", vm.nativeLen},
		{"hasField", vm.nativeHasField},
		{"getField", vm.nativeGetField},
		{"setField", vm.nativeSetField},
		{"delField", vm.nativeDelField},
		{"exit", vm.nativeExit},
		{"clock", vm.nativeClock},
		{"time", vm.nativeTime},
		{"abs", vm.nativeAbs},
		{"sqrt", vm.nativeSqrt},
		{"pow", vm.nativePow},
		{"input", vm.nativeInput},
	}

	for _, n := range natives {
		name := vm.heap.Intern(n.name)
		vm.globals.Set(name, runtime.ObjVal(vm.heap.NewNative(n.name, n.fn)))
	}
}

// Argument validation. Failed checks report the error and make the
// native return the Err sentinel.

func (vm *VM) checkArity(name string, args []runtime.Value, want int) bool {
	if len(args) != want {
		vm.runtimeError("'%s' expected %d arguments but got %d.", name, want, len(args))
		return false
	}
	return true
}

func (vm *VM) checkNumber(name string, v runtime.Value) bool {
	if !v.IsNumber() {
		vm.runtimeError("'%s' expected a number argument.", name)
		return false
	}
	return true
}

func (vm *VM) checkString(name string, v runtime.Value) bool {
	if !v.IsString() {
		vm.runtimeError("'%s' expected a string argument.", name)
		return false
	}
	return true
}

func (vm *VM) checkInstance(name string, v runtime.Value) (*runtime.ObjInstance, bool) {
	if !v.IsObjType(runtime.InstanceType) {
		vm.runtimeError("'%s' expected an instance argument.", name)
		return nil, false
	}
	return v.Obj.(*runtime.ObjInstance), true
}

// Natives

func (vm *VM) nativePrint(args []runtime.Value) runtime.Value {
	if !vm.checkArity("print", args, 1) {
		return runtime.ErrVal()
	}
	fmt.Fprintln(vm.out, args[0].String())
	return runtime.NullVal()
}

func (vm *VM) nativeType(args []runtime.Value) runtime.Value {
	if !vm.checkArity("type", args, 1) {
		return runtime.ErrVal()
	}
	return runtime.ObjVal(vm.heap.Intern(args[0].TypeName()))
}

func (vm *VM) nativeBool(args []runtime.Value) runtime.Value {
	if !vm.checkArity("bool", args, 1) {
		return runtime.ErrVal()
	}
	return runtime.BoolVal(!args[0].IsFalsey())
}

func (vm *VM) nativeNum(args []runtime.Value) runtime.Value {
	if !vm.checkArity("num", args, 1) {
		return runtime.ErrVal()
	}
	v := args[0]
	switch {
	case v.IsNumber():
		return v
	case v.IsBool():
		if v.AsBool() {
			return runtime.NumberVal(1)
		}
		return runtime.NumberVal(0)
	case v.IsString():
		n, err := strconv.ParseFloat(strings.TrimSpace(v.AsString().Chars), 64)
		if err != nil {
			vm.runtimeError("Could not convert string to number.")
			return runtime.ErrVal()
		}
		return runtime.NumberVal(n)
	default:
		vm.runtimeError("Cannot convert value of type '%s' to number.", v.TypeName())
		return runtime.ErrVal()
	}
}

func (vm *VM) nativeStr(args []runtime.Value) runtime.Value {
	if !vm.checkArity("str", args, 1) {
		return runtime.ErrVal()
	}
	return runtime.ObjVal(vm.heap.Intern(args[0].String()))
}

func (vm *VM) nativeLen(args []runtime.Value) runtime.Value {
	if !vm.checkArity("len", args, 1) {
		return runtime.ErrVal()
	}
	if args[0].IsObj() {
		switch obj := args[0].Obj.(type) {
		case *runtime.ObjString:
			return runtime.NumberVal(float64(len(obj.Chars)))
		case *runtime.ObjList:
			return runtime.NumberVal(float64(obj.Elements.Count()))
		case *runtime.ObjMap:
			return runtime.NumberVal(float64(obj.Pairs.Len()))
		}
	}
	vm.runtimeError("Value of type '%s' has no length.", args[0].TypeName())
	return runtime.ErrVal()
}

func (vm *VM) nativeHasField(args []runtime.Value) runtime.Value {
	if !vm.checkArity("hasField", args, 2) {
		return runtime.ErrVal()
	}
	instance, ok := vm.checkInstance("hasField", args[0])
	if !ok || !vm.checkString("hasField", args[1]) {
		return runtime.ErrVal()
	}
	_, found := instance.Fields.Get(args[1].AsString())
	return runtime.BoolVal(found)
}

func (vm *VM) nativeGetField(args []runtime.Value) runtime.Value {
	if !vm.checkArity("getField", args, 2) {
		return runtime.ErrVal()
	}
	instance, ok := vm.checkInstance("getField", args[0])
	if !ok || !vm.checkString("getField", args[1]) {
		return runtime.ErrVal()
	}
	value, found := instance.Fields.Get(args[1].AsString())
	if !found {
		return runtime.NullVal()
	}
	return value
}

func (vm *VM) nativeSetField(args []runtime.Value) runtime.Value {
	if !vm.checkArity("setField", args, 3) {
		return runtime.ErrVal()
	}
	instance, ok := vm.checkInstance("setField", args[0])
	if !ok || !vm.checkString("setField", args[1]) {
		return runtime.ErrVal()
	}
	instance.Fields.Set(args[1].AsString(), args[2])
	return args[2]
}

func (vm *VM) nativeDelField(args []runtime.Value) runtime.Value {
	if !vm.checkArity("delField", args, 2) {
		return runtime.ErrVal()
	}
	instance, ok := vm.checkInstance("delField", args[0])
	if !ok || !vm.checkString("delField", args[1]) {
		return runtime.ErrVal()
	}
	return runtime.BoolVal(instance.Fields.Delete(args[1].AsString()))
}

func (vm *VM) nativeExit(args []runtime.Value) runtime.Value {
	if !vm.checkArity("exit", args, 1) || !vm.checkNumber("exit", args[0]) {
		return runtime.ErrVal()
	}
	os.Exit(int(args[0].AsNumber()))
	return runtime.NullVal()
}

// nativeClock returns seconds elapsed since the process started.
func (vm *VM) nativeClock(args []runtime.Value) runtime.Value {
	if !vm.checkArity("clock", args, 0) {
		return runtime.ErrVal()
	}
	return runtime.NumberVal(time.Since(processStart).Seconds())
}

// nativeTime returns seconds since the Unix epoch.
func (vm *VM) nativeTime(args []runtime.Value) runtime.Value {
	if !vm.checkArity("time", args, 0) {
		return runtime.ErrVal()
	}
	return runtime.NumberVal(float64(time.Now().Unix()))
}

func (vm *VM) nativeAbs(args []runtime.Value) runtime.Value {
	if !vm.checkArity("abs", args, 1) || !vm.checkNumber("abs", args[0]) {
		return runtime.ErrVal()
	}
	return runtime.NumberVal(math.Abs(args[0].AsNumber()))
}

func (vm *VM) nativeSqrt(args []runtime.Value) runtime.Value {
	if !vm.checkArity("sqrt", args, 1) || !vm.checkNumber("sqrt", args[0]) {
		return runtime.ErrVal()
	}
	return runtime.NumberVal(math.Sqrt(args[0].AsNumber()))
}

func (vm *VM) nativePow(args []runtime.Value) runtime.Value {
	if !vm.checkArity("pow", args, 2) ||
		!vm.checkNumber("pow", args[0]) || !vm.checkNumber("pow", args[1]) {
		return runtime.ErrVal()
	}
	return runtime.NumberVal(math.Pow(args[0].AsNumber(), args[1].AsNumber()))
}

// nativeInput prints an optional prompt and reads one line from stdin.
func (vm *VM) nativeInput(args []runtime.Value) runtime.Value {
	if len(args) > 1 {
		vm.runtimeError("'input' expected at most 1 argument but got %d.", len(args))
		return runtime.ErrVal()
	}
	if len(args) == 1 {
		if !vm.checkString("input", args[0]) {
			return runtime.ErrVal()
		}
		fmt.Fprint(vm.out, args[0].AsString().Chars)
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return runtime.NullVal()
	}
	return runtime.ObjVal(vm.heap.Intern(strings.TrimRight(line, "\r\n")))
}
