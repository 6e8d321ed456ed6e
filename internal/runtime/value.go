// Package runtime implements the Falcon value model, the primitive
// containers built on it, and the garbage-collected heap that owns every
// dynamically allocated object.
package runtime

import (
	"fmt"
	"math"
)

// ValueType identifies the variant stored in a Value
type ValueType uint8

const (
	ValNull ValueType = iota
	ValBool
	ValNumber
	ValObj
	ValErr // sentinel returned by natives after reporting a runtime error
)

// Value is a stack-allocated tagged union. It avoids heap allocation for
// the primitive variants (Null, Bool, Number).
type Value struct {
	Type ValueType
	Data uint64 // float64 bits for numbers, 0/1 for booleans
	Obj  Object // heap objects; non-owning reference
}

// Constructors

func NullVal() Value {
	return Value{Type: ValNull}
}

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Type: ValBool, Data: data}
}

func NumberVal(v float64) Value {
	return Value{Type: ValNumber, Data: math.Float64bits(v)}
}

func ObjVal(o Object) Value {
	return Value{Type: ValObj, Obj: o}
}

func ErrVal() Value {
	return Value{Type: ValErr}
}

// Accessors

func (v Value) AsBool() bool {
	return v.Data == 1
}

func (v Value) AsNumber() float64 {
	return math.Float64frombits(v.Data)
}

// Type checking helpers

func (v Value) IsNull() bool   { return v.Type == ValNull }
func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsObj() bool    { return v.Type == ValObj }
func (v Value) IsErr() bool    { return v.Type == ValErr }

// IsObjType reports whether v holds a heap object of the given kind.
func (v Value) IsObjType(t ObjType) bool {
	return v.Type == ValObj && v.Obj.Type() == t
}

func (v Value) IsString() bool { return v.IsObjType(StringType) }

// AsString returns the string object held by v. Callers must check
// IsString first.
func (v Value) AsString() *ObjString {
	return v.Obj.(*ObjString)
}

// IsFalsey reports language falsiness: null, false, 0, the empty string,
// the empty list and the empty map are falsey; everything else is truthy.
func (v Value) IsFalsey() bool {
	switch v.Type {
	case ValNull:
		return true
	case ValBool:
		return v.Data == 0
	case ValNumber:
		return v.AsNumber() == 0
	case ValObj:
		switch o := v.Obj.(type) {
		case *ObjString:
			return len(o.Chars) == 0
		case *ObjList:
			return o.Elements.Count() == 0
		case *ObjMap:
			return o.Pairs.Len() == 0
		}
		return false
	default:
		return false
	}
}

// Equals implements value equality: same variant plus primitive equality,
// object identity for references. Interned strings make string equality
// collapse to identity.
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValNull:
		return true
	case ValBool:
		return v.Data == other.Data
	case ValNumber:
		return v.AsNumber() == other.AsNumber()
	case ValObj:
		return v.Obj == other.Obj
	default:
		return false
	}
}

// String renders a value the way "print" and the REPL display it. Numbers
// use the canonical %.14g form.
func (v Value) String() string {
	switch v.Type {
	case ValNull:
		return "null"
	case ValBool:
		if v.Data == 1 {
			return "true"
		}
		return "false"
	case ValNumber:
		return fmt.Sprintf("%.14g", v.AsNumber())
	case ValObj:
		return v.Obj.String()
	default:
		return "<err>"
	}
}

// TypeName returns the language-level type name used by the "type" native.
func (v Value) TypeName() string {
	switch v.Type {
	case ValNull:
		return "null"
	case ValBool:
		return "bool"
	case ValNumber:
		return "number"
	case ValObj:
		switch v.Obj.(type) {
		case *ObjString:
			return "string"
		case *ObjFunction, *ObjClosure, *ObjNative, *ObjBoundMethod:
			return "function"
		case *ObjClass:
			return "class"
		case *ObjInstance:
			return "instance"
		case *ObjList:
			return "list"
		case *ObjMap:
			return "map"
		case *ObjUpvalue:
			return "upvalue"
		}
		return "object"
	default:
		return "err"
	}
}

// ValueArray is an append-only sequence of values with geometric growth.
type ValueArray struct {
	values []Value
}

const valueArrayInitialCap = 8

// Write appends a value.
func (a *ValueArray) Write(v Value) {
	if a.values == nil {
		a.values = make([]Value, 0, valueArrayInitialCap)
	}
	a.values = append(a.values, v)
}

// Count returns the number of stored values.
func (a *ValueArray) Count() int {
	return len(a.values)
}

// At returns the value at index i.
func (a *ValueArray) At(i int) Value {
	return a.values[i]
}

// Set replaces the value at index i.
func (a *ValueArray) Set(i int, v Value) {
	a.values[i] = v
}

// Values exposes the backing slice for iteration.
func (a *ValueArray) Values() []Value {
	return a.values
}
