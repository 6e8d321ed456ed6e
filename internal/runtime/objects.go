package runtime

import "strings"

// ObjType identifies the kind of a heap object
type ObjType string

const (
	StringType      ObjType = "STRING"
	FunctionType    ObjType = "FUNCTION"
	UpvalueType     ObjType = "UPVALUE"
	ClosureType     ObjType = "CLOSURE"
	ClassType       ObjType = "CLASS"
	InstanceType    ObjType = "INSTANCE"
	BoundMethodType ObjType = "BOUND_METHOD"
	ListType        ObjType = "LIST"
	MapType         ObjType = "MAP"
	NativeType      ObjType = "NATIVE"
)

// GCHeader is embedded in every heap object: the mark flag and the
// intrusive next-object link the sweep phase walks.
type GCHeader struct {
	marked bool
	next   Object
	size   int // bytes charged to the allocation counter
}

func (h *GCHeader) header() *GCHeader { return h }

// Object is implemented by every heap-allocated runtime object. The heap
// owns all objects; a Value holding one is a non-owning reference.
type Object interface {
	Type() ObjType
	String() string
	header() *GCHeader
}

// NativeFn is a native function exposed to user code. Returning the Err
// sentinel signals that the native already reported a runtime error.
type NativeFn func(args []Value) Value

// ObjString is an interned immutable string
type ObjString struct {
	GCHeader
	Chars string
	Hash  uint32
}

func (s *ObjString) Type() ObjType  { return StringType }
func (s *ObjString) String() string { return s.Chars }

// ObjFunction is a compiled function: its bytecode chunk plus metadata
type ObjFunction struct {
	GCHeader
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *ObjString // nil for the top-level script
}

func (f *ObjFunction) Type() ObjType { return FunctionType }
func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "script"
	}
	return "<fn " + f.Name.Chars + ">"
}

// ObjUpvalue captures a variable from an enclosing function. While open it
// refers to a VM stack slot; closing moves the value into Closed.
type ObjUpvalue struct {
	GCHeader
	Slot     int // stack slot index while open, -1 once closed
	Closed   Value
	NextOpen *ObjUpvalue // open-upvalue list, sorted by descending slot
}

func (u *ObjUpvalue) Type() ObjType  { return UpvalueType }
func (u *ObjUpvalue) String() string { return "upvalue" }

// IsOpen reports whether the upvalue still points into the stack.
func (u *ObjUpvalue) IsOpen() bool { return u.Slot >= 0 }

// ObjClosure pairs a function with its captured upvalues
type ObjClosure struct {
	GCHeader
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Type() ObjType  { return ClosureType }
func (c *ObjClosure) String() string { return c.Function.String() }

// ObjClass is a class: a name and a map of method closures
type ObjClass struct {
	GCHeader
	Name    *ObjString
	Methods Table
}

func (c *ObjClass) Type() ObjType  { return ClassType }
func (c *ObjClass) String() string { return "<class " + c.Name.Chars + ">" }

// ObjInstance is an instance of a class with its own field map
type ObjInstance struct {
	GCHeader
	Class  *ObjClass
	Fields Table
}

func (i *ObjInstance) Type() ObjType  { return InstanceType }
func (i *ObjInstance) String() string { return "<instance of " + i.Class.Name.Chars + ">" }

// ObjBoundMethod pairs a receiver with a method closure
type ObjBoundMethod struct {
	GCHeader
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) Type() ObjType { return BoundMethodType }
func (b *ObjBoundMethod) String() string {
	name := "method"
	if b.Method.Function.Name != nil {
		name = b.Method.Function.Name.Chars
	}
	return "<method " + name + ">"
}

// ObjList is an ordered, growable sequence of values
type ObjList struct {
	GCHeader
	Elements ValueArray
}

func (l *ObjList) Type() ObjType { return ListType }
func (l *ObjList) String() string {
	if l.Elements.Count() == 0 {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteString("[ ")
	for i, v := range l.Elements.Values() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(quoteIfString(v))
	}
	sb.WriteString(" ]")
	return sb.String()
}

// ObjMap is a hash map with interned string keys
type ObjMap struct {
	GCHeader
	Pairs Table
}

func (m *ObjMap) Type() ObjType { return MapType }
func (m *ObjMap) String() string {
	if m.Pairs.Len() == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{ ")
	first := true
	m.Pairs.Range(func(key *ObjString, value Value) {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(quote(key.Chars))
		sb.WriteString(": ")
		sb.WriteString(quoteIfString(value))
	})
	sb.WriteString(" }")
	return sb.String()
}

// ObjNative wraps a host function exposed as a global
type ObjNative struct {
	GCHeader
	Name string
	Fn   NativeFn
}

func (n *ObjNative) Type() ObjType  { return NativeType }
func (n *ObjNative) String() string { return "<native fn " + n.Name + ">" }

// quoteIfString renders container elements: strings print quoted, every
// other value prints as usual.
func quoteIfString(v Value) string {
	if v.IsString() {
		return quote(v.AsString().Chars)
	}
	return v.String()
}

func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		case '\r':
			sb.WriteString("\\r")
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
