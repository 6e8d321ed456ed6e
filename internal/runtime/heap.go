package runtime

import "unsafe"

// RootMarker is implemented by components that hold GC roots (the VM and
// the currently-compiling function chain).
type RootMarker interface {
	MarkRoots(h *Heap)
}

// Initial collection threshold and growth factor after each collection
const (
	defaultNextGC  = 1024 * 1024
	heapGrowFactor = 2
)

// Heap owns every dynamically allocated runtime object. Objects are linked
// through their GC headers into an intrusive list, the canonical registry
// the sweep phase walks. The intern table lives here so string interning
// works during both compilation and execution; it is weak and cleaned
// before every sweep.
type Heap struct {
	objects Object // head of the intrusive object list

	bytesAllocated int
	nextGC         int
	pauseDepth     int  // >0 suppresses collection (composite allocations)
	stress         bool // collect before every allocation (test mode)
	logGC          bool

	gray    []Object
	strings Table // intern table, weak keys

	rooters []RootMarker
}

func NewHeap() *Heap {
	return &Heap{nextGC: defaultNextGC}
}

// AddRootMarker registers a component whose roots must be marked.
func (h *Heap) AddRootMarker(r RootMarker) {
	h.rooters = append(h.rooters, r)
}

// RemoveRootMarker unregisters a previously added marker.
func (h *Heap) RemoveRootMarker(r RootMarker) {
	for i, m := range h.rooters {
		if m == r {
			h.rooters = append(h.rooters[:i], h.rooters[i+1:]...)
			return
		}
	}
}

// PauseGC suppresses collection while a partially-built object would
// otherwise be invisible to root marking. Calls nest.
func (h *Heap) PauseGC() {
	h.pauseDepth++
}

// ResumeGC re-enables collection.
func (h *Heap) ResumeGC() {
	h.pauseDepth--
}

// SetStress enables the test-only collect-before-every-allocation mode.
func (h *Heap) SetStress(on bool) {
	h.stress = on
}

// SetLog enables collection logging.
func (h *Heap) SetLog(on bool) {
	h.logGC = on
}

// SetNextGC overrides the initial collection threshold.
func (h *Heap) SetNextGC(bytes int) {
	if bytes > 0 {
		h.nextGC = bytes
	}
}

// BytesAllocated returns the current allocation counter.
func (h *Heap) BytesAllocated() int {
	return h.bytesAllocated
}

// Objects returns the head of the intrusive object list.
func (h *Heap) Objects() Object {
	return h.objects
}

// Strings exposes the intern table (tests and diagnostics).
func (h *Heap) Strings() *Table {
	return &h.strings
}

// adopt links a freshly built object into the registry, charging size
// bytes and possibly collecting first.
func (h *Heap) adopt(obj Object, size int) {
	h.maybeCollect()
	hdr := obj.header()
	hdr.next = h.objects
	hdr.size = size
	h.objects = obj
	h.bytesAllocated += size
}

func (h *Heap) maybeCollect() {
	if h.pauseDepth > 0 {
		return
	}
	if h.stress || h.bytesAllocated > h.nextGC {
		h.Collect()
	}
}

// Intern returns the unique string object for chars, allocating and
// registering it on first use. String equality everywhere else reduces to
// identity because of this table.
func (h *Heap) Intern(chars string) *ObjString {
	hash := HashString(chars)
	if s := h.strings.FindString(chars, hash); s != nil {
		return s
	}

	s := &ObjString{Chars: chars, Hash: hash}
	// The new string is unrooted until the intern table holds it
	h.PauseGC()
	h.adopt(s, int(unsafe.Sizeof(*s))+len(chars))
	h.strings.Set(s, BoolVal(true))
	h.ResumeGC()
	return s
}

// NewFunction allocates an empty function object.
func (h *Heap) NewFunction(name *ObjString) *ObjFunction {
	f := &ObjFunction{Name: name}
	h.adopt(f, int(unsafe.Sizeof(*f)))
	return f
}

// NewClosure allocates a closure with room for the function's upvalues.
func (h *Heap) NewClosure(fn *ObjFunction) *ObjClosure {
	c := &ObjClosure{Function: fn, Upvalues: make([]*ObjUpvalue, fn.UpvalueCount)}
	h.adopt(c, int(unsafe.Sizeof(*c))+fn.UpvalueCount*8)
	return c
}

// NewUpvalue allocates an open upvalue for the given stack slot.
func (h *Heap) NewUpvalue(slot int) *ObjUpvalue {
	u := &ObjUpvalue{Slot: slot, Closed: NullVal()}
	h.adopt(u, int(unsafe.Sizeof(*u)))
	return u
}

// NewClass allocates a class with an empty method table.
func (h *Heap) NewClass(name *ObjString) *ObjClass {
	c := &ObjClass{Name: name}
	h.adopt(c, int(unsafe.Sizeof(*c)))
	return c
}

// NewInstance allocates an instance with an empty field table.
func (h *Heap) NewInstance(class *ObjClass) *ObjInstance {
	i := &ObjInstance{Class: class}
	h.adopt(i, int(unsafe.Sizeof(*i)))
	return i
}

// NewBoundMethod allocates a bound method.
func (h *Heap) NewBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	b := &ObjBoundMethod{Receiver: receiver, Method: method}
	h.adopt(b, int(unsafe.Sizeof(*b)))
	return b
}

// NewList allocates a list holding a copy of elements. The caller keeps
// elements rooted (typically on the VM stack) until this returns.
func (h *Heap) NewList(elements []Value) *ObjList {
	l := &ObjList{}
	for _, v := range elements {
		l.Elements.Write(v)
	}
	h.adopt(l, int(unsafe.Sizeof(*l))+len(elements)*int(unsafe.Sizeof(Value{})))
	return l
}

// NewMap allocates an empty map.
func (h *Heap) NewMap() *ObjMap {
	m := &ObjMap{}
	h.adopt(m, int(unsafe.Sizeof(*m)))
	return m
}

// NewNative allocates a native function object.
func (h *Heap) NewNative(name string, fn NativeFn) *ObjNative {
	n := &ObjNative{Name: name, Fn: fn}
	h.adopt(n, int(unsafe.Sizeof(*n)))
	return n
}

// FreeAll drops every object at shutdown.
func (h *Heap) FreeAll() {
	h.objects = nil
	h.strings = Table{}
	h.bytesAllocated = 0
}
