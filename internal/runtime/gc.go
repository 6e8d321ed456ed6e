package runtime

import "fmt"

// Collect runs a full mark-sweep collection: mark roots, trace the gray
// stack, clean the weak intern table, sweep the object registry and update
// the next-collection threshold.
func (h *Heap) Collect() {
	if h.logGC {
		fmt.Println("-- gc begin")
	}
	before := h.bytesAllocated

	h.markRoots()
	h.traceReferences()
	h.strings.RemoveWhite()
	h.sweep()

	h.nextGC = h.bytesAllocated * heapGrowFactor

	if h.logGC {
		fmt.Printf("-- gc end: collected %d bytes (from %d to %d), next at %d\n",
			before-h.bytesAllocated, before, h.bytesAllocated, h.nextGC)
	}
}

// MarkValue marks the object held by v, if any.
func (h *Heap) MarkValue(v Value) {
	if v.Type == ValObj {
		h.MarkObject(v.Obj)
	}
}

// MarkObject marks obj reachable and queues it for tracing.
func (h *Heap) MarkObject(obj Object) {
	if obj == nil {
		return
	}
	hdr := obj.header()
	if hdr.marked {
		return
	}
	hdr.marked = true
	h.gray = append(h.gray, obj)
}

func (h *Heap) markRoots() {
	for _, r := range h.rooters {
		r.MarkRoots(h)
	}
}

func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		obj := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(obj)
	}
}

// blacken marks every reference an object holds. Strings and natives are
// leaves.
func (h *Heap) blacken(obj Object) {
	switch o := obj.(type) {
	case *ObjFunction:
		// The top-level script function has no name. The nil pointer must
		// not reach MarkObject through the interface, whose nil check
		// would miss it.
		if o.Name != nil {
			h.MarkObject(o.Name)
		}
		for _, v := range o.Chunk.Constants.Values() {
			h.MarkValue(v)
		}
	case *ObjClosure:
		h.MarkObject(o.Function)
		for _, u := range o.Upvalues {
			// Slots fill one at a time while a CLOSURE instruction runs
			if u != nil {
				h.MarkObject(u)
			}
		}
	case *ObjUpvalue:
		h.MarkValue(o.Closed)
	case *ObjClass:
		h.MarkObject(o.Name)
		o.Methods.Mark(h)
	case *ObjInstance:
		h.MarkObject(o.Class)
		o.Fields.Mark(h)
	case *ObjBoundMethod:
		h.MarkValue(o.Receiver)
		h.MarkObject(o.Method)
	case *ObjList:
		for _, v := range o.Elements.Values() {
			h.MarkValue(v)
		}
	case *ObjMap:
		o.Pairs.Mark(h)
	}
}

// sweep walks the intrusive registry, unlinking unmarked objects and
// clearing the mark on survivors.
func (h *Heap) sweep() {
	var prev Object
	obj := h.objects
	for obj != nil {
		hdr := obj.header()
		if hdr.marked {
			hdr.marked = false
			prev = obj
			obj = hdr.next
			continue
		}

		unreached := obj
		obj = hdr.next
		if prev == nil {
			h.objects = obj
		} else {
			prev.header().next = obj
		}
		h.bytesAllocated -= unreached.header().size
		unreached.header().next = nil
	}
}
