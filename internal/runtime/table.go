package runtime

// Table is an open-addressed, linear-probing hash table keyed by interned
// string identity. Deleting an entry leaves a tombstone (nil key, true
// value) so probe chains stay intact; count includes tombstones.
type Table struct {
	count   int // used slots, tombstones included
	live    int // entries that hold a real key
	entries []entry
}

type entry struct {
	key   *ObjString
	value Value
}

const tableMaxLoad = 0.75

// Len returns the number of live entries.
func (t *Table) Len() int { return t.live }

// Get looks up key and reports whether it was present.
func (t *Table) Get(key *ObjString) (Value, bool) {
	if t.count == 0 {
		return NullVal(), false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return NullVal(), false
	}
	return e.value, true
}

// Set inserts or updates key and reports whether the key was absent.
func (t *Table) Set(key *ObjString, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.adjustCapacity(growCapacity(len(t.entries)))
	}

	e := t.findEntry(t.entries, key)
	isNew := e.key == nil
	if isNew {
		t.live++
		if e.value.IsNull() {
			// Filling a truly empty slot, not a tombstone
			t.count++
		}
	}
	e.key = key
	e.value = value
	return isNew
}

// Delete removes key, leaving a tombstone, and reports whether the key was
// present.
func (t *Table) Delete(key *ObjString) bool {
	if t.count == 0 {
		return false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = BoolVal(true)
	t.live--
	return true
}

// AddAll copies every entry of from into t. Used by class inheritance.
func (t *Table) AddAll(from *Table) {
	for i := range from.entries {
		e := &from.entries[i]
		if e.key != nil {
			t.Set(e.key, e.value)
		}
	}
}

// FindString is the intern lookup: it probes like a normal get but
// compares length, hash and byte content instead of identity.
func (t *Table) FindString(chars string, hash uint32) *ObjString {
	if t.count == 0 {
		return nil
	}
	capacity := uint32(len(t.entries))
	index := hash % capacity
	for {
		e := &t.entries[index]
		if e.key == nil {
			// Stop at an empty non-tombstone slot
			if e.value.IsNull() {
				return nil
			}
		} else if len(e.key.Chars) == len(chars) && e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		index = (index + 1) % capacity
	}
}

// Range calls fn for every live entry.
func (t *Table) Range(fn func(key *ObjString, value Value)) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil {
			fn(e.key, e.value)
		}
	}
}

// RemoveWhite deletes every entry whose key was not marked by the current
// collection. Run on the intern table before sweeping so it never holds a
// dangling key.
func (t *Table) RemoveWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.marked {
			t.Delete(e.key)
		}
	}
}

// Mark marks every key and value as reachable.
func (t *Table) Mark(h *Heap) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil {
			h.MarkObject(e.key)
		}
		h.MarkValue(e.value)
	}
}

func (t *Table) findEntry(entries []entry, key *ObjString) *entry {
	capacity := uint32(len(entries))
	index := key.Hash % capacity
	var tombstone *entry
	for {
		e := &entries[index]
		if e.key == nil {
			if e.value.IsNull() {
				// Empty slot: reuse the first tombstone seen, if any
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key {
			return e
		}
		index = (index + 1) % capacity
	}
}

func (t *Table) adjustCapacity(capacity int) {
	entries := make([]entry, capacity)
	for i := range entries {
		entries[i].value = NullVal()
	}

	// Rebuild without tombstones
	t.count = 0
	old := t.entries
	t.entries = entries
	for i := range old {
		e := &old[i]
		if e.key == nil {
			continue
		}
		dest := t.findEntry(entries, e.key)
		dest.key = e.key
		dest.value = e.value
		t.count++
	}
}

func growCapacity(capacity int) int {
	if capacity < 8 {
		return 8
	}
	return capacity * 2
}

// HashString computes the FNV-1a hash of the raw bytes.
func HashString(chars string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(chars); i++ {
		hash ^= uint32(chars[i])
		hash *= 16777619
	}
	return hash
}
