package runtime

import (
	"fmt"
	"testing"
)

func TestTableSetGet(t *testing.T) {
	heap := NewHeap()
	var table Table

	key := heap.Intern("answer")
	if _, found := table.Get(key); found {
		t.Fatal("empty table should not find anything")
	}

	if !table.Set(key, NumberVal(42)) {
		t.Error("first Set should report a new key")
	}
	if table.Set(key, NumberVal(43)) {
		t.Error("second Set should report an existing key")
	}

	v, found := table.Get(key)
	if !found {
		t.Fatal("key vanished")
	}
	if v.AsNumber() != 43 {
		t.Errorf("got %v, want 43", v.AsNumber())
	}
	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
}

func TestTableDelete(t *testing.T) {
	heap := NewHeap()
	var table Table

	key := heap.Intern("k")
	if table.Delete(key) {
		t.Error("deleting from an empty table should report false")
	}

	table.Set(key, NumberVal(1))
	if !table.Delete(key) {
		t.Error("delete of a present key should report true")
	}
	if table.Delete(key) {
		t.Error("second delete should report false")
	}
	if _, found := table.Get(key); found {
		t.Error("deleted key still found")
	}
	if table.Len() != 0 {
		t.Errorf("Len() = %d after delete", table.Len())
	}
}

func TestTableTombstoneReuse(t *testing.T) {
	heap := NewHeap()
	var table Table

	// Churn the same keys so probe chains cross tombstones
	keys := make([]*ObjString, 32)
	for i := range keys {
		keys[i] = heap.Intern(fmt.Sprintf("key-%d", i))
	}

	for round := 0; round < 3; round++ {
		for i, k := range keys {
			table.Set(k, NumberVal(float64(round*100+i)))
		}
		for i, k := range keys {
			if i%2 == 0 {
				table.Delete(k)
			}
		}
	}

	for i, k := range keys {
		v, found := table.Get(k)
		if i%2 == 0 {
			if found {
				t.Errorf("key-%d should be deleted", i)
			}
			continue
		}
		if !found || v.AsNumber() != float64(200+i) {
			t.Errorf("key-%d lost across churn: found=%v v=%v", i, found, v)
		}
	}
	if table.Len() != 16 {
		t.Errorf("Len() = %d, want 16", table.Len())
	}
}

func TestTableGrowth(t *testing.T) {
	heap := NewHeap()
	var table Table

	const n = 1000
	for i := 0; i < n; i++ {
		table.Set(heap.Intern(fmt.Sprintf("entry-%d", i)), NumberVal(float64(i)))
	}
	if table.Len() != n {
		t.Fatalf("Len() = %d, want %d", table.Len(), n)
	}
	for i := 0; i < n; i++ {
		v, found := table.Get(heap.Intern(fmt.Sprintf("entry-%d", i)))
		if !found || v.AsNumber() != float64(i) {
			t.Fatalf("entry-%d lost after growth", i)
		}
	}
}

func TestTableAddAll(t *testing.T) {
	heap := NewHeap()
	var super, sub Table

	a, b := heap.Intern("a"), heap.Intern("b")
	super.Set(a, NumberVal(1))
	super.Set(b, NumberVal(2))

	// Pre-existing entries are overwritten, mirroring method inheritance
	sub.Set(b, NumberVal(20))
	sub.AddAll(&super)

	if v, _ := sub.Get(a); v.AsNumber() != 1 {
		t.Errorf("a = %v, want 1", v)
	}
	if v, _ := sub.Get(b); v.AsNumber() != 2 {
		t.Errorf("b = %v, want 2", v)
	}
	if sub.Len() != 2 {
		t.Errorf("Len() = %d, want 2", sub.Len())
	}
}

func TestTableFindString(t *testing.T) {
	var table Table

	s := &ObjString{Chars: "needle", Hash: HashString("needle")}
	table.Set(s, BoolVal(true))

	found := table.FindString("needle", HashString("needle"))
	if found != s {
		t.Error("FindString should return the stored object")
	}
	if table.FindString("missing", HashString("missing")) != nil {
		t.Error("FindString should miss for absent content")
	}

	table.Delete(s)
	if table.FindString("needle", HashString("needle")) != nil {
		t.Error("FindString should miss after deletion")
	}
}

func TestTableRange(t *testing.T) {
	heap := NewHeap()
	var table Table

	table.Set(heap.Intern("a"), NumberVal(1))
	table.Set(heap.Intern("b"), NumberVal(2))
	table.Delete(heap.Intern("a"))

	seen := map[string]float64{}
	table.Range(func(key *ObjString, value Value) {
		seen[key.Chars] = value.AsNumber()
	})

	if len(seen) != 1 || seen["b"] != 2 {
		t.Errorf("Range visited %v, want only b=2", seen)
	}
}

func TestHashString(t *testing.T) {
	// FNV-1a reference values
	if h := HashString(""); h != 2166136261 {
		t.Errorf("empty hash = %d", h)
	}
	if HashString("a") == HashString("b") {
		t.Error("trivial collision")
	}
	if HashString("falcon") != HashString("falcon") {
		t.Error("hash must be deterministic")
	}
}
