package lrucache

import (
	"slices"
	"testing"
)

// model is the reference the cache is checked against: keys ordered from least
// to most recently pushed.
type model struct {
	order []uint8
	vals  map[uint8][6]byte
	size  int
}

func (m *model) push(k uint8, v [6]byte) (evicted uint8, ok bool) {
	if i := slices.Index(m.order, k); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	} else if len(m.order) == m.size {
		evicted, ok = m.order[0], true
		m.order = m.order[1:]
		delete(m.vals, evicted)
	}
	m.order = append(m.order, k)
	m.vals[k] = v
	return evicted, ok
}

func (m *model) remove(k uint8) bool {
	i := slices.Index(m.order, k)
	if i < 0 {
		return false
	}
	m.order = slices.Delete(m.order, i, i+1)
	delete(m.vals, k)
	return true
}

func FuzzCache(f *testing.F) {
	const (
		opGet = iota
		opPush
		opDelete
		opDeleteOdd
	)
	f.Add(uint8(0), []byte{0x41, 0x01})
	f.Add(uint8(1), []byte{0x41, 0x42, 0x43, 0x01, 0x02, 0x03})
	f.Add(uint8(3), []byte{0x41, 0x42, 0x41, 0x43, 0x44, 0x45, 0x82, 0xc0, 0x01, 0x05})
	f.Fuzz(func(t *testing.T, size uint8, ops []byte) {
		n := int(size%8) + 1
		c := New[uint8, [6]byte](n)
		m := model{vals: make(map[uint8][6]byte), size: n}
		for i, b := range ops {
			k := b & 0xf
			switch b >> 6 {
			case opGet:
				got, okGot := c.Get(k)
				want, okWant := m.vals[k]
				if got != want || okGot != okWant {
					t.Fatalf("op %d get %d: want %v,%v got %v,%v", i, k, want, okWant, got, okGot)
				}
			case opPush:
				v := [6]byte{5: byte(i)}
				evGot, okGot := c.Push(k, v)
				evWant, okWant := m.push(k, v)
				if okGot != okWant || (okWant && evGot != evWant) {
					t.Fatalf("op %d push %d: want evicted %d,%v got %d,%v", i, k, evWant, okWant, evGot, okGot)
				}
			case opDelete:
				if got, want := c.Delete(k), m.remove(k); got != want {
					t.Fatalf("op %d delete %d: want %v got %v", i, k, want, got)
				}
			case opDeleteOdd:
				want := 0
				for _, key := range slices.Clone(m.order) {
					if key%2 == 1 {
						m.remove(key)
						want++
					}
				}
				if got := c.DeleteFunc(func(k uint8, _ [6]byte) bool { return k%2 == 1 }); got != want {
					t.Fatalf("op %d delete odd: want %d removed got %d", i, want, got)
				}
			}
			if c.Len() != len(m.order) || c.Len() > c.Cap() {
				t.Fatalf("op %d: len %d cap %d, model len %d", i, c.Len(), c.Cap(), len(m.order))
			}
		}
	})
}

func TestEvictsLeastRecentlyPushed(t *testing.T) {
	c := New[int, string](2)
	c.Push(1, "a")
	c.Push(2, "b")
	c.Push(1, "a2") // refresh 1, 2 is now oldest.
	k, evicted := c.Push(3, "c")
	if !evicted || k != 2 {
		t.Fatalf("want 2 evicted, got %d,%v", k, evicted)
	}
	if v, ok := c.Get(1); !ok || v != "a2" {
		t.Errorf("want a2, got %q,%v", v, ok)
	}
	n := c.DeleteFunc(func(k int, v string) bool { return k == 3 })
	if n != 1 || c.Len() != 1 {
		t.Errorf("DeleteFunc removed %d, len %d", n, c.Len())
	}
	c.Reset()
	if c.Len() != 0 || c.Cap() != 2 {
		t.Errorf("reset left len %d cap %d", c.Len(), c.Cap())
	}
}
