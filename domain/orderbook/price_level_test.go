package orderbook

import "testing"

func TestLevelFIFO(t *testing.T) {
	var l Level
	l.Append(1, 10)
	l.Append(2, 20)
	l.Append(3, 30)

	if l.Len() != 3 || l.OpenQty() != 60 {
		t.Fatalf("len=%d open=%d, want 3/60", l.Len(), l.OpenQty())
	}

	for want := OrderID(1); want <= 3; want++ {
		id, ok := l.HeadID()
		if !ok || id != want {
			t.Fatalf("head = %d, want %d", id, want)
		}
		var slot int32
		found := false
		for i := range l.nodes {
			if l.nodes[i].order == id {
				slot = int32(i)
				found = true
				break
			}
		}
		if !found || !l.RemoveAt(slot, id, Qty(want)*10) {
			t.Fatalf("remove head %d failed", id)
		}
	}
	if !l.Empty() || l.OpenQty() != 0 {
		t.Errorf("drained level: len=%d open=%d", l.Len(), l.OpenQty())
	}
}

func TestLevelRemoveMiddle(t *testing.T) {
	var l Level
	l.Append(1, 5)
	s2 := l.Append(2, 5)
	l.Append(3, 5)

	if !l.RemoveAt(s2, 2, 5) {
		t.Fatal("remove middle failed")
	}
	id, _ := l.HeadID()
	if id != 1 {
		t.Errorf("head = %d, want 1", id)
	}
	if l.Len() != 2 || l.OpenQty() != 10 {
		t.Errorf("len=%d open=%d, want 2/10", l.Len(), l.OpenQty())
	}
}

func TestLevelSlotReuse(t *testing.T) {
	var l Level
	s1 := l.Append(1, 5)
	l.RemoveAt(s1, 1, 5)

	s2 := l.Append(2, 5)
	if s2 != s1 {
		t.Errorf("freed slot not reused: got %d, want %d", s2, s1)
	}
	if len(l.nodes) != 1 {
		t.Errorf("pool grew to %d nodes", len(l.nodes))
	}
}

func TestLevelRemoveMismatchIsNoop(t *testing.T) {
	var l Level
	s1 := l.Append(1, 5)

	if l.RemoveAt(s1, 99, 5) {
		t.Error("id mismatch must not remove")
	}
	if l.RemoveAt(77, 1, 5) {
		t.Error("out-of-range slot must not remove")
	}
	if l.RemoveAt(invalidSlot, 1, 5) {
		t.Error("invalid slot must not remove")
	}
	if l.Len() != 1 || l.OpenQty() != 5 {
		t.Errorf("level disturbed: len=%d open=%d", l.Len(), l.OpenQty())
	}
}

func TestLevelHeadOnEmpty(t *testing.T) {
	var l Level
	if _, ok := l.HeadID(); ok {
		t.Error("zero-value level reported a head")
	}
}

func TestLevelDecOpenQtySaturates(t *testing.T) {
	var l Level
	l.Append(1, 5)
	l.DecOpenQty(100)
	if l.OpenQty() != 0 {
		t.Errorf("open qty = %d, want 0", l.OpenQty())
	}
}
