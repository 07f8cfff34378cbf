package sequence

import (
	"sync"
	"testing"
)

func TestSequencerMonotonic(t *testing.T) {
	s := New(0)
	for want := uint64(1); want <= 5; want++ {
		if got := s.Next(); got != want {
			t.Fatalf("Next = %d, want %d", got, want)
		}
	}
	if got := s.Current(); got != 5 {
		t.Errorf("Current = %d, want 5", got)
	}
}

func TestSequencerRecovery(t *testing.T) {
	s := New(0)
	s.Reset(100)
	if got := s.Next(); got != 101 {
		t.Errorf("Next after recovery = %d, want 101", got)
	}
}

func TestSequencerConcurrent(t *testing.T) {
	const goroutines = 8
	const perG = 10000

	s := New(0)
	var wg sync.WaitGroup
	seen := make([]map[uint64]bool, goroutines)
	for g := 0; g < goroutines; g++ {
		g := g
		seen[g] = make(map[uint64]bool, perG)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				seen[g][s.Next()] = true
			}
		}()
	}
	wg.Wait()

	all := make(map[uint64]bool, goroutines*perG)
	for _, m := range seen {
		for id := range m {
			if all[id] {
				t.Fatalf("duplicate id %d", id)
			}
			all[id] = true
		}
	}
	if len(all) != goroutines*perG {
		t.Errorf("issued %d ids, want %d", len(all), goroutines*perG)
	}
	if got := s.Current(); got != goroutines*perG {
		t.Errorf("Current = %d, want %d", got, goroutines*perG)
	}
}
