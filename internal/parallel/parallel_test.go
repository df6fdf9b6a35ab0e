package parallel

import (
	"sync/atomic"
	"testing"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinBytes: 0}

	var counter int64
	n := 1000

	For(n, n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestFor_DisjointWrites(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinBytes: 0}

	out := make([]int, 10)
	For(len(out), len(out), func(i int) {
		out[i] = i * i
	}, cfg)

	for i, v := range out {
		if v != i*i {
			t.Errorf("out[%d] = %d, want %d", i, v, i*i)
		}
	}
}

func TestFor_Sequential(t *testing.T) {
	cfg := Sequential()

	var order []int
	For(5, 1<<30, func(i int) {
		order = append(order, i)
	}, cfg)

	for i, v := range order {
		if v != i {
			t.Fatalf("sequential order broken: %v", order)
		}
	}
}

func TestFor_BelowThreshold(t *testing.T) {
	// Small copies stay on the calling goroutine, so appends are safe.
	cfg := Config{Enabled: true, NumWorkers: 8, MinBytes: 1024}

	var seen []int
	For(16, 512, func(i int) {
		seen = append(seen, i)
	}, cfg)

	if len(seen) != 16 {
		t.Errorf("Expected 16 calls, got %d", len(seen))
	}
}

func TestFor_Empty(_ *testing.T) {
	For(0, 0, func(_ int) {
		panic("must not be called")
	}, DefaultConfig())
}
