// Package parallel runs independent element copies on worker goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Number of worker goroutines to use.
	MinBytes   int  // Minimum total bytes before work is spread over workers.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
		MinBytes:   1 << 20, // Below 1 MiB a plain loop wins.
	}
}

// Sequential returns a config that never spawns goroutines.
func Sequential() Config {
	return Config{}
}

// For executes f(i) for i in [0, n) and returns once every call finished.
//
// totalBytes is the amount of data the n calls move together; work stays on
// the calling goroutine when it is below cfg.MinBytes. Calls must touch
// disjoint memory.
func For(n, totalBytes int, f func(i int), cfg Config) {
	workers := min(cfg.NumWorkers, n)
	if !cfg.Enabled || workers < 2 || totalBytes < cfg.MinBytes {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (n + workers - 1) / workers

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}
