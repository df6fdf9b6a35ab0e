// Package transform implements the collation transforms and the pipeline
// that chains them.
package transform

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/born-ml/collate/internal/batch"
	"github.com/born-ml/collate/internal/shm"
)

// Transform maps one batch value to the next.
type Transform interface {
	Apply(v batch.Value) (batch.Value, error)
	Name() string
}

// Func adapts a function to the Transform interface.
type Func struct {
	name string
	fn   func(batch.Value) (batch.Value, error)
}

// NewFunc names fn as a Transform.
func NewFunc(name string, fn func(batch.Value) (batch.Value, error)) Func {
	return Func{name: name, fn: fn}
}

// Apply calls the wrapped function.
func (f Func) Apply(v batch.Value) (batch.Value, error) { return f.fn(v) }

// Name returns the name given to NewFunc.
func (f Func) Name() string { return f.name }

// Pipeline applies transforms in order, threading each output into the next.
type Pipeline struct {
	transforms []Transform
	logger     zerolog.Logger
}

// Compose builds a pipeline. A pipeline is itself a Transform.
func Compose(transforms ...Transform) *Pipeline {
	return &Pipeline{
		transforms: append([]Transform(nil), transforms...),
		logger:     zerolog.Nop(),
	}
}

// WithLogger sets the logger used for per-step debug events.
func (p *Pipeline) WithLogger(logger zerolog.Logger) *Pipeline {
	p.logger = logger
	return p
}

// Transforms returns the steps of the pipeline.
func (p *Pipeline) Transforms() []Transform {
	return append([]Transform(nil), p.transforms...)
}

// Name implements Transform.
func (p *Pipeline) Name() string { return "compose" }

// Apply runs every transform. It stops at the first error, which is wrapped
// with the failing step's position and name.
//
// Shared segments created by one step and dropped by a later one (a failure,
// or a transfer that copies them to the heap) are closed before Apply
// returns. Segments in the input or in the result are left open.
func (p *Pipeline) Apply(v batch.Value) (batch.Value, error) {
	inputs := sharedSet(v)
	created := map[*shm.Tensor]struct{}{}
	release := func(keep map[*shm.Tensor]struct{}) {
		for st := range created {
			if _, ok := keep[st]; ok {
				continue
			}
			if err := st.Close(); err != nil {
				p.logger.Warn().Err(err).Str("segment", st.Descriptor().Path).Msg("closing shared segment")
			}
		}
	}

	for i, t := range p.transforms {
		start := time.Now()
		out, err := t.Apply(v)
		if err != nil {
			p.logger.Debug().
				Int("step", i).
				Str("transform", t.Name()).
				Err(err).
				Msg("transform failed")
			release(inputs)
			return nil, fmt.Errorf("transform %d (%s): %w", i, t.Name(), err)
		}
		p.logger.Debug().
			Int("step", i).
			Str("transform", t.Name()).
			Dur("elapsed", time.Since(start)).
			Msg("transform applied")
		for st := range sharedSet(out) {
			if _, ok := inputs[st]; !ok {
				created[st] = struct{}{}
			}
		}
		v = out
	}

	if len(created) > 0 {
		keep := sharedSet(v)
		for st := range inputs {
			keep[st] = struct{}{}
		}
		release(keep)
	}
	return v, nil
}

// sharedSet collects the shared-memory tensors in v, avoided keys included.
func sharedSet(v batch.Value) map[*shm.Tensor]struct{} {
	found := map[*shm.Tensor]struct{}{}
	w := batch.Walker{
		Tensor: func(_ batch.Path, a batch.Array) (batch.Value, error) {
			if st, ok := a.(*shm.Tensor); ok {
				found[st] = struct{}{}
			}
			return batch.NewTensor(a), nil
		},
		DescendLists: true,
	}
	_, _ = w.Walk(v)
	return found
}
