package transform

import (
	"fmt"

	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/tensor"

	"github.com/born-ml/collate/internal/batch"
	"github.com/born-ml/collate/internal/parallel"
	"github.com/born-ml/collate/internal/shm"
)

// StackConfig configures Stack and Cat.
type StackConfig struct {
	// SharedMemory allocates the result once in a shared segment and copies
	// every element straight into it. The result is a *shm.Tensor that
	// another process can attach to.
	SharedMemory bool
	// AvoidKeys lists map keys left untouched at any depth.
	AvoidKeys []string
	// Backend performs the numeric stacking when SharedMemory is off.
	// Defaults to the Born CPU backend.
	Backend tensor.Backend
	// Parallel controls the shared-memory copies.
	Parallel parallel.Config
}

// DefaultStackConfig returns the Born CPU backend without shared memory.
func DefaultStackConfig() StackConfig {
	return StackConfig{
		Backend:  cpu.New(),
		Parallel: parallel.DefaultConfig(),
	}
}

type joinMode int

const (
	modeStack joinMode = iota
	modeCat
)

func (m joinMode) String() string {
	if m == modeCat {
		return "cat"
	}
	return "stack"
}

type join struct {
	mode joinMode
	cfg  StackConfig
	skip batch.KeySet
}

// Stack joins every list of equal-shape tensors along a new leading
// dimension: N tensors of shape [s...] become one of shape [N, s...].
func Stack(cfg StackConfig) Transform {
	return newJoin(modeStack, cfg)
}

// Cat concatenates every tensor list along its existing leading dimension:
// shapes [a_i, s...] become [sum(a_i), s...].
func Cat(cfg StackConfig) Transform {
	return newJoin(modeCat, cfg)
}

func newJoin(mode joinMode, cfg StackConfig) *join {
	if cfg.Backend == nil {
		cfg.Backend = cpu.New()
	}
	return &join{mode: mode, cfg: cfg, skip: batch.NewKeySet(cfg.AvoidKeys...)}
}

func (j *join) Name() string { return j.mode.String() }

// Apply joins every tensor list in v. Shared segments allocated before a
// failure are closed, so an error leaves nothing behind in shm.Dir.
func (j *join) Apply(v batch.Value) (batch.Value, error) {
	var segments []*shm.Tensor
	w := batch.Walker{
		Skip: j.skip,
		Tensors: func(path batch.Path, arrays []batch.Array) (batch.Value, error) {
			return j.joinList(path, arrays, &segments)
		},
	}
	out, err := w.Walk(v)
	if err != nil {
		for _, t := range segments {
			_ = t.Close()
		}
		return nil, err
	}
	return out, nil
}

func (j *join) joinList(path batch.Path, arrays []batch.Array, segments *[]*shm.Tensor) (batch.Value, error) {
	outShape, err := j.validate(path, arrays)
	if err != nil {
		return nil, err
	}
	var out batch.Array
	if j.cfg.SharedMemory {
		var dst *shm.Tensor
		dst, err = j.joinShared(path, arrays, outShape)
		if err == nil {
			*segments = append(*segments, dst)
			out = dst
		}
	} else {
		out, err = j.joinBackend(path, arrays)
	}
	if err != nil {
		return nil, err
	}
	return batch.NewTensor(out), nil
}

// validate checks dtypes, shapes and residency before anything is allocated
// and returns the output shape.
func (j *join) validate(path batch.Path, arrays []batch.Array) (tensor.Shape, error) {
	ref := arrays[0]
	refShape := ref.Shape()
	fail := func(i int, got tensor.Shape, err error) error {
		return &ShapeError{Op: j.mode.String(), Path: path.String(), Index: i, Want: refShape, Got: got, Err: err}
	}

	if j.mode == modeCat && len(refShape) == 0 {
		return nil, fail(0, refShape, fmt.Errorf("%w: cannot concatenate rank-0 tensors", ErrUnsupportedRank))
	}

	lead := 0
	for i, a := range arrays {
		s := a.Shape()
		if a.DType() != ref.DType() {
			return nil, fail(i, s, fmt.Errorf("%w: %s vs %s", ErrDTypeMismatch, a.DType(), ref.DType()))
		}
		if len(s) != len(refShape) {
			return nil, fail(i, s, ErrRankMismatch)
		}
		for d := range s {
			if d == 0 && j.mode == modeCat {
				continue
			}
			if s[d] != refShape[d] {
				return nil, fail(i, s, fmt.Errorf("%w: dimension %d is %d, want %d", ErrShapeMismatch, d, s[d], refShape[d]))
			}
		}
		if _, err := batch.HostBytes(a); err != nil {
			return nil, fail(i, s, err)
		}
		if j.mode == modeCat {
			lead += s[0]
		}
	}

	if j.mode == modeCat {
		out := refShape.Clone()
		out[0] = lead
		return out, nil
	}
	out := make(tensor.Shape, 0, len(refShape)+1)
	out = append(out, len(arrays))
	return append(out, refShape...), nil
}

// joinBackend hands the tensors to the Born backend. The backend signals
// bad input by panicking; that is turned into a ShapeError.
func (j *join) joinBackend(path batch.Path, arrays []batch.Array) (out batch.Array, err error) {
	raws := make([]*tensor.RawTensor, len(arrays))
	for i, a := range arrays {
		raw, err := batch.ToRaw(a)
		if err != nil {
			return nil, err
		}
		raws[i] = raw
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &ShapeError{
				Op: j.mode.String(), Path: path.String(), Want: arrays[0].Shape(), Got: arrays[0].Shape(),
				Err: fmt.Errorf("%w: %v", ErrBackendRejected, r),
			}
		}
	}()

	b := j.cfg.Backend
	if j.mode == modeStack {
		for i, raw := range raws {
			raws[i] = b.Unsqueeze(raw, 0)
		}
	}
	return b.Cat(raws, 0), nil
}

// joinShared writes every element straight into one shared allocation.
func (j *join) joinShared(path batch.Path, arrays []batch.Array, outShape tensor.Shape) (*shm.Tensor, error) {
	dst, err := shm.NewTensor(outShape, arrays[0].DType())
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", j.mode, path, err)
	}

	offsets := make([]int, len(arrays)+1)
	srcs := make([][]byte, len(arrays))
	for i, a := range arrays {
		// Residency was checked in validate.
		srcs[i], _ = batch.HostBytes(a)
		offsets[i+1] = offsets[i] + len(srcs[i])
	}

	data := dst.Data()
	parallel.For(len(srcs), offsets[len(srcs)], func(i int) {
		copy(data[offsets[i]:offsets[i+1]], srcs[i])
	}, j.cfg.Parallel)

	return dst, nil
}
