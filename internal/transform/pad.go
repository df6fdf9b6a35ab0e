package transform

import (
	"fmt"

	"github.com/born-ml/born/tensor"

	"github.com/born-ml/collate/internal/batch"
)

// Padding is supported for these ranks only.
const (
	minPadRank = 1
	maxPadRank = 3
)

// PadConfig configures Pad.
type PadConfig struct {
	Value     float64  // Fill for new elements, converted to each tensor's dtype.
	AvoidKeys []string // Map keys left untouched at any depth.
}

// DefaultPadConfig returns zero fill with no excluded keys.
func DefaultPadConfig() PadConfig {
	return PadConfig{}
}

type pad struct {
	cfg    PadConfig
	walker batch.Walker
}

// Pad pads every tensor list to the elementwise maximum shape of its elements.
//
// Original values occupy the leading sub-region of each padded tensor; the
// rest equals cfg.Value. Elements already at the maximum shape are kept as
// they are.
func Pad(cfg PadConfig) Transform {
	p := &pad{cfg: cfg}
	p.walker = batch.Walker{
		Skip:    batch.NewKeySet(cfg.AvoidKeys...),
		Tensors: p.padList,
	}
	return p
}

func (p *pad) Name() string { return "pad" }

func (p *pad) Apply(v batch.Value) (batch.Value, error) {
	return p.walker.Walk(v)
}

func (p *pad) padList(path batch.Path, arrays []batch.Array) (batch.Value, error) {
	maxShape, err := maxShapeOf("pad", path, arrays)
	if err != nil {
		return nil, err
	}

	out := make(batch.List, len(arrays))
	for i, a := range arrays {
		if a.Shape().Equal(maxShape) {
			out[i] = batch.NewTensor(a)
			continue
		}
		if rank := len(maxShape); rank < minPadRank || rank > maxPadRank {
			return nil, &ShapeError{
				Op: "pad", Path: path.String(), Index: i, Want: maxShape, Got: a.Shape(),
				Err: fmt.Errorf("%w: rank %d, padding supports %d to %d", ErrUnsupportedRank, rank, minPadRank, maxPadRank),
			}
		}
		padded, err := padTo(a, maxShape, p.cfg.Value)
		if err != nil {
			return nil, &ShapeError{Op: "pad", Path: path.String(), Index: i, Want: maxShape, Got: a.Shape(), Err: err}
		}
		out[i] = batch.NewTensor(padded)
	}
	return out, nil
}

// maxShapeOf returns the elementwise maximum shape of equal-rank arrays.
func maxShapeOf(op string, path batch.Path, arrays []batch.Array) (tensor.Shape, error) {
	maxShape := arrays[0].Shape().Clone()
	for i, a := range arrays[1:] {
		s := a.Shape()
		if len(s) != len(maxShape) {
			return nil, &ShapeError{
				Op: op, Path: path.String(), Index: i + 1, Want: arrays[0].Shape(), Got: s,
				Err: ErrRankMismatch,
			}
		}
		for d, n := range s {
			maxShape[d] = max(maxShape[d], n)
		}
	}
	return maxShape, nil
}

// padTo copies a into the leading region of a new host tensor of shape,
// filled with value elsewhere.
func padTo(a batch.Array, shape tensor.Shape, value float64) (*tensor.RawTensor, error) {
	src, err := batch.HostBytes(a)
	if err != nil {
		return nil, err
	}
	dst, err := tensor.NewRaw(shape, a.DType(), tensor.CPU)
	if err != nil {
		return nil, err
	}
	if value != 0 {
		fill(dst, value)
	}
	copyRegion(dst.Data(), shape, src, a.Shape(), a.DType().Size())
	return dst, nil
}

// fill sets every element of raw to value converted to its dtype.
func fill(raw *tensor.RawTensor, value float64) {
	switch raw.DType() {
	case tensor.Float32:
		fillSlice(raw.AsFloat32(), float32(value))
	case tensor.Float64:
		fillSlice(raw.AsFloat64(), value)
	case tensor.Int32:
		fillSlice(raw.AsInt32(), int32(value))
	case tensor.Int64:
		fillSlice(raw.AsInt64(), int64(value))
	case tensor.Uint8:
		fillSlice(raw.AsUint8()[:raw.NumElements()], uint8(value))
	case tensor.Bool:
		fillSlice(raw.AsBool(), value != 0)
	}
}

func fillSlice[T any](s []T, v T) {
	for i := range s {
		s[i] = v
	}
}

// copyRegion copies a row-major src of srcShape into the leading region of a
// row-major dst of dstShape. Both shapes have the same rank and srcShape fits
// inside dstShape.
func copyRegion(dst []byte, dstShape tensor.Shape, src []byte, srcShape tensor.Shape, elemSize int) {
	rank := len(srcShape)
	if rank == 0 {
		copy(dst[:elemSize], src[:elemSize])
		return
	}
	if srcShape.NumElements() == 0 {
		return
	}
	rowBytes := srcShape[rank-1] * elemSize
	dstStrides := dstShape.ComputeStrides()
	rows := srcShape.NumElements() / srcShape[rank-1]

	idx := make([]int, rank-1)
	for r := 0; r < rows; r++ {
		off := 0
		for d, i := range idx {
			off += i * dstStrides[d]
		}
		off *= elemSize
		copy(dst[off:off+rowBytes], src[r*rowBytes:(r+1)*rowBytes])

		// Advance the row index over the leading dims of srcShape.
		for d := rank - 2; d >= 0; d-- {
			idx[d]++
			if idx[d] < srcShape[d] {
				break
			}
			idx[d] = 0
		}
	}
}
