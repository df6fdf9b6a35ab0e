package transform

import (
	"testing"

	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/collate/internal/batch"
)

func f32(t *testing.T, shape tensor.Shape, vals ...float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	require.Len(t, vals, shape.NumElements())
	copy(raw.AsFloat32(), vals)
	return raw
}

func i64(t *testing.T, shape tensor.Shape, vals ...int64) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Int64, tensor.CPU)
	require.NoError(t, err)
	require.Len(t, vals, shape.NumElements())
	copy(raw.AsInt64(), vals)
	return raw
}

// floats reads the values of a float32 batch leaf.
func floats(t *testing.T, v batch.Value) []float32 {
	t.Helper()
	leaf, ok := v.(batch.Tensor)
	require.True(t, ok, "want tensor leaf, got %T", v)
	raw, err := batch.ToRaw(leaf.Array)
	require.NoError(t, err)
	return append([]float32(nil), raw.AsFloat32()...)
}

func int64s(t *testing.T, v batch.Value) []int64 {
	t.Helper()
	leaf, ok := v.(batch.Tensor)
	require.True(t, ok, "want tensor leaf, got %T", v)
	raw, err := batch.ToRaw(leaf.Array)
	require.NoError(t, err)
	return append([]int64(nil), raw.AsInt64()...)
}

func shapeOf(t *testing.T, v batch.Value) tensor.Shape {
	t.Helper()
	leaf, ok := v.(batch.Tensor)
	require.True(t, ok, "want tensor leaf, got %T", v)
	return leaf.Array.Shape()
}

func tensors(arrays ...batch.Array) batch.List {
	l := make(batch.List, len(arrays))
	for i, a := range arrays {
		l[i] = batch.NewTensor(a)
	}
	return l
}
