package batch

import (
	"errors"
	"testing"

	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalker_TensorLists(t *testing.T) {
	x := raw(t, tensor.Shape{1}, tensor.Float32)
	in := Map{
		"x":    List{NewTensor(x), NewTensor(x)},
		"skip": List{NewTensor(x)},
		"meta": List{Opaque{V: 1}},
		"deep": Map{"y": List{NewTensor(x)}},
	}

	var paths []string
	w := Walker{
		Skip: NewKeySet("skip"),
		Tensors: func(path Path, arrays []Array) (Value, error) {
			paths = append(paths, path.String())
			return Opaque{V: len(arrays)}, nil
		},
	}

	out, err := w.Walk(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"deep.y", "x"}, paths)
	assert.Equal(t, Map{
		"x":    Opaque{V: 2},
		"skip": List{NewTensor(x)},
		"meta": List{Opaque{V: 1}},
		"deep": Map{"y": Opaque{V: 1}},
	}, out)

	// The input is untouched.
	assert.Equal(t, List{NewTensor(x), NewTensor(x)}, in["x"])
}

func TestWalker_TensorLeaves(t *testing.T) {
	x := raw(t, tensor.Shape{1}, tensor.Float32)
	in := List{
		NewTensor(x),
		Map{"y": NewTensor(x), "z": List{NewTensor(x)}},
		Opaque{V: "id"},
	}

	count := 0
	w := Walker{
		Tensor: func(_ Path, a Array) (Value, error) {
			count++
			return Opaque{V: a.Shape()}, nil
		},
		DescendLists: true,
	}

	out, err := w.Walk(in)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	l := out.(List)
	assert.Equal(t, Opaque{V: tensor.Shape{1}}, l[0])
	assert.Equal(t, List{Opaque{V: tensor.Shape{1}}}, l[1].(Map)["z"])
	assert.Equal(t, Opaque{V: "id"}, l[2])
}

func TestWalker_NoDescend(t *testing.T) {
	x := raw(t, tensor.Shape{1}, tensor.Float32)
	in := List{Opaque{V: 1}, NewTensor(x)}

	w := Walker{Tensor: func(Path, Array) (Value, error) {
		t.Fatal("tensor inside a non-tensor list visited")
		return nil, nil
	}}

	out, err := w.Walk(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestWalker_Errors(t *testing.T) {
	x := raw(t, tensor.Shape{1}, tensor.Float32)
	boom := errors.New("boom")

	w := Walker{Tensor: func(Path, Array) (Value, error) { return nil, boom }}
	_, err := w.Walk(Map{"a": Map{"b": NewTensor(x)}})
	assert.ErrorIs(t, err, boom)

	_, err = Walker{}.Walk(Map{"a": List{NewTensor(x), Opaque{V: 1}}})
	assert.ErrorIs(t, err, ErrMixedList)
	assert.Contains(t, err.Error(), "a:")
}
