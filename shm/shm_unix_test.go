//go:build unix

package shm_test

import (
	"strings"
	"testing"

	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/collate"
	"github.com/born-ml/collate/batch"
	"github.com/born-ml/collate/shm"
)

func TestAttachSharedStack(t *testing.T) {
	a, err := tensor.NewRaw(tensor.Shape{2}, tensor.Int64, tensor.CPU)
	require.NoError(t, err)
	copy(a.AsInt64(), []int64{1, 2})
	b, err := tensor.NewRaw(tensor.Shape{2}, tensor.Int64, tensor.CPU)
	require.NoError(t, err)
	copy(b.AsInt64(), []int64{3, 4})

	out, err := collate.Stack(collate.StackConfig{SharedMemory: true}).Apply(batch.List{batch.NewTensor(a), batch.NewTensor(b)})
	require.NoError(t, err)
	st, ok := out.(batch.Tensor).Array.(*shm.Tensor)
	require.True(t, ok)
	defer st.Close()

	d := st.Descriptor()
	assert.True(t, strings.HasPrefix(d.Path, shm.Dir()))
	assert.Equal(t, []int{2, 2}, d.Shape)
	assert.Equal(t, "int64", d.DType)

	view, err := shm.Attach(d)
	require.NoError(t, err)
	defer view.Close()
	raw, err := view.Materialize()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, raw.AsInt64())
}
