//go:build unix

package device

import (
	"testing"

	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/collate/internal/batch"
	"github.com/born-ml/collate/internal/shm"
)

func TestCPU_MaterializesSharedTensors(t *testing.T) {
	st, err := shm.NewTensor(tensor.Shape{3}, tensor.Uint8)
	require.NoError(t, err)
	copy(st.Data(), []byte{1, 2, 3})

	out, err := CPU().Transfer(st)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	raw, ok := out.(*tensor.RawTensor)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, raw.Data())
}

func TestOpen_WebGPUUnavailable(t *testing.T) {
	_, _, err := Open("webgpu", DefaultOptions())
	assert.ErrorIs(t, err, batch.ErrUnsupportedDevice)
}
