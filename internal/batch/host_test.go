package batch

import (
	"testing"

	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hostBuffer is a minimal HostArray.
type hostBuffer struct {
	shape tensor.Shape
	dtype tensor.DataType
	data  []byte
}

func (h hostBuffer) Shape() tensor.Shape    { return h.shape }
func (h hostBuffer) DType() tensor.DataType { return h.dtype }
func (h hostBuffer) NumElements() int       { return h.shape.NumElements() }
func (h hostBuffer) Data() []byte           { return h.data }

type remote struct {
	hostBuffer
}

func (remote) Device() tensor.Device { return tensor.WebGPU }

type transposed struct {
	hostBuffer
}

func (transposed) Strides() []int { return []int{1, 2} }

type shapeOnly struct{}

func (shapeOnly) Shape() tensor.Shape    { return tensor.Shape{1} }
func (shapeOnly) DType() tensor.DataType { return tensor.Uint8 }
func (shapeOnly) NumElements() int       { return 1 }

func TestHostBytes(t *testing.T) {
	r := raw(t, tensor.Shape{2, 2}, tensor.Float32)
	copy(r.AsFloat32(), []float32{1, 2, 3, 4})

	b, err := HostBytes(r)
	require.NoError(t, err)
	assert.Len(t, b, 16)

	// Extra capacity is trimmed.
	b, err = HostBytes(hostBuffer{shape: tensor.Shape{2}, dtype: tensor.Uint8, data: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)
}

func TestHostBytes_Errors(t *testing.T) {
	buf := hostBuffer{shape: tensor.Shape{2, 2}, dtype: tensor.Uint8, data: make([]byte, 4)}

	_, err := HostBytes(remote{buf})
	assert.ErrorIs(t, err, ErrNotHostResident)

	_, err = HostBytes(shapeOnly{})
	assert.ErrorIs(t, err, ErrNotHostResident)

	_, err = HostBytes(transposed{buf})
	assert.ErrorIs(t, err, ErrNonContiguous)

	_, err = HostBytes(hostBuffer{shape: tensor.Shape{4}, dtype: tensor.Int32, data: make([]byte, 4)})
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestToRaw(t *testing.T) {
	r := raw(t, tensor.Shape{3}, tensor.Int32)
	got, err := ToRaw(r)
	require.NoError(t, err)
	assert.Same(t, r, got)

	buf := hostBuffer{shape: tensor.Shape{3}, dtype: tensor.Uint8, data: []byte{7, 8, 9}}
	got, err = ToRaw(buf)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3}, got.Shape())
	assert.Equal(t, tensor.Uint8, got.DType())
	assert.Equal(t, []byte{7, 8, 9}, got.Data())

	// The copy does not alias the source.
	buf.data[0] = 0
	assert.Equal(t, byte(7), got.Data()[0])

	_, err = ToRaw(shapeOnly{})
	assert.ErrorIs(t, err, ErrNotHostResident)
}
