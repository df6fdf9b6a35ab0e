//go:build unix

package transform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/collate/internal/batch"
	"github.com/born-ml/collate/internal/device"
	"github.com/born-ml/collate/internal/parallel"
	"github.com/born-ml/collate/internal/shm"
)

func TestStack_SharedMemory(t *testing.T) {
	cfg := StackConfig{
		SharedMemory: true,
		Parallel:     parallel.Config{Enabled: true, NumWorkers: 2},
	}

	out, err := Stack(cfg).Apply(tensors(
		f32(t, tensor.Shape{2}, 1, 2),
		f32(t, tensor.Shape{2}, 3, 4),
		f32(t, tensor.Shape{2}, 5, 6),
	))
	require.NoError(t, err)

	st, ok := out.(batch.Tensor).Array.(*shm.Tensor)
	require.True(t, ok, "want *shm.Tensor, got %T", out.(batch.Tensor).Array)
	defer st.Close()

	assert.Equal(t, tensor.Shape{3, 2}, st.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, floats(t, out))

	peer, err := shm.Attach(st.Descriptor())
	require.NoError(t, err)
	defer peer.Close()
	assert.Equal(t, st.Data(), peer.Data())
}

func TestCat_SharedMemoryMatchesBackend(t *testing.T) {
	in := tensors(
		i64(t, tensor.Shape{1, 3}, 1, 2, 3),
		i64(t, tensor.Shape{2, 3}, 4, 5, 6, 7, 8, 9),
	)

	viaBackend, err := Cat(DefaultStackConfig()).Apply(in)
	require.NoError(t, err)

	viaShared, err := Cat(StackConfig{SharedMemory: true}).Apply(in)
	require.NoError(t, err)
	defer viaShared.(batch.Tensor).Array.(*shm.Tensor).Close()

	assert.Equal(t, shapeOf(t, viaBackend), shapeOf(t, viaShared))
	assert.Equal(t, int64s(t, viaBackend), int64s(t, viaShared))
}

func TestStack_SharedInputsFeedNextStep(t *testing.T) {
	// A shared result is a host array, so it can be joined again.
	first, err := Stack(StackConfig{SharedMemory: true}).Apply(tensors(
		f32(t, tensor.Shape{1}, 1),
		f32(t, tensor.Shape{1}, 2),
	))
	require.NoError(t, err)
	defer first.(batch.Tensor).Array.(*shm.Tensor).Close()

	out, err := Cat(DefaultStackConfig()).Apply(batch.List{first, batch.NewTensor(f32(t, tensor.Shape{1, 1}, 3))})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 1}, shapeOf(t, out))
	assert.Equal(t, []float32{1, 2, 3}, floats(t, out))
}

func segmentFiles(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(shm.Dir(), "born-collate-*"))
	require.NoError(t, err)
	return len(matches)
}

func TestStack_SharedMemoryFailureClosesSegments(t *testing.T) {
	before := segmentFiles(t)

	_, err := Stack(StackConfig{SharedMemory: true}).Apply(batch.Map{
		"a": tensors(f32(t, tensor.Shape{2}, 1, 2), f32(t, tensor.Shape{2}, 3, 4)),
		"b": tensors(f32(t, tensor.Shape{2}, 1, 2), f32(t, tensor.Shape{3}, 3, 4, 5)),
	})

	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "b", se.Path)
	assert.Equal(t, before, segmentFiles(t))
}

func TestPipeline_ReleasesDroppedSegments(t *testing.T) {
	in := batch.Map{"x": tensors(f32(t, tensor.Shape{2}, 1, 2), f32(t, tensor.Shape{2}, 3, 4))}
	before := segmentFiles(t)

	out, err := Compose(
		Stack(StackConfig{SharedMemory: true}),
		ToDevice(device.CPU(), DeviceConfig{}),
	).Apply(in)
	require.NoError(t, err)
	_, isRaw := out.(batch.Map)["x"].(batch.Tensor).Array.(*tensor.RawTensor)
	assert.True(t, isRaw)
	assert.Equal(t, []float32{1, 2, 3, 4}, floats(t, out.(batch.Map)["x"]))
	assert.Equal(t, before, segmentFiles(t))

	_, err = Compose(
		Stack(StackConfig{SharedMemory: true}),
		NewFunc("fail", func(batch.Value) (batch.Value, error) { return nil, errors.New("boom") }),
	).Apply(in)
	require.Error(t, err)
	assert.Equal(t, before, segmentFiles(t))
}

func TestPipeline_KeepsResultSegments(t *testing.T) {
	before := segmentFiles(t)

	out, err := Compose(Stack(StackConfig{SharedMemory: true})).Apply(
		tensors(f32(t, tensor.Shape{1}, 1), f32(t, tensor.Shape{1}, 2)),
	)
	require.NoError(t, err)
	st := out.(batch.Tensor).Array.(*shm.Tensor)
	assert.Equal(t, before+1, segmentFiles(t))

	require.NoError(t, st.Close())
	_, err = os.Stat(st.Descriptor().Path)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, before, segmentFiles(t))
}
