package transform

import (
	"testing"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/collate/internal/autograd"
	"github.com/born-ml/collate/internal/batch"
)

func variableAt(t *testing.T, v batch.Value) *autograd.Variable {
	t.Helper()
	leaf, ok := v.(batch.Tensor)
	require.True(t, ok, "want tensor leaf, got %T", v)
	out, ok := leaf.Array.(*autograd.Variable)
	require.True(t, ok, "want *autograd.Variable, got %T", leaf.Array)
	return out
}

func TestToVariable(t *testing.T) {
	tracker := autograd.NewTracker(autodiff.New(cpu.New()))
	x := f32(t, tensor.Shape{2}, 1, 2)
	in := batch.Map{
		"x":     batch.NewTensor(x),
		"words": tensors(i64(t, tensor.Shape{1}, 7)),
		"id":    batch.Opaque{V: "sample-0"},
	}

	out, err := ToVariable(tracker, VariableConfig{}).Apply(in)
	require.NoError(t, err)

	m := out.(batch.Map)
	vx := variableAt(t, m["x"])
	assert.True(t, vx.RequiresGrad())
	assert.Same(t, x, vx.Raw())

	vw := variableAt(t, m["words"].(batch.List)[0])
	assert.True(t, vw.RequiresGrad())
	assert.Equal(t, batch.Opaque{V: "sample-0"}, m["id"])
}

func TestToVariable_Volatile(t *testing.T) {
	tracker := autograd.NewTracker(autodiff.New(cpu.New()))

	out, err := ToVariable(tracker, VariableConfig{Volatile: true}).Apply(batch.NewTensor(f32(t, tensor.Shape{1}, 1)))
	require.NoError(t, err)
	assert.False(t, variableAt(t, out).RequiresGrad())
}

func TestToVariable_AvoidKeys(t *testing.T) {
	tracker := autograd.NewTracker(autodiff.New(cpu.New()))
	label := i64(t, tensor.Shape{}, 3)

	out, err := ToVariable(tracker, VariableConfig{AvoidKeys: []string{"label"}}).Apply(batch.Map{
		"label": batch.NewTensor(label),
		"x":     batch.NewTensor(f32(t, tensor.Shape{1}, 1)),
	})
	require.NoError(t, err)

	m := out.(batch.Map)
	assert.Same(t, label, m["label"].(batch.Tensor).Array)
	variableAt(t, m["x"])
}

func TestCollatePipeline(t *testing.T) {
	backend := autodiff.New(cpu.New())
	p := Compose(
		Flatten(),
		Pad(PadConfig{AvoidKeys: []string{"label"}}),
		Stack(DefaultStackConfig()),
		ToVariable(autograd.NewTracker(backend), VariableConfig{AvoidKeys: []string{"label"}}),
	)

	in := batch.List{
		batch.Map{"x": batch.NewTensor(f32(t, tensor.Shape{2}, 1, 2)), "label": batch.NewTensor(i64(t, tensor.Shape{}, 0))},
		batch.Map{"x": batch.NewTensor(f32(t, tensor.Shape{3}, 3, 4, 5)), "label": batch.NewTensor(i64(t, tensor.Shape{}, 1))},
	}

	out, err := p.Apply(in)
	require.NoError(t, err)

	m := out.(batch.Map)
	vx := variableAt(t, m["x"])
	assert.Equal(t, tensor.Shape{2, 3}, vx.Shape())

	typed, err := autograd.TensorOf[float32, *autodiff.Backend[*cpu.Backend]](vx)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 0, 3, 4, 5}, typed.Data())
	assert.True(t, typed.RequiresGrad())

	assert.Equal(t, tensor.Shape{2}, shapeOf(t, m["label"]))
	assert.Equal(t, []int64{0, 1}, int64s(t, m["label"]))
}

// gpuArray is what an accelerator device hands back: no host bytes.
type gpuArray struct {
	batch.Array
}

func (gpuArray) Device() tensor.Device { return tensor.WebGPU }

type uploadDevice struct{}

func (uploadDevice) Type() tensor.Device { return tensor.WebGPU }

func (uploadDevice) Transfer(a batch.Array) (batch.Array, error) {
	return gpuArray{a}, nil
}

func TestToVariable_AfterDeviceTransfer(t *testing.T) {
	tracker := autograd.NewTracker(autodiff.New(cpu.New()))
	pipeline := Compose(
		Stack(DefaultStackConfig()),
		ToDevice(uploadDevice{}, DeviceConfig{}),
		ToVariable(tracker, VariableConfig{}),
	)

	out, err := pipeline.Apply(batch.Map{
		"x": tensors(f32(t, tensor.Shape{2}, 1, 2), f32(t, tensor.Shape{2}, 3, 4)),
	})
	require.NoError(t, err)

	v := variableAt(t, out.(batch.Map)["x"])
	assert.True(t, v.RequiresGrad())
	assert.Equal(t, tensor.WebGPU, v.Device())
	assert.Equal(t, tensor.Shape{2, 2}, v.Shape())
	_, onDevice := v.Array().(gpuArray)
	assert.True(t, onDevice)
}
