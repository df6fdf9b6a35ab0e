// Package autograd attaches gradient-tracking metadata to batch tensors.
package autograd

import (
	"errors"
	"fmt"

	"github.com/born-ml/born/tensor"

	"github.com/born-ml/collate/internal/batch"
)

// Common errors.
var (
	ErrBackendMismatch = errors.New("variable bound to a different backend")
	ErrDTypeMismatch   = errors.New("variable has a different dtype")
)

// Variable is a tensor bound to a backend, usually an autodiff backend,
// together with its gradient flag. Host data is held as a RawTensor;
// accelerator tensors are kept on their device.
type Variable struct {
	array        batch.Array
	backend      tensor.Backend
	requiresGrad bool
}

// Shape returns the tensor's shape.
func (v *Variable) Shape() tensor.Shape { return v.array.Shape() }

// DType returns the tensor's data type.
func (v *Variable) DType() tensor.DataType { return v.array.DType() }

// Device returns the tensor's compute device.
func (v *Variable) Device() tensor.Device { return batch.DeviceOf(v.array) }

// NumElements returns the total number of elements.
func (v *Variable) NumElements() int { return v.array.NumElements() }

// Data returns the underlying bytes, or nil when the tensor is not on the host.
func (v *Variable) Data() []byte {
	if raw := v.Raw(); raw != nil {
		return raw.Data()
	}
	return nil
}

// Raw returns the wrapped host tensor, or nil for device-resident variables.
func (v *Variable) Raw() *tensor.RawTensor {
	if raw, ok := v.array.(*tensor.RawTensor); ok && raw.Device() == tensor.CPU {
		return raw
	}
	return nil
}

// Array returns the wrapped tensor wherever it lives.
func (v *Variable) Array() batch.Array { return v.array }

// Backend returns the backend the variable is bound to.
func (v *Variable) Backend() tensor.Backend { return v.backend }

// RequiresGrad reports whether gradients are tracked. It is false for
// volatile (inference-only) variables.
func (v *Variable) RequiresGrad() bool { return v.requiresGrad }

// String describes the variable without its data.
func (v *Variable) String() string {
	return fmt.Sprintf("Variable[%s]%v on %s/%s (requires_grad=%t)",
		v.DType(), v.Shape(), v.backend.Name(), v.Device(), v.requiresGrad)
}

// TensorOf returns v as a typed Born tensor on backend B.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	x, err := autograd.TensorOf[float32, *autodiff.Backend[*cpu.Backend]](v)
func TensorOf[T tensor.DType, B tensor.Backend](v *Variable) (*tensor.Tensor[T, B], error) {
	b, ok := v.backend.(B)
	if !ok {
		return nil, fmt.Errorf("%w: have %s (%T)", ErrBackendMismatch, v.backend.Name(), v.backend)
	}
	var zero T
	if want := dataTypeOf(zero); want != v.DType() {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrDTypeMismatch, v.DType(), want)
	}
	raw := v.Raw()
	if raw == nil {
		return nil, fmt.Errorf("%w: device %s", batch.ErrNotHostResident, v.Device())
	}
	t := tensor.New[T, B](raw, b)
	if v.requiresGrad {
		t = t.RequireGrad()
	}
	return t, nil
}

func dataTypeOf(x any) tensor.DataType {
	switch x.(type) {
	case float32:
		return tensor.Float32
	case float64:
		return tensor.Float64
	case int32:
		return tensor.Int32
	case int64:
		return tensor.Int64
	case uint8:
		return tensor.Uint8
	case bool:
		return tensor.Bool
	default:
		return -1
	}
}

// Tracker attaches gradient-tracking metadata to arrays.
type Tracker interface {
	Track(a batch.Array, requiresGrad bool) (batch.Array, error)
}

// BackendTracker binds arrays to a Born backend as Variables. Host arrays
// are converted to RawTensors; device-resident arrays stay where they are.
type BackendTracker struct {
	backend tensor.Backend
}

// NewTracker creates a tracker for backend, typically autodiff.New(cpu.New()).
func NewTracker(backend tensor.Backend) *BackendTracker {
	return &BackendTracker{backend: backend}
}

// Track wraps a. Variables are re-bound, keeping their data.
func (t *BackendTracker) Track(a batch.Array, requiresGrad bool) (batch.Array, error) {
	if v, ok := a.(*Variable); ok {
		a = v.array
	}
	if batch.DeviceOf(a) != tensor.CPU {
		return &Variable{array: a, backend: t.backend, requiresGrad: requiresGrad}, nil
	}
	raw, err := batch.ToRaw(a)
	if err != nil {
		return nil, err
	}
	return &Variable{array: raw, backend: t.backend, requiresGrad: requiresGrad}, nil
}

// Wrap builds a host Variable directly. The CPU device uses it to keep the
// gradient flag of tensors it reads back.
func Wrap(raw *tensor.RawTensor, backend tensor.Backend, requiresGrad bool) *Variable {
	return &Variable{array: raw, backend: backend, requiresGrad: requiresGrad}
}
