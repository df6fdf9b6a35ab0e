// Package device moves batch tensors between compute devices.
package device

import (
	"fmt"
	"strings"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/tensor"

	"github.com/born-ml/collate/internal/autograd"
	"github.com/born-ml/collate/internal/batch"
	"github.com/born-ml/collate/internal/shm"
)

// Device is a transfer target.
type Device interface {
	// Type returns the Born device tensors end up on.
	Type() tensor.Device
	// Transfer moves a to the device. Gradient flags are preserved.
	Transfer(a batch.Array) (batch.Array, error)
}

// Options configures accelerator transfers.
type Options struct {
	// NonBlocking leaves uploads queued instead of flushing after each one.
	NonBlocking bool
}

// DefaultOptions returns non-blocking transfers.
func DefaultOptions() Options {
	return Options{NonBlocking: true}
}

// cpuReadable is implemented by accelerator tensors that can be read back.
type cpuReadable interface {
	ToCPU() *tensor.RawTensor
}

// gradFlagged is implemented by accelerator tensors that track gradients.
type gradFlagged interface {
	RequiresGrad() bool
}

type cpuDevice struct {
	// backend binds read-back tensors that carried a gradient flag.
	backend tensor.Backend
}

// CPU returns the host device.
//
// Host RawTensors and host variables are returned unchanged. Shared-memory
// tensors are copied onto the heap and accelerator tensors are read back;
// read-back tensors that required gradients come back as variables on an
// autodiff CPU backend.
func CPU() Device {
	return cpuDevice{backend: autodiff.New(cpu.New())}
}

func (cpuDevice) Type() tensor.Device { return tensor.CPU }

func (d cpuDevice) Transfer(a batch.Array) (batch.Array, error) {
	switch v := a.(type) {
	case *tensor.RawTensor:
		if v.Device() == tensor.CPU {
			return v, nil
		}
	case *autograd.Variable:
		if v.Device() == tensor.CPU {
			return v, nil
		}
		raw, err := readBack(v.Array())
		if err != nil {
			return nil, err
		}
		return autograd.Wrap(raw, v.Backend(), v.RequiresGrad()), nil
	case *shm.Tensor:
		return v.Materialize()
	case cpuReadable:
		raw := v.ToCPU()
		if g, ok := a.(gradFlagged); ok && g.RequiresGrad() {
			return autograd.Wrap(raw, d.backend, true), nil
		}
		return raw, nil
	}
	return batch.ToRaw(a)
}

func readBack(a batch.Array) (*tensor.RawTensor, error) {
	if r, ok := a.(cpuReadable); ok {
		return r.ToCPU(), nil
	}
	return batch.ToRaw(a)
}

// Open returns the device named name ("cpu" or "webgpu") and a release
// function for the resources it holds.
func Open(name string, opts Options) (Device, func(), error) {
	switch strings.ToLower(name) {
	case "", "cpu":
		return CPU(), func() {}, nil
	case "webgpu", "gpu":
		return openWebGPU(opts)
	default:
		return nil, nil, fmt.Errorf("%w: %q", batch.ErrUnsupportedDevice, name)
	}
}
