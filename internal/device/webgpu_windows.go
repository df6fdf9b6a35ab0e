//go:build windows

package device

import (
	"fmt"

	"github.com/born-ml/born/backend/webgpu"
	"github.com/born-ml/born/tensor"

	"github.com/born-ml/collate/internal/autograd"
	"github.com/born-ml/collate/internal/batch"
)

// WebGPU uploads host tensors through a Born WebGPU backend.
type WebGPU struct {
	backend *webgpu.Backend
	opts    Options
}

// NewWebGPU creates a transfer target on backend.
func NewWebGPU(backend *webgpu.Backend, opts Options) *WebGPU {
	return &WebGPU{backend: backend, opts: opts}
}

// Type returns tensor.WebGPU.
func (w *WebGPU) Type() tensor.Device { return tensor.WebGPU }

// Transfer uploads a. Variables keep their gradient flag on the GPU tensor.
func (w *WebGPU) Transfer(a batch.Array) (batch.Array, error) {
	if _, ok := a.(cpuReadable); ok {
		return a, nil
	}

	requiresGrad := false
	if v, ok := a.(*autograd.Variable); ok {
		if _, onDevice := v.Array().(cpuReadable); onDevice {
			return v, nil
		}
		requiresGrad = v.RequiresGrad()
		a = v.Array()
	}
	raw, err := batch.ToRaw(a)
	if err != nil {
		return nil, err
	}

	out, err := w.upload(raw, requiresGrad)
	if err != nil {
		return nil, err
	}
	if !w.opts.NonBlocking {
		w.backend.FlushCommands()
	}
	return out, nil
}

// upload converts the backend's panics into errors.
func (w *WebGPU) upload(raw *tensor.RawTensor, requiresGrad bool) (out batch.Array, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("webgpu upload of %s%v: %v", raw.DType(), raw.Shape(), r)
		}
	}()
	g := w.backend.FromRawTensor(raw)
	if requiresGrad {
		g = g.SetRequiresGrad(true)
	}
	return g, nil
}

func openWebGPU(opts Options) (Device, func(), error) {
	if !webgpu.IsAvailable() {
		return nil, nil, fmt.Errorf("%w: no WebGPU adapter", batch.ErrUnsupportedDevice)
	}
	backend, err := webgpu.New()
	if err != nil {
		return nil, nil, fmt.Errorf("webgpu: %w", err)
	}
	return NewWebGPU(backend, opts), backend.Release, nil
}
