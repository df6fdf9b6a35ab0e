package batch

import (
	"fmt"
	"slices"

	"github.com/born-ml/born/tensor"
)

type strided interface {
	Strides() []int
}

type placed interface {
	Device() tensor.Device
}

// DeviceOf returns the device a lives on. Arrays that do not report one are
// host arrays.
func DeviceOf(a Array) tensor.Device {
	if p, ok := a.(placed); ok {
		return p.Device()
	}
	return tensor.CPU
}

// HostBytes returns the contiguous row-major bytes of a, trimmed to its size.
func HostBytes(a Array) ([]byte, error) {
	if p, ok := a.(placed); ok && p.Device() != tensor.CPU {
		return nil, fmt.Errorf("%w: device %s", ErrNotHostResident, p.Device())
	}
	h, ok := a.(HostArray)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotHostResident, a)
	}
	shape := a.Shape()
	if s, ok := a.(strided); ok && len(shape) > 0 && !slices.Equal(s.Strides(), shape.ComputeStrides()) {
		return nil, fmt.Errorf("%w: shape %v strides %v", ErrNonContiguous, shape, s.Strides())
	}
	size := a.NumElements() * a.DType().Size()
	data := h.Data()
	if len(data) < size {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(data), size)
	}
	return data[:size], nil
}

// ToRaw returns a as a host *tensor.RawTensor, copying when a is some other
// host array.
func ToRaw(a Array) (*tensor.RawTensor, error) {
	if raw, ok := a.(*tensor.RawTensor); ok && raw.Device() == tensor.CPU {
		return raw, nil
	}
	src, err := HostBytes(a)
	if err != nil {
		return nil, err
	}
	raw, err := tensor.NewRaw(a.Shape().Clone(), a.DType(), tensor.CPU)
	if err != nil {
		return nil, err
	}
	copy(raw.Data(), src)
	return raw, nil
}
