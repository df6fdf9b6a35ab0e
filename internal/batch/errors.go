package batch

import "errors"

// Common errors.
var (
	ErrMixedList         = errors.New("tensor list holds non-tensor values")
	ErrNotHostResident   = errors.New("tensor data is not host resident")
	ErrNonContiguous     = errors.New("tensor data is not contiguous")
	ErrShortBuffer       = errors.New("tensor data shorter than its shape")
	ErrUnsupportedLeaf   = errors.New("unsupported leaf")
	ErrUnsupportedDevice = errors.New("unsupported device")
)
