package transform

import (
	"errors"
	"fmt"

	"github.com/born-ml/born/tensor"
)

// Common errors.
var (
	ErrUnsupportedRank = errors.New("unsupported tensor rank")
	ErrRankMismatch    = errors.New("tensor ranks differ")
	ErrShapeMismatch   = errors.New("tensor shapes differ")
	ErrDTypeMismatch   = errors.New("tensor dtypes differ")
	ErrBackendRejected = errors.New("backend rejected tensors")
	ErrMissingKey      = errors.New("sample is missing a key")
)

// ShapeError reports the tensor that stopped a collation step.
type ShapeError struct {
	Op    string       // Transform that failed (e.g., "pad", "stack").
	Path  string       // Location in the batch tree.
	Index int          // Offending element within the tensor list.
	Want  tensor.Shape // Reference shape (first element or padded maximum).
	Got   tensor.Shape // Offending element's shape.
	Err   error        // Underlying cause.
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s %s: element %d has shape %v, want %v: %v",
		e.Op, e.Path, e.Index, []int(e.Got), []int(e.Want), e.Err)
}

// Unwrap returns the underlying cause.
func (e *ShapeError) Unwrap() error {
	return e.Err
}
