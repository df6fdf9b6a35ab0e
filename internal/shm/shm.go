// Package shm allocates tensor buffers in memory shared between processes.
//
// A batch-assembly worker creates a Tensor, writes into Data() directly and
// hands the Descriptor to the consumer, which maps the same bytes with Attach.
package shm

import (
	"errors"
	"fmt"

	"github.com/born-ml/born/tensor"
	"github.com/oklog/ulid/v2"

	"github.com/born-ml/collate/internal/batch"
)

// Common errors.
var (
	ErrClosed      = errors.New("shared segment closed")
	ErrInvalidSize = errors.New("invalid shared segment size")
)

// namePrefix prefixes every segment file created by this package.
const namePrefix = "born-collate-"

func newName() string {
	return namePrefix + ulid.Make().String()
}

// Descriptor identifies a shared tensor across processes.
type Descriptor struct {
	Path  string `json:"path" yaml:"path"`
	Shape []int  `json:"shape" yaml:"shape"`
	DType string `json:"dtype" yaml:"dtype"`
}

// Tensor is a host tensor whose bytes live in a shared segment.
type Tensor struct {
	seg   *Segment
	shape tensor.Shape
	dtype tensor.DataType
}

// NewTensor allocates a writable shared tensor. Its memory is zeroed.
func NewTensor(shape tensor.Shape, dtype tensor.DataType) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	seg, err := Create(shape.NumElements() * dtype.Size())
	if err != nil {
		return nil, err
	}
	return &Tensor{seg: seg, shape: shape.Clone(), dtype: dtype}, nil
}

// Attach maps the tensor described by d read-only.
func Attach(d Descriptor) (*Tensor, error) {
	dtype, err := batch.ParseDataType(d.DType)
	if err != nil {
		return nil, err
	}
	shape := tensor.Shape(d.Shape).Clone()
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	seg, err := Open(d.Path, shape.NumElements()*dtype.Size())
	if err != nil {
		return nil, err
	}
	return &Tensor{seg: seg, shape: shape, dtype: dtype}, nil
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() tensor.Shape { return t.shape }

// DType returns the tensor's data type.
func (t *Tensor) DType() tensor.DataType { return t.dtype }

// Device returns tensor.CPU; shared segments are host memory.
func (t *Tensor) Device() tensor.Device { return tensor.CPU }

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int { return t.shape.NumElements() }

// Data returns the mapped bytes. Attached tensors are mapped read-only.
func (t *Tensor) Data() []byte { return t.seg.Bytes() }

// Descriptor returns what another process needs to Attach this tensor.
func (t *Tensor) Descriptor() Descriptor {
	return Descriptor{
		Path:  t.seg.Path(),
		Shape: append([]int(nil), t.shape...),
		DType: t.dtype.String(),
	}
}

// Materialize copies the shared bytes into a heap RawTensor.
func (t *Tensor) Materialize() (*tensor.RawTensor, error) {
	if t.seg.Bytes() == nil {
		return nil, ErrClosed
	}
	raw, err := tensor.NewRaw(t.shape.Clone(), t.dtype, tensor.CPU)
	if err != nil {
		return nil, err
	}
	copy(raw.Data(), t.seg.Bytes())
	return raw, nil
}

// Close unmaps the segment. The creator also removes it.
func (t *Tensor) Close() error {
	return t.seg.Close()
}

// String describes the tensor without its data.
func (t *Tensor) String() string {
	return fmt.Sprintf("SharedTensor[%s]%v at %s", t.dtype, t.shape, t.seg.Path())
}
