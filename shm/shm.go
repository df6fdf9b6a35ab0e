// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package shm exposes tensors that live in memory shared between processes.
//
// Stack and Cat with StackConfig.SharedMemory set return a *Tensor leaf.
// The producer sends its Descriptor to a consumer, which maps the same bytes
// read-only with Attach. The producer closes its Tensor once the consumer
// is done; that removes the segment.
//
// Example:
//
//	// producer
//	out, err := collate.Stack(collate.StackConfig{SharedMemory: true}).Apply(images)
//	st := out.(batch.Tensor).Array.(*shm.Tensor)
//	defer st.Close()
//	_ = json.NewEncoder(conn).Encode(st.Descriptor())
//
//	// consumer
//	var d shm.Descriptor
//	_ = json.NewDecoder(conn).Decode(&d)
//	view, err := shm.Attach(d)
//	defer view.Close()
package shm

import (
	"github.com/born-ml/born/tensor"

	"github.com/born-ml/collate/internal/shm"
)

// Tensor is a host tensor whose bytes live in a shared segment.
type Tensor = shm.Tensor

// Descriptor identifies a shared tensor across processes.
type Descriptor = shm.Descriptor

// Common errors.
var (
	ErrClosed      = shm.ErrClosed
	ErrInvalidSize = shm.ErrInvalidSize
)

// NewTensor allocates a writable, zeroed shared tensor.
func NewTensor(shape tensor.Shape, dtype tensor.DataType) (*Tensor, error) {
	return shm.NewTensor(shape, dtype)
}

// Attach maps the tensor described by d read-only.
func Attach(d Descriptor) (*Tensor, error) {
	return shm.Attach(d)
}

// Dir returns the directory segments are created in. It is empty on
// platforms without shared segments.
func Dir() string {
	return shm.Dir()
}
