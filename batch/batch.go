// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package batch provides the value tree that collation transforms operate on.
//
// A batch is a Map, a List, a Tensor leaf or an Opaque leaf. Of builds a
// tree from plain Go values:
//
//	sample := batch.Of(map[string]any{
//	    "image": raw,           // *tensor.RawTensor
//	    "label": labelRaw,
//	    "id":    "sample-0001", // kept as Opaque
//	})
package batch

import (
	"github.com/born-ml/born/tensor"

	"github.com/born-ml/collate/internal/batch"
)

// Value is a node of a batch tree.
type Value = batch.Value

// Kind identifies the variant held by a Value.
type Kind = batch.Kind

// Value variants.
const (
	KindMap    = batch.KindMap
	KindList   = batch.KindList
	KindTensor = batch.KindTensor
	KindOpaque = batch.KindOpaque
)

// Map is a mapping from names to values.
type Map = batch.Map

// List is an ordered sequence of values.
type List = batch.List

// Tensor is a leaf holding a tensor-like array.
type Tensor = batch.Tensor

// Opaque is a leaf holding any value collation does not interpret.
type Opaque = batch.Opaque

// Array is a tensor-like value.
type Array = batch.Array

// HostArray is an Array whose contiguous bytes live in host memory.
type HostArray = batch.HostArray

// Path locates a node in a batch tree.
type Path = batch.Path

// Common errors.
var (
	ErrMixedList         = batch.ErrMixedList
	ErrNotHostResident   = batch.ErrNotHostResident
	ErrNonContiguous     = batch.ErrNonContiguous
	ErrUnsupportedDevice = batch.ErrUnsupportedDevice
)

// Of converts plain Go values into a batch tree.
func Of(x any) Value {
	return batch.Of(x)
}

// NewTensor wraps an array as a batch leaf.
func NewTensor(a Array) Tensor {
	return batch.NewTensor(a)
}

// ToRaw returns a as a host *tensor.RawTensor, copying when needed.
func ToRaw(a Array) (*tensor.RawTensor, error) {
	return batch.ToRaw(a)
}
