// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autograd binds batch tensors to a Born backend for gradient
// tracking.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	wrap := collate.ToVariable(autograd.NewTracker(backend), collate.VariableConfig{})
//	out, _ := wrap.Apply(b)
//	v := out.(batch.Map)["image"].(batch.Tensor).Array.(*autograd.Variable)
//	x, _ := autograd.TensorOf[float32, *autodiff.Backend[*cpu.Backend]](v)
package autograd

import (
	"github.com/born-ml/born/tensor"

	"github.com/born-ml/collate/internal/autograd"
)

// Variable is a host tensor bound to a backend with its gradient flag.
type Variable = autograd.Variable

// Tracker attaches gradient-tracking metadata to arrays.
type Tracker = autograd.Tracker

// BackendTracker binds host arrays to a Born backend as Variables.
type BackendTracker = autograd.BackendTracker

// Common errors.
var (
	ErrBackendMismatch = autograd.ErrBackendMismatch
	ErrDTypeMismatch   = autograd.ErrDTypeMismatch
)

// NewTracker creates a tracker for backend, typically autodiff.New(cpu.New()).
func NewTracker(backend tensor.Backend) *BackendTracker {
	return autograd.NewTracker(backend)
}

// TensorOf returns v as a typed Born tensor on backend B.
func TensorOf[T tensor.DType, B tensor.Backend](v *Variable) (*tensor.Tensor[T, B], error) {
	return autograd.TensorOf[T, B](v)
}
