// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package collate

import (
	"github.com/rs/zerolog"

	"github.com/born-ml/collate/internal/autograd"
	"github.com/born-ml/collate/internal/batch"
	"github.com/born-ml/collate/internal/config"
	"github.com/born-ml/collate/internal/device"
	"github.com/born-ml/collate/internal/transform"
)

// Transform maps one batch value to the next.
type Transform = transform.Transform

// Pipeline applies transforms in order. A Pipeline is itself a Transform.
type Pipeline = transform.Pipeline

// Func adapts a function to the Transform interface.
type Func = transform.Func

// ShapeError reports the tensor that stopped a collation step.
type ShapeError = transform.ShapeError

// Transform configurations.
type (
	PadConfig      = transform.PadConfig
	StackConfig    = transform.StackConfig
	DeviceConfig   = transform.DeviceConfig
	VariableConfig = transform.VariableConfig
)

// Common errors.
var (
	ErrUnsupportedRank = transform.ErrUnsupportedRank
	ErrRankMismatch    = transform.ErrRankMismatch
	ErrShapeMismatch   = transform.ErrShapeMismatch
	ErrDTypeMismatch   = transform.ErrDTypeMismatch
	ErrBackendRejected = transform.ErrBackendRejected
	ErrMissingKey      = transform.ErrMissingKey
)

// Compose chains transforms into a pipeline.
func Compose(transforms ...Transform) *Pipeline {
	return transform.Compose(transforms...)
}

// NewFunc names fn as a Transform.
func NewFunc(name string, fn func(batch.Value) (batch.Value, error)) Func {
	return transform.NewFunc(name, fn)
}

// Flatten inverts a list of per-sample maps into a map of per-key lists.
func Flatten() Transform {
	return transform.Flatten()
}

// DefaultPadConfig pads with zeros.
func DefaultPadConfig() PadConfig {
	return transform.DefaultPadConfig()
}

// Pad grows every tensor list to its elementwise maximum shape.
func Pad(cfg PadConfig) Transform {
	return transform.Pad(cfg)
}

// DefaultStackConfig uses the Born CPU backend without shared memory.
func DefaultStackConfig() StackConfig {
	return transform.DefaultStackConfig()
}

// Stack joins every tensor list along a new leading dimension.
func Stack(cfg StackConfig) Transform {
	return transform.Stack(cfg)
}

// Cat concatenates every tensor list along its leading dimension.
func Cat(cfg StackConfig) Transform {
	return transform.Cat(cfg)
}

// ToDevice moves every tensor in the batch to dev.
func ToDevice(dev device.Device, cfg DeviceConfig) Transform {
	return transform.ToDevice(dev, cfg)
}

// ToVariable wraps every tensor in the batch with tracker. Set
// VariableConfig.Volatile for inference-only batches.
func ToVariable(tracker autograd.Tracker, cfg VariableConfig) Transform {
	return transform.ToVariable(tracker, cfg)
}

// LoadPipeline builds a pipeline from a YAML file. The release function
// frees devices the pipeline opened.
func LoadPipeline(path string, logger zerolog.Logger) (*Pipeline, func(), error) {
	f, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return config.Build(f, logger)
}
