// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package device moves batch tensors between compute devices.
//
// Example:
//
//	dev, release, err := device.Open("webgpu", device.DefaultOptions())
//	if err != nil {
//	    dev, release = device.CPU(), func() {}
//	}
//	defer release()
//	toGPU := collate.ToDevice(dev, collate.DeviceConfig{})
package device

import (
	"github.com/born-ml/collate/internal/device"
)

// Device is a transfer target.
type Device = device.Device

// Options configures accelerator transfers.
type Options = device.Options

// DefaultOptions returns non-blocking transfers.
func DefaultOptions() Options {
	return device.DefaultOptions()
}

// CPU returns the host device.
func CPU() Device {
	return device.CPU()
}

// Open returns the device named name ("cpu" or "webgpu") and a release
// function for the resources it holds.
func Open(name string, opts Options) (Device, func(), error) {
	return device.Open(name, opts)
}
