// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package collate assembles training batches for the Born ML framework.
//
// # Overview
//
// A data loader yields one record per sample: a nested map of named
// tensors. Collation turns a list of such records into a single batch
// by chaining small transforms:
//   - Flatten inverts a list of maps into a map of lists
//   - Pad grows tensor lists to a common shape (ranks 1 to 3)
//   - Stack and Cat join tensor lists along the leading dimension
//   - ToDevice moves tensors to a compute device
//   - ToVariable binds tensors to an autodiff backend
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/born/autodiff"
//	    "github.com/born-ml/born/backend/cpu"
//	    "github.com/born-ml/collate"
//	    "github.com/born-ml/collate/autograd"
//	    "github.com/born-ml/collate/batch"
//	)
//
//	func main() {
//	    pipeline := collate.Compose(
//	        collate.Flatten(),
//	        collate.Pad(collate.PadConfig{AvoidKeys: []string{"label"}}),
//	        collate.Stack(collate.DefaultStackConfig()),
//	        collate.ToVariable(autograd.NewTracker(autodiff.New(cpu.New())), collate.VariableConfig{}),
//	    )
//
//	    out, err := pipeline.Apply(batch.List{sample0, sample1})
//	}
//
// # Errors
//
// Transforms never panic on bad input. Shape, rank and dtype problems are
// reported as *ShapeError, which carries the offending path and shapes and
// wraps one of the sentinel errors:
//
//	var se *collate.ShapeError
//	if errors.As(err, &se) {
//	    log.Printf("%s at %s: got %v, want %v", se.Op, se.Path, se.Got, se.Want)
//	}
//
// # Shared Memory
//
// With StackConfig.SharedMemory set, Stack and Cat write their result into
// a shared-memory segment (unix only). The leaf holds a *shm.Tensor from
// package github.com/born-ml/collate/shm; its Descriptor can be sent to
// another process, which maps the same bytes with shm.Attach. A Pipeline
// closes segments that its own later steps drop, so only segments in the
// returned batch stay open.
package collate
