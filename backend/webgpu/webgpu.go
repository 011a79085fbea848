//go:build windows

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for the elwise kernel engine.
//
// WebGPU is a cross-platform graphics and compute API. The backend compiles
// generated WGSL at runtime and dispatches on the device queue.
//
// Example:
//
//	import (
//	    "github.com/born-ml/elwise/backend/webgpu"
//	    "github.com/born-ml/elwise/kernel"
//	)
//
//	func main() {
//	    gpu, err := webgpu.New()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer gpu.Release()
//
//	    x, _ := gpu.FromFloat32(data, device.Shape{1024})
//	    ...
//	}
package webgpu

import (
	"github.com/born-ml/elwise/device"
	internalwebgpu "github.com/born-ml/elwise/internal/backend/webgpu"
)

// Backend owns the WebGPU device and implements the engine's Compiler
// interface.
type Backend = internalwebgpu.Backend

// Array is a device allocation with layout metadata; kernel calls classify
// its contiguity and index it per dimension.
type Array = internalwebgpu.Array

// Buffer is an opaque device allocation.
type Buffer = internalwebgpu.Buffer

// Stream is an ordered execution queue on one Backend.
type Stream = internalwebgpu.Stream

// Compile-time checks against the engine's device interfaces.
var (
	_ device.Compiler = (*Backend)(nil)
	_ device.Array    = (*Array)(nil)
	_ device.Stream   = (*Stream)(nil)
)

// New creates a WebGPU backend on the highest-performance available adapter.
//
// Call Release() when done to free GPU resources. Returns an error if WebGPU
// initialization fails (e.g., no compatible GPU).
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
//
// It attempts to initialize a WebGPU adapter to verify that a compatible GPU
// and drivers are present.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
