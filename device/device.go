// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package device provides the public device abstraction for the elwise
// kernel engine: launch geometry, streams, buffers, and the array layout
// interface that backend adapters implement.
package device

import (
	"github.com/born-ml/elwise/internal/device"
)

// Shape represents the dimensions of an array.
// Example: Shape{2, 3, 4} represents a 3D array with dimensions 2×3×4.
type Shape = device.Shape

// Dim3 represents 3D dimensions for grid and block configurations.
type Dim3 = device.Dim3

// Stream is an ordered execution queue. A nil Stream means the adapter's
// default queue.
type Stream = device.Stream

// Buffer is an opaque device allocation.
type Buffer = device.Buffer

// Array is a Buffer that exposes its memory layout: shape, byte strides,
// item size, and precomputed launch geometry.
type Array = device.Array

// LaunchArg is one packed kernel argument.
type LaunchArg = device.LaunchArg

// Compiler turns kernel source text into an executable module.
type Compiler = device.Compiler

// Executable is a compiled module from which named entry points can be
// retrieved.
type Executable = device.Executable

// Launchable is a kernel entry point.
type Launchable = device.Launchable

// Error types surfaced by kernel calls.
type (
	// ShapeMismatchError reports array arguments whose shapes disagree.
	ShapeMismatchError = device.ShapeMismatchError
	// InvalidGeometryError reports launch geometry the strided traversal
	// cannot honor.
	InvalidGeometryError = device.InvalidGeometryError
	// CallModifierError reports an invalid call modifier combination.
	CallModifierError = device.CallModifierError
	// CompileError wraps a backend compilation failure together with the
	// generated source.
	CompileError = device.CompileError
)
