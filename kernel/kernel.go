// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package kernel provides the public API for building and calling
// elementwise kernels.
//
// A Template describes one elementwise operation: its parameters and the
// per-element statement. Binding a Template to a backend yields a Kernel;
// each call specializes the kernel to the live arguments' memory layout,
// memoizing compiled results per structural signature.
//
// Example:
//
//	gpu, err := webgpu.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gpu.Release()
//
//	saxpy, err := kernel.New(kernel.Template{
//	    Name: "saxpy",
//	    Args: []kernel.Arg{
//	        kernel.Vector(kernel.Float32, "z"),
//	        kernel.Scalar(kernel.Float32, "a"),
//	        kernel.Vector(kernel.Float32, "x"),
//	        kernel.Vector(kernel.Float32, "y"),
//	    },
//	    Operation: "z[z_i] = a * x[x_i] + y[y_i];",
//	}, gpu)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = saxpy.Call(z, float32(2), x, y)
package kernel

import (
	"github.com/born-ml/elwise/internal/kernel"
	"github.com/born-ml/elwise/internal/op"
)

// Template describes one elementwise operation.
type Template = op.Template

// Arg is one declared kernel parameter.
type Arg = op.Arg

// DataType is the element type of a kernel parameter.
type DataType = op.DataType

// Element type constants.
const (
	Float32 DataType = op.Float32
	Int32   DataType = op.Int32
	Uint32  DataType = op.Uint32
)

// Order selects the dimension traversal policy for strided kernels.
type Order = op.Order

// Traversal order constants.
const (
	// OrderAscending traverses dimensions in declared order.
	OrderAscending Order = op.OrderAscending
	// OrderDescending traverses dimensions in reverse declared order.
	OrderDescending Order = op.OrderDescending
	// OrderLayoutDriven picks the order from the canonical array's actual
	// stride pattern.
	OrderLayoutDriven Order = op.OrderLayoutDriven
)

// Vector declares an array parameter.
func Vector(dtype DataType, name string) Arg {
	return op.Vector(dtype, name)
}

// Scalar declares a scalar parameter.
func Scalar(dtype DataType, name string) Arg {
	return op.Scalar(dtype, name)
}

// Kernel is one bound operation template, safe for concurrent calls.
type Kernel = kernel.Kernel

// Option configures a Kernel at construction time.
type Option = kernel.Option

// CallOption is a modifier interleaved with positional call arguments.
type CallOption = kernel.CallOption

// New binds a template to a kernel dispatching through the given compiler.
var New = kernel.New

// OnRange restricts the call to flat indices [start, stop) with the given
// step. Negative steps walk backwards from start down to stop (exclusive).
var OnRange = kernel.OnRange

// OnSlice restricts the call to a Python-style slice of the canonical
// array's flat index space, with clamping.
var OnSlice = kernel.OnSlice

// OnStream submits the launch to the given stream instead of the adapter's
// default queue.
var OnStream = kernel.OnStream

// WithDebugBuffer supplies the probe counter buffer a Debug template
// requires.
var WithDebugBuffer = kernel.WithDebugBuffer

// Splay derives launch geometry covering n elements.
var Splay = kernel.Splay
