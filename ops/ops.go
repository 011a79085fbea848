// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ops provides prebuilt elementwise kernels for common array
// operations: fill, copy, linear combinations, binary and scalar
// arithmetic, unary functions, conditional selection, and ramps.
//
// Kernels are memoized per backend and element type, so repeated requests
// return the same bound kernel without recompiling.
package ops

import (
	"fmt"
	"sync"

	"github.com/born-ml/elwise/device"
	"github.com/born-ml/elwise/kernel"
)

type cacheKey struct {
	compiler device.Compiler
	id       string
}

var (
	mu      sync.Mutex
	kernels = map[cacheKey]*kernel.Kernel{}
)

// get returns the memoized kernel for (c, id), building it on first use.
func get(c device.Compiler, id string, build func() kernel.Template) (*kernel.Kernel, error) {
	mu.Lock()
	defer mu.Unlock()

	k, ok := kernels[cacheKey{c, id}]
	if ok {
		return k, nil
	}
	k, err := kernel.New(build(), c)
	if err != nil {
		return nil, err
	}
	kernels[cacheKey{c, id}] = k
	return k, nil
}

// Reset drops all memoized kernels. Intended for tests and for backends
// being torn down.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	kernels = map[cacheKey]*kernel.Kernel{}
}

// Fill returns a kernel setting every element of z to the scalar a.
// Call as Fill(...).Call(a, z).
func Fill(c device.Compiler, dtype kernel.DataType) (*kernel.Kernel, error) {
	return get(c, "fill_"+dtype.String(), func() kernel.Template {
		return kernel.Template{
			Name: "fill",
			Args: []kernel.Arg{
				kernel.Scalar(dtype, "a"),
				kernel.Vector(dtype, "z"),
			},
			Operation: "z[z_i] = a;",
		}
	})
}

// Copy returns a kernel copying src into dest, converting element types
// when they differ. Call as Copy(...).Call(dest, src).
func Copy(c device.Compiler, destType, srcType kernel.DataType) (*kernel.Kernel, error) {
	operation := "dest[dest_i] = src[src_i];"
	if destType != srcType {
		operation = fmt.Sprintf("dest[dest_i] = %s(src[src_i]);", destType.WGSL())
	}
	id := fmt.Sprintf("copy_%s_%s", destType, srcType)
	return get(c, id, func() kernel.Template {
		return kernel.Template{
			Name: "copy",
			Args: []kernel.Arg{
				kernel.Vector(destType, "dest"),
				kernel.Vector(srcType, "src"),
			},
			Operation: operation,
		}
	})
}

// AXPBYZ returns a kernel computing z = a*x + b*y.
// Call as AXPBYZ(...).Call(a, x, b, y, z).
func AXPBYZ(c device.Compiler, dtype kernel.DataType) (*kernel.Kernel, error) {
	return get(c, "axpbyz_"+dtype.String(), func() kernel.Template {
		return kernel.Template{
			Name: "axpbyz",
			Args: []kernel.Arg{
				kernel.Scalar(dtype, "a"),
				kernel.Vector(dtype, "x"),
				kernel.Scalar(dtype, "b"),
				kernel.Vector(dtype, "y"),
				kernel.Vector(dtype, "z"),
			},
			Operation: "z[z_i] = a * x[x_i] + b * y[y_i];",
		}
	})
}

// AXPBZ returns a kernel computing z = a*x + b for scalar a and b.
// Call as AXPBZ(...).Call(a, x, b, z).
func AXPBZ(c device.Compiler, dtype kernel.DataType) (*kernel.Kernel, error) {
	return get(c, "axpbz_"+dtype.String(), func() kernel.Template {
		return kernel.Template{
			Name: "axpb",
			Args: []kernel.Arg{
				kernel.Scalar(dtype, "a"),
				kernel.Vector(dtype, "x"),
				kernel.Scalar(dtype, "b"),
				kernel.Vector(dtype, "z"),
			},
			Operation: "z[z_i] = a * x[x_i] + b;",
		}
	})
}

// binaryOpNames maps infix operators to kernel names.
var binaryOpNames = map[string]string{
	"+": "add",
	"-": "sub",
	"*": "mul",
	"/": "div",
	"%": "mod",
}

// BinaryOp returns a kernel computing z = x <operator> y for one of the
// infix operators +, -, *, /, %.
// Call as BinaryOp(...).Call(x, y, z).
func BinaryOp(c device.Compiler, operator string, dtype kernel.DataType) (*kernel.Kernel, error) {
	name, ok := binaryOpNames[operator]
	if !ok {
		return nil, fmt.Errorf("ops: unsupported binary operator %q", operator)
	}
	return get(c, fmt.Sprintf("binary_%s_%s", name, dtype), func() kernel.Template {
		return kernel.Template{
			Name: name,
			Args: []kernel.Arg{
				kernel.Vector(dtype, "x"),
				kernel.Vector(dtype, "y"),
				kernel.Vector(dtype, "z"),
			},
			Operation: fmt.Sprintf("z[z_i] = x[x_i] %s y[y_i];", operator),
		}
	})
}

// ScalarOp returns a kernel computing z = x <operator> b for a scalar b.
// Call as ScalarOp(...).Call(x, b, z).
func ScalarOp(c device.Compiler, operator string, dtype kernel.DataType) (*kernel.Kernel, error) {
	name, ok := binaryOpNames[operator]
	if !ok {
		return nil, fmt.Errorf("ops: unsupported scalar operator %q", operator)
	}
	return get(c, fmt.Sprintf("scalar_%s_%s", name, dtype), func() kernel.Template {
		return kernel.Template{
			Name: "scalar_" + name,
			Args: []kernel.Arg{
				kernel.Vector(dtype, "x"),
				kernel.Scalar(dtype, "b"),
				kernel.Vector(dtype, "z"),
			},
			Operation: fmt.Sprintf("z[z_i] = x[x_i] %s b;", operator),
		}
	})
}

// RDivide returns a kernel computing z = a / y for a scalar numerator.
// Call as RDivide(...).Call(a, y, z).
func RDivide(c device.Compiler, dtype kernel.DataType) (*kernel.Kernel, error) {
	return get(c, "rdivide_"+dtype.String(), func() kernel.Template {
		return kernel.Template{
			Name: "rdivide",
			Args: []kernel.Arg{
				kernel.Scalar(dtype, "a"),
				kernel.Vector(dtype, "y"),
				kernel.Vector(dtype, "z"),
			},
			Operation: "z[z_i] = a / y[y_i];",
		}
	})
}

// UnaryFunc returns a kernel computing z = fn(y) for a WGSL builtin such as
// exp, log, sqrt, sin, cos, abs, floor, ceil. fn must be an identifier.
// Call as UnaryFunc(...).Call(y, z).
func UnaryFunc(c device.Compiler, fn string, dtype kernel.DataType) (*kernel.Kernel, error) {
	if !isIdentifier(fn) {
		return nil, fmt.Errorf("ops: function name %q is not an identifier", fn)
	}
	return get(c, fmt.Sprintf("unary_%s_%s", fn, dtype), func() kernel.Template {
		return kernel.Template{
			Name: "unary_" + fn,
			Args: []kernel.Arg{
				kernel.Vector(dtype, "y"),
				kernel.Vector(dtype, "z"),
			},
			Operation: fmt.Sprintf("z[z_i] = %s(y[y_i]);", fn),
		}
	})
}

// IfPositive returns a kernel computing z = crit > 0 ? thenv : elsev.
// Call as IfPositive(...).Call(crit, thenv, elsev, z).
func IfPositive(c device.Compiler, critType, dtype kernel.DataType) (*kernel.Kernel, error) {
	id := fmt.Sprintf("if_positive_%s_%s", critType, dtype)
	return get(c, id, func() kernel.Template {
		return kernel.Template{
			Name: "if_positive",
			Args: []kernel.Arg{
				kernel.Vector(critType, "crit"),
				kernel.Vector(dtype, "thenv"),
				kernel.Vector(dtype, "elsev"),
				kernel.Vector(dtype, "z"),
			},
			Operation: "z[z_i] = select(elsev[elsev_i], thenv[thenv_i], crit[crit_i] > 0);",
		}
	})
}

// Arange returns a kernel computing z = start + i*step over the element
// index. Call as Arange(...).Call(z, start, step).
func Arange(c device.Compiler, dtype kernel.DataType) (*kernel.Kernel, error) {
	return get(c, "arange_"+dtype.String(), func() kernel.Template {
		return kernel.Template{
			Name: "arange",
			Args: []kernel.Arg{
				kernel.Vector(dtype, "z"),
				kernel.Scalar(dtype, "start"),
				kernel.Scalar(dtype, "step"),
			},
			Operation: fmt.Sprintf("z[z_i] = start + %s(z_i) * step;", dtype.WGSL()),
		}
	})
}

// PowScalar returns a float32 kernel computing z = y^value for a scalar
// exponent. Call as PowScalar(...).Call(value, y, z).
func PowScalar(c device.Compiler) (*kernel.Kernel, error) {
	return get(c, "pow_scalar", func() kernel.Template {
		return kernel.Template{
			Name: "pow_scalar",
			Args: []kernel.Arg{
				kernel.Scalar(kernel.Float32, "value"),
				kernel.Vector(kernel.Float32, "y"),
				kernel.Vector(kernel.Float32, "z"),
			},
			Operation: "z[z_i] = pow(y[y_i], value);",
		}
	})
}

// PowArray returns a float32 kernel computing z = x^y elementwise.
// Call as PowArray(...).Call(x, y, z).
func PowArray(c device.Compiler) (*kernel.Kernel, error) {
	return get(c, "pow_array", func() kernel.Template {
		return kernel.Template{
			Name: "pow_array",
			Args: []kernel.Arg{
				kernel.Vector(kernel.Float32, "x"),
				kernel.Vector(kernel.Float32, "y"),
				kernel.Vector(kernel.Float32, "z"),
			},
			Operation: "z[z_i] = pow(x[x_i], y[y_i]);",
		}
	})
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
