// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/elwise/device"
	"github.com/born-ml/elwise/kernel"
)

type fakeCompiler struct{ compiled int }

func (c *fakeCompiler) Compile(source string) (device.Executable, error) {
	c.compiled++
	return fakeExecutable{}, nil
}

type fakeExecutable struct{}

func (fakeExecutable) Entry(name string) (device.Launchable, error) {
	return fakeLaunchable{}, nil
}

type fakeLaunchable struct{}

func (fakeLaunchable) Launch(grid, block device.Dim3, stream device.Stream, args []device.LaunchArg) error {
	return nil
}

type hostArray struct {
	shape   device.Shape
	strides []int
}

func (h *hostArray) ByteSize() int       { return h.shape.NumElements() * 4 }
func (h *hostArray) Shape() device.Shape { return h.shape }
func (h *hostArray) Strides() []int      { return h.strides }
func (h *hostArray) ItemSize() int       { return 4 }
func (h *hostArray) SetStrides(s []int)  { h.strides = s }
func (h *hostArray) Geometry() (grid, block device.Dim3) {
	return kernel.Splay(h.shape.NumElements())
}

func contiguous(shape device.Shape) *hostArray {
	return &hostArray{shape: shape, strides: shape.ComputeStrides(4)}
}

func TestMemoizationPerCompilerAndType(t *testing.T) {
	t.Cleanup(Reset)
	c1 := &fakeCompiler{}
	c2 := &fakeCompiler{}

	a, err := Fill(c1, kernel.Float32)
	require.NoError(t, err)
	b, err := Fill(c1, kernel.Float32)
	require.NoError(t, err)
	assert.Same(t, a, b, "same backend and type share one kernel")

	other, err := Fill(c1, kernel.Int32)
	require.NoError(t, err)
	assert.NotSame(t, a, other)

	elsewhere, err := Fill(c2, kernel.Float32)
	require.NoError(t, err)
	assert.NotSame(t, a, elsewhere, "kernels are bound per backend")
}

func TestFillSource(t *testing.T) {
	t.Cleanup(Reset)
	k, err := Fill(&fakeCompiler{}, kernel.Float32)
	require.NoError(t, err)

	src, err := k.Source(float32(7), contiguous(device.Shape{16}))
	require.NoError(t, err)
	assert.Contains(t, src, "z[z_i] = a;")
	assert.Contains(t, src, "fn fill(")
}

func TestCopyConverts(t *testing.T) {
	t.Cleanup(Reset)
	same, err := Copy(&fakeCompiler{}, kernel.Float32, kernel.Float32)
	require.NoError(t, err)
	assert.Equal(t, "dest[dest_i] = src[src_i];", same.Template().Operation)

	convert, err := Copy(&fakeCompiler{}, kernel.Float32, kernel.Int32)
	require.NoError(t, err)
	assert.Equal(t, "dest[dest_i] = f32(src[src_i]);", convert.Template().Operation)
}

func TestBinaryOp(t *testing.T) {
	t.Cleanup(Reset)
	c := &fakeCompiler{}

	add, err := BinaryOp(c, "+", kernel.Float32)
	require.NoError(t, err)
	assert.Equal(t, "add", add.Template().Name)
	assert.Equal(t, "z[z_i] = x[x_i] + y[y_i];", add.Template().Operation)

	_, err = BinaryOp(c, "**", kernel.Float32)
	assert.Error(t, err)
}

func TestScalarOp(t *testing.T) {
	t.Cleanup(Reset)
	mul, err := ScalarOp(&fakeCompiler{}, "*", kernel.Float32)
	require.NoError(t, err)
	assert.Equal(t, "z[z_i] = x[x_i] * b;", mul.Template().Operation)
}

func TestUnaryFuncRejectsNonIdentifiers(t *testing.T) {
	t.Cleanup(Reset)
	c := &fakeCompiler{}

	exp, err := UnaryFunc(c, "exp", kernel.Float32)
	require.NoError(t, err)
	assert.Equal(t, "z[z_i] = exp(y[y_i]);", exp.Template().Operation)

	_, err = UnaryFunc(c, "exp(); evil", kernel.Float32)
	assert.Error(t, err)
	_, err = UnaryFunc(c, "", kernel.Float32)
	assert.Error(t, err)
	_, err = UnaryFunc(c, "2log", kernel.Float32)
	assert.Error(t, err)
}

func TestIfPositiveUsesSelect(t *testing.T) {
	t.Cleanup(Reset)
	k, err := IfPositive(&fakeCompiler{}, kernel.Float32, kernel.Float32)
	require.NoError(t, err)
	assert.Contains(t, k.Template().Operation, "select(")
}

func TestArangeCastsIndex(t *testing.T) {
	t.Cleanup(Reset)
	k, err := Arange(&fakeCompiler{}, kernel.Float32)
	require.NoError(t, err)
	assert.Equal(t, "z[z_i] = start + f32(z_i) * step;", k.Template().Operation)
}

func TestAXPBYZEndToEnd(t *testing.T) {
	t.Cleanup(Reset)
	c := &fakeCompiler{}
	k, err := AXPBYZ(c, kernel.Float32)
	require.NoError(t, err)

	shape := device.Shape{32}
	err = k.Call(float32(2), contiguous(shape), float32(3), contiguous(shape), contiguous(shape))
	require.NoError(t, err)
	assert.Equal(t, 1, c.compiled)

	// Second call reuses the specialization.
	err = k.Call(float32(2), contiguous(shape), float32(3), contiguous(shape), contiguous(shape))
	require.NoError(t, err)
	assert.Equal(t, 1, c.compiled)
}

func TestPowKernels(t *testing.T) {
	t.Cleanup(Reset)
	c := &fakeCompiler{}

	scalar, err := PowScalar(c)
	require.NoError(t, err)
	assert.Contains(t, scalar.Template().Operation, "pow(y[y_i], value)")

	array, err := PowArray(c)
	require.NoError(t, err)
	assert.Contains(t, array.Template().Operation, "pow(x[x_i], y[y_i])")
}
