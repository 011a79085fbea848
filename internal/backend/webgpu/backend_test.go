//go:build windows

package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/elwise/internal/device"
	"github.com/born-ml/elwise/internal/kernel"
	"github.com/born-ml/elwise/internal/op"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	if !IsAvailable() {
		t.Skip("WebGPU not available on this system")
	}
	b, err := New()
	require.NoError(t, err)
	t.Cleanup(b.Release)
	return b
}

func saxpyTemplate() op.Template {
	return op.Template{
		Name: "saxpy",
		Args: []op.Arg{
			op.Vector(op.Float32, "z"),
			op.Scalar(op.Float32, "a"),
			op.Vector(op.Float32, "x"),
			op.Vector(op.Float32, "y"),
		},
		Operation: "z[z_i] = a * x[x_i] + y[y_i];",
	}
}

func TestContiguousSaxpy(t *testing.T) {
	b := newTestBackend(t)

	k, err := kernel.New(saxpyTemplate(), b)
	require.NoError(t, err)

	n := 1024
	xs := make([]float32, n)
	ys := make([]float32, n)
	for i := range xs {
		xs[i] = float32(i)
		ys[i] = float32(n - i)
	}

	x, err := b.FromFloat32(xs, device.Shape{n})
	require.NoError(t, err)
	defer x.Release()
	y, err := b.FromFloat32(ys, device.Shape{n})
	require.NoError(t, err)
	defer y.Release()
	z, err := b.Zeros(device.Shape{n}, op.Float32)
	require.NoError(t, err)
	defer z.Release()

	require.NoError(t, k.Call(z, float32(2), x, y))

	got, err := z.Float32s()
	require.NoError(t, err)
	for i := range got {
		want := 2*xs[i] + ys[i]
		require.InDelta(t, want, got[i], 1e-5, "element %d", i)
	}
}

func TestStridedAdd(t *testing.T) {
	b := newTestBackend(t)

	tmpl := op.Template{
		Name: "add2",
		Args: []op.Arg{
			op.Vector(op.Float32, "z"),
			op.Vector(op.Float32, "x"),
			op.Vector(op.Float32, "y"),
		},
		Operation: "z[z_i] = x[x_i] + y[y_i];",
	}
	k, err := kernel.New(tmpl, b)
	require.NoError(t, err)

	rows, cols := 8, 16
	shape := device.Shape{rows, cols}

	xs := make([]float32, rows*cols)
	for i := range xs {
		xs[i] = float32(i)
	}
	// y holds the transposed data and declares column-major strides, so
	// y[i][j] equals x[i][j] logically while living at a different offset.
	ysT := make([]float32, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			ysT[j*rows+i] = xs[i*cols+j]
		}
	}

	x, err := b.FromFloat32(xs, shape)
	require.NoError(t, err)
	defer x.Release()
	y, err := b.FromFloat32(ysT, shape)
	require.NoError(t, err)
	defer y.Release()
	y.SetStrides(shape.ComputeColMajorStrides(4))
	z, err := b.Zeros(shape, op.Float32)
	require.NoError(t, err)
	defer z.Release()

	require.NoError(t, k.Call(z, x, y))

	got, err := z.Float32s()
	require.NoError(t, err)
	for i := range got {
		require.InDelta(t, 2*xs[i], got[i], 1e-5, "element %d", i)
	}
}

func TestRangedFill(t *testing.T) {
	b := newTestBackend(t)

	tmpl := op.Template{
		Name: "fill",
		Args: []op.Arg{
			op.Scalar(op.Float32, "a"),
			op.Vector(op.Float32, "z"),
		},
		Operation: "z[z_i] = a;",
	}
	k, err := kernel.New(tmpl, b)
	require.NoError(t, err)

	n := 64
	z, err := b.Zeros(device.Shape{n}, op.Float32)
	require.NoError(t, err)
	defer z.Release()

	require.NoError(t, k.Call(float32(7), z, kernel.OnRange(8, 24, 1)))

	got, err := z.Float32s()
	require.NoError(t, err)
	for i := range got {
		want := float32(0)
		if i >= 8 && i < 24 {
			want = 7
		}
		assert.Equal(t, want, got[i], "element %d", i)
	}
}

func TestDescendingRangeVisitsEachIndexOnce(t *testing.T) {
	b := newTestBackend(t)

	// Accumulating the loop value proves both halves of the property: a
	// second visit to any index would leave z[k] > k+1, a missed index
	// would leave z[k] == 0, and a wrong loop value shows up directly.
	tmpl := op.Template{
		Name: "mark",
		Args: []op.Arg{
			op.Vector(op.Float32, "z"),
		},
		Operation: "z[z_i] = z[z_i] + f32(i) + 1.0;",
	}
	k, err := kernel.New(tmpl, b)
	require.NoError(t, err)

	n := 64
	z, err := b.Zeros(device.Shape{n}, op.Float32)
	require.NoError(t, err)
	defer z.Release()

	require.NoError(t, k.Call(z, kernel.OnRange(n-1, -1, -1)))

	got, err := z.Float32s()
	require.NoError(t, err)
	for i := range got {
		assert.Equal(t, float32(i+1), got[i], "element %d", i)
	}
}

func TestStreamOrdering(t *testing.T) {
	b := newTestBackend(t)

	tmpl := op.Template{
		Name: "scale",
		Args: []op.Arg{
			op.Vector(op.Float32, "z"),
			op.Scalar(op.Float32, "a"),
		},
		Operation: "z[z_i] = z[z_i] * a;",
	}
	k, err := kernel.New(tmpl, b)
	require.NoError(t, err)

	n := 256
	data := make([]float32, n)
	for i := range data {
		data[i] = 1
	}
	z, err := b.FromFloat32(data, device.Shape{n})
	require.NoError(t, err)
	defer z.Release()

	s := b.Stream()
	require.NoError(t, k.Call(z, float32(2), kernel.OnStream(s)))
	require.NoError(t, k.Call(z, float32(3), kernel.OnStream(s)))
	require.NoError(t, s.Sync())

	got, err := z.Float32s()
	require.NoError(t, err)
	for i := range got {
		require.InDelta(t, 6.0, got[i], 1e-5, "element %d", i)
	}
}

func TestCompileRejectsBadSource(t *testing.T) {
	b := newTestBackend(t)

	tmpl := op.Template{
		Name: "broken",
		Args: []op.Arg{
			op.Vector(op.Float32, "z"),
		},
		Operation: "this is not wgsl;",
	}
	k, err := kernel.New(tmpl, b)
	require.NoError(t, err)

	n := 16
	z, err := b.Zeros(device.Shape{n}, op.Float32)
	require.NoError(t, err)
	defer z.Release()

	err = k.Call(z)
	assert.Error(t, err)
}
