package emit

import (
	"strings"
	"testing"

	"github.com/born-ml/elwise/internal/device"
	"github.com/born-ml/elwise/internal/layout"
	"github.com/born-ml/elwise/internal/op"
	"github.com/born-ml/elwise/internal/plan"
)

func saxpy() op.Template {
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

func wantContains(t *testing.T, src string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(src, w) {
			t.Errorf("generated source missing %q:\n%s", w, src)
		}
	}
}

func TestFastBindingsAndParams(t *testing.T) {
	tmpl := saxpy()
	src, conv := Fast(&tmpl)

	wantContains(t, src,
		"@group(0) @binding(0) var<storage, read_write> z: array<f32>;",
		"@group(0) @binding(1) var<storage, read_write> x: array<f32>;",
		"@group(0) @binding(2) var<storage, read_write> y: array<f32>;",
		"@group(0) @binding(3) var<uniform> params: Params;",
		"a: f32,",
		"n: u32,",
		"let a: f32 = params.a;",
		"let n: u32 = params.n;",
	)
	if conv.Entry != "saxpy" {
		t.Errorf("Entry = %q, want saxpy", conv.Entry)
	}
	if conv.WorkgroupSize != DefaultWorkgroupSize {
		t.Errorf("WorkgroupSize = %d, want %d", conv.WorkgroupSize, DefaultWorkgroupSize)
	}
	if conv.DebugBinding {
		t.Error("fast path must not require a debug binding")
	}
}

func TestFastLoopAndAliases(t *testing.T) {
	tmpl := saxpy()
	src, _ := Fast(&tmpl)

	wantContains(t, src,
		"@compute @workgroup_size(256)",
		"for (var i: u32 = _cta_start + _tid; i < n; i += total_threads) {",
		"let z_i = i;",
		"let x_i = i;",
		"let y_i = i;",
		"z[z_i] = a * x[x_i] + y[y_i];",
	)
}

func TestFastIsDeterministic(t *testing.T) {
	tmpl := saxpy()
	first, _ := Fast(&tmpl)
	second, _ := Fast(&tmpl)
	if first != second {
		t.Error("fast-path emission is not deterministic")
	}
}

func TestFastRanged(t *testing.T) {
	tmpl := saxpy()
	tmpl.Ranged = true
	src, _ := Fast(&tmpl)

	wantContains(t, src,
		"start: i32,",
		"stop: i32,",
		"step: i32,",
		"if (step < 0) {",
		"for (var i: i32 = start + i32(_cta_start + _tid) * step; i > stop; i += i32(total_threads) * step) {",
		"for (var i: i32 = start + i32(_cta_start + _tid) * step; i < stop; i += i32(total_threads) * step) {",
	)
	if strings.Contains(src, "n: u32,") {
		t.Error("range mode must not declare the bound parameter")
	}
}

func TestFastPreambleAndLoopBlocks(t *testing.T) {
	tmpl := saxpy()
	tmpl.Preamble = "fn my_helper(v: f32) -> f32 { return v * 2.0; }"
	tmpl.LoopPrep = "var acc: f32 = 0.0;"
	tmpl.AfterLoop = "// after"
	src, _ := Fast(&tmpl)

	if !strings.HasPrefix(src, "fn my_helper") {
		t.Error("preamble must come first")
	}
	wantContains(t, src, "var acc: f32 = 0.0;", "// after")
}

func stridedPlan(t *testing.T, tmpl *op.Template, shape device.Shape, strides ...[]int) *plan.Plan {
	t.Helper()
	r := &layout.Report{Indexable: true, Shape: shape}
	for _, s := range strides {
		r.Arrays = append(r.Arrays, layout.ArrayInfo{ItemSize: 4, Strides: s})
	}
	names := tmpl.ArrayIndices()
	if len(names) != len(strides) {
		t.Fatalf("template has %d arrays, got %d stride vectors", len(names), len(strides))
	}
	grid := device.Dim3{X: 1, Y: 1, Z: 1}
	block := device.Dim3{X: 64, Y: 1, Z: 1}
	return plan.New(r, []string{"z", "x", "y"}[:len(strides)], tmpl.Order, grid, block)
}

func TestStridedConstantsAndDecls(t *testing.T) {
	tmpl := saxpy()
	shape := device.Shape{4, 8}
	p := stridedPlan(t, &tmpl, shape,
		shape.ComputeStrides(4), shape.ComputeColMajorStrides(4), shape.ComputeStrides(4))

	src, conv := Strided(&tmpl, p, 1, 64)

	wantContains(t, src,
		"const TOTAL_THREADS: i32 = 64;",
		"const SHAPE_0: i32 = 4;",
		"const SHAPE_1: i32 = 8;",
		"const BLOCK_STEP_0: i32 = 0;",
		"const ELEMSTRIDE_z_0: i32 = 8;",
		"const ELEMSTRIDE_x_0: i32 = 1;",
		"const DIMELEMSTRIDE_z_0: i32 = 32;",
		"var _global_i: i32 = i32(_cta_start + _tid);",
		"var z_i: i32 = 0;",
		"var x_i: i32 = 0;",
		"var INDEX_0: i32 = 0;",
		"for (; _global_i < i32(n); _global_i += TOTAL_THREADS) {",
	)
	if conv.WorkgroupSize != 64 {
		t.Errorf("WorkgroupSize = %d, want the launch block width", conv.WorkgroupSize)
	}
}

func TestStridedDeduplicationAliases(t *testing.T) {
	tmpl := saxpy()
	shape := device.Shape{4, 8}
	rm := shape.ComputeStrides(4)
	p := stridedPlan(t, &tmpl, shape, rm, shape.ComputeColMajorStrides(4), rm)

	src, _ := Strided(&tmpl, p, 1, 64)

	wantContains(t, src, "let y_i = z_i;")
	if strings.Contains(src, "var y_i") {
		t.Error("aliased array must not own an index variable")
	}
	if strings.Contains(src, "ELEMSTRIDE_y_0") {
		t.Error("aliased array must not emit stride constants in the update")
	}
}

func TestStridedOdometerUpdate(t *testing.T) {
	tmpl := saxpy()
	shape := device.Shape{4, 8}
	rm := shape.ComputeStrides(4)
	p := stridedPlan(t, &tmpl, shape, rm, rm, rm)

	src, _ := Strided(&tmpl, p, 1, 64)

	wantContains(t, src,
		"z_i += BLOCKELEMSTRIDE_z_0 + BLOCKELEMSTRIDE_z_1;",
		"INDEX_0 += BLOCK_STEP_0;",
		"if (INDEX_0 >= SHAPE_0) {",
		"INDEX_0 -= SHAPE_0;",
		"INDEX_1 += 1;",
		"z_i += ELEMSTRIDE_z_1 - DIMELEMSTRIDE_z_0;",
	)
	if strings.Contains(src, "if (INDEX_1 >= SHAPE_1)") {
		t.Error("last dimension needs no carry check")
	}
}

func TestStridedRanged(t *testing.T) {
	tmpl := saxpy()
	tmpl.Ranged = true
	shape := device.Shape{4, 8}
	rm := shape.ComputeStrides(4)
	p := stridedPlan(t, &tmpl, shape, rm, shape.ComputeColMajorStrides(4), rm)

	src, _ := Strided(&tmpl, p, 1, 64)

	wantContains(t, src,
		"var _global_i: i32 = start + i32(_cta_start + _tid);",
		"for (; _global_i < stop; _global_i += TOTAL_THREADS) {",
	)
}

func TestStridedWithIndices(t *testing.T) {
	tmpl := saxpy()
	tmpl.WithIndices = true
	shape := device.Shape{4, 8}
	rm := shape.ComputeStrides(4)
	p := stridedPlan(t, &tmpl, shape, rm, rm, rm)

	src, _ := Strided(&tmpl, p, 1, 64)

	wantContains(t, src,
		"const NDIM: i32 = 2;",
		"var INDEX: array<i32, NDIM>;",
		"INDEX[0] = _tmp_global_i % SHAPE_0;",
		"INDEX[0] += BLOCK_STEP_0;",
	)
}

func TestStridedDebugProbes(t *testing.T) {
	tmpl := saxpy()
	tmpl.Debug = true
	shape := device.Shape{4, 8}
	rm := shape.ComputeStrides(4)
	p := stridedPlan(t, &tmpl, shape, rm, shape.ComputeColMajorStrides(4), rm)

	src, conv := Strided(&tmpl, p, 1, 64)

	wantContains(t, src,
		"var<storage, read_write> _dbg: array<atomic<u32>>;",
		"const MAXOFFSET_z: i32 = 31;",
		"if (z_i < 0 || z_i > MAXOFFSET_z) {",
		"atomicAdd(&_dbg[0], 1u);",
		"atomicMax(&_dbg[1], bitcast<u32>(z_i));",
		"break;",
	)
	if !conv.DebugBinding {
		t.Error("debug emission must require the debug binding")
	}
}

func TestStridedInitialDecomposition(t *testing.T) {
	tmpl := saxpy()
	shape := device.Shape{4, 8}
	rm := shape.ComputeStrides(4)
	p := stridedPlan(t, &tmpl, shape, rm, rm, rm)

	src, _ := Strided(&tmpl, p, 1, 64)

	wantContains(t, src,
		"var _tmp_global_i: i32 = _global_i;",
		"INDEX_0 = _tmp_global_i % SHAPE_0;",
		"_tmp_global_i = _tmp_global_i / SHAPE_0;",
		"z_i += INDEX_0 * ELEMSTRIDE_z_0;",
	)
}
