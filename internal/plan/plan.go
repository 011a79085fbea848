// Package plan builds the traversal plan for the strided kernel path: the
// dimension ordering, per-array element-stride vectors, stride
// deduplication, and the incremental block-step increments that let the
// generated kernel advance its indices without per-iteration division.
package plan

import (
	"github.com/born-ml/elwise/internal/device"
	"github.com/born-ml/elwise/internal/layout"
	"github.com/born-ml/elwise/internal/op"
)

// ArrayPlan is the per-array slice of a Plan. All stride vectors are in
// elements, reordered per the dimension-ordering decision, and zero-padded
// for dimensions the array does not span.
type ArrayPlan struct {
	// Name is the kernel parameter name; the index variable is Name_i.
	Name string
	// ElemStrides[d] is the element stride of dimension d.
	ElemStrides []int
	// DimElemStrides[d] is ElemStrides[d] * Shape[d]: the full sweep of
	// dimension d, subtracted from the flat offset when d carries.
	DimElemStrides []int
	// BlockElemStrides[d] is ElemStrides[d] * BlockStep[d]: this array's
	// share of one full round of all execution lanes.
	BlockElemStrides []int
	// Ref is the index of the array whose stride vector this one equals,
	// or -1 when this array owns its index variable. At most one owner
	// exists per distinct stride vector; every other array with the same
	// vector aliases the owner's variable.
	Ref int
}

// Owned reports whether the array owns its index variable.
func (a *ArrayPlan) Owned() bool {
	return a.Ref < 0
}

// Plan is the traversal plan for one strided specialization. It is derived
// from a layout report and launch geometry, and cached alongside the
// generated source.
type Plan struct {
	// NDim is the number of traversed dimensions.
	NDim int
	// Reversed records the resolved dimension-ordering decision.
	Reversed bool
	// Shape is the canonical shape in traversal order.
	Shape []int
	// BlockStep[d] is how far one full round of all concurrently scheduled
	// execution lanes advances dimension d's index.
	BlockStep []int
	// Arrays holds the per-array stride plans, in traversal-argument order.
	Arrays []ArrayPlan
}

// New derives a Plan. names are the kernel parameter names of the traversed
// arrays, aligned with report.Arrays. The launch geometry contributes the
// total lane count for the block-step decomposition.
func New(report *layout.Report, names []string, order op.Order, grid, block device.Dim3) *Plan {
	ndim := len(report.Shape)
	reversed := Reverses(report, order)

	shape := make([]int, ndim)
	for d := range shape {
		if reversed {
			shape[d] = report.Shape[ndim-1-d]
		} else {
			shape[d] = report.Shape[d]
		}
	}

	// Decompose the lane count across dimensions, innermost first: one full
	// round of all lanes advances dimension d by blockStep[d].
	blockStep := make([]int, ndim)
	threads := grid.X * block.X
	for d := 0; d < ndim; d++ {
		blockStep[d] = threads % shape[d]
		threads /= shape[d]
	}

	p := &Plan{
		NDim:      ndim,
		Reversed:  reversed,
		Shape:     shape,
		BlockStep: blockStep,
		Arrays:    make([]ArrayPlan, len(report.Arrays)),
	}

	for i, info := range report.Arrays {
		elem := make([]int, ndim)
		for d, s := range info.Strides {
			if reversed {
				elem[len(info.Strides)-1-d] = s / info.ItemSize
			} else {
				elem[d] = s / info.ItemSize
			}
		}

		dim := make([]int, ndim)
		blk := make([]int, ndim)
		for d := 0; d < ndim; d++ {
			dim[d] = elem[d] * shape[d]
			blk[d] = elem[d] * blockStep[d]
		}

		// Identical stride vectors share one index variable: the increments
		// are paid on every loop iteration, so collapsing duplicates
		// removes redundant bookkeeping entirely.
		ref := -1
		for j := 0; j < i; j++ {
			if p.Arrays[j].Owned() && equalInts(p.Arrays[j].ElemStrides, elem) {
				ref = j
				break
			}
		}

		p.Arrays[i] = ArrayPlan{
			Name:             names[i],
			ElemStrides:      elem,
			DimElemStrides:   dim,
			BlockElemStrides: blk,
			Ref:              ref,
		}
	}

	return p
}

// MaxOffset returns the largest legal flat element offset of array i:
// sum over d of (Shape[d]-1) * ElemStrides[i][d]. Used by the debug probes.
func (p *Plan) MaxOffset(i int) int {
	max := 0
	for d := 0; d < p.NDim; d++ {
		max += (p.Shape[d] - 1) * p.Arrays[i].ElemStrides[d]
	}
	return max
}

// Reverses resolves the dimension-ordering policy to a concrete decision for
// the given layout. The decision is part of the strided cache key: it changes
// the generated source, so it must be derivable before planning.
func Reverses(report *layout.Report, order op.Order) bool {
	switch order {
	case op.OrderDescending:
		return true
	case op.OrderLayoutDriven:
		// Keep the fastest-varying dimension innermost: reverse when the
		// minimum-stride dimension of the shape-defining array lies in the
		// second half of the dimension list.
		return minAbsIndex(report.Arrays[report.ShapePos].Strides) > len(report.Shape)/2
	default:
		return false
	}
}

func minAbsIndex(v []int) int {
	best, bestAbs := 0, -1
	for i, x := range v {
		if x < 0 {
			x = -x
		}
		if bestAbs < 0 || x < bestAbs {
			best, bestAbs = i, x
		}
	}
	return best
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
