// Package layout inspects the live arguments of a kernel call and classifies
// their memory layout: contiguity class, canonical shape, and per-array
// stride metadata. The resulting Report drives the choice between the flat
// contiguous fast path and the general strided path.
package layout

import (
	"github.com/born-ml/elwise/internal/device"
)

// Class is the contiguity class of an array layout.
type Class int

// Contiguity classes.
const (
	// None marks a layout that is neither row- nor column-major.
	None Class = iota
	// RowMajor marks a C-contiguous layout.
	RowMajor
	// ColMajor marks an F-contiguous layout.
	ColMajor
)

// String returns a human-readable class name.
func (c Class) String() string {
	switch c {
	case RowMajor:
		return "row-major"
	case ColMajor:
		return "column-major"
	default:
		return "none"
	}
}

// ArrayInfo is the per-array slice of a Report: item size and byte strides,
// in traversal-argument order.
type ArrayInfo struct {
	ItemSize int
	Strides  []int
}

// Report is the ephemeral result of classifying one call's arguments. It is
// recomputed on every call and never cached.
type Report struct {
	// ContigMatch is true when every array argument shares one row-major or
	// column-major layout. It collapses the cache key to the template
	// identity: the fast-path source is shape independent.
	ContigMatch bool
	// Indexable is true when every array argument exposes shape/stride
	// metadata. A single opaque handle disables array-relative indexing for
	// the whole call; the caller is then restricted to the flat per-launch
	// index.
	Indexable bool
	// Shape is the canonical dimension-size sequence for the call.
	Shape device.Shape
	// Arrays holds item size and strides per traversed array argument.
	Arrays []ArrayInfo
	// ShapePos is the position within Arrays of the shape-defining array
	// (the designated one, or the first array encountered).
	ShapePos int
}

// Classify produces a Report for the given call arguments. arrayIdx lists the
// positions of arguments that traverse elementwise; shapeArg optionally
// designates the argument whose shape is canonical (negative for none).
//
// Strides of degenerate dimensions (size 1) are forced to zero through
// Array.SetStrides. This mutation is visible to the caller and keeps
// degenerate dimensions from perturbing contiguity classification and offset
// arithmetic.
func Classify(args []any, arrayIdx []int, shapeArg int) (*Report, error) {
	report := &Report{
		ContigMatch: true,
		Indexable:   true,
		ShapePos:    0,
	}

	var class Class
	var shapes []device.Shape
	seen := 0
	for _, i := range arrayIdx {
		arr, ok := args[i].(device.Array)
		if !ok {
			// Opaque handle: no metadata, so array-relative indexing is off
			// for this call and the remaining arguments are not inspected.
			report.Indexable = false
			continue
		}
		if !report.Indexable {
			continue
		}

		shape := arr.Shape()
		strides := normalizeStrides(arr, shape)

		if report.ContigMatch {
			cur := classify(shape, strides, arr.ItemSize())
			if cur == None {
				report.ContigMatch = false
			}
			if seen == 0 {
				class = cur
			} else if cur != class {
				report.ContigMatch = false
			}
		}

		if seen == 0 {
			report.Shape = shape.Clone()
		} else if shapeArg < 0 && !report.Shape.Equal(shape) {
			return nil, &device.ShapeMismatchError{Want: report.Shape.Clone(), Got: shape.Clone()}
		}
		if shapeArg == i {
			report.Shape = shape.Clone()
			report.ShapePos = seen
		}

		report.Arrays = append(report.Arrays, ArrayInfo{
			ItemSize: arr.ItemSize(),
			Strides:  strides,
		})
		shapes = append(shapes, shape)
		seen++
	}

	// A designated shape-defining argument pins the dimension sizes, but the
	// traversal plan indexes every array's strides by the canonical rank, so
	// rank divergence is still fatal.
	if shapeArg >= 0 {
		for _, s := range shapes {
			if len(s) != len(report.Shape) {
				return nil, &device.ShapeMismatchError{Want: report.Shape.Clone(), Got: s.Clone()}
			}
		}
	}

	return report, nil
}

// normalizeStrides zeroes the stride of every size-1 dimension, writing the
// result back to the array when anything changed.
func normalizeStrides(arr device.Array, shape device.Shape) []int {
	strides := arr.Strides()
	normalized := make([]int, len(strides))
	changed := false
	for d, s := range strides {
		if d < len(shape) && shape[d] <= 1 {
			if s != 0 {
				changed = true
			}
			continue
		}
		normalized[d] = s
	}
	if changed {
		arr.SetStrides(normalized)
	}
	return normalized
}

// classify determines the contiguity class of one normalized layout.
func classify(shape device.Shape, strides []int, itemSize int) Class {
	switch {
	case contiguous(shape, strides, itemSize, false):
		// Column-major wins ties (1-D arrays are both); mirrors the order
		// the flags are consulted in.
		return ColMajor
	case contiguous(shape, strides, itemSize, true):
		return RowMajor
	default:
		return None
	}
}

// contiguous checks a dense packed layout in row-major or column-major
// order, skipping degenerate dimensions.
func contiguous(shape device.Shape, strides []int, itemSize int, rowMajor bool) bool {
	if len(shape) != len(strides) {
		return false
	}
	expected := itemSize
	for k := range shape {
		d := k
		if rowMajor {
			d = len(shape) - 1 - k
		}
		if shape[d] == 1 {
			continue
		}
		if strides[d] != expected {
			return false
		}
		expected *= shape[d]
	}
	return true
}
