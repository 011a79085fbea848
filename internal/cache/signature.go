// Package cache derives structural signatures for kernel calls and memoizes
// the specialization pipeline (traversal plan, generated source, compiled
// kernel) per distinct signature for the lifetime of the process.
package cache

import (
	"fmt"
	"strings"

	"github.com/born-ml/elwise/internal/device"
	"github.com/born-ml/elwise/internal/layout"
	"github.com/born-ml/elwise/internal/op"
	"github.com/born-ml/elwise/internal/plan"
)

// Signature is the structural cache key of one call. Two calls with equal
// signatures produce identical generated source.
type Signature struct {
	key  string
	fast bool
}

// Key returns the string form used for cache lookup.
func (s Signature) Key() string { return s.key }

// Fast reports whether the call takes the contiguous fast path.
func (s Signature) Fast() bool { return s.fast }

// Derive maps a layout report (plus launch geometry, on the strided path) to
// the call's Signature.
//
// Fast path: when all arrays share one contiguous layout (or array-relative
// indexing is unusable) and no per-dimension indices were requested, the key
// collapses to the template identity: the fast-path source is independent
// of shape, strides, and geometry.
//
// Strided path: the key folds in everything the generated source embeds as
// numeric constants: canonical shape, per-array item sizes and stride
// tuples, the parameter declaration text, the resolved ordering decision,
// and the launch grid and block. Varying geometry across otherwise-identical
// shapes therefore grows the cache; see the package notes on the block-step
// trade-off.
func Derive(t *op.Template, report *layout.Report, grid, block device.Dim3) (Signature, error) {
	if (report.ContigMatch || !report.Indexable) && !t.WithIndices {
		return Signature{key: "fast|" + t.ID(), fast: true}, nil
	}

	if grid.Y != 1 || grid.Z != 1 || block.Y != 1 || block.Z != 1 {
		return Signature{}, &device.InvalidGeometryError{Grid: grid, Block: block}
	}

	var sb strings.Builder
	sb.WriteString("strided|")
	sb.WriteString(t.ID())
	fmt.Fprintf(&sb, "|shape=%v|contig=%t|indexable=%t", report.Shape, report.ContigMatch, report.Indexable)
	for _, a := range report.Arrays {
		fmt.Fprintf(&sb, "|item=%d,strides=%v", a.ItemSize, a.Strides)
	}
	fmt.Fprintf(&sb, "|decls=%s", t.Declarations())
	fmt.Fprintf(&sb, "|reversed=%t|grid=%v|block=%v", plan.Reverses(report, t.Order), grid, block)

	return Signature{key: sb.String()}, nil
}
