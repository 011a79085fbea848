// Package kernel binds an operation template to a callable kernel. A call
// classifies the live arguments' memory layout, derives the structural
// signature, retrieves or builds the specialized kernel through the cache,
// selects launch geometry, packs the arguments, and dispatches
// asynchronously through the device collaborator.
package kernel

import (
	"fmt"

	"github.com/born-ml/elwise/internal/cache"
	"github.com/born-ml/elwise/internal/device"
	"github.com/born-ml/elwise/internal/emit"
	"github.com/born-ml/elwise/internal/layout"
	"github.com/born-ml/elwise/internal/op"
	"github.com/born-ml/elwise/internal/plan"
)

// Kernel is one bound operation template. It is safe for concurrent use:
// specialization state lives in the cache, and the template is immutable.
type Kernel struct {
	tmpl     op.Template
	compiler device.Compiler
	cache    *cache.Cache
}

// Option configures a Kernel at construction time.
type Option func(*Kernel)

// WithCache routes specialization through an explicit cache instead of the
// process-wide default. Tests use this to observe and reset cache state.
func WithCache(c *cache.Cache) Option {
	return func(k *Kernel) { k.cache = c }
}

// New binds tmpl to a kernel dispatching through compiler.
func New(tmpl op.Template, compiler device.Compiler, opts ...Option) (*Kernel, error) {
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	if compiler == nil {
		return nil, fmt.Errorf("kernel: compiler must not be nil")
	}
	k := &Kernel{
		tmpl:     tmpl,
		compiler: compiler,
		cache:    cache.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// Template returns the bound template.
func (k *Kernel) Template() *op.Template {
	return &k.tmpl
}

// specialization carries everything one call resolved before dispatch.
type specialization struct {
	tmpl   op.Template
	report *layout.Report
	sig    cache.Signature
	grid   device.Dim3
	block  device.Dim3
	bound  int
	cs     *callState
}

// resolve runs the pre-dispatch pipeline: modifier handling, layout
// classification, geometry selection, and signature derivation.
func (k *Kernel) resolve(argsAndOpts []any) ([]any, *specialization, error) {
	args, cs, err := splitArgs(argsAndOpts)
	if err != nil {
		return nil, nil, err
	}

	tmpl := k.tmpl
	tmpl.Ranged = cs.hasRange || cs.hasSlice
	if tmpl.Ranged && !tmpl.RangeSafe() {
		return nil, nil, &device.CallModifierError{
			Reason: fmt.Sprintf("kernel %q declares a start, stop, or step argument and cannot be range-called", tmpl.Name),
		}
	}
	if len(args) != len(tmpl.Args) {
		return nil, nil, &device.CallModifierError{
			Reason: fmt.Sprintf("kernel %q expects %d arguments, got %d", tmpl.Name, len(tmpl.Args), len(args)),
		}
	}

	report, err := layout.Classify(args, tmpl.ArrayIndices(), tmpl.ShapeArgIndex())
	if err != nil {
		return nil, nil, err
	}

	repr := representative(args, tmpl.ArrayIndices())
	if repr == nil {
		return nil, nil, &device.CallModifierError{
			Reason: "no array argument exposes layout metadata; cannot derive launch geometry",
		}
	}

	if cs.hasSlice {
		cs.start, cs.stop, cs.step = resolveSlice(
			cs.sliceStart, cs.sliceStop, cs.sliceStep, repr.Shape().NumElements())
		cs.hasRange = true
	}

	var grid, block device.Dim3
	if tmpl.Ranged {
		grid, block = Splay(rangeExtent(cs.start, cs.stop, cs.step))
	} else {
		grid, block = repr.Geometry()
	}

	sig, err := cache.Derive(&tmpl, report, grid, block)
	if err != nil {
		return nil, nil, err
	}
	if !sig.Fast() && tmpl.Ranged && cs.step != 1 {
		return nil, nil, &device.CallModifierError{
			Reason: "strided traversal supports range/slice steps of 1 only",
		}
	}

	bound := repr.Shape().NumElements()
	if report.Indexable && report.Shape != nil {
		bound = report.Shape.NumElements()
	}

	return args, &specialization{
		tmpl:   tmpl,
		report: report,
		sig:    sig,
		grid:   grid,
		block:  block,
		bound:  bound,
		cs:     cs,
	}, nil
}

// build runs the cache-miss pipeline: traversal planning (strided path),
// source emission, and external compilation.
func (k *Kernel) build(s *specialization) (*cache.Generated, error) {
	var (
		p    *plan.Plan
		src  string
		conv emit.Convention
	)
	if s.sig.Fast() {
		src, conv = emit.Fast(&s.tmpl)
	} else {
		p = plan.New(s.report, arrayNames(&s.tmpl), s.tmpl.Order, s.grid, s.block)
		src, conv = emit.Strided(&s.tmpl, p, s.grid.X, s.block.X)
	}

	exe, err := k.compiler.Compile(src)
	if err != nil {
		return nil, &device.CompileError{Source: src, Err: err}
	}
	launch, err := exe.Entry(conv.Entry)
	if err != nil {
		return nil, fmt.Errorf("kernel: entry %q not found in compiled module: %w", conv.Entry, err)
	}

	return &cache.Generated{
		Plan:       p,
		Source:     src,
		Convention: conv,
		Launch:     launch,
	}, nil
}

// Call invokes the kernel. Positional arguments match the template's
// parameters; OnRange, OnSlice, OnStream, and WithDebugBuffer modifiers may
// be interleaved. Dispatch is asynchronous: Call returns once the launch is
// submitted to the stream.
func (k *Kernel) Call(argsAndOpts ...any) error {
	args, s, err := k.resolve(argsAndOpts)
	if err != nil {
		return err
	}

	gen, err := k.cache.GetOrCreate(s.sig.Key(), func() (*cache.Generated, error) {
		return k.build(s)
	})
	if err != nil {
		return err
	}

	packed, err := pack(&s.tmpl, args, s.bound, s.cs, gen.Convention.DebugBinding)
	if err != nil {
		return err
	}

	return gen.Launch.Launch(s.grid, s.block, s.cs.stream, packed)
}

// Source returns the kernel source the given arguments would specialize to,
// without compiling or launching. Diagnostics and tooling use it to inspect
// the emitted text.
func (k *Kernel) Source(argsAndOpts ...any) (string, error) {
	_, s, err := k.resolve(argsAndOpts)
	if err != nil {
		return "", err
	}
	if s.sig.Fast() {
		src, _ := emit.Fast(&s.tmpl)
		return src, nil
	}
	p := plan.New(s.report, arrayNames(&s.tmpl), s.tmpl.Order, s.grid, s.block)
	src, _ := emit.Strided(&s.tmpl, p, s.grid.X, s.block.X)
	return src, nil
}

// representative returns the first traversed argument exposing layout
// metadata; launch geometry and slice resolution are derived from it.
func representative(args []any, arrayIdx []int) device.Array {
	for _, i := range arrayIdx {
		if arr, ok := args[i].(device.Array); ok {
			return arr
		}
	}
	return nil
}

func arrayNames(t *op.Template) []string {
	inds := t.ArrayIndices()
	names := make([]string, len(inds))
	for i, idx := range inds {
		names[i] = t.Args[idx].Name
	}
	return names
}
