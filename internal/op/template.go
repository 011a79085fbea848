package op

import (
	"fmt"
	"strings"

	"github.com/born-ml/elwise/internal/device"
)

// Order is the dimension-ordering policy for strided traversal.
type Order int

// Ordering policies.
const (
	// OrderAscending traverses dimensions in their stored order, fastest
	// stride assumed first (column-major friendly).
	OrderAscending Order = iota
	// OrderDescending reverses the shape and stride vectors once before
	// planning. Correctness is unaffected for elementwise operations; only
	// memory-access locality changes.
	OrderDescending
	// OrderLayoutDriven inspects the shape-defining array's strides and
	// reverses traversal when its minimum-stride dimension lies in the
	// second half of the dimension list.
	OrderLayoutDriven
)

// Valid reports whether the policy is one of the enumerated values.
func (o Order) Valid() bool {
	switch o {
	case OrderAscending, OrderDescending, OrderLayoutDriven:
		return true
	}
	return false
}

// String returns a human-readable policy name.
func (o Order) String() string {
	switch o {
	case OrderAscending:
		return "ascending"
	case OrderDescending:
		return "descending"
	case OrderLayoutDriven:
		return "layout-driven"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// Template is the immutable description of one elementwise operation. It is
// created once at kernel-definition time and never mutated afterwards; the
// specialization pipeline reads it concurrently.
type Template struct {
	// Name is the kernel entry point name.
	Name string
	// Args are the caller-visible parameters, in call order. Implicit
	// trailing parameters (the bound, or start/stop/step) are appended by
	// Implicit at emission time and are not listed here.
	Args []Arg
	// Operation is the per-element body text, included verbatim.
	Operation string
	// Preamble, LoopPrep, and AfterLoop are optional text blocks included
	// verbatim before the kernel, before the loop, and after the loop.
	Preamble  string
	LoopPrep  string
	AfterLoop string

	// Ranged selects start/stop/step traversal instead of a fixed bound.
	Ranged bool
	// WithIndices exposes the per-dimension index vector INDEX to the
	// operation body and forces the strided path.
	WithIndices bool
	// Order is the dimension-ordering policy.
	Order Order
	// Debug appends bounds-checking probes to the generated source.
	Debug bool

	// ShapeArg names the argument whose shape is canonical for the call.
	// Empty means "first array argument", and in that case all array
	// arguments must agree on shape.
	ShapeArg string
	// ArrayArgs restricts elementwise traversal to a subset of argument
	// indices. Nil means every vector argument participates.
	ArrayArgs []int
}

// ArrayIndices returns the indices of arguments that traverse elementwise.
func (t *Template) ArrayIndices() []int {
	if t.ArrayArgs != nil {
		return t.ArrayArgs
	}
	inds := make([]int, 0, len(t.Args))
	for i, a := range t.Args {
		if a.IsVector() {
			inds = append(inds, i)
		}
	}
	return inds
}

// ShapeArgIndex resolves the shape-defining argument to its index, or -1
// when none is designated.
func (t *Template) ShapeArgIndex() int {
	if t.ShapeArg == "" {
		return -1
	}
	for i, a := range t.Args {
		if a.Name == t.ShapeArg {
			return i
		}
	}
	return -1
}

// Validate checks the template for structural problems that would otherwise
// surface as generated-source defects.
func (t *Template) Validate() error {
	if !t.Order.Valid() {
		return &device.CallModifierError{
			Reason: fmt.Sprintf("dimension-ordering policy %s is not one of ascending, descending, layout-driven", t.Order),
		}
	}
	if len(t.ArrayIndices()) == 0 {
		return fmt.Errorf("op: template %q has no array argument", t.Name)
	}
	for _, i := range t.ArrayIndices() {
		if i < 0 || i >= len(t.Args) {
			return fmt.Errorf("op: array argument index %d out of range", i)
		}
		if !t.Args[i].IsVector() {
			return fmt.Errorf("op: argument %q is not an array", t.Args[i].Name)
		}
	}
	if t.ShapeArg != "" {
		i := t.ShapeArgIndex()
		if i < 0 {
			return fmt.Errorf("op: shape-defining argument %q is not declared", t.ShapeArg)
		}
		if !t.Args[i].IsVector() {
			return fmt.Errorf("op: shape-defining argument %q is not an array", t.ShapeArg)
		}
	}
	seen := make(map[string]bool, len(t.Args))
	for _, a := range t.Args {
		if a.Name == "" {
			return fmt.Errorf("op: template %q has an unnamed argument", t.Name)
		}
		if seen[a.Name] {
			return fmt.Errorf("op: duplicate argument name %q", a.Name)
		}
		seen[a.Name] = true
		// "n" and "i" are claimed by the generated source in bounded mode.
		if a.Name == "n" || a.Name == "i" || a.Name == "params" {
			return fmt.Errorf("op: argument name %q is reserved", a.Name)
		}
	}
	return nil
}

// RangeSafe reports whether the template can be called in range mode: the
// implicit start/stop/step parameters must not collide with declared
// argument names.
func (t *Template) RangeSafe() bool {
	for _, a := range t.Args {
		switch a.Name {
		case "start", "stop", "step":
			return false
		}
	}
	return true
}

// Implicit returns the full parameter list including the implicit trailing
// parameters: the element bound n in bounded mode, or start/stop/step in
// range mode.
func (t *Template) Implicit() []Arg {
	args := make([]Arg, len(t.Args), len(t.Args)+3)
	copy(args, t.Args)
	if t.Ranged {
		return append(args,
			Scalar(Int32, "start"),
			Scalar(Int32, "stop"),
			Scalar(Int32, "step"))
	}
	return append(args, Scalar(Uint32, "n"))
}

// Declarations returns the parameter declaration text for the full
// parameter list. It is part of the strided-path cache key because the
// generated source embeds it.
func (t *Template) Declarations() string {
	decls := make([]string, 0, len(t.Args)+3)
	for _, a := range t.Implicit() {
		decls = append(decls, a.Declarator())
	}
	return strings.Join(decls, ", ")
}

// ID returns the template identity. Two templates with equal IDs generate
// identical source for identical layouts, so the fast contiguous path is
// keyed on the ID alone.
func (t *Template) ID() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|ranged=%t|indices=%t|order=%s|debug=%t|shape=%s",
		t.Name, t.Declarations(), t.Operation,
		t.Preamble, t.LoopPrep, t.AfterLoop,
		t.Ranged, t.WithIndices, t.Order, t.Debug, t.ShapeArg)
}
