package device

import "fmt"

// ShapeMismatchError reports array arguments that disagree on shape when no
// shape-defining argument was designated. It is fatal and surfaced before any
// source is emitted.
type ShapeMismatchError struct {
	Want Shape
	Got  Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf(
		"elwise: all array arguments must share one shape (or a shape-defining argument must be designated): found %v and %v",
		e.Want, e.Got)
}

// InvalidGeometryError reports a launch grid/block with a non-unit size in
// any but the first component while array-relative strided indexing is in
// effect. Strided traversal is one-dimensional over execution lanes and
// cannot support multi-dimensional launch geometry.
type InvalidGeometryError struct {
	Grid  Dim3
	Block Dim3
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf(
		"elwise: grid %v and block %v must be 1 in all but the first component for strided traversal",
		e.Grid, e.Block)
}

// CallModifierError reports conflicting or unrecognized call modifiers, or an
// invalid dimension-ordering policy. The caller can correct and retry.
type CallModifierError struct {
	Reason string
}

func (e *CallModifierError) Error() string {
	return "elwise: " + e.Reason
}

// CompileError wraps a rejection from the external compiler. The generated
// source is carried verbatim so the defect can be diagnosed without
// re-deriving state.
type CompileError struct {
	Source string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("elwise: generated kernel failed to compile: %v\nsource:\n%s", e.Err, e.Source)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
