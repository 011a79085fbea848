package op

import "fmt"

// ArgKind distinguishes array parameters from scalar parameters.
type ArgKind int

// Kinds of kernel parameters.
const (
	KindVector ArgKind = iota
	KindScalar
)

// Arg describes one kernel parameter: its kind, name, and element type.
// Args are immutable and owned by the Template they belong to.
type Arg struct {
	Kind  ArgKind
	Name  string
	DType DataType
}

// Vector describes an array parameter bound as a storage buffer.
func Vector(dtype DataType, name string) Arg {
	return Arg{Kind: KindVector, Name: name, DType: dtype}
}

// Scalar describes a scalar parameter passed through the uniform block.
func Scalar(dtype DataType, name string) Arg {
	return Arg{Kind: KindScalar, Name: name, DType: dtype}
}

// Declarator returns the parameter declaration text. For array parameters
// this is the storage binding type; the binding index is assigned by the
// emitter. The text participates in the strided-path cache key.
func (a Arg) Declarator() string {
	if a.Kind == KindVector {
		return fmt.Sprintf("array<%s> %s", a.DType.WGSL(), a.Name)
	}
	return fmt.Sprintf("%s %s", a.DType.WGSL(), a.Name)
}

// IsVector reports whether the parameter is an array.
func (a Arg) IsVector() bool {
	return a.Kind == KindVector
}
