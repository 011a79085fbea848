// Package op defines the immutable operation template: the caller-supplied
// operation body text together with the argument descriptors, traversal mode,
// and dimension-ordering policy that drive kernel specialization.
package op

// DataType represents the element type of a kernel parameter.
//
// The set is restricted to 4-byte types: WGSL storage buffers and uniform
// scalar words are packed in 32-bit units.
type DataType int

// Supported element types for kernel parameters.
const (
	Float32 DataType = iota
	Int32
	Uint32
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	return 4
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	default:
		return "unknown"
	}
}

// WGSL returns the WGSL scalar type name.
func (dt DataType) WGSL() string {
	switch dt {
	case Float32:
		return "f32"
	case Int32:
		return "i32"
	case Uint32:
		return "u32"
	default:
		return "unknown"
	}
}
