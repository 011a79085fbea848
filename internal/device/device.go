// Package device defines the collaborator interfaces the kernel specializer
// depends on: a compiler that turns WGSL source text into an executable, a
// launchable entry point that dispatches asynchronously on a stream, and the
// capability interfaces that describe the memory layout of call arguments.
//
// The engine itself never touches device memory. It consumes shape/stride
// metadata through the Array interface and hands fully packed launch
// arguments back to the adapter.
package device

// Dim3 represents 3D dimensions for grid and block configurations.
type Dim3 struct {
	X, Y, Z int
}

// Size returns the total number of elements covered by the dimensions.
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// Stream is an opaque handle to an ordered execution queue. Launches on the
// same stream execute in submission order; ordering across streams is the
// caller's responsibility. A nil Stream means the adapter's default queue.
type Stream interface {
	// Sync blocks until all work previously submitted to the stream has
	// completed. Dispatch itself never waits.
	Sync() error
}

// Buffer is an opaque device allocation. An argument that implements only
// Buffer (and not Array) is an opaque handle: the kernel can traverse it with
// the flat per-launch index, but array-relative indexing is disabled for the
// whole call because no layout metadata is available.
type Buffer interface {
	// ByteSize returns the allocation size in bytes.
	ByteSize() int
}

// Array is a Buffer that exposes its memory layout. The specializer consumes
// shape, byte strides, and item size, and classifies contiguity from them.
//
// SetStrides is the one mutation point the engine uses: strides of degenerate
// dimensions (size 1) are forced to zero during layout classification so they
// never perturb contiguity or offset arithmetic. The change is visible to the
// caller.
type Array interface {
	Buffer

	Shape() Shape
	Strides() []int
	ItemSize() int
	SetStrides(strides []int)

	// Geometry returns the launch geometry precomputed for whole-array
	// traversal of this allocation.
	Geometry() (grid, block Dim3)
}

// LaunchArg is one packed kernel argument. Exactly one of Buffer or Word is
// meaningful: array parameters carry their device allocation, scalar
// parameters carry a 4-byte value in Word. Debug marks the probe counter
// buffer, which adapters bind after the scalar parameter block rather than
// with the ordinary storage arguments.
type LaunchArg struct {
	Buffer Buffer
	Word   uint32
	Debug  bool
}

// BufferArg packs a device allocation as a launch argument.
func BufferArg(b Buffer) LaunchArg {
	return LaunchArg{Buffer: b}
}

// WordArg packs a raw 4-byte scalar as a launch argument.
func WordArg(w uint32) LaunchArg {
	return LaunchArg{Word: w}
}

// DebugArg packs the probe counter allocation as a launch argument.
func DebugArg(b Buffer) LaunchArg {
	return LaunchArg{Buffer: b, Debug: true}
}

// Compiler turns kernel source text into an executable module. Compilation
// failures are propagated verbatim and never retried: the source is
// generated, so a rejection indicates a defect in the generator.
type Compiler interface {
	Compile(source string) (Executable, error)
}

// Executable is a compiled module from which named entry points can be
// retrieved.
type Executable interface {
	Entry(name string) (Launchable, error)
}

// Launchable is a kernel entry point. Launch submits the kernel to the given
// stream and returns without waiting for completion.
type Launchable interface {
	Launch(grid, block Dim3, stream Stream, args []LaunchArg) error
}
