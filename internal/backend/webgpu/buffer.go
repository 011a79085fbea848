//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/born-ml/elwise/internal/device"
	"github.com/born-ml/elwise/internal/kernel"
	"github.com/born-ml/elwise/internal/op"
	"github.com/go-webgpu/webgpu/wgpu"
)

// Buffer is a device allocation. It implements device.Buffer; opaque uses
// (probe counters, raw scratch) stop here, array arguments wrap it in Array.
type Buffer struct {
	b    *Backend
	raw  *wgpu.Buffer
	size int
}

// ByteSize implements device.Buffer.
func (buf *Buffer) ByteSize() int { return buf.size }

// Read copies the buffer contents back to host memory. Pending batched
// commands are flushed first so the readback observes prior launches.
func (buf *Buffer) Read() ([]byte, error) {
	buf.b.flushCommands()
	return buf.b.readBuffer(buf.raw, uint64(buf.size))
}

// Write uploads data to the start of the buffer.
func (buf *Buffer) Write(data []byte) error {
	if len(data) > buf.size {
		return fmt.Errorf("webgpu: write of %d bytes exceeds buffer size %d", len(data), buf.size)
	}
	buf.b.queue.WriteBuffer(buf.raw, 0, data)
	return nil
}

// Release frees the device allocation.
func (buf *Buffer) Release() {
	if buf.raw != nil {
		buf.raw.Release()
		buf.raw = nil
	}
}

// NewBuffer allocates a zeroed storage buffer of the given size.
func (b *Backend) NewBuffer(size int) *Buffer {
	raw := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  uint64(size),
	})
	return &Buffer{b: b, raw: raw, size: size}
}

// NewBufferFrom allocates a storage buffer initialized with data.
func (b *Backend) NewBufferFrom(data []byte) *Buffer {
	raw := b.createBuffer(data, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	return &Buffer{b: b, raw: raw, size: len(data)}
}

// Array is a Buffer with layout metadata. It implements device.Array, so
// kernel calls can classify its contiguity and index it per dimension.
type Array struct {
	Buffer

	shape   device.Shape
	strides []int
	dtype   op.DataType
}

// Zeros allocates a zero-initialized contiguous row-major array.
func (b *Backend) Zeros(shape device.Shape, dtype op.DataType) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	n := shape.NumElements()
	return &Array{
		Buffer:  *b.NewBuffer(n * dtype.Size()),
		shape:   shape.Clone(),
		strides: shape.ComputeStrides(dtype.Size()),
		dtype:   dtype,
	}, nil
}

// FromFloat32 uploads data as a contiguous row-major float32 array.
func (b *Backend) FromFloat32(data []float32, shape device.Shape) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, &device.ShapeMismatchError{Want: shape, Got: device.Shape{len(data)}}
	}
	raw := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[i*4:i*4+4], math.Float32bits(v))
	}
	return &Array{
		Buffer:  *b.NewBufferFrom(raw),
		shape:   shape.Clone(),
		strides: shape.ComputeStrides(4),
		dtype:   op.Float32,
	}, nil
}

// Shape implements device.Array.
func (a *Array) Shape() device.Shape { return a.shape }

// Strides implements device.Array. Strides are in bytes.
func (a *Array) Strides() []int { return a.strides }

// ItemSize implements device.Array.
func (a *Array) ItemSize() int { return a.dtype.Size() }

// SetStrides implements device.Array.
func (a *Array) SetStrides(strides []int) { a.strides = strides }

// Geometry implements device.Array: the launch geometry for whole-array
// traversal.
func (a *Array) Geometry() (grid, block device.Dim3) {
	return kernel.Splay(a.shape.NumElements())
}

// DType returns the element type.
func (a *Array) DType() op.DataType { return a.dtype }

// Float32s reads the array back to host memory as float32 values. The array
// must be a float32 array.
func (a *Array) Float32s() ([]float32, error) {
	if a.dtype != op.Float32 {
		return nil, fmt.Errorf("webgpu: Float32s on %s array", a.dtype)
	}
	raw, err := a.Read()
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
	}
	return out, nil
}

// createBuffer creates a GPU buffer and uploads initial data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// createUniformBuffer creates a uniform buffer with proper alignment.
// Uniform buffers require 16-byte alignment for struct fields.
func (b *Backend) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// readBuffer reads data back from a GPU buffer to CPU memory.
// Uses a staging buffer since storage buffers can't be mapped directly.
func (b *Backend) readBuffer(srcBuffer *wgpu.Buffer, size uint64) ([]byte, error) {
	stagingBuffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer stagingBuffer.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(srcBuffer, 0, stagingBuffer, 0, size)
	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	err := stagingBuffer.MapAsync(b.device, wgpu.MapModeRead, 0, size)
	if err != nil {
		return nil, fmt.Errorf("failed to map staging buffer: %w", err)
	}

	mappedPtr := stagingBuffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	result := make([]byte, size)
	copy(result, mappedSlice)

	stagingBuffer.Unmap()

	return result, nil
}
