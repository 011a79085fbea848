//go:build windows

// Package webgpu adapts the specialization engine to WebGPU devices.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// The Backend implements device.Compiler: generated WGSL source compiles to
// a shader module, entry points resolve to compute pipelines, and launches
// dispatch on the device queue. Specialization results are memoized upstream
// by the cache package, so the backend only caches pipelines per compiled
// module.
package webgpu

import (
	"fmt"
	"sync"

	"github.com/born-ml/elwise/internal/device"
	"github.com/go-webgpu/webgpu/wgpu"
)

// Backend owns the WebGPU instance, adapter, device, and queue.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	adapterInfo *wgpu.AdapterInfo

	// Command batching: launches on a Stream accumulate here and are
	// submitted together on Sync or before any readback.
	pendingCommands []*wgpu.CommandBuffer
	pendingMu       sync.Mutex
}

// New creates a WebGPU backend on the highest-performance available adapter.
// Returns an error if WebGPU is not available or initialization fails.
func New() (backend *Backend, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	adapterInfo := adapter.GetInfo()

	dev, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := dev.GetQueue()
	if queue == nil {
		dev.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	return &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      dev,
		queue:       queue,
		adapterInfo: &adapterInfo,
	}, nil
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

// Name returns a human-readable adapter description.
func (b *Backend) Name() string {
	if b.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", b.adapterInfo.Name, b.adapterInfo.VendorName)
	}
	return "WebGPU"
}

// AdapterInfo returns information about the GPU adapter.
func (b *Backend) AdapterInfo() *wgpu.AdapterInfo {
	return b.adapterInfo
}

// Compile implements device.Compiler. WGSL rejection surfaces through the
// native validation layer as a panic, which is converted to an error here.
func (b *Backend) Compile(source string) (exe device.Executable, err error) {
	defer func() {
		if r := recover(); r != nil {
			exe = nil
			err = fmt.Errorf("webgpu: shader compilation failed: %v", r)
		}
	}()

	shader := b.device.CreateShaderModuleWGSL(source)
	if shader == nil {
		return nil, fmt.Errorf("webgpu: shader compilation returned no module")
	}

	return &Executable{
		b:         b,
		shader:    shader,
		pipelines: make(map[string]*wgpu.ComputePipeline),
	}, nil
}

// Stream returns an ordered submission queue on this backend. Launches on
// the stream accumulate as command buffers and are submitted together.
func (b *Backend) Stream() *Stream {
	return &Stream{b: b}
}

// queueCommand adds a command buffer to the pending queue for batch
// submission.
func (b *Backend) queueCommand(cmd *wgpu.CommandBuffer) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	b.pendingCommands = append(b.pendingCommands, cmd)
}

// flushCommands submits all pending command buffers to the GPU queue.
// Called automatically before reading data back from the device.
func (b *Backend) flushCommands() {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	if len(b.pendingCommands) == 0 {
		return
	}
	b.queue.Submit(b.pendingCommands...)
	b.pendingCommands = b.pendingCommands[:0]
}

// Release releases all WebGPU resources. Must be called when the backend is
// no longer needed.
func (b *Backend) Release() {
	b.flushCommands()

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// Stream is an ordered execution queue on one Backend. It implements
// device.Stream.
type Stream struct {
	b *Backend
}

// Sync submits any batched commands and blocks until the device has drained
// them. Completion is observed by mapping a small staging buffer, which the
// native layer only satisfies once prior queue work has finished.
func (s *Stream) Sync() error {
	s.b.flushCommands()

	staging := s.b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  4,
	})
	defer staging.Release()

	if err := staging.MapAsync(s.b.device, wgpu.MapModeRead, 0, 4); err != nil {
		return fmt.Errorf("webgpu: stream sync failed: %w", err)
	}
	staging.Unmap()
	return nil
}
