//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/born-ml/elwise/internal/device"
	"github.com/go-webgpu/webgpu/wgpu"
)

// Executable is a compiled shader module. Entry points resolve lazily to
// compute pipelines, cached per name.
type Executable struct {
	b      *Backend
	shader *wgpu.ShaderModule

	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex
}

// Entry implements device.Executable.
func (e *Executable) Entry(name string) (l device.Launchable, err error) {
	e.mu.RLock()
	if pipeline, exists := e.pipelines[name]; exists {
		e.mu.RUnlock()
		return &Launchable{b: e.b, pipeline: pipeline}, nil
	}
	e.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			l = nil
			err = fmt.Errorf("webgpu: pipeline creation for entry %q failed: %v", name, r)
		}
	}()

	// Auto layout (nil): bindings are inferred from the shader source.
	pipeline := e.b.device.CreateComputePipelineSimple(nil, e.shader, name)
	if pipeline == nil {
		return nil, fmt.Errorf("webgpu: no compute pipeline for entry %q", name)
	}

	e.mu.Lock()
	e.pipelines[name] = pipeline
	e.mu.Unlock()

	return &Launchable{b: e.b, pipeline: pipeline}, nil
}

// Release releases the shader module and all cached pipelines.
func (e *Executable) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.pipelines {
		p.Release()
	}
	e.pipelines = nil
	if e.shader != nil {
		e.shader.Release()
		e.shader = nil
	}
}

// Launchable is one compute pipeline ready for dispatch.
type Launchable struct {
	b        *Backend
	pipeline *wgpu.ComputePipeline
}

// Launch implements device.Launchable. Storage arguments bind in order at
// bindings 0..n-1, scalar words pack into one uniform buffer at the next
// binding, and the debug buffer (when present) binds last. This mirrors the
// binding layout of the generated source. The block width is baked into the
// source as the workgroup size, so only the grid reaches the dispatch.
func (l *Launchable) Launch(grid, block device.Dim3, stream device.Stream, args []device.LaunchArg) error {
	var (
		storage []*wgpu.Buffer
		sizes   []uint64
		words   []uint32
		debug   *wgpu.Buffer
		debugSz uint64
	)
	for _, a := range args {
		if a.Buffer == nil {
			words = append(words, a.Word)
			continue
		}
		buf, ok := a.Buffer.(*Buffer)
		if !ok {
			return fmt.Errorf("webgpu: launch argument is %T, want a webgpu buffer", a.Buffer)
		}
		if a.Debug {
			debug = buf.raw
			debugSz = uint64(buf.size)
			continue
		}
		storage = append(storage, buf.raw)
		sizes = append(sizes, uint64(buf.size))
	}

	// Scalar parameters travel in one uniform buffer, 16-byte aligned.
	params := make([]byte, max(((len(words)*4)+15)&^15, 16))
	for i, w := range words {
		binary.LittleEndian.PutUint32(params[i*4:i*4+4], w)
	}
	bufferParams := l.b.createUniformBuffer(params)
	defer bufferParams.Release()

	entries := make([]wgpu.BindGroupEntry, 0, len(storage)+2)
	for i, buf := range storage {
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), buf, 0, sizes[i]))
	}
	binding := uint32(len(storage))
	entries = append(entries, wgpu.BufferBindingEntry(binding, bufferParams, 0, uint64(len(params))))
	binding++
	if debug != nil {
		entries = append(entries, wgpu.BufferBindingEntry(binding, debug, 0, debugSz))
	}

	bindGroupLayout := l.pipeline.GetBindGroupLayout(0)
	bindGroup := l.b.device.CreateBindGroupSimple(bindGroupLayout, entries)
	defer bindGroup.Release()

	encoder := l.b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(l.pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	computePass.DispatchWorkgroups(uint32(grid.X), uint32(grid.Y), uint32(grid.Z))
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	if s, ok := stream.(*Stream); ok && s != nil {
		s.b.queueCommand(cmdBuffer)
	} else {
		l.b.queue.Submit(cmdBuffer)
	}

	return nil
}
