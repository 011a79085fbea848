// Package main provides the elwise kernel engine CLI.
package main

import (
	"fmt"
	"os"

	"github.com/born-ml/elwise/device"
	"github.com/born-ml/elwise/kernel"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("elwise %s\n", version)
			return
		case "source":
			if err := dumpSource(); err != nil {
				fmt.Fprintf(os.Stderr, "elwise: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Println("elwise - Runtime Elementwise Kernel Generation for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  source     Dump the generated WGSL for a demo saxpy kernel")
}

// hostArray is a layout descriptor with no device storage behind it, enough
// to drive source generation.
type hostArray struct {
	shape    device.Shape
	strides  []int
	itemSize int
}

func (h *hostArray) ByteSize() int       { return h.shape.NumElements() * h.itemSize }
func (h *hostArray) Shape() device.Shape { return h.shape }
func (h *hostArray) Strides() []int      { return h.strides }
func (h *hostArray) ItemSize() int       { return h.itemSize }
func (h *hostArray) SetStrides(s []int)  { h.strides = s }
func (h *hostArray) Geometry() (grid, block device.Dim3) {
	return kernel.Splay(h.shape.NumElements())
}

func contiguous(shape device.Shape) *hostArray {
	return &hostArray{shape: shape, strides: shape.ComputeStrides(4), itemSize: 4}
}

func colMajor(shape device.Shape) *hostArray {
	return &hostArray{shape: shape, strides: shape.ComputeColMajorStrides(4), itemSize: 4}
}

// nopCompiler satisfies the compiler interface for source inspection; no
// call ever reaches it.
type nopCompiler struct{}

func (nopCompiler) Compile(string) (device.Executable, error) {
	return nil, fmt.Errorf("source inspection only")
}

func dumpSource() error {
	saxpy, err := kernel.New(kernel.Template{
		Name: "saxpy",
		Args: []kernel.Arg{
			kernel.Vector(kernel.Float32, "z"),
			kernel.Scalar(kernel.Float32, "a"),
			kernel.Vector(kernel.Float32, "x"),
			kernel.Vector(kernel.Float32, "y"),
		},
		Operation: "z[z_i] = a * x[x_i] + y[y_i];",
	}, nopCompiler{})
	if err != nil {
		return err
	}

	shape := device.Shape{16, 16}

	fast, err := saxpy.Source(contiguous(shape), float32(2), contiguous(shape), contiguous(shape))
	if err != nil {
		return err
	}
	fmt.Println("// --- contiguous fast path ---")
	fmt.Println(fast)

	strided, err := saxpy.Source(contiguous(shape), float32(2), colMajor(shape), contiguous(shape))
	if err != nil {
		return err
	}
	fmt.Println("// --- strided path (column-major x) ---")
	fmt.Println(strided)

	return nil
}
