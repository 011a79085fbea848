package kernel

import (
	"github.com/born-ml/elwise/internal/device"
	"github.com/born-ml/elwise/internal/emit"
)

// maxWorkgroups caps the dispatch width; kernels loop over total_threads, so
// a capped grid still covers arbitrarily many elements.
const maxWorkgroups = 1024

// Splay picks launch geometry for a flat traversal over n elements.
func Splay(n int) (grid, block device.Dim3) {
	block = device.Dim3{X: emit.DefaultWorkgroupSize, Y: 1, Z: 1}
	wg := (n + block.X - 1) / block.X
	if wg < 1 {
		wg = 1
	}
	if wg > maxWorkgroups {
		wg = maxWorkgroups
	}
	grid = device.Dim3{X: wg, Y: 1, Z: 1}
	return grid, block
}
