package plan

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/elwise/internal/device"
	"github.com/born-ml/elwise/internal/op"
)

// TestOdometerMatchesDirect drives the incremental index update across many
// rounds and checks it against full modulo/divide decomposition at every
// position, for a spread of shapes and lane counts. This is the host-side
// proof of the arithmetic the generated kernel performs.
func TestOdometerMatchesDirect(t *testing.T) {
	cases := []struct {
		shape          device.Shape
		gridX, blockX  int
	}{
		{device.Shape{7}, 1, 4},
		{device.Shape{4, 8}, 1, 8},
		{device.Shape{6, 7, 8}, 2, 16},
		{device.Shape{3, 5, 7, 2}, 1, 32},
		{device.Shape{10, 10, 10}, 2, 256},
	}
	for _, tc := range cases {
		total := tc.shape.NumElements()
		threads := tc.gridX * tc.blockX
		strides := tc.shape.ComputeStrides(4)

		grid, block := geometry(tc.gridX, tc.blockX)
		p := New(report(tc.shape, strides), names(1), op.OrderAscending, grid, block)

		for lane := 0; lane < threads && lane < total; lane++ {
			o := p.Start(lane)
			for flat := lane; flat < total; flat += threads {
				wantIndex, wantOffsets := p.At(flat)
				require.Equal(t, wantIndex, o.Index,
					"shape %v lanes %d flat %d", tc.shape, threads, flat)
				require.Equal(t, wantOffsets, o.Offsets,
					"shape %v lanes %d flat %d", tc.shape, threads, flat)
				o.Advance()
			}
		}
	}
}

// TestOdometerNoncontiguousStrides repeats the equivalence check with
// sliced (non-dense) and reversed-order layouts.
func TestOdometerNoncontiguousStrides(t *testing.T) {
	shape := device.Shape{5, 6}
	// Every other element of a wider allocation.
	sliced := []int{96, 8}

	for _, order := range []op.Order{op.OrderAscending, op.OrderDescending} {
		grid, block := geometry(1, 16)
		p := New(report(shape, sliced), names(1), order, grid, block)

		total := shape.NumElements()
		for lane := 0; lane < 16; lane++ {
			o := p.Start(lane)
			for flat := lane; flat < total; flat += 16 {
				_, wantOffsets := p.At(flat)
				require.Equal(t, wantOffsets, o.Offsets, "order %s flat %d", order, flat)
				o.Advance()
			}
		}
	}
}

// TestOdometerAliasTransparency checks that arrays sharing an owner's index
// variable would see exactly the owner's offsets: deduplication may never
// change addressing.
func TestOdometerAliasTransparency(t *testing.T) {
	shape := device.Shape{4, 8}
	rm := shape.ComputeStrides(4)
	grid, block := geometry(1, 8)
	p := New(report(shape, rm, rm), names(2), op.OrderAscending, grid, block)

	require.Equal(t, 0, p.Arrays[1].Ref)

	o := p.Start(3)
	for i := 0; i < 8; i++ {
		require.Equal(t, o.Offsets[0], o.Offsets[1],
			"aliased array diverged from its owner at round %d", i)
		o.Advance()
	}
}

// TestOdometerRandomized fuzzes shapes and geometries.
func TestOdometerRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		ndim := 1 + rng.Intn(4)
		shape := make(device.Shape, ndim)
		for d := range shape {
			shape[d] = 1 + rng.Intn(9)
		}
		blockX := 1 << (2 + rng.Intn(5))
		gridX := 1 + rng.Intn(4)
		threads := gridX * blockX

		grid, block := geometry(gridX, blockX)
		p := New(report(shape, shape.ComputeStrides(4)), names(1), op.OrderAscending, grid, block)

		total := shape.NumElements()
		lane := rng.Intn(threads)
		if lane >= total {
			lane = total - 1
		}
		o := p.Start(lane)
		for flat := lane; flat < total; flat += threads {
			wantIndex, wantOffsets := p.At(flat)
			require.Equal(t, wantIndex, o.Index, "trial %d shape %v flat %d", trial, shape, flat)
			require.Equal(t, wantOffsets, o.Offsets, "trial %d shape %v flat %d", trial, shape, flat)
			o.Advance()
		}
	}
}
