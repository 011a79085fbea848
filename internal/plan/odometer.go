package plan

// Odometer steps through a Plan's traversal on the host, performing exactly
// the index arithmetic the generated kernel performs: one modulo/divide
// decomposition at the starting position, then add-block-step plus carry
// propagation per iteration. It backs the debug instrumentation and the
// equivalence tests between incremental and direct index computation.
type Odometer struct {
	plan *Plan

	// Index holds the per-dimension running indices.
	Index []int
	// Offsets holds the per-array flat element offsets. Aliased arrays are
	// advanced independently here so alias transparency can be observed.
	Offsets []int
}

// Start positions an odometer at the given flat element position. This is
// the only point that pays the full modulo/divide decomposition.
func (p *Plan) Start(flat int) *Odometer {
	o := &Odometer{
		plan:    p,
		Index:   make([]int, p.NDim),
		Offsets: make([]int, len(p.Arrays)),
	}
	tmp := flat
	for d := 0; d < p.NDim; d++ {
		o.Index[d] = tmp % p.Shape[d]
		tmp /= p.Shape[d]
		for a := range p.Arrays {
			o.Offsets[a] += o.Index[d] * p.Arrays[a].ElemStrides[d]
		}
	}
	return o
}

// Advance moves the odometer forward by one full round of all execution
// lanes. Each array's flat offset and each dimension's index receive the
// precomputed block-step, then carries propagate upward: a dimension that
// overflows subtracts its size, increments the next dimension, and corrects
// every flat offset by the stride of the next dimension minus the
// size-weighted stride of this one. Cost is proportional to the carries
// actually triggered, not to the dimensionality.
func (o *Odometer) Advance() {
	p := o.plan
	for a := range p.Arrays {
		for d := 0; d < p.NDim; d++ {
			o.Offsets[a] += p.Arrays[a].BlockElemStrides[d]
		}
	}
	for d := 0; d < p.NDim; d++ {
		o.Index[d] += p.BlockStep[d]
		if d < p.NDim-1 && o.Index[d] >= p.Shape[d] {
			o.Index[d] -= p.Shape[d]
			o.Index[d+1]++
			for a := range p.Arrays {
				o.Offsets[a] += p.Arrays[a].ElemStrides[d+1] - p.Arrays[a].DimElemStrides[d]
			}
		}
	}
}

// At computes the per-dimension indices and per-array offsets of a flat
// position directly, by full modulo/divide decomposition. It is the
// reference the incremental update is checked against.
func (p *Plan) At(flat int) (index []int, offsets []int) {
	index = make([]int, p.NDim)
	offsets = make([]int, len(p.Arrays))
	tmp := flat
	for d := 0; d < p.NDim; d++ {
		index[d] = tmp % p.Shape[d]
		tmp /= p.Shape[d]
		for a := range p.Arrays {
			offsets[a] += index[d] * p.Arrays[a].ElemStrides[d]
		}
	}
	return index, offsets
}
