package emit

import (
	"fmt"

	"github.com/born-ml/elwise/internal/op"
	"github.com/born-ml/elwise/internal/plan"
)

// Strided emits the general N-dimensional kernel for non-contiguous or
// mixed-order layouts, or when the template asks for per-dimension indices.
// Every shape, stride, and geometry quantity the plan derived is baked into
// module-scope constants; the loop advances all indices incrementally with
// the odometer update instead of re-deriving them by modulo/divide.
//
// grid and block are the launch geometry the source is specialized for; both
// are part of the strided cache key.
func Strided(t *op.Template, p *plan.Plan, gridX, blockX int) (string, Convention) {
	debug := t.Debug
	src, _ := header(t, debug)

	emitDefines(src, t, p, gridX*blockX, debug)

	body := kernelEntry(src, t, blockX)
	emitDecls(body, t, p)

	body.Raw(t.LoopPrep)
	emitInitialDecomposition(body, t, p)

	var loop *Source
	if t.Ranged {
		// The strided range loop traverses the window [start, stop) with
		// unit step; the block-step increments assume consecutive rounds of
		// total_threads elements, so other steps never reach this path.
		loop = body.Block("for (; _global_i < stop; _global_i += TOTAL_THREADS) {", "}")
	} else {
		loop = body.Block("for (; _global_i < i32(n); _global_i += TOTAL_THREADS) {", "}")
	}

	if debug {
		emitProbes(loop, p)
	}
	for _, a := range p.Arrays {
		if !a.Owned() {
			loop.Line("let %s_i = %s_i;", a.Name, p.Arrays[a.Ref].Name)
		}
	}
	loop.Raw(t.Operation)
	emitOdometerUpdate(loop, t, p)

	body.Raw(t.AfterLoop)

	return src.Render(), Convention{
		Entry:         t.Name,
		WorkgroupSize: blockX,
		DebugBinding:  debug,
	}
}

// index returns the lvalue naming dimension d's running index: an element of
// the INDEX vector when the template exposes it, a scalar local otherwise.
func index(t *op.Template, d int) string {
	if t.WithIndices {
		return fmt.Sprintf("INDEX[%d]", d)
	}
	return fmt.Sprintf("INDEX_%d", d)
}

func emitDefines(src *Source, t *op.Template, p *plan.Plan, totalThreads int, debug bool) {
	src.Blank()
	if t.WithIndices {
		src.Line("const NDIM: i32 = %d;", p.NDim)
	}
	src.Line("const TOTAL_THREADS: i32 = %d;", totalThreads)
	for d := 0; d < p.NDim; d++ {
		src.Line("const SHAPE_%d: i32 = %d;", d, p.Shape[d])
	}
	for d := 0; d < p.NDim; d++ {
		src.Line("const BLOCK_STEP_%d: i32 = %d;", d, p.BlockStep[d])
	}
	for _, a := range p.Arrays {
		if !a.Owned() {
			// Aliased arrays reuse their owner's index variable; their own
			// stride constants would be dead text.
			continue
		}
		for d := 0; d < p.NDim; d++ {
			src.Line("const ELEMSTRIDE_%s_%d: i32 = %d;", a.Name, d, a.ElemStrides[d])
		}
		for d := 0; d < p.NDim; d++ {
			src.Line("const DIMELEMSTRIDE_%s_%d: i32 = %d;", a.Name, d, a.DimElemStrides[d])
		}
		for d := 0; d < p.NDim; d++ {
			src.Line("const BLOCKELEMSTRIDE_%s_%d: i32 = %d;", a.Name, d, a.BlockElemStrides[d])
		}
	}
	if debug {
		for i, a := range p.Arrays {
			if a.Owned() {
				src.Line("const MAXOFFSET_%s: i32 = %d;", a.Name, p.MaxOffset(i))
			}
		}
	}
}

func emitDecls(body *Source, t *op.Template, p *plan.Plan) {
	if t.Ranged {
		body.Line("var _global_i: i32 = start + i32(_cta_start + _tid);")
	} else {
		body.Line("var _global_i: i32 = i32(_cta_start + _tid);")
	}
	for _, a := range p.Arrays {
		if a.Owned() {
			body.Line("var %s_i: i32 = 0;", a.Name)
		}
	}
	if t.WithIndices {
		body.Line("var INDEX: array<i32, NDIM>;")
	} else {
		for d := 0; d < p.NDim; d++ {
			body.Line("var INDEX_%d: i32 = 0;", d)
		}
	}
}

// emitInitialDecomposition pays the full modulo/divide decomposition once,
// at the traversal's starting flat position.
func emitInitialDecomposition(body *Source, t *op.Template, p *plan.Plan) {
	body.Line("var _tmp_global_i: i32 = _global_i;")
	for d := 0; d < p.NDim; d++ {
		body.Line("%s = _tmp_global_i %% SHAPE_%d;", index(t, d), d)
		body.Line("_tmp_global_i = _tmp_global_i / SHAPE_%d;", d)
		for _, a := range p.Arrays {
			if a.Owned() {
				body.Line("%s_i += %s * ELEMSTRIDE_%s_%d;", a.Name, index(t, d), a.Name, d)
			}
		}
	}
}

// emitOdometerUpdate advances every owned flat offset and every dimension
// index by one round of all lanes, then propagates carries upward with the
// matching offset corrections.
func emitOdometerUpdate(loop *Source, t *op.Template, p *plan.Plan) {
	for _, a := range p.Arrays {
		if !a.Owned() {
			continue
		}
		inc := ""
		for d := 0; d < p.NDim; d++ {
			if d > 0 {
				inc += " + "
			}
			inc += fmt.Sprintf("BLOCKELEMSTRIDE_%s_%d", a.Name, d)
		}
		loop.Line("%s_i += %s;", a.Name, inc)
	}
	for d := 0; d < p.NDim; d++ {
		loop.Line("%s += BLOCK_STEP_%d;", index(t, d), d)
		if d == p.NDim-1 {
			continue
		}
		carry := loop.Block(fmt.Sprintf("if (%s >= SHAPE_%d) {", index(t, d), d), "}")
		carry.Line("%s -= SHAPE_%d;", index(t, d), d)
		carry.Line("%s += 1;", index(t, d+1))
		for _, a := range p.Arrays {
			if a.Owned() {
				carry.Line("%s_i += ELEMSTRIDE_%s_%d - DIMELEMSTRIDE_%s_%d;", a.Name, a.Name, d+1, a.Name, d)
			}
		}
	}
}

// emitProbes appends the bounds instrumentation: each owned offset is
// checked against its maximum legal value and violations are recorded in
// the trailing debug buffer (violation count in slot 0, worst offset bits
// in slot 1). The probes exist only when Template.Debug is set and never
// change the computed result.
func emitProbes(loop *Source, p *plan.Plan) {
	for _, a := range p.Arrays {
		if !a.Owned() {
			continue
		}
		probe := loop.Block(fmt.Sprintf("if (%s_i < 0 || %s_i > MAXOFFSET_%s) {", a.Name, a.Name, a.Name), "}")
		probe.Line("atomicAdd(&_dbg[0], 1u);")
		probe.Line("atomicMax(&_dbg[1], bitcast<u32>(%s_i));", a.Name)
		probe.Line("break;")
	}
}
