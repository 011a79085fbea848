package emit

import (
	"fmt"

	"github.com/born-ml/elwise/internal/op"
)

// Fast emits the contiguous fast-path kernel: a single loop over a flat
// position shared by every array argument. The source depends only on the
// template, never on shapes, strides, or launch geometry, which is what lets
// the fast-path cache key collapse to the template identity.
func Fast(t *op.Template) (string, Convention) {
	src, _ := header(t, false)
	body := kernelEntry(src, t, DefaultWorkgroupSize)

	body.Raw(t.LoopPrep)

	if t.Ranged {
		emitRangeLoop(body, t, "i32(total_threads) * step")
	} else {
		loop := body.Block("for (var i: u32 = _cta_start + _tid; i < n; i += total_threads) {", "}")
		emitFlatBody(loop, t, "i")
	}

	body.Raw(t.AfterLoop)

	return src.Render(), Convention{
		Entry:         t.Name,
		WorkgroupSize: DefaultWorkgroupSize,
	}
}

// emitRangeLoop emits the ascending and descending range variants. The sign
// of step is a runtime value, so both loops are present and selected by a
// branch.
func emitRangeLoop(body *Source, t *op.Template, stride string) {
	init := "start + i32(_cta_start + _tid) * step"

	desc := body.Block("if (step < 0) {", "}")
	loop := desc.Block(fmt.Sprintf("for (var i: i32 = %s; i > stop; i += %s) {", init, stride), "}")
	emitFlatBody(loop, t, "i")

	asc := body.Block("else {", "}")
	loop = asc.Block(fmt.Sprintf("for (var i: i32 = %s; i < stop; i += %s) {", init, stride), "}")
	emitFlatBody(loop, t, "i")
}

// emitFlatBody binds each traversed array's index name to the flat loop
// variable and appends the operation text.
func emitFlatBody(loop *Source, t *op.Template, flat string) {
	for _, i := range t.ArrayIndices() {
		loop.Line("let %s_i = %s;", t.Args[i].Name, flat)
	}
	loop.Raw(t.Operation)
}
