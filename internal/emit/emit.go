package emit

import (
	"fmt"

	"github.com/born-ml/elwise/internal/op"
)

// DefaultWorkgroupSize is the workgroup width used by the fast contiguous
// path. The fast-path source must not depend on launch geometry (its cache
// key is the template identity alone), so the width is fixed here; the grid
// stays a runtime quantity through the num_workgroups builtin.
const DefaultWorkgroupSize = 256

// Convention records how the generated source expects to be launched: the
// entry point name, the literal workgroup width baked into the source, and
// whether a trailing debug storage binding must be supplied.
type Convention struct {
	Entry         string
	WorkgroupSize int
	DebugBinding  bool
}

// header emits everything above the kernel function: the caller's preamble,
// the storage bindings for array parameters, and the uniform Params block
// carrying every scalar parameter (explicit and implicit). Returns the
// module-level source and the binding index one past the uniform block.
func header(t *op.Template, debugBinding bool) (*Source, int) {
	src := &Source{}
	src.Raw(t.Preamble)

	args := t.Implicit()
	binding := 0
	for _, a := range args {
		if !a.IsVector() {
			continue
		}
		src.Line("@group(0) @binding(%d) var<storage, read_write> %s: array<%s>;",
			binding, a.Name, a.DType.WGSL())
		binding++
	}

	params := src.Block("struct Params {", "}")
	for _, a := range args {
		if a.IsVector() {
			continue
		}
		params.Line("%s: %s,", a.Name, a.DType.WGSL())
	}
	src.Line("@group(0) @binding(%d) var<uniform> params: Params;", binding)
	binding++

	if debugBinding {
		src.Line("@group(0) @binding(%d) var<storage, read_write> _dbg: array<atomic<u32>>;", binding)
		binding++
	}

	return src, binding
}

// kernelEntry opens the kernel function with the thread-identity builtins
// and the lane arithmetic shared by both paths, and aliases every scalar
// parameter to its bare name so the operation body can use parameters
// exactly as declared.
func kernelEntry(src *Source, t *op.Template, workgroupSize int) *Source {
	src.Blank()
	src.Line("@compute @workgroup_size(%d)", workgroupSize)
	body := src.Block(fmt.Sprintf(
		"fn %s(@builtin(local_invocation_index) _tid: u32, @builtin(workgroup_id) _wgid: vec3<u32>, @builtin(num_workgroups) _nwg: vec3<u32>) {",
		t.Name), "}")

	body.Line("let total_threads: u32 = _nwg.x * %du;", workgroupSize)
	body.Line("let _cta_start: u32 = _wgid.x * %du;", workgroupSize)
	for _, a := range t.Implicit() {
		if a.IsVector() {
			continue
		}
		body.Line("let %s: %s = params.%s;", a.Name, a.DType.WGSL(), a.Name)
	}
	return body
}
