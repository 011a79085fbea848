package kernel

import (
	"github.com/born-ml/elwise/internal/device"
)

// CallOption is a call modifier. Options are passed alongside the positional
// kernel arguments and recognized by type, so an unrecognized modifier is a
// compile-time impossibility rather than a runtime surprise; conflicting
// modifiers still fail the call.
type CallOption interface {
	applyCall(*callState) error
}

type callState struct {
	hasRange          bool
	start, stop, step int

	hasSlice                         bool
	sliceStart, sliceStop, sliceStep int

	stream device.Stream
	debug  device.Buffer
}

type rangeOption struct{ start, stop, step int }

func (o rangeOption) applyCall(cs *callState) error {
	if o.step == 0 {
		return &device.CallModifierError{Reason: "range step must not be zero"}
	}
	cs.hasRange = true
	cs.start, cs.stop, cs.step = o.start, o.stop, o.step
	return nil
}

// OnRange restricts the call to the elements start, start+step, ... up to
// but excluding stop. step may be negative.
func OnRange(start, stop, step int) CallOption {
	return rangeOption{start, stop, step}
}

type sliceOption struct{ start, stop, step int }

func (o sliceOption) applyCall(cs *callState) error {
	if o.step == 0 {
		return &device.CallModifierError{Reason: "slice step must not be zero"}
	}
	cs.hasSlice = true
	cs.sliceStart, cs.sliceStop, cs.sliceStep = o.start, o.stop, o.step
	return nil
}

// OnSlice restricts the call to a half-open slice resolved against the
// representative array's element count, with negative indices counting from
// the end.
func OnSlice(start, stop, step int) CallOption {
	return sliceOption{start, stop, step}
}

type streamOption struct{ s device.Stream }

func (o streamOption) applyCall(cs *callState) error {
	cs.stream = o.s
	return nil
}

// OnStream submits the launch to the given stream instead of the adapter's
// default queue.
func OnStream(s device.Stream) CallOption {
	return streamOption{s}
}

type debugOption struct{ b device.Buffer }

func (o debugOption) applyCall(cs *callState) error {
	cs.debug = o.b
	return nil
}

// WithDebugBuffer supplies the storage buffer the bounds-checking probes of
// a Debug template write into. Required when the template was built with
// Debug and the strided path is taken.
func WithDebugBuffer(b device.Buffer) CallOption {
	return debugOption{b}
}

// resolveSlice applies the usual half-open slice semantics against a
// sequence of n elements: negative indices count from the end, and bounds
// are clamped to the valid range for the step direction.
func resolveSlice(start, stop, step, n int) (int, int, int) {
	clamp := func(v int) int {
		if v < 0 {
			v += n
			if v < 0 {
				if step < 0 {
					return -1
				}
				return 0
			}
			return v
		}
		if v >= n {
			if step < 0 {
				return n - 1
			}
			return n
		}
		return v
	}
	return clamp(start), clamp(stop), step
}

// rangeExtent counts the elements a (start, stop, step) range visits.
func rangeExtent(start, stop, step int) int {
	if step > 0 {
		if stop <= start {
			return 0
		}
		return (stop - start + step - 1) / step
	}
	if start <= stop {
		return 0
	}
	return (start - stop - step - 1) / (-step)
}

func (cs *callState) validate() error {
	if cs.hasRange && cs.hasSlice {
		return &device.CallModifierError{Reason: "may not specify both range and slice modifiers"}
	}
	return nil
}

// splitArgs separates positional kernel arguments from call modifiers.
func splitArgs(argsAndOpts []any) ([]any, *callState, error) {
	cs := &callState{}
	args := make([]any, 0, len(argsAndOpts))
	for _, a := range argsAndOpts {
		if opt, ok := a.(CallOption); ok {
			if err := opt.applyCall(cs); err != nil {
				return nil, nil, err
			}
			continue
		}
		args = append(args, a)
	}
	if err := cs.validate(); err != nil {
		return nil, nil, err
	}
	return args, cs, nil
}
