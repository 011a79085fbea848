package kernel

import (
	"fmt"
	"math"

	"github.com/born-ml/elwise/internal/device"
	"github.com/born-ml/elwise/internal/op"
)

// scalarWord converts a Go scalar value to the 4-byte word the launch
// convention expects for the given parameter type.
func scalarWord(dtype op.DataType, val any) (uint32, error) {
	switch dtype {
	case op.Float32:
		switch v := val.(type) {
		case float32:
			return math.Float32bits(v), nil
		case float64:
			return math.Float32bits(float32(v)), nil
		case int:
			return math.Float32bits(float32(v)), nil
		}
	case op.Int32:
		switch v := val.(type) {
		case int32:
			return uint32(v), nil
		case int:
			return uint32(int32(v)), nil
		}
	case op.Uint32:
		switch v := val.(type) {
		case uint32:
			return v, nil
		case int:
			return uint32(v), nil
		case uint:
			return uint32(v), nil
		}
	}
	return 0, &device.CallModifierError{
		Reason: fmt.Sprintf("cannot pass %T as %s", val, dtype),
	}
}

// pack assembles the full launch argument list in declared parameter order:
// caller arguments first, then the implicit trailing parameters (the bound,
// or start/stop/step), then the debug buffer when the convention requires
// one.
func pack(t *op.Template, args []any, bound int, cs *callState, needDebug bool) ([]device.LaunchArg, error) {
	packed := make([]device.LaunchArg, 0, len(args)+4)
	for i, a := range t.Args {
		if a.IsVector() {
			buf, ok := args[i].(device.Buffer)
			if !ok {
				return nil, &device.CallModifierError{
					Reason: fmt.Sprintf("argument %q must be a device buffer, got %T", a.Name, args[i]),
				}
			}
			packed = append(packed, device.BufferArg(buf))
			continue
		}
		w, err := scalarWord(a.DType, args[i])
		if err != nil {
			return nil, err
		}
		packed = append(packed, device.WordArg(w))
	}

	if t.Ranged {
		packed = append(packed,
			device.WordArg(uint32(int32(cs.start))),
			device.WordArg(uint32(int32(cs.stop))),
			device.WordArg(uint32(int32(cs.step))))
	} else {
		packed = append(packed, device.WordArg(uint32(bound)))
	}

	if needDebug {
		if cs.debug == nil {
			return nil, &device.CallModifierError{
				Reason: "template was built with Debug: supply a buffer via WithDebugBuffer",
			}
		}
		packed = append(packed, device.DebugArg(cs.debug))
	}

	return packed, nil
}
