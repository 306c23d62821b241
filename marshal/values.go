package marshal

import (
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/hostcall/wasm-bridge/errors"
)

// ToEngine converts a host value to the raw engine representation of the
// given kind. The value's runtime type must fit the kind; integers are
// range-checked rather than silently truncated.
func ToEngine(value any, kind Kind) (uint64, error) {
	switch kind {
	case KindI32:
		switch v := value.(type) {
		case int:
			if v < math.MinInt32 || v > math.MaxInt32 {
				return 0, overflow(value, kind)
			}
			return api.EncodeI32(int32(v)), nil
		case int32:
			return api.EncodeI32(v), nil
		case int64:
			if v < math.MinInt32 || v > math.MaxInt32 {
				return 0, overflow(value, kind)
			}
			return api.EncodeI32(int32(v)), nil
		case uint32:
			return api.EncodeU32(v), nil
		}
	case KindI64:
		switch v := value.(type) {
		case int:
			return api.EncodeI64(int64(v)), nil
		case int32:
			return api.EncodeI64(int64(v)), nil
		case int64:
			return api.EncodeI64(v), nil
		case uint64:
			return v, nil
		}
	case KindF32:
		switch v := value.(type) {
		case float32:
			return api.EncodeF32(v), nil
		case float64:
			return api.EncodeF32(float32(v)), nil
		}
	case KindF64:
		switch v := value.(type) {
		case float64:
			return api.EncodeF64(v), nil
		case float32:
			return api.EncodeF64(float64(v)), nil
		}
	case KindExternref, KindV128, KindFuncref:
		return 0, errors.Unsupported(errors.PhaseMarshal, "host values cannot carry signature code "+kind.String())
	default:
		return 0, errors.Unsupported(errors.PhaseMarshal, "unknown signature code")
	}
	return 0, mismatch(value, kind)
}

// FromEngine converts a raw engine value of the given kind to a host value:
// i32 -> int32, i64 -> int64, f32 -> float32, f64 -> float64.
func FromEngine(raw uint64, kind Kind) (any, error) {
	switch kind {
	case KindI32:
		return api.DecodeI32(raw), nil
	case KindI64:
		return int64(raw), nil
	case KindF32:
		return api.DecodeF32(raw), nil
	case KindF64:
		return api.DecodeF64(raw), nil
	}
	return nil, errors.Unsupported(errors.PhaseMarshal, "engine values of signature code "+kind.String()+" cannot cross to the host")
}

func mismatch(value any, kind Kind) *errors.Error {
	return errors.Conversion(errors.PhaseMarshal, nil, fmt.Sprintf("%T", value), kind.String(), value)
}

func overflow(value any, kind Kind) *errors.Error {
	e := errors.Conversion(errors.PhaseMarshal, nil, fmt.Sprintf("%T", value), kind.String(), value)
	e.Detail = fmt.Sprintf("value %v overflows %s", value, kind)
	return e
}
