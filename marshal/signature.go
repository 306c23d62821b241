package marshal

import (
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/hostcall/wasm-bridge/errors"
)

// Kind is a one-character value-type code from the signature encoding.
type Kind byte

const (
	KindI32       Kind = 'i'
	KindI64       Kind = 'I'
	KindF32       Kind = 'f'
	KindF64       Kind = 'F'
	KindExternref Kind = 'R'
	KindV128      Kind = 'V'
	KindFuncref   Kind = 'c'

	// KindNone marks the absence of a result code (void).
	KindNone Kind = 0
)

func (k Kind) valid() bool {
	switch k {
	case KindI32, KindI64, KindF32, KindF64, KindExternref, KindV128, KindFuncref:
		return true
	}
	return false
}

func (k Kind) String() string {
	if k == KindNone {
		return "()"
	}
	return string(byte(k))
}

// ParseSignature decodes a "(params)results" signature string.
func ParseSignature(sig string) (params, results []Kind, err error) {
	if len(sig) < 2 || sig[0] != '(' {
		return nil, nil, errors.InvalidInput(errors.PhaseMarshal, "signature must start with '('")
	}
	close := strings.IndexByte(sig, ')')
	if close < 0 {
		return nil, nil, errors.InvalidInput(errors.PhaseMarshal, "signature missing ')'")
	}

	for i := 1; i < close; i++ {
		k := Kind(sig[i])
		if !k.valid() {
			return nil, nil, errors.InvalidInput(errors.PhaseMarshal, "unknown parameter code "+string(sig[i]))
		}
		params = append(params, k)
	}
	for i := close + 1; i < len(sig); i++ {
		k := Kind(sig[i])
		if !k.valid() {
			return nil, nil, errors.InvalidInput(errors.PhaseMarshal, "unknown result code "+string(sig[i]))
		}
		results = append(results, k)
	}
	return params, results, nil
}

// KindOf maps an engine value type to its signature code.
func KindOf(vt api.ValueType) (Kind, error) {
	switch vt {
	case api.ValueTypeI32:
		return KindI32, nil
	case api.ValueTypeI64:
		return KindI64, nil
	case api.ValueTypeF32:
		return KindF32, nil
	case api.ValueTypeF64:
		return KindF64, nil
	case api.ValueTypeExternref:
		return KindExternref, nil
	case api.ValueType(0x7b): // v128; not named in the public wazero api
		return KindV128, nil
	case api.ValueType(0x70): // funcref; host functions cannot take these
		return KindFuncref, nil
	}
	return 0, errors.Unsupported(errors.PhaseMarshal, "unknown engine value type")
}

// ValueType maps a signature code back to an engine value type. Vector and
// function-reference codes cannot cross the host boundary and report
// unsupported; namespaces containing them fail hook registration.
func (k Kind) ValueType() (api.ValueType, error) {
	switch k {
	case KindI32:
		return api.ValueTypeI32, nil
	case KindI64:
		return api.ValueTypeI64, nil
	case KindF32:
		return api.ValueTypeF32, nil
	case KindF64:
		return api.ValueTypeF64, nil
	case KindExternref:
		return api.ValueTypeExternref, nil
	}
	return 0, errors.Unsupported(errors.PhaseMarshal, "signature code "+k.String()+" not representable in a host function")
}

// SignatureOf derives the compact signature of an engine function
// definition. Unknown value types render as '?', matching descriptor
// output for modules using proposals the bridge does not marshal.
func SignatureOf(def api.FunctionDefinition) string {
	return Signature(def.ParamTypes(), def.ResultTypes())
}

// Signature builds a "(params)results" string from engine value types.
func Signature(params, results []api.ValueType) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, vt := range params {
		b.WriteByte(codeOrPlaceholder(vt))
	}
	b.WriteByte(')')
	for _, vt := range results {
		b.WriteByte(codeOrPlaceholder(vt))
	}
	return b.String()
}

func codeOrPlaceholder(vt api.ValueType) byte {
	k, err := KindOf(vt)
	if err != nil {
		return '?'
	}
	return byte(k)
}

// Kinds converts a list of engine value types to signature codes.
func Kinds(vts []api.ValueType) ([]Kind, error) {
	if len(vts) == 0 {
		return nil, nil
	}
	kinds := make([]Kind, len(vts))
	for i, vt := range vts {
		k, err := KindOf(vt)
		if err != nil {
			return nil, err
		}
		kinds[i] = k
	}
	return kinds, nil
}
