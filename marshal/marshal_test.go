package marshal

import (
	"math"
	"testing"

	"github.com/tetratelabs/wazero/api"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		sig     string
		params  string
		results string
		valid   bool
	}{
		{"()", "", "", true},
		{"(i)i", "i", "i", true},
		{"(iIfF)F", "iIfF", "F", true},
		{"(RVc)", "RVc", "", true},
		{"()iI", "", "iI", true},
		{"i)i", "", "", false},
		{"(x)i", "", "", false},
		{"(i)x", "", "", false},
		{"", "", "", false},
		{"(i", "", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.sig, func(t *testing.T) {
			params, results, err := ParseSignature(tc.sig)
			if !tc.valid {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSignature error: %v", err)
			}
			if got := kindString(params); got != tc.params {
				t.Errorf("params = %q, want %q", got, tc.params)
			}
			if got := kindString(results); got != tc.results {
				t.Errorf("results = %q, want %q", got, tc.results)
			}
		})
	}
}

func kindString(kinds []Kind) string {
	b := make([]byte, len(kinds))
	for i, k := range kinds {
		b[i] = byte(k)
	}
	return string(b)
}

func TestSignature_FromValueTypes(t *testing.T) {
	sig := Signature(
		[]api.ValueType{api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64},
		[]api.ValueType{api.ValueTypeI32},
	)
	if sig != "(iIfF)i" {
		t.Errorf("signature = %q, want %q", sig, "(iIfF)i")
	}

	if got := Signature(nil, nil); got != "()" {
		t.Errorf("empty signature = %q, want %q", got, "()")
	}
}

func TestToEngine_I32(t *testing.T) {
	for _, v := range []any{int(42), int32(42), int64(42), uint32(42)} {
		raw, err := ToEngine(v, KindI32)
		if err != nil {
			t.Fatalf("ToEngine(%T) error: %v", v, err)
		}
		if api.DecodeI32(raw) != 42 {
			t.Errorf("ToEngine(%T) = %d, want 42", v, api.DecodeI32(raw))
		}
	}

	if _, err := ToEngine("42", KindI32); err == nil {
		t.Error("expected conversion error for string")
	}
	if _, err := ToEngine(int64(math.MaxInt32)+1, KindI32); err == nil {
		t.Error("expected overflow error")
	}
	if _, err := ToEngine(3.5, KindI32); err == nil {
		t.Error("expected conversion error for float")
	}
}

func TestToEngine_Negative(t *testing.T) {
	raw, err := ToEngine(-7, KindI32)
	if err != nil {
		t.Fatalf("ToEngine error: %v", err)
	}
	if api.DecodeI32(raw) != -7 {
		t.Errorf("round trip = %d, want -7", api.DecodeI32(raw))
	}
}

func TestToEngine_Floats(t *testing.T) {
	raw, err := ToEngine(2.5, KindF64)
	if err != nil {
		t.Fatalf("ToEngine error: %v", err)
	}
	if api.DecodeF64(raw) != 2.5 {
		t.Errorf("f64 round trip = %v", api.DecodeF64(raw))
	}

	// f32 accepts a float64 host value, like the other dynamic boundaries
	raw, err = ToEngine(1.5, KindF32)
	if err != nil {
		t.Fatalf("ToEngine error: %v", err)
	}
	if api.DecodeF32(raw) != 1.5 {
		t.Errorf("f32 round trip = %v", api.DecodeF32(raw))
	}

	if _, err := ToEngine(7, KindF64); err == nil {
		t.Error("expected conversion error for int into F")
	}
}

func TestToEngine_UnsupportedKinds(t *testing.T) {
	for _, k := range []Kind{KindExternref, KindV128, KindFuncref} {
		if _, err := ToEngine(1, k); err == nil {
			t.Errorf("expected unsupported error for %s", k)
		}
	}
}

func TestFromEngine(t *testing.T) {
	if v, err := FromEngine(api.EncodeI32(-3), KindI32); err != nil || v.(int32) != -3 {
		t.Errorf("i32: v=%v err=%v", v, err)
	}
	if v, err := FromEngine(api.EncodeI64(1<<40), KindI64); err != nil || v.(int64) != 1<<40 {
		t.Errorf("i64: v=%v err=%v", v, err)
	}
	if v, err := FromEngine(api.EncodeF32(0.5), KindF32); err != nil || v.(float32) != 0.5 {
		t.Errorf("f32: v=%v err=%v", v, err)
	}
	if v, err := FromEngine(api.EncodeF64(-0.25), KindF64); err != nil || v.(float64) != -0.25 {
		t.Errorf("f64: v=%v err=%v", v, err)
	}
	if _, err := FromEngine(0, KindExternref); err == nil {
		t.Error("expected unsupported error for externref")
	}
}

func TestKindValueType(t *testing.T) {
	for _, k := range []Kind{KindI32, KindI64, KindF32, KindF64, KindExternref} {
		vt, err := k.ValueType()
		if err != nil {
			t.Fatalf("ValueType(%s) error: %v", k, err)
		}
		back, err := KindOf(vt)
		if err != nil {
			t.Fatalf("KindOf error: %v", err)
		}
		if back != k {
			t.Errorf("round trip %s -> %s", k, back)
		}
	}

	for _, k := range []Kind{KindV128, KindFuncref} {
		if _, err := k.ValueType(); err == nil {
			t.Errorf("expected unsupported error for %s", k)
		}
	}
}
