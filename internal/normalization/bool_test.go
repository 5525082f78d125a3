package normalization

import (
	"strings"
	"testing"
)

func TestCoerceBoolTruthy(t *testing.T) {
	for _, v := range []any{1, "1", "t", "true", "TRUE", "True", "y", "yes", " YES ", true, 1.0} {
		got := CoerceBool(v)
		if got == nil || !*got {
			t.Fatalf("CoerceBool(%#v) = %v, want true", v, got)
		}
	}
}

func TestCoerceBoolFalsy(t *testing.T) {
	for _, v := range []any{0, "0", "f", "false", "FALSE", "False", "n", "no", "", "  ", false, 0.0} {
		got := CoerceBool(v)
		if got == nil || *got {
			t.Fatalf("CoerceBool(%#v) = %v, want false", v, got)
		}
	}
}

func TestCoerceBoolUnknown(t *testing.T) {
	for _, v := range []any{nil, "maybe", "2", 2, -1, "tru", "yess", 0.5, []byte("huh")} {
		if got := CoerceBool(v); got != nil {
			t.Fatalf("CoerceBool(%#v) = %v, want nil", v, *got)
		}
	}
}

func TestCoerceFloat(t *testing.T) {
	cases := []struct {
		in   any
		want *float64
	}{
		{in: "181.4", want: f64(181.4)},
		{in: 42, want: f64(42)},
		{in: int64(7), want: f64(7)},
		{in: "", want: nil},
		{in: "fast", want: nil},
		{in: nil, want: nil},
	}
	for _, tc := range cases {
		got := CoerceFloat(tc.in)
		if (got == nil) != (tc.want == nil) {
			t.Fatalf("CoerceFloat(%#v) = %v, want %v", tc.in, got, tc.want)
		}
		if got != nil && *got != *tc.want {
			t.Fatalf("CoerceFloat(%#v) = %v, want %v", tc.in, *got, *tc.want)
		}
	}
}

func TestBoolSQLExprEmbedsCanonicalSets(t *testing.T) {
	expr := BoolSQLExpr("s.serve_fault")
	for _, frag := range []string{"'1','t','true','y','yes'", "'0','f','false','n','no',''", "lower(btrim((s.serve_fault)::text))", "ELSE NULL"} {
		if !strings.Contains(expr, frag) {
			t.Fatalf("BoolSQLExpr missing %q in:\n%s", frag, expr)
		}
	}
}

func TestKleeneAnd(t *testing.T) {
	tr, fa := true, false
	cases := []struct {
		name string
		in   []*bool
		want *bool
	}{
		{name: "all_true", in: []*bool{&tr, &tr}, want: &tr},
		{name: "false_beats_unknown", in: []*bool{nil, &fa}, want: &fa},
		{name: "unknown_taints_true", in: []*bool{&tr, nil}, want: nil},
		{name: "empty_is_true", in: nil, want: &tr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := And(tc.in...)
			if (got == nil) != (tc.want == nil) || (got != nil && *got != *tc.want) {
				t.Fatalf("And = %v, want %v", got, tc.want)
			}
		})
	}
}

func f64(f float64) *float64 { return &f }
