package normalization

import (
	"fmt"
	"strconv"
	"strings"
)

// The upstream feed has shipped boolean fields as real booleans, as 0/1
// integers, and as free-text across ingestion revisions. These two sets are
// the single source of truth for what counts as true and false; the view
// generator embeds the same sets into SQL so the database path cannot
// drift from the Go path.
var (
	TruthyValues = []string{"1", "t", "true", "y", "yes"}
	FalsyValues  = []string{"0", "f", "false", "n", "no", ""}
)

// CoerceBool maps a weakly-typed upstream value onto a three-valued
// boolean. Unknown spellings yield nil, never a default true or false.
func CoerceBool(v any) *bool {
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case bool:
		b := t
		return &b
	case int:
		return boolFromNumber(float64(t))
	case int32:
		return boolFromNumber(float64(t))
	case int64:
		return boolFromNumber(float64(t))
	case float32:
		return boolFromNumber(float64(t))
	case float64:
		return boolFromNumber(t)
	case []byte:
		return boolFromString(string(t))
	case string:
		return boolFromString(t)
	default:
		return boolFromString(fmt.Sprint(v))
	}
}

func boolFromNumber(f float64) *bool {
	switch f {
	case 1:
		b := true
		return &b
	case 0:
		b := false
		return &b
	default:
		return nil
	}
}

func boolFromString(s string) *bool {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, t := range TruthyValues {
		if s == t {
			b := true
			return &b
		}
	}
	for _, f := range FalsyValues {
		if s == f {
			b := false
			return &b
		}
	}
	return nil
}

// CoerceFloat parses numbers that may arrive as numeric JSON, strings, or
// integer-typed columns.
func CoerceFloat(v any) *float64 {
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		f := t
		return &f
	case float32:
		f := float64(t)
		return &f
	case int:
		f := float64(t)
		return &f
	case int32:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case []byte:
		return floatFromString(string(t))
	case string:
		return floatFromString(t)
	default:
		return nil
	}
}

func floatFromString(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// CoerceInt truncates through CoerceFloat so "2" and 2.0 both land on 2.
func CoerceInt(v any) *int {
	f := CoerceFloat(v)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}

// CoerceString trims and returns nil for empty text.
func CoerceString(v any) *string {
	if v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// BoolSQLExpr renders the coercion rule as a SQL CASE expression over an
// arbitrary column expression. Used when (re)creating vw_serve_fact.
func BoolSQLExpr(col string) string {
	quote := func(vals []string) string {
		parts := make([]string, 0, len(vals))
		for _, v := range vals {
			parts = append(parts, "'"+v+"'")
		}
		return strings.Join(parts, ",")
	}
	lowered := fmt.Sprintf("lower(btrim((%s)::text))", col)
	return fmt.Sprintf(
		"(CASE WHEN (%s) IS NULL THEN NULL WHEN %s IN (%s) THEN TRUE WHEN %s IN (%s) THEN FALSE ELSE NULL END)",
		col, lowered, quote(TruthyValues), lowered, quote(FalsyValues),
	)
}

// Three-valued helpers (Kleene logic). Unknown inputs stay unknown instead
// of collapsing to a default.

func And(vals ...*bool) *bool {
	anyNil := false
	for _, v := range vals {
		if v == nil {
			anyNil = true
			continue
		}
		if !*v {
			f := false
			return &f
		}
	}
	if anyNil {
		return nil
	}
	t := true
	return &t
}

func Not(v *bool) *bool {
	if v == nil {
		return nil
	}
	n := !*v
	return &n
}

func IsTrue(v *bool) bool  { return v != nil && *v }
func IsFalse(v *bool) bool { return v != nil && !*v }
