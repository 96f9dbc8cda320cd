package jsonmerge

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// FromAny converts a Go value into a Record. The generic shapes produced by
// encoding/json (map[string]any, []any, float64, json.Number, string, bool,
// nil) are converted directly; map keys are sorted because Go maps carry no
// order. Any other value is round-tripped through encoding/json.
func FromAny(v any) (Record, error) {
	return fromAny(v, 0)
}

func fromAny(v any, depth int) (Record, error) {
	if depth > MaxDepth {
		return Record{}, fmt.Errorf("%w: nesting exceeds %d", ErrMalformedRecord, MaxDepth)
	}
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Record:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return NumberLiteral(t.String())
	case float64:
		return floatRecord(t)
	case float32:
		return floatRecord(float64(t))
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case int32:
		return Int(int64(t)), nil
	case uint64:
		return Record{kind: NumberKind, text: strconv.FormatUint(t, 10)}, nil
	case uint:
		return Record{kind: NumberKind, text: strconv.FormatUint(uint64(t), 10)}, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		fields := make([]Field, len(keys))
		for i, k := range keys {
			fv, err := fromAny(t[k], depth+1)
			if err != nil {
				return Record{}, err
			}
			fields[i] = Field{Key: k, Value: fv}
		}
		return Object(fields...), nil
	case []any:
		elems := make([]Record, len(t))
		for i, e := range t {
			ev, err := fromAny(e, depth+1)
			if err != nil {
				return Record{}, err
			}
			elems[i] = ev
		}
		return Record{kind: ArrayKind, vals: elems}, nil
	case []byte:
		return Parse(t)
	}
	d, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return Parse(d)
}

func floatRecord(f float64) (Record, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Record{}, fmt.Errorf("%w: %v is not a JSON number", ErrMalformedRecord, f)
	}
	return Float(f), nil
}

// ToAny converts r into the generic shapes encoding/json produces when
// decoding into an any. Numbers become float64 when representable and
// json.Number otherwise; object key order is lost.
func ToAny(r Record) any {
	switch r.kind {
	case BoolKind:
		return r.b
	case NumberKind:
		if f, err := strconv.ParseFloat(r.text, 64); err == nil {
			return f
		}
		return json.Number(r.text)
	case StringKind:
		return r.text
	case ObjectKind:
		m := make(map[string]any, len(r.keys))
		for i, k := range r.keys {
			m[k] = ToAny(r.vals[i])
		}
		return m
	case ArrayKind:
		s := make([]any, len(r.vals))
		for i, v := range r.vals {
			s[i] = ToAny(v)
		}
		return s
	}
	return nil
}
