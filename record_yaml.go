package jsonmerge

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/goccy/go-yaml"
)

// ParseYAML decodes a YAML document into a Record. Mapping order is kept;
// non-string mapping keys are rendered with fmt.
func ParseYAML(data []byte) (Record, error) {
	var v any
	if err := yaml.UnmarshalWithOptions(data, &v, yaml.UseOrderedMap()); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return fromYAML(v, 0)
}

func fromYAML(v any, depth int) (Record, error) {
	if depth > MaxDepth {
		return Record{}, fmt.Errorf("%w: nesting exceeds %d", ErrMalformedRecord, MaxDepth)
	}
	switch t := v.(type) {
	case yaml.MapSlice:
		r := Record{kind: ObjectKind}
		for _, item := range t {
			key, ok := item.Key.(string)
			if !ok {
				key = fmt.Sprint(item.Key)
			}
			if r.keyIndex(key) >= 0 {
				return Record{}, fmt.Errorf("%w: duplicate key %q", ErrMalformedRecord, key)
			}
			fv, err := fromYAML(item.Value, depth+1)
			if err != nil {
				return Record{}, err
			}
			r.keys = append(r.keys, key)
			r.vals = append(r.vals, fv)
		}
		return r, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		r := Record{kind: ObjectKind}
		for _, k := range keys {
			fv, err := fromYAML(t[k], depth+1)
			if err != nil {
				return Record{}, err
			}
			r.keys = append(r.keys, k)
			r.vals = append(r.vals, fv)
		}
		return r, nil
	case []any:
		r := Record{kind: ArrayKind, vals: make([]Record, 0, len(t))}
		for _, e := range t {
			ev, err := fromYAML(e, depth+1)
			if err != nil {
				return Record{}, err
			}
			r.vals = append(r.vals, ev)
		}
		return r, nil
	}
	return fromAny(v, depth)
}

// MarshalYAML returns r as the ordered value tree go-yaml encodes.
func (r Record) MarshalYAML() (any, error) {
	return toYAML(r), nil
}

// EncodeYAML returns the YAML encoding of r, keeping object key order.
func EncodeYAML(r Record) ([]byte, error) {
	return yaml.Marshal(toYAML(r))
}

func toYAML(r Record) any {
	switch r.kind {
	case BoolKind:
		return r.b
	case NumberKind:
		if i, err := strconv.ParseInt(r.text, 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(r.text, 10, 64); err == nil {
			return u
		}
		if f, err := strconv.ParseFloat(r.text, 64); err == nil {
			return f
		}
		return r.text
	case StringKind:
		return r.text
	case ObjectKind:
		ms := make(yaml.MapSlice, len(r.keys))
		for i, k := range r.keys {
			ms[i] = yaml.MapItem{Key: k, Value: toYAML(r.vals[i])}
		}
		return ms
	case ArrayKind:
		s := make([]any, len(r.vals))
		for i, v := range r.vals {
			s[i] = toYAML(v)
		}
		return s
	}
	return nil
}
