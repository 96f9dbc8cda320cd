package jsonmerge

import (
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"strconv"
)

// MaxDepth bounds the nesting of decoded records.
const MaxDepth = 10000

// Kind identifies the shape of a Record.
type Kind uint8

const (
	NullKind Kind = iota
	BoolKind
	NumberKind
	StringKind
	ObjectKind
	ArrayKind
)

func (k Kind) String() string {
	switch k {
	case NullKind:
		return "null"
	case BoolKind:
		return "boolean"
	case NumberKind:
		return "number"
	case StringKind:
		return "string"
	case ObjectKind:
		return "object"
	case ArrayKind:
		return "array"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Record is an immutable JSON-like value. The zero Record is null.
//
// Objects keep their keys in insertion order. Edits never modify a Record in
// place; they return a new Record that shares every untouched subtree with
// the original.
type Record struct {
	kind Kind
	b    bool
	text string   // string value or number literal
	keys []string // object keys, parallel to vals
	vals []Record // object values or array elements
}

// Field is a single key/value pair of an object.
type Field struct {
	Key   string
	Value Record
}

// Null returns the null record.
func Null() Record { return Record{} }

// Bool returns a boolean record.
func Bool(v bool) Record { return Record{kind: BoolKind, b: v} }

// Int returns a number record holding v.
func Int(v int64) Record {
	return Record{kind: NumberKind, text: strconv.FormatInt(v, 10)}
}

// Float returns a number record holding v. NaN and infinities have no JSON
// representation and are rejected when encoding.
func Float(v float64) Record {
	return Record{kind: NumberKind, text: strconv.FormatFloat(v, 'g', -1, 64)}
}

// NumberLiteral returns a number record with the given JSON number text.
func NumberLiteral(lit string) (Record, error) {
	if !isNumberLiteral(lit) {
		return Record{}, fmt.Errorf("invalid number literal %q", lit)
	}
	return Record{kind: NumberKind, text: lit}, nil
}

// String returns a string record.
func String(v string) Record { return Record{kind: StringKind, text: v} }

// Object returns an object record with the given fields in order. When a key
// repeats, the later value replaces the earlier one in the earlier position.
func Object(fields ...Field) Record {
	r := Record{kind: ObjectKind}
	if len(fields) == 0 {
		return r
	}
	r.keys = make([]string, 0, len(fields))
	r.vals = make([]Record, 0, len(fields))
	for _, f := range fields {
		if i := r.keyIndex(f.Key); i >= 0 {
			r.vals[i] = f.Value
			continue
		}
		r.keys = append(r.keys, f.Key)
		r.vals = append(r.vals, f.Value)
	}
	return r
}

// Array returns an array record holding a copy of elems.
func Array(elems ...Record) Record {
	return Record{kind: ArrayKind, vals: slices.Clone(elems)}
}

// Kind reports the shape of r.
func (r Record) Kind() Kind { return r.kind }

// IsNull reports whether r is null.
func (r Record) IsNull() bool { return r.kind == NullKind }

// IsContainer reports whether r is an object or an array.
func (r Record) IsContainer() bool {
	return r.kind == ObjectKind || r.kind == ArrayKind
}

// IsLeaf reports whether r is a scalar or an empty container.
func (r Record) IsLeaf() bool {
	return !r.IsContainer() || len(r.vals) == 0
}

// Len returns the number of fields of an object or elements of an array, and
// zero for scalars.
func (r Record) Len() int { return len(r.vals) }

// AsBool returns the value of a boolean record.
func (r Record) AsBool() bool { return r.b }

// AsString returns the value of a string record.
func (r Record) AsString() string {
	if r.kind != StringKind {
		return ""
	}
	return r.text
}

// AsNumber returns the literal of a number record.
func (r Record) AsNumber() json.Number {
	if r.kind != NumberKind {
		return ""
	}
	return json.Number(r.text)
}

// Float64 returns the value of a number record as a float64.
func (r Record) Float64() (float64, error) {
	if r.kind != NumberKind {
		return 0, fmt.Errorf("%s is not a number", r.kind)
	}
	return strconv.ParseFloat(r.text, 64)
}

// Keys returns the keys of an object in order.
func (r Record) Keys() []string {
	if r.kind != ObjectKind {
		return nil
	}
	return slices.Clone(r.keys)
}

// Fields returns the fields of an object in order.
func (r Record) Fields() []Field {
	if r.kind != ObjectKind {
		return nil
	}
	fields := make([]Field, len(r.keys))
	for i, k := range r.keys {
		fields[i] = Field{Key: k, Value: r.vals[i]}
	}
	return fields
}

// Elems returns the elements of an array.
func (r Record) Elems() []Record {
	if r.kind != ArrayKind {
		return nil
	}
	return slices.Clone(r.vals)
}

// Get returns the value stored under key in an object.
func (r Record) Get(key string) (Record, bool) {
	if r.kind != ObjectKind {
		return Record{}, false
	}
	i := r.keyIndex(key)
	if i < 0 {
		return Record{}, false
	}
	return r.vals[i], true
}

// Elem returns the i'th element of an array.
func (r Record) Elem(i int) (Record, bool) {
	if r.kind != ArrayKind || i < 0 || i >= len(r.vals) {
		return Record{}, false
	}
	return r.vals[i], true
}

// String returns the compact JSON encoding of r.
func (r Record) String() string {
	d, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("!(%v)", err)
	}
	return string(d)
}

func (r Record) keyIndex(key string) int {
	for i, k := range r.keys {
		if k == key {
			return i
		}
	}
	return -1
}

func isNumberLiteral(lit string) bool {
	if lit == "" {
		return false
	}
	c := lit[0]
	if c != '-' && (c < '0' || c > '9') {
		return false
	}
	return json.Valid([]byte(lit))
}

// Equal reports whether a and b hold the same value. Object key order is
// ignored and numbers compare by value.
func Equal(a, b Record) bool {
	type pair struct{ a, b Record }
	stack := []pair{{a, b}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.a.kind != p.b.kind {
			return false
		}
		switch p.a.kind {
		case NullKind:
		case BoolKind:
			if p.a.b != p.b.b {
				return false
			}
		case NumberKind:
			if !numbersEqual(p.a.text, p.b.text) {
				return false
			}
		case StringKind:
			if p.a.text != p.b.text {
				return false
			}
		case ObjectKind:
			if len(p.a.keys) != len(p.b.keys) {
				return false
			}
			for i, k := range p.a.keys {
				j := p.b.keyIndex(k)
				if j < 0 {
					return false
				}
				stack = append(stack, pair{p.a.vals[i], p.b.vals[j]})
			}
		case ArrayKind:
			if len(p.a.vals) != len(p.b.vals) {
				return false
			}
			for i := range p.a.vals {
				stack = append(stack, pair{p.a.vals[i], p.b.vals[i]})
			}
		}
	}
	return true
}

func numbersEqual(a, b string) bool {
	if a == b {
		return true
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil || fa != fb {
		return false
	}
	// distinct literals can round to the same float64
	ra, okA := new(big.Rat).SetString(a)
	rb, okB := new(big.Rat).SetString(b)
	return okA && okB && ra.Cmp(rb) == 0
}
