package jsonmerge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Parse decodes a single JSON value into a Record, preserving object key
// order. Duplicate object keys and trailing data are rejected.
func Parse(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	r, err := decode(dec)
	if errors.Is(err, io.EOF) {
		return Record{}, fmt.Errorf("%w: no JSON value", ErrMalformedRecord)
	}
	if err != nil {
		return Record{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return Record{}, fmt.Errorf("%w: trailing data after JSON value", ErrMalformedRecord)
		}
		return Record{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return r, nil
}

// Decode reads the next JSON value from r into a Record.
func Decode(r io.Reader) (Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return decode(dec)
}

type decFrame struct {
	rec     Record
	key     string
	haveKey bool
}

// decode is an explicit-stack decoder over the token stream of dec.
func decode(dec *json.Decoder) (Record, error) {
	var stack []*decFrame
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) && len(stack) == 0 {
				return Record{}, err
			}
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return Record{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}

		var v Record
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				if len(stack) >= MaxDepth {
					return Record{}, fmt.Errorf("%w: nesting exceeds %d", ErrMalformedRecord, MaxDepth)
				}
				f := &decFrame{rec: Record{kind: ObjectKind}}
				if t == '[' {
					f.rec.kind = ArrayKind
				}
				stack = append(stack, f)
				continue
			default:
				v = stack[len(stack)-1].rec
				stack = stack[:len(stack)-1]
			}
		case string:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.rec.kind == ObjectKind && !top.haveKey {
					if top.rec.keyIndex(t) >= 0 {
						return Record{}, fmt.Errorf("%w: duplicate key %q", ErrMalformedRecord, t)
					}
					top.key, top.haveKey = t, true
					continue
				}
			}
			v = String(t)
		case json.Number:
			v = Record{kind: NumberKind, text: t.String()}
		case bool:
			v = Bool(t)
		case nil:
			v = Null()
		default:
			return Record{}, fmt.Errorf("%w: unexpected token %v", ErrMalformedRecord, tok)
		}

		if len(stack) == 0 {
			return v, nil
		}
		top := stack[len(stack)-1]
		if top.rec.kind == ObjectKind {
			top.rec.keys = append(top.rec.keys, top.key)
			top.haveKey = false
		}
		top.rec.vals = append(top.rec.vals, v)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	v, err := Parse(data)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	return r.appendJSON(nil)
}

type encFrame struct {
	rec  Record
	next int
}

func (r Record) appendJSON(dst []byte) ([]byte, error) {
	var stack []encFrame
	emit := func(v Record) error {
		switch v.kind {
		case NullKind:
			dst = append(dst, "null"...)
		case BoolKind:
			dst = strconv.AppendBool(dst, v.b)
		case NumberKind:
			if !isNumberLiteral(v.text) {
				return fmt.Errorf("number %s has no JSON representation", v.text)
			}
			dst = append(dst, v.text...)
		case StringKind:
			dst = appendQuoted(dst, v.text)
		case ObjectKind, ArrayKind:
			open, closer := byte('{'), byte('}')
			if v.kind == ArrayKind {
				open, closer = '[', ']'
			}
			dst = append(dst, open)
			if len(v.vals) == 0 {
				dst = append(dst, closer)
				return nil
			}
			stack = append(stack, encFrame{rec: v})
		}
		return nil
	}

	if err := emit(r); err != nil {
		return nil, err
	}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.rec.vals) {
			if top.rec.kind == ArrayKind {
				dst = append(dst, ']')
			} else {
				dst = append(dst, '}')
			}
			stack = stack[:len(stack)-1]
			continue
		}
		if top.next > 0 {
			dst = append(dst, ',')
		}
		i := top.next
		top.next++
		if top.rec.kind == ObjectKind {
			dst = appendQuoted(dst, top.rec.keys[i])
			dst = append(dst, ':')
		}
		if err := emit(top.rec.vals[i]); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func appendQuoted(dst []byte, s string) []byte {
	// encoding/json never fails on a string.
	q, _ := json.Marshal(s)
	return append(dst, q...)
}
