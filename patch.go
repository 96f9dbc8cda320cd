package jsonmerge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/agentflare-ai/jsonpointer"
)

// Op represents JSON Patch operation types
type Op string

const (
	Add     Op = "add"
	Remove  Op = "remove"
	Replace Op = "replace"
	Move    Op = "move"
	Copy    Op = "copy"
	Test    Op = "test"
)

// Operation represents a single JSON Patch operation
type Operation struct {
	Op    Op
	Path  string
	From  string
	Value Record
}

// Patch represents a collection of JSON Patch operations
type Patch []Operation

func (op Op) needsValue() bool { return op == Add || op == Replace || op == Test }

func (op Op) needsFrom() bool { return op == Move || op == Copy }

// MarshalJSON writes the wire form of o, including "value" and "from" only
// for the operations that carry them.
func (o Operation) MarshalJSON() ([]byte, error) {
	buf := append([]byte(`{"op":`), appendQuoted(nil, string(o.Op))...)
	buf = append(buf, `,"path":`...)
	buf = appendQuoted(buf, o.Path)
	if o.Op.needsFrom() {
		buf = append(buf, `,"from":`...)
		buf = appendQuoted(buf, o.From)
	}
	if o.Op.needsValue() {
		buf = append(buf, `,"value":`...)
		var err error
		if buf, err = o.Value.appendJSON(buf); err != nil {
			return nil, err
		}
	}
	return append(buf, '}'), nil
}

// UnmarshalJSON reads the wire form of an operation. A missing "value" on
// add, replace or test, or a missing "from" on move or copy, is an error;
// a present "value": null is not.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var wire struct {
		Op    Op              `json:"op"`
		Path  *string         `json:"path"`
		From  *string         `json:"from"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPatch, err)
	}
	if wire.Path == nil {
		return fmt.Errorf("%w: %s operation has no path", ErrMalformedPatch, wire.Op)
	}
	out := Operation{Op: wire.Op, Path: *wire.Path}
	if wire.Op.needsFrom() {
		if wire.From == nil {
			return fmt.Errorf("%w: %s operation has no from", ErrMalformedPatch, wire.Op)
		}
		out.From = *wire.From
	}
	if wire.Op.needsValue() {
		if len(wire.Value) == 0 {
			return fmt.Errorf("%w: %w for %s operation", ErrMalformedPatch, ErrMissingValue, wire.Op)
		}
		v, err := Parse(wire.Value)
		if err != nil {
			return fmt.Errorf("%w: value: %w", ErrMalformedPatch, err)
		}
		out.Value = v
	}
	*o = out
	return nil
}

// Validate checks o without a document: a known op, well-formed paths, and
// "-" used only as the final segment of an add.
func (o Operation) Validate() error {
	switch o.Op {
	case Add, Remove, Replace, Move, Copy, Test:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedOp, o.Op)
	}
	p, err := ParsePath(o.Path)
	if err != nil {
		return err
	}
	for i, seg := range p {
		if seg == "-" && (o.Op != Add || i != len(p)-1) {
			return fmt.Errorf("%w: '-' is only valid as the last segment of an add", ErrInvalidPath)
		}
	}
	if o.Op.needsFrom() {
		from, err := ParsePath(o.From)
		if err != nil {
			return err
		}
		for _, seg := range from {
			if seg == "-" {
				return fmt.Errorf("%w: '-' is not valid in from", ErrInvalidPath)
			}
		}
	}
	return nil
}

// DecodePatch decodes and validates the JSON wire form of a patch.
func DecodePatch(data []byte) (Patch, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPatch, err)
	}
	patch := make(Patch, len(raw))
	for i, r := range raw {
		if err := patch[i].UnmarshalJSON(r); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		if err := patch[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: operation %d: %w", ErrMalformedPatch, i, err)
		}
	}
	return patch, nil
}

// Apply applies a series of JSON Patch operations to a document, returning a new
// modified document. The original document is not changed, and when any
// operation fails no partial result is returned.
func Apply(document Record, patch Patch) (Record, error) {
	for i, op := range patch {
		var err error
		switch op.Op {
		case Add:
			document, err = applyAdd(document, op.Path, op.Value)
		case Remove:
			document, err = applyRemove(document, op.Path)
		case Replace:
			document, err = applyReplace(document, op.Path, op.Value)
		case Move:
			document, err = applyMove(document, op.From, op.Path)
		case Copy:
			document, err = applyCopy(document, op.From, op.Path)
		case Test:
			err = applyTest(document, op.Path, op.Value)
		default:
			err = fmt.Errorf("%w: %q", ErrUnsupportedOp, op.Op)
		}

		if err != nil {
			return Record{}, &OperationError{Index: i, Op: op.Op, Path: op.Path, Err: err}
		}
	}

	return document, nil
}

// ApplyStream applies a series of JSON Patch operations to the document read
// from reader and writes the result to writer.
func ApplyStream(reader io.Reader, writer io.Writer, patch Patch) error {
	doc, err := Decode(reader)
	if err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}

	modifiedDoc, err := Apply(doc, patch)
	if err != nil {
		return err
	}

	out, err := modifiedDoc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	_, err = writer.Write(append(out, '\n'))
	return err
}

// ApplyJSON decodes doc and patch, applies the patch and returns the encoded
// result.
func ApplyJSON(doc, patch []byte) ([]byte, error) {
	p, err := DecodePatch(patch)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := ApplyStream(bytes.NewReader(doc), &out, p); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(out.Bytes(), []byte{'\n'}), nil
}

// locate resolves every segment of path except the last and returns the
// containers along the way, the parent path and the final token.
func locate(document Record, path string) ([]Record, Path, string, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, nil, "", err
	}
	parent := p.Parent()
	chain, err := walk(document, parent)
	if err != nil {
		return nil, nil, "", fmt.Errorf("parent path '%s' not found: %w", parent, err)
	}
	return chain, parent, p.Last(), nil
}

// walk is descend that reports why a path does not resolve.
func walk(document Record, p Path) ([]Record, error) {
	chain := descend(document, p)
	if len(chain) == len(p)+1 {
		return chain, nil
	}
	at := len(chain) - 1
	return nil, stepError(chain[at], p[:at+1])
}

func stepError(container Record, p Path) error {
	token := p.Last()
	switch container.Kind() {
	case ObjectKind:
		return fmt.Errorf("%w: '%s'", ErrPathNotFound, p)
	case ArrayKind:
		if idx, err := jsonpointer.ParseArrayIndex(token); err == nil {
			return fmt.Errorf("%w: index %d at '%s' for array of length %d", ErrIndexOutOfRange, idx, p, container.Len())
		}
		return fmt.Errorf("%w: '%s' is not an array index", ErrPathNotFound, p)
	}
	return fmt.Errorf("%w: '%s' is a %s", ErrNotContainer, p.Parent(), container.Kind())
}

func get(document Record, path string) (Record, error) {
	p, err := ParsePath(path)
	if err != nil {
		return Record{}, err
	}
	chain, err := walk(document, p)
	if err != nil {
		return Record{}, err
	}
	return chain[len(chain)-1], nil
}

// Helper functions for patch operations
func applyAdd(document Record, path string, value Record) (Record, error) {
	if path == "" {
		return value, nil
	}
	chain, parentPath, token, err := locate(document, path)
	if err != nil {
		return Record{}, err
	}

	parent := chain[len(chain)-1]
	switch parent.Kind() {
	case ObjectKind:
		return unwind(chain, parentPath, parent.withChild(token, value)), nil
	case ArrayKind:
		if token == "-" {
			return unwind(chain, parentPath, parent.withChild(token, value)), nil
		}
		idx, err := jsonpointer.ParseArrayIndex(token)
		if err != nil {
			return Record{}, fmt.Errorf("%w: '%s' is not an array index", ErrPathNotFound, path)
		}
		if idx > uint64(parent.Len()) {
			return Record{}, fmt.Errorf("%w: add operation on array index %d is out of bounds for array of length %d", ErrIndexOutOfRange, idx, parent.Len())
		}
		return unwind(chain, parentPath, parent.insertElem(int(idx), value)), nil
	}
	return Record{}, fmt.Errorf("%w: cannot add to a %s", ErrNotContainer, parent.Kind())
}

func applyRemove(document Record, path string) (Record, error) {
	if path == "" {
		return Record{}, fmt.Errorf("%w: cannot remove the document root", ErrInvalidPath)
	}
	chain, parentPath, token, err := locate(document, path)
	if err != nil {
		return Record{}, err
	}
	parent := chain[len(chain)-1]
	next, ok := parent.withoutChild(token)
	if !ok {
		return Record{}, stepError(parent, append(parentPath, token))
	}
	return unwind(chain, parentPath, next), nil
}

func applyReplace(document Record, path string, value Record) (Record, error) {
	// To be compliant with RFC6902, "replace" is atomic: the target location
	// MUST exist.
	if path == "" {
		return value, nil
	}
	chain, parentPath, token, err := locate(document, path)
	if err != nil {
		return Record{}, err
	}
	parent := chain[len(chain)-1]
	if _, ok := parent.child(token); !ok {
		return Record{}, stepError(parent, append(parentPath, token))
	}
	return unwind(chain, parentPath, parent.withChild(token, value)), nil
}

func applyMove(document Record, from, to string) (Record, error) {
	if from == to {
		_, err := get(document, from)
		return document, err
	}
	fromPath, err := ParsePath(from)
	if err != nil {
		return Record{}, err
	}
	toPath, err := ParsePath(to)
	if err != nil {
		return Record{}, err
	}
	if toPath.HasPrefix(fromPath) {
		return Record{}, fmt.Errorf("%w: cannot move '%s' into its own child '%s'", ErrInvalidPath, from, to)
	}

	val, err := get(document, from)
	if err != nil {
		return Record{}, err
	}

	doc, err := applyRemove(document, from)
	if err != nil {
		return Record{}, err
	}

	return applyAdd(doc, to, val)
}

func applyCopy(document Record, from, to string) (Record, error) {
	val, err := get(document, from)
	if err != nil {
		return Record{}, err
	}
	return applyAdd(document, to, val)
}

func applyTest(document Record, path string, expected Record) error {
	actual, err := get(document, path)
	if err != nil {
		return err
	}

	if !Equal(actual, expected) {
		return fmt.Errorf("%w: expected %v, got %v", ErrTestFailed, expected, actual)
	}

	return nil
}
