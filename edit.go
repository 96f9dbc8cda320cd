package jsonmerge

import (
	"math"
	"slices"

	"github.com/agentflare-ai/jsonpointer"
)

// arrayIndex parses seg as an index into an array of length n.
func arrayIndex(seg string, n int) (int, bool) {
	idx, err := jsonpointer.ParseArrayIndex(seg)
	if err != nil || idx >= uint64(n) {
		return 0, false
	}
	return int(idx), true
}

// child returns the value r holds under seg.
func (r Record) child(seg string) (Record, bool) {
	switch r.kind {
	case ObjectKind:
		return r.Get(seg)
	case ArrayKind:
		i, ok := arrayIndex(seg, len(r.vals))
		if !ok {
			return Record{}, false
		}
		return r.vals[i], true
	}
	return Record{}, false
}

// withChild returns a copy of the container r with seg set to v. On arrays,
// "-" or an index equal to the length appends; an index past the end leaves
// r unchanged.
func (r Record) withChild(seg string, v Record) Record {
	switch r.kind {
	case ObjectKind:
		out := r
		if i := r.keyIndex(seg); i >= 0 {
			out.vals = slices.Clone(r.vals)
			out.vals[i] = v
			return out
		}
		out.keys = append(slices.Clip(r.keys), seg)
		out.vals = append(slices.Clip(r.vals), v)
		return out
	case ArrayKind:
		out := r
		if seg == "-" {
			out.vals = append(slices.Clip(r.vals), v)
			return out
		}
		u, err := jsonpointer.ParseArrayIndex(seg)
		if err != nil || u > uint64(math.MaxInt) {
			return r
		}
		switch idx := int(u); {
		case idx < len(r.vals):
			out.vals = slices.Clone(r.vals)
			out.vals[idx] = v
			return out
		case idx == len(r.vals):
			out.vals = append(slices.Clip(r.vals), v)
			return out
		}
	}
	return r
}

// insertElem returns a copy of the array r with v inserted before index i.
func (r Record) insertElem(i int, v Record) Record {
	out := r
	out.vals = slices.Insert(slices.Clone(r.vals), i, v)
	return out
}

// withoutChild returns a copy of the container r with seg removed.
func (r Record) withoutChild(seg string) (Record, bool) {
	switch r.kind {
	case ObjectKind:
		i := r.keyIndex(seg)
		if i < 0 {
			return r, false
		}
		out := r
		out.keys = slices.Delete(slices.Clone(r.keys), i, i+1)
		out.vals = slices.Delete(slices.Clone(r.vals), i, i+1)
		return out, true
	case ArrayKind:
		i, ok := arrayIndex(seg, len(r.vals))
		if !ok {
			return r, false
		}
		out := r
		out.vals = slices.Delete(slices.Clone(r.vals), i, i+1)
		return out, true
	}
	return r, false
}

// descend returns doc followed by the values found along p, stopping at the
// first segment that does not resolve.
func descend(doc Record, p Path) []Record {
	chain := make([]Record, 1, len(p)+1)
	chain[0] = doc
	cur := doc
	for _, seg := range p {
		next, ok := cur.child(seg)
		if !ok {
			break
		}
		chain = append(chain, next)
		cur = next
	}
	return chain
}

// unwind rebuilds the containers along parent after the last of them was
// replaced by leaf. chain[i] must be the value at parent[:i].
func unwind(chain []Record, parent Path, leaf Record) Record {
	out := leaf
	for i := len(parent) - 1; i >= 0; i-- {
		out = chain[i].withChild(parent[i], out)
	}
	return out
}
