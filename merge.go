package jsonmerge

import (
	"fmt"
	"slices"
	"strings"

	"github.com/agentflare-ai/jsonpointer"
)

// Strategy selects the value kept in the merged record at a conflicting path.
// The reported conflicts do not depend on the strategy.
type Strategy int

const (
	// StrategyLocal keeps the local value.
	StrategyLocal Strategy = iota
	// StrategyRemote takes the remote value, deleting the path when remote
	// deleted it.
	StrategyRemote
	// StrategyBase reverts to the common ancestor's value.
	StrategyBase
)

func (s Strategy) String() string {
	switch s {
	case StrategyLocal:
		return "local"
	case StrategyRemote:
		return "remote"
	case StrategyBase:
		return "base"
	default:
		return fmt.Sprintf("Strategy(%d)", s)
	}
}

// ParseStrategy returns the Strategy named s.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "local", "ours":
		return StrategyLocal, nil
	case "remote", "theirs":
		return StrategyRemote, nil
	case "base":
		return StrategyBase, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Conflict describes a path that local and remote changed in different ways.
type Conflict struct {
	Path   Path
	Base   Lookup
	Local  Lookup
	Remote Lookup
}

// MarshalJSON encodes c with absent sides omitted.
func (c Conflict) MarshalJSON() ([]byte, error) {
	buf := append([]byte(`{"path":`), appendQuoted(nil, c.Path.String())...)
	sides := []struct {
		name string
		l    Lookup
	}{
		{"base_value", c.Base},
		{"local_value", c.Local},
		{"remote_value", c.Remote},
	}
	for _, s := range sides {
		v, ok := s.l.Get()
		if !ok {
			continue
		}
		buf = append(buf, `,"`...)
		buf = append(buf, s.name...)
		buf = append(buf, `":`...)
		var err error
		if buf, err = v.appendJSON(buf); err != nil {
			return nil, err
		}
	}
	return append(buf, '}'), nil
}

// MergeOption configures Merge.
type MergeOption func(*merger)

// WithStrategy sets the conflict strategy. The default is StrategyLocal.
func WithStrategy(s Strategy) MergeOption {
	return func(m *merger) { m.strategy = s }
}

type merger struct {
	base, local, remote Record
	merged              Record
	strategy            Strategy
	conflicts           []Conflict
	conflictAt          map[string]struct{}
}

// Merge reconciles local and remote, two descendants of base. It starts from
// local and adopts every remote change that local did not also make;
// positions both sides changed differently are reported as conflicts, sorted
// by path. Arrays are compared index by index.
func Merge(base, local, remote Record, opts ...MergeOption) (Record, []Conflict) {
	m := &merger{base: base, local: local, remote: remote, merged: local, conflictAt: map[string]struct{}{}}
	for _, opt := range opts {
		opt(m)
	}

	remoteLeaves := Index(remote)
	slices.SortFunc(remoteLeaves, func(a, b Leaf) int { return ComparePaths(a.Path, b.Path) })
	inRemote := make(map[string]struct{}, len(remoteLeaves))
	for _, leaf := range remoteLeaves {
		inRemote[leaf.Path.String()] = struct{}{}
	}
	for _, leaf := range remoteLeaves {
		m.adopt(leaf.Path, leaf.Value)
	}

	// deletions run deepest and highest index first so that removing an
	// array element never shifts one still pending
	baseLeaves := Index(base)
	slices.SortFunc(baseLeaves, func(a, b Leaf) int { return ComparePaths(b.Path, a.Path) })
	for _, leaf := range baseLeaves {
		if _, ok := inRemote[leaf.Path.String()]; ok {
			continue
		}
		m.retract(leaf.Path, leaf.Value)
	}

	slices.SortStableFunc(m.conflicts, func(a, b Conflict) int { return ComparePaths(a.Path, b.Path) })
	return m.merged, m.conflicts
}

// adopt handles a leaf of remote.
func (m *merger) adopt(p Path, r Record) {
	if m.blocked(p) {
		return
	}
	b, l, rv := Resolve(m.base, p), Resolve(m.local, p), Found(r)
	if bv, ok := b.Get(); ok && r.IsContainer() && r.Len() == 0 && bv.kind == r.kind && bv.Len() > 0 {
		// remote emptied the container: retract handles each child it dropped
		return
	}
	switch {
	case rv.Equal(b):
	case l.Equal(b):
		m.write(p, r)
	case l.Equal(rv):
	default:
		m.conflict(p, b, l, rv)
	}
}

// retract handles a leaf of base that is not a leaf of remote.
func (m *merger) retract(p Path, bv Record) {
	if m.blocked(p) || !Resolve(m.remote, p).IsAbsent() {
		// remote still holds a container here: a type change that adopt
		// has already dealt with
		return
	}
	b, l := Found(bv), Resolve(m.local, p)
	switch {
	case l.Equal(b):
		m.remove(p)
	case l.IsAbsent():
	default:
		m.conflict(p, b, l, Absent())
	}
}

func (m *merger) conflict(p Path, b, l, r Lookup) {
	m.conflicts = append(m.conflicts, Conflict{Path: p, Base: b, Local: l, Remote: r})
	m.conflictAt[p.String()] = struct{}{}
	switch m.strategy {
	case StrategyRemote:
		m.force(p, r, m.remote)
	case StrategyBase:
		m.force(p, b, m.base)
	}
}

// blocked reports whether p lies at or below a recorded conflict. Below a
// conflict merged keeps the value the strategy chose.
func (m *merger) blocked(p Path) bool {
	if len(m.conflictAt) == 0 {
		return false
	}
	var b strings.Builder
	for i := 0; ; i++ {
		if _, ok := m.conflictAt[b.String()]; ok {
			return true
		}
		if i == len(p) {
			return false
		}
		b.WriteByte('/')
		pointerEscaper.WriteString(&b, p[i])
	}
}

// write stores the remote value r at p. Positions on the way that merged is
// missing, or holds with a different shape than remote, are recreated with
// remote's container kind unless local changed them, which is a conflict.
func (m *merger) write(p Path, r Record) {
	shape := descend(m.remote, p)
	d := m.mismatch(p, shape)
	if d < len(p) {
		q := p[:d]
		b, l := Resolve(m.base, q), Resolve(m.local, q)
		if !l.Equal(b) {
			m.conflict(q, b, l, Found(shape[d]))
			return
		}
	}
	if i := m.gap(p, d, shape); i >= 0 {
		// local shortened an array that remote extended
		q := p[:i]
		l := Resolve(m.local, q)
		m.conflict(q, Resolve(m.base, q), l, Resolve(m.remote, q))
		if m.strategy == StrategyLocal {
			m.force(q, l, m.local)
		}
		return
	}
	m.place(p, d, r, shape)
}

// force stores v at p regardless of local, or removes p when v is absent.
// src is the record v was resolved from.
func (m *merger) force(p Path, v Lookup, src Record) {
	val, ok := v.Get()
	if !ok {
		m.remove(p)
		return
	}
	shape := descend(src, p)
	d := m.mismatch(p, shape)
	if i := m.gap(p, d, shape); i >= 0 {
		q := p[:i]
		m.force(q, Resolve(src, q), src)
		return
	}
	m.place(p, d, val, shape)
}

// mismatch returns the depth of the shallowest proper prefix of p where
// merged does not hold a container of the kind shape holds, or len(p).
func (m *merger) mismatch(p Path, shape []Record) int {
	have := descend(m.merged, p.Parent())
	for i := 0; i < len(p); i++ {
		if i >= len(have) || have[i].kind != shape[i].kind {
			return i
		}
	}
	return len(p)
}

// gap returns the depth of the first array that placing a value at p would
// extend past its end, or -1. Arrays above depth d are merged's, the rest
// are built fresh with shape's kinds.
func (m *merger) gap(p Path, d int, shape []Record) int {
	for i := max(d-1, 0); i < len(p); i++ {
		kind, n := shape[i].kind, 0
		if i < d {
			cur := descend(m.merged, p[:i])
			kind, n = cur[i].kind, cur[i].Len()
		}
		if kind != ArrayKind || p[i] == "-" {
			continue
		}
		if idx, err := jsonpointer.ParseArrayIndex(p[i]); err == nil && idx > uint64(n) {
			return i
		}
	}
	return -1
}

// place stores v at p, building fresh containers for the prefixes of p at
// depth d and deeper.
func (m *merger) place(p Path, d int, v Record, shape []Record) {
	for i := len(p) - 1; i >= d; i-- {
		v = Record{kind: shape[i].kind}.withChild(p[i], v)
	}
	if d == 0 {
		m.merged = v
		return
	}
	parent := p[:d-1]
	chain := descend(m.merged, parent)
	m.merged = unwind(chain, parent, chain[d-1].withChild(p[d-1], v))
}

// remove deletes p from merged, then deletes every ancestor left empty that
// remote does not hold either.
func (m *merger) remove(p Path) {
	for len(p) > 0 && m.removeAt(p) {
		p = p.Parent()
		if len(p) == 0 {
			return
		}
		cur, _ := Resolve(m.merged, p).Get()
		if cur.Len() > 0 || !Resolve(m.remote, p).IsAbsent() {
			return
		}
	}
}

func (m *merger) removeAt(p Path) bool {
	chain := descend(m.merged, p)
	if len(chain) != len(p)+1 {
		return false
	}
	next, ok := chain[len(p)-1].withoutChild(p.Last())
	if !ok {
		return false
	}
	m.merged = unwind(chain, p.Parent(), next)
	return true
}
