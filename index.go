package jsonmerge

import "strconv"

// Leaf is a position of a Record holding a scalar or an empty container.
type Leaf struct {
	Path  Path
	Value Record
}

// Index flattens r into its leaves in breadth-first order. Empty objects and
// arrays are reported as leaves so they survive flattening. A scalar root is
// a single leaf at the empty Path.
func Index(r Record) []Leaf {
	queue := []Leaf{{Path: Path{}, Value: r}}
	var leaves []Leaf
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if cur.Value.IsLeaf() {
			leaves = append(leaves, cur)
			continue
		}
		switch cur.Value.kind {
		case ObjectKind:
			for i, k := range cur.Value.keys {
				queue = append(queue, Leaf{Path: cur.Path.Child(k), Value: cur.Value.vals[i]})
			}
		case ArrayKind:
			for i, v := range cur.Value.vals {
				queue = append(queue, Leaf{Path: cur.Path.Child(strconv.Itoa(i)), Value: v})
			}
		}
		queue[head] = Leaf{}
	}
	return leaves
}

// IndexMap returns the leaves of r keyed by their pointer text.
func IndexMap(r Record) map[string]Record {
	leaves := Index(r)
	m := make(map[string]Record, len(leaves))
	for _, l := range leaves {
		m[l.Path.String()] = l.Value
	}
	return m
}
