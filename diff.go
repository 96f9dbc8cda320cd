package jsonmerge

// Diff returns a patch that turns from into to when applied to from. Objects
// are compared key by key and arrays index by index, the same alignment
// Merge uses; a position whose kind changes is replaced whole.
func Diff(from, to Record) Patch {
	type item struct {
		path Path
		a, b Record
	}
	var patch Patch
	stack := []item{{Path{}, from, to}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if Equal(it.a, it.b) {
			continue
		}
		if it.a.kind != it.b.kind || !it.a.IsContainer() {
			patch = append(patch, Operation{Op: Replace, Path: it.path.String(), Value: it.b})
			continue
		}

		switch it.a.kind {
		case ObjectKind:
			for _, k := range it.a.keys {
				if _, ok := it.b.Get(k); !ok {
					patch = append(patch, Operation{Op: Remove, Path: it.path.Child(k).String()})
				}
			}
			for i, k := range it.b.keys {
				if av, ok := it.a.Get(k); ok {
					stack = append(stack, item{it.path.Child(k), av, it.b.vals[i]})
					continue
				}
				patch = append(patch, Operation{Op: Add, Path: it.path.Child(k).String(), Value: it.b.vals[i]})
			}
		case ArrayKind:
			n, m := len(it.a.vals), len(it.b.vals)
			// trailing removals first, highest index first, leave lower
			// indices where the recursion below expects them
			for i := n - 1; i >= m; i-- {
				patch = append(patch, Operation{Op: Remove, Path: it.path.Index(i).String()})
			}
			for i := n; i < m; i++ {
				patch = append(patch, Operation{Op: Add, Path: it.path.Child("-").String(), Value: it.b.vals[i]})
			}
			for i := min(n, m) - 1; i >= 0; i-- {
				stack = append(stack, item{it.path.Index(i), it.a.vals[i], it.b.vals[i]})
			}
		}
	}
	return patch
}
