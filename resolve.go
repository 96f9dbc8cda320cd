package jsonmerge

// Lookup is the outcome of resolving a Path: either a found Record or
// absent. Absent is distinct from a found null. The zero Lookup is absent.
type Lookup struct {
	value Record
	found bool
}

// Found returns a Lookup holding v.
func Found(v Record) Lookup { return Lookup{value: v, found: true} }

// Absent returns the Lookup for a position that does not exist.
func Absent() Lookup { return Lookup{} }

// Get returns the found value and whether there was one.
func (l Lookup) Get() (Record, bool) { return l.value, l.found }

// IsAbsent reports whether l holds no value.
func (l Lookup) IsAbsent() bool { return !l.found }

// Equal reports whether l and o are both absent or both hold equal values.
func (l Lookup) Equal(o Lookup) bool {
	if l.found != o.found {
		return false
	}
	return !l.found || Equal(l.value, o.value)
}

func (l Lookup) String() string {
	if !l.found {
		return "<absent>"
	}
	return l.value.String()
}

// Resolve walks p through r. A missing key, an out-of-range or non-numeric
// array index, or a step into a scalar yields Absent.
func Resolve(r Record, p Path) Lookup {
	chain := descend(r, p)
	if len(chain) != len(p)+1 {
		return Absent()
	}
	return Found(chain[len(chain)-1])
}
