package jsonmerge

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/agentflare-ai/jsonpointer"
)

// Path addresses a position inside a Record. Each segment is an unescaped
// object key or a decimal array index; the empty Path is the root.
type Path []string

// ParsePath parses JSON Pointer text (RFC 6901) into a Path.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	if s[0] != '/' {
		return nil, fmt.Errorf("%w: %q does not start with '/'", ErrInvalidPath, s)
	}
	ptr, err := jsonpointer.New(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPath, s, err)
	}
	p := make(Path, len(ptr))
	for i, tok := range ptr {
		p[i] = string(tok)
	}
	return p, nil
}

// MustParsePath is like ParsePath but panics on malformed input.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// String renders p as JSON Pointer text.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for _, seg := range p {
		b.WriteByte('/')
		pointerEscaper.WriteString(&b, seg)
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(text []byte) error {
	v, err := ParsePath(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Child returns a new Path extending p by seg.
func (p Path) Child(seg string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// Index returns a new Path extending p by the array index i.
func (p Path) Index(i int) Path {
	return p.Child(strconv.Itoa(i))
}

// Parent returns p without its last segment. The parent of the root is the
// root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1:len(p)-1]
}

// Last returns the final segment of p, or "" for the root.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// HasPrefix reports whether prefix is p or one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	return len(prefix) <= len(p) && slices.Equal(p[:len(prefix)], prefix)
}

// Equal reports whether p and o address the same position.
func (p Path) Equal(o Path) bool {
	return slices.Equal(p, o)
}

// ComparePaths orders paths segment by segment. Two segments that both read
// as array indices compare numerically, whether they address array elements
// or object keys such as "10"; anything else compares as strings, and a path
// sorts before its descendants.
func ComparePaths(a, b Path) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareSegments(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func compareSegments(a, b string) int {
	if a == b {
		return 0
	}
	ia, errA := jsonpointer.ParseArrayIndex(a)
	ib, errB := jsonpointer.ParseArrayIndex(b)
	if errA == nil && errB == nil && ia != ib {
		return cmp.Compare(ia, ib)
	}
	return strings.Compare(a, b)
}
