// Package path implements the absolute, normalized path value used
// throughout the naming and storage servers. It is deliberately small:
// an immutable sequence of components with equality, a canonical
// string form (which callers use as a map or index key), and the
// handful of observers the namespace tree needs.
package path

import (
	"strings"

	"github.com/jujinfu/dfs/pkg/errtypes"
)

// Path is an absolute, normalized, forward-slash-delimited sequence of
// non-empty components. The zero value is not a valid Path; use Root()
// or Parse().
type Path struct {
	// components is nil or empty for the root path.
	components []string
}

// Root returns the root path "/".
func Root() Path {
	return Path{}
}

// Parse validates and canonicalizes s into a Path. s must begin with
// "/"; components are split on "/"; empty components (from "//" or a
// trailing "/") are rejected rather than silently collapsed, except
// that the bare string "/" denotes the root. No component may contain
// ":" or be empty.
func Parse(s string) (Path, error) {
	if s == "" || s[0] != '/' {
		return Path{}, errtypes.IllegalArgument("path must be absolute: " + s)
	}
	if s == "/" {
		return Root(), nil
	}
	raw := strings.Split(s[1:], "/")
	components := make([]string, 0, len(raw))
	for _, c := range raw {
		if err := validateComponent(c); err != nil {
			return Path{}, err
		}
		components = append(components, c)
	}
	return Path{components: components}, nil
}

// MustParse is Parse but panics on error; intended for tests and
// compile-time-known literals.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func validateComponent(c string) error {
	if c == "" {
		return errtypes.IllegalArgument("path component must not be empty")
	}
	if strings.ContainsAny(c, "/:") {
		return errtypes.IllegalArgument("path component must not contain '/' or ':': " + c)
	}
	return nil
}

// Join appends a single validated component to p and returns the new
// path. p is left unmodified.
func Join(p Path, component string) (Path, error) {
	if err := validateComponent(component); err != nil {
		return Path{}, err
	}
	next := make([]string, len(p.components)+1)
	copy(next, p.components)
	next[len(p.components)] = component
	return Path{components: next}, nil
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool {
	return len(p.components) == 0
}

// Parent returns the parent of p. It returns IllegalArgument if p is
// root: parent is undefined at the root.
func (p Path) Parent() (Path, error) {
	if p.IsRoot() {
		return Path{}, errtypes.IllegalArgument("root has no parent")
	}
	return Path{components: p.components[:len(p.components)-1]}, nil
}

// Last returns the final component of p. It returns IllegalArgument if
// p is root.
func (p Path) Last() (string, error) {
	if p.IsRoot() {
		return "", errtypes.IllegalArgument("root has no last component")
	}
	return p.components[len(p.components)-1], nil
}

// Components returns the path's components in order. The returned
// slice is a copy; mutating it does not affect p.
func (p Path) Components() []string {
	out := make([]string, len(p.components))
	copy(out, p.components)
	return out
}

// Depth returns the number of components (0 for root).
func (p Path) Depth() int {
	return len(p.components)
}

// String renders the canonical wire form: "/" for root, otherwise
// "/" followed by components joined with "/".
func (p Path) String() string {
	if p.IsRoot() {
		return "/"
	}
	return "/" + strings.Join(p.components, "/")
}

// Equal reports whether p and other denote the same path. Equality is
// defined component-wise, not by comparing canonical strings, though
// for normalized paths the two coincide.
func (p Path) Equal(other Path) bool {
	if len(p.components) != len(other.components) {
		return false
	}
	for i := range p.components {
		if p.components[i] != other.components[i] {
			return false
		}
	}
	return true
}

// IsSubpathOf reports whether p is a subpath of other: other's
// components are a strict prefix of p's. Root is a subpath of nothing
// (including itself); a path is not a subpath of itself.
//
// This is a component-wise prefix comparison, not substring
// containment: "/ab" is never a subpath of "/a", even though the
// strings share a prefix.
func (p Path) IsSubpathOf(other Path) bool {
	if len(p.components) <= len(other.components) {
		return false
	}
	for i := range other.components {
		if p.components[i] != other.components[i] {
			return false
		}
	}
	return true
}
