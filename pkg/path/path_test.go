package path

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"root", "/", false},
		{"simple", "/a/b/c", false},
		{"no leading slash", "a/b", true},
		{"empty component", "/a//b", true},
		{"trailing slash", "/a/b/", true},
		{"colon in component", "/a:b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	a := MustParse("/a/b")
	b := MustParse("/a/b")
	c := MustParse("/a/bb")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestIsSubpathOf(t *testing.T) {
	parent := MustParse("/a")
	child := MustParse("/a/b")
	sibling := MustParse("/ab")

	assert.True(t, child.IsSubpathOf(parent))
	assert.False(t, parent.IsSubpathOf(child))
	// A component-wise check must not be fooled by a string prefix that
	// isn't a path-component prefix.
	assert.False(t, sibling.IsSubpathOf(parent))
}

func TestParentAndLast(t *testing.T) {
	p := MustParse("/a/b/c")
	parent, err := p.Parent()
	require.NoError(t, err)
	assert.Equal(t, "/a/b", parent.String())

	last, err := p.Last()
	require.NoError(t, err)
	assert.Equal(t, "c", last)

	_, err = Root().Parent()
	assert.Error(t, err)
}

func TestJoin(t *testing.T) {
	base := MustParse("/a")
	joined, err := Join(base, "b")
	require.NoError(t, err)
	assert.Equal(t, "/a/b", joined.String())
}
