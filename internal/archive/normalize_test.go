package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizer_Strip(t *testing.T) {
	n := NewNormalizer("/data/in", "/data/in/nested", "/srv/")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"direct child", "/data/in/a", "a"},
		{"nested path", "/data/in/a/b", "a/b"},
		{"first listed root wins", "/data/in/nested/x", "nested/x"},
		{"sibling with shared prefix", "/data/inbox/a", "/data/inbox/a"},
		{"trailing slash root", "/srv/www/index.html", "www/index.html"},
		{"outside every root", "/etc/passwd", "/etc/passwd"},
		{"root itself", "/data/in", "/data/in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Strip(tt.path))
		})
	}
}

func TestNormalizer_FilesystemRoot(t *testing.T) {
	n := NewNormalizer("/")
	assert.Equal(t, "etc/hosts", n.Strip("/etc/hosts"))
}

func TestNormalizer_UncleanRoot(t *testing.T) {
	n := NewNormalizer("/data//in/./")
	assert.Equal(t, "a/b", n.Strip("/data/in/a/b"))
}

func TestNormalizer_NoRoots(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, "/a/b", n.Strip("/a/b"))
}

func TestNormalizer_StripUnder(t *testing.T) {
	n := NewNormalizer("/data/in", "/data/in/nested")

	tests := []struct {
		name string
		root string
		path string
		want string
	}{
		{"outer root keeps subdirectory", "/data/in", "/data/in/nested/x", "nested/x"},
		{"inner root strips itself", "/data/in/nested", "/data/in/nested/x", "x"},
		{"unclean root", "/data/in/nested/", "/data/in/nested/x", "x"},
		{"empty root falls back", "", "/data/in/nested/x", "nested/x"},
		{"path outside root falls back", "/srv", "/data/in/a", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.StripUnder(tt.root, tt.path))
		})
	}
}
