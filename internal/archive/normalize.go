package archive

import (
	"path/filepath"
	"strings"
)

// Normalizer turns absolute paths into archive member names by removing
// the starting point they were found under.
type Normalizer struct {
	roots []string // cleaned, in the order given
}

// NewNormalizer returns a Normalizer for the given starting points.
func NewNormalizer(roots ...string) *Normalizer {
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		cleaned = append(cleaned, filepath.Clean(r))
	}
	return &Normalizer{roots: cleaned}
}

// StripUnder returns path relative to root, the starting point the walk
// found it under. Nested starting points each name their files relative
// to themselves, so a file reached from both keeps two distinct names.
// If path is not inside root it falls back to Strip.
func (n *Normalizer) StripUnder(root, path string) string {
	if root != "" {
		if rel, ok := cutRoot(path, filepath.Clean(root)); ok {
			return filepath.ToSlash(rel)
		}
	}
	return n.Strip(path)
}

// Strip returns path relative to the first listed starting point containing
// it, slash-separated. Paths outside every starting point come back
// unchanged.
func (n *Normalizer) Strip(path string) string {
	for _, root := range n.roots {
		if rel, ok := cutRoot(path, root); ok {
			return filepath.ToSlash(rel)
		}
	}
	return path
}

// cutRoot removes root from path on a component boundary.
func cutRoot(path, root string) (string, bool) {
	rest, ok := strings.CutPrefix(path, root)
	if !ok {
		return "", false
	}
	if strings.HasSuffix(root, string(filepath.Separator)) {
		return rest, rest != ""
	}
	rest, ok = strings.CutPrefix(rest, string(filepath.Separator))
	return rest, ok && rest != ""
}
