package archive

// DevIno uniquely identifies an inode for hardlink detection.
type DevIno struct {
	Dev uint64
	Ino uint64
}

// LinkTable remembers the first archive name seen for every multiply-linked
// inode. It grows for the lifetime of a run and is not safe for concurrent
// use.
type LinkTable struct {
	first map[DevIno]string
}

// NewLinkTable returns an empty table.
func NewLinkTable() *LinkTable {
	return &LinkTable{first: make(map[DevIno]string)}
}

// Resolve decides whether name should be archived as content or as a link.
// Files with a single link never touch the table. The first name seen for
// an inode becomes its canonical name; any later, different name gets
// link=true and the canonical name as target.
func (t *LinkTable) Resolve(key DevIno, nlink uint64, name string) (target string, link bool) {
	if nlink <= 1 {
		return "", false
	}
	existing, seen := t.first[key]
	if !seen {
		t.first[key] = name
		return "", false
	}
	if existing == name {
		return "", false
	}
	return existing, true
}

// Len reports the number of inodes recorded.
func (t *LinkTable) Len() int { return len(t.first) }
