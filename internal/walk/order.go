package walk

import "strings"

// Order selects how leaves (non-directory entries) are ordered within a
// batch before they are yielded.
type Order int

const (
	// OrderContent sorts leaves by the physical offset of their first data
	// extent. It is the default.
	OrderContent Order = iota
	// OrderInode sorts leaves by (device, inode).
	OrderInode
	// OrderDentry keeps leaves in the order directories listed them.
	OrderDentry
)

var orderNames = [...]string{
	OrderContent: "content",
	OrderInode:   "inode",
	OrderDentry:  "dentry",
}

func (o Order) String() string {
	if o >= 0 && int(o) < len(orderNames) {
		return orderNames[o]
	}
	return "unknown"
}

// ParseOrder maps a mode name to an Order. Unrecognized names, including
// the empty string, yield OrderContent so newer mode names degrade to the
// default instead of failing.
func ParseOrder(s string) Order {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inode":
		return OrderInode
	case "dentry":
		return OrderDentry
	default:
		return OrderContent
	}
}

// KnownOrder reports whether s names an Order exactly.
func KnownOrder(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inode", "content", "dentry":
		return true
	}
	return false
}
