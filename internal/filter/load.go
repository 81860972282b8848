package filter

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadFile appends rules read from path. One rule per line:
//
//	+ pattern   include
//	- pattern   exclude
//	pattern     exclude
//	# comment   ignored, as are blank lines
func (c *Chain) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open filter file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for lineNum := 1; sc.Scan(); lineNum++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		add := c.AddExclude
		if rest, ok := strings.CutPrefix(line, "+ "); ok {
			add, line = c.AddInclude, rest
		} else if rest, ok := strings.CutPrefix(line, "- "); ok {
			line = rest
		}
		if err := add(strings.TrimSpace(line)); err != nil {
			return fmt.Errorf("filter file %s line %d: %w", path, lineNum, err)
		}
	}
	return sc.Err()
}
