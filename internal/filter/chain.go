// Package filter implements rsync-style include/exclude rules and size
// bounds for selecting what goes into an archive.
package filter

import "github.com/bamsammich/spintar/internal/walk"

type rule struct {
	glob    *glob
	include bool
}

// Chain is an ordered rule list plus optional size bounds. The first rule
// matching a path decides; paths matching no rule are kept.
type Chain struct {
	rules   []rule
	minSize int64
	maxSize int64
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// AddExclude appends an exclude rule.
func (c *Chain) AddExclude(pattern string) error { return c.add(pattern, false) }

// AddInclude appends an include rule.
func (c *Chain) AddInclude(pattern string) error { return c.add(pattern, true) }

func (c *Chain) add(pattern string, include bool) error {
	g, err := compileGlob(pattern)
	if err != nil {
		return err
	}
	c.rules = append(c.rules, rule{glob: g, include: include})
	return nil
}

// SetMinSize skips regular files smaller than n bytes.
func (c *Chain) SetMinSize(n int64) { c.minSize = n }

// SetMaxSize skips regular files larger than n bytes. Zero disables it.
func (c *Chain) SetMaxSize(n int64) { c.maxSize = n }

// Empty reports whether the chain keeps everything.
func (c *Chain) Empty() bool {
	return len(c.rules) == 0 && c.minSize == 0 && c.maxSize == 0
}

// Keep decides whether a leaf candidate is archived.
func (c *Chain) Keep(cand walk.Candidate) bool {
	if c.minSize > 0 && cand.Size < c.minSize {
		return false
	}
	if c.maxSize > 0 && cand.Size > c.maxSize {
		return false
	}
	return c.decide(cand.Rel, false)
}

// Descend decides whether a directory candidate is walked.
func (c *Chain) Descend(cand walk.Candidate) bool {
	return c.decide(cand.Rel, true)
}

func (c *Chain) decide(rel string, isDir bool) bool {
	for _, r := range c.rules {
		if r.glob.match(rel, isDir) {
			return r.include
		}
	}
	return true
}
