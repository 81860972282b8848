package main

import (
	"github.com/spf13/pflag"

	"github.com/bamsammich/spintar/internal/filter"
	"github.com/bamsammich/spintar/internal/walk"
)

var (
	_ pflag.Value = (*filterFlag)(nil)
	_ pflag.Value = (*orderFlag)(nil)
	_ pflag.Value = (*sizeFlag)(nil)
)

// filterFlag is a custom pflag.Value that preserves CLI ordering of
// --exclude and --include rules by appending to a shared filter.Chain.
type filterFlag struct {
	chain   *filter.Chain
	include bool
}

func (*filterFlag) String() string { return "" }
func (*filterFlag) Type() string   { return "pattern" }

func (f *filterFlag) Set(val string) error {
	if f.include {
		return f.chain.AddInclude(val)
	}
	return f.chain.AddExclude(val)
}

// orderFlag accepts any leaf order name. Unknown names select the default
// order; the caller warns once logging is configured.
type orderFlag struct {
	raw string
}

func (o *orderFlag) String() string { return o.raw }
func (*orderFlag) Type() string     { return "order" }

func (o *orderFlag) Set(val string) error {
	o.raw = val
	return nil
}

func (o *orderFlag) Order() walk.Order { return walk.ParseOrder(o.raw) }

// Known reports whether the given name is a recognized order.
func (o *orderFlag) Known() bool { return walk.KnownOrder(o.raw) }

// sizeFlag is a byte count given in human-readable form ("64K", "1.5G").
type sizeFlag struct {
	raw string
	n   int64
}

func (s *sizeFlag) String() string { return s.raw }
func (*sizeFlag) Type() string     { return "size" }

func (s *sizeFlag) Set(val string) error {
	n, err := filter.ParseSize(val)
	if err != nil {
		return err
	}
	s.raw, s.n = val, n
	return nil
}
