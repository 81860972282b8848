// Package config loads the optional spintar configuration file.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional spintar configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`

	// Unknown lists keys present in the file that spintar does not
	// recognize, in file order.
	Unknown []string `toml:"-"`
}

// DefaultsConfig holds persistent flag defaults. Nil means unset.
type DefaultsConfig struct {
	LeafOrder  *string  `toml:"leaf_order"`
	ReadAhead  *int     `toml:"readahead"`
	Prefetch   *string  `toml:"prefetch"`
	Dropbehind *bool    `toml:"dropbehind"`
	BWLimit    *string  `toml:"bwlimit"`
	Progress   *bool    `toml:"progress"`
	Exclude    []string `toml:"exclude"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "spintar", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path. A missing file yields a zero Config.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	for _, key := range md.Undecoded() {
		cfg.Unknown = append(cfg.Unknown, key.String())
	}
	return cfg, nil
}
