// Package sink acquires the archive destination: standard output or a
// file written atomically through a temporary name.
package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/term"
)

// ErrTerminal is returned when the destination is an interactive terminal.
var ErrTerminal = errors.New("refusing to write archive to a terminal")

// Sink is an open archive destination. Exactly one of Commit or Abort
// decides its fate; calling either again is a no-op.
type Sink struct {
	f       *os.File
	name    string // display name
	final   string // rename target; empty when writing in place
	tmpPath string
	done    bool
}

// Open acquires the destination named by path. An empty path or "-"
// selects standard output. Nothing is written before Open returns, and a
// terminal destination is rejected with ErrTerminal.
func Open(path string) (*Sink, error) {
	if path == "" || path == "-" {
		return openFile(os.Stdout, "stdout")
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && !info.Mode().IsRegular():
		// Pipes and devices cannot be replaced by rename.
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("open output %s: %w", path, err)
		}
		return openFile(f, path)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("stat output %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmpName := fmt.Sprintf(".%s.%s.spintar-tmp", filepath.Base(path), uuid.New().String()[:8])
	tmpPath := filepath.Join(dir, tmpName)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create output %s: %w", path, err)
	}
	registerTmp(tmpPath)
	return &Sink{f: f, name: path, final: path, tmpPath: tmpPath}, nil
}

func openFile(f *os.File, name string) (*Sink, error) {
	if term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: fd fits in int
		if f != os.Stdout {
			_ = f.Close()
		}
		return nil, ErrTerminal
	}
	return &Sink{f: f, name: name}, nil
}

// Name is the destination as shown to the user.
func (s *Sink) Name() string { return s.name }

// Path is the file actually being written: the temporary file until
// Commit, the named file when writing in place, or "" for standard output.
func (s *Sink) Path() string {
	if s.tmpPath != "" {
		return s.tmpPath
	}
	if s.f == os.Stdout {
		return ""
	}
	return s.name
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

// Commit makes the written archive visible at its destination.
func (s *Sink) Commit() error {
	if s.done {
		return nil
	}
	s.done = true

	if s.tmpPath == "" {
		if err := s.f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", s.name, err)
		}
		return nil
	}

	defer deregisterTmp(s.tmpPath)
	err := multierr.Append(s.f.Sync(), s.f.Close())
	if err == nil {
		err = os.Rename(s.tmpPath, s.final)
	}
	if err != nil {
		_ = os.Remove(s.tmpPath)
		return fmt.Errorf("commit %s: %w", s.name, err)
	}
	return nil
}

// Abort closes the destination and discards a partially written file.
func (s *Sink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true

	err := s.f.Close()
	if s.tmpPath != "" {
		err = multierr.Append(err, os.Remove(s.tmpPath))
		deregisterTmp(s.tmpPath)
	}
	return err
}
