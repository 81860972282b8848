// Package archive turns opened files into a deterministic GNU tar stream.
package archive

import (
	"archive/tar"
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"time"

	"github.com/zeebo/blake3"
	"go.uber.org/multierr"

	"github.com/bamsammich/spintar/internal/platform"
)

// DeterministicModTime is stamped on every header. It is non-zero because
// some tools mishandle members dated at the epoch.
var DeterministicModTime = time.Unix(1153704088, 0)

const writeBufferSize = 64 << 10

// ErrShrank reports a file that ended before its recorded size.
var ErrShrank = errors.New("file shrank while being read")

// ReadError is a per-entry failure reading a member's content after its
// header was written. The member has been padded with zeros to its
// recorded size, so the stream is still well-formed.
type ReadError struct {
	Name   string
	Padded int64
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v (padded %d bytes with zeros)", e.Name, e.Err, e.Padded)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Meta is the file metadata carried into a header.
type Meta struct {
	Mode fs.FileMode
	UID  uint32
	GID  uint32
	Size int64
}

// Emitter writes tar members to an underlying writer. It is not safe for
// concurrent use.
type Emitter struct {
	cw     *countingWriter
	bw     *bufio.Writer
	tw     *tar.Writer
	closed bool
}

// NewEmitter returns an Emitter writing to w. The caller owns w and must
// close it after Close returns.
func NewEmitter(w io.Writer) *Emitter {
	cw := &countingWriter{w: w, h: blake3.New()}
	bw := bufio.NewWriterSize(cw, writeBufferSize)
	return &Emitter{
		cw: cw,
		bw: bw,
		tw: tar.NewWriter(bw),
	}
}

// WriteData writes a regular-file member followed by exactly m.Size bytes
// from body. A *ReadError is returned when body could not supply them;
// any other error means the output is broken.
func (e *Emitter) WriteData(name string, m Meta, body io.Reader) error {
	hdr := header(name, m)
	hdr.Typeflag = tar.TypeReg
	hdr.Size = m.Size
	if err := e.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}

	src := &readTracker{r: io.LimitReader(body, m.Size)}
	n, err := platform.CopyBuffered(e.tw, src)
	if err != nil && src.err == nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if n == m.Size {
		return nil
	}

	missing := m.Size - n
	if _, err := io.CopyN(e.tw, zeros{}, missing); err != nil {
		return fmt.Errorf("pad %s: %w", name, err)
	}
	cause := src.err
	if cause == nil {
		cause = ErrShrank
	}
	return &ReadError{Name: name, Padded: missing, Err: cause}
}

// WriteLink writes a hard-link member pointing at target.
func (e *Emitter) WriteLink(name string, m Meta, target string) error {
	hdr := header(name, m)
	hdr.Typeflag = tar.TypeLink
	hdr.Linkname = target
	if err := e.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write link header %s: %w", name, err)
	}
	return nil
}

// Close writes the end-of-archive trailer and flushes buffered output.
func (e *Emitter) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	err := multierr.Append(e.tw.Close(), e.bw.Flush())
	if err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// Written reports the bytes that reached the underlying writer.
func (e *Emitter) Written() int64 { return e.cw.n }

// Digest returns the hex BLAKE3 digest of everything written so far.
func (e *Emitter) Digest() string {
	return hex.EncodeToString(e.cw.h.Sum(nil))
}

// header builds the run-independent part of a header: only the type,
// permission bits, ownership and size come from the file.
func header(name string, m Meta) *tar.Header {
	return &tar.Header{
		Format:  tar.FormatGNU,
		Name:    name,
		Mode:    tarMode(m.Mode),
		Uid:     int(m.UID),
		Gid:     int(m.GID),
		ModTime: DeterministicModTime,
	}
}

func tarMode(m fs.FileMode) int64 {
	mode := int64(m.Perm())
	if m&fs.ModeSetuid != 0 {
		mode |= 0o4000
	}
	if m&fs.ModeSetgid != 0 {
		mode |= 0o2000
	}
	if m&fs.ModeSticky != 0 {
		mode |= 0o1000
	}
	return mode
}

// countingWriter counts and hashes bytes on their way to w.
type countingWriter struct {
	w io.Writer
	h hash.Hash
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.h.Write(p[:n])
	return n, err
}

// readTracker remembers the first read error so it can be told apart from
// write errors surfacing through the same copy.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}
	return n, err
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
