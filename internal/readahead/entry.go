package readahead

import (
	"context"
	"io"
	"io/fs"
	"os"

	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/bamsammich/spintar/internal/platform"
)

// OpenedEntry is an open regular file together with the metadata observed
// when it was opened. It must be closed by the consumer.
type OpenedEntry struct {
	Path string
	Root string // as given by the Source
	Info fs.FileInfo
	Stat platform.Stat

	file       *os.File
	r          io.Reader
	dropbehind bool
}

// Read reads file content, subject to the stage's bandwidth limit.
func (e *OpenedEntry) Read(p []byte) (int, error) {
	return e.r.Read(p)
}

// Close releases the file. With dropbehind enabled the file's cached pages
// are dropped first.
func (e *OpenedEntry) Close() error {
	if e.file == nil {
		return nil
	}
	var err error
	if e.dropbehind {
		err = platform.AdviseDontNeed(e.file)
	}
	err = multierr.Append(err, e.file.Close())
	e.file = nil
	return err
}

// rateLimitedReader wraps an io.Reader and enforces a shared rate limit.
type rateLimitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context //nolint:containedctx // reads have no context parameter
}

func (rl *rateLimitedReader) Read(p []byte) (int, error) {
	// Never ask the limiter for more than its burst.
	if burst := rl.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := rl.r.Read(p)
	if n > 0 {
		if waitErr := rl.limiter.WaitN(rl.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}

// NewBWLimiter creates a rate.Limiter that caps aggregate read throughput
// to bytesPerSec. The burst is 1 MiB so whole copy buffers pass without
// unnecessary blocking.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}
