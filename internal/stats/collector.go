// Package stats tracks archive run counters.
package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks archiving statistics using lock-free atomic counters.
// Counters are written by the engine and read by presenters.
type Collector struct {
	filesArchived atomic.Int64
	linksArchived atomic.Int64
	filesFailed   atomic.Int64
	bytesArchived atomic.Int64
	bytesWritten  atomic.Int64
	startTime     time.Time

	// Ring buffer, written only by the presenter's Tick().
	mu         sync.Mutex
	throughput [ringSize]int64 // bytes delta per second
	fileRate   [ringSize]int64 // members delta per second
	ringIdx    int
	ringCount  int
	lastBytes  int64
	lastFiles  int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesArchived int64 // data members
	LinksArchived int64 // hard-link members
	FilesFailed   int64
	BytesArchived int64 // file content bytes
	BytesWritten  int64 // archive bytes, headers and padding included
	Elapsed       time.Duration
}

func (c *Collector) AddFilesArchived(n int64) { c.filesArchived.Add(n) }
func (c *Collector) AddLinksArchived(n int64) { c.linksArchived.Add(n) }
func (c *Collector) AddFilesFailed(n int64)   { c.filesFailed.Add(n) }
func (c *Collector) AddBytesArchived(n int64) { c.bytesArchived.Add(n) }

// SetBytesWritten records the archive size so far.
func (c *Collector) SetBytesWritten(n int64) { c.bytesWritten.Store(n) }

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesArchived: c.filesArchived.Load(),
		LinksArchived: c.linksArchived.Load(),
		FilesFailed:   c.filesFailed.Load(),
		BytesArchived: c.bytesArchived.Load(),
		BytesWritten:  c.bytesWritten.Load(),
		Elapsed:       c.Elapsed(),
	}
}

// Tick records the bytes archived since the previous tick. Called once a
// second by the presenter.
func (c *Collector) Tick() {
	current := c.bytesArchived.Load()
	files := c.filesArchived.Load() + c.linksArchived.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = current - c.lastBytes
	c.fileRate[c.ringIdx] = files - c.lastFiles
	c.lastBytes = current
	c.lastFiles = files
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n ticks.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rollingLocked(&c.throughput, seconds)
}

// RollingFilesPerSec returns average archived members/sec over the last n ticks.
func (c *Collector) RollingFilesPerSec(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingLocked(&c.fileRate, seconds)
}

func (c *Collector) rollingLocked(ring *[ringSize]int64, seconds int) float64 {
	count := min(seconds, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		sum += ring[(c.ringIdx-1-i+ringSize)%ringSize]
	}
	return float64(sum) / float64(count)
}

// SparklineData returns up to n per-second byte samples, oldest first.
func (c *Collector) SparklineData(n int) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(n, c.ringCount)
	out := make([]float64, count)
	for i := range count {
		out[count-1-i] = float64(c.throughput[(c.ringIdx-1-i+ringSize)%ringSize])
	}
	return out
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"archived=%d links=%d failed=%d bytes=%d written=%d",
		s.FilesArchived, s.LinksArchived, s.FilesFailed, s.BytesArchived, s.BytesWritten,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
