package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/spintar/internal/event"
	"github.com/bamsammich/spintar/internal/stats"
)

func TestPlainPresenterVerboseFeed(t *testing.T) {
	var out bytes.Buffer
	p := &plainPresenter{w: &out, stats: stats.NewCollector(), verbose: true, interval: time.Hour}

	events := make(chan Event, 10)
	events <- Event{Type: event.RunStarted}
	events <- Event{Type: event.EntryArchived, Path: "dir/file.txt", Size: 1024}
	events <- Event{Type: event.LinkArchived, Path: "dir/b", Target: "dir/a"}
	events <- Event{Type: event.EntryFailed, Path: "/abs/bad", Error: assert.AnError}
	events <- Event{Type: event.RunFinished}
	close(events)

	assert.NoError(t, p.Run(events))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{"dir/file.txt", "dir/b link to dir/a"}, lines)
}

func TestPlainPresenterSilentWithoutVerbose(t *testing.T) {
	var out bytes.Buffer
	p := &plainPresenter{w: &out, stats: stats.NewCollector(), interval: time.Hour}

	events := make(chan Event, 2)
	events <- Event{Type: event.EntryArchived, Path: "file.txt"}
	close(events)

	assert.NoError(t, p.Run(events))
	assert.Empty(t, out.String())
}

func TestPlainPresenterProgressLine(t *testing.T) {
	var out bytes.Buffer
	collector := stats.NewCollector()
	collector.AddFilesArchived(1500)
	collector.AddLinksArchived(2)
	collector.AddBytesArchived(2048)
	collector.AddFilesFailed(3)

	p := &plainPresenter{w: &out, stats: collector}
	p.printProgress()

	line := out.String()
	assert.True(t, strings.HasPrefix(line, "progress: "))
	assert.Contains(t, line, "1,502 files")
	assert.Contains(t, line, "2.0 KiB")
	assert.Contains(t, line, "errors 3")
}

func TestPlainPresenterPeriodicProgress(t *testing.T) {
	var out bytes.Buffer
	p := &plainPresenter{w: &out, stats: stats.NewCollector(), progress: true, interval: 10 * time.Millisecond}

	events := make(chan Event)
	go func() {
		time.Sleep(100 * time.Millisecond)
		close(events)
	}()

	assert.NoError(t, p.Run(events))
	assert.Contains(t, out.String(), "progress: ")
}

func TestPlainPresenterSummary(t *testing.T) {
	collector := stats.NewCollector()
	collector.AddFilesArchived(100)
	collector.AddBytesArchived(1024 * 1024)

	p := &plainPresenter{stats: collector}
	s := p.Summary()
	assert.Contains(t, s, "files 100")
	assert.Contains(t, s, "size 1.0 MiB")
	assert.Contains(t, s, "errors 0")
	assert.NotContains(t, s, "links")
}
