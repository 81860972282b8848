package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/spintar/internal/event"
	"github.com/bamsammich/spintar/internal/stats"
)

func TestNewPresenter(t *testing.T) {
	collector := stats.NewCollector()

	tests := []struct {
		name string
		cfg  Config
		want any
	}{
		{"quiet wins", Config{Quiet: true, IsTTY: true, Progress: true}, &quietPresenter{}},
		{"tty with progress", Config{IsTTY: true, Progress: true}, &statusPresenter{}},
		{"tty without progress", Config{IsTTY: true}, &plainPresenter{}},
		{"pipe with progress", Config{Progress: true}, &plainPresenter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Stats = collector
			tt.cfg.ErrWriter = &bytes.Buffer{}
			assert.IsType(t, tt.want, NewPresenter(tt.cfg))
		})
	}
}

func TestNewPresenterDefaultInterval(t *testing.T) {
	p := NewPresenter(Config{Stats: stats.NewCollector()})
	plain, ok := p.(*plainPresenter)
	assert.True(t, ok)
	assert.Equal(t, DefaultInterval, plain.interval)
}

func TestQuietPresenter(t *testing.T) {
	p := &quietPresenter{}
	events := make(chan Event, 3)
	events <- Event{Type: event.EntryArchived, Path: "a"}
	events <- Event{Type: event.EntryFailed, Path: "b"}
	close(events)

	assert.NoError(t, p.Run(events))
	assert.Empty(t, p.Summary())
}

func TestCompletionSummary(t *testing.T) {
	collector := stats.NewCollector()
	collector.AddFilesArchived(1200)
	collector.AddLinksArchived(4)
	collector.AddFilesFailed(1)

	s := completionSummary(collector.Snapshot())
	assert.Contains(t, s, "done ✗")
	assert.Contains(t, s, "files 1,200")
	assert.Contains(t, s, "links 4")
	assert.Contains(t, s, "errors 1")
}
