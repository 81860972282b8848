package ui

import "github.com/bamsammich/spintar/internal/event"

// Event is re-exported so presenters read like the engine that feeds them.
type Event = event.Event

// Re-export event types for convenience.
const (
	RunStarted    = event.RunStarted
	EntryArchived = event.EntryArchived
	LinkArchived  = event.LinkArchived
	EntryFailed   = event.EntryFailed
	RunFinished   = event.RunFinished
)
