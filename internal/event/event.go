// Package event defines progress events emitted by the archive engine.
package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	RunStarted Type = iota + 1
	EntryArchived
	LinkArchived
	EntryFailed
	RunFinished
)

var typeNames = [...]string{
	RunStarted:    "RunStarted",
	EntryArchived: "EntryArchived",
	LinkArchived:  "LinkArchived",
	EntryFailed:   "EntryFailed",
	RunFinished:   "RunFinished",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a single progress notification from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // archive member name, or source path for failures
	Target    string // link target (LinkArchived)
	Size      int64
	Error     error
}
