package launcher

import "launcherd/pkg/types"

// Event represents a launcher lifecycle event.
// Minimal and stable: id + name + instance key and optional fields via key/values.
type Event struct {
	ID     string
	Name   string
	Tool   string
	Index  int
	Fields map[string]any
}

// EventPublisher receives events from the launcher. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// ExitInfo describes how a process run ended.
type ExitInfo struct {
	Code      int
	Err       string
	LastError *types.OutputEntry // most recent error-classified line, if any
}

// ErrorObserver is notified once per crash of a supervised instance.
type ErrorObserver interface {
	OnProcessError(tool string, index int, exit ExitInfo)
}
