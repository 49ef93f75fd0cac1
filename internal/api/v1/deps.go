package v1

import (
	"context"
	"errors"

	"github.com/notifyrr/notifyrr/internal/events"
	"github.com/notifyrr/notifyrr/internal/history"
	"github.com/notifyrr/notifyrr/internal/notify"
)

// ErrMissingDependency is returned when a required dependency is nil.
var ErrMissingDependency = errors.New("missing required dependency")

// Notifier exposes the pipeline operations the API drives.
type Notifier interface {
	SendTest(ctx context.Context, subscriber string) error
	PendingCount() int
	QueueDepth() int
}

// ServerDeps contains all dependencies for the API server.
// Required dependencies must be non-nil; optional dependencies may be nil.
type ServerDeps struct {
	// Required dependencies
	Notifier Notifier
	Bus      *events.Bus
	Source   notify.OptionsSource

	// Optional dependencies (nil if not configured)
	History  *history.Store
	EventLog *events.EventLog
}

// Validate checks that all required dependencies are provided.
func (d ServerDeps) Validate() error {
	if d.Notifier == nil {
		return errors.New("notifier is required")
	}
	if d.Bus == nil {
		return errors.New("event bus is required")
	}
	if d.Source == nil {
		return errors.New("options source is required")
	}
	return nil
}
