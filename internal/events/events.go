// Package events publishes job status-transition events for downstream
// consumers (push notifications, analytics). Publishing is best effort: a
// failed publish is logged by the caller and never fails the job.
package events

import (
	"context"
	"time"
)

// Event describes one job status transition.
type Event struct {
	JobID        string     `json:"job_id"`
	AnalysisID   string     `json:"analysis_id"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// Publisher emits job transition events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop is a Publisher that discards everything. Used when events are disabled.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
