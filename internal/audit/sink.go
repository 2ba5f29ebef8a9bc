package audit

import (
	"context"

	"github.com/nerrad567/gray-logic-records/internal/notify"
)

// Sink journals notifier events. The event ID becomes the entry ID, so a
// redelivered event fails on the primary key rather than duplicating.
type Sink struct {
	repo Repository
}

var _ notify.Sink = (*Sink)(nil)

// NewSink returns a notifier sink writing to repo.
func NewSink(repo Repository) *Sink {
	return &Sink{repo: repo}
}

// Name implements notify.Sink.
func (*Sink) Name() string { return "audit" }

// Deliver implements notify.Sink.
func (s *Sink) Deliver(ctx context.Context, ev notify.Event) error {
	return s.repo.Create(ctx, &Entry{
		ID:           ev.ID,
		Op:           string(ev.Op),
		Table:        ev.Table,
		RowsAffected: ev.RowsAffected,
		RecordIDs:    ev.IDs,
		CreatedAt:    ev.At,
	})
}
