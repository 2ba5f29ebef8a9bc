package store

import (
	"context"
	"time"
)

// Op names a kind of mutation.
type Op string

// Mutation kinds reported to a MutationHook.
const (
	OpCreateTable Op = "create_table"
	OpDropTable   Op = "drop_table"
	OpAlterTable  Op = "alter_table"
	OpInsert      Op = "insert"
	OpUpdate      Op = "update"
	OpDelete      Op = "delete"
	OpRelate      Op = "relate"
	OpLink        Op = "link"
	OpUnlink      Op = "unlink"
)

// MutationEvent describes one successful mutating call.
type MutationEvent struct {
	Op           Op        `json:"op" msgpack:"op"`
	Table        string    `json:"table" msgpack:"table"`
	RowsAffected int64     `json:"rows_affected" msgpack:"rows_affected"`
	IDs          []int64   `json:"ids,omitempty" msgpack:"ids,omitempty"`
	At           time.Time `json:"at" msgpack:"at"`
}

// MutationHook observes mutations after they have been applied.
//
// OnMutation is called synchronously on the caller's goroutine, once per
// successful call and never for failed ones. Implementations must not block.
type MutationHook interface {
	OnMutation(ctx context.Context, ev MutationEvent)
}

// HookFunc adapts a function to MutationHook.
type HookFunc func(ctx context.Context, ev MutationEvent)

// OnMutation calls f.
func (f HookFunc) OnMutation(ctx context.Context, ev MutationEvent) { f(ctx, ev) }

type noopHook struct{}

func (noopHook) OnMutation(context.Context, MutationEvent) {}
