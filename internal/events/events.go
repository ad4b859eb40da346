// Package events publishes task lifecycle and hierarchy envelopes on a
// pub/sub bus. Delivery is best-effort: a failed publish is logged and
// dropped, no retry, no acknowledgment, no cross-channel ordering. Envelopes
// carry full snapshots so consumers can apply them idempotently and tolerate
// reordering or loss by re-fetching.
package events

import (
	"time"

	"github.com/tasknest/tasknest/internal/domain"
)

// Kind identifies what happened to a task.
type Kind string

// Lifecycle kinds are published to the owner channel and the global channel.
// Hierarchy kinds fan out along parent/child links on the owner channel only.
const (
	KindCreated        Kind = "created"
	KindUpdated        Kind = "updated"
	KindCompleted      Kind = "completed"
	KindDeleted        Kind = "deleted"
	KindRestored       Kind = "restored"
	KindParentUpdated  Kind = "parent_updated"
	KindSubtaskUpdated Kind = "subtask_updated"
)

// Envelope is the serialized payload published on a channel for one event.
// Task is always the full current snapshot; ChangedFields is advisory and
// only set on updates; Parent rides along on hierarchy kinds.
type Envelope struct {
	Event         Kind         `json:"event"`
	Task          *domain.Task `json:"task"`
	ChangedFields []string     `json:"changed_fields,omitempty"`
	Parent        *domain.Task `json:"parent,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}
