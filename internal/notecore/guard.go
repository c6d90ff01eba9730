package notecore

import "time"

// SkipReason names which precedence rule in shouldSkip matched, useful
// for diagnostics and tests.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipTemporaryID    SkipReason = "temporary-id"
	SkipActiveEditing  SkipReason = "active-editing"
	SkipLocalNewer     SkipReason = "local-newer"
	SkipPendingUpload  SkipReason = "pending-upload"
	SkipPendingCreate  SkipReason = "pending-create"
)

// activeEditingSource reports the note currently open in the editor, if
// any; the Coordinator implements this.
type activeEditingSource interface {
	IsActivelyEditing(noteID string) bool
}

// Guard is the pure predicate deciding whether a remote-provided note may
// replace local state (§4.G). It is pure with respect to its inputs: the
// queue and active-editing source are read-only collaborators.
type Guard struct {
	queue         *Queue
	activeEditing activeEditingSource
}

// NewGuard constructs a Guard over the queue and an active-editing
// source (typically the Coordinator).
func NewGuard(queue *Queue, activeEditing activeEditingSource) *Guard {
	return &Guard{queue: queue, activeEditing: activeEditing}
}

// ShouldSkip evaluates the precedence order of §4.G; the first matching
// rule wins.
func (g *Guard) ShouldSkip(noteID string, cloudTs time.Time) bool {
	return g.GetSkipReason(noteID, cloudTs) != SkipNone
}

// GetSkipReason returns the matching precedence rule, or SkipNone if the
// remote update may proceed.
func (g *Guard) GetSkipReason(noteID string, cloudTs time.Time) SkipReason {
	if IsTemporaryID(noteID) {
		return SkipTemporaryID
	}
	if g.activeEditing != nil && g.activeEditing.IsActivelyEditing(noteID) {
		return SkipActiveEditing
	}
	if g.queue.HasPendingUpload(noteID) {
		if localTs := g.queue.GetLocalSaveTimestamp(noteID); localTs != nil && !localTs.Before(cloudTs) {
			return SkipLocalNewer
		}
		// User-first policy: pending local edits are never clobbered,
		// even when the cloud timestamp is newer.
		return SkipPendingUpload
	}
	if g.queue.HasPendingNoteCreate(noteID) {
		return SkipPendingCreate
	}
	return SkipNone
}
