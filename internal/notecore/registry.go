package notecore

import (
	"fmt"
	"sync"
)

// Registry is the id-mapping registry (§4.E): it reconciles
// offline-generated temporary ids with server-assigned ones across the
// note/folder store, the queue, and the UI (via events).
type Registry struct {
	mu     sync.Mutex
	store  PersistencePort
	queue  *Queue
	clock  ClockPort
	events *EventBus
}

// NewRegistry constructs a Registry over the given collaborators.
func NewRegistry(store PersistencePort, queue *Queue, clock ClockPort, events *EventBus) *Registry {
	return &Registry{store: store, queue: queue, clock: clock, events: events}
}

// Register persists a new, not-yet-completed mapping.
func (r *Registry) Register(localID, serverID string, kind EntityKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := &IDMapping{
		LocalID:    localID,
		ServerID:   serverID,
		EntityKind: kind,
		CreatedAt:  r.clock.Now(),
		Completed:  false,
	}
	if err := r.store.PutMapping(m); err != nil {
		return fmt.Errorf("notecore: register mapping: %w", err)
	}
	return nil
}

// Resolve returns serverId if id is a temporary id with a registered
// mapping, else id unchanged.
func (r *Registry) Resolve(id string) string {
	if !IsTemporaryID(id) {
		return id
	}
	m, err := r.store.GetMapping(id)
	if err != nil || m == nil {
		return id
	}
	return m.ServerID
}

// UpdateAllReferences rewrites the entity's primary key in the
// note/folder store, rewrites the queue's targetId, and emits an
// id-change event. Any step failing propagates; the caller (typically
// recoverIncomplete) may safely retry since every step is idempotent on
// replay.
func (r *Registry) UpdateAllReferences(localID, serverID string) error {
	if err := r.store.RetargetEntity(localID, serverID); err != nil {
		return fmt.Errorf("notecore: retarget entity: %w", err)
	}
	if err := r.queue.UpdateNoteID(localID, serverID); err != nil {
		return fmt.Errorf("notecore: retarget queue: %w", err)
	}
	if r.events != nil {
		r.events.Publish(&Event{
			Type:          EventNoteIDChanged,
			NoteIDChanged: &NoteIDChangedPayload{OldID: localID, NewID: serverID},
		})
	}
	return nil
}

// MarkCompleted flips a mapping's completed flag.
func (r *Registry) MarkCompleted(localID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.store.GetMapping(localID)
	if err != nil {
		return fmt.Errorf("notecore: mark completed: %w", err)
	}
	if m == nil {
		return ErrMappingNotFound
	}
	m.Completed = true
	if err := r.store.PutMapping(m); err != nil {
		return fmt.Errorf("notecore: mark completed: %w", err)
	}
	if r.events != nil {
		r.events.Publish(&Event{
			Type: EventIdMappingCompleted,
			IdMappingCompleted: &IdMappingCompletedPayload{
				LocalID:    m.LocalID,
				ServerID:   m.ServerID,
				EntityKind: m.EntityKind,
			},
		})
	}
	return nil
}

// CleanupCompleted garbage-collects every mapping already marked
// completed.
func (r *Registry) CleanupCompleted() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.DeleteCompletedMappings(); err != nil {
		return fmt.Errorf("notecore: cleanup completed mappings: %w", err)
	}
	return nil
}

// RecoverIncomplete drives every not-yet-completed mapping through
// UpdateAllReferences on startup, in case a prior process crashed
// mid-reconciliation. Safe to call repeatedly: every step it drives is
// idempotent on replay (§5).
func (r *Registry) RecoverIncomplete() error {
	mappings, err := r.store.ScanMappings()
	if err != nil {
		return fmt.Errorf("notecore: scan mappings: %w", err)
	}
	for _, m := range mappings {
		if m.Completed {
			continue
		}
		if err := r.UpdateAllReferences(m.LocalID, m.ServerID); err != nil {
			return fmt.Errorf("notecore: recover mapping %s: %w", m.LocalID, err)
		}
		if err := r.MarkCompleted(m.LocalID); err != nil {
			return fmt.Errorf("notecore: recover mapping %s: %w", m.LocalID, err)
		}
	}
	return nil
}
