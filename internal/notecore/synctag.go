package notecore

import (
	"fmt"
	"sync"
	"time"
)

// stagedTag is the in-memory-only (tag, stagedAt) pair awaiting
// confirmation once pending uploads have drained.
type stagedTag struct {
	tag      string
	stagedAt time.Time
}

// SyncTagManager maintains the persisted syncTag cursor and, at most, one
// staged tag awaiting confirmation (§4.F). Only Stage and ConfirmIfNeeded
// mutate the persisted cursor, enforcing invariant 5 (monotonicity gated
// on no pending uploads).
type SyncTagManager struct {
	mu     sync.Mutex
	store  PersistencePort
	clock  ClockPort
	staged *stagedTag
}

// NewSyncTagManager constructs a SyncTagManager over store.
func NewSyncTagManager(store PersistencePort, clock ClockPort) *SyncTagManager {
	return &SyncTagManager{store: store, clock: clock}
}

// Current returns the persisted tag, or "" if none has been recorded.
func (m *SyncTagManager) Current() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.store.GetSyncStatus()
	if err != nil {
		return "", fmt.Errorf("notecore: current sync tag: %w", err)
	}
	if s == nil {
		return "", nil
	}
	return s.SyncTag, nil
}

// Stage records a new server-issued tag. If hasPendingUploads is false,
// it is persisted immediately; otherwise it is held in memory until
// ConfirmIfNeeded observes the queue has drained.
func (m *SyncTagManager) Stage(tag string, hasPendingUploads bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !hasPendingUploads {
		if err := m.persistLocked(tag); err != nil {
			return err
		}
		m.staged = nil
		return nil
	}

	m.staged = &stagedTag{tag: tag, stagedAt: m.clock.Now()}
	return nil
}

// ConfirmIfNeeded persists the staged tag, if any, and clears it. Returns
// whether a confirmation occurred.
func (m *SyncTagManager) ConfirmIfNeeded() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.staged == nil {
		return false, nil
	}
	tag := m.staged.tag
	if err := m.persistLocked(tag); err != nil {
		return false, err
	}
	m.staged = nil
	return true, nil
}

// ClearPending discards a staged tag without persisting it, used on
// sync-error rollback.
func (m *SyncTagManager) ClearPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staged = nil
}

func (m *SyncTagManager) persistLocked(tag string) error {
	s := &SyncStatus{
		LastSyncTime: m.clock.Now(),
		SyncTag:      tag,
	}
	if err := m.store.PutSyncStatus(s); err != nil {
		return fmt.Errorf("notecore: persist sync tag: %w", err)
	}
	return nil
}
