package notecore

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// QueueConfig carries the recognized configuration keys from the
// composition root (§6 Configuration).
type QueueConfig struct {
	MaxRetry             int
	BaseRetryDelay       time.Duration
	MaxRetryDelay        time.Duration
	RetryCheckInterval   time.Duration
	TemporaryIDPrefix    string
}

// DefaultQueueConfig returns the documented defaults.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		MaxRetry:           5,
		BaseRetryDelay:     time.Second,
		MaxRetryDelay:      60 * time.Second,
		RetryCheckInterval: 30 * time.Second,
		TemporaryIDPrefix:  TemporaryIDPrefix,
	}
}

// Statistics summarizes the queue's current contents.
type Statistics struct {
	Pending          int
	Processing       int
	Failed           int
	AuthFailed       int
	MaxRetryExceeded int
}

// Queue is the durable, deduplicating operation queue (§4.D). It keeps an
// in-memory index mirroring the persistence port so dedup/merge decisions
// and ordering queries never hit disk on the read path; every mutation is
// made durable before the call returns, guarded by a single mutex the way
// the teacher's PriorityQueue guards its heap with one lock — except the
// dedup rules need lookup by (targetId, kind), which a heap can't offer,
// so the backing store here is a plain map plus a sort-on-read instead of
// container/heap.
type Queue struct {
	mu     sync.Mutex
	store  PersistencePort
	clock  ClockPort
	cfg    QueueConfig
	ops    map[string]*Operation // id -> op
}

// NewQueue constructs a Queue and rehydrates its in-memory index from
// store.
func NewQueue(store PersistencePort, clock ClockPort, cfg QueueConfig) (*Queue, error) {
	q := &Queue{
		store: store,
		clock: clock,
		cfg:   cfg,
		ops:   make(map[string]*Operation),
	}
	existing, err := store.ScanOperations()
	if err != nil {
		return nil, fmt.Errorf("notecore: rehydrate queue: %w", err)
	}
	for _, op := range existing {
		q.ops[op.ID] = op
	}
	return q, nil
}

func (q *Queue) byTarget(targetID string) []*Operation {
	var out []*Operation
	for _, op := range q.ops {
		if op.TargetID == targetID {
			out = append(out, op)
		}
	}
	return out
}

// Enqueue applies the dedup/merge rules (§4.D) and persists the result.
// It returns the accepted operation, or nil if the new intent was
// absorbed/dropped.
func (q *Queue) Enqueue(op *Operation) (*Operation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if op.ID == "" {
		op.ID = NewOperationID()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = q.clock.Now()
	}
	if op.Status == "" {
		op.Status = StatusPending
	}

	existing := q.byTarget(op.TargetID)

	// ImageUpload is the sole kind exempt from invariant 2's per-target
	// uniqueness rule, so it alone skips the dedup/merge switch below and
	// is always accepted as-is.
	if isSubjectToMerge(op.Kind) {
		switch op.Kind {
		case KindNoteCreate:
			for _, e := range existing {
				if e.Kind == KindNoteCreate && isNonTerminal(e.Status) {
					return nil, nil
				}
			}

		case KindCloudUpload:
			for _, e := range existing {
				if e.Kind == KindCloudDelete && isNonTerminal(e.Status) {
					return nil, nil
				}
			}
			for _, e := range existing {
				if e.Kind == KindCloudUpload && isNonTerminal(e.Status) {
					if err := q.deleteLocked(e.ID); err != nil {
						return nil, err
					}
				}
			}

		case KindCloudDelete:
			dropNew := false
			for _, e := range existing {
				if !isNonTerminal(e.Status) {
					continue
				}
				if e.Kind == KindNoteCreate {
					if err := q.deleteLocked(e.ID); err != nil {
						return nil, err
					}
					dropNew = true
					continue
				}
				if err := q.deleteLocked(e.ID); err != nil {
					return nil, err
				}
			}
			if dropNew {
				return nil, nil
			}

		case KindFolderCreate, KindFolderRename, KindFolderDelete:
			for _, e := range existing {
				if e.Kind == op.Kind && isNonTerminal(e.Status) {
					if err := q.deleteLocked(e.ID); err != nil {
						return nil, err
					}
				}
			}
			if op.Kind == KindFolderDelete {
				for _, e := range existing {
					if e.Kind != KindFolderDelete && isNonTerminal(e.Status) {
						if err := q.deleteLocked(e.ID); err != nil {
							return nil, err
						}
					}
				}
			}
		}
	}

	if op.Priority == 0 {
		op.Priority = DefaultPriority(op.Kind)
	}

	if err := q.store.PutOperation(op); err != nil {
		return nil, fmt.Errorf("notecore: enqueue: %w", err)
	}
	q.ops[op.ID] = op
	return op, nil
}

// deleteLocked removes an operation; caller must hold q.mu.
func (q *Queue) deleteLocked(id string) error {
	if err := q.store.DeleteOperation(id); err != nil {
		return fmt.Errorf("notecore: delete operation %s: %w", id, err)
	}
	delete(q.ops, id)
	return nil
}

// MarkProcessing transitions an operation to Processing.
func (q *Queue) MarkProcessing(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, ok := q.ops[id]
	if !ok {
		return ErrOperationNotFound
	}
	op.Status = StatusProcessing
	if err := q.store.PutOperation(op); err != nil {
		return fmt.Errorf("notecore: mark processing: %w", err)
	}
	return nil
}

// MarkCompleted deletes the row. A missing row is success-absorbed (§5
// Cancellation), not an error.
func (q *Queue) MarkCompleted(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.ops[id]; !ok {
		return nil
	}
	return q.deleteLocked(id)
}

// MarkFailed records a failure. AuthExpired errors transition to the
// terminal AuthFailed state; everything else transitions to Failed,
// becoming MaxRetryExceeded once retryCount reaches MaxRetry.
func (q *Queue) MarkFailed(id string, cause error, kind ErrorKind) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, ok := q.ops[id]
	if !ok {
		return nil
	}

	op.ErrorKind = kind
	if cause != nil {
		op.LastError = cause.Error()
	}

	switch {
	case kind == ErrorAuthExpired:
		op.Status = StatusAuthFailed
	case op.RetryCount >= q.cfg.MaxRetry:
		op.Status = StatusMaxRetryExceeded
	default:
		op.Status = StatusFailed
	}

	if err := q.store.PutOperation(op); err != nil {
		return fmt.Errorf("notecore: mark failed: %w", err)
	}
	return nil
}

// ScheduleRetry sets Failed + nextRetryAt, bumping retryCount and backing
// off exponentially: delay(n) = min(baseDelay*2^n, maxDelay). Once the
// bumped retryCount reaches MaxRetry it sets MaxRetryExceeded and clears
// nextRetryAt instead.
func (q *Queue) ScheduleRetry(id string, delay *time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, ok := q.ops[id]
	if !ok {
		return nil
	}

	op.RetryCount++
	if op.RetryCount >= q.cfg.MaxRetry {
		op.Status = StatusMaxRetryExceeded
		op.NextRetryAt = nil
	} else {
		op.Status = StatusFailed
		d := delay
		if d == nil {
			computed := q.retryDelay(op.RetryCount)
			d = &computed
		}
		next := q.clock.Now().Add(*d)
		op.NextRetryAt = &next
	}

	if err := q.store.PutOperation(op); err != nil {
		return fmt.Errorf("notecore: schedule retry: %w", err)
	}
	return nil
}

// retryDelay implements delay(n) = min(baseDelay * 2^n, maxDelay).
func (q *Queue) retryDelay(n int) time.Duration {
	base := q.cfg.BaseRetryDelay
	if base <= 0 {
		base = time.Second
	}
	maxDelay := q.cfg.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = 60 * time.Second
	}
	d := base
	for i := 0; i < n; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	return d
}

// Pending returns operations with status Pending or Failed, ordered by
// (priority desc, createdAt asc) (invariant 3).
func (q *Queue) Pending() []*Operation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*Operation
	for _, op := range q.ops {
		if op.Status == StatusPending || op.Status == StatusFailed {
			out = append(out, op)
		}
	}
	sortByPriorityThenAge(out)
	return out
}

// ReadyForRetry returns Failed operations whose nextRetryAt has elapsed
// (or is unset), in the same order as Pending.
func (q *Queue) ReadyForRetry() []*Operation {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()
	var out []*Operation
	for _, op := range q.ops {
		if op.Status != StatusFailed {
			continue
		}
		if op.NextRetryAt == nil || !now.Before(*op.NextRetryAt) {
			out = append(out, op)
		}
	}
	sortByPriorityThenAge(out)
	return out
}

func sortByPriorityThenAge(ops []*Operation) {
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Priority != ops[j].Priority {
			return ops[i].Priority > ops[j].Priority
		}
		return ops[i].CreatedAt.Before(ops[j].CreatedAt)
	})
}

// HasPendingUpload reports whether noteId has a CloudUpload or NoteCreate
// in Pending/Failed/Processing.
func (q *Queue) HasPendingUpload(noteID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, op := range q.byTarget(noteID) {
		if (op.Kind == KindCloudUpload || op.Kind == KindNoteCreate) && isNonTerminal(op.Status) {
			return true
		}
	}
	return false
}

// GetLocalSaveTimestamp returns the most recent localSaveAt among
// noteId's pending uploads, or nil if there is none.
func (q *Queue) GetLocalSaveTimestamp(noteID string) *time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()

	var latest *time.Time
	for _, op := range q.byTarget(noteID) {
		if op.Kind != KindCloudUpload || !isNonTerminal(op.Status) || op.LocalSaveAt == nil {
			continue
		}
		if latest == nil || op.LocalSaveAt.After(*latest) {
			latest = op.LocalSaveAt
		}
	}
	return latest
}

// HasPendingNoteCreate reports whether noteId has a non-terminal
// NoteCreate queued.
func (q *Queue) HasPendingNoteCreate(noteID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, op := range q.byTarget(noteID) {
		if op.Kind == KindNoteCreate && isNonTerminal(op.Status) {
			return true
		}
	}
	return false
}

// UpdateNoteID atomically rewrites targetId across every row for oldID
// and clears IsLocalID.
func (q *Queue) UpdateNoteID(oldID, newID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.UpdateOperationTargetID(oldID, newID); err != nil {
		return fmt.Errorf("notecore: update note id: %w", err)
	}
	for _, op := range q.byTarget(oldID) {
		op.TargetID = newID
		op.IsLocalID = false
	}
	return nil
}

// CancelOperations deletes every row for noteId.
func (q *Queue) CancelOperations(noteID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.DeleteOperationsByTarget(noteID); err != nil {
		return fmt.Errorf("notecore: cancel operations: %w", err)
	}
	for _, op := range q.byTarget(noteID) {
		delete(q.ops, op.ID)
	}
	return nil
}

// Get returns a single operation by id, or ErrOperationNotFound.
func (q *Queue) Get(id string) (*Operation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, ok := q.ops[id]
	if !ok {
		return nil, ErrOperationNotFound
	}
	return op, nil
}

// Statistics summarizes the current queue contents by status.
func (q *Queue) Statistics() Statistics {
	q.mu.Lock()
	defer q.mu.Unlock()

	var s Statistics
	for _, op := range q.ops {
		switch op.Status {
		case StatusPending:
			s.Pending++
		case StatusProcessing:
			s.Processing++
		case StatusFailed:
			s.Failed++
		case StatusAuthFailed:
			s.AuthFailed++
		case StatusMaxRetryExceeded:
			s.MaxRetryExceeded++
		}
	}
	return s
}
