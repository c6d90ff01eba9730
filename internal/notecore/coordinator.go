package notecore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ConflictResolution is the outcome of resolveConflict: which side of a
// local/remote discrepancy should win.
type ConflictResolution string

const (
	KeepLocal  ConflictResolution = "KeepLocal"
	UseCloud   ConflictResolution = "UseCloud"
	SkipUpdate ConflictResolution = "Skip"
)

// immediateProcessor is the narrow slice of Processor the Coordinator
// needs; expressed as an interface so the Coordinator depends on a
// single method of the Processor even though both live in this package.
// The reverse edge is a direct call: the Processor invokes
// HandleNoteCreateSuccess on the Coordinator after a NoteCreate.
type immediateProcessor interface {
	ProcessImmediately(ctx context.Context, op *Operation)
}

// Coordinator is the single-writer actor mediating local saves,
// active-editing state, conflict resolution, and upload scheduling
// (§4.H). Every method that reads or writes the coordinator's own state
// takes mu, so those accesses serialize on the coordinator.
type Coordinator struct {
	mu sync.Mutex

	store   PersistencePort
	queue   *Queue
	guard   *Guard
	online  *OnlineState
	clock   ClockPort
	proc    immediateProcessor

	activeEditingNoteID string
}

// NewCoordinator constructs a Coordinator. SetProcessor must be called
// before any save triggers an immediate upload.
func NewCoordinator(store PersistencePort, queue *Queue, guard *Guard, online *OnlineState, clock ClockPort) *Coordinator {
	return &Coordinator{store: store, queue: queue, guard: guard, online: online, clock: clock}
}

// SetProcessor wires the Processor the Coordinator kicks for immediate
// uploads. Deferred past construction to let the composition root build
// Coordinator and Processor in either order.
func (c *Coordinator) SetProcessor(p immediateProcessor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proc = p
}

// SaveNote persists note locally, enqueues a CloudUpload capturing this
// save moment, and triggers an immediate upload attempt when online.
func (c *Coordinator) SaveNote(ctx context.Context, note *Note) error {
	return c.saveNote(ctx, note)
}

// SaveNoteImmediately is identical to SaveNote; any external debouncing
// is the caller's concern, not the core's (§4.H).
func (c *Coordinator) SaveNoteImmediately(ctx context.Context, note *Note) error {
	return c.saveNote(ctx, note)
}

func (c *Coordinator) saveNote(ctx context.Context, note *Note) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	note.UpdatedAt = now
	if err := c.store.PutEntity(note.toEntity()); err != nil {
		return fmt.Errorf("notecore: save note: %w", err)
	}

	op := &Operation{
		Kind:        KindCloudUpload,
		TargetID:    note.ID,
		Payload:     note.Content,
		LocalSaveAt: &now,
		IsLocalID:   IsTemporaryID(note.ID),
	}
	accepted, err := c.queue.Enqueue(op)
	if err != nil {
		// Local data is already durable; a failed enqueue only delays
		// the upload until the next save (§7 Propagation policy).
		return nil
	}
	if accepted != nil && c.online != nil && c.online.IsOnline() && c.proc != nil {
		c.proc.ProcessImmediately(ctx, accepted)
	}
	return nil
}

// CreateNoteOffline mints a temporary id, persists the note, and enqueues
// a NoteCreate.
func (c *Coordinator) CreateNoteOffline(ctx context.Context, title string, content []byte, folderID string) (*Note, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	note := &Note{
		ID:        NewTemporaryID(),
		Title:     title,
		Content:   content,
		FolderID:  folderID,
		UpdatedAt: c.clock.Now(),
	}
	if err := c.store.PutEntity(note.toEntity()); err != nil {
		return nil, fmt.Errorf("notecore: create note offline: %w", err)
	}

	op := &Operation{
		Kind:      KindNoteCreate,
		TargetID:  note.ID,
		Payload:   content,
		IsLocalID: true,
	}
	accepted, err := c.queue.Enqueue(op)
	if err != nil {
		return note, nil
	}
	if accepted != nil && c.online != nil && c.online.IsOnline() && c.proc != nil {
		c.proc.ProcessImmediately(ctx, accepted)
	}
	return note, nil
}

// SetActiveEditing records the note currently open in the editor, or
// clears it when noteID is "".
func (c *Coordinator) SetActiveEditing(noteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeEditingNoteID = noteID
}

// IsActivelyEditing reports whether noteID is the currently open note.
// Satisfies activeEditingSource for the Guard.
func (c *Coordinator) IsActivelyEditing(noteID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return noteID != "" && c.activeEditingNoteID == noteID
}

// CanSyncUpdate thinly delegates to the Guard.
func (c *Coordinator) CanSyncUpdate(noteID string, cloudTs time.Time) bool {
	return !c.guard.ShouldSkip(noteID, cloudTs)
}

// ResolveConflict decides which side wins a local/remote discrepancy.
func (c *Coordinator) ResolveConflict(noteID string, cloudTs time.Time) ConflictResolution {
	if IsTemporaryID(noteID) {
		return KeepLocal
	}
	if c.IsActivelyEditing(noteID) {
		return KeepLocal
	}
	if c.queue.HasPendingUpload(noteID) {
		return KeepLocal
	}
	return UseCloud
}

// HandleNoteCreateSuccess reconciles a temporary id with the id the
// server assigned, retargeting active-editing state if it pointed at
// the old id.
func (c *Coordinator) HandleNoteCreateSuccess(registry *Registry, tempID, serverID string) error {
	if err := registry.UpdateAllReferences(tempID, serverID); err != nil {
		return err
	}

	c.mu.Lock()
	if c.activeEditingNoteID == tempID {
		c.activeEditingNoteID = serverID
	}
	c.mu.Unlock()

	return registry.MarkCompleted(tempID)
}

// DeleteTemporaryNote cancels queue ops for id, deletes the local row,
// and clears active-editing state if it matched.
func (c *Coordinator) DeleteTemporaryNote(id string) error {
	if !IsTemporaryID(id) {
		return ErrNotTemporaryID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.queue.CancelOperations(id); err != nil {
		return fmt.Errorf("notecore: delete temporary note: %w", err)
	}
	if err := c.store.DeleteEntity(id); err != nil {
		return fmt.Errorf("notecore: delete temporary note: %w", err)
	}
	if c.activeEditingNoteID == id {
		c.activeEditingNoteID = ""
	}
	return nil
}
