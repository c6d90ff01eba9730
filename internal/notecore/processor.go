package notecore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Processor executes queued operations against the Remote API Port,
// classifies errors, applies backoff, and triggers id-mapping and
// sync-tag confirmation (§4.I). Its three entry points run at most one
// op at a time per worker; processQueue/processRetries are each guarded
// by their own re-entrancy flag.
type Processor struct {
	queue    *Queue
	registry *Registry
	synctag  *SyncTagManager
	remote   RemoteAPIPort
	online   *OnlineState
	events   *EventBus
	coord    *Coordinator

	queueRunning   atomic.Bool
	retriesRunning atomic.Bool
}

// NewProcessor constructs a Processor. coord may be nil at construction
// time and wired afterward via SetCoordinator, mirroring Coordinator's
// deferred SetProcessor. The Coordinator reaches the Processor through
// the narrow immediateProcessor interface; the Processor holds the
// concrete *Coordinator and calls HandleNoteCreateSuccess directly when
// a NoteCreate returns a new id.
func NewProcessor(queue *Queue, registry *Registry, synctag *SyncTagManager, remote RemoteAPIPort, online *OnlineState, events *EventBus) *Processor {
	return &Processor{queue: queue, registry: registry, synctag: synctag, remote: remote, online: online, events: events}
}

// SetCoordinator wires the Coordinator so NoteCreate completions can
// retarget active-editing state through HandleNoteCreateSuccess.
// FolderCreate completions go straight to the Registry.
func (p *Processor) SetCoordinator(c *Coordinator) {
	p.coord = c
}

// ProcessImmediately executes a single operation right away, gated on
// online + authenticated. It is intended for the Coordinator's
// save/create paths; it does not touch the re-entrancy flags that guard
// ProcessQueue/ProcessRetries.
func (p *Processor) ProcessImmediately(ctx context.Context, op *Operation) {
	if p.online == nil || !p.online.IsOnline() {
		return
	}
	p.execute(ctx, op)
}

// ProcessQueue drains Queue.Pending() in order. Re-entrancy–guarded:
// concurrent callers receive ErrQueueAlreadyProcessing. After the run it
// confirms the staged sync tag if no upload-class operation remains, and
// emits a completion event.
func (p *Processor) ProcessQueue(ctx context.Context) error {
	if !p.queueRunning.CompareAndSwap(false, true) {
		return ErrQueueAlreadyProcessing
	}
	defer p.queueRunning.Store(false)

	for _, op := range p.queue.Pending() {
		p.execute(ctx, op)
	}
	return p.finishDrain()
}

// ProcessRetries is like ProcessQueue but drains Queue.ReadyForRetry().
func (p *Processor) ProcessRetries(ctx context.Context) error {
	if !p.retriesRunning.CompareAndSwap(false, true) {
		return ErrQueueAlreadyProcessing
	}
	defer p.retriesRunning.Store(false)

	for _, op := range p.queue.ReadyForRetry() {
		p.execute(ctx, op)
	}
	return p.finishDrain()
}

func (p *Processor) finishDrain() error {
	if !p.hasAnyPendingUpload() {
		if _, err := p.synctag.ConfirmIfNeeded(); err != nil {
			return fmt.Errorf("notecore: confirm sync tag: %w", err)
		}
	}
	if p.events != nil {
		p.events.Publish(&Event{Type: EventOperationCompleted})
	}
	return nil
}

// hasAnyPendingUpload reports whether any CloudUpload/NoteCreate remains
// non-terminal (Pending, Processing or Failed); finishDrain holds the
// staged sync tag while one does.
func (p *Processor) hasAnyPendingUpload() bool {
	p.queue.mu.Lock()
	defer p.queue.mu.Unlock()
	for _, op := range p.queue.ops {
		if (op.Kind == KindCloudUpload || op.Kind == KindNoteCreate) && isNonTerminal(op.Status) {
			return true
		}
	}
	return false
}

// execute runs one operation end to end: mark processing, dispatch by
// kind, then either mark completed or invoke the failure handler.
func (p *Processor) execute(ctx context.Context, op *Operation) {
	if err := p.queue.MarkProcessing(op.ID); err != nil {
		if errors.Is(err, ErrOperationNotFound) {
			return
		}
		slog.Error("notecore: mark processing failed", "op", op.ID, "error", err)
		return
	}

	var runErr error
	switch op.Kind {
	case KindNoteCreate:
		runErr = p.runNoteCreate(ctx, op)
	case KindCloudUpload:
		runErr = p.runCloudUpload(ctx, op)
	case KindCloudDelete:
		runErr = p.runCloudDelete(ctx, op)
	case KindFolderCreate:
		runErr = p.runFolderCreate(ctx, op)
	case KindFolderRename:
		runErr = p.runFolderRename(ctx, op)
	case KindFolderDelete:
		runErr = p.runFolderDelete(ctx, op)
	case KindImageUpload:
		// Attachments ride along with the containing upload; nothing to
		// do here (§4.I).
		runErr = nil
	default:
		runErr = fmt.Errorf("notecore: unknown operation kind %q", op.Kind)
	}

	if runErr == nil {
		if err := p.queue.MarkCompleted(op.ID); err != nil && !errors.Is(err, ErrOperationNotFound) {
			slog.Error("notecore: mark completed failed", "op", op.ID, "error", err)
		}
		if p.events != nil {
			p.events.Publish(&Event{
				Type: EventOperationCompleted,
				OperationCompleted: &OperationCompletedPayload{
					OpID: op.ID, NoteID: op.TargetID, Kind: op.Kind,
				},
			})
		}
		return
	}

	p.handleFailure(op, runErr)
}

// handleFailure applies §4.I's failure handler: retryable errors under
// MaxRetry get scheduled for backoff; AuthExpired halts that operation
// terminally and emits an auth-failure event; everything else marks
// Failed, becoming MaxRetryExceeded once retryCount is exhausted.
func (p *Processor) handleFailure(op *Operation, runErr error) {
	kind := Classify(runErr)

	if IsRetryable(kind) && op.RetryCount < defaultMaxRetry {
		if err := p.queue.ScheduleRetry(op.ID, nil); err != nil {
			slog.Error("notecore: schedule retry failed", "op", op.ID, "error", err)
		}
		return
	}

	if err := p.queue.MarkFailed(op.ID, runErr, kind); err != nil {
		slog.Error("notecore: mark failed failed", "op", op.ID, "error", err)
		return
	}

	if kind == ErrorAuthExpired && p.events != nil {
		p.events.Publish(&Event{
			Type: EventOperationAuthFailed,
			OperationAuthFailed: &OperationAuthFailedPayload{
				OpID: op.ID, NoteID: op.TargetID,
			},
		})
	}
}

// defaultMaxRetry mirrors QueueConfig's default; handleFailure only uses
// it to decide retryable-vs-not before consulting the queue, which owns
// the authoritative MaxRetry from its own config.
const defaultMaxRetry = 5

func (p *Processor) runNoteCreate(ctx context.Context, op *Operation) error {
	entity, err := p.lookupEntity(op.TargetID)
	if err != nil {
		return err
	}

	resp, err := p.remote.CreateNote(ctx, entity.Title, entity.Payload, entity.FolderID)
	if err != nil {
		return fmt.Errorf("create note: %w", err)
	}

	entity.ServerTag = resp.Tag
	if resp.FolderID != "" {
		entity.FolderID = resp.FolderID
	}
	if err := p.putEntity(entity); err != nil {
		return err
	}

	if resp.ID != op.TargetID {
		if err := p.registry.Register(op.TargetID, resp.ID, EntityNote); err != nil {
			return fmt.Errorf("register id mapping: %w", err)
		}
		if p.coord != nil {
			if err := p.coord.HandleNoteCreateSuccess(p.registry, op.TargetID, resp.ID); err != nil {
				return fmt.Errorf("reconcile note id: %w", err)
			}
		} else if err := p.registry.UpdateAllReferences(op.TargetID, resp.ID); err != nil {
			return fmt.Errorf("reconcile note id: %w", err)
		}
	}

	return nil
}

func (p *Processor) runCloudUpload(ctx context.Context, op *Operation) error {
	entity, err := p.lookupEntity(op.TargetID)
	if err != nil {
		return err
	}

	resp, err := p.remote.UpdateNote(ctx, entity.ID, entity.Title, op.Payload, entity.FolderID, entity.ServerTag)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}

	entity.ServerTag = resp.Tag
	entity.Payload = op.Payload
	return p.putEntity(entity)
}

func (p *Processor) runCloudDelete(ctx context.Context, op *Operation) error {
	entity, err := p.lookupEntity(op.TargetID)
	if err != nil {
		return err
	}
	if err := p.remote.DeleteNote(ctx, entity.ID, entity.ServerTag, false); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (p *Processor) runFolderCreate(ctx context.Context, op *Operation) error {
	entity, err := p.lookupEntity(op.TargetID)
	if err != nil {
		return err
	}

	resp, err := p.remote.CreateFolder(ctx, entity.Title)
	if err != nil {
		return fmt.Errorf("create folder: %w", err)
	}

	entity.ServerTag = resp.Tag
	if err := p.putEntity(entity); err != nil {
		return err
	}

	if resp.ID != op.TargetID {
		if err := p.registry.Register(op.TargetID, resp.ID, EntityFolder); err != nil {
			return fmt.Errorf("register folder id mapping: %w", err)
		}
		if err := p.registry.UpdateAllReferences(op.TargetID, resp.ID); err != nil {
			return fmt.Errorf("reconcile folder id: %w", err)
		}
		if err := p.registry.MarkCompleted(op.TargetID); err != nil {
			return fmt.Errorf("complete folder id mapping: %w", err)
		}
	}
	return nil
}

func (p *Processor) runFolderRename(ctx context.Context, op *Operation) error {
	entity, err := p.lookupEntity(op.TargetID)
	if err != nil {
		return err
	}
	resp, err := p.remote.RenameFolder(ctx, entity.ID, entity.Title, entity.ServerTag, nil)
	if err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}
	entity.ServerTag = resp.Tag
	return p.putEntity(entity)
}

func (p *Processor) runFolderDelete(ctx context.Context, op *Operation) error {
	entity, err := p.lookupEntity(op.TargetID)
	if err != nil {
		return err
	}
	if err := p.remote.DeleteFolder(ctx, entity.ID, entity.ServerTag, false); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	return nil
}

func (p *Processor) lookupEntity(id string) (*EntityRecord, error) {
	e, err := p.registry.store.GetEntity(id)
	if err != nil {
		return nil, fmt.Errorf("load entity %s: %w", id, err)
	}
	if e == nil {
		return nil, fmt.Errorf("load entity %s: %w", id, ErrOperationNotFound)
	}
	return e, nil
}

func (p *Processor) putEntity(e *EntityRecord) error {
	if err := p.registry.store.PutEntity(e); err != nil {
		return fmt.Errorf("save entity %s: %w", e.ID, err)
	}
	return nil
}
