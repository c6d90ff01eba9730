package notecore

import (
	"context"
	"time"
)

// PersistencePort is the narrow interface the Queue and Registry use to
// durably store operations, id mappings, and the sync cursor. A
// concrete implementation (e.g. notedb, backed by SQLite) supplies
// linearizable single-row writes; compound operations built on top
// (UpdateNoteID, UpdateAllReferences) need not be globally atomic but
// must be idempotent on replay (§5).
type PersistencePort interface {
	// Operations table.
	PutOperation(op *Operation) error
	DeleteOperation(id string) error
	GetOperation(id string) (*Operation, error)
	ScanOperations() ([]*Operation, error)
	ScanOperationsByTarget(targetID string) ([]*Operation, error)

	// UpdateOperationTargetID atomically rewrites targetId across every
	// row for oldTargetID and clears IsLocalID.
	UpdateOperationTargetID(oldTargetID, newTargetID string) error

	// DeleteOperationsByTarget removes every row for a target id, used
	// by cancelOperations.
	DeleteOperationsByTarget(targetID string) error

	// Id mappings table.
	PutMapping(m *IDMapping) error
	GetMapping(localID string) (*IDMapping, error)
	ScanMappings() ([]*IDMapping, error)
	DeleteCompletedMappings() error

	// Sync status singleton.
	GetSyncStatus() (*SyncStatus, error)
	PutSyncStatus(s *SyncStatus) error

	// Notes/folders tables. Content is opaque to the core; only the
	// fields the core reasons about are exposed here.
	GetEntity(id string) (*EntityRecord, error)
	PutEntity(e *EntityRecord) error
	DeleteEntity(id string) error
	RetargetEntity(oldID, newID string) error
}

// EntityRecord is the Persistence Port's opaque view of a note or
// folder row: enough for the core to rewrite ids and tags, nothing
// about content or presentation.
type EntityRecord struct {
	ID         string
	Kind       EntityKind
	FolderID   string // notes only; empty for folders and root-level notes
	ServerTag  string
	Payload    []byte // opaque note/folder content, untouched by the core
	Title      string
	UpdatedAt  time.Time
}

// IDMapping reconciles an offline-generated temporary id with the id the
// server assigned on first successful create.
type IDMapping struct {
	LocalID    string
	ServerID   string
	EntityKind EntityKind
	CreatedAt  time.Time
	Completed  bool
}

// SyncStatus is the persisted singleton tracking the server cursor.
type SyncStatus struct {
	LastSyncTime time.Time
	SyncTag      string
}

// ClockPort abstracts wall/monotonic time so retry scheduling and guard
// decisions are deterministically testable.
type ClockPort interface {
	Now() time.Time
}

// SystemClock is the production ClockPort.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// NetworkPort abstracts reachability. OnlineState does not consume it;
// its readings arrive through Set and SetConnected.
type NetworkPort interface {
	Reachable(ctx context.Context) bool
}

// RemoteAPIPort is the typed surface the Processor executes queued
// operations against. Implementations (e.g. noteapi, an HTTP client)
// own transport, retries-at-the-wire, and timeout handling; errors
// returned here are classified by Classify into an ErrorKind.
type RemoteAPIPort interface {
	CreateNote(ctx context.Context, title string, content []byte, folderID string) (*NoteEntryResponse, error)
	UpdateNote(ctx context.Context, id, title string, content []byte, folderID, existingTag string) (*NoteEntryResponse, error)
	DeleteNote(ctx context.Context, id, tag string, purge bool) error

	CreateFolder(ctx context.Context, name string) (*FolderEntryResponse, error)
	RenameFolder(ctx context.Context, id, name, existingTag string, originalCreateDate *time.Time) (*FolderEntryResponse, error)
	DeleteFolder(ctx context.Context, id, tag string, purge bool) error

	DownloadAttachment(ctx context.Context, noteID, attachmentID string) ([]byte, error)

	// FetchPage pulls one page of server-side changes since syncTag.
	// Page-walking / full-vs-incremental strategy lives outside this
	// core (§1 Non-goals); the core only consumes the returned cursor
	// and change lists via the Guard and the Sync-Tag State Manager.
	FetchPage(ctx context.Context, syncTag string) (*SyncPageResponse, error)
}

// NoteEntryResponse is the parsed {code, data.entry{...}} shape for note
// create/update calls (§6).
type NoteEntryResponse struct {
	ID       string
	Tag      string
	FolderID string
}

// FolderEntryResponse is the analogous shape for folder create/rename.
type FolderEntryResponse struct {
	ID  string
	Tag string
}

// SyncPageResponse is the opaque result of one sync page fetch: a new
// cursor plus the set of remote notes/folders that changed. Note/folder
// content shape is out of scope for this core; callers of FetchPage
// interpret the changes themselves and feed timestamps to the Guard.
type SyncPageResponse struct {
	SyncTag       string
	ChangedNoteIDs   []string
	ChangedFolderIDs []string
}
