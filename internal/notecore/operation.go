// Package notecore implements the offline operation queue and sync
// coordination core of the notesync client: a durable queue of intents
// against a remote note service, an id-mapping registry reconciling
// offline-generated ids with server ids, a sync-tag state manager, a
// guard deciding whether remote updates may clobber local state, and the
// coordinator/processor pair that wire saves, uploads, and retries
// together.
package notecore

import (
	"time"

	"github.com/google/uuid"
)

// TemporaryIDPrefix marks an id as client-generated and not yet known to
// the server. Config.TemporaryIDPrefix is copied into
// QueueConfig.TemporaryIDPrefix, but nothing reads it there:
// NewTemporaryID and IsTemporaryID always use this constant.
const TemporaryIDPrefix = "local_"

// OperationKind identifies what a queued Operation does.
type OperationKind string

const (
	KindNoteCreate   OperationKind = "NoteCreate"
	KindCloudUpload  OperationKind = "CloudUpload"
	KindCloudDelete  OperationKind = "CloudDelete"
	KindImageUpload  OperationKind = "ImageUpload"
	KindFolderCreate OperationKind = "FolderCreate"
	KindFolderRename OperationKind = "FolderRename"
	KindFolderDelete OperationKind = "FolderDelete"
)

// OperationStatus is a row's place in the state machine. Completed is
// intentionally absent: a completed operation is deleted, not stored.
type OperationStatus string

const (
	StatusPending          OperationStatus = "Pending"
	StatusProcessing       OperationStatus = "Processing"
	StatusFailed           OperationStatus = "Failed"
	StatusAuthFailed       OperationStatus = "AuthFailed"
	StatusMaxRetryExceeded OperationStatus = "MaxRetryExceeded"
)

// EntityKind distinguishes what an id or mapping refers to.
type EntityKind string

const (
	EntityNote   EntityKind = "Note"
	EntityFolder EntityKind = "Folder"
)

// defaultPriority is the dequeue priority assigned to an Operation when
// none is supplied explicitly. Higher values dequeue first.
var defaultPriority = map[OperationKind]int{
	KindNoteCreate:   4,
	KindCloudDelete:  3,
	KindFolderDelete: 3,
	KindCloudUpload:  2,
	KindFolderRename: 2,
	KindImageUpload:  1,
	KindFolderCreate: 1,
}

// DefaultPriority returns the priority a new Operation of this kind
// receives when the caller does not override it.
func DefaultPriority(kind OperationKind) int {
	return defaultPriority[kind]
}

// Operation is a single queued intent against the remote note service.
type Operation struct {
	ID          string
	Kind        OperationKind
	TargetID    string
	Payload     []byte
	CreatedAt   time.Time
	LocalSaveAt *time.Time
	Status      OperationStatus
	Priority    int
	RetryCount  int
	NextRetryAt *time.Time
	LastError   string
	ErrorKind   ErrorKind
	IsLocalID   bool
}

// NewOperationID mints a stable opaque operation id.
func NewOperationID() string {
	return uuid.New().String()
}

// NewTemporaryID mints a client-generated id for an entity that does not
// exist on the server yet. The prefix is the sole discriminator other
// code should rely on; see IsTemporaryID.
func NewTemporaryID() string {
	return TemporaryIDPrefix + uuid.New().String()
}

// IsTemporaryID reports whether id was generated offline and has not
// been reconciled with a server-assigned id yet.
func IsTemporaryID(id string) bool {
	return len(id) >= len(TemporaryIDPrefix) && id[:len(TemporaryIDPrefix)] == TemporaryIDPrefix
}

// isSubjectToMerge reports whether kind is bound by the invariant that at
// most one non-terminal Operation may exist per (targetId, kind).
// ImageUpload is exempt — multiple attachments may upload concurrently
// for one note.
func isSubjectToMerge(kind OperationKind) bool {
	return kind != KindImageUpload
}

// isTerminal reports whether status can never transition again without
// external intervention (AuthFailed) or at all (MaxRetryExceeded).
func isTerminal(status OperationStatus) bool {
	return status == StatusAuthFailed || status == StatusMaxRetryExceeded
}

// isNonTerminal is the complement used by the dedup/merge rules: any row
// still eligible to be processed or retried.
func isNonTerminal(status OperationStatus) bool {
	return !isTerminal(status)
}
