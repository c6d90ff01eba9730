package notecore

import (
	"context"
	"errors"
	"net"
)

// ErrorKind classifies a failure so the Processor's failure handler can
// decide whether to retry, halt the queue, or give up.
type ErrorKind string

const (
	ErrorNone                  ErrorKind = ""
	ErrorNetwork               ErrorKind = "Network"
	ErrorTimeout               ErrorKind = "Timeout"
	ErrorServer                ErrorKind = "ServerError"
	ErrorAuthExpired           ErrorKind = "AuthExpired"
	ErrorNotFound              ErrorKind = "NotFound"
	ErrorConflict              ErrorKind = "Conflict"
	ErrorUnknown               ErrorKind = "Unknown"
	ErrorPersistenceFailed     ErrorKind = "PersistenceFailed"
	ErrorNotAuthenticated      ErrorKind = "NotAuthenticated"
	ErrorAlreadySyncing        ErrorKind = "AlreadySyncing"
	ErrorInvalidNoteData       ErrorKind = "InvalidNoteData"
	ErrorStorageOperationFailed ErrorKind = "StorageOperationFailed"
)

// retryable is the set of error kinds the Processor's failure handler
// schedules a backoff retry for; everything else either halts the queue
// (AuthExpired) or gives up immediately.
var retryable = map[ErrorKind]bool{
	ErrorNetwork: true,
	ErrorTimeout: true,
	ErrorServer:  true,
}

// IsRetryable reports whether the Processor should schedule a retry for
// an error of this kind (subject to the MaxRetry ceiling).
func IsRetryable(kind ErrorKind) bool {
	return retryable[kind]
}

var (
	// ErrQueueAlreadyProcessing is returned when processQueue or
	// processRetries is invoked while a prior run of the same method is
	// still in flight; the Processor guards each entry point with its
	// own re-entrancy flag (§5).
	ErrQueueAlreadyProcessing = errors.New("notecore: a queue drain is already running")

	// ErrOperationNotFound is returned by Queue.MarkProcessing and
	// Queue.Get when the row has already been removed, and wrapped by the
	// Processor when an operation's entity row is missing. MarkCompleted,
	// MarkFailed and ScheduleRetry treat a missing row as success-absorbed
	// (§5 Cancellation) and return nil instead.
	ErrOperationNotFound = errors.New("notecore: operation not found")

	// ErrMappingNotFound is returned by Registry.MarkCompleted for an id
	// with no registered mapping. Registry.Resolve does not return it; it
	// hands back the id unchanged.
	ErrMappingNotFound = errors.New("notecore: id mapping not found")

	// ErrNotTemporaryID is returned by Coordinator.DeleteTemporaryNote when
	// the id is not local_-prefixed.
	ErrNotTemporaryID = errors.New("notecore: id is not a temporary id")

	// ErrMaxRetryExceeded names the exhausted-retry condition. No function
	// in this package returns it; the queue records the condition on the
	// row as StatusMaxRetryExceeded.
	ErrMaxRetryExceeded = errors.New("notecore: retry count exceeds max retry")
)

// StatusError lets a RemoteAPIPort implementation report the HTTP status
// it observed without the core importing net/http; Classify maps it per
// the table in §4.I.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "notecore: remote call failed"
}

func (e *StatusError) Unwrap() error { return e.Err }

// Classify maps an error returned by a RemoteAPIPort call into an
// ErrorKind (§4.I). Transport-level reachability failures classify as
// Network; context deadline exceeded classifies as Timeout; a
// *StatusError classifies by its HTTP status; anything else is Unknown.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == 401:
			return ErrorAuthExpired
		case statusErr.StatusCode == 404:
			return ErrorNotFound
		case statusErr.StatusCode == 409:
			return ErrorConflict
		case statusErr.StatusCode >= 500:
			return ErrorServer
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTimeout
		}
		return ErrorNetwork
	}

	return ErrorUnknown
}
