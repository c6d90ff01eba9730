package notedb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/openmined/notesync/internal/notecore"
)

// operationRow is the sqlx scan target for the operations table; a
// separate type from notecore.Operation keeps the core free of db
// struct tags.
type operationRow struct {
	ID          string         `db:"id"`
	Kind        string         `db:"kind"`
	TargetID    string         `db:"target_id"`
	Payload     []byte         `db:"payload"`
	CreatedAt   sql.NullTime   `db:"created_at"`
	LocalSaveAt sql.NullTime   `db:"local_save_at"`
	Status      string         `db:"status"`
	Priority    int            `db:"priority"`
	RetryCount  int            `db:"retry_count"`
	NextRetryAt sql.NullTime   `db:"next_retry_at"`
	LastError   sql.NullString `db:"last_error"`
	ErrorKind   sql.NullString `db:"error_kind"`
	IsLocalID   bool           `db:"is_local_id"`
}

func (r *operationRow) toOperation() *notecore.Operation {
	op := &notecore.Operation{
		ID:         r.ID,
		Kind:       notecore.OperationKind(r.Kind),
		TargetID:   r.TargetID,
		Payload:    r.Payload,
		Status:     notecore.OperationStatus(r.Status),
		Priority:   r.Priority,
		RetryCount: r.RetryCount,
		IsLocalID:  r.IsLocalID,
	}
	if r.CreatedAt.Valid {
		op.CreatedAt = r.CreatedAt.Time
	}
	if r.LocalSaveAt.Valid {
		t := r.LocalSaveAt.Time
		op.LocalSaveAt = &t
	}
	if r.NextRetryAt.Valid {
		t := r.NextRetryAt.Time
		op.NextRetryAt = &t
	}
	if r.LastError.Valid {
		op.LastError = r.LastError.String
	}
	if r.ErrorKind.Valid {
		op.ErrorKind = notecore.ErrorKind(r.ErrorKind.String)
	}
	return op
}

func fromOperation(op *notecore.Operation) *operationRow {
	r := &operationRow{
		ID:         op.ID,
		Kind:       string(op.Kind),
		TargetID:   op.TargetID,
		Payload:    op.Payload,
		Status:     string(op.Status),
		Priority:   op.Priority,
		RetryCount: op.RetryCount,
		IsLocalID:  op.IsLocalID,
	}
	r.CreatedAt = sql.NullTime{Time: op.CreatedAt, Valid: !op.CreatedAt.IsZero()}
	if op.LocalSaveAt != nil {
		r.LocalSaveAt = sql.NullTime{Time: *op.LocalSaveAt, Valid: true}
	}
	if op.NextRetryAt != nil {
		r.NextRetryAt = sql.NullTime{Time: *op.NextRetryAt, Valid: true}
	}
	if op.LastError != "" {
		r.LastError = sql.NullString{String: op.LastError, Valid: true}
	}
	if op.ErrorKind != "" {
		r.ErrorKind = sql.NullString{String: string(op.ErrorKind), Valid: true}
	}
	return r
}

// PutOperation upserts a single row.
func (s *Store) PutOperation(op *notecore.Operation) error {
	r := fromOperation(op)
	_, err := s.db.NamedExec(`
		INSERT INTO operations (id, kind, target_id, payload, created_at, local_save_at, status, priority, retry_count, next_retry_at, last_error, error_kind, is_local_id)
		VALUES (:id, :kind, :target_id, :payload, :created_at, :local_save_at, :status, :priority, :retry_count, :next_retry_at, :last_error, :error_kind, :is_local_id)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			target_id = excluded.target_id,
			payload = excluded.payload,
			created_at = excluded.created_at,
			local_save_at = excluded.local_save_at,
			status = excluded.status,
			priority = excluded.priority,
			retry_count = excluded.retry_count,
			next_retry_at = excluded.next_retry_at,
			last_error = excluded.last_error,
			error_kind = excluded.error_kind,
			is_local_id = excluded.is_local_id
	`, r)
	if err != nil {
		return fmt.Errorf("notedb: put operation: %w", err)
	}
	return nil
}

// DeleteOperation removes a single row by id.
func (s *Store) DeleteOperation(id string) error {
	if _, err := s.db.Exec(`DELETE FROM operations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("notedb: delete operation: %w", err)
	}
	return nil
}

// GetOperation returns a single operation, or nil if it does not exist.
func (s *Store) GetOperation(id string) (*notecore.Operation, error) {
	var r operationRow
	err := s.db.Get(&r, `SELECT * FROM operations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notedb: get operation: %w", err)
	}
	return r.toOperation(), nil
}

// ScanOperations returns every operation row, used to rehydrate the
// queue's in-memory index at startup.
func (s *Store) ScanOperations() ([]*notecore.Operation, error) {
	var rows []operationRow
	if err := s.db.Select(&rows, `SELECT * FROM operations`); err != nil {
		return nil, fmt.Errorf("notedb: scan operations: %w", err)
	}
	out := make([]*notecore.Operation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toOperation())
	}
	return out, nil
}

// ScanOperationsByTarget returns every operation row for a given target.
func (s *Store) ScanOperationsByTarget(targetID string) ([]*notecore.Operation, error) {
	var rows []operationRow
	if err := s.db.Select(&rows, `SELECT * FROM operations WHERE target_id = ?`, targetID); err != nil {
		return nil, fmt.Errorf("notedb: scan operations by target: %w", err)
	}
	out := make([]*notecore.Operation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toOperation())
	}
	return out, nil
}

// UpdateOperationTargetID atomically rewrites target_id for every row
// matching oldTargetID and clears is_local_id.
func (s *Store) UpdateOperationTargetID(oldTargetID, newTargetID string) error {
	_, err := s.db.Exec(`UPDATE operations SET target_id = ?, is_local_id = 0 WHERE target_id = ?`, newTargetID, oldTargetID)
	if err != nil {
		return fmt.Errorf("notedb: update operation target id: %w", err)
	}
	return nil
}

// DeleteOperationsByTarget removes every row for a target id.
func (s *Store) DeleteOperationsByTarget(targetID string) error {
	if _, err := s.db.Exec(`DELETE FROM operations WHERE target_id = ?`, targetID); err != nil {
		return fmt.Errorf("notedb: delete operations by target: %w", err)
	}
	return nil
}
