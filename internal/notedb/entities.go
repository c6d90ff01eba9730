package notedb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/openmined/notesync/internal/notecore"
)

type entityRow struct {
	ID        string       `db:"id"`
	Kind      string       `db:"kind"`
	FolderID  string       `db:"folder_id"`
	ServerTag string       `db:"server_tag"`
	Payload   []byte       `db:"payload"`
	Title     string       `db:"title"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}

func (r *entityRow) toEntity() *notecore.EntityRecord {
	e := &notecore.EntityRecord{
		ID:        r.ID,
		Kind:      notecore.EntityKind(r.Kind),
		FolderID:  r.FolderID,
		ServerTag: r.ServerTag,
		Payload:   r.Payload,
		Title:     r.Title,
	}
	if r.UpdatedAt.Valid {
		e.UpdatedAt = r.UpdatedAt.Time
	}
	return e
}

// GetEntity returns a single note/folder row, or nil if it does not
// exist.
func (s *Store) GetEntity(id string) (*notecore.EntityRecord, error) {
	var r entityRow
	err := s.db.Get(&r, `SELECT * FROM entities WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notedb: get entity: %w", err)
	}
	return r.toEntity(), nil
}

// PutEntity upserts a single note/folder row.
func (s *Store) PutEntity(e *notecore.EntityRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO entities (id, kind, folder_id, server_tag, payload, title, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			folder_id = excluded.folder_id,
			server_tag = excluded.server_tag,
			payload = excluded.payload,
			title = excluded.title,
			updated_at = excluded.updated_at
	`, e.ID, string(e.Kind), e.FolderID, e.ServerTag, e.Payload, e.Title, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("notedb: put entity: %w", err)
	}
	return nil
}

// DeleteEntity removes a single row by id.
func (s *Store) DeleteEntity(id string) error {
	if _, err := s.db.Exec(`DELETE FROM entities WHERE id = ?`, id); err != nil {
		return fmt.Errorf("notedb: delete entity: %w", err)
	}
	return nil
}

// RetargetEntity rewrites a row's primary key from oldID to newID,
// leaving every other column untouched. Used by the id-mapping registry
// when a temporary id is replaced by a server-assigned one.
func (s *Store) RetargetEntity(oldID, newID string) error {
	_, err := s.db.Exec(`UPDATE entities SET id = ? WHERE id = ?`, newID, oldID)
	if err != nil {
		return fmt.Errorf("notedb: retarget entity: %w", err)
	}
	// Notes filed under a retargeted folder must follow it.
	_, err = s.db.Exec(`UPDATE entities SET folder_id = ? WHERE folder_id = ?`, newID, oldID)
	if err != nil {
		return fmt.Errorf("notedb: retarget folder references: %w", err)
	}
	return nil
}
