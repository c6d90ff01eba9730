package notedb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/openmined/notesync/internal/notecore"
)

type mappingRow struct {
	LocalID    string `db:"local_id"`
	ServerID   string `db:"server_id"`
	EntityKind string `db:"entity_kind"`
	CreatedAt  sql.NullTime `db:"created_at"`
	Completed  bool   `db:"completed"`
}

func (r *mappingRow) toMapping() *notecore.IDMapping {
	m := &notecore.IDMapping{
		LocalID:    r.LocalID,
		ServerID:   r.ServerID,
		EntityKind: notecore.EntityKind(r.EntityKind),
		Completed:  r.Completed,
	}
	if r.CreatedAt.Valid {
		m.CreatedAt = r.CreatedAt.Time
	}
	return m
}

// PutMapping upserts a single id mapping.
func (s *Store) PutMapping(m *notecore.IDMapping) error {
	_, err := s.db.Exec(`
		INSERT INTO id_mappings (local_id, server_id, entity_kind, created_at, completed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			server_id = excluded.server_id,
			entity_kind = excluded.entity_kind,
			created_at = excluded.created_at,
			completed = excluded.completed
	`, m.LocalID, m.ServerID, string(m.EntityKind), m.CreatedAt, m.Completed)
	if err != nil {
		return fmt.Errorf("notedb: put mapping: %w", err)
	}
	return nil
}

// GetMapping returns a single mapping, or nil if none is registered.
func (s *Store) GetMapping(localID string) (*notecore.IDMapping, error) {
	var r mappingRow
	err := s.db.Get(&r, `SELECT * FROM id_mappings WHERE local_id = ?`, localID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notedb: get mapping: %w", err)
	}
	return r.toMapping(), nil
}

// ScanMappings returns every mapping, used by Registry.RecoverIncomplete.
func (s *Store) ScanMappings() ([]*notecore.IDMapping, error) {
	var rows []mappingRow
	if err := s.db.Select(&rows, `SELECT * FROM id_mappings`); err != nil {
		return nil, fmt.Errorf("notedb: scan mappings: %w", err)
	}
	out := make([]*notecore.IDMapping, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toMapping())
	}
	return out, nil
}

// DeleteCompletedMappings garbage-collects every mapping already marked
// completed.
func (s *Store) DeleteCompletedMappings() error {
	if _, err := s.db.Exec(`DELETE FROM id_mappings WHERE completed = 1`); err != nil {
		return fmt.Errorf("notedb: delete completed mappings: %w", err)
	}
	return nil
}
