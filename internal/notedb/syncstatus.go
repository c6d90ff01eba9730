package notedb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/openmined/notesync/internal/notecore"
)

type syncStatusRow struct {
	LastSyncTime sql.NullTime   `db:"last_sync_time"`
	SyncTag      sql.NullString `db:"sync_tag"`
}

// GetSyncStatus returns the persisted singleton, or nil if it has never
// been written.
func (s *Store) GetSyncStatus() (*notecore.SyncStatus, error) {
	var r syncStatusRow
	err := s.db.Get(&r, `SELECT last_sync_time, sync_tag FROM sync_status WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notedb: get sync status: %w", err)
	}
	status := &notecore.SyncStatus{}
	if r.LastSyncTime.Valid {
		status.LastSyncTime = r.LastSyncTime.Time
	}
	if r.SyncTag.Valid {
		status.SyncTag = r.SyncTag.String
	}
	return status, nil
}

// PutSyncStatus overwrites the persisted singleton.
func (s *Store) PutSyncStatus(status *notecore.SyncStatus) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_status (id, last_sync_time, sync_tag) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_sync_time = excluded.last_sync_time,
			sync_tag = excluded.sync_tag
	`, status.LastSyncTime, status.SyncTag)
	if err != nil {
		return fmt.Errorf("notedb: put sync status: %w", err)
	}
	return nil
}
