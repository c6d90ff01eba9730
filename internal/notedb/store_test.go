package notedb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openmined/notesync/internal/notecore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := NewSqliteDB(WithPath(":memory:"), WithMaxOpenConns(1))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	require.NoError(t, err)
	return store
}

func TestNewStore_MigratesSchemaIdempotently(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Migrate())
}

var _ notecore.PersistencePort = (*Store)(nil)

func sampleOperation(id, targetID string) *notecore.Operation {
	return &notecore.Operation{
		ID:        id,
		Kind:      notecore.KindCloudUpload,
		TargetID:  targetID,
		Payload:   []byte("body"),
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:    notecore.StatusPending,
		Priority:  2,
	}
}
