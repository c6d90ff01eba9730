package notedb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmined/notesync/internal/notecore"
)

func TestStore_PutOperation_RoundTrips(t *testing.T) {
	store := newTestStore(t)
	op := sampleOperation("op-1", "n1")

	require.NoError(t, store.PutOperation(op))

	got, err := store.GetOperation("op-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	if diff := cmp.Diff(op, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_PutOperation_UpsertsOnConflict(t *testing.T) {
	store := newTestStore(t)
	op := sampleOperation("op-1", "n1")
	require.NoError(t, store.PutOperation(op))

	op.Status = notecore.StatusFailed
	op.RetryCount = 3
	require.NoError(t, store.PutOperation(op))

	got, err := store.GetOperation("op-1")
	require.NoError(t, err)
	assert.Equal(t, notecore.StatusFailed, got.Status)
	assert.Equal(t, 3, got.RetryCount)
}

func TestStore_GetOperation_MissingReturnsNil(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetOperation("ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_DeleteOperation_RemovesRow(t *testing.T) {
	store := newTestStore(t)
	op := sampleOperation("op-1", "n1")
	require.NoError(t, store.PutOperation(op))
	require.NoError(t, store.DeleteOperation("op-1"))

	got, err := store.GetOperation("op-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_ScanOperations_ReturnsEveryRow(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutOperation(sampleOperation("op-1", "n1")))
	require.NoError(t, store.PutOperation(sampleOperation("op-2", "n2")))

	rows, err := store.ScanOperations()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestStore_ScanOperationsByTarget_Filters(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutOperation(sampleOperation("op-1", "n1")))
	require.NoError(t, store.PutOperation(sampleOperation("op-2", "n2")))

	rows, err := store.ScanOperationsByTarget("n1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "op-1", rows[0].ID)
}

func TestStore_UpdateOperationTargetID_RewritesAndClearsLocalFlag(t *testing.T) {
	store := newTestStore(t)
	op := sampleOperation("op-1", "local_1")
	op.IsLocalID = true
	require.NoError(t, store.PutOperation(op))

	require.NoError(t, store.UpdateOperationTargetID("local_1", "srv-1"))

	got, err := store.GetOperation("op-1")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", got.TargetID)
	assert.False(t, got.IsLocalID)
}

func TestStore_DeleteOperationsByTarget_RemovesAllMatchingRows(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutOperation(sampleOperation("op-1", "n1")))
	require.NoError(t, store.PutOperation(sampleOperation("op-2", "n1")))
	require.NoError(t, store.PutOperation(sampleOperation("op-3", "n2")))

	require.NoError(t, store.DeleteOperationsByTarget("n1"))

	rows, err := store.ScanOperations()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "op-3", rows[0].ID)
}
