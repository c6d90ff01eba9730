package notecore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *memStore, *manualClock) {
	t.Helper()
	store := newMemStore()
	clock := newManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	q, err := NewQueue(store, clock, DefaultQueueConfig())
	require.NoError(t, err)
	return q, store, clock
}

func TestQueue_EnqueueNoteCreate_DropsDuplicate(t *testing.T) {
	q, _, _ := newTestQueue(t)

	first, err := q.Enqueue(&Operation{Kind: KindNoteCreate, TargetID: "local_1"})
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := q.Enqueue(&Operation{Kind: KindNoteCreate, TargetID: "local_1"})
	require.NoError(t, err)
	assert.Nil(t, second)

	assert.Len(t, q.Pending(), 1)
}

func TestQueue_EnqueueCloudUpload_MergesLastWriteWins(t *testing.T) {
	q, _, clock := newTestQueue(t)

	_, err := q.Enqueue(&Operation{Kind: KindCloudUpload, TargetID: "n1", Payload: []byte("c1")})
	require.NoError(t, err)

	clock.Advance(time.Second)
	second, err := q.Enqueue(&Operation{Kind: KindCloudUpload, TargetID: "n1", Payload: []byte("c2")})
	require.NoError(t, err)
	require.NotNil(t, second)

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, []byte("c2"), pending[0].Payload)
}

func TestQueue_EnqueueCloudUpload_DroppedWhenDeletePending(t *testing.T) {
	q, _, _ := newTestQueue(t)

	_, err := q.Enqueue(&Operation{Kind: KindCloudDelete, TargetID: "n1"})
	require.NoError(t, err)

	upload, err := q.Enqueue(&Operation{Kind: KindCloudUpload, TargetID: "n1"})
	require.NoError(t, err)
	assert.Nil(t, upload)
}

func TestQueue_EnqueueCloudDelete_SubsumesNoteCreate(t *testing.T) {
	q, _, _ := newTestQueue(t)

	_, err := q.Enqueue(&Operation{Kind: KindNoteCreate, TargetID: "local_1"})
	require.NoError(t, err)

	del, err := q.Enqueue(&Operation{Kind: KindCloudDelete, TargetID: "local_1"})
	require.NoError(t, err)
	assert.Nil(t, del, "delete of a never-uploaded note should be dropped")
	assert.Empty(t, q.Pending(), "the subsumed NoteCreate must also be gone")
}

func TestQueue_EnqueueImageUpload_NeverDeduplicates(t *testing.T) {
	q, _, _ := newTestQueue(t)

	_, err := q.Enqueue(&Operation{Kind: KindImageUpload, TargetID: "n1"})
	require.NoError(t, err)
	_, err = q.Enqueue(&Operation{Kind: KindImageUpload, TargetID: "n1"})
	require.NoError(t, err)

	assert.Len(t, q.Pending(), 2)
}

func TestQueue_EnqueueFolderDelete_RemovesOtherFolderOps(t *testing.T) {
	q, _, _ := newTestQueue(t)

	_, err := q.Enqueue(&Operation{Kind: KindFolderRename, TargetID: "f1"})
	require.NoError(t, err)

	_, err = q.Enqueue(&Operation{Kind: KindFolderDelete, TargetID: "f1"})
	require.NoError(t, err)

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, KindFolderDelete, pending[0].Kind)
}

func TestQueue_Pending_OrdersByPriorityThenAge(t *testing.T) {
	q, _, clock := newTestQueue(t)

	_, err := q.Enqueue(&Operation{Kind: KindImageUpload, TargetID: "n1"}) // priority 1
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = q.Enqueue(&Operation{Kind: KindCloudUpload, TargetID: "n2"}) // priority 2
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = q.Enqueue(&Operation{Kind: KindNoteCreate, TargetID: "local_3"}) // priority 4
	require.NoError(t, err)

	pending := q.Pending()
	require.Len(t, pending, 3)
	assert.Equal(t, KindNoteCreate, pending[0].Kind)
	assert.Equal(t, KindCloudUpload, pending[1].Kind)
	assert.Equal(t, KindImageUpload, pending[2].Kind)
}

func TestQueue_ScheduleRetry_ExponentialBackoff(t *testing.T) {
	q, _, clock := newTestQueue(t)

	op, err := q.Enqueue(&Operation{Kind: KindCloudUpload, TargetID: "n1"})
	require.NoError(t, err)
	require.NoError(t, q.MarkProcessing(op.ID))

	require.NoError(t, q.ScheduleRetry(op.ID, nil))
	got, err := q.Get(op.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NextRetryAt)
	assert.Equal(t, clock.Now().Add(2*time.Second), *got.NextRetryAt)
	assert.Equal(t, 1, got.RetryCount)

	for i := 0; i < 4; i++ {
		require.NoError(t, q.ScheduleRetry(op.ID, nil))
	}
	got, err = q.Get(op.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.RetryCount)
	assert.Equal(t, StatusMaxRetryExceeded, got.Status)
}

func TestQueue_HasPendingUpload_ReflectsLocalSaveTimestamp(t *testing.T) {
	q, _, clock := newTestQueue(t)

	_, err := q.Enqueue(&Operation{Kind: KindCloudUpload, TargetID: "n1", LocalSaveAt: timePtr(clock.Now())})
	require.NoError(t, err)

	assert.True(t, q.HasPendingUpload("n1"))
	got := q.GetLocalSaveTimestamp("n1")
	require.NotNil(t, got)
	assert.True(t, got.Equal(clock.Now()))
}

func TestQueue_UpdateNoteID_RewritesTargetAndClearsLocalFlag(t *testing.T) {
	q, _, _ := newTestQueue(t)

	op, err := q.Enqueue(&Operation{Kind: KindNoteCreate, TargetID: "local_1", IsLocalID: true})
	require.NoError(t, err)
	require.NoError(t, q.UpdateNoteID("local_1", "srv-7"))

	got, err := q.Get(op.ID)
	require.NoError(t, err)
	assert.Equal(t, "srv-7", got.TargetID)
	assert.False(t, got.IsLocalID)
}

func TestQueue_CancelOperations_RemovesAllRowsForTarget(t *testing.T) {
	q, _, _ := newTestQueue(t)

	_, err := q.Enqueue(&Operation{Kind: KindNoteCreate, TargetID: "local_1"})
	require.NoError(t, err)
	_, err = q.Enqueue(&Operation{Kind: KindImageUpload, TargetID: "local_1"})
	require.NoError(t, err)

	require.NoError(t, q.CancelOperations("local_1"))
	assert.Empty(t, q.Pending())
}

func TestQueue_RehydratesFromPersistence(t *testing.T) {
	store := newMemStore()
	clock := newManualClock(time.Now())
	q1, err := NewQueue(store, clock, DefaultQueueConfig())
	require.NoError(t, err)

	op, err := q1.Enqueue(&Operation{Kind: KindCloudUpload, TargetID: "n1", Payload: []byte("x")})
	require.NoError(t, err)

	q2, err := NewQueue(store, clock, DefaultQueueConfig())
	require.NoError(t, err)

	got, err := q2.Get(op.ID)
	require.NoError(t, err)
	assert.Equal(t, op.TargetID, got.TargetID)
	assert.Equal(t, op.Payload, got.Payload)
}

func timePtr(t time.Time) *time.Time { return &t }
