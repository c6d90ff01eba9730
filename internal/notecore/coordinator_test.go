package notecore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	mu  sync.Mutex
	ops []*Operation
}

func (p *recordingProcessor) ProcessImmediately(ctx context.Context, op *Operation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, op)
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ops)
}

func newTestCoordinator(t *testing.T) (*Coordinator, *Queue, *memStore, *manualClock, *recordingProcessor) {
	t.Helper()
	store := newMemStore()
	clock := newManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	q, err := NewQueue(store, clock, DefaultQueueConfig())
	require.NoError(t, err)
	online := NewOnlineState(NewEventBus())
	online.Set(true, true, true)
	coord := NewCoordinator(store, q, nil, online, clock)
	guard := NewGuard(q, coord)
	coord.guard = guard
	proc := &recordingProcessor{}
	coord.SetProcessor(proc)
	return coord, q, store, clock, proc
}

func TestCoordinator_SaveNote_PersistsAndTriggersImmediateUpload(t *testing.T) {
	coord, q, store, clock, proc := newTestCoordinator(t)

	note := &Note{ID: "n1", Title: "hello", Content: []byte("body")}
	require.NoError(t, coord.SaveNote(context.Background(), note))

	got, err := store.GetEntity("n1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, clock.Now(), got.UpdatedAt)

	assert.Len(t, q.Pending(), 1)
	assert.Equal(t, 1, proc.count())
}

func TestCoordinator_SaveNote_BurstCoalescesIntoSingleQueuedUpload(t *testing.T) {
	coord, q, _, clock, proc := newTestCoordinator(t)

	note := &Note{ID: "n1", Content: []byte("v1")}
	require.NoError(t, coord.SaveNote(context.Background(), note))

	clock.Advance(time.Millisecond)
	note2 := &Note{ID: "n1", Content: []byte("v2")}
	require.NoError(t, coord.SaveNote(context.Background(), note2))

	clock.Advance(time.Millisecond)
	note3 := &Note{ID: "n1", Content: []byte("v3")}
	require.NoError(t, coord.SaveNote(context.Background(), note3))

	pending := q.Pending()
	require.Len(t, pending, 1, "repeated saves of the same note must merge into one queued upload")
	assert.Equal(t, []byte("v3"), pending[0].Payload)
	assert.Equal(t, 3, proc.count(), "every save still triggers its own immediate-upload attempt")
}

func TestCoordinator_CreateNoteOffline_MintsTemporaryIDAndEnqueuesCreate(t *testing.T) {
	coord, q, store, _, proc := newTestCoordinator(t)

	note, err := coord.CreateNoteOffline(context.Background(), "title", []byte("body"), "")
	require.NoError(t, err)
	assert.True(t, IsTemporaryID(note.ID))

	got, err := store.GetEntity(note.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, KindNoteCreate, pending[0].Kind)
	assert.Equal(t, 1, proc.count())
}

func TestCoordinator_DeleteTemporaryNote_CancelsOpsAndClearsRow(t *testing.T) {
	coord, q, store, _, _ := newTestCoordinator(t)

	note, err := coord.CreateNoteOffline(context.Background(), "title", []byte("body"), "")
	require.NoError(t, err)
	coord.SetActiveEditing(note.ID)

	require.NoError(t, coord.DeleteTemporaryNote(note.ID))

	assert.Empty(t, q.Pending())
	got, err := store.GetEntity(note.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, coord.IsActivelyEditing(note.ID))
}

func TestCoordinator_DeleteTemporaryNote_RejectsServerID(t *testing.T) {
	coord, _, _, _, _ := newTestCoordinator(t)

	err := coord.DeleteTemporaryNote("srv-1")
	assert.ErrorIs(t, err, ErrNotTemporaryID)
}

func TestCoordinator_ResolveConflict_TemporaryIDKeepsLocal(t *testing.T) {
	coord, _, _, _, _ := newTestCoordinator(t)
	assert.Equal(t, KeepLocal, coord.ResolveConflict("local_1", time.Now()))
}

func TestCoordinator_ResolveConflict_ActivelyEditingKeepsLocal(t *testing.T) {
	coord, _, _, _, _ := newTestCoordinator(t)
	coord.SetActiveEditing("n1")
	assert.Equal(t, KeepLocal, coord.ResolveConflict("n1", time.Now()))
}

func TestCoordinator_ResolveConflict_PendingUploadKeepsLocal(t *testing.T) {
	coord, q, _, clock, _ := newTestCoordinator(t)

	ts := clock.Now()
	_, err := q.Enqueue(&Operation{Kind: KindCloudUpload, TargetID: "n1", LocalSaveAt: &ts})
	require.NoError(t, err)

	assert.Equal(t, KeepLocal, coord.ResolveConflict("n1", time.Now()))
}

func TestCoordinator_ResolveConflict_NoConflictUsesCloud(t *testing.T) {
	coord, _, _, _, _ := newTestCoordinator(t)
	assert.Equal(t, UseCloud, coord.ResolveConflict("n1", time.Now()))
}

func TestCoordinator_HandleNoteCreateSuccess_RetargetsActiveEditingAndCompletesMapping(t *testing.T) {
	coord, q, store, clock, _ := newTestCoordinator(t)
	events := NewEventBus()
	registry := NewRegistry(store, q, clock, events)

	require.NoError(t, store.PutEntity(&EntityRecord{ID: "local_1", Kind: EntityNote}))
	require.NoError(t, registry.Register("local_1", "srv-1", EntityNote))
	coord.SetActiveEditing("local_1")

	require.NoError(t, coord.HandleNoteCreateSuccess(registry, "local_1", "srv-1"))

	assert.True(t, coord.IsActivelyEditing("srv-1"))
	m, err := store.GetMapping("local_1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.Completed)
}
