package notecore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCore_WiresEveryComponent(t *testing.T) {
	store := newMemStore()
	clock := newManualClock(nowForTest())
	remote := &fakeRemote{}

	core, err := NewCore(store, remote, clock, DefaultQueueConfig())
	require.NoError(t, err)

	require.NotNil(t, core.Queue)
	require.NotNil(t, core.Registry)
	require.NotNil(t, core.SyncTag)
	require.NotNil(t, core.Guard)
	require.NotNil(t, core.Coordinator)
	require.NotNil(t, core.Processor)
	require.NotNil(t, core.Online)
	require.NotNil(t, core.Events)

	assert.False(t, core.Online.IsOnline(), "starts offline until Set is called")
}

func TestCore_Recover_ReplaysIncompleteMappingsIdempotently(t *testing.T) {
	store := newMemStore()
	clock := newManualClock(nowForTest())
	remote := &fakeRemote{}

	core, err := NewCore(store, remote, clock, DefaultQueueConfig())
	require.NoError(t, err)

	require.NoError(t, store.PutEntity(&EntityRecord{ID: "local_1", Kind: EntityNote}))
	_, err = core.Queue.Enqueue(&Operation{Kind: KindCloudUpload, TargetID: "local_1", IsLocalID: true})
	require.NoError(t, err)
	require.NoError(t, core.Registry.Register("local_1", "srv-1", EntityNote))

	require.NoError(t, core.Recover())
	require.NoError(t, core.Recover(), "replaying recovery must be idempotent")

	m, err := store.GetMapping("local_1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.Completed)

	pending := core.Queue.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "srv-1", pending[0].TargetID)
}

func nowForTest() (t time.Time) {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}
