package remotesync_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/eduverse/internal/app/changeset"
	"github.com/dalemusser/eduverse/internal/app/remotesync"
	"github.com/dalemusser/eduverse/internal/app/remotesync/remotesynctest"
	"github.com/dalemusser/eduverse/internal/app/seed"
	"github.com/dalemusser/eduverse/internal/app/store/localcache"
	"github.com/dalemusser/eduverse/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openCache(t *testing.T) *localcache.Cache {
	t.Helper()
	c, err := localcache.Open(localcache.InMemoryConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// collector records every snapshot handed to a callback.
type collector struct {
	mu    sync.Mutex
	snaps []models.Snapshot
	ch    chan models.Snapshot
}

func newCollector() *collector {
	return &collector{ch: make(chan models.Snapshot, 64)}
}

func (c *collector) cb(s models.Snapshot) {
	c.mu.Lock()
	c.snaps = append(c.snaps, s)
	c.mu.Unlock()
	c.ch <- s
}

func (c *collector) next(t *testing.T) models.Snapshot {
	t.Helper()
	select {
	case s := <-c.ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return models.Snapshot{}
}

func TestInitializeData_SeedsEmptyRemote(t *testing.T) {
	remote := remotesynctest.New()
	a := remotesync.New(remote, openCache(t), zap.NewNop(), remotesync.Options{})

	require.NoError(t, a.InitializeData(context.Background()))
	assert.True(t, a.Status().Initialized)

	got, ok := remote.Current()
	require.True(t, ok)
	assert.Equal(t, seed.Snapshot(), got)
	assert.Equal(t, 1, remote.Writes)

	// Idempotent: no second write.
	require.NoError(t, a.InitializeData(context.Background()))
	assert.Equal(t, 1, remote.Writes)
}

func TestInitializeData_KeepsExistingRemote(t *testing.T) {
	remote := remotesynctest.New()
	existing := models.Snapshot{Batches: []models.Batch{{ID: 9, Name: "Existing"}}}
	remote.Seed(existing)

	a := remotesync.New(remote, openCache(t), zap.NewNop(), remotesync.Options{})
	require.NoError(t, a.InitializeData(context.Background()))

	got, _ := remote.Current()
	require.Len(t, got.Batches, 1)
	assert.Equal(t, "Existing", got.Batches[0].Name)
	assert.Equal(t, 0, remote.Writes)
}

func TestInitializeData_ConcurrentCallersShareOneAttempt(t *testing.T) {
	remote := remotesynctest.New()
	a := remotesync.New(remote, openCache(t), zap.NewNop(), remotesync.Options{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.InitializeData(context.Background()))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, remote.Writes)
}

func TestInitializeData_CheckFailureMigratesCache(t *testing.T) {
	remote := remotesynctest.New()
	remote.FailExists = remotesynctest.ErrUnavailable

	cache := openCache(t)
	local := models.Snapshot{Subjects: []models.Subject{{ID: 3, Name: "Local only"}}}
	require.NoError(t, cache.Save(local))

	a := remotesync.New(remote, cache, zap.NewNop(), remotesync.Options{})
	err := a.InitializeData(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, remotesynctest.ErrUnavailable)
	assert.False(t, a.Status().Initialized, "failed initialization must be retried later")

	got, ok := remote.Current()
	require.True(t, ok, "cache should have been migrated")
	require.Len(t, got.Subjects, 1)
	assert.Equal(t, "Local only", got.Subjects[0].Name)

	// Recovery: the next call succeeds and marks the adapter initialized.
	remote.FailExists = nil
	require.NoError(t, a.InitializeData(context.Background()))
	assert.True(t, a.Status().Initialized)
}

func TestInitializeData_MigrationFailureIsSwallowed(t *testing.T) {
	remote := remotesynctest.New()
	remote.SetFailure(remotesynctest.ErrUnavailable)

	cache := openCache(t)
	require.NoError(t, cache.Save(models.Snapshot{}))

	a := remotesync.New(remote, cache, zap.NewNop(), remotesync.Options{})
	err := a.InitializeData(context.Background())
	assert.ErrorIs(t, err, remotesynctest.ErrUnavailable)
	_, ok := remote.Current()
	assert.False(t, ok)
}

func TestInitializeData_LocalModeSeedsCache(t *testing.T) {
	cache := openCache(t)
	a := remotesync.NewLocal(cache, zap.NewNop(), remotesync.Options{})

	require.NoError(t, a.InitializeData(context.Background()))
	assert.Equal(t, remotesync.ModeLocal, a.Mode())

	got, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, seed.Snapshot(), got)
}

func TestSubscribe_DeliversAndMirrors(t *testing.T) {
	remote := remotesynctest.New()
	cache := openCache(t)
	a := remotesync.New(remote, cache, zap.NewNop(), remotesync.Options{})
	require.NoError(t, a.InitializeData(context.Background()))

	c := newCollector()
	unsubscribe := a.SubscribeToData(c.cb)
	defer unsubscribe()

	first := c.next(t)
	assert.Equal(t, seed.Snapshot(), first)

	set := changeset.Set{changeset.SetBatches([]models.Batch{{ID: 1, Name: "Only"}})}
	require.NoError(t, a.UpdateData(context.Background(), set))

	second := c.next(t)
	require.Len(t, second.Batches, 1)
	assert.Equal(t, "Only", second.Batches[0].Name)

	cached, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, second, cached)

	st := a.Status()
	assert.Equal(t, remotesync.ModeRemote, st.Mode)
	assert.True(t, st.Online)
	assert.NotNil(t, st.LastSyncTime)
	assert.Equal(t, int64(2), st.Revision)
	assert.Equal(t, 1, st.Subscribers)
	assert.Equal(t, "last-writer-wins", st.Policy)
}

func TestSubscribe_ErrorFallsBackToCacheOnce(t *testing.T) {
	remote := remotesynctest.New()
	remote.FailWatch = remotesynctest.ErrUnavailable

	cache := openCache(t)
	local := models.Snapshot{Batches: []models.Batch{{ID: 4, Name: "Cached"}}}
	require.NoError(t, cache.Save(local))

	a := remotesync.New(remote, cache, zap.NewNop(), remotesync.Options{})
	c := newCollector()
	sub := a.SubscribeContext(context.Background(), c.cb)

	got := c.next(t)
	require.Len(t, got.Batches, 1)
	assert.Equal(t, "Cached", got.Batches[0].Name)

	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not stop after error")
	}
	assert.ErrorIs(t, sub.Err(), remotesynctest.ErrUnavailable)

	c.mu.Lock()
	assert.Len(t, c.snaps, 1, "cache is delivered exactly once")
	c.mu.Unlock()
	assert.False(t, a.Status().Online)
}

func TestSubscribe_DisconnectAfterLive(t *testing.T) {
	remote := remotesynctest.New()
	remote.Seed(seed.Snapshot())
	a := remotesync.New(remote, openCache(t), zap.NewNop(), remotesync.Options{})

	c := newCollector()
	sub := a.SubscribeContext(context.Background(), c.cb)
	c.next(t)

	remote.Disconnect()
	<-sub.Done()

	// The cache was mirrored from the live delivery, so the fallback delivery
	// carries the same data.
	fallback := c.next(t)
	assert.Equal(t, seed.Snapshot(), fallback)
	assert.Error(t, sub.Err())
	assert.False(t, a.Status().Online)
}

func TestSubscribe_LocalMode(t *testing.T) {
	cache := openCache(t)
	a := remotesync.NewLocal(cache, zap.NewNop(), remotesync.Options{})
	require.NoError(t, a.InitializeData(context.Background()))

	c := newCollector()
	sub := a.SubscribeContext(context.Background(), c.cb)
	assert.Equal(t, seed.Snapshot(), c.next(t))

	<-sub.Done()
	assert.ErrorIs(t, sub.Err(), remotesync.ErrRemoteDisabled)
}

func TestUpdateData_FailureStillMirrorsCache(t *testing.T) {
	remote := remotesynctest.New()
	cache := openCache(t)
	require.NoError(t, cache.Save(seed.Snapshot()))
	remote.FailUpdate = remotesynctest.ErrUnavailable

	a := remotesync.New(remote, cache, zap.NewNop(), remotesync.Options{})
	set := changeset.Set{changeset.SetSubjectNotes(1, nil)}
	err := a.UpdateData(context.Background(), set)
	assert.ErrorIs(t, err, remotesynctest.ErrUnavailable)

	cached, lerr := cache.Load()
	require.NoError(t, lerr)
	assert.Empty(t, cached.Notes["1"])
	assert.Len(t, cached.Notes["2"], 1, "other keys are kept")
	assert.Equal(t, remotesynctest.ErrUnavailable.Error(), a.Status().LastError)
	assert.Equal(t, "permanent", a.Status().ErrorClass)
}

func TestStatus_TimeoutIsTransient(t *testing.T) {
	remote := remotesynctest.New()
	cache := openCache(t)
	require.NoError(t, cache.Save(seed.Snapshot()))
	remote.FailUpdate = fmt.Errorf("update root: %w", context.DeadlineExceeded)

	a := remotesync.New(remote, cache, zap.NewNop(), remotesync.Options{})
	assert.Empty(t, a.Status().ErrorClass)

	err := a.UpdateData(context.Background(), changeset.Set{changeset.SetSubjectNotes(1, nil)})
	require.Error(t, err)
	assert.Equal(t, "transient", a.Status().ErrorClass)
}

func TestUpdateData_LocalModeNeverCallsRemote(t *testing.T) {
	cache := openCache(t)
	require.NoError(t, cache.Save(seed.Snapshot()))
	a := remotesync.NewLocal(cache, zap.NewNop(), remotesync.Options{})

	err := a.UpdateData(context.Background(), changeset.Set{changeset.SetBatches(nil)})
	assert.ErrorIs(t, err, remotesync.ErrRemoteDisabled)

	cached, lerr := cache.Load()
	require.NoError(t, lerr)
	assert.Empty(t, cached.Batches)

	_, err = a.NextID(context.Background(), changeset.Batches, 0)
	assert.ErrorIs(t, err, remotesync.ErrRemoteDisabled)
	assert.ErrorIs(t, a.Ping(context.Background()), remotesync.ErrRemoteDisabled)
}

func TestUpdateData_RejectsInvalidSet(t *testing.T) {
	a := remotesync.New(remotesynctest.New(), openCache(t), zap.NewNop(), remotesync.Options{})
	assert.ErrorIs(t, a.UpdateData(context.Background(), nil), changeset.ErrEmpty)
}

func TestResetData_RoundTrip(t *testing.T) {
	remote := remotesynctest.New()
	cache := openCache(t)
	a := remotesync.New(remote, cache, zap.NewNop(), remotesync.Options{})
	require.NoError(t, a.InitializeData(context.Background()))
	require.NoError(t, a.UpdateData(context.Background(), changeset.Set{changeset.SetBatches(nil)}))
	_, err := a.NextID(context.Background(), changeset.Batches, 5)
	require.NoError(t, err)

	require.NoError(t, a.ResetData(context.Background()))

	c := newCollector()
	unsubscribe := a.SubscribeToData(c.cb)
	defer unsubscribe()
	assert.Equal(t, seed.Snapshot(), c.next(t))

	cached, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, seed.Snapshot(), cached)

	id, err := a.NextID(context.Background(), changeset.Batches, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, id, "counters are reset")
}

func TestResetData_RemoteFailureStillResetsCache(t *testing.T) {
	remote := remotesynctest.New()
	remote.FailWrite = remotesynctest.ErrUnavailable
	cache := openCache(t)

	a := remotesync.New(remote, cache, zap.NewNop(), remotesync.Options{})
	err := a.ResetData(context.Background())
	assert.ErrorIs(t, err, remotesynctest.ErrUnavailable)

	cached, lerr := cache.Load()
	require.NoError(t, lerr)
	assert.Equal(t, seed.Snapshot(), cached)
}

func TestCleanupStopsSubscriptions(t *testing.T) {
	remote := remotesynctest.New()
	remote.Seed(seed.Snapshot())
	a := remotesync.New(remote, openCache(t), zap.NewNop(), remotesync.Options{})

	c := newCollector()
	s1 := a.SubscribeContext(context.Background(), c.cb)
	s2 := a.SubscribeContext(context.Background(), c.cb)
	c.next(t)
	c.next(t)
	assert.Equal(t, 2, a.Status().Subscribers)

	a.Cleanup()

	<-s1.Done()
	<-s2.Done()
	assert.NoError(t, s1.Err())
	assert.Equal(t, 0, a.Status().Subscribers)
	assert.Equal(t, 0, remote.Watchers())

	after := a.SubscribeContext(context.Background(), c.cb)
	<-after.Done()
	assert.True(t, errors.Is(after.Err(), remotesync.ErrClosed))
}

func TestSnapshotPrefersRemote(t *testing.T) {
	remote := remotesynctest.New()
	cache := openCache(t)
	a := remotesync.New(remote, cache, zap.NewNop(), remotesync.Options{})

	_, err := a.Snapshot(context.Background())
	assert.ErrorIs(t, err, remotesync.ErrNoSnapshot)

	require.NoError(t, cache.Save(models.Snapshot{Batches: []models.Batch{{ID: 1}}}))
	got, err := a.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, got.Batches, 1)

	remote.Seed(seed.Snapshot())
	got, err = a.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, got.Batches, 3)
}
