package mutations_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/eduverse/internal/app/changeset"
	"github.com/dalemusser/eduverse/internal/app/entitystore"
	"github.com/dalemusser/eduverse/internal/app/mutations"
	"github.com/dalemusser/eduverse/internal/app/relations"
	"github.com/dalemusser/eduverse/internal/app/remotesync"
	"github.com/dalemusser/eduverse/internal/app/remotesync/remotesynctest"
	"github.com/dalemusser/eduverse/internal/app/seed"
	"github.com/dalemusser/eduverse/internal/app/store/localcache"
	"github.com/dalemusser/eduverse/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSync records updates. With echo set, successful updates are applied to
// the store the way a subscription would.
type fakeSync struct {
	mu       sync.Mutex
	updates  []changeset.Set
	err      error
	resetErr error
	resets   int
	counters map[changeset.Collection]int
	idErr    error
	echo     *entitystore.Store
}

func newFakeSync() *fakeSync {
	return &fakeSync{counters: map[changeset.Collection]int{}}
}

func (f *fakeSync) UpdateData(ctx context.Context, set changeset.Set) error {
	if err := set.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	f.updates = append(f.updates, set)
	err := f.err
	f.mu.Unlock()
	if err == nil && f.echo != nil {
		f.echo.Replace(set.Apply(f.echo.Snapshot()))
	}
	return err
}

func (f *fakeSync) ResetData(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return f.resetErr
}

func (f *fakeSync) NextID(ctx context.Context, c changeset.Collection, floor int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idErr != nil {
		return 0, f.idErr
	}
	cur := f.counters[c]
	if floor > cur {
		cur = floor
	}
	cur++
	f.counters[c] = cur
	return cur, nil
}

func (f *fakeSync) lastPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return nil
	}
	return f.updates[len(f.updates)-1].Paths()
}

// localService runs without a remote: every mutation lands in the store.
func localService(initial models.Snapshot) (*mutations.Service, *entitystore.Store, *fakeSync) {
	store := entitystore.New(initial)
	fs := newFakeSync()
	fs.err = remotesync.ErrRemoteDisabled
	fs.idErr = remotesync.ErrRemoteDisabled
	return mutations.New(store, fs, zap.NewNop()), store, fs
}

func TestAddBatchSubjectAndLink(t *testing.T) {
	svc, store, _ := localService(models.Snapshot{})
	ctx := context.Background()

	b, err := svc.AddBatch(ctx, models.NewBatch{
		Name: "Test", Class: 9, OriginalPrice: 100, DiscountPrice: 50, Teachers: []string{"AB"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, b.ID)
	assert.Equal(t, 0, b.Students)
	assert.Equal(t, models.BatchActive, b.Status)
	assert.Equal(t, []int{}, b.Subjects)
	assert.Equal(t, 0.0, b.CurrentPrice)
	assert.False(t, b.CreatedAt.IsZero())

	sub, err := svc.AddSubject(ctx, models.NewSubject{Name: "Chem", Icon: "🧪", Class: "chemistry"})
	require.NoError(t, err)
	assert.Equal(t, 1, sub.ID)
	assert.Equal(t, 0, sub.Topics)

	snap := store.Snapshot()
	key := models.SubjectKey(sub.ID)
	for name, present := range map[string]bool{
		"lectures": snap.Lectures[key] != nil,
		"notes":    snap.Notes[key] != nil,
		"dpps":     snap.DPPs[key] != nil,
	} {
		assert.True(t, present, "%s list should exist", name)
	}
	assert.Empty(t, snap.Lectures[key])

	require.NoError(t, svc.AddSubjectToBatch(ctx, b.ID, sub.ID))
	got := relations.SubjectsByBatch(store.Snapshot(), b.ID)
	require.Len(t, got, 1)
	assert.Equal(t, "Chem", got[0].Name)
}

func TestAddBatch_TrimsTeachers(t *testing.T) {
	svc, _, _ := localService(models.Snapshot{})
	b, err := svc.AddBatch(context.Background(), models.NewBatch{
		Name: "T", Class: 7, Teachers: []string{" AB ", "", "  ", "CD"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"AB", "CD"}, b.Teachers)
}

func TestSequentialIDsIncreaseByOne(t *testing.T) {
	svc, _, _ := localService(models.Snapshot{})
	ctx := context.Background()

	for want := 1; want <= 5; want++ {
		sub, err := svc.AddSubject(ctx, models.NewSubject{Name: "S", Class: "math"})
		require.NoError(t, err)
		assert.Equal(t, want, sub.ID)
	}
}

func TestContentIDsShareOneCounterAcrossSubjects(t *testing.T) {
	svc, store, _ := localService(seed.Snapshot())
	ctx := context.Background()
	in := models.NewLecture{Title: "L", Duration: "30 min", VideoURL: "https://example.com/v", AvailableInBatches: []int{1}}

	a, err := svc.AddLecture(ctx, 1, in)
	require.NoError(t, err)
	b, err := svc.AddLecture(ctx, 2, in)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 12, a.ID)
	assert.Equal(t, 13, b.ID)
	assert.Equal(t, "MATHEMATICS", a.Subject)
	assert.Equal(t, "SCIENCE", b.Subject)

	snap := store.Snapshot()
	assert.Len(t, snap.Lectures.For(1), 3)
	assert.Len(t, snap.Lectures.For(2), 2)
}

func TestRemoteFailureFallsBackToStore(t *testing.T) {
	store := entitystore.New(seed.Snapshot())
	fs := newFakeSync()
	fs.err = errors.New("network down")
	svc := mutations.New(store, fs, zap.NewNop())

	b, err := svc.AddBatch(context.Background(), models.NewBatch{Name: "Offline", Class: 8, Teachers: []string{"ZZ"}})
	require.NoError(t, err)
	assert.Equal(t, 4, b.ID)
	assert.Equal(t, models.BatchActive, b.Status)

	got, ok := store.Snapshot().Batch(b.ID)
	require.True(t, ok, "store should hold the new batch")
	assert.Equal(t, "Offline", got.Name)
}

func TestRemoteSuccessLeavesStoreToSubscription(t *testing.T) {
	store := entitystore.New(seed.Snapshot())
	fs := newFakeSync()
	svc := mutations.New(store, fs, zap.NewNop())
	rev := store.Revision()

	_, err := svc.AddBatch(context.Background(), models.NewBatch{Name: "Remote", Class: 8, Teachers: []string{"ZZ"}})
	require.NoError(t, err)

	assert.Equal(t, rev, store.Revision())
	assert.Equal(t, []string{"batches"}, fs.lastPaths())
}

func TestNextIDPrefersRemoteCounter(t *testing.T) {
	store := entitystore.New(seed.Snapshot())
	fs := newFakeSync()
	fs.counters[changeset.Batches] = 10
	fs.echo = store
	svc := mutations.New(store, fs, zap.NewNop())

	b, err := svc.AddBatch(context.Background(), models.NewBatch{Name: "N", Class: 6, Teachers: []string{"A"}})
	require.NoError(t, err)
	assert.Equal(t, 11, b.ID)

	fs.idErr = errors.New("counter unavailable")
	b, err = svc.AddBatch(context.Background(), models.NewBatch{Name: "M", Class: 6, Teachers: []string{"A"}})
	require.NoError(t, err)
	assert.Equal(t, 12, b.ID, "falls back to local maximum")
}

func TestRemoveSubjectFromBatchIsIdempotent(t *testing.T) {
	svc, store, _ := localService(seed.Snapshot())
	ctx := context.Background()

	require.NoError(t, svc.RemoveSubjectFromBatch(ctx, 1, 3))
	once := store.Snapshot()
	require.NoError(t, svc.RemoveSubjectFromBatch(ctx, 1, 3))
	assert.Equal(t, once, store.Snapshot())

	assert.NotContains(t, batchIDs(relations.BatchesBySubject(once, 3)), 1)
	assert.Equal(t, []int{1, 2, 4, 5}, once.Batches[0].Subjects)
}

func TestAddSubjectToBatchSkipsDuplicate(t *testing.T) {
	svc, store, _ := localService(seed.Snapshot())
	ctx := context.Background()

	require.NoError(t, svc.AddSubjectToBatch(ctx, 3, 5))
	require.NoError(t, svc.AddSubjectToBatch(ctx, 3, 5))

	b, _ := store.Snapshot().Batch(3)
	assert.Equal(t, []int{1, 2, 6, 7, 5}, b.Subjects)
	assert.Contains(t, batchIDs(relations.BatchesBySubject(store.Snapshot(), 5)), 3)
}

func TestDeleteSubjectCascadesContentOnly(t *testing.T) {
	store := entitystore.New(seed.Snapshot())
	fs := newFakeSync()
	fs.err = remotesync.ErrRemoteDisabled
	svc := mutations.New(store, fs, zap.NewNop())

	require.NoError(t, svc.DeleteSubject(context.Background(), 1))
	assert.Equal(t, []string{"subjects", "lectures", "notes", "dpps"}, fs.lastPaths())

	snap := store.Snapshot()
	_, ok := snap.Subject(1)
	assert.False(t, ok)
	for _, key := range []bool{
		hasKey(snap.Lectures, "1"), hasKey(snap.Notes, "1"), hasKey(snap.DPPs, "1"),
	} {
		assert.False(t, key, "content list should be removed")
	}
	assert.Empty(t, snap.Lectures.For(1))
	assert.Len(t, snap.Lectures.For(2), 1, "other subjects untouched")

	b, _ := snap.Batch(1)
	assert.Contains(t, b.Subjects, 1, "batch keeps the dangling reference")
	_, found := relations.ContentForSubject(snap, 1)
	assert.False(t, found)
}

func TestSyncSubjectBatches(t *testing.T) {
	svc, store, fs := localService(seed.Snapshot())
	ctx := context.Background()

	require.NoError(t, svc.SyncSubjectBatches(ctx, 6, []int{1, 99}))
	assert.Equal(t, []int{1}, batchIDs(relations.BatchesBySubject(store.Snapshot(), 6)))

	n := len(fs.updates)
	require.NoError(t, svc.SyncSubjectBatches(ctx, 6, []int{1}))
	assert.Len(t, fs.updates, n, "no write when nothing changes")

	assert.ErrorIs(t, svc.SyncSubjectBatches(ctx, 42, nil), mutations.ErrNotFound)
}

func TestUpdateOperations(t *testing.T) {
	svc, store, _ := localService(seed.Snapshot())
	ctx := context.Background()

	name := "Renamed"
	students := 300
	b, err := svc.UpdateBatch(ctx, 2, models.BatchPatch{Name: &name, Students: &students})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", b.Name)
	assert.Equal(t, 300, b.Students)
	assert.Equal(t, 10, b.Class, "unpatched fields kept")

	topics := 20
	sub, err := svc.UpdateSubject(ctx, 1, models.SubjectPatch{Name: &name, Topics: &topics})
	require.NoError(t, err)
	assert.Equal(t, 20, sub.Topics)
	assert.Equal(t, "MATHS", store.Snapshot().Lectures.For(1)[0].Subject, "lecture labels are not rewritten")

	title := "Quadrilaterals L1 (revised)"
	l, err := svc.UpdateLecture(ctx, 1, 1, models.LecturePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, l.Title)
	assert.Equal(t, "45 min", l.Duration)

	q := 30
	d, err := svc.UpdateDPP(ctx, 2, 4, models.DPPPatch{Questions: &q})
	require.NoError(t, err)
	assert.Equal(t, 30, d.Questions)

	file := "matter-v2.pdf"
	n, err := svc.UpdateNote(ctx, 2, 4, models.NotePatch{FileName: &file})
	require.NoError(t, err)
	assert.Equal(t, file, n.FileName)
	assert.Equal(t, file, store.Snapshot().Notes.For(2)[0].FileName)
}

func TestDeleteOperations(t *testing.T) {
	svc, store, _ := localService(seed.Snapshot())
	ctx := context.Background()

	require.NoError(t, svc.DeleteLecture(ctx, 1, 2))
	require.NoError(t, svc.DeleteNote(ctx, 1, 1))
	require.NoError(t, svc.DeleteDPP(ctx, 2, 4))
	require.NoError(t, svc.DeleteBatch(ctx, 3))

	snap := store.Snapshot()
	assert.Len(t, snap.Lectures.For(1), 1)
	assert.NotNil(t, snap.Notes.For(1))
	assert.Empty(t, snap.Notes.For(1))
	assert.Empty(t, snap.DPPs.For(2))
	assert.Len(t, snap.Batches, 2)
}

func TestMissingEntitiesReturnNotFound(t *testing.T) {
	svc, _, fs := localService(seed.Snapshot())
	ctx := context.Background()

	_, err := svc.UpdateBatch(ctx, 99, models.BatchPatch{})
	assert.ErrorIs(t, err, mutations.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteBatch(ctx, 99), mutations.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteSubject(ctx, 99), mutations.ErrNotFound)
	assert.ErrorIs(t, svc.AddSubjectToBatch(ctx, 99, 1), mutations.ErrNotFound)
	assert.ErrorIs(t, svc.RemoveSubjectFromBatch(ctx, 99, 1), mutations.ErrNotFound)
	_, err = svc.AddLecture(ctx, 99, models.NewLecture{Title: "x"})
	assert.ErrorIs(t, err, mutations.ErrNotFound)
	_, err = svc.AddNote(ctx, 99, models.NewNote{Title: "x"})
	assert.ErrorIs(t, err, mutations.ErrNotFound)
	_, err = svc.AddDPP(ctx, 99, models.NewDPP{Title: "x"})
	assert.ErrorIs(t, err, mutations.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteLecture(ctx, 1, 99), mutations.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteNote(ctx, 5, 1), mutations.ErrNotFound)

	assert.Empty(t, fs.updates, "nothing written")
}

func TestContentDatesAndNoteType(t *testing.T) {
	svc, _, _ := localService(seed.Snapshot())
	svc.WithClock(func() time.Time { return time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC) })
	ctx := context.Background()

	l, err := svc.AddLecture(ctx, 1, models.NewLecture{Title: "L"})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06", l.UploadDate)

	n, err := svc.AddNote(ctx, 2, models.NewNote{Title: "N", FileName: "n.pdf", AvailableInBatches: []int{1}})
	require.NoError(t, err)
	assert.Equal(t, models.NoteTypePDF, n.Type)
	assert.Equal(t, "2024-05-06", n.AddedOn)
	assert.Equal(t, 5, n.ID)

	d, err := svc.AddDPP(ctx, 1, models.NewDPP{Title: "D", Questions: 10, FileName: "d.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 5, d.ID)
	assert.Equal(t, []int{}, d.AvailableInBatches)
}

func TestResetFallsBackToSeed(t *testing.T) {
	store := entitystore.New(models.Snapshot{})
	fs := newFakeSync()
	fs.resetErr = errors.New("remote down")
	svc := mutations.New(store, fs, zap.NewNop())

	require.NoError(t, svc.Reset(context.Background()))
	assert.Equal(t, 1, fs.resets)
	assert.Equal(t, seed.Snapshot(), store.Snapshot())
}

// End to end through the adapter: the store catches up through the
// subscription after a successful remote write.
func TestMutationReachesStoreThroughSubscription(t *testing.T) {
	cache, err := localcache.Open(localcache.InMemoryConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	remote := remotesynctest.New()
	adapter := remotesync.New(remote, cache, zap.NewNop(), remotesync.Options{})
	t.Cleanup(adapter.Cleanup)
	ctx := context.Background()
	require.NoError(t, adapter.InitializeData(ctx))

	store := entitystore.New(models.Snapshot{})
	unsubscribe := adapter.SubscribeToData(func(s models.Snapshot) { store.Replace(s) })
	t.Cleanup(unsubscribe)
	require.Eventually(t, func() bool { return len(store.Snapshot().Batches) == 3 }, 5*time.Second, 10*time.Millisecond)

	svc := mutations.New(store, adapter, zap.NewNop())
	b, err := svc.AddBatch(ctx, models.NewBatch{Name: "Live", Class: 12, Teachers: []string{"QQ"}})
	require.NoError(t, err)
	assert.Equal(t, 4, b.ID)

	require.Eventually(t, func() bool {
		_, ok := store.Snapshot().Batch(4)
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	cached, err := cache.Load()
	require.NoError(t, err)
	_, ok := cached.Batch(4)
	assert.True(t, ok, "cache mirrors the write")
}

func batchIDs(bs []models.Batch) []int {
	out := make([]int, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}

func hasKey[T models.ContentItem](m models.ContentMap[T], key string) bool {
	_, ok := m[key]
	return ok
}
