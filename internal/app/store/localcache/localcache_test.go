package localcache

import (
	"testing"

	"github.com/dalemusser/eduverse/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(InMemoryConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLoadEmpty(t *testing.T) {
	c := openTestCache(t)

	_, err := c.Load()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := openTestCache(t)

	in := models.Snapshot{
		Batches:  []models.Batch{{ID: 1, Name: "A", Teachers: []string{"AK"}, Subjects: []int{2}}},
		Subjects: []models.Subject{{ID: 2, Name: "Science", Icon: "⚗️", Class: "science"}},
		Lectures: models.ContentMap[models.Lecture]{"2": {{ID: 5, Title: "L", AvailableInBatches: []int{1}}}},
		Notes:    models.ContentMap[models.Note]{"2": {}},
		DPPs:     models.ContentMap[models.DPP]{},
	}
	require.NoError(t, c.Save(in))

	out, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSaveOverwrites(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.Save(models.Snapshot{Batches: []models.Batch{{ID: 1}}}))
	require.NoError(t, c.Save(models.Snapshot{Batches: []models.Batch{{ID: 2}, {ID: 3}}}))

	out, err := c.Load()
	require.NoError(t, err)
	require.Len(t, out.Batches, 2)
	assert.Equal(t, 2, out.Batches[0].ID)
}

func TestUpdate(t *testing.T) {
	c := openTestCache(t)

	err := c.Update(func(s models.Snapshot) models.Snapshot { return s })
	assert.ErrorIs(t, err, ErrEmpty, "update on empty slot")

	require.NoError(t, c.Save(models.Snapshot{Subjects: []models.Subject{{ID: 1, Name: "Math"}}}))
	require.NoError(t, c.Update(func(s models.Snapshot) models.Snapshot {
		s.Subjects = append(s.Subjects, models.Subject{ID: 2, Name: "Hindi"})
		return s
	}))

	out, err := c.Load()
	require.NoError(t, err)
	assert.Len(t, out.Subjects, 2)
}

func TestClear(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.Save(models.Snapshot{}))
	require.NoError(t, c.Clear())
	_, err := c.Load()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestPersistentReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = 0

	c, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Save(models.Snapshot{Batches: []models.Batch{{ID: 7, Name: "Kept"}}}))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "second close is a no-op")

	c2, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	defer c2.Close()

	out, err := c2.Load()
	require.NoError(t, err)
	require.Len(t, out.Batches, 1)
	assert.Equal(t, "Kept", out.Batches[0].Name)
}

func TestOpenLockedDirectory(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = 0

	held, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = Open(cfg, zap.NewNop())
	require.ErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), dir)

	require.NoError(t, held.Close())
	c, err := Open(cfg, zap.NewNop())
	require.NoError(t, err, "lock is released on close")
	require.NoError(t, c.Close())
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{}, nil)
	assert.Error(t, err)
}
