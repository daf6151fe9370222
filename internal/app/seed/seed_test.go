package seed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotContents(t *testing.T) {
	s := Snapshot()

	require.Len(t, s.Batches, 3)
	require.Len(t, s.Subjects, 7)

	b := s.Batches[0]
	assert.Equal(t, "Aarambh Batch 2.0 - Class 9", b.Name)
	assert.Equal(t, 9, b.Class)
	assert.Equal(t, 4500.0, b.OriginalPrice)
	assert.Equal(t, 2500.0, b.DiscountPrice)
	assert.Equal(t, []string{"AK", "RS", "MP"}, b.Teachers)
	assert.Equal(t, 245, b.Students)
	assert.Equal(t, "active", b.Status)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, b.Subjects)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), b.CreatedAt.UTC())

	assert.Equal(t, []int{1, 2, 6, 7}, s.Batches[2].Subjects)

	assert.Equal(t, "Information Technology", s.Subjects[6].Name)
	assert.Equal(t, "it", s.Subjects[6].Class)
	assert.Equal(t, 9, s.Subjects[6].Topics)

	require.Len(t, s.Lectures["1"], 2)
	assert.Equal(t, 11, s.Lectures["2"][0].ID)
	assert.Equal(t, []int{1, 2, 3}, s.Lectures["1"][0].AvailableInBatches)
	assert.Equal(t, "PDF", s.Notes["1"][0].Type)
	assert.Equal(t, 4, s.Notes["2"][0].ID)
	assert.Equal(t, 25, s.DPPs["1"][0].Questions)
	assert.Equal(t, "matter-atoms-practice-1.pdf", s.DPPs["2"][0].FileName)
}

func TestSnapshotReturnsCopies(t *testing.T) {
	a := Snapshot()
	a.Batches[0].Name = "changed"
	a.Lectures["1"][0].AvailableInBatches[0] = 99

	b := Snapshot()
	assert.Equal(t, "Aarambh Batch 2.0 - Class 9", b.Batches[0].Name)
	assert.Equal(t, 1, b.Lectures["1"][0].AvailableInBatches[0])
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("batches: [unterminated"))
	assert.Error(t, err)
}

func TestParseNormalizes(t *testing.T) {
	s, err := Parse([]byte("batches:\n  - id: 1\n    name: X\n"))
	require.NoError(t, err)
	assert.NotNil(t, s.Batches[0].Subjects)
	assert.NotNil(t, s.Subjects)
	assert.NotNil(t, s.Lectures)
}
