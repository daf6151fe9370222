// internal/app/mutations/batches.go
package mutations

import (
	"context"

	"github.com/dalemusser/eduverse/internal/app/changeset"
	"github.com/dalemusser/eduverse/internal/domain/models"
	"go.uber.org/zap"
)

func maxBatchID(batches []models.Batch) int {
	highest := 0
	for _, b := range batches {
		if b.ID > highest {
			highest = b.ID
		}
	}
	return highest
}

func findBatch(batches []models.Batch, id int) int {
	for i, b := range batches {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// AddBatch creates an active batch with no students and no subjects.
func (s *Service) AddBatch(ctx context.Context, in models.NewBatch) (models.Batch, error) {
	snap := s.store.Snapshot()

	b := models.Batch{
		ID:            s.nextID(ctx, changeset.Batches, maxBatchID(snap.Batches)),
		Name:          in.Name,
		Class:         in.Class,
		OriginalPrice: in.OriginalPrice,
		DiscountPrice: in.DiscountPrice,
		CurrentPrice:  0,
		Teachers:      cleanTeachers(in.Teachers),
		Students:      0,
		Status:        models.BatchActive,
		Subjects:      []int{},
		CreatedAt:     s.now(),
	}

	next := append(snap.Batches, b)
	if err := s.commit(ctx, "add_batch", changeset.Set{changeset.SetBatches(next)}); err != nil {
		return models.Batch{}, err
	}
	s.log.Info("batch added", zap.Int("batch_id", b.ID), zap.String("name", b.Name))
	return b, nil
}

// UpdateBatch merges patch into the batch.
func (s *Service) UpdateBatch(ctx context.Context, id int, patch models.BatchPatch) (models.Batch, error) {
	snap := s.store.Snapshot()
	i := findBatch(snap.Batches, id)
	if i < 0 {
		return models.Batch{}, ErrNotFound
	}
	if patch.Teachers != nil {
		t := cleanTeachers(*patch.Teachers)
		patch.Teachers = &t
	}

	snap.Batches[i] = patch.Apply(snap.Batches[i])
	if err := s.commit(ctx, "update_batch", changeset.Set{changeset.SetBatches(snap.Batches)}); err != nil {
		return models.Batch{}, err
	}
	return snap.Batches[i], nil
}

// DeleteBatch removes the batch. Content visibility lists that name it are
// left as they are.
func (s *Service) DeleteBatch(ctx context.Context, id int) error {
	snap := s.store.Snapshot()
	i := findBatch(snap.Batches, id)
	if i < 0 {
		return ErrNotFound
	}

	next := append(snap.Batches[:i:i], snap.Batches[i+1:]...)
	if err := s.commit(ctx, "delete_batch", changeset.Set{changeset.SetBatches(next)}); err != nil {
		return err
	}
	s.log.Info("batch deleted", zap.Int("batch_id", id))
	return nil
}

// AddSubjectToBatch links subjectID to the batch. Linking a subject that is
// already linked is a no-op.
func (s *Service) AddSubjectToBatch(ctx context.Context, batchID, subjectID int) error {
	snap := s.store.Snapshot()
	i := findBatch(snap.Batches, batchID)
	if i < 0 {
		return ErrNotFound
	}
	if snap.Batches[i].HasSubject(subjectID) {
		return nil
	}

	snap.Batches[i].Subjects = append(snap.Batches[i].Subjects, subjectID)
	return s.commit(ctx, "add_subject_to_batch", changeset.Set{changeset.SetBatches(snap.Batches)})
}

// RemoveSubjectFromBatch unlinks subjectID from the batch. Removing an
// absent subject still writes the unchanged list.
func (s *Service) RemoveSubjectFromBatch(ctx context.Context, batchID, subjectID int) error {
	snap := s.store.Snapshot()
	i := findBatch(snap.Batches, batchID)
	if i < 0 {
		return ErrNotFound
	}

	snap.Batches[i].Subjects = without(snap.Batches[i].Subjects, subjectID)
	return s.commit(ctx, "remove_subject_from_batch", changeset.Set{changeset.SetBatches(snap.Batches)})
}

// SyncSubjectBatches makes batchIDs the exact set of batches carrying
// subjectID: the subject is added to newly listed batches and removed from
// the rest, in one write. Unknown batch IDs are ignored.
func (s *Service) SyncSubjectBatches(ctx context.Context, subjectID int, batchIDs []int) error {
	snap := s.store.Snapshot()
	if _, ok := snap.Subject(subjectID); !ok {
		return ErrNotFound
	}

	want := make(map[int]bool, len(batchIDs))
	for _, id := range batchIDs {
		want[id] = true
	}

	changed := false
	for i, b := range snap.Batches {
		has := b.HasSubject(subjectID)
		switch {
		case want[b.ID] && !has:
			snap.Batches[i].Subjects = append(b.Subjects, subjectID)
			changed = true
		case !want[b.ID] && has:
			snap.Batches[i].Subjects = without(b.Subjects, subjectID)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.commit(ctx, "sync_subject_batches", changeset.Set{changeset.SetBatches(snap.Batches)})
}

func without(ids []int, id int) []int {
	out := make([]int, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
