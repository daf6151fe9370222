// internal/app/mutations/subjects.go
package mutations

import (
	"context"

	"github.com/dalemusser/eduverse/internal/app/changeset"
	"github.com/dalemusser/eduverse/internal/domain/models"
	"go.uber.org/zap"
)

func maxSubjectID(subjects []models.Subject) int {
	highest := 0
	for _, s := range subjects {
		if s.ID > highest {
			highest = s.ID
		}
	}
	return highest
}

func findSubject(subjects []models.Subject, id int) int {
	for i, s := range subjects {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// AddSubject creates a subject with zero topics and an empty lecture, note
// and DPP list, and links it to in.BatchIDs. Unknown batch IDs are ignored.
func (s *Service) AddSubject(ctx context.Context, in models.NewSubject) (models.Subject, error) {
	snap := s.store.Snapshot()

	sub := models.Subject{
		ID:        s.nextID(ctx, changeset.Subjects, maxSubjectID(snap.Subjects)),
		Name:      in.Name,
		Icon:      in.Icon,
		Class:     in.Class,
		Topics:    0,
		CreatedAt: s.now(),
	}

	set := changeset.Set{
		changeset.SetSubjects(append(snap.Subjects, sub)),
		changeset.SetSubjectLectures(sub.ID, nil),
		changeset.SetSubjectNotes(sub.ID, nil),
		changeset.SetSubjectDPPs(sub.ID, nil),
	}
	if linked := linkBatches(snap.Batches, sub.ID, in.BatchIDs); linked {
		set = append(set, changeset.SetBatches(snap.Batches))
	}
	if err := s.commit(ctx, "add_subject", set); err != nil {
		return models.Subject{}, err
	}
	s.log.Info("subject added", zap.Int("subject_id", sub.ID), zap.String("name", sub.Name))
	return sub, nil
}

// UpdateSubject merges patch into the subject. Lecture labels copied from
// the old name are not rewritten.
func (s *Service) UpdateSubject(ctx context.Context, id int, patch models.SubjectPatch) (models.Subject, error) {
	snap := s.store.Snapshot()
	i := findSubject(snap.Subjects, id)
	if i < 0 {
		return models.Subject{}, ErrNotFound
	}

	snap.Subjects[i] = patch.Apply(snap.Subjects[i])
	if err := s.commit(ctx, "update_subject", changeset.Set{changeset.SetSubjects(snap.Subjects)}); err != nil {
		return models.Subject{}, err
	}
	return snap.Subjects[i], nil
}

// DeleteSubject removes the subject and its lecture, note and DPP lists.
// Batches that list the subject keep the reference.
func (s *Service) DeleteSubject(ctx context.Context, id int) error {
	snap := s.store.Snapshot()
	i := findSubject(snap.Subjects, id)
	if i < 0 {
		return ErrNotFound
	}

	key := models.SubjectKey(id)
	delete(snap.Lectures, key)
	delete(snap.Notes, key)
	delete(snap.DPPs, key)

	set := changeset.Set{
		changeset.SetSubjects(append(snap.Subjects[:i:i], snap.Subjects[i+1:]...)),
		changeset.SetLectures(snap.Lectures),
		changeset.SetNotes(snap.Notes),
		changeset.SetDPPs(snap.DPPs),
	}
	if err := s.commit(ctx, "delete_subject", set); err != nil {
		return err
	}
	s.log.Info("subject deleted", zap.Int("subject_id", id))
	return nil
}

// linkBatches appends subjectID to every batch in ids that lacks it and
// reports whether any batch changed.
func linkBatches(batches []models.Batch, subjectID int, ids []int) bool {
	changed := false
	for _, id := range ids {
		i := findBatch(batches, id)
		if i < 0 || batches[i].HasSubject(subjectID) {
			continue
		}
		batches[i].Subjects = append(batches[i].Subjects, subjectID)
		changed = true
	}
	return changed
}
