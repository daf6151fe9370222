// internal/app/mutations/content.go
package mutations

import (
	"context"

	"github.com/dalemusser/eduverse/internal/app/changeset"
	"github.com/dalemusser/eduverse/internal/domain/models"
	"go.uber.org/zap"
)

func findItem[T models.ContentItem](items []T, id int) int {
	for i, it := range items {
		if models.ItemID(it) == id {
			return i
		}
	}
	return -1
}

func removeItem[T models.ContentItem](items []T, i int) []T {
	return append(items[:i:i], items[i+1:]...)
}

func batchIDs(in []int) []int {
	return append([]int{}, in...)
}

// AddLecture appends a lecture to the subject's list. The lecture's subject
// label is taken from the subject's current name.
func (s *Service) AddLecture(ctx context.Context, subjectID int, in models.NewLecture) (models.Lecture, error) {
	snap := s.store.Snapshot()
	sub, ok := snap.Subject(subjectID)
	if !ok {
		return models.Lecture{}, ErrNotFound
	}

	l := models.Lecture{
		ID:                 s.nextID(ctx, changeset.Lectures, snap.Lectures.MaxID()),
		Title:              in.Title,
		Subject:            models.LectureLabel(sub.Name),
		Duration:           in.Duration,
		UploadDate:         s.today(),
		VideoURL:           in.VideoURL,
		AvailableInBatches: batchIDs(in.AvailableInBatches),
	}

	list := append(snap.Lectures.For(subjectID), l)
	if err := s.commit(ctx, "add_lecture", changeset.Set{changeset.SetSubjectLectures(subjectID, list)}); err != nil {
		return models.Lecture{}, err
	}
	s.log.Info("lecture added", zap.Int("subject_id", subjectID), zap.Int("lecture_id", l.ID))
	return l, nil
}

// UpdateLecture merges patch into a lecture of the subject.
func (s *Service) UpdateLecture(ctx context.Context, subjectID, id int, patch models.LecturePatch) (models.Lecture, error) {
	list := s.store.Snapshot().Lectures.For(subjectID)
	i := findItem(list, id)
	if i < 0 {
		return models.Lecture{}, ErrNotFound
	}

	list[i] = patch.Apply(list[i])
	if err := s.commit(ctx, "update_lecture", changeset.Set{changeset.SetSubjectLectures(subjectID, list)}); err != nil {
		return models.Lecture{}, err
	}
	return list[i], nil
}

// DeleteLecture removes a lecture from the subject's list.
func (s *Service) DeleteLecture(ctx context.Context, subjectID, id int) error {
	list := s.store.Snapshot().Lectures.For(subjectID)
	i := findItem(list, id)
	if i < 0 {
		return ErrNotFound
	}
	return s.commit(ctx, "delete_lecture", changeset.Set{changeset.SetSubjectLectures(subjectID, removeItem(list, i))})
}

// AddNote appends a PDF note to the subject's list.
func (s *Service) AddNote(ctx context.Context, subjectID int, in models.NewNote) (models.Note, error) {
	snap := s.store.Snapshot()
	if _, ok := snap.Subject(subjectID); !ok {
		return models.Note{}, ErrNotFound
	}

	n := models.Note{
		ID:                 s.nextID(ctx, changeset.Notes, snap.Notes.MaxID()),
		Title:              in.Title,
		Type:               models.NoteTypePDF,
		AddedOn:            s.today(),
		FileName:           in.FileName,
		AvailableInBatches: batchIDs(in.AvailableInBatches),
	}

	list := append(snap.Notes.For(subjectID), n)
	if err := s.commit(ctx, "add_note", changeset.Set{changeset.SetSubjectNotes(subjectID, list)}); err != nil {
		return models.Note{}, err
	}
	s.log.Info("note added", zap.Int("subject_id", subjectID), zap.Int("note_id", n.ID))
	return n, nil
}

// UpdateNote merges patch into a note of the subject.
func (s *Service) UpdateNote(ctx context.Context, subjectID, id int, patch models.NotePatch) (models.Note, error) {
	list := s.store.Snapshot().Notes.For(subjectID)
	i := findItem(list, id)
	if i < 0 {
		return models.Note{}, ErrNotFound
	}

	list[i] = patch.Apply(list[i])
	if err := s.commit(ctx, "update_note", changeset.Set{changeset.SetSubjectNotes(subjectID, list)}); err != nil {
		return models.Note{}, err
	}
	return list[i], nil
}

// DeleteNote removes a note from the subject's list.
func (s *Service) DeleteNote(ctx context.Context, subjectID, id int) error {
	list := s.store.Snapshot().Notes.For(subjectID)
	i := findItem(list, id)
	if i < 0 {
		return ErrNotFound
	}
	return s.commit(ctx, "delete_note", changeset.Set{changeset.SetSubjectNotes(subjectID, removeItem(list, i))})
}

// AddDPP appends a practice paper to the subject's list.
func (s *Service) AddDPP(ctx context.Context, subjectID int, in models.NewDPP) (models.DPP, error) {
	snap := s.store.Snapshot()
	if _, ok := snap.Subject(subjectID); !ok {
		return models.DPP{}, ErrNotFound
	}

	d := models.DPP{
		ID:                 s.nextID(ctx, changeset.DPPs, snap.DPPs.MaxID()),
		Title:              in.Title,
		Questions:          in.Questions,
		AddedOn:            s.today(),
		FileName:           in.FileName,
		AvailableInBatches: batchIDs(in.AvailableInBatches),
	}

	list := append(snap.DPPs.For(subjectID), d)
	if err := s.commit(ctx, "add_dpp", changeset.Set{changeset.SetSubjectDPPs(subjectID, list)}); err != nil {
		return models.DPP{}, err
	}
	s.log.Info("dpp added", zap.Int("subject_id", subjectID), zap.Int("dpp_id", d.ID))
	return d, nil
}

// UpdateDPP merges patch into a practice paper of the subject.
func (s *Service) UpdateDPP(ctx context.Context, subjectID, id int, patch models.DPPPatch) (models.DPP, error) {
	list := s.store.Snapshot().DPPs.For(subjectID)
	i := findItem(list, id)
	if i < 0 {
		return models.DPP{}, ErrNotFound
	}

	list[i] = patch.Apply(list[i])
	if err := s.commit(ctx, "update_dpp", changeset.Set{changeset.SetSubjectDPPs(subjectID, list)}); err != nil {
		return models.DPP{}, err
	}
	return list[i], nil
}

// DeleteDPP removes a practice paper from the subject's list.
func (s *Service) DeleteDPP(ctx context.Context, subjectID, id int) error {
	list := s.store.Snapshot().DPPs.For(subjectID)
	i := findItem(list, id)
	if i < 0 {
		return ErrNotFound
	}
	return s.commit(ctx, "delete_dpp", changeset.Set{changeset.SetSubjectDPPs(subjectID, removeItem(list, i))})
}
