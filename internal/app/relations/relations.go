// internal/app/relations/relations.go
//
// Package relations answers batch/subject/content questions from a snapshot.
// Every function is pure: it reads the snapshot it is given and nothing else.
// A missing batch or subject yields an empty result, never an error.
package relations

import (
	"sort"

	"github.com/dalemusser/eduverse/internal/domain/models"
)

// Combination is one (batch, subject) pair implied by Batch.Subjects.
type Combination struct {
	Batch   models.Batch   `json:"batch"`
	Subject models.Subject `json:"subject"`
	Label   string         `json:"label"`
}

// SubjectSummary is a subject with the amount of content it owns.
type SubjectSummary struct {
	models.Subject
	Lectures int `json:"lectureCount"`
	Notes    int `json:"noteCount"`
	DPPs     int `json:"dppCount"`
}

// SubjectContent is everything stored under one subject.
type SubjectContent struct {
	Subject  models.Subject   `json:"subject"`
	Lectures []models.Lecture `json:"lectures"`
	Notes    []models.Note    `json:"notes"`
	DPPs     []models.DPP     `json:"dpps"`
}

// BatchesBySubject returns every batch whose subject list contains subjectID,
// in batch order.
func BatchesBySubject(s models.Snapshot, subjectID int) []models.Batch {
	out := []models.Batch{}
	for _, b := range s.Batches {
		if b.HasSubject(subjectID) {
			out = append(out, b)
		}
	}
	return out
}

// SubjectsByBatch resolves a batch's subject IDs to subjects, in subject list
// order. IDs of deleted subjects are skipped. A missing batch yields an empty
// list.
func SubjectsByBatch(s models.Snapshot, batchID int) []models.Subject {
	out := []models.Subject{}
	b, ok := s.Batch(batchID)
	if !ok || len(b.Subjects) == 0 {
		return out
	}
	for _, sub := range s.Subjects {
		if b.HasSubject(sub.ID) {
			out = append(out, sub)
		}
	}
	return out
}

// AllBatchSubjectCombinations lists every (batch, subject) pair, labelled
// "{batch name} - {subject name}". Pairs whose subject no longer exists are
// skipped.
func AllBatchSubjectCombinations(s models.Snapshot) []Combination {
	byID := make(map[int]models.Subject, len(s.Subjects))
	for _, sub := range s.Subjects {
		byID[sub.ID] = sub
	}
	out := []Combination{}
	for _, b := range s.Batches {
		for _, id := range b.Subjects {
			sub, ok := byID[id]
			if !ok {
				continue
			}
			out = append(out, Combination{
				Batch:   b,
				Subject: sub,
				Label:   b.Name + " - " + sub.Name,
			})
		}
	}
	return out
}

// BatchesByClass returns the batches for one grade. class 0 returns all.
func BatchesByClass(s models.Snapshot, class int) []models.Batch {
	out := []models.Batch{}
	for _, b := range s.Batches {
		if class == 0 || b.Class == class {
			out = append(out, b)
		}
	}
	return out
}

// Classes returns the distinct grades that have at least one batch, ascending.
func Classes(s models.Snapshot) []int {
	seen := map[int]bool{}
	out := []int{}
	for _, b := range s.Batches {
		if !seen[b.Class] {
			seen[b.Class] = true
			out = append(out, b.Class)
		}
	}
	sort.Ints(out)
	return out
}

// SubjectSummaries returns the batch's subjects with their content counts.
// Counts cover everything stored under the subject, not only items visible to
// this batch.
func SubjectSummaries(s models.Snapshot, batchID int) []SubjectSummary {
	subs := SubjectsByBatch(s, batchID)
	out := make([]SubjectSummary, 0, len(subs))
	for _, sub := range subs {
		out = append(out, SubjectSummary{
			Subject:  sub,
			Lectures: len(s.Lectures.For(sub.ID)),
			Notes:    len(s.Notes.For(sub.ID)),
			DPPs:     len(s.DPPs.For(sub.ID)),
		})
	}
	return out
}

// ContentForSubject returns a subject's content lists. ok is false when the
// subject does not exist.
func ContentForSubject(s models.Snapshot, subjectID int) (SubjectContent, bool) {
	sub, ok := s.Subject(subjectID)
	if !ok {
		return SubjectContent{}, false
	}
	return SubjectContent{
		Subject:  sub,
		Lectures: orEmpty(s.Lectures.For(subjectID)),
		Notes:    orEmpty(s.Notes.For(subjectID)),
		DPPs:     orEmpty(s.DPPs.For(subjectID)),
	}, true
}

// SubjectInBatch reports whether the batch exists, the subject exists, and the
// batch lists the subject.
func SubjectInBatch(s models.Snapshot, batchID, subjectID int) bool {
	b, ok := s.Batch(batchID)
	if !ok || !b.HasSubject(subjectID) {
		return false
	}
	_, ok = s.Subject(subjectID)
	return ok
}

// StudentsInBatches sums the student counts of the given batches that carry
// subjectID. Unknown batch IDs are ignored.
func StudentsInBatches(s models.Snapshot, subjectID int, batchIDs []int) int {
	want := make(map[int]bool, len(batchIDs))
	for _, id := range batchIDs {
		want[id] = true
	}
	total := 0
	for _, b := range s.Batches {
		if want[b.ID] && b.HasSubject(subjectID) {
			total += b.Students
		}
	}
	return total
}

func orEmpty[T models.ContentItem](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
