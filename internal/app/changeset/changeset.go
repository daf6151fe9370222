// internal/app/changeset/changeset.go
//
// Package changeset describes partial updates to the root document as a closed
// set of typed targets: a whole collection, or one subject's content list.
package changeset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dalemusser/eduverse/internal/domain/models"
)

// Collection names a top-level collection of the root document.
type Collection string

const (
	Batches  Collection = "batches"
	Subjects Collection = "subjects"
	Lectures Collection = "lectures"
	Notes    Collection = "notes"
	DPPs     Collection = "dpps"
)

// Collections lists every top-level collection in document order.
var Collections = []Collection{Batches, Subjects, Lectures, Notes, DPPs}

var (
	// ErrEmpty is returned when a Set carries no changes.
	ErrEmpty = errors.New("changeset: no changes")
	// ErrOverlap is returned when two changes in one Set address the same
	// path or one path is an ancestor of another.
	ErrOverlap = errors.New("changeset: overlapping targets")
)

// Target is the location a Change writes to.
type Target struct {
	collection Collection
	subjectID  int
	scoped     bool
}

// Collection returns the top-level collection of the target.
func (t Target) Collection() Collection { return t.collection }

// Path returns the slash-separated path, e.g. "batches" or "lectures/3".
func (t Target) Path() string {
	if !t.scoped {
		return string(t.collection)
	}
	return string(t.collection) + "/" + strconv.Itoa(t.subjectID)
}

// FieldPath returns the dotted document field path, e.g. "lectures.3".
func (t Target) FieldPath() string {
	return strings.ReplaceAll(t.Path(), "/", ".")
}

// contains reports whether writing t also rewrites o.
func (t Target) contains(o Target) bool {
	if t.collection != o.collection {
		return false
	}
	if !t.scoped {
		return true
	}
	return o.scoped && o.subjectID == t.subjectID
}

// Change is one fully computed value for one target.
type Change struct {
	target Target
	value  any
}

// Target returns where the change writes.
func (c Change) Target() Target { return c.target }

// Value returns the new value stored at the target. It is one of []Batch,
// []Subject, a models.ContentMap, or a content list.
func (c Change) Value() any { return c.value }

func (c Change) String() string { return c.target.Path() }

// SetBatches replaces the batch collection.
func SetBatches(batches []models.Batch) Change {
	s := models.Snapshot{Batches: batches}.Clone()
	s.Normalize()
	return Change{target: Target{collection: Batches}, value: s.Batches}
}

// SetSubjects replaces the subject collection.
func SetSubjects(subjects []models.Subject) Change {
	cp := append([]models.Subject{}, subjects...)
	return Change{target: Target{collection: Subjects}, value: cp}
}

// SetLectures replaces every subject's lecture list.
func SetLectures(m models.ContentMap[models.Lecture]) Change {
	s := models.Snapshot{Lectures: m.Clone()}
	s.Normalize()
	return Change{target: Target{collection: Lectures}, value: s.Lectures}
}

// SetNotes replaces every subject's note list.
func SetNotes(m models.ContentMap[models.Note]) Change {
	s := models.Snapshot{Notes: m.Clone()}
	s.Normalize()
	return Change{target: Target{collection: Notes}, value: s.Notes}
}

// SetDPPs replaces every subject's DPP list.
func SetDPPs(m models.ContentMap[models.DPP]) Change {
	s := models.Snapshot{DPPs: m.Clone()}
	s.Normalize()
	return Change{target: Target{collection: DPPs}, value: s.DPPs}
}

// SetSubjectLectures replaces one subject's lecture list.
func SetSubjectLectures(subjectID int, items []models.Lecture) Change {
	key := models.SubjectKey(subjectID)
	s := models.Snapshot{Lectures: models.ContentMap[models.Lecture]{key: items}}.Clone()
	s.Normalize()
	return Change{target: Target{collection: Lectures, subjectID: subjectID, scoped: true}, value: s.Lectures[key]}
}

// SetSubjectNotes replaces one subject's note list.
func SetSubjectNotes(subjectID int, items []models.Note) Change {
	key := models.SubjectKey(subjectID)
	s := models.Snapshot{Notes: models.ContentMap[models.Note]{key: items}}.Clone()
	s.Normalize()
	return Change{target: Target{collection: Notes, subjectID: subjectID, scoped: true}, value: s.Notes[key]}
}

// SetSubjectDPPs replaces one subject's DPP list.
func SetSubjectDPPs(subjectID int, items []models.DPP) Change {
	key := models.SubjectKey(subjectID)
	s := models.Snapshot{DPPs: models.ContentMap[models.DPP]{key: items}}.Clone()
	s.Normalize()
	return Change{target: Target{collection: DPPs, subjectID: subjectID, scoped: true}, value: s.DPPs[key]}
}

// Set is one partial update made of several changes applied together.
type Set []Change

// Validate checks that the set is non-empty and that no two targets overlap.
func (s Set) Validate() error {
	if len(s) == 0 {
		return ErrEmpty
	}
	for i := range s {
		for j := range s {
			if i == j {
				continue
			}
			if s[i].target.contains(s[j].target) {
				return fmt.Errorf("%w: %s and %s", ErrOverlap, s[i], s[j])
			}
		}
	}
	return nil
}

// Paths returns the slash-separated path of every change in order.
func (s Set) Paths() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.target.Path()
	}
	return out
}

// Apply returns a copy of snap with every change merged in by key at the top
// level. snap itself is not modified.
func (s Set) Apply(snap models.Snapshot) models.Snapshot {
	out := snap.Clone()
	for _, c := range s {
		c.applyTo(&out)
	}
	out.Normalize()
	return out
}

func (c Change) applyTo(s *models.Snapshot) {
	key := models.SubjectKey(c.target.subjectID)
	switch v := c.value.(type) {
	case []models.Batch:
		s.Batches = (models.Snapshot{Batches: v}).Clone().Batches
	case []models.Subject:
		s.Subjects = append([]models.Subject{}, v...)
	case models.ContentMap[models.Lecture]:
		s.Lectures = v.Clone()
	case models.ContentMap[models.Note]:
		s.Notes = v.Clone()
	case models.ContentMap[models.DPP]:
		s.DPPs = v.Clone()
	case []models.Lecture:
		s.Lectures[key] = models.ContentMap[models.Lecture]{key: v}.Clone()[key]
	case []models.Note:
		s.Notes[key] = models.ContentMap[models.Note]{key: v}.Clone()[key]
	case []models.DPP:
		s.DPPs[key] = models.ContentMap[models.DPP]{key: v}.Clone()[key]
	}
}
