// internal/domain/models/snapshot.go
package models

import (
	"sort"
	"strconv"
)

// ContentMap maps a subject ID (decimal string) to that subject's ordered
// content list.
type ContentMap[T ContentItem] map[string][]T

// SubjectKey returns the map key used for a subject ID.
func SubjectKey(subjectID int) string {
	return strconv.Itoa(subjectID)
}

// For returns the list for a subject. A missing subject yields nil.
func (m ContentMap[T]) For(subjectID int) []T {
	return m[SubjectKey(subjectID)]
}

// MaxID returns the largest item ID across every subject's list, or 0.
func (m ContentMap[T]) MaxID() int {
	highest := 0
	for _, items := range m {
		for _, it := range items {
			if id := ItemID(it); id > highest {
				highest = id
			}
		}
	}
	return highest
}

// Keys returns the subject keys in ascending numeric order.
func (m ContentMap[T]) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	return keys
}

// Clone returns a deep copy. A nil map clones to an empty map.
func (m ContentMap[T]) Clone() ContentMap[T] {
	out := make(ContentMap[T], len(m))
	for k, items := range m {
		cp := make([]T, len(items))
		for i, it := range items {
			cp[i] = cloneContent(it)
		}
		out[k] = cp
	}
	return out
}

// Snapshot is the whole dataset held under one root path.
type Snapshot struct {
	Batches  []Batch             `bson:"batches" json:"batches" yaml:"batches"`
	Subjects []Subject           `bson:"subjects" json:"subjects" yaml:"subjects"`
	Lectures ContentMap[Lecture] `bson:"lectures" json:"lectures" yaml:"lectures"`
	Notes    ContentMap[Note]    `bson:"notes" json:"notes" yaml:"notes"`
	DPPs     ContentMap[DPP]     `bson:"dpps" json:"dpps" yaml:"dpps"`
}

// Clone returns a deep copy of s with every collection non-nil.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Batches:  make([]Batch, len(s.Batches)),
		Subjects: append([]Subject{}, s.Subjects...),
		Lectures: s.Lectures.Clone(),
		Notes:    s.Notes.Clone(),
		DPPs:     s.DPPs.Clone(),
	}
	for i, b := range s.Batches {
		out.Batches[i] = cloneBatch(b)
	}
	return out
}

// Normalize replaces nil collections and nil inner lists with empty ones so
// the JSON and BSON forms never carry null where a list is expected.
func (s *Snapshot) Normalize() {
	if s.Batches == nil {
		s.Batches = []Batch{}
	}
	for i := range s.Batches {
		if s.Batches[i].Teachers == nil {
			s.Batches[i].Teachers = []string{}
		}
		if s.Batches[i].Subjects == nil {
			s.Batches[i].Subjects = []int{}
		}
	}
	if s.Subjects == nil {
		s.Subjects = []Subject{}
	}
	s.Lectures = normalizeContent(s.Lectures)
	s.Notes = normalizeContent(s.Notes)
	s.DPPs = normalizeContent(s.DPPs)
}

func normalizeContent[T ContentItem](m ContentMap[T]) ContentMap[T] {
	if m == nil {
		m = ContentMap[T]{}
	}
	for k, items := range m {
		if items == nil {
			items = []T{}
		}
		for i, it := range items {
			items[i] = normalizeItem(it)
		}
		m[k] = items
	}
	return m
}

func normalizeItem[T ContentItem](item T) T {
	switch v := any(item).(type) {
	case Lecture:
		if v.AvailableInBatches == nil {
			v.AvailableInBatches = []int{}
		}
		return any(v).(T)
	case Note:
		if v.AvailableInBatches == nil {
			v.AvailableInBatches = []int{}
		}
		return any(v).(T)
	case DPP:
		if v.AvailableInBatches == nil {
			v.AvailableInBatches = []int{}
		}
		return any(v).(T)
	}
	return item
}

// Batch returns the batch with the given ID.
func (s Snapshot) Batch(id int) (Batch, bool) {
	for _, b := range s.Batches {
		if b.ID == id {
			return b, true
		}
	}
	return Batch{}, false
}

// Subject returns the subject with the given ID.
func (s Snapshot) Subject(id int) (Subject, bool) {
	for _, sub := range s.Subjects {
		if sub.ID == id {
			return sub, true
		}
	}
	return Subject{}, false
}
