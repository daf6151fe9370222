// internal/domain/models/subject.go
package models

import "time"

// Subject is a course offering that can be linked to any number of batches.
// Class is a subject-domain category (e.g. "math"), unrelated to Batch.Class.
type Subject struct {
	ID        int       `bson:"id" json:"id" yaml:"id"`
	Name      string    `bson:"name" json:"name" yaml:"name"`
	Icon      string    `bson:"icon" json:"icon" yaml:"icon"`
	Class     string    `bson:"class" json:"class" yaml:"class"`
	Topics    int       `bson:"topics" json:"topics" yaml:"topics"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt" yaml:"createdAt"`
}

// SubjectCategories lists the category tags offered by the admin subject form.
var SubjectCategories = []string{
	"math",
	"science",
	"social",
	"hindi",
	"english",
	"sanskrit",
	"it",
	"physics",
	"chemistry",
	"biology",
	"history",
	"geography",
	"economics",
}

// IsSubjectCategory reports whether c is one of SubjectCategories.
func IsSubjectCategory(c string) bool {
	for _, v := range SubjectCategories {
		if v == c {
			return true
		}
	}
	return false
}

// NewSubject carries the caller-supplied fields of a subject being created.
type NewSubject struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Class string `json:"class"`
	// BatchIDs are linked to the new subject in the same write.
	BatchIDs []int `json:"batchIds,omitempty"`
}

// SubjectPatch is a partial update. Nil fields are left unchanged.
type SubjectPatch struct {
	Name   *string `json:"name,omitempty"`
	Icon   *string `json:"icon,omitempty"`
	Class  *string `json:"class,omitempty"`
	Topics *int    `json:"topics,omitempty"`
}

// Apply merges the patch into s and returns the result.
func (p SubjectPatch) Apply(s Subject) Subject {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Icon != nil {
		s.Icon = *p.Icon
	}
	if p.Class != nil {
		s.Class = *p.Class
	}
	if p.Topics != nil {
		s.Topics = *p.Topics
	}
	return s
}
