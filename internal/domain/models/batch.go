// internal/domain/models/batch.go
package models

import "time"

// Batch statuses.
const (
	BatchActive   = "active"
	BatchInactive = "inactive"
)

// Grade bounds for Batch.Class.
const (
	MinBatchClass = 6
	MaxBatchClass = 12
)

// Batch is a cohort of students at one grade level.
//
// NOTE:
//   - Subjects is the forward half of the batch↔subject relation. Subjects hold
//     no back-reference; membership is found by scanning batches.
//   - Subjects may contain IDs of subjects that were deleted later. Readers
//     resolve IDs against the subject list and skip the missing ones.
type Batch struct {
	ID            int       `bson:"id" json:"id" yaml:"id"`
	Name          string    `bson:"name" json:"name" yaml:"name"`
	Class         int       `bson:"class" json:"class" yaml:"class"`
	OriginalPrice float64   `bson:"originalPrice" json:"originalPrice" yaml:"originalPrice"`
	DiscountPrice float64   `bson:"discountPrice" json:"discountPrice" yaml:"discountPrice"`
	CurrentPrice  float64   `bson:"currentPrice" json:"currentPrice" yaml:"currentPrice"`
	Teachers      []string  `bson:"teachers" json:"teachers" yaml:"teachers"`
	Students      int       `bson:"students" json:"students" yaml:"students"`
	Status        string    `bson:"status" json:"status" yaml:"status"`
	Subjects      []int     `bson:"subjects" json:"subjects" yaml:"subjects"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt" yaml:"createdAt"`
}

// HasSubject reports whether subjectID is in the batch's subject list.
func (b Batch) HasSubject(subjectID int) bool {
	for _, id := range b.Subjects {
		if id == subjectID {
			return true
		}
	}
	return false
}

// NewBatch carries the caller-supplied fields of a batch being created.
// ID, Students, Status, Subjects and CreatedAt are assigned on creation.
type NewBatch struct {
	Name          string   `json:"name"`
	Class         int      `json:"class"`
	OriginalPrice float64  `json:"originalPrice"`
	DiscountPrice float64  `json:"discountPrice"`
	Teachers      []string `json:"teachers"`
}

// BatchPatch is a partial update. Nil fields are left unchanged.
// CreatedAt and ID are never patched.
type BatchPatch struct {
	Name          *string   `json:"name,omitempty"`
	Class         *int      `json:"class,omitempty"`
	OriginalPrice *float64  `json:"originalPrice,omitempty"`
	DiscountPrice *float64  `json:"discountPrice,omitempty"`
	CurrentPrice  *float64  `json:"currentPrice,omitempty"`
	Teachers      *[]string `json:"teachers,omitempty"`
	Students      *int      `json:"students,omitempty"`
	Status        *string   `json:"status,omitempty"`
	Subjects      *[]int    `json:"subjects,omitempty"`
}

// Apply merges the patch into b and returns the result.
func (p BatchPatch) Apply(b Batch) Batch {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Class != nil {
		b.Class = *p.Class
	}
	if p.OriginalPrice != nil {
		b.OriginalPrice = *p.OriginalPrice
	}
	if p.DiscountPrice != nil {
		b.DiscountPrice = *p.DiscountPrice
	}
	if p.CurrentPrice != nil {
		b.CurrentPrice = *p.CurrentPrice
	}
	if p.Teachers != nil {
		b.Teachers = append([]string{}, (*p.Teachers)...)
	}
	if p.Students != nil {
		b.Students = *p.Students
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.Subjects != nil {
		b.Subjects = append([]int{}, (*p.Subjects)...)
	}
	return b
}

func cloneBatch(b Batch) Batch {
	b.Teachers = append([]string{}, b.Teachers...)
	b.Subjects = append([]int{}, b.Subjects...)
	return b
}
