// internal/domain/models/content.go
package models

import "strings"

// DateLayout is the calendar-date format used by UploadDate and AddedOn.
const DateLayout = "2006-01-02"

// NoteTypePDF is the only note type.
const NoteTypePDF = "PDF"

// GeneralSubjectLabel is the lecture label used when the owning subject is unknown.
const GeneralSubjectLabel = "GENERAL"

// Size limits for uploaded content files, in bytes.
const (
	MaxNoteFileSize = 10 << 20
	MaxDPPFileSize  = 15 << 20
)

// Lecture is a video reference owned by one subject.
//
// Subject is a display label captured at creation time from the subject name.
// It is not kept in sync with later renames.
type Lecture struct {
	ID                 int    `bson:"id" json:"id" yaml:"id"`
	Title              string `bson:"title" json:"title" yaml:"title"`
	Subject            string `bson:"subject" json:"subject" yaml:"subject"`
	Duration           string `bson:"duration" json:"duration" yaml:"duration"`
	UploadDate         string `bson:"uploadDate" json:"uploadDate" yaml:"uploadDate"`
	VideoURL           string `bson:"videoUrl" json:"videoUrl" yaml:"videoUrl"`
	AvailableInBatches []int  `bson:"availableInBatches" json:"availableInBatches" yaml:"availableInBatches"`
}

// Note is a PDF reference owned by one subject.
type Note struct {
	ID                 int    `bson:"id" json:"id" yaml:"id"`
	Title              string `bson:"title" json:"title" yaml:"title"`
	Type               string `bson:"type" json:"type" yaml:"type"`
	AddedOn            string `bson:"addedOn" json:"addedOn" yaml:"addedOn"`
	FileName           string `bson:"fileName" json:"fileName" yaml:"fileName"`
	AvailableInBatches []int  `bson:"availableInBatches" json:"availableInBatches" yaml:"availableInBatches"`
}

// DPP is a daily practice paper owned by one subject.
type DPP struct {
	ID                 int    `bson:"id" json:"id" yaml:"id"`
	Title              string `bson:"title" json:"title" yaml:"title"`
	Questions          int    `bson:"questions" json:"questions" yaml:"questions"`
	AddedOn            string `bson:"addedOn" json:"addedOn" yaml:"addedOn"`
	FileName           string `bson:"fileName" json:"fileName" yaml:"fileName"`
	AvailableInBatches []int  `bson:"availableInBatches" json:"availableInBatches" yaml:"availableInBatches"`
}

// ContentItem is implemented by Lecture, Note and DPP.
type ContentItem interface {
	Lecture | Note | DPP
}

// ItemID returns the ID of a content item.
func ItemID[T ContentItem](item T) int {
	switch v := any(item).(type) {
	case Lecture:
		return v.ID
	case Note:
		return v.ID
	case DPP:
		return v.ID
	}
	return 0
}

// LectureLabel returns the display label stored on a lecture for the given
// subject name.
func LectureLabel(subjectName string) string {
	name := strings.TrimSpace(subjectName)
	if name == "" {
		return GeneralSubjectLabel
	}
	return strings.ToUpper(name)
}

// NewLecture carries the caller-supplied fields of a lecture being created.
type NewLecture struct {
	Title              string `json:"title"`
	Duration           string `json:"duration"`
	VideoURL           string `json:"videoUrl"`
	AvailableInBatches []int  `json:"availableInBatches"`
}

// NewNote carries the caller-supplied fields of a note being created.
type NewNote struct {
	Title              string `json:"title"`
	FileName           string `json:"fileName"`
	AvailableInBatches []int  `json:"availableInBatches"`
}

// NewDPP carries the caller-supplied fields of a DPP being created.
type NewDPP struct {
	Title              string `json:"title"`
	Questions          int    `json:"questions"`
	FileName           string `json:"fileName"`
	AvailableInBatches []int  `json:"availableInBatches"`
}

// LecturePatch is a partial update. Nil fields are left unchanged.
type LecturePatch struct {
	Title              *string `json:"title,omitempty"`
	Duration           *string `json:"duration,omitempty"`
	VideoURL           *string `json:"videoUrl,omitempty"`
	AvailableInBatches *[]int  `json:"availableInBatches,omitempty"`
}

// Apply merges the patch into l and returns the result.
func (p LecturePatch) Apply(l Lecture) Lecture {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Duration != nil {
		l.Duration = *p.Duration
	}
	if p.VideoURL != nil {
		l.VideoURL = *p.VideoURL
	}
	if p.AvailableInBatches != nil {
		l.AvailableInBatches = append([]int{}, (*p.AvailableInBatches)...)
	}
	return l
}

// NotePatch is a partial update. Nil fields are left unchanged.
type NotePatch struct {
	Title              *string `json:"title,omitempty"`
	FileName           *string `json:"fileName,omitempty"`
	AvailableInBatches *[]int  `json:"availableInBatches,omitempty"`
}

// Apply merges the patch into n and returns the result.
func (p NotePatch) Apply(n Note) Note {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.FileName != nil {
		n.FileName = *p.FileName
	}
	if p.AvailableInBatches != nil {
		n.AvailableInBatches = append([]int{}, (*p.AvailableInBatches)...)
	}
	return n
}

// DPPPatch is a partial update. Nil fields are left unchanged.
type DPPPatch struct {
	Title              *string `json:"title,omitempty"`
	Questions          *int    `json:"questions,omitempty"`
	FileName           *string `json:"fileName,omitempty"`
	AvailableInBatches *[]int  `json:"availableInBatches,omitempty"`
}

// Apply merges the patch into d and returns the result.
func (p DPPPatch) Apply(d DPP) DPP {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Questions != nil {
		d.Questions = *p.Questions
	}
	if p.FileName != nil {
		d.FileName = *p.FileName
	}
	if p.AvailableInBatches != nil {
		d.AvailableInBatches = append([]int{}, (*p.AvailableInBatches)...)
	}
	return d
}

func cloneContent[T ContentItem](item T) T {
	switch v := any(item).(type) {
	case Lecture:
		v.AvailableInBatches = append([]int{}, v.AvailableInBatches...)
		return any(v).(T)
	case Note:
		v.AvailableInBatches = append([]int{}, v.AvailableInBatches...)
		return any(v).(T)
	case DPP:
		v.AvailableInBatches = append([]int{}, v.AvailableInBatches...)
		return any(v).(T)
	}
	return item
}
