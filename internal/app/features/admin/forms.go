// internal/app/features/admin/forms.go
package admin

import (
	"github.com/dalemusser/eduverse/internal/app/system/htmlsanitize"
	"github.com/dalemusser/eduverse/internal/domain/models"
)

// Request bodies. Validation tags carry the admin form rules; free text is
// stripped of markup before it reaches the mutation service.

type batchForm struct {
	Name          string   `json:"name" validate:"notblank,max=120"`
	Class         int      `json:"class" validate:"min=6,max=12"`
	OriginalPrice float64  `json:"originalPrice" validate:"gte=0"`
	DiscountPrice float64  `json:"discountPrice" validate:"gte=0"`
	Teachers      []string `json:"teachers" validate:"teachers"`
}

func (f batchForm) toModel() models.NewBatch {
	return models.NewBatch{
		Name:          htmlsanitize.Text(f.Name),
		Class:         f.Class,
		OriginalPrice: f.OriginalPrice,
		DiscountPrice: f.DiscountPrice,
		Teachers:      htmlsanitize.Texts(f.Teachers),
	}
}

type batchPatchForm struct {
	Name          *string   `json:"name" validate:"omitempty,notblank,max=120"`
	Class         *int      `json:"class" validate:"omitempty,min=6,max=12"`
	OriginalPrice *float64  `json:"originalPrice" validate:"omitempty,gte=0"`
	DiscountPrice *float64  `json:"discountPrice" validate:"omitempty,gte=0"`
	CurrentPrice  *float64  `json:"currentPrice" validate:"omitempty,gte=0"`
	Teachers      *[]string `json:"teachers" validate:"omitempty,teachers"`
	Students      *int      `json:"students" validate:"omitempty,gte=0"`
	Status        *string   `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (f batchPatchForm) toModel() models.BatchPatch {
	p := models.BatchPatch{
		Class:         f.Class,
		OriginalPrice: f.OriginalPrice,
		DiscountPrice: f.DiscountPrice,
		CurrentPrice:  f.CurrentPrice,
		Students:      f.Students,
		Status:        f.Status,
	}
	p.Name = sanitized(f.Name)
	if f.Teachers != nil {
		t := htmlsanitize.Texts(*f.Teachers)
		p.Teachers = &t
	}
	return p
}

type subjectForm struct {
	Name    string `json:"name" validate:"notblank,max=120"`
	Icon    string `json:"icon" validate:"notblank,max=16"`
	Class   string `json:"class" validate:"subjectcategory"`
	Batches []int  `json:"batchIds"`
}

func (f subjectForm) toModel() models.NewSubject {
	return models.NewSubject{
		Name:     htmlsanitize.Text(f.Name),
		Icon:     f.Icon,
		Class:    f.Class,
		BatchIDs: f.Batches,
	}
}

type subjectPatchForm struct {
	Name   *string `json:"name" validate:"omitempty,notblank,max=120"`
	Icon   *string `json:"icon" validate:"omitempty,notblank,max=16"`
	Class  *string `json:"class" validate:"omitempty,subjectcategory"`
	Topics *int    `json:"topics" validate:"omitempty,gte=0"`
	// Batches, when present, becomes the exact set of batches carrying the
	// subject.
	Batches *[]int `json:"batchIds"`
}

func (f subjectPatchForm) toModel() models.SubjectPatch {
	return models.SubjectPatch{
		Name:   sanitized(f.Name),
		Icon:   f.Icon,
		Class:  f.Class,
		Topics: f.Topics,
	}
}

type batchIDsForm struct {
	BatchIDs []int `json:"batchIds"`
}

type lectureForm struct {
	Title              string `json:"title" validate:"notblank,max=200"`
	Duration           string `json:"duration" validate:"notblank,max=40"`
	VideoURL           string `json:"videoUrl" validate:"httpurl"`
	AvailableInBatches []int  `json:"availableInBatches" validate:"min=1"`
}

func (f lectureForm) toModel() models.NewLecture {
	return models.NewLecture{
		Title:              htmlsanitize.Text(f.Title),
		Duration:           htmlsanitize.Text(f.Duration),
		VideoURL:           f.VideoURL,
		AvailableInBatches: f.AvailableInBatches,
	}
}

type lecturePatchForm struct {
	Title              *string `json:"title" validate:"omitempty,notblank,max=200"`
	Duration           *string `json:"duration" validate:"omitempty,notblank,max=40"`
	VideoURL           *string `json:"videoUrl" validate:"omitempty,httpurl"`
	AvailableInBatches *[]int  `json:"availableInBatches" validate:"omitempty,min=1"`
}

func (f lecturePatchForm) toModel() models.LecturePatch {
	return models.LecturePatch{
		Title:              sanitized(f.Title),
		Duration:           sanitized(f.Duration),
		VideoURL:           f.VideoURL,
		AvailableInBatches: f.AvailableInBatches,
	}
}

// File size is declared by the client; no file is transferred.
type noteForm struct {
	Title              string `json:"title" validate:"notblank,max=200"`
	FileName           string `json:"fileName" validate:"pdf"`
	FileSize           int64  `json:"fileSize" validate:"gte=0,lte=10485760"`
	AvailableInBatches []int  `json:"availableInBatches" validate:"min=1"`
}

func (f noteForm) toModel() models.NewNote {
	return models.NewNote{
		Title:              htmlsanitize.Text(f.Title),
		FileName:           f.FileName,
		AvailableInBatches: f.AvailableInBatches,
	}
}

type notePatchForm struct {
	Title              *string `json:"title" validate:"omitempty,notblank,max=200"`
	FileName           *string `json:"fileName" validate:"omitempty,pdf"`
	FileSize           *int64  `json:"fileSize" validate:"omitempty,gte=0,lte=10485760"`
	AvailableInBatches *[]int  `json:"availableInBatches" validate:"omitempty,min=1"`
}

func (f notePatchForm) toModel() models.NotePatch {
	return models.NotePatch{
		Title:              sanitized(f.Title),
		FileName:           f.FileName,
		AvailableInBatches: f.AvailableInBatches,
	}
}

type dppForm struct {
	Title              string `json:"title" validate:"notblank,max=200"`
	Questions          int    `json:"questions" validate:"min=1"`
	FileName           string `json:"fileName" validate:"pdf"`
	FileSize           int64  `json:"fileSize" validate:"gte=0,lte=15728640"`
	AvailableInBatches []int  `json:"availableInBatches" validate:"min=1"`
}

func (f dppForm) toModel() models.NewDPP {
	return models.NewDPP{
		Title:              htmlsanitize.Text(f.Title),
		Questions:          f.Questions,
		FileName:           f.FileName,
		AvailableInBatches: f.AvailableInBatches,
	}
}

type dppPatchForm struct {
	Title              *string `json:"title" validate:"omitempty,notblank,max=200"`
	Questions          *int    `json:"questions" validate:"omitempty,min=1"`
	FileName           *string `json:"fileName" validate:"omitempty,pdf"`
	FileSize           *int64  `json:"fileSize" validate:"omitempty,gte=0,lte=15728640"`
	AvailableInBatches *[]int  `json:"availableInBatches" validate:"omitempty,min=1"`
}

func (f dppPatchForm) toModel() models.DPPPatch {
	return models.DPPPatch{
		Title:              sanitized(f.Title),
		Questions:          f.Questions,
		FileName:           f.FileName,
		AvailableInBatches: f.AvailableInBatches,
	}
}

func sanitized(s *string) *string {
	if s == nil {
		return nil
	}
	v := htmlsanitize.Text(*s)
	return &v
}
