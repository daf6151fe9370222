package inputval

import "testing"

func TestIsValidHTTPURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		// Valid URLs
		{"http://example.com", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"http://localhost:8080", true},

		// Valid with whitespace (trimmed)
		{"  https://example.com  ", true},

		// Invalid URLs
		{"", false},
		{"   ", false},
		{"ftp://example.com", false},
		{"example.com", false},
		{"//example.com", false},
		{"not a url", false},
		{"file:///path/to/file", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsValidHTTPURL(tt.url); got != tt.want {
				t.Errorf("IsValidHTTPURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsPDFFileName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"notes.pdf", true},
		{"NOTES.PDF", true},
		{" quad-practice-1.pdf ", true},
		{".pdf", false},
		{"notes.docx", false},
		{"notes.pdf.exe", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPDFFileName(tt.name); got != tt.want {
				t.Errorf("IsPDFFileName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

type sampleForm struct {
	Name     string   `json:"name" validate:"notblank"`
	Class    int      `json:"class" validate:"min=6,max=12"`
	Category string   `json:"category" validate:"subjectcategory"`
	Video    string   `json:"videoUrl" validate:"httpurl"`
	File     string   `json:"fileName" validate:"pdf"`
	Teachers []string `json:"teachers" validate:"teachers"`
	Status   string   `json:"status" validate:"omitempty,oneof=active inactive"`
}

func TestValidate_Valid(t *testing.T) {
	res := Validate(sampleForm{
		Name:     "Test",
		Class:    9,
		Category: "chemistry",
		Video:    "https://example.com/v",
		File:     "a.pdf",
		Teachers: []string{"", "AB"},
	})
	if res.HasErrors() {
		t.Fatalf("expected no errors, got %+v", res.Errors)
	}
	if res.First() != "" {
		t.Errorf("First on empty result: got %q", res.First())
	}
}

func TestValidate_ReportsJSONNamesAndMessages(t *testing.T) {
	res := Validate(&sampleForm{
		Name:     "   ",
		Class:    13,
		Category: "alchemy",
		Video:    "nope",
		File:     "a.doc",
		Teachers: []string{" "},
		Status:   "paused",
	})
	fields := firstMessages(res)

	want := map[string]string{
		"name":     "name cannot be blank",
		"category": "category must be a known subject category",
		"videoUrl": "videoUrl must be an http or https URL",
		"fileName": "fileName must be a PDF file",
		"teachers": "teachers must list at least one teacher",
	}
	for field, msg := range want {
		if fields[field] != msg {
			t.Errorf("%s: got %q, want %q", field, fields[field], msg)
		}
	}
	if fields["class"] == "" {
		t.Error("expected class error")
	}
	if fields["status"] == "" {
		t.Error("expected status error")
	}
	if len(res.Errors) != 7 {
		t.Errorf("expected 7 errors, got %d", len(res.Errors))
	}
	if res.First() != "name cannot be blank" {
		t.Errorf("First: got %q", res.First())
	}
}

func TestResultAdd(t *testing.T) {
	var res Result
	res.Add("discountPrice", "discountPrice must not exceed originalPrice")
	res.Add("discountPrice", "second")
	if !res.HasErrors() {
		t.Fatal("expected errors")
	}
	if got := res.First(); got != "discountPrice must not exceed originalPrice" {
		t.Errorf("First keeps the earliest message, got %q", got)
	}
	if len(res.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d", len(res.Errors))
	}
}

// firstMessages maps each field to its first message.
func firstMessages(res Result) map[string]string {
	out := make(map[string]string, len(res.Errors))
	for _, e := range res.Errors {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}
