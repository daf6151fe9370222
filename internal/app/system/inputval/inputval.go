// internal/app/system/inputval/inputval.go
//
// Package inputval validates request payloads with struct tags and reports
// failures as English messages keyed by JSON field name.
//
// Besides the stock validator tags it registers:
//
//	notblank         string is non-empty after trimming
//	httpurl          absolute http or https URL
//	pdf              file name ending in .pdf (any case)
//	subjectcategory  one of models.SubjectCategories
//	teachers         at least one entry that is non-empty after trimming
package inputval

import (
	"errors"
	"net/url"
	"reflect"
	"strings"

	"github.com/dalemusser/eduverse/internal/domain/models"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

var customMessages = map[string]string{
	"notblank":        "{0} cannot be blank",
	"httpurl":         "{0} must be an http or https URL",
	"pdf":             "{0} must be a PDF file",
	"subjectcategory": "{0} must be a known subject category",
	"teachers":        "{0} must list at least one teacher",
}

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return IsValidHTTPURL(fl.Field().String())
	})
	_ = validate.RegisterValidation("pdf", func(fl validator.FieldLevel) bool {
		return IsPDFFileName(fl.Field().String())
	})
	_ = validate.RegisterValidation("subjectcategory", func(fl validator.FieldLevel) bool {
		return models.IsSubjectCategory(fl.Field().String())
	})
	_ = validate.RegisterValidation("teachers", func(fl validator.FieldLevel) bool {
		teachers, ok := fl.Field().Interface().([]string)
		if !ok {
			return false
		}
		for _, t := range teachers {
			if strings.TrimSpace(t) != "" {
				return true
			}
		}
		return false
	})

	for tag, msg := range customMessages {
		msg := msg
		_ = validate.RegisterTranslation(tag, translator,
			func(t ut.Translator) error { return t.Add(tag, msg, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				s, _ := t.T(fe.Tag(), fe.Field())
				return s
			})
	}
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result holds every failed rule of one validation, in struct order.
type Result struct {
	Errors []FieldError `json:"errors"`
}

// HasErrors reports whether any rule failed.
func (r Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// Add appends a failure for rules that cannot be expressed as tags.
func (r *Result) Add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}

// Validate checks v (a struct or pointer to struct) against its validate tags.
func Validate(v any) Result {
	var res Result
	err := validate.Struct(v)
	if err == nil {
		return res
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Add("", err.Error())
		return res
	}
	for _, fe := range verrs {
		res.Add(fe.Field(), fe.Translate(translator))
	}
	return res
}

// IsValidHTTPURL reports whether s, trimmed, is an absolute http(s) URL with
// a host.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsPDFFileName reports whether name has a base name and a .pdf extension.
func IsPDFFileName(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	return len(name) > len(".pdf") && strings.HasSuffix(name, ".pdf")
}
