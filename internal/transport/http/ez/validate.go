package ez

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"caseworker-tasks/internal/apperr"
)

// Normalizer is called on bound input before validation, e.g. to trim.
type Normalizer interface{ Normalize() }

// Checker runs after tag validation for rules tags cannot express.
// It returns field errors, not a plain error.
type Checker interface {
	Check() []apperr.FieldError
}

const msgValidationFailed = "Validation failed"

var (
	once sync.Once
	v    *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return StrongPassword(fl.Field().String())
		})
		_ = v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
			_, err := ParseTime(fl.Field().String())
			return err == nil
		})
	})
	return v
}

// StrongPassword requires a lower-case letter, an upper-case letter and a
// digit. Length is checked separately.
func StrongPassword(s string) bool {
	var lower, upper, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime accepts the ISO 8601 forms clients actually send: a full
// timestamp with or without a zone, or a bare date (read as UTC midnight).
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO 8601 date: %q", s)
}

// Validate normalizes in, checks its tags, then its Check hook. Failures
// come back as one apperr validation error listing every bad field.
func Validate(in any) error {
	if n, ok := in.(Normalizer); ok {
		n.Normalize()
	}
	var details []apperr.FieldError
	if err := engine().Struct(in); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return apperr.Internal("validation error", err)
		}
		for _, fe := range ves {
			details = append(details, apperr.FieldError{Field: fe.Field(), Message: fieldMessage(in, fe)})
		}
	}
	if c, ok := in.(Checker); ok && len(details) == 0 {
		details = append(details, c.Check()...)
	}
	if len(details) > 0 {
		return apperr.Validation(msgValidationFailed, details...)
	}
	return nil
}

// fieldMessage looks for a msg_<rule> tag on the struct field, then a msg
// tag, then falls back to a generic text for the failed rule.
func fieldMessage(in any, fe validator.FieldError) string {
	t := reflect.TypeOf(in)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if m := f.Tag.Get("msg_" + fe.Tag()); m != "" {
				return m
			}
			if m := f.Tag.Get("msg"); m != "" {
				return m
			}
		}
	}
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Please provide a valid email address"
	case "oneof":
		return fe.Field() + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min", "max", "len":
		return fmt.Sprintf("%s fails the %s=%s rule", fe.Field(), fe.Tag(), fe.Param())
	case "iso8601":
		return fe.Field() + " must be a valid ISO 8601 date"
	}
	return fe.Field() + " is invalid"
}
