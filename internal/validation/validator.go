// Package validation validates request bodies with go-playground/validator and
// reports failures as domain VALIDATION errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/listenupapp/library-server/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the library's custom tags registered:
//
//	isbn  ISBN-10 or ISBN-13 with a valid check digit (hyphens and spaces ignored)
//	trimmed  no leading or trailing whitespace
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "":
			return fld.Name
		case "-":
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("isbn", func(fl validator.FieldLevel) bool {
		return ValidISBN(fl.Field().String())
	})
	_ = v.RegisterValidation("trimmed", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == strings.TrimSpace(s)
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// formatError converts validator errors to a VALIDATION error whose details
// map each offending field to a message.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	names := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		if _, seen := fieldErrors[e.Field()]; !seen {
			names = append(names, e.Field())
		}
		fieldErrors[e.Field()] = friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails(
		"invalid fields: "+strings.Join(names, ", "), fieldErrors)
}

//nolint:gocyclo // One case per supported tag.
func friendlyMessage(e validator.FieldError) string {
	isString := e.Kind() == reflect.String
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "isbn":
		return "must be a valid ISBN-10 or ISBN-13"
	case "trimmed":
		return "must not start or end with whitespace"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return "must be at least " + e.Param()
	case "max":
		if isString {
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		}
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	case "latitude":
		return "must be between -90 and 90"
	case "longitude":
		return "must be between -180 and 180"
	case "required_with":
		return "is required when " + e.Param() + " is set"
	case "ltefield":
		return "must not exceed " + e.Param()
	default:
		return "is invalid"
	}
}

// ValidISBN reports whether s is an ISBN-10 or ISBN-13 with a correct check
// digit. Hyphens and spaces are ignored.
func ValidISBN(s string) bool {
	digits := make([]byte, 0, 13)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '-' || c == ' ':
		case c >= '0' && c <= '9', (c == 'X' || c == 'x') && len(digits) == 9:
			digits = append(digits, c)
		default:
			return false
		}
	}

	switch len(digits) {
	case 10:
		sum := 0
		for i, c := range digits {
			d := int(c - '0')
			if c == 'X' || c == 'x' {
				d = 10
			}
			sum += (10 - i) * d
		}
		return sum%11 == 0
	case 13:
		sum := 0
		for i, c := range digits {
			if c == 'X' || c == 'x' {
				return false
			}
			d := int(c - '0')
			if i%2 == 1 {
				d *= 3
			}
			sum += d
		}
		return sum%10 == 0
	default:
		return false
	}
}
