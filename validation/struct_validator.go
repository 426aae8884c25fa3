package validation

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/fernandomesquita/stenopro/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Use json tag names for field names in error messages
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		// notblank rejects strings made only of whitespace; nil pointers pass
		// so optional fields can use it.
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			f := fl.Field()
			if f.Kind() == reflect.Ptr {
				if f.IsNil() {
					return true
				}
				f = f.Elem()
			}
			return f.Kind() != reflect.String || strings.TrimSpace(f.String()) != ""
		})
		// maxrunes is max for text measured in characters rather than bytes.
		_ = validate.RegisterValidation("maxrunes", func(fl validator.FieldLevel) bool {
			f := fl.Field()
			if f.Kind() == reflect.Ptr {
				if f.IsNil() {
					return true
				}
				f = f.Elem()
			}
			limit, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return utf8.RuneCountInString(f.String()) <= limit
		})
	})
	return validate
}

// Validate validates a struct using struct tags, for example
// `validate:"notblank,maxrunes=255"`. Failures are INVALID_INPUT app errors
// listing every offending field by its JSON name.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   e.Field(),
			Message: formatValidationError(e),
		})
	}
	return fieldsError(fieldErrors)
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "max", "maxrunes":
		return "must be " + e.Param() + " characters or less"
	case "gt":
		return "must be greater than " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "dive":
		return "has an invalid item"
	default:
		return "is invalid"
	}
}
