package validation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fernandomesquita/stenopro/errors"
)

// FieldError names one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates field errors from chained checks for inputs that
// are not bound to a tagged struct, such as multipart forms and query
// strings.
//
//	err := validation.New().
//		Required("title", title).
//		MaxLength("title", title, 255).
//		Validate()
type Validator struct {
	fields []FieldError
}

func New() *Validator { return &Validator{} }

// check records message against field unless ok.
func (v *Validator) check(ok bool, field, message string) *Validator {
	if !ok {
		v.fields = append(v.fields, FieldError{Field: field, Message: message})
	}
	return v
}

// AddError records a failed field unconditionally.
func (v *Validator) AddError(field, message string) {
	v.check(false, field, message)
}

func (v *Validator) HasErrors() bool { return len(v.fields) > 0 }

func (v *Validator) Errors() []FieldError { return slices.Clone(v.fields) }

// Validate returns nil when every check passed, otherwise one INVALID_INPUT
// error listing the failed fields in order.
func (v *Validator) Validate() *errors.AppError {
	if len(v.fields) == 0 {
		return nil
	}
	return fieldsError(v.fields)
}

func fieldsError(fields []FieldError) *errors.AppError {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail("fields", fields)
}

// Required rejects blank strings.
func (v *Validator) Required(field, value string) *Validator {
	return v.check(strings.TrimSpace(value) != "", field, "is required")
}

// MaxLength limits value to maxLen characters, counted in runes.
func (v *Validator) MaxLength(field, value string, maxLen int) *Validator {
	return v.check(utf8.RuneCountInString(value) <= maxLen, field,
		fmt.Sprintf("must be %d characters or less", maxLen))
}

// OneOf accepts an empty value or any of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	return v.check(value == "" || slices.Contains(allowed, value), field,
		"must be one of: "+strings.Join(allowed, ", "))
}

// Custom records message against field unless condition holds.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	return v.check(condition, field, message)
}

// ParseID parses a positive integer identifier such as a path parameter.
func ParseID(field, value string) (uint, error) {
	value = strings.TrimSpace(value)
	msg := " must be a positive integer"
	if value == "" {
		msg = " is required"
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil || n == 0 {
		return 0, errors.Validation(field+msg).WithDetail("field", field)
	}
	return uint(n), nil
}

// ParseOptionalID is ParseID for optional values. Blank yields nil.
func ParseOptionalID(field, value string) (*uint, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	id, err := ParseID(field, value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
