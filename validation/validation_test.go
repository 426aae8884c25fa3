package validation

import (
	"strings"
	"testing"

	"github.com/fernandomesquita/stenopro/errors"
)

func TestValidatorRequired(t *testing.T) {
	if New().Required("title", "Sessão").HasErrors() {
		t.Error("expected no errors for valid input")
	}
	if !New().Required("title", "").HasErrors() {
		t.Error("expected error for empty required field")
	}
	if !New().Required("title", "   ").HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorMaxLengthCountsRunes(t *testing.T) {
	// 5 characters, 7 bytes
	if New().MaxLength("room", "Sessã", 5).HasErrors() {
		t.Error("accented text should be measured in characters")
	}
	if !New().MaxLength("room", "Sessão", 5).HasErrors() {
		t.Error("expected error above the limit")
	}
}

func TestValidatorOneOf(t *testing.T) {
	allowed := []string{"asc", "desc"}
	if New().OneOf("order", "", allowed).HasErrors() {
		t.Error("empty value is optional")
	}
	if !New().OneOf("order", "up", allowed).HasErrors() {
		t.Error("expected error for value outside the set")
	}
}

func TestValidatorValidate(t *testing.T) {
	v := New().Required("title", "").MaxLength("room", strings.Repeat("x", 101), 100).Custom(false, "audio", "is required")
	appErr := v.Validate()
	if appErr == nil {
		t.Fatal("expected error")
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("code = %s", appErr.Code)
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 3 {
		t.Fatalf("details = %#v", appErr.Details)
	}
	if fields[0].Field != "title" || fields[2].Field != "audio" {
		t.Errorf("fields = %+v", fields)
	}
	if New().Validate() != nil {
		t.Error("empty validator should pass")
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("id", "42")
	if err != nil || id != 42 {
		t.Fatalf("ParseID = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-1", "abc", "1.5"} {
		if _, err := ParseID("id", bad); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
			t.Errorf("ParseID(%q) = %v, want INVALID_INPUT", bad, err)
		}
	}

	opt, err := ParseOptionalID("transcriptionId", "")
	if err != nil || opt != nil {
		t.Errorf("ParseOptionalID(empty) = %v, %v", opt, err)
	}
	opt, err = ParseOptionalID("transcriptionId", "7")
	if err != nil || opt == nil || *opt != 7 {
		t.Errorf("ParseOptionalID(7) = %v, %v", opt, err)
	}
}

type termInput struct {
	Name  string  `json:"name" validate:"notblank,maxrunes=255"`
	Info  string  `json:"info" validate:"notblank"`
	Title *string `json:"title" validate:"omitempty,notblank,maxrunes=5"`
}

func TestStructValidateValid(t *testing.T) {
	title := "Ação"
	if err := Validate(termInput{Name: "Arthur Lira", Info: "Deputado", Title: &title}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := Validate(termInput{Name: "Arthur Lira", Info: "Deputado"}); err != nil {
		t.Errorf("nil optional field should pass, got %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	title := "Sessão plenária"
	err := Validate(termInput{Name: "  ", Info: "", Title: &title})
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("code = %s", appErr.Code)
	}
	for _, field := range []string{"name is required", "info is required", "title must be 5 characters or less"} {
		if !strings.Contains(appErr.Message, field) {
			t.Errorf("message %q missing %q", appErr.Message, field)
		}
	}
}
