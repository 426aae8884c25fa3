package prompt

import (
	"context"
	"testing"

	"github.com/fernandomesquita/stenopro/database/testutil"
	apperrors "github.com/fernandomesquita/stenopro/errors"
)

func TestSystemStore_ActiveVersion(t *testing.T) {
	ctx := context.Background()
	s := NewSystemStore(testutil.Open(t, &SystemPrompt{}))

	if p, err := s.GetActive(ctx); err != nil || p != nil {
		t.Fatalf("empty store GetActive = %v, %v", p, err)
	}
	if c, err := s.ActiveContent(ctx); err != nil || c != "" {
		t.Fatalf("empty store ActiveContent = %q, %v", c, err)
	}

	v1, err := s.Create(ctx, NewSystemPrompt{Version: 1, Content: "v1", IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, NewSystemPrompt{Version: 2, Content: "v2", IsActive: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, NewSystemPrompt{Version: 3, Content: "v3"}); err != nil {
		t.Fatal(err)
	}

	active, _ := s.GetActive(ctx)
	if active == nil || active.Version != 2 {
		t.Fatalf("active = %+v, want version 2", active)
	}

	if _, err := s.Activate(ctx, v1.ID); err != nil {
		t.Fatal(err)
	}
	content, _ := s.ActiveContent(ctx)
	if content != "v1" {
		t.Errorf("active content = %q, want v1", content)
	}

	all, _ := s.List(ctx)
	activeCount := 0
	for _, p := range all {
		if p.IsActive {
			activeCount++
		}
	}
	if len(all) != 3 || all[0].Version != 3 || activeCount != 1 {
		t.Errorf("list = %+v", all)
	}
}

func TestSystemStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewSystemStore(testutil.Open(t, &SystemPrompt{}))
	if _, err := s.Create(ctx, NewSystemPrompt{Version: 1, Content: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, NewSystemPrompt{Version: 1, Content: "b"}); !apperrors.HasCode(err, apperrors.ErrCodeAlreadyExists) {
		t.Errorf("duplicate version should be ALREADY_EXISTS, got %v", err)
	}
	if _, err := s.Activate(ctx, 99); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("missing prompt should be NOT_FOUND, got %v", err)
	}
}

func TestTemplateStore(t *testing.T) {
	ctx := context.Background()
	s := NewTemplateStore(testutil.Open(t, &Template{}))

	if d, err := s.GetDefault(ctx); err != nil || d != nil {
		t.Fatalf("GetDefault on empty store = %v, %v", d, err)
	}

	a, err := s.Create(ctx, TemplateInput{Name: "Plenário", PromptText: "Mantenha as falas", IsDefault: true})
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Create(ctx, TemplateInput{Name: "Comissão", PromptText: "Identifique os oradores", IsDefault: true})
	if err != nil {
		t.Fatal(err)
	}

	d, _ := s.GetDefault(ctx)
	if d == nil || d.ID != b.ID {
		t.Fatalf("default = %+v, want %d", d, b.ID)
	}

	name := "Plenário (revisado)"
	makeDefault := true
	updated, err := s.Update(ctx, a.ID, TemplatePatch{Name: &name, IsDefault: &makeDefault})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != name || !updated.IsDefault {
		t.Errorf("update = %+v", updated)
	}

	if err := s.Delete(ctx, a.ID); !apperrors.HasCode(err, apperrors.ErrCodeConflict) {
		t.Errorf("deleting the default should conflict, got %v", err)
	}
	if err := s.Delete(ctx, b.ID); err != nil {
		t.Errorf("delete non-default: %v", err)
	}
	if _, err := s.Get(ctx, b.ID); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND after delete, got %v", err)
	}
	if _, err := s.Update(ctx, 99, TemplatePatch{Name: &name}); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("update missing should be NOT_FOUND, got %v", err)
	}

	list, _ := s.List(ctx)
	if len(list) != 1 {
		t.Errorf("list = %+v", list)
	}
}
