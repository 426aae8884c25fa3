package prompt

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/fernandomesquita/stenopro/database"
	apperrors "github.com/fernandomesquita/stenopro/errors"
)

const templateResource = "prompt template"

// Template is a named, reusable custom prompt.
type Template struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;default:1" json:"userId"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	PromptText string    `gorm:"type:text;not null" json:"promptText"`
	IsDefault  bool      `gorm:"not null;default:false" json:"isDefault"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName pins the table name shared with the SQL migrations.
func (Template) TableName() string { return "prompt_templates" }

// TemplateInput creates a template.
type TemplateInput struct {
	Name       string `json:"name" validate:"required,max=255"`
	PromptText string `json:"promptText" validate:"required"`
	IsDefault  bool   `json:"isDefault"`
}

// TemplatePatch updates a template. Nil fields are unchanged.
type TemplatePatch struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=255"`
	PromptText *string `json:"promptText" validate:"omitempty,min=1"`
	IsDefault  *bool   `json:"isDefault"`
}

// TemplateStore persists prompt templates.
type TemplateStore struct {
	db *database.DB
}

// NewTemplateStore creates a store on db.
func NewTemplateStore(db *database.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// List returns all templates.
func (s *TemplateStore) List(ctx context.Context) ([]Template, error) {
	var out []Template
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, database.FromDatabase(err, templateResource)
	}
	return out, nil
}

// Get returns one template.
func (s *TemplateStore) Get(ctx context.Context, id uint) (*Template, error) {
	var t Template
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, templateNotFound(id)
		}
		return nil, database.FromDatabase(err, templateResource)
	}
	return &t, nil
}

// GetDefault returns the default template, or nil when none is marked.
func (s *TemplateStore) GetDefault(ctx context.Context) (*Template, error) {
	var t Template
	err := s.db.WithContext(ctx).Where("is_default = ?", true).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, database.FromDatabase(err, templateResource)
	}
	return &t, nil
}

// Create inserts a template. A default template clears the previous default.
func (s *TemplateStore) Create(ctx context.Context, in TemplateInput) (*Template, error) {
	t := &Template{UserID: 1, Name: in.Name, PromptText: in.PromptText, IsDefault: in.IsDefault}
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if in.IsDefault {
			if err := clearDefault(tx); err != nil {
				return err
			}
		}
		return tx.Create(t).Error
	})
	if err != nil {
		return nil, database.FromDatabase(err, templateResource)
	}
	return t, nil
}

// Update applies p to template id.
func (s *TemplateStore) Update(ctx context.Context, id uint, p TemplatePatch) (*Template, error) {
	var t Template
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&t, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return templateNotFound(id)
			}
			return err
		}
		updates := map[string]interface{}{}
		if p.Name != nil {
			updates["name"] = *p.Name
		}
		if p.PromptText != nil {
			updates["prompt_text"] = *p.PromptText
		}
		if p.IsDefault != nil {
			if *p.IsDefault {
				if err := clearDefault(tx); err != nil {
					return err
				}
			}
			updates["is_default"] = *p.IsDefault
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&Template{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&t, id).Error
	})
	if err != nil {
		return nil, database.FromDatabase(err, templateResource)
	}
	return &t, nil
}

// Delete removes a template. The default template cannot be deleted.
func (s *TemplateStore) Delete(ctx context.Context, id uint) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.IsDefault {
		return apperrors.Conflict("the default prompt template cannot be deleted")
	}
	if err := s.db.WithContext(ctx).Delete(&Template{}, id).Error; err != nil {
		return database.FromDatabase(err, templateResource)
	}
	return nil
}

func clearDefault(tx *gorm.DB) error {
	return tx.Model(&Template{}).Where("is_default = ?", true).Update("is_default", false).Error
}

func templateNotFound(id uint) *apperrors.AppError {
	return apperrors.NotFound(templateResource, strconv.FormatUint(uint64(id), 10))
}
