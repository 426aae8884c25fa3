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

// SystemPrompt is one version of the correction system prompt.
type SystemPrompt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Version   int       `gorm:"not null;uniqueIndex" json:"version"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsActive  bool      `gorm:"not null;default:false" json:"isActive"`
	CreatedBy uint      `gorm:"not null;default:1" json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName pins the table name shared with the SQL migrations.
func (SystemPrompt) TableName() string { return "system_prompts" }

// NewSystemPrompt is the input to SystemStore.Create.
type NewSystemPrompt struct {
	Version  int    `json:"version" validate:"required,gt=0"`
	Content  string `json:"content" validate:"required"`
	IsActive bool   `json:"isActive"`
}

// SystemStore persists system prompts.
type SystemStore struct {
	db *database.DB
}

// NewSystemStore creates a store on db.
func NewSystemStore(db *database.DB) *SystemStore {
	return &SystemStore{db: db}
}

// GetActive returns the highest active version, or nil when none is active.
func (s *SystemStore) GetActive(ctx context.Context) (*SystemPrompt, error) {
	var p SystemPrompt
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("version DESC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, database.FromDatabase(err, "system prompt")
	}
	return &p, nil
}

// ActiveContent returns the active prompt text, empty when none is active.
func (s *SystemStore) ActiveContent(ctx context.Context) (string, error) {
	p, err := s.GetActive(ctx)
	if err != nil || p == nil {
		return "", err
	}
	return p.Content, nil
}

// List returns every version, newest first.
func (s *SystemStore) List(ctx context.Context) ([]SystemPrompt, error) {
	var out []SystemPrompt
	if err := s.db.WithContext(ctx).Order("version DESC").Find(&out).Error; err != nil {
		return nil, database.FromDatabase(err, "system prompt")
	}
	return out, nil
}

// Create inserts a version. An active version deactivates all others.
func (s *SystemStore) Create(ctx context.Context, in NewSystemPrompt) (*SystemPrompt, error) {
	p := &SystemPrompt{Version: in.Version, Content: in.Content, IsActive: in.IsActive, CreatedBy: 1}
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&SystemPrompt{}).Where("version = ?", in.Version).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperrors.AlreadyExists("system prompt").WithDetail("version", in.Version)
		}
		if in.IsActive {
			if err := deactivateAll(tx); err != nil {
				return err
			}
		}
		return tx.Create(p).Error
	})
	if err != nil {
		return nil, database.FromDatabase(err, "system prompt")
	}
	return p, nil
}

// Activate makes id the only active version.
func (s *SystemStore) Activate(ctx context.Context, id uint) (*SystemPrompt, error) {
	var p SystemPrompt
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("system prompt", strconv.FormatUint(uint64(id), 10))
			}
			return err
		}
		if err := deactivateAll(tx); err != nil {
			return err
		}
		p.IsActive = true
		return tx.Model(&SystemPrompt{}).Where("id = ?", id).Update("is_active", true).Error
	})
	if err != nil {
		return nil, database.FromDatabase(err, "system prompt")
	}
	return &p, nil
}

func deactivateAll(tx *gorm.DB) error {
	return tx.Model(&SystemPrompt{}).Where("is_active = ?", true).Update("is_active", false).Error
}
