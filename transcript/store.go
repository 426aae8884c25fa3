package transcript

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fernandomesquita/stenopro/database"
	"github.com/fernandomesquita/stenopro/database/query"
	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/validation"
)

const resource = "transcription"

// Column names accepted in Fields.
const (
	ColStatus                = "status"
	ColProgressMessage       = "progress_message"
	ColProgressPercent       = "progress_percent"
	ColErrorMessage          = "error_message"
	ColRawText               = "raw_text"
	ColCorrectedText         = "corrected_text"
	ColFinalText             = "final_text"
	ColDurationSeconds       = "duration_seconds"
	ColCustomPrompt          = "custom_prompt"
	ColTitle                 = "title"
	ColRoom                  = "room"
	ColProcessingStartedAt   = "processing_started_at"
	ColProcessingCompletedAt = "processing_completed_at"
)

// Fields is a set of column updates applied in one statement.
type Fields map[string]interface{}

// StageFields returns the status, progress message and percent for s.
func StageFields(s Status) Fields {
	p := ProgressOf(s)
	return Fields{ColStatus: s, ColProgressMessage: p.Message, ColProgressPercent: p.Percent}
}

// With merges other into f and returns f.
func (f Fields) With(other Fields) Fields {
	for k, v := range other {
		f[k] = v
	}
	return f
}

// FinalTextIfEmpty sets final_text to text only while it is still empty, so
// human edits survive a later correction.
func FinalTextIfEmpty(text string) clause.Expr {
	return gorm.Expr("COALESCE(NULLIF(final_text, ''), ?)", text)
}

// ListConfig describes the accepted list parameters.
var ListConfig = query.Config{
	SearchFields:      []string{"title", "final_text"},
	AllowedSortFields: []string{"createdAt", "updatedAt", "title"},
	AllowedFilters:    []string{"status", "room"},
	FieldAliases:      map[string]string{"createdAt": "created_at", "updatedAt": "updated_at"},
	DefaultSort:       "createdAt",
	DefaultOrder:      query.OrderDesc,
	MaxSearchLength:   255,
}

// ParseListQuery reads list parameters from a request query string.
func ParseListQuery(q url.Values) (query.Params, error) {
	p, err := query.Parse(q, ListConfig)
	if err != nil {
		return p, err
	}
	names := make([]string, 0, len(Statuses()))
	for _, s := range Statuses() {
		names = append(names, string(s))
	}
	if err := validation.New().
		OneOf("status", p.Filters["status"], names).
		MaxLength("room", p.Filters["room"], 100).
		Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Patch is an editor update. Nil fields are left unchanged; an empty
// CustomPrompt clears it.
type Patch struct {
	Title        *string
	Room         *string
	FinalText    *string
	CustomPrompt *string
}

func (p Patch) fields() Fields {
	f := Fields{}
	if p.Title != nil {
		f[ColTitle] = *p.Title
	}
	if p.Room != nil {
		f[ColRoom] = *p.Room
	}
	if p.FinalText != nil {
		f[ColFinalText] = *p.FinalText
	}
	if p.CustomPrompt != nil {
		if *p.CustomPrompt == "" {
			f[ColCustomPrompt] = nil
		} else {
			f[ColCustomPrompt] = *p.CustomPrompt
		}
	}
	return f
}

// Stats counts transcriptions per status.
type Stats struct {
	Total    int64            `json:"total"`
	ByStatus map[Status]int64 `json:"byStatus"`
}

// Store persists transcriptions.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// NewStore creates a store on db.
func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Create inserts t as version 1. A blank status becomes uploading with its
// progress row.
func (s *Store) Create(ctx context.Context, t *Transcription) error {
	if t.Status == "" {
		t.Status = StatusUploading
	}
	if t.ProgressMessage == "" {
		p := ProgressOf(t.Status)
		t.ProgressMessage, t.ProgressPercent = p.Message, p.Percent
	}
	t.Version = 1
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return database.FromDatabase(err, resource)
	}
	return nil
}

// GetByID loads one transcription.
func (s *Store) GetByID(ctx context.Context, id uint) (*Transcription, error) {
	var t Transcription
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if database.IsNotFoundError(err) {
			return nil, notFound(id)
		}
		return nil, database.FromDatabase(err, resource)
	}
	return &t, nil
}

// Update applies fields only if the row is still at expectedVersion and
// returns the new version. A stale version yields VERSION_CONFLICT, a
// missing row NOT_FOUND.
func (s *Store) Update(ctx context.Context, id uint, expectedVersion int, fields Fields) (int, error) {
	updates := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = s.now()

	res := s.db.WithContext(ctx).Model(&Transcription{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return 0, database.FromDatabase(res.Error, resource)
	}
	if res.RowsAffected == 0 {
		exists, err := s.exists(ctx, id)
		if err != nil {
			return 0, err
		}
		if !exists {
			return 0, notFound(id)
		}
		return 0, apperrors.VersionConflict(resource, idString(id), expectedVersion)
	}
	return expectedVersion + 1, nil
}

// Edit applies an editor patch regardless of version and bumps the version,
// so an in-flight run notices the concurrent write.
func (s *Store) Edit(ctx context.Context, id uint, p Patch) (*Transcription, error) {
	fields := p.fields()
	if len(fields) == 0 {
		return s.GetByID(ctx, id)
	}
	fields["version"] = gorm.Expr("version + 1")
	fields["updated_at"] = s.now()

	res := s.db.WithContext(ctx).Model(&Transcription{}).Where("id = ?", id).Updates(map[string]interface{}(fields))
	if res.Error != nil {
		return nil, database.FromDatabase(res.Error, resource)
	}
	if res.RowsAffected == 0 {
		return nil, notFound(id)
	}
	return s.GetByID(ctx, id)
}

// SetFinalText replaces the editable text.
func (s *Store) SetFinalText(ctx context.Context, id uint, text string) (*Transcription, error) {
	return s.Edit(ctx, id, Patch{FinalText: &text})
}

// List returns one page of transcriptions.
func (s *Store) List(ctx context.Context, p query.Params) (*query.Result[Transcription], error) {
	res, err := query.Find[Transcription](ctx, s.db.GormDB, p, ListConfig)
	if err != nil {
		return nil, database.FromDatabase(err, resource)
	}
	return res, nil
}

// Delete removes a transcription.
func (s *Store) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&Transcription{}, id)
	if res.Error != nil {
		return database.FromDatabase(res.Error, resource)
	}
	if res.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

// Stats counts transcriptions per status. Every status is present.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var rows []struct {
		Status Status
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&Transcription{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, database.FromDatabase(err, resource)
	}

	st := &Stats{ByStatus: make(map[Status]int64, len(progressTable))}
	for _, status := range Statuses() {
		st.ByStatus[status] = 0
	}
	for _, r := range rows {
		st.ByStatus[r.Status] = r.Count
		st.Total += r.Count
	}
	return st, nil
}

func (s *Store) exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Transcription{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, database.FromDatabase(err, resource)
	}
	return n > 0, nil
}

func notFound(id uint) *apperrors.AppError {
	return apperrors.NotFound(resource, idString(id))
}

func idString(id uint) string { return strconv.FormatUint(uint64(id), 10) }
