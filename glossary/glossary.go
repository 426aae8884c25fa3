// Package glossary stores the proper names and terms handed to the
// correction provider. Entries are either global or scoped to one
// transcription.
package glossary

import (
	"context"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/fernandomesquita/stenopro/database"
	apperrors "github.com/fernandomesquita/stenopro/errors"
)

const resource = "glossary entry"

// Entry is one glossary term.
type Entry struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TranscriptionID *uint     `gorm:"index" json:"transcriptionId"`
	Name            string    `gorm:"size:255;not null" json:"name"`
	Info            string    `gorm:"size:255;not null;default:''" json:"info"`
	IsGlobal        bool      `gorm:"not null;default:false" json:"isGlobal"`
	CreatedAt       time.Time `json:"createdAt"`
}

// TableName pins the table name shared with the SQL migrations.
func (Entry) TableName() string { return "glossaries" }

// Scope places an entry: global, or attached to a transcription.
type Scope struct {
	TranscriptionID *uint
	Global          bool
}

// Global is the scope shared by every transcription.
func Global() Scope { return Scope{Global: true} }

// For is the scope of a single transcription.
func For(transcriptionID uint) Scope { return Scope{TranscriptionID: &transcriptionID} }

func (s Scope) validate() error {
	if !s.Global && s.TranscriptionID == nil {
		return apperrors.InvalidInput("transcriptionId", "a non-global entry must belong to a transcription")
	}
	return nil
}

// Filter selects entries for listing. GlobalOnly wins over TranscriptionID;
// a TranscriptionID lists that transcription's entries plus the globals.
type Filter struct {
	TranscriptionID *uint
	GlobalOnly      bool
}

// Term is a name and optional info to import.
type Term struct {
	Name string `json:"name" validate:"required,max=255"`
	Info string `json:"info" validate:"max=255"`
}

// ImportResult counts the outcome of Import.
type ImportResult struct {
	Imported int     `json:"imported"`
	Skipped  int     `json:"skipped"`
	Entries  []Entry `json:"entries"`
}

// Store persists glossary entries.
type Store struct {
	db *database.DB
}

// NewStore creates a store on db.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// List returns entries ordered by name.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	q := s.db.WithContext(ctx).Model(&Entry{})
	switch {
	case f.GlobalOnly:
		q = q.Where("is_global = ?", true)
	case f.TranscriptionID != nil:
		q = q.Where("transcription_id = ? OR is_global = ?", *f.TranscriptionID, true)
	}
	var entries []Entry
	if err := q.Order("name").Find(&entries).Error; err != nil {
		return nil, database.FromDatabase(err, resource)
	}
	return entries, nil
}

// EntriesFor returns the global entries plus those scoped to transcriptionID.
func (s *Store) EntriesFor(ctx context.Context, transcriptionID uint) ([]Entry, error) {
	return s.List(ctx, Filter{TranscriptionID: &transcriptionID})
}

// Create inserts a term into scope. A name already present in the same scope
// (case-insensitive) is ALREADY_EXISTS.
func (s *Store) Create(ctx context.Context, t Term, scope Scope) (*Entry, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	var created *Entry
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		dup, err := exists(tx, t.Name, scope)
		if err != nil {
			return err
		}
		if dup {
			return apperrors.AlreadyExists(resource).WithDetail("name", t.Name)
		}
		created, err = insert(tx, t, scope)
		return err
	})
	if err != nil {
		return nil, database.FromDatabase(err, resource)
	}
	return created, nil
}

// Import inserts terms into scope in one transaction, skipping names that
// already exist there or repeat within terms.
func (s *Store) Import(ctx context.Context, terms []Term, scope Scope) (*ImportResult, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, apperrors.InvalidInput("terms", "must not be empty")
	}
	res := &ImportResult{}
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		seen := make(map[string]bool, len(terms))
		for _, t := range terms {
			key := strings.ToLower(strings.TrimSpace(t.Name))
			if key == "" || seen[key] {
				res.Skipped++
				continue
			}
			seen[key] = true
			dup, err := exists(tx, t.Name, scope)
			if err != nil {
				return err
			}
			if dup {
				res.Skipped++
				continue
			}
			e, err := insert(tx, t, scope)
			if err != nil {
				return err
			}
			res.Imported++
			res.Entries = append(res.Entries, *e)
		}
		return nil
	})
	if err != nil {
		return nil, database.FromDatabase(err, resource)
	}
	return res, nil
}

// Delete removes one entry.
func (s *Store) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&Entry{}, id)
	if res.Error != nil {
		return database.FromDatabase(res.Error, resource)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(resource, strconv.FormatUint(uint64(id), 10))
	}
	return nil
}

// DeleteScoped removes the entries attached to a transcription.
func (s *Store) DeleteScoped(ctx context.Context, transcriptionID uint) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("transcription_id = ? AND is_global = ?", transcriptionID, false).
		Delete(&Entry{})
	if res.Error != nil {
		return 0, database.FromDatabase(res.Error, resource)
	}
	return res.RowsAffected, nil
}

func exists(tx *gorm.DB, name string, scope Scope) (bool, error) {
	q := tx.Model(&Entry{}).Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name))
	if scope.Global {
		q = q.Where("is_global = ?", true)
	} else {
		q = q.Where("transcription_id = ?", *scope.TranscriptionID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func insert(tx *gorm.DB, t Term, scope Scope) (*Entry, error) {
	e := &Entry{
		Name:            strings.TrimSpace(t.Name),
		Info:            strings.TrimSpace(t.Info),
		TranscriptionID: scope.TranscriptionID,
		IsGlobal:        scope.Global,
	}
	if err := tx.Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}
