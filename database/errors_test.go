package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/logger"
)

type uniqueWidget struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex"`
}

func TestFromDatabase(t *testing.T) {
	if FromDatabase(nil, "x") != nil {
		t.Error("nil error should map to nil")
	}

	nf := FromDatabase(fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), "transcription")
	if nf.Code != apperrors.ErrCodeNotFound {
		t.Errorf("not found mapped to %s", nf.Code)
	}

	dup := FromDatabase(gorm.ErrDuplicatedKey, "glossary entry")
	if dup.Code != apperrors.ErrCodeAlreadyExists {
		t.Errorf("duplicate mapped to %s", dup.Code)
	}

	conn := FromDatabase(errors.New("dial tcp: connection refused"), "transcription")
	if conn.Code != apperrors.ErrCodeDatabaseError || !conn.Retryable {
		t.Errorf("connection error mapped to %+v", conn)
	}

	conflict := apperrors.VersionConflict("transcription", "7", 2)
	if FromDatabase(conflict, "transcription") != conflict {
		t.Error("AppError should pass through")
	}

	generic := FromDatabase(errors.New("syntax error"), "transcription")
	if generic.Code != apperrors.ErrCodeDatabaseError {
		t.Errorf("generic mapped to %s", generic.Code)
	}
}

func TestFromDatabase_TranslatedSQLiteDuplicate(t *testing.T) {
	ctx := context.Background()
	db, err := New(ctx, memoryConfig("dup"), logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.AutoMigrate(&uniqueWidget{}); err != nil {
		t.Fatal(err)
	}
	if err := db.WithContext(ctx).Create(&uniqueWidget{Name: "a"}).Error; err != nil {
		t.Fatal(err)
	}
	err = db.WithContext(ctx).Create(&uniqueWidget{Name: "a"}).Error
	if !IsDuplicateError(err) {
		t.Fatalf("expected translated duplicate key error, got %v", err)
	}
	if FromDatabase(err, "widget").Code != apperrors.ErrCodeAlreadyExists {
		t.Error("expected ALREADY_EXISTS")
	}
}
