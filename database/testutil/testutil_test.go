package testutil

import (
	"context"
	"testing"
)

type note struct {
	ID   uint `gorm:"primaryKey"`
	Text string
}

func TestOpen_IsolatedDatabases(t *testing.T) {
	ctx := context.Background()
	a := Open(t, &note{})
	b := Open(t, &note{})

	if err := a.WithContext(ctx).Create(&note{Text: "only in a"}).Error; err != nil {
		t.Fatal(err)
	}
	var count int64
	b.WithContext(ctx).Model(&note{}).Count(&count)
	if count != 0 {
		t.Errorf("databases share state, b has %d rows", count)
	}
}
