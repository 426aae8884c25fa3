package local

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	apperrors "github.com/fernandomesquita/stenopro/errors"
)

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Upload(ctx, "1_a.mp3", strings.NewReader("ID3data")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ok, _ := s.Exists(ctx, "1_a.mp3"); !ok {
		t.Error("expected blob to exist")
	}
	if n, _ := s.Size(ctx, "1_a.mp3"); n != 7 {
		t.Errorf("size = %d", n)
	}

	rc, err := s.Download(ctx, "1_a.mp3")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "ID3data" {
		t.Errorf("content = %q", b)
	}

	path, release, err := s.ResolvePath(ctx, "1_a.mp3")
	if err != nil {
		t.Fatal(err)
	}
	release()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("local release must not remove the blob: %v", err)
	}

	u, _ := s.URL(ctx, "1_a.mp3")
	if !strings.HasPrefix(u, "file://") {
		t.Errorf("url = %q", u)
	}

	if err := s.Delete(ctx, "1_a.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "1_a.mp3"); err != nil {
		t.Errorf("deleting a missing blob should succeed: %v", err)
	}
	if ok, _ := s.Exists(ctx, "1_a.mp3"); ok {
		t.Error("blob should be gone")
	}
}

func TestStorage_Missing(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage(t.TempDir())

	if _, err := s.Download(ctx, "gone.mp3"); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("download: expected not found, got %v", err)
	}
	if _, _, err := s.ResolvePath(ctx, "gone.mp3"); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("resolve: expected not found, got %v", err)
	}
	if _, err := s.Size(ctx, "gone.mp3"); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("size: expected not found, got %v", err)
	}
}

func TestStorage_RejectsTraversal(t *testing.T) {
	s, _ := NewStorage(t.TempDir())
	if err := s.Upload(context.Background(), "../escape.mp3", strings.NewReader("x")); !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestStorage_Ping(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStorage(dir)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
	_ = os.RemoveAll(dir)
	if err := s.Ping(context.Background()); err == nil {
		t.Error("expected ping to fail once the directory is gone")
	}
}
