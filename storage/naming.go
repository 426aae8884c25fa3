package storage

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/fernandomesquita/stenopro/errors"
)

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	underscores = regexp.MustCompile(`_+`)
)

// SanitizeFileName lower-cases name, replaces every character outside
// [a-zA-Z0-9._-] with '_' and collapses runs of '_'.
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}
	clean := unsafeChars.ReplaceAllString(strings.ToLower(name), "_")
	clean = underscores.ReplaceAllString(clean, "_")
	if clean == "" || clean == "_" {
		clean = "audio"
	}
	return clean
}

// AudioKey returns "<unix-millis>_<sanitized name>".
func AudioKey(now time.Time, original string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "_" + SanitizeFileName(original)
}

// SaveAudio stores an uploaded audio file under a fresh AudioKey and returns
// the key.
func SaveAudio(ctx context.Context, s Storage, now time.Time, original string, data io.Reader) (string, error) {
	key := AudioKey(now, original)
	if err := s.Upload(ctx, key, data); err != nil {
		return "", apperrors.StorageError("upload", err)
	}
	return key, nil
}

// ValidateKey rejects keys that could escape the store's namespace.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return apperrors.InvalidInput("key", "invalid blob key")
	}
	return nil
}
