package processing

import (
	"context"

	"github.com/fernandomesquita/stenopro/glossary"
	"github.com/fernandomesquita/stenopro/prompt"
	"github.com/fernandomesquita/stenopro/storage"
	"github.com/fernandomesquita/stenopro/transcript"
)

// Records is the record store the orchestrator reads and writes.
type Records interface {
	GetByID(ctx context.Context, id uint) (*transcript.Transcription, error)
	Update(ctx context.Context, id uint, expectedVersion int, fields transcript.Fields) (int, error)
}

// Blobs locates uploaded audio.
type Blobs interface {
	Exists(ctx context.Context, key string) (bool, error)
	storage.PathResolver
}

// Prompts returns the active system prompt text, empty when none is active.
type Prompts interface {
	ActiveContent(ctx context.Context) (string, error)
}

// Glossary returns the global entries plus those scoped to a transcription.
type Glossary interface {
	EntriesFor(ctx context.Context, transcriptionID uint) ([]glossary.Entry, error)
}

var (
	_ Records  = (*transcript.Store)(nil)
	_ Prompts  = (*prompt.SystemStore)(nil)
	_ Glossary = (*glossary.Store)(nil)
)
