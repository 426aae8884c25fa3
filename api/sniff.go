package api

import (
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

const octetStream = "application/octet-stream"

// sniffAudio identifies the container of r from its magic bytes and returns
// its content type, or "" when it is not recognised. r is rewound.
func sniffAudio(r io.ReadSeeker) (string, error) {
	_, fileType, err := tag.Identify(r)
	if _, serr := r.Seek(0, io.SeekStart); serr != nil {
		return "", serr
	}
	if err == nil {
		switch fileType {
		case tag.MP3:
			return "audio/mpeg", nil
		case tag.OGG:
			return "audio/ogg", nil
		case tag.FLAC:
			return "audio/flac", nil
		case tag.M4A, tag.M4B, tag.M4P, tag.ALAC:
			return "audio/mp4", nil
		case tag.DSF:
			return "audio/dsf", nil
		}
	}

	// RIFF/WAVE carries no tags tag.Identify understands.
	var head [12]byte
	n, _ := io.ReadFull(r, head[:])
	if _, serr := r.Seek(0, io.SeekStart); serr != nil {
		return "", serr
	}
	if n == len(head) && string(head[0:4]) == "RIFF" && string(head[8:12]) == "WAVE" {
		return "audio/wav", nil
	}
	return "", nil
}

// declaredType returns the media type of a Content-Type header without
// parameters.
func declaredType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// contentTypeFor picks the Content-Type used when streaming a stored blob.
func contentTypeFor(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg", ".oga":
		return "audio/ogg"
	}
	if t := mime.TypeByExtension(filepath.Ext(key)); t != "" {
		return t
	}
	return octetStream
}
