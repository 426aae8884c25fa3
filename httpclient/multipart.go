package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"
)

// MultipartBody is a multipart/form-data request body. Pass it as
// Request.Body and the client sets the Content-Type boundary.
type MultipartBody struct {
	Fields map[string]string
	Files  []FileField
}

// FileField is a file part of a multipart body.
type FileField struct {
	// FieldName is the form field name, e.g. "file".
	FieldName string
	FileName  string
	// ContentType defaults to application/octet-stream.
	ContentType string
	// Data is the file content. Used when Open is nil.
	Data []byte
	// Open returns a fresh reader for the content. It is called once per
	// attempt so retried requests resend the whole file.
	Open func() (io.ReadCloser, error)
}

// encode builds the body and returns it with its Content-Type header value.
func (m *MultipartBody) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, m.Fields[k]); err != nil {
			return nil, "", err
		}
	}

	for _, f := range m.Files {
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(f.FieldName), escapeQuotes(f.FileName)))
		header.Set("Content-Type", ct)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if err := f.write(part); err != nil {
			return nil, "", fmt.Errorf("write %s: %w", f.FieldName, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (f FileField) write(dst io.Writer) error {
	if f.Open == nil {
		_, err := dst.Write(f.Data)
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	_, err = io.Copy(dst, rc)
	return err
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
