package mangadex

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// MultipartField is a plain form field.
type MultipartField struct {
	Name  string
	Value string
}

// MultipartFile is a file part. ContentType is sniffed from Data when empty.
type MultipartFile struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// MultipartBody is a form-data request body. Files are written in slice
// order, which MangaDex uses as page order for uploads.
type MultipartBody struct {
	Fields []MultipartField
	Files  []MultipartFile
}

// Size returns the combined size of all file parts.
func (m *MultipartBody) Size() int64 {
	var n int64
	for _, f := range m.Files {
		n += int64(len(f.Data))
	}
	return n
}

// encode renders the body once so retries can resend identical bytes.
func (m *MultipartBody) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range m.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.Name, err)
		}
	}

	for _, f := range m.Files {
		ct := f.ContentType
		if ct == "" {
			ct = http.DetectContentType(f.Data)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(f.Field), escapeQuotes(f.Name)))
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create part %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write part %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
