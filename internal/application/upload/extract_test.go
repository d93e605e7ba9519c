package upload

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	apperrors "manuscript-editor-api/pkg/errors"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        Format
		wantErr     bool
	}{
		{filename: "ch1.txt", want: FormatText},
		{filename: "CH1.MD", want: FormatMarkdown},
		{filename: "draft.rtf", want: FormatRTF},
		{filename: "novel.scriv", want: FormatScriv},
		{filename: "ch1.docx", want: FormatDocx},
		{filename: "upload", contentType: "text/plain; charset=utf-8", want: FormatText},
		{filename: "upload.bin", contentType: mimeDocx, want: FormatDocx},
		{filename: "ch1.pdf", contentType: "application/pdf", wantErr: true},
		{filename: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.filename+"|"+tt.contentType, func(t *testing.T) {
			got, err := DetectFormat(tt.filename, tt.contentType)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrUnsupportedFile) {
					t.Fatalf("DetectFormat() error = %v, want ErrUnsupportedFile", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("DetectFormat() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestExtractPlainText(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Héllo\nworld")...)
	got, err := Extract(FormatText, data, DefaultMaxBytes)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "Héllo\nworld" {
		t.Fatalf("Extract() = %q", got)
	}

	got, _ = Extract(FormatRTF, []byte{'a', 0xff, 'b'}, DefaultMaxBytes)
	if got != "a�b" {
		t.Fatalf("Extract(invalid utf-8) = %q", got)
	}
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDocx(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>The storm </w:t></w:r><w:r><w:t>broke.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Name:</w:t><w:tab/><w:t>Ana</w:t><w:br/><w:t>Age: 30</w:t></w:r></w:p>
    <w:p/>
  </w:body>
</w:document>`

	got, err := Extract(FormatDocx, buildDocx(t, doc), DefaultMaxBytes)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "The storm broke.\n\nName:\tAna\nAge: 30\n\n"
	if got != want {
		t.Fatalf("Extract() = %q, want %q", got, want)
	}
}

func TestExtractDocxRejectsGarbage(t *testing.T) {
	if _, err := Extract(FormatDocx, []byte("not a zip"), DefaultMaxBytes); !errors.Is(err, apperrors.ErrUnsupportedFile) {
		t.Fatalf("Extract() error = %v, want ErrUnsupportedFile", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, _ = zw.Create("other.xml")
	_ = zw.Close()
	if _, err := Extract(FormatDocx, buf.Bytes(), DefaultMaxBytes); !errors.Is(err, apperrors.ErrUnsupportedFile) {
		t.Fatalf("Extract() without document.xml error = %v", err)
	}
}

func wrapBody(body string) string {
	return `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`
}

func TestExtractDocxBoundsDecompressedSize(t *testing.T) {
	const limit = 1024
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name: "text within limit",
			doc:  wrapBody("<w:p><w:r><w:t>" + strings.Repeat("a", limit) + "</w:t></w:r></w:p>"),
		},
		{
			name:    "text over limit",
			doc:     wrapBody("<w:p><w:r><w:t>" + strings.Repeat("a", limit+1) + "</w:t></w:r></w:p>"),
			wantErr: apperrors.ErrFileTooLarge,
		},
		{
			name:    "text over limit across paragraphs",
			doc:     wrapBody(strings.Repeat("<w:p><w:r><w:t>"+strings.Repeat("b", 100)+"</w:t></w:r></w:p>", 11)),
			wantErr: apperrors.ErrFileTooLarge,
		},
		{
			name:    "markup over limit",
			doc:     wrapBody(strings.Repeat("<w:p/>", 2*limit)),
			wantErr: apperrors.ErrFileTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildDocx(t, tt.doc)
			if int64(len(data)) > limit {
				t.Fatalf("compressed docx = %d bytes, want it under the limit", len(data))
			}
			got, err := Extract(FormatDocx, data, limit)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Extract() error = %v", err)
				}
				if len(got) != limit {
					t.Fatalf("len(Extract()) = %d, want %d", len(got), limit)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Extract() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
