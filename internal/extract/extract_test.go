package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct{ name, content string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractPlainText(t *testing.T) {
	text, err := ExtractTextFromBytes(context.Background(), []byte("\ufeff  Call vendor about invoice.\n"), "text/plain; charset=utf-8", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "Call vendor about invoice.", text)
}

func TestExtractSniffsWhenTypeIsGeneric(t *testing.T) {
	text, err := ExtractTextFromBytes(context.Background(), []byte("standup notes"), "application/octet-stream", "notes")
	require.NoError(t, err)
	assert.Equal(t, "standup notes", text)
}

func TestExtractDocx(t *testing.T) {
	data := buildDocx(t, `<w:p><w:r><w:t>Budget review</w:t></w:r></w:p><w:p><w:r><w:t>Send slides</w:t></w:r></w:p>`)

	text, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "meeting.docx")
	require.NoError(t, err)
	assert.Equal(t, "Budget review\nSend slides", text)
}

func TestExtractRejectsPlainZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = ExtractTextFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestExtractRejectsImages(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	_, err := ExtractTextFromBytes(context.Background(), png, "", "photo.png")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractRejectsInvalidUTF8(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte{0xff, 0xfe, 0xfd}, "text/plain", "bad.txt")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ExtractTextFromBytes(ctx, []byte("x"), "text/plain", "a.txt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStripDocxXMLKeepsRawOnError(t *testing.T) {
	assert.Equal(t, "<broken", stripDocxXML("<broken"))
}
