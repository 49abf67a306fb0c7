package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-reading-be/internal/pkg/logger"
)

// buildPDF writes a minimal single-font PDF with one page per entry in pages.
func buildPDF(pages ...string) []byte {
	var objects []string
	kids := make([]string, len(pages))
	fontObj := 3 + 2*len(pages)
	for i, text := range pages {
		pageObj := 3 + 2*i
		contentObj := pageObj + 1
		kids[i] = fmt.Sprintf("%d 0 R", pageObj)
		stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontObj, contentObj),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}
	objects = append([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
	}, objects...)
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(b.String())
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(buildPDF("one", "two", "three"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestExtractText(t *testing.T) {
	text, err := ExtractText(buildPDF("Hello World", "Second page"))
	require.NoError(t, err)
	assert.Contains(t, text, "Hello World")
	assert.Contains(t, text, "Second page")
}

func TestExtractText_Malformed(t *testing.T) {
	_, err := ExtractText([]byte("%PDF-1.4\nnot really a pdf"))
	assert.Error(t, err)
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		want     string
		wantErr  bool
	}{
		{name: "pdf", filename: "a.pdf", data: buildPDF("x"), want: MIMEPDF},
		{name: "text", filename: "notes.txt", data: []byte("plain words"), want: MIMEText},
		{name: "markdown", filename: "README.md", data: []byte("# Title\n\nbody"), want: MIMEMarkdown},
		{name: "png", filename: "a.png", data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectMIME(tt.filename, tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()

	t.Run("pdf yields raw and text", func(t *testing.T) {
		path := filepath.Join(dir, "doc.pdf")
		require.NoError(t, os.WriteFile(path, buildPDF("Entropy rises"), 0o644))

		src := NewFileSource(PathLocator{Path: path}, logger.NewNopLogger())
		content, err := src.GetContent(context.Background(), "doc-1")
		require.NoError(t, err)
		assert.NotEmpty(t, content.Raw)
		assert.Equal(t, MIMEPDF, content.MIMEType)
		assert.Contains(t, content.Text, "Entropy rises")
	})

	t.Run("text file yields text only", func(t *testing.T) {
		path := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("  the second law  \n"), 0o644))

		content, err := NewFileSource(PathLocator{Path: path}, nil).GetContent(context.Background(), "doc-2")
		require.NoError(t, err)
		assert.Equal(t, "the second law", content.Text)
		assert.Empty(t, content.Raw)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileSource(PathLocator{Path: filepath.Join(dir, "nope.pdf")}, nil).GetContent(context.Background(), "doc-3")
		assert.Error(t, err)
	})
}

func TestLoad_BrokenPDFKeepsRaw(t *testing.T) {
	content := Load([]byte("%PDF-1.4 garbage"), MIMEPDF, logger.NewNopLogger(), "doc-1")
	assert.NotEmpty(t, content.Raw)
	assert.Empty(t, content.Text)
}
