package document

import (
	"context"
	"fmt"
	"os"
	"strings"

	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/pkg/reading"
)

const logModule = "DOCUMENT"

// Locator resolves a document id to a file on disk.
type Locator interface {
	Locate(ctx context.Context, documentID string) (path string, mimeType string, err error)
}

// FileSource is a reading.ContentSource backed by local files. PDFs yield both
// the raw bytes and their text layer; text documents yield text only.
type FileSource struct {
	locator Locator
	logger  logger.ILogger
}

var _ reading.ContentSource = (*FileSource)(nil)

func NewFileSource(locator Locator, log logger.ILogger) *FileSource {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &FileSource{locator: locator, logger: log}
}

func (s *FileSource) GetContent(ctx context.Context, documentID string) (reading.Content, error) {
	path, mime, err := s.locator.Locate(ctx, documentID)
	if err != nil {
		return reading.Content{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return reading.Content{}, fmt.Errorf("read document %s: %w", documentID, err)
	}
	return Load(data, mime, s.logger, documentID), nil
}

// Load builds content from file bytes. A PDF whose text layer cannot be read
// is still returned with its raw bytes.
func Load(data []byte, mime string, log logger.ILogger, documentID string) reading.Content {
	if mime != MIMEPDF {
		return reading.Content{Text: strings.TrimSpace(string(data)), MIMEType: mime}
	}

	content := reading.Content{Raw: data, MIMEType: MIMEPDF}
	text, err := ExtractText(data)
	if err != nil {
		log.Warn(logModule, "PDF text extraction failed, using raw bytes only", map[string]interface{}{
			"document_id": documentID,
			"error":       err.Error(),
		})
		return content
	}
	content.Text = text
	return content
}

// PathLocator serves a single file, used by the CLI.
type PathLocator struct {
	Path string
}

func (l PathLocator) Locate(ctx context.Context, documentID string) (string, string, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return "", "", err
	}
	mime, err := DetectMIME(l.Path, data)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", l.Path, err)
	}
	return l.Path, mime, nil
}
