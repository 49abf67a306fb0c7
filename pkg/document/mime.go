package document

import (
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MIMEPDF      = "application/pdf"
	MIMEText     = "text/plain"
	MIMEMarkdown = "text/markdown"
)

var ErrUnsupportedType = errors.New("unsupported document type")

// DetectMIME sniffs the content and falls back to the file extension for
// markdown, which sniffs as plain text.
func DetectMIME(filename string, data []byte) (string, error) {
	detected := mimetype.Detect(data)
	switch {
	case detected.Is(MIMEPDF):
		return MIMEPDF, nil
	case detected.Is(MIMEText):
		if strings.HasSuffix(strings.ToLower(filename), ".md") {
			return MIMEMarkdown, nil
		}
		return MIMEText, nil
	}
	return "", ErrUnsupportedType
}

// Extension returns the canonical file extension for a supported type.
func Extension(mime string) string {
	switch mime {
	case MIMEPDF:
		return ".pdf"
	case MIMEMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}
