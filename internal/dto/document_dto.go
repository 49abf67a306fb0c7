package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadDocumentRequest struct {
	Title    string `json:"title" validate:"max=255"`
	FileName string `json:"-" validate:"required"`
	Data     []byte `json:"-" validate:"required"`
}

type ListDocumentsRequest struct {
	Page     int    `query:"page" validate:"min=1"`
	Limit    int    `query:"limit" validate:"min=0,max=100"`
	MimeType string `query:"mime_type"`
}

type UploadDocumentResponse struct {
	Id        uuid.UUID `json:"id"`
	MimeType  string    `json:"mime_type"`
	PageCount int       `json:"page_count"`
}

type DocumentResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	FileName  string     `json:"file_name"`
	MimeType  string     `json:"mime_type"`
	SizeBytes int64      `json:"size_bytes"`
	PageCount int        `json:"page_count"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
