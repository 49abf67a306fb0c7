package entity

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Title     string
	FileName  string
	FilePath  string
	MimeType  string
	SizeBytes int64
	PageCount int
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
