package contract

import (
	"context"

	"ai-reading-be/internal/entity"
	"ai-reading-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SessionSnapshotRepository interface {
	// Upsert keeps one row per (user, document).
	Upsert(ctx context.Context, snapshot *entity.SessionSnapshot) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionSnapshot, error)
	DeleteByDocument(ctx context.Context, userId, documentId uuid.UUID) error
}
