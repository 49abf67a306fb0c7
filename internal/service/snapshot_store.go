package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-reading-be/internal/entity"
	"ai-reading-be/internal/repository/specification"
	"ai-reading-be/internal/repository/unitofwork"
	"ai-reading-be/pkg/persistence"
	"ai-reading-be/pkg/reading"

	"github.com/google/uuid"
)

// snapshotStore is the relational half of snapshot persistence: one
// session_snapshots row per user and document.
type snapshotStore struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewSnapshotStore(uowFactory unitofwork.RepositoryFactory) persistence.Store {
	return &snapshotStore{uowFactory: uowFactory}
}

func parseOwner(userID, documentID string) (uuid.UUID, uuid.UUID, error) {
	userId, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	documentId, err := uuid.Parse(documentID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid document id %q: %w", documentID, err)
	}
	return userId, documentId, nil
}

func (s *snapshotStore) Save(ctx context.Context, env persistence.Envelope) error {
	userId, documentId, err := parseOwner(env.UserID, env.DocumentID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	capturedAt := env.Snapshot.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	now := time.Now()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.SessionSnapshotRepository().Upsert(ctx, &entity.SessionSnapshot{
		UserId:     userId,
		DocumentId: documentId,
		Stage:      string(env.Snapshot.Stage),
		DocType:    string(env.Snapshot.DocType),
		Payload:    payload,
		CapturedAt: capturedAt,
		CreatedAt:  now,
		UpdatedAt:  &now,
	})
}

func (s *snapshotStore) Load(ctx context.Context, userID, documentID string) (*reading.Snapshot, error) {
	userId, documentId, err := parseOwner(userID, documentID)
	if err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	row, err := uow.SessionSnapshotRepository().FindOne(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ByDocumentID{DocumentID: documentId},
	)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	var snap reading.Snapshot
	if err := json.Unmarshal(row.Payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", row.Id, err)
	}
	return &snap, nil
}

func (s *snapshotStore) Delete(ctx context.Context, userID, documentID string) error {
	userId, documentId, err := parseOwner(userID, documentID)
	if err != nil {
		return err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.SessionSnapshotRepository().DeleteByDocument(ctx, userId, documentId)
}
