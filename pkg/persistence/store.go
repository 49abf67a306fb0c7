package persistence

import (
	"context"

	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/pkg/reading"
)

// Store persists snapshots per user and document. Load returns (nil, nil)
// when nothing is stored.
type Store interface {
	Save(ctx context.Context, env Envelope) error
	Load(ctx context.Context, userID, documentID string) (*reading.Snapshot, error)
	Delete(ctx context.Context, userID, documentID string) error
}

// Mirror writes to both stores and reads from Primary first. Secondary
// failures are logged and never fail the call.
type Mirror struct {
	Primary   Store
	Secondary Store
	Logger    logger.ILogger
}

var _ Store = (*Mirror)(nil)

func (m *Mirror) Save(ctx context.Context, env Envelope) error {
	if err := m.Primary.Save(ctx, env); err != nil {
		return err
	}
	if m.Secondary != nil {
		if err := m.Secondary.Save(ctx, env); err != nil {
			m.warn("Secondary snapshot save failed", env.DocumentID, err)
		}
	}
	return nil
}

func (m *Mirror) Load(ctx context.Context, userID, documentID string) (*reading.Snapshot, error) {
	snap, err := m.Primary.Load(ctx, userID, documentID)
	if err == nil && snap != nil {
		return snap, nil
	}
	if m.Secondary == nil {
		return snap, err
	}
	if err != nil {
		m.warn("Primary snapshot load failed, trying secondary", documentID, err)
	}
	snap2, err2 := m.Secondary.Load(ctx, userID, documentID)
	if err2 != nil {
		if err != nil {
			return nil, err
		}
		return nil, err2
	}
	return snap2, nil
}

func (m *Mirror) Delete(ctx context.Context, userID, documentID string) error {
	if err := m.Primary.Delete(ctx, userID, documentID); err != nil {
		return err
	}
	if m.Secondary != nil {
		if err := m.Secondary.Delete(ctx, userID, documentID); err != nil {
			m.warn("Secondary snapshot delete failed", documentID, err)
		}
	}
	return nil
}

func (m *Mirror) warn(msg, documentID string, err error) {
	if m.Logger == nil {
		return
	}
	m.Logger.Warn(logModule, msg, map[string]interface{}{
		"document_id": documentID,
		"error":       err.Error(),
	})
}

// Loader adapts a store to reading.SnapshotLoader for one user.
func Loader(store Store, userID string) reading.SnapshotLoader {
	return storeLoader{store: store, userID: userID}
}

type storeLoader struct {
	store  Store
	userID string
}

func (l storeLoader) Load(ctx context.Context, documentID string) (*reading.Snapshot, error) {
	return l.store.Load(ctx, l.userID, documentID)
}
