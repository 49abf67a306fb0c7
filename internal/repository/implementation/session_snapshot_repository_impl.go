package implementation

import (
	"context"
	"errors"

	"ai-reading-be/internal/entity"
	"ai-reading-be/internal/mapper"
	"ai-reading-be/internal/model"
	"ai-reading-be/internal/repository/contract"
	"ai-reading-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionSnapshotRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionSnapshotMapper
}

func NewSessionSnapshotRepository(db *gorm.DB) contract.SessionSnapshotRepository {
	return &SessionSnapshotRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionSnapshotMapper(),
	}
}

func (r *SessionSnapshotRepositoryImpl) Upsert(ctx context.Context, snapshot *entity.SessionSnapshot) error {
	m := r.mapper.ToModel(snapshot)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"stage", "doc_type", "payload", "captured_at", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*snapshot = *r.mapper.ToEntity(m)
	return nil
}

func (r *SessionSnapshotRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionSnapshot, error) {
	var m model.SessionSnapshot
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SessionSnapshotRepositoryImpl) DeleteByDocument(ctx context.Context, userId, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND document_id = ?", userId, documentId).
		Delete(&model.SessionSnapshot{}).Error
}
