package mapper

import (
	"time"

	"ai-reading-be/internal/entity"
	"ai-reading-be/internal/model"

	"gorm.io/datatypes"
)

type SessionSnapshotMapper struct{}

func NewSessionSnapshotMapper() *SessionSnapshotMapper {
	return &SessionSnapshotMapper{}
}

func (m *SessionSnapshotMapper) ToEntity(s *model.SessionSnapshot) *entity.SessionSnapshot {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.SessionSnapshot{
		Id:         s.Id,
		UserId:     s.UserId,
		DocumentId: s.DocumentId,
		Stage:      s.Stage,
		DocType:    s.DocType,
		Payload:    []byte(s.Payload),
		CapturedAt: s.CapturedAt,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *SessionSnapshotMapper) ToModel(s *entity.SessionSnapshot) *model.SessionSnapshot {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.SessionSnapshot{
		Id:         s.Id,
		UserId:     s.UserId,
		DocumentId: s.DocumentId,
		Stage:      s.Stage,
		DocType:    s.DocType,
		Payload:    datatypes.JSON(s.Payload),
		CapturedAt: s.CapturedAt,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}
