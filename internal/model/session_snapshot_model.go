package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SessionSnapshot struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_session_snapshots_owner"`
	DocumentId uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_session_snapshots_owner;index"`
	Stage      string         `gorm:"type:varchar(20);not null"`
	DocType    string         `gorm:"type:varchar(20);not null"`
	Payload    datatypes.JSON `gorm:"type:jsonb;not null"`
	CapturedAt time.Time      `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (SessionSnapshot) TableName() string {
	return "session_snapshots"
}
