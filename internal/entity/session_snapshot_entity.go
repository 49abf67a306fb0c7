package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionSnapshot is the persisted reading session of one user on one
// document. Payload holds the JSON encoded reading.Snapshot.
type SessionSnapshot struct {
	Id         uuid.UUID
	UserId     uuid.UUID
	DocumentId uuid.UUID
	Stage      string
	DocType    string
	Payload    []byte
	CapturedAt time.Time
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
