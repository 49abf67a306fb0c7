package persistence

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"ai-reading-be/pkg/reading"
)

const (
	DefaultTopic = "READING_SESSION_SNAPSHOT"

	MetadataDocumentID = "document_id"
	MetadataUserID     = "user_id"
)

var ErrMalformedEnvelope = errors.New("malformed snapshot envelope")

// Envelope is one session snapshot addressed to its owner.
type Envelope struct {
	DocumentID string           `json:"document_id"`
	UserID     string           `json:"user_id"`
	Snapshot   reading.Snapshot `json:"snapshot"`
}

// Key identifies a session; a document is read by many users.
func (e Envelope) Key() string {
	return Key(e.UserID, e.DocumentID)
}

func Key(userID, documentID string) string {
	return userID + "/" + documentID
}

func Encode(env Envelope) (*message.Message, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataDocumentID, env.DocumentID)
	msg.Metadata.Set(MetadataUserID, env.UserID)
	return msg, nil
}

func Decode(msg *message.Message) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.DocumentID == "" {
		env.DocumentID = msg.Metadata.Get(MetadataDocumentID)
	}
	if env.UserID == "" {
		env.UserID = msg.Metadata.Get(MetadataUserID)
	}
	if env.DocumentID == "" {
		return Envelope{}, fmt.Errorf("%w: missing document id", ErrMalformedEnvelope)
	}
	return env, nil
}
