package events

import "time"

const (
	TypeReadingStageChanged = "READING_STAGE_CHANGED"
	TypeReadingQuizGraded   = "READING_QUIZ_GRADED"
)

// StageChanged is published whenever a reading session moves between stages.
type StageChanged struct {
	UserID     string
	DocumentID string
	From       string
	To         string
	OccurredAt time.Time
}

func (e StageChanged) EventType() string { return TypeReadingStageChanged }

func (e StageChanged) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"document_id": e.DocumentID,
		"from":        e.From,
		"to":          e.To,
		"occurred_at": e.OccurredAt.Format(time.RFC3339),
	}
}

func (e StageChanged) Timestamp() time.Time { return e.OccurredAt }

// QuizGraded is published once per submitted gatekeeper quiz.
type QuizGraded struct {
	UserID     string
	DocumentID string
	Topic      string
	Correct    bool
	OccurredAt time.Time
}

func (e QuizGraded) EventType() string { return TypeReadingQuizGraded }

func (e QuizGraded) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"document_id": e.DocumentID,
		"topic":       e.Topic,
		"correct":     e.Correct,
		"occurred_at": e.OccurredAt.Format(time.RFC3339),
	}
}

func (e QuizGraded) Timestamp() time.Time { return e.OccurredAt }
