package dto

import "time"

type SelectQuizOptionRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

type SetDocTypeRequest struct {
	DocType string `json:"doc_type" validate:"required,oneof=STEM HUMANITIES"`
}

type SendMessageRequest struct {
	Text string `json:"text" validate:"required"`
	Mode string `json:"mode" validate:"omitempty,oneof=tutoring reading"`
}

type PrerequisiteResponse struct {
	Id       string `json:"id"`
	Concept  string `json:"concept"`
	Mastered bool   `json:"mastered"`
}

type StudyMapResponse struct {
	Topic           string                 `json:"topic"`
	Prerequisites   []PrerequisiteResponse `json:"prerequisites"`
	InitialBriefing string                 `json:"initial_briefing"`
}

// QuizResponse hides the answer until the quiz has been submitted.
type QuizResponse struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correct_index,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

type ChatMessageResponse struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

type ReadingSessionResponse struct {
	DocumentId           string                 `json:"document_id"`
	Stage                string                 `json:"stage"`
	DocType              string                 `json:"doc_type"`
	StudyMap             *StudyMapResponse      `json:"study_map"`
	WorkingPrerequisites []PrerequisiteResponse `json:"working_prerequisites"`
	Quiz                 *QuizResponse          `json:"quiz"`
	QuizSelection        *int                   `json:"quiz_selection"`
	QuizSubmitted        bool                   `json:"quiz_submitted"`
	IsCorrect            *bool                  `json:"is_correct"`
	Transcript           []ChatMessageResponse  `json:"transcript"`
	PendingRequest       bool                   `json:"pending_request"`
}
