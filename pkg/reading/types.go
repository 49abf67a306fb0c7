package reading

import (
	"context"
	"time"
)

// Stage is the active phase of an adaptive reading session.
type Stage string

const (
	StageDiagnosis Stage = "diagnosis"
	StageTutoring  Stage = "tutoring"
	StageQuiz      Stage = "quiz"
	StageReading   Stage = "reading"
)

func (s Stage) Valid() bool {
	switch s {
	case StageDiagnosis, StageTutoring, StageQuiz, StageReading:
		return true
	}
	return false
}

// DocType selects the prompt family used during the reading stage.
type DocType string

const (
	DocTypeSTEM       DocType = "STEM"
	DocTypeHumanities DocType = "HUMANITIES"
)

func (d DocType) Valid() bool {
	return d == DocTypeSTEM || d == DocTypeHumanities
}

// Mode tags a chat turn with the phase it was sent under.
type Mode string

const (
	ModeTutoring Mode = "tutoring"
	ModeReading  Mode = "reading"
)

func (m Mode) Valid() bool {
	return m == ModeTutoring || m == ModeReading
}

// RequestClass identifies one of the inference request shapes.
type RequestClass string

const (
	ClassDiagnosis      RequestClass = "diagnosis"
	ClassClassify       RequestClass = "classify"
	ClassGatekeeperQuiz RequestClass = "gatekeeper_quiz"
	ClassTutorTurn      RequestClass = "tutor_turn"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Prerequisite struct {
	ID       string `json:"id"`
	Concept  string `json:"concept"`
	Mastered bool   `json:"mastered"`
}

// StudyMap is the result of diagnosing a document.
type StudyMap struct {
	Topic           string         `json:"topic"`
	Prerequisites   []Prerequisite `json:"prerequisites"`
	InitialBriefing string         `json:"initial_briefing"`
}

// QuizData is a single gatekeeper question.
type QuizData struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

// Valid reports whether the quiz can be answered at all.
func (q *QuizData) Valid() bool {
	if q == nil || q.Question == "" || len(q.Options) < 2 {
		return false
	}
	return q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options)
}

type ChatMessage struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Mode      Mode      `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionState is the aggregate root of one document's session. Callers only
// ever see copies of it.
type SessionState struct {
	DocumentID           string         `json:"document_id"`
	Stage                Stage          `json:"stage"`
	DocType              DocType        `json:"doc_type"`
	StudyMap             *StudyMap      `json:"study_map"`
	WorkingPrerequisites []Prerequisite `json:"working_prerequisites"`
	QuizData             *QuizData      `json:"quiz_data"`
	QuizSelection        *int           `json:"quiz_selection"`
	QuizSubmitted        bool           `json:"quiz_submitted"`
	Transcript           []ChatMessage  `json:"transcript"`
	PendingRequest       bool           `json:"pending_request"`
}

// Content is what the content source yields for a document.
type Content struct {
	Text     string
	Raw      []byte
	MIMEType string
}

func (c Content) HasText() bool { return c.Text != "" }
func (c Content) HasRaw() bool  { return len(c.Raw) > 0 }
func (c Content) Empty() bool   { return !c.HasText() && !c.HasRaw() }

// ContentSource supplies the text and/or bytes of a document.
type ContentSource interface {
	GetContent(ctx context.Context, documentID string) (Content, error)
}

// TutorRequest is the payload of a tutor_turn inference call.
type TutorRequest struct {
	Content    Content
	Transcript []ChatMessage
	Text       string
	Mode       Mode
	DocType    DocType
	// Concepts is set only for the synthetic prerequisite tutoring request.
	Concepts []string
	Kickoff  bool
}

// Gateway is the inference endpoint the controller talks to.
type Gateway interface {
	Diagnose(ctx context.Context, content Content) (*StudyMap, error)
	Classify(ctx context.Context, content Content) (DocType, error)
	GatekeeperQuiz(ctx context.Context, content Content, topic string) (*QuizData, error)
	TutorTurn(ctx context.Context, req TutorRequest) (string, error)
}

// SnapshotLoader reads a persisted snapshot; (nil, nil) means none exists.
type SnapshotLoader interface {
	Load(ctx context.Context, documentID string) (*Snapshot, error)
}

// Observer receives a copy of the session after every mutation. Observe must
// not block.
type Observer interface {
	Observe(documentID string, snapshot Snapshot)
}

// Notifier is told about stage transitions.
type Notifier interface {
	StageChanged(ctx context.Context, documentID string, from, to Stage)
}
