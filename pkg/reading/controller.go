package reading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-reading-be/internal/pkg/logger"
)

const logModule = "READING"

// DefaultDiagnosisTimeout bounds the diagnosis call.
const DefaultDiagnosisTimeout = 90 * time.Second

var (
	ErrNoContent      = errors.New("document has neither text nor raw content")
	ErrNoDocument     = errors.New("no document loaded")
	ErrRequestPending = errors.New("an inference request is already pending")
	ErrEmptyMessage   = errors.New("message text is empty")
	errEmptyReply     = errors.New("empty reply from inference gateway")
)

type Option func(*Controller)

func WithSnapshotLoader(l SnapshotLoader) Option {
	return func(c *Controller) { c.loader = l }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithLogger(l logger.ILogger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithDiagnosisTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.diagnosisTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithResetMasteryOnRestore clears restored mastery flags so a returning
// reader is diagnosed again instead of trusting the old answers.
func WithResetMasteryOnRestore(reset bool) Option {
	return func(c *Controller) { c.resetMasteryOnRestore = reset }
}

// Controller is the stage machine for one document's reading session.
//
// Operations that call the gateway block until the call resolves, but the
// state lock is released in the meantime: SkipToReading, ToggleMastered,
// SetDocType and State can run while a request is outstanding. Every request
// carries a sequence number and a reply is applied only if it is still the
// latest request of its class.
type Controller struct {
	gateway               Gateway
	source                ContentSource
	loader                SnapshotLoader
	observer              Observer
	notifier              Notifier
	logger                logger.ILogger
	now                   func() time.Time
	diagnosisTimeout      time.Duration
	resetMasteryOnRestore bool

	mu              sync.Mutex
	loaded          bool
	content         Content
	state           SessionState
	docTypeExplicit bool
	seq             uint64
	latest          map[RequestClass]uint64
	inflight        uint64
}

func NewController(gateway Gateway, source ContentSource, opts ...Option) *Controller {
	c := &Controller{
		gateway:          gateway,
		source:           source,
		now:              time.Now,
		diagnosisTimeout: DefaultDiagnosisTimeout,
		latest:           make(map[RequestClass]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.NewNopLogger()
	}
	return c
}

// State returns a copy of the current session.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := cloneState(&c.state)
	st.PendingRequest = c.pending()
	return st
}

func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Snapshot returns the persistable view of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshotOf(&c.state, c.now())
}

// QuizResult grades the submitted answer. graded is false until SubmitQuiz.
func (c *Controller) QuizResult() (correct bool, graded bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.QuizSubmitted {
		return false, false
	}
	return Grade(c.state.QuizData, c.state.QuizSelection), true
}

// LoadDocument replaces the session with one for documentID. A persisted
// snapshot is restored when present; otherwise the document is diagnosed and
// classified. The only error is ErrNoContent.
func (c *Controller) LoadDocument(ctx context.Context, documentID string) error {
	content, err := c.source.GetContent(ctx, documentID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoContent, err)
	}
	if content.Empty() {
		return ErrNoContent
	}

	var snap *Snapshot
	if c.loader != nil {
		snap, err = c.loader.Load(ctx, documentID)
		if err != nil {
			c.logger.Warn(logModule, "Snapshot load failed, starting fresh", map[string]interface{}{
				"document_id": documentID,
				"error":       err.Error(),
			})
			snap = nil
		}
	}

	c.mu.Lock()
	c.loaded = true
	c.content = content
	c.latest = make(map[RequestClass]uint64)
	c.inflight = 0
	c.docTypeExplicit = false

	needsClassification := true
	if snap != nil {
		c.state = restoreState(documentID, snap, c.resetMasteryOnRestore)
		needsClassification = !snap.DocType.Valid()
	} else {
		c.state = initialState(documentID)
	}
	needsDiagnosis := c.state.StudyMap == nil && c.state.Stage == StageDiagnosis
	c.emit()
	c.mu.Unlock()

	c.logger.Info(logModule, "Document loaded", map[string]interface{}{
		"document_id": documentID,
		"restored":    snap != nil,
		"has_text":    content.HasText(),
		"has_raw":     content.HasRaw(),
	})

	if needsDiagnosis {
		c.diagnose(ctx)
	}
	if needsClassification {
		c.classify(ctx)
	}
	return nil
}

func (c *Controller) diagnose(ctx context.Context) {
	c.mu.Lock()
	seq := c.begin(ClassDiagnosis)
	content := c.multimodalContent()
	c.mu.Unlock()

	dctx, cancel := context.WithTimeout(ctx, c.diagnosisTimeout)
	studyMap, err := c.gateway.Diagnose(dctx, content)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	stale := !c.current(ClassDiagnosis, seq)
	c.finish(seq)
	if stale {
		c.logger.Debug(logModule, "Discarded stale diagnosis", map[string]interface{}{"seq": seq})
		return
	}
	if err != nil || studyMap == nil {
		details := map[string]interface{}{"document_id": c.state.DocumentID}
		if err != nil {
			details["error"] = err.Error()
		}
		c.logger.Warn(logModule, "Diagnosis unavailable", details)
		return
	}

	sm := normalizeStudyMap(studyMap)
	c.state.StudyMap = sm
	c.state.WorkingPrerequisites = clonePrerequisites(sm.Prerequisites)
	c.emit()
	c.logger.Info(logModule, "Diagnosis complete", map[string]interface{}{
		"document_id":   c.state.DocumentID,
		"topic":         sm.Topic,
		"prerequisites": len(sm.Prerequisites),
	})
}

// classify is a background enrichment: it does not hold pendingRequest and
// never overrides a doc type the reader picked.
func (c *Controller) classify(ctx context.Context) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.latest[ClassClassify] = seq
	content := c.multimodalContent()
	c.mu.Unlock()

	docType, err := c.gateway.Classify(ctx, content)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(ClassClassify, seq) || c.docTypeExplicit {
		return
	}
	if err != nil || !docType.Valid() {
		details := map[string]interface{}{"document_id": c.state.DocumentID}
		if err != nil {
			details["error"] = err.Error()
		}
		c.logger.Warn(logModule, "Classification unavailable, keeping default doc type", details)
		return
	}
	c.state.DocType = docType
	c.emit()
}

// ToggleMastered flips one working prerequisite. Ignored outside diagnosis.
func (c *Controller) ToggleMastered(prerequisiteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded || c.state.Stage != StageDiagnosis {
		return
	}
	for i := range c.state.WorkingPrerequisites {
		if c.state.WorkingPrerequisites[i].ID == prerequisiteID {
			c.state.WorkingPrerequisites[i].Mastered = !c.state.WorkingPrerequisites[i].Mastered
			c.emit()
			return
		}
	}
}

// BeginAdaptiveLearning routes the reader to tutoring for unmastered
// prerequisites, or straight to the quiz when there are none.
func (c *Controller) BeginAdaptiveLearning(ctx context.Context) {
	c.mu.Lock()
	if !c.loaded || c.state.Stage != StageDiagnosis || c.pending() {
		c.mu.Unlock()
		return
	}

	var unmastered []string
	for _, p := range c.state.WorkingPrerequisites {
		if !p.Mastered {
			unmastered = append(unmastered, p.Concept)
		}
	}
	if len(unmastered) == 0 {
		c.mu.Unlock()
		c.EnterQuiz(ctx)
		return
	}

	from := c.setStage(StageTutoring)
	text := tutoringRequestText(unmastered)
	req := TutorRequest{
		Content:    c.chatContent(),
		Transcript: cloneTranscript(c.state.Transcript),
		Text:       text,
		Mode:       ModeTutoring,
		DocType:    c.state.DocType,
		Concepts:   unmastered,
	}
	c.appendMessage(RoleUser, text, ModeTutoring)
	seq := c.begin(ClassTutorTurn)
	c.emit()
	c.mu.Unlock()

	c.notify(ctx, from, StageTutoring)
	_ = c.exchange(ctx, seq, req)
}

// EnterQuiz generates a fresh gatekeeper question. It needs a study map and
// is only reachable from diagnosis or tutoring.
func (c *Controller) EnterQuiz(ctx context.Context) {
	c.mu.Lock()
	stage := c.state.Stage
	if !c.loaded || (stage != StageDiagnosis && stage != StageTutoring) || c.state.StudyMap == nil || c.pending() {
		c.mu.Unlock()
		return
	}

	c.state.QuizData = nil
	c.state.QuizSelection = nil
	c.state.QuizSubmitted = false
	from := c.setStage(StageQuiz)
	topic := c.state.StudyMap.Topic
	content := c.multimodalContent()
	seq := c.begin(ClassGatekeeperQuiz)
	c.emit()
	c.mu.Unlock()

	c.notify(ctx, from, StageQuiz)

	quiz, err := c.gateway.GatekeeperQuiz(ctx, content, topic)

	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.current(ClassGatekeeperQuiz, seq) && c.state.Stage == StageQuiz
	c.finish(seq)
	if !current {
		c.logger.Debug(logModule, "Discarded stale quiz", map[string]interface{}{"seq": seq})
		return
	}
	if err != nil || !quiz.Valid() {
		details := map[string]interface{}{"document_id": c.state.DocumentID, "topic": topic}
		if err != nil {
			details["error"] = err.Error()
		}
		c.logger.Warn(logModule, "Gatekeeper quiz unavailable", details)
		return
	}
	c.state.QuizData = cloneQuiz(quiz)
	c.emit()
}

func (c *Controller) SelectQuizOption(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Stage != StageQuiz || c.state.QuizSubmitted || c.state.QuizData == nil {
		return
	}
	if index < 0 || index >= len(c.state.QuizData.Options) {
		return
	}
	c.state.QuizSelection = &index
	c.emit()
}

// SubmitQuiz latches the current selection. Once submitted, the quiz instance
// is frozen.
func (c *Controller) SubmitQuiz() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Stage != StageQuiz || c.state.QuizSelection == nil || c.state.QuizSubmitted {
		return
	}
	c.state.QuizSubmitted = true
	c.emit()
	c.logger.Info(logModule, "Quiz submitted", map[string]interface{}{
		"document_id": c.state.DocumentID,
		"correct":     Grade(c.state.QuizData, c.state.QuizSelection),
	})
}

// EnterReading moves to the reading stage and asks for the kickoff overview.
// Outstanding quiz and tutoring replies are abandoned. Calling it while
// already reading does nothing.
func (c *Controller) EnterReading(ctx context.Context) {
	c.mu.Lock()
	if !c.loaded || c.state.Stage == StageReading {
		c.mu.Unlock()
		return
	}

	c.invalidate(ClassGatekeeperQuiz, ClassTutorTurn)
	from := c.setStage(StageReading)
	text := readingKickoffText(c.state.DocType)
	req := TutorRequest{
		Content:    c.multimodalContent(),
		Transcript: cloneTranscript(c.state.Transcript),
		Text:       text,
		Mode:       ModeReading,
		DocType:    c.state.DocType,
		Kickoff:    true,
	}
	c.appendMessage(RoleUser, text, ModeReading)
	seq := c.begin(ClassTutorTurn)
	c.emit()
	c.mu.Unlock()

	c.notify(ctx, from, StageReading)
	_ = c.exchange(ctx, seq, req)
}

// SkipToReading bypasses whatever the pre-reading flow is doing.
func (c *Controller) SkipToReading(ctx context.Context) {
	c.mu.Lock()
	stage := c.state.Stage
	loaded := c.loaded
	c.mu.Unlock()
	if !loaded {
		return
	}
	switch stage {
	case StageDiagnosis, StageTutoring, StageQuiz:
		c.EnterReading(ctx)
	}
}

// SetDocType changes the prompt family for later turns. Only while reading.
func (c *Controller) SetDocType(docType DocType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Stage != StageReading || !docType.Valid() {
		return
	}
	c.docTypeExplicit = true
	if c.state.DocType == docType {
		return
	}
	c.state.DocType = docType
	c.emit()
}

// --- sequencing ---

func (c *Controller) begin(class RequestClass) uint64 {
	c.seq++
	c.latest[class] = c.seq
	c.inflight = c.seq
	return c.seq
}

func (c *Controller) current(class RequestClass, seq uint64) bool {
	return c.latest[class] == seq
}

func (c *Controller) finish(seq uint64) {
	if c.inflight == seq {
		c.inflight = 0
	}
}

func (c *Controller) invalidate(classes ...RequestClass) {
	for _, class := range classes {
		delete(c.latest, class)
	}
}

func (c *Controller) pending() bool {
	return c.inflight != 0
}

// --- helpers (callers hold mu) ---

func (c *Controller) setStage(stage Stage) Stage {
	from := c.state.Stage
	c.state.Stage = stage
	return from
}

// multimodalContent prefers raw bytes; used for calls that read the document
// itself.
func (c *Controller) multimodalContent() Content {
	if c.content.HasRaw() {
		return Content{Raw: c.content.Raw, MIMEType: c.content.MIMEType}
	}
	return Content{Text: c.content.Text}
}

func (c *Controller) chatContent() Content {
	if c.content.HasText() {
		return Content{Text: c.content.Text}
	}
	return Content{Raw: c.content.Raw, MIMEType: c.content.MIMEType}
}

func (c *Controller) emit() {
	if c.observer == nil || !c.loaded {
		return
	}
	c.observer.Observe(c.state.DocumentID, snapshotOf(&c.state, c.now()))
}

func (c *Controller) notify(ctx context.Context, from, to Stage) {
	if from == to {
		return
	}
	c.logger.Info(logModule, "Stage changed", map[string]interface{}{
		"from": string(from),
		"to":   string(to),
	})
	if c.notifier != nil {
		c.notifier.StageChanged(ctx, c.documentID(), from, to)
	}
}

func (c *Controller) documentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.DocumentID
}

func normalizeStudyMap(in *StudyMap) *StudyMap {
	out := &StudyMap{
		Topic:           strings.TrimSpace(in.Topic),
		InitialBriefing: in.InitialBriefing,
		Prerequisites:   make([]Prerequisite, 0, len(in.Prerequisites)),
	}
	seen := make(map[string]bool)
	for _, p := range in.Prerequisites {
		concept := strings.TrimSpace(p.Concept)
		if concept == "" {
			continue
		}
		id := strings.TrimSpace(p.ID)
		if id == "" || seen[id] {
			id = fmt.Sprintf("p%d", len(out.Prerequisites)+1)
			for seen[id] {
				id += "_"
			}
		}
		seen[id] = true
		out.Prerequisites = append(out.Prerequisites, Prerequisite{ID: id, Concept: concept, Mastered: p.Mastered})
	}
	return out
}
