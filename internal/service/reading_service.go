package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"ai-reading-be/internal/dto"
	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/internal/repository/memory"
	"ai-reading-be/pkg/events"
	"ai-reading-be/pkg/persistence"
	"ai-reading-be/pkg/reading"

	"github.com/google/uuid"
)

const readingLogModule = "READING_SERVICE"

var ErrSessionNotFound = errors.New("reading session not found, open the document first")

// ContentSourceProvider hands out a per-user content source.
type ContentSourceProvider interface {
	ContentSource(userId uuid.UUID) reading.ContentSource
}

type ReadingOptions struct {
	DiagnosisTimeout      time.Duration
	ResetMasteryOnRestore bool
}

type IReadingService interface {
	Open(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error)
	Show(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error)
	ToggleMastered(ctx context.Context, userId, documentId uuid.UUID, prerequisiteId string) (*dto.ReadingSessionResponse, error)
	BeginAdaptiveLearning(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error)
	EnterQuiz(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error)
	SelectQuizOption(ctx context.Context, userId, documentId uuid.UUID, req *dto.SelectQuizOptionRequest) (*dto.ReadingSessionResponse, error)
	SubmitQuiz(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error)
	EnterReading(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error)
	SkipToReading(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error)
	SetDocType(ctx context.Context, userId, documentId uuid.UUID, req *dto.SetDocTypeRequest) (*dto.ReadingSessionResponse, error)
	Send(ctx context.Context, userId, documentId uuid.UUID, req *dto.SendMessageRequest) (*dto.ReadingSessionResponse, error)
	Close(ctx context.Context, userId, documentId uuid.UUID) error
	Discard(userId, documentId uuid.UUID)
}

type readingService struct {
	sessions  *memory.SessionRepository
	gateway   reading.Gateway
	sources   ContentSourceProvider
	store     persistence.Store
	debouncer *persistence.Debouncer
	publisher EventPublisher
	logger    logger.ILogger
	opts      ReadingOptions

	// guards get-or-create on sessions
	openMu sync.Mutex
}

func NewReadingService(
	sessions *memory.SessionRepository,
	gateway reading.Gateway,
	sources ContentSourceProvider,
	store persistence.Store,
	debouncer *persistence.Debouncer,
	publisher EventPublisher,
	log logger.ILogger,
	opts ReadingOptions,
) IReadingService {
	s := &readingService{
		sessions:  sessions,
		gateway:   gateway,
		sources:   sources,
		store:     store,
		debouncer: debouncer,
		publisher: publisher,
		logger:    log,
		opts:      opts,
	}
	sessions.OnEvicted(func(key string, _ *reading.Controller) {
		debouncer.Flush(key)
	})
	return s
}

func sessionKey(userId, documentId uuid.UUID) string {
	return persistence.Key(userId.String(), documentId.String())
}

// Open returns the live session for the document, creating it (restore or
// diagnose) when there is none.
func (s *readingService) Open(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error) {
	key := sessionKey(userId, documentId)

	s.openMu.Lock()
	if c, ok := s.sessions.Get(key); ok {
		s.openMu.Unlock()
		return toSessionResponse(c), nil
	}
	c := s.newController(userId)
	s.sessions.Save(key, c)
	s.openMu.Unlock()

	if err := c.LoadDocument(ctx, documentId.String()); err != nil {
		s.sessions.Delete(key)
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	s.logger.Info(readingLogModule, "Reading session opened", map[string]interface{}{
		"user_id":     userId.String(),
		"document_id": documentId.String(),
		"stage":       string(c.State().Stage),
	})
	return toSessionResponse(c), nil
}

func (s *readingService) newController(userId uuid.UUID) *reading.Controller {
	userID := userId.String()
	opts := []reading.Option{
		reading.WithSnapshotLoader(persistence.Loader(s.store, userID)),
		reading.WithObserver(s.debouncer.ForSession(userID)),
		reading.WithLogger(s.logger),
		reading.WithDiagnosisTimeout(s.opts.DiagnosisTimeout),
		reading.WithResetMasteryOnRestore(s.opts.ResetMasteryOnRestore),
	}
	if s.publisher != nil {
		opts = append(opts, reading.WithNotifier(newStageNotifier(s.publisher, userID, s.logger)))
	}
	return reading.NewController(s.gateway, s.sources.ContentSource(userId), opts...)
}

func (s *readingService) session(userId, documentId uuid.UUID) (*reading.Controller, error) {
	c, ok := s.sessions.Get(sessionKey(userId, documentId))
	if !ok || !c.Loaded() {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// apply runs op against the live session and returns the resulting view.
func (s *readingService) apply(userId, documentId uuid.UUID, op func(c *reading.Controller) error) (*dto.ReadingSessionResponse, error) {
	c, err := s.session(userId, documentId)
	if err != nil {
		return nil, err
	}
	if err := op(c); err != nil {
		return nil, err
	}
	return toSessionResponse(c), nil
}

func (s *readingService) Show(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error) {
	return s.apply(userId, documentId, func(*reading.Controller) error { return nil })
}

func (s *readingService) ToggleMastered(ctx context.Context, userId, documentId uuid.UUID, prerequisiteId string) (*dto.ReadingSessionResponse, error) {
	return s.apply(userId, documentId, func(c *reading.Controller) error {
		c.ToggleMastered(prerequisiteId)
		return nil
	})
}

func (s *readingService) BeginAdaptiveLearning(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error) {
	return s.apply(userId, documentId, func(c *reading.Controller) error {
		c.BeginAdaptiveLearning(ctx)
		return nil
	})
}

func (s *readingService) EnterQuiz(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error) {
	return s.apply(userId, documentId, func(c *reading.Controller) error {
		c.EnterQuiz(ctx)
		return nil
	})
}

func (s *readingService) SelectQuizOption(ctx context.Context, userId, documentId uuid.UUID, req *dto.SelectQuizOptionRequest) (*dto.ReadingSessionResponse, error) {
	return s.apply(userId, documentId, func(c *reading.Controller) error {
		c.SelectQuizOption(*req.Index)
		return nil
	})
}

// SubmitQuiz latches the answer and publishes READING_QUIZ_GRADED the first
// time the quiz is graded.
func (s *readingService) SubmitQuiz(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error) {
	return s.apply(userId, documentId, func(c *reading.Controller) error {
		_, wasGraded := c.QuizResult()
		c.SubmitQuiz()
		correct, graded := c.QuizResult()
		if graded && !wasGraded {
			topic := ""
			if m := c.State().StudyMap; m != nil {
				topic = m.Topic
			}
			publishEvent(ctx, s.publisher, s.logger, events.QuizGraded{
				UserID:     userId.String(),
				DocumentID: documentId.String(),
				Topic:      topic,
				Correct:    correct,
				OccurredAt: time.Now(),
			})
		}
		return nil
	})
}

func (s *readingService) EnterReading(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error) {
	return s.apply(userId, documentId, func(c *reading.Controller) error {
		c.EnterReading(ctx)
		return nil
	})
}

func (s *readingService) SkipToReading(ctx context.Context, userId, documentId uuid.UUID) (*dto.ReadingSessionResponse, error) {
	return s.apply(userId, documentId, func(c *reading.Controller) error {
		c.SkipToReading(ctx)
		return nil
	})
}

func (s *readingService) SetDocType(ctx context.Context, userId, documentId uuid.UUID, req *dto.SetDocTypeRequest) (*dto.ReadingSessionResponse, error) {
	return s.apply(userId, documentId, func(c *reading.Controller) error {
		c.SetDocType(reading.DocType(req.DocType))
		return nil
	})
}

func (s *readingService) Send(ctx context.Context, userId, documentId uuid.UUID, req *dto.SendMessageRequest) (*dto.ReadingSessionResponse, error) {
	return s.apply(userId, documentId, func(c *reading.Controller) error {
		return c.Send(ctx, req.Text, reading.Mode(req.Mode))
	})
}

// Close ends the live session; its pending snapshot is persisted.
func (s *readingService) Close(ctx context.Context, userId, documentId uuid.UUID) error {
	key := sessionKey(userId, documentId)
	if _, ok := s.sessions.Get(key); !ok {
		return ErrSessionNotFound
	}
	s.sessions.Delete(key)
	s.logger.Info(readingLogModule, "Reading session closed", map[string]interface{}{
		"user_id":     userId.String(),
		"document_id": documentId.String(),
	})
	return nil
}

// Discard ends the live session and drops its pending snapshot.
func (s *readingService) Discard(userId, documentId uuid.UUID) {
	key := sessionKey(userId, documentId)
	s.debouncer.Cancel(key)
	s.sessions.Delete(key)
}
