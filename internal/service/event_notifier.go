package service

import (
	"context"
	"errors"
	"time"

	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/pkg/events"
	"ai-reading-be/pkg/reading"
)

// EventPublisher is satisfied by *nats.Publisher and *websocket.Hub.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// stageNotifier forwards stage transitions of one user's session as
// READING_STAGE_CHANGED events. Failures are logged only.
type stageNotifier struct {
	publisher EventPublisher
	userID    string
	logger    logger.ILogger
}

func newStageNotifier(publisher EventPublisher, userID string, log logger.ILogger) reading.Notifier {
	return stageNotifier{publisher: publisher, userID: userID, logger: log}
}

func (n stageNotifier) StageChanged(ctx context.Context, documentID string, from, to reading.Stage) {
	publishEvent(ctx, n.publisher, n.logger, events.StageChanged{
		UserID:     n.userID,
		DocumentID: documentID,
		From:       string(from),
		To:         string(to),
		OccurredAt: time.Now(),
	})
}

func publishEvent(ctx context.Context, publisher EventPublisher, log logger.ILogger, event events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Warn(readingLogModule, "Failed to publish event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

// FanoutPublisher publishes to every non-nil publisher and returns the
// joined errors.
type FanoutPublisher []EventPublisher

func NewFanoutPublisher(publishers ...EventPublisher) FanoutPublisher {
	var out FanoutPublisher
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (f FanoutPublisher) Publish(ctx context.Context, event events.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
