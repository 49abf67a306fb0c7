package service

import (
	"context"
	"errors"

	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/pkg/persistence"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerLogModule = "SNAPSHOT_CONSUMER"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// snapshotConsumerService drains debounced snapshots from the bus into the
// snapshot store.
type snapshotConsumerService struct {
	subscriber message.Subscriber
	topicName  string
	store      persistence.Store
	logger     logger.ILogger
}

func NewSnapshotConsumerService(
	subscriber message.Subscriber,
	topicName string,
	store persistence.Store,
	log logger.ILogger,
) IConsumerService {
	return &snapshotConsumerService{
		subscriber: subscriber,
		topicName:  topicName,
		store:      store,
		logger:     log,
	}
}

func (cs *snapshotConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *snapshotConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	env, err := persistence.Decode(msg)
	if err != nil {
		cs.logger.Error(consumerLogModule, "Dropping malformed snapshot message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// Ack invalid messages to prevent infinite retry
		msg.Ack()
		return
	}

	if err := cs.store.Save(ctx, env); err != nil {
		level := cs.logger.Error
		if errors.Is(err, context.Canceled) {
			level = cs.logger.Warn
		}
		level(consumerLogModule, "Failed to save snapshot", map[string]interface{}{
			"document_id": env.DocumentID,
			"user_id":     env.UserID,
			"error":       err.Error(),
		})
		msg.Nack()
		return
	}

	cs.logger.Debug(consumerLogModule, "Snapshot saved", map[string]interface{}{
		"document_id": env.DocumentID,
		"stage":       string(env.Snapshot.Stage),
	})
	msg.Ack()
}
