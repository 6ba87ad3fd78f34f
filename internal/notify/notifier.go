package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wizone/it-support-api/internal/events"
)

// Publisher is the subset of the Redis client used to fan out notifications.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Notifier logs task events and forwards them to the push gateway channel.
type Notifier struct {
	publisher Publisher
	channel   string
	logger    *zap.Logger
}

// NewNotifier creates a Notifier. With a nil publisher events are only logged.
func NewNotifier(publisher Publisher, channel string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
	}
}

// Register subscribes the notifier to every task event.
func (n *Notifier) Register(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range events.AllTypes {
		dispatcher.Subscribe(eventType, n.Handle)
	}
}

// Handle logs the event and publishes it as JSON.
func (n *Notifier) Handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Uint64("task_id", event.TaskID),
		zap.String("ticket_number", event.TicketNumber),
		zap.Any("payload", event.Payload))

	if n.publisher == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := n.publisher.Publish(ctx, n.channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
