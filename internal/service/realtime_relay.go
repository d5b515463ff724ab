package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/events"
)

// ChannelPublisher is the subset of the Redis client used for fan-out.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RealtimeRelay forwards created notifications to a per-employee Redis channel.
type RealtimeRelay struct {
	publisher ChannelPublisher
	prefix    string
	logger    *zap.Logger
}

// NewRealtimeRelay builds the relay.
func NewRealtimeRelay(publisher ChannelPublisher, prefix string, logger *zap.Logger) *RealtimeRelay {
	if prefix == "" {
		prefix = "notifications:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeRelay{publisher: publisher, prefix: prefix, logger: logger}
}

// Channel returns the channel name for an employee.
func (r *RealtimeRelay) Channel(employeeID string) string {
	return r.prefix + employeeID
}

// Register subscribes the relay to notification events.
func (r *RealtimeRelay) Register(dispatcher events.Dispatcher) {
	if dispatcher == nil || r.publisher == nil {
		return
	}
	dispatcher.Subscribe(events.EventNotificationCreated, r.handleNotificationCreated)
}

func (r *RealtimeRelay) handleNotificationCreated(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	channel := r.Channel(event.EmployeeID)
	if err := r.publisher.Publish(ctx, channel, body).Err(); err != nil {
		r.logger.Warn("realtime relay publish failed", zap.String("channel", channel), zap.Error(err))
		return err
	}
	return nil
}
