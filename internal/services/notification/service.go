package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	EventQRRedeemed     = "qr.redeemed"
	EventQRRedeemFailed = "qr.redeem_failed"

	channelPrefix = "notifications:"
)

// Publisher is the subset of the redis client used to fan out events.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Event is the envelope published for every notification.
type Event struct {
	Recipient string                 `json:"recipient"`
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	SentAt    time.Time              `json:"sent_at"`
}

// Service hands notifications to the delivery workers over redis pub/sub.
// Without a publisher it only logs.
type Service struct {
	publisher Publisher
	logger    *zap.Logger
}

// NewService creates a new notification service.
func NewService(publisher Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{publisher: publisher, logger: logger}
}

// Notify publishes eventType for recipient.
func (s *Service) Notify(ctx context.Context, recipient, eventType string, data map[string]interface{}) error {
	if recipient == "" {
		return nil
	}
	event := Event{Recipient: recipient, Type: eventType, Data: data, SentAt: time.Now().UTC()}
	s.logger.Info("notify", zap.String("recipient", recipient), zap.String("event", eventType))

	if s.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := s.publisher.Publish(ctx, channelPrefix+recipient, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
