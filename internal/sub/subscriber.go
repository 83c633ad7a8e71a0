package sub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chedlikh/greenspace-notify/internal/domain"
	"github.com/chedlikh/greenspace-notify/internal/usecase"
)

// NotificationEvent is the payload other services publish on the event
// channel to get a notification stored and pushed.
type NotificationEvent struct {
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSubscriber turns redis pub/sub events into stored notifications.
type EventSubscriber struct {
	rdb     *redis.Client
	uc      *usecase.NotificationUsecase
	channel string
	pubsub  *redis.PubSub
}

func NewEventSubscriber(rdb *redis.Client, uc *usecase.NotificationUsecase, channel string) *EventSubscriber {
	return &EventSubscriber{
		rdb:     rdb,
		uc:      uc,
		channel: channel,
	}
}

// Start subscribes to the event channel and processes events until ctx ends.
func (s *EventSubscriber) Start(ctx context.Context) error {
	s.pubsub = s.rdb.Subscribe(ctx, s.channel)

	// Wait for confirmation that subscription is created
	if _, err := s.pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	log.Printf("[EventSubscriber] subscribed to channel: %s", s.channel)

	go s.listen(ctx)
	return nil
}

func (s *EventSubscriber) listen(ctx context.Context) {
	ch := s.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			log.Println("[EventSubscriber] stopping subscriber...")
			s.pubsub.Close()
			return

		case msg := <-ch:
			if msg == nil {
				continue
			}

			var event NotificationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[EventSubscriber] failed to parse event: %v", err)
				continue
			}

			s.processEvent(ctx, &event)
		}
	}
}

// processEvent stores and pushes one event. Unknown event types are skipped.
func (s *EventSubscriber) processEvent(ctx context.Context, event *NotificationEvent) {
	switch event.EventType {
	case "notification.created":
		if event.UserID == "" {
			log.Printf("[EventSubscriber] event without user_id, skipping")
			return
		}
		n := &domain.Notification{
			UserID:  event.UserID,
			Type:    event.Type,
			Message: event.Message,
		}
		if _, err := s.uc.CreateNotification(ctx, n); err != nil {
			log.Printf("[EventSubscriber] create for user=%s failed: %v", event.UserID, err)
			return
		}
		log.Printf("[EventSubscriber] stored %s notification for user=%s", event.Type, event.UserID)

	default:
		log.Printf("[EventSubscriber] unknown event type: %s", event.EventType)
	}
}

// Stop gracefully stops the subscriber
func (s *EventSubscriber) Stop() error {
	if s.pubsub != nil {
		return s.pubsub.Close()
	}
	return nil
}
