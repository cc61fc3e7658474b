package service

import (
	"context"
	"fmt"
	"time"

	"ragone-be/internal/dto"
	"ragone-be/internal/pkg/logger"
	"ragone-be/pkg/events"
	pktNats "ragone-be/pkg/nats"

	"github.com/google/uuid"
)

const relayModule = "EVENTS"

// StatusRelayService forwards profile generation events from the bus to the
// owner's websocket connections.
type StatusRelayService struct {
	subscriber *pktNats.Subscriber
	delivery   ProfileStatusDelivery
	logger     logger.ILogger
}

func NewStatusRelayService(sub *pktNats.Subscriber, delivery ProfileStatusDelivery, log logger.ILogger) *StatusRelayService {
	return &StatusRelayService{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *StatusRelayService) Start() {
	err := s.subscriber.Subscribe("PROFILE_GENERATION_*", "profile-status-relay", s.HandleEvent)
	if err != nil {
		s.logger.Error(relayModule, "Failed to start status relay", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info(relayModule, "Status relay started", nil)
}

// HandleEvent converts a profile event into a status message. Malformed
// events are dropped rather than retried.
func (s *StatusRelayService) HandleEvent(_ context.Context, event events.Event) error {
	payload := event.Payload()

	userID, err := uuid.Parse(fmt.Sprint(payload["user_id"]))
	if err != nil {
		s.logger.Warn(relayModule, "Event without user_id", map[string]interface{}{"type": event.EventType()})
		return nil
	}
	characterID, err := uuid.Parse(fmt.Sprint(payload["character_id"]))
	if err != nil {
		s.logger.Warn(relayModule, "Event without character_id", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	msg := dto.ProfileStatusMessage{
		CharacterId: characterID,
		Status:      stringField(payload, "status"),
		Error:       stringField(payload, "error"),
		UpdatedAt:   event.Timestamp(),
	}
	// JSON numbers decode as float64
	if v, ok := payload["version"].(float64); ok {
		msg.Version = int(v)
	}
	if msg.UpdatedAt.IsZero() {
		msg.UpdatedAt = time.Now()
	}

	if s.delivery != nil {
		s.delivery.Send(userID, msg)
	}
	return nil
}

func stringField(payload map[string]interface{}, key string) string {
	v, _ := payload[key].(string)
	return v
}
