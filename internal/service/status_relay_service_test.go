package service

import (
	"context"
	"testing"
	"time"

	"ragone-be/internal/pkg/logger"
	"ragone-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRelayService_HandleEvent(t *testing.T) {
	delivery := &recordingDelivery{}
	relay := NewStatusRelayService(nil, delivery, logger.NewNopLogger())

	userID, characterID := uuid.New(), uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evt := events.BaseEvent{
		Type: events.ProfileGenerationCompleted,
		Data: map[string]interface{}{
			"user_id":      userID.String(),
			"character_id": characterID.String(),
			"status":       "COMPLETED",
			"version":      float64(3),
			"error":        "",
		},
		OccurredAt: at,
	}

	require.NoError(t, relay.HandleEvent(context.Background(), evt))
	require.Len(t, delivery.sent, 1)
	assert.Equal(t, userID, delivery.to[0])

	msg := delivery.sent[0]
	assert.Equal(t, characterID, msg.CharacterId)
	assert.Equal(t, "COMPLETED", msg.Status)
	assert.Equal(t, 3, msg.Version)
	assert.Equal(t, at, msg.UpdatedAt)
}

func TestStatusRelayService_DropsMalformedEvents(t *testing.T) {
	delivery := &recordingDelivery{}
	relay := NewStatusRelayService(nil, delivery, logger.NewNopLogger())

	for name, data := range map[string]map[string]interface{}{
		"no user":      {"character_id": uuid.NewString()},
		"bad user":     {"user_id": "nope", "character_id": uuid.NewString()},
		"no character": {"user_id": uuid.NewString()},
	} {
		t.Run(name, func(t *testing.T) {
			err := relay.HandleEvent(context.Background(), events.New(events.ProfileGenerationFailed, data))
			assert.NoError(t, err)
		})
	}
	assert.Empty(t, delivery.sent)
}

func TestStatusRelayService_DefaultsTimestamp(t *testing.T) {
	delivery := &recordingDelivery{}
	relay := NewStatusRelayService(nil, delivery, logger.NewNopLogger())

	evt := events.BaseEvent{
		Type: events.ProfileGenerationStarted,
		Data: map[string]interface{}{"user_id": uuid.NewString(), "character_id": uuid.NewString(), "status": "GENERATING"},
	}
	require.NoError(t, relay.HandleEvent(context.Background(), evt))
	require.Len(t, delivery.sent, 1)
	assert.False(t, delivery.sent[0].UpdatedAt.IsZero())
}
