package service

import (
	"context"
	"encoding/json"
	"errors"

	"ragone-be/internal/dto"
	"ragone-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	profileService IProfileService
	logger         logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	profileService IProfileService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		profileService: profileService,
		logger:         log,
	}
}

// Consume processes profile generation jobs until ctx is cancelled.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
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

// processMessage always acks; failures are recorded on the profile.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload dto.PublishGenerateProfileMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(profileModule, "Failed to unmarshal generation job", map[string]interface{}{"error": err.Error()})
		return
	}

	cs.logger.Info(profileModule, "Processing profile generation job", map[string]interface{}{
		"character_id": payload.CharacterId,
		"reason":       payload.Reason,
	})

	err := cs.profileService.ProcessJob(ctx, payload)
	switch {
	case err == nil:
	case errors.Is(err, ErrCharacterNotFound):
		cs.logger.Warn(profileModule, "Character vanished before generation", map[string]interface{}{"character_id": payload.CharacterId})
	default:
		cs.logger.Error(profileModule, "Profile generation job failed", map[string]interface{}{
			"character_id": payload.CharacterId,
			"error":        err.Error(),
		})
	}
}
