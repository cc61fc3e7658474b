package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ragone-be/internal/dto"
	"ragone-be/internal/entity"
	"ragone-be/internal/pkg/logger"
	"ragone-be/internal/repository/specification"
	"ragone-be/internal/repository/unitofwork"
	"ragone-be/pkg/character/profile"
	"ragone-be/pkg/events"
	pktNats "ragone-be/pkg/nats"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const profileModule = "PROFILE"

// ProfileGenerator is implemented by *profile.Pipeline.
type ProfileGenerator interface {
	CreateDraft(ctx context.Context, ch *entity.Character) (*entity.CharacterProfile, error)
	Generate(ctx context.Context, ch *entity.Character) (*entity.CharacterProfile, error)
	RegenerateSystemPrompt(ctx context.Context, ch *entity.Character, tmpl *profile.TemplateConfig) (*entity.CharacterProfile, error)
	ComposePreview(ctx context.Context, ch *entity.Character, tmpl *profile.TemplateConfig) (string, error)
	GetProfile(ctx context.Context, characterId uuid.UUID) (*entity.CharacterProfile, error)
	UpdateProfile(ctx context.Context, characterId uuid.UUID, patch profile.Patch) (*entity.CharacterProfile, error)
}

// ProfileStatusDelivery pushes status changes to connected watchers.
// Typically implemented by the WebSocket Hub.
type ProfileStatusDelivery interface {
	Send(userID uuid.UUID, msg dto.ProfileStatusMessage)
}

type IProfileService interface {
	// CreateDraft persists the empty DRAFT profile of a new character.
	CreateDraft(ctx context.Context, ch *entity.Character) error
	// RequestGeneration enqueues a background generation job.
	RequestGeneration(ctx context.Context, ch *entity.Character, reason string) error
	// ProcessJob runs one dequeued job.
	ProcessJob(ctx context.Context, job dto.PublishGenerateProfileMessage) error
	// Generate runs generation now. Concurrent calls for the same character
	// share one run.
	Generate(ctx context.Context, characterId uuid.UUID) (*entity.CharacterProfile, error)
	IsGenerating(characterId uuid.UUID) bool
	// RegenerateSystemPrompt recomposes the system prompt; nil tmpl uses the configured layout.
	RegenerateSystemPrompt(ctx context.Context, ch *entity.Character, tmpl *profile.TemplateConfig) (*entity.CharacterProfile, error)
	PreviewSystemPrompt(ctx context.Context, ch *entity.Character, tmpl *profile.TemplateConfig) (string, error)
	GetProfile(ctx context.Context, characterId uuid.UUID) (*entity.CharacterProfile, error)
	UpdateProfile(ctx context.Context, characterId uuid.UUID, patch profile.Patch) (*entity.CharacterProfile, error)
}

type profileService struct {
	uowFactory       unitofwork.RepositoryFactory
	generator        ProfileGenerator
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	delivery         ProfileStatusDelivery
	logger           logger.ILogger

	group   singleflight.Group
	mu      sync.Mutex
	queued  map[uuid.UUID]struct{}
	running map[uuid.UUID]struct{}
}

func NewProfileService(
	uowFactory unitofwork.RepositoryFactory,
	generator ProfileGenerator,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	delivery ProfileStatusDelivery,
	log logger.ILogger,
) IProfileService {
	return &profileService{
		uowFactory:       uowFactory,
		generator:        generator,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		delivery:         delivery,
		logger:           log,
		queued:           make(map[uuid.UUID]struct{}),
		running:          make(map[uuid.UUID]struct{}),
	}
}

// NewProfileStore adapts the unit of work to the pipeline's storage port.
func NewProfileStore(uowFactory unitofwork.RepositoryFactory) profile.ProfileStore {
	return &profileStore{uowFactory: uowFactory}
}

type profileStore struct {
	uowFactory unitofwork.RepositoryFactory
}

func (ps *profileStore) FindByCharacterId(ctx context.Context, characterId uuid.UUID) (*entity.CharacterProfile, error) {
	return ps.uowFactory.NewUnitOfWork(ctx).CharacterProfileRepository().FindByCharacterId(ctx, characterId)
}

func (ps *profileStore) Save(ctx context.Context, p *entity.CharacterProfile) error {
	return ps.uowFactory.NewUnitOfWork(ctx).CharacterProfileRepository().Save(ctx, p)
}

func (s *profileService) IsGenerating(characterId uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, q := s.queued[characterId]
	_, r := s.running[characterId]
	return q || r
}

func (s *profileService) RequestGeneration(ctx context.Context, ch *entity.Character, reason string) error {
	s.mu.Lock()
	_, q := s.queued[ch.Id]
	_, r := s.running[ch.Id]
	if q || r {
		s.mu.Unlock()
		return ErrProfileGenerating
	}
	s.queued[ch.Id] = struct{}{}
	s.mu.Unlock()

	msgJson, err := json.Marshal(dto.PublishGenerateProfileMessage{
		CharacterId: ch.Id,
		UserId:      ch.UserId,
		Reason:      reason,
	})
	if err == nil {
		err = s.publisherService.Publish(ctx, msgJson)
	}
	if err != nil {
		s.dequeue(ch.Id)
		return fmt.Errorf("enqueue profile generation: %w", err)
	}

	s.logger.Info(profileModule, "Profile generation queued", map[string]interface{}{
		"character_id": ch.Id,
		"reason":       reason,
	})
	return nil
}

func (s *profileService) dequeue(characterId uuid.UUID) {
	s.mu.Lock()
	delete(s.queued, characterId)
	s.mu.Unlock()
}

func (s *profileService) ProcessJob(ctx context.Context, job dto.PublishGenerateProfileMessage) error {
	defer s.dequeue(job.CharacterId)
	_, err := s.Generate(ctx, job.CharacterId)
	return err
}

func (s *profileService) Generate(ctx context.Context, characterId uuid.UUID) (*entity.CharacterProfile, error) {
	resCh := s.group.DoChan(characterId.String(), func() (interface{}, error) {
		s.mu.Lock()
		s.running[characterId] = struct{}{}
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.running, characterId)
			s.mu.Unlock()
		}()

		// the shared run must outlive any single caller
		return s.generate(context.WithoutCancel(ctx), characterId)
	})

	select {
	case res := <-resCh:
		prof, _ := res.Val.(*entity.CharacterProfile)
		return prof, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *profileService) generate(ctx context.Context, characterId uuid.UUID) (*entity.CharacterProfile, error) {
	ch, err := s.loadCharacter(ctx, characterId)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, ch, events.ProfileGenerationStarted, dto.ProfileStatusMessage{
		CharacterId: ch.Id,
		Status:      string(entity.ProfileStatusGenerating),
		UpdatedAt:   time.Now(),
	})

	started := time.Now()
	prof, genErr := s.generator.Generate(ctx, ch)

	msg := dto.ProfileStatusMessage{CharacterId: ch.Id, UpdatedAt: time.Now()}
	if prof != nil {
		msg.Status = string(prof.Status)
		msg.Version = prof.Version
	}
	if genErr != nil {
		msg.Status = string(entity.ProfileStatusFailed)
		msg.Error = genErr.Error()
		s.logger.Error(profileModule, "Profile generation failed", map[string]interface{}{
			"character_id": ch.Id,
			"error":        genErr.Error(),
		})
		s.notify(ctx, ch, events.ProfileGenerationFailed, msg)
		return prof, genErr
	}

	s.logger.Info(profileModule, "Profile generated", map[string]interface{}{
		"character_id": ch.Id,
		"version":      prof.Version,
		"duration_ms":  time.Since(started).Milliseconds(),
	})
	s.notify(ctx, ch, events.ProfileGenerationCompleted, msg)
	return prof, nil
}

func (s *profileService) loadCharacter(ctx context.Context, characterId uuid.UUID) (*entity.Character, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	ch, err := uow.CharacterRepository().FindOne(ctx, specification.ByID{ID: characterId})
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrCharacterNotFound
	}
	return ch, nil
}

// notify publishes the domain event; the status relay turns it into a
// websocket push. Without NATS the push goes straight to the hub.
func (s *profileService) notify(ctx context.Context, ch *entity.Character, eventType string, msg dto.ProfileStatusMessage) {
	if s.eventPublisher != nil {
		evt := events.New(eventType, map[string]interface{}{
			"character_id": ch.Id.String(),
			"user_id":      ch.UserId.String(),
			"status":       msg.Status,
			"version":      msg.Version,
			"error":        msg.Error,
		})
		err := s.eventPublisher.Publish(ctx, evt)
		if err == nil {
			return
		}
		s.logger.Warn(profileModule, "Failed to publish profile event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
	if s.delivery != nil {
		s.delivery.Send(ch.UserId, msg)
	}
}

func (s *profileService) CreateDraft(ctx context.Context, ch *entity.Character) error {
	_, err := s.generator.CreateDraft(ctx, ch)
	return err
}

func (s *profileService) RegenerateSystemPrompt(ctx context.Context, ch *entity.Character, tmpl *profile.TemplateConfig) (*entity.CharacterProfile, error) {
	if tmpl != nil {
		if err := tmpl.Validate(); err != nil {
			return nil, err
		}
	}
	if s.IsGenerating(ch.Id) {
		return nil, ErrProfileGenerating
	}
	prof, err := s.generator.RegenerateSystemPrompt(ctx, ch, tmpl)
	if err != nil {
		return nil, mapProfileErr(err)
	}
	return prof, nil
}

func (s *profileService) PreviewSystemPrompt(ctx context.Context, ch *entity.Character, tmpl *profile.TemplateConfig) (string, error) {
	return s.generator.ComposePreview(ctx, ch, tmpl)
}

func (s *profileService) GetProfile(ctx context.Context, characterId uuid.UUID) (*entity.CharacterProfile, error) {
	prof, err := s.generator.GetProfile(ctx, characterId)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return nil, ErrProfileNotFound
	}
	return prof, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, characterId uuid.UUID, patch profile.Patch) (*entity.CharacterProfile, error) {
	if s.IsGenerating(characterId) {
		return nil, ErrProfileGenerating
	}
	prof, err := s.generator.UpdateProfile(ctx, characterId, patch)
	if err != nil {
		return nil, mapProfileErr(err)
	}
	return prof, nil
}

func mapProfileErr(err error) error {
	if errors.Is(err, profile.ErrProfileNotFound) {
		return ErrProfileNotFound
	}
	return err
}
