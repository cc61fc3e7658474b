package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ragone-be/internal/dto"
	"ragone-be/internal/entity"
	"ragone-be/internal/pkg/logger"
	"ragone-be/internal/repository/scope"
	"ragone-be/internal/repository/specification"
	"ragone-be/internal/repository/unitofwork"
	"ragone-be/pkg/character/profile"

	"github.com/google/uuid"
)

const characterModule = "CHARACTER"

type ICharacterService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateCharacterRequest) (*dto.CharacterResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.CharacterResponse, error)
	List(ctx context.Context, userId uuid.UUID, req *dto.ListCharactersRequest) (*dto.PageResponse[*dto.CharacterResponse], error)
	ListActive(ctx context.Context, userId uuid.UUID) ([]*dto.CharacterResponse, error)
	ListPublic(ctx context.Context, req dto.PageRequest) (*dto.PageResponse[*dto.CharacterResponse], error)
	CheckName(ctx context.Context, userId uuid.UUID, name string, excludeId *uuid.UUID) (*dto.NameAvailabilityResponse, error)
	Update(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.UpdateCharacterRequest) (*dto.CharacterResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	Activate(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.CharacterResponse, error)
	Deactivate(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.CharacterResponse, error)

	RegenerateProfile(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	GetProfile(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.CharacterProfileResponse, error)
	UpdateProfile(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.UpdateCharacterProfileRequest) (*dto.CharacterProfileResponse, error)
	RegenerateSystemPrompt(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.TemplateConfigRequest) (*dto.CharacterProfileResponse, error)
	GetSystemPrompt(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.SystemPromptResponse, error)
	PreviewSystemPrompt(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.TemplateConfigRequest) (*dto.SystemPromptResponse, error)

	TemplatePresets() map[string]*dto.TemplateConfigResponse
	ValidateTemplateConfig(req *dto.TemplateConfigRequest) (*dto.TemplateConfigResponse, error)
}

type characterService struct {
	uowFactory     unitofwork.RepositoryFactory
	profileService IProfileService
	logger         logger.ILogger
}

func NewCharacterService(
	uowFactory unitofwork.RepositoryFactory,
	profileService IProfileService,
	log logger.ILogger,
) ICharacterService {
	return &characterService{
		uowFactory:     uowFactory,
		profileService: profileService,
		logger:         log,
	}
}

func (c *characterService) ownedCharacter(ctx context.Context, uow unitofwork.UnitOfWork, userId, id uuid.UUID) (*entity.Character, error) {
	ch, err := uow.CharacterRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrCharacterNotFound
	}
	return ch, nil
}

func (c *characterService) nameTaken(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, name string, excludeId *uuid.UUID) (bool, error) {
	specs := []specification.Specification{
		specification.UserOwnedBy{UserID: userId},
		specification.ByName{Name: name},
	}
	if excludeId != nil {
		specs = append(specs, specification.ExcludeID{ID: *excludeId})
	}
	n, err := uow.CharacterRepository().Count(ctx, specs...)
	return n > 0, err
}

func (c *characterService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateCharacterRequest) (*dto.CharacterResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	kb, err := uow.KnowledgeBaseRepository().FindOne(ctx,
		specification.ByID{ID: req.KnowledgeBaseId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if kb == nil {
		return nil, ErrKnowledgeBaseNotFound
	}

	name := strings.TrimSpace(req.Name)
	taken, err := c.nameTaken(ctx, uow, userId, name, nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateCharacterName
	}

	ch := &entity.Character{
		Id:                uuid.New(),
		UserId:            userId,
		KnowledgeBaseId:   kb.Id,
		KnowledgeBaseName: kb.Name,
		Name:              name,
		Description:       req.Description,
		AvatarUrl:         req.AvatarUrl,
		Status:            entity.CharacterStatusDraft,
		IsPublic:          req.IsPublic,
		CreatedAt:         time.Now(),
	}
	if err := uow.CharacterRepository().Create(ctx, ch); err != nil {
		return nil, fmt.Errorf("create character: %w", err)
	}

	if err := c.profileService.CreateDraft(ctx, ch); err != nil {
		c.logger.Warn(characterModule, "Failed to create draft profile", map[string]interface{}{
			"character_id": ch.Id,
			"error":        err.Error(),
		})
	}

	// generation failures stay visible on the profile; creation still succeeds
	if err := c.profileService.RequestGeneration(ctx, ch, "created"); err != nil {
		c.logger.Warn(characterModule, "Failed to queue profile generation", map[string]interface{}{
			"character_id": ch.Id,
			"error":        err.Error(),
		})
	}

	c.logger.Info(characterModule, "Character created", map[string]interface{}{"character_id": ch.Id, "user_id": userId})
	return c.toResponse(ch, nil), nil
}

// Show returns an owned character or a public active one.
func (c *characterService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.CharacterResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	ch, err := uow.CharacterRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if ch == nil || (ch.UserId != userId && !(ch.IsPublic && ch.Status == entity.CharacterStatusActive)) {
		return nil, ErrCharacterNotFound
	}

	prof, err := uow.CharacterProfileRepository().FindByCharacterId(ctx, ch.Id)
	if err != nil {
		return nil, err
	}
	return c.toResponse(ch, prof), nil
}

func (c *characterService) List(ctx context.Context, userId uuid.UUID, req *dto.ListCharactersRequest) (*dto.PageResponse[*dto.CharacterResponse], error) {
	page := req.PageRequest.Normalize()
	specs := []specification.Specification{specification.UserOwnedBy{UserID: userId}}
	if req.Status != "" {
		specs = append(specs, specification.ByStatus{Status: req.Status})
	}
	if kw := strings.TrimSpace(req.Keyword); kw != "" {
		specs = append(specs, specification.MatchesKeyword{Keyword: kw})
	}
	return c.page(ctx, page, specs)
}

func (c *characterService) ListPublic(ctx context.Context, req dto.PageRequest) (*dto.PageResponse[*dto.CharacterResponse], error) {
	return c.page(ctx, req.Normalize(), []specification.Specification{
		specification.PublicOnly{},
		specification.ByStatus{Status: string(entity.CharacterStatusActive)},
	})
}

func (c *characterService) page(ctx context.Context, page dto.PageRequest, specs []specification.Specification) (*dto.PageResponse[*dto.CharacterResponse], error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	total, err := uow.CharacterRepository().Count(ctx, specs...)
	if err != nil {
		return nil, err
	}

	query := append(specs,
		specification.Scoped{Scope: scope.OrderByCreatedDesc},
		specification.Pagination{Limit: page.Size, Offset: page.Offset()},
	)
	characters, err := uow.CharacterRepository().FindAll(ctx, query...)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.CharacterResponse, len(characters))
	for i, ch := range characters {
		items[i] = c.toResponse(ch, nil)
	}
	return &dto.PageResponse[*dto.CharacterResponse]{Items: items, Page: page.Page, Size: page.Size, Total: total}, nil
}

func (c *characterService) ListActive(ctx context.Context, userId uuid.UUID) ([]*dto.CharacterResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	characters, err := uow.CharacterRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ByStatus{Status: string(entity.CharacterStatusActive)},
		specification.OrderBy{Field: "name"},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.CharacterResponse, len(characters))
	for i, ch := range characters {
		out[i] = c.toResponse(ch, nil)
	}
	return out, nil
}

func (c *characterService) CheckName(ctx context.Context, userId uuid.UUID, name string, excludeId *uuid.UUID) (*dto.NameAvailabilityResponse, error) {
	name = strings.TrimSpace(name)
	taken, err := c.nameTaken(ctx, c.uowFactory.NewUnitOfWork(ctx), userId, name, excludeId)
	if err != nil {
		return nil, err
	}
	return &dto.NameAvailabilityResponse{Name: name, Available: name != "" && !taken}, nil
}

func (c *characterService) Update(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.UpdateCharacterRequest) (*dto.CharacterResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	ch, err := c.ownedCharacter(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != ch.Name {
			taken, err := c.nameTaken(ctx, uow, userId, name, &ch.Id)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrDuplicateCharacterName
			}
			ch.Name = name
		}
	}
	if req.Description != nil {
		ch.Description = *req.Description
	}
	if req.AvatarUrl != nil {
		ch.AvatarUrl = *req.AvatarUrl
	}
	if req.IsPublic != nil {
		ch.IsPublic = *req.IsPublic
	}

	now := time.Now()
	ch.UpdatedAt = &now
	if err := uow.CharacterRepository().Update(ctx, ch); err != nil {
		return nil, fmt.Errorf("update character: %w", err)
	}
	return c.toResponse(ch, nil), nil
}

// Delete removes the character with its profile and role-play data.
func (c *characterService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	ch, err := c.ownedCharacter(ctx, uow, userId, id)
	if err != nil {
		return err
	}
	if c.profileService.IsGenerating(ch.Id) {
		return ErrProfileGenerating
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	sessions, err := uow.RolePlaySessionRepository().FindAll(ctx, specification.ByCharacterID{CharacterID: ch.Id})
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if err := uow.RolePlayHistoryRepository().DeleteBySessionId(ctx, s.Id); err != nil {
			return err
		}
		if err := uow.RolePlaySessionRepository().Delete(ctx, s.Id); err != nil {
			return err
		}
	}
	if err := uow.CharacterProfileRepository().DeleteByCharacterId(ctx, ch.Id); err != nil {
		return err
	}
	if err := uow.CharacterRepository().Delete(ctx, ch.Id); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	c.logger.Info(characterModule, "Character deleted", map[string]interface{}{"character_id": ch.Id, "sessions": len(sessions)})
	return nil
}

// Activate requires a COMPLETED profile.
func (c *characterService) Activate(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.CharacterResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	ch, err := c.ownedCharacter(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}
	if c.profileService.IsGenerating(ch.Id) {
		return nil, ErrProfileGenerating
	}

	prof, err := uow.CharacterProfileRepository().FindByCharacterId(ctx, ch.Id)
	if err != nil {
		return nil, err
	}
	switch {
	case prof == nil:
		return nil, ErrProfileNotCompleted
	case prof.Status == entity.ProfileStatusGenerating:
		return nil, ErrProfileGenerating
	case prof.Status != entity.ProfileStatusCompleted:
		return nil, ErrProfileNotCompleted
	}

	return c.setStatus(ctx, uow, ch, prof, entity.CharacterStatusActive)
}

func (c *characterService) Deactivate(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.CharacterResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	ch, err := c.ownedCharacter(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}
	return c.setStatus(ctx, uow, ch, nil, entity.CharacterStatusInactive)
}

func (c *characterService) setStatus(ctx context.Context, uow unitofwork.UnitOfWork, ch *entity.Character, prof *entity.CharacterProfile, status entity.CharacterStatus) (*dto.CharacterResponse, error) {
	if err := uow.CharacterRepository().UpdateStatus(ctx, ch.Id, status); err != nil {
		return nil, fmt.Errorf("update character status: %w", err)
	}
	ch.Status = status

	c.logger.Info(characterModule, "Character status changed", map[string]interface{}{"character_id": ch.Id, "status": status})
	return c.toResponse(ch, prof), nil
}

func (c *characterService) RegenerateProfile(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	ch, err := c.ownedCharacter(ctx, c.uowFactory.NewUnitOfWork(ctx), userId, id)
	if err != nil {
		return err
	}
	return c.profileService.RequestGeneration(ctx, ch, "regenerate")
}

func (c *characterService) GetProfile(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.CharacterProfileResponse, error) {
	ch, err := c.ownedCharacter(ctx, c.uowFactory.NewUnitOfWork(ctx), userId, id)
	if err != nil {
		return nil, err
	}
	prof, err := c.profileService.GetProfile(ctx, ch.Id)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(prof), nil
}

func (c *characterService) UpdateProfile(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.UpdateCharacterProfileRequest) (*dto.CharacterProfileResponse, error) {
	ch, err := c.ownedCharacter(ctx, c.uowFactory.NewUnitOfWork(ctx), userId, id)
	if err != nil {
		return nil, err
	}

	prof, err := c.profileService.UpdateProfile(ctx, ch.Id, profile.Patch{
		SystemPrompt:         req.SystemPrompt,
		BackgroundStory:      req.BackgroundStory,
		PersonalityTraits:    req.PersonalityTraits,
		SpeakingStyle:        req.SpeakingStyle,
		Interests:            req.Interests,
		Expertise:            req.Expertise,
		EmotionalPatterns:    req.EmotionalPatterns,
		ConversationExamples: req.ConversationExamples,
		Restrictions:         req.Restrictions,
		GoalsAndMotivations:  req.GoalsAndMotivations,
	})
	if err != nil {
		return nil, err
	}
	return toProfileResponse(prof), nil
}

func (c *characterService) RegenerateSystemPrompt(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.TemplateConfigRequest) (*dto.CharacterProfileResponse, error) {
	tmpl, err := resolveTemplateConfig(req)
	if err != nil {
		return nil, err
	}
	ch, err := c.ownedCharacter(ctx, c.uowFactory.NewUnitOfWork(ctx), userId, id)
	if err != nil {
		return nil, err
	}
	prof, err := c.profileService.RegenerateSystemPrompt(ctx, ch, tmpl)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(prof), nil
}

func (c *characterService) GetSystemPrompt(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.SystemPromptResponse, error) {
	ch, err := c.ownedCharacter(ctx, c.uowFactory.NewUnitOfWork(ctx), userId, id)
	if err != nil {
		return nil, err
	}
	prof, err := c.profileService.GetProfile(ctx, ch.Id)
	if err != nil {
		return nil, err
	}
	return &dto.SystemPromptResponse{
		CharacterId: ch.Id,
		Prompt:      prof.SystemPrompt,
		Version:     prof.Version,
		UpdatedAt:   prof.UpdatedAt,
	}, nil
}

// PreviewSystemPrompt composes a prompt with the requested layout and saves nothing.
func (c *characterService) PreviewSystemPrompt(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.TemplateConfigRequest) (*dto.SystemPromptResponse, error) {
	tmpl, err := resolveTemplateConfig(req)
	if err != nil {
		return nil, err
	}
	ch, err := c.ownedCharacter(ctx, c.uowFactory.NewUnitOfWork(ctx), userId, id)
	if err != nil {
		return nil, err
	}
	prompt, err := c.profileService.PreviewSystemPrompt(ctx, ch, tmpl)
	if err != nil {
		return nil, err
	}

	res := &dto.SystemPromptResponse{CharacterId: ch.Id, Prompt: prompt}
	if tmpl != nil {
		res.Config = toTemplateConfigResponse(*tmpl)
	}
	return res, nil
}

func (c *characterService) TemplatePresets() map[string]*dto.TemplateConfigResponse {
	out := make(map[string]*dto.TemplateConfigResponse)
	for name, cfg := range profile.Presets() {
		out[string(name)] = toTemplateConfigResponse(cfg)
	}
	return out
}

func (c *characterService) ValidateTemplateConfig(req *dto.TemplateConfigRequest) (*dto.TemplateConfigResponse, error) {
	if req == nil {
		req = &dto.TemplateConfigRequest{}
	}
	tmpl, err := resolveTemplateConfig(req)
	if err != nil {
		return nil, err
	}
	return toTemplateConfigResponse(*tmpl), nil
}

func (c *characterService) toResponse(ch *entity.Character, prof *entity.CharacterProfile) *dto.CharacterResponse {
	res := &dto.CharacterResponse{
		Id:                ch.Id,
		KnowledgeBaseId:   ch.KnowledgeBaseId,
		KnowledgeBaseName: ch.KnowledgeBaseName,
		Name:              ch.Name,
		Description:       ch.Description,
		AvatarUrl:         ch.AvatarUrl,
		Status:            string(ch.Status),
		IsPublic:          ch.IsPublic,
		CreatedAt:         ch.CreatedAt,
		UpdatedAt:         ch.UpdatedAt,
	}
	if prof != nil {
		res.ProfileStatus = string(prof.Status)
	}
	return res
}

func toProfileResponse(p *entity.CharacterProfile) *dto.CharacterProfileResponse {
	return &dto.CharacterProfileResponse{
		Id:                   p.Id,
		CharacterId:          p.CharacterId,
		SystemPrompt:         p.SystemPrompt,
		BackgroundStory:      p.BackgroundStory,
		PersonalityTraits:    p.PersonalityTraits,
		SpeakingStyle:        p.SpeakingStyle,
		Interests:            p.Interests,
		Expertise:            p.Expertise,
		EmotionalPatterns:    p.EmotionalPatterns,
		ConversationExamples: p.ConversationExamples,
		Restrictions:         p.Restrictions,
		GoalsAndMotivations:  p.GoalsAndMotivations,
		Status:               string(p.Status),
		GenerationMethod:     string(p.GenerationMethod),
		GenerationConfig:     p.GenerationConfig,
		FieldOutcomes:        p.FieldOutcomes,
		Version:              p.Version,
		UpdatedAt:            p.UpdatedAt,
	}
}
