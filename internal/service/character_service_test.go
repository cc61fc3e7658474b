package service

import (
	"context"
	"errors"
	"testing"

	"ragone-be/internal/dto"
	"ragone-be/internal/entity"
	"ragone-be/internal/pkg/logger"
	"ragone-be/pkg/character/profile"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type characterFixture struct {
	db        *fakeDB
	publisher *recordingPublisher
	gen       *blockingGenerator
	profiles  IProfileService
	svc       ICharacterService
	userId    uuid.UUID
	kb        *entity.KnowledgeBase
}

func newCharacterFixture() *characterFixture {
	db := newFakeDB()
	userId := uuid.New()
	kb := &entity.KnowledgeBase{Id: uuid.New(), UserId: userId, Name: "Lab notes"}
	db.kbs[kb.Id] = kb

	f := &characterFixture{
		db:        db,
		publisher: &recordingPublisher{},
		gen:       newBlockingGenerator(),
		userId:    userId,
		kb:        kb,
	}
	close(f.gen.release)
	f.profiles = NewProfileService(db, f.gen, f.publisher, nil, &recordingDelivery{}, logger.NewNopLogger())
	f.svc = NewCharacterService(db, f.profiles, logger.NewNopLogger())
	return f
}

func (f *characterFixture) create(t *testing.T, name string) *dto.CharacterResponse {
	t.Helper()
	ch, err := f.svc.Create(context.Background(), f.userId, &dto.CreateCharacterRequest{KnowledgeBaseId: f.kb.Id, Name: name})
	require.NoError(t, err)
	return ch
}

// settle drains the queued generation so the character is no longer busy.
func (f *characterFixture) settle(t *testing.T, id uuid.UUID) {
	t.Helper()
	require.NoError(t, f.profiles.ProcessJob(context.Background(), dto.PublishGenerateProfileMessage{CharacterId: id, UserId: f.userId}))
}

func TestCharacterService_Create(t *testing.T) {
	f := newCharacterFixture()
	ctx := context.Background()

	ch := f.create(t, "  Ada  ")
	assert.Equal(t, "Ada", ch.Name)
	assert.Equal(t, "DRAFT", ch.Status)
	assert.Equal(t, "Lab notes", ch.KnowledgeBaseName)
	assert.Len(t, f.publisher.payloads, 1)
	assert.True(t, f.profiles.IsGenerating(ch.Id))
	assert.Equal(t, []uuid.UUID{ch.Id}, f.gen.drafts)

	_, err := f.svc.Create(ctx, f.userId, &dto.CreateCharacterRequest{KnowledgeBaseId: f.kb.Id, Name: "Ada "})
	assert.ErrorIs(t, err, ErrDuplicateCharacterName)

	_, err = f.svc.Create(ctx, uuid.New(), &dto.CreateCharacterRequest{KnowledgeBaseId: f.kb.Id, Name: "Grace"})
	assert.ErrorIs(t, err, ErrKnowledgeBaseNotFound)
}

func TestCharacterService_CreateSurvivesQueueFailure(t *testing.T) {
	f := newCharacterFixture()
	f.publisher.err = errors.New("queue closed")

	ch := f.create(t, "Ada")
	assert.Contains(t, f.db.characters, ch.Id)
	assert.False(t, f.profiles.IsGenerating(ch.Id))
}

func TestCharacterService_Activate(t *testing.T) {
	f := newCharacterFixture()
	ctx := context.Background()
	ch := f.create(t, "Ada")

	_, err := f.svc.Activate(ctx, f.userId, ch.Id)
	assert.ErrorIs(t, err, ErrProfileGenerating)

	// the fake generator does not persist, so the job leaves no profile behind
	f.settle(t, ch.Id)
	_, err = f.svc.Activate(ctx, f.userId, ch.Id)
	assert.ErrorIs(t, err, ErrProfileNotCompleted)

	f.db.profiles[ch.Id] = &entity.CharacterProfile{CharacterId: ch.Id, Status: entity.ProfileStatusGenerating}
	_, err = f.svc.Activate(ctx, f.userId, ch.Id)
	assert.ErrorIs(t, err, ErrProfileGenerating)

	f.db.profiles[ch.Id].Status = entity.ProfileStatusFailed
	_, err = f.svc.Activate(ctx, f.userId, ch.Id)
	assert.ErrorIs(t, err, ErrProfileNotCompleted)

	f.db.profiles[ch.Id].Status = entity.ProfileStatusCompleted
	active, err := f.svc.Activate(ctx, f.userId, ch.Id)
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", active.Status)
	assert.Equal(t, "COMPLETED", active.ProfileStatus)
	assert.Equal(t, entity.CharacterStatusActive, f.db.characters[ch.Id].Status)

	inactive, err := f.svc.Deactivate(ctx, f.userId, ch.Id)
	require.NoError(t, err)
	assert.Equal(t, "INACTIVE", inactive.Status)

	_, err = f.svc.Activate(ctx, uuid.New(), ch.Id)
	assert.ErrorIs(t, err, ErrCharacterNotFound)
}

func TestCharacterService_ShowVisibility(t *testing.T) {
	f := newCharacterFixture()
	ctx := context.Background()
	ch := f.create(t, "Ada")
	stranger := uuid.New()

	_, err := f.svc.Show(ctx, stranger, ch.Id)
	assert.ErrorIs(t, err, ErrCharacterNotFound)

	f.db.characters[ch.Id].IsPublic = true
	_, err = f.svc.Show(ctx, stranger, ch.Id)
	assert.ErrorIs(t, err, ErrCharacterNotFound)

	f.db.characters[ch.Id].Status = entity.CharacterStatusActive
	shown, err := f.svc.Show(ctx, stranger, ch.Id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", shown.Name)

	public, err := f.svc.ListPublic(ctx, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), public.Total)
}

func TestCharacterService_NamesAndUpdate(t *testing.T) {
	f := newCharacterFixture()
	ctx := context.Background()
	ada := f.create(t, "Ada")
	grace := f.create(t, "Grace")

	res, err := f.svc.CheckName(ctx, f.userId, " Ada ", nil)
	require.NoError(t, err)
	assert.False(t, res.Available)

	res, err = f.svc.CheckName(ctx, f.userId, "Ada", &ada.Id)
	require.NoError(t, err)
	assert.True(t, res.Available)

	res, err = f.svc.CheckName(ctx, f.userId, "   ", nil)
	require.NoError(t, err)
	assert.False(t, res.Available)

	taken := "Ada"
	_, err = f.svc.Update(ctx, f.userId, grace.Id, &dto.UpdateCharacterRequest{Name: &taken})
	assert.ErrorIs(t, err, ErrDuplicateCharacterName)

	renamed, desc := "Hopper", "compiler pioneer"
	updated, err := f.svc.Update(ctx, f.userId, grace.Id, &dto.UpdateCharacterRequest{Name: &renamed, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Hopper", updated.Name)
	assert.Equal(t, "compiler pioneer", f.db.characters[grace.Id].Description)
	assert.NotNil(t, updated.UpdatedAt)
}

func TestCharacterService_List(t *testing.T) {
	f := newCharacterFixture()
	ctx := context.Background()
	ada := f.create(t, "Ada")
	f.create(t, "Grace")
	f.db.characters[ada.Id].Status = entity.CharacterStatusActive

	all, err := f.svc.List(ctx, f.userId, &dto.ListCharactersRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 20, all.Size)

	active, err := f.svc.List(ctx, f.userId, &dto.ListCharactersRequest{Status: "ACTIVE"})
	require.NoError(t, err)
	require.Len(t, active.Items, 1)
	assert.Equal(t, "Ada", active.Items[0].Name)

	byKeyword, err := f.svc.List(ctx, f.userId, &dto.ListCharactersRequest{Keyword: "gra"})
	require.NoError(t, err)
	require.Len(t, byKeyword.Items, 1)
	assert.Equal(t, "Grace", byKeyword.Items[0].Name)

	names, err := f.svc.ListActive(ctx, f.userId)
	require.NoError(t, err)
	require.Len(t, names, 1)
}

func TestCharacterService_Delete(t *testing.T) {
	f := newCharacterFixture()
	ctx := context.Background()
	ch := f.create(t, "Ada")

	assert.ErrorIs(t, f.svc.Delete(ctx, f.userId, ch.Id), ErrProfileGenerating)
	f.settle(t, ch.Id)

	sessionId := uuid.New()
	f.db.profiles[ch.Id] = &entity.CharacterProfile{CharacterId: ch.Id, Status: entity.ProfileStatusCompleted}
	f.db.rpSessions[sessionId] = &entity.RolePlaySession{Id: sessionId, UserId: f.userId, CharacterId: ch.Id}
	f.db.rpHistories = append(f.db.rpHistories, &entity.RolePlayHistory{Id: uuid.New(), RolePlaySessionId: sessionId, CharacterId: ch.Id})

	require.NoError(t, f.svc.Delete(ctx, f.userId, ch.Id))
	assert.Empty(t, f.db.characters)
	assert.Empty(t, f.db.profiles)
	assert.Empty(t, f.db.rpSessions)
	assert.Empty(t, f.db.rpHistories)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.userId, ch.Id), ErrCharacterNotFound)
}

func TestCharacterService_RegenerateSystemPromptWithTemplate(t *testing.T) {
	f := newCharacterFixture()
	ctx := context.Background()
	ch := f.create(t, "Ada")
	f.settle(t, ch.Id)
	f.gen.regenerated = &entity.CharacterProfile{CharacterId: ch.Id, SystemPrompt: "recomposed", Status: entity.ProfileStatusCompleted, Version: 2}

	count, prefix, workflow := 4, "Opening line.", false
	res, err := f.svc.RegenerateSystemPrompt(ctx, f.userId, ch.Id, &dto.TemplateConfigRequest{
		TemplateType:    "detailed",
		ExampleCount:    &count,
		CustomPrefix:    &prefix,
		IncludeWorkflow: &workflow,
	})
	require.NoError(t, err)
	assert.Equal(t, "recomposed", res.SystemPrompt)

	require.Len(t, f.gen.templates, 1)
	got := f.gen.templates[0]
	require.NotNil(t, got)
	assert.Equal(t, profile.PresetDetailed, got.Preset)
	assert.Equal(t, 4, got.ExampleCount)
	assert.Equal(t, "Opening line.", got.CustomPrefix)
	assert.False(t, got.IncludeWorkflow)
	assert.True(t, got.IncludeExamples)

	// no body keeps the configured layout
	_, err = f.svc.RegenerateSystemPrompt(ctx, f.userId, ch.Id, nil)
	require.NoError(t, err)
	assert.Nil(t, f.gen.templates[1])
}

func TestCharacterService_InvalidTemplateRejectedFirst(t *testing.T) {
	f := newCharacterFixture()
	ch := f.create(t, "Ada")
	f.settle(t, ch.Id)

	zero := 0
	_, err := f.svc.RegenerateSystemPrompt(context.Background(), f.userId, ch.Id, &dto.TemplateConfigRequest{ExampleCount: &zero})
	assert.ErrorIs(t, err, ErrInvalidTemplateConfig)

	_, err = f.svc.PreviewSystemPrompt(context.Background(), f.userId, uuid.New(), &dto.TemplateConfigRequest{TemplateType: "ornate"})
	assert.ErrorIs(t, err, ErrInvalidTemplateConfig)
	assert.Empty(t, f.gen.templates)
}

func TestCharacterService_PreviewAndGetSystemPrompt(t *testing.T) {
	f := newCharacterFixture()
	ctx := context.Background()
	ch := f.create(t, "Ada")

	prefix := "Hello"
	preview, err := f.svc.PreviewSystemPrompt(ctx, f.userId, ch.Id, &dto.TemplateConfigRequest{TemplateType: "minimal", CustomPrefix: &prefix})
	require.NoError(t, err)
	assert.Equal(t, "Hello prompt for Ada", preview.Prompt)
	require.NotNil(t, preview.Config)
	assert.Equal(t, "minimal", preview.Config.TemplateType)
	assert.False(t, preview.Config.IncludeWorkflow)

	_, err = f.svc.GetSystemPrompt(ctx, f.userId, ch.Id)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = f.svc.PreviewSystemPrompt(ctx, uuid.New(), ch.Id, nil)
	assert.ErrorIs(t, err, ErrCharacterNotFound)
}

func TestCharacterService_TemplatePresetsAndValidate(t *testing.T) {
	f := newCharacterFixture()

	presets := f.svc.TemplatePresets()
	require.Len(t, presets, 3)
	assert.Equal(t, 2, presets["minimal"].ExampleCount)
	assert.Equal(t, 5, presets["detailed"].ExampleCount)
	assert.True(t, presets["standard"].IncludeWorkflow)

	res, err := f.svc.ValidateTemplateConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "standard", res.TemplateType)

	off := false
	zero := 0
	res, err = f.svc.ValidateTemplateConfig(&dto.TemplateConfigRequest{IncludeExamples: &off, ExampleCount: &zero})
	require.NoError(t, err)
	assert.False(t, res.IncludeExamples)

	_, err = f.svc.ValidateTemplateConfig(&dto.TemplateConfigRequest{ExampleCount: &zero})
	assert.ErrorIs(t, err, ErrInvalidTemplateConfig)
}
