package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"ragone-be/internal/dto"
	"ragone-be/internal/pkg/serverutils"
	"ragone-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func fakeAuth(ctx *fiber.Ctx) error {
	ctx.Locals("user_id", testUser)
	return ctx.Next()
}

type fakeRagService struct {
	service.IRagService
	asked *dto.AskQuestionRequest
}

func (f *fakeRagService) AskQuestion(ctx context.Context, userId uuid.UUID, req *dto.AskQuestionRequest) (*dto.AskQuestionResponse, error) {
	f.asked = req
	return &dto.AskQuestionResponse{SessionId: "s1", Answer: "42"}, nil
}

func (f *fakeRagService) GetSession(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.ChatSessionResponse, error) {
	return nil, service.ErrSessionNotFound
}

type fakeCharacterService struct {
	service.ICharacterService
	excludeId *uuid.UUID
	listReq   *dto.ListCharactersRequest
	template  *dto.TemplateConfigRequest
}

func (f *fakeCharacterService) RegenerateSystemPrompt(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.TemplateConfigRequest) (*dto.CharacterProfileResponse, error) {
	f.template = req
	if req != nil && req.ExampleCount != nil && *req.ExampleCount == 0 {
		return nil, fmt.Errorf("%w: example count must be between 1 and 10, got 0", service.ErrInvalidTemplateConfig)
	}
	return &dto.CharacterProfileResponse{CharacterId: id, SystemPrompt: "composed"}, nil
}

func (f *fakeCharacterService) TemplatePresets() map[string]*dto.TemplateConfigResponse {
	return map[string]*dto.TemplateConfigResponse{
		"standard": {TemplateType: "standard", ExampleCount: 3},
		"minimal":  {TemplateType: "minimal", ExampleCount: 2},
		"detailed": {TemplateType: "detailed", ExampleCount: 5},
	}
}

func (f *fakeCharacterService) ValidateTemplateConfig(req *dto.TemplateConfigRequest) (*dto.TemplateConfigResponse, error) {
	f.template = req
	return &dto.TemplateConfigResponse{TemplateType: req.TemplateType}, nil
}

func (f *fakeCharacterService) CheckName(ctx context.Context, userId uuid.UUID, name string, excludeId *uuid.UUID) (*dto.NameAvailabilityResponse, error) {
	f.excludeId = excludeId
	return &dto.NameAvailabilityResponse{Name: name, Available: true}, nil
}

func (f *fakeCharacterService) List(ctx context.Context, userId uuid.UUID, req *dto.ListCharactersRequest) (*dto.PageResponse[*dto.CharacterResponse], error) {
	f.listReq = req
	return &dto.PageResponse[*dto.CharacterResponse]{}, nil
}

func (f *fakeCharacterService) RegenerateProfile(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	return service.ErrProfileGenerating
}

type fakeRolePlayService struct {
	service.IRolePlayService
}

func (f *fakeRolePlayService) RateConversation(ctx context.Context, userId uuid.UUID, req *dto.RateConversationRequest) error {
	return service.ErrInvalidRating
}

func newTestApp(rag service.IRagService, character service.ICharacterService, rolePlay service.IRolePlayService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewRagController(rag).RegisterRoutes(api, fakeAuth)
	NewCharacterController(character, rolePlay).RegisterRoutes(api, fakeAuth)
	NewRolePlayController(rolePlay).RegisterRoutes(api, fakeAuth)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, serverutils.Response) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := app.Test(req)
	require.NoError(t, err)

	var envelope serverutils.Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&envelope))
	return res.StatusCode, envelope
}

func TestRagController_Ask(t *testing.T) {
	rag := &fakeRagService{}
	app := newTestApp(rag, &fakeCharacterService{}, &fakeRolePlayService{})

	kbId := uuid.New()
	status, res := do(t, app, "POST", "/api/rag/v1/ask", `{"knowledge_base_id":"`+kbId.String()+`","question":"why?"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, res.Success)
	require.NotNil(t, rag.asked)
	assert.Equal(t, kbId, rag.asked.KnowledgeBaseId)
	assert.Equal(t, "why?", rag.asked.Question)

	status, res = do(t, app, "POST", "/api/rag/v1/ask", `{"knowledge_base_id":"`+kbId.String()+`"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", res.Message)

	status, _ = do(t, app, "POST", "/api/rag/v1/ask", `{not json`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestRagController_MissingSession(t *testing.T) {
	app := newTestApp(&fakeRagService{}, &fakeCharacterService{}, &fakeRolePlayService{})

	status, res := do(t, app, "GET", "/api/rag/v1/sessions/abc", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.False(t, res.Success)
}

func TestCharacterController_CheckName(t *testing.T) {
	character := &fakeCharacterService{}
	app := newTestApp(&fakeRagService{}, character, &fakeRolePlayService{})

	exclude := uuid.New()
	status, _ := do(t, app, "GET", "/api/character/v1/check-name?name=Ada&exclude_id="+exclude.String(), "")
	assert.Equal(t, fiber.StatusOK, status)
	require.NotNil(t, character.excludeId)
	assert.Equal(t, exclude, *character.excludeId)

	status, _ = do(t, app, "GET", "/api/character/v1/check-name", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, "GET", "/api/character/v1/check-name?name=Ada&exclude_id=nope", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestCharacterController_ListQuery(t *testing.T) {
	character := &fakeCharacterService{}
	app := newTestApp(&fakeRagService{}, character, &fakeRolePlayService{})

	status, _ := do(t, app, "GET", "/api/character/v1?status=ACTIVE&keyword=ada&page=2&size=5", "")
	assert.Equal(t, fiber.StatusOK, status)
	require.NotNil(t, character.listReq)
	assert.Equal(t, "ACTIVE", character.listReq.Status)
	assert.Equal(t, "ada", character.listReq.Keyword)
	assert.Equal(t, 2, character.listReq.Page)

	status, _ = do(t, app, "GET", "/api/character/v1?status=SLEEPING", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestCharacterController_ErrorMapping(t *testing.T) {
	app := newTestApp(&fakeRagService{}, &fakeCharacterService{}, &fakeRolePlayService{})

	status, _ := do(t, app, "POST", "/api/character/v1/"+uuid.NewString()+"/profile/regenerate", "")
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = do(t, app, "GET", "/api/character/v1/not-a-uuid", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestRolePlayController_Rate(t *testing.T) {
	app := newTestApp(&fakeRagService{}, &fakeCharacterService{}, &fakeRolePlayService{})

	status, res := do(t, app, "POST", "/api/roleplay/v1/rate", `{"history_id":"`+uuid.NewString()+`","rating":3}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, service.ErrInvalidRating.Error(), res.Message)
}

func TestCharacterController_RegenerateSystemPromptTemplate(t *testing.T) {
	character := &fakeCharacterService{}
	app := newTestApp(&fakeRagService{}, character, &fakeRolePlayService{})
	path := "/api/character/v1/" + uuid.New().String() + "/profile/system-prompt/regenerate"

	status, _ := do(t, app, "POST", path, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Nil(t, character.template)

	status, _ = do(t, app, "POST", path, `{"template_type":"minimal","custom_prefix":"Hi","include_workflow":false}`)
	assert.Equal(t, fiber.StatusOK, status)
	require.NotNil(t, character.template)
	assert.Equal(t, "minimal", character.template.TemplateType)
	require.NotNil(t, character.template.IncludeWorkflow)
	assert.False(t, *character.template.IncludeWorkflow)

	status, res := do(t, app, "POST", path, `{"example_count":0}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, res.Message, "example count")

	status, res = do(t, app, "POST", path, `{"template_type":"baroque"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", res.Message)
}

func TestCharacterController_TemplatePresetsAndValidate(t *testing.T) {
	character := &fakeCharacterService{}
	app := newTestApp(&fakeRagService{}, character, &fakeRolePlayService{})

	status, res := do(t, app, "GET", "/api/character/v1/templates/presets", "")
	assert.Equal(t, fiber.StatusOK, status)
	presets, ok := res.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, presets, 3)
	assert.Contains(t, presets, "detailed")

	status, _ = do(t, app, "POST", "/api/character/v1/templates/validate", `{"template_type":"detailed"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "detailed", character.template.TemplateType)

	status, _ = do(t, app, "POST", "/api/character/v1/templates/validate", `{"custom_suffix":`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
