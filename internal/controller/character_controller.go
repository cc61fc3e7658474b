package controller

import (
	"ragone-be/internal/dto"
	"ragone-be/internal/pkg/serverutils"
	"ragone-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ICharacterController interface {
	RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	ListActive(ctx *fiber.Ctx) error
	ListPublic(ctx *fiber.Ctx) error
	CheckName(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Activate(ctx *fiber.Ctx) error
	Deactivate(ctx *fiber.Ctx) error
	RegenerateProfile(ctx *fiber.Ctx) error
	GetProfile(ctx *fiber.Ctx) error
	UpdateProfile(ctx *fiber.Ctx) error
	RegenerateSystemPrompt(ctx *fiber.Ctx) error
	GetSystemPrompt(ctx *fiber.Ctx) error
	PreviewSystemPrompt(ctx *fiber.Ctx) error
	TemplatePresets(ctx *fiber.Ctx) error
	ValidateTemplate(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type characterController struct {
	characterService service.ICharacterService
	rolePlayService  service.IRolePlayService
}

func NewCharacterController(characterService service.ICharacterService, rolePlayService service.IRolePlayService) ICharacterController {
	return &characterController{
		characterService: characterService,
		rolePlayService:  rolePlayService,
	}
}

func (c *characterController) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	h := r.Group("/character/v1")
	h.Use(authMiddleware)
	h.Post("", c.Create)
	h.Get("", c.List)
	// static paths before /:id
	h.Get("active", c.ListActive)
	h.Get("public", c.ListPublic)
	h.Get("check-name", c.CheckName)
	h.Get("templates/presets", c.TemplatePresets)
	h.Post("templates/validate", c.ValidateTemplate)
	h.Get(":id", c.Show)
	h.Put(":id", c.Update)
	h.Delete(":id", c.Delete)
	h.Post(":id/activate", c.Activate)
	h.Post(":id/deactivate", c.Deactivate)
	h.Post(":id/profile/regenerate", c.RegenerateProfile)
	h.Get(":id/profile", c.GetProfile)
	h.Put(":id/profile", c.UpdateProfile)
	h.Get(":id/profile/system-prompt", c.GetSystemPrompt)
	h.Post(":id/profile/system-prompt/preview", c.PreviewSystemPrompt)
	h.Post(":id/profile/system-prompt/regenerate", c.RegenerateSystemPrompt)
	h.Get(":id/stats", c.Stats)
}

func (c *characterController) Create(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateCharacterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.characterService.Create(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create character", res))
}

func (c *characterController) List(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.ListCharactersRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.characterService.List(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list characters", res))
}

func (c *characterController) ListActive(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.characterService.ListActive(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list active characters", res))
}

func (c *characterController) ListPublic(ctx *fiber.Ctx) error {
	var page dto.PageRequest
	if err := ctx.QueryParser(&page); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}

	res, err := c.characterService.ListPublic(ctx.UserContext(), page)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list public characters", res))
}

func (c *characterController) CheckName(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	name := ctx.Query("name")
	if name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	var excludeId *uuid.UUID
	if raw := ctx.Query("exclude_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid exclude_id")
		}
		excludeId = &id
	}

	res, err := c.characterService.CheckName(ctx.UserContext(), userId, name, excludeId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success check name", res))
}

func (c *characterController) Show(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	res, err := c.characterService.Show(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show character", res))
}

func (c *characterController) Update(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateCharacterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.characterService.Update(ctx.UserContext(), userId, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update character", res))
}

func (c *characterController) Delete(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	if err := c.characterService.Delete(ctx.UserContext(), userId, id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete character", nil))
}

func (c *characterController) Activate(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	res, err := c.characterService.Activate(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success activate character", res))
}

func (c *characterController) Deactivate(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	res, err := c.characterService.Deactivate(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success deactivate character", res))
}

func (c *characterController) RegenerateProfile(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	if err := c.characterService.RegenerateProfile(ctx.UserContext(), userId, id); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Profile generation queued", nil))
}

func (c *characterController) GetProfile(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	res, err := c.characterService.GetProfile(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show character profile", res))
}

func (c *characterController) UpdateProfile(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateCharacterProfileRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.characterService.UpdateProfile(ctx.UserContext(), userId, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update character profile", res))
}

func (c *characterController) RegenerateSystemPrompt(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	tmpl, err := templateBody(ctx)
	if err != nil {
		return err
	}

	res, err := c.characterService.RegenerateSystemPrompt(ctx.UserContext(), userId, id, tmpl)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success regenerate system prompt", res))
}

func (c *characterController) GetSystemPrompt(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	res, err := c.characterService.GetSystemPrompt(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show system prompt", res))
}

func (c *characterController) PreviewSystemPrompt(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	tmpl, err := templateBody(ctx)
	if err != nil {
		return err
	}

	res, err := c.characterService.PreviewSystemPrompt(ctx.UserContext(), userId, id, tmpl)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success preview system prompt", res))
}

func (c *characterController) TemplatePresets(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success list template presets", c.characterService.TemplatePresets()))
}

func (c *characterController) ValidateTemplate(ctx *fiber.Ctx) error {
	tmpl, err := templateBody(ctx)
	if err != nil {
		return err
	}

	res, err := c.characterService.ValidateTemplateConfig(tmpl)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Template config is valid", res))
}

func (c *characterController) Stats(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	res, err := c.rolePlayService.CharacterStats(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show character stats", res))
}

// templateBody parses an optional template config; an empty body yields nil.
func templateBody(ctx *fiber.Ctx) (*dto.TemplateConfigRequest, error) {
	if len(ctx.Body()) == 0 {
		return nil, nil
	}
	var req dto.TemplateConfigRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *characterController) ownerAndID(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userId, id, nil
}
