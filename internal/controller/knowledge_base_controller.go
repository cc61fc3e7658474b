package controller

import (
	"ragone-be/internal/dto"
	"ragone-be/internal/pkg/serverutils"
	"ragone-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IKnowledgeBaseController interface {
	RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type knowledgeBaseController struct {
	knowledgeBaseService service.IKnowledgeBaseService
}

func NewKnowledgeBaseController(knowledgeBaseService service.IKnowledgeBaseService) IKnowledgeBaseController {
	return &knowledgeBaseController{knowledgeBaseService: knowledgeBaseService}
}

func (c *knowledgeBaseController) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	h := r.Group("/knowledge-base/v1")
	h.Use(authMiddleware)
	h.Post("", c.Create)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Put(":id", c.Update)
	h.Delete(":id", c.Delete)
}

func (c *knowledgeBaseController) Create(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateKnowledgeBaseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.knowledgeBaseService.Create(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create knowledge base", res))
}

func (c *knowledgeBaseController) List(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.knowledgeBaseService.List(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list knowledge bases", res))
}

func (c *knowledgeBaseController) Show(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	res, err := c.knowledgeBaseService.Show(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show knowledge base", res))
}

func (c *knowledgeBaseController) Update(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateKnowledgeBaseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.knowledgeBaseService.Update(ctx.UserContext(), userId, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update knowledge base", res))
}

func (c *knowledgeBaseController) Delete(ctx *fiber.Ctx) error {
	userId, id, err := c.ownerAndID(ctx)
	if err != nil {
		return err
	}

	if err := c.knowledgeBaseService.Delete(ctx.UserContext(), userId, id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete knowledge base", nil))
}

func (c *knowledgeBaseController) ownerAndID(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
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
