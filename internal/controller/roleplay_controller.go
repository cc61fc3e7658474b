package controller

import (
	"ragone-be/internal/dto"
	"ragone-be/internal/pkg/serverutils"
	"ragone-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRolePlayController interface {
	RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler)
	CreateSession(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	EndSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	Rate(ctx *fiber.Ctx) error
}

type rolePlayController struct {
	rolePlayService service.IRolePlayService
}

func NewRolePlayController(rolePlayService service.IRolePlayService) IRolePlayController {
	return &rolePlayController{
		rolePlayService: rolePlayService,
	}
}

func (c *rolePlayController) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	h := r.Group("/roleplay/v1")
	h.Use(authMiddleware)
	h.Post("sessions", c.CreateSession)
	h.Get("sessions", c.ListSessions)
	h.Get("sessions/:sessionId", c.GetSession)
	h.Post("sessions/:sessionId/messages", c.SendMessage)
	h.Get("sessions/:sessionId/history", c.History)
	h.Post("sessions/:sessionId/end", c.EndSession)
	h.Delete("sessions/:sessionId", c.DeleteSession)
	h.Post("rate", c.Rate)
}

func (c *rolePlayController) CreateSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateRolePlaySessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.rolePlayService.CreateSession(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create role-play session", res))
}

func (c *rolePlayController) ListSessions(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var page dto.PageRequest
	if err := ctx.QueryParser(&page); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}

	res, err := c.rolePlayService.ListSessions(ctx.UserContext(), userId, page)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list role-play sessions", res))
}

func (c *rolePlayController) GetSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.rolePlayService.GetSession(ctx.UserContext(), userId, ctx.Params("sessionId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show role-play session", res))
}

func (c *rolePlayController) SendMessage(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.SendRolePlayMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.rolePlayService.SendMessage(ctx.UserContext(), userId, ctx.Params("sessionId"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *rolePlayController) History(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var page dto.PageRequest
	if err := ctx.QueryParser(&page); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}

	res, err := c.rolePlayService.GetSessionHistory(ctx.UserContext(), userId, ctx.Params("sessionId"), page)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show role-play history", res))
}

func (c *rolePlayController) EndSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	if err := c.rolePlayService.EndSession(ctx.UserContext(), userId, ctx.Params("sessionId")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success end role-play session", nil))
}

func (c *rolePlayController) DeleteSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	if err := c.rolePlayService.DeleteSession(ctx.UserContext(), userId, ctx.Params("sessionId")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete role-play session", nil))
}

func (c *rolePlayController) Rate(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.RateConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.rolePlayService.RateConversation(ctx.UserContext(), userId, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success rate conversation", nil))
}
