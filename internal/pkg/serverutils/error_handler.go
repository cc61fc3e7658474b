package serverutils

import (
	"errors"

	"ragone-be/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns handler errors into JSON envelopes.
// Unrecognised errors become a generic 500 so internals never leak.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status, message, details := classify(err)
		return ctx.Status(status).JSON(ErrorResponse(status, message, details))
	}
}

func classify(err error) (int, string, interface{}) {
	var validationErrs validator.ValidationErrors
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &validationErrs):
		return fiber.StatusBadRequest, "Validation failed", fieldErrors(validationErrs)
	case service.IsInvalidInput(err):
		return fiber.StatusBadRequest, err.Error(), nil
	case service.IsNotFound(err):
		return fiber.StatusNotFound, err.Error(), nil
	case service.IsConflict(err):
		return fiber.StatusConflict, err.Error(), nil
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message, nil
	default:
		return fiber.StatusInternalServerError, "Internal server error", nil
	}
}
