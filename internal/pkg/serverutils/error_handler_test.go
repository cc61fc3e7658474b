package serverutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"ragone-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createRequest struct {
	Name string `validate:"required,max=5"`
}

func TestErrorHandlerMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", service.ErrCharacterNotFound, fiber.StatusNotFound, "character not found"},
		{"wrapped not found", fmt.Errorf("load: %w", service.ErrSessionNotFound), fiber.StatusNotFound, "load: session not found"},
		{"conflict", service.ErrProfileGenerating, fiber.StatusConflict, "character profile generation already in progress"},
		{"duplicate name", service.ErrDuplicateCharacterName, fiber.StatusConflict, "character name already exists"},
		{"knowledge base in use", service.ErrKnowledgeBaseInUse, fiber.StatusConflict, "knowledge base is used by characters"},
		{"invalid rating", service.ErrInvalidRating, fiber.StatusBadRequest, "rating must be between 1 and 5"},
		{"validation", ValidateRequest(createRequest{}), fiber.StatusBadRequest, "Validation failed"},
		{"fiber error", fiber.NewError(fiber.StatusBadRequest, "invalid id"), fiber.StatusBadRequest, "invalid id"},
		{"unknown", errors.New("pq: connection reset"), fiber.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware())
			app.Get("/", func(*fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body Response
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.status, body.Code)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestErrorHandlerMiddleware_ValidationDetails(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/", func(*fiber.Ctx) error { return ValidateRequest(createRequest{Name: "too long"}) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	var body struct {
		Errors []FieldError `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Errors, 1)
	assert.Equal(t, FieldError{Field: "Name", Rule: "max", Param: "5"}, body.Errors[0])
}

func TestErrorHandlerMiddleware_PassesSuccess(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/", func(ctx *fiber.Ctx) error { return ctx.JSON(SuccessResponse("ok", fiber.Map{"id": 1})) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
