package handler

import (
	"errors"
	"mime"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/wellb3tz/axiscore/internal/auth"
	"github.com/wellb3tz/axiscore/internal/service"
)

// GetModel godoc
// @Summary Download model content
// @Description Streams stored bytes inline. The id may be embedded in a longer path segment.
// @Tags models
// @Produce octet-stream
// @Param id path string true "Model ID"
// @Param filename path string false "File name used for the content type"
// @Success 200 {file} binary
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /models/{id}/{filename} [get]
func GetModel(svc service.ModelService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		content, err := svc.Resolve(c.UserContext(), c.Params("id"), c.Params("filename"))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidLocator):
				return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "model not found")
			case errors.Is(err, service.ErrDecode):
				return writeError(c, fiber.StatusInternalServerError, "DECODE_ERROR", "decode error")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		c.Set(fiber.HeaderContentType, content.ContentType)
		disposition := mime.FormatMediaType("inline", map[string]string{"filename": content.Filename})
		if disposition == "" {
			disposition = "inline"
		}
		c.Set(fiber.HeaderContentDisposition, disposition)
		return c.Send(content.Data)
	}
}

// ListModels godoc
// @Summary List the caller's models
// @Tags models
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Limit" default(10)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} service.ModelListResult
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Router /api/models [get]
func ListModels(svc service.ModelService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.ListForUser(c.UserContext(), auth.TelegramID(c), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// addModelRequest is the body of POST /api/models.
type addModelRequest struct {
	ModelURL  string `json:"model_url"`
	ModelName string `json:"model_name"`
}

// AddModel godoc
// @Summary Register an externally hosted model
// @Tags models
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body addModelRequest true "Model URL"
// @Success 201 {object} model.StoredModel
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Router /api/models [post]
func AddModel(svc service.ModelService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req addModelRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if req.ModelURL == "" {
			return writeError(c, fiber.StatusBadRequest, "URL_REQUIRED", "model_url is required")
		}

		m, err := svc.AddURL(c.UserContext(), auth.TelegramID(c), req.ModelName, req.ModelURL)
		if err != nil {
			if errors.Is(err, service.ErrInvalidURL) {
				return writeError(c, fiber.StatusBadRequest, "INVALID_URL", "model_url must be http or https")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

// DeleteModel godoc
// @Summary Delete one of the caller's models
// @Tags models
// @Security BearerAuth
// @Param id path string true "Model ID"
// @Success 204
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/models/{id} [delete]
func DeleteModel(svc service.ModelService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), auth.TelegramID(c), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "model not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
