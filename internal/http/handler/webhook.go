package handler

import (
	"context"
	"encoding/json"

	"github.com/Laisky/zap"
	"github.com/gofiber/fiber/v2"
	tb "gopkg.in/telebot.v3"

	"github.com/wellb3tz/axiscore/internal/telegram"
)

// UpdateHandler processes one Telegram update.
type UpdateHandler interface {
	Handle(ctx context.Context, upd tb.Update) telegram.Response
}

// Webhook godoc
// @Summary Telegram webhook
// @Description Receives Bot API updates. Uploads are processed synchronously.
// @Tags telegram
// @Accept json
// @Produce json
// @Param X-Telegram-Bot-Api-Secret-Token header string false "Webhook secret"
// @Success 200 {object} telegram.Response
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Router /webhook [post]
func Webhook(h UpdateHandler, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var upd tb.Update
		if err := json.Unmarshal(c.Body(), &upd); err != nil {
			logger.Warn("webhook_decode_failed",
				zap.String("request_id", requestIDFromCtx(c)),
				zap.Error(err))
			return writeError(c, fiber.StatusBadRequest, "INVALID_UPDATE", "invalid update payload")
		}
		return c.JSON(h.Handle(c.UserContext(), upd))
	}
}
