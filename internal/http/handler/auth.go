package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Laisky/zap"
	"github.com/gofiber/fiber/v2"

	"github.com/wellb3tz/axiscore/internal/auth"
	"github.com/wellb3tz/axiscore/internal/service"
)

// loginMaxAge bounds how old a login widget payload may be.
const loginMaxAge = 24 * time.Hour

// TelegramAuthConfig carries the secrets the login exchange needs.
type TelegramAuthConfig struct {
	BotToken  string
	JWTSecret []byte
	TokenTTL  time.Duration
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// loginFields flattens the widget payload into the strings that were signed.
// Numbers keep their literal form so the hash still matches.
func loginFields(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = fmt.Sprint(val)
		default:
			return nil, fmt.Errorf("field %q has unsupported type", k)
		}
	}
	return out, nil
}

// TelegramAuth godoc
// @Summary Exchange a Telegram login payload for a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} tokenResponse
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Router /telegram_auth [post]
func TelegramAuth(users service.UserService, cfg TelegramAuthConfig, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := loginFields(c.Body())
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := auth.VerifyLogin(data, cfg.BotToken, loginMaxAge, time.Now()); err != nil {
			logger.Info("telegram_auth_rejected",
				zap.String("request_id", requestIDFromCtx(c)),
				zap.Error(err))
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "invalid telegram auth data")
		}

		id := data["id"]
		if err := users.Register(c.UserContext(), id, data["username"]); err != nil {
			if errors.Is(err, service.ErrOwnerRequired) {
				return writeError(c, fiber.StatusBadRequest, "ID_REQUIRED", "id is required")
			}
			logger.Error("user_register_failed", zap.String("telegram_id", id), zap.Error(err))
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		token, err := auth.GenerateToken(id, cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			logger.Error("token_issue_failed", zap.Error(err))
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(tokenResponse{AccessToken: token})
	}
}
