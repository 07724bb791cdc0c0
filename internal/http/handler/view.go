package handler

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ViewRedirect godoc
// @Summary Open a model in the external viewer
// @Description Redirects to VIEWER_URL with the model URL. A bare uuid resolves to this server's /models route.
// @Tags models
// @Param model query string false "Model URL"
// @Param uuid query string false "Model ID"
// @Param ext query string false "Model extension"
// @Success 302
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /view [get]
func ViewRedirect(viewerURL, baseURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if viewerURL == "" {
			return writeError(c, fiber.StatusNotFound, "VIEWER_NOT_CONFIGURED", "viewer is not configured")
		}
		modelURL := c.Query("model")
		id := c.Query("uuid")
		if modelURL == "" {
			if _, err := uuid.Parse(id); err != nil {
				return writeError(c, fiber.StatusBadRequest, "MODEL_REQUIRED", "model or uuid is required")
			}
			modelURL = strings.TrimRight(baseURL, "/") + "/models/" + id
		}

		q := url.Values{}
		q.Set("model", modelURL)
		if id != "" {
			q.Set("uuid", id)
		}
		if ext := c.Query("ext"); ext != "" {
			q.Set("ext", ext)
		}
		sep := "?"
		if strings.Contains(viewerURL, "?") {
			sep = "&"
		}
		return c.Redirect(viewerURL+sep+q.Encode(), fiber.StatusFound)
	}
}
