package handler

import (
	"database/sql"
	"strings"
	"time"

	"github.com/Laisky/zap"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wellb3tz/axiscore/docs"
	"github.com/wellb3tz/axiscore/internal/auth"
	"github.com/wellb3tz/axiscore/internal/http/middleware"
	"github.com/wellb3tz/axiscore/internal/service"
)

// Deps are the collaborators the HTTP routes are wired to.
type Deps struct {
	DB            *sql.DB
	Models        service.ModelService
	Users         service.UserService
	Updates       UpdateHandler
	Gatherer      prometheus.Gatherer
	Logger        *zap.Logger
	WebhookSecret string
	BotToken      string
	JWTSecret     []byte
	TokenTTL      time.Duration
	BaseURL       string
	ViewerURL     string
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers translate service errors and hold no business logic.
func RegisterRoutes(app *fiber.App, d Deps) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	app.Post("/webhook", middleware.WebhookSecret(d.WebhookSecret), Webhook(d.Updates, logger))

	app.Get("/models/:id", GetModel(d.Models))
	app.Get("/models/:id/:filename", GetModel(d.Models))
	app.Get("/view", ViewRedirect(d.ViewerURL, d.BaseURL))

	app.Post("/telegram_auth", TelegramAuth(d.Users, TelegramAuthConfig{
		BotToken:  d.BotToken,
		JWTSecret: d.JWTSecret,
		TokenTTL:  d.TokenTTL,
	}, logger))

	api := app.Group("/api", auth.RequireJWT(d.JWTSecret))
	api.Get("/models", ListModels(d.Models))
	api.Post("/models", AddModel(d.Models))
	api.Delete("/models/:id", DeleteModel(d.Models))
}
