package telegram

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/Laisky/zap"
	tb "gopkg.in/telebot.v3"

	"github.com/wellb3tz/axiscore/internal/guard"
	"github.com/wellb3tz/axiscore/internal/model"
	"github.com/wellb3tz/axiscore/internal/service"
)

const (
	msgWelcome = "Welcome! Send me a 3D model (.glb, .gltf, .fbx, .obj) or an archive with models (.zip, .rar, .7z) and I will give you a link to view it."
	msgHelp    = "Commands:\n" +
		"/start - register and show the welcome message\n" +
		"/mymodels - list your recent models\n" +
		"/help - show this message\n\n" +
		"Send a model file, an archive, or a link to a .glb/.gltf file."
	msgRestricted = "This command is restricted to operators."
	msgDisabled   = "Processing has been disabled (circuit breaker active)."
	msgEnabled    = "Processing has been re-enabled."
	msgNoModels   = "You have no models yet."
	msgBadURL     = "That link does not look like a model URL."

	// recentModels bounds the /mymodels listing.
	recentModels = 10
)

// Response is the webhook reply body.
type Response struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
}

// Pipeline processes uploaded documents.
type Pipeline interface {
	HandleDocument(ctx context.Context, up service.Upload) service.Outcome
	ClearFailure(ctx context.Context, fileID string) error
}

// DispatcherConfig holds the settings the dispatcher reads from AppConfig.
type DispatcherConfig struct {
	BaseURL  string
	AdminIDs []string
}

// Dispatcher routes one webhook update to a command or the pipeline.
type Dispatcher struct {
	client   Client
	pipeline Pipeline
	models   service.ModelService
	users    service.UserService
	breaker  *guard.Breaker
	baseURL  string
	admins   map[string]struct{}
	logger   *zap.Logger
}

// NewDispatcher wires a dispatcher. With no AdminIDs every user may run
// operator commands.
func NewDispatcher(
	client Client,
	pipeline Pipeline,
	models service.ModelService,
	users service.UserService,
	breaker *guard.Breaker,
	cfg DispatcherConfig,
	logger *zap.Logger,
) *Dispatcher {
	admins := make(map[string]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		client:   client,
		pipeline: pipeline,
		models:   models,
		users:    users,
		breaker:  breaker,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		admins:   admins,
		logger:   logger,
	}
}

// Handle processes one update. Updates without a message are ignored.
func (d *Dispatcher) Handle(ctx context.Context, upd tb.Update) Response {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return Response{Status: "ignored"}
	}

	var senderID, username string
	if msg.Sender != nil {
		senderID = strconv.FormatInt(msg.Sender.ID, 10)
		username = msg.Sender.Username
	}
	chatID := msg.Chat.ID

	switch {
	case msg.Document != nil:
		return d.handleUpload(ctx, chatID, service.Upload{
			FileID:     msg.Document.FileID,
			Filename:   msg.Document.FileName,
			MIMEType:   msg.Document.MIME,
			Size:       msg.Document.FileSize,
			TelegramID: senderID,
		})
	case msg.Photo != nil:
		return d.handleUpload(ctx, chatID, service.Upload{
			FileID:     msg.Photo.FileID,
			Filename:   "photo.jpg",
			MIMEType:   "image/jpeg",
			Size:       msg.Photo.FileSize,
			TelegramID: senderID,
		})
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		return d.handleCommand(ctx, chatID, senderID, username, text)
	}
	if isModelURL(text) {
		return d.handleURL(ctx, chatID, senderID, text)
	}

	d.reply(ctx, chatID, msgHelp)
	return Response{Status: "ok", Msg: "help"}
}

// isModelURL matches links to glTF files pasted into the chat.
func isModelURL(text string) bool {
	lower := strings.ToLower(text)
	return strings.HasPrefix(lower, "http") && (strings.Contains(lower, ".glb") || strings.Contains(lower, ".gltf"))
}

// parseCommand splits "/cmd@bot arg" into "/cmd" and "arg".
func parseCommand(text string) (cmd, arg string) {
	cmd, arg, _ = strings.Cut(text, " ")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

func (d *Dispatcher) isAdmin(senderID string) bool {
	if len(d.admins) == 0 {
		return true
	}
	_, ok := d.admins[senderID]
	return ok
}

func (d *Dispatcher) handleCommand(ctx context.Context, chatID int64, senderID, username, text string) Response {
	cmd, arg := parseCommand(text)

	switch cmd {
	case "/start":
		if senderID != "" {
			if err := d.users.Register(ctx, senderID, username); err != nil {
				d.logger.Error("user_register_failed", zap.String("telegram_id", senderID), zap.Error(err))
			}
		}
		d.reply(ctx, chatID, msgWelcome)
		return Response{Status: "ok", Msg: "start"}
	case "/help":
		d.reply(ctx, chatID, msgHelp)
		return Response{Status: "ok", Msg: "help"}
	case "/mymodels":
		return d.listModels(ctx, chatID, senderID)
	}

	if !isOperatorCommand(cmd) {
		d.reply(ctx, chatID, msgHelp)
		return Response{Status: "ok", Msg: "unknown command"}
	}
	if !d.isAdmin(senderID) {
		d.reply(ctx, chatID, msgRestricted)
		return Response{Status: "forbidden", Msg: cmd}
	}

	d.logger.Warn("operator_command", zap.String("command", cmd), zap.String("telegram_id", senderID))
	switch cmd {
	case "/911", "/disable":
		d.breaker.Trip()
		d.reply(ctx, chatID, msgDisabled)
		return Response{Status: string(service.StatusStopped), Msg: msgDisabled}
	case "/enable":
		d.breaker.Enable()
		d.reply(ctx, chatID, msgEnabled)
		return Response{Status: "ok", Msg: msgEnabled}
	case "/reset":
		tripped, err := d.breaker.Reset(ctx)
		if err != nil {
			d.logger.Error("inflight_reset_failed", zap.Error(err))
			d.reply(ctx, chatID, "Could not clear the in-flight set.")
			return Response{Status: "error", Msg: "reset failed"}
		}
		text := "In-flight uploads cleared."
		if tripped {
			text += " Reset repeated within a minute, " + msgDisabled
		}
		d.reply(ctx, chatID, text)
		return Response{Status: "ok", Msg: text}
	case "/status":
		text := "Processing is enabled."
		if d.breaker.Active() {
			text = "Processing is disabled."
		}
		d.reply(ctx, chatID, text)
		return Response{Status: "ok", Msg: text}
	default: // "/clear"
		if arg == "" {
			d.reply(ctx, chatID, "Usage: /clear <file_id>")
			return Response{Status: "error", Msg: "missing file id"}
		}
		if err := d.pipeline.ClearFailure(ctx, arg); err != nil {
			d.logger.Error("failure_clear_failed", zap.String("file_id", arg), zap.Error(err))
			d.reply(ctx, chatID, "Could not clear the failure record.")
			return Response{Status: "error", Msg: "clear failed"}
		}
		d.reply(ctx, chatID, "Failure record cleared; the file can be sent again.")
		return Response{Status: "ok", Msg: "cleared"}
	}
}

func isOperatorCommand(cmd string) bool {
	switch cmd {
	case "/911", "/disable", "/enable", "/reset", "/status", "/clear":
		return true
	}
	return false
}

func (d *Dispatcher) listModels(ctx context.Context, chatID int64, senderID string) Response {
	res, err := d.models.ListForUser(ctx, senderID, recentModels, 0)
	if err != nil {
		d.logger.Error("list_models_failed", zap.String("telegram_id", senderID), zap.Error(err))
		d.reply(ctx, chatID, "Could not load your models. Please try again later.")
		return Response{Status: "error", Msg: "list failed"}
	}
	if len(res.Items) == 0 {
		d.reply(ctx, chatID, msgNoModels)
		return Response{Status: "ok", Msg: "no models"}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your models (%d total):\n", res.Total)
	for i, m := range res.Items {
		fmt.Fprintf(&b, "%d. %s\n%s\n", i+1, m.Name, d.ViewerLink(&m))
	}
	d.reply(ctx, chatID, strings.TrimSpace(b.String()))
	return Response{Status: "ok", Msg: "models"}
}

func (d *Dispatcher) handleURL(ctx context.Context, chatID int64, senderID, text string) Response {
	m, err := d.models.AddURL(ctx, senderID, "", text)
	if err != nil {
		d.logger.Warn("add_url_failed", zap.String("telegram_id", senderID), zap.Error(err))
		d.reply(ctx, chatID, msgBadURL)
		return Response{Status: "error", Msg: "invalid url"}
	}
	d.sendModels(ctx, chatID, "Model link saved.", []*model.StoredModel{m})
	return Response{Status: "ok", Msg: "url saved"}
}

func (d *Dispatcher) handleUpload(ctx context.Context, chatID int64, up service.Upload) Response {
	out := d.pipeline.HandleDocument(ctx, up)
	switch out.Status {
	case service.StatusProcessed:
		d.sendModels(ctx, chatID, out.Message, out.Models)
	case service.StatusDuplicate:
		// redelivered update; the first delivery replies
	default:
		d.reply(ctx, chatID, out.Message)
	}
	return Response{Status: string(out.Status), Msg: out.Message}
}

// sendModels replies with one viewer button per model.
func (d *Dispatcher) sendModels(ctx context.Context, chatID int64, text string, models []*model.StoredModel) {
	webApp := strings.HasPrefix(d.baseURL, "https://")
	buttons := make([]Button, 0, len(models))
	for _, m := range models {
		buttons = append(buttons, Button{Text: "View " + m.Name, URL: d.ViewerLink(m), WebApp: webApp})
	}
	if err := d.client.SendButtons(ctx, chatID, text, buttons); err != nil {
		d.logger.Error("send_buttons_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// ViewerLink builds the /view URL the viewer button opens.
func (d *Dispatcher) ViewerLink(m *model.StoredModel) string {
	q := url.Values{}
	q.Set("model", m.URL)
	q.Set("uuid", m.ID)
	if ext := strings.TrimPrefix(strings.ToLower(path.Ext(m.Name)), "."); ext != "" {
		q.Set("ext", ext)
	}
	return d.baseURL + "/view?" + q.Encode()
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) {
	if err := d.client.SendText(ctx, chatID, text); err != nil {
		d.logger.Error("send_message_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
