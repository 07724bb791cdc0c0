// Package telegram talks to the Bot API and turns webhook updates into
// pipeline calls and chat replies.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	tb "gopkg.in/telebot.v3"

	"github.com/wellb3tz/axiscore/internal/config"
)

// ErrFileTooLarge is returned by Download for files over the configured limit.
var ErrFileTooLarge = errors.New("file exceeds download limit")

// Button is one inline keyboard button. WebApp buttons open the URL as a
// Telegram Mini App; the others open it in the browser.
type Button struct {
	Text   string
	URL    string
	WebApp bool
}

// Client is the subset of the Bot API the service uses.
type Client interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendButtons(ctx context.Context, chatID int64, text string, buttons []Button) error
	Download(ctx context.Context, fileID string) ([]byte, error)
	Me(ctx context.Context) (*tb.User, error)
	SetWebhook(ctx context.Context, url, secret string) error
	RemoveWebhook(ctx context.Context) error
	WebhookInfo(ctx context.Context) (*tb.Webhook, error)
}

type botClient struct {
	bot     *tb.Bot
	maxSize int64
}

// NewClient builds an offline bot: no polling and no getMe at startup.
// Outgoing calls are traced through otelhttp.
func NewClient(cfg config.TelegramConfig) (Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	bot, err := tb.NewBot(tb.Settings{
		Token:   cfg.Token,
		URL:     cfg.APIURL,
		Offline: true,
		Client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   time.Minute,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("new telegram bot: %w", err)
	}
	return &botClient{bot: bot, maxSize: cfg.MaxFileSize}, nil
}

func (c *botClient) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.bot.Send(tb.ChatID(chatID), text)
	return err
}

func (c *botClient) SendButtons(ctx context.Context, chatID int64, text string, buttons []Button) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.bot.Send(tb.ChatID(chatID), text, &tb.ReplyMarkup{InlineKeyboard: inlineKeyboard(buttons)})
	return err
}

// inlineKeyboard lays out one button per row.
func inlineKeyboard(buttons []Button) [][]tb.InlineButton {
	rows := make([][]tb.InlineButton, 0, len(buttons))
	for _, b := range buttons {
		btn := tb.InlineButton{Text: b.Text}
		if b.WebApp {
			btn.WebApp = &tb.WebApp{URL: b.URL}
		} else {
			btn.URL = b.URL
		}
		rows = append(rows, []tb.InlineButton{btn})
	}
	return rows
}

func (c *botClient) Download(ctx context.Context, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := c.bot.FileByID(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if c.maxSize > 0 && f.FileSize > c.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, f.FileSize)
	}

	rc, err := c.bot.File(&f)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer rc.Close()

	r := io.Reader(rc)
	if c.maxSize > 0 {
		r = io.LimitReader(rc, c.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if c.maxSize > 0 && int64(len(data)) > c.maxSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

func (c *botClient) Me(ctx context.Context) (*tb.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := c.bot.Raw("getMe", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Result *tb.User `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode getMe: %w", err)
	}
	return resp.Result, nil
}

func (c *botClient) SetWebhook(ctx context.Context, url, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.bot.SetWebhook(&tb.Webhook{
		Endpoint:       &tb.WebhookEndpoint{PublicURL: url},
		SecretToken:    secret,
		AllowedUpdates: []string{"message"},
	})
}

func (c *botClient) RemoveWebhook(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.bot.RemoveWebhook()
}

func (c *botClient) WebhookInfo(ctx context.Context) (*tb.Webhook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.bot.Webhook()
}
