package main

import (
	"encoding/json"
	"fmt"

	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/wellb3tz/axiscore/internal/telegram"
)

var webhookCMD = &cobra.Command{
	Use:   "webhook",
	Short: "manage the Telegram webhook registration",
}

var webhookSetCMD = &cobra.Command{
	Use:   "set [url]",
	Short: "register the webhook URL (defaults to TELEGRAM_WEBHOOK_URL)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := cfg.Telegram.WebhookURL
		if len(args) == 1 {
			url = args[0]
		}
		if url == "" {
			return fmt.Errorf("webhook url is required")
		}
		client, err := telegram.NewClient(cfg.Telegram)
		if err != nil {
			return err
		}
		if err := client.SetWebhook(cmd.Context(), url, cfg.Telegram.WebhookSecret); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		logger.Info("webhook_set", zap.String("url", url))
		return nil
	},
}

var webhookDeleteCMD = &cobra.Command{
	Use:   "delete",
	Short: "remove the webhook registration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := telegram.NewClient(cfg.Telegram)
		if err != nil {
			return err
		}
		if err := client.RemoveWebhook(cmd.Context()); err != nil {
			return fmt.Errorf("remove webhook: %w", err)
		}
		logger.Info("webhook_removed")
		return nil
	},
}

var webhookInfoCMD = &cobra.Command{
	Use:   "info",
	Short: "print the current webhook registration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := telegram.NewClient(cfg.Telegram)
		if err != nil {
			return err
		}
		info, err := client.WebhookInfo(cmd.Context())
		if err != nil {
			return fmt.Errorf("get webhook info: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"url":                  info.Listen,
			"pending_update_count": info.PendingUpdates,
			"last_error_message":   info.ErrorMessage,
			"allowed_updates":      info.AllowedUpdates,
		})
	},
}

func init() {
	webhookCMD.AddCommand(webhookSetCMD, webhookDeleteCMD, webhookInfoCMD)
	rootCMD.AddCommand(webhookCMD)
}
