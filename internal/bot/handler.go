// Package bot runs an optional Telegram bot that answers quick stats
// questions about shortened links.
package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tinylinker/internal/analytics"
	"tinylinker/internal/config"
	"tinylinker/internal/storage"
)

// Handler holds dependencies for the Telegram bot handlers.
type Handler struct {
	bot  *tgbot.Bot
	cfg  config.Config
	repo storage.Repository
	log  logrus.FieldLogger
}

// NewHandler creates a new bot handler instance.
func NewHandler(cfg config.Config, repo storage.Repository, logger logrus.FieldLogger) (*Handler, error) {
	log := logger.WithField("component", "bot_handler")

	b, err := tgbot.New(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	h := &Handler{
		bot:  b,
		cfg:  cfg,
		repo: repo,
		log:  log,
	}

	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, h.startHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/stats", tgbot.MatchTypePrefix, h.statsHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/top", tgbot.MatchTypeExact, h.topHandler)

	log.Info("Telegram bot handler initialized")
	return h, nil
}

// Start begins polling for updates from Telegram.
// This function blocks until the context is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped.")
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	_, err := h.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.log.WithError(err).Error("Failed to send message")
	}
}

func (h *Handler) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	h.reply(ctx, update.Message.Chat.ID,
		"Hi! Use /stats <code> for a link's click breakdown, or /top for the busiest links.")
}

// statsHandler answers "/stats <shortCode>" with the link's totals and its
// per-target breakdown.
func (h *Handler) statsHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	fields := strings.Fields(update.Message.Text)
	if len(fields) != 2 {
		h.reply(ctx, chatID, "Usage: /stats <code>")
		return
	}
	code := fields[1]

	link, err := h.repo.GetLink(ctx, code)
	if err != nil {
		h.log.WithError(err).WithField("code", code).Warn("Stats lookup failed")
		h.reply(ctx, chatID, fmt.Sprintf("No link found for %q.", code))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s -> %s\nTotal clicks: %d\n", link.ID, link.OriginalURL, len(link.Clicks))
	for _, row := range analytics.ByTarget(link) {
		fmt.Fprintf(&sb, "  %s: %d\n", row.Target, row.Count)
	}
	h.reply(ctx, chatID, sb.String())
}

// topHandler lists the five most clicked links.
func (h *Handler) topHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	links, err := h.repo.ListLinks(ctx)
	if err != nil {
		h.log.WithError(err).Error("Top links lookup failed")
		h.reply(ctx, chatID, "Could not load link stats right now.")
		return
	}
	if len(links) == 0 {
		h.reply(ctx, chatID, "No links yet.")
		return
	}

	totals := analytics.TotalsByLink(links)
	sort.Slice(totals, func(i, j int) bool { return totals[i].TotalClicks > totals[j].TotalClicks })
	if len(totals) > 5 {
		totals = totals[:5]
	}

	var sb strings.Builder
	sb.WriteString("Top links:\n")
	for i, row := range totals {
		fmt.Fprintf(&sb, "%d. %s (%d clicks)\n", i+1, row.LinkID, row.TotalClicks)
	}
	h.reply(ctx, chatID, sb.String())
}
