package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"alerting-service/internal/config"
	"alerting-service/internal/models"
)

// IMHandler delivers over instant messaging: a direct webhook POST when the
// target is a URL, otherwise a Telegram message to the resolved chat id.
// CRITICAL and URGENT alerts get a richer card rendering.
type IMHandler struct {
	cfg     config.Config
	limiter *rate.Limiter
	client  *http.Client

	// The bot client performs a handshake on construction, so it is built
	// once on first use and shared across sends.
	botOnce sync.Once
	bot     *bot.Bot
	botErr  error
	newBot  func(token string) (*bot.Bot, error)
}

func NewIMHandler(cfg config.Config) *IMHandler {
	rps := cfg.Telegram.RatePerSecond
	if rps <= 0 {
		rps = 20
	}
	return &IMHandler{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(rps)), rps),
		client:  &http.Client{},
		newBot:  func(token string) (*bot.Bot, error) { return bot.New(token) },
	}
}

func (h *IMHandler) telegramBot() (*bot.Bot, error) {
	h.botOnce.Do(func() {
		h.bot, h.botErr = h.newBot(h.cfg.Telegram.BotToken)
	})
	return h.bot, h.botErr
}

func (h *IMHandler) Channel() string { return models.ChannelIM }

func (h *IMHandler) Send(ctx context.Context, n *models.Notification, alert *models.Alert, rcpt models.Recipient) error {
	target := strings.TrimSpace(n.Target)
	if target == "" {
		return fmt.Errorf("im for user %d: %w", rcpt.UserID, ErrNoAddress)
	}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return h.sendWebhook(ctx, target, n, alert)
	}
	return h.sendTelegram(ctx, target, n, alert)
}

func (h *IMHandler) sendWebhook(ctx context.Context, url string, n *models.Notification, alert *models.Alert) error {
	payload := map[string]interface{}{
		"title":   n.Title,
		"content": n.Content,
		"number":  alert.Number,
		"level":   alert.Level,
		"target":  alert.TargetName,
	}
	if isCardLevel(alert.Level) {
		payload["card"] = map[string]interface{}{
			"header": fmt.Sprintf("%s %s", alert.Level, alert.Number),
			"fields": map[string]string{
				"rule":         alert.RuleCode,
				"target":       alert.TargetName,
				"triggered_at": alert.TriggeredAt.Format("2006-01-02 15:04:05"),
			},
			"body": n.Content,
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (h *IMHandler) sendTelegram(ctx context.Context, target string, n *models.Notification, alert *models.Alert) error {
	if h.cfg.Telegram.BotToken == "" {
		return fmt.Errorf("telegram: %w", ErrNotConfigured)
	}
	chatID, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id %q: %w", target, ErrNoAddress)
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit: %w", err)
	}

	b, err := h.telegramBot()
	if err != nil {
		return fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	text := fmt.Sprintf("%s\n%s", n.Title, n.Content)
	if isCardLevel(alert.Level) {
		text = fmt.Sprintf(
			"*%s*\n%s\n\n*Alert:* %s\n*Rule:* %s\n*Target:* %s\n*Triggered:* %s",
			n.Title, n.Content, alert.Number, alert.RuleCode, alert.TargetName,
			alert.TriggeredAt.Format("2006-01-02 15:04:05"),
		)
	}
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "Markdown",
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send telegram message to chat %d: %w", chatID, err)
	}
	return nil
}

func isCardLevel(level string) bool {
	return level == models.LevelCritical || level == models.LevelUrgent
}
