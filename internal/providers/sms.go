package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alerting-service/internal/config"
	"alerting-service/internal/dispatch"
	"alerting-service/internal/models"
)

// SMSHandler delivers over the Twilio REST API. SMS is the most expensive
// and intrusive channel: it is hard-gated to URGENT alerts and capped per
// day and per hour.
type SMSHandler struct {
	cfg    config.Config
	limits dispatch.RateLimiter
	client *http.Client
	now    func() time.Time
}

func NewSMSHandler(cfg config.Config, limits dispatch.RateLimiter) *SMSHandler {
	return &SMSHandler{
		cfg:    cfg,
		limits: limits,
		client: &http.Client{},
		now:    time.Now,
	}
}

func (h *SMSHandler) Channel() string { return models.ChannelSMS }

func (h *SMSHandler) Send(ctx context.Context, n *models.Notification, alert *models.Alert, rcpt models.Recipient) error {
	if alert.Level != models.LevelUrgent {
		return ErrUrgentOnly
	}

	s := h.cfg.SMS
	if s.AccountSID == "" || s.AuthToken == "" || s.FromNumber == "" {
		return fmt.Errorf("sms: %w", ErrNotConfigured)
	}
	phone := strings.TrimSpace(n.Target)
	if phone == "" {
		return fmt.Errorf("sms for user %d: %w", rcpt.UserID, ErrNoAddress)
	}

	// Caps are checked before the send and recorded after it, so a blocked
	// or failed send never consumes budget.
	now := h.now().UTC()
	dayKey := "sms:" + now.Format("2006-01-02")
	hourKey := "sms:" + now.Format("2006-01-02T15")
	if ok, err := h.limits.Check(ctx, dayKey, s.DailyCap); err != nil {
		return fmt.Errorf("sms daily cap check: %w", err)
	} else if !ok {
		return ErrDailyLimit
	}
	if ok, err := h.limits.Check(ctx, hourKey, s.HourlyCap); err != nil {
		return fmt.Errorf("sms hourly cap check: %w", err)
	} else if !ok {
		return ErrHourlyLimit
	}

	body := truncateSMS(fmt.Sprintf("%s\n%s", n.Title, n.Content), s.MaxLength)

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.AccountSID)
	form := url.Values{}
	form.Set("To", phone)
	form.Set("From", s.FromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	req.SetBasicAuth(s.AccountSID, s.AuthToken)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS to %s: %w", phone, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("SMS provider returned status %d for %s", resp.StatusCode, phone)
	}

	if err := h.limits.Incr(ctx, dayKey, 24*time.Hour); err != nil {
		return fmt.Errorf("sms daily cap incr: %w", err)
	}
	if err := h.limits.Incr(ctx, hourKey, time.Hour); err != nil {
		return fmt.Errorf("sms hourly cap incr: %w", err)
	}
	return nil
}

// truncateSMS fits the body into the transport limit, re-shortening when the
// first cut (with ellipsis) still exceeds it.
func truncateSMS(body string, max int) string {
	if max <= 0 {
		max = 160
	}
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	cut := max - 3
	if cut < 0 {
		cut = 0
	}
	shortened := string(runes[:cut]) + "..."
	if len([]rune(shortened)) > max {
		shortened = string(runes[:max])
	}
	return shortened
}
