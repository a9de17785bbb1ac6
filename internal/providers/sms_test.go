package providers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alerting-service/internal/config"
	"alerting-service/internal/dispatch"
	"alerting-service/internal/models"
)

// captureTransport answers every Twilio request in-process.
type captureTransport struct {
	status   int
	requests []*http.Request
	forms    []string
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.requests = append(t.requests, req)
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		t.forms = append(t.forms, string(raw))
	}
	return &http.Response{
		StatusCode: t.status,
		Body:       io.NopCloser(strings.NewReader(`{"sid":"SM1"}`)),
		Header:     make(http.Header),
	}, nil
}

func smsConfig() config.Config {
	var cfg config.Config
	cfg.SMS.AccountSID = "AC_test"
	cfg.SMS.AuthToken = "secret"
	cfg.SMS.FromNumber = "+15550100"
	cfg.SMS.DailyCap = 100
	cfg.SMS.HourlyCap = 2
	cfg.SMS.MaxLength = 160
	return cfg
}

func newSMSFixture(status int) (*SMSHandler, *captureTransport, *dispatch.CounterLimiter) {
	limits := dispatch.NewCounterLimiter()
	h := NewSMSHandler(smsConfig(), limits)
	transport := &captureTransport{status: status}
	h.client = &http.Client{Transport: transport}
	h.now = func() time.Time { return time.Date(2026, 8, 31, 13, 0, 0, 0, time.UTC) }
	return h, transport, limits
}

func urgentNotification() (*models.Notification, *models.Alert, models.Recipient) {
	n := &models.Notification{
		Target:  "+15550123",
		Title:   "[URGENT] Project delay: Apollo",
		Content: "Project progress fell below plan",
		Channel: models.ChannelSMS,
	}
	return n, &models.Alert{Level: models.LevelUrgent}, models.Recipient{UserID: 1, Target: "+15550123"}
}

func TestSMS_RejectsBelowUrgent(t *testing.T) {
	h, transport, _ := newSMSFixture(http.StatusCreated)
	n, _, rcpt := urgentNotification()

	for _, level := range []string{models.LevelInfo, models.LevelWarning, models.LevelCritical} {
		err := h.Send(context.Background(), n, &models.Alert{Level: level}, rcpt)
		assert.ErrorIs(t, err, ErrUrgentOnly, level)
	}
	assert.Empty(t, transport.requests)
}

func TestSMS_SendsUrgent(t *testing.T) {
	h, transport, _ := newSMSFixture(http.StatusCreated)
	n, alert, rcpt := urgentNotification()

	require.NoError(t, h.Send(context.Background(), n, alert, rcpt))
	require.Len(t, transport.requests, 1)

	req := transport.requests[0]
	assert.Contains(t, req.URL.String(), "AC_test/Messages.json")
	user, pass, ok := req.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "AC_test", user)
	assert.Equal(t, "secret", pass)

	form := transport.forms[0]
	assert.Contains(t, form, "To=%2B15550123")
	assert.Contains(t, form, "From=%2B15550100")
}

// An hourly cap already at the limit blocks the send before the provider is
// contacted and leaves the counters untouched.
func TestSMS_HourlyCapBlocksWithoutConsuming(t *testing.T) {
	h, transport, limits := newSMSFixture(http.StatusCreated)
	n, alert, rcpt := urgentNotification()

	require.NoError(t, h.Send(context.Background(), n, alert, rcpt))
	require.NoError(t, h.Send(context.Background(), n, alert, rcpt))

	err := h.Send(context.Background(), n, alert, rcpt)
	assert.ErrorIs(t, err, ErrHourlyLimit)
	assert.Len(t, transport.requests, 2)

	// Day budget stayed where the successful sends left it.
	ok, checkErr := limits.Check(context.Background(), "sms:2026-08-31", 3)
	require.NoError(t, checkErr)
	assert.True(t, ok)
	ok, _ = limits.Check(context.Background(), "sms:2026-08-31", 2)
	assert.False(t, ok)
}

func TestSMS_DailyCapBlocks(t *testing.T) {
	h, transport, _ := newSMSFixture(http.StatusCreated)
	h.cfg.SMS.DailyCap = 1
	h.cfg.SMS.HourlyCap = 10
	n, alert, rcpt := urgentNotification()

	require.NoError(t, h.Send(context.Background(), n, alert, rcpt))
	err := h.Send(context.Background(), n, alert, rcpt)
	assert.ErrorIs(t, err, ErrDailyLimit)
	assert.Len(t, transport.requests, 1)
}

func TestSMS_ProviderErrorDoesNotConsumeBudget(t *testing.T) {
	h, transport, limits := newSMSFixture(http.StatusBadGateway)
	n, alert, rcpt := urgentNotification()

	err := h.Send(context.Background(), n, alert, rcpt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Len(t, transport.requests, 1)

	ok, checkErr := limits.Check(context.Background(), "sms:2026-08-31T13", 1)
	require.NoError(t, checkErr)
	assert.True(t, ok)
}

func TestSMS_MissingConfigOrAddress(t *testing.T) {
	limits := dispatch.NewCounterLimiter()
	h := NewSMSHandler(config.Config{}, limits)
	n, alert, rcpt := urgentNotification()
	assert.ErrorIs(t, h.Send(context.Background(), n, alert, rcpt), ErrNotConfigured)

	h, _, _ = newSMSFixture(http.StatusCreated)
	n.Target = "   "
	assert.ErrorIs(t, h.Send(context.Background(), n, alert, rcpt), ErrNoAddress)
}

func TestTruncateSMS(t *testing.T) {
	assert.Equal(t, "short", truncateSMS("short", 160))

	long := strings.Repeat("x", 200)
	got := truncateSMS(long, 160)
	assert.Len(t, []rune(got), 160)
	assert.True(t, strings.HasSuffix(got, "..."))

	// Zero max falls back to the transport default.
	got = truncateSMS(long, 0)
	assert.Len(t, []rune(got), 160)
}
