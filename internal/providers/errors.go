package providers

import "errors"

// Typed failure reasons, recorded verbatim on the notification row so the
// stored error is actionable.
var (
	ErrNotConfigured = errors.New("channel is not configured")
	ErrNoAddress     = errors.New("recipient has no address for this channel")
	ErrUrgentOnly    = errors.New("SMS is restricted to URGENT alerts")
	ErrDailyLimit    = errors.New("SMS daily send cap reached")
	ErrHourlyLimit   = errors.New("SMS hourly send cap reached")
)
