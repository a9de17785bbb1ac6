package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string // optional; empty keeps rate-limit counters in process
	}
	Email struct {
		SMTPServer   string
		SMTPPort     int
		Username     string
		Password     string
		FromName     string
		TemplatePath string
	}
	Telegram struct {
		BotToken      string
		RatePerSecond int
	}
	SMS struct {
		AccountSID string
		AuthToken  string
		FromNumber string
		DailyCap   int
		HourlyCap  int
		MaxLength  int
	}
	API struct {
		Port     string
		BasePath string
	}
	Alert struct {
		DedupWindow     time.Duration
		EscalationGap   time.Duration
		TimeoutInfo     time.Duration
		TimeoutWarning  time.Duration
		TimeoutCritical time.Duration
	}
	Notification struct {
		Backoff     []time.Duration
		MaxRetries  int
		SendTimeout time.Duration
		RetryBatch  int
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Kafka settings
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// Database DSN
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Redis (optional, shared rate-limit counters)
	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
		cfg.Email.SMTPPort = p
	}
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.FromName = os.Getenv("EMAIL_FROM_NAME")
	cfg.Email.TemplatePath = os.Getenv("EMAIL_TEMPLATE_PATH")

	// Telegram settings
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.RatePerSecond = intEnv("TELEGRAM_RATE_PER_SECOND", 20)

	// SMS settings
	cfg.SMS.AccountSID = os.Getenv("SMS_ACCOUNT_SID")
	cfg.SMS.AuthToken = os.Getenv("SMS_AUTH_TOKEN")
	cfg.SMS.FromNumber = os.Getenv("SMS_FROM_NUMBER")
	cfg.SMS.DailyCap = intEnv("SMS_DAILY_CAP", 100)
	cfg.SMS.HourlyCap = intEnv("SMS_HOURLY_CAP", 20)
	cfg.SMS.MaxLength = intEnv("SMS_MAX_LENGTH", 160)

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Alert engine settings
	cfg.Alert.DedupWindow = hourEnv("DEDUP_WINDOW_HOURS", 24)
	cfg.Alert.EscalationGap = hourEnv("ESCALATION_GAP_HOURS", 24)
	cfg.Alert.TimeoutInfo = hourEnv("ESCALATION_TIMEOUT_INFO_HOURS", 48)
	cfg.Alert.TimeoutWarning = hourEnv("ESCALATION_TIMEOUT_WARNING_HOURS", 24)
	cfg.Alert.TimeoutCritical = hourEnv("ESCALATION_TIMEOUT_CRITICAL_HOURS", 12)

	// Notification dispatch settings
	cfg.Notification.Backoff = backoffEnv("NOTIFY_BACKOFF_MINUTES", []time.Duration{
		5 * time.Minute, 15 * time.Minute, 30 * time.Minute, 60 * time.Minute,
	})
	cfg.Notification.MaxRetries = intEnv("NOTIFY_MAX_RETRIES", 5)
	cfg.Notification.SendTimeout = time.Duration(intEnv("NOTIFY_SEND_TIMEOUT_SECONDS", 5)) * time.Second
	cfg.Notification.RetryBatch = intEnv("NOTIFY_RETRY_BATCH", 200)

	// Logging settings
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.Kafka.Broker == "" {
		missing = append(missing, "KAFKA_BROKER")
	}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "monitoring_facts"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "alerting-service"
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v1"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}

// EscalationTimeouts maps each non-terminal level to its inaction timeout.
func (c Config) EscalationTimeouts() map[string]time.Duration {
	return map[string]time.Duration{
		"INFO":     c.Alert.TimeoutInfo,
		"WARNING":  c.Alert.TimeoutWarning,
		"CRITICAL": c.Alert.TimeoutCritical,
	}
}

func intEnv(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func hourEnv(key string, defHours int) time.Duration {
	return time.Duration(intEnv(key, defHours)) * time.Hour
}

// backoffEnv parses a comma-separated minute list, e.g. "5,15,30,60".
func backoffEnv(key string, def []time.Duration) []time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var out []time.Duration
	for _, part := range strings.Split(raw, ",") {
		m, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || m <= 0 {
			return def
		}
		out = append(out, time.Duration(m)*time.Minute)
	}
	if len(out) == 0 {
		return def
	}
	return out
}
