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
	DB struct {
		DSN string
	}
	MQTT struct {
		Host     string
		Port     int
		Username string
		Password string
		TLS      bool
	}
	API struct {
		Addr   string
		WebDir string
	}
	Auth struct {
		JWTSecret   string
		TokenExpiry time.Duration
		WSTokenTTL  time.Duration
	}
	Alert struct {
		Temperature float64
		Cooldown    time.Duration
		Transport   string
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
	}
	Kafka struct {
		Broker string
		Topic  string
	}
	Telegram struct {
		BotToken  string
		ChatIDs   []int64
		RateLimit int
	}
	Poll struct {
		Interval time.Duration
	}
	Chat struct {
		APIKey  string
		BaseURL string
		Model   string
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

	// Database DSN
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// MQTT settings
	cfg.MQTT.Host = envOr("MQTT_HOST", "localhost")
	cfg.MQTT.Port = envInt("MQTT_PORT", 8883)
	cfg.MQTT.Username = os.Getenv("MQTT_USER")
	cfg.MQTT.Password = os.Getenv("MQTT_PASS")
	cfg.MQTT.TLS = envOr("MQTT_TLS", "true") != "false"

	// API settings
	cfg.API.Addr = envOr("API_ADDR", "0.0.0.0:3000")
	cfg.API.WebDir = os.Getenv("WEB_DIR")

	// Auth settings
	cfg.Auth.JWTSecret = envOr("JWT_SECRET_KEY", "secret-key")
	cfg.Auth.TokenExpiry = time.Duration(envInt("JWT_EXPIRE_MIN", 30)) * time.Minute
	cfg.Auth.WSTokenTTL = time.Duration(envInt("WS_TOKEN_TTL_SEC", 60)) * time.Second

	// Alert settings
	if t, err := strconv.ParseFloat(os.Getenv("ALERT_TEMPERATURE"), 64); err == nil {
		cfg.Alert.Temperature = t
	}
	cfg.Alert.Cooldown = time.Duration(envInt("ALERT_COOLDOWN_SEC", 120)) * time.Second
	cfg.Alert.Transport = envOr("ALERT_TRANSPORT", "smtp")

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("SMTP_DOMAIN")
	cfg.Email.SMTPPort = envInt("SMTP_PORT", 587)
	cfg.Email.Username = os.Getenv("EMAIL_SENDER")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")

	// Kafka settings
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = envOr("KAFKA_ALERT_TOPIC", "alert_notification")

	// Telegram settings
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.RateLimit = envInt("TELEGRAM_RATE_LIMIT", 20)
	ids, err := parseChatIDs(os.Getenv("TELEGRAM_CHAT_IDS"))
	if err != nil {
		return Config{}, err
	}
	cfg.Telegram.ChatIDs = ids

	// Poll settings
	cfg.Poll.Interval = time.Duration(envInt("POLL_INTERVAL_SEC", 3)) * time.Second

	// Chat assistant settings
	cfg.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Chat.BaseURL = envOr("OPENAI_BASE_URL", "https://api.openai.com/v1/")
	cfg.Chat.Model = envOr("MODEL", "gpt-4o-mini")

	// Logging settings
	cfg.Logging.Dir = envOr("LOG_DIR", "logs")
	cfg.Logging.Level = envOr("LOG_LEVEL", "info")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Alert.Transport == "kafka" && cfg.Kafka.Broker == "" {
		missing = append(missing, "KAFKA_BROKER")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Alert.Temperature == 0 {
		cfg.Alert.Temperature = 70
	}
	if cfg.Poll.Interval <= 0 {
		cfg.Poll.Interval = 3 * time.Second
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func parseChatIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
