package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the quota service and its collaborators.
type Config struct {
	AppEnv     string
	ListenAddr string
	LogLevel   string

	HashSalt string

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string
	ProviderTimeout   time.Duration
	StatusFallback    bool

	GeminiAPIKey      string
	GeminiBaseURL     string
	GeminiModel       string
	GenerationTimeout time.Duration

	RedisURL string

	EnforceOrigin      bool
	MaxPayloadBytes    int64
	MaxExperienceItems int
	MaxEducationItems  int
	MaxSkills          int
	MaxFreeTextRunes   int

	RateLimitEnabled  bool
	RateLimitCapacity int
	RateLimitRefill   time.Duration

	MySQLDSN string

	AMQPURL     string
	EventsQueue string

	TelegramBotToken    string
	TelegramAlertChatID int64

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3UsePathStyle bool
	S3Prefix       string

	AdminUsername string
	AdminPassword string
}

// Production reports whether the service runs as a production deployment.
func (c Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c Config) ArchiveEnabled() bool {
	return c.S3Bucket != ""
}

func (c Config) LedgerEnabled() bool {
	return c.MySQLDSN != ""
}

func (c Config) AlertsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramAlertChatID != 0
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const (
		defaultRazorpayBaseURL = "https://api.razorpay.com"
		defaultGeminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	)

	cfg := Config{
		AppEnv:             strings.ToLower(getEnv("APP_ENV", "development")),
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RazorpayBaseURL:    normalizeBaseURL(getEnv("RAZORPAY_BASE_URL", defaultRazorpayBaseURL), defaultRazorpayBaseURL),
		ProviderTimeout:    getDuration("PROVIDER_TIMEOUT", 15*time.Second),
		StatusFallback:     getBool("RAZORPAY_STATUS_FALLBACK", true),
		GeminiBaseURL:      normalizeBaseURL(getEnv("GEMINI_BASE_URL", defaultGeminiBaseURL), defaultGeminiBaseURL),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
		GenerationTimeout:  getDuration("GENERATION_TIMEOUT", 45*time.Second),
		MaxPayloadBytes:    int64(getInt("MAX_PAYLOAD_BYTES", 50000)),
		MaxExperienceItems: getInt("MAX_EXPERIENCE_ITEMS", 10),
		MaxEducationItems:  getInt("MAX_EDUCATION_ITEMS", 10),
		MaxSkills:          getInt("MAX_SKILLS", 50),
		MaxFreeTextRunes:   getInt("MAX_FREE_TEXT_RUNES", 1000),
		RateLimitEnabled:   getBool("RATE_LIMIT_ENABLED", true),
		RateLimitCapacity:  getInt("RATE_LIMIT_CAPACITY", 20),
		RateLimitRefill:    getDuration("RATE_LIMIT_REFILL_EVERY", 3*time.Second),
		EventsQueue:        getEnv("EVENTS_QUEUE", "resumegate.events"),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3Region:           os.Getenv("S3_REGION"),
		S3AccessKey:        os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:        os.Getenv("S3_SECRET_KEY"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3UsePathStyle:     getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:           getEnv("S3_PREFIX", "documents"),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
	}
	cfg.EnforceOrigin = getBool("ENFORCE_ORIGIN", cfg.Production())

	cfg.HashSalt = cleanKey(os.Getenv("HASH_SALT"))
	cfg.RazorpayKeyID = cleanKey(os.Getenv("RAZORPAY_KEY_ID"))
	cfg.RazorpayKeySecret = cleanKey(os.Getenv("RAZORPAY_KEY_SECRET"))
	cfg.GeminiAPIKey = cleanKey(getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")))
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.AMQPURL = getEnv("RABBITMQ_URL", os.Getenv("AMQP_URL"))
	cfg.TelegramBotToken = cleanKey(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.TelegramAlertChatID = getInt64("TELEGRAM_ALERT_CHAT_ID", 0)

	var missing []string
	if cfg.HashSalt == "" {
		missing = append(missing, "HASH_SALT")
	}
	if cfg.RazorpayKeyID == "" {
		missing = append(missing, "RAZORPAY_KEY_ID")
	}
	if cfg.RazorpayKeySecret == "" {
		missing = append(missing, "RAZORPAY_KEY_SECRET")
	}
	if cfg.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if cfg.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}
	if cfg.S3Bucket != "" {
		if cfg.S3Region == "" {
			missing = append(missing, "S3_REGION")
		}
		if cfg.S3AccessKey == "" {
			missing = append(missing, "S3_ACCESS_KEY")
		}
		if cfg.S3SecretKey == "" {
			missing = append(missing, "S3_SECRET_KEY")
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if cfg.MaxPayloadBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_PAYLOAD_BYTES must be positive")
	}

	return cfg, nil
}

// cleanKey strips whitespace and one pair of surrounding quotes, which dashboards
// tend to leave in pasted secrets.
func cleanKey(key string) string {
	key = strings.TrimSpace(key)
	if len(key) >= 2 {
		first, last := key[0], key[len(key)-1]
		if (first == '"' || first == '\'') && (last == '"' || last == '\'') {
			key = key[1 : len(key)-1]
		}
	}
	return key
}

func normalizeBaseURL(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}

	return strings.TrimRight(parsed.String(), "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// loadEnvFile overlays the first env file found. Running without one is fine:
// containers usually inject the environment directly.
func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
