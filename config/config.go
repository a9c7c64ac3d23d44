package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	Port            int           `validate:"min=1,max=65535"`
	CatalogSource   string        `validate:"required"` // CSV path, postgres:// or sqlite:// URL
	CatalogTable    string        `validate:"required"`
	RedisURL        string        // empty disables the session mirror
	RedisPassword   string
	MaxSessions     int           `validate:"min=1"`
	SessionTimeout  time.Duration `validate:"gt=0"`
	AllowedOrigins  []string      `validate:"min=1,dive,required"`
	KeepAlivePeriod time.Duration `validate:"gte=0"`

	// Presentation
	Formal        bool
	Uppercase     bool
	ResponseDelay time.Duration `validate:"gte=0"`

	// Per-session turn limiting
	TurnRate      float64 `validate:"gt=0"`
	TurnBurst     int     `validate:"min=1"`
	MaxTranscript int     `validate:"min=1"`

	// Classification
	GeminiAPIKey    string // optional, enables the Gemini classifier
	GeminiModel     string `validate:"required"`
	ClassifierRules string // optional path to extra "act utterance" lines

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`
}

var validate = validator.New()

// Default returns the configuration used when no variable is set.
func Default() *Config {
	return &Config{
		Port:            8080,
		CatalogSource:   "data/restaurant_info.csv",
		CatalogTable:    "restaurants",
		RedisURL:        "localhost:6379",
		RedisPassword:   "",
		MaxSessions:     100,
		SessionTimeout:  30 * time.Minute,
		AllowedOrigins:  []string{"*"},
		KeepAlivePeriod: 30 * time.Second,
		TurnRate:        5,
		TurnBurst:       10,
		MaxTranscript:   200,
		GeminiModel:     "gemini-2.5-flash",
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := Default()

	// Optional: PORT
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = p
	}

	// Optional: CATALOG_SOURCE and CATALOG_TABLE
	if source := os.Getenv("CATALOG_SOURCE"); source != "" {
		config.CatalogSource = source
	}
	if table := os.Getenv("CATALOG_TABLE"); table != "" {
		config.CatalogTable = table
	}

	// Optional: REDIS_URL ("none" disables Redis)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
		if redisURL == "none" {
			config.RedisURL = ""
		}
	}

	// Optional: REDIS_PASSWORD
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.RedisPassword = redisPassword
	}

	// Optional: MAX_SESSIONS
	if maxSessions := os.Getenv("MAX_SESSIONS"); maxSessions != "" {
		m, err := strconv.Atoi(maxSessions)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_SESSIONS: %w", err)
		}
		config.MaxSessions = m
	}

	// Optional: SESSION_TIMEOUT (in minutes)
	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		config.SessionTimeout = time.Duration(t) * time.Minute
	}

	// Optional: ALLOWED_ORIGINS (comma-separated)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = splitList(origins)
	}

	// Optional: KEEPALIVE_PERIOD (in seconds)
	if keepalive := os.Getenv("KEEPALIVE_PERIOD"); keepalive != "" {
		k, err := strconv.Atoi(keepalive)
		if err != nil {
			return nil, fmt.Errorf("invalid KEEPALIVE_PERIOD: %w", err)
		}
		config.KeepAlivePeriod = time.Duration(k) * time.Second
	}

	// Optional: FORMAL and UPPERCASE
	if formal := os.Getenv("FORMAL"); formal != "" {
		f, err := strconv.ParseBool(formal)
		if err != nil {
			return nil, fmt.Errorf("invalid FORMAL: %w", err)
		}
		config.Formal = f
	}
	if upper := os.Getenv("UPPERCASE"); upper != "" {
		u, err := strconv.ParseBool(upper)
		if err != nil {
			return nil, fmt.Errorf("invalid UPPERCASE: %w", err)
		}
		config.Uppercase = u
	}

	// Optional: RESPONSE_DELAY (in milliseconds)
	if delay := os.Getenv("RESPONSE_DELAY"); delay != "" {
		d, err := strconv.Atoi(delay)
		if err != nil {
			return nil, fmt.Errorf("invalid RESPONSE_DELAY: %w", err)
		}
		config.ResponseDelay = time.Duration(d) * time.Millisecond
	}

	// Optional: TURN_RATE (turns per second) and TURN_BURST
	if turnRate := os.Getenv("TURN_RATE"); turnRate != "" {
		r, err := strconv.ParseFloat(turnRate, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TURN_RATE: %w", err)
		}
		config.TurnRate = r
	}
	if burst := os.Getenv("TURN_BURST"); burst != "" {
		b, err := strconv.Atoi(burst)
		if err != nil {
			return nil, fmt.Errorf("invalid TURN_BURST: %w", err)
		}
		config.TurnBurst = b
	}

	// Optional: MAX_TRANSCRIPT (turns kept per session)
	if maxTranscript := os.Getenv("MAX_TRANSCRIPT"); maxTranscript != "" {
		m, err := strconv.Atoi(maxTranscript)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_TRANSCRIPT: %w", err)
		}
		config.MaxTranscript = m
	}

	// Optional: GEMINI_API_KEY, GEMINI_MODEL
	config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.GeminiModel = model
	}

	// Optional: CLASSIFIER_RULES
	config.ClassifierRules = os.Getenv("CLASSIFIER_RULES")

	// Optional: LOG_LEVEL, LOG_FORMAT
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = strings.ToLower(level)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.LogFormat = strings.ToLower(format)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
