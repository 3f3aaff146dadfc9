package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	Port               int
	PromptConfigPath   string // Path to the prompt catalog JSON file
	PromptBaseURL      string // URL prefix prepended to prompt ids when rendering
	ClassifierProvider string // "http" or "gemini"
	ClassifierURL      string // Endpoint for the HTTP classifier
	GeminiAPIKey       string // API key for the Gemini classifier
	ClassifierTimeout  time.Duration
	RedisURL           string
	RedisPassword      string
	MaxSessions        int
	SessionTimeout     time.Duration
	AllowedOrigins     []string // Origins allowed to connect to the activity socket
	VoiceLanguage      string   // Speech recognition language hint for Gather
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:               8080,
		ClassifierProvider: "http",
		ClassifierTimeout:  5 * time.Second,
		RedisURL:           "localhost:6379",
		RedisPassword:      "",
		MaxSessions:        100,
		SessionTimeout:     30 * time.Minute,
		AllowedOrigins:     []string{"*"},
		VoiceLanguage:      "en-US",
	}

	// Required: PROMPT_CONFIG
	config.PromptConfigPath = os.Getenv("PROMPT_CONFIG")
	if config.PromptConfigPath == "" {
		return nil, fmt.Errorf("PROMPT_CONFIG environment variable is required")
	}

	// Required: PROMPT_BASE_URL
	config.PromptBaseURL = os.Getenv("PROMPT_BASE_URL")
	if config.PromptBaseURL == "" {
		return nil, fmt.Errorf("PROMPT_BASE_URL environment variable is required")
	}

	// Optional: CLASSIFIER_PROVIDER ("http" or "gemini")
	if provider := os.Getenv("CLASSIFIER_PROVIDER"); provider != "" {
		switch provider {
		case "http", "gemini":
			config.ClassifierProvider = provider
		default:
			return nil, fmt.Errorf("invalid CLASSIFIER_PROVIDER: must be 'http' or 'gemini'")
		}
	}

	// CLASSIFIER_URL is required for the HTTP provider, GEMINI_API_KEY for Gemini
	config.ClassifierURL = os.Getenv("CLASSIFIER_URL")
	config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	switch config.ClassifierProvider {
	case "http":
		if config.ClassifierURL == "" {
			return nil, fmt.Errorf("CLASSIFIER_URL environment variable is required when CLASSIFIER_PROVIDER is 'http'")
		}
	case "gemini":
		if config.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required when CLASSIFIER_PROVIDER is 'gemini'")
		}
	}

	// Optional: PORT
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = p
	}

	// Optional: CLASSIFIER_TIMEOUT (in seconds)
	if timeout := os.Getenv("CLASSIFIER_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid CLASSIFIER_TIMEOUT: %w", err)
		}
		config.ClassifierTimeout = time.Duration(t) * time.Second
	}

	// Optional: REDIS_URL
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
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
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	// Optional: VOICE_LANGUAGE
	if language := os.Getenv("VOICE_LANGUAGE"); language != "" {
		config.VoiceLanguage = language
	}

	return config, nil
}
