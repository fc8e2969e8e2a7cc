package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion       string
	BedrockModelID  string
	GeminiAPIKey    string
	GeminiModelID   string
	LLMTimeout      time.Duration
	ClassifierModel string

	SessionReapInterval time.Duration
	SessionMaxAge       time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		BedrockModelID:  getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:   getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		LLMTimeout:      getEnvAsDuration("LLM_TIMEOUT", 10*time.Second),
		ClassifierModel: getEnv("CLASSIFIER_MODEL_ID", ""),

		SessionReapInterval: getEnvAsDuration("SESSION_REAP_INTERVAL", 5*time.Minute),
		SessionMaxAge:       getEnvAsDuration("SESSION_MAX_AGE", 60*time.Minute),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
