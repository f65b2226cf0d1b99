package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"streamchat/internal/logger"

	"github.com/sirupsen/logrus"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Server   ServerConfig
	Database DatabaseConfig
	LLM      LLMConfig
	Auth     AuthConfig
	Log      LogConfig
	Models   *ModelsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port              string
	CORSAllowedOrigin string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver   string
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	SQLitePath string

	// SaveTimeout bounds the detached write of an assistant reply after streaming
	SaveTimeout time.Duration
}

// LLMConfig holds completion provider configuration
type LLMConfig struct {
	Provider         string
	APIKey           string
	BaseURL          string
	GeminiAPIKey     string
	SystemPrompt     string
	TitlePrompt      string
	Temperature      *float64
	MaxContextTokens int
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret       []byte
	TokenExpiration time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

const (
	DefaultSystemPrompt = "You are a helpful AI assistant. Respond to the user's message while considering the conversation history. Be conversational and helpful."
	DefaultTitlePrompt  = "You are a title generation specialist. Based on the conversation content, generate a concise, descriptive title (maximum 50 characters) that captures the main topic or theme of the conversation. Return only the title, nothing else."
)

// LoadConfig loads and validates application configuration from environment
func LoadConfig() (*AppConfig, error) {
	config := &AppConfig{}

	config.Server = ServerConfig{
		Port:              getEnvOrDefault("SERVER_PORT", "8000"),
		CORSAllowedOrigin: getEnvOrDefault("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
	}

	config.Database = DatabaseConfig{
		Driver:      getEnvOrDefault("DB_DRIVER", "postgres"),
		URL:         os.Getenv("DATABASE_URL"),
		Host:        getEnvOrDefault("DB_HOST", "localhost"),
		Port:        getEnvOrDefault("DB_PORT", "5432"),
		User:        getEnvOrDefault("DB_USER", "postgres"),
		Password:    getEnvOrDefault("DB_PASSWORD", "postgres"),
		Name:        getEnvOrDefault("DB_NAME", "chatbot"),
		SSLMode:     getEnvOrDefault("DB_SSLMODE", "disable"),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "chat.db"),
		SaveTimeout: getEnvAsDuration("DB_SAVE_TIMEOUT", 10*time.Second),
	}
	switch config.Database.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return nil, fmt.Errorf("DB_DRIVER must be postgres, sqlite or memory, got %q", config.Database.Driver)
	}

	apiKey := firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENROUTER_API_KEY"))
	config.LLM = LLMConfig{
		Provider:         getEnvOrDefault("LLM_PROVIDER", "openrouter"),
		APIKey:           apiKey,
		BaseURL:          os.Getenv("LLM_BASE_URL"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		SystemPrompt:     getEnvOrDefault("LLM_SYSTEM_PROMPT", DefaultSystemPrompt),
		TitlePrompt:      getEnvOrDefault("LLM_TITLE_PROMPT", DefaultTitlePrompt),
		Temperature:      getEnvAsOptionalFloat("LLM_TEMPERATURE"),
		MaxContextTokens: getEnvAsInt("LLM_MAX_CONTEXT_TOKENS", 0),
	}
	if config.LLM.APIKey == "" && config.LLM.Provider != "mock" && config.LLM.Provider != "gemini" {
		logger.Log.Warn("LLM_API_KEY environment variable not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable must be set")
	}
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters (current length: %d)", len(jwtSecret))
	}

	config.Auth = AuthConfig{
		JWTSecret:       []byte(jwtSecret),
		TokenExpiration: getEnvAsDuration("JWT_TOKEN_EXPIRATION", 24*time.Hour),
	}

	config.Log = LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
	}

	modelsConfig, err := LoadModelsConfig(os.Getenv("MODELS_CONFIG_PATH"))
	if err != nil {
		return nil, fmt.Errorf("failed to load models config: %w", err)
	}
	config.Models = modelsConfig

	return config, nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsOptionalFloat(key string) *float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		logger.Log.WithField("key", key).Warn("Invalid float value, ignoring")
		return nil
	}
	return &value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}
