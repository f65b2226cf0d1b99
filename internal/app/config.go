package app

import (
	"streamchat/internal/config"
	"streamchat/internal/repository/db"
	"streamchat/internal/service/llm"
)

// Config holds all application dependencies and configuration
type Config struct {
	// Database interface for data persistence
	DB db.Database
	// LLM is the completion provider shared by the chat and title services
	LLM llm.LLMProvider
	// Centralized application configuration
	AppConfig *config.AppConfig
}

// NewConfig creates a new application configuration
func NewConfig(database db.Database, provider llm.LLMProvider, appConfig *config.AppConfig) *Config {
	return &Config{
		DB:        database,
		LLM:       provider,
		AppConfig: appConfig,
	}
}
