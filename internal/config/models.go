package config

import (
	"encoding/json"
	"os"
)

// FallbackModel is used when no models file is configured or it lists nothing
const FallbackModel = "gpt-4o-mini"

// Model represents a completion model the backend may call
type Model struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// ModelsConfig holds the available models configuration
type ModelsConfig struct {
	models []Model
}

// NewModelsConfig creates a new models configuration from a file
func NewModelsConfig(configPath string) (*ModelsConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var models []Model
	err = json.Unmarshal(data, &models)
	if err != nil {
		return nil, err
	}

	return &ModelsConfig{models: models}, nil
}

// LoadModelsConfig reads the models file when a path is set; an empty path yields an empty list
func LoadModelsConfig(configPath string) (*ModelsConfig, error) {
	if configPath == "" {
		return &ModelsConfig{}, nil
	}
	return NewModelsConfig(configPath)
}

// NewStaticModelsConfig builds a models configuration from an in-memory list
func NewStaticModelsConfig(models ...Model) *ModelsConfig {
	return &ModelsConfig{models: models}
}

// GetAvailableModels returns the list of available models
func (mc *ModelsConfig) GetAvailableModels() []Model {
	return mc.models
}

// DefaultModelFor returns the first model configured for the given provider,
// then the first model overall, then FallbackModel.
func (mc *ModelsConfig) DefaultModelFor(provider string) string {
	if mc == nil {
		return FallbackModel
	}
	for _, model := range mc.models {
		if model.Provider == provider {
			return model.ID
		}
	}
	if len(mc.models) > 0 {
		return mc.models[0].ID
	}
	return FallbackModel
}
