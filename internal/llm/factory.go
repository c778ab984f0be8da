package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/phishfuse/internal/model"
)

// OllamaBaseURL is the default OpenAI-compatible endpoint of a local Ollama
const OllamaBaseURL = "http://localhost:11434/v1"

// NewProvider creates a provider from configuration. An empty provider
// returns nil, nil (LLM disabled).
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "ollama":
		// Ollama speaks the OpenAI chat API; the key is ignored but must be non-empty
		if config.BaseURL == "" {
			config.BaseURL = OllamaBaseURL
		}
		if config.APIKey == "" {
			config.APIKey = "ollama"
		}
		p, err := NewOpenAIProvider(config)
		if err != nil {
			return nil, err
		}
		p.name = "ollama"
		return p, nil

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(m model.LLMConfig) Config {
	cfg := DefaultConfig()
	cfg.Provider = m.Provider
	cfg.Model = m.Model
	cfg.APIKey = m.APIKey
	cfg.BaseURL = m.BaseURL
	if m.Timeout > 0 {
		cfg.Timeout = m.Timeout
	}
	if m.MaxTokens > 0 {
		cfg.MaxTokens = m.MaxTokens
	}
	return cfg
}
