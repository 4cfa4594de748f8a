package embedder

import (
	"fmt"

	"github.com/bowerhall/goldfish/internal/journal"
)

type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// New returns a nil embedder for an empty provider; callers treat nil as
// "semantic retrieval disabled".
func New(cfg Config) (journal.Embedder, error) {
	switch cfg.Provider {
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		return newOllama(baseURL, model), nil
	case "openai":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := cfg.Model
		if model == "" {
			model = "text-embedding-3-small"
		}
		return newOpenAI(cfg.APIKey, baseURL, model), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedder provider: %s", cfg.Provider)
	}
}
