package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

func Load() (*Config, error) {
	journalPath := os.Getenv("GOLDFISH_JOURNAL")
	if journalPath == "" {
		journalPath = "goldfish.db"
	}

	userID := os.Getenv("GOLDFISH_USER")
	if userID == "" {
		userID = "default"
	}

	timezone := os.Getenv("TZ")
	if timezone == "" {
		timezone = "UTC"
	}

	llmConfig, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	extractorConfig, err := loadExtractorConfig()
	if err != nil {
		return nil, err
	}

	pipelineConfig, err := loadPipelineConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		JournalPath: journalPath,
		UserID:      userID,
		Timezone:    timezone,
		LLM:         llmConfig,
		Extractor:   extractorConfig,
		Embedder:    loadEmbedderConfig(),
		Graph:       loadGraphConfig(),
		Pipeline:    pipelineConfig,
	}, nil
}

func loadLLMConfig() (LLMConfig, error) {
	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = "claude"
	}

	apiKey, err := getAPIKey(provider, "LLM")
	if err != nil {
		return LLMConfig{}, err
	}

	return LLMConfig{
		Provider: provider,
		APIKey:   apiKey,
		Model:    os.Getenv("LLM_MODEL"),
		BaseURL:  os.Getenv("LLM_BASE_URL"),
	}, nil
}

// The extractor runs the knowledge-extraction prompt. It defaults to the
// responder's provider so a single API key is enough to run everything,
// but a smaller or local model is usually the better fit.
func loadExtractorConfig() (LLMConfig, error) {
	provider := os.Getenv("EXTRACTOR_PROVIDER")
	if provider == "" {
		provider = os.Getenv("LLM_PROVIDER")
	}
	if provider == "" {
		provider = "claude"
	}

	apiKey, err := getAPIKey(provider, "EXTRACTOR")
	if err != nil {
		return LLMConfig{}, err
	}

	return LLMConfig{
		Provider: provider,
		APIKey:   apiKey,
		Model:    os.Getenv("EXTRACTOR_MODEL"),
		BaseURL:  os.Getenv("EXTRACTOR_BASE_URL"),
	}, nil
}

func loadEmbedderConfig() EmbedderConfig {
	apiKey := os.Getenv("EMBEDDER_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	return EmbedderConfig{
		Provider: os.Getenv("EMBEDDER_PROVIDER"),
		APIKey:   apiKey,
		BaseURL:  os.Getenv("EMBEDDER_URL"),
		Model:    os.Getenv("EMBEDDER_MODEL"),
	}
}

func loadGraphConfig() GraphConfig {
	return GraphConfig{
		URI:      os.Getenv("NEO4J_URI"),
		User:     os.Getenv("NEO4J_USER"),
		Password: os.Getenv("NEO4J_PASSWORD"),
		Database: os.Getenv("NEO4J_DATABASE"),
	}
}

func loadPipelineConfig() (PipelineConfig, error) {
	cfg := PipelineConfig{
		ContextBudget:      1500,
		RetrieveK:          5,
		GraphDepth:         1,
		StageTimeoutMS:     3000,
		MaxResponseTokens:  200,
		MaxResponseWords:   50,
		AcknowledgeEvery:   3,
		IntensityThreshold: 4,
		BackfillSchedule:   "*/10 * * * *",
		BackfillBatch:      20,
	}

	path := os.Getenv("GOLDFISH_CONFIG")
	if path == "" {
		path = "goldfish.yml"
	}

	if data, err := os.ReadFile(path); err == nil {
		var file struct {
			Pipeline PipelineConfig `yaml:"pipeline"`
		}
		file.Pipeline = cfg
		if err := yaml.Unmarshal(data, &file); err != nil {
			return PipelineConfig{}, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg = file.Pipeline
	}

	overrideInt(&cfg.ContextBudget, "GOLDFISH_CONTEXT_BUDGET")
	overrideInt(&cfg.RetrieveK, "GOLDFISH_RETRIEVE_K")
	overrideInt(&cfg.GraphDepth, "GOLDFISH_GRAPH_DEPTH")
	overrideInt(&cfg.StageTimeoutMS, "GOLDFISH_STAGE_TIMEOUT_MS")
	overrideInt(&cfg.MaxResponseWords, "GOLDFISH_MAX_WORDS")
	overrideInt(&cfg.AcknowledgeEvery, "GOLDFISH_ACKNOWLEDGE_EVERY")
	overrideInt(&cfg.IntensityThreshold, "GOLDFISH_INTENSITY_THRESHOLD")
	if schedule := os.Getenv("GOLDFISH_BACKFILL_SCHEDULE"); schedule != "" {
		cfg.BackfillSchedule = schedule
	}

	cfg.StageTimeout = time.Duration(cfg.StageTimeoutMS) * time.Millisecond

	return cfg, nil
}

func overrideInt(dst *int, key string) {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		*dst = v
	}
}

func getAPIKey(provider, prefix string) (string, error) {
	envKey := os.Getenv(prefix + "_API_KEY")
	if envKey != "" {
		return envKey, nil
	}

	switch provider {
	case "claude":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return "", fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		return key, nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return "", fmt.Errorf("OPENAI_API_KEY not set")
		}
		return key, nil
	case "ollama":
		// Ollama doesn't need an API key
		return "ollama", nil
	default:
		name := strings.ToUpper(provider) + "_API_KEY"
		key := os.Getenv(name)
		if key == "" {
			return "", fmt.Errorf("%s not set", name)
		}
		return key, nil
	}
}
