package config

import "time"

type Config struct {
	JournalPath string
	UserID      string
	Timezone    string
	LLM         LLMConfig
	Extractor   LLMConfig
	Embedder    EmbedderConfig
	Graph       GraphConfig
	Pipeline    PipelineConfig
}

type LLMConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

type EmbedderConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

type GraphConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// PipelineConfig tunes the per-turn orchestration. Defaults come from the
// code, an optional goldfish.yml can override them, and environment
// variables win over both.
//
// MaxResponseWords is the target the model is prompted with; enforcement
// allows half again as many words before a response is regenerated.
type PipelineConfig struct {
	ContextBudget      int           `yaml:"context_budget"`
	RetrieveK          int           `yaml:"retrieve_k"`
	GraphDepth         int           `yaml:"graph_depth"`
	StageTimeout       time.Duration `yaml:"-"`
	StageTimeoutMS     int           `yaml:"stage_timeout_ms"`
	MaxResponseTokens  int           `yaml:"max_response_tokens"`
	MaxResponseWords   int           `yaml:"max_response_words"`
	AcknowledgeEvery   int           `yaml:"acknowledge_every"`
	IntensityThreshold int           `yaml:"intensity_threshold"`
	BackfillSchedule   string        `yaml:"backfill_schedule"`
	BackfillBatch      int           `yaml:"backfill_batch"`
}
