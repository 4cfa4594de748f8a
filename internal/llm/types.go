package llm

import "context"

type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

type Message struct {
	Role    string
	Content string
}

// LLM is the text-completion capability. maxTokens caps output length;
// zero means provider default.
type LLM interface {
	Complete(ctx context.Context, systemPrompt string, messages []Message, maxTokens int) (string, error)
}
