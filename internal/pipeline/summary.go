package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/bowerhall/goldfish/internal/journal"
	"github.com/bowerhall/goldfish/internal/llm"
	"github.com/bowerhall/goldfish/internal/logger"
)

const (
	maxSummaryLength         = 200
	maxFallbackSummaryLength = 100
	summaryTokens            = 150
	titleTokens              = 20
)

const summarizerSystemPrompt = "You are a helpful assistant that creates concise, empathetic summaries of journaling conversations."

const titleSystemPrompt = "You are a helpful assistant that creates short, descriptive titles for journal entries."

// summarize condenses a finished conversation into 2-3 sentences. The model
// is best-effort; without it the first user message stands in.
func (p *Pipeline) summarize(ctx context.Context, transcript []journal.Turn) string {
	if p.responder != nil {
		prompt := fmt.Sprintf(`Please summarize this journaling conversation in 2-3 sentences, capturing the key themes, emotions, and insights discussed. Focus on what the user shared about their thoughts, feelings, or experiences.

Conversation:
%s

Summary:`, formatTranscript(transcript))

		summary, err := p.responder.Complete(ctx, summarizerSystemPrompt, []llm.Message{{Role: "user", Content: prompt}}, summaryTokens)
		if err == nil {
			summary = strings.TrimSpace(summary)
			if summary != "" {
				return truncate(summary, maxSummaryLength)
			}
		} else {
			logger.Warn("summary generation failed, using fallback", "error", err)
		}
	}

	return fallbackSummary(transcript)
}

func (p *Pipeline) makeTitle(ctx context.Context, transcript []journal.Turn) string {
	opening := firstUserMessage(transcript)
	if opening == "" {
		return "Journal Entry"
	}

	if p.responder != nil {
		prompt := fmt.Sprintf(`Create a short, descriptive title (3-6 words) for this journal entry based on the user's opening message:

"%s"

Title:`, truncate(opening, 300))

		title, err := p.responder.Complete(ctx, titleSystemPrompt, []llm.Message{{Role: "user", Content: prompt}}, titleTokens)
		if err == nil {
			title = strings.TrimSpace(strings.NewReplacer(`"`, "", "'", "").Replace(title))
			if title != "" {
				return title
			}
		} else {
			logger.Warn("title generation failed, using fallback", "error", err)
		}
	}

	return truncate(opening, 40)
}

func formatTranscript(transcript []journal.Turn) string {
	var lines []string
	for _, turn := range transcript {
		switch turn.Role {
		case "user":
			lines = append(lines, "User: "+turn.Content)
		case "assistant":
			lines = append(lines, "Assistant: "+turn.Content)
		}
	}
	return strings.Join(lines, "\n")
}

func fallbackSummary(transcript []journal.Turn) string {
	first := firstUserMessage(transcript)
	if first == "" {
		return "A journaling conversation was recorded."
	}
	return truncate(first, maxFallbackSummaryLength)
}

func firstUserMessage(transcript []journal.Turn) string {
	for _, turn := range transcript {
		if turn.Role == "user" {
			return turn.Content
		}
	}
	return ""
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max-3] + "..."
}
