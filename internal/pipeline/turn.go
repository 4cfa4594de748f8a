package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bowerhall/goldfish/internal/budget"
	"github.com/bowerhall/goldfish/internal/graph"
	"github.com/bowerhall/goldfish/internal/journal"
	"github.com/bowerhall/goldfish/internal/llm"
	"github.com/bowerhall/goldfish/internal/logger"
	"github.com/bowerhall/goldfish/internal/nlu"
)

const historyWindow = 10

// HandleTurn runs the read path for one user message: context gathering,
// budget assembly, routing, and generation. Context sources are best-effort;
// only a missing responder makes the turn itself degrade to a canned reply.
func (p *Pipeline) HandleTurn(ctx context.Context, userID, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty message")
	}

	sess := p.sessions.Get(userID)
	if !sess.TryAcquire() {
		return nil, fmt.Errorf("a turn is already being processed")
	}
	defer sess.Release()

	firstTurn := sess.Len() == 0
	history := sess.Messages()
	sess.AddMessage("user", text)

	result := &TurnResult{}

	if firstTurn && isGreeting(text) {
		result.Response = p.greet(ctx, userID, text)
		result.noteStage(stageSkipped("context", "greeting"))
		sess.AddMessage("assistant", result.Response)
		return result, nil
	}

	chunks, facts := p.gatherContext(ctx, userID, text, history, result)
	graphFacts := p.gatherGraphFacts(ctx, userID, facts, result)

	block := budget.Assemble(facts, chunks, graphFacts, p.cfg.ContextBudget)

	userTurns := countUserTurns(history) + 1
	acknowledge := showsInsight(text) ||
		(p.cfg.AcknowledgeEvery > 0 && userTurns%p.cfg.AcknowledgeEvery == 0)

	systemPrompt := p.buildSystemPrompt(block, facts, acknowledge)
	result.Response = p.generate(ctx, systemPrompt, sess.Messages(), result)

	sess.AddMessage("assistant", result.Response)
	return result, nil
}

// gatherContext runs semantic retrieval and knowledge extraction
// concurrently, each under its own timeout.
func (p *Pipeline) gatherContext(ctx context.Context, userID, text string, history []llm.Message, result *TurnResult) ([]*journal.ScoredChunk, *nlu.Facts) {
	var (
		chunks       []*journal.ScoredChunk
		retrieveErr  error
		retrieveTime time.Duration
		facts        *nlu.Facts
		extractTime  time.Duration
	)

	var wg sync.WaitGroup

	if p.store != nil && p.store.HasEmbedder() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, p.stageTimeout())
			defer cancel()
			start := time.Now()
			chunks, retrieveErr = p.store.Retrieve(sctx, userID, text, p.cfg.RetrieveK)
			retrieveTime = time.Since(start)
		}()
	}

	if p.extractor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, p.stageTimeout())
			defer cancel()
			start := time.Now()
			facts = p.extractor.Extract(sctx, text, recentUserTexts(history))
			extractTime = time.Since(start)
		}()
	}

	wg.Wait()

	switch {
	case p.store == nil || !p.store.HasEmbedder():
		result.noteStage(stageSkipped("retrieval", "no embedder"))
	case retrieveErr != nil:
		logger.Warn("semantic retrieval failed", "error", retrieveErr)
		result.noteStage(stageFailed("retrieval", retrieveErr.Error(), retrieveTime))
		chunks = nil
	default:
		result.noteStage(stageOK("retrieval", retrieveTime))
	}

	if p.extractor == nil {
		result.noteStage(stageSkipped("extraction", "no extractor"))
	} else {
		result.noteStage(stageOK("extraction", extractTime))
	}

	return chunks, facts
}

func (p *Pipeline) gatherGraphFacts(ctx context.Context, userID string, facts *nlu.Facts, result *TurnResult) []graph.Fact {
	if p.graph == nil {
		result.noteStage(stageSkipped("graph", "graph disabled"))
		return nil
	}

	var names []string
	if facts != nil {
		names = facts.EntityNames()
	}
	if len(names) == 0 {
		result.noteStage(stageSkipped("graph", "no entities this turn"))
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, p.stageTimeout())
	defer cancel()

	start := time.Now()
	graphFacts := p.graph.Related(sctx, userID, names, p.cfg.GraphDepth)
	result.noteStage(stageOK("graph", time.Since(start)))

	return graphFacts
}

// generate produces the final response. One retry for transport errors, one
// corrective regeneration for format violations; after that the response is
// served flagged rather than dropped.
func (p *Pipeline) generate(ctx context.Context, systemPrompt string, messages []llm.Message, result *TurnResult) string {
	if p.responder == nil {
		result.noteStage(stageFailed("generation", "no responder configured", 0))
		return unavailableResponse
	}

	window := messages
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}

	start := time.Now()
	response, err := p.responder.Complete(ctx, systemPrompt, window, p.cfg.MaxResponseTokens)
	if err != nil {
		logger.Warn("generation failed, retrying once", "error", err)
		response, err = p.responder.Complete(ctx, systemPrompt, window, p.cfg.MaxResponseTokens)
	}
	if err != nil {
		logger.Error("generation failed after retry", "error", err)
		result.noteStage(stageFailed("generation", err.Error(), time.Since(start)))
		return unavailableResponse
	}

	response = strings.TrimSpace(response)
	violations := validateResponse(response, p.cfg.MaxResponseWords)
	if len(violations) > 0 {
		logger.Debug("response failed format checks, regenerating", "violations", strings.Join(violations, "; "))
		redone, rerr := p.responder.Complete(ctx, systemPrompt+correctiveNote(violations), window, p.cfg.MaxResponseTokens)
		if rerr == nil {
			redone = strings.TrimSpace(redone)
			if len(validateResponse(redone, p.cfg.MaxResponseWords)) == 0 {
				result.noteStage(stageOK("generation", time.Since(start)))
				return redone
			}
			response = redone
		}
		result.Flagged = true
	}

	result.noteStage(stageOK("generation", time.Since(start)))
	return response
}

// greet answers an opening greeting without running the full pipeline. A few
// recent memories personalize the welcome when available.
func (p *Pipeline) greet(ctx context.Context, userID, text string) string {
	if p.responder == nil {
		return defaultGreeting
	}

	var recent string
	if p.store != nil && p.store.HasEmbedder() {
		sctx, cancel := context.WithTimeout(ctx, p.stageTimeout())
		defer cancel()
		if chunks, err := p.store.Retrieve(sctx, userID, text, 3); err == nil && len(chunks) > 0 {
			var texts []string
			for _, c := range chunks {
				texts = append(texts, c.Text)
			}
			recent = strings.Join(texts, "\n")
			if len(recent) > 300 {
				recent = recent[:300]
			}
		}
	}

	messages := []llm.Message{{Role: "user", Content: text}}
	if recent != "" {
		messages = []llm.Message{{
			Role:    "user",
			Content: fmt.Sprintf("Recent context from the user's journal:\n%s\n\nThey just said: %q. Welcome them back.", recent, text),
		}}
	}

	response, err := p.responder.Complete(ctx, greetingSystemPrompt, messages, 60)
	if err != nil {
		logger.Warn("greeting generation failed", "error", err)
		return defaultGreeting
	}

	return strings.TrimSpace(response)
}

func (p *Pipeline) stageTimeout() time.Duration {
	if p.cfg.StageTimeout > 0 {
		return p.cfg.StageTimeout
	}
	return 3 * time.Second
}

func countUserTurns(history []llm.Message) int {
	n := 0
	for _, m := range history {
		if m.Role == "user" {
			n++
		}
	}
	return n
}

func recentUserTexts(history []llm.Message) []string {
	var texts []string
	for _, m := range history {
		if m.Role == "user" {
			texts = append(texts, m.Content)
		}
	}
	if len(texts) > 3 {
		texts = texts[len(texts)-3:]
	}
	return texts
}
