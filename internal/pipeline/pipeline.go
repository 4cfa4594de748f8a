package pipeline

import (
	"github.com/bowerhall/goldfish/internal/config"
	"github.com/bowerhall/goldfish/internal/graph"
	"github.com/bowerhall/goldfish/internal/journal"
	"github.com/bowerhall/goldfish/internal/llm"
	"github.com/bowerhall/goldfish/internal/nlu"
	"github.com/bowerhall/goldfish/internal/session"
)

// Pipeline orchestrates a journaling conversation: per turn it gathers
// context from the journal store, the extractor, and the knowledge graph,
// fits it into a token budget, and generates a response. On save it runs
// the write path that persists the entry and enriches the knowledge stores.
type Pipeline struct {
	responder llm.LLM
	extractor nlu.Extractor
	store     *journal.Store
	graph     *graph.Client
	sessions  *session.Store
	cfg       config.PipelineConfig
}

func New(responder llm.LLM, extractor nlu.Extractor, store *journal.Store, graphClient *graph.Client, cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{
		responder: responder,
		extractor: extractor,
		store:     store,
		graph:     graphClient,
		sessions:  session.NewStore(),
		cfg:       cfg,
	}
}

func (p *Pipeline) Store() *journal.Store {
	return p.store
}

func (p *Pipeline) Session(userID string) *session.Session {
	return p.sessions.Get(userID)
}
