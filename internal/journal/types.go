package journal

import (
	"context"
	"database/sql"
	"time"
)

// Embedder is the embedding capability. Version identifies the embedding
// model; it is recorded on every stored chunk so retrieval never mixes
// embedding spaces.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Version() string
}

type Store struct {
	db       *sql.DB
	embedder Embedder
}

// Turn is one exchange line in a session transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Entry is one saved journaling session. Immutable once saved except for
// deletion.
type Entry struct {
	ID         string
	UserID     string
	Title      string
	Summary    string
	Transcript []Turn
	CreatedAt  time.Time
}

// Chunk is a retrieval-sized slice of an entry's summarized text.
type Chunk struct {
	ID               int64
	EntryID          string
	UserID           string
	Text             string
	EmbeddingVersion string
	CreatedAt        time.Time
}

// ScoredChunk pairs a chunk with its cosine similarity to a query.
type ScoredChunk struct {
	*Chunk
	Similarity float64
}
