package journal

import (
	"context"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/ncruces"

	"github.com/bowerhall/goldfish/internal/logger"
)

// The vec0 KNN limit applies before the owner join, so the nearest-neighbor
// pool is oversampled to keep other users' vectors from consuming the
// caller's k slots.
const knnOversample = 4

// Retrieve runs nearest-neighbor search over the caller's chunks. Owner and
// embedding-version scoping happen inside the KNN query itself, never by
// post-filtering, so another user's chunks cannot influence ranking. Returns
// at most k results; returns an empty list when no embedder is configured or
// the embedding call fails, since retrieval is best-effort context.
func (s *Store) Retrieve(ctx context.Context, userID, query string, k int) ([]*ScoredChunk, error) {
	if s.embedder == nil || k <= 0 {
		return nil, nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("query embedding failed, skipping retrieval", "error", err)
		return nil, nil
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(querySearchChunks, blob, k*knnOversample, userID, s.embedder.Version(), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*ScoredChunk
	for rows.Next() {
		var c Chunk
		var distance float64
		if err := rows.Scan(&c.ID, &c.EntryID, &c.UserID, &c.Text, &c.EmbeddingVersion, &c.CreatedAt, &distance); err != nil {
			return nil, err
		}
		// cosine distance -> similarity
		results = append(results, &ScoredChunk{Chunk: &c, Similarity: 1 - distance})
	}

	return results, rows.Err()
}
