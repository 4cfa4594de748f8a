package journal

import (
	"context"
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/ncruces"
)

// ChunkTranscript splits a transcript into retrieval-sized pieces: one chunk
// per user/assistant exchange. An empty transcript yields no chunks.
func ChunkTranscript(transcript []Turn) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		text := strings.TrimSpace(current.String())
		if text != "" {
			chunks = append(chunks, text)
		}
		current.Reset()
	}

	for _, turn := range transcript {
		switch turn.Role {
		case "user":
			flush()
			current.WriteString("User: " + turn.Content + "\n")
		case "assistant":
			current.WriteString("Assistant: " + turn.Content + "\n")
		}
	}
	flush()

	return chunks
}

// StoreChunks embeds and stores the given texts for an entry. The whole
// batch is embedded before any row is written: a mid-batch embedder failure
// leaves the entry with no chunks at all, which keeps it visible to the
// maintenance scan for repair. Any chunks left behind by an earlier run are
// cleared first, so a retried write-path never duplicates chunks. Returns
// the number of chunks stored.
func (s *Store) StoreChunks(ctx context.Context, userID, entryID string, texts []string) (int, error) {
	if s.embedder == nil {
		return 0, fmt.Errorf("no embedder configured")
	}

	blobs := make([][]byte, 0, len(texts))
	for _, text := range texts {
		embedding, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return 0, fmt.Errorf("embed chunk: %w", err)
		}

		if len(embedding) != VectorDimensions {
			return 0, fmt.Errorf("embedding has %d dimensions, want %d", len(embedding), VectorDimensions)
		}

		blob, err := sqlite_vec.SerializeFloat32(embedding)
		if err != nil {
			return 0, err
		}
		blobs = append(blobs, blob)
	}

	ids, err := s.chunkIDs(userID, entryID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := s.db.Exec(queryDeleteChunkVector, id); err != nil {
			return 0, err
		}
	}
	if _, err := s.db.Exec(queryDeleteEntryChunks, entryID, userID); err != nil {
		return 0, err
	}

	version := s.embedder.Version()
	stored := 0

	for i, text := range texts {
		result, err := s.db.Exec(queryInsertChunk, entryID, userID, text, version)
		if err != nil {
			return stored, err
		}

		chunkID, _ := result.LastInsertId()
		if _, err := s.db.Exec(queryInsertChunkVector, chunkID, blobs[i]); err != nil {
			return stored, err
		}

		stored++
	}

	return stored, nil
}

func (s *Store) ChunksByEntry(userID, entryID string) ([]*Chunk, error) {
	rows, err := s.db.Query(queryGetChunksByEntry, entryID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.EntryID, &c.UserID, &c.Text, &c.EmbeddingVersion, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}

	return chunks, rows.Err()
}

// EntriesMissingChunks lists entries whose write-path enrichment never
// stored chunks, typically because the embedder was down at save time.
// The maintenance loop re-runs chunking for these.
func (s *Store) EntriesMissingChunks(limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(queryEntriesMissingChunks, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
