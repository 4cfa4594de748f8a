package journal

const (
	queryInsertEntry = `INSERT INTO entries (id, user_id, title, summary, transcript) VALUES (?, ?, ?, ?, ?)`
	queryGetEntry    = `SELECT id, user_id, title, summary, transcript, created_at FROM entries WHERE id = ? AND user_id = ?`
	queryListEntries = `SELECT id, user_id, title, summary, transcript, created_at FROM entries WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`
	queryDeleteEntry = `DELETE FROM entries WHERE id = ? AND user_id = ?`

	queryInsertChunk       = `INSERT INTO chunks (entry_id, user_id, chunk_text, embedding_version) VALUES (?, ?, ?, ?)`
	queryGetChunksByEntry  = `SELECT id, entry_id, user_id, chunk_text, embedding_version, created_at FROM chunks WHERE entry_id = ? AND user_id = ?`
	queryDeleteEntryChunks = `DELETE FROM chunks WHERE entry_id = ? AND user_id = ?`
	queryDeleteChunkVector = `DELETE FROM vec_chunks WHERE chunk_id = ?`
	queryChunkIDsByEntry   = `SELECT id FROM chunks WHERE entry_id = ? AND user_id = ?`

	queryInsertChunkVector = `INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)`

	queryEntriesMissingChunks = `
		SELECT e.id, e.user_id, e.title, e.summary, e.transcript, e.created_at
		FROM entries e
		WHERE NOT EXISTS (SELECT 1 FROM chunks c WHERE c.entry_id = e.id)
		ORDER BY e.created_at
		LIMIT ?`

	querySearchChunks = `
		SELECT c.id, c.entry_id, c.user_id, c.chunk_text, c.embedding_version, c.created_at, v.distance
		FROM vec_chunks v
		JOIN chunks c ON v.chunk_id = c.id
		WHERE v.embedding MATCH ?
		  AND k = ?
		  AND c.user_id = ?
		  AND c.embedding_version = ?
		ORDER BY v.distance, c.created_at DESC
		LIMIT ?`
)
