package journal

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SaveEntry persists a journaling session. This is the only write in the
// save path that is allowed to fail the operation; chunk embedding and graph
// enrichment run afterwards and are best-effort.
func (s *Store) SaveEntry(userID, title, summary string, transcript []Turn) (*Entry, error) {
	if userID == "" {
		return nil, fmt.Errorf("missing user id")
	}

	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}

	id := uuid.NewString()
	if _, err := s.db.Exec(queryInsertEntry, id, userID, title, summary, string(transcriptJSON)); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	entry := &Entry{
		ID:         id,
		UserID:     userID,
		Title:      title,
		Summary:    summary,
		Transcript: transcript,
	}

	return entry, nil
}

func (s *Store) GetEntry(userID, entryID string) (*Entry, error) {
	row := s.db.QueryRow(queryGetEntry, entryID, userID)
	return scanEntry(row)
}

func (s *Store) ListEntries(userID string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(queryListEntries, userID, limit)
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

// DeleteEntry removes an entry and its chunks and chunk vectors. Graph nodes
// are intentionally left alone: entities are shared across entries.
func (s *Store) DeleteEntry(userID, entryID string) error {
	ids, err := s.chunkIDs(userID, entryID)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := s.db.Exec(queryDeleteChunkVector, id); err != nil {
			return err
		}
	}

	if _, err := s.db.Exec(queryDeleteEntryChunks, entryID, userID); err != nil {
		return err
	}

	result, err := s.db.Exec(queryDeleteEntry, entryID, userID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("entry not found")
	}

	return nil
}

func (s *Store) chunkIDs(userID, entryID string) ([]int64, error) {
	rows, err := s.db.Query(queryChunkIDsByEntry, entryID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var transcriptJSON string

	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Summary, &transcriptJSON, &e.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(transcriptJSON), &e.Transcript); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}

	return &e, nil
}
