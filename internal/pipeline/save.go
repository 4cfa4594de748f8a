package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/bowerhall/goldfish/internal/journal"
	"github.com/bowerhall/goldfish/internal/logger"
)

// SaveEntry runs the write path: the current session becomes a persisted
// journal entry, then the knowledge stores are enriched from it. Only the
// entry insert itself can fail the save; chunk embedding, extraction, and
// graph upserts are best-effort and logged.
func (p *Pipeline) SaveEntry(ctx context.Context, userID string) (*journal.Entry, error) {
	sess := p.sessions.Get(userID)

	messages := sess.Messages()
	if len(messages) == 0 {
		return nil, fmt.Errorf("nothing to save")
	}

	transcript := make([]journal.Turn, 0, len(messages))
	for _, m := range messages {
		transcript = append(transcript, journal.Turn{Role: m.Role, Content: m.Content})
	}

	summary := p.summarize(ctx, transcript)
	title := p.makeTitle(ctx, transcript)

	entry, err := p.store.SaveEntry(userID, title, summary, transcript)
	if err != nil {
		return nil, err
	}

	// Enrichment must survive the caller's context being cancelled once the
	// entry itself is durable.
	p.enrich(context.WithoutCancel(ctx), entry, summary)

	sess.Clear()

	return entry, nil
}

func (p *Pipeline) enrich(ctx context.Context, entry *journal.Entry, summary string) {
	if p.store.HasEmbedder() {
		texts := journal.ChunkTranscript(entry.Transcript)
		if stored, err := p.store.StoreChunks(ctx, entry.UserID, entry.ID, texts); err != nil {
			logger.Warn("chunk embedding failed, entry saved without chunks",
				"entry_id", entry.ID, "stored", stored, "error", err)
		} else {
			logger.Debug("chunks stored", "entry_id", entry.ID, "count", stored)
		}
	} else {
		logger.Debug("no embedder configured, skipping chunks", "entry_id", entry.ID)
	}

	if p.extractor == nil || p.graph == nil {
		return
	}

	var userTexts []string
	for _, turn := range entry.Transcript {
		if turn.Role == "user" {
			userTexts = append(userTexts, turn.Content)
		}
	}

	facts := p.extractor.Extract(ctx, strings.Join(userTexts, "\n"), nil)
	if err := p.graph.UpsertFacts(ctx, entry.UserID, entry.ID, summary, facts); err != nil {
		logger.Warn("graph enrichment failed, entry saved without graph facts",
			"entry_id", entry.ID, "error", err)
	}
}

// Backfill re-runs chunk embedding for entries saved while the embedder was
// unavailable. Invoked by the maintenance schedule.
func (p *Pipeline) Backfill(ctx context.Context) int {
	if !p.store.HasEmbedder() {
		return 0
	}

	entries, err := p.store.EntriesMissingChunks(p.cfg.BackfillBatch)
	if err != nil {
		logger.Warn("backfill scan failed", "error", err)
		return 0
	}

	repaired := 0
	for _, entry := range entries {
		texts := journal.ChunkTranscript(entry.Transcript)
		if len(texts) == 0 {
			continue
		}
		if _, err := p.store.StoreChunks(ctx, entry.UserID, entry.ID, texts); err != nil {
			logger.Warn("backfill failed for entry", "entry_id", entry.ID, "error", err)
			continue
		}
		repaired++
	}

	if repaired > 0 {
		logger.Info("backfilled chunks for entries", "count", repaired)
	}

	return repaired
}
