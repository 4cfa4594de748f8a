package journal

import (
	"context"
	"fmt"
	"testing"
)

type testEmbedder struct {
	fail      bool
	failAfter int
	calls     int
}

func (e *testEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.fail || (e.failAfter > 0 && e.calls > e.failAfter) {
		return nil, fmt.Errorf("embedder down")
	}
	v := make([]float32, VectorDimensions)
	for i, b := range []byte(text) {
		v[i%VectorDimensions] += float32(b) / 255
	}
	return v, nil
}

func (e *testEmbedder) Version() string {
	return "test/fake"
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	store.SetEmbedder(&testEmbedder{})
	return store
}

func sampleTranscript() []Turn {
	return []Turn{
		{Role: "user", Content: "I had a rough day at the clinic."},
		{Role: "assistant", Content: "I hear you. What made it rough?"},
		{Role: "user", Content: "A patient yelled at me and I froze."},
	}
}

func TestSaveAndGetEntry(t *testing.T) {
	store := openTestStore(t)

	entry, err := store.SaveEntry("u1", "Rough day", "A rough day at the clinic.", sampleTranscript())
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("expected an entry id")
	}

	got, err := store.GetEntry("u1", entry.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got.Title != "Rough day" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.Transcript) != 3 {
		t.Errorf("transcript has %d turns, want 3", len(got.Transcript))
	}
	if got.Transcript[2].Content != "A patient yelled at me and I froze." {
		t.Errorf("transcript mismatch: %q", got.Transcript[2].Content)
	}
}

func TestSaveEntryRequiresUser(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.SaveEntry("", "t", "s", sampleTranscript()); err == nil {
		t.Fatal("expected error for missing user id")
	}
}

func TestGetEntryOwnerScoped(t *testing.T) {
	store := openTestStore(t)

	entry, err := store.SaveEntry("u1", "t", "s", sampleTranscript())
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}

	if _, err := store.GetEntry("u2", entry.ID); err == nil {
		t.Fatal("expected another user's lookup to fail")
	}
}

func TestListEntries(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := store.SaveEntry("u1", fmt.Sprintf("entry %d", i), "s", sampleTranscript()); err != nil {
			t.Fatalf("SaveEntry failed: %v", err)
		}
	}
	if _, err := store.SaveEntry("u2", "other user", "s", sampleTranscript()); err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}

	entries, err := store.ListEntries("u1", 0)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
	for _, e := range entries {
		if e.UserID != "u1" {
			t.Errorf("entry %s belongs to %s", e.ID, e.UserID)
		}
	}

	limited, err := store.ListEntries("u1", 2)
	if err != nil {
		t.Fatalf("ListEntries with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d entries with limit 2", len(limited))
	}
}

func TestChunkTranscript(t *testing.T) {
	chunks := ChunkTranscript(sampleTranscript())
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0] != "User: I had a rough day at the clinic.\nAssistant: I hear you. What made it rough?" {
		t.Errorf("first chunk = %q", chunks[0])
	}
	if chunks[1] != "User: A patient yelled at me and I froze." {
		t.Errorf("second chunk = %q", chunks[1])
	}

	if got := ChunkTranscript(nil); len(got) != 0 {
		t.Errorf("empty transcript produced %d chunks", len(got))
	}
}

func TestStoreAndRetrieveChunks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry, err := store.SaveEntry("u1", "t", "s", sampleTranscript())
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}

	texts := ChunkTranscript(entry.Transcript)
	stored, err := store.StoreChunks(ctx, "u1", entry.ID, texts)
	if err != nil {
		t.Fatalf("StoreChunks failed: %v", err)
	}
	if stored != 2 {
		t.Errorf("stored %d chunks, want 2", stored)
	}

	// querying with a chunk's own text must rank it first
	results, err := store.Retrieve(ctx, "u1", texts[1], 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected retrieval results")
	}
	if results[0].Text != texts[1] {
		t.Errorf("top result = %q, want %q", results[0].Text, texts[1])
	}
	if results[0].Similarity < 0.99 {
		t.Errorf("identical text similarity = %f", results[0].Similarity)
	}
}

func TestStoreChunksIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry, err := store.SaveEntry("u1", "t", "s", sampleTranscript())
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}

	texts := ChunkTranscript(entry.Transcript)
	if _, err := store.StoreChunks(ctx, "u1", entry.ID, texts); err != nil {
		t.Fatalf("first StoreChunks failed: %v", err)
	}
	if _, err := store.StoreChunks(ctx, "u1", entry.ID, texts); err != nil {
		t.Fatalf("second StoreChunks failed: %v", err)
	}

	chunks, err := store.ChunksByEntry("u1", entry.ID)
	if err != nil {
		t.Fatalf("ChunksByEntry failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Errorf("got %d chunks after re-store, want 2", len(chunks))
	}
}

func TestStoreChunksMidBatchFailureLeavesNoPartialState(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry, err := store.SaveEntry("u1", "t", "s", sampleTranscript())
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}

	// the embedder dies on the second chunk of the batch
	store.SetEmbedder(&testEmbedder{failAfter: 1})

	texts := ChunkTranscript(entry.Transcript)
	stored, err := store.StoreChunks(ctx, "u1", entry.ID, texts)
	if err == nil {
		t.Fatal("expected an error from the failing embedder")
	}
	if stored != 0 {
		t.Errorf("stored %d chunks, want 0", stored)
	}

	chunks, err := store.ChunksByEntry("u1", entry.ID)
	if err != nil {
		t.Fatalf("ChunksByEntry failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("%d chunks written despite the failure", len(chunks))
	}

	// the entry must stay visible to the maintenance scan
	entries, err := store.EntriesMissingChunks(0)
	if err != nil {
		t.Fatalf("EntriesMissingChunks failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != entry.ID {
		t.Errorf("entry not flagged for repair: %v", entries)
	}
}

func TestRetrieveOwnerScoped(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry, err := store.SaveEntry("u1", "t", "s", sampleTranscript())
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}
	if _, err := store.StoreChunks(ctx, "u1", entry.ID, ChunkTranscript(entry.Transcript)); err != nil {
		t.Fatalf("StoreChunks failed: %v", err)
	}

	results, err := store.Retrieve(ctx, "u2", "rough day at the clinic", 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("another user retrieved %d chunks, want 0", len(results))
	}
}

func TestRetrieveRecallSurvivesCloserForeignVectors(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	query := "User: A patient yelled at me and I froze."

	mine, err := store.SaveEntry("u1", "t", "s", sampleTranscript())
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}
	if _, err := store.StoreChunks(ctx, "u1", mine.ID, ChunkTranscript(mine.Transcript)); err != nil {
		t.Fatalf("StoreChunks failed: %v", err)
	}

	// another user's chunks match the query exactly, so they are the
	// nearest vectors overall
	other, err := store.SaveEntry("u2", "t", "s", sampleTranscript())
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}
	if _, err := store.StoreChunks(ctx, "u2", other.ID, []string{query, query, query}); err != nil {
		t.Fatalf("StoreChunks failed: %v", err)
	}

	results, err := store.Retrieve(ctx, "u1", query, 2)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: foreign vectors must not shrink recall", len(results))
	}
	for _, r := range results {
		if r.UserID != "u1" {
			t.Errorf("result belongs to %s", r.UserID)
		}
	}
}

func TestRetrieveWithoutEmbedder(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	results, err := store.Retrieve(context.Background(), "u1", "anything", 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if results != nil {
		t.Errorf("expected no results without an embedder, got %d", len(results))
	}
}

func TestRetrieveEmbedderFailureIsBestEffort(t *testing.T) {
	store := openTestStore(t)
	store.SetEmbedder(&testEmbedder{fail: true})

	results, err := store.Retrieve(context.Background(), "u1", "anything", 5)
	if err != nil {
		t.Fatalf("Retrieve should swallow embedder failures: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from a failing embedder", len(results))
	}
}

func TestDeleteEntryCascades(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry, err := store.SaveEntry("u1", "t", "s", sampleTranscript())
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}
	if _, err := store.StoreChunks(ctx, "u1", entry.ID, ChunkTranscript(entry.Transcript)); err != nil {
		t.Fatalf("StoreChunks failed: %v", err)
	}

	if err := store.DeleteEntry("u1", entry.ID); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}

	if _, err := store.GetEntry("u1", entry.ID); err == nil {
		t.Error("entry still readable after delete")
	}

	chunks, err := store.ChunksByEntry("u1", entry.ID)
	if err != nil {
		t.Fatalf("ChunksByEntry failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("%d chunks survived the delete", len(chunks))
	}

	// deleted chunks must not surface in retrieval
	results, err := store.Retrieve(ctx, "u1", "rough day at the clinic", 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("retrieval returned %d chunks after delete", len(results))
	}
}

func TestDeleteEntryOwnerScoped(t *testing.T) {
	store := openTestStore(t)

	entry, err := store.SaveEntry("u1", "t", "s", sampleTranscript())
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}

	if err := store.DeleteEntry("u2", entry.ID); err == nil {
		t.Fatal("expected another user's delete to fail")
	}

	if _, err := store.GetEntry("u1", entry.ID); err != nil {
		t.Errorf("entry should survive a foreign delete: %v", err)
	}
}

func TestEntriesMissingChunks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	withChunks, err := store.SaveEntry("u1", "embedded", "s", sampleTranscript())
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}
	if _, err := store.StoreChunks(ctx, "u1", withChunks.ID, ChunkTranscript(withChunks.Transcript)); err != nil {
		t.Fatalf("StoreChunks failed: %v", err)
	}

	missing, err := store.SaveEntry("u1", "not embedded", "s", sampleTranscript())
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}

	entries, err := store.EntriesMissingChunks(0)
	if err != nil {
		t.Fatalf("EntriesMissingChunks failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries missing chunks, want 1", len(entries))
	}
	if entries[0].ID != missing.ID {
		t.Errorf("wrong entry flagged: %s", entries[0].ID)
	}
}
