package nlu

import (
	"context"
	"fmt"
	"testing"

	"github.com/bowerhall/goldfish/internal/llm"
)

type scriptedLLM struct {
	responses []string
	err       error
	calls     int
}

func (s *scriptedLLM) Complete(ctx context.Context, systemPrompt string, messages []llm.Message, maxTokens int) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	i := s.calls - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

const validExtraction = `{
	"people": ["Maya"],
	"organizations": ["Acme Corp"],
	"places": [],
	"topics": ["burnout"],
	"events": [],
	"emotions": [{"name": "Frustration", "valence": "negative", "intensity": 4}],
	"relationships": [{"from": "Maya", "to": "Acme Corp", "type": "works at", "from_type": "person", "to_type": "organization", "confidence": 0.9}],
	"intent": "emotional-release"
}`

func TestGenerativeExtract(t *testing.T) {
	model := &scriptedLLM{responses: []string{validExtraction}}
	g := NewGenerative(model)

	facts := g.Extract(context.Background(), "Maya keeps burning out at Acme Corp", nil)

	if len(facts.Entities) != 3 {
		t.Fatalf("got %d entities, want 3: %+v", len(facts.Entities), facts.Entities)
	}
	if facts.Entities[0].Name != "Maya" || facts.Entities[0].Type != EntityPerson {
		t.Errorf("first entity = %+v", facts.Entities[0])
	}

	if len(facts.Emotions) != 1 {
		t.Fatalf("got %d emotions, want 1", len(facts.Emotions))
	}
	e := facts.Emotions[0]
	if e.Name != "frustration" || e.Valence != ValenceNegative || e.Intensity != 4 {
		t.Errorf("emotion = %+v", e)
	}

	if len(facts.Relationships) != 1 {
		t.Fatalf("got %d relationships, want 1", len(facts.Relationships))
	}
	r := facts.Relationships[0]
	if r.From != "Maya" || r.To != "Acme Corp" || r.Type != "works at" {
		t.Errorf("relationship = %+v", r)
	}
	if r.FromType != EntityPerson || r.ToType != EntityOrganization {
		t.Errorf("relationship endpoint types = %s -> %s", r.FromType, r.ToType)
	}

	if facts.Intent != IntentEmotionalRelease {
		t.Errorf("intent = %s", facts.Intent)
	}
}

func TestGenerativeExtractFencedOutput(t *testing.T) {
	model := &scriptedLLM{responses: []string{"Here you go:\n```json\n" + validExtraction + "\n```"}}
	g := NewGenerative(model)

	facts := g.Extract(context.Background(), "text", nil)
	if len(facts.Entities) != 3 {
		t.Errorf("got %d entities from fenced output, want 3", len(facts.Entities))
	}
}

func TestGenerativeRetryOnSchemaViolation(t *testing.T) {
	// first response has an invalid valence, second is clean
	bad := `{"people": [], "organizations": [], "places": [], "topics": [], "events": [],
		"emotions": [{"name": "anger", "valence": "bad", "intensity": 3}],
		"relationships": [], "intent": "general"}`
	model := &scriptedLLM{responses: []string{bad, validExtraction}}
	g := NewGenerative(model)

	facts := g.Extract(context.Background(), "text", nil)
	if model.calls != 2 {
		t.Errorf("model called %d times, want 2", model.calls)
	}
	if facts.Intent != IntentEmotionalRelease {
		t.Errorf("intent = %s, want the retried result", facts.Intent)
	}
}

func TestGenerativeFallsBackToTagger(t *testing.T) {
	model := &scriptedLLM{err: fmt.Errorf("model unavailable")}
	g := NewGenerative(model)

	facts := g.Extract(context.Background(), "I feel drained after talking to Maya about the move to Portland", nil)
	if facts == nil {
		t.Fatal("expected fallback facts, got nil")
	}
	if model.calls != 2 {
		t.Errorf("model called %d times before fallback, want 2", model.calls)
	}
	// tagger result, not a schema failure
	if facts.Intent != IntentSelfReflection {
		t.Errorf("intent = %s, want self-reflection from the fallback tagger", facts.Intent)
	}
}

func TestGenerativeNilModelUsesTagger(t *testing.T) {
	g := NewGenerative(nil)

	facts := g.Extract(context.Background(), "I talked to Dr. Chen about my plan for next week", nil)
	if facts.Intent != IntentPlanning {
		t.Errorf("intent = %s, want planning", facts.Intent)
	}
}

func TestValidateWireFactsDefaults(t *testing.T) {
	wire := &wireFacts{
		Emotions: []wireEmotion{
			// legacy "type" key, no intensity
			{Type: "relief", Valence: "positive"},
			// intensity out of range
			{Name: "dread", Valence: "negative", Intensity: 9},
		},
		Relationships: []wireRelationship{
			// no endpoint types, no relation phrase
			{From: "maya", To: "yoga"},
		},
		Intent: "the intent is planning",
	}

	facts, err := validateWireFacts(wire)
	if err != nil {
		t.Fatalf("validateWireFacts failed: %v", err)
	}

	if facts.Emotions[0].Name != "relief" || facts.Emotions[0].Intensity != 3 {
		t.Errorf("legacy emotion = %+v, want name relief with default intensity 3", facts.Emotions[0])
	}
	if facts.Emotions[1].Intensity != 5 {
		t.Errorf("intensity = %d, want clamp to 5", facts.Emotions[1].Intensity)
	}

	r := facts.Relationships[0]
	if r.Type != "related to" || r.FromType != EntityPerson || r.ToType != EntityPerson {
		t.Errorf("relationship defaults = %+v", r)
	}

	if facts.Intent != IntentPlanning {
		t.Errorf("intent = %s, want partial match to planning", facts.Intent)
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"Sure! Here is the data: {\"a\": 1} hope it helps", `{"a": 1}`},
		{`prose {"nested": {"b": 2}, "s": "with } brace"} trailing`, `{"nested": {"b": 2}, "s": "with } brace"}`},
	}

	for _, tc := range cases {
		got, err := extractJSONObject(tc.in)
		if err != nil {
			t.Errorf("extractJSONObject(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("extractJSONObject(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := extractJSONObject("no json here at all"); err == nil {
		t.Error("expected error for text without JSON")
	}
}

func TestTaggerEntities(t *testing.T) {
	tagger := NewTagger()

	facts := tagger.Extract(context.Background(), "I met Dr. Chen at Stanford Hospital in Portland yesterday.", nil)

	byType := facts.EntitiesByType()
	found := func(t EntityType, name string) bool {
		for _, n := range byType[t] {
			if n == name {
				return true
			}
		}
		return false
	}

	if !found(EntityPerson, "Chen") {
		t.Errorf("expected Chen as person, got %+v", facts.Entities)
	}
	if !found(EntityOrganization, "Stanford Hospital") {
		t.Errorf("expected Stanford Hospital as organization, got %+v", facts.Entities)
	}
	if !found(EntityPlace, "Portland") {
		t.Errorf("expected Portland as place, got %+v", facts.Entities)
	}
}

func TestTaggerIgnoresSentenceStarters(t *testing.T) {
	tagger := NewTagger()

	facts := tagger.Extract(context.Background(), "Today I went for a walk. The weather was nice.", nil)
	if len(facts.Entities) != 0 {
		t.Errorf("expected no entities, got %+v", facts.Entities)
	}
}

func TestTaggerDeduplicates(t *testing.T) {
	tagger := NewTagger()

	facts := tagger.Extract(context.Background(), "I saw Maya today and Maya seemed tired.", nil)
	count := 0
	for _, e := range facts.Entities {
		if e.Name == "Maya" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Maya tagged %d times, want 1", count)
	}
}

func TestTaggerIntentClassification(t *testing.T) {
	tagger := NewTagger()

	cases := []struct {
		text string
		want Intent
	}{
		{"I need to plan my move and decide on a date", IntentPlanning},
		{"I am so angry and frustrated about everything", IntentEmotionalRelease},
		{"Why do I always avoid conflict? I want to understand the pattern", IntentInsightGeneration},
		{"I realized I have been avoiding my brother", IntentSelfReflection},
		{"Went to the store and bought groceries", IntentGeneral},
	}

	for _, tc := range cases {
		if got := tagger.classifyIntent(tc.text); got != tc.want {
			t.Errorf("classifyIntent(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}
