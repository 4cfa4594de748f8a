package pipeline

import (
	"strings"
	"testing"

	"github.com/bowerhall/goldfish/internal/budget"
	"github.com/bowerhall/goldfish/internal/config"
	"github.com/bowerhall/goldfish/internal/nlu"
)

func TestIsGreeting(t *testing.T) {
	greetings := []string{"hi", "Hello!", "hey there", "good morning", "sup"}
	for _, g := range greetings {
		if !isGreeting(g) {
			t.Errorf("expected %q to be a greeting", g)
		}
	}

	notGreetings := []string{
		"hi, I had a terrible day at work and need to talk about it",
		"I'm feeling anxious",
		"",
	}
	for _, g := range notGreetings {
		if isGreeting(g) {
			t.Errorf("expected %q not to be a greeting", g)
		}
	}
}

func TestShowsInsight(t *testing.T) {
	insights := []string{
		"I realized I always take the blame when things go wrong",
		"Looking back, the move was what started all of this",
		"I've noticed I get irritable whenever I skip lunch",
	}
	for _, text := range insights {
		if !showsInsight(text) {
			t.Errorf("expected %q to show insight", text)
		}
	}

	if showsInsight("I had a rough week and I don't know why") {
		t.Error("expected plain venting not to count as insight")
	}
}

func TestBuildSystemPromptIntentRouting(t *testing.T) {
	p := New(nil, nil, nil, nil, config.PipelineConfig{MaxResponseWords: 50, IntensityThreshold: 4})

	facts := &nlu.Facts{Intent: nlu.IntentPlanning}
	prompt := p.buildSystemPrompt(&budget.Block{}, facts, false)

	if !strings.Contains(prompt, intentPrompts[nlu.IntentPlanning]) {
		t.Error("expected planning guidance in prompt")
	}
	if strings.Contains(prompt, "emotions are running high") {
		t.Error("did not expect the gentle-tone note without intense emotions")
	}
}

func TestBuildSystemPromptGentleTone(t *testing.T) {
	p := New(nil, nil, nil, nil, config.PipelineConfig{MaxResponseWords: 50, IntensityThreshold: 4})

	facts := &nlu.Facts{
		Intent:   nlu.IntentEmotionalRelease,
		Emotions: []nlu.Emotion{{Name: "anger", Valence: nlu.ValenceNegative, Intensity: 5}},
	}
	prompt := p.buildSystemPrompt(&budget.Block{}, facts, false)

	if !strings.Contains(prompt, "emotions are running high") {
		t.Error("expected the gentle-tone note for intensity 5")
	}
}

func TestBuildSystemPromptAcknowledge(t *testing.T) {
	p := New(nil, nil, nil, nil, config.PipelineConfig{MaxResponseWords: 50})

	prompt := p.buildSystemPrompt(&budget.Block{}, nil, true)
	if !strings.Contains(prompt, "do not ask a question") {
		t.Error("expected the acknowledge instruction")
	}

	prompt = p.buildSystemPrompt(&budget.Block{}, nil, false)
	if strings.Contains(prompt, "do not ask a question") {
		t.Error("did not expect the acknowledge instruction")
	}
}

func TestBuildSystemPromptDefaultsToGeneralIntent(t *testing.T) {
	p := New(nil, nil, nil, nil, config.PipelineConfig{MaxResponseWords: 50})

	prompt := p.buildSystemPrompt(nil, nil, false)
	if !strings.Contains(prompt, intentPrompts[nlu.IntentGeneral]) {
		t.Error("expected general guidance when no facts are available")
	}
}

func TestEntityNames(t *testing.T) {
	facts := &nlu.Facts{Entities: []nlu.Entity{
		{Name: "maya", Type: nlu.EntityPerson},
		{Name: "portland", Type: nlu.EntityPlace},
		{Name: "burnout", Type: nlu.EntityTopic},
	}}

	names := facts.EntityNames()
	if len(names) != 3 {
		t.Fatalf("got %d names, want 3: %v", len(names), names)
	}
}
