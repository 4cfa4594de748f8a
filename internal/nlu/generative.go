package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bowerhall/goldfish/internal/llm"
	"github.com/bowerhall/goldfish/internal/logger"
)

const extractPrompt = `You are an expert in reflective journaling entity extraction.
Extract structured data from this text, categorizing into:
- people: names of people mentioned
- organizations: companies, institutions, groups
- places: locations or geographical entities
- topics: themes or subjects discussed
- events: specific events or activities
- emotions: each with "name" (emotion name), "valence" (positive/negative/neutral), and "intensity" (integer 1-5)
- relationships: connections between the entities above. Each has "from" and "to" (exact entity names), "type" (short relation phrase like "works at", "lives in"), "from_type" and "to_type" (one of person/organization/place/topic/event), and "confidence" (0.0-1.0)
- intent: the purpose of the entry, one of: self-reflection, planning, emotional-release, insight-generation, general

Return a JSON OBJECT with this exact structure:
{
  "people": ["name1"],
  "organizations": ["org1"],
  "places": ["place1"],
  "topics": ["topic1"],
  "events": ["event1"],
  "emotions": [{"name": "anxiety", "valence": "negative", "intensity": 4}],
  "relationships": [{"from": "Chloe", "to": "Apple", "type": "works at", "from_type": "person", "to_type": "organization", "confidence": 0.92}],
  "intent": "emotional-release"
}

Text: %s

Return ONLY the JSON object, no markdown, no code blocks, no other text:`

const strictRetryNote = `

Your previous output did not match the required schema. Return exactly one JSON object with the keys people, organizations, places, topics, events, emotions, relationships, intent. Valence must be one of positive/negative/neutral. Intensity must be an integer from 1 to 5. No prose, no markdown fences.`

const extractTextLimit = 2000
const extractMaxTokens = 1000

type wireEmotion struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"` // older outputs use "type" for the name
	Valence   string  `json:"valence"`
	Intensity float64 `json:"intensity"`
}

type wireRelationship struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Type       string  `json:"type"`
	FromType   string  `json:"from_type"`
	ToType     string  `json:"to_type"`
	Confidence float64 `json:"confidence"`
}

type wireFacts struct {
	People        []string           `json:"people"`
	Organizations []string           `json:"organizations"`
	Places        []string           `json:"places"`
	Topics        []string           `json:"topics"`
	Events        []string           `json:"events"`
	Emotions      []wireEmotion      `json:"emotions"`
	Relationships []wireRelationship `json:"relationships"`
	Intent        string             `json:"intent"`
}

// Generative extracts facts with one LLM call constrained to a strict JSON
// schema. On two consecutive schema failures, or when no model is configured,
// it degrades to the deterministic tagger.
type Generative struct {
	model    llm.LLM
	fallback *Tagger
}

func NewGenerative(model llm.LLM) *Generative {
	return &Generative{model: model, fallback: NewTagger()}
}

func (g *Generative) Extract(ctx context.Context, text string, history []string) *Facts {
	if g.model == nil {
		return g.fallback.Extract(ctx, text, history)
	}

	if len(text) > extractTextLimit {
		text = text[:extractTextLimit]
	}
	prompt := fmt.Sprintf(extractPrompt, text)

	facts, err := g.extractOnce(ctx, prompt)
	if err == nil {
		return facts
	}
	logger.Warn("extraction failed, retrying with strict instruction", "error", err)

	facts, err = g.extractOnce(ctx, prompt+strictRetryNote)
	if err == nil {
		return facts
	}
	logger.Warn("extraction failed twice, using fallback tagger", "error", err)

	return g.fallback.Extract(ctx, text, history)
}

func (g *Generative) extractOnce(ctx context.Context, prompt string) (*Facts, error) {
	response, err := g.model.Complete(ctx, "", []llm.Message{{Role: "user", Content: prompt}}, extractMaxTokens)
	if err != nil {
		return nil, err
	}

	jsonStr, err := extractJSONObject(response)
	if err != nil {
		return nil, err
	}

	var wire wireFacts
	if err := json.Unmarshal([]byte(jsonStr), &wire); err != nil {
		return nil, err
	}

	return validateWireFacts(&wire)
}

// validateWireFacts enforces the output schema: closed valence enum, 1-5
// intensity, known entity types on relationship endpoints. Values that merely
// need normalization (casing, numeric clamping) are fixed up; structurally
// invalid emotions are a schema failure so the caller can retry.
func validateWireFacts(wire *wireFacts) (*Facts, error) {
	facts := emptyFacts()

	appendEntities := func(names []string, t EntityType) {
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			facts.Entities = append(facts.Entities, Entity{Name: name, Type: t})
		}
	}
	appendEntities(wire.People, EntityPerson)
	appendEntities(wire.Organizations, EntityOrganization)
	appendEntities(wire.Places, EntityPlace)
	appendEntities(wire.Topics, EntityTopic)
	appendEntities(wire.Events, EntityEvent)

	for _, e := range wire.Emotions {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = strings.TrimSpace(e.Type)
		}
		if name == "" {
			continue
		}

		valence, ok := validValence(strings.ToLower(strings.TrimSpace(e.Valence)))
		if !ok {
			return nil, fmt.Errorf("invalid valence %q for emotion %q", e.Valence, name)
		}

		intensity := clampIntensity(int(e.Intensity))
		if e.Intensity == 0 {
			intensity = 3
		}

		facts.Emotions = append(facts.Emotions, Emotion{
			Name:      strings.ToLower(name),
			Valence:   valence,
			Intensity: intensity,
		})
	}

	for _, r := range wire.Relationships {
		from := strings.TrimSpace(r.From)
		to := strings.TrimSpace(r.To)
		if from == "" || to == "" {
			continue
		}

		fromType, ok := validEntityType(strings.ToLower(strings.TrimSpace(r.FromType)))
		if !ok {
			fromType = EntityPerson
		}
		toType, ok := validEntityType(strings.ToLower(strings.TrimSpace(r.ToType)))
		if !ok {
			toType = EntityPerson
		}

		relType := strings.TrimSpace(r.Type)
		if relType == "" {
			relType = "related to"
		}

		facts.Relationships = append(facts.Relationships, Relationship{
			From:       from,
			To:         to,
			Type:       relType,
			FromType:   fromType,
			ToType:     toType,
			Confidence: r.Confidence,
		})
	}

	intent := strings.ToLower(strings.TrimSpace(wire.Intent))
	if v, ok := validIntent(intent); ok {
		facts.Intent = v
	} else {
		// tolerate partial matches like "intent: planning"
		facts.Intent = IntentGeneral
		for _, candidate := range []Intent{IntentSelfReflection, IntentPlanning, IntentEmotionalRelease, IntentInsightGeneration} {
			if strings.Contains(intent, string(candidate)) {
				facts.Intent = candidate
				break
			}
		}
	}

	return facts, nil
}
