package nlu

import "context"

type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityPlace        EntityType = "place"
	EntityTopic        EntityType = "topic"
	EntityEvent        EntityType = "event"
)

type Valence string

const (
	ValencePositive Valence = "positive"
	ValenceNegative Valence = "negative"
	ValenceNeutral  Valence = "neutral"
)

type Intent string

const (
	IntentSelfReflection    Intent = "self-reflection"
	IntentPlanning          Intent = "planning"
	IntentEmotionalRelease  Intent = "emotional-release"
	IntentInsightGeneration Intent = "insight-generation"
	IntentGeneral           Intent = "general"
)

type Entity struct {
	Name string
	Type EntityType
}

// Emotion intensity is a fixed 1-5 scale.
type Emotion struct {
	Name      string
	Valence   Valence
	Intensity int
}

type Relationship struct {
	From       string
	To         string
	Type       string
	FromType   EntityType
	ToType     EntityType
	Confidence float64
}

// Facts is the structured output of one extraction pass. It is transient:
// only its graph projection is ever persisted.
type Facts struct {
	Entities      []Entity
	Emotions      []Emotion
	Relationships []Relationship
	Intent        Intent
}

// Extractor turns raw text into Facts. Implementations never fail the turn:
// on any internal error they return a best-effort partial result.
type Extractor interface {
	Extract(ctx context.Context, text string, history []string) *Facts
}

func emptyFacts() *Facts {
	return &Facts{Intent: IntentGeneral}
}

// EntityNames lists all extracted entity names in extraction order.
func (f *Facts) EntityNames() []string {
	names := make([]string, 0, len(f.Entities))
	for _, e := range f.Entities {
		names = append(names, e.Name)
	}
	return names
}

// EntitiesByType groups entity names by their type.
func (f *Facts) EntitiesByType() map[EntityType][]string {
	byType := make(map[EntityType][]string)
	for _, e := range f.Entities {
		byType[e.Type] = append(byType[e.Type], e.Name)
	}
	return byType
}

func validEntityType(t string) (EntityType, bool) {
	switch EntityType(t) {
	case EntityPerson, EntityOrganization, EntityPlace, EntityTopic, EntityEvent:
		return EntityType(t), true
	}
	// common aliases from extraction output
	switch t {
	case "org":
		return EntityOrganization, true
	case "location":
		return EntityPlace, true
	}
	return "", false
}

func validValence(v string) (Valence, bool) {
	switch Valence(v) {
	case ValencePositive, ValenceNegative, ValenceNeutral:
		return Valence(v), true
	}
	return "", false
}

func validIntent(s string) (Intent, bool) {
	switch Intent(s) {
	case IntentSelfReflection, IntentPlanning, IntentEmotionalRelease, IntentInsightGeneration, IntentGeneral:
		return Intent(s), true
	}
	return "", false
}

func clampIntensity(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}
