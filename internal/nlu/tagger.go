package nlu

import (
	"context"
	"strings"
	"unicode"
)

// Tagger is the offline fallback extractor: a capitalization-based named
// entity tagger with coarse categories and a keyword intent classifier.
// It produces no emotions or relationships.
type Tagger struct{}

func NewTagger() *Tagger {
	return &Tagger{}
}

var honorifics = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
}

var orgSuffixes = []string{
	"Inc", "Corp", "LLC", "Ltd", "Co", "Company", "University", "College",
	"School", "Hospital", "Institute", "Church", "Bank",
}

var placePrepositions = map[string]bool{
	"in": true, "at": true, "to": true, "from": true, "near": true,
}

// sentence-start words that look like names but aren't
var commonStarters = map[string]bool{
	"i": true, "the": true, "a": true, "an": true, "my": true, "he": true,
	"she": true, "it": true, "we": true, "they": true, "you": true,
	"today": true, "yesterday": true, "tomorrow": true, "monday": true,
	"tuesday": true, "wednesday": true, "thursday": true, "friday": true,
	"saturday": true, "sunday": true, "january": true, "february": true,
	"march": true, "april": true, "may": true, "june": true, "july": true,
	"august": true, "september": true, "october": true, "november": true,
	"december": true, "but": true, "and": true, "so": true, "then": true,
	"when": true, "after": true, "before": true, "this": true, "that": true,
}

var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentPlanning, []string{"plan", "planning", "goal", "decide", "deciding", "next week", "tomorrow", "going to", "will try"}},
	{IntentEmotionalRelease, []string{"angry", "furious", "sad", "crying", "cried", "hate", "anxious", "scared", "overwhelmed", "frustrated", "upset"}},
	{IntentInsightGeneration, []string{"why do i", "why am i", "understand", "figure out", "make sense of", "pattern", "insight"}},
	{IntentSelfReflection, []string{"i feel", "i think", "i realize", "i realized", "i wonder", "i notice", "i noticed", "looking back"}},
}

func (t *Tagger) Extract(_ context.Context, text string, _ []string) *Facts {
	facts := emptyFacts()
	facts.Entities = t.tagEntities(text)
	facts.Intent = t.classifyIntent(text)
	return facts
}

func (t *Tagger) tagEntities(text string) []Entity {
	words := strings.Fields(text)
	var entities []Entity
	seen := make(map[string]bool)

	add := func(name string, entityType EntityType) {
		key := strings.ToLower(name)
		if seen[key] {
			return
		}
		seen[key] = true
		entities = append(entities, Entity{Name: name, Type: entityType})
	}

	i := 0
	for i < len(words) {
		word := trimPunct(words[i])
		if word == "" || !startsUpper(word) {
			i++
			continue
		}

		sentenceStart := i == 0 || endsSentence(words[i-1])
		prev := ""
		if i > 0 {
			prev = strings.ToLower(trimPunct(words[i-1]))
		}

		// collect the full capitalized run ("New York City", "Acme Corp")
		run := []string{word}
		j := i + 1
		for j < len(words) && !endsSentence(words[j-1]) {
			next := trimPunct(words[j])
			if next == "" || !startsUpper(next) {
				break
			}
			run = append(run, next)
			j++
		}
		name := strings.Join(run, " ")

		if len(run) == 1 && commonStarters[strings.ToLower(word)] {
			i = j
			continue
		}

		switch {
		case honorifics[strings.TrimSuffix(prev, ".")]:
			add(name, EntityPerson)
		case hasOrgSuffix(run):
			add(name, EntityOrganization)
		case placePrepositions[prev]:
			add(name, EntityPlace)
		case !sentenceStart:
			add(name, EntityPerson)
		case len(run) > 1 && !commonStarters[strings.ToLower(run[0])]:
			// multi-word capitalized phrase at sentence start is still
			// likely a name
			add(name, EntityPerson)
		}

		i = j
	}

	return entities
}

func (t *Tagger) classifyIntent(text string) Intent {
	lower := strings.ToLower(text)
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.intent
			}
		}
	}
	return IntentGeneral
}

func hasOrgSuffix(run []string) bool {
	last := run[len(run)-1]
	for _, suffix := range orgSuffixes {
		if last == suffix || last == suffix+"." {
			return true
		}
	}
	return false
}

func startsUpper(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}

func endsSentence(word string) bool {
	return strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?")
}

func trimPunct(word string) string {
	return strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
