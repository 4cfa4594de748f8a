package budget

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bowerhall/goldfish/internal/graph"
	"github.com/bowerhall/goldfish/internal/journal"
	"github.com/bowerhall/goldfish/internal/nlu"
)

// Rough heuristic shared with the original pipeline: about four characters
// per token for English prose.
const charsPerToken = 4

func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// Block is the assembled context for one turn, ready to be folded into the
// system prompt. Dropped counts record what the budget forced out.
type Block struct {
	Facts         string
	Memories      []string
	GraphFacts    []string
	Tokens        int
	DroppedChunks int
	DroppedFacts  int
}

// Assemble fits the turn's context sources into maxTokens. Priority is
// fixed: current-turn facts are always included whole, then retrieved
// memories by descending similarity, then graph facts by ascending hop
// count. Items are admitted whole in priority order; the first item that
// does not fit ends its tier, and everything ranked below it is dropped.
// A kept item is therefore never outranked by a dropped one, and the same
// inputs always produce the same block.
func Assemble(facts *nlu.Facts, memories []*journal.ScoredChunk, graphFacts []graph.Fact, maxTokens int) *Block {
	block := &Block{}

	if facts != nil {
		block.Facts = renderFacts(facts)
		block.Tokens = EstimateTokens(block.Facts)
	}

	sorted := make([]*journal.ScoredChunk, len(memories))
	copy(sorted, memories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Similarity > sorted[j].Similarity
	})

	for i, chunk := range sorted {
		cost := EstimateTokens(chunk.Text)
		if maxTokens > 0 && block.Tokens+cost > maxTokens {
			block.DroppedChunks = len(sorted) - i
			break
		}
		block.Memories = append(block.Memories, chunk.Text)
		block.Tokens += cost
	}

	// Graph facts rank below every memory; once a memory was cut, no
	// graph fact may take its place.
	if block.DroppedChunks > 0 {
		block.DroppedFacts = len(graphFacts)
		return block
	}

	ordered := make([]graph.Fact, len(graphFacts))
	copy(ordered, graphFacts)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Hops != ordered[j].Hops {
			return ordered[i].Hops < ordered[j].Hops
		}
		return ordered[i].Name < ordered[j].Name
	})

	for i, fact := range ordered {
		line := renderGraphFact(fact)
		cost := EstimateTokens(line)
		if maxTokens > 0 && block.Tokens+cost > maxTokens {
			block.DroppedFacts = len(ordered) - i
			break
		}
		block.GraphFacts = append(block.GraphFacts, line)
		block.Tokens += cost
	}

	return block
}

// Render renders the block as prompt text. An empty block renders empty.
func (b *Block) Render() string {
	var sb strings.Builder

	if b.Facts != "" {
		sb.WriteString("What came up this turn:\n")
		sb.WriteString(b.Facts)
		sb.WriteString("\n")
	}

	if len(b.Memories) > 0 {
		sb.WriteString("\nFrom past journal entries:\n")
		for _, m := range b.Memories {
			sb.WriteString("- " + m + "\n")
		}
	}

	if len(b.GraphFacts) > 0 {
		sb.WriteString("\nKnown connections:\n")
		for _, f := range b.GraphFacts {
			sb.WriteString("- " + f + "\n")
		}
	}

	return strings.TrimSpace(sb.String())
}

func (b *Block) Empty() bool {
	return b.Facts == "" && len(b.Memories) == 0 && len(b.GraphFacts) == 0
}

var factGroupOrder = []struct {
	label string
	t     nlu.EntityType
}{
	{"people", nlu.EntityPerson},
	{"organizations", nlu.EntityOrganization},
	{"places", nlu.EntityPlace},
	{"topics", nlu.EntityTopic},
	{"events", nlu.EntityEvent},
}

func renderFacts(facts *nlu.Facts) string {
	var lines []string

	byType := facts.EntitiesByType()
	for _, group := range factGroupOrder {
		if names := byType[group.t]; len(names) > 0 {
			lines = append(lines, group.label+": "+strings.Join(names, ", "))
		}
	}

	if len(facts.Emotions) > 0 {
		var parts []string
		for _, e := range facts.Emotions {
			parts = append(parts, fmt.Sprintf("%s (%s, intensity %d)", e.Name, e.Valence, e.Intensity))
		}
		lines = append(lines, "emotions: "+strings.Join(parts, ", "))
	}

	if facts.Intent != "" {
		lines = append(lines, "intent: "+string(facts.Intent))
	}

	return strings.Join(lines, "\n")
}

func renderGraphFact(f graph.Fact) string {
	relation := f.Relation
	if relation == "" {
		relation = "related to"
	}
	if f.Type == "" {
		return fmt.Sprintf("%s %s %s", f.Source, relation, f.Name)
	}
	return fmt.Sprintf("%s %s %s (%s)", f.Source, relation, f.Name, strings.ToLower(f.Type))
}
