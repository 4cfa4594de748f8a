package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/bowerhall/goldfish/internal/nlu"
)

// UpsertFacts merges extracted knowledge for one saved entry into the graph.
// Node identity is (user_id, lowercased name) per label, so repeated mentions
// of the same entity converge on one node; the original casing is kept on the
// node for display. Re-running the same upsert is a no-op thanks to MERGE.
func (c *Client) UpsertFacts(ctx context.Context, ownerID, entryID, summary string, facts *nlu.Facts) error {
	if c == nil || c.driver == nil {
		return nil
	}
	if facts == nil {
		return nil
	}

	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (u:User {user_id: $user_id})
			MERGE (e:Entry {id: $entry_id})
			SET e.user_id = $user_id, e.summary = $summary, e.updated_at = datetime()
			MERGE (u)-[:AUTHORED]->(e)`,
			map[string]any{"user_id": ownerID, "entry_id": entryID, "summary": summary}); err != nil {
			return nil, err
		}

		for _, entity := range facts.Entities {
			if err := mergeMention(ctx, tx, ownerID, entryID, entity.Type, entity.Name); err != nil {
				return nil, err
			}
		}

		for _, emotion := range facts.Emotions {
			if _, err := tx.Run(ctx, `
				MATCH (e:Entry {id: $entry_id})
				MERGE (em:Emotion {user_id: $user_id, name: $name})
				MERGE (e)-[f:FEELS]->(em)
				SET f.valence = $valence, f.intensity = $intensity`,
				map[string]any{
					"user_id":   ownerID,
					"entry_id":  entryID,
					"name":      strings.ToLower(emotion.Name),
					"valence":   string(emotion.Valence),
					"intensity": emotion.Intensity,
				}); err != nil {
				return nil, err
			}
		}

		for _, rel := range facts.Relationships {
			if err := mergeRelationship(ctx, tx, ownerID, rel); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})

	return err
}

func mergeMention(ctx context.Context, tx neo4j.ManagedTransaction, ownerID, entryID string, t nlu.EntityType, name string) error {
	// Label comes from a closed set, never from input text.
	query := fmt.Sprintf(`
		MATCH (e:Entry {id: $entry_id})
		MERGE (n:%s {user_id: $user_id, name: $name})
		ON CREATE SET n.original_name = $original_name
		MERGE (e)-[:MENTIONS]->(n)`, labelFor(t))

	_, err := tx.Run(ctx, query, map[string]any{
		"entry_id":      entryID,
		"user_id":       ownerID,
		"name":          strings.ToLower(name),
		"original_name": name,
	})
	return err
}

func mergeRelationship(ctx context.Context, tx neo4j.ManagedTransaction, ownerID string, rel nlu.Relationship) error {
	// The relation sub-type is part of the MERGE pattern, so the same typed
	// edge between the same pair is deduplicated rather than stacked.
	query := fmt.Sprintf(`
		MERGE (a:%s {user_id: $user_id, name: $from})
		ON CREATE SET a.original_name = $from_original
		MERGE (b:%s {user_id: $user_id, name: $to})
		ON CREATE SET b.original_name = $to_original
		MERGE (a)-[r:RELATES_TO {type: $type}]->(b)
		SET r.confidence = $confidence`, labelFor(rel.FromType), labelFor(rel.ToType))

	_, err := tx.Run(ctx, query, map[string]any{
		"user_id":       ownerID,
		"from":          strings.ToLower(rel.From),
		"from_original": rel.From,
		"to":            strings.ToLower(rel.To),
		"to_original":   rel.To,
		"type":          rel.Type,
		"confidence":    rel.Confidence,
	})
	return err
}
