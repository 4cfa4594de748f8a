package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/bowerhall/goldfish/internal/logger"
)

const (
	maxDepth        = 3
	defaultMaxFacts = 25
)

// Related finds entities connected to the given names within depth hops,
// scoped to the owner. It never fails the caller's turn: a nil client,
// unreachable server, or query error all produce an empty result.
func (c *Client) Related(ctx context.Context, ownerID string, entityNames []string, depth int) []Fact {
	if c == nil || c.driver == nil || len(entityNames) == 0 {
		return nil
	}
	if depth < 1 {
		depth = 1
	}
	if depth > maxDepth {
		depth = maxDepth
	}

	names := make([]string, 0, len(entityNames))
	for _, name := range entityNames {
		if trimmed := strings.ToLower(strings.TrimSpace(name)); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	if len(names) == 0 {
		return nil
	}

	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	// Variable-length bounds cannot be parameterized; depth is clamped above.
	query := fmt.Sprintf(`
		MATCH (start)
		WHERE start.user_id = $user_id AND start.name IN $names
		  AND NOT start:Entry AND NOT start:User
		MATCH path = (start)-[:RELATES_TO*1..%d]-(related)
		WHERE related.user_id = $user_id
		  AND NOT related:Entry AND NOT related:User
		  AND NOT related.name IN $names
		WITH start, related, path, length(path) AS hops
		ORDER BY hops, related.name
		RETURN DISTINCT start.name AS source,
		       coalesce(related.original_name, related.name) AS name,
		       labels(related)[0] AS type,
		       last(relationships(path)).type AS relation,
		       hops
		LIMIT $limit`, depth)

	result, err := session.Run(ctx, query, map[string]any{
		"user_id": ownerID,
		"names":   names,
		"limit":   defaultMaxFacts,
	})
	if err != nil {
		logger.Warn("graph traversal failed, continuing without graph facts", "error", err)
		return nil
	}

	var facts []Fact
	for result.Next(ctx) {
		record := result.Record()
		facts = append(facts, Fact{
			Source:   stringValue(record, "source"),
			Name:     stringValue(record, "name"),
			Type:     stringValue(record, "type"),
			Relation: stringValue(record, "relation"),
			Hops:     intValue(record, "hops"),
		})
	}
	if err := result.Err(); err != nil {
		logger.Warn("graph traversal failed, continuing without graph facts", "error", err)
		return nil
	}

	return facts
}

func stringValue(record *neo4j.Record, key string) string {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return ""
	}
	s, _ := value.(string)
	return s
}

func intValue(record *neo4j.Record, key string) int {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return 0
	}
	n, _ := value.(int64)
	return int(n)
}
