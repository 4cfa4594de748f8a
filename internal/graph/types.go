package graph

import "github.com/bowerhall/goldfish/internal/nlu"

// Fact is one related-entity result from a graph query.
type Fact struct {
	Source   string // the queried entity this fact hangs off
	Name     string // related node name
	Type     string // related node label
	Relation string // relation sub-type on the connecting edge
	Hops     int
}

type Config struct {
	URI      string
	User     string
	Password string
	Database string
}

func labelFor(t nlu.EntityType) string {
	switch t {
	case nlu.EntityPerson:
		return "Person"
	case nlu.EntityOrganization:
		return "Organization"
	case nlu.EntityPlace:
		return "Place"
	case nlu.EntityTopic:
		return "Topic"
	case nlu.EntityEvent:
		return "Event"
	}
	return "Entity"
}
