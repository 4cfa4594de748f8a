package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/bowerhall/goldfish/internal/logger"
)

const connectTimeout = 10 * time.Second

// Client wraps the Neo4j driver. A nil Client is valid everywhere and means
// the graph capability is disabled; all reads return empty results and all
// writes are no-ops.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URI == "" {
		return nil, nil
	}

	user := cfg.User
	if user == "" {
		user = "neo4j"
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(user, cfg.Password, ""), func(c *neo4j.Config) {
		c.SocketConnectTimeout = connectTimeout
	})
	if err != nil {
		return nil, err
	}

	verifyCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		driver.Close(ctx)
		return nil, err
	}

	return &Client{driver: driver, database: cfg.Database}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}

func (c *Client) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.database,
	})
}

var schemaStatements = []string{
	`CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.user_id IS UNIQUE`,
	`CREATE CONSTRAINT entry_id IF NOT EXISTS FOR (e:Entry) REQUIRE e.id IS UNIQUE`,
	`CREATE CONSTRAINT person_key IF NOT EXISTS FOR (p:Person) REQUIRE (p.user_id, p.name) IS UNIQUE`,
	`CREATE CONSTRAINT organization_key IF NOT EXISTS FOR (o:Organization) REQUIRE (o.user_id, o.name) IS UNIQUE`,
	`CREATE CONSTRAINT place_key IF NOT EXISTS FOR (pl:Place) REQUIRE (pl.user_id, pl.name) IS UNIQUE`,
	`CREATE CONSTRAINT topic_key IF NOT EXISTS FOR (t:Topic) REQUIRE (t.user_id, t.name) IS UNIQUE`,
	`CREATE CONSTRAINT event_key IF NOT EXISTS FOR (ev:Event) REQUIRE (ev.user_id, ev.name) IS UNIQUE`,
	`CREATE CONSTRAINT emotion_key IF NOT EXISTS FOR (em:Emotion) REQUIRE (em.user_id, em.name) IS UNIQUE`,
}

// InitSchema declares uniqueness constraints. Every statement uses IF NOT
// EXISTS, so redeclaring on startup is never an error.
func (c *Client) InitSchema(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}

	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			logger.Warn("graph constraint declaration failed", "error", err)
			return err
		}
	}

	return nil
}
