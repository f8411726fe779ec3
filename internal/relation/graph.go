// Package relation mirrors agent familiarity into a Neo4j graph so the
// social web across all agents can be queried in one place. The graph is a
// secondary index; the psyche remains the source of truth.
package relation

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/psyche"
)

// Edge is one directed familiarity edge between agents.
type Edge struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Familiarity int    `json:"familiarity"`
}

// Graph manages KNOWS edges in Neo4j.
type Graph struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewGraph connects to Neo4j and verifies the connection.
func NewGraph(ctx context.Context, uri, user, password string, logger *zap.Logger) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j: %w", err)
	}
	logger.Info("Neo4j connected")
	return &Graph{driver: driver, logger: logger}, nil
}

// RecordFamiliarity upserts the KNOWS edge with the current counter.
func (g *Graph) RecordFamiliarity(ctx context.Context, from, to string, familiarity int) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`MERGE (a:Agent {name: $from})
		 MERGE (b:Agent {name: $to})
		 MERGE (a)-[r:KNOWS]->(b)
		 SET r.familiarity = $familiarity, r.updated_at = datetime()`,
		map[string]interface{}{
			"from":        psyche.Key(from),
			"to":          psyche.Key(to),
			"familiarity": familiarity,
		})
	if err != nil {
		return fmt.Errorf("record familiarity: %w", err)
	}
	return nil
}

// Sync mirrors every relationship in a psyche into the graph.
func (g *Graph) Sync(ctx context.Context, p *psyche.Psyche) error {
	for peer, rel := range p.Relationships {
		if err := g.RecordFamiliarity(ctx, p.Name, peer, rel.Familiarity); err != nil {
			return err
		}
	}
	return nil
}

// Edges returns all outgoing KNOWS edges for an agent.
func (g *Graph) Edges(ctx context.Context, name string) ([]*Edge, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (a:Agent {name: $name})-[r:KNOWS]->(b:Agent)
		 RETURN b.name, r.familiarity`,
		map[string]interface{}{"name": psyche.Key(name)})
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}

	var edges []*Edge
	for result.Next(ctx) {
		rec := result.Record()
		to, _ := rec.Get("b.name")
		familiarity, _ := rec.Get("r.familiarity")

		edge := &Edge{From: psyche.Key(name)}
		if s, ok := to.(string); ok {
			edge.To = s
		}
		if n, ok := familiarity.(int64); ok {
			edge.Familiarity = int(n)
		}
		edges = append(edges, edge)
	}
	return edges, result.Err()
}

// Close shuts down the driver.
func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}
