package neo4j

import (
	"context"
	"fmt"
	"sort"

	"kube-topology/internal/formatter"
	"kube-topology/internal/graph"
	"kube-topology/internal/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

// Client handles the connection and communication with a Neo4j database.
type Client struct {
	Driver neo4j.DriverWithContext
	log    *logrus.Entry
}

// NewClient creates a new Neo4j client and establishes a connection.
func NewClient(uri, user, pass string, log *logrus.Entry) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, pass, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create neo4j driver: %w", err)
	}

	return &Client{
		Driver: driver,
		log:    logger.OrDiscard(log).WithField("neo4j_uri", uri),
	}, nil
}

// Close gracefully shuts down the driver.
func (c *Client) Close(ctx context.Context) error {
	return c.Driver.Close(ctx)
}

// VerifyConnectivity checks if a connection can be established with the database.
func (c *Client) VerifyConnectivity(ctx context.Context) error {
	return c.Driver.VerifyConnectivity(ctx)
}

// UpdateGraph synchronizes the database with a laid-out graph. Resources
// missing from g are detached and deleted, then every node and edge is
// upserted with its position.
func (c *Client) UpdateGraph(ctx context.Context, g *graph.Graph) error {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		existingIDs, err := c.fetchExistingResourceIDs(ctx, tx)
		if err != nil {
			return nil, err
		}

		if err := c.deleteObsoleteResources(ctx, tx, obsoleteIDs(existingIDs, g)); err != nil {
			return nil, err
		}

		return c.upsertGraph(ctx, tx, g)
	})

	if err != nil {
		return fmt.Errorf("failed to update graph: %w", err)
	}

	return nil
}

// fetchExistingResourceIDs retrieves all resource IDs currently in Neo4j.
func (c *Client) fetchExistingResourceIDs(ctx context.Context, tx neo4j.ManagedTransaction) (map[string]bool, error) {
	query := "MATCH (n:Resource) RETURN n.id as id"
	result, err := tx.Run(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing resources: %w", err)
	}

	existingIDs := make(map[string]bool)
	for result.Next(ctx) {
		record := result.Record()
		if id, ok := record.Get("id"); ok {
			if idStr, ok := id.(string); ok {
				existingIDs[idStr] = true
			}
		}
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate existing resources: %w", err)
	}

	return existingIDs, nil
}

// obsoleteIDs returns the stored ids that are not part of g, sorted.
func obsoleteIDs(existingIDs map[string]bool, g *graph.Graph) []string {
	var ids []string
	for id := range existingIDs {
		if _, ok := g.Node(id); !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (c *Client) deleteObsoleteResources(ctx context.Context, tx neo4j.ManagedTransaction, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := "UNWIND $obsoleteIds AS obsoleteId MATCH (n:Resource {id: obsoleteId}) DETACH DELETE n"
	if _, err := tx.Run(ctx, query, map[string]any{"obsoleteIds": ids}); err != nil {
		return fmt.Errorf("failed to delete obsolete resources: %w", err)
	}

	c.log.WithField("deleted", len(ids)).Debug("removed obsolete resources")
	return nil
}

// upsertGraph inserts or updates the current graph state in Neo4j.
func (c *Client) upsertGraph(ctx context.Context, tx neo4j.ManagedTransaction, g *graph.Graph) (any, error) {
	query, params := formatter.ToCypherTransaction(g)
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert graph: %w", err)
	}
	return result.Consume(ctx)
}
