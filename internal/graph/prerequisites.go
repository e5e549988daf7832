package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/abhisek/quizadapt/internal/logger"
	"github.com/abhisek/quizadapt/internal/store"
)

// Edge states that Concept requires Prerequisite.
type Edge struct {
	Concept      int64
	Prerequisite int64
}

// Source answers direct prerequisite lookups.
type Source interface {
	Prerequisites(ctx context.Context, conceptID int64) ([]int64, error)
}

const prerequisitesQuery = `
MATCH (:Concept {id: $id})-[:REQUIRES]->(p:Concept)
RETURN p.id AS id
ORDER BY id
`

// Prerequisites returns the direct prerequisites of conceptID.
func (c *Client) Prerequisites(ctx context.Context, conceptID int64) ([]int64, error) {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, prerequisitesQuery, map[string]any{"id": conceptID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, 0, len(records))
		for _, rec := range records {
			v, ok := rec.Get("id")
			if !ok {
				continue
			}
			if id, ok := asInt64(v); ok {
				ids = append(ids, id)
			}
		}
		return ids, nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j prerequisites of %d: %w", conceptID, err)
	}
	return out.([]int64), nil
}

// SyncPrerequisites merges concept nodes and REQUIRES edges.
func (c *Client) SyncPrerequisites(ctx context.Context, concepts []store.Concept, edges []Edge) error {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)

	// Restricted users may not create constraints; the merge still works.
	if res, err := session.Run(ctx, `CREATE CONSTRAINT concept_id_unique IF NOT EXISTS FOR (c:Concept) REQUIRE c.id IS UNIQUE`, nil); err != nil {
		c.log.Warn("neo4j schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	nodes := make([]map[string]any, 0, len(concepts))
	for _, con := range concepts {
		nodes = append(nodes, map[string]any{"id": con.ID, "topic_id": con.TopicID, "name": con.Name})
	}
	rels := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		rels = append(rels, map[string]any{"from": e.Concept, "to": e.Prerequisite})
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(nodes) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (c:Concept {id: n.id})
SET c.topic_id = n.topic_id, c.name = n.name
`, map[string]any{"nodes": nodes})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		if len(rels) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MERGE (a:Concept {id: r.from})
MERGE (b:Concept {id: r.to})
MERGE (a)-[:REQUIRES]->(b)
`, map[string]any{"rels": rels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j sync prerequisites: %w", err)
	}
	c.log.Info("prerequisite graph synced", "concepts", len(nodes), "edges", len(rels))
	return nil
}

// Learners is a store.LearnerRepo whose prerequisite lookups go to a
// graph Source. A failing lookup falls back to the wrapped repository.
type Learners struct {
	store.LearnerRepo
	graph Source
	log   *logger.Logger
}

// WithGraph wraps repo. A nil src returns repo unchanged.
func WithGraph(repo store.LearnerRepo, src Source, log *logger.Logger) store.LearnerRepo {
	if src == nil {
		return repo
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Learners{LearnerRepo: repo, graph: src, log: log}
}

func (l *Learners) Prerequisites(ctx context.Context, conceptID int64) ([]int64, error) {
	ids, err := l.graph.Prerequisites(ctx, conceptID)
	if err == nil {
		return dedupe(ids), nil
	}
	l.log.Warn("graph prerequisite lookup failed, using store", "concept_id", conceptID, "error", err)
	return l.LearnerRepo.Prerequisites(ctx, conceptID)
}

func dedupe(ids []int64) []int64 {
	if len(ids) == 0 {
		return ids
	}
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
