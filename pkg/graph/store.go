// Package graph projects fused assertions into a knowledge graph and
// runs structural, centrality, temporal, and path analyses over it.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// Store is the Neo4j façade backing the knowledge graph: entities and
// events are nodes, RelationFacts and SAME_AS merges are edges.
type Store struct {
	driver neo4j.DriverWithContext
}

// NewStore opens a Neo4j driver against uri. Callers must call Close
// when done.
func NewStore(ctx context.Context, uri, username, password string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("open neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Store{driver: driver}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{})
}

// UpsertEntity projects an Entity as a graph node, labeled by its type.
func (s *Store) UpsertEntity(ctx context.Context, e contracts.Entity) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MERGE (n:Entity {uid: $uid})
			SET n.case_uid = $case_uid, n.type = $type, n.name = $name
		`, map[string]any{
			"uid": e.UID, "case_uid": e.CaseUID, "type": e.Type, "name": e.Name,
		})
	})
	if err != nil {
		return fmt.Errorf("upsert entity node: %w", err)
	}
	return nil
}

// UpsertRelation projects a RelationFact as a directed, typed edge
// between two entity nodes.
func (s *Store) UpsertRelation(ctx context.Context, r contracts.RelationFact) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MATCH (a:Entity {uid: $source}), (b:Entity {uid: $target})
			MERGE (a)-[rel:RELATION {uid: $uid}]->(b)
			SET rel.type = $type, rel.case_uid = $case_uid,
			    rel.evidence_strength = $strength, rel.has_conflict = $has_conflict,
			    rel.ontology_version = $ontology_version
		`, map[string]any{
			"uid": r.UID, "source": r.SourceEntityUID, "target": r.TargetEntityUID,
			"type": r.Type, "case_uid": r.CaseUID, "strength": r.EvidenceStrength,
			"has_conflict": r.HasConflict, "ontology_version": r.OntologyVersion,
		})
	})
	if err != nil {
		return fmt.Errorf("upsert relation edge: %w", err)
	}
	return nil
}

// ProjectSameAs records an approved entity-disambiguation merge as a
// SAME_AS edge, the graph-level effect of an approved EntityIdentityAction.
func (s *Store) ProjectSameAs(ctx context.Context, canonicalUID string, aliasUIDs []string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			UNWIND $aliases AS alias
			MATCH (c:Entity {uid: $canonical}), (a:Entity {uid: alias})
			MERGE (a)-[:SAME_AS]->(c)
		`, map[string]any{"canonical": canonicalUID, "aliases": aliasUIDs})
	})
	if err != nil {
		return fmt.Errorf("project same_as edges: %w", err)
	}
	return nil
}

// RemoveSameAs reverses a rolled-back merge.
func (s *Store) RemoveSameAs(ctx context.Context, canonicalUID string, aliasUIDs []string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			UNWIND $aliases AS alias
			MATCH (a:Entity {uid: alias})-[rel:SAME_AS]->(c:Entity {uid: $canonical})
			DELETE rel
		`, map[string]any{"canonical": canonicalUID, "aliases": aliasUIDs})
	})
	if err != nil {
		return fmt.Errorf("remove same_as edges: %w", err)
	}
	return nil
}

// Node is one entity projected into a subgraph snapshot.
type Node struct {
	UID, Name, Type string
}

// Edge is one relation projected into a subgraph snapshot.
type Edge struct {
	Source, Target, RelType string
}

// Subgraph is an in-memory snapshot of a case's graph, suitable for
// in-process structural analysis.
type Subgraph struct {
	Nodes []Node
	Edges []Edge
}

// GetSubgraph fetches every node and edge belonging to a case.
func (s *Store) GetSubgraph(ctx context.Context, caseUID string) (Subgraph, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		nodesRes, err := tx.Run(ctx, `MATCH (n:Entity {case_uid: $case}) RETURN n.uid AS uid, n.name AS name, n.type AS type`,
			map[string]any{"case": caseUID})
		if err != nil {
			return nil, err
		}
		nodeRecords, err := nodesRes.Collect(ctx)
		if err != nil {
			return nil, err
		}

		edgesRes, err := tx.Run(ctx, `
			MATCH (a:Entity {case_uid: $case})-[r:RELATION]->(b:Entity {case_uid: $case})
			RETURN a.uid AS source, b.uid AS target, r.type AS rel_type
		`, map[string]any{"case": caseUID})
		if err != nil {
			return nil, err
		}
		edgeRecords, err := edgesRes.Collect(ctx)
		if err != nil {
			return nil, err
		}

		sub := Subgraph{}
		for _, rec := range nodeRecords {
			sub.Nodes = append(sub.Nodes, Node{
				UID:  stringValue(rec, "uid"),
				Name: stringValue(rec, "name"),
				Type: stringValue(rec, "type"),
			})
		}
		for _, rec := range edgeRecords {
			sub.Edges = append(sub.Edges, Edge{
				Source:  stringValue(rec, "source"),
				Target:  stringValue(rec, "target"),
				RelType: stringValue(rec, "rel_type"),
			})
		}
		return sub, nil
	})
	if err != nil {
		return Subgraph{}, fmt.Errorf("get subgraph: %w", err)
	}
	return result.(Subgraph), nil
}

func stringValue(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func float64Value(rec *neo4j.Record, key string) float64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

// IsolatedNode is an entity with no relation edges in either direction.
type IsolatedNode struct {
	UID, Name, Type string
}

// GetIsolatedNodes returns entities with zero relation edges.
func (s *Store) GetIsolatedNodes(ctx context.Context, caseUID string) ([]IsolatedNode, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n:Entity {case_uid: $case})
			WHERE NOT (n)-[:RELATION]-()
			RETURN n.uid AS uid, n.name AS name, n.type AS type
		`, map[string]any{"case": caseUID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]IsolatedNode, 0, len(records))
		for _, rec := range records {
			out = append(out, IsolatedNode{UID: stringValue(rec, "uid"), Name: stringValue(rec, "name"), Type: stringValue(rec, "type")})
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get isolated nodes: %w", err)
	}
	return result.([]IsolatedNode), nil
}

// RelationshipCount is one entry of a relationship-type distribution.
type RelationshipCount struct {
	Type  string
	Count int64
}

// GetRelationshipStats returns the distribution of relation types.
func (s *Store) GetRelationshipStats(ctx context.Context, caseUID string) ([]RelationshipCount, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (:Entity {case_uid: $case})-[r:RELATION]->(:Entity {case_uid: $case})
			RETURN r.type AS type, count(r) AS count ORDER BY count DESC
		`, map[string]any{"case": caseUID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]RelationshipCount, 0, len(records))
		for _, rec := range records {
			out = append(out, RelationshipCount{Type: stringValue(rec, "type"), Count: int64(float64Value(rec, "count"))})
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get relationship stats: %w", err)
	}
	return result.([]RelationshipCount), nil
}

// TemporalEvent is one event node within a time range.
type TemporalEvent struct {
	UID, Type string
	Timestamp time.Time
}

// GetTemporalEvents returns events in [start, end), ordered by time.
func (s *Store) GetTemporalEvents(ctx context.Context, caseUID string, start, end *time.Time) ([]TemporalEvent, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	params := map[string]any{"case": caseUID}
	filter := ""
	if start != nil {
		filter += " AND n.timestamp >= $start"
		params["start"] = start.Format(time.RFC3339)
	}
	if end != nil {
		filter += " AND n.timestamp <= $end"
		params["end"] = end.Format(time.RFC3339)
	}

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n:Event {case_uid: $case}) WHERE true`+filter+`
			RETURN n.uid AS uid, n.type AS type, n.timestamp AS timestamp ORDER BY n.timestamp
		`, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]TemporalEvent, 0, len(records))
		for _, rec := range records {
			ts, _ := time.Parse(time.RFC3339, stringValue(rec, "timestamp"))
			out = append(out, TemporalEvent{UID: stringValue(rec, "uid"), Type: stringValue(rec, "type"), Timestamp: ts})
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get temporal events: %w", err)
	}
	return result.([]TemporalEvent), nil
}

// GetEntityTimeline returns the relation edges touching one entity,
// ordered to approximate its activity timeline.
func (s *Store) GetEntityTimeline(ctx context.Context, entityUID string) ([]RelationshipCount, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n:Entity {uid: $uid})-[r:RELATION]-(m:Entity)
			RETURN r.type AS type, count(r) AS count ORDER BY count DESC
		`, map[string]any{"uid": entityUID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]RelationshipCount, 0, len(records))
		for _, rec := range records {
			out = append(out, RelationshipCount{Type: stringValue(rec, "type"), Count: int64(float64Value(rec, "count"))})
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get entity timeline: %w", err)
	}
	return result.([]RelationshipCount), nil
}

// GraphPath is one multi-hop path between two entities.
type GraphPath struct {
	NodeUIDs []string
	RelTypes []string
	Length   int
}

// FindMultiHopPaths runs a bounded-depth variable-length Cypher path
// query between two entities.
func (s *Store) FindMultiHopPaths(ctx context.Context, sourceUID, targetUID string, maxDepth, limit int) ([]GraphPath, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH p = (a:Entity {uid: $source})-[*1..%d]-(b:Entity {uid: $target})
			RETURN [n IN nodes(p) | n.uid] AS node_uids, [r IN relationships(p) | r.type] AS rel_types
			LIMIT $limit
		`, maxDepth), map[string]any{"source": sourceUID, "target": targetUID, "limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]GraphPath, 0, len(records))
		for _, rec := range records {
			nodeUIDs := toStringSlice(rec, "node_uids")
			relTypes := toStringSlice(rec, "rel_types")
			out = append(out, GraphPath{NodeUIDs: nodeUIDs, RelTypes: relTypes, Length: len(relTypes)})
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("find multi-hop paths: %w", err)
	}
	return result.([]GraphPath), nil
}

func toStringSlice(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
