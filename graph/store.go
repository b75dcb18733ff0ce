package graph

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/neogm/neogm/core"
	"github.com/neogm/neogm/schema"
)

// Graph is the entity store. All operations accept an optional
// *Transaction; when nil, multi-statement operations run in an ephemeral
// transaction if the executor supports one, per-statement otherwise.
type Graph struct {
	exec Executor
	reg  *schema.Registry
	ser  *Serializer
	log  *slog.Logger
}

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithGraphLogger sets the structured logger for store operations.
func WithGraphLogger(logger *slog.Logger) GraphOption {
	return func(g *Graph) { g.log = logger }
}

// New creates a Graph over the given executor and metadata registry.
func New(exec Executor, reg *schema.Registry, opts ...GraphOption) *Graph {
	g := &Graph{
		exec: exec,
		reg:  reg,
		ser:  NewSerializer(reg),
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Registry returns the metadata registry the store was built with.
func (g *Graph) Registry() *schema.Registry { return g.reg }

// Serializer returns the store's serializer.
func (g *Graph) Serializer() *Serializer { return g.ser }

// runWrite routes a statement to the supplied transaction or the
// executor.
func (g *Graph) runWrite(ctx context.Context, tx *Transaction, query string, params map[string]any) ([]*neo4j.Record, error) {
	if tx != nil {
		return tx.Run(ctx, query, params)
	}
	return g.exec.ExecuteWriteQuery(ctx, query, params)
}

func (g *Graph) runRead(ctx context.Context, tx *Transaction, query string, params map[string]any) ([]*neo4j.Record, error) {
	if tx != nil {
		return tx.Run(ctx, query, params)
	}
	return g.exec.ExecuteReadQuery(ctx, query, params)
}

// withWriteTx runs fn inside tx when given. Otherwise it opens an
// ephemeral transaction if the executor can, committing on success and
// rolling back on error; executors without transaction support fall back
// to per-statement writes.
func (g *Graph) withWriteTx(ctx context.Context, tx *Transaction, fn func(tx *Transaction) error) error {
	if tx != nil {
		return fn(tx)
	}
	beginner, ok := g.exec.(TxBeginner)
	if !ok {
		return fn(nil)
	}
	own, err := beginner.BeginTransaction(ctx)
	if err != nil {
		return err
	}
	defer own.Close(ctx)
	if err := fn(own); err != nil {
		return err
	}
	return own.Commit(ctx)
}

// CreateNode persists a node and its complex properties. The node's
// identifier is assigned first if missing.
func (g *Graph) CreateNode(ctx context.Context, node core.Node, tx *Transaction) error {
	if ensurer, ok := node.(interface{ EnsureID() }); ok {
		ensurer.EnsureID()
	}
	serialized, err := g.ser.Serialize(node)
	if err != nil {
		return err
	}

	return g.withWriteTx(ctx, tx, func(tx *Transaction) error {
		query, params := createNodeStatement(serialized)
		if _, err := g.runWrite(ctx, tx, query, params); err != nil {
			return err
		}
		if err := g.createComplexProperties(ctx, tx, serialized); err != nil {
			return err
		}
		g.log.Debug("node created", "label", serialized.Label, "id", serialized.ID)
		return nil
	})
}

// GetNode loads a node by id into target, a pointer to the entity
// struct. Related fields are filled from the node's complex-property
// neighbors. Returns core.ErrNotFound when no node matches.
func (g *Graph) GetNode(ctx context.Context, id string, target any, tx *Transaction) error {
	records, err := g.runRead(ctx, tx, "MATCH (n {id: $node_id}) RETURN n", map[string]any{"node_id": id})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("node %s: %w", id, core.ErrNotFound)
	}

	props, err := nodeProps(records[0], "n")
	if err != nil {
		return err
	}
	related, err := g.loadComplexProperties(ctx, tx, id)
	if err != nil {
		return err
	}
	return g.ser.Deserialize(props, related, target)
}

// UpdateNode rewrites a node's properties and recreates its complex
// properties. Reports whether the node existed.
func (g *Graph) UpdateNode(ctx context.Context, node core.Node, tx *Transaction) (bool, error) {
	serialized, err := g.ser.Serialize(node)
	if err != nil {
		return false, err
	}

	found := false
	err = g.withWriteTx(ctx, tx, func(tx *Transaction) error {
		query, params := updateNodeStatement(serialized)
		records, err := g.runWrite(ctx, tx, query, params)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		found = true

		// Complex properties are replaced wholesale on update.
		if err := g.deleteComplexProperties(ctx, tx, serialized.ID); err != nil {
			return err
		}
		return g.createComplexProperties(ctx, tx, serialized)
	})
	return found, err
}

// DeleteNode removes a node and cascades to its complex-property nodes.
// Reports whether the node existed.
func (g *Graph) DeleteNode(ctx context.Context, id string, tx *Transaction) (bool, error) {
	found := false
	err := g.withWriteTx(ctx, tx, func(tx *Transaction) error {
		if err := g.deleteComplexProperties(ctx, tx, id); err != nil {
			return err
		}
		records, err := g.runWrite(ctx, tx,
			"MATCH (n {id: $node_id}) DETACH DELETE n RETURN count(n) AS deleted",
			map[string]any{"node_id": id})
		if err != nil {
			return err
		}
		if len(records) > 0 {
			if n, ok := records[0].Get("deleted"); ok {
				if count, ok := n.(int64); ok && count > 0 {
					found = true
				}
			}
		}
		return nil
	})
	return found, err
}

// CreateRelationship persists a relationship between two existing nodes.
// Returns core.ErrNotFound when either endpoint is missing.
func (g *Graph) CreateRelationship(ctx context.Context, rel core.Relationship, tx *Transaction) error {
	serialized, err := g.ser.Serialize(rel)
	if err != nil {
		return err
	}
	if serialized.StartNodeID == "" || serialized.EndNodeID == "" {
		return &core.ValidationError{
			EntityType: reflect.TypeOf(rel).String(),
			Reason:     "relationship endpoints must be set",
		}
	}

	query, params := createRelationshipStatement(serialized)
	records, err := g.runWrite(ctx, tx, query, params)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("relationship endpoints %s -> %s: %w",
			serialized.StartNodeID, serialized.EndNodeID, core.ErrNotFound)
	}
	g.log.Debug("relationship created", "type", serialized.Label, "id", serialized.ID)
	return nil
}

// GetRelationship loads a relationship by id into target. Returns
// core.ErrNotFound when no relationship matches.
func (g *Graph) GetRelationship(ctx context.Context, id string, target any, tx *Transaction) error {
	records, err := g.runRead(ctx, tx,
		"MATCH ()-[r {id: $relationship_id}]->() RETURN r",
		map[string]any{"relationship_id": id})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("relationship %s: %w", id, core.ErrNotFound)
	}
	props, err := relationshipProps(records[0], "r")
	if err != nil {
		return err
	}
	return g.ser.Deserialize(props, nil, target)
}

// UpdateRelationship rewrites a relationship's properties. Endpoints are
// never updated. Reports whether the relationship existed.
func (g *Graph) UpdateRelationship(ctx context.Context, rel core.Relationship, tx *Transaction) (bool, error) {
	serialized, err := g.ser.Serialize(rel)
	if err != nil {
		return false, err
	}
	query, params := updateRelationshipStatement(serialized)
	records, err := g.runWrite(ctx, tx, query, params)
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

// DeleteRelationship removes a relationship by id. Reports whether it
// existed.
func (g *Graph) DeleteRelationship(ctx context.Context, id string, tx *Transaction) (bool, error) {
	records, err := g.runWrite(ctx, tx,
		"MATCH ()-[r {id: $relationship_id}]->() DELETE r RETURN count(r) AS deleted",
		map[string]any{"relationship_id": id})
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}
	n, _ := records[0].Get("deleted")
	count, ok := n.(int64)
	return ok && count > 0, nil
}

func (g *Graph) createComplexProperties(ctx context.Context, tx *Transaction, serialized *SerializedEntity) error {
	for _, cp := range serialized.Complex {
		for i, value := range cp.Values {
			var seq *int
			if cp.IsCollection {
				n := i
				seq = &n
			}
			if err := g.createComplexPropertyNode(ctx, tx, serialized.ID, cp, value, seq); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Graph) createComplexPropertyNode(ctx context.Context, tx *Transaction, parentID string, cp ComplexProperty, value reflect.Value, seq *int) error {
	props, err := g.ser.SerializeValue(value)
	if err != nil {
		return err
	}

	ordinal := 0
	if seq != nil {
		ordinal = *seq
		props[SequenceNumberProperty] = int64(ordinal)
	}
	complexID := fmt.Sprintf("%s_%s_%d", parentID, cp.Field, ordinal)

	assignments := make([]string, 0, len(props))
	params := map[string]any{"complex_id": complexID}
	for _, k := range sortedKeys(props) {
		assignments = append(assignments, fmt.Sprintf("%s: $%s", k, k))
		params[k] = props[k]
	}

	query := fmt.Sprintf("CREATE (cp:ComplexProperty {id: $complex_id%s})", joinWithLeadingComma(assignments))
	if _, err := g.runWrite(ctx, tx, query, params); err != nil {
		return err
	}

	relQuery := fmt.Sprintf(
		"MATCH (parent {id: $parent_id})\nMATCH (cp {id: $complex_id})\nCREATE (parent)-[r:%s]->(cp)",
		cp.RelType)
	_, err = g.runWrite(ctx, tx, relQuery, map[string]any{"parent_id": parentID, "complex_id": complexID})
	return err
}

// loadComplexProperties fetches a node's complex-property neighbors
// grouped by field name, ordered by their stored sequence numbers.
func (g *Graph) loadComplexProperties(ctx context.Context, tx *Transaction, nodeID string) (map[string][]map[string]any, error) {
	query := fmt.Sprintf(
		"MATCH (n {id: $node_id})-[rel]->(cp:ComplexProperty)\nWHERE type(rel) STARTS WITH '%s'\nRETURN type(rel) AS rel_type, cp\nORDER BY cp.%s",
		schema.PropertyRelPrefix, SequenceNumberProperty)
	records, err := g.runRead(ctx, tx, query, map[string]any{"node_id": nodeID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	out := make(map[string][]map[string]any)
	for _, record := range records {
		relType, ok := record.Get("rel_type")
		if !ok {
			continue
		}
		name, ok := relType.(string)
		if !ok {
			continue
		}
		props, err := nodeProps(record, "cp")
		if err != nil {
			return nil, err
		}
		field := schema.PropertyNameFromRelationship(name)
		out[field] = append(out[field], props)
	}
	return out, nil
}

func (g *Graph) deleteComplexProperties(ctx context.Context, tx *Transaction, nodeID string) error {
	query := fmt.Sprintf(
		"MATCH (n {id: $node_id})-[r]->(cp:ComplexProperty)\nWHERE type(r) STARTS WITH '%s'\nDELETE r, cp",
		schema.PropertyRelPrefix)
	_, err := g.runWrite(ctx, tx, query, map[string]any{"node_id": nodeID})
	return err
}

func createNodeStatement(s *SerializedEntity) (string, map[string]any) {
	assignments := make([]string, 0, len(s.Properties))
	params := map[string]any{"id": s.ID}
	for _, k := range sortedKeys(s.Properties) {
		assignments = append(assignments, fmt.Sprintf("%s: $%s", k, k))
		params[k] = s.Properties[k]
	}
	query := fmt.Sprintf("CREATE (n:%s {id: $id%s})\nRETURN n", s.Label, joinWithLeadingComma(assignments))
	return query, params
}

func updateNodeStatement(s *SerializedEntity) (string, map[string]any) {
	assignments := make([]string, 0, len(s.Properties))
	params := map[string]any{"id": s.ID}
	for _, k := range sortedKeys(s.Properties) {
		assignments = append(assignments, fmt.Sprintf("n.%s = $%s", k, k))
		params[k] = s.Properties[k]
	}
	if len(assignments) == 0 {
		return fmt.Sprintf("MATCH (n:%s {id: $id})\nRETURN n", s.Label), params
	}
	query := fmt.Sprintf("MATCH (n:%s {id: $id})\nSET %s\nRETURN n", s.Label, strings.Join(assignments, ", "))
	return query, params
}

func createRelationshipStatement(s *SerializedEntity) (string, map[string]any) {
	assignments := make([]string, 0, len(s.Properties))
	params := map[string]any{
		"id":       s.ID,
		"start_id": s.StartNodeID,
		"end_id":   s.EndNodeID,
	}
	for _, k := range sortedKeys(s.Properties) {
		assignments = append(assignments, fmt.Sprintf("%s: $%s", k, k))
		params[k] = s.Properties[k]
	}
	query := fmt.Sprintf(
		"MATCH (start {id: $start_id})\nMATCH (end {id: $end_id})\nCREATE (start)-[r:%s {id: $id%s}]->(end)\nRETURN r",
		s.Label, joinWithLeadingComma(assignments))
	return query, params
}

func updateRelationshipStatement(s *SerializedEntity) (string, map[string]any) {
	assignments := make([]string, 0, len(s.Properties))
	params := map[string]any{"id": s.ID}
	for _, k := range sortedKeys(s.Properties) {
		// Endpoints are fixed at creation; updates never touch them.
		if k == "startNodeId" || k == "endNodeId" {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("r.%s = $%s", k, k))
		params[k] = s.Properties[k]
	}
	if len(assignments) == 0 {
		return fmt.Sprintf("MATCH ()-[r:%s {id: $id}]->()\nRETURN r", s.Label), params
	}
	query := fmt.Sprintf("MATCH ()-[r:%s {id: $id}]->()\nSET %s\nRETURN r", s.Label, strings.Join(assignments, ", "))
	return query, params
}

// nodeProps extracts the property map of a node value bound to the given
// alias in a record.
func nodeProps(record *neo4j.Record, alias string) (map[string]any, error) {
	raw, ok := record.Get(alias)
	if !ok {
		return nil, fmt.Errorf("record has no value for %q", alias)
	}
	node, ok := raw.(dbtype.Node)
	if !ok {
		return nil, fmt.Errorf("record value %q is %T, expected a node", alias, raw)
	}
	return node.Props, nil
}

// relationshipProps extracts the property map of a relationship value
// bound to the given alias in a record.
func relationshipProps(record *neo4j.Record, alias string) (map[string]any, error) {
	raw, ok := record.Get(alias)
	if !ok {
		return nil, fmt.Errorf("record has no value for %q", alias)
	}
	rel, ok := raw.(dbtype.Relationship)
	if !ok {
		return nil, fmt.Errorf("record value %q is %T, expected a relationship", alias, raw)
	}
	return rel.Props, nil
}

// Statement property order is sorted for deterministic query text; the
// parameter map carries the values either way.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinWithLeadingComma(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return ", " + strings.Join(parts, ", ")
}
