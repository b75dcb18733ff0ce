package graph_test

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/neogm/neogm/core"
	"github.com/neogm/neogm/graph"
	"github.com/neogm/neogm/query"
)

func TestPathSegments(t *testing.T) {
	g, exec := newMockedGraph(t)

	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(),
			"MATCH (start:Profile)-[r:PAYMENT]->(target:Profile)\n"+
				"WHERE start.id IN $start_ids\n"+
				"RETURN start, r, target",
			map[string]any{"start_ids": []string{"p1"}}).
		Return([]*neo4j.Record{
			{
				Keys: []string{"start", "r", "target"},
				Values: []any{
					dbtype.Node{Props: map[string]any{"id": "p1", "name": "alice"}},
					dbtype.Relationship{Props: map[string]any{
						"id": "t1", "amount": 50.0, "startNodeId": "p1", "endNodeId": "p2",
					}},
					dbtype.Node{Props: map[string]any{"id": "p2", "name": "bob"}},
				},
			},
		}, nil)

	segs, err := graph.PathSegments[Profile, Payment, Profile](context.Background(), g, graph.Traversal{
		StartIDs: []string{"p1"},
	}, nil)
	require.NoError(t, err)

	require.Len(t, segs, 1)
	assert.Equal(t, "alice", segs[0].Start.Name)
	assert.Equal(t, 50.0, segs[0].Relationship.Amount)
	assert.Equal(t, "bob", segs[0].End.Name)
}

func TestPathSegmentsMultiHop(t *testing.T) {
	g, exec := newMockedGraph(t)

	// Variable-length patterns bind r to a list; the final hop is the
	// segment's relationship.
	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(),
			"MATCH (start:Profile)-[r:PAYMENT*1..3]->(target:Profile)\n"+
				"WHERE start.id IN $start_ids\n"+
				"RETURN start, r, target",
			gomock.Any()).
		Return([]*neo4j.Record{
			{
				Keys: []string{"start", "r", "target"},
				Values: []any{
					dbtype.Node{Props: map[string]any{"id": "p1"}},
					[]any{
						dbtype.Relationship{Props: map[string]any{"id": "t1", "amount": 10.0}},
						dbtype.Relationship{Props: map[string]any{"id": "t2", "amount": 20.0}},
					},
					dbtype.Node{Props: map[string]any{"id": "p3"}},
				},
			},
		}, nil)

	segs, err := graph.PathSegments[Profile, Payment, Profile](context.Background(), g, graph.Traversal{
		StartIDs: []string{"p1"},
		MinDepth: 1,
		MaxDepth: 3,
	}, nil)
	require.NoError(t, err)

	require.Len(t, segs, 1)
	assert.Equal(t, "t2", segs[0].Relationship.Id)
	assert.Equal(t, 20.0, segs[0].Relationship.Amount)
}

func TestTraverseNodes(t *testing.T) {
	g, exec := newMockedGraph(t)

	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(),
			"MATCH (start:Profile)<-[r:PAYMENT]-(target:Profile)\n"+
				"WHERE start.id IN $start_ids AND target.name = $name_0\n"+
				"RETURN DISTINCT target",
			map[string]any{"start_ids": []string{"p1", "p2"}, "name_0": "carol"}).
		Return([]*neo4j.Record{
			nodeRecord("target", map[string]any{"id": "p9", "name": "carol"}),
		}, nil)

	nodes, err := graph.TraverseNodes[Profile, Payment, Profile](context.Background(), g, graph.Traversal{
		StartIDs:     []string{"p1", "p2"},
		Direction:    core.Incoming,
		TargetFilter: query.Field("name").Eq("carol"),
	}, nil)
	require.NoError(t, err)

	require.Len(t, nodes, 1)
	assert.Equal(t, "p9", nodes[0].Id)
}

func TestTraverseNodesDisjunctiveTargetFilter(t *testing.T) {
	g, exec := newMockedGraph(t)

	// The OR filter is ANDed with the start-id restriction and must keep
	// its grouping.
	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(),
			"MATCH (start:Profile)-[r:PAYMENT]->(target:Profile)\n"+
				"WHERE start.id IN $start_ids AND (target.name = $name_0 OR target.name = $name_1)\n"+
				"RETURN DISTINCT target",
			map[string]any{"start_ids": []string{"p1"}, "name_0": "carol", "name_1": "dave"}).
		Return([]*neo4j.Record{
			nodeRecord("target", map[string]any{"id": "p9", "name": "carol"}),
		}, nil)

	nodes, err := graph.TraverseNodes[Profile, Payment, Profile](context.Background(), g, graph.Traversal{
		StartIDs: []string{"p1"},
		TargetFilter: query.Or(
			query.Field("name").Eq("carol"),
			query.Field("name").Eq("dave"),
		),
	}, nil)
	require.NoError(t, err)

	require.Len(t, nodes, 1)
	assert.Equal(t, "p9", nodes[0].Id)
}

func TestTraverseRelationships(t *testing.T) {
	g, exec := newMockedGraph(t)

	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(),
			"MATCH (start:Profile)-[r:PAYMENT*2]-(target:Profile)\n"+
				"WHERE start.id IN $start_ids\n"+
				"RETURN DISTINCT r",
			gomock.Any()).
		Return([]*neo4j.Record{
			{
				Keys: []string{"r"},
				Values: []any{[]any{
					dbtype.Relationship{Props: map[string]any{"id": "t1"}},
					dbtype.Relationship{Props: map[string]any{"id": "t2"}},
				}},
			},
		}, nil)

	rels, err := graph.TraverseRelationships[Profile, Payment, Profile](context.Background(), g, graph.Traversal{
		StartIDs:  []string{"p1"},
		Direction: core.Bidirectional,
		MinDepth:  2,
		MaxDepth:  2,
	}, nil)
	require.NoError(t, err)

	require.Len(t, rels, 1)
	assert.Equal(t, "t2", rels[0].Id)
}

func TestTraversalTargetFilterError(t *testing.T) {
	g, _ := newMockedGraph(t)

	_, err := graph.TraverseNodes[Profile, Payment, Profile](context.Background(), g, graph.Traversal{
		StartIDs:     []string{"p1"},
		TargetFilter: query.Comparison{Op: query.OpEq},
	}, nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedExpression)
}
