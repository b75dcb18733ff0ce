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

type Team struct {
	core.NodeBase
	Name    string    `graph:"name"`
	Members []Address `graph:"members"`
}

func TestNodeQueryToList(t *testing.T) {
	g, exec := newMockedGraph(t)

	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(),
			"MATCH (n:Profile)\n"+
				"WHERE n.name = $name_0\n"+
				"OPTIONAL MATCH (n)-[home_rel:__PROPERTY__home__]->(home_node)\n"+
				"WITH n, home_node AS home\n"+
				"RETURN n, home",
			map[string]any{"name_0": "alice"}).
		Return([]*neo4j.Record{
			{
				Keys: []string{"n", "home"},
				Values: []any{
					dbtype.Node{Props: map[string]any{"id": "p1", "name": "alice"}},
					dbtype.Node{Props: map[string]any{"id": "p1_home_0", "city": "Portland"}},
				},
			},
		}, nil)

	results, err := graph.Nodes[Profile](g).
		Where(query.Field("name").Eq("alice")).
		ToList(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].Id)
	assert.Equal(t, "Portland", results[0].Home.City)
}

func TestNodeQueryToListEmpty(t *testing.T) {
	g, exec := newMockedGraph(t)

	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil)

	results, err := graph.Nodes[Profile](g).ToList(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNodeQueryGroupsFannedOutRows(t *testing.T) {
	g, exec := newMockedGraph(t)

	team := dbtype.Node{Props: map[string]any{"id": "t1", "name": "core"}}
	memberA := dbtype.Node{Props: map[string]any{
		"id": "t1_members_0", "city": "Denver", graph.SequenceNumberProperty: int64(0),
	}}
	memberB := dbtype.Node{Props: map[string]any{
		"id": "t1_members_1", "city": "Austin", graph.SequenceNumberProperty: int64(1),
	}}
	other := dbtype.Node{Props: map[string]any{"id": "t2", "name": "infra"}}

	// The OPTIONAL MATCH fans out one row per collection element, and the
	// same element can repeat across rows. Arrival order is scrambled.
	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]*neo4j.Record{
			{Keys: []string{"n", "members"}, Values: []any{team, memberB}},
			{Keys: []string{"n", "members"}, Values: []any{other, nil}},
			{Keys: []string{"n", "members"}, Values: []any{team, memberA}},
			{Keys: []string{"n", "members"}, Values: []any{team, memberB}},
		}, nil)

	results, err := graph.Nodes[Team](g).ToList(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "t1", results[0].Id)
	assert.Equal(t, "t2", results[1].Id)

	// Duplicates collapsed, elements back in sequence order.
	require.Len(t, results[0].Members, 2)
	assert.Equal(t, "Denver", results[0].Members[0].City)
	assert.Equal(t, "Austin", results[0].Members[1].City)
	assert.Empty(t, results[1].Members)
}

func TestNodeQueryFirst(t *testing.T) {
	t.Run("match", func(t *testing.T) {
		g, exec := newMockedGraph(t)

		exec.EXPECT().
			ExecuteReadQuery(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, q string, _ map[string]any) ([]*neo4j.Record, error) {
				assert.Contains(t, q, "LIMIT 1")
				return []*neo4j.Record{
					{Keys: []string{"n", "home"}, Values: []any{
						dbtype.Node{Props: map[string]any{"id": "p1", "name": "alice"}}, nil,
					}},
				}, nil
			})

		p, err := graph.Nodes[Profile](g).First(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "alice", p.Name)
	})

	t.Run("no match", func(t *testing.T) {
		g, exec := newMockedGraph(t)

		exec.EXPECT().
			ExecuteReadQuery(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil)

		_, err := graph.Nodes[Profile](g).First(context.Background())
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestNodeQueryFirstOrNone(t *testing.T) {
	g, exec := newMockedGraph(t)

	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil)

	p, err := graph.Nodes[Profile](g).FirstOrNone(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestNodeQueryCount(t *testing.T) {
	g, exec := newMockedGraph(t)

	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(),
			"MATCH (n:Profile)\nWHERE n.name = $name_0\nRETURN count(n) AS count",
			map[string]any{"name_0": "alice"}).
		Return([]*neo4j.Record{scalarRecord("count", int64(3))}, nil)

	n, err := graph.Nodes[Profile](g).
		Where(query.Field("name").Eq("alice")).
		Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestNodeQueryAny(t *testing.T) {
	g, exec := newMockedGraph(t)

	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(),
			"MATCH (n:Profile)\nRETURN count(n) > 0 AS exists",
			map[string]any{}).
		Return([]*neo4j.Record{scalarRecord("exists", true)}, nil)

	ok, err := graph.Nodes[Profile](g).Any(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNodeQueryAll(t *testing.T) {
	g, exec := newMockedGraph(t)

	// All(pred) asks whether any row violates the predicate.
	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(),
			"MATCH (n:Profile)\nWHERE NOT (n.name = $name_0)\nRETURN count(n) > 0 AS exists",
			map[string]any{"name_0": "alice"}).
		Return([]*neo4j.Record{scalarRecord("exists", false)}, nil)

	ok, err := graph.Nodes[Profile](g).All(context.Background(), query.Field("name").Eq("alice"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNodeQuerySelect(t *testing.T) {
	g, exec := newMockedGraph(t)

	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(),
			"MATCH (n:Profile)\nRETURN n.name AS profileName",
			map[string]any{}).
		Return([]*neo4j.Record{
			{Keys: []string{"profileName"}, Values: []any{"alice"}},
			{Keys: []string{"profileName"}, Values: []any{"bob"}},
		}, nil)

	rows, err := graph.Nodes[Profile](g).Select(context.Background(), query.Projection{
		{Alias: "profileName", Field: "name"},
	})
	require.NoError(t, err)

	assert.Equal(t, []map[string]any{
		{"profileName": "alice"},
		{"profileName": "bob"},
	}, rows)
}

func TestNodeQueryOrderingAndPagination(t *testing.T) {
	g, exec := newMockedGraph(t)

	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(),
			"MATCH (n:Team)\n"+
				"OPTIONAL MATCH (n)-[members_rel:__PROPERTY__members__]->(members_node)\n"+
				"WITH n, members_node AS members\n"+
				"ORDER BY n.name DESC\n"+
				"SKIP 4\n"+
				"LIMIT 2\n"+
				"RETURN n, members",
			map[string]any{}).
		Return(nil, nil)

	_, err := graph.Nodes[Team](g).
		OrderByDesc("name").
		Skip(4).
		Take(2).
		ToList(context.Background())
	require.NoError(t, err)
}

func TestNodeQueryMetadataError(t *testing.T) {
	type broken struct {
		core.NodeBase
		Friend Profile `graph:"friend"`
	}

	g, _ := newMockedGraph(t)

	_, err := graph.Nodes[broken](g).ToList(context.Background())
	require.Error(t, err)
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRelationshipQueryToList(t *testing.T) {
	g, exec := newMockedGraph(t)

	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(),
			"MATCH (s)-[r:PAYMENT]->(e)\n"+
				"WHERE r.amount > $amount_0 AND s.name = $name_1 AND e.name = $name_2\n"+
				"RETURN r",
			map[string]any{"amount_0": 100.0, "name_1": "alice", "name_2": "bob"}).
		Return([]*neo4j.Record{
			relationshipRecord("r", map[string]any{
				"id": "t1", "amount": 250.0, "startNodeId": "a1", "endNodeId": "a2",
			}),
		}, nil)

	results, err := graph.Relationships[Payment](g).
		Where(query.Field("amount").Gt(100.0)).
		WhereStartNode(query.Field("name").Eq("alice")).
		WhereEndNode(query.Field("name").Eq("bob")).
		ToList(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, 250.0, results[0].Amount)
	assert.Equal(t, "a1", results[0].StartNodeID())
}

func TestRelationshipQueryCount(t *testing.T) {
	g, exec := newMockedGraph(t)

	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(),
			"MATCH (s)-[r:PAYMENT]->(e)\nRETURN count(r) AS count",
			map[string]any{}).
		Return([]*neo4j.Record{scalarRecord("count", int64(7))}, nil)

	n, err := graph.Relationships[Payment](g).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestRelationshipQueryFirstNotFound(t *testing.T) {
	g, exec := newMockedGraph(t)

	exec.EXPECT().
		ExecuteReadQuery(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil)

	_, err := graph.Relationships[Payment](g).First(context.Background())
	assert.ErrorIs(t, err, core.ErrNotFound)
}
