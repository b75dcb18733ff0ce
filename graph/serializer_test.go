package graph_test

import (
	"encoding/base64"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/neogm/neogm/core"
	"github.com/neogm/neogm/graph"
	"github.com/neogm/neogm/schema"
)

type Address struct {
	Street string `graph:"street"`
	City   string `graph:"city"`
	Zip    string `graph:"zip"`
}

type Settings struct {
	Theme    string `graph:"theme"`
	PageSize int    `graph:"pageSize"`
}

type Customer struct {
	core.NodeBase
	Name      string        `graph:"name"`
	Age       int           `graph:"age"`
	Score     float64       `graph:"score"`
	Active    bool          `graph:"active"`
	Tags      []string      `graph:"tags"`
	Avatar    []byte        `graph:"avatar"`
	Joined    time.Time     `graph:"joined"`
	Timeout   time.Duration `graph:"timeout"`
	DeviceID  uuid.UUID     `graph:"deviceId"`
	Nickname  *string       `graph:"nickname,optional"`
	Home      Address       `graph:"home"`
	Previous  []Address     `graph:"previous"`
	PrefsJSON Settings      `graph:"prefsJson,embedded"`
	PrefsBin  Settings      `graph:"prefsBin,embedded,codec=msgpack"`
}

type Payment struct {
	core.RelationshipBase
	Amount float64 `graph:"amount"`
}

func newSerializer() *graph.Serializer {
	return graph.NewSerializer(schema.NewRegistry())
}

func TestSerializeNode(t *testing.T) {
	nick := "ace"
	joined := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	device := uuid.New()

	c := &Customer{
		NodeBase:  core.NewNodeBase(),
		Name:      "alice",
		Age:       41,
		Score:     9.5,
		Active:    true,
		Tags:      []string{"vip", "beta"},
		Avatar:    []byte{0x01, 0x02},
		Joined:    joined,
		Timeout:   3 * time.Second,
		DeviceID:  device,
		Nickname:  &nick,
		Home:      Address{Street: "1 Main St", City: "Portland", Zip: "97201"},
		Previous:  []Address{{City: "Denver"}, {City: "Austin"}},
		PrefsJSON: Settings{Theme: "dark", PageSize: 50},
		PrefsBin:  Settings{Theme: "light", PageSize: 25},
	}

	se, err := newSerializer().Serialize(c)
	require.NoError(t, err)

	assert.Equal(t, c.Id, se.ID)
	assert.Equal(t, "Customer", se.Label)
	assert.Empty(t, se.StartNodeID)

	t.Run("id excluded from properties", func(t *testing.T) {
		_, ok := se.Properties["id"]
		assert.False(t, ok)
	})

	t.Run("scalars pass through", func(t *testing.T) {
		assert.Equal(t, "alice", se.Properties["name"])
		assert.Equal(t, int64(41), se.Properties["age"])
		assert.Equal(t, 9.5, se.Properties["score"])
		assert.Equal(t, true, se.Properties["active"])
		assert.Equal(t, joined, se.Properties["joined"])
		assert.Equal(t, []byte{0x01, 0x02}, se.Properties["avatar"])
	})

	t.Run("duration stores as nanoseconds", func(t *testing.T) {
		assert.Equal(t, int64(3*time.Second), se.Properties["timeout"])
	})

	t.Run("uuid stores as canonical string", func(t *testing.T) {
		assert.Equal(t, device.String(), se.Properties["deviceId"])
	})

	t.Run("pointer dereferenced", func(t *testing.T) {
		assert.Equal(t, "ace", se.Properties["nickname"])
	})

	t.Run("simple collection becomes any slice", func(t *testing.T) {
		assert.Equal(t, []any{"vip", "beta"}, se.Properties["tags"])
	})

	t.Run("embedded json is a json string", func(t *testing.T) {
		var got Settings
		require.NoError(t, json.Unmarshal([]byte(se.Properties["prefsJson"].(string)), &got))
		assert.Equal(t, c.PrefsJSON, got)
	})

	t.Run("embedded msgpack is base64", func(t *testing.T) {
		data, err := base64.StdEncoding.DecodeString(se.Properties["prefsBin"].(string))
		require.NoError(t, err)
		var got Settings
		require.NoError(t, msgpack.Unmarshal(data, &got))
		assert.Equal(t, c.PrefsBin, got)
	})

	t.Run("related fields collected in order", func(t *testing.T) {
		require.Len(t, se.Complex, 2)
		assert.Equal(t, "home", se.Complex[0].Field)
		assert.Equal(t, "__PROPERTY__home__", se.Complex[0].RelType)
		assert.False(t, se.Complex[0].IsCollection)
		require.Len(t, se.Complex[0].Values, 1)

		assert.Equal(t, "previous", se.Complex[1].Field)
		assert.True(t, se.Complex[1].IsCollection)
		assert.Len(t, se.Complex[1].Values, 2)
	})
}

func TestSerializeSkipsEmptyComplexValues(t *testing.T) {
	c := &Customer{NodeBase: core.NewNodeBase(), Name: "bare"}

	se, err := newSerializer().Serialize(c)
	require.NoError(t, err)

	// Zero scalar and empty collection related fields are dropped.
	assert.Empty(t, se.Complex)
	// Nil pointer native fields are dropped too.
	_, ok := se.Properties["nickname"]
	assert.False(t, ok)
}

func TestSerializeRelationship(t *testing.T) {
	p := &Payment{
		RelationshipBase: core.NewRelationshipBase("start-1", "end-2", core.Outgoing),
		Amount:           250.0,
	}

	se, err := newSerializer().Serialize(p)
	require.NoError(t, err)

	assert.Equal(t, "PAYMENT", se.Label)
	assert.Equal(t, "start-1", se.StartNodeID)
	assert.Equal(t, "end-2", se.EndNodeID)
	// Endpoints are stored as properties as well, so a relationship record
	// is readable on its own.
	assert.Equal(t, "start-1", se.Properties["startNodeId"])
	assert.Equal(t, "end-2", se.Properties["endNodeId"])
	assert.Equal(t, 250.0, se.Properties["amount"])
}

func TestSerializeNilEntity(t *testing.T) {
	_, err := newSerializer().Serialize((*Customer)(nil))
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSerializeValue(t *testing.T) {
	props, err := newSerializer().SerializeValue(reflect.ValueOf(Address{
		Street: "1 Main St",
		City:   "Portland",
		Zip:    "97201",
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"street": "1 Main St",
		"city":   "Portland",
		"zip":    "97201",
	}, props)

	_, err = newSerializer().SerializeValue(reflect.ValueOf("not a struct"))
	assert.Error(t, err)
}

func TestDeserializeRoundTrip(t *testing.T) {
	ser := newSerializer()

	nick := "ace"
	device := uuid.New()
	original := &Customer{
		NodeBase:  core.NewNodeBase(),
		Name:      "alice",
		Age:       41,
		Score:     9.5,
		Active:    true,
		Tags:      []string{"vip", "beta"},
		Joined:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Timeout:   3 * time.Second,
		DeviceID:  device,
		Nickname:  &nick,
		PrefsJSON: Settings{Theme: "dark", PageSize: 50},
		PrefsBin:  Settings{Theme: "light", PageSize: 25},
	}

	se, err := ser.Serialize(original)
	require.NoError(t, err)
	se.Properties["id"] = se.ID

	var restored Customer
	require.NoError(t, ser.Deserialize(se.Properties, nil, &restored))

	assert.Equal(t, original.Id, restored.Id)
	assert.Equal(t, original.Name, restored.Name)
	assert.Equal(t, original.Age, restored.Age)
	assert.Equal(t, original.Score, restored.Score)
	assert.Equal(t, original.Tags, restored.Tags)
	assert.Equal(t, original.Joined, restored.Joined)
	assert.Equal(t, original.Timeout, restored.Timeout)
	assert.Equal(t, original.DeviceID, restored.DeviceID)
	require.NotNil(t, restored.Nickname)
	assert.Equal(t, "ace", *restored.Nickname)
	assert.Equal(t, original.PrefsJSON, restored.PrefsJSON)
	assert.Equal(t, original.PrefsBin, restored.PrefsBin)
}

func TestDeserializeRelatedValues(t *testing.T) {
	ser := newSerializer()

	related := map[string][]map[string]any{
		"home": {{"street": "1 Main St", "city": "Portland"}},
		"previous": {
			{"city": "Austin", graph.SequenceNumberProperty: int64(1)},
			{"city": "Denver", graph.SequenceNumberProperty: int64(0)},
		},
	}

	var c Customer
	require.NoError(t, ser.Deserialize(map[string]any{"name": "alice"}, related, &c))

	assert.Equal(t, "Portland", c.Home.City)
	// Stored sequence numbers decide element order, not arrival order.
	require.Len(t, c.Previous, 2)
	assert.Equal(t, "Denver", c.Previous[0].City)
	assert.Equal(t, "Austin", c.Previous[1].City)
}

func TestDeserializeToleratesEmbeddedDrift(t *testing.T) {
	ser := newSerializer()

	var c Customer
	err := ser.Deserialize(map[string]any{
		"name":      "alice",
		"prefsJson": "{not valid json",
		"prefsBin":  "!!!not base64!!!",
	}, nil, &c)
	require.NoError(t, err)

	// Undecodable embedded values leave the fields at their zero value
	// instead of failing the read.
	assert.Equal(t, "alice", c.Name)
	assert.Equal(t, Settings{}, c.PrefsJSON)
	assert.Equal(t, Settings{}, c.PrefsBin)
}

func TestDeserializeNumericCrossover(t *testing.T) {
	ser := newSerializer()

	var c Customer
	require.NoError(t, ser.Deserialize(map[string]any{
		"age":   float64(30),
		"score": int64(7),
	}, nil, &c))

	assert.Equal(t, 30, c.Age)
	assert.Equal(t, 7.0, c.Score)
}

func TestDeserializeBadTarget(t *testing.T) {
	ser := newSerializer()
	assert.Error(t, ser.Deserialize(map[string]any{}, nil, Customer{}))
	assert.Error(t, ser.Deserialize(map[string]any{}, nil, (*Customer)(nil)))
}
