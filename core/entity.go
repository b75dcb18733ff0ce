// Package core defines the entity model shared by the schema, query and
// graph packages: node and relationship base types, identifiers, and the
// error taxonomy for graph operations.
package core

import (
	"strings"

	"github.com/google/uuid"
)

// Entity is the foundation for everything stored in the graph. An entity
// has a unique identifier that is assigned at construction time and never
// reassigned afterwards.
type Entity interface {
	ID() string
}

// Node marks an entity that is stored as a graph node.
type Node interface {
	Entity
	isNode()
}

// Relationship marks an entity that connects two nodes. Relationships are
// immutable once constructed.
type Relationship interface {
	Entity
	StartNodeID() string
	EndNodeID() string
	Direction() Direction
}

// Direction defines how a relationship can be traversed.
type Direction string

const (
	// Outgoing follows the relationship from start to end (->).
	Outgoing Direction = "outgoing"
	// Incoming follows the relationship from end to start (<-).
	Incoming Direction = "incoming"
	// Bidirectional allows traversal in either direction.
	Bidirectional Direction = "bidirectional"
)

// NewID generates a new unique entity identifier: a UUIDv4 rendered as
// lowercase hex without hyphens. The hyphenless format is part of the
// interoperability contract with existing mappers and must not change.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NodeBase provides the default Node implementation. Embed it in a domain
// struct to get identity handling for free:
//
//	type Person struct {
//	    core.NodeBase
//	    Name string `graph:"name,index"`
//	    Age  int    `graph:"age"`
//	}
type NodeBase struct {
	Id string `graph:"id"`
}

// NewNodeBase returns a NodeBase with a freshly assigned identifier.
func NewNodeBase() NodeBase {
	return NodeBase{Id: NewID()}
}

// ID returns the node's unique identifier.
func (n NodeBase) ID() string { return n.Id }

func (n NodeBase) isNode() {}

// EnsureID assigns an identifier if the node was constructed as a zero
// value. Called by the graph layer before persisting.
func (n *NodeBase) EnsureID() {
	if n.Id == "" {
		n.Id = NewID()
	}
}

// RelationshipBase provides the default Relationship implementation.
// All fields are fixed at construction; update operations only touch the
// declared property fields of the embedding struct, never the endpoints.
type RelationshipBase struct {
	Id      string    `graph:"id"`
	StartID string    `graph:"startNodeId"`
	EndID   string    `graph:"endNodeId"`
	Dir     Direction `graph:"-"`
}

// NewRelationshipBase returns a RelationshipBase connecting startID to
// endID with the given direction and a freshly assigned identifier.
func NewRelationshipBase(startID, endID string, direction Direction) RelationshipBase {
	if direction == "" {
		direction = Outgoing
	}
	return RelationshipBase{
		Id:      NewID(),
		StartID: startID,
		EndID:   endID,
		Dir:     direction,
	}
}

// ID returns the relationship's unique identifier.
func (r RelationshipBase) ID() string { return r.Id }

// StartNodeID returns the ID of the node the relationship originates from.
func (r RelationshipBase) StartNodeID() string { return r.StartID }

// EndNodeID returns the ID of the node the relationship points to.
func (r RelationshipBase) EndNodeID() string { return r.EndID }

// Direction returns the traversal direction of the relationship.
func (r RelationshipBase) Direction() Direction {
	if r.Dir == "" {
		return Outgoing
	}
	return r.Dir
}
