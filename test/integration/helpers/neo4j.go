// Package helpers provides the shared Neo4j container setup for the
// integration suite.
package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/neogm/neogm/graph"
)

// ErrDockerUnavailable is returned by StartNeo4j when no Docker daemon
// can be reached; callers skip the suite instead of failing it.
var ErrDockerUnavailable = errors.New("docker unavailable")

// Database wraps a disposable Neo4j container and a connected client.
type Database struct {
	Client    *graph.Client
	container testcontainers.Container
}

// StartNeo4j launches a Neo4j container with authentication disabled and
// returns a connected client. Neo4j can take a while to come up, so the
// wait deadline is generous.
func StartNeo4j(ctx context.Context) (*Database, error) {
	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return nil, ErrDockerUnavailable
	}
	if err := provider.Health(ctx); err != nil {
		return nil, ErrDockerUnavailable
	}

	req := testcontainers.ContainerRequest{
		Image:        "neo4j:5",
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "none",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("7687/tcp"),
			wait.ForLog("Started."),
		).WithDeadline(120 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start neo4j container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "7687")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("container port: %w", err)
	}

	cfg := graph.DefaultConfig()
	cfg.URI = fmt.Sprintf("bolt://%s:%s", host, port.Port())
	// Auth is disabled in the container; validation still wants
	// credentials.
	cfg.Username = "neo4j"
	cfg.Password = "ignored"
	cfg.MaxConnectionPoolSize = 10

	client, err := graph.NewClient(cfg)
	if err != nil {
		container.Terminate(ctx)
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		container.Terminate(ctx)
		return nil, err
	}

	return &Database{Client: client, container: container}, nil
}

// Reset wipes every node and relationship so tests start from an empty
// graph.
func (d *Database) Reset(ctx context.Context) error {
	_, err := d.Client.ExecuteWriteQuery(ctx, "MATCH (n) DETACH DELETE n", nil)
	return err
}

// Terminate closes the client and tears the container down.
func (d *Database) Terminate(ctx context.Context) error {
	if err := d.Client.Close(ctx); err != nil {
		d.container.Terminate(ctx)
		return err
	}
	return d.container.Terminate(ctx)
}
