package graph

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/neogm/neogm/core"
)

const connectMaxRetries = 5

// Client is the driver-backed Executor. Sessions are opened per call and
// closed before the call returns; the driver's pool makes that cheap.
type Client struct {
	config Config
	driver neo4j.DriverWithContext
	log    *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the structured logger used for query diagnostics.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.log = logger }
}

// NewClient creates a client from the given configuration. The client
// must be connected via Connect before use.
func NewClient(config Config, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := &Client{config: config, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect establishes and verifies the database connection, retrying
// with exponential backoff.
func (c *Client) Connect(ctx context.Context) error {
	auth := neo4j.BasicAuth(c.config.Username, c.config.Password, "")
	configure := func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = c.config.MaxConnectionPoolSize
		cfg.ConnectionAcquisitionTimeout = c.config.ConnectionTimeout
		cfg.MaxTransactionRetryTime = c.config.MaxTransactionRetryTime
	}

	var lastErr error
	baseDelay := 100 * time.Millisecond

	for attempt := 0; attempt < connectMaxRetries; attempt++ {
		driver, err := neo4j.NewDriverWithContext(c.config.URI, auth, configure)
		if err == nil {
			err = driver.VerifyConnectivity(ctx)
			if err == nil {
				c.driver = driver
				return nil
			}
		}
		lastErr = err

		if ctx.Err() != nil {
			return &core.ConnectionError{Cause: ctx.Err()}
		}

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.config.ConnectionTimeout {
			delay = c.config.ConnectionTimeout
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &core.ConnectionError{Cause: ctx.Err()}
		}
	}

	return &core.ConnectionError{
		Cause: fmt.Errorf("failed to connect after %d attempts: %w", connectMaxRetries, lastErr),
	}
}

// Close releases the driver and its connection pool.
func (c *Client) Close(ctx context.Context) error {
	if c.driver == nil {
		return nil
	}
	if err := c.driver.Close(ctx); err != nil {
		return fmt.Errorf("close driver: %w", err)
	}
	c.driver = nil
	return nil
}

// ExecuteReadQuery runs a Cypher query in a managed read transaction and
// collects all records.
func (c *Client) ExecuteReadQuery(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	return c.execute(ctx, neo4j.AccessModeRead, query, params)
}

// ExecuteWriteQuery runs a Cypher statement in a managed write
// transaction and collects all records.
func (c *Client) ExecuteWriteQuery(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	return c.execute(ctx, neo4j.AccessModeWrite, query, params)
}

func (c *Client) execute(ctx context.Context, mode neo4j.AccessMode, query string, params map[string]any) ([]*neo4j.Record, error) {
	if c.driver == nil {
		return nil, &core.ConnectionError{Cause: fmt.Errorf("client not connected")}
	}

	c.log.Debug("executing query", "query", query, "params", params)

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.config.Database,
	})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	}

	var out any
	var err error
	if mode == neo4j.AccessModeRead {
		out, err = session.ExecuteRead(ctx, work)
	} else {
		out, err = session.ExecuteWrite(ctx, work)
	}
	if err != nil {
		c.log.Error("query failed", "query", query, "error", err)
		return nil, &core.QueryError{Query: query, Params: params, Cause: err}
	}
	return out.([]*neo4j.Record), nil
}

// BeginTransaction opens an explicit transaction on a dedicated session.
// The caller owns the returned transaction and must Commit or Rollback
// it; Close rolls back if neither happened.
func (c *Client) BeginTransaction(ctx context.Context) (*Transaction, error) {
	if c.driver == nil {
		return nil, &core.ConnectionError{Cause: fmt.Errorf("client not connected")}
	}
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.config.Database,
	})
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(ctx)
		return nil, &core.TransactionError{Op: "begin", Cause: err}
	}
	return &Transaction{session: session, tx: tx, log: c.log}, nil
}
