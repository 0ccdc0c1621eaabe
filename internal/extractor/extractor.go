// Package extractor connects to a monitored target database and reads its
// catalog of user-authored programmable objects and their textual
// definitions.
package extractor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/sentineldb/sentinel/internal/contracts"
	"github.com/sentineldb/sentinel/internal/types"
)

// Extractor reads the programmable-object catalog of one target database.
type Extractor interface {
	// TestConnection verifies connectivity, returning a short diagnostic
	// message (typically server and database name) on success.
	TestConnection(ctx context.Context, conn contracts.ConnectionDescriptor) (string, error)
	// ExtractAll returns every non-system programmable object of kinds
	// {P, V, FN, TF, IF}.
	ExtractAll(ctx context.Context, conn contracts.ConnectionDescriptor) ([]types.ProgrammableObject, error)
	// ExtractSingle returns one object, or nil if it does not exist.
	ExtractSingle(ctx context.Context, conn contracts.ConnectionDescriptor, schema, name string) (*types.ProgrammableObject, error)
}

// CatalogQuerier isolates the vendor-specific catalog SQL from the
// connection-pooling and pacing concerns below, so a Postgres, SQL Server
// or MySQL catalog query can be substituted without touching SQLExtractor.
type CatalogQuerier interface {
	// Dialect identifies the SQL dialect, surfaced in diagnostic messages.
	Dialect() string
	// ServerInfo returns a short "server/database" diagnostic string.
	ServerInfo(ctx context.Context, db *sql.DB) (string, error)
	// AllObjects returns every catalog row for objects of the recognized kinds.
	AllObjects(ctx context.Context, db *sql.DB) ([]types.ProgrammableObject, error)
	// SingleObject returns one catalog row, or nil if absent.
	SingleObject(ctx context.Context, db *sql.DB, schema, name string) (*types.ProgrammableObject, error)
}

// SQLExtractor is a database/sql-based Extractor. A fresh *sql.DB is opened
// per call and closed before returning, since target credentials rotate
// per tenant/environment and connections are not meant to be long-lived
// across scans.
type SQLExtractor struct {
	driverName string
	querier    CatalogQuerier
	limiter    *rate.Limiter
}

// New builds a SQLExtractor for the given database/sql driver, paced by a
// rate limiter bounding new-connection attempts per second (protects a
// target from a thundering herd of tenant scans).
func New(driverName string, querier CatalogQuerier, connectionsPerSecond float64) *SQLExtractor {
	if connectionsPerSecond <= 0 {
		connectionsPerSecond = 10
	}
	return &SQLExtractor{
		driverName: driverName,
		querier:    querier,
		limiter:    rate.NewLimiter(rate.Limit(connectionsPerSecond), 1),
	}
}

func (e *SQLExtractor) open(ctx context.Context, conn contracts.ConnectionDescriptor) (*sql.DB, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", types.ErrCancelled, err)
	}

	db, err := sql.Open(e.driverName, conn.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: open %s connection: %v", types.ErrConnect, e.querier.Dialect(), err)
	}
	db.SetConnMaxLifetime(90 * time.Second)
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: connect to %s: %v", types.ErrTimeout, conn.Host, ctx.Err())
		}
		return nil, fmt.Errorf("%w: connect to %s: %v", types.ErrConnect, conn.Host, err)
	}
	return db, nil
}

// TestConnection opens, pings and closes a connection, returning a
// diagnostic string on success. It does not retry.
func (e *SQLExtractor) TestConnection(ctx context.Context, conn contracts.ConnectionDescriptor) (string, error) {
	db, err := e.open(ctx, conn)
	if err != nil {
		return "", err
	}
	defer db.Close()

	info, err := e.querier.ServerInfo(ctx, db)
	if err != nil {
		return "", fmt.Errorf("%w: server info: %v", types.ErrConnect, err)
	}
	return info, nil
}

// ExtractAll connects, reads the full catalog and closes the connection.
// It does not retry on transport error; the caller (the orchestrator)
// decides whether and how to proceed.
func (e *SQLExtractor) ExtractAll(ctx context.Context, conn contracts.ConnectionDescriptor) ([]types.ProgrammableObject, error) {
	db, err := e.open(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	objects, err := e.querier.AllObjects(ctx, db)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: extract catalog: %v", types.ErrTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("%w: extract catalog: %v", types.ErrExtraction, err)
	}
	return objects, nil
}

// ExtractSingle connects, reads one object's definition and closes the
// connection.
func (e *SQLExtractor) ExtractSingle(ctx context.Context, conn contracts.ConnectionDescriptor, schema, name string) (*types.ProgrammableObject, error) {
	db, err := e.open(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	obj, err := e.querier.SingleObject(ctx, db, schema, name)
	if err != nil {
		return nil, fmt.Errorf("%w: extract %s.%s: %v", types.ErrExtraction, schema, name, err)
	}
	return obj, nil
}
