// Package sqlserver implements database.Provider on top of go-mssqldb.
//
// Each database gets its own lazily created pool; every Open takes one
// dedicated connection from it, so a session never shares connection state
// with another request.
package sqlserver

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb" // register "sqlserver" driver

	"github.com/koustreak/odatasql/internal/database"
	"github.com/koustreak/odatasql/internal/errs"
)

// Provider is safe for concurrent use by multiple goroutines.
type Provider struct {
	cfg *database.Config

	mu    sync.Mutex
	pools map[string]*sqlx.DB
}

// New returns a Provider for cfg. No connection is made until Open or Ping.
func New(cfg *database.Config) *Provider {
	return &Provider{
		cfg:   cfg,
		pools: make(map[string]*sqlx.DB),
	}
}

// Open takes a connection bound to dbName. The caller must Close the session.
func (p *Provider) Open(ctx context.Context, dbName string) (database.Session, error) {
	pool, err := p.pool(dbName)
	if err != nil {
		return nil, err
	}

	conn, err := pool.Connx(ctx)
	if err != nil {
		p.evict(dbName, pool)
		return nil, mapError(err, fmt.Sprintf("failed to open catalog session for database %q", dbName))
	}

	return NewSession(dbName, conn, conn.Close), nil
}

// Ping verifies the server is reachable using the login's default database.
func (p *Provider) Ping(ctx context.Context) error {
	pool, err := p.pool("")
	if err != nil {
		return err
	}
	if err := pool.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains every pool. Call when the application shuts down.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for name, pool := range p.pools {
		if err := pool.Close(); err != nil && firstErr == nil {
			firstErr = mapError(err, "failed to close pool")
		}
		delete(p.pools, name)
	}
	return firstErr
}

func (p *Provider) pool(dbName string) (*sqlx.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pool, ok := p.pools[dbName]; ok {
		return pool, nil
	}

	pool, err := buildPool(p.cfg, dbName)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid connection settings", err)
	}
	p.pools[dbName] = pool
	return pool, nil
}

// evict drops a database pool that has never held a connection, whatever
// the reason its first connection failed. The server-level pool stays.
func (p *Provider) evict(dbName string, pool *sqlx.DB) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dbName == "" || p.pools[dbName] != pool || pool.Stats().OpenConnections > 0 {
		return
	}
	delete(p.pools, dbName)
	_ = pool.Close()
}
