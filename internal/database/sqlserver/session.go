package sqlserver

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/koustreak/odatasql/internal/database"
)

// Session implements database.Session over any sqlx queryer: a dedicated
// *sqlx.Conn in production, a sqlmock-backed *sqlx.DB in tests.
type Session struct {
	database string
	q        sqlx.QueryerContext
	release  func() error

	once     sync.Once
	closeErr error
}

// NewSession wraps q. release, if non-nil, runs once on Close.
func NewSession(dbName string, q sqlx.QueryerContext, release func() error) *Session {
	return &Session{database: dbName, q: q, release: release}
}

func (s *Session) Database() string { return s.database }

// Select scans every row into dest using sqlx's db struct tags.
func (s *Session) Select(ctx context.Context, dest any, query string, args ...any) error {
	if err := sqlx.SelectContext(ctx, s.q, dest, query, args...); err != nil {
		return mapError(err, "catalog query failed")
	}
	return nil
}

// Query executes a statement that returns arbitrary columns.
func (s *Session) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := s.q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &sqlxRows{rows: rows}, nil
}

// Close returns the connection to its pool.
func (s *Session) Close() error {
	s.once.Do(func() {
		if s.release != nil {
			s.closeErr = mapError(s.release(), "failed to release session")
		}
	})
	return s.closeErr
}

// sqlxRows wraps *sqlx.Rows to satisfy database.Rows.
type sqlxRows struct {
	rows  *sqlx.Rows
	types []string
}

func (r *sqlxRows) Next() bool                 { return r.rows.Next() }
func (r *sqlxRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *sqlxRows) Close()                     { _ = r.rows.Close() }
func (r *sqlxRows) Err() error                 { return mapError(r.rows.Err(), "error during row iteration") }

// Scan converts values written to *any destinations according to the
// column's native type.
func (r *sqlxRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return mapError(err, "failed to scan row")
	}

	if r.types == nil {
		cts, err := r.rows.ColumnTypes()
		if err != nil {
			return mapError(err, "failed to read column types")
		}
		r.types = make([]string, len(cts))
		for i, ct := range cts {
			r.types[i] = ct.DatabaseTypeName()
		}
	}

	for i, d := range dest {
		p, ok := d.(*any)
		if !ok || i >= len(r.types) {
			continue
		}
		*p = convertValue(r.types[i], *p)
	}
	return nil
}
