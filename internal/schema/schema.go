// Package schema discovers SQL Server tables and views through the catalog
// views and turns each into an OData entity schema.
package schema

import (
	"context"

	"github.com/koustreak/odatasql/internal/database"
)

// Catalog is the read side of the introspector, as used by the OData layer.
type Catalog interface {
	// ListDatabases returns user databases, system databases excluded.
	ListDatabases(ctx context.Context, sess database.Session) ([]string, error)

	// CheckDatabase fails with a not-found error unless dbName is one of
	// the names ListDatabases returns.
	CheckDatabase(ctx context.Context, sess database.Session, dbName string) error

	// ListObjects returns tables then views, each ordered by schema and name.
	ListObjects(ctx context.Context, sess database.Session, dbName string) ([]DatabaseObject, error)

	// FindObject resolves a bare object name against ListObjects.
	FindObject(ctx context.Context, sess database.Session, dbName, name string) (DatabaseObject, error)

	// DescribeObject builds the entity schema of a named object.
	DescribeObject(ctx context.Context, sess database.Session, dbName, name string) (*EntitySchema, error)

	// Describe builds the entity schema of an already resolved object.
	Describe(ctx context.Context, sess database.Session, obj DatabaseObject) (*EntitySchema, error)
}

var _ Catalog = (*Introspector)(nil)
