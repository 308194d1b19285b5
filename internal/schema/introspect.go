package schema

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/koustreak/odatasql/internal/database"
	"github.com/koustreak/odatasql/internal/errs"
	"github.com/koustreak/odatasql/internal/logger"
)

// database_id 1-4 are master, tempdb, model and msdb.
const lastSystemDatabaseID = 4

// Introspector implements Catalog for SQL Server using sys.databases and
// INFORMATION_SCHEMA.
type Introspector struct {
	keys *KeyInferrer
}

// NewIntrospector creates a catalog reader. A nil inferrer uses the default
// key steps.
func NewIntrospector(keys *KeyInferrer) *Introspector {
	if keys == nil {
		keys = NewKeyInferrer()
	}
	return &Introspector{keys: keys}
}

// ListDatabases returns all user database names, ordered by name.
func (c *Introspector) ListDatabases(ctx context.Context, sess database.Session) ([]string, error) {
	q := database.Builder.
		Select("name").
		From("sys.databases").
		Where("database_id > ?", lastSystemDatabaseID).
		OrderBy("name")

	var rows []struct {
		Name string `db:"name"`
	}
	if err := database.SelectInto(ctx, sess, &rows, q); err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
	}
	return names, nil
}

// CheckDatabase validates dbName against the enumerated list. Names match
// exactly.
func (c *Introspector) CheckDatabase(ctx context.Context, sess database.Session, dbName string) error {
	names, err := c.ListDatabases(ctx, sess)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == dbName {
			return nil
		}
	}
	return errs.New(errs.ErrKindNotFound, "Database not found or not accessible")
}

// ListObjects returns all base tables and views of dbName. Tables come
// first; within a kind, objects are ordered by schema then name.
func (c *Introspector) ListObjects(ctx context.Context, sess database.Session, dbName string) ([]DatabaseObject, error) {
	if err := checkBound(sess, dbName); err != nil {
		return nil, err
	}

	q := database.Builder.
		Select("TABLE_SCHEMA AS table_schema", "TABLE_NAME AS table_name", "TABLE_TYPE AS table_type").
		From("INFORMATION_SCHEMA.TABLES").
		Where(sq.Eq{"TABLE_TYPE": []string{"BASE TABLE", "VIEW"}}).
		OrderBy("TABLE_TYPE", "TABLE_SCHEMA", "TABLE_NAME")

	var rows []struct {
		Schema string `db:"table_schema"`
		Name   string `db:"table_name"`
		Type   string `db:"table_type"`
	}
	if err := database.SelectInto(ctx, sess, &rows, q); err != nil {
		return nil, fmt.Errorf("list objects in %s: %w", dbName, err)
	}

	objects := make([]DatabaseObject, 0, len(rows))
	for _, r := range rows {
		objects = append(objects, DatabaseObject{
			Schema: r.Schema,
			Name:   r.Name,
			Kind:   kindFromTableType(r.Type),
		})
	}
	return objects, nil
}

// FindObject returns the first object in ListObjects order whose bare name
// equals name. Matching is case-sensitive.
func (c *Introspector) FindObject(ctx context.Context, sess database.Session, dbName, name string) (DatabaseObject, error) {
	objects, err := c.ListObjects(ctx, sess, dbName)
	if err != nil {
		return DatabaseObject{}, err
	}
	for _, o := range objects {
		if o.Name == name {
			return o, nil
		}
	}
	return DatabaseObject{}, errs.New(errs.ErrKindNotFound, "Object not found or not accessible")
}

// DescribeObject resolves name and builds its entity schema.
func (c *Introspector) DescribeObject(ctx context.Context, sess database.Session, dbName, name string) (*EntitySchema, error) {
	obj, err := c.FindObject(ctx, sess, dbName, name)
	if err != nil {
		return nil, err
	}
	return c.Describe(ctx, sess, obj)
}

// Describe builds the entity schema of obj: one property per column in
// ordinal order, key-flagged by the inferrer. When no inferred key name
// matches a column the first property becomes the key.
func (c *Introspector) Describe(ctx context.Context, sess database.Session, obj DatabaseObject) (*EntitySchema, error) {
	columns, err := c.Columns(ctx, sess, obj)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errs.New(errs.ErrKindQueryFailed, fmt.Sprintf("object %s has no visible columns", obj.Name))
	}

	keys := c.keys.InferKeys(ctx, sess, obj, columns)
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	es := &EntitySchema{
		ObjectName: obj.Name,
		Properties: make([]Property, 0, len(columns)),
	}
	flagged := false
	for _, col := range columns {
		p := Property{
			Name:     col.Name,
			EdmType:  MapType(col.NativeType),
			Nullable: col.Nullable,
			IsKey:    isKey[col.Name],
		}
		flagged = flagged || p.IsKey
		es.Properties = append(es.Properties, p)
	}

	if !flagged {
		logger.FromContext(ctx).With().
			Str("object", obj.Name).
			Any("inferred", keys).
			Logger().
			Debug("no inferred key matched a column, using first column")
		es.Properties[0].IsKey = true
	}
	return es, nil
}

// Columns returns the physical columns of obj in ordinal order.
func (c *Introspector) Columns(ctx context.Context, sess database.Session, obj DatabaseObject) ([]ColumnDescriptor, error) {
	q := database.Builder.
		Select(
			"COLUMN_NAME AS column_name",
			"DATA_TYPE AS data_type",
			"CAST(CASE WHEN IS_NULLABLE = 'YES' THEN 1 ELSE 0 END AS bit) AS is_nullable",
		).
		From("INFORMATION_SCHEMA.COLUMNS").
		Where(sq.Eq{"TABLE_SCHEMA": obj.Schema}).
		Where(sq.Eq{"TABLE_NAME": obj.Name}).
		OrderBy("ORDINAL_POSITION")

	var columns []ColumnDescriptor
	if err := database.SelectInto(ctx, sess, &columns, q); err != nil {
		return nil, fmt.Errorf("columns of %s.%s: %w", obj.Schema, obj.Name, err)
	}
	return columns, nil
}

// checkBound rejects catalog calls for a database other than the one the
// session is connected to.
func checkBound(sess database.Session, dbName string) error {
	if sess.Database() != dbName {
		return errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("session is bound to database %q, not %q", sess.Database(), dbName))
	}
	return nil
}
