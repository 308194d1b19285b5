package schema

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/koustreak/odatasql/internal/database"
	"github.com/koustreak/odatasql/internal/logger"
)

// KeyStep is one catalog lookup in the key inference chain. A step returns
// the key column names it found, or an error that the chain swallows.
type KeyStep struct {
	Name  string
	Query func(ctx context.Context, sess database.Session, obj DatabaseObject) ([]string, error)
}

// DefaultKeySteps returns the catalog lookups in priority order: declared
// primary key, identity columns, leading columns of unique indexes.
func DefaultKeySteps() []KeyStep {
	return []KeyStep{
		{Name: "primary_key", Query: primaryKeyColumns},
		{Name: "identity", Query: identityColumns},
		{Name: "unique_index", Query: uniqueIndexColumns},
	}
}

// KeyInferrer picks key columns for objects that may lack a declared key.
type KeyInferrer struct {
	steps []KeyStep
}

// NewKeyInferrer returns an inferrer running steps in order. With no steps
// it uses DefaultKeySteps.
func NewKeyInferrer(steps ...KeyStep) *KeyInferrer {
	if len(steps) == 0 {
		steps = DefaultKeySteps()
	}
	return &KeyInferrer{steps: steps}
}

// InferKeys returns the key columns of obj. The first catalog step with a
// non-empty answer wins outright; after those come all non-nullable columns,
// then the first column. The result is non-empty whenever columns is.
func (k *KeyInferrer) InferKeys(ctx context.Context, sess database.Session, obj DatabaseObject, columns []ColumnDescriptor) []string {
	log := logger.FromContext(ctx)

	for _, step := range k.steps {
		keys, err := step.Query(ctx, sess, obj)
		if err != nil {
			log.With().
				Str("object", obj.Name).
				Str("step", step.Name).
				Err(err).
				Logger().
				Debug("key inference step failed")
			continue
		}
		if keys = dedupe(keys); len(keys) > 0 {
			return keys
		}
	}

	var keys []string
	for _, c := range columns {
		if !c.Nullable {
			keys = append(keys, c.Name)
		}
	}
	if len(keys) > 0 {
		return keys
	}

	if len(columns) > 0 {
		return []string{columns[0].Name}
	}
	return nil
}

func primaryKeyColumns(ctx context.Context, sess database.Session, obj DatabaseObject) ([]string, error) {
	q := database.Builder.
		Select("kcu.COLUMN_NAME AS column_name").
		From("INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu").
		Join("INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc" +
			" ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME" +
			" AND kcu.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA").
		Where("tc.CONSTRAINT_TYPE = 'PRIMARY KEY'").
		Where(sq.Eq{"kcu.TABLE_SCHEMA": obj.Schema}).
		Where(sq.Eq{"kcu.TABLE_NAME": obj.Name}).
		OrderBy("kcu.ORDINAL_POSITION")

	return selectColumnNames(ctx, sess, q)
}

func identityColumns(ctx context.Context, sess database.Session, obj DatabaseObject) ([]string, error) {
	q := database.Builder.
		Select("COLUMN_NAME AS column_name").
		From("INFORMATION_SCHEMA.COLUMNS").
		Where(sq.Eq{"TABLE_SCHEMA": obj.Schema}).
		Where(sq.Eq{"TABLE_NAME": obj.Name}).
		Where("COLUMNPROPERTY(OBJECT_ID(QUOTENAME(TABLE_SCHEMA) + '.' + QUOTENAME(TABLE_NAME)), COLUMN_NAME, 'IsIdentity') = 1").
		OrderBy("ORDINAL_POSITION")

	return selectColumnNames(ctx, sess, q)
}

func uniqueIndexColumns(ctx context.Context, sess database.Session, obj DatabaseObject) ([]string, error) {
	q := database.Builder.
		Select("COL_NAME(ic.object_id, ic.column_id) AS column_name").
		From("sys.indexes i").
		Join("sys.index_columns ic ON i.object_id = ic.object_id AND i.index_id = ic.index_id").
		Where("i.is_unique = 1").
		Where("ic.key_ordinal = 1").
		Where("i.object_id = OBJECT_ID(?)", database.QualifiedName(obj.Schema, obj.Name)).
		OrderBy("i.index_id")

	return selectColumnNames(ctx, sess, q)
}

func selectColumnNames(ctx context.Context, sess database.Session, q sq.Sqlizer) ([]string, error) {
	var rows []struct {
		Name string `db:"column_name"`
	}
	if err := database.SelectInto(ctx, sess, &rows, q); err != nil {
		return nil, err
	}

	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	return names, nil
}

// dedupe drops repeated names, keeping first occurrences in order. A column
// leading two unique indexes is reported twice by the catalog.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
