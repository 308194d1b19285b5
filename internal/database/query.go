package database

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Builder emits SQL Server style @p1, @p2, … placeholders. Values are never
// interpolated into the SQL string.
var Builder = sq.StatementBuilder.PlaceholderFormat(sq.AtP)

// QuoteIdent wraps a SQL Server identifier in brackets, doubling any
// closing bracket inside it.
func QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QualifiedName returns the bracket-quoted two-part name schema.object.
func QualifiedName(schema, object string) string {
	return QuoteIdent(schema) + "." + QuoteIdent(object)
}

// SelectAll builds SELECT * over an object. Callers pass schema and name
// values taken from the enumerated catalog, never raw request input.
func SelectAll(schema, object string) sq.SelectBuilder {
	return Builder.Select("*").From(QualifiedName(schema, object))
}

// SelectInto renders b and scans all rows into dest through the session.
func SelectInto(ctx context.Context, s Session, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	return s.Select(ctx, dest, query, args...)
}

// Fetch renders b and returns every row of the result.
func Fetch(ctx context.Context, s Session, b sq.Sqlizer) (*ResultSet, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return ScanRecords(rows)
}
