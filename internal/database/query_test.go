package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/odatasql/internal/errs"
)

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "[Orders]", QuoteIdent("Orders"))
	assert.Equal(t, "[Order Lines]", QuoteIdent("Order Lines"))
	assert.Equal(t, "[x]]; DROP TABLE y; --]", QuoteIdent("x]; DROP TABLE y; --"))
}

func TestSelectAll(t *testing.T) {
	sql, args, err := SelectAll("dbo", "Orders").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM [dbo].[Orders]", sql)
	assert.Empty(t, args)
}

func TestBuilder_UsesAtPlaceholders(t *testing.T) {
	sql, args, err := Builder.Select("name").
		From("sys.databases").
		Where("database_id > ?", 4).
		Where("name = ?", "Sales").
		ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM sys.databases WHERE database_id > @p1 AND name = @p2", sql)
	assert.Equal(t, []any{4, "Sales"}, args)
}

// fakeRows serves a fixed result through the Rows contract.
type fakeRows struct {
	columns []string
	data    [][]any
	pos     int
	scanErr error
	iterErr error
	closed  bool
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	for i, d := range dest {
		*(d.(*any)) = r.data[r.pos-1][i]
	}
	return nil
}

func (r *fakeRows) Columns() ([]string, error) { return r.columns, nil }
func (r *fakeRows) Close()                     { r.closed = true }
func (r *fakeRows) Err() error                 { return r.iterErr }

func TestScanRecords_PreservesOrder(t *testing.T) {
	rows := &fakeRows{
		columns: []string{"id", "name"},
		data:    [][]any{{int64(3), "c"}, {int64(1), "a"}, {int64(2), "b"}},
	}

	rs, err := ScanRecords(rows)
	require.NoError(t, err)
	assert.True(t, rows.closed)
	assert.Equal(t, []string{"id", "name"}, rs.Columns)
	require.Len(t, rs.Records, 3)
	assert.Equal(t, Record{int64(3), "c"}, rs.Records[0])
	assert.Equal(t, Record{int64(2), "b"}, rs.Records[2])
}

func TestScanRecords_EmptyIsNonNil(t *testing.T) {
	rs, err := ScanRecords(&fakeRows{columns: []string{"id"}})
	require.NoError(t, err)
	assert.NotNil(t, rs.Records)
	assert.Empty(t, rs.Records)
}

func TestScanRecords_Errors(t *testing.T) {
	_, err := ScanRecords(&fakeRows{
		columns: []string{"id"},
		data:    [][]any{{1}},
		scanErr: errors.New("bad value"),
	})
	assert.True(t, errs.IsQueryFailed(err))

	timeout := errs.Wrap(errs.ErrKindTimeout, "query cancelled", context.DeadlineExceeded)
	_, err = ScanRecords(&fakeRows{columns: []string{"id"}, iterErr: timeout})
	assert.True(t, errs.IsTimeout(err))
}
