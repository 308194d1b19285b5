package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/odatasql/internal/database"
	"github.com/koustreak/odatasql/internal/errs"
)

func newMockSession(t *testing.T) (*Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSession("Sales", sqlx.NewDb(db, driverName), nil), mock
}

func TestBuildDSN(t *testing.T) {
	cfg := database.DefaultConfig()
	cfg.Username = "reader"
	cfg.Password = "p@ss;word"

	u, err := url.Parse(buildDSN(cfg, "Sales"))
	require.NoError(t, err)

	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "localhost:1433", u.Host)
	assert.Equal(t, "reader", u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss;word", pw)

	q := u.Query()
	assert.Equal(t, "Sales", q.Get("database"))
	assert.Equal(t, "ODataSQL", q.Get("app name"))
	assert.Equal(t, "disable", q.Get("encrypt"))
	assert.Equal(t, "true", q.Get("TrustServerCertificate"))
	assert.Equal(t, "15", q.Get("dial timeout"))
}

func TestBuildDSN_NamedInstanceAndDefaultDatabase(t *testing.T) {
	cfg := database.DefaultConfig()
	cfg.Server = `db01\REPORTING`

	u, err := url.Parse(buildDSN(cfg, ""))
	require.NoError(t, err)

	assert.Equal(t, "db01", u.Host)
	assert.Equal(t, "/REPORTING", u.Path)
	assert.False(t, u.Query().Has("database"))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"no rows", sql.ErrNoRows, errs.ErrKindNotFound},
		{"cannot open database", mssql.Error{Number: 4060, Message: "Cannot open database"}, errs.ErrKindNotFound},
		{"login failed", mssql.Error{Number: 18456, Message: "Login failed"}, errs.ErrKindConnectionFailed},
		{"select denied", mssql.Error{Number: 229, Message: "SELECT permission denied"}, errs.ErrKindPermissionDenied},
		{"invalid object", mssql.Error{Number: 208, Message: "Invalid object name"}, errs.ErrKindQueryFailed},
		{"wrapped driver error", fmt.Errorf("login error: %w", mssql.Error{Number: 18456}), errs.ErrKindConnectionFailed},
		{
			"login reports cannot open database first",
			mssql.Error{Number: 18456, Message: "Login failed", All: []mssql.Error{{Number: 4060}, {Number: 18456}}},
			errs.ErrKindNotFound,
		},
		{"network", errors.New("dial tcp: connection refused"), errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errs.KindOf(mapError(tt.err, "op")))
		})
	}

	assert.NoError(t, mapError(nil, "op"))

	classified := errs.New(errs.ErrKindInvalidInput, "bad")
	assert.Same(t, classified, mapError(classified, "op"))
}

func TestConvertValue(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	zoned := time.Date(2024, 1, 1, 10, 0, 0, 0, time.FixedZone("", 2*3600))

	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 1}, convertValue("DATE", ts))
	assert.Equal(t, civil.Time{Hour: 10}, convertValue("TIME", ts))
	assert.Equal(t, civil.DateTimeOf(ts), convertValue("DATETIME2", ts))
	assert.Equal(t, civil.DateTimeOf(ts), convertValue("datetime", ts))
	assert.Equal(t, zoned, convertValue("DATETIMEOFFSET", zoned))

	d, ok := convertValue("DECIMAL", []byte("12.50")).(decimal.Decimal)
	require.True(t, ok)
	assert.Equal(t, "12.5", d.String())

	raw := []byte{0x67, 0x45, 0x23, 0x01, 0xAB, 0x89, 0xEF, 0xCD, 0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}
	assert.Equal(t, uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef"), convertValue("UNIQUEIDENTIFIER", raw))

	assert.Equal(t, int64(7), convertValue("INT", int64(7)))
	assert.Equal(t, "x", convertValue("", "x"))
	assert.Nil(t, convertValue("DATE", nil))
}

func TestSession_Select(t *testing.T) {
	s, mock := newMockSession(t)

	mock.ExpectQuery(`SELECT name FROM sys\.databases`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Sales").AddRow("HR"))

	var dest []struct {
		Name string `db:"name"`
	}
	require.NoError(t, s.Select(context.Background(), &dest, "SELECT name FROM sys.databases"))
	require.Len(t, dest, 2)
	assert.Equal(t, "HR", dest[1].Name)
	assert.Equal(t, "Sales", s.Database())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_QueryConvertsByColumnType(t *testing.T) {
	s, mock := newMockSession(t)

	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("INT", int64(0)),
		sqlmock.NewColumn("created").OfType("DATETIME2", time.Time{}),
		sqlmock.NewColumn("due").OfType("DATE", time.Time{}),
		sqlmock.NewColumn("amount").OfType("MONEY", []byte{}),
	).AddRow(int64(1), created, created, []byte("9.99"))

	mock.ExpectQuery(`SELECT \* FROM \[dbo\]\.\[Orders\]`).WillReturnRows(rows)

	rs, err := database.Fetch(context.Background(), s, database.SelectAll("dbo", "Orders"))
	require.NoError(t, err)
	require.Len(t, rs.Records, 1)

	rec := rs.Records[0]
	assert.Equal(t, int64(1), rec[0])
	assert.Equal(t, civil.DateTimeOf(created), rec[1])
	assert.Equal(t, civil.DateOf(created), rec[2])
	assert.Equal(t, "9.99", rec[3].(decimal.Decimal).String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_QueryError(t *testing.T) {
	s, mock := newMockSession(t)

	mock.ExpectQuery(`SELECT`).WillReturnError(mssql.Error{Number: 229, Message: "The SELECT permission was denied"})

	_, err := s.Query(context.Background(), "SELECT 1")
	assert.True(t, errs.IsPermissionDenied(err))
}

func TestSession_CloseReleasesOnce(t *testing.T) {
	calls := 0
	s := NewSession("", nil, func() error {
		calls++
		return nil
	})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, calls)
}

func TestProvider_OpenFailureEvictsPool(t *testing.T) {
	cfg := database.DefaultConfig()
	cfg.Server = "127.0.0.1"
	cfg.Port = 1
	p := New(cfg)
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 50; i++ {
		_, err := p.Open(ctx, fmt.Sprintf("Unknown%d", i))
		require.Error(t, err)
	}
	_, err := p.Open(ctx, "")
	require.Error(t, err)

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Len(t, p.pools, 1)
	assert.Contains(t, p.pools, "")
}
