package sqlserver

import (
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/shopspring/decimal"
)

// convertValue narrows a driver value to the scalar set of database.Record
// using the column's native type name. go-mssqldb reports every temporal
// type as time.Time, so the type name is the only way to tell a zone-less
// DATETIME2 from a DATETIMEOFFSET.
func convertValue(dbType string, v any) any {
	if v == nil {
		return nil
	}

	switch strings.ToUpper(dbType) {
	case "DATE":
		if t, ok := v.(time.Time); ok {
			return civil.DateOf(t)
		}
	case "TIME":
		if t, ok := v.(time.Time); ok {
			return civil.TimeOf(t)
		}
	case "DATETIME", "DATETIME2", "SMALLDATETIME":
		if t, ok := v.(time.Time); ok {
			return civil.DateTimeOf(t)
		}
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		if d, ok := toDecimal(v); ok {
			return d
		}
	case "UNIQUEIDENTIFIER":
		var id mssql.UniqueIdentifier
		if err := id.Scan(v); err == nil {
			return uuid.UUID(id)
		}
	}
	return v
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case []byte:
		d, err := decimal.NewFromString(string(x))
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(x)
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(x), true
	case int64:
		return decimal.NewFromInt(x), true
	}
	return decimal.Decimal{}, false
}
