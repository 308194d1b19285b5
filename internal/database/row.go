package database

import (
	"fmt"

	"github.com/koustreak/odatasql/internal/errs"
)

// Record is one fetched row: values in column order, named by the
// ResultSet's Columns. Values belong to a closed scalar set: nil, Go integer
// and float types, decimal.Decimal, string, bool, []byte, uuid.UUID,
// civil.Date, civil.Time, civil.DateTime (no zone) and time.Time (zoned).
type Record []any

// ResultSet is a fully read query result. Row order is the order the
// server returned.
type ResultSet struct {
	Columns []string
	Records []Record
}

// ScanRecords reads all rows from the result set. Records is always non-nil.
// ScanRecords always closes rows.
func ScanRecords(rows Rows) (*ResultSet, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read column names", err)
	}

	rs := &ResultSet{Columns: columns, Records: make([]Record, 0)}

	for rows.Next() {
		// Scan targets are *any so the driver can write any type.
		rec := make(Record, len(columns))
		ptrs := make([]any, len(columns))
		for i := range rec {
			ptrs[i] = &rec[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, wrapQuery(fmt.Sprintf("failed to scan row %d", len(rs.Records)+1), err)
		}
		rs.Records = append(rs.Records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapQuery("error during row iteration", err)
	}
	return rs, nil
}

// wrapQuery keeps an already classified error intact.
func wrapQuery(msg string, err error) error {
	if errs.KindOf(err) != errs.ErrKindUnknown {
		return err
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}
