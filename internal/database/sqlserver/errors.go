package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/koustreak/odatasql/internal/errs"
)

// SQL Server error numbers (read-relevant only)
// Full list: https://learn.microsoft.com/sql/relational-databases/errors-events/database-engine-events-and-errors
const (
	errCannotOpenDatabase  = 4060
	errLoginFailed         = 18456
	errUntrustedDomain     = 18452
	errNoProcessOnPipe     = 233
	errConnectionReset     = 10054
	errConnectionTimedOut  = 10060
	errConnectionRefused   = 10061
	errNetworkPathNotFound = 53
	errSelectDenied        = 229
	errExecuteDenied       = 230
	errShowplanDenied      = 262
	errUserNoAccess        = 297
	errViewServerState     = 300
)

// mapError translates go-mssqldb errors into *errs.Error. It returns nil for
// a nil err and passes already classified errors through.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var classified *errs.Error
	if errors.As(err, &classified) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var sqlErr mssql.Error
	if errors.As(err, &sqlErr) {
		kind := classifyNumber(sqlErr.Number)
		// Login reports 4060 first and then 18456; Number holds the last one.
		for _, e := range sqlErr.All {
			if e.Number == errCannotOpenDatabase {
				kind = errs.ErrKindNotFound
				break
			}
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, sqlErr.Message), err)
	}

	// Fallthrough: bad or closed connections, network, TLS and login
	// handshake failures
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyNumber maps SQL Server error numbers to ErrKind.
func classifyNumber(n int32) errs.ErrKind {
	switch n {
	case errCannotOpenDatabase:
		return errs.ErrKindNotFound
	case errLoginFailed, errUntrustedDomain, errNoProcessOnPipe,
		errConnectionReset, errConnectionTimedOut, errConnectionRefused, errNetworkPathNotFound:
		return errs.ErrKindConnectionFailed
	case errSelectDenied, errExecuteDenied, errShowplanDenied, errUserNoAccess, errViewServerState:
		return errs.ErrKindPermissionDenied
	default:
		return errs.ErrKindQueryFailed
	}
}
