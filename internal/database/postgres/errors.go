package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/anmolpansara/ChatWithDB/internal/database"
)

// classify turns a driver error into a *database.QueryError. Messages are
// taken from the server's error report only; transport errors keep their
// detail in Cause so host names never reach the message.
func classify(err error, sqlText string) *database.QueryError {
	qe := &database.QueryError{SQL: sqlText, Cause: err}

	var pgErr *pgconn.PgError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err):
		qe.Kind = database.KindTimeout
		qe.Message = "statement timed out"
	case errors.Is(err, context.Canceled):
		qe.Kind = database.KindTimeout
		qe.Message = "statement cancelled"
	case errors.As(err, &pgErr):
		qe.Kind = kindForCode(pgErr.Code)
		qe.Code = pgErr.Code
		qe.Message = pgErr.Message
	case errors.Is(err, database.ErrNotConnected),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &netErr):
		qe.Kind = database.KindConnectionLost
		qe.Message = "connection to the database was lost"
	default:
		qe.Kind = database.KindRuntime
		qe.Message = "statement failed"
	}
	return qe
}

func kindForCode(code string) database.Kind {
	switch {
	case code == "42501":
		return database.KindPermission
	case code == "25006":
		// read_only_sql_transaction: a write slipped past the keyword check
		return database.KindPolicyViolation
	case code == "57014":
		return database.KindTimeout
	case code == "57P01", code == "57P02", code == "57P03":
		return database.KindConnectionLost
	case strings.HasPrefix(code, "42"):
		return database.KindSyntax
	case strings.HasPrefix(code, "28"):
		return database.KindPermission
	case strings.HasPrefix(code, "08"):
		return database.KindConnectionLost
	default:
		return database.KindRuntime
	}
}

func classifyConnect(err error) *database.ConnectError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "28"):
			return &database.ConnectError{Reason: database.ReasonAuth, Cause: err}
		case pgErr.Code == "3D000":
			return &database.ConnectError{Reason: database.ReasonUnknownDatabase, Cause: err}
		}
	}
	return &database.ConnectError{Reason: database.ReasonUnreachable, Cause: err}
}
