package database

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when an operation needs a handle and none is open.
var ErrNotConnected = errors.New("not connected")

// Kind classifies why a statement failed.
type Kind int

const (
	KindRuntime Kind = iota
	KindSyntax
	KindPermission
	KindConnectionLost
	KindTimeout
	KindMultiStatement
	KindPolicyViolation
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindPermission:
		return "permission"
	case KindConnectionLost:
		return "connection_lost"
	case KindTimeout:
		return "timeout"
	case KindMultiStatement:
		return "multi_statement"
	case KindPolicyViolation:
		return "policy_violation"
	default:
		return "runtime"
	}
}

// QueryError describes a failed statement. It is returned instead of a
// QueryResult and always carries the originating SQL.
type QueryError struct {
	Kind    Kind
	SQL     string
	Code    string // SQLSTATE, when the server reported one
	Message string
	Cause   error
}

func (e *QueryError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Cause)
	}
	return e.Kind.String() + " error"
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// KindOf returns the Kind of a *QueryError in err's chain.
func KindOf(err error) (Kind, bool) {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind, true
	}
	return 0, false
}

// ConnectReason explains why a connection attempt failed.
type ConnectReason string

const (
	ReasonUnreachable     ConnectReason = "unreachable"
	ReasonAuth            ConnectReason = "auth"
	ReasonUnknownDatabase ConnectReason = "unknown_database"
	ReasonInvalidConfig   ConnectReason = "invalid_config"
)

// ConnectError is returned by Driver.Connect.
type ConnectError struct {
	Reason ConnectReason
	Cause  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect (%s): %v", e.Reason, e.Cause)
}

func (e *ConnectError) Unwrap() error {
	return e.Cause
}
