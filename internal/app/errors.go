package app

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/anmolpansara/ChatWithDB/internal/config"
	"github.com/anmolpansara/ChatWithDB/internal/database"
	"github.com/anmolpansara/ChatWithDB/internal/llm"
)

// Connection failures raised by the app layer rather than the driver.
const (
	ReasonNotConnected   database.ConnectReason = "not_connected"
	ReasonConnectionLost database.ConnectReason = "connection_lost"
)

var (
	// ErrBusy is returned by Ask while another question is being answered.
	ErrBusy = errors.New("a question is already being answered")
	// ErrEmptyQuestion is returned by Ask for blank input.
	ErrEmptyQuestion = errors.New("empty question")
)

// ErrConnection represents a database connection error.
type ErrConnection struct {
	Reason database.ConnectReason
	Cause  error
}

func (e *ErrConnection) Error() string {
	return fmt.Sprintf("connection error (%s): %v", e.Reason, e.Cause)
}

func (e *ErrConnection) Unwrap() error {
	return e.Cause
}

// ErrIntrospection means the catalog could not be read on a live connection.
type ErrIntrospection struct {
	Cause error
}

func (e *ErrIntrospection) Error() string {
	return fmt.Sprintf("introspection error: %v", e.Cause)
}

func (e *ErrIntrospection) Unwrap() error {
	return e.Cause
}

// ErrTimeout reports a stage that did not finish within its deadline.
type ErrTimeout struct {
	Stage string
	After time.Duration
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Stage, e.After)
}

// ErrCompletion wraps a failed LLM request.
type ErrCompletion struct {
	Cause error
}

func (e *ErrCompletion) Error() string {
	return fmt.Sprintf("completion error: %v", e.Cause)
}

func (e *ErrCompletion) Unwrap() error {
	return e.Cause
}

// ErrExtraction means the completion held no recognisable SQL statement.
// Refusal is set when the model declined to answer; Completion is then shown
// to the user as is.
type ErrExtraction struct {
	Completion string
	Refusal    bool
}

func (e *ErrExtraction) Error() string {
	if e.Refusal {
		return "extraction error: model declined to answer"
	}
	return "extraction error: no SQL statement in completion"
}

// ErrConfig represents a configuration error.
type ErrConfig struct {
	Cause error
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("config error: %v", e.Cause)
}

func (e *ErrConfig) Unwrap() error {
	return e.Cause
}

const (
	msgRephrase = "Please try rephrasing your question or ask something simpler."
	msgSimpler  = "Please try asking a simpler question or be more specific."
	msgGeneric  = "Sorry, I encountered an error while processing your request."
)

// Explain turns err into a message for the chat transcript. It never
// includes connection strings; pass the result through a Redactor to strip
// configured secrets from server-provided text as well.
func Explain(err error) string {
	if err == nil {
		return ""
	}

	var (
		connErr    *ErrConnection
		driverErr  *database.ConnectError
		introErr   *ErrIntrospection
		queryErr   *database.QueryError
		timeoutErr *ErrTimeout
		extractErr *ErrExtraction
		complErr   *ErrCompletion
		cfgErr     *ErrConfig
	)
	switch {
	case errors.Is(err, ErrBusy):
		return "Still working on the previous question. Please wait for it to finish."
	case errors.Is(err, ErrEmptyQuestion):
		return "Please type a question about the database."
	case errors.As(err, &extractErr):
		if extractErr.Refusal {
			return strings.TrimSpace(extractErr.Completion)
		}
		return "Sorry, I could not find a SQL query in the model's answer. " + msgRephrase
	case errors.As(err, &timeoutErr):
		return fmt.Sprintf("The %s did not finish within %s. %s", timeoutErr.Stage, timeoutErr.After, msgSimpler)
	case errors.As(err, &complErr):
		return explainCompletion(complErr)
	case errors.As(err, &connErr):
		return explainConnect(connErr.Reason)
	case errors.As(err, &driverErr):
		return explainConnect(driverErr.Reason)
	case errors.As(err, &introErr):
		return "I am not allowed to read the database catalog, so I cannot see which tables exist."
	case errors.As(err, &queryErr):
		return explainQuery(queryErr)
	case errors.As(err, &cfgErr):
		var fe *config.FieldError
		if errors.As(cfgErr, &fe) {
			return fmt.Sprintf("Configuration problem: %s %s.", fe.Key, fe.Reason)
		}
		return "Configuration problem: the configuration could not be loaded."
	default:
		return msgGeneric
	}
}

func explainConnect(reason database.ConnectReason) string {
	switch reason {
	case database.ReasonAuth:
		return "The database rejected the credentials. Check DB_USER and DB_PASSWORD."
	case database.ReasonUnknownDatabase:
		return "The configured database does not exist. Check DB_NAME."
	case database.ReasonInvalidConfig:
		return "The database connection settings are invalid."
	case ReasonNotConnected:
		return "Not connected to the database. Connect and try again."
	case ReasonConnectionLost:
		return "The connection to the database was lost and could not be restored."
	default:
		return "Could not reach the database server. Check DB_HOST and DB_PORT and that the server is running."
	}
}

func explainQuery(qe *database.QueryError) string {
	switch qe.Kind {
	case database.KindMultiStatement:
		return "The generated SQL contained more than one statement, so nothing was run. " + msgRephrase
	case database.KindPolicyViolation:
		return "The generated SQL would modify the database, which is not allowed. Nothing was run."
	case database.KindSyntax:
		return fmt.Sprintf("The generated SQL was not valid: %s. %s", qe.Message, msgRephrase)
	case database.KindPermission:
		return fmt.Sprintf("The database user is not allowed to run that query: %s.", qe.Message)
	case database.KindConnectionLost:
		return explainConnect(ReasonConnectionLost)
	case database.KindTimeout:
		return "The query timed out. " + msgSimpler
	default:
		return fmt.Sprintf("The query failed: %s.", qe.Message)
	}
}

func explainCompletion(err *ErrCompletion) string {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "The language model rejected the API key. Check GROQ_API_KEY."
		case http.StatusTooManyRequests:
			return "The language model is rate limiting requests. Please wait a moment and try again."
		}
	}
	return "The language model request failed. Please try again."
}

var dsnPattern = regexp.MustCompile(`(?i)\bpostgres(?:ql)?://\S+`)

// Redactor removes secrets and connection strings from user-facing text.
type Redactor struct {
	secrets []string
}

// NewRedactor returns a Redactor for the given secret values. Empty values
// are ignored.
func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{}
	for _, s := range secrets {
		if s != "" {
			r.secrets = append(r.secrets, s)
		}
	}
	return r
}

// Redact masks every occurrence of a secret and every PostgreSQL URL in s.
func (r *Redactor) Redact(s string) string {
	s = dsnPattern.ReplaceAllString(s, "postgresql://***")
	if r == nil {
		return s
	}
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, "***")
	}
	return s
}
