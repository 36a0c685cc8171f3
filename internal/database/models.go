package database

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ConnectionConfig holds the parameters needed to open a PostgreSQL session.
// It is a value type and is never mutated after configuration is loaded.
type ConnectionConfig struct {
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	SSLMode        string
	ConnectTimeout time.Duration
}

// DSN builds a PostgreSQL connection URL. User and password are escaped.
func (c ConnectionConfig) DSN() string {
	u := url.URL{
		Scheme: "postgresql",
		Host:   c.hostPort(),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}

	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.ConnectTimeout > 0 {
		secs := int(c.ConnectTimeout.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// String returns a human-readable summary of the connection without credentials.
func (c ConnectionConfig) String() string {
	s := c.hostPort() + "/" + c.Database
	if c.User != "" {
		s = c.User + "@" + s
	}
	return s
}

func (c ConnectionConfig) hostPort() string {
	if c.Port > 0 {
		return c.Host + ":" + strconv.Itoa(c.Port)
	}
	return c.Host
}

// Status is the liveness of a connection handle.
type Status int

const (
	Disconnected Status = iota
	Connected
)

func (s Status) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Column represents a table column with its metadata.
type Column struct {
	Name       string
	DataType   string
	Nullable   bool
	OrdinalPos int
}

// Table is one user-visible relation and its columns in positional order.
type Table struct {
	Schema  string
	Name    string
	Kind    string // "table" or "view"
	Columns []Column
}

// QualifiedName returns schema.name, or just name for the public schema.
func (t Table) QualifiedName() string {
	if t.Schema == "" || t.Schema == "public" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// SchemaDescription lists the tables of the connected database.
// Tables are ordered by schema then name; columns by ordinal position.
type SchemaDescription struct {
	Database string
	Tables   []Table
}

// Text renders the description one table per line, e.g.
//
//	orders(id integer, total numeric)
//
// Identical schemas produce byte-identical output.
func (s *SchemaDescription) Text() string {
	if s == nil || len(s.Tables) == 0 {
		return "(no tables)"
	}
	var b strings.Builder
	for i, t := range s.Tables {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.QualifiedName())
		b.WriteByte('(')
		for j, c := range t.Columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Name)
			b.WriteByte(' ')
			b.WriteString(c.DataType)
		}
		b.WriteByte(')')
		if t.Kind == "view" {
			b.WriteString(" -- view")
		}
	}
	return b.String()
}

// TableNames returns the qualified names of all tables in description order.
func (s *SchemaDescription) TableNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.QualifiedName()
	}
	return names
}

// QueryResult holds the result of a single statement.
type QueryResult struct {
	SQL       string
	Columns   []string
	Rows      [][]string
	RowCount  int
	Truncated bool
	Duration  time.Duration

	// RowsAffected is set for INSERT/UPDATE/DELETE without RETURNING.
	RowsAffected int64
}

// QueryOptions controls how a statement is run.
type QueryOptions struct {
	// MaxRows caps the number of rows returned. Zero means no cap.
	MaxRows int
	// ReadOnly runs the statement in a read-only transaction that is rolled back.
	ReadOnly bool
}
