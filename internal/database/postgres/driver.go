package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/anmolpansara/ChatWithDB/internal/database"
	"github.com/anmolpansara/ChatWithDB/internal/sqlguard"
)

// OpenFunc opens a *sql.DB for a DSN without connecting.
type OpenFunc func(dsn string) (*sql.DB, error)

// Option configures a Driver.
type Option func(*Driver)

// WithOpener replaces how the underlying *sql.DB is opened. Tests use it to
// inject a sqlmock database.
func WithOpener(open OpenFunc) Option {
	return func(d *Driver) {
		d.open = open
	}
}

// Driver implements the database.Driver interface for PostgreSQL.
// It pins exactly one connection so that no two statements ever share or
// race for a handle.
type Driver struct {
	open   OpenFunc
	db     *sql.DB
	conn   *sql.Conn
	dbName string
}

// New creates a new PostgreSQL driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		open: func(dsn string) (*sql.DB, error) {
			return sql.Open("pgx", dsn)
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect opens the connection handle, closing any previous one first.
func (d *Driver) Connect(ctx context.Context, cfg database.ConnectionConfig) error {
	_ = d.Close()

	db, err := d.open(cfg.DSN())
	if err != nil {
		return &database.ConnectError{Reason: database.ReasonInvalidConfig, Cause: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return classifyConnect(err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return classifyConnect(err)
	}

	d.db = db
	d.conn = conn
	d.dbName = cfg.Database
	return nil
}

// Close releases the connection handle. It is safe to call repeatedly.
func (d *Driver) Close() error {
	var errs []error
	if d.conn != nil {
		if err := d.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, err)
		}
		d.conn = nil
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			errs = append(errs, err)
		}
		d.db = nil
	}
	return errors.Join(errs...)
}

// Ping checks if the connection is alive.
func (d *Driver) Ping(ctx context.Context) error {
	if d.conn == nil {
		return database.ErrNotConnected
	}
	if err := d.conn.PingContext(ctx); err != nil {
		return classify(err, "")
	}
	return nil
}

// Describe lists user tables and views with their columns.
func (d *Driver) Describe(ctx context.Context) (*database.SchemaDescription, error) {
	if d.conn == nil {
		return nil, classify(database.ErrNotConnected, queryDescribe)
	}

	rows, err := d.conn.QueryContext(ctx, queryDescribe)
	if err != nil {
		return nil, classify(err, queryDescribe)
	}
	defer rows.Close()

	byName := map[string]*database.Table{}
	var order []string
	for rows.Next() {
		var (
			schema, table, tableType string
			col                      database.Column
			nullable                 string
		)
		if err := rows.Scan(&schema, &table, &tableType, &col.Name, &col.DataType, &nullable, &col.OrdinalPos); err != nil {
			return nil, classify(fmt.Errorf("scan column: %w", err), queryDescribe)
		}
		col.Nullable = nullable == "YES"

		key := schema + "\x00" + table
		t, ok := byName[key]
		if !ok {
			t = &database.Table{Schema: schema, Name: table, Kind: tableKind(tableType)}
			byName[key] = t
			order = append(order, key)
		}
		t.Columns = append(t.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, queryDescribe)
	}

	// Sort here rather than trusting ORDER BY: server collation must not
	// change the rendered description.
	sort.Strings(order)
	desc := &database.SchemaDescription{Database: d.dbName, Tables: make([]database.Table, 0, len(order))}
	for _, key := range order {
		t := byName[key]
		sort.SliceStable(t.Columns, func(i, j int) bool {
			return t.Columns[i].OrdinalPos < t.Columns[j].OrdinalPos
		})
		desc.Tables = append(desc.Tables, *t)
	}
	return desc, nil
}

// Query runs one statement inside a transaction. Read-only statements are
// rolled back; others are committed. Either the whole statement applies or
// nothing does.
func (d *Driver) Query(ctx context.Context, sqlText string, opts database.QueryOptions) (*database.QueryResult, error) {
	if d.conn == nil {
		return nil, classify(database.ErrNotConnected, sqlText)
	}
	start := time.Now()

	tx, err := d.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, classify(err, sqlText)
	}

	var result *database.QueryResult
	if isBareMutation(sqlText) {
		result, err = execStatement(ctx, tx, sqlText)
	} else {
		result, err = queryStatement(ctx, tx, sqlText, opts.MaxRows)
	}
	if err != nil {
		_ = tx.Rollback()
		return nil, classify(err, sqlText)
	}

	if opts.ReadOnly {
		err = tx.Rollback()
	} else {
		err = tx.Commit()
	}
	if err != nil {
		return nil, classify(err, sqlText)
	}

	result.SQL = sqlText
	result.Duration = time.Since(start)
	return result, nil
}

// DatabaseName returns the name of the connected database.
func (d *Driver) DatabaseName() string {
	return d.dbName
}

func queryStatement(ctx context.Context, tx *sql.Tx, sqlText string, maxRows int) (*database.QueryResult, error) {
	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	result := &database.QueryResult{Columns: columns, Rows: [][]string{}}
	for rows.Next() {
		if maxRows > 0 && len(result.Rows) == maxRows {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

func execStatement(ctx context.Context, tx *sql.Tx, sqlText string) (*database.QueryResult, error) {
	res, err := tx.ExecContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	return &database.QueryResult{Rows: [][]string{}, RowsAffected: affected}, nil
}

// isBareMutation reports DML without a RETURNING clause; those produce no
// rows and are run with Exec to get an affected-row count.
func isBareMutation(sqlText string) bool {
	switch sqlguard.FirstKeyword(sqlText) {
	case "INSERT", "UPDATE", "DELETE":
		return !sqlguard.HasKeyword(sqlText, "RETURNING")
	}
	return false
}

func tableKind(tableType string) string {
	if tableType == "VIEW" {
		return "view"
	}
	return "table"
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", val)
	}
}
