// Package session wraps a database/sql connection with the state
// machine, streaming-cursor, and batch-insert operations the pipeline
// needs, independent of which of the three dialects backs it. Concrete
// per-provider construction (driver registration, DSN translation,
// information_schema-style introspection) lives in session/mysql,
// session/postgres and session/mssql; this package holds what all
// three share, generalized from the teacher's internal/apply.Applier
// (single *sql.DB, explicit Connect/Close, context-scoped execution).
package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"migrasquiel/internal/dialect"
	"migrasquiel/internal/errs"
	"migrasquiel/internal/schema"
	"migrasquiel/internal/value"
)

// State is the explicit lifecycle a Session moves through. Operations
// check State before proceeding and return an errs.IllegalState error
// on a disallowed transition (e.g. starting a second snapshot).
type State int

const (
	Closed State = iota
	Open
	Idle
	InSnapshot
	InTxn
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case Idle:
		return "idle"
	case InSnapshot:
		return "in-snapshot"
	case InTxn:
		return "in-txn"
	default:
		return "unknown"
	}
}

// PlaceholderStyle identifies how a driver spells a bound-parameter
// marker in a query string.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses a bare "?" for every parameter (MySQL).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses "$1", "$2", ... (PostgreSQL).
	PlaceholderDollar
	// PlaceholderAt uses "@p1", "@p2", ... (SQL Server).
	PlaceholderAt
)

// Placeholder renders the index-th (1-based) bound-parameter marker
// for style.
func Placeholder(style PlaceholderStyle, index int) string {
	switch style {
	case PlaceholderDollar:
		return fmt.Sprintf("$%d", index)
	case PlaceholderAt:
		return fmt.Sprintf("@p%d", index)
	default:
		return "?"
	}
}

// Introspector lists a database's tables with enough column metadata
// to drive DDL re-emission and literal formatting. Each provider
// package supplies one, grounded on the teacher's
// internal/introspect/mysql information_schema queries.
type Introspector interface {
	ListTables(ctx context.Context, db *sql.DB) ([]schema.Table, error)
}

// Session is a live connection to one database, scoped to one dump,
// restore, migrate or import run.
type Session struct {
	db          *sql.DB
	dialect     dialect.Dialect
	introspect  Introspector
	placeholder PlaceholderStyle
	info        ConnInfo

	mu    sync.Mutex
	state State
}

// Open opens driverName with dsn, pings it, and returns a Session in
// the Open state. Callers must eventually call Close.
func Open(ctx context.Context, driverName, dsn string, info ConnInfo, d dialect.Dialect, introspect Introspector, placeholder PlaceholderStyle) (*Session, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.Connect, err, "open connection to "+info.Redacted(), "", "")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.Connect, err, "connect to "+info.Redacted(), "", "")
	}
	return &Session{
		db:          db,
		dialect:     d,
		introspect:  introspect,
		placeholder: placeholder,
		info:        info,
		state:       Open,
	}, nil
}

// Close closes the underlying connection pool.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return nil
	}
	s.state = Closed
	return s.db.Close()
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dialect returns the dialect implementation this session was opened with.
func (s *Session) Dialect() dialect.Dialect { return s.dialect }

// ConnInfo returns the (redactable) connection target this session was
// opened against.
func (s *Session) ConnInfo() ConnInfo { return s.info }

func (s *Session) transition(from, to State, op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return errs.New(errs.IllegalState, op, fmt.Sprintf("session in state %s, expected %s", s.state, from))
	}
	s.state = to
	return nil
}

// ExecContext implements dialect.Executor so Session can be passed
// directly to Dialect.DisableConstraints/EnableConstraints.
func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errs.Wrap(errs.SQLExecution, err, "execute statement", "", query)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil // driver doesn't report rows affected; not fatal
	}
	return n, nil
}

// BeginSnapshot runs the dialect's snapshot-begin statements, moving
// the session from Open/Idle into InSnapshot. It is an IllegalState
// error to call this twice without an intervening EndSnapshot.
func (s *Session) BeginSnapshot(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Open && s.state != Idle {
		state := s.state
		s.mu.Unlock()
		return errs.New(errs.IllegalState, "begin consistent snapshot", fmt.Sprintf("session in state %s", state))
	}
	s.mu.Unlock()

	for _, stmt := range s.dialect.SnapshotBeginStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errs.Wrap(errs.Source, err, "begin consistent snapshot", "", stmt)
		}
	}

	s.mu.Lock()
	s.state = InSnapshot
	s.mu.Unlock()
	return nil
}

// EndSnapshot runs the dialect's snapshot-end statement (commit),
// returning the session to Idle.
func (s *Session) EndSnapshot(ctx context.Context) error {
	if err := s.transition(InSnapshot, Idle, "end consistent snapshot"); err != nil {
		return err
	}
	stmt := s.dialect.SnapshotEndStatement()
	if stmt == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return errs.Wrap(errs.Source, err, "end consistent snapshot", "", stmt)
	}
	return nil
}

// Tx wraps one *sql.Tx, implementing dialect.Executor so restore can
// run each statement inside it the way Applier.applyWithTransaction
// runs each migration statement against a *sql.Tx.
type Tx struct {
	tx *sql.Tx
	s  *Session
}

// BeginTx starts a transaction, moving the session from Open/Idle into
// InTxn. Callers must Commit or Rollback the returned Tx, both of
// which return the session to Idle.
func (s *Session) BeginTx(ctx context.Context) (*Tx, error) {
	s.mu.Lock()
	if s.state != Open && s.state != Idle {
		state := s.state
		s.mu.Unlock()
		return nil, errs.New(errs.IllegalState, "begin transaction", fmt.Sprintf("session in state %s", state))
	}
	s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.Wrap(errs.SQLExecution, err, "begin transaction", "", "")
	}

	s.mu.Lock()
	s.state = InTxn
	s.mu.Unlock()
	return &Tx{tx: tx, s: s}, nil
}

// ExecContext implements dialect.Executor.
func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errs.Wrap(errs.SQLExecution, err, "execute statement", "", query)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Commit commits the transaction and returns the session to Idle.
func (t *Tx) Commit() error {
	defer t.s.forceIdle()
	if err := t.tx.Commit(); err != nil {
		return errs.Wrap(errs.SQLExecution, err, "commit transaction", "", "")
	}
	return nil
}

// Rollback aborts the transaction and returns the session to Idle.
func (t *Tx) Rollback() error {
	defer t.s.forceIdle()
	if err := t.tx.Rollback(); err != nil {
		return errs.Wrap(errs.SQLExecution, err, "rollback transaction", "", "")
	}
	return nil
}

func (s *Session) forceIdle() {
	s.mu.Lock()
	s.state = Idle
	s.mu.Unlock()
}

// ListTables introspects the database's tables in alphabetical order.
func (s *Session) ListTables(ctx context.Context) ([]schema.Table, error) {
	tables, err := s.introspect.ListTables(ctx, s.db)
	if err != nil {
		return nil, errs.Wrap(errs.Source, err, "list tables", "", "")
	}
	return tables, nil
}

// RowCursor streams one table's rows without paginating, so a caller
// holding an open consistent snapshot sees a single stable view of the
// table regardless of concurrent writes (spec: dump under
// --consistent-snapshot must not re-query the table per batch).
type RowCursor struct {
	rows    *sql.Rows
	columns []schema.Column
	scratch []any
	ptrs    []any
}

// StreamRows opens a single server-side cursor over table's full
// contents, ordered however the engine's natural scan returns rows
// (migrasquiel never requests an ORDER BY, since none is needed for
// correctness and it would defeat index-only scans on large tables).
func (s *Session) StreamRows(ctx context.Context, table schema.Table) (*RowCursor, error) {
	cols := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		cols[i] = s.dialect.QuoteIdentifier(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", joinCols(cols), s.dialect.QuoteIdentifier(table.Name))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errs.Wrap(errs.Source, err, "stream rows from "+table.QualifiedName(), table.Name, query)
	}

	n := len(table.Columns)
	scratch := make([]any, n)
	ptrs := make([]any, n)
	for i := range scratch {
		ptrs[i] = &scratch[i]
	}

	return &RowCursor{rows: rows, columns: table.Columns, scratch: scratch, ptrs: ptrs}, nil
}

func joinCols(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

// Next scans up to batchSize rows from the cursor. It returns fewer
// rows (possibly zero) with a nil error when the cursor is exhausted;
// callers should stop iterating once the returned slice is empty.
func (c *RowCursor) Next(batchSize int) ([]value.Row, error) {
	var batch []value.Row
	for len(batch) < batchSize && c.rows.Next() {
		if err := c.rows.Scan(c.ptrs...); err != nil {
			return nil, errors.Wrap(err, "session: scan row")
		}
		row := make(value.Row, len(c.columns))
		for i, col := range c.columns {
			v, err := driverValueToValue(c.scratch[i], col)
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		batch = append(batch, row)
	}
	if err := c.rows.Err(); err != nil {
		return nil, errors.Wrap(err, "session: row iteration")
	}
	return batch, nil
}

// Close releases the cursor's underlying *sql.Rows.
func (c *RowCursor) Close() error { return c.rows.Close() }

// driverValueToValue converts a database/sql-scanned value into the
// dialect-neutral value.Value the pipeline carries. Most drivers this
// tool uses (go-sql-driver/mysql, lib/pq, go-mssqldb) return []byte
// for text/decimal columns and typed Go values (int64, float64, bool,
// time.Time) for native numeric/boolean/temporal columns; this
// switches on both shapes rather than requiring a column-type lookup
// per cell, matching how the grounding example's collectBatch treats
// driver values opaquely and lets the caller interpret them.
func driverValueToValue(raw any, col schema.Column) (value.Value, error) {
	if raw == nil {
		return value.Null(), nil
	}
	switch v := raw.(type) {
	case bool:
		return value.Bool(v), nil
	case int64:
		return value.Int64(v), nil
	case uint64:
		return value.Uint64(v), nil
	case float64:
		return value.Float64(v), nil
	case []byte:
		return bytesToValue(v, col)
	case string:
		return value.Text(v), nil
	case time.Time:
		_, offsetSec := v.Zone()
		return value.NewTimestamp(
			value.Date{Year: v.Year(), Month: int(v.Month()), Day: v.Day()},
			value.Time{Hour: v.Hour(), Minute: v.Minute(), Second: v.Second(), Microsecond: v.Nanosecond() / 1000},
			true, offsetSec/60)
	default:
		return value.Text(fmt.Sprintf("%v", v)), nil
	}
}

func bytesToValue(b []byte, col schema.Column) (value.Value, error) {
	switch col.Abstract {
	case schema.AbstractBytes:
		return value.Bytes(b), nil
	case schema.AbstractDecimal:
		return value.NewDecimal(string(b))
	default:
		return value.Text(string(b)), nil
	}
}

// InsertBatch writes rows into table using one parameterized multi-row
// INSERT, the shape the grounding example's InsertBatch uses (bound
// placeholders rather than literal SQL text), since import writes
// directly to a live destination and never needs a human-readable
// dump file for this path.
func (s *Session) InsertBatch(ctx context.Context, table schema.Table, columns []string, rows []value.Row) error {
	if len(rows) == 0 {
		return nil
	}
	quotedCols := make([]string, len(columns))
	for i, c := range columns {
		quotedCols[i] = s.dialect.QuoteIdentifier(c)
	}

	var placeholderGroups []string
	var args []any
	idx := 1
	for _, row := range rows {
		ph := make([]string, len(row))
		for i, v := range row {
			ph[i] = Placeholder(s.placeholder, idx)
			idx++
			args = append(args, valueToDriverArg(v))
		}
		placeholderGroups = append(placeholderGroups, "("+joinCols(ph)+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		s.dialect.QuoteIdentifier(table.Name), joinCols(quotedCols), joinCols(placeholderGroups))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errs.Wrap(errs.Sink, err, "insert batch into "+table.QualifiedName(), table.Name, query)
	}
	return nil
}

// valueToDriverArg converts a value.Value back to a plain Go value
// database/sql can bind as a query argument.
func valueToDriverArg(v value.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.AsBool()
		return b
	case value.KindInt64:
		n, _ := v.AsInt64()
		return n
	case value.KindUint64:
		n, _ := v.AsUint64()
		return n
	case value.KindFloat64:
		f, _ := v.AsFloat64()
		return f
	case value.KindDecimal:
		s, _ := v.AsDecimal()
		return s
	case value.KindText:
		s, _ := v.AsText()
		return s
	case value.KindBytes:
		b, _ := v.AsBytes()
		return b
	case value.KindDate:
		d, _ := v.AsDate()
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	case value.KindTime:
		t, _ := v.AsTime()
		return fmt.Sprintf("%02d:%02d:%02d.%06d", t.Hour, t.Minute, t.Second, t.Microsecond)
	case value.KindTimestamp:
		ts, _ := v.AsTimestamp()
		return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%06d",
			ts.Date.Year, ts.Date.Month, ts.Date.Day, ts.Time.Hour, ts.Time.Minute, ts.Time.Second, ts.Time.Microsecond)
	default:
		return nil
	}
}
