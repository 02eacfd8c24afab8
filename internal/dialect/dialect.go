// Package dialect provides a unified interface for the three supported
// database dialects (MySQL/MariaDB, PostgreSQL, SQL Server). It keeps
// dialect-specific identifier quoting, literal formatting, DDL
// rendering, constraint toggles and script tokenization out of the
// pipeline, exactly as the pipeline never sees anything but this
// contract (spec §9: "do not leak dialect-specific APIs to the
// pipeline").
package dialect

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"migrasquiel/internal/schema"
	"migrasquiel/internal/value"
)

// Type identifies a supported SQL dialect.
type Type string

const (
	MySQL      Type = "mysql"
	PostgreSQL Type = "postgres"
	MSSQL      Type = "mssql"
)

// Valid reports whether t names a registered dialect.
func Valid(t string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[Type(t)]
	return ok
}

// Executor is the narrow capability a dialect needs from a session to
// disable/enable constraints and run snapshot statements. It is
// satisfied by the session package's Session and Tx wrappers, which
// return an affected-row count (database/sql's own *sql.DB, *sql.Conn
// and *sql.Tx return sql.Result and do not satisfy it), and deliberately
// does not depend on the session package to avoid an import cycle
// (session depends on dialect, not the reverse).
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (int64, error)
}

// Tokenizer splits a SQL script into individual statements without
// buffering more than one statement at a time (spec §4.1, §8).
type Tokenizer interface {
	// Next returns the next statement (without its trailing ";\n"), or
	// io.EOF when the script is exhausted.
	Next() (string, error)
}

// LiteralResult is the outcome of formatting one Value as a SQL literal.
type LiteralResult struct {
	Text    string
	Warning string // non-empty when the dialect substituted a sentinel, e.g. NaN -> NULL
}

// Dialect is the capability set spec §4.1 and §9 describe: a tagged
// implementation per provider, selected by the --provider CLI flag.
type Dialect interface {
	Name() Type

	QuoteIdentifier(name string) string
	FormatLiteral(v value.Value) (LiteralResult, error)

	// RenderInsert produces one multi-row INSERT statement, including
	// the terminating ";\n".
	RenderInsert(table schema.Table, columns []string, rows []value.Row) (string, error)

	// RenderCreateTable re-emits a table's captured CREATE TABLE text,
	// wrapped in whatever preamble the dialect needs for idempotent
	// restore (e.g. MySQL's "CREATE TABLE IF NOT EXISTS" rewrite).
	RenderCreateTable(t schema.Table) string

	// RenderCreateTableFromAbstract synthesizes a CREATE TABLE
	// statement from CSV-inferred abstract column types (C6); it is
	// never used on the dump/restore/migrate path.
	RenderCreateTableFromAbstract(t schema.Table) (string, error)

	DisableConstraints(ctx context.Context, ex Executor, tables []schema.Table) error
	EnableConstraints(ctx context.Context, ex Executor, tables []schema.Table) error

	SnapshotBeginStatements() []string
	SnapshotEndStatement() string

	HeaderText() string
	FooterText() string

	NewTokenizer(r io.Reader) Tokenizer

	// MaxBatchBytes is the conservative per-statement size cap the
	// pipeline must respect when rebatching (spec §5).
	MaxBatchBytes() int
}

// RenderInsertMultiRow builds a single multi-row INSERT statement using
// d's identifier quoting and literal formatting. Dialect implementations
// that use ordinary "INSERT INTO t (cols) VALUES (...), (...);" syntax
// (all three supported providers do) can delegate RenderInsert to this
// helper instead of duplicating the loop.
func RenderInsertMultiRow(d Dialect, table schema.Table, columns []string, rows []value.Row) (string, error) {
	quotedCols := make([]string, len(columns))
	for i, c := range columns {
		quotedCols[i] = d.QuoteIdentifier(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES\n", d.QuoteIdentifier(table.Name), strings.Join(quotedCols, ", "))

	for ri, row := range rows {
		if len(row) != len(columns) {
			return "", fmt.Errorf("dialect: row %d has %d values, want %d columns", ri, len(row), len(columns))
		}
		b.WriteString("  (")
		for ci, v := range row {
			if ci > 0 {
				b.WriteString(", ")
			}
			lit, err := d.FormatLiteral(v)
			if err != nil {
				return "", fmt.Errorf("dialect: row %d column %q: %w", ri, columns[ci], err)
			}
			b.WriteString(lit.Text)
		}
		b.WriteByte(')')
		if ri < len(rows)-1 {
			b.WriteString(",\n")
		} else {
			b.WriteString(";\n")
		}
	}
	return b.String(), nil
}

var (
	registryMu sync.RWMutex
	registry   = map[Type]func() Dialect{}
)

// Register adds a dialect constructor to the registry. Dialect
// packages call this from their init().
func Register(t Type, ctor func() Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = ctor
}

// Get returns a fresh Dialect instance for t.
func Get(t Type) (Dialect, error) {
	registryMu.RLock()
	ctor, ok := registry[t]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dialect: %q is not registered", t)
	}
	return ctor(), nil
}
