// Package postgres implements the dialect.Dialect contract for
// PostgreSQL, including its double-quoted identifiers, dollar-quoted
// string bodies, and snapshot-scoped REPEATABLE READ transactions.
package postgres

import (
	"context"
	"fmt"
	"io"
	"strings"

	"migrasquiel/internal/dialect"
	"migrasquiel/internal/schema"
	"migrasquiel/internal/value"
)

func init() {
	dialect.Register(dialect.PostgreSQL, func() dialect.Dialect { return &Dialect{} })
}

// Dialect implements dialect.Dialect for PostgreSQL.
type Dialect struct{}

func (d *Dialect) Name() dialect.Type { return dialect.PostgreSQL }

// QuoteIdentifier wraps name in double quotes, doubling any embedded
// double quote.
func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *Dialect) quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *Dialect) FormatLiteral(v value.Value) (dialect.LiteralResult, error) {
	return formatLiteral(d, v)
}

func (d *Dialect) RenderInsert(table schema.Table, columns []string, rows []value.Row) (string, error) {
	return dialect.RenderInsertMultiRow(d, table, columns, rows)
}

// RenderCreateTable returns the captured CREATE TABLE text verbatim.
// Unlike MySQL, Postgres does not get an IF NOT EXISTS rewrite.
func (d *Dialect) RenderCreateTable(t schema.Table) string {
	return t.CreateTableText
}

func (d *Dialect) RenderCreateTableFromAbstract(t schema.Table) (string, error) {
	var lines []string
	for _, c := range t.Columns {
		sqlType, err := abstractTypeSQL(c.Abstract)
		if err != nil {
			return "", err
		}
		line := "  " + d.QuoteIdentifier(c.Name) + " " + sqlType
		if !c.Nullable {
			line += " NOT NULL"
		}
		if strings.EqualFold(c.Name, "id") && c.Abstract == schema.AbstractInt {
			line += " PRIMARY KEY"
		}
		lines = append(lines, line)
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);\n", d.QuoteIdentifier(t.Name), strings.Join(lines, ",\n"))
	return stmt, nil
}

func abstractTypeSQL(t schema.AbstractType) (string, error) {
	switch t {
	case schema.AbstractInt:
		return "INTEGER", nil
	case schema.AbstractFloat:
		return "REAL", nil
	case schema.AbstractDecimal:
		return "NUMERIC(10,2)", nil
	case schema.AbstractBool:
		return "BOOLEAN", nil
	case schema.AbstractDate:
		return "DATE", nil
	case schema.AbstractTimestamp:
		return "TIMESTAMP", nil
	case schema.AbstractBytes:
		return "BYTEA", nil
	case schema.AbstractText:
		return "VARCHAR(255)", nil
	default:
		return "", fmt.Errorf("postgres: unknown abstract type %q", t)
	}
}

func (d *Dialect) DisableConstraints(ctx context.Context, ex dialect.Executor, _ []schema.Table) error {
	_, err := ex.ExecContext(ctx, "SET session_replication_role = replica")
	return err
}

func (d *Dialect) EnableConstraints(ctx context.Context, ex dialect.Executor, _ []schema.Table) error {
	_, err := ex.ExecContext(ctx, "SET session_replication_role = origin")
	return err
}

func (d *Dialect) SnapshotBeginStatements() []string {
	return []string{"BEGIN ISOLATION LEVEL REPEATABLE READ READ ONLY"}
}

func (d *Dialect) SnapshotEndStatement() string { return "COMMIT" }

func (d *Dialect) HeaderText() string {
	return strings.Join([]string{
		"-- migrasquiel PostgreSQL dump",
		"SET statement_timeout = 0;",
		"SET client_encoding = 'UTF8';",
		"SET session_replication_role = replica;",
		"",
	}, "\n")
}

func (d *Dialect) FooterText() string {
	return strings.Join([]string{
		"SET session_replication_role = origin;",
		"",
	}, "\n")
}

func (d *Dialect) NewTokenizer(r io.Reader) dialect.Tokenizer {
	return dialect.NewScriptTokenizer(r, dialect.TokenizerConfig{
		DoubleQuoteIdent: true,
		DollarQuote:      true,
	})
}

// MaxBatchBytes mirrors the conservative default PostgreSQL wire
// message size this tool targets (spec §5).
func (d *Dialect) MaxBatchBytes() int { return 8 * 1024 * 1024 }
