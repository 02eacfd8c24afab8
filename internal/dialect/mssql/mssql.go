// Package mssql implements the dialect.Dialect contract for SQL
// Server, including its double-quoted identifiers and
// per-table NOCHECK CONSTRAINT toggles (SQL Server has no single
// session-wide foreign-key switch the way MySQL and PostgreSQL do).
package mssql

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
	dialect.Register(dialect.MSSQL, func() dialect.Dialect { return &Dialect{} })
}

// Dialect implements dialect.Dialect for SQL Server.
type Dialect struct{}

func (d *Dialect) Name() dialect.Type { return dialect.MSSQL }

// QuoteIdentifier wraps name in double quotes, doubling any embedded
// double quote. SQL Server also accepts bracket quoting, but double
// quotes keep output uniform with the other two dialects.
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
// Unlike MySQL, SQL Server does not get an existence-guard rewrite.
func (d *Dialect) RenderCreateTable(t schema.Table) string {
	return t.CreateTableText
}

// wrapObjectIDGuard wraps stmt in an OBJECT_ID existence check, since
// SQL Server's CREATE TABLE has no IF NOT EXISTS clause.
func wrapObjectIDGuard(t schema.Table, stmt string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n%s\nEND;\n", t.Name, stmt)
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
	create := fmt.Sprintf("CREATE TABLE %s (\n%s\n);\n", d.QuoteIdentifier(t.Name), strings.Join(lines, ",\n"))
	return wrapObjectIDGuard(t, create), nil
}

func abstractTypeSQL(t schema.AbstractType) (string, error) {
	switch t {
	case schema.AbstractInt:
		return "INT", nil
	case schema.AbstractFloat:
		return "FLOAT", nil
	case schema.AbstractDecimal:
		return "DECIMAL(10,2)", nil
	case schema.AbstractBool:
		return "BIT", nil
	case schema.AbstractDate:
		return "DATE", nil
	case schema.AbstractTimestamp:
		return "DATETIME2", nil
	case schema.AbstractBytes:
		return "VARBINARY(MAX)", nil
	case schema.AbstractText:
		return "NVARCHAR(255)", nil
	default:
		return "", fmt.Errorf("mssql: unknown abstract type %q", t)
	}
}

func (d *Dialect) DisableConstraints(ctx context.Context, ex dialect.Executor, tables []schema.Table) error {
	for _, t := range tables {
		q := fmt.Sprintf("ALTER TABLE %s NOCHECK CONSTRAINT ALL", d.QuoteIdentifier(t.Name))
		if _, err := ex.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dialect) EnableConstraints(ctx context.Context, ex dialect.Executor, tables []schema.Table) error {
	for _, t := range tables {
		q := fmt.Sprintf("ALTER TABLE %s WITH CHECK CHECK CONSTRAINT ALL", d.QuoteIdentifier(t.Name))
		if _, err := ex.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dialect) SnapshotBeginStatements() []string {
	return []string{
		"SET TRANSACTION ISOLATION LEVEL SNAPSHOT",
		"BEGIN TRANSACTION",
	}
}

func (d *Dialect) SnapshotEndStatement() string { return "COMMIT TRANSACTION" }

func (d *Dialect) HeaderText() string {
	return strings.Join([]string{
		"-- migrasquiel SQL Server dump",
		"SET XACT_ABORT ON;",
		"SET QUOTED_IDENTIFIER ON;",
		"",
	}, "\n")
}

func (d *Dialect) FooterText() string { return "" }

func (d *Dialect) NewTokenizer(r io.Reader) dialect.Tokenizer {
	return dialect.NewScriptTokenizer(r, dialect.TokenizerConfig{
		DoubleQuoteIdent: true,
	})
}

// MaxBatchBytes matches the conservative default TDS packet budget
// this tool targets (spec §5).
func (d *Dialect) MaxBatchBytes() int { return 8 * 1024 * 1024 }
