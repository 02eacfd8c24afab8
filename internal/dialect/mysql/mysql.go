// Package mysql implements the dialect.Dialect contract for MySQL,
// MariaDB and TiDB. Identifier quoting and string-literal escaping
// follow the same rules the teacher's schema-diff generator used
// (backtick doubling, backslash escaping of control characters),
// generalized here to the full literal/DDL/tokenizer contract the
// dump/restore/migrate pipeline needs.
package mysql

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
	dialect.Register(dialect.MySQL, func() dialect.Dialect { return &Dialect{} })
}

// Dialect implements dialect.Dialect for MySQL/MariaDB/TiDB.
type Dialect struct{}

func (d *Dialect) Name() dialect.Type { return dialect.MySQL }

// QuoteIdentifier wraps name in backticks, doubling any embedded backtick.
func (d *Dialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *Dialect) quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		case '\x00':
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\x1a':
			b.WriteString(`\Z`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func (d *Dialect) FormatLiteral(v value.Value) (dialect.LiteralResult, error) {
	return formatLiteral(d, v)
}

func (d *Dialect) RenderInsert(table schema.Table, columns []string, rows []value.Row) (string, error) {
	return dialect.RenderInsertMultiRow(d, table, columns, rows)
}

func (d *Dialect) RenderCreateTable(t schema.Table) string {
	text := strings.TrimSpace(t.CreateTableText)
	if text == "" {
		return ""
	}
	return rewriteCreateIfNotExists(text)
}

// rewriteCreateIfNotExists inserts "IF NOT EXISTS" after the first
// "CREATE TABLE" token, so restoring into a database that already has
// the table (e.g. a retried restore) does not abort.
func rewriteCreateIfNotExists(stmt string) string {
	upper := strings.ToUpper(stmt)
	const marker = "CREATE TABLE"
	idx := strings.Index(upper, marker)
	if idx < 0 {
		return stmt
	}
	if strings.Contains(upper[idx:idx+min(len(upper)-idx, len(marker)+20)], "IF NOT EXISTS") {
		return stmt
	}
	return stmt[:idx] + "CREATE TABLE IF NOT EXISTS" + stmt[idx+len(marker):]
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
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;\n",
		d.QuoteIdentifier(t.Name), strings.Join(lines, ",\n"))
	return stmt, nil
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
		return "TINYINT(1)", nil
	case schema.AbstractDate:
		return "DATE", nil
	case schema.AbstractTimestamp:
		return "TIMESTAMP", nil
	case schema.AbstractBytes:
		return "BLOB", nil
	case schema.AbstractText:
		return "VARCHAR(255)", nil
	default:
		return "", fmt.Errorf("mysql: unknown abstract type %q", t)
	}
}

func (d *Dialect) DisableConstraints(ctx context.Context, ex dialect.Executor, _ []schema.Table) error {
	_, err := ex.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS=0")
	return err
}

func (d *Dialect) EnableConstraints(ctx context.Context, ex dialect.Executor, _ []schema.Table) error {
	_, err := ex.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS=1")
	return err
}

func (d *Dialect) SnapshotBeginStatements() []string {
	return []string{
		"SET TRANSACTION ISOLATION LEVEL REPEATABLE READ",
		"START TRANSACTION WITH CONSISTENT SNAPSHOT",
	}
}

func (d *Dialect) SnapshotEndStatement() string { return "COMMIT" }

func (d *Dialect) HeaderText() string {
	return strings.Join([]string{
		"-- migrasquiel MySQL dump",
		"SET @OLD_FOREIGN_KEY_CHECKS=@@FOREIGN_KEY_CHECKS;",
		"SET @OLD_SQL_MODE=@@SQL_MODE;",
		"SET NAMES utf8mb4;",
		"SET FOREIGN_KEY_CHECKS=0;",
		"",
	}, "\n")
}

func (d *Dialect) FooterText() string {
	return strings.Join([]string{
		"SET FOREIGN_KEY_CHECKS=@OLD_FOREIGN_KEY_CHECKS;",
		"SET SQL_MODE=@OLD_SQL_MODE;",
		"",
	}, "\n")
}

func (d *Dialect) NewTokenizer(r io.Reader) dialect.Tokenizer {
	return dialect.NewScriptTokenizer(r, dialect.TokenizerConfig{
		BacktickIdent:   true,
		BackslashEscape: true,
	})
}

// MaxBatchBytes is a conservative fraction of MySQL's default
// max_allowed_packet (64 MiB), per spec §5.
func (d *Dialect) MaxBatchBytes() int { return 4 * 1024 * 1024 }
