package mysql

import (
	"fmt"
	"strconv"

	"migrasquiel/internal/dialect"
	"migrasquiel/internal/value"
)

// formatLiteral renders v as a MySQL SQL literal, per spec §4.1. MySQL
// has no native NaN/Infinity literal, so those float values become
// NULL with a diagnostic warning in LiteralResult.Warning. RenderInsert
// (via dialect.RenderInsertMultiRow) keeps only the literal text, so
// the warning is not shown to the operator during dump or migrate.
func formatLiteral(d *Dialect, v value.Value) (dialect.LiteralResult, error) {
	if v.IsNull() {
		return dialect.LiteralResult{Text: "NULL"}, nil
	}

	switch v.Kind() {
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			return dialect.LiteralResult{Text: "1"}, nil
		}
		return dialect.LiteralResult{Text: "0"}, nil

	case value.KindInt64:
		n, _ := v.AsInt64()
		return dialect.LiteralResult{Text: strconv.FormatInt(n, 10)}, nil

	case value.KindUint64:
		n, _ := v.AsUint64()
		return dialect.LiteralResult{Text: strconv.FormatUint(n, 10)}, nil

	case value.KindFloat64:
		f, _ := v.AsFloat64()
		if v.IsNaN() {
			return dialect.LiteralResult{Text: "NULL", Warning: "NaN has no MySQL literal; substituted NULL"}, nil
		}
		if v.IsInf() {
			return dialect.LiteralResult{Text: "NULL", Warning: "Infinity has no MySQL literal; substituted NULL"}, nil
		}
		return dialect.LiteralResult{Text: strconv.FormatFloat(f, 'g', 17, 64)}, nil

	case value.KindDecimal:
		s, _ := v.AsDecimal()
		return dialect.LiteralResult{Text: s}, nil

	case value.KindText:
		s, _ := v.AsText()
		if !v.TextValid() {
			return dialect.LiteralResult{}, fmt.Errorf("mysql: text value is not valid UTF-8")
		}
		return dialect.LiteralResult{Text: d.quoteString(s)}, nil

	case value.KindBytes:
		b, _ := v.AsBytes()
		return dialect.LiteralResult{Text: fmt.Sprintf("0x%X", b)}, nil

	case value.KindDate:
		date, _ := v.AsDate()
		return dialect.LiteralResult{Text: fmt.Sprintf("'%04d-%02d-%02d'", date.Year, date.Month, date.Day)}, nil

	case value.KindTime:
		t, _ := v.AsTime()
		return dialect.LiteralResult{Text: fmt.Sprintf("'%02d:%02d:%02d.%06d'", t.Hour, t.Minute, t.Second, t.Microsecond)}, nil

	case value.KindTimestamp:
		ts, _ := v.AsTimestamp()
		// MySQL DATETIME/TIMESTAMP carries no UTC offset; any source
		// offset is dropped, matching the server's own wall-clock semantics.
		return dialect.LiteralResult{Text: fmt.Sprintf("'%04d-%02d-%02d %02d:%02d:%02d.%06d'",
			ts.Date.Year, ts.Date.Month, ts.Date.Day,
			ts.Time.Hour, ts.Time.Minute, ts.Time.Second, ts.Time.Microsecond)}, nil

	default:
		return dialect.LiteralResult{}, fmt.Errorf("mysql: unsupported value kind %v", v.Kind())
	}
}
