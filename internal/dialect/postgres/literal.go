package postgres

import (
	"fmt"
	"strconv"

	"migrasquiel/internal/dialect"
	"migrasquiel/internal/value"
)

// formatLiteral renders v as a PostgreSQL SQL literal, per spec §4.1.
// Unlike MySQL, PostgreSQL has native NaN/Infinity float literals, so
// no value is ever substituted with NULL here.
func formatLiteral(d *Dialect, v value.Value) (dialect.LiteralResult, error) {
	if v.IsNull() {
		return dialect.LiteralResult{Text: "NULL"}, nil
	}

	switch v.Kind() {
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			return dialect.LiteralResult{Text: "true"}, nil
		}
		return dialect.LiteralResult{Text: "false"}, nil

	case value.KindInt64:
		n, _ := v.AsInt64()
		return dialect.LiteralResult{Text: strconv.FormatInt(n, 10)}, nil

	case value.KindUint64:
		n, _ := v.AsUint64()
		return dialect.LiteralResult{Text: strconv.FormatUint(n, 10)}, nil

	case value.KindFloat64:
		if v.IsNaN() {
			return dialect.LiteralResult{Text: "'NaN'::float8"}, nil
		}
		if v.IsInf() {
			f, _ := v.AsFloat64()
			if f > 0 {
				return dialect.LiteralResult{Text: "'Infinity'::float8"}, nil
			}
			return dialect.LiteralResult{Text: "'-Infinity'::float8"}, nil
		}
		f, _ := v.AsFloat64()
		return dialect.LiteralResult{Text: strconv.FormatFloat(f, 'g', 17, 64)}, nil

	case value.KindDecimal:
		s, _ := v.AsDecimal()
		return dialect.LiteralResult{Text: s}, nil

	case value.KindText:
		s, _ := v.AsText()
		if !v.TextValid() {
			return dialect.LiteralResult{}, fmt.Errorf("postgres: text value is not valid UTF-8")
		}
		return dialect.LiteralResult{Text: d.quoteString(s)}, nil

	case value.KindBytes:
		b, _ := v.AsBytes()
		return dialect.LiteralResult{Text: fmt.Sprintf("'\\x%x'", b)}, nil

	case value.KindDate:
		date, _ := v.AsDate()
		return dialect.LiteralResult{Text: fmt.Sprintf("'%04d-%02d-%02d'", date.Year, date.Month, date.Day)}, nil

	case value.KindTime:
		t, _ := v.AsTime()
		return dialect.LiteralResult{Text: fmt.Sprintf("'%02d:%02d:%02d.%06d'", t.Hour, t.Minute, t.Second, t.Microsecond)}, nil

	case value.KindTimestamp:
		ts, _ := v.AsTimestamp()
		text := fmt.Sprintf("'%04d-%02d-%02d %02d:%02d:%02d.%06d",
			ts.Date.Year, ts.Date.Month, ts.Date.Day,
			ts.Time.Hour, ts.Time.Minute, ts.Time.Second, ts.Time.Microsecond)
		if ts.HasOffset {
			sign := "+"
			offset := ts.OffsetMinutes
			if offset < 0 {
				sign = "-"
				offset = -offset
			}
			text += fmt.Sprintf("%s%02d:%02d", sign, offset/60, offset%60)
		}
		text += "'"
		return dialect.LiteralResult{Text: text}, nil

	default:
		return dialect.LiteralResult{}, fmt.Errorf("postgres: unsupported value kind %v", v.Kind())
	}
}
