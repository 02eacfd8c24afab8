// Package value provides a dialect-neutral representation of a single
// database column value. Every row read from a source session, carried
// through the pipeline, and written to a sink is a slice of Value.
package value

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Kind identifies which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindUint64
	KindFloat64
	KindDecimal
	KindText
	KindBytes
	KindDate
	KindTime
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindFloat64:
		return "float64"
	case KindDecimal:
		return "decimal"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Date is a Gregorian calendar date with no time-of-day component.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Time is a wall-clock time with microsecond resolution.
type Time struct {
	Hour        int
	Minute      int
	Second      int
	Microsecond int
}

// Timestamp is a Date plus a Time, with an optional UTC offset. When
// HasOffset is false, OffsetMinutes is meaningless and the instant is
// dialect wall-clock (no timezone attached).
type Timestamp struct {
	Date          Date
	Time          Time
	HasOffset     bool
	OffsetMinutes int
}

// Value is a tagged variant carrying exactly one of the kinds a column
// cell can take across MySQL, PostgreSQL and SQL Server. Only the
// field matching Kind is meaningful; the rest are zero.
type Value struct {
	kind      Kind
	boolVal   bool
	int64Val  int64
	uint64Val uint64
	floatVal  float64
	decimal   string // normalized decimal string, e.g. "-12345.67"
	text      string
	bytes     []byte
	date      Date
	time      Time
	timestamp Timestamp
}

// Null returns the Null variant.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// Int64 wraps a signed 64-bit integer.
func Int64(v int64) Value { return Value{kind: KindInt64, int64Val: v} }

// Uint64 wraps an unsigned 64-bit integer. Used to carry MySQL's
// unsigned BIGINT without silently truncating values above MaxInt64.
func Uint64(v uint64) Value { return Value{kind: KindUint64, uint64Val: v} }

// Float64 wraps an IEEE-754 double, including NaN and +/-Inf.
func Float64(v float64) Value { return Value{kind: KindFloat64, floatVal: v} }

// Decimal wraps a normalized arbitrary-precision decimal string. The
// caller is responsible for normalization (NewDecimal does this).
func Decimal(normalized string) Value { return Value{kind: KindDecimal, decimal: normalized} }

// NewDecimal normalizes s (at most one leading sign, at most one
// decimal point) via shopspring/decimal and returns the Decimal
// variant, or an error if s is not a valid decimal literal.
func NewDecimal(s string) (Value, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Value{}, fmt.Errorf("value: invalid decimal %q: %w", s, err)
	}
	return Decimal(d.String()), nil
}

// Text wraps a UTF-8 string. The caller must ensure s is well-formed
// UTF-8; AsText reports malformed input via TextValid.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Bytes wraps an opaque byte sequence.
func Bytes(b []byte) Value { return Value{kind: KindBytes, bytes: b} }

// NewDate constructs a Date value after validating the Gregorian range.
func NewDate(year, month, day int) (Value, error) {
	d := Date{Year: year, Month: month, Day: day}
	if err := validateDate(d); err != nil {
		return Value{}, err
	}
	return Value{kind: KindDate, date: d}, nil
}

// NewTime constructs a Time value after validating component ranges.
func NewTime(hour, minute, second, microsecond int) (Value, error) {
	t := Time{Hour: hour, Minute: minute, Second: second, Microsecond: microsecond}
	if err := validateTime(t); err != nil {
		return Value{}, err
	}
	return Value{kind: KindTime, time: t}, nil
}

// NewTimestamp constructs a Timestamp value, optionally carrying a UTC
// offset in minutes (PostgreSQL timestamptz).
func NewTimestamp(d Date, t Time, hasOffset bool, offsetMinutes int) (Value, error) {
	if err := validateDate(d); err != nil {
		return Value{}, err
	}
	if err := validateTime(t); err != nil {
		return Value{}, err
	}
	return Value{kind: KindTimestamp, timestamp: Timestamp{Date: d, Time: t, HasOffset: hasOffset, OffsetMinutes: offsetMinutes}}, nil
}

func validateDate(d Date) error {
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("value: month %d out of range", d.Month)
	}
	maxDay := daysInMonth(d.Year, d.Month)
	if d.Day < 1 || d.Day > maxDay {
		return fmt.Errorf("value: day %d out of range for %04d-%02d", d.Day, d.Year, d.Month)
	}
	return nil
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func validateTime(t Time) error {
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("value: hour %d out of range", t.Hour)
	}
	if t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("value: minute %d out of range", t.Minute)
	}
	if t.Second < 0 || t.Second > 59 {
		return fmt.Errorf("value: second %d out of range", t.Second)
	}
	if t.Microsecond < 0 || t.Microsecond > 999999 {
		return fmt.Errorf("value: microsecond %d out of range", t.Microsecond)
	}
	return nil
}

// Kind reports which variant is populated.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the Null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the Bool payload and whether v is a Bool.
func (v Value) AsBool() (bool, bool) { return v.boolVal, v.kind == KindBool }

// AsInt64 returns the Int64 payload and whether v is an Int64.
func (v Value) AsInt64() (int64, bool) { return v.int64Val, v.kind == KindInt64 }

// AsUint64 returns the Uint64 payload and whether v is a Uint64.
func (v Value) AsUint64() (uint64, bool) { return v.uint64Val, v.kind == KindUint64 }

// AsFloat64 returns the Float64 payload and whether v is a Float64.
func (v Value) AsFloat64() (float64, bool) { return v.floatVal, v.kind == KindFloat64 }

// AsDecimal returns the normalized decimal string and whether v is a Decimal.
func (v Value) AsDecimal() (string, bool) { return v.decimal, v.kind == KindDecimal }

// AsText returns the string payload and whether v is Text.
func (v Value) AsText() (string, bool) { return v.text, v.kind == KindText }

// TextValid reports whether a Text value is well-formed UTF-8.
func (v Value) TextValid() bool { return v.kind != KindText || utf8.ValidString(v.text) }

// AsBytes returns the byte payload and whether v is Bytes.
func (v Value) AsBytes() ([]byte, bool) { return v.bytes, v.kind == KindBytes }

// AsDate returns the Date payload and whether v is a Date.
func (v Value) AsDate() (Date, bool) { return v.date, v.kind == KindDate }

// AsTime returns the Time payload and whether v is a Time.
func (v Value) AsTime() (Time, bool) { return v.time, v.kind == KindTime }

// AsTimestamp returns the Timestamp payload and whether v is a Timestamp.
func (v Value) AsTimestamp() (Timestamp, bool) { return v.timestamp, v.kind == KindTimestamp }

// IsNaN reports whether v is a Float64 NaN.
func (v Value) IsNaN() bool { return v.kind == KindFloat64 && math.IsNaN(v.floatVal) }

// IsInf reports whether v is a Float64 +/-Inf.
func (v Value) IsInf() bool { return v.kind == KindFloat64 && math.IsInf(v.floatVal, 0) }

// Equal reports whether two Values carry the same kind and payload,
// using exact IEEE-754 bit comparison for Float64 so that round-trip
// tests can distinguish -0.0 from 0.0 and preserve NaN bit patterns.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolVal == o.boolVal
	case KindInt64:
		return v.int64Val == o.int64Val
	case KindUint64:
		return v.uint64Val == o.uint64Val
	case KindFloat64:
		return math.Float64bits(v.floatVal) == math.Float64bits(o.floatVal)
	case KindDecimal:
		return v.decimal == o.decimal
	case KindText:
		return v.text == o.text
	case KindBytes:
		return string(v.bytes) == string(o.bytes)
	case KindDate:
		return v.date == o.date
	case KindTime:
		return v.time == o.time
	case KindTimestamp:
		return v.timestamp == o.timestamp
	default:
		return false
	}
}

// Row is an ordered sequence of Values with arity matching a Column list.
type Row []Value
