// Package csvimport implements the CSV import driver of spec §4.5:
// header parsing with optional column renaming, a 100-row type
// inference sample, on-the-fly DDL synthesis when the destination
// table does not yet exist, and error-tolerant batch ingestion. It has
// no direct teacher counterpart — the teacher's own scope stops at
// schema migration — so it is built from stdlib encoding/csv (no pack
// repo imports a third-party CSV library) plumbed into the same
// dialect RenderCreateTableFromAbstract and session InsertBatch capability C2/C3 already
// built for dump/restore/migrate.
package csvimport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"migrasquiel/internal/dialect"
	"migrasquiel/internal/errs"
	"migrasquiel/internal/schema"
	"migrasquiel/internal/value"
)

// Destination is the capability import needs from a destination
// session: statement execution for DDL, table listing to decide
// whether DDL synthesis is needed, and the batch insert C3 already
// built for migrate.
type Destination interface {
	dialect.Executor
	ListTables(ctx context.Context) ([]schema.Table, error)
	InsertBatch(ctx context.Context, table schema.Table, columns []string, rows []value.Row) error
}

// Options configures one import run.
type Options struct {
	TableName  string
	ColumnMap  string // raw "csv_a:db_a,csv_b:db_b,..."; unmapped columns keep their CSV name
	BatchRows  int
	SkipErrors bool
}

const (
	defaultBatchRows = 1000
	sampleSize       = 100
	maxReportedFails = 10
)

// RowFailure records one ingestion-stage parse failure.
type RowFailure struct {
	Line   int
	Reason string
}

// Summary reports the outcome of one import run.
type Summary struct {
	Total    int
	Inserted int
	Failed   int
	Duration time.Duration
	Failures []RowFailure
}

// TopFailures returns at most the first 10 failures, the cap spec §4.5
// asks the printed summary to respect.
func (s Summary) TopFailures() []RowFailure {
	if len(s.Failures) <= maxReportedFails {
		return s.Failures
	}
	return s.Failures[:maxReportedFails]
}

// Run reads the header from inPath, infers one abstract type per
// column from up to 100 sample rows, creates opts.TableName via
// d.RenderCreateTableFromAbstract if it does not already exist on dst,
// then re-opens inPath from the top and ingests every data row in
// batches of opts.BatchRows via dst.InsertBatch.
func Run(ctx context.Context, dst Destination, d dialect.Dialect, inPath string, opts Options) (Summary, error) {
	start := time.Now()

	destCols, err := header(inPath, opts.ColumnMap)
	if err != nil {
		return Summary{}, err
	}

	types, err := inferTypes(inPath, len(destCols))
	if err != nil {
		return Summary{}, err
	}

	table := schema.Table{Name: opts.TableName}
	for i, name := range destCols {
		table.Columns = append(table.Columns, schema.Column{Name: name, Nullable: true, Abstract: types[i]})
	}

	if err := ensureTable(ctx, dst, d, table); err != nil {
		return Summary{}, err
	}

	batchRows := opts.BatchRows
	if batchRows <= 0 {
		batchRows = defaultBatchRows
	}

	summary, err := ingest(ctx, dst, table, destCols, types, inPath, batchRows, opts.SkipErrors)
	summary.Duration = time.Since(start)
	return summary, err
}

// header reads inPath's first record and applies the csv->db column
// mapping, falling back to each CSV column's own name when the
// mapping, or no mapping, is given for it (spec §4.5: "missing CSV
// columns in the mapping retain identity").
func header(inPath, columnMap string) ([]string, error) {
	f, err := os.Open(inPath)
	if err != nil {
		return nil, errs.Wrap(errs.Source, err, "open import file "+inPath, "", "")
	}
	defer f.Close()

	r := csv.NewReader(f)
	fields, err := r.Read()
	if err != nil {
		return nil, errs.Wrap(errs.Source, err, "read header of "+inPath, "", "")
	}

	mapping := parseColumnMap(columnMap)
	dest := make([]string, len(fields))
	for i, name := range fields {
		name = strings.TrimSpace(name)
		if renamed, ok := mapping[name]; ok {
			dest[i] = renamed
		} else {
			dest[i] = name
		}
	}
	return dest, nil
}

func parseColumnMap(raw string) map[string]string {
	mapping := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return mapping
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		mapping[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return mapping
}

// inferTypes scores each column's cells against the typed patterns of
// spec §4.5, in priority order Int > Float > Decimal > Bool >
// Timestamp > Date > Text, over up to 100 sample rows, and returns one
// AbstractType per column, the argmax per column with ties broken by
// priority order.
func inferTypes(inPath string, numCols int) ([]schema.AbstractType, error) {
	f, err := os.Open(inPath)
	if err != nil {
		return nil, errs.Wrap(errs.Source, err, "open import file "+inPath, "", "")
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // discard header
		return nil, errs.Wrap(errs.Source, err, "read header of "+inPath, "", "")
	}

	scores := make([]map[schema.AbstractType]int, numCols)
	for i := range scores {
		scores[i] = map[schema.AbstractType]int{}
	}

	for sampled := 0; sampled < sampleSize; sampled++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.Source, err, "sample rows of "+inPath, "", "")
		}
		for i := 0; i < numCols && i < len(record); i++ {
			cell := record[i]
			if isNullSentinel(cell) {
				continue
			}
			scores[i][classifyCell(cell)]++
		}
	}

	types := make([]schema.AbstractType, numCols)
	for i, colScores := range scores {
		types[i] = argmaxType(colScores)
	}
	return types, nil
}

// typePriority lists the abstract types in the tie-break order spec
// §4.5 names.
var typePriority = []schema.AbstractType{
	schema.AbstractInt,
	schema.AbstractFloat,
	schema.AbstractDecimal,
	schema.AbstractBool,
	schema.AbstractTimestamp,
	schema.AbstractDate,
	schema.AbstractText,
}

func argmaxType(scores map[schema.AbstractType]int) schema.AbstractType {
	best := schema.AbstractText
	bestScore := -1
	for _, t := range typePriority {
		if scores[t] > bestScore {
			best = t
			bestScore = scores[t]
		}
	}
	return best
}

func isNullSentinel(s string) bool {
	switch s {
	case "", "NULL", "null", "None":
		return true
	default:
		return false
	}
}

var (
	intPattern       = regexp.MustCompile(`^[+-]?[0-9]+$`)
	floatPattern     = regexp.MustCompile(`^[+-]?([0-9]+\.[0-9]*|\.[0-9]+)$`)
	boolPattern      = regexp.MustCompile(`(?i)^(true|false|yes|no|1|0)$`)
	timestampPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})[ T](\d{2}):(\d{2}):(\d{2})(?:\.(\d+))?(Z|[+-]\d{2}:\d{2})?$`)
	datePattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// classifyCell picks the single best-matching abstract type for one
// non-null cell, checking patterns in the same priority order the
// scoring table uses so that, e.g., "1" counts as Int rather than Bool.
func classifyCell(s string) schema.AbstractType {
	if intPattern.MatchString(s) {
		return schema.AbstractInt
	}
	if floatPattern.MatchString(s) {
		if exceedsFloat64Precision(s) {
			return schema.AbstractDecimal
		}
		return schema.AbstractFloat
	}
	if boolPattern.MatchString(s) {
		return schema.AbstractBool
	}
	if timestampPattern.MatchString(s) {
		return schema.AbstractTimestamp
	}
	if datePattern.MatchString(s) {
		return schema.AbstractDate
	}
	return schema.AbstractText
}

// exceedsFloat64Precision reports whether s carries more significant
// digits than a float64 mantissa (~15-17 decimal digits) can represent
// exactly, the condition spec §4.5 names for preferring Decimal over
// Float.
func exceedsFloat64Precision(s string) bool {
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits > 15
}

// ensureTable creates table on dst via d's abstract-DDL synthesis
// unless a table by that name already exists, reusing the RenderCreateTableFromAbstract
// capability C2 already built rather than duplicating DDL rendering.
func ensureTable(ctx context.Context, dst Destination, d dialect.Dialect, table schema.Table) error {
	existing, err := dst.ListTables(ctx)
	if err != nil {
		return err
	}
	for _, t := range existing {
		if t.Name == table.Name {
			return nil
		}
	}
	stmt, err := d.RenderCreateTableFromAbstract(table)
	if err != nil {
		return errs.Wrap(errs.SQLExecution, err, "synthesize DDL for "+table.Name, table.Name, "")
	}
	if _, err := dst.ExecContext(ctx, stmt); err != nil {
		return errs.Wrap(errs.SQLExecution, err, "create table "+table.Name, table.Name, stmt)
	}
	return nil
}

// ingest re-opens inPath from the top, skips the header, converts
// every data row to a value.Row via its column's inferred type, and
// flushes in batches of batchRows via dst.InsertBatch. A per-row parse
// failure is recorded and, when skipErrors is true, the row is
// dropped and ingestion continues; otherwise it aborts the whole
// import, the only propagation-policy exception spec §7 names.
func ingest(ctx context.Context, dst Destination, table schema.Table, destCols []string, types []schema.AbstractType, inPath string, batchRows int, skipErrors bool) (Summary, error) {
	f, err := os.Open(inPath)
	if err != nil {
		return Summary{}, errs.Wrap(errs.Source, err, "open import file "+inPath, "", "")
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // discard header
		return Summary{}, errs.Wrap(errs.Source, err, "read header of "+inPath, "", "")
	}

	var summary Summary
	var batch []value.Row
	line := 1

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := dst.InsertBatch(ctx, table, destCols, batch); err != nil {
			return errs.Wrap(errs.SQLExecution, err, "insert batch into "+table.Name, table.Name, "")
		}
		summary.Inserted += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return summary, errs.Wrap(errs.Cancelled, err, "import "+inPath, table.Name, "")
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return summary, errs.Wrap(errs.Source, err, "read row "+strconv.Itoa(line)+" of "+inPath, table.Name, "")
		}
		summary.Total++

		row, convErr := convertRow(record, types)
		if convErr != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, RowFailure{Line: line, Reason: convErr.Error()})
			if skipErrors {
				continue
			}
			_ = flush()
			return summary, errs.Wrap(errs.Source, convErr, "parse row "+strconv.Itoa(line)+" of "+inPath, table.Name, "")
		}

		batch = append(batch, row)
		if len(batch) >= batchRows {
			if err := flush(); err != nil {
				return summary, err
			}
		}
	}

	if err := flush(); err != nil {
		return summary, err
	}
	return summary, nil
}

func convertRow(record []string, types []schema.AbstractType) (value.Row, error) {
	row := make(value.Row, len(types))
	for i, t := range types {
		var cell string
		if i < len(record) {
			cell = record[i]
		}
		v, err := convertCell(cell, t)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i+1, err)
		}
		row[i] = v
	}
	return row, nil
}

func convertCell(cell string, t schema.AbstractType) (value.Value, error) {
	if isNullSentinel(cell) {
		return value.Null(), nil
	}
	switch t {
	case schema.AbstractInt:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid int %q: %w", cell, err)
		}
		return value.Int64(n), nil
	case schema.AbstractFloat:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid float %q: %w", cell, err)
		}
		return value.Float64(f), nil
	case schema.AbstractDecimal:
		v, err := value.NewDecimal(cell)
		if err != nil {
			return value.Value{}, err
		}
		return v, nil
	case schema.AbstractBool:
		b, err := parseBool(cell)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(b), nil
	case schema.AbstractTimestamp:
		return parseTimestamp(cell)
	case schema.AbstractDate:
		return parseDate(cell)
	default:
		return value.Text(cell), nil
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool %q", s)
	}
}

func parseDate(s string) (value.Value, error) {
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return value.Value{}, fmt.Errorf("invalid date %q", s)
	}
	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[5:7])
	day, _ := strconv.Atoi(s[8:10])
	return value.NewDate(year, month, day)
}

func parseTimestamp(s string) (value.Value, error) {
	m := timestampPattern.FindStringSubmatch(s)
	if m == nil {
		return value.Value{}, fmt.Errorf("invalid timestamp %q", s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	second, _ := strconv.Atoi(m[6])

	micro := 0
	if frac := m[7]; frac != "" {
		if len(frac) > 6 {
			frac = frac[:6]
		} else {
			frac = frac + strings.Repeat("0", 6-len(frac))
		}
		micro, _ = strconv.Atoi(frac)
	}

	hasOffset := false
	offsetMinutes := 0
	switch off := m[8]; {
	case off == "Z":
		hasOffset = true
	case off != "":
		sign := 1
		if off[0] == '-' {
			sign = -1
		}
		oh, _ := strconv.Atoi(off[1:3])
		om, _ := strconv.Atoi(off[4:6])
		hasOffset = true
		offsetMinutes = sign * (oh*60 + om)
	}

	return value.NewTimestamp(
		value.Date{Year: year, Month: month, Day: day},
		value.Time{Hour: hour, Minute: minute, Second: second, Microsecond: micro},
		hasOffset, offsetMinutes,
	)
}
