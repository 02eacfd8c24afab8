// Package pipeline implements the table-selection, DDL/DML
// interleaving, batching and cleanup algorithm shared by dump and
// migrate: both read tables from a Source and write them to a Sink,
// differing only in what the Sink does with each statement (write
// literal SQL to a file, or execute directly against a destination
// session).
package pipeline

import (
	"context"

	"migrasquiel/internal/dialect"
	"migrasquiel/internal/errs"
	"migrasquiel/internal/schema"
	"migrasquiel/internal/session"
	"migrasquiel/internal/value"
)

// RowStream yields one table's rows in caller-sized batches.
// *session.RowCursor satisfies this; tests use a slice-backed fake.
type RowStream interface {
	Next(batchSize int) ([]value.Row, error)
	Close() error
}

// Source supplies the tables and row cursors a pipeline run consumes.
type Source interface {
	ListTables(ctx context.Context) ([]schema.Table, error)
	StreamRows(ctx context.Context, table schema.Table) (RowStream, error)
}

// SessionSource adapts *session.Session to Source: Session.StreamRows
// returns the concrete *session.RowCursor (so non-pipeline callers keep
// its full API), which this wraps as the narrower RowStream interface
// pipeline tests can fake without a real database.
type SessionSource struct {
	*session.Session
}

func (s SessionSource) StreamRows(ctx context.Context, table schema.Table) (RowStream, error) {
	return s.Session.StreamRows(ctx, table)
}

// SnapshotSource is implemented by sources that can hold a consistent,
// repeatable-read snapshot across every table in a run.
type SnapshotSource interface {
	BeginSnapshot(ctx context.Context) error
	EndSnapshot(ctx context.Context) error
}

// ConstraintSource is implemented by sources whose destination-side
// counterpart needs foreign keys toggled off for the duration of a run
// (always true for *session.Session, which implements dialect.Executor).
type ConstraintSource = dialect.Executor

// Sink receives one run's output: either a dump file writer or a
// destination session, see dump's fileSink / migrate's sessionSink.
type Sink interface {
	BeginTable(ctx context.Context, table schema.Table) error
	WriteCreateTable(ctx context.Context, table schema.Table) error
	WriteRowBatch(ctx context.Context, table schema.Table, columns []string, rows []value.Row) error
	EndTable(ctx context.Context, table schema.Table) error
}

// Options configures one pipeline run.
type Options struct {
	Filter             TableFilter
	ConsistentSnapshot bool
	DisableConstraints bool
	SchemaOnly         bool // skip row streaming; CREATE TABLE only
	DataOnly           bool // skip CREATE TABLE; rows only
	BatchRowCap        int  // rows per batch; the dialect's MaxBatchBytes caps bytes independently
}

const defaultBatchRowCap = 1000

// Run executes one dump or migrate pass: it lists tables from src,
// applies opts.Filter, optionally opens a consistent snapshot, streams
// each table's rows to sink in row-capped batches, and reports
// progress via reporter (which may be nil). Constraint re-enable and
// snapshot-end run as deferred, guarded cleanup on a context detached
// from ctx's cancellation, so they execute on
// every exit path, including ctx cancellation and mid-run errors —
// the same guarantee the teacher's Applier gives its transaction
// rollback in applyWithTransaction.
func Run(ctx context.Context, src Source, sink Sink, d dialect.Dialect, execTarget dialect.Executor, opts Options, reporter *Reporter) error {
	tables, err := src.ListTables(ctx)
	if err != nil {
		return err
	}
	tables = opts.Filter.Apply(tables)

	if opts.DisableConstraints && execTarget != nil {
		if err := d.DisableConstraints(ctx, execTarget, tables); err != nil {
			return errs.Wrap(errs.Source, err, "disable constraints", "", "")
		}
		defer func() {
			_ = d.EnableConstraints(context.WithoutCancel(ctx), execTarget, tables)
		}()
	}

	if opts.ConsistentSnapshot {
		snap, ok := src.(SnapshotSource)
		if !ok {
			return errs.New(errs.IllegalState, "begin consistent snapshot", "source does not support consistent snapshots")
		}
		if err := snap.BeginSnapshot(ctx); err != nil {
			return err
		}
		defer func() {
			_ = snap.EndSnapshot(context.WithoutCancel(ctx))
		}()
	}

	batchCap := opts.BatchRowCap
	if batchCap <= 0 {
		batchCap = defaultBatchRowCap
	}

	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return errs.Wrap(errs.Cancelled, err, "process table "+table.QualifiedName(), table.Name, "")
		}
		if err := processTable(ctx, src, sink, d, table, batchCap, opts, reporter); err != nil {
			return err
		}
	}
	return nil
}

// processTable handles one table per spec step 4: CREATE TABLE unless
// data-only, then rows unless schema-only.
func processTable(ctx context.Context, src Source, sink Sink, d dialect.Dialect, table schema.Table, batchCap int, opts Options, reporter *Reporter) error {
	if reporter != nil {
		reporter.StartTable(table.QualifiedName(), table.RowCountEstimate)
	}

	if err := sink.BeginTable(ctx, table); err != nil {
		return errs.Wrap(errs.Sink, err, "begin table "+table.QualifiedName(), table.Name, "")
	}

	if !opts.DataOnly {
		if err := sink.WriteCreateTable(ctx, table); err != nil {
			return errs.Wrap(errs.Sink, err, "write create table for "+table.QualifiedName(), table.Name, "")
		}
	}

	var total int64
	if !opts.SchemaOnly {
		var err error
		total, err = streamTableRows(ctx, src, sink, d, table, batchCap, reporter)
		if err != nil {
			return err
		}
	}

	if err := sink.EndTable(ctx, table); err != nil {
		return errs.Wrap(errs.Sink, err, "end table "+table.QualifiedName(), table.Name, "")
	}
	if reporter != nil {
		reporter.FinishTable(table.QualifiedName(), total)
	}
	return nil
}

func streamTableRows(ctx context.Context, src Source, sink Sink, d dialect.Dialect, table schema.Table, batchCap int, reporter *Reporter) (int64, error) {
	cursor, err := src.StreamRows(ctx, table)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	columns := table.ColumnNames()
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, errs.Wrap(errs.Cancelled, err, "stream rows from "+table.QualifiedName(), table.Name, "")
		}
		batch, err := cursor.Next(batchCap)
		if err != nil {
			return total, errs.Wrap(errs.Source, err, "read rows from "+table.QualifiedName(), table.Name, "")
		}
		if len(batch) == 0 {
			break
		}
		if err := writeRowBatchWithinCap(ctx, sink, d, table, columns, batch); err != nil {
			return total, err
		}
		total += int64(len(batch))
		if reporter != nil {
			reporter.AddRows(int64(len(batch)))
		}
		if len(batch) < batchCap {
			break
		}
	}
	return total, nil
}

// writeRowBatchWithinCap renders batch as d would render it and, if the
// result would exceed d.MaxBatchBytes, halves the batch and recurses on
// each half, preserving row order, until every piece renders under the
// cap or can no longer be split (a single oversized row is sent as-is;
// the dialect's own statement-size limit is its problem to report).
func writeRowBatchWithinCap(ctx context.Context, sink Sink, d dialect.Dialect, table schema.Table, columns []string, batch []value.Row) error {
	if d == nil || len(batch) <= 1 {
		return writeRowBatch(ctx, sink, table, columns, batch)
	}
	maxBytes := d.MaxBatchBytes()
	if maxBytes <= 0 {
		return writeRowBatch(ctx, sink, table, columns, batch)
	}
	if rendered, err := d.RenderInsert(table, columns, batch); err == nil && len(rendered) <= maxBytes {
		return writeRowBatch(ctx, sink, table, columns, batch)
	}

	mid := len(batch) / 2
	if err := writeRowBatchWithinCap(ctx, sink, d, table, columns, batch[:mid]); err != nil {
		return err
	}
	return writeRowBatchWithinCap(ctx, sink, d, table, columns, batch[mid:])
}

func writeRowBatch(ctx context.Context, sink Sink, table schema.Table, columns []string, batch []value.Row) error {
	if err := sink.WriteRowBatch(ctx, table, columns, batch); err != nil {
		return errs.Wrap(errs.Sink, err, "write rows for "+table.QualifiedName(), table.Name, "")
	}
	return nil
}
