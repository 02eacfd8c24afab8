// Package migrate implements the migrate driver of spec §4.4: source
// and destination sessions wired together directly through the
// pipeline, with no file, no gzip framing and no script tokenizer in
// between. It is grounded on the teacher's Applier for statement
// execution and on DGarbs51-lcmigrate's BaseTransferer for running a
// table-by-table transfer between two live connections.
package migrate

import (
	"context"

	"migrasquiel/internal/dialect"
	"migrasquiel/internal/errs"
	"migrasquiel/internal/pipeline"
	"migrasquiel/internal/schema"
	"migrasquiel/internal/value"
)

// Source is the capability migrate needs from the source session:
// table listing and row streaming for the pipeline, plus statement
// execution for the source side of a consistent-snapshot window.
type Source interface {
	pipeline.Source
	dialect.Executor
}

// Destination is the capability migrate needs from the destination
// session: statement execution for CREATE TABLE/INSERT and constraint
// toggles, plus ListTables. Run builds the toggle statements from the
// source's filtered table list, not from dst.ListTables.
type Destination interface {
	dialect.Executor
	ListTables(ctx context.Context) ([]schema.Table, error)
}

// Options configures one migrate run.
type Options struct {
	Filter             pipeline.TableFilter
	ConsistentSnapshot bool
	DisableConstraints bool
	SchemaOnly         bool
	DataOnly           bool
	BatchRows          int
}

// Run streams src's selected tables directly into dst. Cross-dialect
// migration carries data only, with no DDL translation: a CREATE
// TABLE is only emitted when srcDialect and
// dstDialect are the same family; INSERTs are rendered with whichever
// dialect produced the rows that the destination actually understands:
// the source's, when the two dialects match, otherwise the
// destination's, built from the same dialect-neutral Value rows.
func Run(ctx context.Context, src Source, srcDialect dialect.Dialect, dst Destination, dstDialect dialect.Dialect, opts Options, reporter *pipeline.Reporter) error {
	sameDialect := srcDialect.Name() == dstDialect.Name()

	schemaOnly := opts.SchemaOnly
	dataOnly := opts.DataOnly
	if !sameDialect {
		if schemaOnly {
			return errs.New(errs.IllegalState, "migrate schema across dialects",
				"cross-dialect migration carries data only; the destination schema must already exist")
		}
		dataOnly = true
	}

	insertDialect := srcDialect
	if !sameDialect {
		insertDialect = dstDialect
	}

	sink := &sessionSink{dst: dst, ddl: srcDialect, insert: insertDialect}

	return pipeline.Run(ctx, src, sink, dstDialect, dst, pipeline.Options{
		Filter:             opts.Filter,
		ConsistentSnapshot: opts.ConsistentSnapshot,
		DisableConstraints: opts.DisableConstraints,
		SchemaOnly:         schemaOnly,
		DataOnly:           dataOnly,
		BatchRowCap:        opts.BatchRows,
	}, reporter)
}

// sessionSink implements pipeline.Sink by executing rendered DDL/DML
// directly against the destination, skipping the dump path's text
// file and the restore path's tokenizer entirely.
type sessionSink struct {
	dst    Destination
	ddl    dialect.Dialect // renders CREATE TABLE; only reached when dialects match
	insert dialect.Dialect // renders INSERT; source's dialect on the fast path, sink's otherwise
}

func (s *sessionSink) BeginTable(ctx context.Context, table schema.Table) error { return nil }

func (s *sessionSink) WriteCreateTable(ctx context.Context, table schema.Table) error {
	stmt := s.ddl.RenderCreateTable(table)
	if _, err := s.dst.ExecContext(ctx, stmt); err != nil {
		return errs.Wrap(errs.SQLExecution, err, "create table "+table.QualifiedName(), table.Name, stmt)
	}
	return nil
}

func (s *sessionSink) WriteRowBatch(ctx context.Context, table schema.Table, columns []string, rows []value.Row) error {
	stmt, err := s.insert.RenderInsert(table, columns, rows)
	if err != nil {
		return errs.Wrap(errs.Sink, err, "render insert for "+table.QualifiedName(), table.Name, "")
	}
	if _, err := s.dst.ExecContext(ctx, stmt); err != nil {
		return errs.Wrap(errs.SQLExecution, err, "insert rows into "+table.QualifiedName(), table.Name, stmt)
	}
	return nil
}

func (s *sessionSink) EndTable(ctx context.Context, table schema.Table) error { return nil }
