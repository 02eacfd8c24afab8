// Package dump wires a source session through the pipeline into a
// text SQL file: the dump driver of spec §4.4, grounded on the
// teacher's cmd/smf writeOutput/printInfo helpers for file handling
// and on Applier's printf-style progress output.
package dump

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"migrasquiel/internal/dialect"
	"migrasquiel/internal/errs"
	"migrasquiel/internal/pipeline"
	"migrasquiel/internal/schema"
	"migrasquiel/internal/value"
)

// Options configures one dump run.
type Options struct {
	Filter             pipeline.TableFilter
	ConsistentSnapshot bool
	DisableConstraints bool
	SchemaOnly         bool
	DataOnly           bool
	BatchRows          int
	Gzip               bool // force gzip framing regardless of the output path's extension
}

// Source is the narrow capability dump needs from a source session:
// table listing, row streaming, and (if requested) constraint/snapshot
// control and SQL execution for those control statements.
type Source interface {
	pipeline.Source
	dialect.Executor
}

// Run streams src's selected tables to outPath as dialect SQL text.
// When outPath ends in ".gz" or opts.Gzip is set, the output is
// gzip-framed via a streaming encoder, the same way restore transparently
// un-frames it on the way back in.
func Run(ctx context.Context, src Source, d dialect.Dialect, outPath string, opts Options, reporter *pipeline.Reporter) error {
	f, err := os.Create(outPath)
	if err != nil {
		return errs.Wrap(errs.Sink, err, "create dump file "+outPath, "", "")
	}
	defer func() { _ = f.Close() }()

	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	gz := opts.Gzip || strings.HasSuffix(outPath, ".gz")
	var gzw *gzip.Writer
	if gz {
		gzw = gzip.NewWriter(bw)
		w = gzw
	}

	sink := &fileSink{w: w, d: d}
	if _, err := io.WriteString(w, d.HeaderText()); err != nil {
		return errs.Wrap(errs.Sink, err, "write dump header", "", "")
	}

	runErr := pipeline.Run(ctx, src, sink, d, src, pipeline.Options{
		Filter:             opts.Filter,
		ConsistentSnapshot: opts.ConsistentSnapshot,
		DisableConstraints: opts.DisableConstraints,
		SchemaOnly:         opts.SchemaOnly,
		DataOnly:           opts.DataOnly,
		BatchRowCap:        opts.BatchRows,
	}, reporter)

	if runErr == nil {
		if _, err := io.WriteString(w, d.FooterText()); err != nil {
			runErr = errs.Wrap(errs.Sink, err, "write dump footer", "", "")
		}
	}

	if gzw != nil {
		if err := gzw.Close(); err != nil && runErr == nil {
			runErr = errs.Wrap(errs.Sink, err, "close gzip encoder for "+outPath, "", "")
		}
	}
	if err := bw.Flush(); err != nil && runErr == nil {
		runErr = errs.Wrap(errs.Sink, err, "flush dump file "+outPath, "", "")
	}
	return runErr
}

// fileSink renders each table's DDL and DML as dialect SQL text,
// implementing pipeline.Sink the same way the teacher's output
// formatters render one document section at a time.
type fileSink struct {
	w io.Writer
	d dialect.Dialect
}

func (s *fileSink) BeginTable(ctx context.Context, table schema.Table) error {
	_, err := fmt.Fprintf(s.w, "\n-- table %s\n", table.QualifiedName())
	return err
}

func (s *fileSink) WriteCreateTable(ctx context.Context, table schema.Table) error {
	_, err := io.WriteString(s.w, s.d.RenderCreateTable(table)+"\n")
	return err
}

func (s *fileSink) WriteRowBatch(ctx context.Context, table schema.Table, columns []string, rows []value.Row) error {
	stmt, err := s.d.RenderInsert(table, columns, rows)
	if err != nil {
		return err
	}
	_, err = io.WriteString(s.w, stmt)
	return err
}

func (s *fileSink) EndTable(ctx context.Context, table schema.Table) error {
	return nil
}
