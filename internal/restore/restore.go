// Package restore implements the restore driver of spec §4.4: read a
// dump file statement by statement and execute it against a
// destination session, grounded directly on the teacher's
// Applier.applyWithTransaction/applyWithoutTransaction.
package restore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"migrasquiel/internal/dialect"
	"migrasquiel/internal/errs"
	"migrasquiel/internal/schema"
	"migrasquiel/internal/session"
)

// TxExecutor is the narrow capability restore needs from a running
// transaction. *session.Tx satisfies it; tests use a slice-backed fake.
type TxExecutor interface {
	dialect.Executor
	Commit() error
	Rollback() error
}

// Destination is the capability restore needs from a destination
// session: plain statement execution, an optional transaction wrapper,
// and (for --disable-fk-checks) the table list some dialects need to
// build their per-table constraint-toggle statements.
type Destination interface {
	dialect.Executor
	ListTables(ctx context.Context) ([]schema.Table, error)
	BeginTx(ctx context.Context) (TxExecutor, error)
}

// SessionDestination adapts *session.Session to Destination:
// Session.BeginTx returns the concrete *session.Tx (so non-restore
// callers keep its full API), which this wraps as the narrower
// TxExecutor interface restore tests can fake without a real database.
type SessionDestination struct {
	*session.Session
}

func (s SessionDestination) BeginTx(ctx context.Context) (TxExecutor, error) {
	return s.Session.BeginTx(ctx)
}

// Options configures one restore run.
type Options struct {
	DisableConstraints bool
	Transaction        bool
}

const statementLogFragment = 80

// Run opens inPath (transparently un-gzipping when its first two bytes
// are the gzip magic or its extension is .gz), tokenizes it with d's
// script tokenizer, and executes each statement against dst in order.
// When opts.Transaction is set, every statement runs inside one
// transaction and a single failure rolls the whole restore back;
// otherwise statements commit as they run and a failure leaves
// whatever already succeeded in place, exactly as
// Applier.applyWithoutTransaction documents.
func Run(ctx context.Context, dst Destination, d dialect.Dialect, inPath string, opts Options, log *zap.SugaredLogger) error {
	reader, closeReader, err := openScript(inPath)
	if err != nil {
		return err
	}
	defer func() { _ = closeReader() }()

	if opts.DisableConstraints {
		tables, err := dst.ListTables(ctx)
		if err != nil {
			return err
		}
		if err := d.DisableConstraints(ctx, dst, tables); err != nil {
			return errs.Wrap(errs.SQLExecution, err, "disable constraints", "", "")
		}
		defer func() { _ = d.EnableConstraints(ctx, dst, tables) }()
	}

	var exec dialect.Executor = dst
	var tx TxExecutor
	if opts.Transaction {
		tx, err = dst.BeginTx(ctx)
		if err != nil {
			return err
		}
		exec = tx
	}

	tok := d.NewTokenizer(reader)
	index := 0
	for {
		if err := ctx.Err(); err != nil {
			return rollbackAndWrap(tx, errs.Wrap(errs.Cancelled, err, "restore from "+inPath, "", ""))
		}
		stmt, err := tok.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rollbackAndWrap(tx, errs.Wrap(errs.SQLExecution, err, "tokenize "+inPath, "", ""))
		}
		index++

		start := time.Now()
		_, execErr := exec.ExecContext(ctx, stmt)
		elapsed := time.Since(start)
		if execErr != nil {
			if log != nil {
				log.Warnw("statement failed", "index", index, "statement", truncate(stmt, statementLogFragment))
			}
			return rollbackAndWrap(tx, errs.Wrap(errs.SQLExecution, execErr, fmt.Sprintf("execute statement %d", index), "", stmt))
		}
		if log != nil {
			log.Infow("statement applied", "index", index, "elapsed_ms", elapsed.Milliseconds())
		}
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func rollbackAndWrap(tx TxExecutor, err error) error {
	if tx != nil {
		_ = tx.Rollback()
	}
	return err
}

// openScript opens inPath and, if its first two bytes are the gzip
// magic (0x1F 0x8B) or its extension is .gz, wraps it in a streaming
// gzip decoder. The returned close func releases both the decoder (if
// any) and the underlying file.
func openScript(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errs.Wrap(errs.Source, err, "open restore file "+path, "", "")
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	looksGzipped := err == nil && len(magic) == 2 && magic[0] == 0x1F && magic[1] == 0x8B
	if looksGzipped || strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(br)
		if err != nil {
			_ = f.Close()
			return nil, nil, errs.Wrap(errs.Source, err, "open gzip reader for "+path, "", "")
		}
		return gr, func() error {
			gerr := gr.Close()
			ferr := f.Close()
			if gerr != nil {
				return gerr
			}
			return ferr
		}, nil
	}
	return br, f.Close, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
