package pipeline

import (
	"fmt"
	"io"

	"github.com/cheggaaa/pb/v3"
	"go.uber.org/zap"
)

// Reporter tracks per-table and overall row progress. When out is
// non-nil and the estimated total is positive, it also drives a
// cheggaaa/pb progress bar; either way it
// logs a structured line per table via log, the way the teacher logs
// step-by-step progress in internal/apply.Applier (there via plain
// printf lines to an io.Writer; here via the project's SugaredLogger).
type Reporter struct {
	out io.Writer
	log *zap.SugaredLogger
	bar *pb.ProgressBar
}

// NewReporter builds a Reporter. total is the sum of every table's
// RowCountEstimate (negative estimates are treated as zero); it only
// seeds the bar's ETA and is never used for correctness.
func NewReporter(out io.Writer, log *zap.SugaredLogger, total int64) *Reporter {
	r := &Reporter{out: out, log: log}
	if out != nil && total > 0 {
		r.bar = pb.New64(total)
		r.bar.SetTemplateString(`{{counters . }} {{bar . }} {{percent . }} {{etime . }}`)
		r.bar.SetWriter(out)
		r.bar.Start()
	}
	return r
}

// StartTable announces the start of processing one table.
func (r *Reporter) StartTable(table string, estimate int64) {
	if r.log != nil {
		r.log.Infow("starting table", "table", table, "estimated_rows", estimate)
	}
}

// AddRows records n additional rows processed, advancing the bar.
func (r *Reporter) AddRows(n int64) {
	if r.bar != nil {
		r.bar.Add64(n)
	}
}

// FinishTable announces a table's completion.
func (r *Reporter) FinishTable(table string, rows int64) {
	if r.log != nil {
		r.log.Infow("finished table", "table", table, "rows", rows)
	}
}

// Close finalizes the progress bar, if one is running.
func (r *Reporter) Close() {
	if r.bar != nil {
		r.bar.Finish()
	}
}

// Warn surfaces a non-fatal diagnostic (e.g. a dialect literal
// substitution warning) to both the log and, if attached, stderr-style
// output.
func (r *Reporter) Warn(table, msg string) {
	if r.log != nil {
		r.log.Warnw(msg, "table", table)
	}
	if r.out != nil && r.bar == nil {
		fmt.Fprintf(r.out, "warning: %s: %s\n", table, msg)
	}
}
