// Package errs implements the error taxonomy of the CLI: every error
// that escapes to main carries a Kind, which maps to the exit code
// contract the CLI promises callers.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies one of the seven error classes the CLI distinguishes.
type Kind int

const (
	// Usage covers bad flags or a missing URL.
	Usage Kind = iota
	// Connect covers driver handshake, TLS, and auth failures.
	Connect
	// Source covers introspection or cursor-read failures.
	Source
	// Sink covers file I/O or destination-write failures.
	Sink
	// SQLExecution covers a failed statement during restore/migrate.
	SQLExecution
	// Cancelled covers operator cancellation (SIGINT/SIGTERM).
	Cancelled
	// IllegalState covers API misuse, e.g. a nested snapshot.
	IllegalState
)

// ExitCode returns the process exit code for k, per the CLI contract.
func (k Kind) ExitCode() int {
	switch k {
	case Usage:
		return 2
	case Connect:
		return 3
	case Source:
		return 4
	case Sink:
		return 5
	case SQLExecution:
		return 6
	case Cancelled:
		return 7
	case IllegalState:
		return 6
	default:
		return 1
	}
}

func (k Kind) String() string {
	switch k {
	case Usage:
		return "usage"
	case Connect:
		return "connect"
	case Source:
		return "source"
	case Sink:
		return "sink"
	case SQLExecution:
		return "sql-execution"
	case Cancelled:
		return "cancelled"
	case IllegalState:
		return "illegal-state"
	default:
		return "unknown"
	}
}

// Error wraps a cause with a Kind and enough context (operation, table,
// and a truncated statement fragment) to produce the two-line
// user-visible message format from spec §7.
type Error struct {
	Kind      Kind
	Operation string
	Table     string
	Statement string // already truncated to <= 80 chars by Wrap
	cause     error
}

const maxStatementFragment = 80

// Wrap builds an *Error of the given kind, truncating statement (if
// any) to the 80-character fragment the headline format allows.
func Wrap(kind Kind, cause error, operation, table, statement string) *Error {
	if len(statement) > maxStatementFragment {
		statement = statement[:maxStatementFragment]
	}
	return &Error{Kind: kind, Operation: operation, Table: table, Statement: statement, cause: errors.WithStack(cause)}
}

// New builds an *Error with no underlying cause, for pure validation
// failures (e.g. IllegalState transitions).
func New(kind Kind, operation, msg string) *Error {
	return Wrap(kind, errors.New(msg), operation, "", "")
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("Failed to %s: %s", e.Operation, e.cause)
	if e.Statement != "" {
		msg += "\n" + e.Statement
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// As reports the Kind of err if it is (or wraps) an *Error, defaulting
// to SQLExecution for errors of unknown provenance that still need an
// exit code (matching IllegalState's own exit code, the taxonomy's
// catch-all for unexpected internal failures).
func As(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return SQLExecution
}
