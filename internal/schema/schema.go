// Package schema describes column and table metadata carried between a
// source and a sink. Unlike value.Value, which describes one cell,
// this package describes the shape of a row.
package schema

// AbstractType is the type inferred by the CSV import path (C6) when a
// destination table does not yet exist. It is never mixed with
// DeclaredType, which is carried verbatim from source to sink within a
// single dialect.
type AbstractType string

const (
	AbstractInt       AbstractType = "int"
	AbstractFloat     AbstractType = "float"
	AbstractDecimal   AbstractType = "decimal"
	AbstractBool      AbstractType = "bool"
	AbstractDate      AbstractType = "date"
	AbstractTimestamp AbstractType = "timestamp"
	AbstractText      AbstractType = "text"
	AbstractBytes     AbstractType = "bytes"
)

// Column describes one column of a table.
type Column struct {
	Name     string
	Nullable bool

	// DeclaredType is the dialect-specific type text captured at
	// introspection/parse time (e.g. "varchar(64)"). It is opaque to
	// migrasquiel and is only re-emitted verbatim within the same
	// dialect; it is never translated between dialects.
	DeclaredType string

	// Abstract is populated only by the CSV import path (C6), which
	// has no declared-type text to carry and must synthesize a
	// concrete dialect type from this abstract type instead.
	Abstract AbstractType
}

// Table describes one table: its qualified name, ordered columns, and
// whatever the dialect captured as its CREATE TABLE text at dump time.
//
// Ownership: a Table is created by a session on introspection, owned by
// the pipeline for the duration of processing that one table, and
// discarded before the pipeline moves to the next table.
type Table struct {
	Schema string // namespace/schema name; empty if the dialect has none
	Name   string

	Columns []Column

	// CreateTableText is the dialect's captured CREATE TABLE statement,
	// re-emitted verbatim by render_create_table.
	CreateTableText string

	// RowCountEstimate, when >= 0, seeds the progress reporter's ETA.
	// It is never used for correctness (e.g. batch sizing, filtering).
	RowCountEstimate int64
}

// QualifiedName returns "schema.table", or just "table" when Schema is empty.
func (t Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// ColumnNames returns the ordered column name list.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
