package csvimport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mysqldialect "migrasquiel/internal/dialect/mysql"
	"migrasquiel/internal/schema"
	"migrasquiel/internal/value"
)

type fakeDestination struct {
	tables  []schema.Table
	created []string
	batches [][]value.Row
	failOn  int // InsertBatch call index (1-based) to fail, 0 = never
	calls   int
}

func (f *fakeDestination) ExecContext(ctx context.Context, query string, args ...any) (int64, error) {
	f.created = append(f.created, query)
	return 0, nil
}

func (f *fakeDestination) ListTables(ctx context.Context) ([]schema.Table, error) {
	return f.tables, nil
}

func (f *fakeDestination) InsertBatch(ctx context.Context, table schema.Table, columns []string, rows []value.Row) error {
	f.calls++
	if f.failOn != 0 && f.calls == f.failOn {
		return assertErr
	}
	f.batches = append(f.batches, rows)
	return nil
}

type assertionError struct{ msg string }

func (e *assertionError) Error() string { return e.msg }

var assertErr = &assertionError{msg: "boom"}

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunInfersTypesAndCreatesTable(t *testing.T) {
	path := writeCSV(t, "id,label,price\n1,widget,9.99\n2,gadget,19.50\n")
	dst := &fakeDestination{}
	d := &mysqldialect.Dialect{}

	summary, err := Run(context.Background(), dst, d, path, Options{TableName: "items"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 0, summary.Failed)

	require.Len(t, dst.created, 1)
	assert.Contains(t, dst.created[0], "CREATE TABLE IF NOT EXISTS")
	assert.Contains(t, dst.created[0], "`id` INT")
	assert.Contains(t, dst.created[0], "PRIMARY KEY")
	assert.Contains(t, dst.created[0], "`price` FLOAT")

	require.Len(t, dst.batches, 1)
	assert.Equal(t, value.Int64(1), dst.batches[0][0][0])
}

func TestRunSkipsExistingTableDDL(t *testing.T) {
	path := writeCSV(t, "id,label\n1,widget\n")
	dst := &fakeDestination{tables: []schema.Table{{Name: "items"}}}
	d := &mysqldialect.Dialect{}

	_, err := Run(context.Background(), dst, d, path, Options{TableName: "items"})
	require.NoError(t, err)
	assert.Empty(t, dst.created)
}

func TestRunAppliesColumnMapping(t *testing.T) {
	path := writeCSV(t, "csv_a,csv_b\n1,x\n")
	dst := &fakeDestination{}
	d := &mysqldialect.Dialect{}

	_, err := Run(context.Background(), dst, d, path, Options{TableName: "items", ColumnMap: "csv_a:db_a"})
	require.NoError(t, err)
	assert.Contains(t, dst.created[0], "`db_a`")
	assert.Contains(t, dst.created[0], "`csv_b`")
}

func TestRunSkipErrorsRecordsFailureAndContinues(t *testing.T) {
	path := writeCSV(t, "id\n1\nnotanumber\n3\n")
	dst := &fakeDestination{}
	d := &mysqldialect.Dialect{}

	summary, err := Run(context.Background(), dst, d, path, Options{TableName: "items", SkipErrors: true})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, 3, summary.Failures[0].Line)
}

func TestRunWithoutSkipErrorsAborts(t *testing.T) {
	path := writeCSV(t, "id\n1\nnotanumber\n3\n")
	dst := &fakeDestination{}
	d := &mysqldialect.Dialect{}

	_, err := Run(context.Background(), dst, d, path, Options{TableName: "items", SkipErrors: false})
	require.Error(t, err)
}

func TestRunNullSentinelsBecomeNull(t *testing.T) {
	path := writeCSV(t, "id,label\n1,NULL\n2,None\n")
	dst := &fakeDestination{}
	d := &mysqldialect.Dialect{}

	_, err := Run(context.Background(), dst, d, path, Options{TableName: "items"})
	require.NoError(t, err)
	require.Len(t, dst.batches, 1)
	assert.True(t, dst.batches[0][0][1].IsNull())
	assert.True(t, dst.batches[0][1][1].IsNull())
}
