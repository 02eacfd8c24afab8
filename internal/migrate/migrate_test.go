package migrate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mysqldialect "migrasquiel/internal/dialect/mysql"
	postgresdialect "migrasquiel/internal/dialect/postgres"
	"migrasquiel/internal/pipeline"
	"migrasquiel/internal/schema"
	"migrasquiel/internal/value"
)

type fakeSource struct {
	tables []schema.Table
	rows   map[string][]value.Row
}

func (f *fakeSource) ListTables(ctx context.Context) ([]schema.Table, error) { return f.tables, nil }

func (f *fakeSource) StreamRows(ctx context.Context, table schema.Table) (pipeline.RowStream, error) {
	return &onceStream{rows: f.rows[table.Name]}, nil
}

func (f *fakeSource) ExecContext(ctx context.Context, query string, args ...any) (int64, error) {
	return 0, nil
}

type onceStream struct {
	rows []value.Row
	done bool
}

func (s *onceStream) Next(batchSize int) ([]value.Row, error) {
	if s.done {
		return nil, nil
	}
	s.done = true
	return s.rows, nil
}

func (s *onceStream) Close() error { return nil }

type fakeDestination struct {
	tables   []schema.Table
	executed []string
}

func (f *fakeDestination) ExecContext(ctx context.Context, query string, args ...any) (int64, error) {
	f.executed = append(f.executed, query)
	return 0, nil
}

func (f *fakeDestination) ListTables(ctx context.Context) ([]schema.Table, error) {
	return f.tables, nil
}

func fixture() (*fakeSource, *fakeDestination) {
	orders := schema.Table{
		Name:            "orders",
		CreateTableText: "CREATE TABLE orders (id INT, label VARCHAR(255))",
		Columns:         []schema.Column{{Name: "id"}, {Name: "label"}},
	}
	src := &fakeSource{
		tables: []schema.Table{orders},
		rows: map[string][]value.Row{
			"orders": {{value.Int64(1), value.Text("widget")}},
		},
	}
	return src, &fakeDestination{}
}

func TestRunSameDialectCreatesAndInserts(t *testing.T) {
	src, dst := fixture()
	d := &mysqldialect.Dialect{}

	err := Run(context.Background(), src, d, dst, d, Options{BatchRows: 10}, nil)
	require.NoError(t, err)

	require.Len(t, dst.executed, 2)
	assert.Contains(t, dst.executed[0], "CREATE TABLE IF NOT EXISTS orders")
	assert.Contains(t, dst.executed[1], "INSERT INTO `orders`")
	assert.Contains(t, dst.executed[1], "widget")
}

func TestRunCrossDialectSkipsCreateTableAndUsesSinkDialect(t *testing.T) {
	src, dst := fixture()
	srcDialect := &mysqldialect.Dialect{}
	dstDialect := &postgresdialect.Dialect{}

	err := Run(context.Background(), src, srcDialect, dst, dstDialect, Options{BatchRows: 10}, nil)
	require.NoError(t, err)

	require.Len(t, dst.executed, 1)
	assert.False(t, strings.HasPrefix(dst.executed[0], "CREATE TABLE"))
	assert.Contains(t, dst.executed[0], `INSERT INTO "orders"`)
	assert.Contains(t, dst.executed[0], "widget")
}

func TestRunCrossDialectSchemaOnlyRejected(t *testing.T) {
	src, dst := fixture()
	srcDialect := &mysqldialect.Dialect{}
	dstDialect := &postgresdialect.Dialect{}

	err := Run(context.Background(), src, srcDialect, dst, dstDialect, Options{SchemaOnly: true}, nil)
	require.Error(t, err)
	assert.Empty(t, dst.executed)
}
