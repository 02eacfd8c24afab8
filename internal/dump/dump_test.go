package dump

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mysqldialect "migrasquiel/internal/dialect/mysql"
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

func newFixture() *fakeSource {
	orders := schema.Table{
		Name:            "orders",
		CreateTableText: "CREATE TABLE orders (id INT, label VARCHAR(255))",
		Columns:         []schema.Column{{Name: "id"}, {Name: "label"}},
	}
	return &fakeSource{
		tables: []schema.Table{orders},
		rows:   map[string][]value.Row{},
	}
}

func TestRunWritesPlainSQLFile(t *testing.T) {
	src := newFixture()
	src.rows["orders"] = []value.Row{
		{value.Int64(1), value.Text("widget")},
	}
	d := &mysqldialect.Dialect{}
	outPath := filepath.Join(t.TempDir(), "dump.sql")

	err := Run(context.Background(), src, d, outPath, Options{BatchRows: 10}, nil)
	require.NoError(t, err)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "CREATE TABLE IF NOT EXISTS orders")
	assert.Contains(t, text, "INSERT INTO `orders`")
	assert.Contains(t, text, "widget")
}

func TestRunGzipsWhenPathEndsInGz(t *testing.T) {
	src := newFixture()
	src.rows["orders"] = []value.Row{
		{value.Int64(1), value.Text("widget")},
	}
	d := &mysqldialect.Dialect{}
	outPath := filepath.Join(t.TempDir(), "dump.sql.gz")

	err := Run(context.Background(), src, d, outPath, Options{BatchRows: 10}, nil)
	require.NoError(t, err)

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gr.Close()

	raw, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "INSERT INTO `orders`")
}

func TestRunSchemaOnlyOmitsRows(t *testing.T) {
	src := newFixture()
	src.rows["orders"] = []value.Row{
		{value.Int64(1), value.Text("widget")},
	}
	d := &mysqldialect.Dialect{}
	outPath := filepath.Join(t.TempDir(), "schema.sql")

	err := Run(context.Background(), src, d, outPath, Options{BatchRows: 10, SchemaOnly: true}, nil)
	require.NoError(t, err)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "INSERT INTO")
}
