package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"migrasquiel/internal/dialect"
	"migrasquiel/internal/errs"
	"migrasquiel/internal/schema"
	"migrasquiel/internal/value"
)

type fakeStream struct {
	batches [][]value.Row
	closed  bool
}

func (f *fakeStream) Next(batchSize int) ([]value.Row, error) {
	if len(f.batches) == 0 {
		return nil, nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b, nil
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

type fakeSource struct {
	tables         []schema.Table
	streams        map[string]*fakeStream
	snapshotBegun  bool
	snapshotEnded  bool
	failListTables bool
}

func (f *fakeSource) ListTables(ctx context.Context) ([]schema.Table, error) {
	if f.failListTables {
		return nil, errs.New(errs.Source, "list tables", "boom")
	}
	return f.tables, nil
}

func (f *fakeSource) StreamRows(ctx context.Context, table schema.Table) (RowStream, error) {
	return f.streams[table.Name], nil
}

func (f *fakeSource) BeginSnapshot(ctx context.Context) error {
	f.snapshotBegun = true
	return nil
}

func (f *fakeSource) EndSnapshot(ctx context.Context) error {
	f.snapshotEnded = true
	return nil
}

type fakeSink struct {
	begun    []string
	created  []string
	batches  map[string]int
	ended    []string
	failOn   string
}

func (f *fakeSink) BeginTable(ctx context.Context, table schema.Table) error {
	f.begun = append(f.begun, table.Name)
	return nil
}

func (f *fakeSink) WriteCreateTable(ctx context.Context, table schema.Table) error {
	if table.Name == f.failOn {
		return assertErr
	}
	f.created = append(f.created, table.Name)
	return nil
}

func (f *fakeSink) WriteRowBatch(ctx context.Context, table schema.Table, columns []string, rows []value.Row) error {
	if f.batches == nil {
		f.batches = map[string]int{}
	}
	f.batches[table.Name] += len(rows)
	return nil
}

func (f *fakeSink) EndTable(ctx context.Context, table schema.Table) error {
	f.ended = append(f.ended, table.Name)
	return nil
}

var assertErr = errs.New(errs.Sink, "write create table", "disk full")

func twoTableFixture() ([]schema.Table, map[string]*fakeStream) {
	orders := schema.Table{Name: "orders", Columns: []schema.Column{{Name: "id"}, {Name: "amount"}}}
	users := schema.Table{Name: "users", Columns: []schema.Column{{Name: "id"}, {Name: "name"}}}
	streams := map[string]*fakeStream{
		"orders": {batches: [][]value.Row{
			{{value.Int64(1), value.Int64(100)}, {value.Int64(2), value.Int64(200)}},
		}},
		"users": {batches: [][]value.Row{
			{{value.Int64(1), value.Text("ann")}},
		}},
	}
	return []schema.Table{orders, users}, streams
}

func TestRunStreamsAllTablesInOrder(t *testing.T) {
	tables, streams := twoTableFixture()
	src := &fakeSource{tables: tables, streams: streams}
	sink := &fakeSink{}

	err := Run(context.Background(), src, sink, nil, nil, Options{BatchRowCap: 10}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"orders", "users"}, sink.begun)
	assert.ElementsMatch(t, []string{"orders", "users"}, sink.created)
	assert.ElementsMatch(t, []string{"orders", "users"}, sink.ended)
	assert.Equal(t, 2, sink.batches["orders"])
	assert.Equal(t, 1, sink.batches["users"])
	for _, s := range streams {
		assert.True(t, s.closed)
	}
}

func TestRunAppliesFilter(t *testing.T) {
	tables, streams := twoTableFixture()
	src := &fakeSource{tables: tables, streams: streams}
	sink := &fakeSink{}

	err := Run(context.Background(), src, sink, nil, nil, Options{
		BatchRowCap: 10,
		Filter:      TableFilter{Include: []string{"orders"}},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"orders"}, sink.begun)
}

func TestRunSchemaOnlySkipsRows(t *testing.T) {
	tables, streams := twoTableFixture()
	src := &fakeSource{tables: tables, streams: streams}
	sink := &fakeSink{}

	err := Run(context.Background(), src, sink, nil, nil, Options{BatchRowCap: 10, SchemaOnly: true}, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"orders", "users"}, sink.created)
	assert.Empty(t, sink.batches)
}

func TestRunDataOnlySkipsCreateTable(t *testing.T) {
	tables, streams := twoTableFixture()
	src := &fakeSource{tables: tables, streams: streams}
	sink := &fakeSink{}

	err := Run(context.Background(), src, sink, nil, nil, Options{BatchRowCap: 10, DataOnly: true}, nil)
	require.NoError(t, err)

	assert.Empty(t, sink.created)
	assert.Equal(t, 2, sink.batches["orders"])
}

func TestRunPropagatesSinkError(t *testing.T) {
	tables, streams := twoTableFixture()
	src := &fakeSource{tables: tables, streams: streams}
	sink := &fakeSink{failOn: "orders"}

	err := Run(context.Background(), src, sink, nil, nil, Options{BatchRowCap: 10}, nil)
	require.Error(t, err)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.Sink, e.Kind)
}

func TestRunRequiresSnapshotCapableSource(t *testing.T) {
	tables, streams := twoTableFixture()
	src := &plainSource{tables: tables, streams: streams}
	sink := &fakeSink{}

	err := Run(context.Background(), src, sink, nil, nil, Options{
		BatchRowCap:        10,
		ConsistentSnapshot: true,
	}, nil)
	require.Error(t, err)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.IllegalState, e.Kind)
}

// plainSource implements only Source, never BeginSnapshot/EndSnapshot,
// so it does not satisfy SnapshotSource.
type plainSource struct {
	tables  []schema.Table
	streams map[string]*fakeStream
}

func (p *plainSource) ListTables(ctx context.Context) ([]schema.Table, error) { return p.tables, nil }
func (p *plainSource) StreamRows(ctx context.Context, table schema.Table) (RowStream, error) {
	return p.streams[table.Name], nil
}

func TestRunBeginsAndEndsSnapshot(t *testing.T) {
	tables, streams := twoTableFixture()
	src := &fakeSource{tables: tables, streams: streams}
	sink := &fakeSink{}

	err := Run(context.Background(), src, sink, nil, nil, Options{
		BatchRowCap:        10,
		ConsistentSnapshot: true,
	}, nil)
	require.NoError(t, err)
	assert.True(t, src.snapshotBegun)
	assert.True(t, src.snapshotEnded)
}

// byteCapDialect renders one byte per value so tests can force a
// predictable split threshold without a real dialect.
type byteCapDialect struct {
	dialect.Dialect
	maxBytes int
}

func (d *byteCapDialect) MaxBatchBytes() int { return d.maxBytes }

func (d *byteCapDialect) RenderInsert(table schema.Table, columns []string, rows []value.Row) (string, error) {
	return string(make([]byte, len(rows)*len(columns))), nil
}

type recordingSink struct {
	batches [][]value.Row
}

func (s *recordingSink) BeginTable(ctx context.Context, table schema.Table) error { return nil }
func (s *recordingSink) WriteCreateTable(ctx context.Context, table schema.Table) error {
	return nil
}
func (s *recordingSink) WriteRowBatch(ctx context.Context, table schema.Table, columns []string, rows []value.Row) error {
	s.batches = append(s.batches, rows)
	return nil
}
func (s *recordingSink) EndTable(ctx context.Context, table schema.Table) error { return nil }

func TestRunSplitsBatchesExceedingMaxBatchBytes(t *testing.T) {
	table := schema.Table{Name: "orders", Columns: []schema.Column{{Name: "id"}, {Name: "amount"}}}
	rows := [][]value.Row{
		{
			{value.Int64(1), value.Int64(10)},
			{value.Int64(2), value.Int64(20)},
			{value.Int64(3), value.Int64(30)},
			{value.Int64(4), value.Int64(40)},
		},
	}
	src := &fakeSource{
		tables:  []schema.Table{table},
		streams: map[string]*fakeStream{"orders": {batches: rows}},
	}
	sink := &recordingSink{}
	d := &byteCapDialect{maxBytes: 4} // 2 columns/row: only a 2-row batch fits

	err := Run(context.Background(), src, sink, d, nil, Options{BatchRowCap: 10}, nil)
	require.NoError(t, err)

	var gotIDs []int64
	for _, batch := range sink.batches {
		assert.LessOrEqual(t, len(batch), 2)
		for _, row := range batch {
			id, _ := row[0].AsInt64()
			gotIDs = append(gotIDs, id)
		}
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, gotIDs)
	assert.Greater(t, len(sink.batches), 1)
}

func TestRunDisablesAndEnablesConstraints(t *testing.T) {
	tables, streams := twoTableFixture()
	src := &fakeSource{tables: tables, streams: streams}
	sink := &fakeSink{}
	exec := &recordingExecutor{}
	d := &trackingDialect{}

	err := Run(context.Background(), src, sink, d, exec, Options{
		BatchRowCap:        10,
		DisableConstraints: true,
	}, nil)
	require.NoError(t, err)
	assert.True(t, d.disabled)
	assert.True(t, d.enabled)
}

type recordingExecutor struct{}

func (r *recordingExecutor) ExecContext(ctx context.Context, query string, args ...any) (int64, error) {
	return 0, nil
}

// trackingDialect embeds the Dialect interface as a nil value: Run
// only ever calls DisableConstraints/EnableConstraints and, for
// multi-row batches, MaxBatchBytes here, all overridden below, so the
// embedded nil is never actually invoked.
type trackingDialect struct {
	dialect.Dialect
	disabled, enabled bool
}

// MaxBatchBytes reports no byte cap, so batches are written unsplit.
func (d *trackingDialect) MaxBatchBytes() int { return 0 }

func (d *trackingDialect) DisableConstraints(ctx context.Context, ex dialect.Executor, tables []schema.Table) error {
	d.disabled = true
	return nil
}

func (d *trackingDialect) EnableConstraints(ctx context.Context, ex dialect.Executor, tables []schema.Table) error {
	d.enabled = true
	return nil
}
