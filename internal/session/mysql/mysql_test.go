package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"migrasquiel/internal/session"
)

func TestOpenAndListTablesIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("migrasquiel_test"),
		tcmysql.WithUsername("root"),
		tcmysql.WithPassword("testpass"),
		tcmysql.WithScripts("testdata/schema.sql"),
	)
	require.NoError(t, err, "failed to start MySQL container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	rawURL := "mysql://root:testpass@" + host + ":" + port.Port() + "/migrasquiel_test"
	sess, err := Open(ctx, rawURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	tables, err := sess.ListTables(ctx)
	require.NoError(t, err)

	var names []string
	for _, tbl := range tables {
		names = append(names, tbl.Name)
	}
	assert.Contains(t, names, "orders")
}

func TestAddr(t *testing.T) {
	info, err := session.ParseURL("mysql://root@db.internal:3307/shop")
	require.NoError(t, err)
	assert.Equal(t, "db.internal:3307", addr(info))
}
