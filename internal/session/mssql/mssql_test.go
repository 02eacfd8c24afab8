package mssql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"migrasquiel/internal/schema"
)

func TestBuildCreateTableText(t *testing.T) {
	table := schema.Table{
		Name: "orders",
		Columns: []schema.Column{
			{Name: "id", Nullable: false, DeclaredType: "int"},
			{Name: "label", Nullable: true, DeclaredType: "nvarchar"},
		},
	}
	stmt := buildCreateTableText(table)
	assert.Contains(t, stmt, `"id" int NOT NULL`)
	assert.Contains(t, stmt, `"label" nvarchar`)
}
