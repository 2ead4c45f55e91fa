package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemalens/schemalens/pkg/apperrors"
	"github.com/schemalens/schemalens/pkg/models"
)

func exampleKeys() []*models.CandidateKey {
	return []*models.CandidateKey{
		{SchemaName: "public", TableName: "customers", Columns: []string{"customer_id"}, Method: models.KeyMethodDeclaredPK, Level: 1},
		{SchemaName: "public", TableName: "orders", Columns: []string{"order_id"}, Method: models.KeyMethodGuessed, Level: 1},
	}
}

func exampleRels() []*models.Relationship {
	return []*models.Relationship{{
		SourceSchema: "public", SourceTable: "customers",
		TargetSchema: "public", TargetTable: "orders",
		SourceColumns: []string{"customer_id"},
		TargetColumns: []string{"customer_id"},
		Cardinality:   models.CardinalityOneToMany,
	}}
}

func TestWriteDDL_Postgres(t *testing.T) {
	out, err := WriteDDL(FlavorPostgres, exampleTables(), exampleKeys(), exampleRels())
	require.NoError(t, err)

	assert.Contains(t, out, `CREATE TABLE "public"."customers" (`)
	assert.Contains(t, out, `    "customer_id" integer NOT NULL`)
	assert.Contains(t, out, `    "region" text`)
	assert.NotContains(t, out, `"region" text NOT NULL`)
	assert.Contains(t, out, `    PRIMARY KEY ("customer_id")`)
	assert.Contains(t, out, `    "status" text NOT NULL DEFAULT 'new'`)
	assert.Contains(t, out,
		`ALTER TABLE "public"."orders" ADD CONSTRAINT "orders_customer_id_fk" FOREIGN KEY ("customer_id") REFERENCES "public"."customers" ("customer_id");`)
}

func TestWriteDDL_TSQL(t *testing.T) {
	out, err := WriteDDL(FlavorTSQL, exampleTables(), exampleKeys(), exampleRels())
	require.NoError(t, err)

	assert.Contains(t, out, `CREATE TABLE [public].[customers] (`)
	assert.Contains(t, out, `[customer_id] INT NOT NULL`)
	assert.Contains(t, out, `[email] NVARCHAR(MAX) NOT NULL`)
	assert.Contains(t, out, `ALTER TABLE [public].[orders]`)
}

func TestWriteDDL_SQLite(t *testing.T) {
	out, err := WriteDDL(FlavorSQLite, exampleTables(), exampleKeys(), exampleRels())
	require.NoError(t, err)

	// SQLite has no schema prefixes.
	assert.Contains(t, out, `CREATE TABLE "customers" (`)
	assert.Contains(t, out, `"customer_id" INTEGER NOT NULL`)
	assert.Contains(t, out, `"email" TEXT NOT NULL`)
	assert.Contains(t, out, `ALTER TABLE "orders"`)
}

func TestWriteDDL_UnknownFlavor(t *testing.T) {
	_, err := WriteDDL("oracle", nil, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedType)
}

func TestPickPrimaryKey(t *testing.T) {
	declared := &models.CandidateKey{Method: models.KeyMethodDeclaredPK, Level: 2}
	unique := &models.CandidateKey{Method: models.KeyMethodUniqueIndex, Level: 1}
	guessedNarrow := &models.CandidateKey{Method: models.KeyMethodGuessed, Level: 1}
	guessedWide := &models.CandidateKey{Method: models.KeyMethodGuessed, Level: 3}

	assert.Equal(t, declared, pickPrimaryKey([]*models.CandidateKey{guessedWide, declared, unique}))
	assert.Equal(t, unique, pickPrimaryKey([]*models.CandidateKey{guessedNarrow, unique}))
	assert.Equal(t, guessedNarrow, pickPrimaryKey([]*models.CandidateKey{guessedWide, guessedNarrow}))
	assert.Nil(t, pickPrimaryKey(nil))
}
