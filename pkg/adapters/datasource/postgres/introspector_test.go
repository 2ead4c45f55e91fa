//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemalens/schemalens/pkg/testhelpers"
)

var seedOnce sync.Once

// setupIntrospectorTest creates an Introspector connected to the shared test
// container with a small seeded schema.
func setupIntrospectorTest(t *testing.T) *Introspector {
	t.Helper()

	testDB := testhelpers.GetTestDB(t)

	seedOnce.Do(func() {
		testhelpers.SeedSchema(t, testDB,
			`CREATE TABLE IF NOT EXISTS customers (
				customer_id integer NOT NULL,
				email text NOT NULL,
				region text,
				CONSTRAINT customers_pkey PRIMARY KEY (customer_id)
			)`,
			`CREATE TABLE IF NOT EXISTS orders (
				order_id integer NOT NULL,
				customer_id integer NOT NULL,
				order_date date NOT NULL,
				CONSTRAINT orders_pkey PRIMARY KEY (order_id),
				CONSTRAINT orders_customer_fkey FOREIGN KEY (customer_id)
					REFERENCES customers (customer_id)
			)`,
			`INSERT INTO customers (customer_id, email, region)
				VALUES (1, 'a@x.test', 'emea'), (2, 'b@x.test', NULL), (3, 'c@x.test', 'apac')
				ON CONFLICT DO NOTHING`,
			`INSERT INTO orders (order_id, customer_id, order_date)
				VALUES (10, 1, '2026-01-01'), (11, 1, '2026-01-02'), (12, 3, '2026-01-02')
				ON CONFLICT DO NOTHING`,
		)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	intro, err := NewIntrospector(ctx, testDB.ConnStr, nil)
	require.NoError(t, err)
	t.Cleanup(func() { intro.Close() })

	return intro
}

func TestIntrospector_ListTables(t *testing.T) {
	intro := setupIntrospectorTest(t)
	ctx := context.Background()

	tables, err := intro.ListTables(ctx)
	require.NoError(t, err)

	byName := map[string]int64{}
	for _, tbl := range tables {
		assert.NotEqual(t, "pg_catalog", tbl.SchemaName)
		assert.NotEqual(t, "information_schema", tbl.SchemaName)
		byName[tbl.TableName] = tbl.RowCount
	}

	assert.Equal(t, int64(3), byName["customers"])
	assert.Equal(t, int64(3), byName["orders"])
}

func TestIntrospector_ListColumns(t *testing.T) {
	intro := setupIntrospectorTest(t)
	ctx := context.Background()

	cols, err := intro.ListColumns(ctx, "public", "customers")
	require.NoError(t, err)
	require.Len(t, cols, 3)

	byName := map[string]struct {
		nullable bool
		pk       bool
	}{}
	for _, c := range cols {
		byName[c.ColumnName] = struct {
			nullable bool
			pk       bool
		}{c.IsNullable, c.IsPrimaryKey}
	}

	assert.True(t, byName["customer_id"].pk)
	assert.False(t, byName["customer_id"].nullable)
	assert.False(t, byName["region"].pk)
	assert.True(t, byName["region"].nullable)
}

func TestIntrospector_ListKeyConstraints(t *testing.T) {
	intro := setupIntrospectorTest(t)
	ctx := context.Background()

	keys, err := intro.ListKeyConstraints(ctx)
	require.NoError(t, err)

	var foundCustomersPK bool
	for _, k := range keys {
		if k.TableName == "customers" && k.IsPrimary {
			foundCustomersPK = true
			assert.Equal(t, []string{"customer_id"}, k.Columns)
		}
	}
	assert.True(t, foundCustomersPK, "expected declared PK on customers")
}

func TestIntrospector_ListForeignKeys(t *testing.T) {
	intro := setupIntrospectorTest(t)
	ctx := context.Background()

	fks, err := intro.ListForeignKeys(ctx)
	require.NoError(t, err)

	var found bool
	for _, fk := range fks {
		if fk.SourceTable == "orders" && fk.TargetTable == "customers" {
			found = true
			assert.Equal(t, []string{"customer_id"}, fk.SourceColumns)
			assert.Equal(t, []string{"customer_id"}, fk.TargetColumns)
		}
	}
	assert.True(t, found, "expected orders -> customers foreign key")
}

func TestIntrospector_ColumnStats(t *testing.T) {
	intro := setupIntrospectorTest(t)
	ctx := context.Background()

	stats, err := intro.ColumnStats(ctx, "public", "customers", []string{"customer_id", "region"})
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, int64(3), stats[0].RowCount)
	assert.Equal(t, int64(3), stats[0].NonNullCount)
	assert.Equal(t, int64(3), stats[0].DistinctCount)

	// region has one NULL and two distinct non-null values
	assert.Equal(t, int64(2), stats[1].NonNullCount)
	assert.Equal(t, int64(2), stats[1].DistinctCount)
}

func TestIntrospector_CountDistinct(t *testing.T) {
	intro := setupIntrospectorTest(t)
	ctx := context.Background()

	// order_date alone does not identify rows; (customer_id, order_date) does
	single, err := intro.CountDistinct(ctx, "public", "orders", []string{"order_date"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), single)

	pair, err := intro.CountDistinct(ctx, "public", "orders", []string{"customer_id", "order_date"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), pair)
}
