package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/adapters/datasource"
	"github.com/schemalens/schemalens/pkg/models"
)

// fakeProber serves distinct counts from a fixture map keyed by the
// comma-joined column list.
type fakeProber struct {
	distinct map[string]int64
	probes   int
}

func (f *fakeProber) CountDistinct(_ context.Context, _, _ string, cols []string) (int64, error) {
	f.probes++
	return f.distinct[strings.Join(cols, ",")], nil
}

func int64Ptr(v int64) *int64 { return &v }

// column builds a snapshot column with stats for guesser tests.
func column(name string, nonNull, distinct int64) models.SnapshotColumn {
	return models.SnapshotColumn{
		ColumnName:    name,
		DataType:      "text",
		NonNullCount:  int64Ptr(nonNull),
		DistinctCount: int64Ptr(distinct),
	}
}

func newGuesser(cfg KeyGuessConfig) *keyGuessService {
	return NewKeyGuessService(nil, nil, nil, cfg, zap.NewNop()).(*keyGuessService)
}

func TestSearchKeys_SingleColumnKey(t *testing.T) {
	table := &models.SnapshotTable{
		SchemaName: "public",
		TableName:  "customers",
		RowCount:   100,
		Columns: []models.SnapshotColumn{
			column("customer_id", 100, 100),
			column("email", 100, 100),
			column("region", 100, 4),
		},
	}

	svc := newGuesser(KeyGuessConfig{MaxKeyColumns: 3})
	prober := &fakeProber{distinct: map[string]int64{}}

	keys, err := svc.searchKeys(context.Background(), prober, table)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	assert.Equal(t, []string{"customer_id"}, keys[0].Columns)
	assert.Equal(t, []string{"email"}, keys[1].Columns)
	for _, k := range keys {
		assert.Equal(t, models.KeyMethodGuessed, k.Method)
		assert.Equal(t, 1, k.Level)
	}

	// Level-1 cardinality comes from snapshot stats, and finding keys at
	// level 1 stops the search before any pair is probed.
	assert.Zero(t, prober.probes)
}

func TestSearchKeys_CompositeKey(t *testing.T) {
	table := &models.SnapshotTable{
		SchemaName: "public",
		TableName:  "order_lines",
		RowCount:   1000,
		Columns: []models.SnapshotColumn{
			column("order_id", 1000, 400),
			column("line_no", 1000, 12),
			column("sku", 1000, 950),
		},
	}

	svc := newGuesser(KeyGuessConfig{MaxKeyColumns: 3})
	prober := &fakeProber{distinct: map[string]int64{
		"order_id,line_no": 1000,
		"order_id,sku":     990,
		"line_no,sku":      980,
	}}

	keys, err := svc.searchKeys(context.Background(), prober, table)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	assert.Equal(t, []string{"order_id", "line_no"}, keys[0].Columns)
	assert.Equal(t, 2, keys[0].Level)
	assert.Equal(t, 3, prober.probes, "all three pairs should be probed")
}

func TestSearchKeys_ExcludesNullableColumns(t *testing.T) {
	table := &models.SnapshotTable{
		SchemaName: "public",
		TableName:  "events",
		RowCount:   50,
		Columns: []models.SnapshotColumn{
			// Unique values but one NULL: never a key.
			column("session_id", 49, 49),
			column("kind", 50, 3),
		},
	}

	svc := newGuesser(KeyGuessConfig{MaxKeyColumns: 2})
	prober := &fakeProber{distinct: map[string]int64{}}

	keys, err := svc.searchKeys(context.Background(), prober, table)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSearchKeys_GuessBudget(t *testing.T) {
	table := &models.SnapshotTable{
		SchemaName: "public",
		TableName:  "wide",
		RowCount:   10,
		Columns: []models.SnapshotColumn{
			column("a", 10, 5),
			column("b", 10, 5),
			column("c", 10, 5),
			column("d", 10, 5),
		},
	}

	svc := newGuesser(KeyGuessConfig{MaxKeyColumns: 4, MaxGuesses: 3})
	prober := &fakeProber{distinct: map[string]int64{}}

	keys, err := svc.searchKeys(context.Background(), prober, table)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, 3, prober.probes, "probing should stop at the budget")
}

func TestSearchKeys_LevelCap(t *testing.T) {
	table := &models.SnapshotTable{
		SchemaName: "public",
		TableName:  "narrow",
		RowCount:   10,
		Columns: []models.SnapshotColumn{
			column("a", 10, 5),
			column("b", 10, 5),
			column("c", 10, 5),
		},
	}

	// Only the full triple is unique, but the cap stops at pairs.
	svc := newGuesser(KeyGuessConfig{MaxKeyColumns: 2})
	prober := &fakeProber{distinct: map[string]int64{
		"a,b,c": 10,
	}}

	keys, err := svc.searchKeys(context.Background(), prober, table)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestGuessTable_DeclaredKeysWin(t *testing.T) {
	table := &models.SnapshotTable{
		SchemaName: "public",
		TableName:  "orders",
		RowCount:   10,
		Columns: []models.SnapshotColumn{
			{ColumnName: "order_id", IsPrimaryKey: true, NonNullCount: int64Ptr(10), DistinctCount: int64Ptr(10)},
			{ColumnName: "ref", IsUnique: true, NonNullCount: int64Ptr(10), DistinctCount: int64Ptr(10)},
		},
	}

	svc := newGuesser(KeyGuessConfig{MaxKeyColumns: 3})
	prober := &fakeProber{distinct: map[string]int64{}}

	keys, err := svc.guessTable(context.Background(), prober, table, nil)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	assert.Equal(t, models.KeyMethodDeclaredPK, keys[0].Method)
	assert.Equal(t, []string{"order_id"}, keys[0].Columns)
	assert.Equal(t, models.KeyMethodUniqueIndex, keys[1].Method)
	assert.Equal(t, []string{"ref"}, keys[1].Columns)
	assert.Zero(t, prober.probes, "declared keys should skip the search")
}

func TestGuessTable_MultiColumnUniqueConstraint(t *testing.T) {
	table := &models.SnapshotTable{
		SchemaName: "public",
		TableName:  "enrollments",
		RowCount:   200,
		Columns: []models.SnapshotColumn{
			column("student_id", 200, 80),
			column("course_id", 200, 25),
			column("grade", 200, 5),
		},
	}
	constraints := []datasource.KeyConstraint{{
		ConstraintName: "enrollments_student_course_key",
		SchemaName:     "public",
		TableName:      "enrollments",
		Columns:        []string{"student_id", "course_id"},
	}}

	svc := newGuesser(KeyGuessConfig{MaxKeyColumns: 3, MaxGuesses: 1})
	prober := &fakeProber{distinct: map[string]int64{}}

	keys, err := svc.guessTable(context.Background(), prober, table, constraints)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	assert.Equal(t, models.KeyMethodUniqueIndex, keys[0].Method)
	assert.Equal(t, []string{"student_id", "course_id"}, keys[0].Columns)
	assert.Equal(t, 2, keys[0].Level)
	assert.Zero(t, prober.probes, "a declared constraint should never be rediscovered by probing")
}

func TestDeclaredKeys_ConstraintHandling(t *testing.T) {
	table := &models.SnapshotTable{
		SchemaName: "public",
		TableName:  "orders",
		RowCount:   10,
		Columns: []models.SnapshotColumn{
			{ColumnName: "order_id", IsPrimaryKey: true},
			{ColumnName: "ref", IsUnique: true},
			{ColumnName: "note", IsNullable: true},
		},
	}
	constraints := []datasource.KeyConstraint{
		{ConstraintName: "orders_pkey", Columns: []string{"order_id"}, IsPrimary: true},
		{ConstraintName: "orders_ref_key", Columns: []string{"ref"}},
		// Nullable column: unique but admits repeated NULLs, not a key.
		{ConstraintName: "orders_note_key", Columns: []string{"note"}},
	}

	keys := declaredKeys(table, constraints)
	require.Len(t, keys, 2, "constraint and flag views of the same key collapse to one")

	assert.Equal(t, models.KeyMethodDeclaredPK, keys[0].Method)
	assert.Equal(t, []string{"order_id"}, keys[0].Columns)
	assert.Equal(t, models.KeyMethodUniqueIndex, keys[1].Method)
	assert.Equal(t, []string{"ref"}, keys[1].Columns)
}

func TestGuessTable_EmptyTable(t *testing.T) {
	table := &models.SnapshotTable{
		SchemaName: "public",
		TableName:  "empty",
		RowCount:   0,
		Columns:    []models.SnapshotColumn{column("id", 0, 0)},
	}

	svc := newGuesser(KeyGuessConfig{MaxKeyColumns: 3})
	keys, err := svc.guessTable(context.Background(), &fakeProber{}, table, nil)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSearchKeys_Idempotent(t *testing.T) {
	table := &models.SnapshotTable{
		SchemaName: "public",
		TableName:  "order_lines",
		RowCount:   1000,
		Columns: []models.SnapshotColumn{
			column("order_id", 1000, 400),
			column("line_no", 1000, 12),
			column("sku", 1000, 950),
		},
	}
	distinct := map[string]int64{
		"order_id,line_no": 1000,
		"order_id,sku":     1000,
		"line_no,sku":      980,
	}

	svc := newGuesser(KeyGuessConfig{MaxKeyColumns: 3})

	first, err := svc.searchKeys(context.Background(), &fakeProber{distinct: distinct}, table)
	require.NoError(t, err)
	second, err := svc.searchKeys(context.Background(), &fakeProber{distinct: distinct}, table)
	require.NoError(t, err)

	// Same snapshot stats twice: identical keys in identical order.
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Columns, second[i].Columns)
		assert.Equal(t, first[i].Method, second[i].Method)
		assert.Equal(t, first[i].Level, second[i].Level)
	}
}

func TestCombinations(t *testing.T) {
	assert.Equal(t, [][]int{{0}, {1}, {2}}, combinations(3, 1))
	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {1, 2}}, combinations(3, 2))
	assert.Equal(t, [][]int{{0, 1, 2}}, combinations(3, 3))
	assert.Nil(t, combinations(2, 3))
	assert.Nil(t, combinations(3, 0))
}

func TestNewKeyGuessService_ClampsMaxKeyColumns(t *testing.T) {
	svc := newGuesser(KeyGuessConfig{MaxKeyColumns: 99})
	assert.Equal(t, MaxKeyColumnsLimit, svc.cfg.MaxKeyColumns)

	svc = newGuesser(KeyGuessConfig{MaxKeyColumns: 0})
	assert.Equal(t, 1, svc.cfg.MaxKeyColumns)
}
