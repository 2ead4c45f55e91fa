package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/adapters/datasource"
)

// qualifiedTableName returns a properly quoted table reference.
// If schemaName is empty, returns just the quoted table name.
func qualifiedTableName(schemaName, tableName string) string {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	if schemaName == "" {
		return quotedTable
	}
	return pgx.Identifier{schemaName}.Sanitize() + "." + quotedTable
}

// Introspector reads PostgreSQL catalog metadata.
type Introspector struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewIntrospector connects to the database and verifies connectivity.
// If logger is nil, a no-op logger is used.
func NewIntrospector(ctx context.Context, dsn string, logger *zap.Logger) (*Introspector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Introspector{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (d *Introspector) Close() error {
	d.pool.Close()
	return nil
}

// ListTables returns all user tables with exact row counts. System schemas
// are excluded. Row counts come from COUNT(*) rather than reltuples because
// the key guesser needs exact cardinality, not planner estimates.
func (d *Introspector) ListTables(ctx context.Context) ([]datasource.TableInfo, error) {
	const query = `
		SELECT t.table_schema, t.table_name
		FROM information_schema.tables t
		WHERE t.table_type = 'BASE TABLE'
		  AND t.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY t.table_schema, t.table_name
	`

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.TableInfo
	for rows.Next() {
		var t datasource.TableInfo
		if err := rows.Scan(&t.SchemaName, &t.TableName); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	for i := range tables {
		countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`,
			qualifiedTableName(tables[i].SchemaName, tables[i].TableName))
		if err := d.pool.QueryRow(ctx, countQuery).Scan(&tables[i].RowCount); err != nil {
			return nil, fmt.Errorf("count rows for %s.%s: %w", tables[i].SchemaName, tables[i].TableName, err)
		}
	}

	return tables, nil
}

// ListColumns returns columns for a specific table. Uses pg_index for
// primary key and unique detection, which correctly identifies keys even
// when created as unique indexes by ORMs.
func (d *Introspector) ListColumns(ctx context.Context, schemaName, tableName string) ([]datasource.ColumnInfo, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' as is_nullable,
			COALESCE(pk.is_pk, false) as is_primary_key,
			COALESCE(uq.is_unique, false) as is_unique,
			c.ordinal_position,
			c.column_default
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT a.attname as column_name, true as is_pk
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisprimary = true
			  AND n.nspname = $1
			  AND t.relname = $2
		) pk ON c.column_name = pk.column_name
		LEFT JOIN (
			SELECT a.attname as column_name, true as is_unique
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisunique = true
			  AND ix.indisprimary = false
			  AND n.nspname = $1
			  AND t.relname = $2
			  AND array_length(ix.indkey, 1) = 1 -- single-column unique indexes only
		) uq ON c.column_name = uq.column_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := d.pool.Query(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []datasource.ColumnInfo
	for rows.Next() {
		var c datasource.ColumnInfo
		if err := rows.Scan(&c.ColumnName, &c.DataType, &c.IsNullable, &c.IsPrimaryKey,
			&c.IsUnique, &c.OrdinalPosition, &c.DefaultValue); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// ListKeyConstraints returns declared primary key and unique constraints,
// including multi-column ones, in constraint ordinal order.
func (d *Introspector) ListKeyConstraints(ctx context.Context) ([]datasource.KeyConstraint, error) {
	const query = `
		SELECT
			tc.constraint_name,
			tc.table_schema,
			tc.table_name,
			kcu.column_name,
			tc.constraint_type = 'PRIMARY KEY' as is_primary
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE')
		  AND tc.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name, kcu.ordinal_position
	`

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query key constraints: %w", err)
	}
	defer rows.Close()

	var keys []datasource.KeyConstraint
	for rows.Next() {
		var name, schema, table, column string
		var isPrimary bool
		if err := rows.Scan(&name, &schema, &table, &column, &isPrimary); err != nil {
			return nil, fmt.Errorf("scan key constraint: %w", err)
		}

		// Rows arrive in ordinal order; append the column to the previous
		// constraint when the name matches.
		if n := len(keys); n > 0 && keys[n-1].ConstraintName == name && keys[n-1].TableName == table && keys[n-1].SchemaName == schema {
			keys[n-1].Columns = append(keys[n-1].Columns, column)
			continue
		}
		keys = append(keys, datasource.KeyConstraint{
			ConstraintName: name,
			SchemaName:     schema,
			TableName:      table,
			Columns:        []string{column},
			IsPrimary:      isPrimary,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate key constraints: %w", err)
	}

	return keys, nil
}

// ListForeignKeys returns declared foreign key constraints, matching source
// and target columns positionally for multi-column keys.
func (d *Introspector) ListForeignKeys(ctx context.Context) ([]datasource.ForeignKey, error) {
	const query = `
		SELECT
			rc.constraint_name,
			src.table_schema,
			src.table_name,
			src.column_name,
			tgt.table_schema,
			tgt.table_name,
			tgt.column_name
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage src
			ON src.constraint_name = rc.constraint_name
			AND src.constraint_schema = rc.constraint_schema
		JOIN information_schema.key_column_usage tgt
			ON tgt.constraint_name = rc.unique_constraint_name
			AND tgt.constraint_schema = rc.unique_constraint_schema
			AND tgt.ordinal_position = src.position_in_unique_constraint
		ORDER BY rc.constraint_name, src.ordinal_position
	`

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []datasource.ForeignKey
	for rows.Next() {
		var name, srcSchema, srcTable, srcCol, tgtSchema, tgtTable, tgtCol string
		if err := rows.Scan(&name, &srcSchema, &srcTable, &srcCol, &tgtSchema, &tgtTable, &tgtCol); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}

		if n := len(fks); n > 0 && fks[n-1].ConstraintName == name {
			fks[n-1].SourceColumns = append(fks[n-1].SourceColumns, srcCol)
			fks[n-1].TargetColumns = append(fks[n-1].TargetColumns, tgtCol)
			continue
		}
		fks = append(fks, datasource.ForeignKey{
			ConstraintName: name,
			SourceSchema:   srcSchema,
			SourceTable:    srcTable,
			SourceColumns:  []string{srcCol},
			TargetSchema:   tgtSchema,
			TargetTable:    tgtTable,
			TargetColumns:  []string{tgtCol},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys: %w", err)
	}

	return fks, nil
}

// ColumnStats gathers row, non-null, and distinct counts for columns.
// Columns whose stats query fails (e.g. type cast errors on exotic types)
// are logged and returned with zero values rather than failing the table.
func (d *Introspector) ColumnStats(ctx context.Context, schemaName, tableName string, columnNames []string) ([]datasource.ColumnStats, error) {
	if len(columnNames) == 0 {
		return nil, nil
	}

	tableRef := qualifiedTableName(schemaName, tableName)

	var stats []datasource.ColumnStats
	for _, colName := range columnNames {
		quotedCol := pgx.Identifier{colName}.Sanitize()

		query := fmt.Sprintf(`
			SELECT
				COUNT(*) as row_count,
				COUNT(%s) as non_null_count,
				COUNT(DISTINCT %s) as distinct_count
			FROM %s
		`, quotedCol, quotedCol, tableRef)

		s := datasource.ColumnStats{ColumnName: colName}
		if err := d.pool.QueryRow(ctx, query).Scan(&s.RowCount, &s.NonNullCount, &s.DistinctCount); err != nil {
			d.logger.Warn("Failed to analyze column stats, using zero values",
				zap.String("schema", schemaName),
				zap.String("table", tableName),
				zap.String("column", colName),
				zap.Error(err))
		}
		stats = append(stats, s)
	}

	return stats, nil
}

// CountDistinct counts distinct combinations of the given columns.
func (d *Introspector) CountDistinct(ctx context.Context, schemaName, tableName string, columnNames []string) (int64, error) {
	if len(columnNames) == 0 {
		return 0, fmt.Errorf("count distinct: no columns given")
	}

	quoted := make([]string, len(columnNames))
	for i, c := range columnNames {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM (
			SELECT DISTINCT %s FROM %s
		) AS _k
	`, strings.Join(quoted, ", "), qualifiedTableName(schemaName, tableName))

	var count int64
	if err := d.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count distinct %s.%s(%s): %w",
			schemaName, tableName, strings.Join(columnNames, ","), err)
	}
	return count, nil
}

// Ensure Introspector implements datasource.Introspector at compile time.
var _ datasource.Introspector = (*Introspector)(nil)
