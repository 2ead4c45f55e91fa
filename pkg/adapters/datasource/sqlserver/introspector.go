package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/adapters/datasource"
)

// quoteName quotes a SQL Server identifier with square brackets,
// escaping ] as ]] the way QUOTENAME does.
func quoteName(identifier string) string {
	escaped := strings.ReplaceAll(identifier, "]", "]]")
	return fmt.Sprintf("[%s]", escaped)
}

// qualifiedTableName builds a fully qualified table name: [schema].[table]
func qualifiedTableName(schemaName, tableName string) string {
	if schemaName == "" {
		return quoteName(tableName)
	}
	return quoteName(schemaName) + "." + quoteName(tableName)
}

// Introspector reads SQL Server catalog metadata via sys.* views.
type Introspector struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewIntrospector connects to SQL Server and verifies connectivity.
// If logger is nil, a no-op logger is used.
func NewIntrospector(ctx context.Context, dsn string, logger *zap.Logger) (*Introspector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}

	return &Introspector{db: db, logger: logger}, nil
}

// Close releases the database connection.
func (d *Introspector) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// ListTables returns all user tables. Partition metadata gives a fast row
// estimate but the key guesser needs exact counts, so each table gets a
// COUNT(*) pass afterwards.
func (d *Introspector) ListTables(ctx context.Context) ([]datasource.TableInfo, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT
	    SCHEMA_NAME(t.schema_id) AS table_schema,
	    t.name AS table_name
	FROM sys.tables t
	WHERE t.is_ms_shipped = 0
	ORDER BY table_schema, table_name
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.TableInfo
	for rows.Next() {
		var t datasource.TableInfo
		if err := rows.Scan(&t.SchemaName, &t.TableName); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}

	for i := range tables {
		countQuery := fmt.Sprintf(`SELECT COUNT_BIG(*) FROM %s WITH (NOLOCK)`,
			qualifiedTableName(tables[i].SchemaName, tables[i].TableName))
		if err := d.db.QueryRowContext(ctx, countQuery).Scan(&tables[i].RowCount); err != nil {
			return nil, fmt.Errorf("count rows for %s.%s: %w", tables[i].SchemaName, tables[i].TableName, err)
		}
	}

	return tables, nil
}

// ListColumns returns columns for a specific table.
func (d *Introspector) ListColumns(ctx context.Context, schemaName, tableName string) ([]datasource.ColumnInfo, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT
	    c.name AS column_name,
	    tp.name AS data_type,
	    CASE WHEN c.is_nullable = 1 THEN 1 ELSE 0 END AS is_nullable,
	    CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_primary_key,
	    CASE WHEN uq.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_unique,
	    c.column_id AS ordinal_position,
	    OBJECT_DEFINITION(c.default_object_id) AS column_default
	FROM sys.columns c
	INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
	LEFT JOIN (
	    SELECT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_primary_key = 1
	) pk ON c.object_id = pk.object_id AND c.column_id = pk.column_id
	LEFT JOIN (
	    SELECT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_unique = 1
	      AND i.is_primary_key = 0
	      AND (SELECT COUNT(*) FROM sys.index_columns ic2
	           WHERE ic2.object_id = i.object_id AND ic2.index_id = i.index_id) = 1
	) uq ON c.object_id = uq.object_id AND c.column_id = uq.column_id
	WHERE c.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	ORDER BY c.column_id
	`

	rows, err := d.db.QueryContext(ctx, query,
		sql.Named("schema", schemaName),
		sql.Named("table", tableName),
	)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []datasource.ColumnInfo
	for rows.Next() {
		var c datasource.ColumnInfo
		var isNullable, isPrimary, isUnique int
		if err := rows.Scan(&c.ColumnName, &c.DataType, &isNullable, &isPrimary,
			&isUnique, &c.OrdinalPosition, &c.DefaultValue); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		c.IsNullable = isNullable == 1
		c.IsPrimaryKey = isPrimary == 1
		c.IsUnique = isUnique == 1
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}

	return columns, nil
}

// ListKeyConstraints returns declared primary key and unique constraints,
// including multi-column ones, in key ordinal order.
func (d *Introspector) ListKeyConstraints(ctx context.Context) ([]datasource.KeyConstraint, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT
	    i.name AS constraint_name,
	    SCHEMA_NAME(t.schema_id) AS table_schema,
	    t.name AS table_name,
	    COL_NAME(ic.object_id, ic.column_id) AS column_name,
	    CASE WHEN i.is_primary_key = 1 THEN 1 ELSE 0 END AS is_primary
	FROM sys.indexes i
	INNER JOIN sys.tables t ON i.object_id = t.object_id
	INNER JOIN sys.index_columns ic ON i.object_id = ic.object_id AND i.index_id = ic.index_id
	WHERE (i.is_primary_key = 1 OR i.is_unique_constraint = 1)
	  AND t.is_ms_shipped = 0
	ORDER BY table_schema, table_name, i.name, ic.key_ordinal
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query key constraints: %w", err)
	}
	defer rows.Close()

	var keys []datasource.KeyConstraint
	for rows.Next() {
		var name, schema, table, column string
		var isPrimary int
		if err := rows.Scan(&name, &schema, &table, &column, &isPrimary); err != nil {
			return nil, fmt.Errorf("scan key constraint row: %w", err)
		}

		if n := len(keys); n > 0 && keys[n-1].ConstraintName == name && keys[n-1].TableName == table && keys[n-1].SchemaName == schema {
			keys[n-1].Columns = append(keys[n-1].Columns, column)
			continue
		}
		keys = append(keys, datasource.KeyConstraint{
			ConstraintName: name,
			SchemaName:     schema,
			TableName:      table,
			Columns:        []string{column},
			IsPrimary:      isPrimary == 1,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate key constraint rows: %w", err)
	}

	return keys, nil
}

// ListForeignKeys returns declared foreign key constraints, grouping
// multi-column keys by constraint in column order.
func (d *Introspector) ListForeignKeys(ctx context.Context) ([]datasource.ForeignKey, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT
	    fk.name AS constraint_name,
	    SCHEMA_NAME(fk.schema_id) AS source_schema,
	    OBJECT_NAME(fk.parent_object_id) AS source_table,
	    COL_NAME(fkc.parent_object_id, fkc.parent_column_id) AS source_column,
	    SCHEMA_NAME(rt.schema_id) AS target_schema,
	    OBJECT_NAME(fk.referenced_object_id) AS target_table,
	    COL_NAME(fkc.referenced_object_id, fkc.referenced_column_id) AS target_column
	FROM sys.foreign_keys fk
	INNER JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
	INNER JOIN sys.tables rt ON fk.referenced_object_id = rt.object_id
	WHERE fk.is_ms_shipped = 0
	ORDER BY source_schema, source_table, fk.name, fkc.constraint_column_id
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []datasource.ForeignKey
	for rows.Next() {
		var name, srcSchema, srcTable, srcCol, tgtSchema, tgtTable, tgtCol string
		if err := rows.Scan(&name, &srcSchema, &srcTable, &srcCol, &tgtSchema, &tgtTable, &tgtCol); err != nil {
			return nil, fmt.Errorf("scan foreign key row: %w", err)
		}

		if n := len(fks); n > 0 && fks[n-1].ConstraintName == name && fks[n-1].SourceTable == srcTable {
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
		return nil, fmt.Errorf("iterate foreign key rows: %w", err)
	}

	return fks, nil
}

// ColumnStats gathers row, non-null, and distinct counts for columns.
// Columns whose stats query fails are logged and returned with zero values
// rather than failing the table.
func (d *Introspector) ColumnStats(ctx context.Context, schemaName, tableName string, columnNames []string) ([]datasource.ColumnStats, error) {
	if len(columnNames) == 0 {
		return nil, nil
	}

	tableRef := qualifiedTableName(schemaName, tableName)

	var stats []datasource.ColumnStats
	for _, colName := range columnNames {
		quotedCol := quoteName(colName)

		query := fmt.Sprintf(`
			SET NOCOUNT ON;
			SELECT
				COUNT_BIG(*) as row_count,
				COUNT_BIG(%s) as non_null_count,
				COUNT_BIG(DISTINCT %s) as distinct_count
			FROM %s WITH (NOLOCK)
		`, quotedCol, quotedCol, tableRef)

		s := datasource.ColumnStats{ColumnName: colName}
		if err := d.db.QueryRowContext(ctx, query).Scan(&s.RowCount, &s.NonNullCount, &s.DistinctCount); err != nil {
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
		quoted[i] = quoteName(c)
	}

	query := fmt.Sprintf(`
		SET NOCOUNT ON;
		SELECT COUNT_BIG(*) FROM (
			SELECT DISTINCT %s FROM %s WITH (NOLOCK)
		) AS _k
	`, strings.Join(quoted, ", "), qualifiedTableName(schemaName, tableName))

	var count int64
	if err := d.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count distinct %s.%s(%s): %w",
			schemaName, tableName, strings.Join(columnNames, ","), err)
	}
	return count, nil
}

// Ensure Introspector implements datasource.Introspector at compile time.
var _ datasource.Introspector = (*Introspector)(nil)
