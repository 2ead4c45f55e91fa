package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/adapters/datasource"
)

// mainSchema is what SQLite calls its default database. Reported as the
// schema name so downstream consumers see consistent qualified names.
const mainSchema = "main"

// quoteName quotes a SQLite identifier with double quotes, escaping
// embedded quotes by doubling them.
func quoteName(identifier string) string {
	escaped := strings.ReplaceAll(identifier, `"`, `""`)
	return `"` + escaped + `"`
}

// Introspector reads SQLite metadata via sqlite_master and PRAGMA calls.
type Introspector struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewIntrospector opens the SQLite database file named by dsn.
// If logger is nil, a no-op logger is used.
func NewIntrospector(ctx context.Context, dsn string, logger *zap.Logger) (*Introspector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	return &Introspector{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (d *Introspector) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// ListTables returns all user tables with exact row counts. Internal
// sqlite_* tables are excluded.
func (d *Introspector) ListTables(ctx context.Context) ([]datasource.TableInfo, error) {
	const query = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.TableInfo
	for rows.Next() {
		t := datasource.TableInfo{SchemaName: mainSchema}
		if err := rows.Scan(&t.TableName); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}

	for i := range tables {
		countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteName(tables[i].TableName))
		if err := d.db.QueryRowContext(ctx, countQuery).Scan(&tables[i].RowCount); err != nil {
			return nil, fmt.Errorf("count rows for %s: %w", tables[i].TableName, err)
		}
	}

	return tables, nil
}

// ListColumns returns columns for a specific table via PRAGMA table_info,
// with single-column unique indexes detected via PRAGMA index_list.
func (d *Introspector) ListColumns(ctx context.Context, schemaName, tableName string) ([]datasource.ColumnInfo, error) {
	uniqueCols, err := d.singleColumnUniques(ctx, tableName)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`PRAGMA table_info(%s)`, quoteName(tableName))
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pragma table_info: %w", err)
	}
	defer rows.Close()

	var columns []datasource.ColumnInfo
	for rows.Next() {
		var (
			cid        int
			name       string
			dataType   string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info row: %w", err)
		}

		c := datasource.ColumnInfo{
			ColumnName:      name,
			DataType:        strings.ToLower(dataType),
			IsNullable:      notNull == 0 && pk == 0,
			IsPrimaryKey:    pk > 0,
			IsUnique:        uniqueCols[name],
			OrdinalPosition: cid + 1,
		}
		if defaultVal.Valid {
			c.DefaultValue = &defaultVal.String
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table_info rows: %w", err)
	}

	return columns, nil
}

// singleColumnUniques returns the set of columns covered by a
// single-column unique index on the table.
func (d *Introspector) singleColumnUniques(ctx context.Context, tableName string) (map[string]bool, error) {
	indexes, err := d.uniqueIndexes(ctx, tableName)
	if err != nil {
		return nil, err
	}

	uniques := make(map[string]bool)
	for _, idx := range indexes {
		if len(idx.columns) == 1 {
			uniques[idx.columns[0]] = true
		}
	}
	return uniques, nil
}

type uniqueIndex struct {
	name      string
	columns   []string
	isPrimary bool
}

// uniqueIndexes lists unique indexes on a table with their column lists.
// Includes the implicit primary key index when SQLite materializes one.
func (d *Introspector) uniqueIndexes(ctx context.Context, tableName string) ([]uniqueIndex, error) {
	listQuery := fmt.Sprintf(`PRAGMA index_list(%s)`, quoteName(tableName))
	rows, err := d.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("pragma index_list: %w", err)
	}

	var indexes []uniqueIndex
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan index_list row: %w", err)
		}
		if unique != 1 || partial == 1 {
			continue
		}
		indexes = append(indexes, uniqueIndex{name: name, isPrimary: origin == "pk"})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate index_list rows: %w", err)
	}
	rows.Close()

	for i := range indexes {
		infoQuery := fmt.Sprintf(`PRAGMA index_info(%s)`, quoteName(indexes[i].name))
		infoRows, err := d.db.QueryContext(ctx, infoQuery)
		if err != nil {
			return nil, fmt.Errorf("pragma index_info: %w", err)
		}
		for infoRows.Next() {
			var seqno, cid int
			var colName sql.NullString
			if err := infoRows.Scan(&seqno, &cid, &colName); err != nil {
				infoRows.Close()
				return nil, fmt.Errorf("scan index_info row: %w", err)
			}
			if colName.Valid {
				indexes[i].columns = append(indexes[i].columns, colName.String)
			}
		}
		if err := infoRows.Err(); err != nil {
			infoRows.Close()
			return nil, fmt.Errorf("iterate index_info rows: %w", err)
		}
		infoRows.Close()
	}

	return indexes, nil
}

// ListKeyConstraints returns declared primary keys and unique indexes for
// every user table. INTEGER PRIMARY KEY columns have no materialized index,
// so primary keys come from PRAGMA table_info instead.
func (d *Introspector) ListKeyConstraints(ctx context.Context) ([]datasource.KeyConstraint, error) {
	tables, err := d.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	var keys []datasource.KeyConstraint
	for _, t := range tables {
		pkCols, err := d.primaryKeyColumns(ctx, t.TableName)
		if err != nil {
			return nil, err
		}
		if len(pkCols) > 0 {
			keys = append(keys, datasource.KeyConstraint{
				ConstraintName: t.TableName + "_pkey",
				SchemaName:     mainSchema,
				TableName:      t.TableName,
				Columns:        pkCols,
				IsPrimary:      true,
			})
		}

		indexes, err := d.uniqueIndexes(ctx, t.TableName)
		if err != nil {
			return nil, err
		}
		for _, idx := range indexes {
			if idx.isPrimary || len(idx.columns) == 0 {
				continue
			}
			keys = append(keys, datasource.KeyConstraint{
				ConstraintName: idx.name,
				SchemaName:     mainSchema,
				TableName:      t.TableName,
				Columns:        idx.columns,
				IsPrimary:      false,
			})
		}
	}

	return keys, nil
}

// primaryKeyColumns reads the primary key columns of a table in key order.
func (d *Introspector) primaryKeyColumns(ctx context.Context, tableName string) ([]string, error) {
	query := fmt.Sprintf(`PRAGMA table_info(%s)`, quoteName(tableName))
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pragma table_info: %w", err)
	}
	defer rows.Close()

	// pk column in table_info is the 1-based position within the key
	byPosition := map[int]string{}
	for rows.Next() {
		var (
			cid        int
			name       string
			dataType   string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info row: %w", err)
		}
		if pk > 0 {
			byPosition[pk] = name
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table_info rows: %w", err)
	}

	cols := make([]string, 0, len(byPosition))
	for i := 1; i <= len(byPosition); i++ {
		cols = append(cols, byPosition[i])
	}
	return cols, nil
}

// ListForeignKeys returns declared foreign keys for every user table via
// PRAGMA foreign_key_list, grouping multi-column keys by their id.
func (d *Introspector) ListForeignKeys(ctx context.Context) ([]datasource.ForeignKey, error) {
	tables, err := d.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	var fks []datasource.ForeignKey
	for _, t := range tables {
		query := fmt.Sprintf(`PRAGMA foreign_key_list(%s)`, quoteName(t.TableName))
		rows, err := d.db.QueryContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("pragma foreign_key_list: %w", err)
		}

		lastID := -1
		for rows.Next() {
			var (
				id, seq                   int
				refTable, from            string
				to                        sql.NullString
				onUpdate, onDelete, match string
			)
			if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan foreign_key_list row: %w", err)
			}

			targetCol := to.String
			if !to.Valid {
				// Omitted target column means the referenced table's PK.
				pkCols, err := d.primaryKeyColumns(ctx, refTable)
				if err != nil {
					rows.Close()
					return nil, fmt.Errorf("resolve referenced key of %s: %w", refTable, err)
				}
				if seq < len(pkCols) {
					targetCol = pkCols[seq]
				}
			}

			if id == lastID && len(fks) > 0 {
				fks[len(fks)-1].SourceColumns = append(fks[len(fks)-1].SourceColumns, from)
				fks[len(fks)-1].TargetColumns = append(fks[len(fks)-1].TargetColumns, targetCol)
				continue
			}
			lastID = id
			fks = append(fks, datasource.ForeignKey{
				ConstraintName: fmt.Sprintf("%s_fk_%d", t.TableName, id),
				SourceSchema:   mainSchema,
				SourceTable:    t.TableName,
				SourceColumns:  []string{from},
				TargetSchema:   mainSchema,
				TargetTable:    refTable,
				TargetColumns:  []string{targetCol},
			})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate foreign_key_list rows: %w", err)
		}
		rows.Close()
	}

	return fks, nil
}

// ColumnStats gathers row, non-null, and distinct counts for columns.
func (d *Introspector) ColumnStats(ctx context.Context, schemaName, tableName string, columnNames []string) ([]datasource.ColumnStats, error) {
	if len(columnNames) == 0 {
		return nil, nil
	}

	quotedTable := quoteName(tableName)

	var stats []datasource.ColumnStats
	for _, colName := range columnNames {
		quotedCol := quoteName(colName)

		query := fmt.Sprintf(`
			SELECT
				COUNT(*) as row_count,
				COUNT(%s) as non_null_count,
				COUNT(DISTINCT %s) as distinct_count
			FROM %s
		`, quotedCol, quotedCol, quotedTable)

		s := datasource.ColumnStats{ColumnName: colName}
		if err := d.db.QueryRowContext(ctx, query).Scan(&s.RowCount, &s.NonNullCount, &s.DistinctCount); err != nil {
			d.logger.Warn("Failed to analyze column stats, using zero values",
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
		SELECT COUNT(*) FROM (
			SELECT DISTINCT %s FROM %s
		)
	`, strings.Join(quoted, ", "), quoteName(tableName))

	var count int64
	if err := d.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count distinct %s(%s): %w",
			tableName, strings.Join(columnNames, ","), err)
	}
	return count, nil
}

// Ensure Introspector implements datasource.Introspector at compile time.
var _ datasource.Introspector = (*Introspector)(nil)
