package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/schemalens/schemalens/pkg/database"
	"github.com/schemalens/schemalens/pkg/models"
)

// SnapshotRepository provides data access for captured schema snapshots.
type SnapshotRepository interface {
	// ReplaceSnapshot atomically swaps the stored snapshot of a datasource
	// for a freshly captured one. Table and column IDs are assigned here.
	ReplaceSnapshot(ctx context.Context, datasourceID uuid.UUID, tables []*models.SnapshotTable) error
	// ListTables returns the snapshot tables of a datasource with their
	// columns populated.
	ListTables(ctx context.Context, datasourceID uuid.UUID) ([]*models.SnapshotTable, error)
}

type snapshotRepository struct {
	db *database.DB
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *database.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

var _ SnapshotRepository = (*snapshotRepository)(nil)

func (r *snapshotRepository) ReplaceSnapshot(ctx context.Context, datasourceID uuid.UUID, tables []*models.SnapshotTable) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Cascade removes columns, candidate keys, and relationships that
	// reference the old snapshot.
	if _, err := tx.Exec(ctx, `DELETE FROM snapshot_tables WHERE datasource_id = $1`, datasourceID); err != nil {
		return fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	const insertTable = `
		INSERT INTO snapshot_tables (datasource_id, schema_name, table_name, row_count)
		VALUES ($1, $2, $3, $4)
		RETURNING id, captured_at`

	const insertColumn = `
		INSERT INTO snapshot_columns (
			table_id, column_name, data_type, is_nullable, is_primary_key,
			is_unique, ordinal_position, column_default, non_null_count, distinct_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	for _, t := range tables {
		t.DatasourceID = datasourceID
		err := tx.QueryRow(ctx, insertTable, datasourceID, t.SchemaName, t.TableName, t.RowCount).
			Scan(&t.ID, &t.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot table %s: %w", t.QualifiedName(), err)
		}

		for i := range t.Columns {
			c := &t.Columns[i]
			c.TableID = t.ID
			err := tx.QueryRow(ctx, insertColumn,
				t.ID, c.ColumnName, c.DataType, c.IsNullable, c.IsPrimaryKey,
				c.IsUnique, c.OrdinalPosition, c.DefaultValue, c.NonNullCount, c.DistinctCount,
			).Scan(&c.ID)
			if err != nil {
				return fmt.Errorf("failed to insert snapshot column %s.%s: %w", t.QualifiedName(), c.ColumnName, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepository) ListTables(ctx context.Context, datasourceID uuid.UUID) ([]*models.SnapshotTable, error) {
	const tableQuery = `
		SELECT id, datasource_id, schema_name, table_name, row_count, captured_at
		FROM snapshot_tables
		WHERE datasource_id = $1
		ORDER BY schema_name, table_name`

	rows, err := r.db.Query(ctx, tableQuery, datasourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot tables: %w", err)
	}
	defer rows.Close()

	tables := make([]*models.SnapshotTable, 0)
	byID := make(map[uuid.UUID]*models.SnapshotTable)
	for rows.Next() {
		var t models.SnapshotTable
		if err := rows.Scan(&t.ID, &t.DatasourceID, &t.SchemaName, &t.TableName, &t.RowCount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot table: %w", err)
		}
		tables = append(tables, &t)
		byID[t.ID] = &t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot tables: %w", err)
	}

	const columnQuery = `
		SELECT c.id, c.table_id, c.column_name, c.data_type, c.is_nullable,
		       c.is_primary_key, c.is_unique, c.ordinal_position, c.column_default,
		       c.non_null_count, c.distinct_count
		FROM snapshot_columns c
		JOIN snapshot_tables t ON t.id = c.table_id
		WHERE t.datasource_id = $1
		ORDER BY c.table_id, c.ordinal_position`

	colRows, err := r.db.Query(ctx, columnQuery, datasourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot columns: %w", err)
	}
	defer colRows.Close()

	for colRows.Next() {
		var c models.SnapshotColumn
		if err := colRows.Scan(&c.ID, &c.TableID, &c.ColumnName, &c.DataType, &c.IsNullable,
			&c.IsPrimaryKey, &c.IsUnique, &c.OrdinalPosition, &c.DefaultValue,
			&c.NonNullCount, &c.DistinctCount); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot column: %w", err)
		}
		if t, ok := byID[c.TableID]; ok {
			t.Columns = append(t.Columns, c)
		}
	}
	if err := colRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot columns: %w", err)
	}

	return tables, nil
}
