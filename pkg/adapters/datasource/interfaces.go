package datasource

import "context"

// Introspector reads catalog metadata and column statistics from a
// datasource. Each implementation owns its connection and must be closed
// when done.
type Introspector interface {
	// ListTables returns all user tables with row counts. System schemas
	// are excluded.
	ListTables(ctx context.Context) ([]TableInfo, error)

	// ListColumns returns columns for a specific table, in ordinal order,
	// with nullability and PK/unique detection from the engine's catalog.
	ListColumns(ctx context.Context, schemaName, tableName string) ([]ColumnInfo, error)

	// ListKeyConstraints returns declared primary key and unique
	// constraints, including multi-column ones.
	ListKeyConstraints(ctx context.Context) ([]KeyConstraint, error)

	// ListForeignKeys returns declared foreign key constraints.
	ListForeignKeys(ctx context.Context) ([]ForeignKey, error)

	// ColumnStats gathers row, non-null, and distinct counts per column.
	// Used for null filtering before the candidate-key search.
	ColumnStats(ctx context.Context, schemaName, tableName string, columnNames []string) ([]ColumnStats, error)

	// CountDistinct counts distinct combinations of the given columns.
	// A combination count equal to the table's row count means the column
	// set is a unique key. This is the uniqueness probe of the key guesser.
	CountDistinct(ctx context.Context, schemaName, tableName string, columnNames []string) (int64, error)

	// Close releases the database connection.
	Close() error
}
