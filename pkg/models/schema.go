package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnapshotTable is a table captured from a datasource's catalog during a
// snapshot refresh.
type SnapshotTable struct {
	ID           uuid.UUID        `json:"id"`
	DatasourceID uuid.UUID        `json:"datasource_id"`
	SchemaName   string           `json:"schema_name"`
	TableName    string           `json:"table_name"`
	RowCount     int64            `json:"row_count"`
	CreatedAt    time.Time        `json:"created_at"`
	Columns      []SnapshotColumn `json:"columns,omitempty"` // populated on demand
}

// QualifiedName returns "schema.table", or just the table name when the
// engine has no schema concept (sqlite).
func (t *SnapshotTable) QualifiedName() string {
	if t.SchemaName == "" {
		return t.TableName
	}
	return fmt.Sprintf("%s.%s", t.SchemaName, t.TableName)
}

// SnapshotColumn is a column captured during a snapshot refresh, including
// the statistics the key guesser needs.
type SnapshotColumn struct {
	ID              uuid.UUID `json:"id"`
	TableID         uuid.UUID `json:"table_id"`
	ColumnName      string    `json:"column_name"`
	DataType        string    `json:"data_type"`
	IsNullable      bool      `json:"is_nullable"`
	IsPrimaryKey    bool      `json:"is_primary_key"`
	IsUnique        bool      `json:"is_unique"`
	OrdinalPosition int       `json:"ordinal_position"`
	DefaultValue    *string   `json:"default_value,omitempty"`
	// Stats populated during refresh; nil when stats collection failed.
	NonNullCount  *int64 `json:"non_null_count,omitempty"`
	DistinctCount *int64 `json:"distinct_count,omitempty"`
}

// HasNulls reports whether the column contains at least one NULL, judged
// against the owning table's row count. Columns without stats are treated
// as nullable so the key guesser skips them rather than guessing blind.
func (c *SnapshotColumn) HasNulls(tableRowCount int64) bool {
	if c.NonNullCount == nil {
		return c.IsNullable
	}
	return *c.NonNullCount < tableRowCount
}
