package datasource

// TableInfo describes a discovered database table.
type TableInfo struct {
	SchemaName string
	TableName  string
	RowCount   int64
}

// ColumnInfo describes a discovered database column.
type ColumnInfo struct {
	ColumnName      string
	DataType        string
	IsNullable      bool
	IsPrimaryKey    bool
	IsUnique        bool
	OrdinalPosition int
	DefaultValue    *string
}

// KeyConstraint describes a declared primary key or unique constraint.
// Columns are in constraint ordinal order.
type KeyConstraint struct {
	ConstraintName string
	SchemaName     string
	TableName      string
	Columns        []string
	IsPrimary      bool
}

// ForeignKey describes a declared foreign key constraint.
type ForeignKey struct {
	ConstraintName string
	SourceSchema   string
	SourceTable    string
	SourceColumns  []string
	TargetSchema   string
	TargetTable    string
	TargetColumns  []string
}

// ColumnStats contains cardinality statistics for a single column.
type ColumnStats struct {
	ColumnName    string
	RowCount      int64
	NonNullCount  int64
	DistinctCount int64
}
