package models

import (
	"time"

	"github.com/google/uuid"
)

// Relationship cardinalities.
const (
	CardinalityOneToOne  = "1:1"
	CardinalityOneToMany = "1:N"
)

// Relationship detection methods.
const (
	RelationshipMethodFK       = "fk"        // declared foreign key constraint
	RelationshipMethodKeyMatch = "key_match" // inferred from candidate-key column sets
)

// Relationship links two tables through matching column sets. For
// one-to-many, the source is the "one" side (the key owner) and the target
// is the "many" side.
type Relationship struct {
	ID            uuid.UUID `json:"id"`
	DatasourceID  uuid.UUID `json:"datasource_id"`
	SourceTableID uuid.UUID `json:"source_table_id"`
	TargetTableID uuid.UUID `json:"target_table_id"`
	SourceSchema  string    `json:"source_schema"`
	SourceTable   string    `json:"source_table"`
	TargetSchema  string    `json:"target_schema"`
	TargetTable   string    `json:"target_table"`
	SourceColumns []string  `json:"source_columns"`
	TargetColumns []string  `json:"target_columns"`
	Cardinality   string    `json:"cardinality"`
	Method        string    `json:"method"`
	Confidence    float64   `json:"confidence"`
	Label         string    `json:"label,omitempty"` // human-readable description
	CreatedAt     time.Time `json:"created_at"`
}
