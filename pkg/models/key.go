package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key discovery methods.
const (
	KeyMethodDeclaredPK  = "declared_pk"  // primary key constraint in the catalog
	KeyMethodUniqueIndex = "unique_index" // unique constraint/index in the catalog
	KeyMethodGuessed     = "guessed"      // found by the cardinality search
)

// CandidateKey is a column set whose concatenated values are unique across
// all rows of a table.
type CandidateKey struct {
	ID           uuid.UUID `json:"id"`
	TableID      uuid.UUID `json:"table_id"`
	SchemaName   string    `json:"schema_name"`
	TableName    string    `json:"table_name"`
	Columns      []string  `json:"columns"` // ordinal order within the combination
	Method       string    `json:"method"`
	Level        int       `json:"level"` // number of columns in the key
	DiscoveredAt time.Time `json:"discovered_at"`
}

// ColumnSet returns the key's columns as a canonical comma-joined string,
// used for set comparisons during relationship inference.
func (k *CandidateKey) ColumnSet() string {
	sorted := make([]string, len(k.Columns))
	copy(sorted, k.Columns)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
