package models

import (
	"time"

	"github.com/google/uuid"
)

// Datasource is a registered connection to a database whose schema
// schemalens introspects. The DSN is stored as-is in the engine store;
// it is sanitized before ever reaching a log line.
type Datasource struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"` // "postgres", "sqlserver", "sqlite"
	DSN       string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Datasource types known to the adapter registry.
const (
	DatasourceTypePostgres  = "postgres"
	DatasourceTypeSQLServer = "sqlserver"
	DatasourceTypeSQLite    = "sqlite"
)
