package cli

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	_ "github.com/schemalens/schemalens/pkg/adapters/datasource/sqlite"
)

// runCommand executes the CLI with the given arguments and captures stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// seedDatabase creates a SQLite file with two related tables.
func seedDatabase(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	statements := []string{
		`CREATE TABLE customers (
			customer_id INTEGER PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			region TEXT
		)`,
		`CREATE TABLE orders (
			order_id INTEGER PRIMARY KEY,
			customer_id INTEGER NOT NULL REFERENCES customers (customer_id),
			status TEXT NOT NULL DEFAULT 'new'
		)`,
		`INSERT INTO customers VALUES (1, 'ada@example.com', 'EU'), (2, 'grace@example.com', NULL)`,
		`INSERT INTO orders (order_id, customer_id) VALUES (10, 1), (11, 1), (12, 2)`,
	}
	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "schemalens version dev")
}

func TestGuessKeysCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := seedDatabase(t)

	out, err := runCommand(t, "guess-keys", "--dsn", path, "--type", "sqlite")
	require.NoError(t, err)

	assert.Contains(t, out, "main.customers")
	assert.Contains(t, out, "customer_id")
	assert.Contains(t, out, "declared_pk")
	assert.Contains(t, out, "unique_index")
}

func TestDBMLCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := seedDatabase(t)

	out, err := runCommand(t, "dbml", "--dsn", path, "--type", "sqlite")
	require.NoError(t, err)

	assert.Contains(t, out, "Table main.customers {")
	assert.Contains(t, out, "Table main.orders {")
	assert.Contains(t, out, "Ref:")
}

func TestDDLCommandSQLiteFlavor(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := seedDatabase(t)

	out, err := runCommand(t, "ddl", "--dsn", path, "--type", "sqlite", "--flavor", "sqlite")
	require.NoError(t, err)

	assert.Contains(t, out, `CREATE TABLE "customers"`)
	assert.Contains(t, out, "PRIMARY KEY")
}

func TestDDLCommandUnknownFlavor(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := seedDatabase(t)

	_, err := runCommand(t, "ddl", "--dsn", path, "--type", "sqlite", "--flavor", "oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supported:")
}

func TestDBMLWriteToFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := seedDatabase(t)
	outPath := filepath.Join(t.TempDir(), "schema.dbml")

	_, err := runCommand(t, "dbml", "--dsn", path, "--type", "sqlite", "--out", outPath)
	require.NoError(t, err)

	assert.FileExists(t, outPath)
}

func TestProfileCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, err := runCommand(t, "profile", "set", "dev", "--dsn", "file:dev.db", "--type", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, `Saved profile "dev"`)

	out, err = runCommand(t, "profile", "set", "prod", "--dsn", "host=db", "--type", "postgres")
	require.NoError(t, err)
	assert.Contains(t, out, `Saved profile "prod"`)

	out, err = runCommand(t, "profile", "list")
	require.NoError(t, err)
	// First saved profile becomes the default; DSNs never appear.
	assert.Contains(t, out, "* dev (sqlite)")
	assert.Contains(t, out, "  prod (postgres)")
	assert.NotContains(t, out, "host=db")

	out, err = runCommand(t, "profile", "use", "prod")
	require.NoError(t, err)
	assert.Contains(t, out, `Default profile is now "prod"`)

	_, err = runCommand(t, "profile", "use", "staging")
	require.Error(t, err)
}
