package export

import (
	"fmt"
	"strings"

	"github.com/schemalens/schemalens/pkg/apperrors"
	"github.com/schemalens/schemalens/pkg/models"
)

// DDL flavors.
const (
	FlavorPostgres = "postgres"
	FlavorTSQL     = "tsql"
	FlavorSQLite   = "sqlite"
)

// Flavors lists the supported DDL dialects.
func Flavors() []string {
	return []string{FlavorPostgres, FlavorTSQL, FlavorSQLite}
}

// WriteDDL renders the snapshot as a DDL script in the given flavor:
// CREATE TABLE statements with primary keys chosen from the candidate keys,
// followed by ALTER TABLE foreign keys derived from the relationships.
func WriteDDL(flavor string, tables []*models.SnapshotTable, keys []*models.CandidateKey, rels []*models.Relationship) (string, error) {
	d, err := dialectFor(flavor)
	if err != nil {
		return "", err
	}

	keysByTable := make(map[string][]*models.CandidateKey)
	for _, k := range keys {
		qualified := qualify(k.SchemaName, k.TableName)
		keysByTable[qualified] = append(keysByTable[qualified], k)
	}

	var b strings.Builder
	for i, t := range tables {
		if i > 0 {
			b.WriteString("\n")
		}
		writeCreateTable(&b, d, t, pickPrimaryKey(keysByTable[t.QualifiedName()]))
	}

	wroteFK := false
	for _, rel := range rels {
		if rel.Cardinality != models.CardinalityOneToMany {
			continue
		}
		if !wroteFK {
			b.WriteString("\n")
			wroteFK = true
		}
		writeForeignKey(&b, d, rel)
	}

	return b.String(), nil
}

// pickPrimaryKey selects the key to declare as PRIMARY KEY: a declared PK
// wins, then a unique constraint, then the narrowest guessed key.
func pickPrimaryKey(keys []*models.CandidateKey) *models.CandidateKey {
	var best *models.CandidateKey
	rank := func(k *models.CandidateKey) int {
		switch k.Method {
		case models.KeyMethodDeclaredPK:
			return 0
		case models.KeyMethodUniqueIndex:
			return 1
		default:
			return 2
		}
	}
	for _, k := range keys {
		if best == nil {
			best = k
			continue
		}
		if rank(k) < rank(best) || (rank(k) == rank(best) && k.Level < best.Level) {
			best = k
		}
	}
	return best
}

func writeCreateTable(b *strings.Builder, d dialect, t *models.SnapshotTable, pk *models.CandidateKey) {
	fmt.Fprintf(b, "CREATE TABLE %s (\n", d.qualify(t.SchemaName, t.TableName))

	lines := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		line := fmt.Sprintf("    %s %s", d.quote(c.ColumnName), d.mapType(c.DataType))
		if !c.IsNullable {
			line += " NOT NULL"
		}
		if c.DefaultValue != nil {
			line += " DEFAULT " + *c.DefaultValue
		}
		lines = append(lines, line)
	}

	if pk != nil {
		quoted := make([]string, len(pk.Columns))
		for i, col := range pk.Columns {
			quoted[i] = d.quote(col)
		}
		lines = append(lines, fmt.Sprintf("    PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}

	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n);\n")
}

func writeForeignKey(b *strings.Builder, d dialect, rel *models.Relationship) {
	target := make([]string, len(rel.TargetColumns))
	for i, col := range rel.TargetColumns {
		target[i] = d.quote(col)
	}
	source := make([]string, len(rel.SourceColumns))
	for i, col := range rel.SourceColumns {
		source[i] = d.quote(col)
	}

	constraint := fmt.Sprintf("%s_%s_fk", rel.TargetTable, strings.Join(rel.TargetColumns, "_"))

	fmt.Fprintf(b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s);\n",
		d.qualify(rel.TargetSchema, rel.TargetTable),
		d.quote(constraint),
		strings.Join(target, ", "),
		d.qualify(rel.SourceSchema, rel.SourceTable),
		strings.Join(source, ", "))
}

// dialect captures the per-flavor differences: identifier quoting and type
// name mapping.
type dialect struct {
	flavor  string
	quote   func(string) string
	mapType func(string) string
}

func (d dialect) qualify(schema, table string) string {
	if schema == "" || d.flavor == FlavorSQLite {
		return d.quote(table)
	}
	return d.quote(schema) + "." + d.quote(table)
}

func dialectFor(flavor string) (dialect, error) {
	switch flavor {
	case FlavorPostgres:
		return dialect{flavor: flavor, quote: quoteDouble, mapType: mapPostgresType}, nil
	case FlavorTSQL:
		return dialect{flavor: flavor, quote: quoteBracket, mapType: mapTSQLType}, nil
	case FlavorSQLite:
		return dialect{flavor: flavor, quote: quoteDouble, mapType: mapSQLiteType}, nil
	default:
		return dialect{}, fmt.Errorf("ddl flavor %q: %w", flavor, apperrors.ErrUnsupportedType)
	}
}

func quoteDouble(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func quoteBracket(identifier string) string {
	return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
}

func mapPostgresType(dataType string) string {
	switch strings.ToLower(dataType) {
	case "datetime", "datetime2":
		return "timestamp"
	case "nvarchar", "varchar", "nvarchar(max)", "clob":
		return "text"
	case "int", "integer":
		return "integer"
	case "uniqueidentifier":
		return "uuid"
	default:
		return strings.ToLower(dataType)
	}
}

func mapTSQLType(dataType string) string {
	switch strings.ToLower(dataType) {
	case "text", "character varying", "varchar", "clob":
		return "NVARCHAR(MAX)"
	case "integer", "int":
		return "INT"
	case "boolean":
		return "BIT"
	case "uuid", "uniqueidentifier":
		return "UNIQUEIDENTIFIER"
	case "timestamp", "timestamp with time zone", "timestamptz", "datetime":
		return "DATETIME2"
	case "double precision", "real":
		return "FLOAT"
	default:
		return strings.ToUpper(dataType)
	}
}

func mapSQLiteType(dataType string) string {
	switch strings.ToLower(dataType) {
	case "int", "integer", "bigint", "smallint":
		return "INTEGER"
	case "double precision", "real", "float", "numeric", "decimal":
		return "REAL"
	case "boolean", "bit":
		return "INTEGER"
	default:
		return "TEXT"
	}
}

func qualify(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}
