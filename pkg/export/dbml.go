// Package export renders schema snapshots and inference results as DBML
// documents and SQL DDL scripts.
package export

import (
	"fmt"
	"strings"

	"github.com/schemalens/schemalens/pkg/models"
)

// WriteDBML renders the snapshot and its relationships as a DBML document:
// one Table block per snapshot table followed by one Ref line per
// relationship. One-to-one uses the "-" connector, one-to-many "<" with
// the key owner on the left.
func WriteDBML(tables []*models.SnapshotTable, rels []*models.Relationship) string {
	var b strings.Builder

	for i, t := range tables {
		if i > 0 {
			b.WriteString("\n")
		}
		writeTableBlock(&b, t)
	}

	if len(rels) > 0 {
		b.WriteString("\n")
		for _, rel := range rels {
			writeRefLine(&b, rel)
		}
	}

	return b.String()
}

func writeTableBlock(b *strings.Builder, t *models.SnapshotTable) {
	fmt.Fprintf(b, "Table %s {\n", t.QualifiedName())
	for _, c := range t.Columns {
		fmt.Fprintf(b, "    %s %s", columnIdent(c.ColumnName), dbmlType(c.DataType))
		if settings := columnSettings(c); settings != "" {
			fmt.Fprintf(b, " [%s]", settings)
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
}

func writeRefLine(b *strings.Builder, rel *models.Relationship) {
	connector := "<"
	if rel.Cardinality == models.CardinalityOneToOne {
		connector = "-"
	}
	fmt.Fprintf(b, "Ref: %s %s %s\n",
		refEndpoint(rel.SourceSchema, rel.SourceTable, rel.SourceColumns),
		connector,
		refEndpoint(rel.TargetSchema, rel.TargetTable, rel.TargetColumns))
}

// refEndpoint renders one side of a Ref line, using the composite
// "(a, b)" form when the relationship spans multiple columns.
func refEndpoint(schema, table string, cols []string) string {
	qualified := table
	if schema != "" {
		qualified = schema + "." + table
	}
	if len(cols) == 1 {
		return qualified + "." + cols[0]
	}
	return fmt.Sprintf("%s.(%s)", qualified, strings.Join(cols, ", "))
}

func columnSettings(c models.SnapshotColumn) string {
	var settings []string
	if c.IsPrimaryKey {
		settings = append(settings, "pk")
	}
	if c.IsUnique && !c.IsPrimaryKey {
		settings = append(settings, "unique")
	}
	if !c.IsNullable && !c.IsPrimaryKey {
		settings = append(settings, "not null")
	}
	if c.DefaultValue != nil {
		settings = append(settings, fmt.Sprintf("default: `%s`", *c.DefaultValue))
	}
	return strings.Join(settings, ", ")
}

// columnIdent quotes identifiers that would not survive a DBML parser.
func columnIdent(name string) string {
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			continue
		}
		return `"` + name + `"`
	}
	return name
}

// dbmlType normalizes multi-word SQL types so the DBML stays parseable.
func dbmlType(dataType string) string {
	if strings.ContainsAny(dataType, " ") {
		return `"` + dataType + `"`
	}
	return dataType
}
