package sqlite

import (
	"fmt"
	"strings"

	"omnicart/internal/storage"
)

// mapType maps a logical column type to a SQLite type affinity. Timestamps
// are stored as ISO-8601 TEXT.
func mapType(kind string) string {
	switch kind {
	case storage.TypeInt:
		return "INTEGER"
	case storage.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL returns a SQLite CREATE TABLE IF NOT EXISTS statement:
//
//	CREATE TABLE IF NOT EXISTS "table" (
//	  "col1" TYPE [NOT NULL],
//	  PRIMARY KEY ("pk1", "pk2")
//	);
func BuildCreateTableSQL(t storage.TableDef) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("sqlite %w", err)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		def := quoteIdent(c.Name) + " " + mapType(c.Type)
		if !c.Nullable || c.PrimaryKey {
			def += " NOT NULL"
		}
		cols = append(cols, def)
		if c.PrimaryKey {
			pks = append(pks, quoteIdent(c.Name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		quoteFQN(t.FQN),
		strings.Join(cols, ",\n  "),
	), nil
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func quoteFQN(fqn string) string { return storage.QuoteFQN(fqn, quoteIdent) }
