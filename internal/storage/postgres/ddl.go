package postgres

import (
	"fmt"
	"strings"

	"omnicart/internal/storage"
)

func mapType(kind string) string {
	switch kind {
	case storage.TypeInt:
		return "bigint"
	case storage.TypeFloat:
		return "double precision"
	case storage.TypeTimestamp:
		return "timestamptz"
	default:
		return "text"
	}
}

// BuildCreateTableSQL renders a Postgres CREATE TABLE IF NOT EXISTS statement.
func BuildCreateTableSQL(t storage.TableDef) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("postgres %w", err)
	}

	lines := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		line := pgIdent(c.Name) + " " + mapType(c.Type)
		if !c.Nullable || c.PrimaryKey {
			line += " NOT NULL"
		}
		lines = append(lines, line)
		if c.PrimaryKey {
			pks = append(pks, pgIdent(c.Name))
		}
	}
	if len(pks) > 0 {
		lines = append(lines, "PRIMARY KEY ("+strings.Join(pks, ", ")+")")
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		storage.QuoteFQN(t.FQN, pgIdent), strings.Join(lines, ",\n  ")), nil
}
