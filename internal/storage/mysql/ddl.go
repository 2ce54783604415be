package mysql

import (
	"fmt"
	"strings"

	"omnicart/internal/storage"
)

func mapType(c storage.ColumnDef) string {
	switch c.Type {
	case storage.TypeInt:
		return "BIGINT"
	case storage.TypeFloat:
		return "DOUBLE"
	case storage.TypeTimestamp:
		return "DATETIME(6)"
	}
	// TEXT columns cannot be part of a key without a prefix length.
	if c.PrimaryKey {
		return "VARCHAR(255)"
	}
	return "TEXT"
}

// BuildCreateTableSQL renders a MySQL CREATE TABLE IF NOT EXISTS statement
// with a utf8mb4 default charset.
func BuildCreateTableSQL(t storage.TableDef) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("mysql %w", err)
	}

	lines := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		line := myIdent(c.Name) + " " + mapType(c)
		if !c.Nullable || c.PrimaryKey {
			line += " NOT NULL"
		}
		lines = append(lines, line)
		if c.PrimaryKey {
			pks = append(pks, myIdent(c.Name))
		}
	}
	if len(pks) > 0 {
		lines = append(lines, "PRIMARY KEY ("+strings.Join(pks, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n) DEFAULT CHARSET=utf8mb4;",
		quoteFQN(t.FQN), strings.Join(lines, ",\n  ")), nil
}

func quoteFQN(name string) string { return storage.QuoteFQN(name, myIdent) }
