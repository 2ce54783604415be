package mssql

import (
	"fmt"
	"strings"

	"omnicart/internal/storage"
)

// mapType maps logical types to SQL Server types. Key columns need a bounded
// length because NVARCHAR(MAX) cannot be indexed.
func mapType(c storage.ColumnDef) string {
	switch c.Type {
	case storage.TypeInt:
		return "BIGINT"
	case storage.TypeFloat:
		return "FLOAT"
	case storage.TypeTimestamp:
		return "DATETIMEOFFSET"
	}
	if c.PrimaryKey {
		return "NVARCHAR(400)"
	}
	return "NVARCHAR(MAX)"
}

// BuildCreateTableSQL renders a guarded CREATE TABLE; SQL Server has no
// CREATE TABLE IF NOT EXISTS.
func BuildCreateTableSQL(t storage.TableDef) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("mssql %w", err)
	}

	lines := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		null := " NULL"
		if !c.Nullable || c.PrimaryKey {
			null = " NOT NULL"
		}
		lines = append(lines, msIdent(c.Name)+" "+mapType(c)+null)
		if c.PrimaryKey {
			pks = append(pks, msIdent(c.Name))
		}
	}
	if len(pks) > 0 {
		lines = append(lines, "PRIMARY KEY ("+strings.Join(pks, ", ")+")")
	}

	fqn := storage.QuoteFQN(t.FQN, msIdent)
	objectName := strings.ReplaceAll(t.FQN, "'", "''")
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s (\n  %s\n);",
		objectName, fqn, strings.Join(lines, ",\n  ")), nil
}
