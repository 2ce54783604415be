package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Logical column types. Each backend maps them to its own SQL types.
const (
	TypeText      = "text"
	TypeInt       = "int"
	TypeFloat     = "float"
	TypeTimestamp = "timestamp"
)

// ColumnDef describes one column of a TableDef.
type ColumnDef struct {
	Name       string
	Type       string // one of the Type* constants
	Nullable   bool
	PrimaryKey bool
}

// TableDef is a backend-neutral table description.
type TableDef struct {
	FQN     string // table name, optionally schema-qualified
	Columns []ColumnDef
}

// ColumnNames returns the column names in declaration order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// KeyColumns returns the primary key column names in declaration order.
func (t TableDef) KeyColumns() []string {
	var out []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}

// Validate checks the fields every DDL builder relies on.
func (t TableDef) Validate() error {
	if strings.TrimSpace(t.FQN) == "" {
		return fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("ddl: table %s: at least one column is required", t.FQN)
	}
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("ddl: table %s: column with empty name", t.FQN)
		}
		switch c.Type {
		case TypeText, TypeInt, TypeFloat, TypeTimestamp:
		default:
			return fmt.Errorf("ddl: table %s: column %s: unknown type %q", t.FQN, c.Name, c.Type)
		}
	}
	return nil
}

// DDLBuilder renders a CREATE TABLE IF NOT EXISTS statement for one backend.
type DDLBuilder func(t TableDef) (string, error)

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBuilder{}
)

// RegisterDDL registers (or replaces) the DDL builder for kind. Backends call
// it from init.
func RegisterDDL(kind string, fn DDLBuilder) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// BuildDDL renders t with the builder registered for kind.
func BuildDDL(kind string, t TableDef) (string, error) {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no DDL builder registered for storage.kind=%q", kind)
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	return fn(t)
}

// EnsureTable creates t through repo unless it already exists.
func EnsureTable(ctx context.Context, kind string, repo Repository, t TableDef) error {
	stmt, err := BuildDDL(kind, t)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("apply DDL for %s: %w", t.FQN, err)
	}
	return nil
}

// QuoteFQN quotes each dot-separated segment of name with quote.
func QuoteFQN(name string, quote func(string) string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}
