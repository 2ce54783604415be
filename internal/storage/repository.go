// Package storage defines the backend-agnostic repository contract used by
// the db sink, a factory that backends register with at init time, and the
// shared table/DDL model.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects a backend and the table a Repository writes to.
type Config struct {
	Kind    string // sqlite | postgres | mssql | mysql
	DSN     string
	Table   string
	Columns []string
	// KeyColumns are carried for backends that can upsert; the plain
	// CopyFrom path ignores them.
	KeyColumns []string
}

// Repository is a connection bound to one destination table.
type Repository interface {
	// CopyFrom bulk-inserts rows aligned to columns and returns the number
	// of rows written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
