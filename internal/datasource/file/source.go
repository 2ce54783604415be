// Package file implements a Source that reads product and user exports from
// the local disk instead of the store API.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"omnicart/internal/datasource"
	jsonparser "omnicart/internal/parser/json"
)

var (
	_ datasource.Source       = (*Local)(nil)
	_ datasource.RecordSource = JSONSource{}
)

// Local is a single file on the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open opens the file for reading. A context that is already done
// short-circuits before the filesystem is touched. Filesystem errors keep
// their identity for errors.Is (e.g. os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Decode opens the file and decodes it as a JSON array, an envelope, or
// NDJSON.
func (l *Local) Decode(ctx context.Context, opt jsonparser.Options) ([]any, error) {
	rc, err := l.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	opt.AllowArrays = true
	out, err := jsonparser.DecodeAll(rc, opt)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.path, err)
	}
	return out, nil
}

// JSONSource reads products and users from two local JSON files.
type JSONSource struct {
	ProductsPath string
	// UsersPath may be empty, or name a file that does not exist; either
	// way the run continues with no users.
	UsersPath string

	ProductsKey string
	UsersKey    string
}

// FetchProducts decodes ProductsPath.
func (s JSONSource) FetchProducts(ctx context.Context) ([]any, error) {
	if s.ProductsPath == "" {
		return nil, errors.New("file: products path is empty")
	}
	return NewLocal(s.ProductsPath).Decode(ctx, jsonparser.Options{Envelope: s.ProductsKey})
}

// FetchUsers decodes UsersPath.
func (s JSONSource) FetchUsers(ctx context.Context) ([]any, error) {
	if s.UsersPath == "" {
		return nil, nil
	}
	out, err := NewLocal(s.UsersPath).Decode(ctx, jsonparser.Options{Envelope: s.UsersKey})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return out, err
}
