// Package datasource defines the contracts shared by the record sources.
package datasource

import (
	"context"
	"io"
)

// Source is a raw byte stream, such as a local file.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// RecordSource yields decoded product and user elements. Elements are
// whatever the JSON decoder produced; mapping them into typed values is the
// normalizer's job.
type RecordSource interface {
	FetchProducts(ctx context.Context) ([]any, error)
	FetchUsers(ctx context.Context) ([]any, error)
}
