package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"omnicart/internal/domain"
	"omnicart/internal/logging"
	"omnicart/internal/sink"
	"omnicart/internal/storage"
	_ "omnicart/internal/storage/sqlite"
)

func ptr(f float64) *float64 { return &f }

func testResult() sink.Result {
	return sink.Result{
		RunID:     uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		Job:       "omnicart",
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Report: domain.Report{
			SellerPerformance: map[string]domain.SellerMetrics{
				"bob": {
					TotalRevenue: 40, ProductCount: 1, AvgPrice: 20,
					Categories: []string{"books"}, TopProduct: "Novel",
					PerformanceMetrics: domain.PerformanceMetrics{AvgRating: 3.5, TotalQuantitySold: 2},
				},
				"alice": {
					TotalRevenue: 100, ProductCount: 1, AvgPrice: 10,
					Categories: []string{"electronics"}, TopProduct: "Cable",
					PerformanceMetrics: domain.PerformanceMetrics{AvgRating: 4, TotalQuantitySold: 10},
				},
			},
			OverallSummary: domain.OverallSummary{TotalRevenue: 140, TotalProducts: 3, ActiveSellers: 2},
		},
		Rows: []domain.EnrichedRecord{
			{ProductID: "1", Title: "Cable", Category: "electronics", Price: 10, Rating: ptr(4), SellerID: "1",
				Quantity: 10, Revenue: 100, Username: "alice", Email: "a@x", SellerName: "Alice A", Matched: true},
			{ProductID: "2", Title: "Novel", Category: "books", Price: 20, Rating: ptr(3.5), SellerID: "2",
				Quantity: 2, Revenue: 40, Username: "bob", Email: "b@x", SellerName: "Bob B", Matched: true},
			{ProductID: "3", Title: "Mug", Category: "home", Price: 5, SellerID: "99",
				Quantity: 1, Revenue: 5, SellerName: domain.UnknownSeller},
		},
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{DSN: "x"}, nil)
	require.Error(t, err)
	_, err = New(Config{Kind: "sqlite"}, nil)
	require.Error(t, err)

	s, err := New(Config{Kind: "sqlite", DSN: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSellersTable, s.cfg.SellersTable)
	assert.Equal(t, DefaultProductsTable, s.cfg.ProductsTable)
	assert.Equal(t, DefaultBatchSize, s.cfg.BatchSize)
	assert.Equal(t, "db", s.Name())
}

func TestSellerRows_SortedAndAligned(t *testing.T) {
	rows, err := SellerRows(testResult())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	cols := SellersTable(DefaultSellersTable).ColumnNames()
	for _, r := range rows {
		assert.Len(t, r, len(cols))
	}
	assert.Equal(t, "alice", rows[0][1])
	assert.Equal(t, "bob", rows[1][1])
	assert.Equal(t, `["electronics"]`, rows[0][5])
}

func TestProductRows_NullsForUnmatched(t *testing.T) {
	rows := ProductRows(testResult())
	require.Len(t, rows, 3)
	cols := ProductsTable(DefaultProductsTable).ColumnNames()
	assert.Len(t, rows[2], len(cols))

	unmatched := rows[2]
	assert.Equal(t, int64(2), unmatched[1])
	assert.Nil(t, unmatched[6], "rating")
	assert.Nil(t, unmatched[10], "username")
	assert.Nil(t, unmatched[11], "email")
	assert.Equal(t, domain.UnknownSeller, unmatched[12])
}

func TestSink_WriteSQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "omnicart.db")
	s, err := New(Config{Kind: "sqlite", DSN: dsn, BatchSize: 2, AutoCreate: true}, logging.Discard())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, testResult()))

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	var sellers int
	var revenue float64
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(total_revenue) FROM seller_performance`).Scan(&sellers, &revenue))
	assert.Equal(t, 2, sellers)
	assert.InDelta(t, 140, revenue, 1e-9)

	var products, unmatched int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(CASE WHEN username IS NULL THEN 1 ELSE 0 END) FROM enriched_products`).Scan(&products, &unmatched))
	assert.Equal(t, 3, products)
	assert.Equal(t, 1, unmatched)

	// A second run with a new id appends.
	res := testResult()
	res.RunID = uuid.New()
	require.NoError(t, s.Write(ctx, res))
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM enriched_products`).Scan(&products))
	assert.Equal(t, 6, products)

	// Same run id again violates the primary key.
	require.Error(t, s.Write(ctx, res))
}

type failingRepo struct{ closed bool }

func (f *failingRepo) CopyFrom(context.Context, []string, [][]any) (int64, error) {
	return 0, errors.New("copy failed")
}
func (f *failingRepo) Exec(context.Context, string) error { return nil }
func (f *failingRepo) Close()                             { f.closed = true }

func TestSink_WriteCopyError(t *testing.T) {
	orig := openRepository
	defer func() { openRepository = orig }()

	repo := &failingRepo{}
	var opened []string
	openRepository = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		opened = append(opened, cfg.Table)
		return repo, nil
	}

	s, err := New(Config{Kind: "sqlite", DSN: "unused"}, logging.Discard())
	require.NoError(t, err)

	err = s.Write(context.Background(), testResult())
	require.ErrorContains(t, err, "load seller_performance")
	assert.Equal(t, []string{"seller_performance"}, opened)
	assert.True(t, repo.closed)
}

func TestSink_WriteOpenError(t *testing.T) {
	s, err := New(Config{Kind: "nope", DSN: "x"}, nil)
	require.NoError(t, err)
	err = s.Write(context.Background(), testResult())
	require.ErrorContains(t, err, "unsupported storage.kind=nope")
}
