// Package db persists a run into SQL tables through the storage factory:
// one row per seller and one row per enriched product, both keyed by run id.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"omnicart/internal/domain"
	"omnicart/internal/logging"
	"omnicart/internal/metrics"
	"omnicart/internal/sink"
	"omnicart/internal/storage"
)

// Defaults applied by New.
const (
	DefaultSellersTable  = "seller_performance"
	DefaultProductsTable = "enriched_products"
	DefaultBatchSize     = 500
)

// Config selects the backend and destination tables.
type Config struct {
	Kind          string // any kind registered with storage (see storage/all)
	DSN           string
	SellersTable  string
	ProductsTable string
	BatchSize     int
	// AutoCreate issues CREATE TABLE IF NOT EXISTS before loading.
	AutoCreate bool
}

func (c Config) withDefaults() Config {
	if c.SellersTable == "" {
		c.SellersTable = DefaultSellersTable
	}
	if c.ProductsTable == "" {
		c.ProductsTable = DefaultProductsTable
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// openRepository is a test hook that points to storage.New by default.
var openRepository = storage.New

// Sink writes seller metrics and enriched rows.
type Sink struct {
	cfg Config
	log logrus.FieldLogger
}

var _ sink.Sink = (*Sink)(nil)

// New returns a Sink. A nil log discards output.
func New(cfg Config, log logrus.FieldLogger) (*Sink, error) {
	if strings.TrimSpace(cfg.Kind) == "" {
		return nil, fmt.Errorf("db sink: storage kind is empty")
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("db sink: dsn is empty")
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Sink{cfg: cfg.withDefaults(), log: log}, nil
}

// Name implements sink.Sink.
func (s *Sink) Name() string { return "db" }

// SellersTable describes the per-seller table.
func SellersTable(fqn string) storage.TableDef {
	return storage.TableDef{
		FQN: fqn,
		Columns: []storage.ColumnDef{
			{Name: "run_id", Type: storage.TypeText, PrimaryKey: true},
			{Name: "seller", Type: storage.TypeText, PrimaryKey: true},
			{Name: "total_revenue", Type: storage.TypeFloat},
			{Name: "product_count", Type: storage.TypeInt},
			{Name: "avg_price", Type: storage.TypeFloat},
			{Name: "categories", Type: storage.TypeText},
			{Name: "top_product", Type: storage.TypeText},
			{Name: "avg_rating", Type: storage.TypeFloat},
			{Name: "total_quantity_sold", Type: storage.TypeInt},
			{Name: "created_at", Type: storage.TypeTimestamp},
		},
	}
}

// ProductsTable describes the enriched product table. Seller columns are
// null for products without a matching user.
func ProductsTable(fqn string) storage.TableDef {
	return storage.TableDef{
		FQN: fqn,
		Columns: []storage.ColumnDef{
			{Name: "run_id", Type: storage.TypeText, PrimaryKey: true},
			{Name: "row_num", Type: storage.TypeInt, PrimaryKey: true},
			{Name: "product_id", Type: storage.TypeText, Nullable: true},
			{Name: "title", Type: storage.TypeText},
			{Name: "category", Type: storage.TypeText},
			{Name: "price", Type: storage.TypeFloat},
			{Name: "rating", Type: storage.TypeFloat, Nullable: true},
			{Name: "seller_id", Type: storage.TypeText, Nullable: true},
			{Name: "quantity", Type: storage.TypeInt},
			{Name: "revenue", Type: storage.TypeFloat},
			{Name: "username", Type: storage.TypeText, Nullable: true},
			{Name: "email", Type: storage.TypeText, Nullable: true},
			{Name: "seller_name", Type: storage.TypeText},
			{Name: "created_at", Type: storage.TypeTimestamp},
		},
	}
}

// Write implements sink.Sink. Sellers are written before products; a failure
// in either table fails the write.
func (s *Sink) Write(ctx context.Context, res sink.Result) error {
	sellers, err := SellerRows(res)
	if err != nil {
		return err
	}
	if err := s.load(ctx, res.Job, SellersTable(s.cfg.SellersTable), sellers); err != nil {
		return err
	}
	return s.load(ctx, res.Job, ProductsTable(s.cfg.ProductsTable), ProductRows(res))
}

func (s *Sink) load(ctx context.Context, job string, t storage.TableDef, rows [][]any) error {
	cols := t.ColumnNames()
	repo, err := openRepository(ctx, storage.Config{
		Kind:       s.cfg.Kind,
		DSN:        s.cfg.DSN,
		Table:      t.FQN,
		Columns:    cols,
		KeyColumns: t.KeyColumns(),
	})
	if err != nil {
		return fmt.Errorf("db sink: open %s: %w", t.FQN, err)
	}
	defer repo.Close()

	if s.cfg.AutoCreate {
		if err := storage.EnsureTable(ctx, s.cfg.Kind, repo, t); err != nil {
			return fmt.Errorf("db sink: %w", err)
		}
	}

	lctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := storage.LoadBatches(lctx, s.log.WithField("table", t.FQN), cols, storage.Feed(lctx, rows), s.cfg.BatchSize, repo.CopyFrom)
	metrics.RecordBatches(job, st.Batches)
	metrics.RecordRow(job, "persisted", st.Rows)
	if err != nil {
		return fmt.Errorf("db sink: load %s: %w", t.FQN, err)
	}
	s.log.WithFields(logrus.Fields{"table": t.FQN, "rows": st.Rows, "batches": st.Batches}).Debug("db sink: table loaded")
	return nil
}

// SellerRows flattens the report's seller map in key order, aligned to
// SellersTable columns.
func SellerRows(res sink.Result) ([][]any, error) {
	names := make([]string, 0, len(res.Report.SellerPerformance))
	for name := range res.Report.SellerPerformance {
		names = append(names, name)
	}
	sort.Strings(names)

	runID := res.RunID.String()
	out := make([][]any, 0, len(names))
	for _, name := range names {
		m := res.Report.SellerPerformance[name]
		cats := m.Categories
		if cats == nil {
			cats = []string{}
		}
		catJSON, err := json.Marshal(cats)
		if err != nil {
			return nil, fmt.Errorf("db sink: encode categories of %q: %w", name, err)
		}
		out = append(out, []any{
			runID,
			name,
			m.TotalRevenue,
			int64(m.ProductCount),
			m.AvgPrice,
			string(catJSON),
			m.TopProduct,
			m.PerformanceMetrics.AvgRating,
			m.PerformanceMetrics.TotalQuantitySold,
			res.StartedAt.UTC(),
		})
	}
	return out, nil
}

// ProductRows converts enriched rows, aligned to ProductsTable columns.
func ProductRows(res sink.Result) [][]any {
	runID := res.RunID.String()
	out := make([][]any, 0, len(res.Rows))
	for i, r := range res.Rows {
		var rating any
		if r.Rating != nil {
			rating = *r.Rating
		}
		out = append(out, []any{
			runID,
			int64(i),
			nullable(string(r.ProductID)),
			r.Title,
			r.Category,
			r.Price,
			rating,
			nullable(string(r.SellerID)),
			r.Quantity,
			r.Revenue,
			nullable(r.Username),
			nullable(r.Email),
			sellerName(r),
			res.StartedAt.UTC(),
		})
	}
	return out
}

func sellerName(r domain.EnrichedRecord) string {
	if r.SellerName == "" {
		return domain.UnknownSeller
	}
	return r.SellerName
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
