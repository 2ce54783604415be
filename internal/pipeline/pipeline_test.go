package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnicart/internal/datasource/api"
	"omnicart/internal/datasource/httpds"
	"omnicart/internal/domain"
	"omnicart/internal/metrics"
	"omnicart/internal/normalize"
	jsonparser "omnicart/internal/parser/json"
	"omnicart/internal/sink"
)

type fakeSource struct {
	products, users []any
	perr, uerr      error
	usersCalled     bool
}

func (f *fakeSource) FetchProducts(context.Context) ([]any, error) { return f.products, f.perr }

func (f *fakeSource) FetchUsers(context.Context) ([]any, error) {
	f.usersCalled = true
	return f.users, f.uerr
}

type captureSink struct {
	name string
	err  error

	mu  sync.Mutex
	got []Result
}

func (c *captureSink) Name() string { return c.name }

func (c *captureSink) Write(_ context.Context, res sink.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, res)
	return c.err
}

type countingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	gauges   map[string]float64
}

func newCountingBackend() *countingBackend {
	return &countingBackend{counters: map[string]float64{}, gauges: map[string]float64{}}
}

func (b *countingBackend) IncCounter(name string, delta float64, l metrics.Labels) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counters[name+"|"+l["step"]+l["kind"]+"|"+l["status"]] += delta
}

func (b *countingBackend) ObserveHistogram(string, float64, metrics.Labels) {}

func (b *countingBackend) SetGauge(name string, v float64, _ metrics.Labels) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gauges[name] = v
}

func (b *countingBackend) Flush() error { return nil }

func decode(t *testing.T, s string) []any {
	t.Helper()
	out, err := jsonparser.DecodeBytes([]byte(s), jsonparser.Options{AllowArrays: true})
	require.NoError(t, err)
	return out
}

var fixedRun = uuid.MustParse("00000000-0000-4000-8000-000000000001")

func newTestPipeline(src *fakeSource, sinks ...sink.Sink) *Pipeline {
	return New(Options{
		Job:      "test",
		Now:      func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) },
		NewRunID: func() uuid.UUID { return fixedRun },
	}, src, sinks...)
}

func TestRun_TwoSellers(t *testing.T) {
	src := &fakeSource{
		products: decode(t, `[
			{"id": 1, "price": 10.0, "userId": 1, "rating": {"count": 10}},
			{"id": 2, "price": 20.0, "userId": 2, "rating": {"count": 2}}
		]`),
		users: decode(t, `[{"id": 1, "username": "alice"}, {"id": 2, "username": "bob"}]`),
	}
	out := &captureSink{name: "capture"}
	p := newTestPipeline(src, out)

	require.True(t, p.Run(context.Background()))
	require.Len(t, out.got, 1)

	res := out.got[0]
	assert.Equal(t, fixedRun, res.RunID)
	assert.Equal(t, "test", res.Job)
	assert.Len(t, res.Rows, 2)

	sp := res.Report.SellerPerformance
	require.Len(t, sp, 2)
	assert.Equal(t, 100.0, sp["alice"].TotalRevenue)
	assert.Equal(t, 1, sp["alice"].ProductCount)
	assert.Equal(t, 40.0, sp["bob"].TotalRevenue)
	assert.Equal(t, 2, res.Report.OverallSummary.ActiveSellers)
	assert.Equal(t, 140.0, res.Report.OverallSummary.TotalRevenue)
}

func TestRun_NoUsersGoesToUnknownSeller(t *testing.T) {
	src := &fakeSource{
		products: decode(t, `[{"id": 1, "price": 5.0, "userId": null, "rating": {"count": 1}}]`),
		users:    nil,
	}
	out := &captureSink{name: "capture"}

	res, err := newTestPipeline(src, out).RunE(context.Background())
	require.NoError(t, err)

	sp := res.Report.SellerPerformance
	require.Len(t, sp, 1)
	assert.Equal(t, 5.0, sp[domain.UnknownSeller].TotalRevenue)
	assert.Equal(t, 1, sp[domain.UnknownSeller].ProductCount)
	assert.Zero(t, res.Report.OverallSummary.ActiveSellers)
}

func TestRun_EmptyProductsFails(t *testing.T) {
	src := &fakeSource{products: []any{}}
	out := &captureSink{name: "capture"}
	p := newTestPipeline(src, out)

	assert.False(t, p.Run(context.Background()))

	res, err := p.RunE(context.Background())
	require.ErrorIs(t, err, ErrNoProducts)
	assert.False(t, src.usersCalled, "users fetched after empty products")
	assert.Empty(t, out.got, "nothing is published")

	b, err := res.Report.MarshalIndent()
	require.NoError(t, err)
	assert.JSONEq(t, `{"seller_performance":{},"overall_summary":{}}`, string(b))
}

func TestFetch_ProductsErrorIsNoProducts(t *testing.T) {
	boom := errors.New("connection refused")
	src := &fakeSource{perr: boom}
	p := newTestPipeline(src)

	_, err := p.Fetch(context.Background())
	require.ErrorIs(t, err, ErrNoProducts)
	assert.ErrorIs(t, err, boom)
	assert.False(t, src.usersCalled)
}

func TestFetch_ProductsErrorKeepsFetchedPages(t *testing.T) {
	src := &fakeSource{
		perr:     errors.New("products page 3: 404"),
		products: decode(t, `[{"id": 1}, {"id": 2}]`),
		users:    decode(t, `[{"id": 1, "username": "alice"}]`),
	}
	raw, err := newTestPipeline(src).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, raw.Products, 2)
	assert.Len(t, raw.Users, 1)
}

// TestRun_PageAfterLastIsNotFound covers stores that answer 404 for the page
// past a catalog that is an exact multiple of the page size.
func TestRun_PageAfterLastIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/users":
			fmt.Fprint(w, `[{"id": 1, "username": "alice"}]`)
		case r.URL.Query().Get("page") == "1":
			fmt.Fprint(w, `[{"id": 1, "price": 1, "userId": 1}, {"id": 2, "price": 2, "userId": 1}]`)
		case r.URL.Query().Get("page") == "2":
			fmt.Fprint(w, `[{"id": 3, "price": 3, "userId": 1}, {"id": 4, "price": 4, "userId": 1}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := api.New(httpds.NewClient(httpds.Config{Timeout: 5 * time.Second}), api.Config{BaseURL: srv.URL, Limit: 2}, nil)
	out := &captureSink{name: "capture"}
	ok := New(Options{Job: "test"}, src, out).Run(context.Background())
	require.True(t, ok)
	require.Len(t, out.got, 1)
	assert.Equal(t, 4, out.got[0].Report.OverallSummary.TotalProducts)
	assert.Contains(t, out.got[0].Report.SellerPerformance, "alice")
}

func TestFetch_UsersErrorIsWarning(t *testing.T) {
	src := &fakeSource{
		products: decode(t, `[{"id": 1, "price": 2, "userId": 1, "rating": {"count": 3}}]`),
		users:    decode(t, `[{"id": 1, "username": "alice"}]`),
		uerr:     errors.New("503"),
	}
	raw, err := newTestPipeline(src).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, raw.Products, 1)
	assert.Nil(t, raw.Users)
}

func TestProcess_ContractError(t *testing.T) {
	p := newTestPipeline(&fakeSource{})
	_, err := p.Process(Raw{Products: []any{map[string]any{"id": 1}, "not an object"}})
	require.ErrorIs(t, err, normalize.ErrNotRecord)

	_, err = p.Process(Raw{Products: []any{map[string]any{"id": 1}}, Users: []any{42}})
	require.ErrorIs(t, err, normalize.ErrNotRecord)
}

func TestProcess_WarningsAndDefaults(t *testing.T) {
	p := newTestPipeline(&fakeSource{})
	res, err := p.Process(Raw{Products: decode(t, `[{"id": 1, "price": "abc", "rating": "great"}]`)})
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.Zero(t, res.Rows[0].Price)
	assert.NotEmpty(t, res.Warnings)
	assert.Equal(t, domain.UnknownCategory, res.Rows[0].Category)
}

func TestPublish_SinkFailureFailsRun(t *testing.T) {
	src := &fakeSource{products: decode(t, `[{"id": 1, "price": 1, "rating": {"count": 1}}]`)}
	ok := &captureSink{name: "ok"}
	bad := &captureSink{name: "bad", err: errors.New("denied")}

	res, err := newTestPipeline(src, ok, bad).RunE(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink bad")
	assert.Len(t, ok.got, 1)
	assert.Equal(t, 1.0, res.Report.OverallSummary.TotalRevenue)
}

func TestRun_RecordsMetrics(t *testing.T) {
	b := newCountingBackend()
	metrics.SetBackend(b)
	defer metrics.Reset()

	src := &fakeSource{
		products: decode(t, `[
			{"id": 1, "price": 10, "userId": 1, "rating": {"count": 1}},
			{"id": 2, "price": 10, "userId": 9, "rating": {"count": 1}}
		]`),
		users: decode(t, `[{"id": 1, "username": "alice"}]`),
	}
	require.True(t, newTestPipeline(src).Run(context.Background()))

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, 2.0, b.counters[metrics.RecordsTotal+"|products_fetched|"])
	assert.Equal(t, 1.0, b.counters[metrics.RecordsTotal+"|users_fetched|"])
	assert.Equal(t, 1.0, b.counters[metrics.RecordsTotal+"|enriched|"])
	assert.Equal(t, 1.0, b.counters[metrics.RecordsTotal+"|unmatched|"])
	assert.Equal(t, 1.0, b.counters[metrics.StepTotal+"|run|success"])
	assert.Equal(t, 1.0, b.counters[metrics.StepTotal+"|analyze|success"])
	assert.Equal(t, 20.0, b.gauges["omnicart_total_revenue"])
	assert.Equal(t, 1.0, b.gauges["omnicart_active_sellers"])
}
