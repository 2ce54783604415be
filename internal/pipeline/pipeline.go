// Package pipeline runs one OmniCart report: fetch products and users, map
// them into domain values, join, aggregate and publish to every sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"omnicart/internal/analyze"
	"omnicart/internal/datasource"
	"omnicart/internal/domain"
	"omnicart/internal/enrich"
	"omnicart/internal/logging"
	"omnicart/internal/metrics"
	"omnicart/internal/normalize"
	"omnicart/internal/sink"
	"omnicart/internal/transformer/builtin"
)

// Soft failures: the run ends without publishing and Run reports false.
var (
	ErrNoProducts      = errors.New("no products fetched")
	ErrEmptyEnrichment = errors.New("enrichment produced no rows")
)

// Result is the outcome of one run as handed to sinks.
type Result = sink.Result

// Raw holds the undecoded elements returned by the source.
type Raw struct {
	Products []any
	Users    []any
}

// Options configures a Pipeline. Zero values are usable.
type Options struct {
	// Job labels logs and metrics. Defaults to "omnicart".
	Job string
	Log logrus.FieldLogger
	// Now and NewRunID are replaced in tests.
	Now      func() time.Time
	NewRunID func() uuid.UUID
}

func (o Options) withDefaults() Options {
	if o.Job == "" {
		o.Job = "omnicart"
	}
	if o.Log == nil {
		o.Log = logging.Discard()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewRunID == nil {
		o.NewRunID = uuid.New
	}
	return o
}

// Pipeline wires a source to its sinks.
type Pipeline struct {
	opt   Options
	src   datasource.RecordSource
	sinks []sink.Sink
}

// New returns a Pipeline reading from src and publishing to sinks.
func New(opt Options, src datasource.RecordSource, sinks ...sink.Sink) *Pipeline {
	return &Pipeline{opt: opt.withDefaults(), src: src, sinks: sinks}
}

// Fetch reads products then users. A products failure that returned no
// products, or no products at all, is ErrNoProducts. A failure after some
// pages keeps what was fetched. A users failure is logged and the run continues
// without users, so every product ends up under the unknown seller.
func (p *Pipeline) Fetch(ctx context.Context) (Raw, error) {
	job, log := p.opt.Job, p.opt.Log

	start := time.Now()
	products, err := p.src.FetchProducts(ctx)
	metrics.RecordStep(job, "fetch_products", err, time.Since(start))
	metrics.RecordRow(job, "products_fetched", int64(len(products)))
	switch {
	case err != nil && len(products) == 0:
		log.WithError(err).Error("fetch products failed")
		return Raw{}, fmt.Errorf("%w: %w", ErrNoProducts, err)
	case err != nil:
		log.WithError(err).WithField("partial", len(products)).
			Warn("fetch products stopped early; continuing with the pages already fetched")
	}
	if len(products) == 0 {
		return Raw{}, ErrNoProducts
	}

	start = time.Now()
	users, err := p.src.FetchUsers(ctx)
	metrics.RecordStep(job, "fetch_users", err, time.Since(start))
	if err != nil {
		log.WithError(err).Warn("fetch users failed; continuing without sellers")
		users = nil
	}
	metrics.RecordRow(job, "users_fetched", int64(len(users)))

	log.WithFields(logrus.Fields{"products": len(products), "users": len(users)}).Info("fetched")
	return Raw{Products: products, Users: users}, nil
}

// Process maps, joins and aggregates raw. It performs no I/O. The returned
// Result always carries a report; on ErrNoProducts it is the empty report.
func (p *Pipeline) Process(raw Raw) (Result, error) {
	job, log := p.opt.Job, p.opt.Log
	res := Result{
		RunID:     p.opt.NewRunID(),
		Job:       job,
		StartedAt: p.opt.Now(),
		Report:    domain.EmptyReport(),
	}
	if len(raw.Products) == 0 {
		return res, ErrNoProducts
	}

	start := time.Now()
	rows, warns, err := join(raw)
	metrics.RecordStep(job, "normalize", err, time.Since(start))
	res.Rows, res.Warnings = rows, warns
	if err != nil {
		return res, err
	}

	for _, w := range res.Warnings {
		log.WithFields(logrus.Fields{"index": w.Index, "field": w.Field, "value": w.Value}).Debug("normalize: " + w.Reason)
	}
	if n := len(res.Warnings); n > 0 {
		log.WithField("warnings", n).Warn("normalize: fields defaulted")
		metrics.RecordRow(job, "warnings", int64(n))
	}

	if len(res.Rows) == 0 {
		return res, ErrEmptyEnrichment
	}
	st := enrich.Stats(res.Rows)
	metrics.RecordRow(job, "enriched", int64(st.Matched))
	metrics.RecordRow(job, "unmatched", int64(st.Unmatched))
	log.WithFields(logrus.Fields{"rows": st.Rows, "matched": st.Matched, "unmatched": st.Unmatched}).Info("enriched")

	start = time.Now()
	report, err := analyze.Report(res.Rows)
	metrics.RecordStep(job, "analyze", err, time.Since(start))
	if err != nil {
		return res, fmt.Errorf("analyze: %w", err)
	}
	res.Report = report

	metrics.SetGauge(job, "total_revenue", report.OverallSummary.TotalRevenue)
	metrics.SetGauge(job, "active_sellers", float64(report.OverallSummary.ActiveSellers))
	metrics.SetGauge(job, "total_products", float64(report.OverallSummary.TotalProducts))
	return res, nil
}

func join(raw Raw) ([]domain.EnrichedRecord, []builtin.Warning, error) {
	products, pw, err := normalize.Products(raw.Products)
	if err != nil {
		return nil, nil, err
	}
	users, uw, err := normalize.Users(raw.Users)
	if err != nil {
		return nil, pw, err
	}
	return enrich.Enrich(products, users), append(pw, uw...), nil
}

// Publish hands res to every sink concurrently. Any sink failure fails the
// publish.
func (p *Pipeline) Publish(ctx context.Context, res Result) error {
	start := time.Now()
	err := sink.Fanout(ctx, p.opt.Log, res, p.sinks...)
	metrics.RecordStep(p.opt.Job, "publish", err, time.Since(start))
	return err
}

// RunE executes Fetch, Process and Publish. Nothing is published when
// Fetch or Process fails.
func (p *Pipeline) RunE(ctx context.Context) (Result, error) {
	job := p.opt.Job
	start := time.Now()

	raw, err := p.Fetch(ctx)
	if err != nil {
		res, _ := p.Process(Raw{})
		metrics.RecordStep(job, "run", err, time.Since(start))
		return res, err
	}
	res, err := p.Process(raw)
	if err == nil {
		err = p.Publish(ctx, res)
	}
	metrics.RecordStep(job, "run", err, time.Since(start))
	return res, err
}

// Run executes the pipeline end to end and reports success.
func (p *Pipeline) Run(ctx context.Context) bool {
	log := p.opt.Log.WithField("job", p.opt.Job)
	log.Info("pipeline: starting")
	start := time.Now()

	res, err := p.RunE(ctx)
	log = log.WithFields(logrus.Fields{
		"run_id":  res.RunID.String(),
		"elapsed": time.Since(start).Truncate(time.Millisecond).String(),
	})
	if err != nil {
		log.WithError(err).Error("pipeline: failed")
		return false
	}
	s := res.Report.OverallSummary
	log.WithFields(logrus.Fields{
		"sellers":       len(res.Report.SellerPerformance),
		"products":      s.TotalProducts,
		"total_revenue": s.TotalRevenue,
	}).Info("pipeline: completed")
	return true
}
