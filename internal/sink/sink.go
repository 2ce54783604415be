// Package sink defines where a finished run is published and fans a run out
// to several destinations at once.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"omnicart/internal/domain"
	"omnicart/internal/metrics"
	"omnicart/internal/transformer/builtin"
)

// Result is everything one run produced. Sinks share a single Result and
// must treat it as read-only.
type Result struct {
	RunID     uuid.UUID
	Job       string
	StartedAt time.Time
	Report    domain.Report
	Rows      []domain.EnrichedRecord
	Warnings  []builtin.Warning
}

// Sink persists a Result.
type Sink interface {
	Name() string
	Write(ctx context.Context, res Result) error
}

// Fanout writes res to every sink concurrently. The first failure cancels
// the context handed to the others and is returned, prefixed with the
// failing sink's name.
func Fanout(ctx context.Context, log logrus.FieldLogger, res Result, sinks ...Sink) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sinks {
		s := s
		g.Go(func() error {
			start := time.Now()
			err := s.Write(gctx, res)
			metrics.RecordStep(res.Job, "publish_"+s.Name(), err, time.Since(start))

			entry := log.WithFields(logrus.Fields{
				"sink":    s.Name(),
				"run_id":  res.RunID.String(),
				"elapsed": time.Since(start).Truncate(time.Millisecond).String(),
			})
			if err != nil {
				entry.WithError(err).Error("sink: write failed")
				return fmt.Errorf("sink %s: %w", s.Name(), err)
			}
			entry.Info("sink: written")
			return nil
		})
	}
	return g.Wait()
}
