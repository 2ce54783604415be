package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// CopyFn abstracts a backend's bulk insert. It inserts rows aligned to
// columns and returns the number of rows written.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadStats summarizes a LoadBatches run.
type LoadStats struct {
	Rows    int64
	Batches int64
}

// LoadBatches drains rows from in, groups them into batches of batchSize,
// and calls copyFn for each non-empty batch. It returns the totals reported
// so far together with the first error. A canceled ctx returns ctx.Err().
//
// Each successful flush is logged at debug level with running totals and
// rows/sec since the previous flush.
func LoadBatches(
	ctx context.Context,
	log logrus.FieldLogger,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (LoadStats, error) {
	var st LoadStats
	if batchSize <= 0 {
		return st, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return st, fmt.Errorf("copyFn must not be nil")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	var (
		batch     = make([][]any, 0, batchSize)
		start     = time.Now()
		lastFlush = start
		lastRows  int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		st.Rows += n
		batch = batch[:0]

		if err != nil {
			log.WithFields(logrus.Fields{"after": n, "total": st.Rows}).WithError(err).Error("loader: copy failed")
			return err
		}

		st.Batches++
		now := time.Now()
		since := now.Sub(lastFlush)
		rps := float64(0)
		if since > 0 {
			rps = float64(st.Rows-lastRows) / since.Seconds()
		}
		log.WithFields(logrus.Fields{
			"batch":    st.Batches,
			"rps":      int64(rps),
			"inserted": n,
			"total":    st.Rows,
			"elapsed":  now.Sub(start).Truncate(time.Millisecond).String(),
		}).Debug("loader: batch flushed")
		lastFlush = now
		lastRows = st.Rows
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return st, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return st, err
				}
				return st, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return st, err
				}
			}
		}
	}
}

// Feed streams rows into a channel until they are exhausted or ctx is done.
// The channel is closed when Feed's goroutine exits.
func Feed(ctx context.Context, rows [][]any) <-chan []any {
	out := make(chan []any)
	go func() {
		defer close(out)
		for _, r := range rows {
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
