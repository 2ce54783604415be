package main

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/sirupsen/logrus"

	"omnicart/internal/config"
	"omnicart/internal/datasource"
	"omnicart/internal/datasource/api"
	"omnicart/internal/datasource/file"
	"omnicart/internal/datasource/httpds"
	"omnicart/internal/metrics"
	"omnicart/internal/metrics/datadog"
	"omnicart/internal/metrics/prompush"
	"omnicart/internal/sink"
	"omnicart/internal/sink/db"
	"omnicart/internal/sink/jsonfile"
	"omnicart/internal/sink/s3"
)

// buildSource returns the record source selected by source.kind.
func buildSource(p config.Pipeline, log logrus.FieldLogger) (datasource.RecordSource, error) {
	switch p.Source.Kind {
	case "api":
		a := p.Source.API
		headers := http.Header{}
		for k, v := range a.Headers {
			headers.Set(k, v)
		}
		hc := httpds.NewClient(httpds.Config{
			Timeout:            a.Timeout.D(),
			InsecureSkipVerify: a.InsecureSkipVerify,
			BaseHeaders:        headers,
		})
		return api.New(hc, api.Config{
			BaseURL:      a.BaseURL,
			Limit:        a.Limit,
			MaxPages:     a.MaxPages,
			ProductsPath: a.ProductsPath,
			UsersPath:    a.UsersPath,
			ProductsKey:  a.ProductsKey,
			UsersKey:     a.UsersKey,
		}, log), nil
	case "file":
		f := p.Source.File
		return file.JSONSource{
			ProductsPath: f.ProductsPath,
			UsersPath:    f.UsersPath,
			ProductsKey:  f.ProductsKey,
			UsersKey:     f.UsersKey,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported source.kind=%s", p.Source.Kind)
	}
}

// buildSinks returns every configured sink: the report file, S3 and the
// SQL tables.
func buildSinks(p config.Pipeline, log logrus.FieldLogger) ([]sink.Sink, error) {
	var out []sink.Sink
	if !p.Output.Disabled {
		out = append(out, jsonfile.New(p.Output.Path))
	}
	if o := p.Output.S3; o.Enabled() {
		s, err := s3.New(s3.Config{
			Bucket:          o.Bucket,
			Prefix:          o.Prefix,
			Region:          o.Region,
			Endpoint:        o.Endpoint,
			PathStyle:       o.PathStyle,
			AccessKeyID:     o.AccessKeyID,
			SecretAccessKey: o.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if st := p.Storage; st.Enabled() {
		s, err := db.New(db.Config{
			Kind:          st.Kind,
			DSN:           st.DB.DSN,
			SellersTable:  st.DB.SellersTable,
			ProductsTable: st.DB.ProductsTable,
			BatchSize:     p.Runtime.BatchSize,
			AutoCreate:    st.DB.AutoCreateTable,
		}, log)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no sink configured")
	}
	return out, nil
}

// setupMetrics installs the backend named by metrics.backend and returns a
// function that flushes it. A backend that fails to initialize leaves the
// nop backend in place.
func setupMetrics(p config.Pipeline, log logrus.FieldLogger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch p.Metrics.Backend {
	case "pushgateway":
		b, err = prompush.NewBackend(p.Job, p.Metrics.PushgatewayURL)
	case "datadog":
		// An empty address is resolved by the statsd client from DD_* env.
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       p.Metrics.DatadogAddr,
			GlobalTags: tags(p),
		})
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}
	default:
		log.Warnf("metrics: unknown backend %q; metrics disabled", p.Metrics.Backend)
		return func() {}
	}
	if err != nil {
		log.WithError(err).Warn("metrics: init failed; using nop")
		return func() {}
	}

	log.WithField("backend", p.Metrics.Backend).Info("metrics: enabled")
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.WithError(err).Warn("metrics: flush error")
		}
	}
}

func tags(p config.Pipeline) []string {
	out := []string{"job:" + p.Job}
	keys := make([]string, 0, len(p.Metrics.Tags))
	for k := range p.Metrics.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+":"+p.Metrics.Tags[k])
	}
	return out
}

func sinkNames(sinks []sink.Sink) []string {
	out := make([]string, len(sinks))
	for i, s := range sinks {
		out[i] = s.Name()
	}
	return out
}
