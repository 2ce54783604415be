package datadog

import (
	"reflect"
	"testing"

	"omnicart/internal/metrics"
)

type call struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	calls  []call
	closed int
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"histogram", name, value, tags})
	return nil
}

func (f *fakeClient) Gauge(name string, value float64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"gauge", name, value, tags})
	return nil
}

func (f *fakeClient) Close() error {
	f.closed++
	return nil
}

func TestNewBackend_AddrFromEnv(t *testing.T) {
	t.Setenv("DD_AGENT_HOST", "127.0.0.1")
	t.Setenv("DD_DOGSTATSD_PORT", "8125")
	b, err := NewBackend(Config{})
	if err != nil {
		t.Fatalf("NewBackend with empty Addr: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestNewBackend_UDP(t *testing.T) {
	// UDP statsd clients do not dial a listener, so construction succeeds
	// without an agent.
	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "omnicart.", GlobalTags: []string{"env:test"}})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestBackend_ForwardsCalls(t *testing.T) {
	fc := &fakeClient{}
	b := &Backend{client: fc}

	b.IncCounter(metrics.RecordsTotal, 3.9, metrics.Labels{"kind": "enriched", "job": "omnicart"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.25, metrics.Labels{"step": "analyze"})
	b.SetGauge("omnicart_active_sellers", 4, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := []call{
		{"count", metrics.RecordsTotal, 3, []string{"job:omnicart", "kind:enriched"}},
		{"histogram", metrics.StepDurationSeconds, 0.25, []string{"step:analyze"}},
		{"gauge", "omnicart_active_sellers", 4, nil},
	}
	if !reflect.DeepEqual(fc.calls, want) {
		t.Fatalf("calls = %#v\nwant %#v", fc.calls, want)
	}
	if fc.closed != 1 {
		t.Fatalf("closed = %d, want 1", fc.closed)
	}
}

func TestBackend_NilClient(t *testing.T) {
	b := &Backend{}
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	b.SetGauge("x", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
