package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"userload/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	require.NotNil(t, m.GetCounter())
	return m.GetCounter().GetValue()
}

func summaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	require.True(t, ok)
	m := &dto.Metric{}
	require.NoError(t, metric.Write(m))
	require.NotNil(t, m.GetSummary())
	return m.GetSummary().GetSampleCount(), m.GetSummary().GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		job     string
		url     string
		wantErr bool
		wantJob string
	}{
		{name: "missing gateway", job: "nightly", wantErr: true},
		{name: "default job", url: "http://pushgateway:9091", wantJob: DefaultJob},
		{name: "explicit job", job: "nightly", url: "http://pushgateway:9091", wantJob: "nightly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.job, tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, b)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantJob, b.jobName)
			assert.Equal(t, tt.url, b.gatewayURL)
			assert.NotNil(t, b.reg)
		})
	}
}

func TestIncCounter_Routing(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("", "http://example.com")
	require.NoError(t, err)

	b.IncCounter(metrics.StepTotal, 2, metrics.Labels{"step": "load", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 5, metrics.Labels{"kind": metrics.KindInserted})
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": "dropped_invalid_date"})
	b.IncCounter(metrics.BatchesTotal, 2, nil)
	b.IncCounter(metrics.BatchesTotal, 1, nil)
	b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})

	assert.Equal(t, 2.0, counterValue(t, b.stepCounter.WithLabelValues("load", "success")))
	assert.Equal(t, 5.0, counterValue(t, b.recordCounter.WithLabelValues("inserted")))
	assert.Equal(t, 1.0, counterValue(t, b.recordCounter.WithLabelValues("dropped_invalid_date")))
	assert.Equal(t, 3.0, counterValue(t, b.batchCounter))
	assert.Equal(t, 0.0, counterValue(t, b.stepCounter.WithLabelValues("x", "y")))
}

func TestZeroBackendIsSafe(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	assert.NotPanics(t, func() {
		b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "s", "status": "success"})
		b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": "read"})
		b.IncCounter(metrics.BatchesTotal, 1, nil)
		b.ObserveHistogram(metrics.StepDuration, 1, nil)
	})
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("", "http://example.com")
	require.NoError(t, err)

	lbls := metrics.Labels{"step": "query:distinct_domains", "status": "success"}
	b.ObserveHistogram(metrics.StepDuration, 1.5, lbls)
	b.ObserveHistogram(metrics.StepDuration, 0.5, lbls)
	b.ObserveHistogram("other_metric", 9, lbls)

	count, sum := summaryCountSum(t, b.stepDuration, "query:distinct_domains", "success")
	assert.Equal(t, uint64(2), count)
	assert.InDelta(t, 2.0, sum, 1e-9)
}

func TestFlush_PushesToGateway(t *testing.T) {
	t.Parallel()

	type pushed struct {
		method string
		path   string
		body   string
	}
	reqCh := make(chan pushed, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushed{method: r.Method, path: r.URL.Path, body: string(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("nightly", server.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "parse", "status": "success"})

	require.NoError(t, b.Flush())

	select {
	case got := <-reqCh:
		assert.Equal(t, http.MethodPut, got.method)
		assert.True(t, strings.HasSuffix(got.path, "/job/nightly"), "path %q", got.path)
		assert.NotEmpty(t, got.body)
	default:
		t.Fatal("Flush did not contact the Pushgateway")
	}
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	b, err := NewBackend("", server.URL)
	require.NoError(t, err)
	assert.Error(t, b.Flush())
}

func BenchmarkIncCounterRecord(b *testing.B) {
	backend, err := NewBackend("", "http://example.com")
	if err != nil {
		b.Fatalf("NewBackend() error = %v", err)
	}
	labels := metrics.Labels{"kind": metrics.KindRead}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		backend.IncCounter(metrics.RecordsTotal, 1, labels)
	}
}
