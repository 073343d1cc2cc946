package metric

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatheredNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := make(map[string]bool)
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	return found
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.Same(t, registry.Metrics, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterCounterVec(t *testing.T) {
	registry := NewMetricsRegistry()

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_counter_vec",
		Help: "A test counter vector",
	}, []string{"kind"})

	require.NoError(t, registry.RegisterCounterVec("test-service", "test_counter_vec", vec))
	vec.WithLabelValues("User").Inc()

	assert.True(t, gatheredNames(t, registry)["test_counter_vec"])
}

func TestMetricsRegistry_RegisterGaugeFunc(t *testing.T) {
	registry := NewMetricsRegistry()

	value := 3.0
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "test_gauge_func",
		Help: "A test gauge func",
	}, func() float64 { return value })

	require.NoError(t, registry.RegisterGaugeFunc("test-service", "test_gauge_func", gauge))
	assert.Equal(t, 3.0, testutil.ToFloat64(gauge))

	value = 7
	assert.Equal(t, 7.0, testutil.ToFloat64(gauge))
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	newVec := func() *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "duplicate_gauge",
			Help: "duplicate",
		}, []string{"topic"})
	}

	require.NoError(t, registry.RegisterGaugeVec("svc", "duplicate_gauge", newVec()))

	err := registry.RegisterGaugeVec("svc", "duplicate_gauge", newVec())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	err = registry.RegisterGaugeVec("other-svc", "duplicate_gauge", newVec())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "test_histogram_vec",
		Help: "A test histogram",
	}, []string{"op"})
	require.NoError(t, registry.RegisterHistogramVec("svc", "test_histogram_vec", hist))
	hist.WithLabelValues("users").Observe(0.1)

	assert.True(t, gatheredNames(t, registry)["test_histogram_vec"])
	assert.True(t, registry.Unregister("svc", "test_histogram_vec"))
	assert.False(t, gatheredNames(t, registry)["test_histogram_vec"])
	assert.False(t, registry.Unregister("svc", "test_histogram_vec"))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("concurrent_counter_%d", i)
			vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: "concurrent"}, []string{"l"})
			errs <- registry.RegisterCounterVec("svc", name, vec)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestMetricsRegistrar_Interface(t *testing.T) {
	var _ MetricsRegistrar = NewMetricsRegistry()
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordOperation("users", "query", false, 5*time.Millisecond)
	m.RecordOperation("users", "query", true, 5*time.Millisecond)
	m.RecordResolverError("user", "NOT_FOUND")
	m.RecordRequestRejected()
	m.RecordPublished("userCreated")
	m.RecordPublishError("userCreated")
	m.RecordDelivered("userCreated")
	m.RecordDelivered("userCreated")
	m.RecordDropped("eventCreated")
	m.RecordSubscribers("userCreated", 2)
	m.RecordBusStatus(true)
	m.RecordBusReconnect()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("users", "query", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("users", "query", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolverErrors.WithLabelValues("user", "NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsRejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BusPublished.WithLabelValues("userCreated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BusPublishErrors.WithLabelValues("userCreated")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BusDelivered.WithLabelValues("userCreated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BusDropped.WithLabelValues("eventCreated")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BusSubscribers.WithLabelValues("userCreated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BusConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BusReconnects))

	m.RecordBusStatus(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BusConnected))

	found := gatheredNames(t, registry)
	assert.True(t, found["eventgraph_graphql_operations_total"])
	assert.True(t, found["eventgraph_bus_published_total"])
	assert.True(t, found["go_goroutines"])
}

func TestMetricsRegistry_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordPublished("participantAdded")

	srv := httptest.NewServer(registry.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `eventgraph_bus_published_total{topic="participantAdded"} 1`)
}

func TestServer_Address(t *testing.T) {
	s := NewServer(0, "", NewMetricsRegistry())
	assert.Equal(t, "http://localhost:9090/metrics", s.Address())

	s = NewServer(9100, "/prom", NewMetricsRegistry())
	assert.Equal(t, "http://localhost:9100/prom", s.Address())
}

func TestServer_StartWithoutRegistry(t *testing.T) {
	s := NewServer(0, "", nil)
	assert.Error(t, s.Start())
}
