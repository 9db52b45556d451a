package server

import (
	"net/http"
	"time"

	"github.com/docker/go-metrics"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrc-ide/outpack-server/internal/store"
)

// httpNamespace is the per-route request metrics, wrapped with
// docker/go-metrics the way distribution/metrics/prometheus.go wraps
// its own storage and middleware namespaces, under the namespace
// original_source/src/metrics.rs registers its own collector under.
var httpNamespace = metrics.NewNamespace("outpack_server", "http", nil)

var (
	requestsTotal = httpNamespace.NewLabeledCounter(
		"requests_total", "Total number of HTTP requests received", "route", "method", "code")
	requestDuration = httpNamespace.NewLabeledTimer(
		"request_duration_seconds", "HTTP request latency", "route", "method")
	requestsInFlight = httpNamespace.NewLabeledGauge(
		"requests_in_flight", "Number of HTTP requests currently being served", metrics.Total, "route")
)

func init() {
	metrics.Register(httpNamespace)
}

// withMetrics records per-route request counts, latency, and in-flight
// gauge. It is installed with Router.Use, so it only runs for requests
// that matched a route; unmatched requests are not recorded, keeping the
// label cardinality bounded. The "unmatched" label is only used for a
// matched route that has no name.
func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeLabel(r)
		requestsInFlight.WithValues(route).Inc(1)
		defer requestsInFlight.WithValues(route).Dec(1)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		requestDuration.WithValues(route, r.Method).UpdateSince(start)
		requestsTotal.WithValues(route, r.Method, http.StatusText(rec.status)).Inc(1)
	})
}

func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if name := route.GetName(); name != "" {
			return name
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// repositoryCollector is a direct Go port of original_source's
// RepositoryCollector: it recomputes repository-wide gauges on every
// scrape rather than tracking them incrementally, since a single
// filesystem walk per scrape is cheap relative to scrape intervals.
type repositoryCollector struct {
	root string

	metadataTotal  *prometheus.Desc
	packetsTotal   *prometheus.Desc
	filesTotal     *prometheus.Desc
	fileSizeTotal  *prometheus.Desc
	collectorIndex metadataCounter
}

// metadataCounter is the subset of *metadata.Index the collector needs,
// kept narrow so tests can supply a fake.
type metadataCounter interface {
	IDs(root string, unpacked bool) ([]string, error)
}

func newRepositoryCollector(root string, index metadataCounter) *repositoryCollector {
	return &repositoryCollector{
		root:           root,
		collectorIndex: index,
		metadataTotal: prometheus.NewDesc(
			"outpack_server_metadata_total", "Number of metadata documents in the repository", nil, nil),
		packetsTotal: prometheus.NewDesc(
			"outpack_server_packets_total", "Number of packets unpacked locally", nil, nil),
		filesTotal: prometheus.NewDesc(
			"outpack_server_files_total", "Number of files in the repository", nil, nil),
		fileSizeTotal: prometheus.NewDesc(
			"outpack_server_file_size_bytes_total", "Total size of files in the repository", nil, nil),
	}
}

func (c *repositoryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.metadataTotal
	ch <- c.packetsTotal
	ch <- c.filesTotal
	ch <- c.fileSizeTotal
}

func (c *repositoryCollector) Collect(ch chan<- prometheus.Metric) {
	if ids, err := c.collectorIndex.IDs(c.root, false); err == nil {
		ch <- prometheus.MustNewConstMetric(c.metadataTotal, prometheus.GaugeValue, float64(len(ids)))
	}
	if ids, err := c.collectorIndex.IDs(c.root, true); err == nil {
		ch <- prometheus.MustNewConstMetric(c.packetsTotal, prometheus.GaugeValue, float64(len(ids)))
	}

	var filesCount int64
	var filesSize int64
	store.Enumerate(c.root, func(e store.Entry) {
		filesCount++
		filesSize += e.Size
	})
	ch <- prometheus.MustNewConstMetric(c.filesTotal, prometheus.GaugeValue, float64(filesCount))
	ch <- prometheus.MustNewConstMetric(c.fileSizeTotal, prometheus.GaugeValue, float64(filesSize))
}

// metricsHandler builds the /metrics endpoint: the docker/go-metrics
// namespace (itself a prometheus.Collector) plus the repository
// collector, served through a private registry so scraping never pulls
// in Go runtime metrics registered elsewhere in the process.
func metricsHandler(root string, index metadataCounter) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(httpNamespace)
	registry.MustRegister(newRepositoryCollector(root, index))
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
