// Package metrics exposes Prometheus instruments for the HTTP server and the
// count aggregator.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prom holds a private registry and the instruments registered on it.
type Prom struct {
	reg *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CountQueries    *prometheus.CounterVec
	CountLatency    prometheus.Histogram
	Records         *prometheus.GaugeVec
	SchemaTypes     prometheus.Gauge
}

// NewProm creates and registers all instruments.
func NewProm() *Prom {
	reg := prometheus.NewRegistry()
	p := &Prom{
		reg: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentmetrics_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contentmetrics_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		CountQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentmetrics_count_queries_total",
			Help: "Record count queries by outcome",
		}, []string{"outcome"}),
		CountLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "contentmetrics_count_query_duration_seconds",
			Help:    "Latency of a single record count query",
			Buckets: prometheus.DefBuckets,
		}),
		Records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "contentmetrics_content_type_records",
			Help: "Record count observed by the last successful query, per content type",
		}, []string{"content_type"}),
		SchemaTypes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "contentmetrics_registered_content_types",
			Help: "Number of content types in the registry",
		}),
	}
	reg.MustRegister(
		p.Requests, p.RequestDuration, p.CountQueries, p.CountLatency, p.Records, p.SchemaTypes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (p *Prom) Gatherer() prometheus.Gatherer { return p.reg }

// ObserveCount records one count query.
func (p *Prom) ObserveCount(uid string, n int64, elapsed time.Duration, err error) {
	p.CountLatency.Observe(elapsed.Seconds())
	if err != nil {
		p.CountQueries.WithLabelValues("error").Inc()
		return
	}
	p.CountQueries.WithLabelValues("ok").Inc()
	p.Records.WithLabelValues(uid).Set(float64(n))
}

// SchemaReloaded records the registry size after a reload and drops the
// per-type record gauges, which are repopulated by the next count.
func (p *Prom) SchemaReloaded(types int) {
	p.SchemaTypes.Set(float64(types))
	p.Records.Reset()
}

// ObserveRequest records one HTTP request.
func (p *Prom) ObserveRequest(route string, status int, elapsed time.Duration) {
	p.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	p.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
