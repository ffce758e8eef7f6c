/*
Package metrics exposes engine activity to Prometheus.

PURPOSE:
  Metrics is a bakery.Observer: every commit and rejection updates counters,
  and every commit refreshes gauges derived from the new catalog (cost
  faults, missing recipe references, negative stock). The HTTP middleware
  records request counts and latencies per chi route pattern.

SEE ALSO:
  - bakery/service.go: Observer contract
  - api/server.go: /metrics endpoint and middleware wiring
*/
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/bakery-engine/bakery"
	"github.com/warp/bakery-engine/generic"
)

var _ bakery.Observer = (*Metrics)(nil)

type Metrics struct {
	registry *prometheus.Registry

	CommitsTotal    *prometheus.CounterVec
	RejectionsTotal *prometheus.CounterVec
	CostFaults      prometheus.Gauge
	MissingRefs     prometheus.Gauge
	NegativeStock   prometheus.Gauge
	CatalogSize     *prometheus.GaugeVec
	SnapshotWrites  *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.CommitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commits_total",
		Help:      "Catalog mutations applied, by operation",
	}, []string{"op"})

	m.RejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejections_total",
		Help:      "Catalog mutations rejected, by operation and error kind",
	}, []string{"op", "kind"})

	m.CostFaults = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cost_faults",
		Help:      "SKUs whose cost could not be recomputed on the last commit",
	})

	m.MissingRefs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "missing_recipe_references",
		Help:      "Recipe lines referencing deleted ingredients",
	})

	m.NegativeStock = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "negative_stock_entities",
		Help:      "Ingredients and SKUs with a negative on-hand quantity",
	})

	m.CatalogSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "catalog_entities",
		Help:      "Entities in the live catalog, by collection",
	}, []string{"collection"})

	m.SnapshotWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_writes_total",
		Help:      "Persistence writes, by status",
	}, []string{"status"})

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "route"})

	registry.MustRegister(
		m.CommitsTotal, m.RejectionsTotal,
		m.CostFaults, m.MissingRefs, m.NegativeStock, m.CatalogSize,
		m.SnapshotWrites,
		m.HTTPRequestsTotal, m.HTTPRequestDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// =============================================================================
// OBSERVER
// =============================================================================

func (m *Metrics) Committed(op string, c *bakery.Catalog, report bakery.CostReport) {
	m.CommitsTotal.WithLabelValues(op).Inc()
	m.CostFaults.Set(float64(len(report.Faults)))
	m.MissingRefs.Set(float64(len(report.Warnings)))

	negative := 0
	for _, ing := range c.Ingredients {
		if ing.QuantityInStock.IsNegative() {
			negative++
		}
	}
	for _, sku := range c.SKUs {
		if sku.QuantityInStock.IsNegative() {
			negative++
		}
	}
	m.NegativeStock.Set(float64(negative))

	m.CatalogSize.WithLabelValues("ingredients").Set(float64(len(c.Ingredients)))
	m.CatalogSize.WithLabelValues("skus").Set(float64(len(c.SKUs)))
	m.CatalogSize.WithLabelValues("suppliers").Set(float64(len(c.Suppliers)))
	m.CatalogSize.WithLabelValues("remitos").Set(float64(len(c.Remitos)))
	m.CatalogSize.WithLabelValues("stock_movements").Set(float64(len(c.StockMovements)))
}

func (m *Metrics) Rejected(op string, err error) {
	m.RejectionsTotal.WithLabelValues(op, ErrorKind(err)).Inc()
}

// RecordSnapshotWrite matches store.Writer.OnSave.
func (m *Metrics) RecordSnapshotWrite(_ int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.SnapshotWrites.WithLabelValues(status).Inc()
}

// ErrorKind buckets an engine error into a low-cardinality label.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, generic.ErrInsufficientStock):
		return "insufficient_stock"
	case generic.IsNotFound(err):
		return "not_found"
	case errors.Is(err, generic.ErrInvalidTransition):
		return "invalid_transition"
	case generic.IsClientError(err):
		return "validation"
	default:
		return "internal"
	}
}

// =============================================================================
// HTTP
// =============================================================================

// Middleware records every request under its chi route pattern, so
// /api/skus/{id} is one series regardless of the id.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
