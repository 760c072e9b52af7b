package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service instruments. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	salesTotal        *prometheus.CounterVec
	salesAmountCents  *prometheus.CounterVec
	cancellations     *prometheus.CounterVec
	drawerEvents      *prometheus.CounterVec
	stockAlerts       *prometheus.GaugeVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	priceAdjustedRows prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		salesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vetpos_sales_total",
			Help: "Sales processed, by outcome.",
		}, []string{"outcome"}),
		salesAmountCents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vetpos_sales_amount_cents_total",
			Help: "Completed sales amount in cents, by payment method.",
		}, []string{"payment_method"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vetpos_sale_cancellations_total",
			Help: "Sale cancellations, by refund outcome.",
		}, []string{"refund"}),
		drawerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vetpos_drawer_events_total",
			Help: "Cash drawer lifecycle events.",
		}, []string{"event"}),
		stockAlerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vetpos_inventory_alerts",
			Help: "Inventory items currently in an alert state.",
		}, []string{"code"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vetpos_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vetpos_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		priceAdjustedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vetpos_price_adjusted_items_total",
			Help: "Inventory rows rewritten by bulk price adjustments.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.salesTotal,
		m.salesAmountCents,
		m.cancellations,
		m.drawerEvents,
		m.stockAlerts,
		m.httpRequests,
		m.httpDuration,
		m.priceAdjustedRows,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SaleCompleted(paymentMethod string, totalCents int64) {
	if m == nil {
		return
	}
	m.salesTotal.WithLabelValues("completed").Inc()
	m.salesAmountCents.WithLabelValues(paymentMethod).Add(float64(totalCents))
}

func (m *Metrics) SaleRejected() {
	if m == nil {
		return
	}
	m.salesTotal.WithLabelValues("rejected").Inc()
}

func (m *Metrics) SaleCancelled(refundSkipped bool) {
	if m == nil {
		return
	}
	label := "posted"
	if refundSkipped {
		label = "skipped"
	}
	m.cancellations.WithLabelValues(label).Inc()
}

func (m *Metrics) DrawerEvent(event string) {
	if m == nil {
		return
	}
	m.drawerEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) PriceAdjusted(rows int) {
	if m == nil {
		return
	}
	m.priceAdjustedRows.Add(float64(rows))
}

// SetStockAlerts replaces the alert gauges with counts keyed by alert code.
func (m *Metrics) SetStockAlerts(counts map[string]int) {
	if m == nil {
		return
	}
	m.stockAlerts.Reset()
	for code, n := range counts {
		m.stockAlerts.WithLabelValues(code).Set(float64(n))
	}
}

// ObserveHTTP records one finished request. route should be the matched
// pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method string, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
