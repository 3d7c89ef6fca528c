package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the back office.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	paymentsTotal      prometheus.Counter
	paymentsAmount     prometheus.Counter
	promotionsTotal    prometheus.Counter
	graduationsTotal   prometheus.Counter
	promotionFailures  prometheus.Counter
	notificationsTotal *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	paymentsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Total ledger entries recorded",
	})

	paymentsAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_amount_total",
		Help: "Total amount received across all ledger entries",
	})

	promotionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "students_promoted_total",
		Help: "Students advanced one class by promotion runs",
	})

	graduationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "students_graduated_total",
		Help: "Students graduated by promotion runs",
	})

	promotionFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promotion_failures_total",
		Help: "Per-student failures collected during promotion runs",
	})

	notificationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dispatched_total",
		Help: "Notifications dispatched by event type",
	}, []string{"type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, paymentsTotal, paymentsAmount,
		promotionsTotal, graduationsTotal, promotionFailures, notificationsTotal, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		paymentsTotal:      paymentsTotal,
		paymentsAmount:     paymentsAmount,
		promotionsTotal:    promotionsTotal,
		graduationsTotal:   graduationsTotal,
		promotionFailures:  promotionFailures,
		notificationsTotal: notificationsTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObservePayment counts one recorded ledger entry.
func (m *MetricsService) ObservePayment(amount float64) {
	if m == nil {
		return
	}
	m.paymentsTotal.Inc()
	m.paymentsAmount.Add(amount)
}

// ObservePromotionRun records the outcome of one promotion batch.
func (m *MetricsService) ObservePromotionRun(promoted, graduated, failed int) {
	if m == nil {
		return
	}
	m.promotionsTotal.Add(float64(promoted))
	m.graduationsTotal.Add(float64(graduated))
	m.promotionFailures.Add(float64(failed))
}

// ObserveNotification counts one dispatched notification by event type.
func (m *MetricsService) ObserveNotification(eventType string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(eventType).Inc()
}
