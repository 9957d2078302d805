package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics собирает счётчики регистраций и платежей. Все методы безопасны
// для nil-получателя, поэтому сервисы в тестах создаются без метрик.
type Metrics struct {
	registry *prometheus.Registry

	registrations      *prometheus.CounterVec
	paymentSubmissions *prometheus.CounterVec
	paymentDecisions   *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devcon",
			Name:      "registrations_total",
			Help:      "Participant registrations by track and team intent.",
		}, []string{"track", "team"}),
		paymentSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devcon",
			Name:      "payment_submissions_total",
			Help:      "Payments submitted by participants, by method.",
		}, []string{"method"}),
		paymentDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devcon",
			Name:      "payment_decisions_total",
			Help:      "Payment verifications by method and resulting status.",
		}, []string{"method", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devcon",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "devcon",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.registrations,
		m.paymentSubmissions,
		m.paymentDecisions,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// team: "new", "joined" или "none".
func (m *Metrics) RegistrationCreated(track, team string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(track, team).Inc()
}

func (m *Metrics) PaymentSubmitted(method string) {
	if m == nil {
		return
	}
	m.paymentSubmissions.WithLabelValues(method).Inc()
}

func (m *Metrics) PaymentDecided(method, status string) {
	if m == nil {
		return
	}
	m.paymentDecisions.WithLabelValues(method, status).Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware считает запросы по шаблону маршрута chi, а не по сырому пути,
// чтобы id в URL не раздували кардинальность.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
