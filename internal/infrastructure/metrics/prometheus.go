// Package metrics expone métricas Prometheus de la API: peticiones HTTP y notificaciones.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/crm-api/internal/application/ports"
)

var _ ports.NotificationMetrics = (*Metrics)(nil)

// Metrics agrupa los colectores sobre un registro propio (no el global), así cada instancia es independiente.
type Metrics struct {
	registry    *prometheus.Registry
	dispatches  *prometheus.CounterVec
	connections prometheus.Gauge
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New crea y registra los colectores bajo namespace (ej. "crm").
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dispatched_total",
			Help:      "Intentos de entrega de notificaciones por tipo y resultado.",
		}, []string{"type", "delivered"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notification_connections",
			Help:      "Usuarios con conexión de notificaciones registrada.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Peticiones HTTP por método, ruta y status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duración de las peticiones HTTP.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.dispatches,
		m.connections,
		m.requests,
		m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveDispatch implementa ports.NotificationMetrics.
func (m *Metrics) ObserveDispatch(notificationType string, delivered bool) {
	m.dispatches.WithLabelValues(notificationType, strconv.FormatBool(delivered)).Inc()
}

// SetActiveConnections implementa ports.NotificationMetrics.
func (m *Metrics) SetActiveConnections(n int) {
	m.connections.Set(float64(n))
}

// Registry registro subyacente (tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware cuenta peticiones y mide su duración. La ruta es el patrón registrado, no la URL.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		route := c.Route().Path
		method := c.Method()
		m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler expone el registro en formato Prometheus (GET /metrics).
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
