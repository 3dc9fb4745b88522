package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors for the API and dispatch flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	messagesSentTotal   *prometheus.CounterVec
	messagesFailedTotal *prometheus.CounterVec
	sendDuration        *prometheus.HistogramVec
	dispatchInFlight    *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storefront_notifier",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "storefront_notifier",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		messagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storefront_notifier",
				Name:      "messages_sent_total",
				Help:      "Total number of messages accepted by the gateway, by recipient role and channel.",
			},
			[]string{"role", "channel"},
		),
		messagesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storefront_notifier",
				Name:      "messages_failed_total",
				Help:      "Total number of failed sends by recipient role, channel, and reason.",
			},
			[]string{"role", "channel", "reason"},
		),
		sendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "storefront_notifier",
				Name:      "gateway_send_duration_seconds",
				Help:      "Gateway send duration in seconds grouped by channel.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel"},
		),
		dispatchInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "storefront_notifier",
				Name:      "dispatch_inflight",
				Help:      "Current number of in-flight dispatches grouped by event kind.",
			},
			[]string{"event"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.messagesSentTotal,
		m.messagesFailedTotal,
		m.sendDuration,
		m.dispatchInFlight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncMessageSent(role string, channel string) {
	if m == nil {
		return
	}
	m.messagesSentTotal.WithLabelValues(normalizeLabel(role), normalizeLabel(channel)).Inc()
}

func (m *Metrics) IncMessageFailed(role string, channel string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := normalizeLabel(reason)
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.messagesFailedTotal.WithLabelValues(normalizeLabel(role), normalizeLabel(channel), reasonLabel).Inc()
}

func (m *Metrics) ObserveSendDuration(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.sendDuration.WithLabelValues(normalizeLabel(channel)).Observe(seconds)
}

func (m *Metrics) IncDispatchInFlight(event string) {
	if m == nil {
		return
	}
	m.dispatchInFlight.WithLabelValues(normalizeLabel(event)).Inc()
}

func (m *Metrics) DecDispatchInFlight(event string) {
	if m == nil {
		return
	}
	m.dispatchInFlight.WithLabelValues(normalizeLabel(event)).Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if route := c.Route(); route != nil && route.Path != "" && route.Path != "/" {
		return route.Path
	}
	return c.Path()
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if e, ok := err.(*fiber.Error); ok {
			return e.Code
		}
		return fiber.StatusInternalServerError
	}
	return c.Response().StatusCode()
}
