package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routeUnmatched - метка для запросов мимо маршрутов, чтобы не плодить серии
const routeUnmatched = "unmatched"

var latencyBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5}

// PrometheusMiddleware считает HTTP-запросы API симуляции.
// Серии размечены шаблоном маршрута gin, а не сырым путём.
type PrometheusMiddleware struct {
	latency  *prometheus.HistogramVec // method, route, status
	failures *prometheus.CounterVec   // method, route, status; только 4xx/5xx
	inflight prometheus.Gauge
	payload  *prometheus.CounterVec // route, format; байты ответа
}

// NewPrometheusMiddleware регистрирует метрики с префиксом service в reg (nil - дефолтный)
func NewPrometheusMiddleware(service string, reg prometheus.Registerer) *PrometheusMiddleware {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := []string{"method", "route", "status"}
	pm := &PrometheusMiddleware{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_request_duration_seconds",
			Help:      "Время обработки запроса к API.",
			Buckets:   latencyBuckets,
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_request_errors_total",
			Help:      "Ответы API со статусом 4xx и 5xx.",
		}, labels),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "http_requests_inflight",
			Help:      "Запросы в обработке.",
		}),
		payload: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_response_bytes_total",
			Help:      "Отданные байты по маршруту и формату (json, frame).",
		}, []string{"route", "format"}),
	}
	reg.MustRegister(pm.latency, pm.failures, pm.inflight, pm.payload)
	return pm
}

func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		pm.inflight.Inc()
		defer pm.inflight.Dec()
		started := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = routeUnmatched
		}
		code := c.Writer.Status()
		status := strconv.Itoa(code)

		pm.latency.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(started).Seconds())
		if code >= 400 {
			pm.failures.WithLabelValues(c.Request.Method, route, status).Inc()
		}
		if size := c.Writer.Size(); size > 0 {
			pm.payload.WithLabelValues(route, responseFormat(c)).Add(float64(size))
		}
	}
}

// responseFormat различает бинарные кадры снимков и JSON
func responseFormat(c *gin.Context) string {
	if strings.Contains(c.Writer.Header().Get("Content-Type"), "msgpack") {
		return "frame"
	}
	return "json"
}

// RegisterMetricsEndpoint вешает GET /metrics на r; g == nil - дефолтный сборщик
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r gin.IRoutes, g prometheus.Gatherer) {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
