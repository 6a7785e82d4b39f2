package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/Nootest/3DShooting/internal/logging"
)

// TraceHeader - заголовок ответа с trace-ID запроса
const TraceHeader = "X-Trace-Id"

// SlowRequest - порог, после которого запрос логируется как Warn
const SlowRequest = 250 * time.Millisecond

// RequestLogger метит запросы trace-ID и пишет по строке на запрос.
// Опрос снимка и /metrics идут в Debug, чтобы не забивать лог при 60 Гц.
type RequestLogger struct {
	logger *logging.Logger
	quiet  map[string]struct{}
}

func NewRequestLogger(quietPaths ...string) *RequestLogger {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}
	return &RequestLogger{logger: logging.GetComponentLogger("http"), quiet: quiet}
}

// requestTraceID берёт trace-ID из span otelgin, иначе генерирует UUID
func requestTraceID(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := requestTraceID(c)
		c.Set("trace_id", traceID)
		c.Header(TraceHeader, traceID)

		started := time.Now()
		c.Next()
		took := time.Since(started)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		code := c.Writer.Status()
		_, quiet := rl.quiet[route]

		switch {
		case code >= http.StatusInternalServerError:
			rl.logger.Error("❌ %s %s -> %d за %s (%s) trace=%s", c.Request.Method, route, code, took, c.ClientIP(), traceID)
		case took > SlowRequest:
			rl.logger.Warn("🐢 %s %s -> %d за %s trace=%s", c.Request.Method, route, code, took, traceID)
		case quiet:
			rl.logger.Debug("%s %s -> %d за %s", c.Request.Method, route, code, took)
		default:
			rl.logger.Info("🌐 %s %s -> %d за %s (%s) trace=%s", c.Request.Method, route, code, took, c.ClientIP(), traceID)
		}
	}
}

// CORS открывает API браузерному клиенту с любого origin
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
