package middleware

import (
	"time"

	"github.com/annel0/tilestream/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader заголовок, из которого берётся и в который пишется ID запроса
const RequestIDHeader = "X-Request-ID"

// RequestLogger снабжает каждый HTTP-запрос request-ID и пишет краткие логи.
// ID берётся из заголовка, затем из trace-ID OpenTelemetry, иначе генерируется.
type RequestLogger struct {
	log *logging.Logger
}

// NewRequestLogger создаёт middleware; nil означает логгер компонента "api"
func NewRequestLogger(l *logging.Logger) *RequestLogger {
	if l == nil {
		l = logging.GetAPILogger()
	}
	return &RequestLogger{log: l}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().IsValid() {
				requestID = span.SpanContext().TraceID().String()
			} else {
				requestID = uuid.NewString()
			}
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		rl.log.Debug("[HTTP] ▶ %s %s ip=%s req=%s", method, path, c.ClientIP(), requestID)

		c.Next()

		rl.log.Debug("[HTTP] ◀ %s %s %d %s req=%s", method, path, c.Writer.Status(), time.Since(start), requestID)
	}
}
