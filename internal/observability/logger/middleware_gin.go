package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/gascustody/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestIDHeader = "X-Request-Id"

// MiddlewareConfig controls request logging.
type MiddlewareConfig struct {
	Debug           bool
	ErrorClassifier func(err error) (string, string)
}

// routeResources maps parameterised routes to the resource their :id names.
var routeResources = map[string]string{
	"/api/customers/":        "customer",
	"/api/daily-volumes/":    "daily_volume",
	"/api/gccs/":             "gcc",
	"/public/gccs/":          "gcc",
	"/api/invoice-advices/":  "invoice_advice",
	"/api/invoices/":         "invoice",
	"/api/ngml-accounts/":    "ngml_account",
	"/api/letter-templates/": "letter_template",
}

// GinMiddleware assigns a request id, records the client on the context and
// writes one http_request line per request once the handlers have run.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := requestIDFor(c)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx = obscontext.WithClient(ctx, c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		fields = append(fields, resourceFields(c, route)...)

		if reason := c.Writer.Header().Get("X-Rate-Limited-Reason"); reason != "" {
			fields = append(fields, zap.String("rate_limited_reason", reason))
		}

		var errorType string
		if lastErr := c.Errors.Last(); lastErr != nil {
			var errorCode string
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields, zap.String("error_type", errorType), zap.String("error_code", errorCode))
			if cfg.Debug && status >= http.StatusInternalServerError {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		if ce := FromContext(c.Request.Context()).Check(requestLevel(route, status, errorType), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func requestIDFor(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header(requestIDHeader, requestID)
	return requestID
}

func resourceFields(c *gin.Context, route string) []zap.Field {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return nil
	}
	for prefix, resource := range routeResources {
		if strings.HasPrefix(route, prefix) {
			return []zap.Field{zap.String("resource", resource), zap.String("resource_id", id)}
		}
	}
	return []zap.Field{zap.String("resource_id", id)}
}

// requestLevel keeps scrapes and rejected ledger readings out of info logs.
func requestLevel(route string, status int, errorType string) zapcore.Level {
	switch {
	case route == "/metrics" || route == "/health":
		return zapcore.DebugLevel
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case route == "/api/daily-volumes" && errorType == "validation_error":
		return zapcore.DebugLevel
	case status == http.StatusTooManyRequests || status == http.StatusConflict:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
