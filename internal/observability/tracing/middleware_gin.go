package tracing

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/gascustody/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens a server span per request. The span is renamed to the
// matched route once routing is known and tagged with the acting user.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("gascustody/http")
	return func(c *gin.Context) {
		method := strings.ToUpper(c.Request.Method)
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			ctx = withRequestBaggage(ctx, requestID)
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		}
		if id := strings.TrimSpace(c.Param("id")); id != "" {
			attrs = append(attrs, attribute.String("gascustody.resource_id", id))
		}
		if actorType, actorID := obscontext.ActorFromContext(c.Request.Context()); actorID != "" {
			attrs = append(attrs,
				attribute.String("gascustody.actor_type", actorType),
				attribute.String("gascustody.actor_id", actorID),
			)
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		lastErr := c.Errors.Last()
		switch {
		case status >= http.StatusInternalServerError:
			if lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		case status == http.StatusConflict && lastErr != nil:
			span.AddEvent("state_conflict", trace.WithAttributes(attribute.String("error", lastErr.Err.Error())))
		}
	}
}

func withRequestBaggage(ctx context.Context, requestID string) context.Context {
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
