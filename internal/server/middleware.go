package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"member-auth-service/internal/event"
)

type contextKey string

const clientIPKey contextKey = "client_ip"

// ClientIP returns the client IP stored by ClientIPMiddleware, or "" if absent.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// ClientIPMiddleware resolves the client IP from X-Forwarded-For, X-Real-IP,
// or the remote address, and stores it in the request context.
func ClientIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIPFromRequest(r)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIPKey, ip)))
	})
}

func clientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First hop is the original client.
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return strings.TrimSpace(rip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder captures the response status for telemetry.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// httpRequestMetadata is the JSON shape stored in AuthEvent.Metadata for
// http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Telemetry returns middleware that records a span, request metrics, and a
// best-effort http_request event for each handled request. skipPaths are not
// recorded (e.g. /healthz). If emitter is nil no events are emitted; metrics
// and traces use the global otel providers.
func Telemetry(emitter event.Emitter, skipPaths map[string]bool) func(http.Handler) http.Handler {
	tracer := otel.Tracer("member-auth-service/server")
	meter := otel.Meter("member-auth-service/server")
	requests, _ := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Handled HTTP requests"))
	duration, _ := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx, span := tracer.Start(r.Context(), fmt.Sprintf("%s %s", r.Method, r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.Path),
				),
			)
			defer span.End()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))
			elapsed := time.Since(start)

			span.SetAttributes(attribute.Int("http.status_code", rec.status))
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			}

			attrs := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.Int("http.status_code", rec.status),
			)
			requests.Add(ctx, 1, attrs)
			duration.Record(ctx, float64(elapsed.Milliseconds()), attrs)

			if emitter != nil {
				meta, _ := json.Marshal(httpRequestMetadata{
					Method:     r.Method,
					Path:       r.URL.Path,
					StatusCode: rec.status,
					DurationMs: elapsed.Milliseconds(),
					ClientIP:   ClientIP(ctx),
				})
				event.EmitAsync(emitter, event.AuthEvent{
					EventID:   uuid.New().String(),
					EventType: "http_request",
					Source:    "http_middleware",
					Metadata:  meta,
					CreatedAt: time.Now().UTC(),
				})
			}
		})
	}
}
