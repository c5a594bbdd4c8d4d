package router

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const maxLoggedBodyBytes = 8 * 1024

const masked = "***"

type errorSlotKey struct{}

// withErrorSlot lets the endpoint hand its error back to the observability
// middleware through any writer wrappers in between.
func withErrorSlot(ctx context.Context, slot *error) context.Context {
	return context.WithValue(ctx, errorSlotKey{}, slot)
}

func setHandlerError(ctx context.Context, err error) {
	if slot, ok := ctx.Value(errorSlotKey{}).(*error); ok {
		*slot = err
	}
}

// recorder captures what the handler wrote for spans, metrics and logs.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *recorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *recorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("router: hijack not supported")
	}
	return h.Hijack()
}

func (w *recorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *recorder) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func matchedRoutePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

type maskSet map[string]struct{}

func newMaskSet(cfg config.Config) maskSet {
	ms := maskSet{}
	if cfg == nil {
		return ms
	}
	for _, field := range cfg.GetArray("telemetry.log_mask_fields") {
		ms[strings.ToLower(field)] = struct{}{}
	}
	return ms
}

func (ms maskSet) has(key string) bool {
	_, ok := ms[strings.ToLower(key)]
	return ok
}

func (ms maskSet) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		if ms.has(k) {
			out[k] = masked
			continue
		}
		out[k] = h.Get(k)
	}
	return out
}

func (ms maskSet) value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if ms.has(k) {
				out[k] = masked
			} else {
				out[k] = ms.value(inner)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = ms.value(inner)
		}
		return out
	default:
		return v
	}
}

// body renders a request body for logs with sensitive fields replaced.
func (ms maskSet) body(contentType string, raw []byte) any {
	if len(raw) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		return ms.value(decoded)
	}

	if strings.HasPrefix(strings.ToLower(contentType), "application/x-www-form-urlencoded") {
		if values, err := url.ParseQuery(string(raw)); err == nil {
			out := make(map[string]any, len(values))
			for k := range values {
				if ms.has(k) {
					out[k] = masked
				} else {
					out[k] = values.Get(k)
				}
			}
			return out
		}
	}

	if !utf8.Valid(raw) {
		return "<binary body omitted>"
	}
	return "<unparsed body omitted>"
}

// peekBody reads up to maxLoggedBodyBytes and restores the body for the handler.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBodyBytes)) //nolint:errcheck // logging only
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	return head
}

func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	masks := newMaskSet(cfg)
	tracer := ins.Tracer("http.server")
	meter := ins.Meter("http.server")

	requests, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Number of HTTP requests handled"))
	if err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}
	duration, err := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"), metric.WithUnit("ms"))
	if err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := matchedRoutePath(r)

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(route),
					semconv.ServerAddressKey.String(r.Host),
					attribute.String("http.user_agent", r.UserAgent()),
				),
			)
			defer span.End()

			reqBody := peekBody(r)
			var handlerErr error
			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(withErrorSlot(ctx, &handlerErr)))

			status := rec.statusCode()
			elapsed := time.Since(start)
			attrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(status),
			}

			span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(status))
			if handlerErr != nil {
				span.RecordError(handlerErr)
			}
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}

			if requests != nil {
				requests.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			if duration != nil {
				duration.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(attrs...))
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			slog.Log(ctx, level, "http request",
				"method", r.Method,
				"path", route,
				"remote_addr", r.RemoteAddr,
				"headers", masks.headers(r.Header),
				"body", masks.body(r.Header.Get("Content-Type"), reqBody),
				"status", status,
				"bytes", rec.bytes,
				"latency_ms", elapsed.Milliseconds(),
			)
		})
	}
}
