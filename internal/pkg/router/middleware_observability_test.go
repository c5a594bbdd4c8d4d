package router

import (
	"context"
	"net/http"
	"testing"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type spanInstrument struct {
	tp *sdktrace.TracerProvider
}

func (s spanInstrument) Tracer(name string) trace.Tracer { return s.tp.Tracer(name) }
func (spanInstrument) Meter(name string) metric.Meter {
	return metricnoop.NewMeterProvider().Meter(name)
}
func (s spanInstrument) Shutdown(ctx context.Context) error { return s.tp.Shutdown(ctx) }

// bufferingWriter stands in for writers such as the scs one that hold the
// response until the handler returns.
type bufferingWriter struct {
	http.ResponseWriter
}

func TestObservability_RecordsHandlerErrorThroughWrappedWriter(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	ins := spanInstrument{tp: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))}

	cfg, err := config.NewViperFromBytes("yaml", []byte("app:\n  name: test\n"))
	require.NoError(t, err)

	wrap := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&bufferingWriter{ResponseWriter: w}, r)
		})
	}
	r := NewRouter(Config{Config: cfg, UUID: fixedID("cid-1"), Instrument: ins, Middlewares: []Middleware{wrap}})
	r.GET("/boom", func(*Request) (any, error) {
		return nil, goerror.NewServer(assert.AnError)
	})
	r.GET("/ok", func(*Request) (any, error) { return "ok", nil })

	rec, _ := do(t, r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	rec, _ = do(t, r, http.MethodGet, "/ok", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	boom := spans[0]
	assert.Equal(t, "GET /boom", boom.Name())
	assert.Equal(t, codes.Error, boom.Status().Code)
	require.Len(t, boom.Events(), 1)
	assert.Equal(t, "exception", boom.Events()[0].Name)

	assert.Empty(t, spans[1].Events())
}
