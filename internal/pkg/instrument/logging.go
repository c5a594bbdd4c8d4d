package instrument

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const masked = "***"

func installLogger(out io.Writer, serviceName string, lp *sdklog.LoggerProvider, maskFields []string) {
	handlers := []slog.Handler{newJSONHandler(out)}
	if lp != nil {
		handlers = append(handlers, otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp)))
	}

	slog.SetDefault(slog.New(&appHandler{
		next:    fanout(handlers),
		service: serviceName,
		mask:    buildMaskKeys(maskFields),
	}))
}

func newJSONHandler(out io.Writer) slog.Handler {
	return slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "ts"
			case slog.LevelKey:
				a.Key = "severity"
			case slog.SourceKey:
				src, ok := a.Value.Any().(*slog.Source)
				if !ok {
					return a
				}
				_, rel, found := strings.Cut(src.File, "/internal/")
				if !found {
					return slog.Attr{}
				}
				return slog.String("file", fmt.Sprintf("internal/%s:%d", rel, src.Line))
			}
			return a
		},
	})
}

// appHandler masks sensitive attributes and stamps service and correlation id
// before handing the record on.
type appHandler struct {
	next    slog.Handler
	service string
	mask    map[string]struct{}
}

func (h *appHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *appHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(maskAttr(a, h.mask))
		return true
	})

	if cID := GetCorrelationID(ctx); cID != "" {
		out.AddAttrs(slog.String("_cID", cID))
	}
	if h.service != "" {
		out.AddAttrs(slog.String("service", h.service))
	}

	return h.next.Handle(ctx, out)
}

func (h *appHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		cp[i] = maskAttr(a, h.mask)
	}
	return &appHandler{next: h.next.WithAttrs(cp), service: h.service, mask: h.mask}
}

func (h *appHandler) WithGroup(name string) slog.Handler {
	return &appHandler{next: h.next.WithGroup(name), service: h.service, mask: h.mask}
}

type multiHandler []slog.Handler

func fanout(handlers []slog.Handler) slog.Handler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return multiHandler(handlers)
}

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range m {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}

func buildMaskKeys(fields []string) map[string]struct{} {
	keys := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			keys[f] = struct{}{}
		}
	}
	return keys
}

func maskAttr(a slog.Attr, keys map[string]struct{}) slog.Attr {
	if len(keys) == 0 {
		return a
	}
	if _, ok := keys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, masked)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		attrs := make([]slog.Attr, len(group))
		for i, ga := range group {
			attrs[i] = maskAttr(ga, keys)
		}
		a.Value = slog.GroupValue(attrs...)
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any:
			a.Value = slog.AnyValue(maskMap(v, keys))
		case map[string]string:
			m := make(map[string]any, len(v))
			for k, s := range v {
				m[k] = s
			}
			a.Value = slog.AnyValue(maskMap(m, keys))
		}
	}

	return a
}

func maskMap(m map[string]any, keys map[string]struct{}) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if _, ok := keys[strings.ToLower(k)]; ok {
			out[k] = masked
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			v = maskMap(nested, keys)
		}
		out[k] = v
	}
	return out
}
