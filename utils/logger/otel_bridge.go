package logger

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/log"
)

// otelAttrKeys renames the gate's log keys to OTel semantic-convention
// attributes. Keys not listed are exported unchanged.
var otelAttrKeys = map[string]string{
	string(UserIDKey):    "enduser.id",
	string(RequestIDKey): "http.request.id",
	"remote_addr":        "client.address",
	"path":               "url.path",
	"method":             "kyc.nav.method",
	"error":              "exception.message",
}

// OTelHandler bridges slog records to an OTel logger. Gate context keys
// (request_id, user_id, navigation source and target, gate key) are read from
// the context so that plain slog.InfoContext calls carry them too.
type OTelHandler struct {
	logger log.Logger
	attrs  []log.KeyValue
	groups []string
	level  slog.Level
}

func NewOTelHandler(logger log.Logger, level slog.Level) *OTelHandler {
	return &OTelHandler{logger: logger, level: level}
}

func (h *OTelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *OTelHandler) Handle(ctx context.Context, r slog.Record) error {
	var rec log.Record
	rec.SetTimestamp(r.Time)
	rec.SetBody(log.StringValue(r.Message))
	rec.SetSeverity(otelSeverity(r.Level))
	rec.SetSeverityText(r.Level.String())

	if traceID, spanID, ok := spanAttrs(ctx); ok {
		rec.AddAttributes(log.String("trace_id", traceID), log.String("span_id", spanID))
	}
	rec.AddAttributes(contextAttrs(ctx)...)
	rec.AddAttributes(h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		if kv, ok := otelAttr(h.groups, a); ok {
			rec.AddAttributes(kv)
		}
		return true
	})

	h.logger.Emit(ctx, rec)
	return nil
}

func (h *OTelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := slices.Clone(h.attrs)
	for _, a := range attrs {
		if kv, ok := otelAttr(h.groups, a); ok {
			next = append(next, kv)
		}
	}
	return &OTelHandler{logger: h.logger, attrs: next, groups: h.groups, level: h.level}
}

func (h *OTelHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &OTelHandler{logger: h.logger, attrs: h.attrs, groups: append(slices.Clone(h.groups), name), level: h.level}
}

// contextAttrs exports the gate keys stored in ctx.
func contextAttrs(ctx context.Context) []log.KeyValue {
	var kvs []log.KeyValue
	for _, key := range []ContextKey{RequestIDKey, UserIDKey, OperationKey, NavSourceKey, NavTargetKey, GateKeyKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			kvs = append(kvs, log.String(otelKey(nil, string(key)), v))
		}
	}
	return kvs
}

func otelKey(groups []string, key string) string {
	if len(groups) == 0 {
		if mapped, ok := otelAttrKeys[key]; ok {
			return mapped
		}
		return key
	}
	return strings.Join(groups, ".") + "." + key
}

// otelAttr converts a slog attribute. Empty attributes and groups are dropped as slog does.
func otelAttr(groups []string, a slog.Attr) (log.KeyValue, bool) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) || (a.Value.Kind() == slog.KindGroup && len(a.Value.Group()) == 0) {
		return log.KeyValue{}, false
	}
	return log.KeyValue{Key: otelKey(groups, a.Key), Value: otelValue(a.Value)}, true
}

func otelValue(v slog.Value) log.Value {
	switch v.Kind() {
	case slog.KindString:
		return log.StringValue(v.String())
	case slog.KindInt64:
		return log.Int64Value(v.Int64())
	case slog.KindUint64:
		return log.Int64Value(int64(v.Uint64()))
	case slog.KindFloat64:
		return log.Float64Value(v.Float64())
	case slog.KindBool:
		return log.BoolValue(v.Bool())
	case slog.KindDuration:
		return log.Int64Value(v.Duration().Milliseconds())
	case slog.KindGroup:
		kvs := make([]log.KeyValue, 0, len(v.Group()))
		for _, a := range v.Group() {
			if kv, ok := otelAttr(nil, a); ok {
				kvs = append(kvs, kv)
			}
		}
		return log.MapValue(kvs...)
	default:
		return log.StringValue(v.String())
	}
}

func otelSeverity(level slog.Level) log.Severity {
	switch {
	case level >= slog.LevelError:
		return log.SeverityError
	case level >= slog.LevelWarn:
		return log.SeverityWarn
	case level >= slog.LevelInfo:
		return log.SeverityInfo
	default:
		return log.SeverityDebug
	}
}
