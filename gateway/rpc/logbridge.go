package rpc

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	otellog "go.opentelemetry.io/otel/log"
)

const bridgeScope = "github.com/Cogwheel-Validator/spectra-wallet/gateway/rpc"

type logAttrsKey struct{}

// withLogAttrs attaches attributes to ctx that the OpenTelemetry bridge adds to
// every record logged with that context.
func withLogAttrs(ctx context.Context, attrs ...otellog.KeyValue) context.Context {
	prev, _ := ctx.Value(logAttrsKey{}).([]otellog.KeyValue)
	merged := make([]otellog.KeyValue, 0, len(prev)+len(attrs))
	merged = append(append(merged, prev...), attrs...)
	return context.WithValue(ctx, logAttrsKey{}, merged)
}

// otelHook copies zerolog events into OpenTelemetry log records.
//
// The record body is the message. Zerolog keeps event fields private, so the
// attributes come from the context set with withLogAttrs plus the static ones
// given here. Trace correlation uses the span of the event context.
type otelHook struct {
	logger otellog.Logger
	attrs  []otellog.KeyValue
}

func newOTelHook(provider otellog.LoggerProvider, attrs ...otellog.KeyValue) otelHook {
	return otelHook{logger: provider.Logger(bridgeScope), attrs: attrs}
}

func (h otelHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level == zerolog.Disabled {
		return
	}
	ctx := e.GetCtx()
	severity, text := otelSeverity(level)
	if !h.logger.Enabled(ctx, otellog.EnabledParameters{Severity: severity}) {
		return
	}

	var r otellog.Record
	now := time.Now()
	r.SetTimestamp(now)
	r.SetObservedTimestamp(now)
	r.SetSeverity(severity)
	r.SetSeverityText(text)
	r.SetBody(otellog.StringValue(msg))
	r.AddAttributes(h.attrs...)
	if attrs, ok := ctx.Value(logAttrsKey{}).([]otellog.KeyValue); ok {
		r.AddAttributes(attrs...)
	}
	h.logger.Emit(ctx, r)
}

func otelSeverity(level zerolog.Level) (otellog.Severity, string) {
	switch level {
	case zerolog.TraceLevel:
		return otellog.SeverityTrace, "TRACE"
	case zerolog.DebugLevel:
		return otellog.SeverityDebug, "DEBUG"
	case zerolog.InfoLevel:
		return otellog.SeverityInfo, "INFO"
	case zerolog.WarnLevel:
		return otellog.SeverityWarn, "WARN"
	case zerolog.ErrorLevel:
		return otellog.SeverityError, "ERROR"
	case zerolog.FatalLevel:
		return otellog.SeverityFatal, "FATAL"
	case zerolog.PanicLevel:
		return otellog.SeverityFatal4, "PANIC"
	default:
		return otellog.SeverityUndefined, ""
	}
}

// BridgeLogs sends everything Logger writes to provider as well, keeping the console output.
func BridgeLogs(provider otellog.LoggerProvider) {
	Logger = Logger.Hook(newOTelHook(provider, otellog.String("service.component", "rpc")))
}
