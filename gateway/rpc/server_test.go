package rpc_test

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	. "github.com/Cogwheel-Validator/spectra-wallet/gateway/rpc"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/providers/providertest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/assert"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/trace"
)

// syncBuffer is a log sink that handlers can write while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogs points Logger at a buffer for the duration of the test.
func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	prev := Logger
	t.Cleanup(func() { SetLogger(prev) })
	buf := &syncBuffer{}
	SetLogger(zerolog.New(buf))
	return buf
}

// recordingProcessor keeps every record the SDK emits.
type recordingProcessor struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (p *recordingProcessor) OnEmit(_ context.Context, r *sdklog.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, r.Clone())
	return nil
}

func (p *recordingProcessor) Shutdown(context.Context) error   { return nil }
func (p *recordingProcessor) ForceFlush(context.Context) error { return nil }

func (p *recordingProcessor) find(body string) (sdklog.Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.records {
		if r.Body().AsString() == body {
			return r, true
		}
	}
	return sdklog.Record{}, false
}

func attributes(r sdklog.Record) map[string]string {
	out := map[string]string{}
	r.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value.AsString()
		return true
	})
	return out
}

func bridged(t *testing.T) *recordingProcessor {
	t.Helper()
	captureLogs(t)
	processor := &recordingProcessor{}
	BridgeLogs(sdklog.NewLoggerProvider(sdklog.WithProcessor(processor)))
	return processor
}

func TestLogBridgeKeepsSeverityAndTrace(t *testing.T) {
	processor := bridged(t)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	Logger.Warn().Ctx(ctx).Str("wallet", "keplr-pion-1-neutron1a").Msg("session expired")
	Logger.Debug().Msg("dispatch state changed")

	r, ok := processor.find("session expired")
	require.True(t, ok)
	assert.Equal(t, r.Severity(), otellog.SeverityWarn)
	assert.Equal(t, r.SeverityText(), "WARN")
	assert.Equal(t, r.TraceID(), sc.TraceID())
	assert.Equal(t, r.SpanID(), sc.SpanID())
	assert.Equal(t, attributes(r)["service.component"], "rpc")

	r, ok = processor.find("dispatch state changed")
	require.True(t, ok)
	assert.Equal(t, r.Severity(), otellog.SeverityDebug)
	assert.False(t, r.TraceID().IsValid())
}

func TestLogBridgeCarriesProcedure(t *testing.T) {
	processor := bridged(t)
	g := newGateway(t)
	g.start(t)
	acc, err := providertest.NewAccount("neutron")
	require.NoError(t, err)

	err = g.call(t, GatewayServiceSignProcedure, TxRequest{WalletID: "keplr-pion-1-neutron1xyz", Messages: sendMessages(acc)}, nil)
	assert.Equal(t, connect.CodeOf(err), connect.CodeFailedPrecondition)

	require.Eventually(t, func() bool {
		_, ok := processor.find("rpc")
		return ok
	}, time.Second, 10*time.Millisecond)
	r, _ := processor.find("rpc")
	attrs := attributes(r)
	assert.Equal(t, attrs["rpc.method"], GatewayServiceSignProcedure)
	assert.Equal(t, attrs["wallet.id"], "keplr-pion-1-neutron1xyz")
	assert.Equal(t, attrs["rpc.code"], connect.CodeFailedPrecondition.String())
	assert.Equal(t, r.Severity(), otellog.SeverityWarn)
}

func TestHealthChecksLogAtDebug(t *testing.T) {
	logs := captureLogs(t)
	g := newGateway(t)

	res, err := http.Get(g.url + "/server/health")
	require.NoError(t, err)
	res.Body.Close()
	require.NoError(t, g.call(t, GatewayServiceListProvidersProcedure, Empty{}, nil))

	lineFor := func(path string) string {
		for _, line := range strings.Split(logs.String(), "\n") {
			if strings.Contains(line, `"path":"`+path+`"`) && strings.Contains(line, `"message":"request"`) {
				return line
			}
		}
		return ""
	}
	require.Eventually(t, func() bool {
		return lineFor("/server/health") != "" && lineFor(GatewayServiceListProvidersProcedure) != ""
	}, time.Second, 10*time.Millisecond)

	assert.True(t, strings.Contains(lineFor("/server/health"), `"level":"debug"`))
	rpcLine := lineFor(GatewayServiceListProvidersProcedure)
	assert.True(t, strings.Contains(rpcLine, `"level":"info"`))
	assert.True(t, strings.Contains(rpcLine, `"request_id":"`))
}

func TestSigningRateLimit(t *testing.T) {
	limit := 1
	g := newGatewayWith(t, &ServerConfig{Address: "127.0.0.1:0", SigningRatePerMinute: &limit})
	g.start(t)
	acc, err := providertest.NewAccount("neutron")
	require.NoError(t, err)

	sign := func(forwardedFor string) error {
		header := http.Header{}
		if forwardedFor != "" {
			header.Set("X-Forwarded-For", forwardedFor)
		}
		return g.callWithHeader(t, GatewayServiceSignProcedure, header, TxRequest{Messages: sendMessages(acc)}, nil)
	}

	// no wallet yet, the limiter counts the call anyway
	assert.Equal(t, connect.CodeOf(sign("")), connect.CodeFailedPrecondition)
	assert.Equal(t, connect.CodeOf(sign("")), connect.CodeUnavailable)

	// proxy headers are not trusted unless configured
	assert.Equal(t, connect.CodeOf(sign("203.0.113.7")), connect.CodeUnavailable)

	// other procedures are not limited
	for range 3 {
		require.NoError(t, g.call(t, GatewayServiceListProvidersProcedure, Empty{}, nil))
	}
}

func TestSigningRateLimitByForwardedClient(t *testing.T) {
	limit := 1
	g := newGatewayWith(t, &ServerConfig{Address: "127.0.0.1:0", SigningRatePerMinute: &limit, TrustProxyHeaders: true})
	g.start(t)
	acc, err := providertest.NewAccount("neutron")
	require.NoError(t, err)

	sign := func(forwardedFor string) error {
		header := http.Header{"X-Forwarded-For": []string{forwardedFor}}
		return g.callWithHeader(t, GatewayServiceSignProcedure, header, TxRequest{Messages: sendMessages(acc)}, nil)
	}
	assert.Equal(t, connect.CodeOf(sign("203.0.113.7")), connect.CodeFailedPrecondition)
	assert.Equal(t, connect.CodeOf(sign("203.0.113.7")), connect.CodeUnavailable)
	assert.Equal(t, connect.CodeOf(sign("203.0.113.8")), connect.CodeFailedPrecondition)
}
