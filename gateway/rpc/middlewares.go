package rpc

import (
	"context"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	otellog "go.opentelemetry.io/otel/log"
	"google.golang.org/protobuf/types/known/structpb"
)

// healthPaths are polled by orchestrators every few seconds and only logged at debug.
var healthPaths = map[string]bool{
	"/server/health":  true,
	"/server/ready":   true,
	"/server/metrics": true,
}

// signingProcedures build, sign or submit transactions and hit the chain's REST endpoints.
var signingProcedures = []string{
	GatewayServiceSimulateProcedure,
	GatewayServiceSignProcedure,
	GatewayServiceFinishSignProcedure,
	GatewayServiceBroadcastProcedure,
}

// accessLog logs one line per HTTP request, tagged with the chi request id.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		event := Logger.Info()
		switch {
		case ww.Status() >= http.StatusInternalServerError:
			event = Logger.Warn()
		case healthPaths[r.URL.Path]:
			event = Logger.Debug()
		}
		event.Ctx(r.Context()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

// cloudflareIP takes the client address from CF-Connecting-IP. It runs after
// middleware.RealIP and only when the gateway is configured to trust its proxy.
func cloudflareIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
			r.RemoteAddr = ip
		}
		next.ServeHTTP(w, r)
	})
}

// recoverer answers 500 for a panic outside the Connect handlers, which recover on their own.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				Logger.Error().
					Interface("panic", rvr).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("path", r.URL.Path).
					Msg("Recovered from panic")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func newCORSHandler(allowedOrigins []string, next http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	// wallet sessions are not cookie based, credentials are only allowed for listed origins
	allowCredentials := !(len(allowedOrigins) == 1 && allowedOrigins[0] == "*")

	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{
			"Content-Type",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			"Connect-Accept-Encoding",
			"Connect-Content-Encoding",
			"Accept-Encoding",
			"Content-Encoding",
			"Traceparent",
			"Tracestate",
			middleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			"Content-Encoding",
			"Connect-Content-Encoding",
			middleware.RequestIDHeader,
		},
		AllowCredentials: allowCredentials,
		MaxAge:           int(2 * time.Hour / time.Second),
	}).Handler(next)
}

// requestTarget pulls the wallet and chain a gateway request is about, when it names them.
func requestTarget(req connect.AnyRequest) (walletID, chainID string) {
	msg, ok := req.Any().(*structpb.Struct)
	if !ok {
		return "", ""
	}
	fields := msg.GetFields()
	return fields["wallet_id"].GetStringValue(), fields["chain_id"].GetStringValue()
}

// loggingInterceptor logs every procedure with the wallet and chain it targets.
// The same values are attached to the context for the OpenTelemetry log bridge.
func loggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			walletID, chainID := requestTarget(req)
			ctx = withLogAttrs(ctx,
				otellog.String("rpc.method", procedure),
				otellog.String("wallet.id", walletID),
				otellog.String("chain.id", chainID),
			)

			resp, err := next(ctx, req)

			event := Logger.Info()
			if err != nil {
				code := connect.CodeOf(err).String()
				ctx = withLogAttrs(ctx, otellog.String("rpc.code", code))
				event = Logger.Warn().Err(err).Str("code", code)
			}
			event.Ctx(ctx).
				Str("request_id", middleware.GetReqID(ctx)).
				Str("procedure", procedure).
				Str("wallet", walletID).
				Str("chain_id", chainID).
				Dur("duration", time.Since(start)).
				Msg("rpc")

			return resp, err
		}
	}
}

// noCacheInterceptor keeps session and signing responses out of browser and CDN caches.
func noCacheInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err == nil && resp != nil {
				resp.Header().Set("Cache-Control", "no-store")
			}
			return resp, err
		}
	}
}
