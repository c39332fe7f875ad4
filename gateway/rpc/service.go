package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"connectrpc.com/connect"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/dispatch"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/messages"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/providers"
	"google.golang.org/protobuf/types/known/structpb"
)

// GatewayServiceName is the fully-qualified name of the GatewayService service.
const GatewayServiceName = "wallet.v1.GatewayService"

// Procedure paths of the GatewayService.
const (
	GatewayServiceConnectProcedure         = "/wallet.v1.GatewayService/Connect"
	GatewayServiceDisconnectProcedure      = "/wallet.v1.GatewayService/Disconnect"
	GatewayServiceListWalletsProcedure     = "/wallet.v1.GatewayService/ListWallets"
	GatewayServiceRecentWalletProcedure    = "/wallet.v1.GatewayService/RecentWallet"
	GatewayServiceSimulateProcedure        = "/wallet.v1.GatewayService/Simulate"
	GatewayServiceSignProcedure            = "/wallet.v1.GatewayService/Sign"
	GatewayServiceFinishSignProcedure      = "/wallet.v1.GatewayService/FinishSign"
	GatewayServiceBroadcastProcedure       = "/wallet.v1.GatewayService/Broadcast"
	GatewayServiceVerifyArbitraryProcedure = "/wallet.v1.GatewayService/VerifyArbitrary"
	GatewayServiceListProvidersProcedure   = "/wallet.v1.GatewayService/ListProviders"
	GatewayServiceProviderStatusProcedure  = "/wallet.v1.GatewayService/ProviderStatus"
)

// GatewayServer exposes a dispatch context over Connect
type GatewayServer struct {
	dispatch *dispatch.Context
}

// NewGatewayServer creates a new GatewayServer
func NewGatewayServer(d *dispatch.Context) *GatewayServer {
	return &GatewayServer{dispatch: d}
}

// NewGatewayServiceHandler builds an HTTP handler for every GatewayService procedure.
// It returns the path prefix to mount the handler on.
func NewGatewayServiceHandler(s *GatewayServer, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(GatewayServiceConnectProcedure, unary(GatewayServiceConnectProcedure, s.Connect, opts...))
	mux.Handle(GatewayServiceDisconnectProcedure, unary(GatewayServiceDisconnectProcedure, s.Disconnect, opts...))
	mux.Handle(GatewayServiceListWalletsProcedure, unary(GatewayServiceListWalletsProcedure, s.ListWallets, opts...))
	mux.Handle(GatewayServiceRecentWalletProcedure, unary(GatewayServiceRecentWalletProcedure, s.RecentWallet, opts...))
	mux.Handle(GatewayServiceSimulateProcedure, unary(GatewayServiceSimulateProcedure, s.Simulate, opts...))
	mux.Handle(GatewayServiceSignProcedure, unary(GatewayServiceSignProcedure, s.Sign, opts...))
	mux.Handle(GatewayServiceFinishSignProcedure, unary(GatewayServiceFinishSignProcedure, s.FinishSign, opts...))
	mux.Handle(GatewayServiceBroadcastProcedure, unary(GatewayServiceBroadcastProcedure, s.Broadcast, opts...))
	mux.Handle(GatewayServiceVerifyArbitraryProcedure, unary(GatewayServiceVerifyArbitraryProcedure, s.VerifyArbitrary, opts...))
	mux.Handle(GatewayServiceListProvidersProcedure, unary(GatewayServiceListProvidersProcedure, s.ListProviders, opts...))
	mux.Handle(GatewayServiceProviderStatusProcedure, unary(GatewayServiceProviderStatusProcedure, s.ProviderStatus, opts...))
	return "/" + GatewayServiceName + "/", mux
}

// unary adapts a typed method to a Struct-in, Struct-out Connect handler.
func unary[Req, Res any](procedure string, fn func(context.Context, *Req) (*Res, error), opts ...connect.HandlerOption) http.Handler {
	return connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
			var in Req
			if err := decodeStruct(req.Msg, &in); err != nil {
				return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid request: %w", err))
			}
			out, err := fn(ctx, &in)
			if err != nil {
				return nil, connectError(err)
			}
			msg, err := encodeStruct(out)
			if err != nil {
				return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to encode response: %w", err))
			}
			return connect.NewResponse(msg), nil
		},
		opts...,
	)
}

func decodeStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func encodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// connectError maps the gateway error kinds to Connect codes.
func connectError(err error) error {
	code := connect.CodeInternal
	switch {
	// a provider that failed init wraps its cause, so this goes before the other kinds
	case errors.Is(err, models.ErrProviderNotReady):
		code = connect.CodeUnavailable
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	case errors.Is(err, models.ErrAccountFetch),
		errors.Is(err, models.ErrBlockFetch):
		code = connect.CodeUnavailable
	case errors.Is(err, models.ErrConfiguration),
		errors.Is(err, models.ErrInvalidMessage),
		errors.Is(err, models.ErrInvalidAddress):
		code = connect.CodeInvalidArgument
	case errors.Is(err, models.ErrNoWallet),
		errors.Is(err, models.ErrSessionInvalid),
		errors.Is(err, providers.ErrRemoteSigner):
		code = connect.CodeFailedPrecondition
	}
	return connect.NewError(code, err)
}

func (s *GatewayServer) wallet(op, id string) (*models.WalletConnection, error) {
	if id == "" {
		return nil, nil
	}
	w, ok := s.dispatch.Wallet(id)
	if !ok {
		return nil, &models.NoWalletError{Operation: op + " " + id}
	}
	return &w, nil
}

func decodeMessages(raw json.RawMessage) ([]messages.TransactionMsg, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	msgs, err := messages.DecodeAll(raw)
	if err != nil {
		return nil, &models.InvalidMessageError{Reason: err.Error()}
	}
	return msgs, nil
}

// checkREST only lets callers pick an endpoint the network catalogue already lists,
// the gateway never queries a URL taken from the request.
func (s *GatewayServer) checkREST(url string) error {
	if url == "" {
		return nil
	}
	want := strings.TrimRight(url, "/")
	for _, n := range s.dispatch.Networks() {
		if strings.TrimRight(n.REST, "/") == want {
			return nil
		}
	}
	return &models.ConfigurationError{Reason: fmt.Sprintf("rest_override %q is not a catalogued endpoint", url)}
}

func (s *GatewayServer) txOptions(op string, req *TxRequest) (dispatch.TxOptions, error) {
	w, err := s.wallet(op, req.WalletID)
	if err != nil {
		return dispatch.TxOptions{}, err
	}
	msgs, err := decodeMessages(req.Messages)
	if err != nil {
		return dispatch.TxOptions{}, err
	}
	if err := s.checkREST(req.RESTOverride); err != nil {
		return dispatch.TxOptions{}, err
	}
	return dispatch.TxOptions{
		Wallet:       w,
		Messages:     msgs,
		FeeOptions:   req.FeeOptions,
		Memo:         req.Memo,
		RESTOverride: req.RESTOverride,
	}, nil
}

// Connect opens a session. Wallets signing on the caller's side must send their account.
func (s *GatewayServer) Connect(ctx context.Context, req *ConnectRequest) (*models.ConnectResponse, error) {
	res, err := s.dispatch.Connect(ctx, req.ProviderID, req.ChainID, dispatch.ConnectOptions{Account: req.Account})
	if err != nil {
		return nil, err
	}
	return &res.ConnectResponse, nil
}

func (s *GatewayServer) Disconnect(ctx context.Context, req *DisconnectRequest) (*WalletsResponse, error) {
	if req.WalletID != "" {
		w, err := s.wallet("disconnect", req.WalletID)
		if err != nil {
			return nil, err
		}
		if err := s.dispatch.DisconnectWallet(ctx, w); err != nil {
			return nil, err
		}
		return &WalletsResponse{Wallets: []models.WalletConnection{*w}}, nil
	}
	removed := s.dispatch.Disconnect(ctx, models.WalletFilter{ProviderID: req.ProviderID, ChainID: req.ChainID})
	return &WalletsResponse{Wallets: nonNil(removed)}, nil
}

func (s *GatewayServer) ListWallets(_ context.Context, req *ListWalletsRequest) (*WalletsResponse, error) {
	wallets := slices.Collect(s.dispatch.Wallets(models.WalletFilter{ProviderID: req.ProviderID, ChainID: req.ChainID}))
	return &WalletsResponse{Wallets: nonNil(wallets)}, nil
}

func (s *GatewayServer) RecentWallet(context.Context, *Empty) (*WalletResponse, error) {
	w, ok := s.dispatch.RecentWallet()
	if !ok {
		return nil, &models.NoWalletError{Operation: "recentWallet"}
	}
	return &WalletResponse{Wallet: w}, nil
}

func (s *GatewayServer) Simulate(ctx context.Context, req *TxRequest) (*models.SimulateResult, error) {
	opts, err := s.txOptions("simulate", req)
	if err != nil {
		return nil, err
	}
	res, err := s.dispatch.Simulate(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Sign prepares a transaction. The caller signs SignBytes, or TypedData for EIP-712 chains, and calls FinishSign.
func (s *GatewayServer) Sign(ctx context.Context, req *TxRequest) (*SignResponse, error) {
	opts, err := s.txOptions("sign", req)
	if err != nil {
		return nil, err
	}
	prepared, err := s.dispatch.Prepare(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &SignResponse{SignBytes: prepared.SignBytes, TypedData: prepared.TypedData, Doc: prepared.Doc}, nil
}

func (s *GatewayServer) FinishSign(ctx context.Context, req *FinishSignRequest) (*models.SigningResult, error) {
	w, err := s.wallet("finishSign", req.WalletID)
	if err != nil {
		return nil, err
	}
	msgs, err := decodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	res, err := s.dispatch.Finish(ctx, dispatch.FinishOptions{
		Wallet:    w,
		Messages:  msgs,
		Doc:       req.Doc,
		Signature: req.Signature,
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *GatewayServer) Broadcast(ctx context.Context, req *BroadcastRequest) (*models.BroadcastResult, error) {
	if len(req.TxBytes) == 0 {
		return nil, &models.InvalidMessageError{Reason: "tx_bytes is empty"}
	}
	if err := s.checkREST(req.RESTOverride); err != nil {
		return nil, err
	}
	res, err := s.dispatch.BroadcastRaw(ctx, req.ChainID, req.TxBytes, req.RESTOverride)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *GatewayServer) VerifyArbitrary(ctx context.Context, req *VerifyArbitraryRequest) (*VerifyArbitraryResponse, error) {
	if req.WalletID == "" && req.Signer != "" {
		valid, err := providers.VerifyArbitrary(req.Signer, req.Data, req.Signature)
		if err != nil {
			return nil, &models.InvalidMessageError{Reason: err.Error()}
		}
		return &VerifyArbitraryResponse{Valid: valid}, nil
	}
	w, err := s.wallet("verifyArbitrary", req.WalletID)
	if err != nil {
		return nil, err
	}
	valid, err := s.dispatch.VerifyArbitrary(ctx, w, req.Data, req.Signature)
	if err != nil {
		return nil, err
	}
	return &VerifyArbitraryResponse{Valid: valid}, nil
}

func (s *GatewayServer) ListProviders(context.Context, *Empty) (*ProvidersResponse, error) {
	return &ProvidersResponse{Providers: s.dispatch.Providers()}, nil
}

func (s *GatewayServer) ProviderStatus(_ context.Context, req *ProviderStatusRequest) (*dispatch.ProviderInfo, error) {
	info, err := s.dispatch.ProviderStatus(req.ProviderID)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func nonNil(ws []models.WalletConnection) []models.WalletConnection {
	if ws == nil {
		return []models.WalletConnection{}
	}
	return ws
}
