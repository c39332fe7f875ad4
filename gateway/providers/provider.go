// Package providers implements the wallet backends the gateway can talk to.
//
// Every backend satisfies Provider. The variants differ only in how they reach
// the external signer: an extension bridge, an iframe parent, or a mobile app
// paired over WalletConnect. Transaction building is shared and goes through
// the chain signing clients.
package providers

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/signing"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/messages"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/task"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "providers").Logger()
}

// Kind enumerates the provider variants.
type Kind string

const (
	KindExtension Kind = "extension"
	KindIframe    Kind = "iframe"
	KindMobile    Kind = "mobile"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindExtension, KindIframe, KindMobile:
		return true
	}
	return false
}

// InitConfig holds the options a provider may use during Init. Variants ignore what they do not need.
type InitConfig struct {
	WalletConnectProjectID string
	AllowedParentOrigins   []string
}

// ConnectCallback receives the connection once the external wallet confirmed it, or the failure.
type ConnectCallback func(models.WalletConnection, error)

// ConnectRequest is the input of Connect.
type ConnectRequest struct {
	Network  models.Network
	Callback ConnectCallback
	// Account is the account the caller already holds for the chain.
	// Adapters that cannot query the wallet themselves use it.
	Account *models.WalletAccount
}

// ConnectResult is returned by Connect before or after the wallet confirmed.
type ConnectResult struct {
	models.ConnectResponse
	// Pending finishes when the session is confirmed or rejected.
	Pending *task.Task
}

// SessionRequest asks a provider to re-derive a persisted session.
type SessionRequest struct {
	Network       models.Network
	MobileSession string
	// Account is the last known account of the session.
	Account *models.WalletAccount
}

// TxRequest describes a transaction to simulate, sign or broadcast.
type TxRequest struct {
	Wallet       models.WalletConnection
	Messages     []messages.TransactionMsg
	FeeOptions   models.FeeOptions
	Memo         string
	RESTOverride string
}

// RESTEndpoint returns the override or the wallet network endpoint.
func (r TxRequest) RESTEndpoint() string {
	if r.RESTOverride != "" {
		return r.RESTOverride
	}
	return r.Wallet.Network.REST
}

func (r TxRequest) prepareRequest() signing.PrepareRequest {
	return signing.PrepareRequest{
		Network:      r.Wallet.Network,
		Wallet:       r.Wallet,
		Messages:     r.Messages,
		FeeOptions:   r.FeeOptions,
		Memo:         r.Memo,
		RESTOverride: r.RESTOverride,
	}
}

// SignPayload is what crosses the boundary to the external signer.
type SignPayload struct {
	ChainID   string
	Signer    string
	SignBytes []byte
	// TypedData is set for EIP-712 families.
	TypedData json.RawMessage
	Doc       signing.UnsignedDoc
}

// ArbitrarySignature is an ADR-036 signature over arbitrary data.
type ArbitrarySignature struct {
	PubKey    []byte `json:"pub_key"`
	Algo      string `json:"algo"`
	Signature []byte `json:"signature"`
}

// Provider is implemented by every wallet backend.
type Provider interface {
	ID() string
	Name() string
	Kind() Kind

	// Init is idempotent; a second call while initialized or initializing returns nil.
	Init(ctx context.Context, cfg InitConfig) error
	Initialized() bool
	Initializing() bool

	Connect(ctx context.Context, req ConnectRequest) (ConnectResult, error)
	// Disconnect is best effort. The external wallet may keep its side of the session.
	Disconnect(ctx context.Context, wallet models.WalletConnection) error
	// GetWalletConnection fails with a SessionInvalidError when the session is gone.
	GetWalletConnection(ctx context.Context, req SessionRequest) (models.WalletConnection, error)

	Simulate(ctx context.Context, req TxRequest) (models.SimulateResult, error)
	Sign(ctx context.Context, req TxRequest) (models.SigningResult, error)
	Broadcast(ctx context.Context, req TxRequest) (models.BroadcastResult, error)
	SignArbitrary(ctx context.Context, wallet models.WalletConnection, data []byte) (ArbitrarySignature, error)
	VerifyArbitrary(ctx context.Context, wallet models.WalletConnection, data []byte, sig ArbitrarySignature) (bool, error)

	// SetOnUpdateCallback registers the single callback fired when the session changes out of band.
	SetOnUpdateCallback(fn func())
}

// base carries identity, init state and the update callback shared by all variants.
type base struct {
	id   string
	name string
	kind Kind

	mu           sync.Mutex
	initialized  bool
	initializing bool
	onUpdate     func()
}

func (b *base) ID() string   { return b.id }
func (b *base) Name() string { return b.name }
func (b *base) Kind() Kind   { return b.kind }

func (b *base) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

func (b *base) Initializing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initializing
}

// runInit executes fn once. Concurrent and repeated calls return nil without running it.
func (b *base) runInit(fn func() error) error {
	b.mu.Lock()
	if b.initialized || b.initializing {
		b.mu.Unlock()
		return nil
	}
	b.initializing = true
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	b.initializing = false
	b.initialized = err == nil
	b.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("provider", b.id).Msg("provider init failed")
		return err
	}
	log.Info().Str("provider", b.id).Str("kind", string(b.kind)).Msg("provider initialized")
	return nil
}

func (b *base) SetOnUpdateCallback(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onUpdate = fn
}

// notifyUpdate fires the registered callback, if any.
func (b *base) notifyUpdate() {
	b.mu.Lock()
	fn := b.onUpdate
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (b *base) ready() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}
	status := "uninitialized"
	if b.initializing {
		status = "initializing"
	}
	return &models.ProviderNotReadyError{ProviderID: b.id, Status: status}
}

// newWallet validates the account against the network and builds the connection.
func (b *base) newWallet(network models.Network, account models.WalletAccount, mobileSession string) (models.WalletConnection, error) {
	if err := VerifyAccount(account, network.Bech32Prefix); err != nil {
		return models.WalletConnection{}, err
	}
	return models.NewWalletConnection(b.id, b.name, network, account, mobileSession), nil
}
