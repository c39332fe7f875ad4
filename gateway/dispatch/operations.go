package dispatch

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/signing"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/events"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/messages"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/providers"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Platform selects which deep link MobileConnect opens.
type Platform string

const (
	PlatformNone    Platform = ""
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// ConnectOptions are the optional inputs of Connect.
type ConnectOptions struct {
	// Account is the account the caller already holds, used by wallets that sign remotely.
	Account *models.WalletAccount
	// Callback is called once the wallet is stored, or with the failure.
	Callback providers.ConnectCallback
}

// TxOptions describes a transaction. A nil Wallet means the recent wallet.
type TxOptions struct {
	Wallet       *models.WalletConnection
	Messages     []messages.TransactionMsg
	FeeOptions   models.FeeOptions
	Memo         string
	RESTOverride string
}

// FinishOptions carries a doc prepared earlier and the signature produced for it.
type FinishOptions struct {
	Wallet    *models.WalletConnection
	Messages  []messages.TransactionMsg
	Doc       signing.UnsignedDoc
	Signature []byte
}

// begin opens a span and returns the function that closes it and records the metrics.
func (c *Context) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "dispatch."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.metrics.observe(op, start, err)
	}
}

// provider returns a provider that has finished initializing.
func (c *Context) provider(id string) (providers.Provider, error) {
	p, err := c.registry.Lookup(id)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	info := c.status[id]
	c.mu.RUnlock()
	if info.Status != StatusReady {
		return nil, &models.ProviderNotReadyError{ProviderID: id, Status: string(info.Status), Err: info.err}
	}
	return p, nil
}

func (c *Context) resolveWallet(op string, w *models.WalletConnection) (models.WalletConnection, error) {
	if w != nil {
		return *w, nil
	}
	recent, ok := c.store.RecentWallet()
	if !ok {
		return models.WalletConnection{}, &models.NoWalletError{Operation: op}
	}
	return recent, nil
}

func walletAttrs(w models.WalletConnection) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("provider", w.ProviderID),
		attribute.String("chain_id", w.Network.ChainID),
	}
}

// addWallet stores a connection confirmed by a provider.
func (c *Context) addWallet(ctx context.Context, w models.WalletConnection) {
	_, replaced := c.store.AddWallet(w)
	c.publish(ctx, events.NewEvent(events.WalletConnected, w))
	c.persist(ctx)
	c.log.Info().Str("wallet", w.Key()).Bool("replaced", replaced).Msg("wallet connected")
}

/*
Connect opens a session with a provider on a chain.

Extension and iframe providers return the wallet directly. Mobile providers
return the pairing links and add the wallet later, when the user approves;
Pending on the result finishes at that point.

Params:
- providerID: a registered provider
- chainID: a network of the catalogue
- opts: optional account hint and completion callback

Returns:
- providers.ConnectResult
- error: ConfigurationError for unknown ids, ProviderNotReadyError if the provider is not ready
*/
func (c *Context) Connect(ctx context.Context, providerID, chainID string, opts ConnectOptions) (res providers.ConnectResult, err error) {
	ctx, end := c.begin(ctx, "connect", attribute.String("provider", providerID), attribute.String("chain_id", chainID))
	defer func() { end(err) }()

	p, err := c.provider(providerID)
	if err != nil {
		return providers.ConnectResult{}, err
	}
	network, err := c.catalogue.Lookup(chainID)
	if err != nil {
		return providers.ConnectResult{}, err
	}

	bg := context.WithoutCancel(ctx)
	return p.Connect(ctx, providers.ConnectRequest{
		Network: network,
		Account: opts.Account,
		Callback: func(w models.WalletConnection, err error) {
			if err == nil {
				c.addWallet(bg, w)
			}
			if opts.Callback != nil {
				opts.Callback(w, err)
			}
		},
	})
}

// MobileConnect connects through a mobile provider and opens the deep link for platform, if one is given.
func (c *Context) MobileConnect(ctx context.Context, providerID, chainID string, platform Platform, opts ConnectOptions) (providers.ConnectResult, error) {
	p, err := c.registry.Lookup(providerID)
	if err != nil {
		return providers.ConnectResult{}, err
	}
	if p.Kind() != providers.KindMobile {
		return providers.ConnectResult{}, &models.ConfigurationError{
			Reason: fmt.Sprintf("provider %s is not a mobile provider", providerID),
		}
	}
	res, err := c.Connect(ctx, providerID, chainID, opts)
	if err != nil {
		return res, err
	}

	var link string
	switch platform {
	case PlatformIOS:
		link = res.IOSURL
	case PlatformAndroid:
		link = res.AndroidURL
	}
	if link == "" {
		return res, nil
	}
	if err := c.OpenURL(ctx, link); err != nil {
		return res, fmt.Errorf("failed to open wallet app: %w", err)
	}
	return res, nil
}

// OpenURL hands url to the host's URL opener.
func (c *Context) OpenURL(ctx context.Context, url string) error {
	if c.opener == nil {
		return &models.ConfigurationError{Reason: "no url opener configured"}
	}
	return c.opener.OpenURL(ctx, url)
}

// Disconnect removes every wallet matched by filter and tells their providers. The zero filter removes all.
func (c *Context) Disconnect(ctx context.Context, filter models.WalletFilter) []models.WalletConnection {
	ctx, end := c.begin(ctx, "disconnect")
	defer end(nil)

	removed := c.store.RemoveWallets(filter)
	for _, w := range removed {
		c.disconnected(ctx, w)
	}
	if len(removed) > 0 {
		c.persist(ctx)
	}
	return removed
}

// DisconnectWallet removes one wallet, the recent one when w is nil.
func (c *Context) DisconnectWallet(ctx context.Context, w *models.WalletConnection) (err error) {
	ctx, end := c.begin(ctx, "disconnect_wallet")
	defer func() { end(err) }()

	wallet, err := c.resolveWallet("disconnect", w)
	if err != nil {
		return err
	}
	if !c.store.RemoveWallet(wallet) {
		return nil
	}
	c.disconnected(ctx, wallet)
	c.persist(ctx)
	return nil
}

func (c *Context) disconnected(ctx context.Context, w models.WalletConnection) {
	if p, err := c.registry.Lookup(w.ProviderID); err == nil {
		if err := p.Disconnect(ctx, w); err != nil {
			c.log.Debug().Err(err).Str("wallet", w.Key()).Msg("provider disconnect failed")
		}
	}
	c.publish(ctx, events.NewEvent(events.WalletDisconnected, w))
	c.log.Info().Str("wallet", w.Key()).Msg("wallet disconnected")
}

// Wallets returns the connected wallets matched by filter, oldest first. See session.Store.Wallets.
func (c *Context) Wallets(filter models.WalletFilter) iter.Seq[models.WalletConnection] {
	return c.store.Wallets(filter)
}

// Wallet returns the connected wallet with the given id.
func (c *Context) Wallet(id string) (models.WalletConnection, bool) {
	return c.store.Get(id)
}

// RecentWallet returns the last connected wallet still present.
func (c *Context) RecentWallet() (models.WalletConnection, bool) {
	return c.store.RecentWallet()
}

func (c *Context) txRequest(op string, opts TxOptions) (providers.Provider, providers.TxRequest, error) {
	wallet, err := c.resolveWallet(op, opts.Wallet)
	if err != nil {
		return nil, providers.TxRequest{}, err
	}
	p, err := c.provider(wallet.ProviderID)
	if err != nil {
		return nil, providers.TxRequest{}, err
	}
	return p, providers.TxRequest{
		Wallet:       wallet,
		Messages:     opts.Messages,
		FeeOptions:   opts.FeeOptions,
		Memo:         opts.Memo,
		RESTOverride: opts.RESTOverride,
	}, nil
}

// Simulate estimates the gas of a transaction.
func (c *Context) Simulate(ctx context.Context, opts TxOptions) (res models.SimulateResult, err error) {
	p, req, err := c.txRequest("simulate", opts)
	if err != nil {
		return models.SimulateResult{}, err
	}
	ctx, end := c.begin(ctx, "simulate", walletAttrs(req.Wallet)...)
	defer func() { end(err) }()
	return p.Simulate(ctx, req)
}

// Sign has the wallet sign a transaction and returns it ready to broadcast.
func (c *Context) Sign(ctx context.Context, opts TxOptions) (res models.SigningResult, err error) {
	p, req, err := c.txRequest("sign", opts)
	if err != nil {
		return models.SigningResult{}, err
	}
	ctx, end := c.begin(ctx, "sign", walletAttrs(req.Wallet)...)
	defer func() { end(err) }()
	return p.Sign(ctx, req)
}

// Broadcast signs a transaction and submits it.
func (c *Context) Broadcast(ctx context.Context, opts TxOptions) (res models.BroadcastResult, err error) {
	p, req, err := c.txRequest("broadcast", opts)
	if err != nil {
		return models.BroadcastResult{}, err
	}
	ctx, end := c.begin(ctx, "broadcast", walletAttrs(req.Wallet)...)
	defer func() { end(err) }()
	return p.Broadcast(ctx, req)
}

func (c *Context) client(network models.Network) (signing.Client, error) {
	if c.chain.Clients == nil {
		return nil, &models.ConfigurationError{Reason: "no signing clients configured"}
	}
	return c.chain.Clients.ForNetwork(network)
}

// Prepare runs the first signing phase for wallets that sign outside this process.
// The caller signs Prepared.SignBytes (or TypedData) and calls Finish with the doc.
// Like the provider operations, it fails with ProviderNotReadyError while the wallet's
// provider is not initialized.
func (c *Context) Prepare(ctx context.Context, opts TxOptions) (prepared *signing.Prepared, err error) {
	wallet, err := c.resolveWallet("prepare", opts.Wallet)
	if err != nil {
		return nil, err
	}
	if _, err := c.provider(wallet.ProviderID); err != nil {
		return nil, err
	}
	ctx, end := c.begin(ctx, "prepare", walletAttrs(wallet)...)
	defer func() { end(err) }()

	client, err := c.client(wallet.Network)
	if err != nil {
		return nil, err
	}
	return client.Prepare(ctx, signing.PrepareRequest{
		Network:      wallet.Network,
		Wallet:       wallet,
		Messages:     opts.Messages,
		FeeOptions:   opts.FeeOptions,
		Memo:         opts.Memo,
		RESTOverride: opts.RESTOverride,
	})
}

// Finish assembles the signed transaction from a prepared doc. It makes no network call.
func (c *Context) Finish(ctx context.Context, opts FinishOptions) (res models.SigningResult, err error) {
	wallet, err := c.resolveWallet("finish", opts.Wallet)
	if err != nil {
		return models.SigningResult{}, err
	}
	if _, err := c.provider(wallet.ProviderID); err != nil {
		return models.SigningResult{}, err
	}
	_, end := c.begin(ctx, "finish", walletAttrs(wallet)...)
	defer func() { end(err) }()

	client, err := c.client(wallet.Network)
	if err != nil {
		return models.SigningResult{}, err
	}
	msgs, err := client.Normalize(opts.Messages)
	if err != nil {
		return models.SigningResult{}, err
	}
	return client.Finish(signing.FinishRequest{
		Network:    wallet.Network,
		PubKey:     wallet.Account.PubKey,
		PubKeyAlgo: wallet.Account.Algo,
		Messages:   msgs,
		Doc:        opts.Doc,
		Signature:  opts.Signature,
	})
}

// BroadcastRaw submits signed transaction bytes to a network.
func (c *Context) BroadcastRaw(ctx context.Context, chainID string, txRaw []byte, restOverride string) (res models.BroadcastResult, err error) {
	ctx, end := c.begin(ctx, "broadcast_raw", attribute.String("chain_id", chainID))
	defer func() { end(err) }()

	network, err := c.catalogue.Lookup(chainID)
	if err != nil {
		return models.BroadcastResult{}, err
	}
	if c.chain.Querier == nil {
		return models.BroadcastResult{}, &models.ConfigurationError{Reason: "no chain querier configured"}
	}
	restURL := network.REST
	if restOverride != "" {
		restURL = restOverride
	}
	return c.chain.BroadcastRaw(ctx, restURL, txRaw)
}

// SignArbitrary has the wallet sign data as an ADR-036 message.
func (c *Context) SignArbitrary(ctx context.Context, w *models.WalletConnection, data []byte) (sig providers.ArbitrarySignature, err error) {
	wallet, err := c.resolveWallet("signArbitrary", w)
	if err != nil {
		return providers.ArbitrarySignature{}, err
	}
	ctx, end := c.begin(ctx, "sign_arbitrary", walletAttrs(wallet)...)
	defer func() { end(err) }()

	p, err := c.provider(wallet.ProviderID)
	if err != nil {
		return providers.ArbitrarySignature{}, err
	}
	return p.SignArbitrary(ctx, wallet, data)
}

// VerifyArbitrary checks an ADR-036 signature against the wallet's address.
func (c *Context) VerifyArbitrary(ctx context.Context, w *models.WalletConnection, data []byte, sig providers.ArbitrarySignature) (ok bool, err error) {
	wallet, err := c.resolveWallet("verifyArbitrary", w)
	if err != nil {
		return false, err
	}
	ctx, end := c.begin(ctx, "verify_arbitrary", walletAttrs(wallet)...)
	defer func() { end(err) }()

	p, err := c.registry.Lookup(wallet.ProviderID)
	if err != nil {
		return providers.VerifyArbitrary(wallet.Account.Address, data, sig)
	}
	return p.VerifyArbitrary(ctx, wallet, data, sig)
}

// Providers returns every registered provider with its status, in registration order.
func (c *Context) Providers() []ProviderInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := c.registry.Providers()
	out := make([]ProviderInfo, 0, len(list))
	for _, p := range list {
		out = append(out, c.status[p.ID()])
	}
	return out
}

// AvailableProviders returns the ready providers, optionally only those of the given kinds.
func (c *Context) AvailableProviders(kinds ...providers.Kind) []ProviderInfo {
	return slices.DeleteFunc(c.Providers(), func(info ProviderInfo) bool {
		if info.Status != StatusReady {
			return true
		}
		return len(kinds) > 0 && !slices.Contains(kinds, info.Kind)
	})
}

// ProviderStatus returns the status of one provider.
func (c *Context) ProviderStatus(id string) (ProviderInfo, error) {
	if _, err := c.registry.Lookup(id); err != nil {
		return ProviderInfo{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status[id], nil
}

// Networks returns the catalogue networks.
func (c *Context) Networks() []models.Network {
	return c.catalogue.Networks()
}
