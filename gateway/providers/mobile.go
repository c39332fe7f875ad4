package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/task"
)

// Pairing is a WalletConnect pairing waiting for the wallet's approval.
type Pairing struct {
	URI string
	// Approve blocks until the wallet approves the pairing and returns the session token.
	Approve func(ctx context.Context) (string, error)
}

// MobileTransport is the WalletConnect client used by mobile providers.
type MobileTransport interface {
	Init(ctx context.Context, projectID string) error
	Pair(ctx context.Context, chainID string) (Pairing, error)
	Account(ctx context.Context, session, chainID string) (models.WalletAccount, error)
	Sign(ctx context.Context, session string, payload SignPayload) ([]byte, error)
	SignArbitrary(ctx context.Context, session, chainID, signer string, data []byte) ([]byte, error)
	Disconnect(ctx context.Context, session string) error
	// OnSessionUpdate registers fn to be called when a session changes in the app.
	OnSessionUpdate(fn func())
}

// MobileApp describes how to open one wallet app with a pairing URI.
type MobileApp struct {
	ID      string
	Name    string
	IOS     func(uri string) string
	Android func(uri string) string
}

// Known mobile wallets.
var (
	KeplrMobile = MobileApp{
		ID:   "keplr-mobile",
		Name: "Keplr Mobile",
		IOS: func(uri string) string {
			return "keplrwallet://wcV2?" + url.QueryEscape(uri)
		},
		Android: func(uri string) string {
			return "intent://wcV2?" + url.QueryEscape(uri) + "#Intent;package=com.chainapsis.keplr;scheme=keplrwallet;end;"
		},
	}
	LeapMobile = MobileApp{
		ID:   "leap-mobile",
		Name: "Leap Mobile",
		IOS: func(uri string) string {
			return "leapcosmos://wcV2?" + url.QueryEscape(uri)
		},
		Android: func(uri string) string {
			return "leapcosmos://wcV2?" + url.QueryEscape(uri)
		},
	}
	CosmostationMobile = MobileApp{
		ID:   "cosmostation-mobile",
		Name: "Cosmostation Mobile",
		IOS: func(uri string) string {
			return "cosmostation://wc?" + url.QueryEscape(uri)
		},
		Android: func(uri string) string {
			return "cosmostation://wc?" + url.QueryEscape(uri)
		},
	}
)

// MobileApps lists the known mobile wallets.
func MobileApps() []MobileApp {
	return []MobileApp{KeplrMobile, LeapMobile, CosmostationMobile}
}

// MobileAppByID returns the preset with the given id.
func MobileAppByID(id string) (MobileApp, bool) {
	for _, app := range MobileApps() {
		if app.ID == id {
			return app, true
		}
	}
	return MobileApp{}, false
}

var errNoSession = errors.New("wallet has no mobile session")

// MobileProvider pairs with a mobile wallet app. Connect returns the pairing links
// at once and completes in the background when the user approves in the app.
type MobileProvider struct {
	base
	app       MobileApp
	transport MobileTransport
	chain     Chain
}

var _ Provider = (*MobileProvider)(nil)

// NewMobileProvider creates a provider for one mobile app preset.
func NewMobileProvider(app MobileApp, transport MobileTransport, chain Chain) *MobileProvider {
	return &MobileProvider{
		base:      base{id: app.ID, name: app.Name, kind: KindMobile},
		app:       app,
		transport: transport,
		chain:     chain,
	}
}

func (p *MobileProvider) Init(ctx context.Context, cfg InitConfig) error {
	return p.runInit(func() error {
		if cfg.WalletConnectProjectID == "" {
			return &models.ConfigurationError{Reason: "mobile providers need a WalletConnect project id"}
		}
		if err := p.transport.Init(ctx, cfg.WalletConnectProjectID); err != nil {
			return fmt.Errorf("failed to init WalletConnect: %w", err)
		}
		p.transport.OnSessionUpdate(p.notifyUpdate)
		return nil
	})
}

/*
Connect starts a pairing and returns the links to show the user.

The wallet confirms later; the callback is called from the Pending task once it
does. A pairing that is never approved keeps the task running until the transport
gives up, timeouts are the transport's business.
*/
func (p *MobileProvider) Connect(ctx context.Context, req ConnectRequest) (ConnectResult, error) {
	if err := p.ready(); err != nil {
		return ConnectResult{}, err
	}
	pairing, err := p.transport.Pair(ctx, req.Network.ChainID)
	if err != nil {
		return ConnectResult{}, fmt.Errorf("failed to start pairing with %s: %w", p.id, err)
	}

	// the pairing outlives the request that started it
	bg := context.WithoutCancel(ctx)
	pending := task.Go(func() error {
		wallet, err := p.awaitApproval(bg, req.Network, pairing)
		if req.Callback != nil {
			req.Callback(wallet, err)
		}
		return err
	})

	return ConnectResult{
		ConnectResponse: models.ConnectResponse{
			QRCodeURL:  pairing.URI,
			IOSURL:     p.app.IOS(pairing.URI),
			AndroidURL: p.app.Android(pairing.URI),
		},
		Pending: pending,
	}, nil
}

func (p *MobileProvider) awaitApproval(ctx context.Context, network models.Network, pairing Pairing) (models.WalletConnection, error) {
	session, err := pairing.Approve(ctx)
	if err != nil {
		return models.WalletConnection{}, fmt.Errorf("pairing with %s was not approved: %w", p.id, err)
	}
	account, err := p.transport.Account(ctx, session, network.ChainID)
	if err != nil {
		return models.WalletConnection{}, fmt.Errorf("failed to get account from %s: %w", p.id, err)
	}
	wallet, err := p.newWallet(network, account, session)
	if err != nil {
		return models.WalletConnection{}, err
	}
	log.Info().Str("provider", p.id).Str("wallet", wallet.ID).Msg("mobile session approved")
	return wallet, nil
}

func (p *MobileProvider) Disconnect(ctx context.Context, wallet models.WalletConnection) error {
	if wallet.MobileSession == "" {
		return nil
	}
	if err := p.transport.Disconnect(ctx, wallet.MobileSession); err != nil {
		log.Debug().Err(err).Str("provider", p.id).Str("wallet", wallet.ID).Msg("mobile disconnect failed")
	}
	return nil
}

func (p *MobileProvider) GetWalletConnection(ctx context.Context, req SessionRequest) (models.WalletConnection, error) {
	if err := p.ready(); err != nil {
		return models.WalletConnection{}, err
	}
	if req.MobileSession == "" {
		return models.WalletConnection{}, &models.SessionInvalidError{WalletID: sessionID(p.id, req), Err: errNoSession}
	}
	account, err := p.transport.Account(ctx, req.MobileSession, req.Network.ChainID)
	if err != nil {
		return models.WalletConnection{}, &models.SessionInvalidError{WalletID: sessionID(p.id, req), Err: err}
	}
	return p.newWallet(req.Network, account, req.MobileSession)
}

func (p *MobileProvider) Simulate(ctx context.Context, req TxRequest) (models.SimulateResult, error) {
	if err := p.ready(); err != nil {
		return models.SimulateResult{}, err
	}
	return p.chain.simulate(ctx, req)
}

func (p *MobileProvider) Sign(ctx context.Context, req TxRequest) (models.SigningResult, error) {
	if err := p.ready(); err != nil {
		return models.SigningResult{}, err
	}
	return p.chain.sign(ctx, req, p.signer(req.Wallet))
}

func (p *MobileProvider) Broadcast(ctx context.Context, req TxRequest) (models.BroadcastResult, error) {
	if err := p.ready(); err != nil {
		return models.BroadcastResult{}, err
	}
	return p.chain.broadcast(ctx, req, p.signer(req.Wallet))
}

func (p *MobileProvider) SignArbitrary(ctx context.Context, wallet models.WalletConnection, data []byte) (ArbitrarySignature, error) {
	if err := p.ready(); err != nil {
		return ArbitrarySignature{}, err
	}
	if wallet.MobileSession == "" {
		return ArbitrarySignature{}, &models.SessionInvalidError{WalletID: wallet.ID, Err: errNoSession}
	}
	return signArbitrary(ctx, wallet, data, func(ctx context.Context, chainID, signer string, data []byte) ([]byte, error) {
		return p.transport.SignArbitrary(ctx, wallet.MobileSession, chainID, signer, data)
	})
}

func (p *MobileProvider) VerifyArbitrary(_ context.Context, wallet models.WalletConnection, data []byte, sig ArbitrarySignature) (bool, error) {
	return VerifyArbitrary(wallet.Account.Address, data, sig)
}

func (p *MobileProvider) signer(wallet models.WalletConnection) signFunc {
	return func(ctx context.Context, payload SignPayload) ([]byte, error) {
		if wallet.MobileSession == "" {
			return nil, &models.SessionInvalidError{WalletID: wallet.ID, Err: errNoSession}
		}
		return p.transport.Sign(ctx, wallet.MobileSession, payload)
	}
}
