package providers

import (
	"context"
	"fmt"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/task"
)

// ExtensionAdapter is the bridge to a browser extension wallet.
type ExtensionAdapter interface {
	// Init detects the extension. It fails if the wallet is not installed.
	Init(ctx context.Context, cfg InitConfig) error
	// Enable asks the wallet to allow access to the chain.
	Enable(ctx context.Context, chainID string) error
	// Account returns the active account. hint is the account the caller knows about, if any.
	Account(ctx context.Context, chainID string, hint *models.WalletAccount) (models.WalletAccount, error)
	Sign(ctx context.Context, payload SignPayload) ([]byte, error)
	SignArbitrary(ctx context.Context, chainID, signer string, data []byte) ([]byte, error)
	Disconnect(ctx context.Context, chainID string) error
	// OnAccountChange registers fn to be called when the user switches accounts.
	OnAccountChange(fn func())
}

// ExtensionProvider connects through a browser extension.
type ExtensionProvider struct {
	base
	adapter ExtensionAdapter
	chain   Chain
}

var _ Provider = (*ExtensionProvider)(nil)

// NewExtensionProvider creates a provider for one extension wallet, such as keplr or leap.
func NewExtensionProvider(id, name string, adapter ExtensionAdapter, chain Chain) *ExtensionProvider {
	return &ExtensionProvider{
		base:    base{id: id, name: name, kind: KindExtension},
		adapter: adapter,
		chain:   chain,
	}
}

func (p *ExtensionProvider) Init(ctx context.Context, cfg InitConfig) error {
	return p.runInit(func() error {
		if err := p.adapter.Init(ctx, cfg); err != nil {
			return fmt.Errorf("failed to init %s extension: %w", p.id, err)
		}
		p.adapter.OnAccountChange(p.notifyUpdate)
		return nil
	})
}

func (p *ExtensionProvider) Connect(ctx context.Context, req ConnectRequest) (ConnectResult, error) {
	if err := p.ready(); err != nil {
		return ConnectResult{}, err
	}
	wallet, err := p.connect(ctx, req)
	if req.Callback != nil {
		req.Callback(wallet, err)
	}
	if err != nil {
		return ConnectResult{}, err
	}
	return ConnectResult{
		ConnectResponse: models.ConnectResponse{Wallet: &wallet},
		Pending:         task.Completed(nil),
	}, nil
}

func (p *ExtensionProvider) connect(ctx context.Context, req ConnectRequest) (models.WalletConnection, error) {
	chainID := req.Network.ChainID
	if err := p.adapter.Enable(ctx, chainID); err != nil {
		return models.WalletConnection{}, fmt.Errorf("failed to enable %s on %s: %w", chainID, p.id, err)
	}
	account, err := p.adapter.Account(ctx, chainID, req.Account)
	if err != nil {
		return models.WalletConnection{}, fmt.Errorf("failed to get account from %s: %w", p.id, err)
	}
	return p.newWallet(req.Network, account, "")
}

func (p *ExtensionProvider) Disconnect(ctx context.Context, wallet models.WalletConnection) error {
	if err := p.adapter.Disconnect(ctx, wallet.Network.ChainID); err != nil {
		log.Debug().Err(err).Str("provider", p.id).Str("wallet", wallet.ID).Msg("extension disconnect failed")
	}
	return nil
}

func (p *ExtensionProvider) GetWalletConnection(ctx context.Context, req SessionRequest) (models.WalletConnection, error) {
	if err := p.ready(); err != nil {
		return models.WalletConnection{}, err
	}
	account, err := p.adapter.Account(ctx, req.Network.ChainID, req.Account)
	if err != nil {
		return models.WalletConnection{}, &models.SessionInvalidError{WalletID: sessionID(p.id, req), Err: err}
	}
	return p.newWallet(req.Network, account, "")
}

func (p *ExtensionProvider) Simulate(ctx context.Context, req TxRequest) (models.SimulateResult, error) {
	if err := p.ready(); err != nil {
		return models.SimulateResult{}, err
	}
	return p.chain.simulate(ctx, req)
}

func (p *ExtensionProvider) Sign(ctx context.Context, req TxRequest) (models.SigningResult, error) {
	if err := p.ready(); err != nil {
		return models.SigningResult{}, err
	}
	return p.chain.sign(ctx, req, p.adapter.Sign)
}

func (p *ExtensionProvider) Broadcast(ctx context.Context, req TxRequest) (models.BroadcastResult, error) {
	if err := p.ready(); err != nil {
		return models.BroadcastResult{}, err
	}
	return p.chain.broadcast(ctx, req, p.adapter.Sign)
}

func (p *ExtensionProvider) SignArbitrary(ctx context.Context, wallet models.WalletConnection, data []byte) (ArbitrarySignature, error) {
	if err := p.ready(); err != nil {
		return ArbitrarySignature{}, err
	}
	return signArbitrary(ctx, wallet, data, p.adapter.SignArbitrary)
}

func (p *ExtensionProvider) VerifyArbitrary(_ context.Context, wallet models.WalletConnection, data []byte, sig ArbitrarySignature) (bool, error) {
	return VerifyArbitrary(wallet.Account.Address, data, sig)
}

func sessionID(providerID string, req SessionRequest) string {
	if req.Account != nil {
		return models.WalletID(providerID, req.Network.ChainID, req.Account.Address)
	}
	return providerID + "-" + req.Network.ChainID
}
