// Package providertest has scriptable wallet bridges and account helpers for tests.
package providertest

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/providers"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is a generated secp256k1 account.
type Account struct {
	Key     *btcec.PrivateKey
	Account models.WalletAccount
}

// NewAccount generates a key and its bech32 address with the given prefix.
func NewAccount(prefix string) (Account, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return Account{}, err
	}
	pub := key.PubKey().SerializeCompressed()
	addr, err := providers.DeriveAddress(prefix, pub, models.AlgoSecp256k1)
	if err != nil {
		return Account{}, err
	}
	return Account{
		Key:     key,
		Account: models.WalletAccount{Address: addr, PubKey: pub, Algo: models.AlgoSecp256k1},
	}, nil
}

// SignArbitrary produces the 64 byte ADR-036 signature a wallet would return.
func (a Account) SignArbitrary(data []byte) ([]byte, error) {
	hash := sha256.Sum256(providers.ArbitrarySignDoc(a.Account.Address, data))
	key, err := crypto.ToECDSA(a.Key.Serialize())
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(hash[:], key)
	if err != nil {
		return nil, err
	}
	// drop the recovery byte
	return sig[:64], nil
}

// MockAdapter is an ExtensionAdapter driven by func fields. Nil funcs succeed.
type MockAdapter struct {
	InitFn          func(ctx context.Context, cfg providers.InitConfig) error
	EnableFn        func(ctx context.Context, chainID string) error
	AccountFn       func(ctx context.Context, chainID string, hint *models.WalletAccount) (models.WalletAccount, error)
	SignFn          func(ctx context.Context, payload providers.SignPayload) ([]byte, error)
	SignArbitraryFn func(ctx context.Context, chainID, signer string, data []byte) ([]byte, error)
	DisconnectFn    func(ctx context.Context, chainID string) error
	Origin          string

	mu       sync.Mutex
	onChange func()
	signed   []providers.SignPayload
}

var _ providers.FrameAdapter = (*MockAdapter)(nil)

func (m *MockAdapter) Init(ctx context.Context, cfg providers.InitConfig) error {
	if m.InitFn == nil {
		return nil
	}
	return m.InitFn(ctx, cfg)
}

func (m *MockAdapter) Enable(ctx context.Context, chainID string) error {
	if m.EnableFn == nil {
		return nil
	}
	return m.EnableFn(ctx, chainID)
}

func (m *MockAdapter) Account(ctx context.Context, chainID string, hint *models.WalletAccount) (models.WalletAccount, error) {
	if m.AccountFn == nil {
		if hint != nil {
			return *hint, nil
		}
		return models.WalletAccount{}, nil
	}
	return m.AccountFn(ctx, chainID, hint)
}

func (m *MockAdapter) Sign(ctx context.Context, payload providers.SignPayload) ([]byte, error) {
	m.mu.Lock()
	m.signed = append(m.signed, payload)
	m.mu.Unlock()
	if m.SignFn == nil {
		return []byte("signature"), nil
	}
	return m.SignFn(ctx, payload)
}

func (m *MockAdapter) SignArbitrary(ctx context.Context, chainID, signer string, data []byte) ([]byte, error) {
	if m.SignArbitraryFn == nil {
		return nil, nil
	}
	return m.SignArbitraryFn(ctx, chainID, signer, data)
}

func (m *MockAdapter) Disconnect(ctx context.Context, chainID string) error {
	if m.DisconnectFn == nil {
		return nil
	}
	return m.DisconnectFn(ctx, chainID)
}

func (m *MockAdapter) OnAccountChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *MockAdapter) ParentOrigin() string { return m.Origin }

// SwitchAccount simulates the user switching accounts in the extension.
func (m *MockAdapter) SwitchAccount() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Signed returns the payloads passed to Sign.
func (m *MockAdapter) Signed() []providers.SignPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]providers.SignPayload(nil), m.signed...)
}

// MockTransport is a MobileTransport driven by func fields. Nil funcs succeed.
type MockTransport struct {
	InitFn          func(ctx context.Context, projectID string) error
	PairFn          func(ctx context.Context, chainID string) (providers.Pairing, error)
	AccountFn       func(ctx context.Context, session, chainID string) (models.WalletAccount, error)
	SignFn          func(ctx context.Context, session string, payload providers.SignPayload) ([]byte, error)
	SignArbitraryFn func(ctx context.Context, session, chainID, signer string, data []byte) ([]byte, error)
	DisconnectFn    func(ctx context.Context, session string) error

	mu       sync.Mutex
	onUpdate func()
}

var _ providers.MobileTransport = (*MockTransport)(nil)

func (m *MockTransport) Init(ctx context.Context, projectID string) error {
	if m.InitFn == nil {
		return nil
	}
	return m.InitFn(ctx, projectID)
}

func (m *MockTransport) Pair(ctx context.Context, chainID string) (providers.Pairing, error) {
	if m.PairFn == nil {
		return providers.Pairing{
			URI:     "wc:topic@2?relay-protocol=irn&symKey=key",
			Approve: func(context.Context) (string, error) { return "session", nil },
		}, nil
	}
	return m.PairFn(ctx, chainID)
}

func (m *MockTransport) Account(ctx context.Context, session, chainID string) (models.WalletAccount, error) {
	if m.AccountFn == nil {
		return models.WalletAccount{}, nil
	}
	return m.AccountFn(ctx, session, chainID)
}

func (m *MockTransport) Sign(ctx context.Context, session string, payload providers.SignPayload) ([]byte, error) {
	if m.SignFn == nil {
		return []byte("signature"), nil
	}
	return m.SignFn(ctx, session, payload)
}

func (m *MockTransport) SignArbitrary(ctx context.Context, session, chainID, signer string, data []byte) ([]byte, error) {
	if m.SignArbitraryFn == nil {
		return nil, nil
	}
	return m.SignArbitraryFn(ctx, session, chainID, signer, data)
}

func (m *MockTransport) Disconnect(ctx context.Context, session string) error {
	if m.DisconnectFn == nil {
		return nil
	}
	return m.DisconnectFn(ctx, session)
}

func (m *MockTransport) OnSessionUpdate(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// UpdateSession simulates a session change reported by the app.
func (m *MockTransport) UpdateSession() {
	m.mu.Lock()
	fn := m.onUpdate
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}
