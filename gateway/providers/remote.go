package providers

import (
	"context"
	"errors"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
)

// ErrRemoteSigner is returned when a remote wallet is asked to sign in process.
// Remote callers sign the prepared payload themselves and submit the signature.
var ErrRemoteSigner = errors.New("wallet signs remotely, use prepare and finish")

var errNoAccount = errors.New("remote wallet must supply its account")

// RemoteAdapter stands for an extension running in the caller's browser.
// The caller reports its account on connect and signs prepared payloads on its side.
type RemoteAdapter struct {
	origin string
}

var _ FrameAdapter = (*RemoteAdapter)(nil)

// NewRemoteAdapter creates an adapter. origin is reported as the iframe parent origin.
func NewRemoteAdapter(origin string) *RemoteAdapter {
	return &RemoteAdapter{origin: origin}
}

func (a *RemoteAdapter) Init(context.Context, InitConfig) error { return nil }
func (a *RemoteAdapter) Enable(context.Context, string) error { return nil }
func (a *RemoteAdapter) Disconnect(context.Context, string) error { return nil }
func (a *RemoteAdapter) OnAccountChange(func()) {}
func (a *RemoteAdapter) ParentOrigin() string { return a.origin }

func (a *RemoteAdapter) Account(_ context.Context, _ string, hint *models.WalletAccount) (models.WalletAccount, error) {
	if hint == nil || hint.Address == "" || len(hint.PubKey) == 0 {
		return models.WalletAccount{}, errNoAccount
	}
	return *hint, nil
}

func (a *RemoteAdapter) Sign(context.Context, SignPayload) ([]byte, error) {
	return nil, ErrRemoteSigner
}

func (a *RemoteAdapter) SignArbitrary(context.Context, string, string, []byte) ([]byte, error) {
	return nil, ErrRemoteSigner
}
