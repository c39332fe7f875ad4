package providers

import (
	"context"
	"fmt"
	"slices"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
)

// Identity of the iframe provider.
const (
	IframeProviderID   = "cosmiframe"
	IframeProviderName = "Cosmiframe"
)

// FrameAdapter is an extension bridge reached through the parent window of an iframe.
type FrameAdapter interface {
	ExtensionAdapter
	// ParentOrigin is the origin of the window embedding the app.
	ParentOrigin() string
}

// IframeProvider signs through the parent window when the app runs embedded.
// It only initializes if the parent origin is allowed and it has no out-of-band updates.
type IframeProvider struct {
	*ExtensionProvider
	frame FrameAdapter
}

var _ Provider = (*IframeProvider)(nil)

// NewIframeProvider creates the cosmiframe provider.
func NewIframeProvider(adapter FrameAdapter, chain Chain) *IframeProvider {
	ext := NewExtensionProvider(IframeProviderID, IframeProviderName, adapter, chain)
	ext.kind = KindIframe
	return &IframeProvider{ExtensionProvider: ext, frame: adapter}
}

// NewRemoteIframeProvider creates the cosmiframe provider for a caller-side parent window.
// The first allowed origin is the one the embedding app reports.
func NewRemoteIframeProvider(allowedOrigins []string, chain Chain) (*IframeProvider, error) {
	if len(allowedOrigins) == 0 {
		return nil, &models.ConfigurationError{Reason: "iframe provider needs at least one allowed parent origin"}
	}
	return NewIframeProvider(NewRemoteAdapter(allowedOrigins[0]), chain), nil
}

func (p *IframeProvider) Init(ctx context.Context, cfg InitConfig) error {
	return p.runInit(func() error {
		origin := p.frame.ParentOrigin()
		if !slices.Contains(cfg.AllowedParentOrigins, origin) {
			return &models.ConfigurationError{
				Reason: fmt.Sprintf("parent origin %q is not allowed", origin),
			}
		}
		if err := p.frame.Init(ctx, cfg); err != nil {
			return fmt.Errorf("failed to reach iframe parent: %w", err)
		}
		return nil
	})
}

// SetOnUpdateCallback is a no-op, the parent window does not report account switches.
func (p *IframeProvider) SetOnUpdateCallback(func()) {}
