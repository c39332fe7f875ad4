package rpc

import (
	"encoding/json"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/signing"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/dispatch"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/providers"
)

// Request and response bodies of the GatewayService. On the wire they are
// google.protobuf.Struct messages with the JSON field names below; byte
// fields are base64 strings.

type ConnectRequest struct {
	ProviderID string                `json:"provider_id"`
	ChainID    string                `json:"chain_id"`
	Account    *models.WalletAccount `json:"account,omitempty"`
}

type DisconnectRequest struct {
	// WalletID removes one wallet. Otherwise every wallet matched by the filter is removed.
	WalletID   string `json:"wallet_id,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
	ChainID    string `json:"chain_id,omitempty"`
}

type WalletsResponse struct {
	Wallets []models.WalletConnection `json:"wallets"`
}

type ListWalletsRequest struct {
	ProviderID string `json:"provider_id,omitempty"`
	ChainID    string `json:"chain_id,omitempty"`
}

type Empty struct{}

type WalletResponse struct {
	Wallet models.WalletConnection `json:"wallet"`
}

// TxRequest identifies a transaction. An empty WalletID means the recent wallet.
type TxRequest struct {
	WalletID     string            `json:"wallet_id,omitempty"`
	Messages     json.RawMessage   `json:"messages"`
	FeeOptions   models.FeeOptions `json:"fee_options"`
	Memo         string            `json:"memo,omitempty"`
	// RESTOverride picks another catalogued REST endpoint for the chain queries.
	RESTOverride string `json:"rest_override,omitempty"`
}

type SignResponse struct {
	SignBytes []byte              `json:"sign_bytes"`
	TypedData json.RawMessage     `json:"typed_data,omitempty"`
	Doc       signing.UnsignedDoc `json:"doc"`
}

type FinishSignRequest struct {
	WalletID  string              `json:"wallet_id,omitempty"`
	Messages  json.RawMessage     `json:"messages"`
	Doc       signing.UnsignedDoc `json:"doc"`
	Signature []byte              `json:"signature"`
}

type BroadcastRequest struct {
	ChainID      string `json:"chain_id"`
	TxBytes      []byte `json:"tx_bytes"`
	RESTOverride string `json:"rest_override,omitempty"`
}

// VerifyArbitraryRequest checks a signature against a connected wallet, or against Signer when no wallet is given.
type VerifyArbitraryRequest struct {
	WalletID  string                       `json:"wallet_id,omitempty"`
	Signer    string                       `json:"signer,omitempty"`
	Data      []byte                       `json:"data"`
	Signature providers.ArbitrarySignature `json:"signature"`
}

type VerifyArbitraryResponse struct {
	Valid bool `json:"valid"`
}

type ProvidersResponse struct {
	Providers []dispatch.ProviderInfo `json:"providers"`
}

type ProviderStatusRequest struct {
	ProviderID string `json:"provider_id"`
}
