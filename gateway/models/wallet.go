package models

// Key algorithms reported by wallets for an account.
const (
	AlgoSecp256k1    = "secp256k1"
	AlgoEthSecp256k1 = "ethsecp256k1"
)

// WalletAccount is the account half of a session.
type WalletAccount struct {
	Address  string `json:"address"`
	PubKey   []byte `json:"pub_key"` // compressed secp256k1 public key
	Algo     string `json:"algo"`
	IsLedger bool   `json:"is_ledger,omitempty"`
}

// WalletConnection is one established session between a provider, a chain and an account.
// Connections are replaced, never edited in place.
type WalletConnection struct {
	ID            string        `json:"id"`
	ProviderID    string        `json:"provider_id"`
	ProviderName  string        `json:"provider_name"`
	Network       Network       `json:"network"`
	Account       WalletAccount `json:"account"`
	MobileSession string        `json:"mobile_session,omitempty"` // opaque provider token
}

// WalletID derives the identity of a connection from its provider, chain and address.
func WalletID(providerID, chainID, address string) string {
	return providerID + "-" + chainID + "-" + address
}

// NewWalletConnection builds a connection with its identity filled in.
func NewWalletConnection(providerID, providerName string, network Network, account WalletAccount, mobileSession string) WalletConnection {
	return WalletConnection{
		ID:            WalletID(providerID, network.ChainID, account.Address),
		ProviderID:    providerID,
		ProviderName:  providerName,
		Network:       network,
		Account:       account,
		MobileSession: mobileSession,
	}
}

// Key returns the identity key derived from the provider, chain and address.
// It ignores ID, so a decoded snapshot carrying a stale or foreign ID still
// maps onto the connection it describes.
func (w WalletConnection) Key() string {
	return WalletID(w.ProviderID, w.Network.ChainID, w.Account.Address)
}

// WalletFilter selects connections by provider and chain. Empty fields match everything.
type WalletFilter struct {
	ProviderID string `json:"provider_id,omitempty"`
	ChainID    string `json:"chain_id,omitempty"`
}

// Match reports whether the connection satisfies every set field of the filter.
func (f WalletFilter) Match(w WalletConnection) bool {
	if f.ProviderID != "" && f.ProviderID != w.ProviderID {
		return false
	}
	if f.ChainID != "" && f.ChainID != w.Network.ChainID {
		return false
	}
	return true
}
