package models

import "strings"

// Currency describes a coin as the wallet displays it and as the chain stores it.
type Currency struct {
	Denom        string `json:"denom" toml:"denom"`                 // e.g., "NTRN"
	MinimalDenom string `json:"minimal_denom" toml:"minimal_denom"` // e.g., "untrn"
	Decimals     int32  `json:"decimals" toml:"decimals"`           // e.g., 6
}

// Network is the static descriptor of a chain the gateway can talk to.
// It is supplied by the host at configuration time and never mutated afterwards.
type Network struct {
	Name            string     `json:"name" toml:"name"`
	ChainID         string     `json:"chain_id" toml:"chain_id"`
	RPC             string     `json:"rpc" toml:"rpc"`
	REST            string     `json:"rest" toml:"rest"`
	Bech32Prefix    string     `json:"bech32_prefix" toml:"bech32_prefix"`
	DefaultCurrency Currency   `json:"default_currency" toml:"default_currency"`
	FeeCurrencies   []Currency `json:"fee_currencies,omitempty" toml:"fee_currencies"`
	GasPrice        string     `json:"gas_price,omitempty" toml:"gas_price"`           // e.g., "0.025untrn"
	GasAdjustment   float64    `json:"gas_adjustment,omitempty" toml:"gas_adjustment"` // multiplier applied to simulated gas
	Family          string     `json:"family,omitempty" toml:"family"`                 // "cosmos" or "injective", empty means infer from chain id
	EthereumChainID int64      `json:"ethereum_chain_id,omitempty" toml:"ethereum_chain_id"`
}

// Chain families understood by the signing layer.
const (
	FamilyCosmos    = "cosmos"
	FamilyInjective = "injective"
)

// ChainFamily returns the signing family for the network.
// An explicit Family wins, otherwise injective-* chain ids map to the EIP-712 family.
func (n Network) ChainFamily() string {
	if n.Family != "" {
		return n.Family
	}
	if strings.HasPrefix(n.ChainID, "injective-") {
		return FamilyInjective
	}
	return FamilyCosmos
}

// FeeCurrency returns the first configured fee currency or the default currency.
func (n Network) FeeCurrency() Currency {
	if len(n.FeeCurrencies) > 0 {
		return n.FeeCurrencies[0]
	}
	return n.DefaultCurrency
}
