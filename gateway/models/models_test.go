package models_test

import (
	"errors"
	"fmt"
	"testing"

	. "github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/assert"
)

func TestWalletID(t *testing.T) {
	network := Network{ChainID: "pion-1"}
	w := NewWalletConnection("keplr", "Keplr", network, WalletAccount{Address: "neutron1abc"}, "")
	assert.Equal(t, w.ID, "keplr-pion-1-neutron1abc")
	assert.Equal(t, w.Key(), w.ID)

	w.ID = ""
	assert.Equal(t, w.Key(), "keplr-pion-1-neutron1abc")

	w.ID = "persisted-by-an-older-gateway"
	assert.Equal(t, w.Key(), "keplr-pion-1-neutron1abc")
}

func TestWalletFilter(t *testing.T) {
	w := WalletConnection{ProviderID: "leap", Network: Network{ChainID: "pisco-1"}}

	tests := []struct {
		name   string
		filter WalletFilter
		want   bool
	}{
		{"empty filter matches", WalletFilter{}, true},
		{"provider match", WalletFilter{ProviderID: "leap"}, true},
		{"chain match", WalletFilter{ChainID: "pisco-1"}, true},
		{"both match", WalletFilter{ProviderID: "leap", ChainID: "pisco-1"}, true},
		{"provider mismatch", WalletFilter{ProviderID: "keplr", ChainID: "pisco-1"}, false},
		{"chain mismatch", WalletFilter{ProviderID: "leap", ChainID: "pion-1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.filter.Match(w), tt.want)
		})
	}
}

func TestChainFamily(t *testing.T) {
	assert.Equal(t, Network{ChainID: "injective-1"}.ChainFamily(), FamilyInjective)
	assert.Equal(t, Network{ChainID: "pion-1"}.ChainFamily(), FamilyCosmos)
	assert.Equal(t, Network{ChainID: "evmos_9001-2", Family: FamilyInjective}.ChainFamily(), FamilyInjective)
}

func TestFeeCurrency(t *testing.T) {
	def := Currency{Denom: "NTRN", MinimalDenom: "untrn", Decimals: 6}
	n := Network{DefaultCurrency: def}
	require.Equal(t, n.FeeCurrency(), def)

	fee := Currency{Denom: "ATOM", MinimalDenom: "ibc/atom", Decimals: 6}
	n.FeeCurrencies = []Currency{fee, def}
	require.Equal(t, n.FeeCurrency(), fee)
}

func TestTypedErrors(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"configuration", &ConfigurationError{Reason: "unknown network"}, ErrConfiguration},
		{"provider not ready", &ProviderNotReadyError{ProviderID: "keplr", Status: "initializing"}, ErrProviderNotReady},
		{"no wallet", &NoWalletError{Operation: "sign"}, ErrNoWallet},
		{"invalid message", &InvalidMessageError{Reason: "missing timeout"}, ErrInvalidMessage},
		{"account fetch", &AccountFetchError{Address: "inj1", Err: cause}, ErrAccountFetch},
		{"block fetch", &BlockFetchError{URL: "http://x", Err: cause}, ErrBlockFetch},
		{"persistence", &PersistenceError{Key: "shuttle", Op: "write", Err: cause}, ErrPersistence},
		{"session invalid", &SessionInvalidError{WalletID: "a", Err: cause}, ErrSessionInvalid},
		{"invalid address", &InvalidAddressError{Address: "neutron1a", Reason: "public key derives neutron1b"}, ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("failed to do thing: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
			assert.True(t, tt.err.Error() != "")
		})
	}

	var accErr *AccountFetchError
	err := fmt.Errorf("prepare: %w", &AccountFetchError{Address: "inj1", Err: cause})
	assert.True(t, errors.As(err, &accErr))
	assert.Equal(t, accErr.Address, "inj1")
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrBlockFetch))
}
