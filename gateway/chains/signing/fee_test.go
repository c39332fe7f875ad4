package signing_test

import (
	"errors"
	"testing"

	. "github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/signing"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/assert"
)

var pion = models.Network{
	ChainID:         "pion-1",
	DefaultCurrency: models.Currency{Denom: "NTRN", MinimalDenom: "untrn", Decimals: 6},
	GasPrice:        "0.025untrn",
}

func TestComputeFeeFromNetworkDefaults(t *testing.T) {
	fee, err := ComputeFee(pion, models.FeeOptions{})
	assert.NoError(t, err)
	require.Equal(t, fee.Amount, []models.Coin{{Denom: "untrn", Amount: "25000"}})
	assert.Equal(t, fee.Gas, "25000")
}

func TestComputeFeeRules(t *testing.T) {
	explicit := &models.Fee{Amount: []models.Coin{{Denom: "untrn", Amount: "1"}}, Gas: "2"}
	withFeeCurrency := pion
	withFeeCurrency.FeeCurrencies = []models.Currency{{Denom: "ATOM", MinimalDenom: "ibc/atom", Decimals: 6}}

	tests := []struct {
		name    string
		network models.Network
		opts    models.FeeOptions
		want    models.Fee
	}{
		{
			name:    "explicit fee wins",
			network: pion,
			opts:    models.FeeOptions{Fee: explicit, FeeAmount: "999", GasLimit: "5"},
			want:    *explicit,
		},
		{
			name:    "fee amount replaces computed amount",
			network: pion,
			opts:    models.FeeOptions{FeeAmount: "5000"},
			want:    models.Fee{Amount: []models.Coin{{Denom: "untrn", Amount: "5000"}}, Gas: "25000"},
		},
		{
			name:    "auto keeps computed amount",
			network: pion,
			opts:    models.FeeOptions{FeeAmount: "auto"},
			want:    models.Fee{Amount: []models.Coin{{Denom: "untrn", Amount: "25000"}}, Gas: "25000"},
		},
		{
			name:    "gas limit replaces gas",
			network: pion,
			opts:    models.FeeOptions{GasLimit: "300000"},
			want:    models.Fee{Amount: []models.Coin{{Denom: "untrn", Amount: "25000"}}, Gas: "300000"},
		},
		{
			name:    "gas price override",
			network: pion,
			opts:    models.FeeOptions{GasPrice: "0.1untrn"},
			want:    models.Fee{Amount: []models.Coin{{Denom: "untrn", Amount: "100000"}}, Gas: "100000"},
		},
		{
			name:    "first fee currency beats default currency",
			network: withFeeCurrency,
			want:    models.Fee{Amount: []models.Coin{{Denom: "ibc/atom", Amount: "25000"}}, Gas: "25000"},
		},
		{
			name:    "fee currency override",
			network: withFeeCurrency,
			opts:    models.FeeOptions{FeeCurrencyDenom: "untrn"},
			want:    models.Fee{Amount: []models.Coin{{Denom: "untrn", Amount: "25000"}}, Gas: "25000"},
		},
		{
			name:    "global fallbacks",
			network: models.Network{ChainID: "cosmoshub-4"},
			want:    models.Fee{Amount: []models.Coin{{Denom: "uatom", Amount: "25000"}}, Gas: "25000"},
		},
		{
			name:    "fractional result rounds up",
			network: models.Network{ChainID: "x", GasPrice: "0.0000001ux", DefaultCurrency: models.Currency{MinimalDenom: "ux", Decimals: 6}},
			want:    models.Fee{Amount: []models.Coin{{Denom: "ux", Amount: "1"}}, Gas: "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, err := ComputeFee(tt.network, tt.opts)
			assert.NoError(t, err)
			require.Equal(t, fee, tt.want)
		})
	}
}

func TestComputeFeeErrors(t *testing.T) {
	_, err := ComputeFee(pion, models.FeeOptions{GasPrice: "abc"})
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	_, err = ComputeFee(pion, models.FeeOptions{FeeCurrencyDenom: "uatom"})
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestParseGasPrice(t *testing.T) {
	gp, err := ParseGasPrice("0.015uluna")
	assert.NoError(t, err)
	assert.Equal(t, gp.Amount.String(), "0.015")
	assert.Equal(t, gp.Denom, "uluna")

	gp, err = ParseGasPrice("160000000inj")
	assert.NoError(t, err)
	assert.Equal(t, gp.Amount.String(), "160000000")

	_, err = ParseGasPrice("untrn")
	assert.Error(t, err)
}

func TestSimulatedFee(t *testing.T) {
	fee, err := SimulatedFee(pion, models.FeeOptions{}, 100000)
	assert.NoError(t, err)
	assert.Equal(t, fee.Gas, "130000")
	require.Equal(t, fee.Amount, []models.Coin{{Denom: "untrn", Amount: "3250"}})
}

func TestUnsignedDocEnvelope(t *testing.T) {
	doc := UnsignedDoc{ChainID: "injective-888", AccountNumber: "12", Sequence: "3", Memo: "m"}
	env, err := doc.Envelope()
	assert.NoError(t, err)
	// missing timeout height reads as zero
	assert.Equal(t, env.TimeoutHeight, uint64(0))
	assert.Equal(t, env.Sequence, uint64(3))

	doc.TimeoutHeight = "x"
	_, err = doc.Envelope()
	assert.Error(t, err)
}

func TestClientsForNetwork(t *testing.T) {
	clients := NewClients()
	_, err := clients.ForNetwork(pion)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}
