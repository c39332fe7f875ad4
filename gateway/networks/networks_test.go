package networks_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	. "github.com/Cogwheel-Validator/spectra-wallet/gateway/networks"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/assert"
)

func TestLoadFile(t *testing.T) {
	networks, err := LoadFile("testdata/networks.toml")
	require.NoError(t, err)
	require.Equal(t, 3, len(networks))

	pisco := networks[0]
	assert.Equal(t, pisco.ChainID, "pisco-1")
	assert.Equal(t, pisco.Bech32Prefix, "terra")
	assert.Equal(t, pisco.GasPrice, "0.015uluna")
	assert.Equal(t, pisco.GasAdjustment, 1.4)
	require.Equal(t, models.Currency{Denom: "LUNA", MinimalDenom: "uluna", Decimals: 6}, pisco.DefaultCurrency)

	pion := networks[1]
	assert.Equal(t, pion.ChainID, "pion-1")
	assert.Equal(t, pion.GasPrice, "0.025untrn")
	assert.Equal(t, pion.ChainFamily(), models.FamilyCosmos)

	assert.Equal(t, networks[2].ChainFamily(), models.FamilyInjective)
	assert.Equal(t, networks[2].DefaultCurrency.Decimals, int32(18))
}

func TestLoadFileJSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "networks.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"networks":[{"chain_id":"pion-1","rest":"https://rest","bech32_prefix":"neutron"}]}`), 0o600))

	networks, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, networks[0].ChainID, "pion-1")
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile("testdata/missing.toml")
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.toml")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o600))
	_, err = LoadFile(empty)
	assert.Error(t, err)
}

func TestCatalogue(t *testing.T) {
	networks, err := LoadFile("testdata/networks.toml")
	require.NoError(t, err)

	c, err := NewCatalogue(networks...)
	require.NoError(t, err)
	assert.Equal(t, len(c.Networks()), 3)

	n, err := c.Lookup("pion-1")
	assert.NoError(t, err)
	assert.Equal(t, n.Name, "Neutron Testnet")

	_, err = c.Lookup("osmosis-1")
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestCatalogueValidation(t *testing.T) {
	valid := models.Network{ChainID: "pion-1", REST: "https://rest", Bech32Prefix: "neutron"}

	tests := []struct {
		name     string
		networks []models.Network
	}{
		{name: "duplicate", networks: []models.Network{valid, valid}},
		{name: "no chain id", networks: []models.Network{{REST: "https://rest", Bech32Prefix: "neutron"}}},
		{name: "no rest", networks: []models.Network{{ChainID: "pion-1", Bech32Prefix: "neutron"}}},
		{name: "no prefix", networks: []models.Network{{ChainID: "pion-1", REST: "https://rest"}}},
		{name: "bad gas price", networks: []models.Network{{ChainID: "pion-1", REST: "https://rest", Bech32Prefix: "neutron", GasPrice: "cheap"}}},
		{name: "unknown family", networks: []models.Network{{ChainID: "pion-1", REST: "https://rest", Bech32Prefix: "neutron", Family: "evm"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalogue(tt.networks...)
			assert.True(t, errors.Is(err, models.ErrConfiguration))
		})
	}
}

func TestMerge(t *testing.T) {
	imported := []models.Network{
		{ChainID: "neutron-1", Name: "registry"},
		{ChainID: "osmosis-1", Name: "registry"},
	}
	declared := []models.Network{
		{ChainID: "osmosis-1", Name: "declared"},
		{ChainID: "pion-1", Name: "declared"},
	}

	merged := Merge(imported, declared)
	require.Equal(t, []models.Network{
		{ChainID: "neutron-1", Name: "registry"},
		{ChainID: "osmosis-1", Name: "declared"},
		{ChainID: "pion-1", Name: "declared"},
	}, merged)
}

func TestReadKeplrChains(t *testing.T) {
	chains, err := ReadKeplrChains("testdata/keplr", []string{"neutron-1"})
	require.NoError(t, err)
	require.Equal(t, 1, len(chains))
	assert.Equal(t, chains[0].ChainName, "Neutron")

	all, err := ReadKeplrChains("testdata/keplr", nil)
	require.NoError(t, err)
	assert.Equal(t, len(all), 3)
}

func TestFromKeplr(t *testing.T) {
	chains, err := ReadKeplrChains("testdata/keplr", []string{"neutron-1", "osmosis-1"})
	require.NoError(t, err)

	neutron, err := FromKeplr(chains[0])
	require.NoError(t, err)
	assert.Equal(t, neutron.ChainID, "neutron-1")
	assert.Equal(t, neutron.REST, "https://rest-kralum.neutron-1.neutron.org")
	assert.Equal(t, neutron.Bech32Prefix, "neutron")
	assert.Equal(t, neutron.GasPrice, "0.0053untrn")
	assert.Equal(t, neutron.DefaultCurrency.MinimalDenom, "untrn")

	osmosis, err := FromKeplr(chains[1])
	require.NoError(t, err)
	assert.Equal(t, osmosis.GasPrice, "0.025uosmo")
	assert.Equal(t, len(osmosis.FeeCurrencies), 1)
}

func TestImportKeplrSkipsBrokenChains(t *testing.T) {
	networks, err := ImportKeplr("testdata/keplr", nil)
	require.NoError(t, err)
	assert.Equal(t, len(networks), 2)
	assert.Equal(t, networks[0].ChainID, "neutron-1")
	assert.Equal(t, networks[1].ChainID, "osmosis-1")
}
