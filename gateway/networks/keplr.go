package networks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/hashicorp/go-getter"
	"github.com/shopspring/decimal"
)

// KeplrRegistrySource is the go-getter address of the Keplr chain registry.
const KeplrRegistrySource = "github.com/chainapsis/keplr-chain-registry//cosmos"

// KeplrChain is the part of a Keplr chain-info file the gateway reads.
type KeplrChain struct {
	RPC           string            `json:"rpc"`
	Rest          string            `json:"rest"`
	ChainID       string            `json:"chainId"`
	ChainName     string            `json:"chainName"`
	Bech32Config  KeplrBech32Config `json:"bech32Config"`
	Currencies    []KeplrCurrency   `json:"currencies"`
	FeeCurrencies []KeplrCurrency   `json:"feeCurrencies"`
	StakeCurrency *KeplrCurrency    `json:"stakeCurrency,omitempty"`
	Features      []string          `json:"features"`
}

// KeplrBech32Config holds the account address prefix.
type KeplrBech32Config struct {
	Bech32PrefixAccAddr string `json:"bech32PrefixAccAddr"`
}

// KeplrCurrency is a Keplr currency entry. GasPriceStep is only set on fee currencies.
type KeplrCurrency struct {
	CoinDenom        string             `json:"coinDenom"`
	CoinMinimalDenom string             `json:"coinMinimalDenom"`
	CoinDecimals     int32              `json:"coinDecimals"`
	GasPriceStep     *KeplrGasPriceStep `json:"gasPriceStep,omitempty"`
}

// KeplrGasPriceStep holds the suggested gas prices of a fee currency.
type KeplrGasPriceStep struct {
	Low     float64 `json:"low"`
	Average float64 `json:"average"`
	High    float64 `json:"high"`
}

func (c KeplrCurrency) currency() models.Currency {
	return models.Currency{Denom: c.CoinDenom, MinimalDenom: c.CoinMinimalDenom, Decimals: c.CoinDecimals}
}

/*
DownloadKeplrRegistry fetches the Keplr chain registry into dst.

Params:
- ctx: bounds the download, a deadline of two minutes is applied when ctx has none
- dst: the directory to download into

Returns:
- error: if the registry cannot be downloaded
*/
func DownloadKeplrRegistry(ctx context.Context, dst string) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 120*time.Second)
		defer cancel()
	}

	client := getter.Client{
		Ctx:  ctx,
		Src:  KeplrRegistrySource,
		Dst:  dst,
		Mode: getter.ClientModeDir,
		Detectors: []getter.Detector{
			&getter.GitHubDetector{},
		},
		Getters: map[string]getter.Getter{
			"git": &getter.GitGetter{},
		},
	}
	log.Info().Str("source", KeplrRegistrySource).Str("dst", dst).Msg("downloading keplr registry")
	if err := client.Get(); err != nil {
		return fmt.Errorf("failed to download keplr registry: %w", err)
	}
	return nil
}

// ReadKeplrChains reads every chain-info file in dir whose chain id is listed.
// An empty list reads them all.
func ReadKeplrChains(dir string, chainIDs []string) ([]KeplrChain, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list registry files: %w", err)
	}
	slices.Sort(paths)

	var chains []KeplrChain
	for _, p := range paths {
		body, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		var chain KeplrChain
		if err := json.Unmarshal(body, &chain); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(p), err)
		}
		if len(chainIDs) > 0 && !slices.Contains(chainIDs, chain.ChainID) {
			continue
		}
		chains = append(chains, chain)
	}
	return chains, nil
}

// FromKeplr converts a Keplr chain into a network. The gas price is the average
// step of the first fee currency that has one.
func FromKeplr(k KeplrChain) (models.Network, error) {
	if k.ChainID == "" {
		return models.Network{}, fmt.Errorf("keplr chain %q has no chain id", k.ChainName)
	}
	n := models.Network{
		Name:         k.ChainName,
		ChainID:      k.ChainID,
		RPC:          strings.TrimSuffix(k.RPC, "/"),
		REST:         strings.TrimSuffix(k.Rest, "/"),
		Bech32Prefix: k.Bech32Config.Bech32PrefixAccAddr,
	}

	switch {
	case k.StakeCurrency != nil:
		n.DefaultCurrency = k.StakeCurrency.currency()
	case len(k.Currencies) > 0:
		n.DefaultCurrency = k.Currencies[0].currency()
	case len(k.FeeCurrencies) > 0:
		n.DefaultCurrency = k.FeeCurrencies[0].currency()
	}

	for _, fc := range k.FeeCurrencies {
		n.FeeCurrencies = append(n.FeeCurrencies, fc.currency())
		if n.GasPrice == "" && fc.GasPriceStep != nil && fc.GasPriceStep.Average > 0 {
			n.GasPrice = decimal.NewFromFloat(fc.GasPriceStep.Average).String() + fc.CoinMinimalDenom
		}
	}
	return n, Validate(n)
}

// ImportKeplr reads and converts the listed chains. Chains that do not convert are skipped with a warning.
func ImportKeplr(dir string, chainIDs []string) ([]models.Network, error) {
	chains, err := ReadKeplrChains(dir, chainIDs)
	if err != nil {
		return nil, err
	}
	networks := make([]models.Network, 0, len(chains))
	for _, c := range chains {
		n, err := FromKeplr(c)
		if err != nil {
			log.Warn().Err(err).Str("chain", c.ChainID).Msg("skipping keplr chain")
			continue
		}
		networks = append(networks, n)
	}
	return networks, nil
}
