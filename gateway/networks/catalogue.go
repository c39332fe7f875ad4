// Package networks loads the chains the gateway can serve.
package networks

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/signing"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "networks").Logger()
}

// File is the layout of a networks file.
type File struct {
	Networks []models.Network `json:"networks" toml:"networks"`
}

// Catalogue is an immutable set of networks indexed by chain id.
type Catalogue struct {
	ordered   []models.Network
	byChainID map[string]models.Network
}

// NewCatalogue validates the networks and indexes them.
func NewCatalogue(networks ...models.Network) (*Catalogue, error) {
	c := &Catalogue{byChainID: make(map[string]models.Network, len(networks))}
	for _, n := range networks {
		if err := Validate(n); err != nil {
			return nil, err
		}
		if _, dup := c.byChainID[n.ChainID]; dup {
			return nil, &models.ConfigurationError{Reason: fmt.Sprintf("duplicate network %s", n.ChainID)}
		}
		c.byChainID[n.ChainID] = n
		c.ordered = append(c.ordered, n)
	}
	return c, nil
}

// Validate checks the fields the signing layer depends on.
func Validate(n models.Network) error {
	if n.ChainID == "" {
		return &models.ConfigurationError{Reason: fmt.Sprintf("network %q has no chain id", n.Name)}
	}
	if n.REST == "" {
		return &models.ConfigurationError{Reason: fmt.Sprintf("network %s has no rest endpoint", n.ChainID)}
	}
	if n.Bech32Prefix == "" {
		return &models.ConfigurationError{Reason: fmt.Sprintf("network %s has no bech32 prefix", n.ChainID)}
	}
	if n.GasPrice != "" {
		if _, err := signing.ParseGasPrice(n.GasPrice); err != nil {
			return &models.ConfigurationError{Reason: fmt.Sprintf("network %s", n.ChainID), Err: err}
		}
	}
	switch n.Family {
	case "", models.FamilyCosmos, models.FamilyInjective:
	default:
		return &models.ConfigurationError{Reason: fmt.Sprintf("network %s has unknown family %q", n.ChainID, n.Family)}
	}
	return nil
}

// Lookup returns the network with the chain id.
func (c *Catalogue) Lookup(chainID string) (models.Network, error) {
	n, ok := c.byChainID[chainID]
	if !ok {
		return models.Network{}, &models.ConfigurationError{Reason: fmt.Sprintf("unknown network %q", chainID)}
	}
	return n, nil
}

// Networks returns the networks in declaration order.
func (c *Catalogue) Networks() []models.Network {
	return append([]models.Network(nil), c.ordered...)
}

// LoadFile reads a networks file. Files ending in .json are read as JSON, anything else as TOML.
func LoadFile(filePath string) ([]models.Network, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read networks file: %w", err)
	}

	var file File
	if strings.HasSuffix(filePath, ".json") {
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse JSON networks: %w", err)
		}
	} else {
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse TOML networks: %w", err)
		}
	}
	if len(file.Networks) == 0 {
		return nil, fmt.Errorf("no networks in %s", filePath)
	}
	return file.Networks, nil
}

// Merge overlays declared networks on imported ones. A declared network replaces
// an imported one with the same chain id; order is imported first, then the new ones.
func Merge(imported, declared []models.Network) []models.Network {
	byID := make(map[string]int, len(imported))
	out := make([]models.Network, 0, len(imported)+len(declared))
	for _, n := range imported {
		byID[n.ChainID] = len(out)
		out = append(out, n)
	}
	for _, n := range declared {
		if i, ok := byID[n.ChainID]; ok {
			log.Debug().Str("chain", n.ChainID).Msg("declared network overrides registry entry")
			out[i] = n
			continue
		}
		byID[n.ChainID] = len(out)
		out = append(out, n)
	}
	return out
}
