package signing

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
)

// Clients resolves the signing client of a network by its chain family.
type Clients struct {
	byFamily map[string]Client
}

// NewClients registers the given clients. A later client replaces an earlier one of the same family.
func NewClients(clients ...Client) *Clients {
	byFamily := make(map[string]Client, len(clients))
	for _, c := range clients {
		byFamily[c.Family()] = c
	}
	return &Clients{byFamily: byFamily}
}

// ForNetwork returns the client for the network's family.
func (c *Clients) ForNetwork(network models.Network) (Client, error) {
	client, ok := c.byFamily[network.ChainFamily()]
	if !ok {
		return nil, &models.ConfigurationError{
			Reason: fmt.Sprintf("no signing client for chain family %q (chain %s)", network.ChainFamily(), network.ChainID),
		}
	}
	return client, nil
}
