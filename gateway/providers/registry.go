package providers

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
)

// Registry maps provider ids to instances. It is built once at startup and never changes.
type Registry struct {
	ordered []Provider
	byID    map[string]Provider
}

// NewRegistry validates the providers: ids must be set, unique and of a known kind.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{byID: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			return nil, &models.ConfigurationError{Reason: "nil provider"}
		}
		if p.ID() == "" {
			return nil, &models.ConfigurationError{Reason: "provider without id"}
		}
		if !p.Kind().Valid() {
			return nil, &models.ConfigurationError{Reason: fmt.Sprintf("provider %s has unknown kind %q", p.ID(), p.Kind())}
		}
		if _, dup := r.byID[p.ID()]; dup {
			return nil, &models.ConfigurationError{Reason: fmt.Sprintf("duplicate provider id %s", p.ID())}
		}
		r.byID[p.ID()] = p
		r.ordered = append(r.ordered, p)
	}
	return r, nil
}

// Lookup returns the provider with the given id.
func (r *Registry) Lookup(id string) (Provider, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, &models.ConfigurationError{Reason: fmt.Sprintf("unknown provider %q", id)}
	}
	return p, nil
}

// Providers returns all providers in registration order.
func (r *Registry) Providers() []Provider {
	return append([]Provider(nil), r.ordered...)
}
