package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
)

// DefaultKey is the key the wallet snapshot is stored under unless configured otherwise.
const DefaultKey = "shuttle"

// Persister reads and writes the wallet snapshot: a JSON array of connections under one key.
type Persister struct {
	store KeyValueStore
	key   string
	mu    sync.Mutex
}

// NewPersister creates a persister. An empty key means DefaultKey.
func NewPersister(store KeyValueStore, key string) *Persister {
	if key == "" {
		key = DefaultKey
	}
	return &Persister{store: store, key: key}
}

// Key returns the storage key.
func (p *Persister) Key() string { return p.key }

/*
Load reads the snapshot.

A key that was never written yields an empty snapshot. A value that does not
decode also yields an empty snapshot, together with a PersistenceError the
caller may log.

Returns:
- []models.WalletConnection: the persisted connections, possibly empty
- error: a *models.PersistenceError on read or decode failure
*/
func (p *Persister) Load(ctx context.Context) ([]models.WalletConnection, error) {
	raw, ok, err := p.store.Get(ctx, p.key)
	if err != nil {
		return nil, &models.PersistenceError{Key: p.key, Op: "read", Err: err}
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var wallets []models.WalletConnection
	if err := json.Unmarshal([]byte(raw), &wallets); err != nil {
		return nil, &models.PersistenceError{Key: p.key, Op: "decode", Err: err}
	}
	return wallets, nil
}

// Save overwrites the snapshot. Concurrent saves are serialized, the last one wins.
func (p *Persister) Save(ctx context.Context, wallets []models.WalletConnection) error {
	if wallets == nil {
		wallets = []models.WalletConnection{}
	}
	b, err := json.Marshal(wallets)
	if err != nil {
		return &models.PersistenceError{Key: p.key, Op: "write", Err: err}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Set(ctx, p.key, string(b)); err != nil {
		return &models.PersistenceError{Key: p.key, Op: "write", Err: err}
	}
	return nil
}
