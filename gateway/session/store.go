// Package session keeps the wallet connections that are currently established.
package session

import (
	"bytes"
	"iter"
	"slices"
	"sync"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
)

// Store is the in-memory registry of wallet connections.
//
// Connections are kept in the order they were last added, so the most recent
// one is always the last element. Every operation is atomic.
type Store struct {
	mu      sync.RWMutex
	wallets []models.WalletConnection
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// AddWallet inserts w, or replaces the connection with the same identity.
// A replaced connection moves to the most recent position.
// It returns the connection that was replaced, if any.
func (s *Store) AddWallet(w models.WalletConnection) (models.WalletConnection, bool) {
	w.ID = w.Key()
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		prev     models.WalletConnection
		replaced bool
	)
	if i := s.index(w.ID); i >= 0 {
		prev, replaced = s.wallets[i], true
		s.wallets = slices.Delete(s.wallets, i, i+1)
	}
	s.wallets = append(s.wallets, w)
	return prev, replaced
}

// RemoveWallet deletes the connection with the identity of w. It reports whether one was present.
func (s *Store) RemoveWallet(w models.WalletConnection) bool {
	key := w.Key()
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(key)
	if i < 0 {
		return false
	}
	s.wallets = slices.Delete(s.wallets, i, i+1)
	return true
}

// CompareAndRemove deletes the connection with the identity of w, but only while
// the stored entry still carries w's mobile session and public key. A connection
// re-established under the same identity after w was read is left alone.
func (s *Store) CompareAndRemove(w models.WalletConnection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(w.Key())
	if i < 0 || !sameSession(s.wallets[i], w) {
		return false
	}
	s.wallets = slices.Delete(s.wallets, i, i+1)
	return true
}

// CompareAndReplace swaps old for fresh in one step, keeping old's position.
// If fresh has another identity that is already stored, that entry is dropped.
// It reports false, and changes nothing, when old is no longer present or the
// stored entry was re-established with another mobile session or key since old was read.
func (s *Store) CompareAndReplace(old, fresh models.WalletConnection) bool {
	fresh.ID = fresh.Key()
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(old.Key())
	if i < 0 || !sameSession(s.wallets[i], old) {
		return false
	}
	kept := s.wallets[:0]
	for j, w := range s.wallets {
		switch {
		case j == i:
			kept = append(kept, fresh)
		case w.Key() != fresh.ID:
			kept = append(kept, w)
		}
	}
	clear(s.wallets[len(kept):])
	s.wallets = kept
	return true
}

// RemoveWallets deletes every connection matched by filter and returns them.
// The zero filter removes everything.
func (s *Store) RemoveWallets(filter models.WalletFilter) []models.WalletConnection {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []models.WalletConnection
	s.wallets = slices.DeleteFunc(s.wallets, func(w models.WalletConnection) bool {
		if filter.Match(w) {
			removed = append(removed, w)
			return true
		}
		return false
	})
	return removed
}

// Wallets returns the connections matched by filter, oldest first.
//
// The sequence is evaluated lazily: each iteration reads the store as it is at
// that moment, so it can be ranged over again to observe later changes.
func (s *Store) Wallets(filter models.WalletFilter) iter.Seq[models.WalletConnection] {
	return func(yield func(models.WalletConnection) bool) {
		for _, w := range s.Snapshot() {
			if !filter.Match(w) {
				continue
			}
			if !yield(w) {
				return
			}
		}
	}
}

// List collects Wallets(filter) into a slice.
func (s *Store) List(filter models.WalletFilter) []models.WalletConnection {
	return slices.Collect(s.Wallets(filter))
}

// Get returns the connection with the given identity.
func (s *Store) Get(id string) (models.WalletConnection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.wallets[i], true
	}
	return models.WalletConnection{}, false
}

// RecentWallet returns the last added connection that is still present.
func (s *Store) RecentWallet() (models.WalletConnection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.wallets) == 0 {
		return models.WalletConnection{}, false
	}
	return s.wallets[len(s.wallets)-1], true
}

// Len returns the number of connections.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wallets)
}

// Snapshot returns a copy of every connection, oldest first.
func (s *Store) Snapshot() []models.WalletConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.wallets)
}

/*
Restore loads a persisted snapshot into the store.

It only runs on an empty store, live sessions are never overwritten. Entries
with the same identity collapse into the last one, keeping the snapshot order
otherwise. Every ID is rewritten to the identity derived from the entry.

Params:
- snapshot: connections in the order they were persisted

Returns:
- bool: whether the snapshot was applied
*/
func (s *Store) Restore(snapshot []models.WalletConnection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.wallets) > 0 {
		return false
	}
	for _, w := range snapshot {
		w.ID = w.Key()
		if i := s.index(w.ID); i >= 0 {
			s.wallets = slices.Delete(s.wallets, i, i+1)
		}
		s.wallets = append(s.wallets, w)
	}
	return true
}

// index must be called with the lock held.
func (s *Store) index(id string) int {
	return slices.IndexFunc(s.wallets, func(w models.WalletConnection) bool {
		return w.Key() == id
	})
}

func sameSession(stored, read models.WalletConnection) bool {
	return stored.MobileSession == read.MobileSession && bytes.Equal(stored.Account.PubKey, read.Account.PubKey)
}
