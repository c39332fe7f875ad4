// Package querytest provides a scriptable ChainQuerier for tests.
package querytest

import (
	"context"
	"sync"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/query"
)

// MockQuerier returns whatever its func fields return and counts the calls.
// A nil func returns a zero value and no error.
type MockQuerier struct {
	FetchAccountFn      func(ctx context.Context, restURL, address string) (query.AccountInfo, error)
	FetchLatestHeightFn func(ctx context.Context, restURL string) (uint64, error)
	SimulateFn          func(ctx context.Context, restURL string, txBytes []byte) (query.SimulateResponse, error)
	BroadcastFn         func(ctx context.Context, restURL string, txBytes []byte) (query.BroadcastResponse, error)

	mu    sync.Mutex
	calls map[string]int
	urls  []string
}

var _ query.ChainQuerier = (*MockQuerier)(nil)

// Fixed returns a querier that always reports the given account and height.
func Fixed(accountNumber, sequence, height uint64) *MockQuerier {
	return &MockQuerier{
		FetchAccountFn: func(_ context.Context, _, address string) (query.AccountInfo, error) {
			return query.AccountInfo{Address: address, AccountNumber: accountNumber, Sequence: sequence}, nil
		},
		FetchLatestHeightFn: func(context.Context, string) (uint64, error) {
			return height, nil
		},
	}
}

func (m *MockQuerier) record(name, restURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[name]++
	m.urls = append(m.urls, restURL)
}

// Calls returns how often the named method was called.
func (m *MockQuerier) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// TotalCalls returns the number of calls over all methods.
func (m *MockQuerier) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// URLs returns the REST endpoints of all calls in order.
func (m *MockQuerier) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.urls...)
}

func (m *MockQuerier) FetchAccount(ctx context.Context, restURL, address string) (query.AccountInfo, error) {
	m.record("FetchAccount", restURL)
	if m.FetchAccountFn == nil {
		return query.AccountInfo{Address: address}, nil
	}
	return m.FetchAccountFn(ctx, restURL, address)
}

func (m *MockQuerier) FetchLatestHeight(ctx context.Context, restURL string) (uint64, error) {
	m.record("FetchLatestHeight", restURL)
	if m.FetchLatestHeightFn == nil {
		return 0, nil
	}
	return m.FetchLatestHeightFn(ctx, restURL)
}

func (m *MockQuerier) Simulate(ctx context.Context, restURL string, txBytes []byte) (query.SimulateResponse, error) {
	m.record("Simulate", restURL)
	if m.SimulateFn == nil {
		return query.SimulateResponse{}, nil
	}
	return m.SimulateFn(ctx, restURL, txBytes)
}

func (m *MockQuerier) Broadcast(ctx context.Context, restURL string, txBytes []byte) (query.BroadcastResponse, error) {
	m.record("Broadcast", restURL)
	if m.BroadcastFn == nil {
		return query.BroadcastResponse{}, nil
	}
	return m.BroadcastFn(ctx, restURL, txBytes)
}
