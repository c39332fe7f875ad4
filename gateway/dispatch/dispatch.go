/*
Package dispatch is the entry point applications use to work with wallets.

A Context owns the session store and routes every operation to the provider
that holds the wallet. It starts in the uninitialized state; Start loads the
persisted wallets (when persistence is configured), initializes every provider
in its own goroutine and resyncs the restored sessions of each provider as soon
as that provider is ready. Providers become usable one by one, an operation on
a provider that is still initializing, or that failed to, returns a
ProviderNotReadyError instead of waiting.
*/
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/events"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/networks"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/providers"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/session"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/storage"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/task"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "dispatch").Logger()
}

// State is the lifecycle state of a Context.
type State int32

const (
	StateUninitialized State = iota
	StateLoadingPersistedState
	StateInitializingProviders
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoadingPersistedState:
		return "loading-persisted-state"
	case StateInitializingProviders:
		return "initializing-providers"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Status is the live status of one provider.
type Status string

const (
	StatusPending      Status = "pending"
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
	StatusFailed       Status = "failed"
)

// ProviderInfo describes a provider and its current status.
type ProviderInfo struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Kind   providers.Kind `json:"kind"`
	Status Status         `json:"status"`
	Error  string         `json:"error,omitempty"`

	err error
}

// URLOpener opens deep links on the host, for example to launch a mobile wallet.
type URLOpener interface {
	OpenURL(ctx context.Context, url string) error
}

// Option configures a Context.
type Option func(*Context)

// WithLogging turns logging of contained failures (persistence, resync) on or off. It is on by default.
func WithLogging(enabled bool) Option {
	return func(c *Context) {
		if enabled {
			c.log = log
		} else {
			c.log = zerolog.Nop()
		}
	}
}

// WithPersistence restores wallets from p at start and writes them back after every change.
func WithPersistence(p *storage.Persister) Option {
	return func(c *Context) {
		c.persister = p
	}
}

// WithPublisher publishes session changes to p.
func WithPublisher(p events.Publisher) Option {
	return func(c *Context) {
		c.publisher = p
	}
}

// WithURLOpener sets the hook used by OpenURL and MobileConnect.
func WithURLOpener(o URLOpener) Option {
	return func(c *Context) {
		c.opener = o
	}
}

// WithInitConfig sets the options passed to every provider's Init.
func WithInitConfig(cfg providers.InitConfig) Option {
	return func(c *Context) {
		c.initCfg = cfg
	}
}

// WithChain gives the context direct access to the signing clients, for the
// prepare and finish steps and raw broadcasts.
func WithChain(chain providers.Chain) Option {
	return func(c *Context) {
		c.chain = chain
	}
}

// WithMetrics records operation metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Context) {
		c.metrics = m
	}
}

// Context is the dispatch facade. Create it with New and call Start once.
type Context struct {
	registry  *providers.Registry
	catalogue *networks.Catalogue
	store     *session.Store
	persister *storage.Persister
	publisher events.Publisher
	opener    URLOpener
	initCfg   providers.InitConfig
	chain     providers.Chain
	metrics   *Metrics
	log       zerolog.Logger
	tracer    trace.Tracer

	state     atomic.Int32
	ready     chan struct{}
	startOnce sync.Once
	startTask *task.Task

	mu      sync.RWMutex
	status  map[string]ProviderInfo
	inits   map[string]*task.Task
	resyncs map[string]*task.Task
}

/*
New creates a Context over a provider registry and a network catalogue.

Params:
- registry: the providers, validated at construction
- catalogue: the networks wallets can connect to
- opts: optional features, see the With* functions

Returns:
- *Context: in the uninitialized state
- error: a ConfigurationError when registry or catalogue is missing
*/
func New(registry *providers.Registry, catalogue *networks.Catalogue, opts ...Option) (*Context, error) {
	if registry == nil {
		return nil, &models.ConfigurationError{Reason: "no provider registry"}
	}
	if catalogue == nil {
		return nil, &models.ConfigurationError{Reason: "no network catalogue"}
	}
	c := &Context{
		registry:  registry,
		catalogue: catalogue,
		store:     session.NewStore(),
		log:       log,
		tracer:    otel.Tracer("gateway/dispatch"),
		ready:     make(chan struct{}),
		status:    make(map[string]ProviderInfo),
		inits:     make(map[string]*task.Task),
		resyncs:   make(map[string]*task.Task),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, p := range registry.Providers() {
		c.status[p.ID()] = ProviderInfo{ID: p.ID(), Name: p.Name(), Kind: p.Kind(), Status: StatusPending}
	}
	return c, nil
}

// State returns the lifecycle state.
func (c *Context) State() State {
	return State(c.state.Load())
}

// Ready is closed once every provider has finished initializing, successfully or not.
func (c *Context) Ready() <-chan struct{} {
	return c.ready
}

func (c *Context) setState(s State) {
	c.state.Store(int32(s))
	c.log.Debug().Str("state", s.String()).Msg("dispatch state changed")
}

// Start runs the startup sequence in the background. Calling it again returns the same task.
// The task finishes when the context is ready; provider failures do not fail it.
func (c *Context) Start(ctx context.Context) *task.Task {
	c.startOnce.Do(func() {
		c.startTask = task.Go(func() error {
			return c.run(ctx)
		})
	})
	return c.startTask
}

func (c *Context) run(ctx context.Context) error {
	if c.persister != nil {
		c.setState(StateLoadingPersistedState)
		c.loadPersisted(ctx)
	}

	c.setState(StateInitializingProviders)
	list := c.registry.Providers()
	tasks := make([]*task.Task, 0, len(list))
	for _, p := range list {
		tasks = append(tasks, c.initProvider(ctx, p))
	}
	for _, t := range tasks {
		select {
		case <-t.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.setState(StateReady)
	close(c.ready)
	c.log.Info().Int("providers", len(list)).Int("available", len(c.AvailableProviders())).Msg("dispatch ready")
	return nil
}

func (c *Context) loadPersisted(ctx context.Context) {
	wallets, err := c.persister.Load(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("persisted wallets ignored")
	}

	known := wallets[:0]
	for _, w := range wallets {
		if _, err := c.registry.Lookup(w.ProviderID); err != nil {
			c.log.Debug().Str("wallet", w.Key()).Msg("dropping persisted wallet of unknown provider")
			continue
		}
		known = append(known, w)
	}
	if len(known) == 0 {
		return
	}
	if !c.store.Restore(known) {
		c.log.Debug().Msg("session store already has wallets, persisted state not restored")
		return
	}
	c.metrics.setWallets(c.store.Len())
	c.log.Info().Int("wallets", len(known)).Msg("restored persisted wallets")
}

// initProvider runs Init and the first resync of p. The returned task finishes after both.
func (c *Context) initProvider(ctx context.Context, p providers.Provider) *task.Task {
	c.setStatus(p, StatusInitializing, nil)
	t := task.Go(func() error {
		var err error
		if !p.Initialized() && !p.Initializing() {
			err = p.Init(ctx, c.initCfg)
		}
		c.metrics.providerInitDone(p.ID(), err)
		if err != nil {
			c.setStatus(p, StatusFailed, err)
			c.log.Warn().Err(err).Str("provider", p.ID()).Msg("provider unavailable")
			return err
		}
		c.setStatus(p, StatusReady, nil)

		bg := context.WithoutCancel(ctx)
		p.SetOnUpdateCallback(func() {
			c.Resync(bg, p.ID())
		})
		return c.resync(ctx, p)
	})

	c.mu.Lock()
	c.inits[p.ID()] = t
	c.mu.Unlock()
	return t
}

func (c *Context) setStatus(p providers.Provider, s Status, err error) {
	info := ProviderInfo{ID: p.ID(), Name: p.Name(), Kind: p.Kind(), Status: s, err: err}
	if err != nil {
		info.Error = err.Error()
	}
	c.mu.Lock()
	c.status[p.ID()] = info
	c.mu.Unlock()
}

// InitTask returns the init task of a provider, nil before Start.
func (c *Context) InitTask(providerID string) *task.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inits[providerID]
}

// ResyncTask returns the latest resync started by Resync or an update callback, nil if none.
func (c *Context) ResyncTask(providerID string) *task.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resyncs[providerID]
}

// Resync re-derives every stored session of the provider in the background.
func (c *Context) Resync(ctx context.Context, providerID string) *task.Task {
	p, err := c.provider(providerID)
	if err != nil {
		return task.Completed(err)
	}
	t := task.Go(func() error {
		return c.resync(ctx, p)
	})
	c.mu.Lock()
	c.resyncs[providerID] = t
	c.mu.Unlock()
	return t
}

/*
resync asks p to re-derive each of its stored sessions.

A session that derives to a different identity, mobile session or key is
replaced in place. A session the provider rejects is removed. Both only apply
while the stored entry is still the one that was resynced: a connection that
lands while the provider is being asked wins. Failures are contained here:
they are logged and never returned.
*/
func (c *Context) resync(ctx context.Context, p providers.Provider) error {
	ctx, end := c.begin(ctx, "resync")
	defer end(nil)

	changed := false
	for _, w := range c.store.List(models.WalletFilter{ProviderID: p.ID()}) {
		network := w.Network
		if n, err := c.catalogue.Lookup(w.Network.ChainID); err == nil {
			network = n
		}
		account := w.Account
		fresh, err := p.GetWalletConnection(ctx, providers.SessionRequest{
			Network:       network,
			MobileSession: w.MobileSession,
			Account:       &account,
		})
		if err != nil {
			if c.store.CompareAndRemove(w) {
				changed = true
				c.publish(ctx, events.NewEvent(events.WalletExpired, w))
				c.log.Info().Err(err).Str("wallet", w.Key()).Msg("removed stale session")
			}
			continue
		}
		if !drifted(w, fresh) {
			continue
		}
		if c.store.CompareAndReplace(w, fresh) {
			changed = true
			e := events.NewEvent(events.WalletResynced, fresh)
			e.PreviousID = w.Key()
			c.publish(ctx, e)
			c.log.Info().Str("wallet", fresh.Key()).Str("previous", w.Key()).Msg("session resynced")
		}
	}
	if changed {
		c.persist(ctx)
	}
	return nil
}

func drifted(old, fresh models.WalletConnection) bool {
	return old.Key() != fresh.Key() ||
		old.MobileSession != fresh.MobileSession ||
		!bytes.Equal(old.Account.PubKey, fresh.Account.PubKey)
}

// persist writes the store to the persister. Failures are logged, never returned.
func (c *Context) persist(ctx context.Context) {
	c.metrics.setWallets(c.store.Len())
	if c.persister == nil {
		return
	}
	if err := c.persister.Save(ctx, c.store.Snapshot()); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist wallets")
	}
}

func (c *Context) publish(ctx context.Context, e events.Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, e); err != nil {
		c.log.Warn().Err(err).Str("event", string(e.Type)).Msg("failed to publish session event")
	}
}

// Close releases the publisher.
func (c *Context) Close() error {
	if c.publisher == nil {
		return nil
	}
	return c.publisher.Close()
}
