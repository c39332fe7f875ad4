package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/cosmos"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/injective"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/query"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/chains/signing"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/config"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/dispatch"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/events"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/networks"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/providers"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/rpc"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	rpc.SetLogger(log)
}

func main() {
	configPath := flag.String("config", "./gateway.toml", "config file for the gateway")
	fromEnv := flag.Bool("env", false, "read the config from GATEWAY_* environment variables instead of a file")
	queryTimeout := flag.Duration("query-timeout", 15*time.Second, "timeout of chain REST queries")
	flag.Parse()

	path := configPath
	if *fromEnv {
		path = nil
	}
	cfg, err := config.LoadGatewayConfig(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load gateway config")
	}

	log.Info().
		Bool("env", *fromEnv).
		Str("storage", cfg.Storage.Backend).
		Msg("Starting Spectra wallet gateway")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalogue, err := loadNetworks(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load networks")
	}
	log.Info().Int("count", len(catalogue.Networks())).Msg("Loaded networks")

	querier := query.NewRestClient(*queryTimeout)
	chain := providers.Chain{
		Clients: signing.NewClients(cosmos.NewSigningClient(querier), injective.NewSigningClient(querier)),
		Querier: querier,
	}

	registry, initConfig, err := buildProviders(cfg, chain)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build providers")
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}

	publisher := buildPublisher(cfg.Events)

	metrics, err := dispatch.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	d, err := dispatch.New(registry, catalogue,
		dispatch.WithChain(chain),
		dispatch.WithInitConfig(initConfig),
		dispatch.WithPersistence(storage.NewPersister(store, cfg.Storage.Key)),
		dispatch.WithPublisher(publisher),
		dispatch.WithMetrics(metrics),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create dispatch context")
	}
	started := d.Start(ctx)

	server, err := rpc.NewServer(ctx, buildServerConfig(cfg), d)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create RPC server")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// the server answers /server/ready with 503 until the providers are initialized
	go func() {
		if err := started.Wait(ctx); err != nil {
			log.Error().Err(err).Msg("Dispatch start failed")
			return
		}
		for _, p := range d.Providers() {
			log.Info().Str("provider", p.ID).Str("status", string(p.Status)).Msg("Provider initialized")
		}
	}()

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
	if err := d.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close event publisher")
	}
}

// loadNetworks merges the networks imported from the Keplr registry with the declared ones.
// Declared networks win on a chain id clash.
func loadNetworks(ctx context.Context, cfg *config.GatewayConfig) (*networks.Catalogue, error) {
	var declared, imported []models.Network
	if cfg.NetworksFile != "" {
		var err error
		if declared, err = networks.LoadFile(cfg.NetworksFile); err != nil {
			return nil, err
		}
	}

	if len(cfg.KeplrChainIDs) > 0 {
		dir := cfg.KeplrRegistryDir
		if dir == "" {
			tmp, err := os.MkdirTemp("", "keplr-registry-")
			if err != nil {
				return nil, fmt.Errorf("failed to create registry dir: %w", err)
			}
			defer os.RemoveAll(tmp)
			if err := networks.DownloadKeplrRegistry(ctx, tmp); err != nil {
				return nil, err
			}
			dir = tmp
		}
		var err error
		if imported, err = networks.ImportKeplr(dir, cfg.KeplrChainIDs); err != nil {
			return nil, err
		}
	}

	return networks.NewCatalogue(networks.Merge(imported, declared)...)
}

// buildProviders creates the configured providers. Every provider signs on the caller's side,
// the gateway prepares and assembles transactions around it.
func buildProviders(cfg *config.GatewayConfig, chain providers.Chain) (*providers.Registry, providers.InitConfig, error) {
	initConfig := providers.InitConfig{WalletConnectProjectID: cfg.WalletConnectProjectID}
	var ps []providers.Provider
	for _, pc := range cfg.ProviderConfigs() {
		switch providers.Kind(pc.Kind) {
		case providers.KindExtension:
			ps = append(ps, providers.NewExtensionProvider(pc.ID, pc.Name, providers.NewRemoteAdapter(""), chain))
		case providers.KindIframe:
			p, err := providers.NewRemoteIframeProvider(pc.AllowedParentOrigins, chain)
			if err != nil {
				return nil, initConfig, fmt.Errorf("provider %s: %w", pc.ID, err)
			}
			ps = append(ps, p)
			initConfig.AllowedParentOrigins = append(initConfig.AllowedParentOrigins, pc.AllowedParentOrigins...)
		default:
			return nil, initConfig, &models.ConfigurationError{Reason: fmt.Sprintf("provider %q has unsupported kind %q", pc.ID, pc.Kind)}
		}
		log.Info().Str("provider", pc.ID).Str("kind", pc.Kind).Msg("Provider configured")
	}
	registry, err := providers.NewRegistry(ps...)
	return registry, initConfig, err
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.KeyValueStore, error) {
	switch cfg.Backend {
	case config.StorageFile:
		store, err := storage.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageRedis:
		client, err := storage.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return storage.NewRedisStore(client, cfg.RedisPrefix, time.Duration(cfg.RedisTTLSeconds)*time.Second), nil
	default:
		return storage.NewMemoryStore(), nil
	}
}

func buildPublisher(cfg config.EventsConfig) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher()
	}
	log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("Publishing session events to kafka")
	return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
}

// buildServerConfig converts the loaded GatewayConfig to rpc.ServerConfig
func buildServerConfig(cfg *config.GatewayConfig) *rpc.ServerConfig {
	serverConfig := &rpc.ServerConfig{
		Address:        cfg.Host + ":" + strconv.Itoa(cfg.Port),
		AllowedOrigins:    cfg.AllowedOrigins,
		EnableMetrics:     true,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	}

	if cfg.RatePerMinute > 0 {
		serverConfig.RatePerMinute = &cfg.RatePerMinute
	}
	if cfg.MaxConcurrentRequests > 0 {
		serverConfig.MaxConcurrentRequests = &cfg.MaxConcurrentRequests
	}
	if cfg.SigningRatePerMinute > 0 {
		serverConfig.SigningRatePerMinute = &cfg.SigningRatePerMinute
	}

	if cfg.EnableTracing || cfg.EnableMetrics || cfg.EnableLogs || cfg.UsePrometheus {
		serverConfig.OTelConfig = &rpc.OTelConfig{
			ServiceName:     cfg.ServiceName,
			ServiceVersion:  defaultString(cfg.ServiceVersion, "1.0.0"),
			Environment:     defaultString(cfg.Environment, "development"),
			EnableTracing:   cfg.EnableTracing,
			UseOTLPTraces:   cfg.UseOTLPTraces,
			OTLPTracesURL:   cfg.OTLPTracesURL,
			EnableMetrics:   cfg.EnableMetrics,
			UsePrometheus:   cfg.UsePrometheus,
			UseOTLPMetrics:  cfg.UseOTLPMetrics,
			OTLPMetricsURL:  cfg.OTLPMetricsURL,
			EnableLogs:      cfg.EnableLogs,
			UseOTLPLogs:     cfg.UseOTLPLogs,
			OTLPLogsURL:     cfg.OTLPLogsURL,
			InsecureOTLP:    cfg.InsecureOTLP,
			DevelopmentMode: cfg.DevelopmentMode,
		}
	}

	return serverConfig
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
