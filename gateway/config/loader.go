package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/providers"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// FileReader defines the interface for reading files
type FileReader interface {
	// ReadFile reads the file at the given path and returns the contents
	ReadFile(path string) ([]byte, error)
}

// DefaultFileReader implements FileReader using os.ReadFile
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader wraps a FileReader to provide dependency injection for config loading functions
type Loader struct {
	fileReader FileReader
}

// NewLoader creates a new Loader with the given FileReader
func NewLoader(fileReader FileReader) *Loader {
	return &Loader{fileReader: fileReader}
}

// NewDefaultLoader creates a Loader with the default file reader
func NewDefaultLoader() *Loader {
	return NewLoader(&DefaultFileReader{})
}

// LoadGatewayConfig loads the config from the toml file at configPath, or from GATEWAY_* env vars when it is nil.
func LoadGatewayConfig(configPath *string) (*GatewayConfig, error) {
	if configPath == nil {
		config, err := LoadEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load env config: %w", err)
		}
		return config, nil
	}
	config, err := NewDefaultLoader().LoadFile(*configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load file config: %w", err)
	}
	return config, nil
}

// LoadFile loads and verifies the toml config at configPath.
func (l *Loader) LoadFile(configPath string) (*GatewayConfig, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}
	body, err := l.fileReader.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GatewayConfig
	if err := toml.Unmarshal(body, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&config)
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

// LoadEnv builds the config from GATEWAY_* env vars. Nested keys use an underscore,
// e.g. GATEWAY_STORAGE_BACKEND. Lists are comma separated.
func LoadEnv() (*GatewayConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var config GatewayConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env config: %w", err)
	}
	applyDefaults(&config)
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

// bindEnvKeys binds each config key to its env var so Unmarshal sees env values
// when no config file is loaded (env-only mode).
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"port", "host", "allowed_origins",
		"rate_per_minute", "max_concurrent_requests", "signing_rate_per_minute", "trust_proxy_headers",
		"service_name", "service_version", "environment",
		"enable_tracing", "use_otlp_traces", "otlp_traces_url",
		"enable_metrics", "use_prometheus", "use_otlp_metrics", "otlp_metrics_url",
		"enable_logs", "use_otlp_logs", "otlp_logs_url",
		"insecure_otlp", "development_mode",
		"networks_file", "keplr_chain_ids", "keplr_registry_dir",
		"extension_providers", "wallet_connect_project_id",
		"storage.backend", "storage.key", "storage.dir",
		"storage.redis_addr", "storage.redis_password", "storage.redis_db",
		"storage.redis_prefix", "storage.redis_ttl_seconds",
		"events.kafka_brokers", "events.kafka_topic",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func applyDefaults(config *GatewayConfig) {
	if config.ServiceName == "" {
		config.ServiceName = "spectra-wallet-gateway"
	}
	if config.Storage.Backend == "" {
		config.Storage.Backend = StorageMemory
	}
	for i := range config.Providers {
		if config.Providers[i].Name == "" {
			config.Providers[i].Name = config.Providers[i].ID
		}
	}
}

func verifyConfig(config *GatewayConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return invalid("port must be between 1 and 65535")
	}

	if config.Host == "" {
		return invalid("host is required")
	}

	if len(config.AllowedOrigins) == 0 {
		return invalid("allowed_origins is required")
	}

	if config.NetworksFile == "" && len(config.KeplrChainIDs) == 0 {
		return invalid("networks_file or keplr_chain_ids is required")
	}

	list := config.ProviderConfigs()
	if len(list) == 0 {
		return invalid("at least one provider is required")
	}
	seen := make(map[string]bool, len(list))
	for _, p := range list {
		if p.ID == "" {
			return invalid("provider id is required")
		}
		if seen[p.ID] {
			return invalid(fmt.Sprintf("duplicate provider id %s", p.ID))
		}
		seen[p.ID] = true

		switch kind := providers.Kind(p.Kind); {
		case !kind.Valid():
			return invalid(fmt.Sprintf("provider %s has unknown kind %q", p.ID, p.Kind))
		case kind == providers.KindMobile:
			return invalid(fmt.Sprintf("provider %s: mobile providers need a WalletConnect transport and cannot be served", p.ID))
		case kind == providers.KindIframe && len(p.AllowedParentOrigins) == 0:
			return invalid(fmt.Sprintf("provider %s: allowed_parent_origins is required for iframe providers", p.ID))
		}
	}

	switch config.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if config.Storage.Dir == "" {
			return invalid("storage.dir is required for the file backend")
		}
	case StorageRedis:
		if config.Storage.RedisAddr == "" {
			return invalid("storage.redis_addr is required for the redis backend")
		}
		if config.Storage.RedisTTLSeconds < 0 {
			return invalid("storage.redis_ttl_seconds must not be negative")
		}
	default:
		return invalid(fmt.Sprintf("unknown storage backend %q", config.Storage.Backend))
	}

	if config.EnableLogs && !config.UseOTLPLogs && !config.DevelopmentMode {
		return invalid("enable_logs needs use_otlp_logs or development_mode")
	}

	if len(config.Events.KafkaBrokers) > 0 && config.Events.KafkaTopic == "" {
		return invalid("events.kafka_topic is required when kafka brokers are set")
	}

	return nil
}

func invalid(reason string) error {
	return &models.ConfigurationError{Reason: reason}
}
