package config

// GatewayConfig is the configuration of the gateway server.
type GatewayConfig struct {
	// rpc configs
	Port int    `toml:"port" mapstructure:"port"`
	Host string `toml:"host" mapstructure:"host"`

	// CORS configs
	AllowedOrigins []string `toml:"allowed_origins" mapstructure:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `toml:"rate_per_minute" mapstructure:"rate_per_minute"`
	MaxConcurrentRequests int `toml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`
	// SigningRatePerMinute caps the procedures that prepare, sign or broadcast transactions, per client IP.
	SigningRatePerMinute int `toml:"signing_rate_per_minute" mapstructure:"signing_rate_per_minute"`
	// TrustProxyHeaders takes the client IP from X-Forwarded-For and friends. Only set it behind a proxy.
	TrustProxyHeaders bool `toml:"trust_proxy_headers" mapstructure:"trust_proxy_headers"`

	// OpenTelemetry configs
	ServiceName    string `toml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `toml:"service_version" mapstructure:"service_version"`
	Environment    string `toml:"environment" mapstructure:"environment"` // PROD, DEV, TEST, LOCAL
	EnableTracing  bool   `toml:"enable_tracing" mapstructure:"enable_tracing"`
	UseOTLPTraces  bool   `toml:"use_otlp_traces" mapstructure:"use_otlp_traces"`
	OTLPTracesURL  string `toml:"otlp_traces_url" mapstructure:"otlp_traces_url"`
	EnableMetrics  bool   `toml:"enable_metrics" mapstructure:"enable_metrics"`
	UsePrometheus  bool   `toml:"use_prometheus" mapstructure:"use_prometheus"`
	UseOTLPMetrics bool   `toml:"use_otlp_metrics" mapstructure:"use_otlp_metrics"`
	OTLPMetricsURL string `toml:"otlp_metrics_url" mapstructure:"otlp_metrics_url"`
	EnableLogs     bool   `toml:"enable_logs" mapstructure:"enable_logs"`
	UseOTLPLogs    bool   `toml:"use_otlp_logs" mapstructure:"use_otlp_logs"`
	OTLPLogsURL    string `toml:"otlp_logs_url" mapstructure:"otlp_logs_url"`

	InsecureOTLP bool `toml:"insecure_otlp" mapstructure:"insecure_otlp"`

	// Development mode uses stdout exporters
	DevelopmentMode bool `toml:"development_mode" mapstructure:"development_mode"`

	// Networks
	NetworksFile  string   `toml:"networks_file" mapstructure:"networks_file"`
	KeplrChainIDs []string `toml:"keplr_chain_ids" mapstructure:"keplr_chain_ids"`
	// KeplrRegistryDir points at a local copy of the Keplr registry. Empty means download it.
	KeplrRegistryDir string `toml:"keplr_registry_dir" mapstructure:"keplr_registry_dir"`

	// Wallets
	Providers []ProviderConfig `toml:"providers" mapstructure:"providers"`
	// ExtensionProviders declares extension providers by id only, for env mode.
	ExtensionProviders     []string `toml:"extension_providers" mapstructure:"extension_providers"`
	WalletConnectProjectID string   `toml:"wallet_connect_project_id" mapstructure:"wallet_connect_project_id"`

	Storage StorageConfig `toml:"storage" mapstructure:"storage"`
	Events  EventsConfig  `toml:"events" mapstructure:"events"`
}

// ProviderConfig declares one wallet provider.
type ProviderConfig struct {
	ID                   string   `toml:"id" mapstructure:"id"`
	Kind                 string   `toml:"kind" mapstructure:"kind"` // extension, iframe
	Name                 string   `toml:"name" mapstructure:"name"`
	AllowedParentOrigins []string `toml:"allowed_parent_origins" mapstructure:"allowed_parent_origins"`
}

// Storage backends.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

// StorageConfig selects where the wallet snapshot is persisted.
type StorageConfig struct {
	Backend string `toml:"backend" mapstructure:"backend"` // memory, file, redis
	Key     string `toml:"key" mapstructure:"key"`

	// file backend
	Dir string `toml:"dir" mapstructure:"dir"`

	// redis backend
	RedisAddr       string `toml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword   string `toml:"redis_password" mapstructure:"redis_password"`
	RedisDB         int    `toml:"redis_db" mapstructure:"redis_db"`
	RedisPrefix     string `toml:"redis_prefix" mapstructure:"redis_prefix"`
	RedisTTLSeconds int    `toml:"redis_ttl_seconds" mapstructure:"redis_ttl_seconds"`
}

// EventsConfig enables publishing of session events to kafka.
type EventsConfig struct {
	KafkaBrokers []string `toml:"kafka_brokers" mapstructure:"kafka_brokers"`
	KafkaTopic   string   `toml:"kafka_topic" mapstructure:"kafka_topic"`
}

// ProviderConfigs returns Providers followed by one extension provider per ExtensionProviders id.
func (c *GatewayConfig) ProviderConfigs() []ProviderConfig {
	out := append([]ProviderConfig(nil), c.Providers...)
	for _, id := range c.ExtensionProviders {
		out = append(out, ProviderConfig{ID: id, Kind: "extension", Name: id})
	}
	return out
}
