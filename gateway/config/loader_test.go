package config_test

import (
	"errors"
	"os"
	"strings"
	"testing"

	. "github.com/Cogwheel-Validator/spectra-wallet/gateway/config"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
)

// mapReader serves files from memory
type mapReader map[string]string

func (m mapReader) ReadFile(path string) ([]byte, error) {
	body, ok := m[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(body), nil
}

// unsetGatewayEnv resets env vars with the GATEWAY_ prefix for the duration of the test
func unsetGatewayEnv(t *testing.T) {
	t.Helper()
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, "GATEWAY_") {
			continue
		}
		if idx := strings.Index(e, "="); idx != -1 {
			t.Setenv(e[:idx], "")
			_ = os.Unsetenv(e[:idx])
		}
	}
}

const minimal = `
port = 8080
host = "127.0.0.1"
allowed_origins = ["*"]
networks_file = "networks.toml"

[[providers]]
id = "keplr"
kind = "extension"
`

func TestLoadFile_Success(t *testing.T) {
	cfg, err := NewDefaultLoader().LoadFile("testdata/gateway.toml")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 8090 || cfg.Host != "0.0.0.0" {
		t.Errorf("unexpected port/host: %v %v", cfg.Port, cfg.Host)
	}
	if len(cfg.Providers) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(cfg.Providers))
	}
	iframe := cfg.Providers[2]
	if iframe.Kind != "iframe" || iframe.Name != "cosmiframe" {
		t.Errorf("unexpected iframe provider: %+v", iframe)
	}
	if len(iframe.AllowedParentOrigins) != 1 || iframe.AllowedParentOrigins[0] != "https://daodao.zone" {
		t.Errorf("unexpected parent origins: %+v", iframe.AllowedParentOrigins)
	}
	if cfg.Storage.Backend != StorageFile || cfg.Storage.Dir != "/var/lib/spectra-wallet" {
		t.Errorf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Events.KafkaTopic != "wallet-sessions" || len(cfg.Events.KafkaBrokers) != 1 {
		t.Errorf("unexpected events: %+v", cfg.Events)
	}
	if len(cfg.KeplrChainIDs) != 1 || cfg.KeplrChainIDs[0] != "neutron-1" {
		t.Errorf("unexpected keplr chain ids: %+v", cfg.KeplrChainIDs)
	}
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := NewLoader(mapReader{"gateway.toml": minimal}).LoadFile("gateway.toml")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Errorf("expected memory storage by default, got %q", cfg.Storage.Backend)
	}
	if cfg.ServiceName != "spectra-wallet-gateway" {
		t.Errorf("unexpected service name %q", cfg.ServiceName)
	}
	if cfg.Providers[0].Name != "keplr" {
		t.Errorf("expected provider name to default to its id, got %q", cfg.Providers[0].Name)
	}
}

func TestLoadFile_WrongExtension(t *testing.T) {
	_, err := NewLoader(mapReader{}).LoadFile("config.yaml")
	if err == nil {
		t.Fatalf("expected error for non-toml file")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := NewLoader(mapReader{}).LoadFile("missing.toml")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist error, got %v", err)
	}
}

func TestLoadFile_Verification(t *testing.T) {
	tests := []struct {
		name  string
		extra string
		base  string
	}{
		{name: "bad port", base: strings.Replace(minimal, "port = 8080", "port = 70000", 1)},
		{name: "no host", base: strings.Replace(minimal, `host = "127.0.0.1"`, "", 1)},
		{name: "no networks", base: strings.Replace(minimal, `networks_file = "networks.toml"`, "", 1)},
		{name: "no providers", base: strings.Split(minimal, "[[providers]]")[0]},
		{name: "duplicate provider", extra: "[[providers]]\nid = \"keplr\"\nkind = \"extension\"\n"},
		{name: "unknown kind", extra: "[[providers]]\nid = \"station\"\nkind = \"browser\"\n"},
		{name: "mobile kind", extra: "[[providers]]\nid = \"keplr-mobile\"\nkind = \"mobile\"\n"},
		{name: "iframe without origins", extra: "[[providers]]\nid = \"cosmiframe\"\nkind = \"iframe\"\n"},
		{name: "unknown storage", extra: "[storage]\nbackend = \"s3\"\n"},
		{name: "file storage without dir", extra: "[storage]\nbackend = \"file\"\n"},
		{name: "redis without addr", extra: "[storage]\nbackend = \"redis\"\n"},
		{name: "kafka without topic", extra: "[events]\nkafka_brokers = [\"localhost:9092\"]\n"},
		{name: "logs without exporter", base: strings.Replace(minimal, `host = "127.0.0.1"`, "host = \"127.0.0.1\"\nenable_logs = true", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.base
			if body == "" {
				body = minimal
			}
			body += "\n" + tt.extra
			_, err := NewLoader(mapReader{"gateway.toml": body}).LoadFile("gateway.toml")
			if !errors.Is(err, models.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestLoadEnv_Success(t *testing.T) {
	unsetGatewayEnv(t)
	t.Setenv("GATEWAY_PORT", "8080")
	t.Setenv("GATEWAY_HOST", "0.0.0.0")
	t.Setenv("GATEWAY_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("GATEWAY_KEPLR_CHAIN_IDS", "neutron-1,osmosis-1")
	t.Setenv("GATEWAY_EXTENSION_PROVIDERS", "keplr,leap")
	t.Setenv("GATEWAY_STORAGE_BACKEND", "redis")
	t.Setenv("GATEWAY_STORAGE_REDIS_ADDR", "localhost:6379")
	t.Setenv("GATEWAY_STORAGE_REDIS_TTL_SECONDS", "3600")

	cfg, err := LoadGatewayConfig(nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 8080 || cfg.Host != "0.0.0.0" {
		t.Errorf("unexpected port/host: %v %v", cfg.Port, cfg.Host)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("expected 2 allowed origins, got %d", len(cfg.AllowedOrigins))
	}
	if len(cfg.KeplrChainIDs) != 2 {
		t.Errorf("expected 2 keplr chain ids, got %d", len(cfg.KeplrChainIDs))
	}
	providers := cfg.ProviderConfigs()
	if len(providers) != 2 || providers[1].ID != "leap" || providers[1].Kind != "extension" {
		t.Errorf("unexpected providers: %+v", providers)
	}
	if cfg.Storage.Backend != StorageRedis || cfg.Storage.RedisAddr != "localhost:6379" || cfg.Storage.RedisTTLSeconds != 3600 {
		t.Errorf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.SigningRatePerMinute != 0 || cfg.TrustProxyHeaders {
		t.Errorf("expected signing limit and proxy trust to stay off, got %d %v", cfg.SigningRatePerMinute, cfg.TrustProxyHeaders)
	}
}

func TestLoadEnv_FailVerification(t *testing.T) {
	unsetGatewayEnv(t)
	// missing HOST
	t.Setenv("GATEWAY_PORT", "8080")
	t.Setenv("GATEWAY_ALLOWED_ORIGINS", "*")
	t.Setenv("GATEWAY_NETWORKS_FILE", "networks.toml")
	t.Setenv("GATEWAY_EXTENSION_PROVIDERS", "keplr")

	_, err := LoadGatewayConfig(nil)
	if err == nil {
		t.Fatalf("expected error due to missing host, got nil")
	}
}

func TestLoadGatewayConfig_FromFile(t *testing.T) {
	path := "testdata/gateway.toml"
	cfg, err := LoadGatewayConfig(&path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.RatePerMinute != 120 {
		t.Errorf("unexpected rate per minute %d", cfg.RatePerMinute)
	}
	if cfg.SigningRatePerMinute != 30 || !cfg.TrustProxyHeaders {
		t.Errorf("unexpected signing limit %d, trust proxy %v", cfg.SigningRatePerMinute, cfg.TrustProxyHeaders)
	}
}
