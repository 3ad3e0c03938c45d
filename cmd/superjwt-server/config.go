package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	superjwt "github.com/MrEthical07/superjwt"
	"github.com/spf13/viper"
)

type serverConfig struct {
	Environment string
	Addr        string

	Secret         string
	Method         string
	TokenTTL       time.Duration
	IndexerTimeout time.Duration
	Endpoints      map[string]string
	Receiver       string

	MetricsEnabled bool

	AuditEnabled bool
	RedisAddr    string
	AuditStream  string
	AuditMaxLen  int64
}

const localSecret = "superjwt-local-dev-secret-change-me"

func loadConfig() (serverConfig, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("superjwt_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("superjwt_addr", ":8080")
	v.SetDefault("superjwt_secret", "")
	v.SetDefault("superjwt_method", "hs256")
	v.SetDefault("superjwt_token_ttl", "1h")
	v.SetDefault("superjwt_indexer_timeout", "10s")
	v.SetDefault("superjwt_endpoints", "")
	v.SetDefault("superjwt_receiver", "")
	v.SetDefault("superjwt_metrics", true)
	v.SetDefault("superjwt_audit", false)
	v.SetDefault("redis_addr", "")
	v.SetDefault("superjwt_audit_stream", "superjwt:audit")
	v.SetDefault("superjwt_audit_maxlen", 100000)

	cfg := serverConfig{
		Environment:    resolveEnvironment(v),
		Addr:           strings.TrimSpace(v.GetString("superjwt_addr")),
		Secret:         v.GetString("superjwt_secret"),
		Method:         strings.TrimSpace(v.GetString("superjwt_method")),
		TokenTTL:       v.GetDuration("superjwt_token_ttl"),
		IndexerTimeout: v.GetDuration("superjwt_indexer_timeout"),
		Receiver:       strings.TrimSpace(v.GetString("superjwt_receiver")),
		MetricsEnabled: v.GetBool("superjwt_metrics"),
		AuditEnabled:   v.GetBool("superjwt_audit"),
		RedisAddr:      strings.TrimSpace(v.GetString("redis_addr")),
		AuditStream:    strings.TrimSpace(v.GetString("superjwt_audit_stream")),
		AuditMaxLen:    v.GetInt64("superjwt_audit_maxlen"),
	}

	endpoints, err := parseEndpoints(v.GetString("superjwt_endpoints"))
	if err != nil {
		return serverConfig{}, err
	}
	cfg.Endpoints = endpoints

	if cfg.Secret == "" {
		if !cfg.isLocal() {
			return serverConfig{}, errors.New("SUPERJWT_SECRET is required outside local/dev environments")
		}
		cfg.Secret = localSecret
	}
	if cfg.TokenTTL <= 0 {
		return serverConfig{}, fmt.Errorf("invalid SUPERJWT_TOKEN_TTL: %s", v.GetString("superjwt_token_ttl"))
	}
	if cfg.IndexerTimeout <= 0 {
		return serverConfig{}, fmt.Errorf("invalid SUPERJWT_INDEXER_TIMEOUT: %s", v.GetString("superjwt_indexer_timeout"))
	}
	if cfg.AuditEnabled && cfg.RedisAddr == "" {
		return serverConfig{}, errors.New("SUPERJWT_AUDIT requires REDIS_ADDR")
	}

	return cfg, nil
}

// authorityConfig maps server settings onto the library Config.
func (c serverConfig) authorityConfig() superjwt.Config {
	cfg := superjwt.DefaultConfig()
	cfg.JWT.DefaultExpiry = c.TokenTTL
	cfg.JWT.DefaultMethod = c.Method
	cfg.JWT.AllowedMethods = []string{c.Method}
	if !c.isLocal() {
		cfg.JWT.MinSecretLength = 32
	}
	cfg.Indexer.Endpoints = c.Endpoints
	cfg.Indexer.UserAgent = "superjwt-server"
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	cfg.Audit.Enabled = c.AuditEnabled
	return cfg
}

func (c serverConfig) isLocal() bool {
	switch c.Environment {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

// parseEndpoints reads "network=url,network=url".
func parseEndpoints(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		network, endpoint, ok := strings.Cut(pair, "=")
		network = strings.TrimSpace(network)
		endpoint = strings.TrimSpace(endpoint)
		if !ok || network == "" || endpoint == "" {
			return nil, fmt.Errorf("invalid SUPERJWT_ENDPOINTS entry %q, want network=url", pair)
		}
		out[network] = endpoint
	}
	return out, nil
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"superjwt_env", "app_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}
