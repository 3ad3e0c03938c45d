package superjwt

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/superjwt/jwt"
)

// Config holds everything an Authority needs besides the per-call secret.
//
// Config values are copied by Builder.WithConfig; later changes to the caller's
// value do not affect a built Authority.
type Config struct {
	JWT     JWTConfig
	Indexer IndexerConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token minting defaults and the verification policy.
type JWTConfig struct {
	DefaultExpiry   time.Duration
	DefaultMethod   string   // "hs256" (default), "hs384", "hs512", "ed25519"
	AllowedMethods  []string // verification allow-list; empty means every hmac method
	Leeway          time.Duration
	RequireIAT      bool
	MaxFutureIAT    time.Duration
	MinSecretLength int // hmac only; 0 disables the check
}

/*
====================================
INDEXER CONFIG
====================================
*/

// IndexerConfig adjusts the network -> subgraph table and the outbound request.
type IndexerConfig struct {
	// Endpoints overrides or extends the built-in table. The merged table is frozen
	// when the Authority is built.
	Endpoints map[string]string
	UserAgent string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters and the authorize latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration New starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			DefaultExpiry: time.Hour,
			DefaultMethod: "hs256",
			Leeway:        0,
			RequireIAT:    true,
			MaxFutureIAT:  10 * time.Minute,
		},
		Indexer: IndexerConfig{
			UserAgent: "super-jwt",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AllowedMethods = append([]string(nil), cfg.JWT.AllowedMethods...)
	if cfg.Indexer.Endpoints != nil {
		out.Indexer.Endpoints = make(map[string]string, len(cfg.Indexer.Endpoints))
		for k, v := range cfg.Indexer.Endpoints {
			out.Indexer.Endpoints[k] = v
		}
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.DefaultExpiry <= 0 {
		return errors.New("JWT DefaultExpiry must be > 0")
	}
	if _, err := jwt.ParseMethod(c.JWT.DefaultMethod); err != nil {
		return fmt.Errorf("JWT DefaultMethod: %w", err)
	}
	allowed, err := c.JWT.allowedMethods()
	if err != nil {
		return err
	}
	def, _ := jwt.ParseMethod(c.JWT.DefaultMethod)
	if !containsMethod(allowed, def) {
		return errors.New("JWT DefaultMethod must be in AllowedMethods")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.MaxFutureIAT < 0 || c.JWT.MaxFutureIAT > 24*time.Hour {
		return errors.New("JWT MaxFutureIAT must be between 0 and 24h")
	}
	if c.JWT.MinSecretLength < 0 {
		return errors.New("JWT MinSecretLength must be >= 0")
	}

	// Indexer
	for network, endpoint := range c.Indexer.Endpoints {
		if strings.TrimSpace(network) == "" {
			return errors.New("Indexer Endpoints contains empty network name")
		}
		u, err := url.Parse(strings.TrimSpace(endpoint))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("Indexer endpoint for %q must be an absolute http(s) URL", network)
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func (j JWTConfig) allowedMethods() ([]jwt.SigningMethod, error) {
	if len(j.AllowedMethods) == 0 {
		return []jwt.SigningMethod{jwt.MethodHS256, jwt.MethodHS384, jwt.MethodHS512}, nil
	}
	out := make([]jwt.SigningMethod, 0, len(j.AllowedMethods))
	for _, s := range j.AllowedMethods {
		m, err := jwt.ParseMethod(s)
		if err != nil {
			return nil, fmt.Errorf("JWT AllowedMethods: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func containsMethod(methods []jwt.SigningMethod, m jwt.SigningMethod) bool {
	for _, x := range methods {
		if x == m {
			return true
		}
	}
	return false
}
