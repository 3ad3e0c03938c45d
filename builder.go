package superjwt

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/superjwt/indexer"
	"github.com/MrEthical07/superjwt/jwt"
	"go.uber.org/zap"
)

// Builder assembles an Authority. A Builder can be built once.
type Builder struct {
	config Config

	logger     *zap.Logger
	httpClient *http.Client
	auditSink  AuditSink
	finder     StreamFinder

	built bool
}

// New returns a Builder starting from DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithLogger sets the logger used for recovered indexer failures.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithHTTPClient sets the client used for indexer queries. Its timeout is the only
// deadline applied besides the caller's context.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithStreamFinder replaces the GraphQL indexer client. Indexer config is then
// only used for Networks.
func (b *Builder) WithStreamFinder(finder StreamFinder) *Builder {
	b.finder = finder
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, freezes the endpoint registry and returns a
// ready Authority.
func (b *Builder) Build() (*Authority, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- ENDPOINT REGISTRY --------
	registry := indexer.DefaultRegistry()
	if len(cfg.Indexer.Endpoints) > 0 {
		overrides := make(map[indexer.Network]string, len(cfg.Indexer.Endpoints))
		for network, endpoint := range cfg.Indexer.Endpoints {
			overrides[indexer.Network(strings.TrimSpace(network))] = strings.TrimSpace(endpoint)
		}
		extended, err := registry.Extend(overrides)
		if err != nil {
			return nil, err
		}
		registry = extended
	}

	// -------- TOKEN MANAGER --------
	allowed, err := cfg.JWT.allowedMethods()
	if err != nil {
		return nil, err
	}
	tokens, err := jwt.NewManager(jwt.Config{
		AllowedMethods: allowed,
		Leeway:         cfg.JWT.Leeway,
		RequireIAT:     cfg.JWT.RequireIAT,
		MaxFutureIAT:   cfg.JWT.MaxFutureIAT,
	})
	if err != nil {
		return nil, err
	}
	defaultMethod, _ := jwt.ParseMethod(cfg.JWT.DefaultMethod)

	authority := &Authority{
		config:        cfg,
		registry:      registry,
		tokens:        tokens,
		defaultMethod: defaultMethod,
		logger:        logger,
	}
	networks := registry.Networks()
	tracked := make([]string, len(networks))
	for i, n := range networks {
		tracked[i] = string(n)
	}
	authority.metrics = NewMetrics(cfg.Metrics, tracked...)
	authority.audit = newAuditDispatcher(cfg.Audit, b.auditSink)

	// -------- STREAM LOOKUP --------
	authority.finder = b.finder
	if authority.finder == nil {
		authority.finder = indexer.NewClient(indexer.Options{
			Registry:   registry,
			HTTPClient: b.httpClient,
			Logger:     logger,
			UserAgent:  cfg.Indexer.UserAgent,
			OnLookupFailure: func(network indexer.Network, _ error) {
				authority.metrics.Inc(MetricLookupFailure)
				authority.metrics.IncNetwork(string(network), OutcomeLookupFailure)
			},
		})
	}

	b.built = true

	return authority, nil
}
