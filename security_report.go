package superjwt

import (
	"time"

	"github.com/MrEthical07/superjwt/indexer"
)

// SecurityReport summarizes the token and lookup posture of a built Authority.
type SecurityReport struct {
	DefaultMethod   string
	AllowedMethods  []string
	DefaultExpiry   time.Duration
	Leeway          time.Duration
	RequireIAT      bool
	MaxFutureIAT    time.Duration
	MinSecretLength int

	Networks        int
	EndpointsPinned bool // caller overrode or added endpoints
	CustomFinder    bool // stream lookup does not go through the GraphQL client

	AuditEnabled    bool
	AuditDropIfFull bool
	MetricsEnabled  bool
}

// SecurityReport returns the effective posture for startup logs and health checks.
func (a *Authority) SecurityReport() SecurityReport {
	if a == nil {
		return SecurityReport{}
	}

	allowed, _ := a.config.JWT.allowedMethods()
	methods := make([]string, len(allowed))
	for i, m := range allowed {
		methods[i] = string(m)
	}
	_, graphQL := a.finder.(*indexer.Client)

	return SecurityReport{
		DefaultMethod:   string(a.defaultMethod),
		AllowedMethods:  methods,
		DefaultExpiry:   a.config.JWT.DefaultExpiry,
		Leeway:          a.config.JWT.Leeway,
		RequireIAT:      a.config.JWT.RequireIAT,
		MaxFutureIAT:    a.config.JWT.MaxFutureIAT,
		MinSecretLength: a.config.JWT.MinSecretLength,
		Networks:        len(a.registry.Networks()),
		EndpointsPinned: len(a.config.Indexer.Endpoints) > 0,
		CustomFinder:    !graphQL,
		AuditEnabled:    a.config.Audit.Enabled,
		AuditDropIfFull: a.config.Audit.Enabled && a.config.Audit.DropIfFull,
		MetricsEnabled:  a.config.Metrics.Enabled,
	}
}
