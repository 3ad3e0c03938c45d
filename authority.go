package superjwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/superjwt/indexer"
	"github.com/MrEthical07/superjwt/jwt"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StreamFinder reports whether an active stream matches params. It returns at most
// one stream; the only error it should return wraps ErrUnsupportedNetwork.
// *indexer.Client is the production implementation.
type StreamFinder interface {
	FindActiveStream(ctx context.Context, params map[string]any) ([]indexer.Stream, error)
}

// Authority issues stream-gated tokens and verifies them.
//
// An Authority keeps no per-call state; Authorize and Verify are safe to call
// concurrently. Build one with New().Build().
type Authority struct {
	config        Config
	registry      *indexer.Registry
	finder        StreamFinder
	tokens        *jwt.Manager
	defaultMethod jwt.SigningMethod
	audit         *auditDispatcher
	metrics       *Metrics
	logger        *zap.Logger
}

// Authorize checks that an active stream matches params and, if so, returns a
// token whose claims are exactly params plus iat/exp.
//
// Errors: ErrMissingParameters and ErrInvalidParameters before any lookup,
// ErrInvalidSigningOptions for an unusable secret or options, ErrUnsupportedNetwork
// from the lookup, ErrNoActiveStream when nothing matched (including when the
// indexer could not be reached).
func (a *Authority) Authorize(ctx context.Context, params StreamParams, secret []byte, opts SigningOptions) (*AuthorizeResult, error) {
	if a == nil || a.finder == nil || a.tokens == nil {
		return nil, ErrAuthorityNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	defer func() {
		a.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
	}()
	requestID := uuid.NewString()

	if err := validateParams(params); err != nil {
		if errors.Is(err, ErrMissingParameters) {
			a.metricInc(MetricAuthorizeMissingParams)
		} else {
			a.metricInc(MetricAuthorizeInvalidParams)
		}
		a.emitAudit(ctx, auditEventAuthorizeRejected, requestID, params, err)
		return nil, err
	}

	signOpts, err := a.signOptions(opts, secret)
	if err != nil {
		a.metricInc(MetricAuthorizeSigningFailure)
		a.emitAudit(ctx, auditEventAuthorizeRejected, requestID, params, err)
		return nil, err
	}

	stream := cloneParams(params)
	network, _ := indexer.NetworkOf(stream)
	streams, err := a.finder.FindActiveStream(ctx, cloneParams(stream))
	if err != nil {
		if errors.Is(err, ErrUnsupportedNetwork) {
			a.metricInc(MetricAuthorizeUnsupportedNetwork)
			a.emitAudit(ctx, auditEventAuthorizeRejected, requestID, stream, err)
			return nil, err
		}
		// Custom finders may surface transport errors; they fail closed like the
		// GraphQL client does.
		a.metricInc(MetricLookupFailure)
		a.metrics.IncNetwork(string(network), OutcomeLookupFailure)
		a.logger.Warn("super-jwt: stream lookup failed, treating as no stream",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		streams = nil
	}
	if len(streams) == 0 {
		a.metricInc(MetricAuthorizeNoStream)
		a.metrics.IncNetwork(string(network), OutcomeNoStream)
		a.emitAudit(ctx, auditEventAuthorizeNoStream, requestID, stream, ErrNoActiveStream)
		return nil, ErrNoActiveStream
	}

	token, err := a.tokens.Sign(stream, secret, signOpts)
	if err != nil {
		a.metricInc(MetricAuthorizeSigningFailure)
		err = fmt.Errorf("%w: %v", ErrInvalidSigningOptions, err)
		a.emitAudit(ctx, auditEventAuthorizeRejected, requestID, stream, err)
		return nil, err
	}

	a.metricInc(MetricAuthorizeSuccess)
	a.metrics.IncNetwork(string(network), OutcomeIssued)
	a.emitAudit(ctx, auditEventAuthorizeSuccess, requestID, stream, nil)

	return &AuthorizeResult{
		Token:  token,
		Stream: stream,
	}, nil
}

// Verify checks token's signature and expiry against secret and returns its
// claims. Every failure is ErrInvalidToken; the cause is included in the message
// only.
func (a *Authority) Verify(token string, secret []byte) (Claims, error) {
	if a == nil || a.tokens == nil {
		return nil, ErrAuthorityNotReady
	}
	requestID := uuid.NewString()

	claims, err := a.tokens.Parse(token, secret)
	if err != nil {
		a.metricInc(MetricVerifyFailure)
		a.emitAudit(context.Background(), auditEventVerifyFailure, requestID, nil, ErrInvalidToken)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	a.metricInc(MetricVerifySuccess)
	a.emitAudit(context.Background(), auditEventVerifySuccess, requestID, claims, nil)
	return Claims(claims), nil
}

// Networks lists the networks this Authority can authorize against.
func (a *Authority) Networks() []string {
	if a == nil {
		return nil
	}
	networks := a.registry.Networks()
	out := make([]string, len(networks))
	for i, n := range networks {
		out[i] = string(n)
	}
	return out
}

// Close flushes and stops the audit dispatcher.
func (a *Authority) Close() {
	if a == nil {
		return
	}
	if a.audit != nil {
		a.audit.Close()
	}
}

// AuditDropped returns how many audit events never reached the sink.
func (a *Authority) AuditDropped() uint64 {
	return a.AuditDrops().Total()
}

// AuditDrops breaks AuditDropped down by cause.
func (a *Authority) AuditDrops() AuditDrops {
	if a == nil || a.audit == nil {
		return AuditDrops{}
	}
	return a.audit.Drops()
}

// MetricsSnapshot returns the current counters; empty when metrics are disabled.
func (a *Authority) MetricsSnapshot() MetricsSnapshot {
	if a == nil || a.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
			Networks:   map[string]NetworkOutcomes{},
		}
	}
	return a.metrics.Snapshot()
}

func (a *Authority) metricInc(id MetricID) {
	if a == nil || a.metrics == nil {
		return
	}
	a.metrics.Inc(id)
}

func (a *Authority) signOptions(opts SigningOptions, secret []byte) (jwt.SignOptions, error) {
	method := opts.Method
	if method == "" {
		method = a.defaultMethod
	}
	if !a.tokens.Allows(method) {
		return jwt.SignOptions{}, fmt.Errorf("%w: method %q not allowed", ErrInvalidSigningOptions, method)
	}

	expiresIn := opts.ExpiresIn
	if expiresIn == 0 {
		expiresIn = a.config.JWT.DefaultExpiry
	}
	if expiresIn < 0 {
		return jwt.SignOptions{}, fmt.Errorf("%w: negative expiry", ErrInvalidSigningOptions)
	}
	if opts.NotBefore < 0 {
		return jwt.SignOptions{}, fmt.Errorf("%w: negative not-before", ErrInvalidSigningOptions)
	}

	if len(secret) == 0 {
		return jwt.SignOptions{}, fmt.Errorf("%w: empty secret", ErrInvalidSigningOptions)
	}
	if method != jwt.MethodEd25519 && a.config.JWT.MinSecretLength > 0 && len(secret) < a.config.JWT.MinSecretLength {
		return jwt.SignOptions{}, fmt.Errorf("%w: secret shorter than %d bytes", ErrInvalidSigningOptions, a.config.JWT.MinSecretLength)
	}

	out := jwt.SignOptions{
		Method:    method,
		ExpiresIn: expiresIn,
		NotBefore: opts.NotBefore,
		Issuer:    opts.Issuer,
		Subject:   opts.Subject,
		Audience:  append([]string(nil), opts.Audience...),
		KeyID:     opts.KeyID,
	}
	if opts.WithJWTID {
		out.JWTID = uuid.NewString()
	}
	return out, nil
}
