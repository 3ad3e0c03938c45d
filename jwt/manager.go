package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod names a supported JWT algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodHS384   SigningMethod = "hs384"
	MethodHS512   SigningMethod = "hs512"
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	ErrUnsupportedMethod = errors.New("unsupported signing method")
	ErrEmptySecret       = errors.New("empty signing secret")
	ErrReservedClaim     = errors.New("payload uses a reserved claim name")
)

// ReservedClaims are the registered claim names the signer owns.
var ReservedClaims = []string{"exp", "iat", "nbf", "iss", "aud", "sub", "jti"}

// Config is the parsing policy shared by every Sign/Parse call on a Manager.
type Config struct {
	AllowedMethods []SigningMethod
	Leeway         time.Duration
	RequireIAT     bool
	MaxFutureIAT   time.Duration

	// Now overrides the clock used for iat/exp/nbf; nil means time.Now.
	Now func() time.Time
}

// SignOptions mirrors the per-token knobs callers set when minting.
type SignOptions struct {
	Method    SigningMethod
	ExpiresIn time.Duration
	NotBefore time.Duration
	Issuer    string
	Subject   string
	Audience  []string
	KeyID     string
	JWTID     string
}

// Manager signs and parses stream tokens.
//
// Manager holds no secrets and is safe for concurrent use.
type Manager struct {
	config  Config
	allowed []string
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []SigningMethod{MethodHS256, MethodHS384, MethodHS512}
	}
	allowed := make([]string, 0, len(cfg.AllowedMethods))
	var hmac, eddsa bool
	for _, m := range cfg.AllowedMethods {
		method, err := m.jwtMethod()
		if err != nil {
			return nil, err
		}
		if m == MethodEd25519 {
			eddsa = true
		} else {
			hmac = true
		}
		allowed = append(allowed, method.Alg())
	}
	// A verifier holding an ed25519 public key must never accept HMAC tokens keyed
	// with those same bytes.
	if hmac && eddsa {
		return nil, errors.New("allowed methods must not mix hmac and ed25519")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.AllowedMethods = append([]SigningMethod(nil), cfg.AllowedMethods...)

	return &Manager{config: cfg, allowed: allowed}, nil
}

// Allows reports whether method is in the manager's allow-list.
func (m *Manager) Allows(method SigningMethod) bool {
	for _, allowed := range m.config.AllowedMethods {
		if allowed == method {
			return true
		}
	}
	return false
}

// Sign mints a token carrying every payload entry plus iat/exp and the optional
// registered claims requested in opts.
func (m *Manager) Sign(payload map[string]any, secret []byte, opts SignOptions) (string, error) {
	if opts.ExpiresIn <= 0 {
		return "", errors.New("token expiry must be > 0")
	}
	if opts.NotBefore < 0 {
		return "", errors.New("token not-before must be >= 0")
	}
	if !m.Allows(opts.Method) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMethod, opts.Method)
	}
	method, err := opts.Method.jwtMethod()
	if err != nil {
		return "", err
	}
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}

	claims := make(jwt.MapClaims, len(payload)+7)
	for k, v := range payload {
		if IsReservedClaim(k) {
			return "", fmt.Errorf("%w: %s", ErrReservedClaim, k)
		}
		claims[k] = v
	}

	now := m.config.Now()
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(opts.ExpiresIn))
	if opts.NotBefore > 0 {
		claims["nbf"] = jwt.NewNumericDate(now.Add(opts.NotBefore))
	}
	if opts.Issuer != "" {
		claims["iss"] = opts.Issuer
	}
	if opts.Subject != "" {
		claims["sub"] = opts.Subject
	}
	switch len(opts.Audience) {
	case 0:
	case 1:
		claims["aud"] = opts.Audience[0]
	default:
		claims["aud"] = append([]string(nil), opts.Audience...)
	}
	if opts.JWTID != "" {
		claims["jti"] = opts.JWTID
	}

	token := jwt.NewWithClaims(method, claims)
	if kid := strings.TrimSpace(opts.KeyID); kid != "" {
		token.Header["kid"] = kid
	}

	signKey, err := signKey(opts.Method, secret)
	if err != nil {
		return "", err
	}
	return token.SignedString(signKey)
}

// Parse verifies signature, expiry and iat policy and returns the decoded claims.
// Tokens without exp are rejected.
func (m *Manager) Parse(tokenStr string, secret []byte) (map[string]any, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	// Numbers stay json.Number so integer claims above 2^53 come back digit for digit.
	options := []jwt.ParserOption{
		jwt.WithValidMethods(m.allowed),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Now),
		jwt.WithJSONNumber(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return secret, nil
		case *jwt.SigningMethodEd25519:
			if priv, err := parseEdPrivateKey(secret); err == nil {
				return priv.Public(), nil
			}
			return parseEdPublicKey(secret)
		default:
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if m.config.RequireIAT {
		if _, ok := claims["iat"]; !ok {
			return nil, errors.New("token missing iat")
		}
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		maxAllowed := m.config.Now().Add(m.config.MaxFutureIAT)
		if iat.Time.After(maxAllowed) {
			return nil, errors.New("token iat too far in the future")
		}
	}

	return map[string]any(claims), nil
}

// IsReservedClaim reports whether name is owned by the signer.
func IsReservedClaim(name string) bool {
	for _, r := range ReservedClaims {
		if r == name {
			return true
		}
	}
	return false
}

// ParseMethod maps a config string ("HS256", "hs256", "EdDSA", ...) to a SigningMethod.
func ParseMethod(s string) (SigningMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hs256":
		return MethodHS256, nil
	case "hs384":
		return MethodHS384, nil
	case "hs512":
		return MethodHS512, nil
	case "ed25519", "eddsa":
		return MethodEd25519, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMethod, s)
	}
}

func (s SigningMethod) jwtMethod() (jwt.SigningMethod, error) {
	switch s {
	case MethodHS256:
		return jwt.SigningMethodHS256, nil
	case MethodHS384:
		return jwt.SigningMethodHS384, nil
	case MethodHS512:
		return jwt.SigningMethodHS512, nil
	case MethodEd25519:
		return jwt.SigningMethodEdDSA, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, s)
	}
}

func signKey(method SigningMethod, secret []byte) (interface{}, error) {
	switch method {
	case MethodEd25519:
		return parseEdPrivateKey(secret)
	default:
		return secret, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
