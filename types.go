package superjwt

import (
	"encoding/json"
	"time"

	"github.com/MrEthical07/superjwt/indexer"
	"github.com/MrEthical07/superjwt/jwt"
)

// StreamParams identifies a stream: network (or chain), sender, receiver and asset
// (or token), plus any extension fields. Every entry is matched against the indexer
// and embedded verbatim in the issued token.
type StreamParams map[string]any

// Claims is the decoded content of a verified token: the StreamParams that were
// authorized plus registered claims (iat, exp and any optional ones).
type Claims map[string]any

// Network returns the network claim ("network", falling back to "chain").
func (c Claims) Network() string {
	n, _ := indexer.NetworkOf(c)
	return string(n)
}

// Sender returns the sender claim.
func (c Claims) Sender() string { return c.str(indexer.KeySender) }

// Receiver returns the receiver claim.
func (c Claims) Receiver() string { return c.str(indexer.KeyReceiver) }

// Asset returns the asset claim ("asset", falling back to "token").
func (c Claims) Asset() string {
	if s := c.str(indexer.KeyAsset); s != "" {
		return s
	}
	return c.str(indexer.KeyToken)
}

// ExpiresAt returns the exp claim.
func (c Claims) ExpiresAt() (time.Time, bool) { return c.unix("exp") }

// IssuedAt returns the iat claim.
func (c Claims) IssuedAt() (time.Time, bool) { return c.unix("iat") }

func (c Claims) str(key string) string {
	s, _ := c[key].(string)
	return s
}

func (c Claims) unix(key string) (time.Time, bool) {
	switch v := c[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return time.Time{}, false
			}
			n = int64(f)
		}
		return time.Unix(n, 0), true
	case float64:
		return time.Unix(int64(v), 0), true
	default:
		return time.Time{}, false
	}
}

// SigningMethod selects the token algorithm; see the jwt package constants.
type SigningMethod = jwt.SigningMethod

const (
	MethodHS256   = jwt.MethodHS256
	MethodHS384   = jwt.MethodHS384
	MethodHS512   = jwt.MethodHS512
	MethodEd25519 = jwt.MethodEd25519
)

// SigningOptions are the per-call token options. Zero values fall back to
// JWTConfig.DefaultMethod and JWTConfig.DefaultExpiry (1 hour).
type SigningOptions struct {
	Method    SigningMethod
	ExpiresIn time.Duration
	NotBefore time.Duration
	Issuer    string
	Subject   string
	Audience  []string
	KeyID     string

	// WithJWTID adds a random jti claim.
	WithJWTID bool
}

// AuthorizeResult is returned by Authority.Authorize.
type AuthorizeResult struct {
	// Token is the signed token.
	Token string
	// Stream is a copy of the parameters that were authorized.
	Stream StreamParams
}
