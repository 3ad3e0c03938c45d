package middleware

import (
	"net/http"
	"strings"

	superjwt "github.com/MrEthical07/superjwt"
)

// StreamRequirement pins fields of the authorized stream. Empty fields match
// anything; addresses compare case-insensitively.
type StreamRequirement struct {
	Network  string
	Receiver string
	Asset    string
}

// RequireStream is Guard plus a 403 for tokens whose stream does not satisfy req,
// e.g. a stream paying some other receiver.
func RequireStream(authority *superjwt.Authority, secret []byte, req StreamRequirement) func(http.Handler) http.Handler {
	return guard(authority, secret, req.matches)
}

func (req StreamRequirement) matches(c superjwt.Claims) bool {
	return matchField(req.Network, c.Network()) &&
		matchField(req.Receiver, c.Receiver()) &&
		matchField(req.Asset, c.Asset())
}

func matchField(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}
