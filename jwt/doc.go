// Package jwt signs and parses stream tokens: compact JWTs whose claims are an open
// map of stream parameters plus registered timing claims.
//
// The secret is supplied per call; a [Manager] only carries the parsing policy
// (allowed algorithms, leeway, iat checks), so one Manager serves any number of
// secrets.
package jwt
