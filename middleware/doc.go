// Package middleware exposes HTTP middleware that admits requests carrying a
// stream-gated token issued by superjwt.Authority.
//
// # Guards
//
//   - [Guard] accepts any token that verifies under the given secret.
//   - [RequireStream] additionally pins network, receiver or asset.
//
// Each guard reads the Authorization header, calls Authority.Verify, and injects
// the verified claims into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Authority calls. It does NOT parse
// tokens itself; all signature and expiry decisions are delegated to
// Authority.Verify.
//
// # What this package must NOT do
//
//   - Query the indexer (tokens are trusted until they expire).
//   - Echo token contents or verification causes in responses.
package middleware
