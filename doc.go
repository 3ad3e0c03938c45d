// Package superjwt issues short-lived JWTs that prove a Superfluid payment stream is
// live, and verifies them.
//
// Authorize queries the Superfluid subgraph for the network named in the stream
// parameters. When an active stream (positive flow rate) from sender to receiver
// in the given asset exists, it signs a token whose claims are the parameters
// themselves plus iat/exp. Verify checks signature and expiry and hands the claims
// back. Authority methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// superjwt is the public surface. It exposes [Authority], [Builder], [Config] and
// value types (StreamParams, Claims, MetricsSnapshot). Indexer transport lives in
// the indexer package and token mechanics in the jwt package.
//
// # What this package must NOT do
//
//   - Issue a token when the indexer could not be asked or did not answer.
//   - Persist or cache issued tokens, or remember which streams were authorized.
//   - Distinguish expired from forged tokens through the error kind.
package superjwt
