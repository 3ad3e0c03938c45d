// Package indexer answers one question for the token authority: does an active
// stream exist between a sender and a receiver for an asset on a given network.
//
// # Components
//
//   - [Registry]: immutable network -> subgraph endpoint table.
//   - [Client]: issues a single bounded GraphQL query per lookup.
//   - [Stream]: the only result shape consumed (an identifier).
//
// # Architecture boundaries
//
// Unknown networks are rejected with [ErrUnsupportedNetwork] before any query is
// issued. Transport and query failures never leave this package as errors: they are
// logged and reported as "no stream", so an indexer outage denies authorization
// instead of failing the caller.
//
// # What this package must NOT do
//
//   - Retry, cache, or enumerate streams.
//   - Fall back to a default network for an unknown identifier.
//   - Import superjwt (no import cycles).
package indexer
