// Package internaldefs holds the metric names, label sets and bucket bounds
// shared by the Prometheus and OTel exporters.
//
// Authorize and Verify counters are exported as families labelled by outcome,
// lookup-stage results are broken down per network, and audit drops per reason.
// Network labels come from the registry frozen at build time, so cardinality is
// bounded by the configured networks.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
