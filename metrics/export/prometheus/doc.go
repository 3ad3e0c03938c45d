// Package prometheus renders superjwt metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] accepts a [superjwt.Authority] and exposes an
// [http.Handler]. Authorize and Verify calls are one counter each, labelled by
// outcome; lookup results are also broken down per network, with a derived
// stream hit ratio gauge. Audit drops are labelled by reason.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate authority state.
package prometheus
