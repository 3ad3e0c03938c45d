package internaldefs

import (
	"sort"

	superjwt "github.com/MrEthical07/superjwt"
)

// Series is one labelled value of a Family.
type Series struct {
	LabelValue string
	ID         superjwt.MetricID
}

// Family is an exported counter whose series differ by a single label.
type Family struct {
	Name   string
	Help   string
	Label  string
	Series []Series
}

// AuthorizeOutcomes splits Authorize calls by how they ended.
var AuthorizeOutcomes = Family{
	Name:  "superjwt_authorize_total",
	Help:  "Authorize calls by outcome.",
	Label: "outcome",
	Series: []Series{
		{LabelValue: "issued", ID: superjwt.MetricAuthorizeSuccess},
		{LabelValue: "missing_params", ID: superjwt.MetricAuthorizeMissingParams},
		{LabelValue: "invalid_params", ID: superjwt.MetricAuthorizeInvalidParams},
		{LabelValue: "unsupported_network", ID: superjwt.MetricAuthorizeUnsupportedNetwork},
		{LabelValue: "no_stream", ID: superjwt.MetricAuthorizeNoStream},
		{LabelValue: "signing_failure", ID: superjwt.MetricAuthorizeSigningFailure},
	},
}

// VerifyResults splits Verify calls into accepted and rejected tokens.
var VerifyResults = Family{
	Name:  "superjwt_verify_total",
	Help:  "Verify calls by result.",
	Label: "result",
	Series: []Series{
		{LabelValue: "ok", ID: superjwt.MetricVerifySuccess},
		{LabelValue: "rejected", ID: superjwt.MetricVerifyFailure},
	},
}

// Families lists every single-label counter family in render order.
var Families = []Family{AuthorizeOutcomes, VerifyResults}

const (
	LookupFailuresName = "superjwt_lookup_failures_total"
	LookupFailuresHelp = "Indexer lookups that failed closed."

	// NetworkOutcomesName carries both a network and an outcome label.
	NetworkOutcomesName = "superjwt_network_authorize_total"
	NetworkOutcomesHelp = "Authorize calls that reached the stream lookup, by network and outcome."

	// StreamHitRatioName is issued / (issued + no_stream); absent before any lookup.
	StreamHitRatioName = "superjwt_stream_hit_ratio"
	StreamHitRatioHelp = "Share of completed stream lookups that found an active stream."

	AuditDroppedName = "superjwt_audit_dropped_total"
	AuditDroppedHelp = "Audit events that never reached the sink, by reason."

	LatencyName = "superjwt_authorize_latency_seconds"
	LatencyHelp = "Authorize latency, dominated by the indexer round trip."
)

// Labelled is one label value and its count.
type Labelled struct {
	Label string
	Value uint64
}

// NetworkOutcomeValues returns the counts for one network keyed by outcome label.
func NetworkOutcomeValues(o superjwt.NetworkOutcomes) []Labelled {
	return []Labelled{
		{Label: superjwt.OutcomeIssued.String(), Value: o.Issued},
		{Label: superjwt.OutcomeNoStream.String(), Value: o.NoStream},
		{Label: superjwt.OutcomeLookupFailure.String(), Value: o.LookupFailures},
	}
}

// AuditDropValues returns the drop counts keyed by reason label.
func AuditDropValues(d superjwt.AuditDrops) []Labelled {
	return []Labelled{
		{Label: "buffer_full", Value: d.Full},
		{Label: "context_canceled", Value: d.Canceled},
		{Label: "after_close", Value: d.Closed},
	}
}

// SortedNetworks returns the snapshot's network names in a stable order.
func SortedNetworks(networks map[string]superjwt.NetworkOutcomes) []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HistogramBounds are the upper bounds, in seconds, of the eight latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// CumulativeBuckets converts raw snapshot buckets, padded or truncated to eight,
// into the running totals Prometheus expects.
func CumulativeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(out); i++ {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
