package superjwt

import (
	"sync/atomic"
	"time"
)

// MetricID identifies an Authority counter or histogram.
type MetricID uint16

const (
	MetricAuthorizeSuccess MetricID = iota
	MetricAuthorizeMissingParams
	MetricAuthorizeInvalidParams
	MetricAuthorizeUnsupportedNetwork
	MetricAuthorizeNoStream
	MetricAuthorizeSigningFailure
	MetricLookupFailure
	MetricVerifySuccess
	MetricVerifyFailure
	MetricAuthorizeLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters plus one latency histogram.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram

	// networks is fixed at construction; lookups need no lock.
	networks map[string]*networkCounters
}

// NetworkOutcome is the result of an authorization that reached the stream lookup.
type NetworkOutcome uint8

const (
	OutcomeIssued NetworkOutcome = iota
	OutcomeNoStream
	OutcomeLookupFailure
	networkOutcomeCount
)

// String returns the label used by exporters.
func (o NetworkOutcome) String() string {
	switch o {
	case OutcomeIssued:
		return "issued"
	case OutcomeNoStream:
		return "no_stream"
	case OutcomeLookupFailure:
		return "lookup_failure"
	default:
		return "unknown"
	}
}

type networkCounters [networkOutcomeCount]paddedCounter

// NetworkOutcomes counts lookup-stage results for one network.
type NetworkOutcomes struct {
	Issued         uint64
	NoStream       uint64
	LookupFailures uint64
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
	// Networks is keyed by network identifier; only networks known at build time
	// appear, which keeps exporter label cardinality bounded.
	Networks map[string]NetworkOutcomes
}

// NewMetrics returns a Metrics honoring cfg that also tracks lookup outcomes for
// each of networks.
func NewMetrics(cfg MetricsConfig, networks ...string) *Metrics {
	m := &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
	if cfg.Enabled && len(networks) > 0 {
		m.networks = make(map[string]*networkCounters, len(networks))
		for _, n := range networks {
			m.networks[n] = new(networkCounters)
		}
	}
	return m
}

// IncNetwork records outcome for network. Unknown networks are ignored.
func (m *Metrics) IncNetwork(network string, outcome NetworkOutcome) {
	if m == nil || !m.enabled || outcome >= networkOutcomeCount {
		return
	}
	c, ok := m.networks[network]
	if !ok {
		return
	}
	atomic.AddUint64(&c[outcome].value, 1)
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricAuthorizeLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricAuthorizeLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters; disabled metrics yield empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
			Networks:   map[string]NetworkOutcomes{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
		Networks:   make(map[string]NetworkOutcomes, len(m.networks)),
	}

	for name, c := range m.networks {
		s.Networks[name] = NetworkOutcomes{
			Issued:         atomic.LoadUint64(&c[OutcomeIssued].value),
			NoStream:       atomic.LoadUint64(&c[OutcomeNoStream].value),
			LookupFailures: atomic.LoadUint64(&c[OutcomeLookupFailure].value),
		}
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricAuthorizeLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthorizeLatency].buckets[i])
		}
		s.Histograms[MetricAuthorizeLatency] = buckets
	}

	return s
}

// HitRatio is the share of completed stream lookups that found an active stream.
// ok is false before the first lookup completes.
func (s MetricsSnapshot) HitRatio() (ratio float64, ok bool) {
	hits := s.Counters[MetricAuthorizeSuccess]
	misses := s.Counters[MetricAuthorizeNoStream]
	if hits+misses == 0 {
		return 0, false
	}
	return float64(hits) / float64(hits+misses), true
}

// Buckets are upper bounds in milliseconds: 5, 10, 25, 50, 100, 250, 500, +Inf.
// Authorize latency is dominated by the indexer round trip.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
