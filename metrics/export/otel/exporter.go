package otel

import (
	"context"
	"errors"
	"fmt"

	superjwt "github.com/MrEthical07/superjwt"
	"github.com/MrEthical07/superjwt/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter reads on every collection. *superjwt.Authority
// satisfies it.
type Source interface {
	MetricsSnapshot() superjwt.MetricsSnapshot
	AuditDrops() superjwt.AuditDrops
}

type familyInstrument struct {
	family     internaldefs.Family
	instrument metric.Int64ObservableCounter
	attrs      []metric.ObserveOption
}

// OTelExporter publishes Authority metrics through observable instruments on a
// caller-supplied Meter. Label sets match the Prometheus exporter.
type OTelExporter struct {
	source       Source
	registration metric.Registration

	families       []familyInstrument
	lookupFailures metric.Int64ObservableCounter
	networks       metric.Int64ObservableCounter
	hitRatio       metric.Float64ObservableGauge
	latencyBuckets metric.Int64ObservableGauge
	latencyCount   metric.Int64ObservableGauge
	auditDropped   metric.Int64ObservableCounter

	bucketAttrs []metric.ObserveOption
}

// NewOTelExporter registers instruments reading from authority.
func NewOTelExporter(meter metric.Meter, authority *superjwt.Authority) (*OTelExporter, error) {
	if authority == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, authority)
}

// NewOTelExporterFromSource registers instruments reading from source.
func NewOTelExporterFromSource(meter metric.Meter, source Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable
	var err error

	for _, f := range internaldefs.Families {
		fi := familyInstrument{family: f}
		fi.instrument, err = meter.Int64ObservableCounter(f.Name, metric.WithDescription(f.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", f.Name, err)
		}
		for _, s := range f.Series {
			fi.attrs = append(fi.attrs, metric.WithAttributes(attribute.String(f.Label, s.LabelValue)))
		}
		e.families = append(e.families, fi)
		observables = append(observables, fi.instrument)
	}

	if e.lookupFailures, err = meter.Int64ObservableCounter(internaldefs.LookupFailuresName,
		metric.WithDescription(internaldefs.LookupFailuresHelp)); err != nil {
		return nil, fmt.Errorf("create counter %s: %w", internaldefs.LookupFailuresName, err)
	}
	if e.networks, err = meter.Int64ObservableCounter(internaldefs.NetworkOutcomesName,
		metric.WithDescription(internaldefs.NetworkOutcomesHelp)); err != nil {
		return nil, fmt.Errorf("create counter %s: %w", internaldefs.NetworkOutcomesName, err)
	}
	if e.hitRatio, err = meter.Float64ObservableGauge(internaldefs.StreamHitRatioName,
		metric.WithDescription(internaldefs.StreamHitRatioHelp)); err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", internaldefs.StreamHitRatioName, err)
	}
	if e.latencyBuckets, err = meter.Int64ObservableGauge(internaldefs.LatencyName+"_bucket",
		metric.WithDescription("Cumulative authorize latency bucket counts, labelled by upper bound.")); err != nil {
		return nil, fmt.Errorf("create latency bucket gauge: %w", err)
	}
	if e.latencyCount, err = meter.Int64ObservableGauge(internaldefs.LatencyName+"_count",
		metric.WithDescription("Authorize latency sample count.")); err != nil {
		return nil, fmt.Errorf("create latency count gauge: %w", err)
	}
	if e.auditDropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp)); err != nil {
		return nil, fmt.Errorf("create counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	for _, le := range internaldefs.HistogramBounds {
		e.bucketAttrs = append(e.bucketAttrs, metric.WithAttributes(attribute.String("le", le)))
	}

	observables = append(observables,
		e.lookupFailures, e.networks, e.hitRatio, e.latencyBuckets, e.latencyCount, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for _, fi := range e.families {
		for i, s := range fi.family.Series {
			o.ObserveInt64(fi.instrument, int64(snap.Counters[s.ID]), fi.attrs[i])
		}
	}
	o.ObserveInt64(e.lookupFailures, int64(snap.Counters[superjwt.MetricLookupFailure]))

	for _, network := range internaldefs.SortedNetworks(snap.Networks) {
		for _, v := range internaldefs.NetworkOutcomeValues(snap.Networks[network]) {
			o.ObserveInt64(e.networks, int64(v.Value), metric.WithAttributes(
				attribute.String("network", network),
				attribute.String("outcome", v.Label),
			))
		}
	}

	if ratio, ok := snap.HitRatio(); ok {
		o.ObserveFloat64(e.hitRatio, ratio)
	}

	if raw, ok := snap.Histograms[superjwt.MetricAuthorizeLatency]; ok {
		cumulative := internaldefs.CumulativeBuckets(raw)
		for i := range cumulative {
			o.ObserveInt64(e.latencyBuckets, int64(cumulative[i]), e.bucketAttrs[i])
		}
		o.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]))
	}

	for _, v := range internaldefs.AuditDropValues(e.source.AuditDrops()) {
		o.ObserveInt64(e.auditDropped, int64(v.Value), metric.WithAttributes(attribute.String("reason", v.Label)))
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
