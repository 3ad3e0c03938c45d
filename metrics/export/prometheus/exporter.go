package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	superjwt "github.com/MrEthical07/superjwt"
	"github.com/MrEthical07/superjwt/metrics/export/internaldefs"
)

// Source is what the exporter reads on every scrape. *superjwt.Authority
// satisfies it.
type Source interface {
	MetricsSnapshot() superjwt.MetricsSnapshot
	AuditDrops() superjwt.AuditDrops
}

// PrometheusExporter renders Authority metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source Source
}

// NewPrometheusExporter creates a Prometheus exporter that reads from authority.
func NewPrometheusExporter(authority *superjwt.Authority) *PrometheusExporter {
	return &PrometheusExporter{source: authority}
}

// NewPrometheusExporterFromSource creates a Prometheus exporter over any Source.
func NewPrometheusExporterFromSource(source Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render on every request.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics. Output is empty when metrics are disabled
// and no audit event was dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snap := p.source.MetricsSnapshot()
	drops := p.source.AuditDrops()
	if len(snap.Counters) == 0 && drops.Total() == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(2048)

	for _, f := range internaldefs.Families {
		writeHeader(&b, f.Name, f.Help, "counter")
		for _, s := range f.Series {
			writeSample(&b, f.Name, uintValue(snap.Counters[s.ID]), f.Label, s.LabelValue)
		}
	}

	writeHeader(&b, internaldefs.LookupFailuresName, internaldefs.LookupFailuresHelp, "counter")
	writeSample(&b, internaldefs.LookupFailuresName, uintValue(snap.Counters[superjwt.MetricLookupFailure]))

	if len(snap.Networks) > 0 {
		writeHeader(&b, internaldefs.NetworkOutcomesName, internaldefs.NetworkOutcomesHelp, "counter")
		for _, network := range internaldefs.SortedNetworks(snap.Networks) {
			for _, v := range internaldefs.NetworkOutcomeValues(snap.Networks[network]) {
				writeSample(&b, internaldefs.NetworkOutcomesName, uintValue(v.Value), "network", network, "outcome", v.Label)
			}
		}
	}

	if ratio, ok := snap.HitRatio(); ok {
		writeHeader(&b, internaldefs.StreamHitRatioName, internaldefs.StreamHitRatioHelp, "gauge")
		writeSample(&b, internaldefs.StreamHitRatioName, strconv.FormatFloat(ratio, 'g', -1, 64))
	}

	if raw, ok := snap.Histograms[superjwt.MetricAuthorizeLatency]; ok {
		cumulative := internaldefs.CumulativeBuckets(raw)
		name := internaldefs.LatencyName
		writeHeader(&b, name, internaldefs.LatencyHelp, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			writeSample(&b, name+"_bucket", uintValue(cumulative[i]), "le", le)
		}
		writeSample(&b, name+"_count", uintValue(cumulative[len(cumulative)-1]))
	}

	writeHeader(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	for _, v := range internaldefs.AuditDropValues(drops) {
		writeSample(&b, internaldefs.AuditDroppedName, uintValue(v.Value), "reason", v.Label)
	}

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

// writeSample writes one line; labels alternate name, value.
func writeSample(b *strings.Builder, name, value string, labels ...string) {
	b.WriteString(name)
	if len(labels) > 0 {
		b.WriteByte('{')
		for i := 0; i+1 < len(labels); i += 2 {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(labels[i])
			b.WriteString(`="`)
			b.WriteString(escapeLabel(labels[i+1]))
			b.WriteByte('"')
		}
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(value)
	b.WriteByte('\n')
}

func uintValue(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, `\`, `\\`)
	return strings.ReplaceAll(help, "\n", `\n`)
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return strings.ReplaceAll(v, "\n", `\n`)
}
