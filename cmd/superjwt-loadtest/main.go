package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	superjwt "github.com/MrEthical07/superjwt"
	superotel "github.com/MrEthical07/superjwt/metrics/export/otel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var secret = []byte("loadtest-secret-0123456789abcdef0123")

func main() {
	var (
		streams     = flag.Int("streams", 1000, "number of distinct streams to authorize")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (authorize + verify)")
		indexerRTT  = flag.Duration("indexer-latency", 2*time.Millisecond, "simulated indexer response time")
		redisAddr   = flag.String("redis-addr", "", "redis address for the audit stream; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *streams <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "streams, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	indexer := newFakeIndexer(*indexerRTT)
	defer indexer.Close()

	cfg := superjwt.DefaultConfig()
	cfg.Indexer.Endpoints = map[string]string{"loadnet": indexer.URL}
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 8192
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	authority, err := superjwt.New().
		WithConfig(cfg).
		WithAuditSink(superjwt.NewRedisStreamSink(client, "superjwt:loadtest", 10000)).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer authority.Close()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()
	exporter, err := superotel.NewOTelExporter(provider.Meter("superjwt-loadtest"), authority)
	if err != nil {
		fmt.Fprintf(os.Stderr, "otel exporter: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = exporter.Close() }()

	params := make([]superjwt.StreamParams, *streams)
	for i := range params {
		params[i] = superjwt.StreamParams{
			"network":  "loadnet",
			"sender":   fmt.Sprintf("0xsender%04d", i),
			"receiver": "0xservice",
			"asset":    "0xusdcx",
		}
	}

	tokens := make([]string, *streams)
	authorizeStats := runAuthorizePhase(ctx, authority, params, tokens, *ops, *concurrency)
	verifyStats := runVerifyPhase(authority, tokens, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("authorize", authorizeStats)
	printStats("verify", verifyStats)
	drops := authority.AuditDrops()
	fmt.Printf("audit dropped: full=%d canceled=%d after_close=%d\n", drops.Full, drops.Canceled, drops.Closed)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		fmt.Fprintf(os.Stderr, "collect metrics: %v\n", err)
		return
	}
	fmt.Println("---- collected metrics ----")
	printCollected(rm)
}

// printCollected prints every non-zero data point the exporter produced.
func printCollected(rm metricdata.ResourceMetrics) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					if dp.Value != 0 {
						fmt.Printf("%s%s %d\n", m.Name, labels(dp.Attributes), dp.Value)
					}
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					if dp.Value != 0 {
						fmt.Printf("%s%s %d\n", m.Name, labels(dp.Attributes), dp.Value)
					}
				}
			case metricdata.Gauge[float64]:
				for _, dp := range data.DataPoints {
					fmt.Printf("%s%s %.4f\n", m.Name, labels(dp.Attributes), dp.Value)
				}
			}
		}
	}
}

func labels(set attribute.Set) string {
	if set.Len() == 0 {
		return ""
	}
	out := "{"
	iter := set.Iter()
	for i := 0; iter.Next(); i++ {
		kv := iter.Attribute()
		if i > 0 {
			out += ","
		}
		out += string(kv.Key) + "=" + kv.Value.Emit()
	}
	return out + "}"
}

// newFakeIndexer answers every streams query with one active stream after rtt.
func newFakeIndexer(rtt time.Duration) *httptest.Server {
	body, _ := json.Marshal(map[string]any{
		"data": map[string]any{
			"streams": []map[string]string{{"id": "loadtest-stream"}},
		},
	})
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if rtt > 0 {
			time.Sleep(rtt)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
}

func runAuthorizePhase(ctx context.Context, authority *superjwt.Authority, params []superjwt.StreamParams, tokens []string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := i % len(params)
				t0 := time.Now()
				res, err := authority.Authorize(ctx, params[idx], secret, superjwt.SigningOptions{})
				d := time.Since(t0)

				mu.Lock()
				if err != nil {
					failures++
				} else {
					tokens[idx] = res.Token
				}
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runVerifyPhase(authority *superjwt.Authority, tokens []string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				token := tokens[r.Intn(len(tokens))]
				t0 := time.Now()
				_, err := authority.Verify(token, secret)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
