// Command superjwt-server exposes stream-gated token issuance over HTTP.
//
// Endpoints:
//
//	POST /authorize  JSON stream description {"network","sender","receiver","asset",...}
//	POST /verify     JSON {"token":"..."}
//	GET  /protected  guarded route (requires a valid bearer token)
//	GET  /networks   supported network identifiers
//	GET  /metrics    Prometheus text exposition
//
// Configuration is read from the environment (and a .env file when present):
//
//	SUPERJWT_ENV, SUPERJWT_ADDR, SUPERJWT_SECRET, SUPERJWT_METHOD,
//	SUPERJWT_TOKEN_TTL, SUPERJWT_INDEXER_TIMEOUT, SUPERJWT_ENDPOINTS,
//	SUPERJWT_RECEIVER, SUPERJWT_METRICS, SUPERJWT_AUDIT, REDIS_ADDR,
//	SUPERJWT_AUDIT_STREAM, SUPERJWT_AUDIT_MAXLEN
//
// Run:
//
//	go run ./cmd/superjwt-server
//
// Then:
//
//	curl -i -X POST localhost:8080/authorize \
//	  -d '{"network":"mainnet","sender":"0x...","receiver":"0x...","asset":"0x..."}'
//	curl -i localhost:8080/protected -H "Authorization: Bearer <TOKEN>"
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	superjwt "github.com/MrEthical07/superjwt"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	os.Exit(serve())
}

// serve returns the process exit code so deferred flushes run before os.Exit.
func serve() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = os.Stderr.WriteString("failed to load .env: " + err.Error() + "\n")
	}

	cfg, err := loadConfig()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		return 2
	}

	logger, err := newLogger(cfg)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger init: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func newLogger(cfg serverConfig) (*zap.Logger, error) {
	if cfg.isLocal() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg serverConfig, logger *zap.Logger) error {
	builder := superjwt.New().
		WithConfig(cfg.authorityConfig()).
		WithLogger(logger).
		WithHTTPClient(&http.Client{Timeout: cfg.IndexerTimeout})

	if cfg.AuditEnabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		builder = builder.WithAuditSink(superjwt.NewRedisStreamSink(rdb, cfg.AuditStream, cfg.AuditMaxLen))
		logger.Info("audit stream enabled", zap.String("redis_addr", cfg.RedisAddr), zap.String("stream", cfg.AuditStream))
	}

	authority, err := builder.Build()
	if err != nil {
		return err
	}
	defer authority.Close()

	report := authority.SecurityReport()
	logger.Info("authority ready",
		zap.String("method", report.DefaultMethod),
		zap.Duration("token_ttl", report.DefaultExpiry),
		zap.Int("networks", report.Networks),
		zap.Bool("endpoints_pinned", report.EndpointsPinned),
		zap.Bool("audit", report.AuditEnabled),
	)

	a := &api{
		authority: authority,
		secret:    []byte(cfg.Secret),
		receiver:  cfg.Receiver,
		logger:    logger,
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.routes(cfg.MetricsEnabled),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Strings("networks", authority.Networks()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
