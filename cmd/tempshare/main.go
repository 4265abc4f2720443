// Command tempshare runs the temporary file sharing gateway.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/tempshare/api"
	"github.com/dmitrymomot/tempshare/pkg/config"
	"github.com/dmitrymomot/tempshare/pkg/httpserver"
	"github.com/dmitrymomot/tempshare/pkg/logger"
	"github.com/dmitrymomot/tempshare/pkg/registry"
	"github.com/dmitrymomot/tempshare/pkg/requestid"
	"github.com/dmitrymomot/tempshare/pkg/share"
)

// AppConfig holds the service settings.
type AppConfig struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Name string `env:"APP_NAME" envDefault:"tempshare"`

	StorageDir      string `env:"STORAGE_DIR" envDefault:"./temp_files"`
	DefaultProvider string `env:"DEFAULT_PROVIDER" envDefault:"local"`

	RegistryBackend string `env:"REGISTRY_BACKEND" envDefault:"file"` // file, memory, redis, mongo, postgres
	RegistryPath    string `env:"REGISTRY_PATH" envDefault:"./temp_files.json"`
	RegistryName    string `env:"REGISTRY_NAME" envDefault:"registry"`

	MaxUploadSize        int64 `env:"MAX_UPLOAD_SIZE" envDefault:"0"`
	MaxExpirationMinutes int   `env:"MAX_EXPIRATION" envDefault:"43200"`
	MultipartMemory      int64 `env:"MULTIPART_MEMORY" envDefault:"10485760"`

	SweepInterval       time.Duration `env:"SWEEP_INTERVAL" envDefault:"0s"`
	SweepGrace          time.Duration `env:"SWEEP_GRACE" envDefault:"1h"`
	SweepQuotaExhausted bool          `env:"SWEEP_QUOTA_EXHAUSTED" envDefault:"false"`

	LinkCacheSize int           `env:"LINK_CACHE_SIZE" envDefault:"0"`
	LinkCacheTTL  time.Duration `env:"LINK_CACHE_TTL" envDefault:"5m"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("tempshare stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg AppConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithContextExtractors(requestid.LogExtractor()),
	)
	logger.SetAsDefault(log)

	doc, err := openDocument(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer doc.close()

	files, err := registry.Open(ctx, doc.store, registry.WithLogger(log))
	if err != nil {
		return err
	}

	backends, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := share.New(files, backends,
		share.WithLogger(log),
		share.WithMetrics(share.NewMetrics(reg)),
		share.WithDefaultProvider(cfg.DefaultProvider),
		share.WithMaxUploadSize(cfg.MaxUploadSize),
		share.WithMaxExpirationMinutes(cfg.MaxExpirationMinutes),
		share.WithLinkCache(cfg.LinkCacheSize, cfg.LinkCacheTTL),
	)
	if err != nil {
		return err
	}

	gateway, err := api.New(svc,
		api.WithLogger(log),
		api.WithMetricsRegistry(reg),
		api.WithReadinessChecks(doc.checks...),
		api.WithMaxUploadSize(cfg.MaxUploadSize),
		api.WithMultipartMemory(cfg.MultipartMemory),
	)
	if err != nil {
		return err
	}

	var srvCfg httpserver.Config
	if err := config.Load(&srvCfg); err != nil {
		return err
	}
	server := httpserver.New(srvCfg, httpserver.WithLogger(log))

	sweeper := share.NewSweeper(svc, cfg.SweepInterval,
		share.WithSweepGrace(cfg.SweepGrace),
		share.WithSweepQuotaExhausted(cfg.SweepQuotaExhausted),
	)

	log.InfoContext(ctx, "tempshare starting",
		slog.Any("providers", svc.Providers()),
		slog.String("default_provider", svc.DefaultProvider()),
		slog.String("registry_backend", cfg.RegistryBackend),
		slog.Int("files", files.Len()),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweeper.Run(ctx)
	})
	g.Go(func() error {
		err := server.Run(ctx, gateway.Router())
		stop()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
