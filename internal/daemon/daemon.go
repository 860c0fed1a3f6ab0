package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/studyplatform/xpd/internal/api"
	"github.com/studyplatform/xpd/internal/app/gamification"
	"github.com/studyplatform/xpd/internal/app/provider"
	"github.com/studyplatform/xpd/internal/health"
	"github.com/studyplatform/xpd/internal/infra/platform"
)

// Daemon is the xpd runtime. It wires together all services.
type Daemon struct {
	Config   Config
	Store    RecordStore
	Engine   *gamification.Engine
	Platform *platform.Client // nil when no base URL is configured
	Provider *provider.Provider
	Server   *api.Server
	Health   *health.Checker

	closeStore func() error
	closeLog   func()
	cancel     context.CancelFunc
}

// New creates and initializes a Daemon from the on-disk configuration.
func New(version string) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg, version)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config, version string) (*Daemon, error) {
	closeLog, err := setupLogging(cfg.Logging)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := OpenStore(cfg.Store)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("open store: %w", err)
	}

	engine := gamification.NewEngine(gamification.NewStore(store))

	d := &Daemon{
		Config:     cfg,
		Store:      store,
		Engine:     engine,
		closeStore: closeStore,
		closeLog:   closeLog,
	}

	// Without a platform every refresh runs on local data only.
	var source *platform.Client
	if cfg.Platform.BaseURL != "" {
		source = platform.NewClient(cfg.Platform.BaseURL, cfg.PlatformTimeout())
		d.Platform = source
	} else {
		log.Printf("[daemon] no platform.base_url configured, activity sync disabled")
	}

	if source != nil {
		d.Provider = provider.New(engine, source)
		d.Health = health.NewChecker(store, storeDataDir(cfg.Store), source)
	} else {
		d.Provider = provider.New(engine, nil)
		d.Health = health.NewChecker(store, storeDataDir(cfg.Store), nil)
	}

	auth := api.NewAuthenticator(cfg.Auth.JWTSecret)
	if !auth.Verifies() {
		log.Printf("[daemon] WARNING: auth.jwt_secret is empty, bearer tokens are decoded without signature checks")
	}

	srv := api.NewServer(d.Provider, auth)
	srv.SetVersion(version)
	srv.SetCORSOrigins(cfg.API.CORSOrigins)
	srv.SetHealth(d.Health)
	srv.SetRequestLogging(strings.EqualFold(cfg.Logging.Level, "debug"))

	// Enable Prometheus /metrics if configured
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	d.Server = srv

	return d, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Health checker (always runs)
	go d.Health.Run(ctx)

	addr := d.Config.Addr()

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     d.Server.Handler(),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: live feed connections stay open.
		IdleTimeout: 2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		log.Printf("[daemon] shutting down")
		_ = httpServer.Shutdown(shutdownCtx)
		cancel()
	}()

	fmt.Printf("xpd serving on http://%s\n", addr)
	fmt.Printf("  Store: %s\n", d.Config.Store.Driver)
	if d.Platform != nil {
		fmt.Printf("  Platform: %s\n", d.Platform.BaseURL())
	}
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.closeStore != nil {
		if err := d.closeStore(); err != nil {
			log.Printf("[daemon] close store: %v", err)
		}
	}
	if d.closeLog != nil {
		d.closeLog()
	}
}
