// Content metrics API server
//
// Usage:
//
//	server                      Start the HTTP server
//	server -config server.yaml  Start with a config file
//	server -migrate             Run database migrations and exit
//	server -seed entries.json   Insert development entries before serving
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/contentmetrics/contentmetrics/internal/api"
	"github.com/contentmetrics/contentmetrics/internal/auth"
	"github.com/contentmetrics/contentmetrics/internal/config"
	"github.com/contentmetrics/contentmetrics/internal/counts"
	"github.com/contentmetrics/contentmetrics/internal/db"
	"github.com/contentmetrics/contentmetrics/internal/logging"
	"github.com/contentmetrics/contentmetrics/internal/metrics"
	"github.com/contentmetrics/contentmetrics/internal/schema"
	"github.com/contentmetrics/contentmetrics/internal/widget"
)

// recordStore is what the server needs from either backend.
type recordStore interface {
	counts.RecordStore
	db.EntryWriter
	api.Pinger
	io.Closer
}

func main() {
	configPath := flag.String("config", "", "Path to a config file (YAML, TOML or JSON)")
	migrateOnly := flag.Bool("migrate", false, "Run migrations and exit")
	seedPath := flag.String("seed", "", "JSON array of entries to insert at startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.WithError(err).Fatal("Failed to open record store")
	}
	defer store.Close()

	if *migrateOnly {
		log.Info("Migration-only mode, exiting")
		return
	}

	if *seedPath != "" {
		n, err := db.SeedFile(ctx, store, *seedPath)
		if err != nil {
			log.WithError(err).Fatal("Failed to seed entries")
		}
		log.WithFields(log.Fields{"file": *seedPath, "entries": n}).Info("Seeded entries")
	}

	prom := metrics.NewProm()

	registry := schema.NewRegistry()
	if err := loadSchemas(ctx, cfg.Schema, registry, prom); err != nil {
		log.WithError(err).Fatal("Failed to load content types")
	}

	opts := []counts.Option{
		counts.WithConcurrency(cfg.Counts.Concurrency),
		counts.WithObserver(prom),
	}
	if cfg.Counts.Debug {
		opts = append(opts, counts.WithDiagnostic(func(r *counts.Result) {
			body, _ := r.MarshalJSON()
			log.WithField("counts", string(body)).Debug("content counts")
		}))
	}
	aggregator := counts.NewAggregator(registry, store, opts...)

	widgets := widget.NewRegistry()
	if err := widgets.Register(widget.MetricsWidget(cfg.PluginID)); err != nil {
		log.WithError(err).Fatal("Failed to register widget")
	}

	if cfg.Auth.AdminEmail == "" || cfg.Auth.AdminPasswordHash == "" {
		log.Warn("No admin credentials configured; /admin/login will reject every attempt")
	}
	authSvc := auth.New(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.AdminEmail, cfg.Auth.AdminPasswordHash)

	apiServer := api.NewServer(aggregator, registry, widgets, authSvc, store, prom, api.Options{
		PluginID:  cfg.PluginID,
		RateLimit: cfg.HTTP.RateLimit,
		RateBurst: cfg.HTTP.RateBurst,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{
			"addr":     cfg.ListenAddr,
			"endpoint": "/" + cfg.PluginID + "/count",
			"store":    cfg.Store.Driver,
		}).Info("Content metrics server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server error")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}
	log.Info("Server stopped")
}

// openStore connects to the configured backend. Postgres migrations run on
// every start.
func openStore(ctx context.Context, cfg config.StoreConfig) (recordStore, error) {
	switch cfg.Driver {
	case "sqlite":
		sqlite, err := db.NewSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return sqlite, nil
	case "postgres":
		database, err := db.New(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(ctx, cfg.MigrationsDir); err != nil {
			database.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return database, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// loadSchemas fills registry from the schema directory, and keeps it in sync
// when watching is enabled.
func loadSchemas(ctx context.Context, cfg config.SchemaConfig, registry *schema.Registry, prom *metrics.Prom) error {
	system := schema.SystemTypes()

	if !cfg.Watch {
		types, err := schema.LoadDir(cfg.Dir)
		if err != nil {
			return err
		}
		for _, ct := range append(system, types...) {
			if err := registry.Register(ct); err != nil {
				return err
			}
		}
		prom.SchemaReloaded(registry.Len())
		return nil
	}

	w, err := schema.NewWatcher(cfg.Dir, registry, system)
	if err != nil {
		return err
	}
	prom.SchemaReloaded(registry.Len())
	w.OnReload = prom.SchemaReloaded
	go w.Run(ctx)
	return nil
}
