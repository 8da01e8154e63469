// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file plus FIELDFORGE_* environment
// overrides; reloadable fields take effect without a restart.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fieldforge/fieldforge/adapters/clock"
	"github.com/fieldforge/fieldforge/adapters/format"
	apihttp "github.com/fieldforge/fieldforge/adapters/http"
	"github.com/fieldforge/fieldforge/adapters/http/admin"
	"github.com/fieldforge/fieldforge/adapters/idgen"
	"github.com/fieldforge/fieldforge/adapters/memory"
	"github.com/fieldforge/fieldforge/adapters/metrics"
	"github.com/fieldforge/fieldforge/adapters/rediscache"
	"github.com/fieldforge/fieldforge/adapters/remote"
	"github.com/fieldforge/fieldforge/adapters/sqlite"
	"github.com/fieldforge/fieldforge/app"
	"github.com/fieldforge/fieldforge/config"
	"github.com/fieldforge/fieldforge/ports"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Holder     *config.Holder
	DB         *sqlite.DB
	Metrics    *metrics.Collector
	HTTPServer *http.Server

	Modules   *app.ModuleService
	Fields    *app.FieldService
	Records   *app.RecordService
	Resolver  *app.Resolver
	Exporter  *app.Exporter
	Snapshots *app.SnapshotLoader

	redisClient *redis.Client
}

// Options configures application construction.
type Options struct {
	// ConfigPath is the YAML config file. Empty falls back to
	// environment variables only.
	ConfigPath string

	// Version is the build version reported by the API.
	Version string
}

// New creates and wires the application.
func New(opts Options) (*App, error) {
	holder, err := config.NewHolderWithFallback(opts.ConfigPath, zerolog.Nop())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := holder.Get()

	logger := setupLogger(cfg)
	holder.SetLogger(logger)

	a := &App{
		Logger: logger,
		Holder: holder,
	}

	// The services record metrics unconditionally. When metrics are
	// disabled the collector writes into a private registry and the
	// /metrics route is simply not mounted.
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	} else {
		collector = metrics.NewWithRegistry(prometheus.NewRegistry())
	}
	a.Metrics = collector

	// Stores by driver.
	var (
		moduleStore ports.ModuleStore
		fieldStore  ports.FieldStore
		recordStore ports.RecordStore
		genStore    ports.GenerationStore
		auditLog    ports.AuditLog
	)
	switch cfg.Database.Driver {
	case "memory":
		moduleStore = memory.NewModuleStore()
		fieldStore = memory.NewFieldStore()
		recordStore = memory.NewRecordStore()
		genStore = memory.NewGenerationStore()
		auditLog = memory.NewAuditLog()
		logger.Info().Msg("using in-memory storage")
	default:
		db, err := sqlite.Open(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.DB = db
		moduleStore = sqlite.NewModuleStore(db)
		fieldStore = sqlite.NewFieldStore(db)
		recordStore = sqlite.NewRecordStore(db)
		genStore = sqlite.NewGenerationStore(db)
		auditLog = sqlite.NewAuditLog(db)
		logger.Info().Str("dsn", cfg.Database.DSN).Msg("database initialized")
	}

	// Snapshot cache by mode.
	var cache ports.SchemaCache
	if cfg.Cache.Mode == "redis" {
		a.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		ttl := cfg.Cache.TTL
		if ttl == 0 {
			ttl = 10 * time.Minute
		}
		cache = rediscache.New(a.redisClient, ttl)
		logger.Info().Str("addr", cfg.Cache.Redis.Addr).Msg("redis snapshot cache enabled")
	} else {
		cache = memory.NewSchemaCache()
	}

	// Native catalog: remote CRM core when configured, in-process list
	// otherwise.
	var catalog ports.NativeCatalog
	if url := cfg.Engine.NativeCatalogURL; url != "" {
		client := remote.NewClient(remote.ClientConfig{
			BaseURL: url,
			APIKey:  cfg.Engine.NativeCatalogAPIKey,
			Timeout: cfg.Engine.RelationshipTimeout,
		})
		catalog = remote.NewNativeCatalog(client, cfg.Engine.NativeModules)
		logger.Info().Str("url", url).Msg("remote native catalog enabled")
	} else {
		catalog = memory.NewNativeCatalog(cfg.Engine.NativeModules)
	}

	// Reloadable engine knobs read the holder on every use.
	batchSize := func() int { return holder.Get().Engine.CascadeBatchSize }
	timeout := func() time.Duration { return holder.Get().Engine.RelationshipTimeout }

	realClock := clock.Real{}
	snapshots := app.NewSnapshotLoader(moduleStore, fieldStore, genStore, cache, catalog, collector, logger)
	mutator := app.NewSchemaMutator(genStore, snapshots, auditLog, idgen.NewPrefixed(idgen.PrefixAudit), realClock, collector, logger)
	resolver := app.NewResolver(recordStore, fieldStore, catalog, collector, timeout, logger)

	a.Snapshots = snapshots
	a.Resolver = resolver
	a.Modules = app.NewModuleService(moduleStore, fieldStore, recordStore, mutator, catalog, idgen.NewPrefixed(idgen.PrefixModule), realClock, collector, batchSize, logger)
	a.Fields = app.NewFieldService(fieldStore, recordStore, moduleStore, mutator, catalog, idgen.NewPrefixed(idgen.PrefixField), realClock, collector, batchSize, logger)
	a.Records = app.NewRecordService(recordStore, snapshots, resolver, idgen.NewPrefixed(idgen.PrefixRecord), realClock, collector, logger)
	a.Exporter = app.NewExporter(recordStore, snapshots, format.NewPlain(), logger)

	apiHandler := apihttp.NewHandler(apihttp.Deps{
		Modules:   a.Modules,
		Fields:    a.Fields,
		Records:   a.Records,
		Resolver:  a.Resolver,
		Exporter:  a.Exporter,
		Snapshots: a.Snapshots,
		Config:    holder.Get,
		Metrics:   collector,
		Version:   opts.Version,
		Logger:    logger,
	})

	adminHandler := admin.NewHandler(admin.Deps{
		Audit:  auditLog,
		Gens:   genStore,
		Config: cfg,
		Logger: logger,
	})

	router := apiHandler.Router()
	router.Mount("/admin", adminHandler.Router())

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

// Run starts config watching and serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.Holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watching unavailable")
	}
	a.Holder.WatchSignals()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("http server listening")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.Logger.Info().Msg("shutting down")
		return a.Shutdown()
	}
}

// Shutdown stops the server and releases resources.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var firstErr error
	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		firstErr = err
	}
	a.Holder.Stop()
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func setupLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout)
	if cfg.Logging.Format == "console" {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	}
	return logger.Level(level).With().Timestamp().Logger()
}
