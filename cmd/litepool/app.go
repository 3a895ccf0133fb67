package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caasmo/litepool/cache/ristretto"
	"github.com/caasmo/litepool/config"
	"github.com/caasmo/litepool/db"
	dbc "github.com/caasmo/litepool/db/crawshaw"
	dbz "github.com/caasmo/litepool/db/zombiezen"
	"github.com/caasmo/litepool/log"
	"github.com/caasmo/litepool/metrics"
	"github.com/caasmo/litepool/migrations"
	"github.com/caasmo/litepool/pool"
	"github.com/caasmo/litepool/stmtcache"
	"github.com/caasmo/litepool/topk"
)

const metricsNamespace = "litepool"

// app holds what every command needs: configuration, logging, the database
// and the statement observers.
type app struct {
	provider   *config.Provider
	configPath string
	level      *slog.LevelVar
	logger     *slog.Logger

	db         db.Db
	statements *metrics.Statements
	tracker    *topk.Tracker // nil when metrics.top_k is 0
	memo       *ristretto.Cache[string]

	daemon  *log.Daemon // nil unless log.batch.enabled
	started bool
}

func newApp(ctx context.Context, provider *config.Provider, configPath string, stderr io.Writer) (*app, error) {
	cfg := provider.Get()

	level := new(slog.LevelVar)
	level.Set(cfg.Log.Level.Level)
	base := log.NewHandler(cfg.Log.Format, level, stderr)
	// The pool and statement caches keep the loggers they are built with;
	// the switch lets enableBatchLog route them to the logs table later.
	sw := log.NewSwitch(base)
	logger := slog.New(sw)

	a := &app{
		provider:   provider,
		configPath: configPath,
		level:      level,
		logger:     logger,
		statements: metrics.NewStatements(metricsNamespace),
	}

	observers := stmtcache.Observers{a.statements}
	if cfg.Metrics.TopK > 0 {
		p := topk.DefaultParams
		p.K = cfg.Metrics.TopK
		a.tracker = topk.New(p, func(sql string, count uint32) {
			logger.Warn("hot statement", "sql", sql, "count", count)
		})
		observers = append(observers, a.tracker)
	}

	var memo *ristretto.Cache[string]
	if cfg.Cache.NormalizeCache != "" {
		var err error
		memo, err = ristretto.New[string](cfg.Cache.NormalizeCache)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOpenDb, err)
		}
		a.memo = memo
	}
	normalizer := stmtcache.NewNormalizer(nil)
	if memo != nil {
		normalizer = stmtcache.NewNormalizer(memo)
	}

	cacheOpts := stmtcache.Options{
		Order:      stmtcache.Order(cfg.Cache.Order),
		Normalizer: normalizer,
		Observer:   observers,
		Logger:     logger,
	}

	database, err := openDb(ctx, cfg, cacheOpts, logger)
	if err != nil {
		a.closeMemo()
		return nil, err
	}
	a.db = database

	if cfg.Log.Batch.Enabled {
		if err := a.enableBatchLog(ctx, base, sw); err != nil {
			return nil, errors.Join(err, a.close())
		}
	}
	return a, nil
}

// openDb opens the configured driver. Both drivers open the writer first.
func openDb(ctx context.Context, cfg *config.Config, cacheOpts stmtcache.Options, logger *slog.Logger) (db.Db, error) {
	topology := cfg.Pool.BuildTopology(pool.RuntimeProcessors)

	var (
		database db.Db
		err      error
	)
	switch cfg.Db.Driver {
	case config.DriverZombiezen:
		database, err = dbz.Open(ctx, dbz.Options{
			Path:        cfg.Db.Path,
			BusyTimeout: cfg.Db.BusyTimeout.Duration,
			Topology:    topology,
			Statements:  cfg.Cache.Statements,
			Cache:       cacheOpts,
			Logger:      logger,
		})
	case config.DriverCrawshaw:
		database, err = dbc.Open(ctx, dbc.Options{
			Path:        cfg.Db.Path,
			BusyTimeout: cfg.Db.BusyTimeout.Duration,
			Topology:    topology,
			Statements:  cfg.Cache.Statements,
			Cache:       cacheOpts,
			Logger:      logger,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Db.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%w (db_path: %s): %v", ErrOpenDb, cfg.Db.Path, err)
	}
	return database, nil
}

// enableBatchLog creates the logs table and routes records at or above
// log.batch.level to it through the log daemon. Every logger built on sw,
// including those already held by the database, follows. The daemon itself
// logs through base only.
func (a *app) enableBatchLog(ctx context.Context, base slog.Handler, sw *log.Switch) error {
	logSchema, err := fs.Sub(migrations.Schema(), "log")
	if err != nil {
		return err
	}
	if err := a.db.Migrate(ctx, logSchema); err != nil {
		return fmt.Errorf("failed to create logs table: %w", err)
	}

	daemon, err := log.NewDaemon(a.provider, slog.New(base), a.db)
	if err != nil {
		return err
	}
	recordChan, daemonCtx := daemon.Chan()
	sw.Set(log.Fanout{base, log.NewBatchHandler(a.provider, recordChan, daemonCtx)})
	a.daemon = daemon
	return nil
}

// start starts the log daemon for commands that run without the server.
func (a *app) start() error {
	if a.daemon == nil {
		return nil
	}
	if err := a.daemon.Start(); err != nil {
		return err
	}
	a.started = true
	return nil
}

// close stops the log daemon if start was called, then closes the database.
func (a *app) close() error {
	var errs []error
	if a.started {
		ctx, cancel := context.WithTimeout(context.Background(), a.provider.Get().Metrics.ShutdownTimeout.Duration)
		errs = append(errs, a.daemon.Stop(ctx))
		cancel()
		a.started = false
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	a.closeMemo()
	return errors.Join(errs...)
}

func (a *app) closeMemo() {
	if a.memo != nil {
		a.memo.Close()
		a.memo = nil
	}
}

// reload re-reads the configuration file and applies the new log level.
func (a *app) reload() error {
	if a.configPath == "" {
		return ErrNoConfigFile
	}
	if err := config.Reload(a.configPath, a.provider, a.logger); err != nil {
		return err
	}
	a.level.Set(a.provider.Get().Log.Level.Level)
	return nil
}

// operationContext bounds ctx by pool.borrow_timeout, when set.
func (a *app) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := a.provider.Get().Pool.BorrowTimeout.Duration; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// topStatements returns the hottest statements, or nil without a tracker.
func (a *app) topStatements() []topk.Item {
	if a.tracker == nil {
		return nil
	}
	return a.tracker.Top()
}

func since(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
