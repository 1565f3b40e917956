// Galley: kitchen operations planner.
//
// Plans menus, demand, production and stock for one or more food-service
// sites and persists each day's plan for the terminal viewer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/galleyops/galley/internal/config"
	"github.com/galleyops/galley/internal/database"
	"github.com/galleyops/galley/internal/database/seed"
	"github.com/galleyops/galley/internal/forecast"
	"github.com/galleyops/galley/internal/inventory"
	"github.com/galleyops/galley/internal/metrics"
	"github.com/galleyops/galley/internal/pipeline"
	"github.com/galleyops/galley/internal/refdata"
	"github.com/galleyops/galley/internal/repository"
	"github.com/galleyops/galley/internal/tui"
	"github.com/galleyops/galley/internal/units"
	"github.com/galleyops/galley/internal/util"
)

// Build information (set via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

type options struct {
	configPath  string
	migrateOnly bool
	seedFile    string
	synthDays   int
	receiveFile string
	actuals     []actual
	from        string
	days        int
	site        string
	viewer      bool
	metricsAddr string
	debug       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&opts.migrateOnly, "migrate-only", false, "Run migrations and exit")
	flag.StringVar(&opts.seedFile, "seed", "", "Import reference data from a YAML file")
	flag.IntVar(&opts.synthDays, "synth-history", 0, "With -seed, generate this many days of observation history")
	flag.StringVar(&opts.receiveFile, "receive", "", "Receive deliveries from a YAML file before planning")
	flag.Func("actual", "Record an observed count as FORECAST_ID=COUNT (repeatable)", func(s string) error {
		a, err := parseActual(s)
		if err != nil {
			return err
		}
		opts.actuals = append(opts.actuals, a)
		return nil
	})
	flag.StringVar(&opts.from, "from", "", "First service date to plan (YYYY-MM-DD, default today)")
	flag.IntVar(&opts.days, "days", -1, "Number of days to plan (default from config, 0 skips planning)")
	flag.StringVar(&opts.site, "site", "", "Plan only this site (default all sites)")
	flag.BoolVar(&opts.viewer, "tui", false, "Open the plan viewer after planning")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Printf("galley version %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, cfgPath, err := config.Load(opts.configPath, true)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, closeLog, err := setupLogging(cfg, opts.debug)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("galley starting",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cfgPath,
	)

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		logger.Info("closing database")
		if err := db.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}()

	if opts.migrateOnly {
		logger.Info("migrations complete, exiting")
		return nil
	}

	store := repository.NewStore(db.DB)

	if opts.seedFile != "" {
		if err := seedStore(ctx, store, opts, logger); err != nil {
			return err
		}
	}

	var collector *metrics.Collector
	addr := opts.metricsAddr
	if addr == "" && cfg.Metrics.Enabled {
		addr = cfg.Metrics.ListenAddr
	}
	if addr != "" {
		collector = metrics.NewCollector()
		shutdown := serveMetrics(addr, collector, logger)
		defer shutdown()
	}

	loc, err := time.LoadLocation(cfg.Kitchen.Timezone)
	if err != nil {
		logger.Warn("unknown kitchen timezone, using UTC", "timezone", cfg.Kitchen.Timezone)
		loc = time.UTC
	}
	from := util.StartOfDay(time.Now().In(loc))
	if opts.from != "" {
		if from, err = util.ParseDate(opts.from); err != nil {
			return fmt.Errorf("parsing -from: %w", err)
		}
	}
	days := opts.days
	if days < 0 {
		days = cfg.Planning.HorizonDays
	}

	sites, err := siteIDs(ctx, store, opts.site)
	if err != nil {
		return err
	}

	if len(opts.actuals) > 0 {
		if err := recordActuals(ctx, store, opts.actuals, logger); err != nil {
			return err
		}
	}

	if opts.receiveFile != "" || days > 0 {
		planner, err := newPlanner(ctx, cfg, store, collector, logger)
		if err != nil {
			return err
		}
		if opts.receiveFile != "" {
			if err := receive(ctx, planner.Engine(), opts.receiveFile, from, logger); err != nil {
				return err
			}
		}
		if days > 0 {
			if err := plan(ctx, planner, from, days, sites, logger); err != nil {
				return err
			}
		}
	}

	if opts.viewer {
		site := cfg.Kitchen.DefaultSite
		if opts.site != "" {
			site = opts.site
		}
		tui.Version = Version
		tui.BuildTime = BuildTime
		logger.Info("starting plan viewer", "site", site, "date", util.FormatDate(from))
		if err := tui.Run(ctx, store.Plans, cfg, site, from, tui.WithLogger(logger)); err != nil {
			return fmt.Errorf("plan viewer: %w", err)
		}
	}

	logger.Info("galley shutdown complete")
	return nil
}

func setupLogging(cfg *config.Config, debug bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	} else {
		switch cfg.Logging.Level {
		case config.LogLevelDebug:
			level = slog.LevelDebug
		case config.LogLevelWarn:
			level = slog.LevelWarn
		case config.LogLevelError:
			level = slog.LevelError
		}
	}

	logPath, err := config.EnsureLogDir(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	var handler slog.Handler
	closeFn := func() {}
	if logPath != "" {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		closeFn = func() { logFile.Close() }
		handler = slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*database.DB, error) {
	dbPath, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("ensuring data directory: %w", err)
	}

	backupDir, err := config.BackupDir(cfg)
	if err != nil {
		logger.Warn("failed to create backup directory", "error", err)
		backupDir = ""
	}

	report, err := database.Recover(ctx, dbPath, backupDir, logger)
	if err != nil {
		logger.Error("database recovery failed", "path", dbPath, "steps", len(report.Steps))
		return nil, fmt.Errorf("database recovery failed: %w", err)
	}
	switch report.Outcome {
	case database.RecoveryRestored:
		logger.Warn("database restored from backup", "backup", report.BackupUsed, "preserved", report.Preserved)
	case database.RecoveryWAL:
		logger.Warn("database recovered by WAL checkpoint")
	default:
		logger.Debug("database integrity verified")
	}

	db, err := database.Open(dbPath, cfg.Database, backupDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	migrator, err := database.NewMigrator(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	applied, err := migrator.Up(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("applied migrations",
			"count", len(applied),
			"to_version", applied[len(applied)-1].Version,
		)
	}

	if err := db.HealthCheck(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database health check: %w", err)
	}
	if stats, err := db.GetStats(ctx); err == nil {
		logger.Info("database ready",
			"path", stats.Path,
			"schema_version", stats.SchemaVersion,
			"size_bytes", stats.SizeBytes,
			"wal_bytes", stats.WALSizeBytes,
			"journal_mode", stats.JournalMode,
		)
	}
	return db, nil
}

func seedStore(ctx context.Context, store *repository.Store, opts options, logger *slog.Logger) error {
	ds, err := refdata.LoadFile(opts.seedFile)
	if err != nil {
		return fmt.Errorf("loading reference data: %w", err)
	}
	stats, err := store.Import(ctx, ds)
	if err != nil {
		return fmt.Errorf("importing reference data: %w", err)
	}
	logger.Info("reference data imported",
		"file", opts.seedFile,
		"sites", stats.Sites,
		"ingredients", stats.Ingredients,
		"recipes", stats.Recipes,
		"cycle_menus", stats.CycleMenus,
		"overrides", stats.Overrides,
		"lots", stats.Lots,
		"observations", stats.Observations,
	)

	if opts.synthDays <= 0 {
		return nil
	}
	end := time.Now()
	if opts.from != "" {
		if end, err = util.ParseDate(opts.from); err != nil {
			return fmt.Errorf("parsing -from: %w", err)
		}
	}
	seedCfg := seed.DefaultConfig(end)
	seedCfg.Days = opts.synthDays
	gen, err := seed.NewGenerator(ds, seedCfg, logger)
	if err != nil {
		return fmt.Errorf("preparing history generator: %w", err)
	}
	hist, err := gen.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generating history: %w", err)
	}
	n, err := store.RecordHistory(ctx, hist.Census, hist.Selections, hist.Usage)
	if err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	logger.Info("synthetic history recorded", "days", opts.synthDays, "observations", n)
	return nil
}

func serveMetrics(addr string, collector *metrics.Collector, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}
}

func siteIDs(ctx context.Context, store *repository.Store, only string) ([]string, error) {
	if only != "" {
		if _, err := store.Sites.GetSite(ctx, only); err != nil {
			return nil, fmt.Errorf("site %s: %w", only, err)
		}
		return []string{only}, nil
	}
	sites, err := store.Sites.ListSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sites: %w", err)
	}
	ids := make([]string, len(sites))
	for i, s := range sites {
		ids[i] = s.ID
	}
	return ids, nil
}

// actual is an observed count for one forecast, given as FORECAST_ID=COUNT.
type actual struct {
	forecastID string
	count      int
}

func parseActual(s string) (actual, error) {
	id, count, ok := strings.Cut(s, "=")
	if !ok {
		return actual{}, fmt.Errorf("actual %q: want FORECAST_ID=COUNT", s)
	}
	forecastID, err := util.ParseID(strings.TrimSpace(id))
	if err != nil {
		return actual{}, fmt.Errorf("actual %q: %w", s, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n < 0 {
		return actual{}, fmt.Errorf("actual %q: count must be a non-negative integer", s)
	}
	return actual{forecastID: forecastID, count: n}, nil
}

func recordActuals(ctx context.Context, store *repository.Store, actuals []actual, logger *slog.Logger) error {
	now := time.Now()
	for _, a := range actuals {
		f, err := store.Plans.RecordActual(ctx, a.forecastID, a.count, now)
		if err != nil {
			return fmt.Errorf("recording actual: %w", err)
		}
		variance := 0
		if v := f.Variance(); v != nil {
			variance = *v
		}
		logger.Info("actual recorded",
			"forecast", a.forecastID,
			"site", f.SiteID,
			"date", util.FormatDate(f.Date),
			"forecasted", f.ForecastedCount,
			"actual", a.count,
			"variance", variance,
		)
	}
	return nil
}

func newPlanner(ctx context.Context, cfg *config.Config, store *repository.Store, collector *metrics.Collector,
	logger *slog.Logger) (*pipeline.Planner, error) {
	conv := units.NewConverter()
	n, err := store.Recipes.RegisterConversions(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("loading unit conversions: %w", err)
	}
	logger.Debug("unit conversions registered", "count", n)
	return pipeline.NewPlanner(store.Sources(), plannerOptions(cfg, conv, collector, logger)), nil
}

func receive(ctx context.Context, engine *inventory.Engine, path string, asOf time.Time, logger *slog.Logger) error {
	lots, err := refdata.LoadDeliveriesFile(path)
	if err != nil {
		return fmt.Errorf("loading deliveries: %w", err)
	}
	for _, lot := range lots {
		if lot.ReceivedDate.IsZero() {
			lot.ReceivedDate = asOf
		}
		got, err := engine.Receive(ctx, lot)
		if err != nil {
			return fmt.Errorf("receiving %s at %s: %w", lot.IngredientID, lot.SiteID, err)
		}
		level, err := engine.OnHand(ctx, got.IngredientID, got.SiteID, asOf)
		if err != nil {
			return err
		}
		fmt.Printf("received %-12s %-10s %8.2f %-4s lot %s  on hand %.2f (%d lots)\n",
			got.IngredientID, got.SiteID, lot.Quantity, got.Unit, got.ID, level.Usable, level.Lots)
	}
	logger.Info("deliveries received", "file", path, "lots", len(lots))
	return nil
}

func plan(ctx context.Context, planner *pipeline.Planner, from time.Time, days int, sites []string, logger *slog.Logger) error {
	if len(sites) == 0 {
		logger.Warn("no sites to plan; import reference data with -seed")
		return nil
	}

	plans, err := planner.PlanRange(ctx, from, days, sites)
	if err != nil {
		return err
	}

	for _, p := range plans {
		lines := 0
		if p.PurchaseOrder != nil {
			lines = len(p.PurchaseOrder.Lines)
		}
		fmt.Printf("%s  %-10s census %5d  tasks %3d  conflicts %2d  alerts %2d  order lines %2d  food cost $%s\n",
			util.FormatDate(p.Date), p.SiteID, p.TotalCensus(), p.TaskCount(), len(p.Conflicts()),
			len(p.Alerts), lines, p.EstimatedFoodCost().StringFixed(2))
	}
	return nil
}

func plannerOptions(cfg *config.Config, conv *units.Converter, collector *metrics.Collector, logger *slog.Logger) pipeline.Options {
	return pipeline.Options{
		Forecast: forecast.Config{
			Alpha:                   cfg.Forecast.Alpha,
			FirstPositionMultiplier: cfg.Forecast.FirstPositionMultiplier,
			CooldownDays:            cfg.Forecast.CooldownDays,
			RecencyPenalty:          cfg.Forecast.RecencyPenalty,
			ZScore:                  cfg.Forecast.ZScore,
			DefaultBaseRate:         cfg.Forecast.DefaultBaseRate,
		},
		BufferMinutes:   cfg.Production.BufferMinutes,
		HistoryDays:     cfg.Planning.HistoryDays,
		UsageWindowDays: cfg.Inventory.UsageWindowDays,
		AlertWindowDays: cfg.Inventory.AlertWindowDays,
		ServiceLevel:    cfg.Inventory.ServiceLevel,
		ApplyIssuance:   cfg.Planning.ApplyIssuance,
		Workers:         cfg.Planning.Workers,
		Converter:       conv,
		Metrics:         collector,
		Logger:          logger,
	}
}
