// Command combatsim runs combat engagements from scenario files and records them into the
// configured storage backend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/OCAP2/combatsim/internal/api"
	"github.com/OCAP2/combatsim/internal/cache"
	"github.com/OCAP2/combatsim/internal/config"
	"github.com/OCAP2/combatsim/internal/dispatcher"
	"github.com/OCAP2/combatsim/internal/influx"
	"github.com/OCAP2/combatsim/internal/logging"
	"github.com/OCAP2/combatsim/internal/monitor"
	intOtel "github.com/OCAP2/combatsim/internal/otel"
	"github.com/OCAP2/combatsim/internal/scenario"
	"github.com/OCAP2/combatsim/internal/storage"
	"github.com/OCAP2/combatsim/internal/worker"
	"github.com/OCAP2/combatsim/pkg/core"
	"github.com/OCAP2/combatsim/pkg/gamedata"
	"github.com/OCAP2/combatsim/pkg/sim"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"
)

// BuildDate and Version can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "combatsim"
)

const usage = `usage: combatsim [flags] <command> [args]

commands:
  run <scenario>...                 simulate scenarios and print their outcomes
  volleys <weapon> <unit> [level]   volleys a weapon needs to kill a fresh unit
  units                             list the unit catalog
  migrate <sqlite dump>...          copy SQLite dumps into Postgres

flags:
`

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()
	SessionID        string    = uuid.NewString()

	LogFilePath string
	LogFile     *os.File
	MetricsFile *os.File
)

// flags
var (
	configDir   = pflag.StringP("config", "c", ".", "directory containing "+config.FileName)
	logLevel    = pflag.String("log-level", "", "override logLevel")
	storageType = pflag.String("storage", "", "override storage.type (memory, sqlite, postgres, websocket)")
	maxFrames   = pflag.Int("max-frames", 0, "override sim.maxFrames")
	showVersion = pflag.BoolP("version", "v", false, "print the version and exit")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (%s), catalog %s\n", AppName, Version, BuildDate, gamedata.CatalogVersion)
		return
	}

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	setupLogging()
	defer shutdown()

	var err error
	switch args[0] {
	case "run":
		err = runScenarios(args[1:], os.Stdout)
	case "volleys":
		err = printVolleys(args[1:], os.Stdout)
	case "units":
		err = printUnits(os.Stdout)
	case "migrate":
		err = migrateDumps(args[1:])
	default:
		err = fmt.Errorf("unknown command %q", args[0])
	}
	if err != nil {
		Logger.Error("Command failed", "command", args[0], "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		shutdown()
		os.Exit(1)
	}
}

// setupLogging loads the config and opens the session log file. Logging goes to stdout
// until the file exists.
func setupLogging() {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(os.Stderr, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(*configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", *configDir)
	}
	bindFlags()

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		os.Rename(LogFilePath, LogFilePath+".old")
	}
	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	}

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled && LogFile != nil {
		metricsPath := filepath.Join(logsDir, fmt.Sprintf("%s.%s.metrics.json", AppName, SessionStartTime.Format("20060102_150405")))
		MetricsFile, err = os.Create(metricsPath)
		if err != nil {
			Logger.Warn("Failed to create metrics file, metrics disabled", "error", err)
			MetricsFile = nil
		}
		cfg := intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    LogFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		}
		if MetricsFile != nil {
			cfg.MetricWriter = MetricsFile
		}
		OTelProvider, err = intOtel.New(cfg)
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		} else {
			Logger.Info("OTel provider initialized", "file", LogFilePath, "endpoint", otelCfg.Endpoint)
		}
	}

	// Re-setup logging with file output and optional OTel
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	var out io.Writer = os.Stderr
	if LogFile != nil {
		out = LogFile
	}
	SlogManager.Setup(out, viper.GetString("logLevel"), otelLogProvider)
	SlogManager.GetRunID = func() string { return SessionID }
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath, "version", Version)
}

func bindFlags() {
	if *logLevel != "" {
		viper.Set("logLevel", *logLevel)
	}
	if *storageType != "" {
		viper.Set("storage.type", *storageType)
	}
	if *maxFrames > 0 {
		viper.Set("sim.maxFrames", *maxFrames)
	}
}

var shutdownOnce sync.Once

func shutdown() {
	shutdownOnce.Do(func() {
		if OTelProvider != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := OTelProvider.Shutdown(ctx); err != nil {
				Logger.Warn("Failed to shut down OTel provider", "error", err)
			}
		}
		if MetricsFile != nil {
			MetricsFile.Close()
		}
		if LogFile != nil {
			LogFile.Close()
		}
	})
}

func loadCatalog() (*gamedata.Catalog, error) {
	path := config.GetSimConfig().Catalog
	if path == "" {
		return gamedata.Default(), nil
	}
	cat, err := gamedata.Load(path)
	if err != nil {
		return nil, err
	}
	Logger.Info("Loaded unit catalog override", "path", path)
	return cat, nil
}

// runScenarios loads every scenario first so a typo fails before anything runs, then
// queues them all on the dispatcher and waits for the queue to drain.
func runScenarios(paths []string, out io.Writer) error {
	if len(paths) == 0 {
		return errors.New("run needs at least one scenario file")
	}
	scenarios := make([]*scenario.Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := scenario.Load(p)
		if err != nil {
			return err
		}
		scenarios = append(scenarios, s)
	}

	simCfg := config.GetSimConfig()
	rule, err := sim.ParseCooldownRule(simCfg.CooldownRule)
	if err != nil {
		return err
	}
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := createStorageBackend(config.GetStorageConfig())
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	influxManager := connectInflux(ctx)
	if influxManager != nil {
		defer influxManager.Close()
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(SlogManager.Zerolog()))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	uploader := newUploader(backend)
	var (
		runErrsMu sync.Mutex
		runErrs   []error
	)
	addRunErr := func(name string, err error) {
		runErrsMu.Lock()
		defer runErrsMu.Unlock()
		runErrs = append(runErrs, fmt.Errorf("scenario %q: %w", name, err))
	}

	outcomes := cache.NewOutcomeCache()
	running := &cache.SafeCounter{}
	SlogManager.GetRunning = running.Value

	deps := worker.Dependencies{
		LogManager:    SlogManager,
		Catalog:       cat,
		Outcomes:      outcomes,
		Running:       running,
		MaxFrames:     simCfg.MaxFrames,
		CooldownRule:  rule,
		StateInterval: simCfg.StateInterval,
		OnOutcome: func(o core.Outcome) {
			if OTelProvider != nil {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := OTelProvider.Flush(flushCtx); err != nil {
					Logger.Warn("Failed to flush OTel data", "error", err)
				}
			}
			uploader(ctx, o)
		},
		OnError: addRunErr,
	}
	if influxManager != nil {
		deps.Influx = influxManager
		deps.Bucket = viper.GetString("influx.bucket")
	}
	workerManager := worker.NewManager(deps, backend)
	workerManager.RegisterHandlers(ctx, d, simCfg.Workers, simCfg.QueueSize)

	monitorDeps := monitor.Dependencies{
		LogManager:    SlogManager,
		Running:       running,
		Outcomes:      outcomes,
		DispatchQueue: func() int { return d.QueueLen(worker.CmdRun) },
		Interval:      config.GetDuration("monitor.interval"),
		StatusDir:     viper.GetString("logsDir"),
		Storage:       workerManager,
	}
	if db := backendDB(backend); db != nil {
		monitorDeps.DB = db
	}
	if influxManager != nil {
		monitorDeps.Influx = influxManager
	}
	monitorService := monitor.NewService(monitorDeps)
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Failed to start monitor", "error", err)
	}
	defer monitorService.Stop()

	for _, s := range scenarios {
		if _, err := d.Dispatch(dispatcher.Event{Command: worker.CmdRun, Payload: s}); err != nil {
			Logger.Error("Failed to queue scenario", "name", s.Name, "error", err)
			addRunErr(s.Name, err)
		}
	}
	d.Close()

	all := outcomes.All()
	if len(all) < len(scenarios) {
		Logger.Warn("Some scenarios did not finish", "queued", len(scenarios), "finished", len(all))
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(all); err != nil {
		return err
	}

	runErrsMu.Lock()
	defer runErrsMu.Unlock()
	if len(all) < len(scenarios) && len(runErrs) == 0 {
		return fmt.Errorf("%d of %d scenarios did not finish", len(scenarios)-len(all), len(scenarios))
	}
	return errors.Join(runErrs...)
}

// connectInflux returns nil when influx is disabled.
func connectInflux(ctx context.Context) *influx.Manager {
	if !viper.GetBool("influx.enabled") {
		return nil
	}
	backupPath := filepath.Join(viper.GetString("logsDir"), fmt.Sprintf("influx_backup_%s.lp.gz", SessionStartTime.Format("20060102_150405")))
	m := influx.NewManager(SlogManager.Zerolog(), backupPath)

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.Connect(connectCtx); err != nil {
		Logger.Error("Failed to connect to InfluxDB", "error", err)
		return nil
	}
	return m
}

// newUploader returns the post-run hook that sends exports to the web frontend.
func newUploader(backend storage.Backend) func(context.Context, core.Outcome) {
	if !viper.GetBool("api.upload") {
		return func(context.Context, core.Outcome) {}
	}
	u, ok := backend.(storage.Uploadable)
	if !ok {
		Logger.Warn("api.upload is set but the storage backend produces no files", "storage", viper.GetString("storage.type"))
		return func(context.Context, core.Outcome) {}
	}

	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	checkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Healthcheck(checkCtx); err != nil {
		Logger.Warn("Web frontend is not reachable, uploads may fail", "error", err)
	}

	return func(ctx context.Context, o core.Outcome) {
		if err := client.UploadEngagement(ctx, u, o.EngagementID); err != nil {
			Logger.Error("Failed to upload engagement", "id", o.EngagementID, "error", err)
			return
		}
		Logger.Info("Uploaded engagement", "id", o.EngagementID, "name", o.Name)
	}
}

// backendDB returns the GORM connection of relational backends.
func backendDB(b storage.Backend) *gorm.DB {
	if p, ok := b.(interface{ DB() *gorm.DB }); ok {
		return p.DB()
	}
	return nil
}

func printVolleys(args []string, out io.Writer) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	d, err := dispatcher.New(logging.NewDispatcherLogger(SlogManager.Zerolog()))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	defer d.Close()

	m := worker.NewManager(worker.Dependencies{LogManager: SlogManager, Catalog: cat}, nil)
	m.RegisterHandlers(context.Background(), d, 1, 1)

	res, err := d.Dispatch(dispatcher.Event{Command: worker.CmdVolleys, Args: args})
	if err != nil {
		return err
	}
	r, ok := res.(worker.VolleyResult)
	if !ok {
		return fmt.Errorf("unexpected volleys result %T", res)
	}
	if r.Volleys == sim.Unkillable {
		fmt.Fprintf(out, "%s +%d never kills %s (%.2f hp, %.2f shields per volley)\n",
			r.Weapon, r.Level, r.Target, r.PerHit.HP, r.PerHit.Shield)
		return nil
	}
	fmt.Fprintf(out, "%s +%d kills %s in %d volleys (%.2f hp, %.2f shields per volley)\n",
		r.Weapon, r.Level, r.Target, r.Volleys, r.PerHit.HP, r.PerHit.Shield)
	return nil
}

func printUnits(out io.Writer) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	units := cat.Units()
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRACE\tSIZE\tHP\tSHIELDS\tARMOR\tGROUND\tAIR")
	for _, u := range units {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			u.Name, u.Race, u.Size, u.MaxHitPoints, u.MaxShields, u.Armor,
			weaponName(u.GroundWeapon), weaponName(u.AirWeapon))
	}
	return w.Flush()
}

func weaponName(w *gamedata.WeaponType) string {
	if w == nil {
		return "-"
	}
	return w.Name
}
