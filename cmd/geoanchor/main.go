package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/OCAP2/geoanchor/internal/config"
	"github.com/OCAP2/geoanchor/internal/dispatcher"
	"github.com/OCAP2/geoanchor/internal/logging"
	intOtel "github.com/OCAP2/geoanchor/internal/otel"
	"github.com/OCAP2/geoanchor/internal/parser"
	"github.com/OCAP2/geoanchor/internal/session"
	"github.com/OCAP2/geoanchor/internal/storage"
	"github.com/OCAP2/geoanchor/internal/track"
	"github.com/OCAP2/geoanchor/internal/tracker"
	"github.com/OCAP2/geoanchor/pkg/core"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "geoanchor"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	// LogFilePath is the session log file, empty when logging to stdout
	LogFilePath string
)

// command line only flags
var (
	configDir   string
	trackFile   string
	route       string
	statusFile  string
	metricsAddr string
	realtime    bool
	version     bool
)

func registerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&configDir, "config-dir", ".", "directory containing "+config.FileName)
	fs.StringVar(&trackFile, "track-file", "", "replay a recorded JSON track instead of simulating")
	fs.StringVar(&route, "route", "", `simulate walking a route, "[[lon,lat],...]"`)
	fs.StringVar(&statusFile, "status-file", "", "periodically write the tracker status to this file")
	fs.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9464")
	fs.BoolVar(&realtime, "realtime", false, "wait track.interval between samples")
	fs.BoolVar(&version, "version", false, "print the version and exit")

	// config overrides, bound into viper under the same key
	fs.String("logLevel", "info", "log level")
	fs.String("sessionName", "walk", "session name")
	fs.String("tag", "demo", "session tag")
	fs.String("catalog.source", "builtin:tokyo-station", `catalog file, inline JSON or "builtin:<name>"`)
	fs.String("render.type", "scene", `renderer: "scene" or "stream"`)
	fs.String("storage.type", "memory", `journal backend: "memory", "sqlite" or "postgres"`)
	fs.Float64("track.distanceFilter", 3, "minimum meters between delivered samples, 0 disables")
}

func main() {
	fs := pflag.NewFlagSet(AppName, pflag.ExitOnError)
	registerFlags(fs)
	_ = fs.Parse(os.Args[1:])

	if version {
		fmt.Println(AppName, CurrentVersion, BuildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, fs); err != nil {
		if Logger != nil {
			Logger.Error("Exiting", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, fs *pflag.FlagSet) error {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", configDir)
	}
	if err := config.BindFlags(fs); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	logFile, err := openLogFile()
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err)
	} else {
		defer logFile.Close()
	}

	sessCtx := session.NewContext()
	setupLogging(logFile, sessCtx)
	defer flushTelemetry()

	// zerolog for the dispatcher and InfluxDB, as the slog chain is for the app
	zlogOut := io.Writer(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	if logFile != nil {
		zlogOut = zerolog.MultiLevelWriter(zlogOut, logFile)
	}
	zlog := zerolog.New(zlogOut).With().Timestamp().Str("app", AppName).Logger().
		Level(zerologLevel(viper.GetString("logLevel")))

	renderer, err := newRenderer(config.GetRenderConfig(), Logger)
	if err != nil {
		return err
	}
	defer renderer.Close()

	backend, err := storage.NewBackend(config.GetStorageConfig(), SlogManager)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	deps := tracker.Dependencies{
		Renderer:   renderer.Renderer,
		Listener:   renderer.Listener,
		Storage:    backend,
		Parser:     parser.NewParser(Logger, viper.GetString("catalog.dir")),
		LogManager: SlogManager,
		Session:    sessCtx,
	}
	if telemetry := connectInflux(ctx, config.GetInfluxConfig(), zlog); telemetry != nil {
		deps.Telemetry = telemetry
		defer func() {
			if err := telemetry.Close(); err != nil {
				Logger.Error("Failed to close InfluxDB", "error", err)
			}
		}()
	}

	svc, err := tracker.New(config.GetPlacementConfig(), deps)
	if err != nil {
		return err
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	registerLifecycleHandlers(d)
	svc.RegisterHandlers(d)

	if statusFile != "" || metricsAddr != "" {
		mon, err := startMonitor(svc, backend, d)
		if err != nil {
			return err
		}
		defer mon.Stop()
	}

	if _, err := d.Dispatch(dispatcher.Event{Command: tracker.CommandCatalog, Args: []string{viper.GetString("catalog.source")}}); err != nil {
		return err
	}

	samples, err := loadSamples(trackFile, route, svc.Catalog(), config.GetTrackConfig(), SessionStartTime)
	if err != nil {
		return err
	}

	if _, err := d.Dispatch(dispatcher.Event{
		Command: tracker.CommandStart,
		Args:    []string{viper.GetString("sessionName"), viper.GetString("tag")},
	}); err != nil {
		return err
	}

	feedErr := feed(ctx, d, svc, samples)
	d.Close()

	// a fatal error raised by the last queued samples
	select {
	case err := <-svc.Fatal():
		feedErr = errors.Join(feedErr, err)
	default:
	}

	if _, err := d.Dispatch(dispatcher.Event{Command: tracker.CommandEnd}); err != nil {
		Logger.Error("Failed to end session", "error", err)
	}

	if out, err := d.Dispatch(dispatcher.Event{Command: tracker.CommandStatus}); err == nil {
		fmt.Println(out)
	}

	if feedErr != nil {
		return feedErr
	}

	if config.GetAPIConfig().Upload {
		if err := uploadSession(ctx, config.GetAPIConfig(), backend); err != nil {
			Logger.Error("Failed to upload session", "error", err)
		}
	}
	return nil
}

// feed delivers samples that pass the distance filter until the input is
// exhausted, the context is cancelled or the tracker reports a fatal error.
func feed(ctx context.Context, d *dispatcher.Dispatcher, svc *tracker.Service, samples []core.DeviceSample) error {
	filter := track.NewDistanceFilter(viper.GetFloat64("track.distanceFilter"))
	interval := config.GetTrackConfig().Interval

	delivered := 0
	for _, s := range samples {
		select {
		case <-ctx.Done():
			Logger.Info("Interrupted, ending session", "delivered", delivered)
			return nil
		case err := <-svc.Fatal():
			return err
		default:
		}

		if !filter.Allow(s) {
			continue
		}
		if _, err := d.Dispatch(dispatcher.Event{Command: tracker.CommandSample, Args: sampleArgs(s), Timestamp: time.Now()}); err != nil {
			return err
		}
		delivered++

		if realtime && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
	}
	Logger.Info("Location feed finished", "samples", len(samples), "delivered", delivered)
	return nil
}

func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentVersion, BuildDate}, nil
	})

	d.Register(":GETDIR:LOG:", func(e dispatcher.Event) (any, error) {
		return LogFilePath, nil
	})
}

func openLogFile() (*os.File, error) {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, err
	}
	path := logging.LogFilePath(logsDir, AppName, viper.GetString("sessionName"), SessionStartTime)

	// keep the previous file of the same second
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	LogFilePath = path
	return f, nil
}

// setupLogging re-initializes slog with the file, OTel and Graylog outputs.
func setupLogging(logFile *os.File, sessCtx *session.Context) {
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled && logFile != nil {
		var err error
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: CurrentVersion,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      logFile,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
			MetricWriter:   logFile,
			MetricInterval: otelCfg.MetricInterval,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	opts := []logging.Option{logging.WithContext(sessCtx.LogAttrs)}
	if viper.GetBool("graylog.enabled") {
		w, err := logging.NewGELFWriter(viper.GetString("graylog.address"), AppName)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			opts = append(opts, logging.WithGELF(w))
		}
	}

	var file io.Writer
	if logFile != nil {
		file = logFile
	}
	SlogManager.Setup(file, viper.GetString("logLevel"), otelLogProvider, opts...)
	Logger = SlogManager.Logger()
	if logFile != nil {
		Logger.Info("Logging to file", "path", logFile.Name())
	}
}

func flushTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush logs", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
}

func zerologLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}
