package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/OCAP2/geoanchor/internal/api"
	"github.com/OCAP2/geoanchor/internal/config"
	"github.com/OCAP2/geoanchor/internal/influx"
	"github.com/OCAP2/geoanchor/internal/monitor"
	"github.com/OCAP2/geoanchor/internal/placement"
	"github.com/OCAP2/geoanchor/internal/render"
	"github.com/OCAP2/geoanchor/internal/storage"
	"github.com/OCAP2/geoanchor/internal/tracker"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// rendererSet is the renderer handed to the manager plus the optional
// session listener and closer of the concrete renderer behind it.
type rendererSet struct {
	Renderer placement.Renderer
	Listener tracker.SessionListener
	close    func() error
}

func (r rendererSet) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

func newRenderer(cfg config.RenderConfig, logger *slog.Logger) (rendererSet, error) {
	switch cfg.Type {
	case "stream":
		stream := render.NewStream(render.StreamConfig{
			URL:        cfg.Stream.URL,
			Secret:     cfg.Stream.Secret,
			AckTimeout: cfg.Stream.AckTimeout,
		}, logger)
		if err := stream.Init(); err != nil {
			return rendererSet{}, fmt.Errorf("failed to connect to render client: %w", err)
		}
		logger.Info("Stream renderer connected", "url", cfg.Stream.URL)
		return rendererSet{
			Renderer: render.NewLogged(stream, logger),
			Listener: stream,
			close:    stream.Close,
		}, nil

	case "scene", "":
		scene := render.NewScene(afero.NewOsFs(), cfg.ModelDir)
		logger.Info("Scene renderer initialized", "modelDir", cfg.ModelDir)
		return rendererSet{Renderer: render.NewLogged(scene, logger)}, nil

	default:
		return rendererSet{}, fmt.Errorf("unknown renderer type %q", cfg.Type)
	}
}

// connectInflux returns nil when telemetry is disabled. An unreachable
// server still yields a manager writing to the local backup file.
func connectInflux(ctx context.Context, cfg config.InfluxConfig, log zerolog.Logger) *influx.Manager {
	if !cfg.Enabled {
		return nil
	}
	m := influx.NewManager(cfg, log)
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.Connect(connectCtx); err != nil {
		Logger.Error("Failed to set up InfluxDB telemetry", "error", err)
		return nil
	}
	Logger.Info("InfluxDB telemetry ready", "url", m.URL(), "online", m.IsValid())
	return m
}

func uploadSession(ctx context.Context, cfg config.APIConfig, backend storage.Backend) error {
	up, ok := backend.(storage.Uploadable)
	if !ok {
		Logger.Info("Storage backend does not export files, nothing to upload")
		return nil
	}
	path := up.GetExportedFilePath()
	if path == "" {
		return fmt.Errorf("no exported session file")
	}

	client := api.New(cfg.ServerURL, cfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		return fmt.Errorf("frontend is offline: %w", err)
	}
	if err := client.Upload(ctx, path, up.GetExportMetadata()); err != nil {
		return err
	}
	Logger.Info("Uploaded session", "file", path, "server", cfg.ServerURL)
	return nil
}

// monitorHandle stops the status monitor and the metrics server together.
type monitorHandle struct {
	svc    *monitor.Service
	server *http.Server
}

func (m monitorHandle) Stop() {
	m.svc.Stop()
	if m.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.server.Shutdown(ctx); err != nil {
		Logger.Warn("Failed to stop metrics server", "error", err)
	}
}

func startMonitor(svc *tracker.Service, backend storage.Backend, queue monitor.PendingCounter) (monitorHandle, error) {
	deps := monitor.Dependencies{
		LogManager: SlogManager,
		Tracker:    svc,
		Storage:    pendingCounter(backend),
		Queue:      queue,
		Path:       statusFile,
	}

	var server *http.Server
	if metricsAddr != "" {
		collector, err := monitor.NewCollector(nil)
		if err != nil {
			return monitorHandle{}, fmt.Errorf("failed to register metrics: %w", err)
		}
		deps.Metrics = collector

		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		server = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				Logger.Error("Metrics server failed", "error", err)
			}
		}()
		Logger.Info("Serving Prometheus metrics", "addr", metricsAddr)
	}

	mon := monitor.NewService(deps)
	if err := mon.Start(); err != nil {
		return monitorHandle{}, err
	}
	return monitorHandle{svc: mon, server: server}, nil
}

// pendingCounter exposes the write queue of DB backends to the monitor.
func pendingCounter(b storage.Backend) monitor.PendingCounter {
	if p, ok := b.(monitor.PendingCounter); ok {
		return p
	}
	return nil
}
