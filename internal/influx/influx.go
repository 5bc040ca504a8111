// Package influx writes per-tick placement telemetry to InfluxDB, falling
// back to a gzip line-protocol file when the server is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/geoanchor/internal/config"
	"github.com/OCAP2/geoanchor/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Measurements written by the manager.
const (
	MeasurementTick      = "tick"
	MeasurementPlacement = "placement"
)

// retention for buckets created on first connect
const bucketRetentionSeconds = 60 * 60 * 24 * 90

// ErrDisabled is returned by Connect when telemetry is turned off.
var ErrDisabled = errors.New("influx telemetry is disabled")

// Manager handles the InfluxDB connection and writes.
type Manager struct {
	cfg    config.InfluxConfig
	Logger zerolog.Logger

	client       influxdb2.Client
	writer       influxdb2_api.WriteAPI
	backupFile   *os.File
	backupWriter *gzip.Writer
	isValid      bool
	mu           sync.Mutex
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		Logger: log,
	}
}

// URL is the server address built from protocol, host and port.
func (m *Manager) URL() string {
	return fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port)
}

// IsValid reports whether points go to the server rather than the backup file.
func (m *Manager) IsValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isValid
}

// BackupPath is the backup file for the session started at start.
func (m *Manager) BackupPath(start time.Time) string {
	return filepath.Join(m.cfg.BackupDir, fmt.Sprintf("telemetry_%s.lp.gz", start.Format("20060102_150405")))
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer, points are written to the backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.client = influxdb2.NewClientWithOptions(
		m.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.Logger.Warn().Err(err).Str("url", m.URL()).Msg("InfluxDB unreachable, writing to backup file")
		m.client.Close()
		m.client = nil
		return m.openBackup(time.Now())
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}

	m.writer = m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.writer.Errors())

	m.isValid = true
	m.Logger.Info().Str("url", m.URL()).Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

// openBackup opens the gzip line-protocol file. Callers hold m.mu.
func (m *Manager) openBackup(start time.Time) error {
	if m.backupWriter != nil {
		return nil
	}
	if err := os.MkdirAll(m.cfg.BackupDir, 0755); err != nil {
		return fmt.Errorf("error creating backup directory: %w", err)
	}
	path := m.BackupPath(start)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backupWriter = gzip.NewWriter(file)
	m.Logger.Info().Str("backupPath", path).Msg("InfluxDB backup file opened")
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	influxOrg, err := m.client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// ensure the bucket exists with 90 day retention
	if _, err = m.client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: bucketRetentionSeconds,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isValid {
		m.writer.WritePoint(point)
		return nil
	}
	if m.backupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client or backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer != nil {
		m.writer.Flush()
		m.writer = nil
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.isValid = false

	var errs []error
	if m.backupWriter != nil {
		errs = append(errs, m.backupWriter.Close())
		m.backupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// TickPoint summarizes one location update.
func TickPoint(session *core.Session, r core.SampleRecord, effects core.Effects) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementTick).
		AddTag("session", session.UUID).
		AddTag("catalog", session.CatalogName).
		AddTag("state", r.State).
		AddField("tick", int64(r.Tick)).
		AddField("accepted", r.Accepted).
		AddField("horizontalAccuracy", r.Sample.HorizontalAccuracy).
		AddField("verticalAccuracy", r.Sample.VerticalAccuracy).
		AddField("placed", r.Placed).
		AddField("added", len(effects.ToAdd)).
		AddField("moved", len(effects.ToReposition)).
		AddField("removed", len(effects.ToRemove)).
		SetTime(r.Time)
	if r.Sample.HasFix() {
		p.AddField("latitude", r.Sample.Latitude).
			AddField("longitude", r.Sample.Longitude)
	}
	return p
}

// PlacementPoint records one renderer command.
func PlacementPoint(session *core.Session, e core.PlacementEvent) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementPlacement).
		AddTag("session", session.UUID).
		AddTag("kind", e.Kind).
		AddTag("asset", e.AssetID).
		AddField("tick", int64(e.Tick)).
		AddField("offsetX", e.Offset.X).
		AddField("offsetY", e.Offset.Y).
		AddField("offsetZ", e.Offset.Z).
		SetTime(e.Time)
}
