// Package gormstorage implements the storage.Backend interface on GORM
// with internal queues and a background DB writer goroutine. The sqlite
// and postgres backends wrap it and only differ in how the DB is opened.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/geoanchor/internal/logging"
	"github.com/OCAP2/geoanchor/internal/model"
	"github.com/OCAP2/geoanchor/internal/model/convert"
	"github.com/OCAP2/geoanchor/internal/queue"
	"github.com/OCAP2/geoanchor/pkg/core"

	"gorm.io/gorm"
)

// SchemaVersion is written to geoanchor_infos on first setup.
const SchemaVersion = "1"

const (
	defaultWriteInterval = 2 * time.Second
	defaultBatchSize     = 2000
)

var (
	// ErrNoDB is returned by Init when no connection was injected.
	ErrNoDB = errors.New("no database connection")
	// ErrNoSession is returned when journaling before StartSession.
	ErrNoSession = errors.New("no session started")
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager

	// WriteInterval is how often the queues are drained. Defaults to 2s.
	WriteInterval time.Duration
	// BatchSize caps the rows written per queue per cycle. Defaults to 2000.
	BatchSize int
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Samples         *queue.Queue[model.DeviceSample]
	PlacementEvents *queue.Queue[model.PlacementEvent]
}

func newQueues() *queues {
	return &queues{
		Samples:         queue.New[model.DeviceSample](),
		PlacementEvents: queue.New[model.PlacementEvent](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	session   *core.Session
	sessionID atomic.Uint64

	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = defaultWriteInterval
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SetDB injects the connection. Wrapping backends call it before Init.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// setupDB migrates tables and records the schema version if missing.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.LogManager

	if !db.Migrator().HasTable(&model.GeoanchorInfo{}) {
		if err := db.AutoMigrate(&model.GeoanchorInfo{}); err != nil {
			log.WriteLog("setupDB", fmt.Sprintf("Failed to create geoanchor_infos table: %s", err), "ERROR")
			return fmt.Errorf("failed to auto-migrate GeoanchorInfo: %w", err)
		}
		if err := db.Create(&model.GeoanchorInfo{
			AppName:       "geoanchor",
			SchemaVersion: SchemaVersion,
		}).Error; err != nil {
			return fmt.Errorf("failed to create geoanchor_infos entry: %w", err)
		}
	}

	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS extension: %w", err)
		}
		log.WriteLog("setupDB", "PostGIS extension created", "INFO")
	}

	log.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.WriteLog("setupDB", "Database setup complete", "INFO")
	return nil
}

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return nil
}

// StartSession inserts the session row and assigns the DB-generated ID back.
func (b *Backend) StartSession(session *core.Session) error {
	if b.deps.DB == nil {
		return ErrNoDB
	}

	gormSession := convert.CoreToSession(*session)
	gormSession.ID = 0
	if err := b.deps.DB.Create(&gormSession).Error; err != nil {
		return fmt.Errorf("failed to insert new session: %w", err)
	}

	session.ID = gormSession.ID
	b.session = session
	b.sessionID.Store(uint64(gormSession.ID))
	return nil
}

// EndSession flushes pending rows and stamps the end time.
func (b *Backend) EndSession() error {
	id := uint(b.sessionID.Load())
	if id == 0 || b.session == nil {
		return ErrNoSession
	}
	if b.session.EndTime.IsZero() {
		b.session.EndTime = time.Now()
	}

	if err := b.Flush(); err != nil {
		return err
	}
	if err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).
		Update("end_time", b.session.EndTime).Error; err != nil {
		return fmt.Errorf("failed to update session end time: %w", err)
	}
	return nil
}

// RecordSample converts and queues a journaled sample.
func (b *Backend) RecordSample(r *core.SampleRecord) error {
	if b.sessionID.Load() == 0 {
		return ErrNoSession
	}
	b.queues.Samples.Push(convert.CoreToDeviceSample(*r))
	return nil
}

// RecordPlacementEvent converts and queues a journaled renderer command.
func (b *Backend) RecordPlacementEvent(e *core.PlacementEvent) error {
	if b.sessionID.Load() == 0 {
		return ErrNoSession
	}
	b.queues.PlacementEvents.Push(convert.CoreToPlacementEvent(*e))
	return nil
}

// Pending returns the number of queued rows not yet written.
func (b *Backend) Pending() int {
	return b.queues.Samples.Len() + b.queues.PlacementEvents.Len()
}

// Flush drains every queue into the DB now.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	var errs []error
	for !b.queues.Samples.Empty() || !b.queues.PlacementEvents.Empty() {
		before := b.Pending()
		if err := b.writeCycle(); err != nil {
			errs = append(errs, err)
		}
		if b.Pending() >= before {
			break
		}
	}
	return errors.Join(errs...)
}

// writeCycle writes one batch per queue, stamped with the current session ID.
func (b *Backend) writeCycle() error {
	sessionID := uint(b.sessionID.Load())
	log := b.deps.LogManager.WriteLog

	stampSamples := func(items []model.DeviceSample) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	}
	stampPlacementEvents := func(items []model.PlacementEvent) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	}

	return errors.Join(
		writeQueue(b.deps.DB, b.queues.Samples, b.deps.BatchSize, "device samples", log, stampSamples),
		writeQueue(b.deps.DB, b.queues.PlacementEvents, b.deps.BatchSize, "placement events", log, stampPlacementEvents),
	)
}

// writeQueue writes one batch from a queue in a transaction. Failed batches
// are requeued ahead of newer items.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], batchSize int, name string, log func(string, string, string), prepare func([]T)) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain(batchSize)
	if prepare != nil {
		prepare(items)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		q.Requeue(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// writeLoop periodically drains queues into the DB until Close.
func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			_ = b.Flush()
			return
		case <-ticker.C:
			if b.sessionID.Load() == 0 {
				continue
			}
			b.writeMu.Lock()
			_ = b.writeCycle()
			b.writeMu.Unlock()
		}
	}
}

// Journal reads a session and its journal back, ordered by tick.
func (b *Backend) Journal(sessionID uint) (core.Session, []core.SampleRecord, []core.PlacementEvent, error) {
	db := b.deps.DB

	var session model.Session
	if err := db.First(&session, sessionID).Error; err != nil {
		return core.Session{}, nil, nil, fmt.Errorf("failed to load session %d: %w", sessionID, err)
	}

	var samples []model.DeviceSample
	if err := db.Where("session_id = ?", sessionID).Order("tick, id").Find(&samples).Error; err != nil {
		return core.Session{}, nil, nil, fmt.Errorf("failed to load device samples: %w", err)
	}

	var events []model.PlacementEvent
	if err := db.Where("session_id = ?", sessionID).Order("tick, id").Find(&events).Error; err != nil {
		return core.Session{}, nil, nil, fmt.Errorf("failed to load placement events: %w", err)
	}

	records := make([]core.SampleRecord, len(samples))
	for i, s := range samples {
		records[i] = convert.DeviceSampleToCore(s)
	}
	placements := make([]core.PlacementEvent, len(events))
	for i, e := range events {
		placements[i] = convert.PlacementEventToCore(e)
	}
	return convert.SessionToCore(session), records, placements, nil
}
