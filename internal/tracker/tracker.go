// Package tracker runs the placement manager for a session: it owns the
// catalog and device pose, feeds every sample through the manager and
// journals what happened.
package tracker

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/geoanchor/internal/cache"
	"github.com/OCAP2/geoanchor/internal/catalog"
	"github.com/OCAP2/geoanchor/internal/influx"
	"github.com/OCAP2/geoanchor/internal/logging"
	"github.com/OCAP2/geoanchor/internal/parser"
	"github.com/OCAP2/geoanchor/internal/placement"
	"github.com/OCAP2/geoanchor/internal/session"
	"github.com/OCAP2/geoanchor/internal/storage"
	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/google/uuid"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

var (
	// ErrSessionActive is returned when starting a session while one runs.
	ErrSessionActive = errors.New("session already running")
	// ErrNoSession is returned when ending a session that was never started.
	ErrNoSession = errors.New("no session running")
)

// TelemetryWriter receives tick and placement points. influx.Manager satisfies it.
type TelemetryWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// SessionListener is told when sessions start and end. The stream renderer
// uses it to announce sessions to the remote client.
type SessionListener interface {
	StartSession(s *core.Session) error
	EndSession() error
}

// Dependencies holds all dependencies for the tracker. Only Parser is
// required by the command handlers; the rest are optional.
type Dependencies struct {
	Renderer   placement.Renderer
	Listener   SessionListener
	Storage    storage.Backend
	Telemetry  TelemetryWriter
	Parser     *parser.Parser
	LogManager *logging.SlogManager
	Session    *session.Context

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service owns one placement manager and its inputs.
type Service struct {
	deps    Dependencies
	manager *placement.Manager
	pose    *Pose
	metrics *metrics

	mu      sync.RWMutex
	catalog *catalog.Catalog
	session *core.Session

	// state mirrors the manager state for log records, which can be
	// emitted while the manager holds its lock
	state atomic.Value

	tick     cache.SafeCounter
	accepted cache.SafeCounter
	skipped  cache.SafeCounter

	fatal     chan error
	fatalOnce sync.Once
}

// New creates a tracker and its placement manager.
func New(cfg placement.Config, deps Dependencies) (*Service, error) {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	pose := &Pose{}
	manager, err := placement.New(cfg, placement.Dependencies{
		Renderer: deps.Renderer,
		Pose:     pose,
		Logger:   deps.LogManager.Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create placement manager: %w", err)
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	s := &Service{
		deps:    deps,
		manager: manager,
		pose:    pose,
		metrics: m,
		fatal:   make(chan error, 1),
	}
	s.state.Store(manager.State().String())
	deps.Session.SetStateFunc(func() string { return s.state.Load().(string) })
	return s, nil
}

// Manager returns the placement manager.
func (s *Service) Manager() *placement.Manager {
	return s.manager
}

// Pose returns the device pose fed to the manager.
func (s *Service) Pose() *Pose {
	return s.pose
}

// Fatal delivers the first fatal error. The host must stop after receiving it.
func (s *Service) Fatal() <-chan error {
	return s.fatal
}

func (s *Service) fail(err error) {
	s.fatalOnce.Do(func() {
		s.metrics.fatal(err)
		s.deps.LogManager.Logger().Error("Fatal placement error", "error", err)
		s.fatal <- err
	})
}

// LoadCatalog replaces the catalog used for the next samples.
func (s *Service) LoadCatalog(c *catalog.Catalog) error {
	if c == nil {
		return errors.New("nil catalog")
	}
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.catalog = c
	if s.session != nil {
		s.session.CatalogName = c.Name
		s.session.AssetCount = c.Len()
	}
	s.mu.Unlock()

	s.deps.LogManager.Logger().Info("Catalog loaded", "catalog", c.Name, "assets", c.Len())
	return nil
}

// Catalog returns the current catalog, nil before LoadCatalog.
func (s *Service) Catalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// StartSession begins journaling under a new session.
func (s *Service) StartSession(name, tag string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return nil, ErrSessionActive
	}

	sess := &core.Session{
		UUID:      uuid.NewString(),
		Name:      name,
		Tag:       tag,
		StartTime: s.deps.Now(),
	}
	if s.catalog != nil {
		sess.CatalogName = s.catalog.Name
		sess.AssetCount = s.catalog.Len()
	}

	if s.deps.Storage != nil {
		if err := s.deps.Storage.StartSession(sess); err != nil {
			return nil, fmt.Errorf("failed to start session in storage: %w", err)
		}
	}
	if s.deps.Listener != nil {
		if err := s.deps.Listener.StartSession(sess); err != nil {
			s.deps.LogManager.Logger().Warn("Renderer did not accept session start", "error", err)
		}
	}

	s.session = sess
	s.deps.Session.SetSession(sess)
	s.deps.LogManager.Logger().Info("Session started", "name", name, "uuid", sess.UUID, "catalog", sess.CatalogName)
	return sess, nil
}

// EndSession stamps the end time and closes the journal. It returns the ended session.
func (s *Service) EndSession() (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session
	if sess == nil {
		return nil, ErrNoSession
	}
	sess.EndTime = s.deps.Now()

	var errs []error
	if s.deps.Storage != nil {
		if err := s.deps.Storage.EndSession(); err != nil {
			errs = append(errs, fmt.Errorf("failed to end session in storage: %w", err))
		}
	}
	if s.deps.Listener != nil {
		if err := s.deps.Listener.EndSession(); err != nil {
			s.deps.LogManager.Logger().Warn("Renderer did not accept session end", "error", err)
		}
	}

	s.session = nil
	s.deps.Session.SetSession(nil)
	s.deps.LogManager.Logger().Info("Session ended", "name", sess.Name, "duration", sess.Duration())
	return sess, errors.Join(errs...)
}

// ProcessSample runs one tick. It must be called from a single goroutine;
// the :SAMPLE: handler's buffered consumer is that goroutine.
func (s *Service) ProcessSample(sample core.DeviceSample) (core.Effects, error) {
	s.mu.RLock()
	cat := s.catalog
	sess := s.session
	s.mu.RUnlock()

	var assets []core.PlaceableAsset
	if cat != nil {
		assets = cat.Assets
	}

	before := s.manager.Placed()
	tick := s.tick.Inc()

	effects, err := s.manager.OnLocationUpdate(&sample, assets)

	record := core.SampleRecord{
		Time:     s.deps.Now(),
		Tick:     tick,
		Sample:   sample,
		Accepted: effects.Accepted,
		State:    s.manager.State().String(),
		Placed:   len(s.manager.Placed()),
	}
	s.state.Store(record.State)
	if record.Accepted {
		s.accepted.Inc()
	} else {
		s.skipped.Inc()
	}

	events := placementEvents(record, effects, before, cat)
	s.metrics.record(record, events)
	if sess != nil {
		s.journal(sess, record, effects, events)
	}

	if err != nil {
		if errors.Is(err, placement.ErrVisualUnavailable) || errors.Is(err, placement.ErrHalted) {
			s.fail(err)
		} else {
			s.deps.LogManager.Logger().Warn("Render command failed", "tick", tick, "error", err)
		}
		return effects, err
	}
	return effects, nil
}

// journal writes the sample and its effects to storage and telemetry.
// Failures are logged; they never stop placement.
func (s *Service) journal(sess *core.Session, record core.SampleRecord, effects core.Effects, events []core.PlacementEvent) {
	log := s.deps.LogManager.WriteLog

	if s.deps.Storage != nil {
		if err := s.deps.Storage.RecordSample(&record); err != nil {
			log("tracker:journal", fmt.Sprintf("Failed to record sample %d: %v", record.Tick, err), "ERROR")
		}
		for i := range events {
			if err := s.deps.Storage.RecordPlacementEvent(&events[i]); err != nil {
				log("tracker:journal", fmt.Sprintf("Failed to record %s of %s: %v", events[i].Kind, events[i].AssetID, err), "ERROR")
			}
		}
	}

	if s.deps.Telemetry != nil {
		if err := s.deps.Telemetry.WritePoint(influx.TickPoint(sess, record, effects)); err != nil {
			log("tracker:telemetry", fmt.Sprintf("Failed to write tick %d: %v", record.Tick, err), "WARN")
		}
		for _, e := range events {
			if err := s.deps.Telemetry.WritePoint(influx.PlacementPoint(sess, e)); err != nil {
				log("tracker:telemetry", fmt.Sprintf("Failed to write placement: %v", err), "WARN")
			}
		}
	}
}

// placementEvents turns effects into journal entries. Removed entities are
// looked up in the placed set from before the tick, the others in the catalog.
func placementEvents(record core.SampleRecord, effects core.Effects, before []core.PlacedEntity, cat *catalog.Catalog) []core.PlacementEvent {
	if effects.Empty() {
		return nil
	}

	prior := make(map[string]core.PlacedEntity, len(before))
	for _, e := range before {
		prior[e.AssetID] = e
	}
	lookup := func(id string) (core.PlaceableAsset, bool) {
		if cat == nil {
			return core.PlaceableAsset{}, false
		}
		return cat.ByID(id)
	}

	events := make([]core.PlacementEvent, 0, len(effects.ToRemove)+len(effects.ToReposition)+len(effects.ToAdd))

	for _, id := range effects.ToRemove {
		e := core.PlacementEvent{Time: record.Time, Tick: record.Tick, Kind: core.PlacementRemoved, AssetID: id}
		if p, ok := prior[id]; ok {
			e.AssetName = p.Name
			e.Coordinate = p.Coordinate
			e.Offset = p.Offset
			e.Translation = p.Translation
		}
		if a, ok := lookup(id); ok {
			e.Visual = a.Visual
		}
		events = append(events, e)
	}

	for _, mv := range effects.ToReposition {
		e := core.PlacementEvent{
			Time:        record.Time,
			Tick:        record.Tick,
			Kind:        core.PlacementMoved,
			AssetID:     mv.AssetID,
			Offset:      mv.Offset,
			Translation: mv.Translation,
		}
		if a, ok := lookup(mv.AssetID); ok {
			e.AssetName = a.Name
			e.Coordinate = a.Coordinate
			e.Visual = a.Visual
		} else if p, ok := prior[mv.AssetID]; ok {
			e.AssetName = p.Name
			e.Coordinate = p.Coordinate
		}
		events = append(events, e)
	}

	for _, p := range effects.ToAdd {
		e := core.PlacementEvent{
			Time:        record.Time,
			Tick:        record.Tick,
			Kind:        core.PlacementPlaced,
			AssetID:     p.AssetID,
			AssetName:   p.Name,
			Offset:      p.Offset,
			Translation: p.Translation,
			Visual:      p.Visual,
		}
		if a, ok := lookup(p.AssetID); ok {
			e.Coordinate = a.Coordinate
		}
		events = append(events, e)
	}
	return events
}
