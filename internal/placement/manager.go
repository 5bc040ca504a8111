// Package placement keeps virtual entities anchored to real-world
// coordinates as the device moves.
package placement

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/pkg/core"
)

var (
	// ErrVisualUnavailable means the renderer could not produce a visual for
	// an asset being placed. It is fatal: the manager halts and the host is
	// expected to stop.
	ErrVisualUnavailable = errors.New("visual representation unavailable")

	// ErrHalted is returned by every update after a fatal error.
	ErrHalted = errors.New("placement manager halted")

	// ErrRender wraps failed move or remove commands. The placed set has
	// already been updated when it is returned.
	ErrRender = errors.New("render command failed")
)

// State is the manager lifecycle. It only moves forward.
type State int

const (
	StateUninitialized State = iota
	StateActive
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Renderer receives one-way commands. Handles returned by Place are opaque
// to the manager and only passed back to Move and Remove.
type Renderer interface {
	Place(p core.Placement) (any, error)
	Move(handle any, m core.Move) error
	Remove(handle any) error
}

// PoseProvider reports the device translation in virtual space.
type PoseProvider interface {
	DeviceTranslation() core.Vec3
}

// PoseFunc adapts a function to PoseProvider.
type PoseFunc func() core.Vec3

// DeviceTranslation calls f.
func (f PoseFunc) DeviceTranslation() core.Vec3 { return f() }

// Dependencies holds the manager collaborators. All are optional: without a
// renderer effects are computed but not issued, without a pose the device
// sits at the virtual origin.
type Dependencies struct {
	Renderer Renderer
	Pose     PoseProvider
	Logger   *slog.Logger
}

// Manager owns the placed entity set and runs the add/move/remove lifecycle.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	deps   Dependencies
	state  State
	placed []*core.PlacedEntity
	halted error
}

// New creates a manager in the uninitialized state.
func New(cfg Config, deps Dependencies) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{
		cfg:  cfg,
		deps: deps,
	}, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Placed returns a copy of the placed entities ordered by asset ID.
func (m *Manager) Placed() []core.PlacedEntity {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.PlacedEntity, len(m.placed))
	for i, e := range m.placed {
		out[i] = *e
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out
}

// Accepts reports whether sample would pass the gate in the current state.
func (m *Manager) Accepts(sample *core.DeviceSample) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepts(sample)
}

func (m *Manager) accepts(sample *core.DeviceSample) bool {
	if sample == nil || !sample.HasFix() {
		return false
	}
	limit := m.cfg.Setup
	if m.state == StateActive {
		limit = m.cfg.Running
	}
	return sample.HorizontalAccuracy < limit.Horizontal &&
		sample.VerticalAccuracy < limit.Vertical
}

// OnLocationUpdate runs one tick against the latest sample and the full
// catalog. Missing samples, empty catalogs and inaccurate fixes are skipped
// and return empty effects with a nil error.
//
// Once active a tick removes entities that drifted to DistanceAway or left
// the catalog, moves the survivors relative to the new sample and finally
// places unplaced assets closer than ApproachingDistance. The whole call is
// a critical section.
func (m *Manager) OnLocationUpdate(sample *core.DeviceSample, catalog []core.PlaceableAsset) (core.Effects, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.halted != nil {
		return core.Effects{}, fmt.Errorf("%w: %w", ErrHalted, m.halted)
	}
	if len(catalog) == 0 || !m.accepts(sample) {
		return core.Effects{}, nil
	}

	device := core.Vec3{}
	if m.deps.Pose != nil {
		device = m.deps.Pose.DeviceTranslation()
	}
	here := sample.Coordinate

	effects := core.Effects{Accepted: true}
	var renderErrs []error

	if m.state == StateActive {
		listed := make(map[string]struct{}, len(catalog))
		for _, a := range catalog {
			listed[a.ID] = struct{}{}
		}

		kept := make([]*core.PlacedEntity, 0, len(m.placed))
		for _, e := range m.placed {
			_, ok := listed[e.AssetID]
			if ok && geo.Distance(here, e.Coordinate) < e.DistanceAway {
				kept = append(kept, e)
				continue
			}
			effects.ToRemove = append(effects.ToRemove, e.AssetID)
			if err := m.remove(e); err != nil {
				renderErrs = append(renderErrs, err)
			}
		}
		m.placed = kept

		for _, e := range m.placed {
			e.Offset = geo.LocalOffset(here, e.Coordinate)
			e.Translation = device.Add(e.Offset)
			mv := core.Move{AssetID: e.AssetID, Offset: e.Offset, Translation: e.Translation}
			effects.ToReposition = append(effects.ToReposition, mv)
			if err := m.move(e, mv); err != nil {
				renderErrs = append(renderErrs, err)
			}
		}
	}

	present := make(map[string]struct{}, len(m.placed))
	for _, e := range m.placed {
		present[e.AssetID] = struct{}{}
	}

	var fatal []error
	for _, a := range catalog {
		if _, ok := present[a.ID]; ok {
			continue
		}
		if geo.Distance(here, a.Coordinate) >= a.ApproachingDistance {
			continue
		}

		offset := geo.LocalOffset(here, a.Coordinate)
		p := core.Placement{
			AssetID:     a.ID,
			Name:        a.Name,
			AssetFile:   a.AssetFile,
			Offset:      offset,
			Translation: device.Add(offset),
			Visual:      a.Visual,
		}
		handle, err := m.place(p)
		if err != nil {
			fatal = append(fatal, fmt.Errorf("asset %q (%s): %w", a.Name, a.AssetFile, err))
			continue
		}

		m.placed = append(m.placed, &core.PlacedEntity{
			AssetID:      a.ID,
			Name:         a.Name,
			Coordinate:   a.Coordinate,
			DistanceAway: a.DistanceAway,
			Offset:       p.Offset,
			Translation:  p.Translation,
			Handle:       handle,
		})
		present[a.ID] = struct{}{}
		effects.ToAdd = append(effects.ToAdd, p)
	}

	if m.state == StateUninitialized {
		m.deps.Logger.Info("Scene set up", "placed", len(m.placed))
		m.state = StateActive
	}

	if len(fatal) > 0 {
		m.halted = fmt.Errorf("%w: %w", ErrVisualUnavailable, errors.Join(fatal...))
		m.deps.Logger.Error("Failed to place assets, halting", "error", m.halted)
		return effects, m.halted
	}
	if len(renderErrs) > 0 {
		return effects, fmt.Errorf("%w: %w", ErrRender, errors.Join(renderErrs...))
	}
	return effects, nil
}

func (m *Manager) place(p core.Placement) (any, error) {
	if m.deps.Renderer == nil {
		return nil, nil
	}
	handle, err := m.deps.Renderer.Place(p)
	if err != nil {
		return nil, err
	}
	m.deps.Logger.Debug("Placed asset", "asset", p.Name, "id", p.AssetID, "translation", p.Translation)
	return handle, nil
}

func (m *Manager) move(e *core.PlacedEntity, mv core.Move) error {
	if m.deps.Renderer == nil {
		return nil
	}
	if err := m.deps.Renderer.Move(e.Handle, mv); err != nil {
		return fmt.Errorf("move %s: %w", e.AssetID, err)
	}
	return nil
}

func (m *Manager) remove(e *core.PlacedEntity) error {
	if m.deps.Renderer == nil {
		return nil
	}
	if err := m.deps.Renderer.Remove(e.Handle); err != nil {
		return fmt.Errorf("remove %s: %w", e.AssetID, err)
	}
	m.deps.Logger.Debug("Removed asset", "asset", e.Name, "id", e.AssetID)
	return nil
}
