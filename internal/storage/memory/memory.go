// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/OCAP2/geoanchor/internal/config"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// ErrNoSession is returned when journaling before StartSession.
var ErrNoSession = errors.New("no session started")

// Backend keeps the session journal in memory and exports it to JSON
// when the session ends
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	samples    []core.SampleRecord
	placements []core.PlacementEvent

	lastExportPath string
	lastExport     core.UploadMetadata
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins journaling a new session, discarding any previous one
func (b *Backend) StartSession(session *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = session
	b.samples = nil
	b.placements = nil
	return nil
}

// EndSession stamps the end time and exports the journal
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	if b.session.EndTime.IsZero() {
		b.session.EndTime = time.Now()
	}
	return b.exportJSON()
}

// RecordSample appends a journaled sample
func (b *Backend) RecordSample(r *core.SampleRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.samples = append(b.samples, *r)
	return nil
}

// RecordPlacementEvent appends a journaled renderer command
func (b *Backend) RecordPlacementEvent(e *core.PlacementEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.placements = append(b.placements, *e)
	return nil
}

// Samples returns a copy of the journaled samples
func (b *Backend) Samples() []core.SampleRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.SampleRecord(nil), b.samples...)
}

// PlacementEvents returns a copy of the journaled renderer commands
func (b *Backend) PlacementEvents() []core.PlacementEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.PlacementEvent(nil), b.placements...)
}

// GetExportedFilePath returns the path of the last exported session file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last exported session file
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExport
}
