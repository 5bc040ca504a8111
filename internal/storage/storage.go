// internal/storage/storage.go
package storage

import "github.com/OCAP2/geoanchor/pkg/core"

// Backend is the interface all session journals must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management. EndSession uses session.EndTime when set,
	// the current time otherwise.
	StartSession(session *core.Session) error
	EndSession() error

	// Journal
	RecordSample(r *core.SampleRecord) error
	RecordPlacementEvent(e *core.PlacementEvent) error
}

// Uploadable is an optional interface for backends that produce
// session files suitable for upload to the web frontend.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
