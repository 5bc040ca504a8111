// Package monitor periodically writes the tracker status to a file so a
// host or an operator can watch a running session.
package monitor

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/geoanchor/internal/logging"
	"github.com/OCAP2/geoanchor/internal/tracker"

	"github.com/spf13/afero"
)

// DefaultInterval between status writes.
const DefaultInterval = time.Second

// StatusSource reports the tracker status.
type StatusSource interface {
	Status() tracker.Status
}

// PendingCounter is implemented by anything with a queue: storage backends
// batching journal rows and the command dispatcher.
type PendingCounter interface {
	Pending() int
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager *logging.SlogManager
	Tracker    StatusSource
	// Storage is optional; its queue length is reported when set.
	Storage PendingCounter
	// Queue is optional; it reports events not yet handled.
	Queue PendingCounter
	// Metrics is optional; it is updated on every tick.
	Metrics *Collector
	Fs      afero.Fs
	// Path is optional when Metrics is set.
	Path     string
	Interval time.Duration
}

// Report is what gets written to the status file.
type Report struct {
	tracker.Status
	PendingWrites int `json:"pendingWrites"`
	QueuedEvents  int `json:"queuedEvents"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Report returns the current status and queue lengths.
func (s *Service) Report() Report {
	r := Report{Status: s.deps.Tracker.Status()}
	if s.deps.Storage != nil {
		r.PendingWrites = s.deps.Storage.Pending()
	}
	if s.deps.Queue != nil {
		r.QueuedEvents = s.deps.Queue.Pending()
	}
	return r
}

// WriteStatus updates the metrics and replaces the status file with the
// current report.
func (s *Service) WriteStatus() error {
	report := s.Report()
	s.deps.Metrics.Observe(report)
	if s.deps.Path == "" {
		return nil
	}

	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := afero.WriteFile(s.deps.Fs, s.deps.Path, append(b, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	if s.deps.Tracker == nil || (s.deps.Path == "" && s.deps.Metrics == nil) {
		return fmt.Errorf("monitor needs a tracker and a status path or metrics")
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "path", s.deps.Path, "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				if err := s.WriteStatus(); err != nil {
					logger.Error("Error writing final status", "error", err)
				}
				return
			case <-ticker.C:
				if err := s.WriteStatus(); err != nil {
					logger.Error("Error writing status", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the final write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()
	<-done
}
