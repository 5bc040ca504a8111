package tracker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OCAP2/geoanchor/internal/dispatcher"
	"github.com/OCAP2/geoanchor/internal/util"
)

// Host commands.
const (
	CommandStart   = ":START:"
	CommandEnd     = ":END:"
	CommandSample  = ":SAMPLE:"
	CommandPose    = ":POSE:"
	CommandCatalog = ":CATALOG:"
	CommandStatus  = ":STATUS:"
	CommandLog     = ":LOG:"
)

var errNoParser = errors.New("tracker has no parser")

// RegisterHandlers registers the host commands with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Session and catalog changes run synchronously. Samples still queued
	// when one arrives are processed against the new session or catalog.
	d.Register(CommandStart, s.handleStart, dispatcher.Logged())
	d.Register(CommandEnd, s.handleEnd, dispatcher.Logged())
	d.Register(CommandCatalog, s.handleCatalog, dispatcher.Logged())

	// Samples - buffered, one consumer keeps ticks ordered; blocking so none are lost
	d.Register(CommandSample, s.handleSample, dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())

	// Pose is read when a tick runs, not when its sample was queued
	d.Register(CommandPose, s.handlePose)
	d.Register(CommandStatus, s.handleStatus)
	d.Register(CommandLog, s.handleLog)
}

func (s *Service) handleStart(e dispatcher.Event) (any, error) {
	var name, tag string
	if len(e.Args) > 0 {
		name = util.TrimQuotes(e.Args[0])
	}
	if len(e.Args) > 1 {
		tag = util.TrimQuotes(e.Args[1])
	}
	sess, err := s.StartSession(name, tag)
	if err != nil {
		return nil, err
	}
	return sess.UUID, nil
}

func (s *Service) handleEnd(dispatcher.Event) (any, error) {
	sess, err := s.EndSession()
	if sess == nil {
		return nil, err
	}
	return sess.UUID, err
}

func (s *Service) handleCatalog(e dispatcher.Event) (any, error) {
	if s.deps.Parser == nil {
		return nil, errNoParser
	}
	c, err := s.deps.Parser.ParseCatalog(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if err := s.LoadCatalog(c); err != nil {
		return nil, err
	}
	return c.Len(), nil
}

func (s *Service) handleSample(e dispatcher.Event) (any, error) {
	if s.deps.Parser == nil {
		return nil, errNoParser
	}
	sample, err := s.deps.Parser.ParseSample(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sample: %w", err)
	}
	if _, err := s.ProcessSample(sample); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Service) handlePose(e dispatcher.Event) (any, error) {
	if s.deps.Parser == nil {
		return nil, errNoParser
	}
	v, err := s.deps.Parser.ParsePose(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pose: %w", err)
	}
	s.pose.Set(v)
	return nil, nil
}

func (s *Service) handleStatus(dispatcher.Event) (any, error) {
	b, err := json.Marshal(s.Status())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// handleLog forwards a host log line. Args: [component, message, level].
func (s *Service) handleLog(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("insufficient data fields: got %d, need at least 2", len(e.Args))
	}
	util.CleanArgs(e.Args)
	level := "INFO"
	if len(e.Args) > 2 && e.Args[2] != "" {
		level = e.Args[2]
	}
	s.deps.LogManager.WriteLog(e.Args[0], e.Args[1], level)
	return nil, nil
}
