package render

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/OCAP2/geoanchor/pkg/streaming"
)

// StreamConfig holds the remote render client settings.
type StreamConfig struct {
	URL        string
	Secret     string
	AckTimeout time.Duration
}

// Stream renders by sending commands to a remote client over WebSocket.
// Handles are asset ids.
type Stream struct {
	conn *connection
	cfg  StreamConfig
}

// NewStream creates a stream renderer. Call Init before use.
func NewStream(cfg StreamConfig, logger *slog.Logger) *Stream {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the render client.
func (s *Stream) Init() error {
	return s.conn.dial(s.cfg.URL, s.cfg.Secret)
}

// Close disconnects from the render client.
func (s *Stream) Close() error {
	return s.conn.close()
}

// StartSession announces the session and waits for the client ack.
func (s *Stream) StartSession(session *core.Session) error {
	data, err := streaming.Marshal(streaming.TypeStartSession, streaming.StartSessionPayload{
		SessionID:   session.UUID,
		Name:        session.Name,
		CatalogName: session.CatalogName,
		AssetCount:  session.AssetCount,
	})
	if err != nil {
		return err
	}
	s.conn.track(func(r *sceneReplay) { r.reset(data) })

	_, err = s.conn.sendAndWait(data, streaming.TypeStartSession, "", s.cfg.AckTimeout)
	return err
}

// EndSession tells the client to tear down its scene.
func (s *Stream) EndSession() error {
	data, err := streaming.Marshal(streaming.TypeEndSession, nil)
	if err != nil {
		return err
	}
	s.conn.track(func(r *sceneReplay) { r.reset(nil) })
	_, err = s.conn.sendAndWait(data, streaming.TypeEndSession, "", s.cfg.AckTimeout)
	return err
}

// Place sends a place command and waits for the client to confirm it
// loaded the model. A negative ack is ErrModelNotFound.
func (s *Stream) Place(p core.Placement) (any, error) {
	data, err := streaming.Marshal(streaming.TypePlace, streaming.NewPlacePayload(p))
	if err != nil {
		return nil, err
	}

	ack, err := s.conn.sendAndWait(data, streaming.TypePlace, p.AssetID, s.cfg.AckTimeout)
	if err != nil {
		return nil, err
	}
	if !ack.OK {
		reason := ack.Error
		if reason == "" {
			reason = "rejected by client"
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrModelNotFound, p.AssetFile, reason)
	}
	s.conn.track(func(r *sceneReplay) { r.placed(p.AssetID, data) })
	return p.AssetID, nil
}

// Move sends a move command without waiting.
func (s *Stream) Move(handle any, m core.Move) error {
	id, err := handleID(handle)
	if err != nil {
		return err
	}
	data, err := streaming.Marshal(streaming.TypeMove, streaming.MovePayload{
		AssetID:     m.AssetID,
		Translation: m.Translation,
	})
	if err != nil {
		return err
	}
	s.conn.track(func(r *sceneReplay) { r.moved(id, data) })
	s.conn.send(data)
	return nil
}

// Remove sends a remove command without waiting.
func (s *Stream) Remove(handle any) error {
	id, err := handleID(handle)
	if err != nil {
		return err
	}
	data, err := streaming.Marshal(streaming.TypeRemove, streaming.RemovePayload{AssetID: id})
	if err != nil {
		return err
	}
	s.conn.track(func(r *sceneReplay) { r.removed(id) })
	s.conn.send(data)
	return nil
}
