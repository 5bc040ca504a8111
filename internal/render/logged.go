package render

import (
	"log/slog"
	"time"

	"github.com/OCAP2/geoanchor/internal/placement"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// Logged wraps a renderer and logs every command.
type Logged struct {
	next   placement.Renderer
	logger *slog.Logger
}

// NewLogged decorates next.
func NewLogged(next placement.Renderer, logger *slog.Logger) *Logged {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logged{next: next, logger: logger}
}

func (l *Logged) Place(p core.Placement) (any, error) {
	start := time.Now()
	handle, err := l.next.Place(p)
	if err != nil {
		l.logger.Error("Place failed", "asset", p.Name, "id", p.AssetID, "file", p.AssetFile, "error", err)
		return nil, err
	}
	l.logger.Info("Place",
		"asset", p.Name,
		"id", p.AssetID,
		"file", p.AssetFile,
		"x", p.Translation.X, "y", p.Translation.Y, "z", p.Translation.Z,
		"took", time.Since(start))
	return handle, nil
}

func (l *Logged) Move(handle any, m core.Move) error {
	if err := l.next.Move(handle, m); err != nil {
		l.logger.Warn("Move failed", "id", m.AssetID, "error", err)
		return err
	}
	l.logger.Debug("Move", "id", m.AssetID,
		"x", m.Translation.X, "y", m.Translation.Y, "z", m.Translation.Z)
	return nil
}

func (l *Logged) Remove(handle any) error {
	if err := l.next.Remove(handle); err != nil {
		l.logger.Warn("Remove failed", "handle", handle, "error", err)
		return err
	}
	l.logger.Info("Remove", "handle", handle)
	return nil
}
