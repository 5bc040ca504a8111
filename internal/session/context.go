// Package session holds the session currently being journaled, shared by
// the tracker and the log context handler.
package session

import (
	"log/slog"
	"sync"

	"github.com/OCAP2/geoanchor/pkg/core"
)

// NoSessionName is reported while no session is running.
const NoSessionName = "No session loaded"

// Context holds the current session and a view of the manager state
type Context struct {
	mu      sync.RWMutex
	session *core.Session
	state   func() string
}

// NewContext creates a new Context with no session
func NewContext() *Context {
	return &Context{}
}

// GetSession returns the current session, nil when none is running
func (c *Context) GetSession() *core.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// SetSession sets the current session; nil clears it
func (c *Context) SetSession(s *core.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// SetStateFunc registers the source of the manager state attribute
func (c *Context) SetStateFunc(f func() string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = f
}

// Name returns the session name or NoSessionName
func (c *Context) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return NoSessionName
	}
	return c.session.Name
}

// LogAttrs returns the attributes injected into every log record.
// It satisfies logging.ContextProvider.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var attrs []slog.Attr
	if c.session != nil {
		attrs = append(attrs, slog.String("session", c.session.UUID))
	}
	if c.state != nil {
		attrs = append(attrs, slog.String("state", c.state()))
	}
	return attrs
}
