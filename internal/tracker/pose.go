package tracker

import (
	"sync"

	"github.com/OCAP2/geoanchor/pkg/core"
)

// Pose is the device translation in virtual space, updated by the host
// from its camera tracking and read by the manager on every tick.
type Pose struct {
	mu sync.RWMutex
	v  core.Vec3
}

// Set stores a new translation.
func (p *Pose) Set(v core.Vec3) {
	p.mu.Lock()
	p.v = v
	p.mu.Unlock()
}

// DeviceTranslation implements placement.PoseProvider.
func (p *Pose) DeviceTranslation() core.Vec3 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.v
}
