package parser

import (
	"fmt"

	"github.com/OCAP2/geoanchor/internal/util"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// ParsePose parses the device translation in virtual space.
// Args: ["x,y,z"]
func (p *Parser) ParsePose(data []string) (core.Vec3, error) {
	if len(data) < 1 {
		return core.Vec3{}, fmt.Errorf("insufficient data fields: got %d, need 1", len(data))
	}
	util.CleanArgs(data)

	v, err := parseVec3(data[0])
	if err != nil {
		return core.Vec3{}, fmt.Errorf("error parsing translation %q: %w", data[0], err)
	}
	return core.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}
