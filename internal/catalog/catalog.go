// Package catalog loads and validates the set of placeable assets.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/google/uuid"
)

// ErrInvalidAsset is returned when a catalog entry cannot be placed safely.
var ErrInvalidAsset = errors.New("invalid asset")

// Catalog is a named, immutable list of assets.
type Catalog struct {
	Name   string
	Assets []core.PlaceableAsset
}

// assetJSON is the on-disk form of an asset.
type assetJSON struct {
	ID                  string    `json:"id,omitempty"`
	Name                string    `json:"name"`
	ThumbnailFile       string    `json:"thumbnailFile,omitempty"`
	AssetFile           string    `json:"assetFile"`
	Scale               []float64 `json:"scale,omitempty"`
	Yaw                 float64   `json:"yaw,omitempty"`
	ApproachingDistance float64   `json:"approachingDistance"`
	DistanceAway        float64   `json:"distanceAway"`
	Latitude            float64   `json:"latitude"`
	Longitude           float64   `json:"longitude"`
	Altitude            *float64  `json:"altitude,omitempty"`
}

type catalogJSON struct {
	Name   string      `json:"name"`
	Assets []assetJSON `json:"assets"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON catalog, assigns random ids to entries without one
// and validates the result.
func Parse(data []byte) (*Catalog, error) {
	var raw catalogJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{Name: raw.Name, Assets: make([]core.PlaceableAsset, 0, len(raw.Assets))}
	for i, a := range raw.Assets {
		asset, err := a.toCore()
		if err != nil {
			return nil, fmt.Errorf("asset %d: %w", i, err)
		}
		c.Assets = append(c.Assets, asset)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (a assetJSON) toCore() (core.PlaceableAsset, error) {
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}

	scale := core.Vec3{X: 1, Y: 1, Z: 1}
	switch len(a.Scale) {
	case 0:
	case 1:
		scale = core.Vec3{X: a.Scale[0], Y: a.Scale[0], Z: a.Scale[0]}
	case 3:
		scale = core.Vec3{X: a.Scale[0], Y: a.Scale[1], Z: a.Scale[2]}
	default:
		return core.PlaceableAsset{}, fmt.Errorf("%w: scale needs 1 or 3 components, got %d", ErrInvalidAsset, len(a.Scale))
	}

	coord := core.NewCoordinate(a.Latitude, a.Longitude)
	if a.Altitude != nil {
		coord = coord.WithAltitude(*a.Altitude)
	}

	return core.PlaceableAsset{
		ID:                  id,
		Name:                a.Name,
		ThumbnailFile:       a.ThumbnailFile,
		AssetFile:           a.AssetFile,
		Coordinate:          coord,
		ApproachingDistance: a.ApproachingDistance,
		DistanceAway:        a.DistanceAway,
		Visual:              core.VisualParams{Scale: scale, Yaw: a.Yaw},
	}, nil
}

// Marshal encodes the catalog in its file format.
func (c *Catalog) Marshal() ([]byte, error) {
	raw := catalogJSON{Name: c.Name, Assets: make([]assetJSON, len(c.Assets))}
	for i, a := range c.Assets {
		s := a.Visual.Scale
		out := assetJSON{
			ID:                  a.ID,
			Name:                a.Name,
			ThumbnailFile:       a.ThumbnailFile,
			AssetFile:           a.AssetFile,
			Scale:               []float64{s.X, s.Y, s.Z},
			Yaw:                 a.Visual.Yaw,
			ApproachingDistance: a.ApproachingDistance,
			DistanceAway:        a.DistanceAway,
			Latitude:            a.Coordinate.Latitude,
			Longitude:           a.Coordinate.Longitude,
		}
		if a.Coordinate.AltitudeValid {
			alt := a.Coordinate.Altitude
			out.Altitude = &alt
		}
		raw.Assets[i] = out
	}
	return json.MarshalIndent(raw, "", "  ")
}

// Validate checks every asset. Distances must satisfy
// 0 < approachingDistance <= distanceAway, otherwise an asset at the
// boundary would be placed and removed on alternate ticks.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Assets))
	var errs []error
	for _, a := range c.Assets {
		if err := ValidateAsset(a); err != nil {
			errs = append(errs, err)
		}
		if _, dup := seen[a.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate id %s", ErrInvalidAsset, a.ID))
		}
		seen[a.ID] = struct{}{}
	}
	return errors.Join(errs...)
}

// ValidateAsset checks a single asset.
func ValidateAsset(a core.PlaceableAsset) error {
	switch {
	case a.ID == "":
		return fmt.Errorf("%w: %q has no id", ErrInvalidAsset, a.Name)
	case a.AssetFile == "":
		return fmt.Errorf("%w: %q has no asset file", ErrInvalidAsset, a.Name)
	case !a.Coordinate.InRange():
		return fmt.Errorf("%w: %q coordinate %.6f,%.6f out of range",
			ErrInvalidAsset, a.Name, a.Coordinate.Latitude, a.Coordinate.Longitude)
	case a.ApproachingDistance <= 0:
		return fmt.Errorf("%w: %q approaching distance must be positive", ErrInvalidAsset, a.Name)
	case a.DistanceAway < a.ApproachingDistance:
		return fmt.Errorf("%w: %q distance away %.1f is below approaching distance %.1f",
			ErrInvalidAsset, a.Name, a.DistanceAway, a.ApproachingDistance)
	}
	return nil
}

// ByID returns the asset with the given id.
func (c *Catalog) ByID(id string) (core.PlaceableAsset, bool) {
	for _, a := range c.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return core.PlaceableAsset{}, false
}

// Len returns the number of assets.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Assets)
}
