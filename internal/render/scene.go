// Package render holds the renderer implementations driven by the
// placement manager.
package render

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/OCAP2/geoanchor/internal/cache"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// ErrModelNotFound means no model file exists for an asset.
var ErrModelNotFound = errors.New("model not found")

// ModelExtensions are tried in order when an asset file has no extension.
var ModelExtensions = []string{".usdz", ".reality", ".glb"}

// Node is one entity in the scene.
type Node struct {
	AssetID     string
	Name        string
	ModelPath   string
	Translation core.Vec3
	Scale       core.Vec3
	Yaw         float64
	// Animating is set once the model's first animation is looping.
	Animating bool
}

// Scene is an in-process renderer backed by a model library directory.
// Handles are asset ids.
type Scene struct {
	fs     afero.Fs
	dir    string
	models *cache.Registry[string, string]
	nodes  *cache.Registry[string, Node]
}

// NewScene creates a scene loading models from dir on fs.
func NewScene(fs afero.Fs, dir string) *Scene {
	return &Scene{
		fs:     fs,
		dir:    dir,
		models: cache.NewRegistry[string, string](),
		nodes:  cache.NewRegistry[string, Node](),
	}
}

// resolve finds the model file for assetFile, caching the result.
func (s *Scene) resolve(assetFile string) (string, error) {
	if path, ok := s.models.Get(assetFile); ok {
		return path, nil
	}

	candidates := []string{filepath.Join(s.dir, assetFile)}
	if filepath.Ext(assetFile) == "" {
		candidates = candidates[:0]
		for _, ext := range ModelExtensions {
			candidates = append(candidates, filepath.Join(s.dir, assetFile+ext))
		}
	}

	for _, path := range candidates {
		ok, err := afero.Exists(s.fs, path)
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if ok {
			s.models.Set(assetFile, path)
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s (tried %s)", ErrModelNotFound, assetFile, strings.Join(candidates, ", "))
}

// Place loads the model and adds a node.
func (s *Scene) Place(p core.Placement) (any, error) {
	if p.AssetFile == "" {
		return nil, fmt.Errorf("%w: asset %s has no file", ErrModelNotFound, p.AssetID)
	}
	path, err := s.resolve(p.AssetFile)
	if err != nil {
		return nil, err
	}

	s.nodes.Set(p.AssetID, Node{
		AssetID:     p.AssetID,
		Name:        p.Name,
		ModelPath:   path,
		Translation: p.Translation,
		Scale:       p.Visual.Scale,
		Yaw:         p.Visual.Yaw,
		Animating:   true,
	})
	return p.AssetID, nil
}

// Move updates a node translation.
func (s *Scene) Move(handle any, m core.Move) error {
	id, err := handleID(handle)
	if err != nil {
		return err
	}
	if !s.nodes.Update(id, func(n Node) Node {
		n.Translation = m.Translation
		return n
	}) {
		return fmt.Errorf("no node for %s", id)
	}
	return nil
}

// Remove deletes a node.
func (s *Scene) Remove(handle any) error {
	id, err := handleID(handle)
	if err != nil {
		return err
	}
	if _, ok := s.nodes.Delete(id); !ok {
		return fmt.Errorf("no node for %s", id)
	}
	return nil
}

// Node returns the node for an asset.
func (s *Scene) Node(assetID string) (Node, bool) {
	return s.nodes.Get(assetID)
}

// Nodes returns every node ordered by asset id.
func (s *Scene) Nodes() []Node {
	return s.nodes.Values(func(a, b string) bool { return a < b })
}

// Reset drops all nodes.
func (s *Scene) Reset() {
	s.nodes.Reset()
}

func handleID(handle any) (string, error) {
	id, ok := handle.(string)
	if !ok {
		return "", fmt.Errorf("unexpected handle type %T", handle)
	}
	return id, nil
}
