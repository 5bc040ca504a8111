package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/OCAP2/geoanchor/internal/catalog"
	"github.com/OCAP2/geoanchor/internal/util"
)

// BuiltinPrefix selects a demo dataset, e.g. "builtin:tokyo-station".
const BuiltinPrefix = "builtin:"

// ParseCatalog resolves a catalog argument.
// Args: [source] where source is inline JSON, "builtin:<name>" or a file
// path, relative paths resolving against the catalog directory.
func (p *Parser) ParseCatalog(data []string) (*catalog.Catalog, error) {
	if len(data) < 1 || strings.TrimSpace(data[0]) == "" {
		return nil, fmt.Errorf("insufficient data fields: need a catalog source")
	}
	util.CleanArgs(data)
	src := data[0]

	switch {
	case strings.HasPrefix(src, "{"):
		c, err := catalog.Parse([]byte(src))
		if err != nil {
			return nil, fmt.Errorf("error parsing inline catalog: %w", err)
		}
		return c, nil

	case strings.HasPrefix(src, BuiltinPrefix):
		name := strings.TrimPrefix(src, BuiltinPrefix)
		c, ok := catalog.Builtin(name)
		if !ok {
			return nil, fmt.Errorf("unknown builtin catalog %q", name)
		}
		return c, nil
	}

	path := src
	if !filepath.IsAbs(path) && p.catalogDir != "" {
		path = filepath.Join(p.catalogDir, path)
	}
	c, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Loaded catalog", "path", path, "name", c.Name, "assets", c.Len())
	return c, nil
}
