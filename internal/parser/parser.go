package parser

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// parseIntFromFloat parses a string that may be an integer ("2") or float ("2.00") into int64.
// Hosts that only know floating point numbers send floors that way.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// parseVec3 parses "x,y,z".
func parseVec3(s string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected 3 components, got %d", len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Parser provides pure []string -> core struct conversion for host commands.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
	// catalogDir resolves relative catalog paths
	catalogDir string
}

// NewParser creates a new parser. catalogDir may be empty.
func NewParser(logger *slog.Logger, catalogDir string) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger:     logger,
		catalogDir: catalogDir,
	}
}
