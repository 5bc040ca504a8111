package placement

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned for unusable accuracy thresholds.
var ErrInvalidConfig = errors.New("invalid placement config")

// Thresholds bound the accepted sample uncertainty in meters. A sample
// passes when both accuracies are strictly below their limit.
type Thresholds struct {
	Horizontal float64 `json:"horizontal" mapstructure:"horizontal"`
	Vertical   float64 `json:"vertical" mapstructure:"vertical"`
}

// Config holds the accuracy gate used before and after the first placement.
type Config struct {
	// Setup applies while the manager is uninitialized.
	Setup Thresholds `json:"setup" mapstructure:"setup"`
	// Running applies once the scene is active. It is tighter so noisy
	// fixes do not shake placed entities around.
	Running Thresholds `json:"running" mapstructure:"running"`
}

// DefaultConfig returns the stock gate: 5.0/5.0 m to set up, 4.9/3.1 m after.
func DefaultConfig() Config {
	return Config{
		Setup:   Thresholds{Horizontal: 5.0, Vertical: 5.0},
		Running: Thresholds{Horizontal: 4.9, Vertical: 3.1},
	}
}

// Validate rejects non-positive thresholds.
func (c Config) Validate() error {
	check := func(name string, t Thresholds) error {
		if t.Horizontal <= 0 || t.Vertical <= 0 {
			return fmt.Errorf("%w: %s thresholds must be positive, got %.2f/%.2f",
				ErrInvalidConfig, name, t.Horizontal, t.Vertical)
		}
		return nil
	}
	if err := check("setup", c.Setup); err != nil {
		return err
	}
	return check("running", c.Running)
}
