package campaign

import "fmt"

// Config defines balancer parameters loaded from configuration.
type Config struct {
	// Passes bounds the number of fairness-rebalancing iterations.
	Passes int `json:"passes"`
	// IdleStepMinutes is the simulated-clock jump when nothing is admissible.
	IdleStepMinutes int `json:"idle_step_minutes"`
	// Seed drives the tie-break random source. Zero means derive from the
	// wall clock at startup.
	Seed int64 `json:"seed"`
	// RotatorLowDeg and RotatorHighDeg bound the instrument rotator.
	RotatorLowDeg  float64 `json:"rotator_low_deg"`
	RotatorHighDeg float64 `json:"rotator_high_deg"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Passes == 0 {
		c.Passes = 5
	}
	if c.IdleStepMinutes == 0 {
		c.IdleStepMinutes = 20
	}
	if c.RotatorLowDeg == 0 && c.RotatorHighDeg == 0 {
		c.RotatorLowDeg = -180
		c.RotatorHighDeg = 164
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Passes <= 0 {
		return fmt.Errorf("passes must be positive")
	}
	if c.IdleStepMinutes <= 0 {
		return fmt.Errorf("idle_step_minutes must be positive")
	}
	if c.RotatorLowDeg >= c.RotatorHighDeg {
		return fmt.Errorf("rotator limits must form a non-empty interval")
	}
	return nil
}
