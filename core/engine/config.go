package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/substation/core/model"
)

// Config defines simulation settings.
type Config struct {
	// Seed initialises the jitter generator. Zero seeds from the clock.
	Seed uint64 `json:"seed"`
	// TickIntervalMS is the sampling period of the runner.
	TickIntervalMS int `json:"tick_interval_ms"`
	// OverloadThresholdA is the transformer current limit.
	OverloadThresholdA float64 `json:"overload_threshold_a"`
	// InitialLoadMW holds the startup load setpoint of each bus.
	InitialLoadMW []float64 `json:"initial_load_mw"`
}

// SetDefaults applies the reference dashboard values.
func (c *Config) SetDefaults() {
	if c.TickIntervalMS <= 0 {
		c.TickIntervalMS = 1000
	}
	if c.OverloadThresholdA <= 0 {
		c.OverloadThresholdA = model.DefaultOverloadThresholdA
	}
	if len(c.InitialLoadMW) == 0 {
		c.InitialLoadMW = make([]float64, model.NumBuses)
		for i := range c.InitialLoadMW {
			c.InitialLoadMW[i] = model.DefaultLoadMW
		}
	}
}

// Validate checks the initial setpoints.
func (c Config) Validate() error {
	if len(c.InitialLoadMW) != model.NumBuses {
		return fmt.Errorf("initial_load_mw: expected %d values, got %d", model.NumBuses, len(c.InitialLoadMW))
	}
	for i, l := range c.InitialLoadMW {
		if err := checkLoad(i+1, l); err != nil {
			return fmt.Errorf("initial_load_mw: %w", err)
		}
	}
	return nil
}

// TickInterval returns the sampling period.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

func checkLoad(bus int, mw float64) error {
	if math.IsNaN(mw) || mw < model.MinLoadMW || mw > model.MaxLoadMW {
		return fmt.Errorf("%w: bus%d load %.2f MW not in [%.0f,%.0f]", model.ErrOutOfRange, bus, mw, model.MinLoadMW, model.MaxLoadMW)
	}
	return nil
}
