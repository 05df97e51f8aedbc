// Package overload latches transformer overload conditions.
package overload

import (
	"fmt"

	"github.com/kilianp07/substation/core/model"
)

// Monitor keeps one sticky latch per transformer. A latch turns on when the
// transformer current strictly exceeds the threshold and stays on until Reset.
type Monitor struct {
	threshold float64
	latched   [model.NumTransformers]bool
}

// NewMonitor creates a Monitor. A non-positive threshold selects the default
// of 130 A.
func NewMonitor(threshold float64) *Monitor {
	if threshold <= 0 {
		threshold = model.DefaultOverloadThresholdA
	}
	return &Monitor{threshold: threshold}
}

// Threshold returns the configured current limit.
func (m *Monitor) Threshold() float64 { return m.threshold }

// Evaluate updates the latches from the transformer currents and returns the
// latch states and which latches turned on during this call.
func (m *Monitor) Evaluate(currents [model.NumTransformers]float64) (latched, newly [model.NumTransformers]bool) {
	for j, c := range currents {
		if !m.latched[j] && c > m.threshold {
			m.latched[j] = true
			newly[j] = true
		}
	}
	return m.latched, newly
}

// Latched returns the current latch states.
func (m *Monitor) Latched() [model.NumTransformers]bool { return m.latched }

// Reset clears the latch of transformer id (1-based).
func (m *Monitor) Reset(id int) error {
	if !model.Transformer(id).Valid() {
		return fmt.Errorf("%w: transformer%d", model.ErrInvalidDevice, id)
	}
	m.latched[id-1] = false
	return nil
}

// ResetAll clears every latch.
func (m *Monitor) ResetAll() { m.latched = [model.NumTransformers]bool{} }

// TransformerCurrents maps bus currents onto transformers: Tj is fed by bus j.
func TransformerCurrents(buses [model.NumBuses]float64) [model.NumTransformers]float64 {
	var out [model.NumTransformers]float64
	copy(out[:], buses[:model.NumTransformers])
	return out
}
