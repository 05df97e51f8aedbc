// Package scenarios replays scripted operator sessions against the engine
// and checks the resulting state. Scenarios are YAML files.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/substation/core/command"
)

// Expected lists the assertions checked after a step. Unset fields are not
// checked.
type Expected struct {
	Seq          *uint64         `yaml:"seq,omitempty"`
	Alarm        *string         `yaml:"alarm,omitempty"`
	BreakersOpen []int           `yaml:"breakers_open,omitempty"`
	Overloaded   []int           `yaml:"overloaded,omitempty"`
	Current      map[int]float64 `yaml:"current,omitempty"`
	LineLevels   map[int]string  `yaml:"line_levels,omitempty"`
	Taps         map[int]int     `yaml:"taps,omitempty"`
	Error        string          `yaml:"error,omitempty"`
	Flash        *bool           `yaml:"flash,omitempty"`
	History      map[string]int  `yaml:"history_len,omitempty"`
}

// TickDef is an explicit tick input.
type TickDef struct {
	Loads  []float64 `yaml:"loads"`
	Faults []bool    `yaml:"faults"`
}

// CommandDef is an operator command.
type CommandDef struct {
	Type     string  `yaml:"type"`
	Device   string  `yaml:"device,omitempty"`
	Position int     `yaml:"position,omitempty"`
	Enabled  bool    `yaml:"enabled,omitempty"`
	LoadMW   float64 `yaml:"load_mw,omitempty"`
}

// ToCommand converts the definition.
func (c CommandDef) ToCommand() command.Command {
	return command.Command{
		Type:     command.Type(c.Type),
		Device:   c.Device,
		Position: c.Position,
		Enabled:  c.Enabled,
		LoadMW:   c.LoadMW,
	}
}

// Step performs exactly one of Tick, Steps or Command, then checks Expect.
type Step struct {
	Name    string      `yaml:"name,omitempty"`
	Tick    *TickDef    `yaml:"tick,omitempty"`
	Steps   int         `yaml:"steps,omitempty"`
	Command *CommandDef `yaml:"command,omitempty"`
	Expect  Expected    `yaml:"expect"`
}

type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Jitter fixes every random draw to this value when set. Otherwise the
	// engine is seeded with Seed.
	Jitter    *float64 `yaml:"jitter,omitempty"`
	Seed      uint64   `yaml:"seed,omitempty"`
	Threshold float64  `yaml:"overload_threshold_a,omitempty"`
	Steps     []Step   `yaml:"steps"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks that every step performs exactly one action.
func (sc Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	for i, st := range sc.Steps {
		n := 0
		if st.Tick != nil {
			n++
		}
		if st.Steps > 0 {
			n++
		}
		if st.Command != nil {
			n++
		}
		if n != 1 {
			return fmt.Errorf("step %d: expected one of tick, steps or command", i+1)
		}
	}
	return nil
}
