package scenarios

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kilianp07/substation/core/command"
	"github.com/kilianp07/substation/core/engine"
	"github.com/kilianp07/substation/core/model"
	"github.com/kilianp07/substation/core/random"
)

var errorNames = map[string]error{
	"invalid_input":  model.ErrInvalidInput,
	"invalid_device": model.ErrInvalidDevice,
	"out_of_range":   model.ErrOutOfRange,
}

// Run replays sc on a fresh engine and returns every failed expectation.
func Run(sc *Scenario) error {
	var src random.Source
	if sc.Jitter != nil {
		src = random.Fixed(*sc.Jitter)
	} else {
		src = random.NewSeeded(sc.Seed)
	}
	eng := engine.New(engine.Config{Seed: sc.Seed, OverloadThresholdA: sc.Threshold}, src)
	disp := command.NewDispatcher(eng, nil, nil)

	var errs []error
	for i, st := range sc.Steps {
		name := st.Name
		if name == "" {
			name = fmt.Sprintf("step %d", i+1)
		}
		var err error
		var flash *bool
		switch {
		case st.Tick != nil:
			_, err = eng.Tick(engine.TickInput{Loads: st.Tick.Loads, Faults: st.Tick.Faults})
		case st.Steps > 0:
			for n := 0; n < st.Steps; n++ {
				eng.Step()
			}
		case st.Command != nil:
			var res command.Result
			res, err = disp.Execute(st.Command.ToCommand(), "scenario")
			flash = res.Flash
		}
		for _, e := range check(eng, st.Expect, err, flash) {
			errs = append(errs, fmt.Errorf("%s: %s: %w", sc.Name, name, e))
		}
	}
	return errors.Join(errs...)
}

func check(eng *engine.Engine, exp Expected, err error, flash *bool) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if exp.Error == "" && err != nil {
		fail("unexpected error: %v", err)
	}
	if exp.Error != "" {
		want, ok := errorNames[exp.Error]
		switch {
		case !ok:
			fail("unknown error name %q", exp.Error)
		case !errors.Is(err, want):
			fail("expected %s error, got %v", exp.Error, err)
		}
	}

	snap := eng.Snapshot()
	if exp.Seq != nil && snap.Seq != *exp.Seq {
		fail("seq = %d, want %d", snap.Seq, *exp.Seq)
	}
	if exp.Alarm != nil && string(snap.Alarm) != *exp.Alarm {
		fail("alarm = %q, want %q", snap.Alarm, *exp.Alarm)
	}
	if exp.BreakersOpen != nil {
		var open []int
		for i, b := range snap.Breakers {
			if b == model.BreakerOpen {
				open = append(open, i+1)
			}
		}
		if !slices.Equal(open, exp.BreakersOpen) {
			fail("open breakers = %v, want %v", open, exp.BreakersOpen)
		}
	}
	if exp.Overloaded != nil {
		var latched []int
		for j, l := range snap.Overload {
			if l {
				latched = append(latched, j+1)
			}
		}
		if !slices.Equal(latched, exp.Overloaded) {
			fail("overloaded = %v, want %v", latched, exp.Overloaded)
		}
	}
	for bus, want := range exp.Current {
		if bus < 1 || bus > model.NumBuses {
			fail("current: no bus %d", bus)
			continue
		}
		if got := snap.Buses[bus-1].CurrentA; got != want {
			fail("bus%d current = %.2f, want %.2f", bus, got, want)
		}
	}
	for line, want := range exp.LineLevels {
		if line < 1 || line > len(snap.Lines) {
			fail("line_levels: no line %d", line)
			continue
		}
		if got := string(snap.Lines[line-1].Level); got != want {
			fail("line%d level = %s, want %s", line, got, want)
		}
	}
	for tap, want := range exp.Taps {
		if tap < 1 || tap > model.NumTaps {
			fail("taps: no tap %d", tap)
			continue
		}
		if got := snap.Taps[tap-1]; got != want {
			fail("tap%d = %d, want %d", tap, got, want)
		}
	}
	if exp.Flash != nil && (flash == nil || *flash != *exp.Flash) {
		fail("flash = %v, want %v", flash, *exp.Flash)
	}
	for ch, want := range exp.History {
		if got := len(eng.GetHistory(model.Channel(ch))); got != want {
			fail("history %s has %d samples, want %d", ch, got, want)
		}
	}
	return errs
}
