// Package command turns operator requests into engine operations. The HTTP
// API and the MQTT listener both go through a Dispatcher so that every
// command is validated, logged and recorded the same way.
package command

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/substation/core/logger"
	"github.com/kilianp07/substation/core/metrics"
	"github.com/kilianp07/substation/core/model"
)

// Type names an operator command.
type Type string

const (
	ToggleBreaker   Type = "toggle_breaker"
	ToggleCapacitor Type = "toggle_capacitor"
	SetTap          Type = "set_tap"
	SetFault        Type = "set_fault"
	SetLoad         Type = "set_load"
	ClearAlarm      Type = "clear_alarm"
	ResetOverload   Type = "reset_overload"
	ConsumeFlash    Type = "consume_flash"
)

// Command is an operator request. Device names the target, e.g. "breaker3",
// "bus2" or "transformer1". Only the value field matching Type is read.
type Command struct {
	ID       string  `json:"id,omitempty"`
	Type     Type    `json:"type"`
	Device   string  `json:"device,omitempty"`
	Position int     `json:"position,omitempty"`
	Enabled  bool    `json:"enabled,omitempty"`
	LoadMW   float64 `json:"load_mw,omitempty"`
}

// Result is the acknowledgment of a command.
type Result struct {
	ID     string    `json:"id"`
	Type   Type      `json:"type"`
	Device string    `json:"device,omitempty"`
	OK     bool      `json:"ok"`
	Error  string    `json:"error,omitempty"`
	State  string    `json:"state,omitempty"`
	Flash  *bool     `json:"flash,omitempty"`
	Time   time.Time `json:"time"`
}

// Controller is the set of engine operations reachable by commands.
// *engine.Engine implements it.
type Controller interface {
	ToggleBreaker(id int) (model.BreakerState, error)
	ToggleCapacitor(id int) (model.CapacitorState, error)
	SetTap(id, position int) error
	SetFaultFlag(bus int, faulted bool) error
	SetLoad(bus int, mw float64) error
	ClearAlarm()
	ResetOverload(id int) error
	ConsumeFlash(dev model.DeviceID) (bool, error)
}

// Dispatcher executes commands against a Controller.
type Dispatcher struct {
	ctrl Controller
	sink metrics.MetricsSink
	log  logger.Logger
	now  func() time.Time
}

// NewDispatcher creates a Dispatcher. sink and log may be nil.
func NewDispatcher(ctrl Controller, sink metrics.MetricsSink, log logger.Logger) *Dispatcher {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Dispatcher{ctrl: ctrl, sink: sink, log: logger.OrNop(log), now: time.Now}
}

// Execute runs cmd and returns its acknowledgment. The returned error is the
// validation failure, also reported in Result.Error. source tags the metrics
// record ("http", "mqtt", ...).
func (d *Dispatcher) Execute(cmd Command, source string) (Result, error) {
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	res := Result{ID: cmd.ID, Type: cmd.Type, Device: cmd.Device}
	err := d.apply(cmd, &res)
	res.Time = d.now()
	res.OK = err == nil
	if err != nil {
		res.Error = err.Error()
		d.log.Warnf("command %s %s %s rejected: %v", cmd.ID, cmd.Type, cmd.Device, err)
	} else {
		d.log.Infof("command %s %s %s applied", cmd.ID, cmd.Type, cmd.Device)
	}
	if rec, ok := d.sink.(metrics.CommandRecorder); ok {
		if rerr := rec.RecordCommand(metrics.CommandEvent{
			ID:     cmd.ID,
			Type:   string(cmd.Type),
			Device: cmd.Device,
			Source: source,
			OK:     res.OK,
			Error:  res.Error,
			Time:   res.Time,
		}); rerr != nil {
			d.log.Errorf("record command: %v", rerr)
		}
	}
	return res, err
}

func device(cmd Command, kinds ...model.DeviceKind) (model.DeviceID, error) {
	id, err := model.ParseDeviceID(cmd.Device)
	if err != nil {
		return model.DeviceID{}, err
	}
	for _, k := range kinds {
		if id.Kind == k {
			return id, nil
		}
	}
	return model.DeviceID{}, fmt.Errorf("%w: %s does not accept %s", model.ErrInvalidDevice, cmd.Type, id)
}

func (d *Dispatcher) apply(cmd Command, res *Result) error {
	switch cmd.Type {
	case ToggleBreaker:
		id, err := device(cmd, model.KindBreaker)
		if err != nil {
			return err
		}
		st, err := d.ctrl.ToggleBreaker(id.Index)
		if err != nil {
			return err
		}
		res.State = st.String()
	case ToggleCapacitor:
		id, err := device(cmd, model.KindCapacitor)
		if err != nil {
			return err
		}
		st, err := d.ctrl.ToggleCapacitor(id.Index)
		if err != nil {
			return err
		}
		res.State = st.String()
	case SetTap:
		id, err := device(cmd, model.KindTap)
		if err != nil {
			return err
		}
		if err := d.ctrl.SetTap(id.Index, cmd.Position); err != nil {
			return err
		}
		res.State = fmt.Sprintf("%d", cmd.Position)
	case SetFault:
		id, err := device(cmd, model.KindBus)
		if err != nil {
			return err
		}
		if err := d.ctrl.SetFaultFlag(id.Index, cmd.Enabled); err != nil {
			return err
		}
		res.State = fmt.Sprintf("%t", cmd.Enabled)
	case SetLoad:
		id, err := device(cmd, model.KindBus)
		if err != nil {
			return err
		}
		if err := d.ctrl.SetLoad(id.Index, cmd.LoadMW); err != nil {
			return err
		}
		res.State = fmt.Sprintf("%.2f", cmd.LoadMW)
	case ClearAlarm:
		d.ctrl.ClearAlarm()
		res.State = string(model.AlarmNone)
	case ResetOverload:
		idx := 0
		if cmd.Device != "" {
			id, err := device(cmd, model.KindTransformer)
			if err != nil {
				return err
			}
			idx = id.Index
		}
		return d.ctrl.ResetOverload(idx)
	case ConsumeFlash:
		id, err := device(cmd, model.KindBreaker, model.KindTransformer)
		if err != nil {
			return err
		}
		v, err := d.ctrl.ConsumeFlash(id)
		if err != nil {
			return err
		}
		res.Flash = &v
	default:
		return fmt.Errorf("%w: unknown command type %q", model.ErrInvalidInput, cmd.Type)
	}
	return nil
}
