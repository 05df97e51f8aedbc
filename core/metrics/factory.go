package metrics

import (
	"fmt"

	"github.com/kilianp07/substation/core/factory"
)

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Builder[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink type names in sorted order.
func SinkTypes() []string { return sinkRegistry.Names() }

// NewMetricsSink builds the sinks described by cfgs. No config yields a
// NopSink, several configs a MultiSink.
func NewMetricsSink(cfgs []factory.Spec) (MetricsSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, fmt.Errorf("sink %d (%s): %w", i, c.Type, err)
		}
		sinks = append(sinks, s)
	}
	return NewMultiSink(sinks...), nil
}
