package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/substation/core/factory"
	coremetrics "github.com/kilianp07/substation/core/metrics"
)

// InfluxConfig holds the settings of the "influx" sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	// The port in conf is used by the HTTP server only.
	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		s, err := NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, err
		}
		return s, nil
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}
