package metrics

import "github.com/kilianp07/substation/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.Spec `json:"sinks" yaml:"sinks"`
	// PrometheusPort is the listen address of the /metrics endpoint. Empty
	// disables the endpoint.
	PrometheusPort string `json:"prometheus_port" yaml:"prometheus_port"`
}
