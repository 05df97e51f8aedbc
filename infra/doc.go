// Package infra holds the adapters that connect the substation twin to the
// outside world: the MQTT bridge, the Prometheus and InfluxDB sinks, the
// command journal and the zerolog logger. Adapters implement interfaces
// declared under core and never import each other.
package infra
