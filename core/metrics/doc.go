package metrics

// Package metrics defines the sinks that observe the substation twin. A
// sink records tick snapshots and may optionally record operator commands
// and alarm transitions. Sinks like PromSink and InfluxSink live in
// infra/metrics and can be combined with NewMultiSink. The factory helpers
// return a MultiSink automatically when multiple sinks are configured.
