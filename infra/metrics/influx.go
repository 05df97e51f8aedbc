package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/substation/core/metrics"
	"github.com/kilianp07/substation/core/model"
	"github.com/kilianp07/substation/infra/logger"
)

// Influx measurement names.
const (
	MeasurementBus     = "substation_bus"
	MeasurementEnv     = "substation_env"
	MeasurementCommand = "substation_command"
	MeasurementAlarm   = "substation_alarm"
)

// InfluxSink writes snapshots and operator events to InfluxDB using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordSnapshot writes one substation_bus point per bus and one
// substation_env point.
func (s *InfluxSink) RecordSnapshot(snap model.Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, model.NumBuses+1)
	for i, b := range snap.Buses {
		points = append(points, write.NewPointWithMeasurement(MeasurementBus).
			AddTag("bus", strconv.Itoa(b.Bus)).
			AddField("voltage_kv", b.VoltageKV).
			AddField("current_a", b.CurrentA).
			AddField("load_mw", b.LoadMW).
			AddField("faulted", b.Faulted).
			AddField("breaker", snap.Breakers[i].String()).
			SetTime(snap.Time))
	}
	points = append(points, write.NewPointWithMeasurement(MeasurementEnv).
		AddField("temperature_c", snap.TemperatureC).
		AddField("sf6_pressure_pa", snap.PressurePa).
		AddField("alarm", string(snap.Alarm)).
		AddField("seq", int64(snap.Seq)).
		SetTime(snap.Time))
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordCommand writes an operator command outcome.
func (s *InfluxSink) RecordCommand(ev coremetrics.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement(MeasurementCommand).
		AddTag("type", ev.Type).
		AddTag("source", ev.Source).
		AddTag("ok", strconv.FormatBool(ev.OK)).
		AddField("id", ev.ID).
		AddField("device", ev.Device)
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	return s.writeAPI.WritePoint(ctx, p.SetTime(ev.Time))
}

// RecordAlarm writes an alarm transition.
func (s *InfluxSink) RecordAlarm(ev coremetrics.AlarmEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement(MeasurementAlarm).
		AddField("previous", string(ev.Previous)).
		AddField("current", string(ev.Current)).
		AddField("seq", int64(ev.Seq)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}
