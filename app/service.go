// Package app wires the engine, the simulation runner and the outer
// adapters into one service.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilianp07/substation/api/substation"
	"github.com/kilianp07/substation/config"
	"github.com/kilianp07/substation/core/command"
	"github.com/kilianp07/substation/core/engine"
	coremetrics "github.com/kilianp07/substation/core/metrics"
	"github.com/kilianp07/substation/core/model"
	"github.com/kilianp07/substation/core/simulation"
	"github.com/kilianp07/substation/infra/journal"
	"github.com/kilianp07/substation/infra/logger"
	"github.com/kilianp07/substation/infra/metrics"
	"github.com/kilianp07/substation/infra/mqtt"
	"github.com/kilianp07/substation/internal/eventbus"
)

// Service orchestrates the simulator and its connectors.
type Service struct {
	Engine     *engine.Engine
	Runner     *simulation.Runner
	Dispatcher *command.Dispatcher
	MQTT       *mqtt.Client
	Journal    journal.Store

	cfg  *config.Config
	bus  *eventbus.Bus[model.Snapshot]
	sink coremetrics.MetricsSink
	log  logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	var store journal.Store
	if cfg.Journal.Enabled {
		if store, err = journal.Open(cfg.Journal); err != nil {
			return nil, fmt.Errorf("command journal: %w", err)
		}
		sink = coremetrics.NewMultiSink(journal.Sink{Store: store}, sink)
	}
	eng := engine.New(cfg.Simulation, nil, engine.WithLogger(logger.New("engine")))
	bus := eventbus.New[model.Snapshot](0)
	svc := &Service{
		Engine:     eng,
		Runner:     simulation.NewRunner(eng, cfg.Simulation.TickInterval(), bus, sink, logger.New("runner")),
		Dispatcher: command.NewDispatcher(eng, sink, logger.New("commands")),
		Journal:    store,
		cfg:        cfg,
		bus:        bus,
		sink:       sink,
		log:        logg,
	}
	if cfg.MQTT.Enabled {
		client, err := mqtt.NewClient(cfg.MQTT, svc.Dispatcher)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.MQTT = client
	}
	return svc, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	collector := metrics.StartSnapshotCollector(ctx, s.bus, s.sink, logger.New("collector"))
	if s.MQTT != nil {
		telemetry := s.MQTT.StartTelemetry(ctx, s.bus)
		defer func() { <-telemetry }()
	}
	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartPromServer(ctx, port); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	errCh := make(chan error, 1)
	if s.cfg.API.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			opts := []substation.Option{substation.WithAuth([]byte(s.cfg.API.JWTSecret))}
			if s.Journal != nil {
				opts = append(opts, substation.WithJournal(s.Journal))
			}
			if s.cfg.API.Stream {
				opts = append(opts, substation.WithStream(s.bus))
			}
			h := substation.NewHandler(s.Engine, s.Dispatcher, s.Runner, opts...)
			if err := substation.Serve(ctx, s.cfg.API.Address, h, s.cfg.API.ReadTimeout()); err != nil {
				errCh <- fmt.Errorf("api server: %w", err)
				cancel()
			}
		}()
	}

	err := s.Runner.Run(ctx)
	cancel()
	wg.Wait()
	<-collector
	select {
	case apiErr := <-errCh:
		return apiErr
	default:
	}
	return err
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.MQTT != nil {
		s.MQTT.Disconnect()
	}
	s.bus.Close()
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if s.Journal != nil {
		return s.Journal.Close()
	}
	return nil
}
