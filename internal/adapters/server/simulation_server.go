package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/andrescamacho/rts-production/internal/adapters/metrics"
	"github.com/andrescamacho/rts-production/internal/adapters/persistence"
	"github.com/andrescamacho/rts-production/internal/application/mediator"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/application/production/commands"
	"github.com/andrescamacho/rts-production/internal/infrastructure/config"
)

// SaveStore persists world snapshots by slot
type SaveStore interface {
	Save(ctx context.Context, slot string, snapshot map[string]any) error
}

// JournalFlusher writes buffered events
type JournalFlusher interface {
	Flush(ctx context.Context) error
}

// SimulationServer drives a world at a fixed tick rate, saving it periodically
// and exposing Prometheus metrics while it runs.
type SimulationServer struct {
	world    *appProduction.World
	mediator mediator.Mediator
	saves    SaveStore
	journal  JournalFlusher
	slot     string

	tickDelta       float64
	limiter         *rate.Limiter
	saveInterval    time.Duration
	shutdownTimeout time.Duration

	metricsCfg config.MetricsConfig
	production *metrics.ProductionMetricsCollector
	httpServer *http.Server

	logger zerolog.Logger
	ticks  int
	now    func() time.Time
}

// Option configures a SimulationServer
type Option func(*SimulationServer)

// WithLogger sets the server logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *SimulationServer) { s.logger = l.With().Str("component", "simulation_server").Logger() }
}

// WithJournal flushes the event journal alongside every save
func WithJournal(j JournalFlusher) Option {
	return func(s *SimulationServer) { s.journal = j }
}

// WithUnpacedTicks removes the wall clock limiter; ticks run back to back
func WithUnpacedTicks() Option {
	return func(s *SimulationServer) { s.limiter = rate.NewLimiter(rate.Inf, 1) }
}

// NewSimulationServer wires a world to its save slot. When metrics are enabled the
// global registry is initialized and production and command collectors are attached.
func NewSimulationServer(
	world *appProduction.World,
	saves SaveStore,
	slot string,
	simCfg config.SimulationConfig,
	serverCfg config.ServerConfig,
	metricsCfg config.MetricsConfig,
	opts ...Option,
) (*SimulationServer, error) {
	if world == nil {
		return nil, fmt.Errorf("world is required")
	}
	if saves == nil {
		return nil, fmt.Errorf("save store is required")
	}
	if simCfg.TickRate <= 0 {
		return nil, fmt.Errorf("tick rate must be positive, got %v", simCfg.TickRate)
	}

	s := &SimulationServer{
		world:           world,
		saves:           saves,
		slot:            slot,
		tickDelta:       simCfg.TickDelta(),
		limiter:         rate.NewLimiter(rate.Limit(simCfg.TickRate), 1),
		saveInterval:    serverCfg.SaveInterval,
		shutdownTimeout: serverCfg.ShutdownTimeout,
		metricsCfg:      metricsCfg,
		logger:          zerolog.Nop(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	m := mediator.NewMediator()
	m.Use(mediator.LoggingMiddleware(s.logger))

	if metricsCfg.Enabled {
		if !metrics.IsEnabled() {
			metrics.InitRegistry()
		}
		commandMetrics := metrics.NewCommandMetricsCollector()
		if err := commandMetrics.Register(); err != nil {
			return nil, fmt.Errorf("failed to register command metrics: %w", err)
		}
		m.Use(metrics.PrometheusMiddleware(commandMetrics))

		s.production = metrics.NewProductionMetricsCollector()
		if err := s.production.Register(); err != nil {
			return nil, fmt.Errorf("failed to register production metrics: %w", err)
		}
		s.production.Subscribe(world.Bus)
	}

	if err := commands.RegisterHandlers(m, world); err != nil {
		return nil, err
	}
	s.mediator = m

	return s, nil
}

// Mediator exposes the command bus driving the world
func (s *SimulationServer) Mediator() mediator.Mediator {
	return s.mediator
}

// Ticks returns how many frames have run since Start
func (s *SimulationServer) Ticks() int {
	return s.ticks
}

// MetricsAddress is the host:port the metrics endpoint listens on
func (s *SimulationServer) MetricsAddress() string {
	return s.metricsCfg.Address()
}

// Start runs until SIGINT or SIGTERM arrives, then saves and stops the metrics endpoint
func (s *SimulationServer) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run ticks the world until ctx is cancelled. The world is saved every save
// interval and once more on the way out.
func (s *SimulationServer) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	if s.metricsCfg.Enabled {
		s.startMetricsServer(errChan)
	}

	s.logger.Info().
		Str("slot", s.slot).
		Float64("tick_delta", s.tickDelta).
		Float64("elapsed", s.world.Clock.Elapsed()).
		Msg("Simulation server started")

	lastSave := s.now()
	var runErr error

loop:
	for {
		select {
		case err := <-errChan:
			runErr = err
			break loop
		default:
		}

		if err := s.limiter.Wait(ctx); err != nil {
			// Wait only fails once ctx is done or the deadline cannot be met
			break loop
		}

		if err := s.tick(ctx); err != nil {
			if ctx.Err() == nil {
				runErr = err
			}
			break loop
		}

		if s.saveInterval > 0 && s.now().Sub(lastSave) >= s.saveInterval {
			if err := s.save(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Periodic save failed")
			}
			lastSave = s.now()
		}
	}

	return errors.Join(runErr, s.shutdown())
}

func (s *SimulationServer) tick(ctx context.Context) error {
	if _, err := s.mediator.Send(ctx, &commands.AdvanceCommand{Ticks: 1, Delta: s.tickDelta}); err != nil {
		return fmt.Errorf("tick %d: %w", s.ticks+1, err)
	}
	s.ticks++
	if s.production != nil {
		s.production.ObserveWorld(s.world)
	}
	return nil
}

func (s *SimulationServer) save(ctx context.Context) error {
	if s.journal != nil {
		if err := s.journal.Flush(ctx); err != nil {
			return err
		}
	}
	if err := s.saves.Save(ctx, s.slot, s.world.Snapshot()); err != nil {
		return err
	}
	s.logger.Debug().
		Str("slot", s.slot).
		Float64("elapsed", s.world.Clock.Elapsed()).
		Msg("World saved")
	return nil
}

func (s *SimulationServer) startMetricsServer(errChan chan<- error) {
	mux := http.NewServeMux()
	mux.Handle(s.metricsCfg.Path, promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	s.httpServer = &http.Server{
		Addr:              s.MetricsAddress(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info().Str("address", s.httpServer.Addr).Str("path", s.metricsCfg.Path).Msg("Metrics endpoint listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server error: %w", err)
		}
	}()
}

// shutdown saves the world and stops the metrics endpoint within the shutdown timeout
func (s *SimulationServer) shutdown() error {
	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info().Int("ticks", s.ticks).Msg("Stopping simulation server")

	var errs []error
	if err := s.save(ctx); err != nil {
		errs = append(errs, fmt.Errorf("final save: %w", err))
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

var _ SaveStore = (*persistence.GormSaveRepository)(nil)
var _ JournalFlusher = (*persistence.EventJournal)(nil)
