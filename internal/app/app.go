package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/earthmover/agent"
	"github.com/earthmover/config"
	"github.com/earthmover/detect"
	"github.com/earthmover/internal/logger"
	"github.com/earthmover/internal/metrics"
	"github.com/earthmover/service"
	"github.com/earthmover/service/docsearch"
	"github.com/earthmover/service/notify"
	"github.com/earthmover/service/tickets"
	"github.com/earthmover/service/warehouse"
	"github.com/earthmover/stream"
)

// Application wires configuration, services, the orchestrator and the
// streaming client into one lifecycle.
type Application struct {
	cfg           *config.Loader
	registry      *service.Registry
	orchestrator  *agent.Orchestrator
	streamClient  *stream.Client
	metricsServer *metrics.Server
}

func NewApplication(configDir string) (*Application, error) {
	loader, err := config.NewLoader(configDir)
	if err != nil {
		return nil, fmt.Errorf("create config loader: %w", err)
	}
	return &Application{cfg: loader}, nil
}

// Initialize loads configuration and builds every component. Must be
// called before Process or Stream.
func (a *Application) Initialize(ctx context.Context) error {
	cfg, err := a.cfg.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Initialize(cfg)

	if err := a.initServices(); err != nil {
		return err
	}
	if err := a.initOrchestrator(ctx, cfg); err != nil {
		return err
	}
	a.initStream(cfg)

	if cfg.Metrics.Addr != "" {
		a.metricsServer = metrics.Serve(cfg.Metrics.Addr)
		slog.Info("app.init.metrics.listening", "addr", cfg.Metrics.Addr)
	}

	return nil
}

func (a *Application) initServices() error {
	slog.Info("app.init.services.start")
	registry := service.NewRegistry()
	if err := registry.InitFromConfig(a.cfg); err != nil {
		return fmt.Errorf("init registry: %w", err)
	}
	a.registry = registry

	services := registry.All()
	names := make([]string, 0, len(services))
	for _, s := range services {
		names = append(names, s.Name())
	}
	slog.Info("app.init.services.complete", "count", len(services), "services", names)
	return nil
}

func (a *Application) initOrchestrator(ctx context.Context, cfg *config.Config) error {
	slog.Info("app.init.orchestrator.start")

	wh, err := a.warehouseService()
	if err != nil {
		return err
	}

	defaults := detect.DefaultThresholds()
	applyDetectOverrides(&defaults, cfg.Detect)

	var provider detect.ThresholdProvider = detect.StaticProvider{Set: defaults}
	if wh != nil {
		provider = detect.NewOptimizerProvider(wh, defaults)
	}
	engine := detect.NewEngine(provider)

	var docs agent.DocSearcher
	if s, ok := a.registry.ByType(service.DocSearch); ok {
		docs = s.(*docsearch.Service)
	}
	var pager agent.Pager
	if s, ok := a.registry.ByType(service.Notify); ok {
		pager = s.(*notify.Service)
	}
	var filer agent.TicketFiler
	if s, ok := a.registry.ByType(service.Tickets); ok {
		filer = s.(*tickets.Service)
	}

	var store agent.Warehouse
	if wh != nil {
		store = wh
	} else {
		store = unavailableWarehouse{}
	}

	a.orchestrator = agent.NewOrchestrator(
		agent.NewHistorian(docs, store),
		agent.NewRouteAdvisor(store),
		agent.NewMonitor(store, engine, pager, filer),
		agent.Context{Site: cfg.Chat.DefaultSite, Hour: cfg.Chat.DefaultHour},
	)
	slog.Info("app.init.orchestrator.complete", "warehouse", wh != nil)
	return nil
}

func (a *Application) warehouseService() (*warehouse.Service, error) {
	s, ok := a.registry.ByType(service.Warehouse)
	if !ok {
		slog.Warn("app.init.warehouse.missing")
		return nil, nil
	}
	wh, ok := s.(*warehouse.Service)
	if !ok {
		return nil, fmt.Errorf("unexpected warehouse service implementation %T", s)
	}
	return wh, nil
}

func (a *Application) initStream(cfg *config.Config) {
	if cfg.Stream.Endpoint == "" {
		slog.Info("app.init.stream.disabled")
		return
	}
	a.streamClient = stream.NewClient(cfg.Stream.Endpoint, cfg.Stream.TokenPath, cfg.Stream.Timeout.Duration)
	slog.Info("app.init.stream.enabled", "endpoint", cfg.Stream.Endpoint)
}

// Process runs one orchestrated chat turn.
func (a *Application) Process(ctx context.Context, message, siteOverride string) (agent.TurnResult, error) {
	if a.orchestrator == nil {
		return agent.TurnResult{}, fmt.Errorf("application not initialized")
	}
	return a.orchestrator.ProcessMessage(ctx, message, siteOverride)
}

// Stream sends a message through the hosted agent endpoint. Returns a
// *stream.ConfigError when streaming is not configured so callers can fall
// back to Process.
func (a *Application) Stream(ctx context.Context, message string, history []stream.Message) (<-chan stream.Event, error) {
	if a.streamClient == nil {
		return nil, &stream.ConfigError{Reason: "stream endpoint not configured"}
	}
	return a.streamClient.Run(ctx, message, history)
}

// Site returns the conversation's active site.
func (a *Application) Site() string {
	if a.orchestrator == nil {
		return ""
	}
	return a.orchestrator.Site()
}

// SetSite switches the conversation to another site.
func (a *Application) SetSite(site string) {
	if a.orchestrator != nil {
		a.orchestrator.SetSite(site)
	}
}

// Config returns the loaded configuration.
func (a *Application) Config() *config.Config {
	return a.cfg.Get()
}

func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics: %w", err))
		}
	}
	if a.registry != nil {
		if err := a.registry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close registry: %w", err))
		}
	}

	return errors.Join(errs...)
}

func applyDetectOverrides(set *detect.ThresholdSet, cfg config.DetectConfig) {
	if cfg.GhostProbability > 0 {
		set.GhostCycleProbability = cfg.GhostProbability
	}
	if cfg.ChokeProbability > 0 {
		set.ChokePointProbability = cfg.ChokeProbability
	}
	if cfg.GhostSpeedMin > 0 {
		set.GhostSpeedMinMPH = cfg.GhostSpeedMin
	}
	if cfg.GhostLoadMax > 0 {
		set.GhostLoadMaxPct = cfg.GhostLoadMax
	}
	if cfg.ChokeSpeedMax > 0 {
		set.ChokeSpeedMaxMPH = cfg.ChokeSpeedMax
	}
	if cfg.ChokeDensityMin > 0 {
		set.ChokeDensityMin = cfg.ChokeDensityMin
	}
	if cfg.FuelCostPerGallon > 0 {
		set.FuelCostPerGallon = cfg.FuelCostPerGallon
	}
}
