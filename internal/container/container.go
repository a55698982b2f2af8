package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"cropadvisor/adapters/api"
	"cropadvisor/adapters/modelstore"
	"cropadvisor/adapters/postgres"
	"cropadvisor/domain/agronomy"
	"cropadvisor/internal"
	"cropadvisor/internal/advisor"
	"cropadvisor/internal/compat"
	"cropadvisor/internal/config"
	"cropadvisor/internal/dosage"
	"cropadvisor/internal/errors"
	"cropadvisor/internal/features"
	"cropadvisor/internal/inference"
	"cropadvisor/internal/metrics"
	"cropadvisor/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Observability
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Model artifacts, loaded once and shared read-only
	Model *ports.ModelContext

	// Engine
	Features   *features.Builder
	Scorer     *compat.Scorer
	Classifier *inference.Classifier
	Regressor  *inference.Regressor
	Optimizer  *dosage.Optimizer
	Advisor    *advisor.Advisor

	// Infrastructure (optional)
	DB    *sqlx.DB
	Plots ports.PlotRepository
}

// New loads the model artifacts named by cfg and builds the engine around them.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	mc, err := modelstore.NewStore(cfg.Model.Dir, logger).Load()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load models from %s", cfg.Model.Dir)
	}
	return NewWithModel(cfg, mc, logger)
}

// NewWithModel builds the engine around an already loaded model context.
func NewWithModel(cfg *config.Config, mc *ports.ModelContext, logger *internal.Logger) (*Container, error) {
	if cfg == nil || mc == nil {
		return nil, fmt.Errorf("config and model context are required")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Model:    mc,
	}
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = metrics.New(c.Registry)

	if err := c.initEngine(); err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	return c, nil
}

// initEngine wires feature building, inference, optimization and the advisor
func (c *Container) initEngine() error {
	var err error
	c.Features, err = features.NewBuilder(c.Model)
	if err != nil {
		return err
	}

	c.Scorer = compat.NewScorer(c.Model.References)
	c.Classifier = inference.NewClassifier(c.Model, c.Features, c.Scorer, c.Metrics)
	c.Regressor = inference.NewRegressor(c.Model, c.Features, c.Metrics)
	c.Optimizer = dosage.NewOptimizer(c.Regressor, c.Config.Engine.DosageWorkers, c.Logger, c.Metrics)

	fallback := agronomy.ParseCrop(c.Config.Engine.FallbackCrop)
	if !c.Model.Crops.Contains(fallback) {
		c.Logger.Warn("fallback crop %q is not in the model vocabulary", fallback)
	}

	c.Advisor = advisor.New(advisor.Deps{
		Classifier: c.Classifier,
		Regressor:  c.Regressor,
		Optimizer:  c.Optimizer,
		Scorer:     c.Scorer,
		References: c.Model.References,
		Crops:      c.Model.Crops,
		Logger:     c.Logger,
		Metrics:    c.Metrics,
	}, advisor.Options{
		FallbackCrop:       fallback,
		FallbackConfidence: c.Config.Engine.FallbackConfidence,
		PlotWorkers:        c.Config.Engine.PlotWorkers,
		Thresholds:         agronomy.DefaultThresholds,
	})
	return nil
}

// InitWithDatabase connects to the farm-management database and enables the
// plot repository.
func (c *Container) InitWithDatabase(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is not set")
	}

	db, err := postgres.Connect(ctx, c.Config.Database.URL, c.Config.Database.MaxOpen)
	if err != nil {
		return err
	}
	c.DB = db
	c.Plots = postgres.NewPlotRepository(db)

	c.Logger.Info("database connection established")
	return nil
}

// Server builds the HTTP surface over the engine.
func (c *Container) Server() *api.Server {
	return api.NewServer(api.Deps{
		Advisor:   c.Advisor,
		Optimizer: c.Optimizer,
		Model:     c.Model,
		Plots:     c.Plots,
		Gatherer:  c.Registry,
		Logger:    c.Logger,
	}, c.Config.Server.RequestTimeout)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
