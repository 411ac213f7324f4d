package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ecoscanner/internal/catalog"
	"ecoscanner/internal/config"
	"ecoscanner/internal/handler"
	"ecoscanner/internal/logger"
	"ecoscanner/internal/middleware"
	"ecoscanner/internal/repository/sqlite"
	"ecoscanner/internal/route"
	"ecoscanner/internal/service/account"
	"ecoscanner/internal/service/ai"
	"ecoscanner/internal/service/ai/dnn"
	"ecoscanner/internal/service/correction"
	"ecoscanner/internal/service/impact"
	"ecoscanner/internal/service/scan"
	"ecoscanner/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	detector   ai.Detector
	hubService *websocket.HubService
	router     http.Handler
}

// NewApp loads configuration and wires storage, the detection pipeline and the
// HTTP routes. A detector that fails to load does not stop startup; it shows
// up in /healthz and scans answer 503.
func NewApp() (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := logger.NewLogger(cfg)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	history := sqlite.NewHistoryRepository(db)

	accounts, err := account.NewService(sqlite.NewUserRepository(db), 0)
	if err != nil {
		db.Close()
		return nil, err
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	detector, annotator, err := newDetector(cfg, cat, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := impact.NewMetrics(registry)
	if err != nil {
		db.Close()
		return nil, err
	}

	pipeline, err := impact.NewPipeline(impact.Options{
		Detector:  detector,
		Annotator: annotator,
		Corrector: correction.Corrector{
			ClosureLabel:   cfg.ClosureLabel,
			ContainerLabel: cfg.ContainerLabel,
			AreaThreshold:  cfg.ClosureAreaThreshold,
		},
		Catalog:     cat,
		WeightGrams: cfg.ItemWeightGrams,
		Metrics:     metrics,
	}, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	hub := websocket.NewHubService(log)

	status := handler.SystemStatus{
		Backend:      detector.Name(),
		DatabasePath: db.Path(),
	}
	if cfg.DetectorBackend == config.BackendDNN {
		status.ModelWeights = cfg.ModelWeights()
		status.FineTuned = cfg.FineTuned()
	}

	router := route.SetupRoutes(route.Dependencies{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		History:  history,
		Accounts: accounts,
		Catalog:  cat,
		Detector: detector,
		Pipeline: pipeline,
		Scans:    scan.NewStore(time.Duration(cfg.ScanTTLMinutes) * time.Minute),
		Hub:      hub,
		Sessions: middleware.NewSessionStore(cfg.SessionSecret),
		Gatherer: registry,
		Status:   status,
	})

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		detector:   detector,
		hubService: hub,
		router:     router,
	}, nil
}

// newDetector builds the configured backend and the annotator that goes with it.
func newDetector(cfg *config.Config, cat *catalog.Catalog, log *logger.Logger) (ai.Detector, ai.Annotator, error) {
	thresholds := ai.Thresholds{Confidence: cfg.ConfidenceThreshold, NMS: cfg.NMSThreshold}

	switch cfg.DetectorBackend {
	case config.BackendRemote:
		return ai.NewRemoteDetector(cfg.InferenceURL, thresholds, log), ai.ImageAnnotator{}, nil
	case config.BackendOllama:
		d, err := ai.NewOllamaDetector(cfg.OllamaURL, cfg.OllamaModel, cat.Labels(), thresholds, log)
		if err != nil {
			return nil, nil, err
		}
		return d, ai.ImageAnnotator{}, nil
	default:
		d := dnn.New(dnn.Options{
			WeightsPath: cfg.ModelWeights(),
			LabelsPath:  cfg.LabelsPath,
			InputSize:   cfg.ModelInputSize,
			Thresholds:  thresholds,
		}, log)
		return d, d, nil
	}
}

// Run serves HTTP until SIGINT or SIGTERM, then drains connections.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.close()

	// Start background services
	go a.hubService.Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("EcoScanner listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Detector backend: %s", a.detector.Name())
	a.logger.Info("Database: %s", a.db.Path())
	if a.config.DetectorBackend == config.BackendDNN {
		a.logger.Info("Model weights: %s (fine-tuned: %t)", a.config.ModelWeights(), a.config.FineTuned())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (a *App) close() {
	if closer, ok := a.detector.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.logger.Error("Failed to close detector: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
	a.logger.Close()
}
