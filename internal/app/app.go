package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"manualgen/features/manual"
	"manualgen/features/run"
	"manualgen/features/stats"
	"manualgen/internal/config"
	"manualgen/internal/imagestore"
	"manualgen/internal/middleware"
	"manualgen/internal/pipeline"
	"manualgen/internal/settings"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	Handler         http.Handler
	SettingsService *settings.Service
	RunService      *run.Service
	ManualService   *manual.Service
	port            int
}

func New(cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*App, error) {
	if deps == nil {
		deps = &Dependencies{}
	}

	// Feature: Settings
	var settingsRepo settings.Repository = settings.NewMemoryRepo()
	if deps.DB != nil {
		settingsRepo = settings.NewPostgresRepo(deps.DB)
	}
	settingsService := settings.NewService(settingsRepo, settings.Settings{
		GeminiAPIKey: cfg.GeminiAPIKey,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
	})
	settingsHandler := settings.NewHandler(settingsService)

	// Adapters
	if deps.Models == nil {
		deps.Models = NewModels(cfg, settingsService)
	}
	models := deps.Models

	var store pipeline.ImageStore = imagestore.NewDataURLStore()
	var fileStore *imagestore.FileStore
	if cfg.ImageMode == imagestore.ModeFile {
		fs, err := imagestore.NewFileStore(cfg.ImageDir, "/images/")
		if err != nil {
			return nil, fmt.Errorf("image store: %w", err)
		}
		fileStore = fs
		store = fs
	}

	var prompts pipeline.PromptDeriver = pipeline.NewModelPrompts(models.Prompts)
	if cfg.PromptMode == config.PromptModeInline {
		prompts = pipeline.InlinePrompts{}
	}

	pl := pipeline.New(
		pipeline.NewExtractor(models.Extractor),
		pipeline.NewSynthesizer(models.Synthesizer, cfg.MaxSections),
		pipeline.NewIllustrator(prompts, models.Images, store, cfg.ImageConcurrency),
	)

	// Feature: Run history
	runLog, err := run.NewFileLog(cfg.RunLogPath)
	if err != nil {
		slog.Warn("failed to create run log, falling back to stdout", "error", err)
		runLog = run.NewLog(os.Stdout)
	}
	var runRepo run.Repository
	var statsHandler *stats.Handler
	if deps.DB != nil {
		pgRuns := run.NewPostgresRepo(deps.DB)
		runRepo = pgRuns
		statsHandler = stats.NewHandler(pgRuns)
	}
	var runPub run.EventPublisher
	if deps.NSQProducer != nil {
		runPub = deps.NSQProducer
	}
	runService := run.NewService(runRepo, runLog, runPub, logger)
	runHandler := run.NewHandler(runService)

	// Feature: Manual
	manualService := manual.NewService(pl, runService, cfg.RequestTimeout())
	manualHandler := manual.NewHandler(manualService, cfg.MaxUploadSizeMB<<20)

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /manuals", middleware.CorrelationID(middleware.CORS(manualHandler.Generate)))
	mux.Handle("POST /generate-manual", middleware.CorrelationID(middleware.CORS(manualHandler.Generate)))

	mux.Handle("GET /settings", middleware.CorrelationID(middleware.CORS(settingsHandler.GetSettings)))
	mux.Handle("PUT /settings", middleware.CorrelationID(middleware.CORS(settingsHandler.UpdateSettings)))

	if runRepo != nil {
		mux.Handle("GET /runs", middleware.CorrelationID(middleware.CORS(runHandler.List)))
		mux.Handle("GET /runs/{id}", middleware.CorrelationID(middleware.CORS(runHandler.Get)))
		mux.Handle("GET /stats", middleware.CorrelationID(middleware.CORS(statsHandler.GetStats)))
	}

	if fileStore != nil {
		mux.Handle("GET "+fileStore.URLPrefix(), fileStore.Handler())
	}

	// Preflight for every route
	mux.Handle("OPTIONS /", middleware.CORS(func(http.ResponseWriter, *http.Request) {}))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	logger.Info("app configured",
		"provider", cfg.LLMProvider,
		"image_mode", cfg.ImageMode,
		"prompt_mode", cfg.PromptMode,
		"max_sections", cfg.MaxSections,
		"run_history", runRepo != nil,
		"run_events", runPub != nil)

	return &App{
		Handler:         mux,
		SettingsService: settingsService,
		RunService:      runService,
		ManualService:   manualService,
		port:            cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
