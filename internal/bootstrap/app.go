package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"findoc-backend/internal/documents"
	"findoc-backend/internal/jobs"
	"findoc-backend/internal/llm"
	"findoc-backend/internal/llm/gemini"
	"findoc-backend/internal/pipeline"
	"findoc-backend/internal/results"
	"findoc-backend/internal/shared/config"
	"findoc-backend/internal/shared/metrics"
	"findoc-backend/internal/shared/server/middleware"
	"findoc-backend/internal/shared/server/respond"
	"findoc-backend/internal/shared/storage/db"
	"findoc-backend/internal/shared/storage/object"
	"findoc-backend/internal/shared/storage/object/local"
	"findoc-backend/internal/shared/storage/object/s3"
	"findoc-backend/internal/shared/telemetry"
	"findoc-backend/internal/users"
)

// App wires the repositories, pipeline and HTTP router.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    object.ObjectStore
	Queue    jobs.Queue
	Docs     documents.Repo
	Results  results.Repo
	Users    users.Repo
	LLM      llm.Client
	Pipeline *pipeline.Pipeline
}

// Build constructs the app with the configured Gemini client.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	client, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}
	return BuildWithLLM(ctx, cfg, client)
}

// BuildWorker constructs the app for a standalone worker process, with the
// smaller connection pool a worker needs.
func BuildWorker(ctx context.Context, cfg config.Config) (*App, error) {
	client, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}
	return build(ctx, cfg, client, db.DefaultWorkerOptions())
}

// BuildWithLLM constructs the app around a caller-supplied LLM client. Tests
// use it to swap in fakes.
func BuildWithLLM(ctx context.Context, cfg config.Config, client llm.Client) (*App, error) {
	return build(ctx, cfg, client, db.DefaultServerOptions())
}

func build(ctx context.Context, cfg config.Config, client llm.Client, poolOpts db.Options) (*App, error) {
	app := &App{Config: cfg, LLM: client}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(poolOpts))
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		app.DB = database
		app.Docs = &documents.PGRepo{DB: database}
		app.Queue = &jobs.PGQueue{DB: database}
		app.Results = &results.PGRepo{DB: database}
		app.Users = &users.PGRepo{DB: database}
	} else {
		telemetry.Warn("bootstrap.memory_mode", map[string]any{
			"detail": "DATABASE_URL not set; state is lost on restart",
		})
		app.Docs = documents.NewMemoryRepo()
		app.Queue = jobs.NewMemoryQueue()
		app.Results = results.NewMemoryRepo()
		app.Users = users.NewMemoryRepo()
	}

	app.Pipeline = &pipeline.Pipeline{
		Docs:    app.Docs,
		Queue:   app.Queue,
		Results: app.Results,
		Users:   app.Users,
		Store:   app.Store,
		LLM:     app.LLM,
		Timeout: cfg.JobTimeout,
	}

	app.Router = buildRouter(app)
	return app, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, fmt.Errorf("build s3 store: %w", err)
		}
		return store, nil
	default:
		return local.New(cfg.LocalStoreDir), nil
	}
}

func buildRouter(app *App) *gin.Engine {
	cfg := app.Config
	if cfg.Env == "production" || cfg.Env == "staging" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSAllowOrigin))
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	docService := &documents.Service{
		Repo:         app.Docs,
		Store:        app.Store,
		Queue:        app.Queue,
		Users:        app.Users,
		DefaultQuery: cfg.DefaultQuery,
	}
	var sync documents.SyncRunner
	if cfg.SyncUploadEnable {
		sync = app.Pipeline
	}

	api := r.Group("/api/v1")
	documents.NewHandler(docService, sync, cfg.MaxUploadBytes).RegisterRoutes(api)
	jobs.NewHandler(app.Queue).RegisterRoutes(api)
	results.NewHandler(app.Results, app.Queue).RegisterRoutes(api)

	api.GET("/health", func(c *gin.Context) {
		respond.OK(c, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.GET("/metrics", metrics.Handler())

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})
	return r
}

// StartWorker runs the embedded worker pool until ctx is cancelled.
func (a *App) StartWorker(ctx context.Context, workerID string) {
	w := &pipeline.Worker{
		Queue:        a.Queue,
		Pipeline:     a.Pipeline,
		ID:           workerID,
		Concurrency:  a.Config.WorkerCount,
		Lease:        a.Config.JobLease,
		PollInterval: a.Config.PollInterval,
	}
	w.Run(ctx)
}

// Close releases held resources.
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
