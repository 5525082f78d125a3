package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nextpointlabs/nextpoint-backend/internal/db"
	"github.com/nextpointlabs/nextpoint-backend/internal/handlers"
	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/middleware"
	"github.com/nextpointlabs/nextpoint-backend/internal/observability"
	"github.com/nextpointlabs/nextpoint-backend/internal/platform/gcs"
	"github.com/nextpointlabs/nextpoint-backend/internal/platform/media"
	"github.com/nextpointlabs/nextpoint-backend/internal/repos"
	"github.com/nextpointlabs/nextpoint-backend/internal/server"
	"github.com/nextpointlabs/nextpoint-backend/internal/services"
)

type Repos struct {
	Users              repos.UserRepo
	PointEvents        repos.PointEventRepo
	SubmissionContexts repos.SubmissionContextRepo
	TrimJobs           repos.TrimJobRepo
	Reports            repos.ReportRepo
}

type Services struct {
	Admin      *services.AdminService
	Report     *services.ReportService
	Timeline   *services.TimelineService
	VideoTrim  *services.VideoTrimService
	TrimStatus *services.TrimStatusService
	Embed      *services.EmbedService
}

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	if err := db.NewViewService(pg, log).Rebuild(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("rebuild analytics views: %w", err)
	}
	theDB := pg.DB()

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(ctx, log, reposet)
	if err != nil {
		log.Sync()
		return nil, err
	}

	// The admin upsert must never block startup; a failure is logged
	// and the deploy proceeds.
	if err := serviceset.Admin.EnsureAdminUser(ctx); err != nil {
		log.Error("Admin upsert failed (continuing)", "error", err)
	}

	router := wireRouter(cfg, log, reposet, serviceset)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		otelShutdown: otelShutdown,
	}, nil
}

func wireRepos(theDB *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Users:              repos.NewUserRepo(theDB, log),
		PointEvents:        repos.NewPointEventRepo(theDB, log),
		SubmissionContexts: repos.NewSubmissionContextRepo(theDB, log),
		TrimJobs:           repos.NewTrimJobRepo(theDB, log),
		Reports:            repos.NewReportRepo(theDB, log),
	}
}

func wireServices(ctx context.Context, log *logger.Logger, reposet Repos) (Services, error) {
	store, err := gcs.NewObjectStore(ctx, log)
	if err != nil {
		return Services{}, fmt.Errorf("init object store: %w", err)
	}
	tools := media.NewTools(media.NewExecRunner(), log)
	if err := tools.AssertReady(); err != nil {
		log.Warn("Media tools unavailable, trim requests will fail", "error", err)
	}

	embed, err := services.NewEmbedService(log)
	if err != nil {
		return Services{}, fmt.Errorf("init embed service: %w", err)
	}

	return Services{
		Admin:      services.NewAdminService(reposet.Users, log),
		Report:     services.NewReportService(reposet.Reports, log),
		Timeline:   services.NewTimelineService(log),
		VideoTrim:  services.NewVideoTrimService(store, tools, log),
		TrimStatus: services.NewTrimStatusService(reposet.TrimJobs, log),
		Embed:      embed,
	}, nil
}

func wireRouter(cfg Config, log *logger.Logger, reposet Repos, serviceset Services) *gin.Engine {
	reportHandler := handlers.NewReportHandler(serviceset.Report, log)
	trimHandler := handlers.NewTrimHandler(
		serviceset.VideoTrim,
		serviceset.TrimStatus,
		serviceset.Timeline,
		reposet.PointEvents,
		reposet.SubmissionContexts,
		log,
	)
	embedHandler := handlers.NewEmbedHandler(serviceset.Embed, log)
	opsKey := middleware.NewOpsKeyMiddleware(cfg.OpsKey, log)

	return server.NewRouter(server.RouterConfig{
		ReportHandler:    reportHandler,
		TrimHandler:      trimHandler,
		EmbedHandler:     embedHandler,
		OpsKeyMiddleware: opsKey,
		AllowOrigins:     cfg.AllowOrigins,
		ServiceName:      cfg.ServiceName,
	})
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.TrimStatus != nil {
		_ = a.Services.TrimStatus.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
