package app

import (
	"context"
	"log"
	"mentor_site_backend/internal/config"
	"mentor_site_backend/internal/controller"
	"mentor_site_backend/internal/repository"
	"mentor_site_backend/internal/service"
	"mentor_site_backend/pkg/clocksync"
	"mentor_site_backend/pkg/configwatcher"
	"mentor_site_backend/pkg/database"
	"mentor_site_backend/pkg/logger"
	"mentor_site_backend/pkg/monitoring"
	"mentor_site_backend/pkg/security"
	"mentor_site_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services

	tracerProvider *sdktrace.TracerProvider
	bgCancel       context.CancelFunc
}

type repositories struct {
	user     *repository.UserRepository
	course   *repository.CourseRepository
	progress *repository.ProgressRepository
	ballot   *repository.BallotRepository
	stats    *repository.StatsRepository
	post     *repository.PostRepository
}

type services struct {
	auth      *service.AuthService
	user      *service.UserService
	storage   *service.StorageService
	course    *service.CourseService
	cache     *service.ProgressCacheService
	progress  *service.ProgressService
	ranklist  *service.RanklistService
	hub       *service.RanklistHub
	ballot    *service.BallotService
	community *service.CommunityService
	clock     *clocksync.Syncer
}

type controllers struct {
	health    *controller.HealthController
	clock     *controller.ClockController
	auth      *controller.AuthController
	user      *controller.UserController
	course    *controller.CourseController
	progress  *controller.ProgressController
	ranklist  *controller.RanklistController
	community *controller.CommunityController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		course:   repository.NewCourseRepository(db),
		progress: repository.NewProgressRepository(db),
		ballot:   repository.NewBallotRepository(db),
		stats:    repository.NewStatsRepository(db),
		post:     repository.NewPostRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user, db)
	s.course = service.NewCourseService(repos.course)
	s.cache = service.NewProgressCacheService(rdb, cfg)

	s.progress = service.NewProgressService(repos.progress, repos.course, s.cache, cfg)

	// 分页视图走预聚合表，Top-N 挂件直接在原始 solves 上折算
	pageSource := &service.StatsSolveSource{StatsRepo: repos.stats}
	widgetSource := &service.RawSolveSource{ProgressRepo: repos.progress, CourseRepo: repos.course}
	s.ranklist = service.NewRanklistService(pageSource, widgetSource, repos.user, cfg)

	s.hub = service.NewRanklistHub(s.ranklist, rdb, cfg)
	s.progress.Notifier = s.hub

	s.ballot = service.NewBallotService(repos.ballot, repos.course, repos.post)
	s.community = service.NewCommunityService(repos.post)

	if cfg.Clock.UpstreamEndpoint != "" {
		s.clock = clocksync.NewSyncer(cfg.Clock.UpstreamEndpoint)
	}

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		health:    controller.NewHealthController(db),
		clock:     controller.NewClockController(s.clock),
		auth:      controller.NewAuthController(s.auth, s.cache),
		user:      controller.NewUserController(s.user, s.storage),
		course:    controller.NewCourseController(s.course),
		progress:  controller.NewProgressController(s.progress, s.cache),
		ranklist:  controller.NewRanklistController(s.ranklist, s.hub),
		community: controller.NewCommunityController(s.community, s.ballot),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 6000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(ctx context.Context, s *services) {
	go s.hub.Run()

	if s.clock != nil {
		interval := time.Duration(a.Config.Clock.SyncIntervalSeconds) * time.Second
		go s.clock.Run(ctx, interval)
	}

	// 配置热更新：只刷新可以安全在运行中替换的节奏类参数
	go configwatcher.WatchConfig("configs/config.yaml", a.Config, func(newCfg interface{}) {
		cfg, ok := newCfg.(*config.Config)
		if !ok {
			return
		}
		a.Config.Progress = cfg.Progress
		a.Config.Ranklist = cfg.Ranklist
		logger.Log.Info("hot-reloaded pacing config",
			zap.Int("unlockDelayMediumMinutes", cfg.Progress.UnlockDelayMediumMinutes),
			zap.Int("pollIntervalSeconds", cfg.Ranklist.PollIntervalSeconds))
	})
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存镜像与在线推送降级运行，权威路径不依赖 Redis
		logger.Log.Warn("Redis unavailable, progress cache and live fan-out degraded", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("mentor-site", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.bgCancel = cancel
	app.startBackgroundTasks(ctx, services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 先停推送中枢，断开全部 websocket
	if a.services != nil && a.services.hub != nil {
		a.services.hub.Stop()
	}
	if a.bgCancel != nil {
		a.bgCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
