package app

import (
	"bizbox_backend/internal/config"
	"bizbox_backend/internal/controller"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/service"
	"bizbox_backend/pkg/configwatcher"
	"bizbox_backend/pkg/database"
	"bizbox_backend/pkg/logger"
	"bizbox_backend/pkg/monitoring"
	"bizbox_backend/pkg/security"
	"bizbox_backend/pkg/tracing"
	"context"
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
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	organization *repository.OrganizationRepository
	cbt          *repository.CBTRepository
	testResult   *repository.TestResultRepository
	whatsapp     *repository.WhatsAppRepository
	notification *repository.NotificationRepository
	commerce     *repository.CommerceRepository
	blog         *repository.BlogRepository
	customer     *repository.CustomerRepository
}

type services struct {
	auth         *service.AuthService
	storage      *service.StorageService
	organization *service.OrganizationService
	sessionCache *service.SessionCache
	catalog      *service.CatalogService
	practice     *service.PracticeService
	grading      *service.GradingService
	result       *service.ResultService
	importer     *service.QuestionImportService
	hub          *service.EventHub
	whatsapp     *service.WhatsAppService
	notification *service.NotificationService
	commerce     *service.CommerceService
	blog         *service.BlogService
	customer     *service.CustomerService
	scheduler    *service.Scheduler
}

type controllers struct {
	auth         *controller.AuthController
	organization *controller.OrganizationController
	catalog      *controller.CatalogController
	practice     *controller.PracticeController
	whatsapp     *controller.WhatsAppController
	ws           *controller.WsController
	notification *controller.NotificationController
	commerce     *controller.CommerceController
	blog         *controller.BlogController
	customer     *controller.CustomerController
	public       *controller.PublicController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		organization: repository.NewOrganizationRepository(db),
		cbt:          repository.NewCBTRepository(db),
		testResult:   repository.NewTestResultRepository(db),
		whatsapp:     repository.NewWhatsAppRepository(db),
		notification: repository.NewNotificationRepository(db),
		commerce:     repository.NewCommerceRepository(db),
		blog:         repository.NewBlogRepository(db),
		customer:     repository.NewCustomerRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.organization = service.NewOrganizationService(repos.organization, repos.user, s.storage)

	s.hub = service.NewEventHub(rdb)

	s.sessionCache = service.NewSessionCache(rdb, time.Duration(cfg.CBT.SessionCacheSeconds)*time.Second)
	s.catalog = service.NewCatalogService(repos.cbt, s.sessionCache)
	s.practice = service.NewPracticeService(repos.cbt, s.sessionCache)
	s.grading = service.NewGradingService(db, repos.cbt, repos.testResult, s.hub)
	s.result = service.NewResultService(repos.testResult, s.catalog)
	s.importer = service.NewQuestionImportService(db, repos.cbt, s.sessionCache)

	s.whatsapp = service.NewWhatsAppService(repos.whatsapp, service.NewWhatsAppClient(cfg.WhatsApp), s.hub, cfg.WhatsApp)
	s.notification = service.NewNotificationService(repos.notification, repos.user, service.NewPushSender(cfg.Push), s.hub, s.hub)
	s.commerce = service.NewCommerceService(repos.commerce, s.storage, service.NewPaystackClient(cfg.Payment), s.hub, cfg.Payment.Currency)
	s.commerce.Notifier = s.notification
	s.blog = service.NewBlogService(repos.blog, s.organization, s.storage)
	s.customer = service.NewCustomerService(repos.customer, s.organization)

	s.hub.Handle("notification.read", s.notification.HandleReadOp)
	s.hub.Handle("notification.delete", s.notification.HandleDeleteOp)
	s.hub.Handle("message.send", s.whatsapp.HandleSendOp)

	s.scheduler = service.NewScheduler(s.notification, s.commerce, cfg.Scheduler)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		organization: controller.NewOrganizationController(s.organization, s.auth),
		catalog:      controller.NewCatalogController(s.catalog),
		practice:     controller.NewPracticeController(s.practice, s.grading, s.result, s.importer),
		whatsapp:     controller.NewWhatsAppController(s.whatsapp),
		ws:           controller.NewWsController(s.hub, s.whatsapp),
		notification: controller.NewNotificationController(s.notification),
		commerce:     controller.NewCommerceController(s.commerce),
		blog:         controller.NewBlogController(s.blog),
		customer:     controller.NewCustomerController(s.customer),
		public:       controller.NewPublicController(s.organization, s.blog, s.customer),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// OpenStores connects the database and, when configured, Redis. Redis is
// optional: without it the hub delivers locally and sessions are not cached.
func OpenStores(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	migrate := cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Redis.Host == "" {
		logger.Log.Warn("Redis not configured, running single-instance")
		return db, nil, nil
	}
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, running single-instance", zap.Error(err))
		return db, nil, nil
	}
	return db, rdb, nil
}

func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized")

	db, rdb, err := OpenStores(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}
	if cfg.MigrateOnly {
		return app, nil
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode != gin.ReleaseMode {
		router.Use(gin.Logger())
	}
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Tracing disabled", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetLevel(newCfg)
	})
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		services.whatsapp.Reload(newCfg.WhatsApp)
	})

	return app, nil
}

func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.services.hub.Run(ctx)

	if err := a.services.scheduler.Start(); err != nil {
		return err
	}

	if a.Config.ConfigFile != "" {
		go func() {
			err := configwatcher.WatchConfig(ctx, a.Config.ConfigFile, func(newCfg *config.Config) {
				for _, cb := range a.configCallbacks {
					cb(newCfg)
				}
			})
			if err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server listening", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	logger.Log.Info("Shutting down server")

	a.services.scheduler.Stop()
	a.services.hub.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Tracer shutdown failed", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exited")
	return nil
}
