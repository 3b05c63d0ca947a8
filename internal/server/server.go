package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"kanbanlive/internal/activity"
	"kanbanlive/internal/board"
	"kanbanlive/internal/config"
	"kanbanlive/internal/handler"
	"kanbanlive/internal/logging"
	"kanbanlive/internal/middleware"
	"kanbanlive/internal/migrations"
	"kanbanlive/internal/notify"
	"kanbanlive/internal/repository"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config
	Broker *notify.Broker
	Trail  *activity.Trail
	Logger *log.Logger
}

// Pinger is a dependency checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Routes is everything the router needs.
type Routes struct {
	JWTSecret string
	Logger    *log.Logger
	Boards    *handler.BoardHandler
	Lists     *handler.ListHandler
	Tasks     *handler.TaskHandler
	Stream    *handler.StreamHandler
	Health    map[string]Pinger
}

func Init(cfg *config.Config) (*Server, error) {
	logger := logging.New(cfg.LogLevel, cfg.LogJSON)
	log.SetFormatter(logger.Formatter)
	log.SetLevel(logger.GetLevel())

	if cfg.MigrateOnStart {
		if err := migrations.Up(cfg.MigrateURL(), logger); err != nil {
			return nil, err
		}
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("✅ Connected to database")

	broker, err := notify.NewBrokerFromURL(cfg.RedisURL, logger)
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to Redis: %w", err)
	}
	logger.Info("✅ Connected to Redis")

	// Initialize repositories
	boardRepo := repository.NewBoardRepository(db)
	listRepo := repository.NewListRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	trail := activity.NewTrail(activityRepo, broker, logger, cfg.ActivityAppendTimeout)
	svc := board.NewService(board.Stores{
		Boards:  boardRepo,
		Lists:   listRepo,
		Tasks:   taskRepo,
		Members: memberRepo,
		Users:   userRepo,
	}, trail, broker, logger)

	engine := NewRouter(Routes{
		JWTSecret: cfg.JWTSecret,
		Logger:    logger,
		Boards:    handler.NewBoardHandler(svc),
		Lists:     handler.NewListHandler(svc),
		Tasks:     handler.NewTaskHandler(svc),
		Stream:    handler.NewStreamHandler(svc, broker, logger),
		Health: map[string]Pinger{
			"postgres": PingFunc(func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}),
			"redis": broker,
		},
	})

	return &Server{
		Engine: engine,
		DB:     db,
		Config: cfg,
		Broker: broker,
		Trail:  trail,
		Logger: logger,
	}, nil
}

// OpenDB connects gorm to the configured Postgres.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
	}
	return db, nil
}

func NewRouter(rt Routes) *gin.Engine {
	if rt.Logger == nil {
		rt.Logger = log.StandardLogger()
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(rt.Logger))

	// Public routes
	r.GET("/healthz", health(rt.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(rt.JWTSecret))
	{
		// Board routes
		authorized.POST("/boards", rt.Boards.Create)
		authorized.GET("/boards", rt.Boards.GetAll)
		authorized.GET("/boards/:id", rt.Boards.GetByID)
		authorized.PUT("/boards/:id", rt.Boards.Update)
		authorized.DELETE("/boards/:id", rt.Boards.Delete)
		authorized.GET("/boards/:id/activity", rt.Boards.Activity)
		authorized.GET("/boards/:id/stream", rt.Stream.Stream)

		// Member routes
		authorized.GET("/boards/:id/members", rt.Boards.Members)
		authorized.POST("/boards/:id/members", rt.Boards.AddMember)
		authorized.DELETE("/boards/:id/members/:user_id", rt.Boards.RemoveMember)

		// List routes
		authorized.GET("/boards/:id/lists", rt.Lists.GetAll)
		authorized.POST("/boards/:id/lists", rt.Lists.Create)
		authorized.PUT("/lists/:id", rt.Lists.Update)
		authorized.DELETE("/lists/:id", rt.Lists.Delete)
		authorized.POST("/lists/:id/move", rt.Lists.Move)

		// Task routes
		authorized.GET("/boards/:id/tasks", rt.Tasks.GetByBoardID)
		authorized.GET("/lists/:id/tasks", rt.Tasks.GetByListID)
		authorized.POST("/lists/:id/tasks", rt.Tasks.Create)
		authorized.GET("/tasks/:id", rt.Tasks.GetByID)
		authorized.PUT("/tasks/:id", rt.Tasks.Update)
		authorized.DELETE("/tasks/:id", rt.Tasks.Delete)
		authorized.POST("/tasks/:id/move", rt.Tasks.MoveTask)
		authorized.POST("/tasks/:id/assign", rt.Tasks.AssignUser)
		authorized.DELETE("/tasks/:id/assign", rt.Tasks.UnassignUser)
	}
	return r
}

func health(deps map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{}
		for name, p := range deps {
			if err := p.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				checks[name] = err.Error()
				continue
			}
			checks[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
	}
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		s.Logger.Infof("🚀 Server running on port %s", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatalf("❌ Failed to listen: %s", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.Logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.Logger.WithError(err).Error("❌ Server forced to shutdown")
	}

	s.Trail.Wait()
	if err := s.Broker.Close(); err != nil {
		s.Logger.WithError(err).Warn("Redis close failed")
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	s.Logger.Info("✅ Server exited properly")
}
