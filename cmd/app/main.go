package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/api"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/middleware"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/notify"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/repository"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/service"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/storage"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/auth"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"
)

type store interface {
	service.DirectoryRepository
	service.TaskRepository
	service.ProofRepository
	service.WithdrawalRepository
	service.Transactor
	Close() error
}

func openStore(ctx context.Context, cfg repository.Config) (store, error) {
	if cfg.Driver == repository.DriverMemory {
		logger.Logger().Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryRepository(), nil
	}

	repo, err := repository.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx := context.Background()

	repo, err := openStore(ctx, cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	files, err := storage.NewOsFileStore(cfg.Storage.ProofDir)
	if err != nil {
		zapLogger.Fatal("Failed to initialize proof storage", zap.Error(err))
	}

	hub := notify.NewHub()
	notifiers := notify.Multi{hub}
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram)
		if err != nil {
			zapLogger.Error("Telegram notifications disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, tg)
		}
	}

	userService := service.NewUserService(repo, repo, auth.NewBcryptHasher(bcrypt.DefaultCost))
	taskService := service.NewTaskService(repo, repo, repo, cfg.Tasks)
	proofService := service.NewProofService(repo, repo, taskService, repo, files, notifiers)
	withdrawalService := service.NewWithdrawalService(repo, repo, repo, notifiers, cfg.Withdrawals)

	admin, err := userService.Bootstrap(ctx, service.AdminSeed{
		Username: cfg.Admin.Username,
		Name:     cfg.Admin.Name,
		Secret:   cfg.Admin.Password,
	})
	if err != nil {
		zapLogger.Fatal("Failed to bootstrap admin", zap.Error(err))
	}
	zapLogger.Info("Admin ready", zap.String("username", admin.Username), zap.String("ref_id", admin.RefID))

	limiter := middleware.NewRateLimiter(cfg.Redis)
	defer limiter.Close()

	sessions := auth.NewSessionAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a := router.Group("/api/v1")
	api.Register(a, api.Deps{
		Users:       userService,
		Tasks:       taskService,
		Proofs:      proofService,
		Withdrawals: withdrawalService,
		Sessions:    sessions,
		Authz:       middleware.NewAuthorization(userService),
		Limiter:     limiter,
		LoginLimit:  cfg.Redis.LoginLimit,
		LoginWindow: cfg.Redis.LoginWindow,
	})
	a.GET("/ws", sessions.SessionMiddleware(), hub.Handler())

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
