package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"equipment-tracker/internal/config"
	apphttp "equipment-tracker/internal/http"
	"equipment-tracker/internal/repository"
	redisrepo "equipment-tracker/internal/repository/redis"
	"equipment-tracker/internal/repository/sqlite"
	"equipment-tracker/internal/service"
	"equipment-tracker/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}

	if strings.TrimSpace(cfg.Auth.SessionSecret) == "" {
		logger.Fatalf("auth session secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	equipmentRepo := sqlite.NewEquipmentRepository(db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := equipmentRepo.Init(ctx); err != nil {
		logger.Fatalf("init equipment repository: %v", err)
	}

	sessionRepo, closeSessions, err := buildSessionRepository(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatalf("setup sessions: %v", err)
	}
	defer closeSessions()

	userService := service.NewUserService(userRepo)
	created, err := userService.SeedDefault(ctx, cfg.Auth.DefaultEmail, cfg.Auth.DefaultPassword)
	if err != nil {
		logger.Fatalf("seed default user: %v", err)
	}
	if created {
		logger.WithField("email", cfg.Auth.DefaultEmail).Info("created default user")
	}
	if cfg.UsesDefaultPassword() {
		logger.Warn("default user keeps the built-in password; set INVENTORY_AUTH_DEFAULT_PASSWORD")
	}

	equipmentService := service.NewEquipmentService(equipmentRepo)
	exportService := service.NewExportService(equipmentRepo)
	sessionService := service.NewSessionService(
		sessionRepo,
		cfg.Auth.SessionSecret,
		time.Duration(cfg.Auth.SessionTTLMinutes)*time.Minute,
	)

	var archiveService service.ArchiveService
	if cfg.Storage.Bucket != "" {
		storageSvc, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}
		archiveService = service.NewArchiveService(exportService, storageSvc, cfg.Storage.Bucket, cfg.Storage.KeyPrefix)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Options{
		Equipment:    equipmentService,
		Exports:      exportService,
		Archives:     archiveService,
		Users:        userService,
		Sessions:     sessionService,
		Logger:       logger,
		FlashSecret:  cfg.Auth.SessionSecret,
		SecureCookie: cfg.Auth.SecureCookie,
		CORSOrigins:  cfg.CORSOriginList(),
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func buildSessionRepository(ctx context.Context, cfg config.Config, db *sql.DB, logger *logrus.Logger) (repository.SessionRepository, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Session.Backend)) {
	case "", "sqlite":
		repo := sqlite.NewSessionRepository(db)
		if err := repo.Init(ctx); err != nil {
			return nil, nil, fmt.Errorf("init session repository: %w", err)
		}
		return repo, func() {}, nil
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		repo := redisrepo.NewSessionRepository(rdb)
		if err := repo.Init(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("init redis sessions: %w", err)
		}
		logger.Infof("using redis session store at %s", cfg.Redis.Addr)
		return repo, func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("archiving exports to s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
