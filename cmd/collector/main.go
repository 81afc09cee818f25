package main

// @title           Sitewatch Collector API
// @version         1.0
// @description     Central collector for the sitewatch fleet. Receives probe reports from per-site agents, manages agent approval, distributes site configuration and agent updates, and derives site health.
// @host      localhost:9000
// @BasePath  /
// @securityDefinitions.basic  BasicAuth

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"

	_ "github.com/rfcampos/sitewatch/docs/collector"
	"github.com/rfcampos/sitewatch/internal/config"
	"github.com/rfcampos/sitewatch/internal/server/collector/handler"
	authentication "github.com/rfcampos/sitewatch/pkg/auth"
	"github.com/rfcampos/sitewatch/pkg/database"
	"github.com/rfcampos/sitewatch/pkg/deps"
	"github.com/rfcampos/sitewatch/pkg/logger"
	"github.com/rfcampos/sitewatch/pkg/middleware"
	"github.com/rfcampos/sitewatch/pkg/pubsub"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.NewLoggerFromEnv("collector")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting collector service")

	cfg, err := config.LoadCollectorConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	log.Info("configuration loaded",
		logger.String("server_addr", cfg.ServerAddr),
		logger.String("database_path", cfg.DatabasePath),
		logger.Duration("offline_threshold", cfg.OfflineThreshold),
	)

	auth := middleware.SetBasicAuth(&authentication.BasicAuthTConfig{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
	})
	mid := middleware.NewAuthMiddleware(auth)

	db, err := database.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	log.Info("database initialized", logger.String("path", cfg.DatabasePath))

	if err := database.RunMigrations(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	app := fiber.New(fiber.Config{
		AppName:               "Sitewatch Collector",
		DisableStartupMessage: true,
		BodyLimit:             96 << 20, // speedtest uploads
		ErrorHandler:          middleware.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.CanonicalLoggerMiddleware(log))

	deps := deps.App{
		Fiber:      app,
		Database:   db,
		Logger:     log,
		Middleware: mid,
	}

	if cfg.Redis != nil {
		redisCfg := pubsub.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		redisPub, err := pubsub.NewRedisPubSub(redisCfg, log)
		if err != nil {
			log.WithError(err).Error("failed to initialize Redis pub/sub, approval events will not be published")
		} else {
			deps.Pub = redisPub
			log.Info("Redis pub/sub initialized",
				logger.String("host", cfg.Redis.Host),
				logger.Int("port", cfg.Redis.Port))
			defer redisPub.Close()
		}
	}

	handler.NewHandler(deps, cfg)

	app.Get("/swagger/*", swagger.HandlerDefault)

	ctx, cancel := context.WithCancel(context.Background())
	gErr, gCtx := errgroup.WithContext(ctx)

	gErr.Go(func() error {
		log.Info("collector service is running", logger.String("address", cfg.ServerAddr))
		if err := app.Listen(cfg.ServerAddr); err != nil {
			cancel()
			return err
		}
		return nil
	})

	gErr.Go(func() error {
		<-gCtx.Done()

		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("failed to shutdown fiber app")
			return err
		}

		conn, err := db.DB()
		if err != nil {
			log.WithError(err).Error("failed to get database connection")
			return err
		}
		return conn.Close()
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	if err := gErr.Wait(); err != nil {
		log.WithError(err).Fatal("collector service encountered an error")
	}

	log.Info("collector service stopped")
}
