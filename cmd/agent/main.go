package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rfcampos/sitewatch/internal/agent/identity"
	"github.com/rfcampos/sitewatch/internal/agent/probe"
	"github.com/rfcampos/sitewatch/internal/agent/repository"
	"github.com/rfcampos/sitewatch/internal/agent/update"
	"github.com/rfcampos/sitewatch/internal/agent/usecase"
	"github.com/rfcampos/sitewatch/internal/config"
	"github.com/rfcampos/sitewatch/internal/models"
	"github.com/rfcampos/sitewatch/pkg/logger"
	"github.com/rfcampos/sitewatch/pkg/version"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.NewLoggerFromEnv("agent")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.LoadAgentConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	log.Info("starting agent",
		logger.String(logger.FieldVersion, version.Current),
		logger.String("server", cfg.Server),
		logger.Bool("loop", cfg.Loop),
	)

	exePath, err := os.Executable()
	if err != nil {
		log.WithError(err).Fatal("failed to resolve own executable path")
	}

	ids := identity.NewStore(cfg.StateFile)
	client := repository.NewCollectorClient(cfg, log)
	runner := probe.NewRunner(probe.NewSystemProber(), cfg.UplinkTargets, cfg.DNSProbeHost, cfg.HTTPProbeURL, log)
	updates := update.NewManager(client, exePath, exePath+".update.json", cfg.RollbackAfter, log)

	loop := usecase.NewLoop(cfg, ids, client, runner, updates, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Loop {
		err := loop.RunOnce(ctx)
		switch {
		case err == nil:
			return
		case errors.Is(err, models.ErrPendingApproval):
			// Expected steady state until an operator approves the agent.
			log.Info("registration pending approval")
			return
		default:
			log.WithError(err).Error("cycle failed")
			os.Exit(1)
		}
	}

	err = loop.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Info("agent stopped")
	case errors.Is(err, usecase.ErrRestartRequired):
		log.Info("update applied, restarting",
			logger.String(logger.FieldVersion, version.Current))
		restart(exePath, log)
	default:
		log.WithError(err).Fatal("agent loop failed")
	}
}

// restart replaces the running process with the freshly swapped binary.
func restart(exePath string, log *logger.CanonicalLogger) {
	log.Sync()
	if err := syscall.Exec(exePath, os.Args, os.Environ()); err != nil {
		log.WithError(err).Fatal("failed to re-exec after update")
	}
}
