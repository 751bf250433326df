package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nodedeck/internal/api"
	"nodedeck/internal/config"
	"nodedeck/internal/logging"
	"nodedeck/internal/packages"
	"nodedeck/internal/pm2"
	"nodedeck/internal/service"
	"nodedeck/internal/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "Path to nodedeck.yaml (default: <data dir>/nodedeck.yaml)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nodedeck: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nodedeck: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps := service.Deps{
		Projects:     store.NewProjectStore(cfg.DataDir, logger),
		Settings:     store.NewSettingsStore(cfg.DataDir, logger),
		Installer:    packages.NewInstaller(cfg.Install.Timeout, logger),
		TemplatesDir: cfg.TemplatesDir,
		Logs:         service.NewLogBuffer(cfg.Log.Buffer),
		Logger:       logger,
	}

	// A missing pm2 leaves the service usable with every project stopped.
	client, err := pm2.Connect(ctx, pm2.Options{Binary: cfg.PM2.Binary, Timeout: cfg.PM2.Timeout, Logger: logger})
	if err != nil {
		logger.Warn().Err(err).Msg("pm2 unavailable, process control disabled")
		deps.PM2Err = err
	} else {
		deps.PM2 = client
	}

	svc := service.NewProjectService(deps)
	seedProjects(ctx, svc, cfg.ProjectsFile, logger)

	router, err := api.NewRouter(svc, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create router")
	}

	srv := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Installs stream for up to install.timeout.
		WriteTimeout: cfg.Install.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(serveFn(srv, logger))

	// egCtx is done on a signal or when the server fails.
	<-egCtx.Done()
	if ctx.Err() != nil {
		logger.Info().Msg("interrupt signal received, shutting down server")
	} else {
		logger.Error().Err(context.Cause(egCtx)).Msg("server errored, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := eg.Wait(); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}

	log.Info().Msg("server exited gracefully")
}

func seedProjects(ctx context.Context, svc *service.ProjectService, path string, logger zerolog.Logger) {
	projCfg, err := config.LoadProjectsConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		logger.Warn().Err(err).Str("file", path).Msg("could not load configured projects")
		return
	}

	seeds := make([]service.Seed, 0, len(projCfg.Projects))
	for _, p := range projCfg.Projects {
		seeds = append(seeds, service.Seed{
			ImportRequest: service.ImportRequest{
				Path:           p.Path,
				Name:           p.Name,
				Description:    p.Description,
				PackageManager: p.PackageManager,
				StartScript:    p.StartScript,
				Env:            p.Environment,
			},
			AutoStart: p.AutoStart,
		})
	}

	started := svc.SeedProjects(ctx, seeds)
	logger.Info().Int("projects", len(seeds)).Int("started", started).Str("file", path).Msg("loaded configured projects")
}

func serveFn(srv *http.Server, logger zerolog.Logger) func() error {
	return func() error {
		logger.Info().Str("address", srv.Addr).Msg("starting nodedeck server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
