package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/local/paintscheme/internal/artifact"
	cfgpkg "github.com/local/paintscheme/internal/config"
	logpkg "github.com/local/paintscheme/internal/logger"
	"github.com/local/paintscheme/internal/metrics"
	"github.com/local/paintscheme/internal/orchestrator"
	"github.com/local/paintscheme/internal/raster"
	"github.com/local/paintscheme/internal/session"
)

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Artifact store
	var store artifact.Store
	switch cfg.Storage.Backend {
	case "s3":
		if cfg.Storage.Bucket == "" {
			log.Fatal().Msg("STORAGE_BACKEND=s3 requires AWS_S3_BUCKET")
		}
		s3store, err := artifact.NewS3Store(rootCtx, cfg.Storage.Bucket, cfg.Storage.Password)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init s3 artifact store")
		}
		store = s3store
	default:
		local, err := artifact.NewLocalStore(cfg.Storage.LocalDir)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init local artifact store")
		}
		store = local
	}

	// Renderer
	renderer := raster.NewRenderer(raster.Limits{
		MinDPI: cfg.Raster.MinDPI,
		MaxDPI: cfg.Raster.MaxDPI,
	})

	orch := buildOrchestrator(rootCtx, cfg, renderer, store)

	mux := http.NewServeMux()
	orch.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: ":" + cfg.HTTP.Port, Handler: mux}

	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()
	ctx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	_ = srv.Shutdown(ctx)
	log.Info().Msg("shutdown complete")
}

func buildOrchestrator(ctx context.Context, cfg cfgpkg.Config, renderer *raster.Renderer, store artifact.Store) *orchestrator.Orchestrator {
	var (
		sessions orchestrator.SessionStore
		starter  func(onExpired func(context.Context, string))
	)
	if cfg.Session.RedisURL != "" {
		rs, err := session.NewRedisStore(cfg.Session.RedisURL, cfg.Session.TTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		sessions = rs
		starter = func(onExpired func(context.Context, string)) {
			rs.StartSweeper(ctx, cfg.Session.SweepInterval, onExpired)
		}
	} else {
		log.Warn().Msg("REDIS_URL not set, using in-memory session store")
		ms := session.NewMemoryStore(cfg.Session.TTL)
		sessions = ms
		starter = func(onExpired func(context.Context, string)) {
			ms.StartSweeper(ctx, cfg.Session.SweepInterval, onExpired)
		}
	}

	orch := orchestrator.New(orchestrator.Dependencies{
		Renderer:   renderer,
		Sessions:   sessions,
		Artifacts:  store,
		PresignTTL: cfg.Storage.PresignTTL,
	})
	starter(orch.CleanupSession)
	return orch
}
