package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	"github.com/clinicore/clinic-scheduling/internal/clock"
	"github.com/clinicore/clinic-scheduling/internal/config"
	"github.com/clinicore/clinic-scheduling/internal/db"
	"github.com/clinicore/clinic-scheduling/internal/prescription"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

// The reconciler periodically re-validates every prescription's
// appointment reference and reports the ones that no longer hold. It
// only ever reports: clinical history is not deleted here or anywhere.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := newLogger(cfg.Env, "reconciler")
	logger.Info().Str("env", cfg.Env).Dur("interval", cfg.ReconcileInterval).Msg("starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	mongoCtx, cancelMongo := context.WithTimeout(rootCtx, 10*time.Second)
	mongoClient, err := db.ConnectMongo(mongoCtx, cfg.MongoURI)
	cancelMongo()
	if err != nil {
		logger.Fatal().Err(err).Msg("mongo connection error")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("error closing mongo")
		}
	}()
	logger.Info().Msg("connected to Mongo")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()

	apptRepo := appointment.NewPgRepository(pgPool)
	prescRepo := prescription.NewMongoRepository(mongoClient.Database(cfg.MongoDB))

	clk := clock.System()
	locker := redisclient.NewRedisDoctorLocker(rdb, cfg.LockTTL)
	resolver := schedule.NewResolver(apptRepo, apptRepo)
	scheduler := appointment.NewService(apptRepo, locker, resolver, clk, cfg.BookingLookahead, logger)

	sink := prescription.NewPgReportSink(pgPool)
	reconciler := prescription.NewReconciler(prescRepo, scheduler, sink, clk, logger)

	// Run once at startup
	runOnce(rootCtx, reconciler, logger)

	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping reconciler")
			return
		case <-ticker.C:
			runOnce(rootCtx, reconciler, logger)
		}
	}
}

func runOnce(ctx context.Context, r *prescription.Reconciler, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	orphans, err := r.Sweep(runCtx)
	if err != nil {
		logger.Error().Err(err).Msg("sweep error")
		return
	}
	logger.Info().Int("orphans", orphans).Dur("took", time.Since(start)).Msg("sweep complete")
}

func newLogger(env, service string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", service).Logger()
	if env == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger
}
