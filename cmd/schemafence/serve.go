package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/schemafence/schemafence/internal/api"
	"github.com/schemafence/schemafence/internal/config"
	"github.com/schemafence/schemafence/internal/db"
	"github.com/schemafence/schemafence/internal/dbpool"
	"github.com/schemafence/schemafence/internal/metrics"
	"github.com/schemafence/schemafence/internal/models"
	"github.com/schemafence/schemafence/internal/notify"
	"github.com/schemafence/schemafence/internal/objstore"
	"github.com/schemafence/schemafence/internal/ratelimit"
	"github.com/schemafence/schemafence/internal/secrets"
	"github.com/schemafence/schemafence/internal/security"
	"github.com/schemafence/schemafence/internal/service"
	"github.com/schemafence/schemafence/internal/store"
	"github.com/schemafence/schemafence/internal/ws"
)

const (
	readTimeout       = 15 * time.Second
	writeTimeout      = 30 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second

	// provisionQueueSize bounds queued provisioning/deprovisioning jobs.
	provisionQueueSize = 64

	// tenantGaugeInterval is how often the tenants-by-status gauge refreshes.
	tenantGaugeInterval = 30 * time.Second

	totpIssuer = "schemafence"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the schemafence API server",
		RunE: func(*cobra.Command, []string) error {
			return runServe()
		},
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	return log
}

func runServe() error { //nolint:gocognit // linear wiring of the dependency graph.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	log.WithField("version", versionString()).Info("starting schemafence")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, db.Migrations()); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword.Value(),
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		// Sessions and mutation limits degrade without redis; the control
		// plane itself still works.
		log.WithError(err).Warn("redis unreachable at startup")
	}

	base := store.Base{Pool: pool, Log: log}
	tenants := store.NewTenantStore(base)
	members := store.NewMemberStore(base)
	schemas := store.NewSchemaStore(base)
	audits := store.NewAuditStore(base)
	deletions := store.NewDeletionStore(base)
	mfaStore := store.NewMFAStore(base)

	box, err := secrets.NewBox(cfg.MFAKey.Value())
	if err != nil {
		return err
	}

	artifacts, err := objstore.NewFSStore(cfg.ArtifactDir)
	if err != nil {
		return err
	}

	guard := security.NewAttemptGuard(ctx, log)
	mfaSvc := service.NewMFAService(mfaStore, box, guard, totpIssuer)

	sessions := service.NewSessionStore(rdb, log)
	notifier := notify.NewLogNotifier(log)
	hub := ws.NewHub(log)

	worker := service.NewAuditWorker(audits, log, cfg.AuditQueueSize)
	prov := service.NewProvisioner(
		tenants, members, schemas, deletions, audits,
		sessions, artifacts, notifier, hub, log,
		cfg.ProvisionWorkers, provisionQueueSize,
	)

	tenantSvc := service.NewTenantService(tenants, members, schemas, prov, mfaSvc, worker, log)
	memberSvc := service.NewMemberService(members, tenants, sessions, notifier, worker, log)
	auditSvc := service.NewAuditService(audits, artifacts, worker, log)

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:         log,
		Pool:        pool,
		RDB:         rdb,
		Hub:         hub,
		Tenants:     tenantSvc,
		Members:     memberSvc,
		Audit:       auditSvc,
		MFA:         mfaSvc,
		Limiter:     ratelimit.NewLimiter(rdb),
		AuthSecret:  []byte(cfg.AuthSecret.Value()),
		CORSOrigins: cfg.CORSOrigins,
		Version:     version,

		MutationLimit:  cfg.MutationLimit,
		MutationWindow: cfg.MutationWindow,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)

		return nil
	})

	g.Go(func() error {
		worker.Run(gctx)

		return nil
	})

	g.Go(func() error {
		prov.Run(gctx)

		return nil
	})

	g.Go(func() error {
		updateTenantGauge(gctx, tenants, log)

		return nil
	})

	g.Go(func() error {
		log.WithField("addr", cfg.Addr()).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("server stopped")

	return err
}

// updateTenantGauge refreshes the tenants-by-status gauge until ctx ends.
// Statuses with no tenants report zero rather than going stale.
func updateTenantGauge(ctx context.Context, tenants *store.TenantStore, log *logrus.Logger) {
	statuses := []string{
		models.TenantPending, models.TenantProvisioning,
		models.TenantReady, models.TenantFailed, models.TenantDeleting,
	}

	ticker := time.NewTicker(tenantGaugeInterval)
	defer ticker.Stop()

	for {
		counts, err := tenants.CountByStatus(ctx)
		if err != nil {
			log.WithError(err).Warn("tenant gauge refresh failed")
		} else {
			for _, s := range statuses {
				metrics.TenantsByStatus.WithLabelValues(s).Set(float64(counts[s]))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
