package main

import (
	"context"
	"database/sql"
	"fmt"

	"detective_lab/internal/app/grader"
	"detective_lab/internal/app/service"
	"detective_lab/internal/common/security"
	"detective_lab/internal/domain/catalog"
	"detective_lab/internal/domain/repository"
	"detective_lab/internal/platform/cache"
	"detective_lab/internal/platform/config"
	"detective_lab/internal/platform/database"
	"detective_lab/internal/platform/lock"
	"detective_lab/internal/platform/metrics"
	"detective_lab/internal/sandbox"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// application holds every long-lived dependency a command may need.
type application struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *sql.DB
	rdb      *redis.Client
	catalog  *catalog.Catalog
	runtimes *sandbox.Registry
	tokens   *security.TokenIssuer
	metrics  *metrics.Metrics

	updater     *repository.Updater
	auth        *service.AuthService
	cases       *service.CaseService
	submissions *service.SubmissionService
	progress    *service.ProgressService
	leaderboard *service.LeaderboardService
	evidence    *service.EvidenceService
}

func newApplication(ctx context.Context, cfg *config.Config, log *zap.Logger) (*application, error) {
	a := &application{cfg: cfg, log: log}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.rdb, err = cache.Connect(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	var locker repository.Locker
	var lbCache service.LeaderboardCache
	if a.rdb != nil {
		locker = lock.NewRedisLock(a.rdb, cfg.StoreLockKey, cfg.StoreLockTTL())
		lbCache = cache.NewLeaderboardCache(a.rdb, cfg.LeaderboardCacheKey, cfg.LeaderboardCacheTTL())
	}

	a.updater = repository.NewUpdater(store, locker)
	a.catalog = catalog.Default()
	a.runtimes = sandbox.NewRegistry(
		sandbox.NewLuaRuntime(cfg.GradeMaxSteps).WithMemoryLimit(cfg.GradeMemoryLimit()),
		sandbox.NewGoRuntime().WithMemoryLimit(cfg.GradeMemoryLimit()),
	)
	a.tokens = security.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExp())
	a.metrics = metrics.New()

	g := grader.New(a.runtimes, a.catalog, grader.Options{Timeout: cfg.GradeTimeout, DefaultReward: cfg.RewardPoints}, log.Named("grader"))
	a.leaderboard = service.NewLeaderboardService(a.updater, lbCache, log.Named("leaderboard"))
	a.auth = service.NewAuthService(a.updater, a.tokens, a.leaderboard, log.Named("auth"))
	a.cases = service.NewCaseService(a.updater, a.catalog, a.runtimes)
	a.submissions = service.NewSubmissionService(a.updater, a.catalog, g, a.leaderboard, a.metrics, log.Named("submissions"))
	a.progress = service.NewProgressService(a.updater, a.catalog)
	a.evidence = service.NewEvidenceService()
	return a, nil
}

func (a *application) openStore(ctx context.Context) (repository.Store, error) {
	switch a.cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.Connect(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		a.db = db
		if err := repository.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		return repository.NewPgStore(db), nil
	case config.StoreDriverJSON:
		a.log.Debug("Using JSON store", zap.String("dir", a.cfg.StoreDir))
		return repository.NewJSONStore(a.cfg.StoreDir), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.StoreDriver)
	}
}

func (a *application) Close() {
	cache.Close(a.rdb)
	database.Close(a.db)
}
