// Command claimsd runs the claims engine: it wires the lifecycle service
// to PostgreSQL, Redis and the metrics endpoint, and sweeps expired
// voting periods and dispute windows in the background.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/freelanceshield/claims-engine/internal/domain/errors"
	"github.com/freelanceshield/claims-engine/internal/domain/riskpool"
	"github.com/freelanceshield/claims-engine/internal/domain/values"
	"github.com/freelanceshield/claims-engine/internal/infrastructure/cache"
	"github.com/freelanceshield/claims-engine/internal/infrastructure/config"
	"github.com/freelanceshield/claims-engine/internal/infrastructure/events"
	"github.com/freelanceshield/claims-engine/internal/infrastructure/ledger"
	"github.com/freelanceshield/claims-engine/internal/infrastructure/repository"
	"github.com/freelanceshield/claims-engine/internal/metrics"
	"github.com/freelanceshield/claims-engine/internal/service/bayesian"
	"github.com/freelanceshield/claims-engine/internal/service/claims"
	"github.com/freelanceshield/claims-engine/internal/service/fraud"
)

const sweepInterval = time.Minute

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("claims engine failed", zap.Error(err))
	}
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Environment == "development" {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zc.Level = level
	return zc.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting claims engine",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Environment),
	)

	db, err := connectDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	claimRepo := repository.NewClaimRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	historyRepo := repository.NewHistoryRepository(db, cfg.Engine.Currency)
	poolRepo := repository.NewPoolRepository(db)

	pool, err := buildPool(ctx, cfg, poolRepo, logger)
	if err != nil {
		return err
	}

	ldgr, err := ledger.NewPostgresLedger(db, logger)
	if err != nil {
		return err
	}

	var scoreCache claims.RiskScoreCache
	if cfg.Redis.URL != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		if scoreCache, err = cache.NewScoreCache(client, logger); err != nil {
			return err
		}
	}

	publisher := events.NewPublisher(logger)
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := metrics.New(registry)

	svc, err := claims.NewService(
		claimRepo, policyRepo, historyRepo, poolRepo,
		pool, ldgr,
		fraud.NewScorer(engineFraudConfig(cfg), logger),
		bayesian.NewVerifier(bayesian.DefaultModel(), logger),
		publisher, scoreCache, engineMetrics,
		nil, logger,
		engineServiceConfig(cfg),
		engineAccounts(cfg, logger),
	)
	if err != nil {
		return fmt.Errorf("wiring claims service: %w", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsHandler(registry),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go sweep(ctx, svc, claimRepo, logger)

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func connectDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	pc.MaxConns = int32(cfg.Database.MaxOpenConns)
	pc.MinConns = int32(cfg.Database.MaxIdleConns)
	pc.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	db, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return db, nil
}

// buildPool constructs the live risk pool, rehydrating balances from the
// most recent snapshot when one exists.
func buildPool(ctx context.Context, cfg *config.Config, poolRepo *repository.PoolRepository, logger *zap.Logger) (*riskpool.Pool, error) {
	minCapital, err := values.NewMoneyFromString(cfg.Pool.MinCapital, cfg.Engine.Currency)
	if err != nil {
		return nil, fmt.Errorf("parsing pool min capital: %w", err)
	}
	pool, err := riskpool.New(cfg.Engine.Currency, riskpool.Params{
		TargetReserveRatioBP: cfg.Pool.TargetReserveRatioBP,
		RiskBufferBP:         cfg.Pool.RiskBufferBP,
		MinCapital:           minCapital,
	})
	if err != nil {
		return nil, err
	}

	snapshot, err := poolRepo.Latest(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("no pool snapshot found, starting fresh",
				zap.String("pool_id", pool.ID.String()))
			return pool, nil
		}
		return nil, err
	}

	pool.ID = snapshot.PoolID
	pool.TotalCapital = snapshot.TotalCapital
	pool.CoverageLiability = snapshot.CoverageLiability
	pool.PremiumsCollected = snapshot.PremiumsCollected
	pool.ClaimsPaid = snapshot.ClaimsPaid
	pool.Paused = snapshot.Paused
	logger.Info("risk pool rehydrated",
		zap.String("pool_id", pool.ID.String()),
		zap.String("total_capital", pool.TotalCapital.String()),
		zap.Int64("reserve_ratio_bp", pool.ReserveRatioBP()),
	)
	return pool, nil
}

func engineFraudConfig(cfg *config.Config) fraud.Config {
	fc := fraud.DefaultConfig(cfg.Engine.Currency)
	fc.ReviewThreshold = cfg.Engine.ReviewThreshold
	fc.AutoRejectThreshold = cfg.Engine.AutoRejectThreshold
	fc.AutoApproveCeiling = cfg.Engine.AutoApproveCeiling
	fc.RecentClaimLimit = cfg.Engine.RecentClaimLimit
	fc.RecentClaimWindow = cfg.Engine.RecentClaimWindow
	return fc
}

func engineServiceConfig(cfg *config.Config) claims.Config {
	sc := claims.DefaultConfig(cfg.Engine.Currency)
	sc.SmallClaimLimit = values.MustNewMoneyFromString(cfg.Engine.SmallClaimLimit, cfg.Engine.Currency)
	sc.RecentClaimLimit = cfg.Engine.RecentClaimLimit
	sc.RecentClaimWindow = cfg.Engine.RecentClaimWindow
	sc.VotingPeriod = cfg.Engine.VotingPeriod
	sc.MinVotes = cfg.Engine.MinVotes
	sc.DisputeWindow = cfg.Engine.DisputeWindow
	sc.ArbitrationDeadline = cfg.Engine.ArbitrationDeadline
	sc.ArbitrationFeeBP = cfg.Engine.ArbitrationFeeBP
	sc.ArbitratorShareBP = cfg.Engine.ArbitratorShareBP
	sc.PoolShareBP = cfg.Engine.PoolShareBP
	sc.TreasuryShareBP = cfg.Engine.TreasuryShareBP
	sc.UseBayesianStage = cfg.Engine.UseBayesianStage
	sc.ScoreCacheTTL = cfg.Engine.ScoreCacheTTL
	return sc
}

func engineAccounts(cfg *config.Config, logger *zap.Logger) claims.Accounts {
	return claims.Accounts{
		Pool:     parseAccount(cfg.Engine.PoolAccount, "pool", logger),
		Treasury: parseAccount(cfg.Engine.TreasuryAccount, "treasury", logger),
	}
}

func parseAccount(raw, name string, logger *zap.Logger) uuid.UUID {
	if raw == "" {
		id := uuid.New()
		logger.Warn("ledger account not configured, generated ephemeral one",
			zap.String("account", name),
			zap.String("id", id.String()),
		)
		return id
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Fatal("invalid ledger account id",
			zap.String("account", name),
			zap.String("value", raw),
			zap.Error(err),
		)
	}
	return id
}

func metricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// sweep finalizes overdue votes and closes lapsed dispute windows.
func sweep(ctx context.Context, svc *claims.Service, claimRepo *repository.ClaimRepository, logger *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		now := time.Now()

		due, err := claimRepo.DueForVoteFinalization(ctx, now, 100)
		if err != nil {
			logger.Error("listing due votes", zap.Error(err))
		}
		for _, id := range due {
			if _, err := svc.FinalizeVoting(ctx, id); err != nil && !isExpectedSweepError(err) {
				logger.Error("finalizing voting", zap.String("claim_id", id.String()), zap.Error(err))
			}
		}

		expired, err := claimRepo.ExpiredDisputeWindows(ctx, now, 100)
		if err != nil {
			logger.Error("listing expired dispute windows", zap.Error(err))
		}
		for _, id := range expired {
			if _, err := svc.CloseExpiredDispute(ctx, id); err != nil {
				logger.Error("closing expired dispute", zap.String("claim_id", id.String()), zap.Error(err))
			}
		}

		overdue, err := claimRepo.OverdueArbitrations(ctx, now, 100)
		if err != nil {
			logger.Error("listing overdue arbitrations", zap.Error(err))
		}
		for _, id := range overdue {
			logger.Warn("arbitration past its deadline", zap.String("claim_id", id.String()))
		}
	}
}

// isExpectedSweepError filters the races a sweeper inevitably hits: a
// claim finalized or transitioned between listing and processing.
func isExpectedSweepError(err error) bool {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case "VOTING_STILL_OPEN", "QUORUM_NOT_MET", "VOTE_TIED", "INVALID_CLAIM_STATUS":
			return true
		}
	}
	return false
}
