package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jinford/jobmatch/internal/core/ingestion"
	"github.com/jinford/jobmatch/internal/core/profile"
	"github.com/jinford/jobmatch/internal/core/ratelimit"
	"github.com/jinford/jobmatch/internal/core/scoring"
	"github.com/jinford/jobmatch/internal/infra/openai"
	"github.com/jinford/jobmatch/internal/infra/postgres"
	"github.com/jinford/jobmatch/internal/infra/redis"
	"github.com/jinford/jobmatch/internal/platform/config"
	"github.com/jinford/jobmatch/internal/platform/logger"
	"github.com/jinford/jobmatch/pkg/db"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config   *config.Config
	Database *db.DB
	Redis    *goredis.Client
	Logger   *slog.Logger

	IngestionRepo *postgres.IngestionRepository
	ScoringRepo   *postgres.ScoringRepository
	ProfileRepo   *postgres.ProfileRepository

	Ingestion *ingestion.Service
	Profiles  *profile.Service
	Scoring   *scoring.Service
}

// NewAppContext は設定ファイルを読み込み、DBに接続して AppContext を作成する
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})

	database, err := db.New(ctx, db.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,

		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	appCtx := &AppContext{
		Config:   cfg,
		Database: database,
		Logger:   appLogger,
	}

	// Redisは任意。未設定ならキャッシュなしで動作する
	var dedupOpts []ingestion.DedupOption
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("Redis接続に失敗: %w", err)
		}
		appCtx.Redis = client
		dedupOpts = append(dedupOpts, ingestion.WithSeenCache(redis.NewDedupCache(client, 0)))
	}
	dedupOpts = append(dedupOpts, ingestion.WithDedupLogger(appLogger))

	appCtx.IngestionRepo = postgres.NewIngestionRepository(database.Pool)
	appCtx.ScoringRepo = postgres.NewScoringRepository(database.Pool)
	appCtx.ProfileRepo = postgres.NewProfileRepository(database.Pool)

	limiter := ratelimit.NewLimiter(
		platformQuotas(cfg.RateLimit),
		ratelimit.WithDefaultQuota(ratelimit.Quota{Limit: cfg.RateLimit.Default, Window: cfg.RateLimit.Window}),
		ratelimit.WithStore(postgres.NewRateWindowRepository(database.Pool)),
		ratelimit.WithLimiterLogger(appLogger),
	)

	appCtx.Ingestion = ingestion.NewService(
		appCtx.IngestionRepo,
		limiter,
		ingestion.NewDedupStore(appCtx.IngestionRepo, dedupOpts...),
		ingestion.NewNormalizer(),
		ingestion.WithServiceLogger(appLogger),
	)

	appCtx.Profiles = profile.NewService(appCtx.ProfileRepo, profile.WithProfileLogger(appLogger))

	engine, err := scoring.NewEngine(scoring.WithWeights(scoring.Weights{
		Skill:    cfg.Scoring.SkillWeight,
		Salary:   cfg.Scoring.SalaryWeight,
		Location: cfg.Scoring.LocationWeight,
		Company:  cfg.Scoring.CompanyWeight,
		Success:  cfg.Scoring.SuccessWeight,
	}))
	if err != nil {
		appCtx.Close()
		return nil, fmt.Errorf("スコアリングエンジンの初期化に失敗: %w", err)
	}

	scoringOpts := []scoring.BatchOption{
		scoring.WithWorkerCount(cfg.Scoring.WorkerCount),
		scoring.WithBatchLogger(appLogger),
	}
	if cfg.OpenAI.APIKey != "" {
		scoringOpts = append(scoringOpts, scoring.WithEmbedder(openai.NewEmbedder(
			cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
		)))
	}

	appCtx.Scoring = scoring.NewService(
		appCtx.ScoringRepo,
		appCtx.IngestionRepo,
		appCtx.Profiles,
		engine,
		scoringOpts...,
	)

	return appCtx, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Redis != nil {
		_ = ac.Redis.Close()
	}
	if ac.Database != nil {
		ac.Database.Close()
	}
}

func platformQuotas(cfg config.RateLimitConfig) map[string]ratelimit.Quota {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return map[string]ratelimit.Quota{
		"indeed":    {Limit: cfg.Indeed, Window: window},
		"linkedin":  {Limit: cfg.LinkedIn, Window: window},
		"glassdoor": {Limit: cfg.Glassdoor, Window: window},
	}
}
