package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings用）
	OpenAI OpenAIConfig

	// Redis設定（重複排除キャッシュ用、空ならキャッシュ無効）
	RedisURL string

	// プラットフォームごとのレート制限設定
	RateLimit RateLimitConfig

	// スコアリング設定
	Scoring ScoringConfig

	// 定期インジェスト設定
	Scheduler SchedulerConfig

	// ログ設定
	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	// MaxConns は接続プールの最大接続数
	MaxConns int
	// ConnectTimeout は接続確立の待ち時間上限
	ConnectTimeout time.Duration
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
}

// RateLimitConfig は1分あたりのリクエスト許容量
// 個別指定のないプラットフォームには Default が適用されます
type RateLimitConfig struct {
	Default   int
	Indeed    int
	LinkedIn  int
	Glassdoor int
	Window    time.Duration
}

// ScoringConfig はバッチスコアリング設定
// 重みは存在するコンポーネント上で再正規化されるため、合計が1になるよう指定します
type ScoringConfig struct {
	WorkerCount int

	SkillWeight    float64
	SalaryWeight   float64
	LocationWeight float64
	CompanyWeight  float64
	SuccessWeight  float64
}

// SchedulerConfig は定期インジェストスイープ設定
type SchedulerConfig struct {
	// CronSpec は robfig/cron 形式のスケジュール
	CronSpec string
	// DropDir は投稿JSONファイルの監視ディレクトリ
	DropDir string
	// Platform はスイープで取り込む際の既定プラットフォーム名
	Platform string
}

// LogConfig はログ出力設定
type LogConfig struct {
	Level  string // "debug" / "info" / "warn" / "error"
	Format string // "json" or "text"
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "jobmatch"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "jobmatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxConns:       getEnvAsInt("DB_MAX_CONNS", 10),
			ConnectTimeout: time.Duration(getEnvAsInt("DB_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
		},
		RedisURL: getEnv("REDIS_URL", ""),
		RateLimit: RateLimitConfig{
			Default:   getEnvAsInt("RATE_LIMIT_DEFAULT", 30),
			Indeed:    getEnvAsInt("RATE_LIMIT_INDEED", 30),
			LinkedIn:  getEnvAsInt("RATE_LIMIT_LINKEDIN", 20),
			Glassdoor: getEnvAsInt("RATE_LIMIT_GLASSDOOR", 15),
			Window:    time.Duration(getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		},
		Scoring: ScoringConfig{
			WorkerCount: getEnvAsInt("SCORING_WORKER_COUNT", 4),

			SkillWeight:    getEnvAsFloat("SCORING_WEIGHT_SKILL", 0.35),
			SalaryWeight:   getEnvAsFloat("SCORING_WEIGHT_SALARY", 0.20),
			LocationWeight: getEnvAsFloat("SCORING_WEIGHT_LOCATION", 0.15),
			CompanyWeight:  getEnvAsFloat("SCORING_WEIGHT_COMPANY", 0.10),
			SuccessWeight:  getEnvAsFloat("SCORING_WEIGHT_SUCCESS", 0.20),
		},
		Scheduler: SchedulerConfig{
			CronSpec: getEnv("INGEST_CRON_SPEC", "0 */6 * * *"),
			DropDir:  getEnv("INGEST_DROP_DIR", "/var/lib/jobmatch/drop"),
			Platform: getEnv("INGEST_DEFAULT_PLATFORM", "indeed"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
