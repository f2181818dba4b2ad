package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	StoreDriverJSON     = "json"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	APIPort        string `env:"API_PORT" envDefault:"8080"`
	JWTSecret      string `env:"JWT_SECRET" envDefault:"defaultsecret"`
	JWTExpHours    int    `env:"JWT_EXPIRATION_HOURS" envDefault:"72"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"json"`
	StoreDir    string `env:"STORE_DIR" envDefault:"data"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"user"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"password"`
	DBName     string `env:"DB_NAME" envDefault:"detective_lab"`
	DBSslMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Empty RedisAddr disables the cross-process store lock and the leaderboard cache.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	StoreLockKey        string `env:"STORE_LOCK_KEY" envDefault:"detective_lab:store_lock"`
	StoreLockTTLSeconds int    `env:"STORE_LOCK_TTL_SECONDS" envDefault:"10"`

	LeaderboardCacheKey        string `env:"LEADERBOARD_CACHE_KEY" envDefault:"detective_lab:leaderboard"`
	LeaderboardCacheTTLSeconds int    `env:"LEADERBOARD_CACHE_TTL_SECONDS" envDefault:"30"`

	RewardPoints  int           `env:"REWARD_POINTS" envDefault:"10"`
	GradeTimeout  time.Duration `env:"GRADE_TIMEOUT" envDefault:"2s"`
	GradeMaxSteps int           `env:"GRADE_MAX_STEPS" envDefault:"5000000"`

	// Heap growth allowed per submission, in MiB. 0 disables the check.
	GradeMaxMemoryMB int `env:"GRADE_MAX_MEMORY" envDefault:"256"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverJSON, StoreDriverPostgres:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want %q or %q)", c.StoreDriver, StoreDriverJSON, StoreDriverPostgres)
	}
	if c.RewardPoints < 0 {
		return fmt.Errorf("REWARD_POINTS must not be negative, got %d", c.RewardPoints)
	}
	if c.GradeTimeout <= 0 {
		return fmt.Errorf("GRADE_TIMEOUT must be positive, got %s", c.GradeTimeout)
	}
	if c.GradeMaxMemoryMB < 0 {
		return fmt.Errorf("GRADE_MAX_MEMORY must not be negative, got %d", c.GradeMaxMemoryMB)
	}
	if c.JWTExpHours <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", c.JWTExpHours)
	}
	return nil
}

func (c *Config) JWTExp() time.Duration {
	return time.Duration(c.JWTExpHours) * time.Hour
}

func (c *Config) GradeMemoryLimit() uint64 {
	return uint64(c.GradeMaxMemoryMB) << 20
}

func (c *Config) StoreLockTTL() time.Duration {
	return time.Duration(c.StoreLockTTLSeconds) * time.Second
}

func (c *Config) LeaderboardCacheTTL() time.Duration {
	return time.Duration(c.LeaderboardCacheTTLSeconds) * time.Second
}

func (c *Config) DBConnStr() string {
	return "host=" + c.DBHost +
		" port=" + c.DBPort +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=" + c.DBSslMode
}
