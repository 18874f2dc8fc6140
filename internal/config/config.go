package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	Progress  ProgressConfig  `mapstructure:"progress"`
	Ranklist  RanklistConfig  `mapstructure:"ranklist"`
	Clock     ClockConfig     `mapstructure:"clock"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"` // 强制执行数据库迁移
	MigrateOnly  bool `mapstructure:"-"` // 仅迁移模式（迁移后退出）
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ProgressConfig 题目解锁节奏配置，单位分钟
type ProgressConfig struct {
	UnlockDelayEasyMinutes   int `mapstructure:"unlock_delay_easy_minutes"`
	UnlockDelayMediumMinutes int `mapstructure:"unlock_delay_medium_minutes"`
	UnlockDelayHardMinutes   int `mapstructure:"unlock_delay_hard_minutes"`
	KnownIdentityLimit       int `mapstructure:"known_identity_limit"`
}

type RanklistConfig struct {
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	DefaultPageSize     int `mapstructure:"default_page_size"`
}

// ClockConfig 多实例部署时可指向统一的上游时间源，
// /api/time 下发的时间随之对齐；留空则直接用本机时钟
type ClockConfig struct {
	UpstreamEndpoint    string `mapstructure:"upstream_endpoint"`
	SyncIntervalSeconds int    `mapstructure:"sync_interval_seconds"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("MENTOR_SITE")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Storage
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// 解锁延时默认值：easy 15 分钟 / medium 20 分钟 / hard 30 分钟
	viper.SetDefault("progress.unlock_delay_easy_minutes", 15)
	viper.SetDefault("progress.unlock_delay_medium_minutes", 20)
	viper.SetDefault("progress.unlock_delay_hard_minutes", 30)
	viper.SetDefault("progress.known_identity_limit", 8)
	viper.SetDefault("ranklist.poll_interval_seconds", 30)
	viper.SetDefault("ranklist.default_page_size", 20)
	viper.SetDefault("clock.sync_interval_seconds", 300)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

// UnlockDelay 根据难度返回解锁延时，未识别的难度按 medium 处理
func (c *ProgressConfig) UnlockDelay(difficulty string) time.Duration {
	switch difficulty {
	case "easy":
		return time.Duration(c.UnlockDelayEasyMinutes) * time.Minute
	case "hard":
		return time.Duration(c.UnlockDelayHardMinutes) * time.Minute
	default:
		return time.Duration(c.UnlockDelayMediumMinutes) * time.Minute
	}
}
