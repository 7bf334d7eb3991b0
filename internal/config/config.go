// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Rewards   RewardsConfig   `mapstructure:"rewards"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig contains database connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	RunMigrations   bool   `mapstructure:"run_migrations"`
}

// RedisConfig contains Redis cache connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// AuthConfig contains token issuance and federated sign-in settings. The
// provider app credentials are used to verify provider-issued tokens.
type AuthConfig struct {
	JWTSecret         string `mapstructure:"jwt_secret"`
	TokenTTL          int    `mapstructure:"token_ttl"` // minutes
	BcryptCost        int    `mapstructure:"bcrypt_cost"`
	Issuer            string `mapstructure:"issuer"`
	GoogleAppID       string `mapstructure:"google_app_id"`
	FacebookAppID     string `mapstructure:"facebook_app_id"`
	FacebookAppSecret string `mapstructure:"facebook_app_secret"`
}

// MatchingConfig contains donor matching settings.
type MatchingConfig struct {
	// Strict restricts matching to the exact requested blood group instead
	// of the ABO/Rh compatibility expansion.
	Strict bool `mapstructure:"strict"`
	// Radii in meters; zero values fall back to the built-in defaults.
	CriticalRadiusMeters float64 `mapstructure:"critical_radius_meters"`
	DefaultRadiusMeters  float64 `mapstructure:"default_radius_meters"`
	MaxCandidates        int     `mapstructure:"max_candidates"`
}

// RewardsConfig contains reward progression settings.
type RewardsConfig struct {
	BasePoints        int `mapstructure:"base_points"`
	StreakBonusPoints int `mapstructure:"streak_bonus_points"`
	EligibilityDays   int `mapstructure:"eligibility_days"`
}

// SchedulerConfig contains the daily aggregation job settings.
type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Time     string `mapstructure:"time"` // "HH:MM"
	Timezone string `mapstructure:"timezone"`
}

// MetricsConfig contains Prometheus exporter settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/donorhub/")
	}

	setDefaults(v)

	// Bind specific environment variables (explicit bindings for 12-factor app compliance)
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")

	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")
	_ = v.BindEnv("database.postgres.run_migrations", "POSTGRES_RUN_MIGRATIONS")

	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")

	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	_ = v.BindEnv("auth.token_ttl", "AUTH_TOKEN_TTL")
	_ = v.BindEnv("auth.google_app_id", "AUTH_GOOGLE_APP_ID")
	_ = v.BindEnv("auth.facebook_app_id", "AUTH_FACEBOOK_APP_ID")
	_ = v.BindEnv("auth.facebook_app_secret", "AUTH_FACEBOOK_APP_SECRET")

	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.time", "SCHEDULER_TIME")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)
	v.SetDefault("auth.token_ttl", 60)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.issuer", "donorhub")
	v.SetDefault("matching.critical_radius_meters", 100000)
	v.SetDefault("matching.default_radius_meters", 50000)
	v.SetDefault("matching.max_candidates", 50)
	v.SetDefault("rewards.base_points", 100)
	v.SetDefault("rewards.streak_bonus_points", 10)
	v.SetDefault("rewards.eligibility_days", 90)
	v.SetDefault("scheduler.time", "02:00")
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Rewards.EligibilityDays <= 0 {
		return fmt.Errorf("rewards.eligibility_days must be positive")
	}
	if c.Matching.CriticalRadiusMeters < c.Matching.DefaultRadiusMeters {
		return fmt.Errorf("matching.critical_radius_meters must be at least matching.default_radius_meters")
	}
	return nil
}

// GetLocation returns the scheduler timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
