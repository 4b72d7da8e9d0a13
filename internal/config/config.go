package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	ShutdownPeriod time.Duration `mapstructure:"shutdownPeriod"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	// AutoMigrate applies the embedded schema on startup.
	AutoMigrate     bool          `mapstructure:"autoMigrate"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"poolSize"`
	DialTimeout time.Duration `mapstructure:"dialTimeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	WindowBackendPostgres = "postgres"
	WindowBackendRedis    = "redis"
)

type RateLimitConfig struct {
	// Backend selects where window counters live: "postgres" or "redis".
	Backend          string        `mapstructure:"backend"`
	Timezone         string        `mapstructure:"timezone"`
	Retention        time.Duration `mapstructure:"retention"`
	SweepSchedule    string        `mapstructure:"sweepSchedule"`
	DefaultPerMinute int           `mapstructure:"defaultPerMinute"`
	DefaultPerDay    int           `mapstructure:"defaultPerDay"`
}

// Location resolves the zone used for day window boundaries. An empty
// timezone means server local time.
func (c RateLimitConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid rateLimit.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

type AdminConfig struct {
	Username     string        `mapstructure:"username"`
	PasswordHash string        `mapstructure:"passwordHash"`
	JWTSecret    string        `mapstructure:"jwtSecret"`
	TokenTTL     time.Duration `mapstructure:"tokenTTL"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allowOrigins"`
}

func LoadConfig(configPath string) (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables and config file")
	}

	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.shutdownPeriod", 15*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 25)
	v.SetDefault("database.connMaxLifetime", 5*time.Minute)
	v.SetDefault("database.autoMigrate", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 20)
	v.SetDefault("redis.dialTimeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("rateLimit.backend", WindowBackendPostgres)
	v.SetDefault("rateLimit.timezone", "")
	v.SetDefault("rateLimit.retention", 48*time.Hour)
	v.SetDefault("rateLimit.sweepSchedule", "@every 1h")
	v.SetDefault("rateLimit.defaultPerMinute", 60)
	v.SetDefault("rateLimit.defaultPerDay", 10000)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.passwordHash", "")
	v.SetDefault("admin.jwtSecret", "")
	v.SetDefault("admin.tokenTTL", time.Hour)

	v.SetDefault("cors.allowOrigins", []string{"http://localhost:3000"})

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			log.Printf("Warning: could not read config file: %s. Error: %v\n", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	switch cfg.RateLimit.Backend {
	case WindowBackendPostgres, WindowBackendRedis:
	default:
		return nil, fmt.Errorf("unsupported rateLimit.backend %q", cfg.RateLimit.Backend)
	}

	return &cfg, nil
}
