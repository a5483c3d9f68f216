package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Media     MediaConfig     `mapstructure:"media"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"gt=0,lt=65536"`
	Mode           string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	EnableSwagger  bool          `mapstructure:"enable_swagger"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	// 每个 IP 的全局令牌桶
	IPRatePerSecond float64 `mapstructure:"ip_rate_per_second" validate:"gte=0"`
	IPBurst         int     `mapstructure:"ip_burst" validate:"gte=0"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required,min=16"`
	Issuer string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// RateLimitConfig 限流配置；store 为 memory 或 redis
type RateLimitConfig struct {
	Store    string                  `mapstructure:"store" validate:"oneof=memory redis"`
	Default  PolicyConfig            `mapstructure:"default"`
	Policies map[string]PolicyConfig `mapstructure:"policies" validate:"dive"`
}

type PolicyConfig struct {
	MaxRequests int           `mapstructure:"max_requests" validate:"gt=0"`
	Window      time.Duration `mapstructure:"window" validate:"gt=0"`
}

type NotifyConfig struct {
	Workers   int `mapstructure:"workers" validate:"gte=0"`
	QueueSize int `mapstructure:"queue_size" validate:"gte=0"`
}

type MediaConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	CloudName    string        `mapstructure:"cloud_name"`
	UploadPreset string        `mapstructure:"upload_preset"`
	Folder       string        `mapstructure:"folder"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

// Load 读取 .env、配置文件与 APP_ 前缀的环境变量
func Load() (*Config, error) {
	// .env 可选
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.ip_rate_per_second", 20)
	v.SetDefault("server.ip_burst", 40)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "chatsync.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("jwt.issuer", "chatsync")

	v.SetDefault("log.level", "info")

	v.SetDefault("ratelimit.store", "memory")
	v.SetDefault("ratelimit.default.max_requests", 5)
	v.SetDefault("ratelimit.default.window", 5*time.Second)

	v.SetDefault("notify.workers", 4)
	v.SetDefault("notify.queue_size", 10000)

	v.SetDefault("media.base_url", "https://api.cloudinary.com")
	v.SetDefault("media.folder", "chatsync")
	v.SetDefault("media.timeout", 60*time.Second)

	v.SetDefault("tracing.service_name", "chatsync")
	v.SetDefault("tracing.sample_ratio", 1.0)
}
