package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backend constants
const (
	StoreBackendFile  = "file"
	StoreBackendRedis = "redis"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Stamp    StampConfig    `mapstructure:"stamp"`
	Store    StoreConfig    `mapstructure:"store"`
	Font     FontConfig     `mapstructure:"font"`
	Output   OutputConfig   `mapstructure:"output"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Update   UpdateConfig   `mapstructure:"update"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// StampConfig holds pipeline settings that are not part of the user-editable stamp settings.
type StampConfig struct {
	RenderScale       int `mapstructure:"render_scale"`        // Supersampling factor for the label raster
	MaxNameCollisions int `mapstructure:"max_name_collisions"` // Cap on "(N)" suffix attempts
}

// StoreConfig selects where the user-editable stamp settings are persisted.
type StoreConfig struct {
	Backend  string `mapstructure:"backend"`   // "file" or "redis"
	FilePath string `mapstructure:"file_path"` // JSON document for the file backend
	RedisKey string `mapstructure:"redis_key"` // Key for the redis backend
}

type FontConfig struct {
	Path       string   `mapstructure:"path"`       // Preferred font file (TTF/OTF/TTC)
	Candidates []string `mapstructure:"candidates"` // Extra search paths tried before platform defaults
}

type OutputConfig struct {
	DefaultDir string `mapstructure:"default_dir"` // Used when a batch request omits out_dir
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type UpdateConfig struct {
	Owner   string        `mapstructure:"owner"`
	Repo    string        `mapstructure:"repo"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Evidence Stamp")
	v.SetDefault("app.port", 8765)
	v.SetDefault("app.env", "production")

	v.SetDefault("stamp.render_scale", 1)
	v.SetDefault("stamp.max_name_collisions", 100)

	v.SetDefault("store.backend", StoreBackendFile)
	v.SetDefault("store.file_path", "evidence_stamp_config.json")
	v.SetDefault("store.redis_key", "evidence-stamp:config")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("update.owner", "evidence-stamp")
	v.SetDefault("update.repo", "evidence-stamp")
	v.SetDefault("update.timeout", 60)
}

// NewConfig loads config.yaml from the working directory (or ./config) with
// environment overrides. A missing file is not an error; defaults apply.
func NewConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load reads configuration through the given viper instance.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Convert timeout to duration
	cfg.Update.Timeout = cfg.Update.Timeout * time.Second
	if cfg.Update.Timeout <= 0 {
		cfg.Update.Timeout = 60 * time.Second
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreBackendFile
	}
	if cfg.Stamp.RenderScale < 1 {
		cfg.Stamp.RenderScale = 1
	}
	if cfg.Stamp.MaxNameCollisions < 1 {
		cfg.Stamp.MaxNameCollisions = 100
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// UsesRedisStore reports whether stamp settings live in redis.
func (c *Config) UsesRedisStore() bool {
	return c.Store.Backend == StoreBackendRedis
}
