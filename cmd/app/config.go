package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/middleware"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/notify"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/repository"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/service"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
	envFile      = ".env"
)

type Config struct {
	Database    repository.Config        `mapstructure:"database"`
	Server      ServerConfig             `mapstructure:"server"`
	Auth        AuthConfig               `mapstructure:"auth"`
	Admin       AdminConfig              `mapstructure:"admin"`
	Tasks       service.TaskConfig       `mapstructure:"tasks"`
	Withdrawals service.WithdrawalConfig `mapstructure:"withdrawals"`
	Storage     StorageConfig            `mapstructure:"storage"`
	Redis       middleware.RedisConfig   `mapstructure:"redis"`
	Telegram    notify.TelegramConfig    `mapstructure:"telegram"`

	LogLevel string `mapstructure:"logLevel"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwtSecret"`
	TokenTTL  time.Duration `mapstructure:"tokenTTL"`
}

// AdminConfig seeds the root admin on first start.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Name     string `mapstructure:"name"`
	Password string `mapstructure:"password"`
}

type StorageConfig struct {
	ProofDir string `mapstructure:"proofDir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "pragatipath")

	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenTTL", 24*time.Hour)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.name", "Admin")
	v.SetDefault("admin.password", "")

	v.SetDefault("tasks.minPayout", service.DefaultMinPayout)
	v.SetDefault("tasks.maxPayout", service.DefaultMaxPayout)
	v.SetDefault("withdrawals.refundOnCancel", false)
	v.SetDefault("storage.proofDir", "proofs")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.loginLimit", 10)
	v.SetDefault("redis.loginWindow", time.Minute)

	v.SetDefault("telegram.botToken", "")
	v.SetDefault("telegram.adminChatID", 0)
	v.SetDefault("telegram.debug", false)
}

func LoadConfig() (*Config, error) {
	return loadConfig(configPath)
}

// loadConfig reads dir/config.yaml when present. APP_ prefixed variables, including those
// from dir/.env, override file values.
func loadConfig(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, envFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(dir)
	v.SetConfigType(configFormat)

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case repository.DriverPostgres, repository.DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret is required")
	}
	if c.Admin.Username == "" || c.Admin.Password == "" {
		return errors.New("admin.username and admin.password are required")
	}
	if c.Tasks.MinPayout > c.Tasks.MaxPayout {
		return fmt.Errorf("tasks.minPayout %d exceeds tasks.maxPayout %d", c.Tasks.MinPayout, c.Tasks.MaxPayout)
	}
	return nil
}
