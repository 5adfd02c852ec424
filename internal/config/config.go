package config

import (
	"fmt"
	"path/filepath"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Content   ContentConfig   `mapstructure:"content"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	History   HistoryConfig   `mapstructure:"history"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Outputs   OutputsConfig   `mapstructure:"outputs"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port" validate:"gte=0,lte=65535"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type ContentConfig struct {
	// FixtureFile overrides the embedded content tree.
	FixtureFile string `mapstructure:"fixture_file" validate:"omitempty,file"`
}

type StorageConfig struct {
	Driver string              `mapstructure:"driver" validate:"oneof=memory file mysql sqlite badger http"`
	File   FileStorageConfig   `mapstructure:"file"`
	SQLite SQLiteStorageConfig `mapstructure:"sqlite"`
	Badger BadgerStorageConfig `mapstructure:"badger"`
	HTTP   HTTPStorageConfig   `mapstructure:"http"`
}

type FileStorageConfig struct {
	Directory string `mapstructure:"directory"`
}

type SQLiteStorageConfig struct {
	Path string `mapstructure:"path"`
}

type BadgerStorageConfig struct {
	Directory  string `mapstructure:"directory"`
	SyncWrites bool   `mapstructure:"sync_writes"`
}

type HTTPStorageConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"omitempty,url"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=0"`
	RetryAttempts  uint   `mapstructure:"retry_attempts"`
	// RetryDelayMs is the first backoff delay. It doubles on every retry.
	RetryDelayMs   int    `mapstructure:"retry_delay_ms" validate:"gte=0"`
}

type DatabaseConfig struct {
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

type HistoryConfig struct {
	MaxEntries int `mapstructure:"max_entries" validate:"gte=1"`
	// MaxAgeDays drops visits older than this many days. 0 keeps them regardless of age.
	MaxAgeDays int `mapstructure:"max_age_days" validate:"gte=0"`
}

type TemplatesConfig struct {
	ItemTemplate string `mapstructure:"item_template" validate:"omitempty,file"`
}

type OutputsConfig struct {
	ExportDirectory string `mapstructure:"export_directory"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/civics")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:8081"})
	// Empty fixture file means the tree embedded in the binary
	v.SetDefault("content.fixture_file", "")
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.file.directory", filepath.Join("data", "library"))
	v.SetDefault("storage.sqlite.path", filepath.Join("data", "civics.sqlite"))
	v.SetDefault("storage.badger.directory", filepath.Join("data", "badger"))
	v.SetDefault("storage.badger.sync_writes", true)
	v.SetDefault("storage.http.timeout_seconds", 10)
	v.SetDefault("storage.http.retry_attempts", 3)
	v.SetDefault("storage.http.retry_delay_ms", 100)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "civics")
	v.SetDefault("database.username", "user")
	v.SetDefault("history.max_entries", 50)
	v.SetDefault("history.max_age_days", 0)
	v.SetDefault("templates.item_template", "")
	v.SetDefault("outputs.export_directory", filepath.Join("outputs", "export"))

	// Secrets are bound to environment variables only (not from config file)
	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}
	if err := v.BindEnv("storage.http.token", "CIVICS_STORAGE_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind CIVICS_STORAGE_TOKEN environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	if cfg.Storage.Driver == "http" && cfg.Storage.HTTP.BaseURL == "" {
		return nil, fmt.Errorf("invalid configuration: storage.http.base_url is required when storage.driver is http")
	}

	return &cfg, nil
}
