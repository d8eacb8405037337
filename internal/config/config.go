package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AI       AIConfig      `yaml:"ai" validate:"required"`
	Storage  StorageConfig `yaml:"storage" validate:"required"`
	Pipeline Limits        `yaml:"pipeline" validate:"required"`
}

type AIConfig struct {
	APIKey    string `yaml:"api_key" validate:"required,min=20"`
	Model     string `yaml:"model" validate:"required"`
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	Timeout   int    `yaml:"timeout" validate:"required,min=10,max=3600"`
	MaxTokens int    `yaml:"max_tokens" validate:"min=0,max=32768"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" validate:"required,oneof=filesystem sqlite"`
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = defaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.AI.APIKey == "" || cfg.AI.APIKey == "${STORYWEAVE_API_KEY}" {
		if apiKey := os.Getenv("STORYWEAVE_API_KEY"); apiKey != "" {
			cfg.AI.APIKey = apiKey
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func defaultConfigPath() string {
	if path := os.Getenv("STORYWEAVE_CONFIG"); path != "" {
		return path
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "storyweave", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "storyweave", "config.yaml")
}

func (c *Config) validate() error {
	if c.Storage.DataDir == "" && c.Storage.DBPath == "" {
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			home, _ := os.UserHomeDir()
			dataHome = filepath.Join(home, ".local", "share")
		}
		c.Storage.DataDir = filepath.Join(dataHome, "storyweave", "stories")
		c.Storage.DBPath = filepath.Join(dataHome, "storyweave", "storyweave.db")
	}

	if c.Pipeline.DefaultBatchCount == 0 {
		c.Pipeline = DefaultLimits()
	}

	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = 8192
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	switch c.Storage.Backend {
	case "filesystem":
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage.data_dir is required for the filesystem backend")
		}
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("storage.db_path is required for the sqlite backend")
		}
	}

	return nil
}
