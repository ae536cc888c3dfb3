// Package config provides configuration loading for the gitlore server
// and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application. Secrets are never
// stored in the file; they are resolved from the environment on load.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Sync    SyncConfig    `yaml:"sync"`
	OpenAI  OpenAIConfig  `yaml:"openai"`

	// GitHubToken and OpenAIKey come from GITHUB_TOKEN / OPENAI_API_KEY.
	GitHubToken string `yaml:"-"`
	OpenAIKey   string `yaml:"-"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the database location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// SyncConfig holds commit-sync defaults.
type SyncConfig struct {
	Branch     string `yaml:"branch"`
	MaxCommits int    `yaml:"max_commits"`
}

// OpenAIConfig holds generation settings.
type OpenAIConfig struct {
	Model        string `yaml:"model"`
	RootLanguage string `yaml:"root_language"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	readEnv(cfg)
	return cfg
}

// Load reads and parses the config file at path, then applies defaults
// and environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	readEnv(&cfg)

	if !filepath.IsAbs(cfg.Storage.DatabasePath) {
		cfg.Storage.DatabasePath = filepath.Join(filepath.Dir(path), cfg.Storage.DatabasePath)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8001
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = defaultDBPath()
	}
	if cfg.Sync.Branch == "" {
		cfg.Sync.Branch = "main"
	}
	if cfg.Sync.MaxCommits == 0 {
		cfg.Sync.MaxCommits = 20
	}
	if cfg.OpenAI.RootLanguage == "" {
		cfg.OpenAI.RootLanguage = "Python"
	}
}

func readEnv(cfg *Config) {
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHubToken = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIKey = v
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gitlore.db"
	}
	return filepath.Join(home, ".agentic-research", "gitlore", "gitlore.db")
}
