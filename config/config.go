// Package config loads the netresearch service configuration: an optional
// YAML file plus NETRESEARCH_* environment overrides, unmarshalled into
// nested structs.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LLMConfig points at a chat-completions endpoint.
type LLMConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.APIKey) == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	return nil
}

// CatalogConfig tunes the scholarly catalog client.
type CatalogConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Mailto         string        `mapstructure:"mailto"`
	ConceptTimeout time.Duration `mapstructure:"concept_timeout"`
	WorksTimeout   time.Duration `mapstructure:"works_timeout"`
	ConceptDelay   time.Duration `mapstructure:"concept_delay"`
	AuthorDelay    time.Duration `mapstructure:"author_delay"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
}

// StorageConfig holds the optional persistence backends.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains the run/user/watch store settings. Either URL or
// the discrete fields; empty means run without persistence.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Enabled reports whether a Postgres target is configured at all.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.URL) != "" || strings.TrimSpace(p.Host) != ""
}

// DSN renders the connection string.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

func (p PostgresConfig) Validate() error {
	if !p.Enabled() || strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when host is set")
	}
	return nil
}

// RedisConfig gates the concept cache and scheduler locks.
type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	ConceptCacheTTL time.Duration `mapstructure:"concept_cache_ttl"`
}

func (r RedisConfig) Validate() error {
	if r.Enabled && strings.TrimSpace(r.Addr) == "" {
		return fmt.Errorf("storage.redis.addr required when redis is enabled")
	}
	return nil
}

// AgentConfig tunes the pipeline itself.
type AgentConfig struct {
	DefaultMaxNodes int  `mapstructure:"default_max_nodes"`
	PacingDisabled  bool `mapstructure:"pacing_disabled"`
}

func (a AgentConfig) Validate() error {
	if a.DefaultMaxNodes < 0 {
		return fmt.Errorf("agent.default_max_nodes cannot be negative")
	}
	return nil
}

// SchedulerConfig controls the watch scheduler.
type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

func (s SchedulerConfig) Validate() error {
	if s.Enabled && s.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be > 0 when the scheduler is enabled")
	}
	return nil
}

// LoadConfig loads config from an optional file path plus environment.
// Hard failures panic: a process with a broken configuration has nothing
// useful to do.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("llm.base_url", "https://api.together.xyz/v1")
	viper.SetDefault("llm.model", "moonshotai/Kimi-K2-Instruct-0905")
	viper.SetDefault("llm.timeout", time.Minute)
	viper.SetDefault("catalog.base_url", "https://api.openalex.org")
	viper.SetDefault("catalog.concept_timeout", 10*time.Second)
	viper.SetDefault("catalog.works_timeout", 30*time.Second)
	viper.SetDefault("catalog.concept_delay", 200*time.Millisecond)
	viper.SetDefault("catalog.author_delay", 300*time.Millisecond)
	viper.SetDefault("catalog.retry_attempts", 3)
	viper.SetDefault("storage.redis.addr", "localhost:6379")
	viper.SetDefault("storage.redis.concept_cache_ttl", 24*time.Hour)
	viper.SetDefault("agent.default_max_nodes", 10)
	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.interval", time.Minute)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("NETRESEARCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// The file is optional; env and defaults carry a full config.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.LLM.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}
	if err := config.Agent.Validate(); err != nil {
		panic(err)
	}
	if err := config.Scheduler.Validate(); err != nil {
		panic(err)
	}
	return &config
}
