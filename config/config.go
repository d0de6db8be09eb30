package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the pokemon agent backend
type Config struct {
	General   GeneralConfig    `mapstructure:"general"`
	Server    ServerConfig     `mapstructure:"server"`
	LLM       LLMConfig        `mapstructure:"llm"`
	Search    SearchConfig     `mapstructure:"search"`
	Fetch     FetchConfig      `mapstructure:"fetch"`
	Pipeline  PipelineConfig   `mapstructure:"pipeline"`
	Cache     CacheConfig      `mapstructure:"cache"`
	Agent     AgentConfig      `mapstructure:"agent"`
	ToolHosts []ToolHostConfig `mapstructure:"tool_hosts"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Telemetry TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type       string              `mapstructure:"type"` // openai-compatible endpoints only for now
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Models     map[string]LLMModel `mapstructure:"models"`
	MaxRetries int                 `mapstructure:"max_retries"`
	Timeout    time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig defines which model to use for different tasks
type LLMRoutingConfig struct {
	Extraction string `mapstructure:"extraction"` // map/reduce chunk extraction
	Reasoning  string `mapstructure:"reasoning"`  // autonomous agent loop
	Fallback   string `mapstructure:"fallback"`
}

// SearchConfig contains web search settings
type SearchConfig struct {
	Provider        string        `mapstructure:"provider"` // tavily, brave, serper
	TavilyAPIKey    string        `mapstructure:"tavily_api_key"`
	BraveAPIKey     string        `mapstructure:"brave_api_key"`
	SerperAPIKey    string        `mapstructure:"serper_api_key"`
	MaxResults      int           `mapstructure:"max_results"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PriorityDomains []string      `mapstructure:"priority_domains"`
}

func (s SearchConfig) Normalize() SearchConfig {
	if s.Provider == "" {
		s.Provider = "tavily"
	}
	if s.MaxResults <= 0 {
		s.MaxResults = 5
	}
	if s.Timeout <= 0 {
		s.Timeout = 15 * time.Second
	}
	if len(s.PriorityDomains) == 0 {
		s.PriorityDomains = []string{
			"wiki.52poke.com",
			"serebii.net",
			"bulbapedia.bulbagarden.net",
			"pokemon.com",
			"pokemon.jp",
		}
	}
	return s
}

// FetchConfig contains page fetch settings
type FetchConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	UserAgent        string        `mapstructure:"user_agent"`
	MaxBodyBytes     int64         `mapstructure:"max_body_bytes"`
	MinContentLength int           `mapstructure:"min_content_length"`
	Mode             string        `mapstructure:"mode"` // clean or readability
}

func (f FetchConfig) Normalize() FetchConfig {
	if f.Timeout <= 0 {
		f.Timeout = 25 * time.Second
	}
	if f.MaxRetries < 0 {
		f.MaxRetries = 0
	}
	if f.UserAgent == "" {
		f.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	}
	if f.MaxBodyBytes <= 0 {
		f.MaxBodyBytes = 8 << 20
	}
	if f.MinContentLength <= 0 {
		f.MinContentLength = 200
	}
	if f.Mode == "" {
		f.Mode = "clean"
	}
	return f
}

func (f FetchConfig) Validate() error {
	switch f.Mode {
	case "", "clean", "readability":
	default:
		return fmt.Errorf("fetch.mode must be clean or readability, got %q", f.Mode)
	}
	return nil
}

// PipelineConfig contains chunking and quality thresholds
type PipelineConfig struct {
	ChunkSize      int           `mapstructure:"chunk_size"`
	ChunkOverlap   int           `mapstructure:"chunk_overlap"`
	AutoChunking   bool          `mapstructure:"auto_chunking"`
	MinQuality     float64       `mapstructure:"min_quality"`
	LLMCallTimeout time.Duration `mapstructure:"llm_call_timeout"`
}

func (p PipelineConfig) Normalize() PipelineConfig {
	if p.ChunkSize <= 0 {
		p.ChunkSize = 1500
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		p.ChunkOverlap = 150
	}
	if p.MinQuality <= 0 {
		p.MinQuality = 0.3
	}
	if p.LLMCallTimeout <= 0 {
		p.LLMCallTimeout = 30 * time.Second
	}
	return p
}

// CacheConfig controls the per-URL result cache
type CacheConfig struct {
	Backend     string `mapstructure:"backend"` // inmemory or redis
	MaxEntries  int    `mapstructure:"max_entries"`
	ExpireDays  int    `mapstructure:"expire_days"`
	CleanupCron string `mapstructure:"cleanup_cron"`
}

func (c CacheConfig) Normalize() CacheConfig {
	if c.Backend == "" {
		c.Backend = "inmemory"
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 100
	}
	if c.ExpireDays <= 0 {
		c.ExpireDays = 1
	}
	return c
}

func (c CacheConfig) Validate() error {
	switch c.Backend {
	case "", "inmemory", "redis":
	default:
		return fmt.Errorf("cache.backend must be inmemory or redis, got %q", c.Backend)
	}
	return nil
}

// AgentConfig bounds the autonomous reasoning loop
type AgentConfig struct {
	MaxIterations    int           `mapstructure:"max_iterations"`
	MaxExecutionTime time.Duration `mapstructure:"max_execution_time"`
	Temperature      float64       `mapstructure:"temperature"`
}

func (a AgentConfig) Normalize() AgentConfig {
	if a.MaxIterations <= 0 {
		a.MaxIterations = 6
	}
	if a.MaxExecutionTime <= 0 {
		a.MaxExecutionTime = 90 * time.Second
	}
	if a.Temperature <= 0 {
		a.Temperature = 0.2
	}
	return a
}

// ToolHostConfig describes one external tool server reachable over stdio
type ToolHostConfig struct {
	Name    string   `mapstructure:"name"`
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Env     []string `mapstructure:"env"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether any connection detail was supplied. Persistence
// is optional and the server runs cache-only without it.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.URL) != "" || strings.TrimSpace(p.Host) != ""
}

func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	sslmode := p.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, sslmode)
}

func (p PostgresConfig) Validate() error {
	if !p.Enabled() || strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	LogFile      string `mapstructure:"log_file"`
	CostTracking bool   `mapstructure:"cost_tracking"`
}

// LoadConfig loads config from file. A missing file is not fatal; defaults
// and POKEDEX_* environment variables still apply.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "60s")
	viper.SetDefault("server.address", ":8000")
	viper.SetDefault("search.provider", "tavily")
	viper.SetDefault("search.max_results", 5)
	viper.SetDefault("fetch.timeout", "25s")
	viper.SetDefault("fetch.max_retries", 2)
	viper.SetDefault("fetch.min_content_length", 200)
	viper.SetDefault("pipeline.chunk_size", 1500)
	viper.SetDefault("pipeline.chunk_overlap", 150)
	viper.SetDefault("pipeline.auto_chunking", true)
	viper.SetDefault("pipeline.min_quality", 0.3)
	viper.SetDefault("cache.backend", "inmemory")
	viper.SetDefault("cache.max_entries", 100)
	viper.SetDefault("cache.expire_days", 1)
	viper.SetDefault("agent.max_iterations", 6)
	viper.SetDefault("agent.max_execution_time", "90s")
	viper.SetDefault("agent.temperature", 0.2)
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.cost_tracking", true)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("POKEDEX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	config.Search = config.Search.Normalize()
	config.Fetch = config.Fetch.Normalize()
	config.Pipeline = config.Pipeline.Normalize()
	config.Cache = config.Cache.Normalize()
	config.Agent = config.Agent.Normalize()

	if err := config.Fetch.Validate(); err != nil {
		panic(err)
	}
	if err := config.Cache.Validate(); err != nil {
		panic(err)
	}
	if config.Cache.Backend == "redis" {
		if err := config.Storage.Redis.Validate(); err != nil {
			panic(err)
		}
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	return &config
}
