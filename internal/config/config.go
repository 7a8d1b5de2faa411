package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRAINERGPT_"

type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"DB_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	Redis     RedisConfig     `yaml:"redis" envPrefix:"REDIS_"`
	Cache     CacheConfig     `yaml:"cache" envPrefix:"CACHE_"`
	LLM       LLMConfig       `yaml:"llm" envPrefix:"LLM_"`
	Agent     AgentConfig     `yaml:"agent" envPrefix:"AGENT_"`
	Eval      EvalConfig      `yaml:"eval" envPrefix:"EVAL_"`
	Worker    WorkerConfig    `yaml:"worker" envPrefix:"WORKER_"`
	Tailscale TailscaleConfig `yaml:"tailscale" envPrefix:"TS_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Features  FeaturesConfig  `yaml:"features" envPrefix:"FEATURE_"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
	// ImportTimezone is the zone training log exports record times in.
	ImportTimezone string `yaml:"import_timezone" env:"IMPORT_TIMEZONE"`
}

// ImportLocation resolves ImportTimezone, defaulting to UTC.
func (s ServerConfig) ImportLocation() (*time.Location, error) {
	if s.ImportTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.ImportTimezone)
	if err != nil {
		return nil, fmt.Errorf("server.import_timezone: %w", err)
	}
	return loc, nil
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Name     string `yaml:"name" env:"NAME"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key" env:"API_KEY"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// CacheConfig selects the cache store and per-kind expiry. A zero TTL uses
// DefaultTTL.
type CacheConfig struct {
	Backend          string        `yaml:"backend" env:"BACKEND"`
	DefaultTTL       time.Duration `yaml:"default_ttl" env:"DEFAULT_TTL"`
	VolumeTTL        time.Duration `yaml:"volume_ttl" env:"VOLUME_TTL"`
	ProfileTTL       time.Duration `yaml:"profile_ttl" env:"PROFILE_TTL"`
	ExerciseListTTL  time.Duration `yaml:"exercise_list_ttl" env:"EXERCISE_LIST_TTL"`
	WeeklySummaryTTL time.Duration `yaml:"weekly_summary_ttl" env:"WEEKLY_SUMMARY_TTL"`
	DeloadTTL        time.Duration `yaml:"deload_ttl" env:"DELOAD_TTL"`
	MemorySizeMB     int           `yaml:"memory_size_mb" env:"MEMORY_SIZE_MB"`
}

type LLMConfig struct {
	APIKey            string  `yaml:"api_key" env:"API_KEY"`
	BaseURL           string  `yaml:"base_url" env:"BASE_URL"`
	Model             string  `yaml:"model" env:"MODEL"`
	JudgeModel        string  `yaml:"judge_model" env:"JUDGE_MODEL"`
	Temperature       float32 `yaml:"temperature" env:"TEMPERATURE"`
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
}

type AgentConfig struct {
	MaxSteps      int    `yaml:"max_steps" env:"MAX_STEPS"`
	ParallelTools int    `yaml:"parallel_tools" env:"PARALLEL_TOOLS"`
	PolicyFile    string `yaml:"policy_file" env:"POLICY_FILE"`
}

type EvalConfig struct {
	MaxSteps         int           `yaml:"max_steps" env:"MAX_STEPS"`
	ScenarioTimeout  time.Duration `yaml:"scenario_timeout" env:"SCENARIO_TIMEOUT"`
	Concurrency      int           `yaml:"concurrency" env:"CONCURRENCY"`
	JudgeConcurrency int           `yaml:"judge_concurrency" env:"JUDGE_CONCURRENCY"`
	OutputDir        string        `yaml:"output_dir" env:"OUTPUT_DIR"`
	HistoryDir       string        `yaml:"history_dir" env:"HISTORY_DIR"`
	ScenarioDir      string        `yaml:"scenario_dir" env:"SCENARIO_DIR"`
}

type WorkerConfig struct {
	Concurrency      int    `yaml:"concurrency" env:"CONCURRENCY"`
	DeloadCron       string `yaml:"deload_cron" env:"DELOAD_CRON"`
	ActiveWithinDays int    `yaml:"active_within_days" env:"ACTIVE_WITHIN_DAYS"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Hostname string `yaml:"hostname" env:"HOSTNAME"`
	StateDir string `yaml:"state_dir" env:"STATE_DIR"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type FeaturesConfig struct {
	DeloadAdvice bool `yaml:"deload_advice" env:"DELOAD_ADVICE"`
	Cache        bool `yaml:"cache" env:"CACHE"`
}

// Default returns the built-in configuration that a YAML file and the
// environment override.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{Host: "localhost", Port: 5432, Name: "trainergpt", User: "trainergpt", SSLMode: "disable"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Cache: CacheConfig{
			Backend:          "memory",
			DefaultTTL:       5 * time.Minute,
			VolumeTTL:        time.Minute,
			ExerciseListTTL:  time.Hour,
			WeeklySummaryTTL: 2 * time.Minute,
			DeloadTTL:        6 * time.Hour,
			MemorySizeMB:     32,
		},
		LLM:       LLMConfig{Model: "gpt-4o", JudgeModel: "gpt-4o-mini", Temperature: 0.3},
		Agent:     AgentConfig{MaxSteps: 5, ParallelTools: 4},
		Eval:      EvalConfig{MaxSteps: 7, ScenarioTimeout: 2 * time.Minute, Concurrency: 4, JudgeConcurrency: 4, OutputDir: "eval-results", HistoryDir: ".trainergpt"},
		Worker:    WorkerConfig{Concurrency: 4, DeloadCron: "0 4 * * *", ActiveWithinDays: 28},
		Tailscale: TailscaleConfig{Hostname: "trainergpt", StateDir: "tsnet-state"},
		Log:       LogConfig{Level: "info", Format: "text"},
		Features:  FeaturesConfig{DeloadAdvice: true, Cache: true},
	}
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load starts from Default, reads the YAML file at path if path is not
// empty, then applies environment overrides. Env vars use the prefix
// TRAINERGPT_ and the section prefix:
//
//	TRAINERGPT_SERVER_PORT, TRAINERGPT_DB_HOST, TRAINERGPT_DB_PASSWORD,
//	TRAINERGPT_AUTH_API_KEY, TRAINERGPT_REDIS_ADDR, TRAINERGPT_CACHE_BACKEND,
//	TRAINERGPT_LLM_API_KEY, TRAINERGPT_LLM_MODEL, TRAINERGPT_EVAL_CONCURRENCY,
//	TRAINERGPT_WORKER_DELOAD_CRON, TRAINERGPT_TS_ENABLED, TRAINERGPT_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.backend must be memory, redis or none, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("redis.addr is required for the redis cache backend")
	}
	if c.Agent.MaxSteps < 1 {
		return errors.New("agent.max_steps must be at least 1")
	}
	if c.Eval.MaxSteps < 1 {
		return errors.New("eval.max_steps must be at least 1")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.Eval.ScenarioTimeout <= 0 {
		return errors.New("eval.scenario_timeout must be positive")
	}
	if _, err := c.Server.ImportLocation(); err != nil {
		return err
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ValidateServe checks what the API server and worker need beyond Load.
func (c *Config) ValidateServe() error {
	if c.Server.Port == 0 {
		return errors.New("server.port is required")
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Port == 0 {
		return errors.New("database.port is required")
	}
	if c.Database.Name == "" {
		return errors.New("database.name is required")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return errors.New("auth.api_key is required")
	}
	return nil
}

// ValidateLLM checks that a model can be called.
func (c *Config) ValidateLLM() error {
	if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
		return errors.New("llm.api_key is required unless llm.base_url points at a local endpoint")
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return l, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return l, nil
}

// NewLogger builds the process logger described by the log section.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
