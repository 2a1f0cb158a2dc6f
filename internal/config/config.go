// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AIConfig struct {
	Provider        string   `yaml:"provider"` // gemini | openai; empty = inferred from model
	GeminiKey       string   `yaml:"gemini_key"`
	GeminiURL       string   `yaml:"gemini_url"`
	OpenAIKey       string   `yaml:"openai_key"`
	OpenAIBaseURL   string   `yaml:"openai_base_url"`
	Model           string   `yaml:"model"`
	Temperature     *float32 `yaml:"temperature"` // nil = DefaultTemperature; 0 is a valid setting
	MaxOutputTokens int      `yaml:"max_output_tokens"`
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultTemperature float32 = 1.2
)

// EffectiveTemperature returns the configured temperature or DefaultTemperature.
func (a AIConfig) EffectiveTemperature() float32 {
	if a.Temperature == nil {
		return DefaultTemperature
	}
	return *a.Temperature
}

// ResolveProvider returns the explicit provider, or infers one from the model
// name: gpt-*, o1* and o3* select openai, anything else gemini.
func ResolveProvider(provider, modelName string) string {
	if p := strings.ToLower(strings.TrimSpace(provider)); p != "" {
		return p
	}
	l := strings.ToLower(strings.TrimSpace(modelName))
	switch {
	case strings.HasPrefix(l, "gpt"), strings.HasPrefix(l, "o1"), strings.HasPrefix(l, "o3"):
		return ProviderOpenAI
	default:
		return ProviderGemini
	}
}

type NotifyConfig struct {
	BaseURL          string   `yaml:"base_url"`
	Topic            string   `yaml:"topic"`
	Token            string   `yaml:"token"`
	Title            string   `yaml:"title"`
	Tags             []string `yaml:"tags"`
	Priority         string   `yaml:"priority"`
	Delay            string   `yaml:"delay"`
	IncludeReasoning bool     `yaml:"include_reasoning"`
}

type PromptConfig struct {
	Domains    []string `yaml:"domains"`
	Difficulty string   `yaml:"difficulty"` // easy|medium|hard|rotate
	Avoid      []string `yaml:"avoid"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Multiplier  float64       `yaml:"multiplier"`
}

type PipelineConfig struct {
	GenerateTimeout time.Duration `yaml:"generate_timeout"`
	PublishTimeout  time.Duration `yaml:"publish_timeout"`
	TotalTimeout    time.Duration `yaml:"total_timeout"` // 0 = derived from stages
	GenerateRetry   RetryConfig   `yaml:"generate_retry"`
	PublishRetry    RetryConfig   `yaml:"publish_retry"`
}

type ScheduleConfig struct {
	Interval   time.Duration `yaml:"interval"` // 0 disables the in-process schedule
	RunOnStart bool          `yaml:"run_on_start"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	AI       AIConfig       `yaml:"ai"`
	Notify   NotifyConfig   `yaml:"notify"`
	Prompt   PromptConfig   `yaml:"prompt"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Schedule ScheduleConfig `yaml:"schedule"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads an optional .env file, an optional YAML file and then the
// environment, applies defaults and validates. Validation failures wrap
// domain.ErrConfiguration.
func LoadConfig(configPath string, dev bool) (*Config, error) {
	// .env is a local convenience; Cloud Run injects real env vars.
	_ = godotenv.Load()

	var cfg Config
	if configPath != "" {
		b, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("%w: read config: %v", domain.ErrConfiguration, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config: %v", domain.ErrConfiguration, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("AI_PROVIDER", &cfg.AI.Provider)
	str("GEMINI_API_KEY", &cfg.AI.GeminiKey)
	str("GEMINI_URL", &cfg.AI.GeminiURL)
	str("OPENAI_API_KEY", &cfg.AI.OpenAIKey)
	str("OPENAI_BASE_URL", &cfg.AI.OpenAIBaseURL)
	applyModelEnv(cfg, lookup)
	str("NTFY_TOPIC", &cfg.Notify.Topic)
	str("NTFY_URL", &cfg.Notify.BaseURL)
	str("NTFY_TOKEN", &cfg.Notify.Token)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT must be a number, got %q", domain.ErrConfiguration, v)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup("SCHEDULE_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: SCHEDULE_INTERVAL: %v", domain.ErrConfiguration, err)
		}
		cfg.Schedule.Interval = d
	}
	return nil
}

// applyModelEnv picks the model override. AI_MODEL always wins; otherwise the
// provider-specific variable for the explicit provider is used. With no explicit
// provider GEMINI_MODEL is tried before OPENAI_MODEL, and ResolveProvider later
// infers the provider from whichever was set.
func applyModelEnv(cfg *Config, lookup lookupFunc) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	if v := get("AI_MODEL"); v != "" {
		cfg.AI.Model = v
		return
	}
	var keys []string
	switch strings.ToLower(strings.TrimSpace(cfg.AI.Provider)) {
	case ProviderGemini:
		keys = []string{"GEMINI_MODEL"}
	case ProviderOpenAI:
		keys = []string{"OPENAI_MODEL"}
	case "":
		keys = []string{"GEMINI_MODEL", "OPENAI_MODEL"}
	}
	for _, k := range keys {
		if v := get(k); v != "" {
			cfg.AI.Model = v
			return
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	cfg.AI.Provider = ResolveProvider(cfg.AI.Provider, cfg.AI.Model)
	if cfg.AI.Model == "" {
		if cfg.AI.Provider == ProviderOpenAI {
			cfg.AI.Model = "gpt-4o-mini"
		} else {
			cfg.AI.Model = "gemini-2.0-flash"
		}
	}
	if cfg.AI.Temperature == nil {
		t := DefaultTemperature
		cfg.AI.Temperature = &t
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		cfg.AI.MaxOutputTokens = 5000
	}

	if cfg.Notify.BaseURL == "" {
		cfg.Notify.BaseURL = "https://ntfy.sh"
	}
	cfg.Notify.BaseURL = strings.TrimRight(cfg.Notify.BaseURL, "/")
	if cfg.Notify.Title == "" {
		cfg.Notify.Title = "Fermi Question"
	}
	if cfg.Notify.Tags == nil {
		cfg.Notify.Tags = []string{"brain", "puzzle"}
	}

	if len(cfg.Prompt.Domains) == 0 {
		cfg.Prompt.Domains = []string{
			"astronomy", "biology", "economics", "everyday life", "geography",
			"engineering", "history", "sports", "technology", "oceans",
		}
	}
	if cfg.Prompt.Difficulty == "" {
		cfg.Prompt.Difficulty = "medium"
	}
	if cfg.Prompt.Avoid == nil {
		cfg.Prompt.Avoid = []string{"piano tuners in Chicago", "jellybeans in a jar"}
	}

	if cfg.Pipeline.GenerateTimeout <= 0 {
		cfg.Pipeline.GenerateTimeout = 45 * time.Second
	}
	if cfg.Pipeline.PublishTimeout <= 0 {
		cfg.Pipeline.PublishTimeout = 10 * time.Second
	}
	cfg.Pipeline.GenerateRetry = normalizeRetry(cfg.Pipeline.GenerateRetry)
	cfg.Pipeline.PublishRetry = normalizeRetry(cfg.Pipeline.PublishRetry)
	if cfg.Pipeline.TotalTimeout <= 0 {
		cfg.Pipeline.TotalTimeout = cfg.Pipeline.Budget()
	}
}

func normalizeRetry(r RetryConfig) RetryConfig {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 3
	}
	if r.BaseDelay <= 0 {
		r.BaseDelay = time.Second
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = 8 * time.Second
	}
	if r.Multiplier < 1 {
		r.Multiplier = 2
	}
	return r
}

// Backoff is the delay before attempt n+1, n counted from 1.
func (r RetryConfig) Backoff(n int) time.Duration {
	d := float64(r.BaseDelay)
	for i := 1; i < n; i++ {
		d *= r.Multiplier
		if d >= float64(r.MaxDelay) {
			return r.MaxDelay
		}
	}
	return time.Duration(d)
}

// worst is the longest a stage can take: every attempt times out and every backoff is slept.
func (r RetryConfig) worst(attemptTimeout time.Duration) time.Duration {
	total := time.Duration(r.MaxAttempts) * attemptTimeout
	for n := 1; n < r.MaxAttempts; n++ {
		total += r.Backoff(n)
	}
	return total
}

// Budget is the sum of both stages' worst case.
func (p PipelineConfig) Budget() time.Duration {
	return p.GenerateRetry.worst(p.GenerateTimeout) + p.PublishRetry.worst(p.PublishTimeout)
}

func (c *Config) Validate() error {
	var errs []error
	switch c.AI.Provider {
	case ProviderGemini:
		if c.AI.GeminiKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY (ai.gemini_key) is required"))
		}
	case ProviderOpenAI:
		if c.AI.OpenAIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY (ai.openai_key) is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("ai.provider %q is not supported", c.AI.Provider))
	}
	if c.Notify.Topic == "" {
		errs = append(errs, errors.New("NTFY_TOPIC (notify.topic) is required"))
	}
	if strings.ContainsAny(c.Notify.Topic, "/ ") {
		errs = append(errs, fmt.Errorf("notify.topic %q must be a single path segment", c.Notify.Topic))
	}
	if _, err := model.ParsePriority(c.Notify.Priority); err != nil {
		errs = append(errs, fmt.Errorf("notify.priority: %v", err))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}
