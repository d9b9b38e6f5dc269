package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App          AppConfig                 `yaml:"app"`
	Gateways     map[string]GatewayConfig  `yaml:"gateways"`
	Providers    map[string]ProviderConfig `yaml:"providers"`
	Orchestrator OrchestratorConfig        `yaml:"orchestrator"`
	Memory       MemoryConfig              `yaml:"memory"`
	API          APIConfig                 `yaml:"api"`
}

type AppConfig struct {
	Name      string `yaml:"name"`
	Workspace string `yaml:"workspace"`
}

type GatewayConfig struct {
	Token   string `yaml:"token"`
	Enabled bool   `yaml:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

// OrchestratorConfig holds the run-level tunables. The thresholds are
// heuristic, so they live in configuration rather than constants.
type OrchestratorConfig struct {
	MaxIterations       int     `yaml:"max_iterations"`
	ContextBudgetChars  int     `yaml:"context_budget_chars"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	PlannerRetries      int     `yaml:"planner_retries"`
	PlannerBackoffMS    int     `yaml:"planner_backoff_ms"`
	WorkerMaxSteps      int     `yaml:"worker_max_steps"`
}

type MemoryConfig struct {
	Path string `yaml:"path"`
}

type APIConfig struct {
	Listen  string `yaml:"listen"`
	Enabled bool   `yaml:"enabled"`
}

// Load reads a YAML config file and applies defaults for any
// orchestrator tunable left at zero.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config usable without a file on disk.
func Default() *Config {
	cfg := &Config{
		App:    AppConfig{Name: "overseer", Workspace: "./workspace"},
		Memory: MemoryConfig{Path: "overseer.db"},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	o := &c.Orchestrator
	if o.MaxIterations == 0 {
		o.MaxIterations = 20
	}
	if o.ContextBudgetChars == 0 {
		o.ContextBudgetChars = 4000
	}
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = 0.6
	}
	if o.PlannerRetries == 0 {
		o.PlannerRetries = 3
	}
	if o.PlannerBackoffMS == 0 {
		o.PlannerBackoffMS = 500
	}
	if o.WorkerMaxSteps == 0 {
		o.WorkerMaxSteps = 10
	}
	if c.API.Listen == "" {
		c.API.Listen = ":8420"
	}
}

// GetDefaultProvider returns the first enabled provider.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetTelegramConfig returns telegram config if enabled.
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled && tg.Token != "" {
		return tg, true
	}
	return GatewayConfig{}, false
}
