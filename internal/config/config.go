package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/optimize"
	"portfolio-backtest/internal/strategy"
)

// Config is the on-disk run configuration (YAML).
type Config struct {
	// Optional: inherit from another run config (e.g. a shared defaults file).
	// Fields set in this file override the ones loaded from Extends.
	Extends string `yaml:"extends"`

	DataDir           string          `yaml:"data_dir"`
	StartingCapital   float64         `yaml:"starting_capital"`
	PortfolioSize     int             `yaml:"portfolio_size"`
	UniverseSize      int             `yaml:"universe_size"`
	LookbackDays      int             `yaml:"lookback_days"`
	WeightingStrategy string          `yaml:"weighting_strategy"`
	MinHistory        int             `yaml:"min_history"`
	MissingPrice      string          `yaml:"missing_price_policy"`
	Optimizer         OptimizerConfig `yaml:"optimizer"`
	Output            string          `yaml:"output"`
}

type OptimizerConfig struct {
	MaxIter   int     `yaml:"max_iter"`
	Tolerance float64 `yaml:"tolerance"`
}

// Defaults returns a config with every tunable at its default and no strategy.
func Defaults() Config {
	p := strategy.DefaultParams()
	return Config{
		StartingCapital: backtest.DefaultStartingCapital,
		PortfolioSize:   p.PortfolioSize,
		UniverseSize:    p.UniverseSize,
		LookbackDays:    p.LookbackDays,
		MinHistory:      p.MinHistory,
		MissingPrice:    string(backtest.PolicyDrop),
	}
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	merged := Merge(Defaults(), *c)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// LoadUnchecked loads and merges config, but neither applies defaults nor validates.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	return load(path, 0)
}

const maxExtendsDepth = 8

func load(path string, depth int) (*Config, error) {
	if depth > maxExtendsDepth {
		return nil, fmt.Errorf("config %s: extends chain deeper than %d", path, maxExtendsDepth)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.Extends == "" {
		return &c, nil
	}

	basePath := c.Extends
	if !filepath.IsAbs(basePath) {
		// Prefer interpreting relative paths as relative to the config file directory,
		// but fall back to the provided path (relative to cwd) if that doesn't exist.
		cand := filepath.Join(filepath.Dir(path), basePath)
		if _, err := os.Stat(cand); err == nil {
			basePath = cand
		}
	}
	base, err := load(basePath, depth+1)
	if err != nil {
		return nil, err
	}
	merged := Merge(*base, c)
	merged.Extends = ""
	return &merged, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.WeightingStrategy == "" {
		return errors.New("weighting_strategy is required")
	}
	if _, err := strategy.New(c.WeightingStrategy, c.StrategyParams()); err != nil {
		return fmt.Errorf("weighting_strategy: %w", err)
	}
	if !(c.StartingCapital > 0) {
		return fmt.Errorf("starting_capital must be > 0, got %v", c.StartingCapital)
	}
	if c.PortfolioSize <= 0 {
		return fmt.Errorf("portfolio_size must be > 0, got %d", c.PortfolioSize)
	}
	if c.UniverseSize <= 0 {
		return fmt.Errorf("universe_size must be > 0, got %d", c.UniverseSize)
	}
	// Only value picks its portfolio out of a market-cap universe.
	if strings.EqualFold(strings.TrimSpace(c.WeightingStrategy), strategy.NameValue) && c.UniverseSize < c.PortfolioSize {
		return fmt.Errorf("universe_size (%d) must be >= portfolio_size (%d) for value", c.UniverseSize, c.PortfolioSize)
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("lookback_days must be > 0, got %d", c.LookbackDays)
	}
	if c.MinHistory < 0 {
		return fmt.Errorf("min_history must be >= 0, got %d", c.MinHistory)
	}
	if _, err := backtest.ParseMissingPricePolicy(c.MissingPrice); err != nil {
		return err
	}
	if c.Optimizer.MaxIter < 0 || c.Optimizer.Tolerance < 0 {
		return errors.New("optimizer max_iter and tolerance must be >= 0")
	}
	return nil
}

func (c *Config) StrategyParams() strategy.Params {
	return strategy.Params{
		PortfolioSize: c.PortfolioSize,
		UniverseSize:  c.UniverseSize,
		LookbackDays:  c.LookbackDays,
		MinHistory:    c.MinHistory,
		Optimizer: optimize.Options{
			MaxIter:   c.Optimizer.MaxIter,
			Tolerance: c.Optimizer.Tolerance,
		},
	}
}

// EngineOptions translates the config into backtest engine options.
func (c *Config) EngineOptions() []backtest.Option {
	policy, _ := backtest.ParseMissingPricePolicy(c.MissingPrice)
	p := c.StrategyParams()
	return []backtest.Option{
		backtest.WithStartingCapital(c.StartingCapital),
		backtest.WithPortfolioSize(p.PortfolioSize),
		backtest.WithUniverseSize(p.UniverseSize),
		backtest.WithLookbackDays(p.LookbackDays),
		backtest.WithMinHistory(p.MinHistory),
		backtest.WithOptimizer(p.Optimizer),
		backtest.WithMissingPricePolicy(policy),
	}
}

// Merge overlays non-zero fields from override onto base.
// This is used for extends chains and for applying request fields over file defaults.
func Merge(base, override Config) Config {
	out := base
	if override.Extends != "" {
		out.Extends = override.Extends
	}
	if override.DataDir != "" {
		out.DataDir = override.DataDir
	}
	if override.StartingCapital != 0 {
		out.StartingCapital = override.StartingCapital
	}
	if override.PortfolioSize != 0 {
		out.PortfolioSize = override.PortfolioSize
	}
	if override.UniverseSize != 0 {
		out.UniverseSize = override.UniverseSize
	}
	if override.LookbackDays != 0 {
		out.LookbackDays = override.LookbackDays
	}
	if override.WeightingStrategy != "" {
		out.WeightingStrategy = override.WeightingStrategy
	}
	if override.MinHistory != 0 {
		out.MinHistory = override.MinHistory
	}
	if override.MissingPrice != "" {
		out.MissingPrice = override.MissingPrice
	}
	if override.Optimizer.MaxIter != 0 {
		out.Optimizer.MaxIter = override.Optimizer.MaxIter
	}
	if override.Optimizer.Tolerance != 0 {
		out.Optimizer.Tolerance = override.Optimizer.Tolerance
	}
	if override.Output != "" {
		out.Output = override.Output
	}
	return out
}
