// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/viper"
)

// Config is the resolved taptail configuration.
type Config struct {
	Backend       string `mapstructure:"backend"`
	Model         string `mapstructure:"model"`
	Endpoint      string `mapstructure:"endpoint"`
	APIKey        string `mapstructure:"api-key"`
	TextToolCalls bool   `mapstructure:"text-tool-calls"`

	Threshold     int    `mapstructure:"threshold"`
	Sentinel      string `mapstructure:"sentinel"`
	Ordered       bool   `mapstructure:"ordered"`
	VerboseFilter bool   `mapstructure:"verbose-filter"`
	Fallback      bool   `mapstructure:"fallback"`
	Instructions  string `mapstructure:"instructions"`

	Format    string `mapstructure:"format"`
	ShowLines bool   `mapstructure:"show-lines"`
	Sink      string `mapstructure:"sink"`
	Debug     bool   `mapstructure:"debug"`
}

var (
	backends = []string{"openai", "azure", "gemini"}
	formats  = []string{"text", "json", "yaml"}
)

// loadConfig reads v into a Config, fills backend-specific defaults from
// the conventional environment variables and validates the result.
func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Backend == "" {
		cfg.Backend = "openai"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}

	switch cfg.Backend {
	case "openai":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
	case "azure":
		if cfg.Endpoint == "" {
			cfg.Endpoint = os.Getenv("AZURE_FOUNDRY_ENDPOINT")
		}
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("AZURE_FOUNDRY_KEY")
		}
		if cfg.Model == "" {
			cfg.Model = os.Getenv("AZURE_FOUNDRY_MODEL")
		}
		if cfg.Model == "" {
			cfg.Model = "gpt-4o"
		}
	case "gemini":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("GEMINI_API_KEY")
		}
		if cfg.Model == "" {
			cfg.Model = "gemini-2.5-flash"
		}
	}
}

func (c Config) validate() error {
	if !slices.Contains(backends, c.Backend) {
		return fmt.Errorf("unknown backend %q (want one of %v)", c.Backend, backends)
	}
	if !slices.Contains(formats, c.Format) {
		return fmt.Errorf("unknown format %q (want one of %v)", c.Format, formats)
	}
	if c.Threshold < 1 {
		return fmt.Errorf("threshold must be at least 1, got %d", c.Threshold)
	}
	switch c.Backend {
	case "openai":
		if c.APIKey == "" && c.Endpoint == "" {
			return fmt.Errorf("openai backend needs --api-key (or OPENAI_API_KEY) unless --endpoint points at a local runtime")
		}
	case "azure":
		if c.Endpoint == "" {
			return fmt.Errorf("azure backend needs --endpoint (or AZURE_FOUNDRY_ENDPOINT)")
		}
	case "gemini":
		if c.APIKey == "" {
			return fmt.Errorf("gemini backend needs --api-key (or GEMINI_API_KEY)")
		}
	}
	return nil
}
