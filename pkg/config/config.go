package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig                `yaml:"app"`
	Gateways map[string]GatewayConfig `yaml:"gateways"`
	Provider ProviderConfig           `yaml:"provider"`
	Memory   MemoryConfig             `yaml:"memory"`
	Metrics  MetricsConfig            `yaml:"metrics"`
	Tools    ToolsConfig              `yaml:"tools"`
}

type AppConfig struct {
	Name      string `yaml:"name"`
	Workspace string `yaml:"workspace"`
}

type GatewayConfig struct {
	Token   string `yaml:"token"`
	Enabled bool   `yaml:"enabled"`
}

// ProviderConfig describes the LLM backend. APIType selects routing:
// "openai" uses Model against BaseURL, "azure" uses Deployment.
type ProviderConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty"`
	Model      string `yaml:"model"`
	Deployment string `yaml:"deployment,omitempty"`
	APIType    string `yaml:"api_type,omitempty"`
	Enabled    bool   `yaml:"enabled"`
}

type MemoryConfig struct {
	Path string `yaml:"path"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// ToolsConfig controls how the tool provider is reached. When Command is set
// the provider runs as a child process speaking the protocol on stdio;
// otherwise it runs in-process over a pipe, rooted at the workspace.
type ToolsConfig struct {
	Command []string `yaml:"command,omitempty"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	return &cfg, nil
}

// LLMConfigured reports whether the provider section is complete enough to
// attempt LLM planning: endpoint, key, and either a deployment name or a
// model name depending on the routing mode.
func (c *Config) LLMConfigured() bool {
	p := c.Provider
	if !p.Enabled || p.APIKey == "" || p.BaseURL == "" {
		return false
	}
	if p.APIType == "azure" {
		return p.Deployment != ""
	}
	return p.Model != ""
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled {
		return tg, true
	}
	return GatewayConfig{}, false
}
