package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
app:
  name: reqpilot
  workspace: /srv/reqpilot

gateways:
  telegram:
    token: "123:abc"
    enabled: true

provider:
  api_key: sk-test
  base_url: https://llm.example.com/v1
  model: gpt-4o-mini
  enabled: true

memory:
  path: data/history.db

metrics:
  addr: ":9090"

tools:
  command: ["./reqpilot", "-serve-tools"]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.App.Name != "reqpilot" || cfg.App.Workspace != "/srv/reqpilot" {
		t.Errorf("app = %+v", cfg.App)
	}
	tg, ok := cfg.GetTelegramConfig()
	if !ok || tg.Token != "123:abc" {
		t.Errorf("telegram = %+v, %v", tg, ok)
	}
	if cfg.Memory.Path != "data/history.db" {
		t.Errorf("memory path = %q", cfg.Memory.Path)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("metrics addr = %q", cfg.Metrics.Addr)
	}
	if len(cfg.Tools.Command) != 2 || cfg.Tools.Command[1] != "-serve-tools" {
		t.Errorf("tools command = %v", cfg.Tools.Command)
	}
	if !cfg.LLMConfigured() {
		t.Error("LLMConfigured = false for a complete openai section")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file did not error")
	}
}

func TestLLMConfigured(t *testing.T) {
	base := ProviderConfig{
		APIKey:  "sk-test",
		BaseURL: "https://llm.example.com/v1",
		Model:   "gpt-4o-mini",
		Enabled: true,
	}

	cases := []struct {
		name   string
		mutate func(*ProviderConfig)
		want   bool
	}{
		{"complete openai", func(p *ProviderConfig) {}, true},
		{"disabled", func(p *ProviderConfig) { p.Enabled = false }, false},
		{"no key", func(p *ProviderConfig) { p.APIKey = "" }, false},
		{"no base url", func(p *ProviderConfig) { p.BaseURL = "" }, false},
		{"no model", func(p *ProviderConfig) { p.Model = "" }, false},
		{"azure without deployment", func(p *ProviderConfig) { p.APIType = "azure" }, false},
		{"azure with deployment", func(p *ProviderConfig) {
			p.APIType = "azure"
			p.Deployment = "prod-gpt4"
			p.Model = ""
		}, true},
	}
	for _, c := range cases {
		p := base
		c.mutate(&p)
		cfg := &Config{Provider: p}
		if got := cfg.LLMConfigured(); got != c.want {
			t.Errorf("%s: LLMConfigured = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestGetTelegramConfig_Disabled(t *testing.T) {
	cfg := &Config{Gateways: map[string]GatewayConfig{
		"telegram": {Token: "123:abc", Enabled: false},
	}}
	if _, ok := cfg.GetTelegramConfig(); ok {
		t.Error("disabled gateway reported as enabled")
	}
}
