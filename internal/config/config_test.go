package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/valpere/peresub/internal/config"
)

func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("NIUTRANS_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
}

func load(t *testing.T, path string) *config.Config {
	t.Helper()
	v, err := config.NewViper()
	if err != nil {
		t.Fatalf("NewViper returned error: %v", err)
	}
	cfg, _, _, err := config.Load(v, path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	v, err := config.NewViper()
	if err != nil {
		t.Fatalf("NewViper returned error: %v", err)
	}
	cfg, resolved, exists, err := config.Load(v, "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected no config file in temp HOME")
	}
	if !strings.HasSuffix(resolved, filepath.Join("peresub", "config.toml")) {
		t.Fatalf("unexpected resolved path %q", resolved)
	}

	if cfg.TargetLang != "zh" {
		t.Errorf("expected default target zh, got %q", cfg.TargetLang)
	}
	if cfg.LLM.Backend != "gpt" || cfg.LLM.MaxAttempts != 5 {
		t.Errorf("unexpected llm defaults %+v", cfg.LLM)
	}
	if cfg.Translator.Service != "google" || cfg.Translator.Concurrency != 5 {
		t.Errorf("unexpected translator defaults %+v", cfg.Translator)
	}
	if cfg.Stages.Optimize || cfg.Stages.Correct || cfg.Stages.Merge || cfg.Stages.ContextRange != 10 {
		t.Errorf("unexpected stage defaults %+v", cfg.Stages)
	}
	if strings.HasPrefix(cfg.Storage.DBPath, "~") {
		t.Errorf("expected db path expanded, got %q", cfg.Storage.DBPath)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "peresub.toml")
	content := `
target_lang = "UK"
formats = ["srt"]

[llm]
backend = "ollama"
model = "qwen2.5:7b"

[translator]
service = "mymemory"
concurrency = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PERESUB_TRANSLATOR_CONCURRENCY", "7")

	cfg := load(t, path)

	if cfg.TargetLang != "uk" {
		t.Errorf("expected normalized target uk, got %q", cfg.TargetLang)
	}
	if cfg.LLM.Backend != "ollama" || cfg.LLM.Model != "qwen2.5:7b" {
		t.Errorf("file values not applied: %+v", cfg.LLM)
	}
	if cfg.Translator.Service != "mymemory" {
		t.Errorf("expected mymemory, got %q", cfg.Translator.Service)
	}
	if cfg.Translator.Concurrency != 7 {
		t.Errorf("expected env to override file concurrency, got %d", cfg.Translator.Concurrency)
	}
	if len(cfg.Formats) != 1 || cfg.Formats[0] != "srt" {
		t.Errorf("unexpected formats %v", cfg.Formats)
	}
	if cfg.Stages.ContextRange != 10 {
		t.Errorf("expected defaults kept for unset keys, got %d", cfg.Stages.ContextRange)
	}
}

func TestLoadAPIKeyFallbacks(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("NIUTRANS_API_KEY", "niu-key")

	cfg := load(t, "")

	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("expected OPENAI_API_KEY fallback, got %q", cfg.LLM.APIKey)
	}
	if cfg.Transcription.APIKey != "sk-test" {
		t.Errorf("expected transcription key fallback, got %q", cfg.Transcription.APIKey)
	}
	if cfg.Translator.NiuTransKey != "niu-key" {
		t.Errorf("expected NIUTRANS_API_KEY fallback, got %q", cfg.Translator.NiuTransKey)
	}
	if cfg.Translator.GoogleKey != "" {
		t.Errorf("google key must not borrow other services' keys, got %q", cfg.Translator.GoogleKey)
	}

	t.Setenv("GOOGLE_API_KEY", "g-key")
	if cfg := load(t, ""); cfg.Translator.GoogleKey != "g-key" {
		t.Errorf("expected GOOGLE_API_KEY fallback, got %q", cfg.Translator.GoogleKey)
	}
}

func TestLoadNormalizesLanguageAliases(t *testing.T) {
	tests := []struct {
		target, source string
		wantTarget     string
		wantSource     string
	}{
		{"zh-cn", "", "zh", ""},
		{"Chinese", "English", "zh", "en"},
		{" HEBREW ", "ukrainian", "he", "uk"},
		{"zh-tw", "", "zh-tw", ""},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			isolate(t)
			t.Setenv("PERESUB_TARGET_LANG", tt.target)
			t.Setenv("PERESUB_SOURCE_LANG", tt.source)

			cfg := load(t, "")
			if cfg.TargetLang != tt.wantTarget || cfg.SourceLang != tt.wantSource {
				t.Errorf("got target %q source %q, want %q %q", cfg.TargetLang, cfg.SourceLang, tt.wantTarget, tt.wantSource)
			}
		})
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	isolate(t)
	v, err := config.NewViper()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(v, filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty target", func(c *config.Config) { c.TargetLang = "" }},
		{"bad format", func(c *config.Config) { c.Formats = []string{"vtt"} }},
		{"no formats", func(c *config.Config) { c.Formats = nil }},
		{"bad backend", func(c *config.Config) { c.LLM.Backend = "claude" }},
		{"bad service", func(c *config.Config) { c.Translator.Service = "deepl" }},
		{"zero concurrency", func(c *config.Config) { c.Translator.Concurrency = 0 }},
		{"niutrans without key", func(c *config.Config) { c.Translator.Service = "niutrans" }},
		{"zero context", func(c *config.Config) { c.Stages.ContextRange = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestNeedsLLM(t *testing.T) {
	cfg := config.Default()
	if cfg.NeedsLLM() {
		t.Error("expected no model needed with every stage off")
	}
	cfg.Stages.Optimize = true
	if !cfg.NeedsLLM() {
		t.Error("optimization needs the model")
	}
	cfg.Stages.Optimize = false
	cfg.Translator.Service = "llm"
	if !cfg.NeedsLLM() {
		t.Error("llm translator needs the model")
	}
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if decoded.TargetLang != "zh" || decoded.LLM.Backend != "gpt" {
		t.Errorf("sample does not carry defaults: %+v", decoded)
	}

	if err := config.WriteSample(path); err == nil {
		t.Error("expected refusal to overwrite existing config")
	}
}
