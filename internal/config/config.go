package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	langcodes "github.com/valpere/peresub/internal/language"
)

// EnvPrefix prefixes every environment override, e.g. PERESUB_LLM_BACKEND.
const EnvPrefix = "PERESUB"

// Stages toggles the optional refinement passes.
type Stages struct {
	Correct      bool `mapstructure:"correct" toml:"correct"`
	Merge        bool `mapstructure:"merge" toml:"merge"`
	Optimize     bool `mapstructure:"optimize" toml:"optimize"`
	ContextRange int  `mapstructure:"context_range" toml:"context_range"`
}

// LLM selects the language model used by correction, merge and optimization.
type LLM struct {
	Backend     string `mapstructure:"backend" toml:"backend"` // gpt or ollama
	Model       string `mapstructure:"model" toml:"model"`     // empty picks the backend default
	APIKey      string `mapstructure:"api_key" toml:"api_key"`
	BaseURL     string `mapstructure:"base_url" toml:"base_url"`
	MaxAttempts int    `mapstructure:"max_attempts" toml:"max_attempts"`
	LogPrompts  bool   `mapstructure:"log_prompts" toml:"log_prompts"`
}

// Translator selects the basic translation service.
type Translator struct {
	Service       string  `mapstructure:"service" toml:"service"` // google, mymemory, niutrans or llm
	Concurrency   int     `mapstructure:"concurrency" toml:"concurrency"`
	RateLimit     float64 `mapstructure:"rate_limit" toml:"rate_limit"` // requests per second, 0 disables
	Credentials   string  `mapstructure:"credentials" toml:"credentials"`
	ProjectID     string  `mapstructure:"project_id" toml:"project_id"`
	GoogleKey     string  `mapstructure:"google_api_key" toml:"google_api_key"`
	NiuTransKey   string  `mapstructure:"niutrans_api_key" toml:"niutrans_api_key"`
	MyMemoryEmail string  `mapstructure:"mymemory_email" toml:"mymemory_email"`
}

// Transcription configures audio extraction and speech recognition.
type Transcription struct {
	FFmpeg  string `mapstructure:"ffmpeg" toml:"ffmpeg"`
	Model   string `mapstructure:"model" toml:"model"`
	APIKey  string `mapstructure:"api_key" toml:"api_key"`
	BaseURL string `mapstructure:"base_url" toml:"base_url"`
}

// Storage locates the translation memory database and the run lock.
type Storage struct {
	DBPath   string `mapstructure:"db_path" toml:"db_path"`
	NoCache  bool   `mapstructure:"no_cache" toml:"no_cache"`
	LockPath string `mapstructure:"lock_path" toml:"lock_path"`
	TempDir  string `mapstructure:"temp_dir" toml:"temp_dir"`
}

type Logging struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
}

type Metrics struct {
	File string `mapstructure:"file" toml:"file"` // Prometheus textfile written after each run
}

// Config is the complete peresub configuration.
type Config struct {
	TargetLang    string        `mapstructure:"target_lang" toml:"target_lang"`
	SourceLang    string        `mapstructure:"source_lang" toml:"source_lang"` // empty trusts the transcript
	Formats       []string      `mapstructure:"formats" toml:"formats"`
	Stages        Stages        `mapstructure:"stages" toml:"stages"`
	LLM           LLM           `mapstructure:"llm" toml:"llm"`
	Translator    Translator    `mapstructure:"translator" toml:"translator"`
	Transcription Transcription `mapstructure:"transcription" toml:"transcription"`
	Storage       Storage       `mapstructure:"storage" toml:"storage"`
	Logging       Logging       `mapstructure:"logging" toml:"logging"`
	Metrics       Metrics       `mapstructure:"metrics" toml:"metrics"`
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/peresub/config.toml.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "peresub", "config.toml"), nil
}

// NewViper returns a viper instance seeded with Default and wired to the
// PERESUB_ environment. Callers bind flags to it before calling Load.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := toml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	return v, nil
}

// Load merges the config file at path (or the default path when empty) into v
// and decodes the result. It returns the resolved path and whether the file
// existed. An explicit path that does not exist is an error.
func Load(v *viper.Viper, path string) (*Config, string, bool, error) {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return nil, "", false, err
		}
	}

	exists := true
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", false, fmt.Errorf("stat config: %w", err)
		}
		if explicit {
			return nil, "", false, fmt.Errorf("config file %s not found", path)
		}
		exists = false
	}

	if exists {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyEnvFallbacks()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, path, exists, nil
}

func (c *Config) applyEnvFallbacks() {
	if c.LLM.APIKey == "" && c.LLM.Backend == "gpt" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Transcription.APIKey == "" {
		c.Transcription.APIKey = firstNonEmpty(c.LLM.APIKey, os.Getenv("OPENAI_API_KEY"))
	}
	if c.Translator.GoogleKey == "" {
		c.Translator.GoogleKey = os.Getenv("GOOGLE_API_KEY")
	}
	if c.Translator.NiuTransKey == "" {
		c.Translator.NiuTransKey = os.Getenv("NIUTRANS_API_KEY")
	}
	if c.Translator.Credentials == "" {
		c.Translator.Credentials = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
}

func (c *Config) normalize() {
	c.TargetLang = langcodes.ForAPI(c.TargetLang)
	c.SourceLang = langcodes.ForAPI(c.SourceLang)
	c.LLM.Backend = strings.ToLower(strings.TrimSpace(c.LLM.Backend))
	c.Translator.Service = strings.ToLower(strings.TrimSpace(c.Translator.Service))
	for i, f := range c.Formats {
		c.Formats[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), "."))
	}
	if c.Storage.DBPath != "" {
		c.Storage.DBPath = expandHome(c.Storage.DBPath)
	}
	if c.Storage.LockPath != "" {
		c.Storage.LockPath = expandHome(c.Storage.LockPath)
	}
}

// WriteSample writes the defaults as TOML to path, refusing to overwrite.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode sample config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
