/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/valpere/peresub/internal/config"
	"github.com/valpere/peresub/internal/logging"
)

var version = "0.1.0"

var (
	configPath string

	cfg    *config.Config
	logger *slog.Logger
)

// flagKeys maps command-line flags to configuration keys. A flag only
// overrides the config file and environment when it is set explicitly.
var flagKeys = map[string]string{
	"target-lang":    "target_lang",
	"source-lang":    "source_lang",
	"format":         "formats",
	"correct":        "stages.correct",
	"merge":          "stages.merge",
	"optimize":       "stages.optimize",
	"context-range":  "stages.context_range",
	"llm-backend":    "llm.backend",
	"model":          "llm.model",
	"openai-key":     "llm.api_key",
	"llm-url":        "llm.base_url",
	"llm-attempts":   "llm.max_attempts",
	"log-llm":        "llm.log_prompts",
	"translator":     "translator.service",
	"concurrency":    "translator.concurrency",
	"rate-limit":     "translator.rate_limit",
	"credentials":    "translator.credentials",
	"project-id":     "translator.project_id",
	"google-key":     "translator.google_api_key",
	"niutrans-key":   "translator.niutrans_api_key",
	"mymemory-email": "translator.mymemory_email",
	"ffmpeg":         "transcription.ffmpeg",
	"whisper-model":  "transcription.model",
	"whisper-url":    "transcription.base_url",
	"db":             "storage.db_path",
	"no-cache":       "storage.no_cache",
	"lock":           "storage.lock_path",
	"temp-dir":       "storage.temp_dir",
	"log-level":      "logging.level",
	"log-format":     "logging.format",
	"metrics-file":   "metrics.file",
}

var rootCmd = &cobra.Command{
	Use:   "peresub",
	Short: "Subtitle generator with LLM refinement",
	Long: `Generate subtitles for a video: transcribe the audio, optionally correct and
merge the transcript with a language model, translate it, refine the
translation in context and write SRT and ASS files next to the video.

Settings are read from ~/.config/peresub/config.toml (see "peresub config init"),
PERESUB_* environment variables, a .env file in the working directory and flags.

Use "peresub generate --help" for generation options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

func setup(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	v, err := config.NewViper()
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}

	loaded, _, _, err := config.Load(v, configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	logger, err = logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/peresub/config.toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "auto", "Log format: console, json or auto")
	rootCmd.PersistentFlags().String("db", "", "Translation memory database path")
}
