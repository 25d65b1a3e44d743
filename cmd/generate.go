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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/valpere/peresub/internal/detector"
	"github.com/valpere/peresub/internal/media"
	"github.com/valpere/peresub/internal/metrics"
	"github.com/valpere/peresub/internal/pipeline"
	"github.com/valpere/peresub/internal/progress"
	"github.com/valpere/peresub/internal/subtitle"
	"github.com/valpere/peresub/internal/transcribe"
	"github.com/valpere/peresub/internal/validator"
	"github.com/valpere/peresub/internal/workspace"
)

var (
	transcriptFile string
	segmentsOut    string
	skipValidation bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <video>",
	Short: "Generate subtitles for a video",
	Long: `Extract the audio of a video, transcribe it and write subtitles next to it.

Two subtitle pairs are written:
  <name>.<lang>.srt / .ass   the transcript in its detected language
  <name>.srt / .ass          the final subtitles in the target language

Optional language model passes:
  --correct    fix recognition errors using neighbouring segments
  --merge      join fragments that only make sense together
  --optimize   refine each translation in context and keep the better one

Translators:
  google     Google Cloud Translation (concurrent, needs credentials)
  mymemory   MyMemory (concurrent, free tier)
  niutrans   NiuTrans (sequential, needs NIUTRANS_API_KEY)
  llm        the configured language model (sequential)

Example:
  peresub generate talk.mp4 --target-lang uk --optimize --llm-backend ollama`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		video, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid video path: %w", err)
		}

		formats := make([]subtitle.Format, 0, len(cfg.Formats))
		for _, name := range cfg.Formats {
			f, err := subtitle.ParseFormat(name)
			if err != nil {
				return err
			}
			formats = append(formats, f)
		}

		rec := metrics.New()
		model, err := buildModel(cfg, rec)
		if err != nil {
			return err
		}
		service, err := buildTranslator(cfg, model)
		if err != nil {
			return err
		}
		if closer, ok := service.(io.Closer); ok {
			defer closer.Close()
		}

		deps := pipeline.Deps{
			Model:      model,
			Translator: service,
			Logger:     logger,
			Metrics:    rec,
			Progress:   progress.NewFactory(os.Stderr),
		}
		if transcriptFile != "" {
			deps.Transcriber = transcribe.NewJSONFile(transcriptFile)
		} else {
			deps.Extractor = media.NewFFmpeg(cfg.Transcription.FFmpeg)
			deps.Transcriber = transcribe.NewWhisper(cfg.Transcription.APIKey, cfg.Transcription.Model, cfg.Transcription.BaseURL)
		}

		if cfg.Storage.DBPath != "" {
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			deps.Store = db
		}

		if cfg.SourceLang == "" || !skipValidation {
			det := detector.New()
			deps.Detector = det
			if !skipValidation {
				deps.Validator = validator.NewWithDetector(det)
			}
		}

		var limiter *rate.Limiter
		if cfg.Translator.RateLimit > 0 {
			limiter = rate.NewLimiter(rate.Limit(cfg.Translator.RateLimit), 1)
		}

		lockPath := cfg.Storage.LockPath
		if lockPath != "" {
			if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
				return fmt.Errorf("failed to create lock directory: %w", err)
			}
		}

		res, err := pipeline.Run(cmd.Context(), deps, pipeline.Options{
			Video:            video,
			SourceLang:       cfg.SourceLang,
			TargetLang:       cfg.TargetLang,
			Formats:          formats,
			Correct:          cfg.Stages.Correct,
			Merge:            cfg.Stages.Merge,
			Optimize:         cfg.Stages.Optimize,
			ContextRange:     cfg.Stages.ContextRange,
			Concurrency:      cfg.Translator.Concurrency,
			Limiter:          limiter,
			TranslatorConfig: serviceConfig(cfg),
			NoCache:          cfg.Storage.NoCache,
			LLMBackend:       llmBackendLabel(),
			Workspace:        workspace.Options{Parent: cfg.Storage.TempDir, LockPath: lockPath},
			SegmentsOut:      segmentsOut,
			MetricsFile:      cfg.Metrics.File,
		})
		if err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), res)
		if len(res.WriteErrors) > 0 {
			return fmt.Errorf("%d subtitle file(s) could not be written", len(res.WriteErrors))
		}
		return nil
	},
}

func llmBackendLabel() string {
	if !cfg.NeedsLLM() {
		return ""
	}
	return cfg.LLM.Backend
}

func printSummary(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "Run %s: %s segments, source language %s", res.RunID, humanize.Comma(int64(len(res.Final))), res.SourceLang)
	if !res.Translated {
		fmt.Fprint(w, " (no translation needed)")
	}
	fmt.Fprintf(w, ", took %s\n", res.Duration.Round(time.Millisecond))
	for _, f := range res.Files {
		fmt.Fprintf(w, "  %s\n", f)
	}
	if n := len(res.Validation.Mismatches); n > 0 {
		fmt.Fprintf(w, "Warning: %d of %d segments do not look like %s\n", n, res.Validation.Checked, cfg.TargetLang)
	}
}

func init() {
	rootCmd.AddCommand(generateCmd)

	f := generateCmd.Flags()
	f.StringP("target-lang", "t", "zh", "Target subtitle language")
	f.StringP("source-lang", "s", "", "Force the spoken language instead of detecting it")
	f.StringSlice("format", []string{"srt", "ass"}, "Subtitle formats to write")

	f.Bool("correct", false, "Correct the transcript with the language model")
	f.Bool("merge", false, "Merge fragmented segments with the language model")
	f.Bool("optimize", false, "Refine translations in context with the language model")
	f.Int("context-range", 10, "Segments of context on each side")

	f.String("llm-backend", "gpt", "Language model backend: gpt or ollama")
	f.String("model", "", "Language model name (default depends on backend)")
	f.String("openai-key", "", "OpenAI API key (default $OPENAI_API_KEY)")
	f.String("llm-url", "", "Language model base URL")
	f.Int("llm-attempts", 5, "Attempts per language model call")
	f.Bool("log-llm", false, "Log every prompt and answer")

	f.String("translator", "google", "Translator: google, mymemory, niutrans or llm")
	f.Int("concurrency", 5, "Parallel requests for concurrent translators")
	f.Float64("rate-limit", 0, "Translator requests per second (0 = unlimited)")
	f.String("credentials", "", "Google Cloud credentials file")
	f.String("project-id", "", "Google Cloud project ID")
	f.String("google-key", "", "Google Cloud Translation API key (default $GOOGLE_API_KEY)")
	f.String("niutrans-key", "", "NiuTrans API key (default $NIUTRANS_API_KEY)")
	f.String("mymemory-email", "", "Contact email for a higher MyMemory quota")

	f.String("ffmpeg", "ffmpeg", "ffmpeg binary")
	f.String("whisper-model", "whisper-1", "Speech recognition model")
	f.String("whisper-url", "", "Speech recognition API base URL")

	f.Bool("no-cache", false, "Do not read or write translation memory")
	f.String("lock", "", "Lock file preventing concurrent runs")
	f.String("temp-dir", "", "Parent directory for the run workspace")
	f.String("metrics-file", "", "Write Prometheus metrics to this file after the run")

	f.StringVar(&transcriptFile, "transcript", "", "Use a saved transcript JSON instead of ffmpeg and Whisper")
	f.StringVar(&segmentsOut, "segments-out", "", "Also save the final segments as JSON")
	f.BoolVar(&skipValidation, "no-validate", false, "Skip the target language check of the result")
}
