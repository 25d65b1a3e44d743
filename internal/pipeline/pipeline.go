// Package pipeline runs a video through every stage and writes the subtitle
// files next to it.
//
// A run owns a scoped workspace for intermediate audio that is removed on
// every exit path. Failures before the first subtitle file is written are
// fatal; failures to write a subtitle file are collected and reported.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/valpere/peresub/internal/arbiter"
	"github.com/valpere/peresub/internal/correction"
	"github.com/valpere/peresub/internal/detector"
	langcodes "github.com/valpere/peresub/internal/language"
	"github.com/valpere/peresub/internal/llm"
	"github.com/valpere/peresub/internal/logging"
	"github.com/valpere/peresub/internal/media"
	"github.com/valpere/peresub/internal/merge"
	"github.com/valpere/peresub/internal/metrics"
	"github.com/valpere/peresub/internal/optimize"
	"github.com/valpere/peresub/internal/progress"
	"github.com/valpere/peresub/internal/refiner"
	"github.com/valpere/peresub/internal/retry"
	"github.com/valpere/peresub/internal/segment"
	"github.com/valpere/peresub/internal/store"
	"github.com/valpere/peresub/internal/subtitle"
	"github.com/valpere/peresub/internal/transcribe"
	"github.com/valpere/peresub/internal/translation"
	"github.com/valpere/peresub/internal/translator"
	"github.com/valpere/peresub/internal/validator"
	"github.com/valpere/peresub/internal/workspace"
)

// DefaultSourceLang labels transcripts whose language nobody could tell.
const DefaultSourceLang = "en"

// Deps are the collaborators of a run. Extractor may be nil when the
// transcriber does not read audio. Model is required only when a stage that
// uses it is enabled. Store, Detector and Validator are optional.
type Deps struct {
	Extractor   media.Extractor
	Transcriber transcribe.Transcriber
	Model       llm.LanguageModel
	Translator  translator.TranslationService
	Store       *store.Store
	Detector    *detector.Detector
	Validator   *validator.Validator
	Logger      *slog.Logger
	Metrics     *metrics.Recorder
	Progress    progress.Factory
}

type Options struct {
	Video      string
	SourceLang string // forces the transcription language
	TargetLang string
	Formats    []subtitle.Format

	Correct      bool
	Merge        bool
	Optimize     bool
	ContextRange int

	Concurrency      int
	Limiter          *rate.Limiter
	ConcurrentPolicy retry.Policy
	SequentialPolicy retry.Policy
	TranslatorConfig translator.ServiceConfig
	NoCache          bool
	LLMBackend       string // recorded in run history

	Workspace   workspace.Options
	SegmentsOut string // optional JSON dump of the final segments
	MetricsFile string
}

// Result describes a finished run.
type Result struct {
	RunID       string
	SourceLang  string
	Translated  bool
	Original    []segment.Segment
	Final       []segment.Segment
	Files       []string
	WriteErrors []error
	Validation  validator.Report
	Duration    time.Duration
}

// Run executes the whole pipeline for opts.Video.
func Run(ctx context.Context, deps Deps, opts Options) (res *Result, err error) {
	opts.TargetLang = langcodes.ForAPI(opts.TargetLang)
	opts.SourceLang = langcodes.ForAPI(opts.SourceLang)
	if err := checkDeps(deps, opts); err != nil {
		return nil, err
	}
	if info, statErr := os.Stat(opts.Video); statErr != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", media.ErrVideoNotFound, opts.Video)
	}

	logger := logging.OrDefault(deps.Logger)
	newBar := deps.Progress
	if newBar == nil {
		newBar = progress.NopFactory
	}
	if len(opts.Formats) == 0 {
		opts.Formats = subtitle.Formats
	}
	started := time.Now()

	res = &Result{RunID: uuid.NewString()}
	if deps.Store != nil {
		id, startErr := deps.Store.StartRun(ctx, opts.Video, opts.TargetLang, deps.Translator.Name(), opts.LLMBackend)
		if startErr != nil {
			logger.Warn("failed to record run start", "error", startErr)
		} else {
			res.RunID = id
		}
		defer func() {
			segments := 0
			if res != nil {
				segments = len(res.Final)
			}
			if finishErr := deps.Store.FinishRun(context.WithoutCancel(ctx), res.RunID, res.SourceLang, segments, err); finishErr != nil {
				logger.Warn("failed to record run result", "error", finishErr)
			}
		}()
	}
	logger = logger.With("run", res.RunID)
	logger.Info("starting run", "video", opts.Video, "target", opts.TargetLang, "translator", deps.Translator.Name())

	ws, err := workspace.New(opts.Workspace)
	if err != nil {
		return res, err
	}
	defer func() {
		if closeErr := ws.Close(); closeErr != nil {
			logger.Warn("failed to clean up workspace", "dir", ws.Dir(), "error", closeErr)
		}
	}()

	segs, detected, err := transcribeVideo(ctx, deps, opts, ws, logger)
	if err != nil {
		return res, err
	}
	res.SourceLang = detected
	res.Original = segment.Clone(segs)
	deps.Metrics.SetSegments("transcribe", len(segs))

	res.writeAll(opts.Video, detected, segs, opts.Formats, logger)

	if opts.Correct {
		t := time.Now()
		segs = correction.Correct(ctx, segs, deps.Model, correction.Options{
			ContextRange: opts.ContextRange,
			Logger:       logger,
			Progress:     newBar(len(segs), "correct"),
			Metrics:      deps.Metrics,
		})
		deps.Metrics.ObserveStage("correct", time.Since(t))
	}

	if opts.Merge {
		t := time.Now()
		segs = merge.Merge(ctx, segs, deps.Model, merge.Options{
			Logger:   logger,
			Progress: newBar(len(segs), "merge"),
		})
		deps.Metrics.ObserveStage("merge", time.Since(t))
		deps.Metrics.SetSegments("merge", len(segs))
	}

	final := segs
	if langcodes.NeedsTranslation(detected, opts.TargetLang) {
		final, err = translateAndOptimize(ctx, deps, opts, segs, detected, newBar, logger)
		if err != nil {
			return res, err
		}
		res.Translated = true
	} else {
		logger.Info("source language matches target, skipping translation", "source", detected, "target", opts.TargetLang)
	}
	res.Final = final

	// Stages fall back to their input when cancelled; do not publish that.
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("run interrupted: %w", err)
	}

	res.writeAll(opts.Video, "", final, opts.Formats, logger)

	if opts.SegmentsOut != "" {
		if saveErr := segment.Save(opts.SegmentsOut, final); saveErr != nil {
			res.WriteErrors = append(res.WriteErrors, saveErr)
			logger.Error("failed to save segments", "path", opts.SegmentsOut, "error", saveErr)
		} else {
			res.Files = append(res.Files, opts.SegmentsOut)
		}
	}

	if deps.Validator != nil && res.Translated {
		res.Validation = deps.Validator.CheckSegments(final, opts.TargetLang)
		if n := len(res.Validation.Mismatches); n > 0 {
			logger.Warn("some segments are not in the target language", "mismatches", n, "checked", res.Validation.Checked)
		}
	}

	res.Duration = time.Since(started)
	if opts.MetricsFile != "" {
		if mErr := deps.Metrics.WriteTextfile(opts.MetricsFile); mErr != nil {
			logger.Warn("failed to write metrics", "path", opts.MetricsFile, "error", mErr)
		}
	}

	logger.Info("run complete",
		"segments", len(final),
		"translated", res.Translated,
		"files", len(res.Files),
		"write_errors", len(res.WriteErrors),
		"duration", res.Duration.Round(time.Millisecond),
	)
	return res, nil
}

func checkDeps(deps Deps, opts Options) error {
	if deps.Transcriber == nil {
		return errors.New("transcriber is required")
	}
	if deps.Translator == nil {
		return errors.New("translator is required")
	}
	if deps.Model == nil && (opts.Correct || opts.Merge || opts.Optimize) {
		return errors.New("language model is required for correction, merge and optimization")
	}
	if opts.TargetLang == "" {
		return errors.New("target language is required")
	}
	return nil
}

// transcribeVideo extracts audio into the workspace, transcribes it, blanks
// repeated lines and settles on the source language.
func transcribeVideo(ctx context.Context, deps Deps, opts Options, ws *workspace.Workspace, logger *slog.Logger) ([]segment.Segment, string, error) {
	var audio string
	if deps.Extractor != nil {
		t := time.Now()
		var err error
		audio, err = deps.Extractor.Extract(ctx, opts.Video, ws.Dir())
		if err != nil {
			return nil, "", err
		}
		deps.Metrics.ObserveStage("extract", time.Since(t))
		logger.Debug("audio extracted", "path", audio)
	}

	t := time.Now()
	result, err := deps.Transcriber.Transcribe(ctx, audio, opts.SourceLang)
	if err != nil {
		return nil, "", fmt.Errorf("transcription failed: %w", err)
	}
	deps.Metrics.ObserveStage("transcribe", time.Since(t))
	logger.Info("transcription complete", "segments", len(result.Segments), "language", result.Language)

	segs := segment.BlankRepeats(result.Segments)

	detected := langcodes.ForAPI(result.Language)
	if detected == "" {
		detected = opts.SourceLang
	}
	if detected == "" && deps.Detector != nil {
		if iso, ok := deps.Detector.DetectSegments(segs); ok {
			detected = iso
			logger.Info("detected source language from transcript", "language", iso)
		}
	}
	if detected == "" {
		detected = DefaultSourceLang
		logger.Warn("source language unknown, assuming default", "language", detected)
	}
	return segs, detected, nil
}

func translateAndOptimize(ctx context.Context, deps Deps, opts Options, segs []segment.Segment, sourceLang string, newBar progress.Factory, logger *slog.Logger) ([]segment.Segment, error) {
	var glossary map[string]string
	var memory translation.Memory
	if deps.Store != nil {
		terms, err := deps.Store.GetGlossaryTerms(ctx, sourceLang, opts.TargetLang)
		if err != nil {
			logger.Warn("failed to load glossary", "error", err)
		}
		glossary = terms
		if !opts.NoCache {
			memory = deps.Store
		}
	}

	t := time.Now()
	stage := translation.New(deps.Translator, translation.Options{
		Concurrency:      opts.Concurrency,
		ConcurrentPolicy: opts.ConcurrentPolicy,
		SequentialPolicy: opts.SequentialPolicy,
		Limiter:          opts.Limiter,
		Memory:           memory,
		Config:           opts.TranslatorConfig,
		Glossary:         glossary,
		Logger:           logger,
		Progress:         newBar(len(segs), "translate"),
		Metrics:          deps.Metrics,
	})
	basic := stage.Translate(ctx, segs, sourceLang, opts.TargetLang)
	deps.Metrics.ObserveStage("translate", time.Since(t))

	var ref refiner.Refiner
	var arb arbiter.Arbiter
	if opts.Optimize {
		ref = refiner.NewLLMRefiner(deps.Model)
		arb = arbiter.NewLLMArbiter(deps.Model, logger)
	}

	t = time.Now()
	final, err := optimize.Optimize(ctx, segs, basic, ref, arb, optimize.Options{
		UseLLM:       opts.Optimize,
		ContextRange: opts.ContextRange,
		TargetLang:   opts.TargetLang,
		Glossary:     glossary,
		Logger:       logger,
		Progress:     newBar(len(segs), "optimize"),
		Metrics:      deps.Metrics,
	})
	if err != nil {
		return nil, err
	}
	deps.Metrics.ObserveStage("optimize", time.Since(t))
	return final, nil
}

// writeAll writes one file per format. lang names the original pair and is
// empty for the final pair.
func (r *Result) writeAll(video, lang string, segs []segment.Segment, formats []subtitle.Format, logger *slog.Logger) {
	for _, f := range formats {
		path := subtitle.OutputPath(video, lang, f)
		if err := subtitle.WriteFile(path, segs, f); err != nil {
			r.WriteErrors = append(r.WriteErrors, err)
			logger.Error("failed to write subtitles", "path", path, "error", err)
			continue
		}
		r.Files = append(r.Files, path)
		logger.Info("subtitles written", "path", path)
	}
}
