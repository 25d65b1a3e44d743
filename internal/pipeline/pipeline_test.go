package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/valpere/peresub/internal/llm"
	"github.com/valpere/peresub/internal/logging"
	"github.com/valpere/peresub/internal/media"
	"github.com/valpere/peresub/internal/metrics"
	"github.com/valpere/peresub/internal/retry"
	"github.com/valpere/peresub/internal/segment"
	"github.com/valpere/peresub/internal/store"
	"github.com/valpere/peresub/internal/subtitle"
	"github.com/valpere/peresub/internal/transcribe"
	"github.com/valpere/peresub/internal/translator"
)

type extractorStub struct {
	dir string
}

func (e *extractorStub) Extract(ctx context.Context, video, dir string) (string, error) {
	e.dir = dir
	audio := filepath.Join(dir, "audio.wav")
	return audio, os.WriteFile(audio, []byte("RIFF"), 0o644)
}

type transcriberStub struct {
	result *transcribe.Result
	err    error
	audio  string
}

func (s *transcriberStub) Transcribe(ctx context.Context, audioPath, language string) (*transcribe.Result, error) {
	s.audio = audioPath
	if s.err != nil {
		return nil, s.err
	}
	return &transcribe.Result{Language: s.result.Language, Segments: segment.Clone(s.result.Segments)}, nil
}

type translatorStub struct {
	calls atomic.Int32
}

func (s *translatorStub) Name() string          { return "stub" }
func (s *translatorStub) Mode() translator.Mode { return translator.Sequential }

func (s *translatorStub) Translate(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	s.calls.Add(1)
	return &translator.ServiceResult{ServiceName: "stub", TranslatedText: "[" + req.TargetLang + "] " + req.Text}, nil
}

func (s *translatorStub) IsAvailable(ctx context.Context) error                    { return nil }
func (s *translatorStub) SupportedLanguages(ctx context.Context) ([]string, error) { return nil, nil }

// scriptedModel answers by system prompt: corrections upper-case the line,
// refinements append "!" and the arbiter always takes the refinement.
func scriptedModel(calls *atomic.Int32) llm.LanguageModel {
	return llm.Func(func(ctx context.Context, prompt, systemPrompt string) string {
		calls.Add(1)
		switch {
		case strings.Contains(systemPrompt, "correction"):
			return "CORRECTED"
		case strings.Contains(systemPrompt, "optimization expert") && strings.Contains(systemPrompt, "transcription"):
			return "refined!"
		case strings.Contains(systemPrompt, "evaluation"):
			return "1"
		default:
			return ""
		}
	})
}

func writeVideo(t *testing.T) string {
	t.Helper()
	video := filepath.Join(t.TempDir(), "talk.mp4")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return video
}

func transcript() *transcribe.Result {
	return &transcribe.Result{
		Language: "en",
		Segments: []segment.Segment{
			{Start: 0, End: 1.5, Text: "Hello"},
			{Start: 1.5, End: 3, Text: "Hello"},
			{Start: 3, End: 5, Text: "Goodbye"},
		},
	}
}

func baseOptions(video string) Options {
	return Options{
		Video:            video,
		TargetLang:       "fr",
		SequentialPolicy: retry.Policy{Sleep: retry.NoSleep},
		ConcurrentPolicy: retry.Policy{Sleep: retry.NoSleep},
	}
}

func TestRun_TranslatesAndWritesBothPairs(t *testing.T) {
	video := writeVideo(t)
	ext := &extractorStub{}
	tr := &transcriberStub{result: transcript()}
	svc := &translatorStub{}
	deps := Deps{Extractor: ext, Transcriber: tr, Translator: svc, Logger: logging.Discard(), Metrics: metrics.New()}

	opts := baseOptions(video)
	opts.MetricsFile = filepath.Join(t.TempDir(), "peresub.prom")
	res, err := Run(context.Background(), deps, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tr.audio != filepath.Join(ext.dir, "audio.wav") {
		t.Errorf("transcriber got audio %q", tr.audio)
	}
	if _, err := os.Stat(ext.dir); !os.IsNotExist(err) {
		t.Errorf("workspace %s was not removed", ext.dir)
	}

	if !res.Translated || res.SourceLang != "en" {
		t.Errorf("unexpected result %+v", res)
	}
	// The repeated line is blanked and never sent to the translator.
	if res.Original[1].Text != "" || svc.calls.Load() != 2 {
		t.Errorf("repeat not blanked: original %+v, %d translator calls", res.Original, svc.calls.Load())
	}
	want := []string{"[fr] Hello", "", "[fr] Goodbye"}
	for i, seg := range res.Final {
		if seg.Text != want[i] {
			t.Errorf("final[%d] = %q, want %q", i, seg.Text, want[i])
		}
	}

	base := strings.TrimSuffix(video, ".mp4")
	for _, path := range []string{base + ".en.srt", base + ".en.ass", base + ".srt", base + ".ass"} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to be written: %v", path, err)
		}
	}
	if len(res.Files) != 4 || len(res.WriteErrors) != 0 {
		t.Errorf("unexpected files %v, errors %v", res.Files, res.WriteErrors)
	}

	final, err := os.ReadFile(base + ".srt")
	if err != nil {
		t.Fatal(err)
	}
	if string(final) != string(subtitle.RenderSRT(res.Final)) {
		t.Errorf("final SRT does not match final segments")
	}
	if _, err := os.Stat(opts.MetricsFile); err != nil {
		t.Errorf("expected metrics textfile: %v", err)
	}
}

func TestRun_SameLanguageSkipsTranslation(t *testing.T) {
	video := writeVideo(t)
	svc := &translatorStub{}
	tr := &transcriberStub{result: &transcribe.Result{Language: "zh-cn", Segments: []segment.Segment{{Start: 0, End: 1, Text: "你好"}}}}
	deps := Deps{Transcriber: tr, Translator: svc, Logger: logging.Discard()}

	opts := baseOptions(video)
	opts.TargetLang = "zh"
	opts.Formats = []subtitle.Format{subtitle.SRT}
	res, err := Run(context.Background(), deps, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Translated || svc.calls.Load() != 0 {
		t.Errorf("expected translation skipped, got %d calls", svc.calls.Load())
	}
	if res.SourceLang != "zh" {
		t.Errorf("expected normalized source zh, got %q", res.SourceLang)
	}
	if res.Final[0].Text != "你好" {
		t.Errorf("unexpected final text %q", res.Final[0].Text)
	}
	if len(res.Files) != 2 {
		t.Errorf("expected original and final SRT only, got %v", res.Files)
	}
}

func TestRun_TargetAliasSkipsTranslation(t *testing.T) {
	for _, target := range []string{"zh", "zh-cn", "Chinese", " ZH "} {
		t.Run(target, func(t *testing.T) {
			video := writeVideo(t)
			svc := &translatorStub{}
			tr := &transcriberStub{result: &transcribe.Result{Language: "zh", Segments: []segment.Segment{{Start: 0, End: 1, Text: "你好"}}}}
			deps := Deps{Transcriber: tr, Translator: svc, Logger: logging.Discard()}

			opts := baseOptions(video)
			opts.TargetLang = target
			opts.Formats = []subtitle.Format{subtitle.SRT}
			res, err := Run(context.Background(), deps, opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Translated || svc.calls.Load() != 0 {
				t.Errorf("target %q: expected no translation, got %d calls", target, svc.calls.Load())
			}
			if res.Final[0].Text != "你好" {
				t.Errorf("target %q: final text %q", target, res.Final[0].Text)
			}
		})
	}
}

func TestRun_TargetAliasNormalizedForTranslator(t *testing.T) {
	video := writeVideo(t)
	svc := &translatorStub{}
	deps := Deps{Transcriber: &transcriberStub{result: transcript()}, Translator: svc, Logger: logging.Discard()}

	opts := baseOptions(video)
	opts.TargetLang = "Ukrainian"
	opts.Formats = []subtitle.Format{subtitle.SRT}
	res, err := Run(context.Background(), deps, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Translated || res.Final[0].Text != "[uk] Hello" {
		t.Errorf("expected translation requested as uk, got %q", res.Final[0].Text)
	}
}

func TestRun_CorrectionAndOptimization(t *testing.T) {
	video := writeVideo(t)
	var modelCalls atomic.Int32
	deps := Deps{
		Transcriber: &transcriberStub{result: transcript()},
		Translator:  &translatorStub{},
		Model:       scriptedModel(&modelCalls),
		Logger:      logging.Discard(),
	}

	opts := baseOptions(video)
	opts.Correct = true
	opts.Optimize = true
	res, err := Run(context.Background(), deps, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Original[0].Text != "Hello" {
		t.Errorf("original pair must hold the uncorrected transcript, got %q", res.Original[0].Text)
	}
	if res.Final[0].Text != "refined!" || res.Final[2].Text != "refined!" {
		t.Errorf("expected refined translations, got %+v", res.Final)
	}
	if res.Final[1].Text != "" {
		t.Errorf("blank segment must stay blank, got %q", res.Final[1].Text)
	}
	// 2 corrections, 2 refinements, 2 arbitrations.
	if modelCalls.Load() != 6 {
		t.Errorf("expected 6 model calls, got %d", modelCalls.Load())
	}
}

func TestRun_StoreMemoryAndHistory(t *testing.T) {
	db, err := store.New(filepath.Join(t.TempDir(), "peresub.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	video := writeVideo(t)
	svc := &translatorStub{}
	deps := Deps{Transcriber: &transcriberStub{result: transcript()}, Translator: svc, Store: db, Logger: logging.Discard()}

	first, err := Run(context.Background(), deps, baseOptions(video))
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if svc.calls.Load() != 2 {
		t.Fatalf("expected 2 translator calls on first run, got %d", svc.calls.Load())
	}

	second, err := Run(context.Background(), deps, baseOptions(video))
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if svc.calls.Load() != 2 {
		t.Errorf("expected second run served from memory, got %d total calls", svc.calls.Load())
	}
	if second.Final[2].Text != first.Final[2].Text {
		t.Errorf("cached text differs: %q vs %q", second.Final[2].Text, first.Final[2].Text)
	}

	runs, err := db.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 recorded runs, got %d", len(runs))
	}
	for _, r := range runs {
		if r.Status != store.RunCompleted || r.Segments != 3 || r.SourceLang != "en" || r.Translator != "stub" {
			t.Errorf("unexpected run record %+v", r)
		}
	}
}

func TestRun_NoCacheSkipsMemory(t *testing.T) {
	db, err := store.New(filepath.Join(t.TempDir(), "peresub.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	video := writeVideo(t)
	svc := &translatorStub{}
	deps := Deps{Transcriber: &transcriberStub{result: transcript()}, Translator: svc, Store: db, Logger: logging.Discard()}
	opts := baseOptions(video)
	opts.NoCache = true

	for range 2 {
		if _, err := Run(context.Background(), deps, opts); err != nil {
			t.Fatalf("run failed: %v", err)
		}
	}
	if svc.calls.Load() != 4 {
		t.Errorf("expected every run to translate, got %d calls", svc.calls.Load())
	}
	stats, _ := db.Stats(context.Background())
	if stats.TotalEntries != 0 {
		t.Errorf("expected nothing cached, got %d entries", stats.TotalEntries)
	}
}

func TestRun_FailedTranscriptionIsRecorded(t *testing.T) {
	db, err := store.New(filepath.Join(t.TempDir(), "peresub.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ext := &extractorStub{}
	deps := Deps{
		Extractor:   ext,
		Transcriber: &transcriberStub{err: errors.New("quota exceeded")},
		Translator:  &translatorStub{},
		Store:       db,
		Logger:      logging.Discard(),
	}

	_, err = Run(context.Background(), deps, baseOptions(writeVideo(t)))
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected transcription error, got %v", err)
	}
	if _, statErr := os.Stat(ext.dir); !os.IsNotExist(statErr) {
		t.Errorf("workspace %s survived a failed run", ext.dir)
	}

	runs, _ := db.ListRuns(context.Background(), 1)
	if len(runs) != 1 || runs[0].Status != store.RunFailed || !strings.Contains(runs[0].Error, "quota exceeded") {
		t.Errorf("unexpected run record %+v", runs)
	}
}

func TestRun_VideoNotFound(t *testing.T) {
	deps := Deps{Transcriber: &transcriberStub{result: transcript()}, Translator: &translatorStub{}, Logger: logging.Discard()}

	_, err := Run(context.Background(), deps, baseOptions(filepath.Join(t.TempDir(), "missing.mp4")))
	if !errors.Is(err, media.ErrVideoNotFound) {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestRun_ModelRequiredForLLMStages(t *testing.T) {
	deps := Deps{Transcriber: &transcriberStub{result: transcript()}, Translator: &translatorStub{}, Logger: logging.Discard()}
	opts := baseOptions(writeVideo(t))
	opts.Merge = true

	if _, err := Run(context.Background(), deps, opts); err == nil {
		t.Error("expected error without a language model")
	}
}

func TestRun_WriteFailureIsNotFatal(t *testing.T) {
	video := writeVideo(t)
	base := strings.TrimSuffix(video, ".mp4")
	// A directory where the original SRT should go makes that write fail.
	if err := os.Mkdir(base+".en.srt", 0o755); err != nil {
		t.Fatal(err)
	}
	deps := Deps{Transcriber: &transcriberStub{result: transcript()}, Translator: &translatorStub{}, Logger: logging.Discard()}

	res, err := Run(context.Background(), deps, baseOptions(video))
	if err != nil {
		t.Fatalf("write failure must not abort the run: %v", err)
	}
	if len(res.WriteErrors) != 1 || len(res.Files) != 3 {
		t.Errorf("expected one write error and three files, got %v / %v", res.WriteErrors, res.Files)
	}
	if _, err := os.Stat(base + ".srt"); err != nil {
		t.Errorf("final SRT missing: %v", err)
	}
}

func TestRun_UnknownLanguageDefaults(t *testing.T) {
	video := writeVideo(t)
	tr := &transcriberStub{result: &transcribe.Result{Segments: []segment.Segment{{Start: 0, End: 1, Text: "hi"}}}}
	deps := Deps{Transcriber: tr, Translator: &translatorStub{}, Logger: logging.Discard()}

	opts := baseOptions(video)
	opts.Formats = []subtitle.Format{subtitle.ASS}
	opts.SegmentsOut = filepath.Join(t.TempDir(), "final.json")
	res, err := Run(context.Background(), deps, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SourceLang != DefaultSourceLang {
		t.Errorf("expected default source language, got %q", res.SourceLang)
	}
	if _, err := os.Stat(strings.TrimSuffix(video, ".mp4") + ".en.ass"); err != nil {
		t.Errorf("original pair not named with default language: %v", err)
	}

	saved, err := segment.Load(opts.SegmentsOut)
	if err != nil {
		t.Fatalf("segments dump unreadable: %v", err)
	}
	if len(saved) != 1 || saved[0].Text != "[fr] hi" {
		t.Errorf("unexpected saved segments %+v", saved)
	}
}

func TestRun_CancelledBeforeFinalWrite(t *testing.T) {
	video := writeVideo(t)
	ctx, cancel := context.WithCancel(context.Background())
	tr := &transcriberStub{result: transcript()}
	svc := &translatorStub{}
	deps := Deps{Transcriber: tr, Translator: svc, Logger: logging.Discard()}

	// Cancel once the original pair is on disk.
	deps.Translator = cancellingTranslator{translatorStub: svc, cancel: cancel}

	_, err := Run(ctx, deps, baseOptions(video))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	base := strings.TrimSuffix(video, ".mp4")
	if _, err := os.Stat(base + ".en.srt"); err != nil {
		t.Errorf("original pair should exist: %v", err)
	}
	if _, err := os.Stat(base + ".srt"); !os.IsNotExist(err) {
		t.Errorf("final pair must not be written after cancellation")
	}
}

type cancellingTranslator struct {
	*translatorStub
	cancel context.CancelFunc
}

func (c cancellingTranslator) Translate(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	c.cancel()
	return c.translatorStub.Translate(ctx, cfg, req)
}
