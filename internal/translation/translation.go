// Package translation produces the basic, index-aligned translation of a
// segment sequence. Concurrent services are fanned out behind a semaphore;
// sequential services are called one segment at a time.
package translation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/valpere/peresub/internal/logging"
	"github.com/valpere/peresub/internal/metrics"
	"github.com/valpere/peresub/internal/placeholder"
	"github.com/valpere/peresub/internal/progress"
	"github.com/valpere/peresub/internal/retry"
	"github.com/valpere/peresub/internal/segment"
	"github.com/valpere/peresub/internal/translator"
)

const DefaultConcurrency = 5

// Memory caches successful translations across runs.
type Memory interface {
	GetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string) (string, bool, error)
	SaveToMemory(ctx context.Context, sourceText, sourceLang, targetLang, finalText, draftText, serviceUsed string) error
}

type Options struct {
	// Concurrency bounds in-flight requests in concurrent mode.
	Concurrency int

	// ConcurrentPolicy and SequentialPolicy default to DefaultConcurrentPolicy
	// and DefaultSequentialPolicy when MaxAttempts is zero.
	ConcurrentPolicy retry.Policy
	SequentialPolicy retry.Policy

	// Limiter, when set, is waited on before every request.
	Limiter *rate.Limiter

	Memory   Memory
	Config   translator.ServiceConfig
	Glossary map[string]string
	Logger   *slog.Logger
	Progress progress.Bar
	Metrics  *metrics.Recorder
}

// DefaultConcurrentPolicy allows 10 attempts, doubling from one second.
func DefaultConcurrentPolicy() retry.Policy {
	return retry.Exponential(10, time.Second)
}

// DefaultSequentialPolicy allows 5 attempts one second apart.
func DefaultSequentialPolicy() retry.Policy {
	return retry.Fixed(5, time.Second)
}

type Stage struct {
	service translator.TranslationService
	opts    Options
	logger  *slog.Logger
}

func New(service translator.TranslationService, opts Options) *Stage {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.ConcurrentPolicy.MaxAttempts == 0 {
		opts.ConcurrentPolicy = withHooks(DefaultConcurrentPolicy(), opts.ConcurrentPolicy)
	}
	if opts.SequentialPolicy.MaxAttempts == 0 {
		opts.SequentialPolicy = withHooks(DefaultSequentialPolicy(), opts.SequentialPolicy)
	}
	return &Stage{
		service: service,
		opts:    opts,
		logger:  logging.OrDefault(opts.Logger).With("translator", service.Name()),
	}
}

// withHooks keeps the sleeper and retry callback of a partially filled policy.
func withHooks(p, hooks retry.Policy) retry.Policy {
	p.Sleep = hooks.Sleep
	p.OnRetry = hooks.OnRetry
	p.OnGiveUp = hooks.OnGiveUp
	return p
}

// Translate returns one translation per segment, in segment order. Empty
// segments translate to "" without a request; a segment whose attempts run
// out keeps its original text.
func (s *Stage) Translate(ctx context.Context, segs []segment.Segment, sourceLang, targetLang string) []string {
	start := time.Now()
	out := make([]string, len(segs))
	bar := progress.OrNop(s.opts.Progress)

	mode := s.service.Mode()
	if mode == translator.Concurrent {
		s.translateConcurrent(ctx, segs, sourceLang, targetLang, out, bar)
	} else {
		for i := range segs {
			out[i] = s.translateOne(ctx, segs[i].Text, sourceLang, targetLang, s.opts.SequentialPolicy)
			_ = bar.Add(1)
		}
	}
	_ = bar.Finish()

	s.logger.Info("translation complete",
		"segments", len(segs),
		"mode", mode.String(),
		"duration", time.Since(start).Round(time.Millisecond))
	return out
}

func (s *Stage) translateConcurrent(ctx context.Context, segs []segment.Segment, sourceLang, targetLang string, out []string, bar progress.Bar) {
	sem := semaphore.NewWeighted(int64(s.opts.Concurrency))

	var wg sync.WaitGroup
	for i := range segs {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Cancelled: remaining segments keep their original text.
			for j := i; j < len(segs); j++ {
				out[j] = segs[j].Text
			}
			break
		}
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			defer sem.Release(1)
			out[index] = s.translateOne(ctx, segs[index].Text, sourceLang, targetLang, s.opts.ConcurrentPolicy)
			_ = bar.Add(1)
		}(i)
	}
	wg.Wait()
}

// translateOne never fails: exhaustion or cancellation returns text itself.
func (s *Stage) translateOne(ctx context.Context, text, sourceLang, targetLang string, policy retry.Policy) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	if s.opts.Memory != nil {
		cached, ok, err := s.opts.Memory.GetCachedTranslation(ctx, text, sourceLang, targetLang)
		if err != nil {
			s.logger.Warn("translation memory lookup failed", "error", err)
		} else if ok {
			s.opts.Metrics.CacheHit()
			return cached
		}
	}

	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		s.opts.Metrics.Retry("translate")
		s.logger.Warn("translation attempt failed", "attempt", attempt, "wait", wait, "error", err)
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
	}

	protected, markers := placeholder.Protect(text)
	req := translator.TranslateRequest{
		Text:       protected,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Glossary:   s.opts.Glossary,
	}
	failed := false
	onGiveUp := policy.OnGiveUp
	policy.OnGiveUp = func(err error) {
		failed = true
		s.opts.Metrics.Fallback("translation")
		s.logger.Error("translation failed, keeping original text", "error", err)
		if onGiveUp != nil {
			onGiveUp(err)
		}
	}
	translated := retry.WithFallback(ctx, policy, text, func(ctx context.Context) (string, error) {
		if s.opts.Limiter != nil {
			if err := s.opts.Limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		res, err := s.service.Translate(ctx, s.opts.Config, req)
		if err != nil {
			return "", err
		}
		if res == nil {
			return "", fmt.Errorf("%s returned no result", s.service.Name())
		}
		if res.Error != "" {
			return "", fmt.Errorf("%s: %s", res.ServiceName, res.Error)
		}
		return res.Text()
	})
	if failed {
		return text
	}
	if len(markers) > 0 {
		if missing := placeholder.Missing(translated, markers); len(missing) > 0 {
			s.logger.Warn("translator dropped subtitle markup", "missing", len(missing), "markers", len(markers))
		}
		translated = placeholder.Restore(translated, markers)
	}

	if s.opts.Memory != nil {
		if err := s.opts.Memory.SaveToMemory(ctx, text, sourceLang, targetLang, translated, "", s.service.Name()); err != nil {
			s.logger.Warn("failed to save translation memory", "error", err)
		}
	}
	return translated
}
