// Package progress draws terminal progress bars for the long-running stages.
package progress

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Bar is advanced once per processed segment. Implementations must be safe
// for concurrent use.
type Bar interface {
	Add(n int) error
	Finish() error
}

// Factory creates a bar for a stage.
type Factory func(total int, description string) Bar

// Nop returns a bar that draws nothing.
func Nop() Bar { return nopBar{} }

// NopFactory is a Factory returning Nop bars.
func NopFactory(int, string) Bar { return nopBar{} }

type nopBar struct{}

func (nopBar) Add(int) error { return nil }
func (nopBar) Finish() error { return nil }

// NewFactory returns a Factory that draws to w when w is a terminal and
// returns Nop bars otherwise.
func NewFactory(w io.Writer) Factory {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return NopFactory
	}
	return func(total int, description string) Bar {
		return New(w, total, description)
	}
}

// New creates a bar writing to w regardless of terminal detection.
func New(w io.Writer, total int, description string) Bar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(w, "\n") }),
	)
}

// OrNop returns b, or a Nop bar when b is nil.
func OrNop(b Bar) Bar {
	if b == nil {
		return nopBar{}
	}
	return b
}
