// Package subtitle renders segments as SRT or ASS subtitle files.
//
// Rendering is pure and deterministic: segments are sorted by start time and
// overlapping segments are shown together as one block, one line each.
package subtitle

import (
	"cmp"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/valpere/peresub/internal/segment"
)

// Format is a subtitle file format.
type Format string

const (
	SRT Format = "srt"
	ASS Format = "ass"
)

// Formats lists every supported format in output order.
var Formats = []Format{SRT, ASS}

// ParseFormat accepts a format name or file extension, in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case SRT, ASS:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported subtitle format: %q", s)
	}
}

// Group is a run of segments displayed together.
type Group struct {
	Start    float64
	End      float64
	Segments []segment.Segment
}

// Lines returns the display line of every member segment.
func (g Group) Lines() []string {
	lines := make([]string, len(g.Segments))
	for i, seg := range g.Segments {
		lines[i] = seg.Line()
	}
	return lines
}

// GroupOverlapping sorts segs by start time (stable) and groups every
// segment that starts before the running end of the current group.
func GroupOverlapping(segs []segment.Segment) []Group {
	sorted := segment.Clone(segs)
	slices.SortStableFunc(sorted, func(a, b segment.Segment) int {
		return cmp.Compare(a.Start, b.Start)
	})

	var groups []Group
	for _, seg := range sorted {
		if n := len(groups); n > 0 && seg.Start < groups[n-1].End {
			g := &groups[n-1]
			g.Segments = append(g.Segments, seg)
			g.End = max(g.End, seg.End)
			continue
		}
		groups = append(groups, Group{Start: seg.Start, End: seg.End, Segments: []segment.Segment{seg}})
	}
	return groups
}

// FormatSRTTimestamp formats seconds as HH:MM:SS,mmm with milliseconds
// rounded to nearest.
func FormatSRTTimestamp(seconds float64) string {
	totalMillis := int64(math.Round(max(seconds, 0) * 1000))
	millis := totalMillis % 1000
	totalSeconds := totalMillis / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", totalSeconds/3600, totalSeconds%3600/60, totalSeconds%60, millis)
}

// FormatASSTimestamp formats seconds as H:MM:SS.cc with centiseconds
// truncated.
func FormatASSTimestamp(seconds float64) string {
	seconds = max(seconds, 0)
	whole := math.Floor(seconds)
	totalSeconds := int64(whole)
	centis := int64((seconds - whole) * 100)
	return fmt.Sprintf("%d:%02d:%02d.%02d", totalSeconds/3600, totalSeconds%3600/60, totalSeconds%60, centis)
}

// RenderSRT returns numbered blocks separated by blank lines.
func RenderSRT(segs []segment.Segment) []byte {
	var lines []string
	for i, g := range GroupOverlapping(segs) {
		lines = append(lines,
			fmt.Sprint(i+1),
			FormatSRTTimestamp(g.Start)+" --> "+FormatSRTTimestamp(g.End),
			strings.Join(g.Lines(), "\n"),
			"",
		)
	}
	return []byte(strings.Join(lines, "\n"))
}

const assHeader = "[Script Info]\n" +
	"Title: Video Subtitle ASS File\n" +
	"ScriptType: v4.00+\n" +
	"Collisions: Normal\n" +
	"PlayResX: 1920\n" +
	"PlayResY: 1080\n" +
	"Timer: 100.0000\n\n" +
	"[V4+ Styles]\n" +
	"Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n" +
	"Style: Default,Arial,48,&H00FFFFFF,&H000000FF,&H00000000,&H64000000,0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1\n\n" +
	"[Events]\n" +
	"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n"

// RenderASS returns the fixed header followed by one Dialogue event per
// group, lines joined with the \N break.
func RenderASS(segs []segment.Segment) []byte {
	groups := GroupOverlapping(segs)
	events := make([]string, len(groups))
	for i, g := range groups {
		events[i] = fmt.Sprintf("Dialogue: 0,%s,%s,Default,,0,0,0,,%s",
			FormatASSTimestamp(g.Start), FormatASSTimestamp(g.End), strings.Join(g.Lines(), `\N`))
	}
	return []byte(assHeader + strings.Join(events, "\n"))
}

// Render dispatches on format.
func Render(segs []segment.Segment, format Format) ([]byte, error) {
	switch format {
	case SRT:
		return RenderSRT(segs), nil
	case ASS:
		return RenderASS(segs), nil
	default:
		return nil, fmt.Errorf("unsupported subtitle format: %q", format)
	}
}

// WriteFile renders segs and writes them to path.
func WriteFile(path string, segs []segment.Segment, format Format) error {
	content, err := Render(segs, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s subtitles: %w", format, err)
	}
	return nil
}

// OutputPath returns the subtitle path next to video: base.srt, or
// base.<lang>.srt when lang is set.
func OutputPath(video, lang string, format Format) string {
	base := strings.TrimSuffix(video, filepath.Ext(video))
	if lang != "" {
		base += "." + lang
	}
	return base + "." + string(format)
}
