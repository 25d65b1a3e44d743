// Package media extracts the audio track of a video for transcription.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrVideoNotFound is returned when the source video does not exist.
var ErrVideoNotFound = errors.New("video file not found")

// Extractor writes the audio of video into dir and returns the audio path.
type Extractor interface {
	Extract(ctx context.Context, video, dir string) (string, error)
}

// FFmpeg extracts mono 16 kHz PCM WAV audio with the ffmpeg binary.
type FFmpeg struct {
	// Binary defaults to "ffmpeg" on PATH.
	Binary string
}

func NewFFmpeg(binary string) *FFmpeg {
	return &FFmpeg{Binary: binary}
}

func (f *FFmpeg) Extract(ctx context.Context, video, dir string) (string, error) {
	info, err := os.Stat(video)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrVideoNotFound, video)
		}
		return "", fmt.Errorf("stat video: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrVideoNotFound, video)
	}

	dest := filepath.Join(dir, strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))+".wav")
	cmd := exec.CommandContext(ctx, f.binary(), Args(video, dest)...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg extract: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return dest, nil
}

func (f *FFmpeg) binary() string {
	if f.Binary == "" {
		return "ffmpeg"
	}
	return f.Binary
}

// Args returns the ffmpeg arguments extracting the first audio stream of
// source as mono 16 kHz 16-bit PCM into dest.
func Args(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}
