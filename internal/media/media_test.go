package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
)

func TestFFmpeg_Extract_VideoNotFound(t *testing.T) {
	f := NewFFmpeg("")

	_, err := f.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), t.TempDir())
	if !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestFFmpeg_Extract_Directory(t *testing.T) {
	f := NewFFmpeg("")

	_, err := f.Extract(context.Background(), t.TempDir(), t.TempDir())
	if !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("expected ErrVideoNotFound for directory, got %v", err)
	}
}

func TestFFmpeg_Extract_CommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the ffmpeg binary")
	}
	dir := t.TempDir()
	fake := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\necho 'invalid data' >&2\nexit 1\n"), 0755); err != nil {
		t.Fatal(err)
	}
	video := filepath.Join(dir, "talk.mp4")
	if err := os.WriteFile(video, []byte("not a video"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewFFmpeg(fake).Extract(context.Background(), video, dir)
	if err == nil {
		t.Fatal("expected error from failing ffmpeg")
	}
	if errors.Is(err, ErrVideoNotFound) {
		t.Error("command failure must not be reported as missing video")
	}
}

func TestFFmpeg_Extract_Success(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the ffmpeg binary")
	}
	dir := t.TempDir()
	fake := filepath.Join(dir, "ffmpeg")
	// Writes an empty file at the last argument.
	script := "#!/bin/sh\nfor last; do :; done\n: > \"$last\"\n"
	if err := os.WriteFile(fake, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	video := filepath.Join(dir, "talk.mp4")
	if err := os.WriteFile(video, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	out := t.TempDir()

	audio, err := NewFFmpeg(fake).Extract(context.Background(), video, out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if audio != filepath.Join(out, "talk.wav") {
		t.Errorf("unexpected audio path %q", audio)
	}
	if _, err := os.Stat(audio); err != nil {
		t.Errorf("expected audio file to exist: %v", err)
	}
}

func TestArgs(t *testing.T) {
	args := Args("in.mp4", "out.wav")

	if args[len(args)-1] != "out.wav" {
		t.Errorf("expected destination last, got %v", args)
	}
	for _, pair := range [][2]string{{"-ac", "1"}, {"-ar", "16000"}, {"-c:a", "pcm_s16le"}, {"-i", "in.mp4"}} {
		i := slices.Index(args, pair[0])
		if i < 0 || i+1 >= len(args) || args[i+1] != pair[1] {
			t.Errorf("expected %s %s in %v", pair[0], pair[1], args)
		}
	}
}
