package config

const (
	defaultTargetLang   = "zh"
	defaultLLMBackend   = "gpt"
	defaultLLMAttempts  = 5
	defaultContextRange = 10
	defaultTranslator   = "google"
	defaultConcurrency  = 5
	defaultFFmpeg       = "ffmpeg"
	defaultWhisperModel = "whisper-1"
	defaultDBPath       = "~/.local/share/peresub/peresub.db"
	defaultLockPath     = "~/.local/share/peresub/peresub.lock"
	defaultLogLevel     = "info"
	defaultLogFormat    = "auto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		TargetLang: defaultTargetLang,
		Formats:    []string{"srt", "ass"},
		Stages: Stages{
			ContextRange: defaultContextRange,
		},
		LLM: LLM{
			Backend:     defaultLLMBackend,
			MaxAttempts: defaultLLMAttempts,
		},
		Translator: Translator{
			Service:     defaultTranslator,
			Concurrency: defaultConcurrency,
		},
		Transcription: Transcription{
			FFmpeg: defaultFFmpeg,
			Model:  defaultWhisperModel,
		},
		Storage: Storage{
			DBPath:   defaultDBPath,
			LockPath: defaultLockPath,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
