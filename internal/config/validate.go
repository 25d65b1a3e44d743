package config

import (
	"errors"
	"fmt"
	"slices"
)

// Translator services and LLM backends accepted by Validate.
var (
	TranslatorServices = []string{"google", "mymemory", "niutrans", "llm"}
	LLMBackends        = []string{"gpt", "ollama"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.TargetLang == "" {
		return errors.New("target_lang must be set")
	}
	if len(c.Formats) == 0 {
		return errors.New("formats must list at least one subtitle format")
	}
	for _, f := range c.Formats {
		if f != "srt" && f != "ass" {
			return fmt.Errorf("unsupported subtitle format %q (use srt or ass)", f)
		}
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	return c.validateTranslator()
}

func (c *Config) validateLLM() error {
	if !slices.Contains(LLMBackends, c.LLM.Backend) {
		return fmt.Errorf("llm.backend %q is not one of %v", c.LLM.Backend, LLMBackends)
	}
	if c.LLM.MaxAttempts < 1 {
		return errors.New("llm.max_attempts must be at least 1")
	}
	if c.Stages.ContextRange < 1 {
		return errors.New("stages.context_range must be at least 1")
	}
	return nil
}

func (c *Config) validateTranslator() error {
	if !slices.Contains(TranslatorServices, c.Translator.Service) {
		return fmt.Errorf("translator.service %q is not one of %v", c.Translator.Service, TranslatorServices)
	}
	if c.Translator.Concurrency < 1 {
		return errors.New("translator.concurrency must be at least 1")
	}
	if c.Translator.RateLimit < 0 {
		return errors.New("translator.rate_limit must not be negative")
	}
	if c.Translator.Service == "niutrans" && c.Translator.NiuTransKey == "" {
		return errors.New("translator.niutrans_api_key is required for niutrans. Set NIUTRANS_API_KEY or edit the config file")
	}
	return nil
}

// NeedsLLM reports whether any enabled stage calls the language model.
func (c *Config) NeedsLLM() bool {
	return c.Stages.Correct || c.Stages.Merge || c.Stages.Optimize || c.Translator.Service == "llm"
}
