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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/valpere/peresub/internal/config"
	"github.com/valpere/peresub/internal/llm"
	"github.com/valpere/peresub/internal/metrics"
	"github.com/valpere/peresub/internal/retry"
	"github.com/valpere/peresub/internal/store"
	"github.com/valpere/peresub/internal/translator"
)

// buildModel constructs the language model named by the config, or returns
// nil when no enabled stage needs one.
func buildModel(c *config.Config, rec *metrics.Recorder) (llm.LanguageModel, error) {
	if !c.NeedsLLM() {
		return nil, nil
	}
	model, err := llm.New(llm.Config{
		Backend: c.LLM.Backend,
		Model:   c.LLM.Model,
		APIKey:  c.LLM.APIKey,
		BaseURL: c.LLM.BaseURL,
	},
		llm.WithLogger(logger),
		llm.WithMetrics(rec),
		llm.WithPromptLogging(c.LLM.LogPrompts),
		llm.WithRetryPolicy(retry.Exponential(c.LLM.MaxAttempts, time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create language model: %w", err)
	}
	return model, nil
}

// buildTranslator constructs the basic translation service from config.
// model is only used by the "llm" service.
func buildTranslator(c *config.Config, model llm.LanguageModel) (translator.TranslationService, error) {
	switch c.Translator.Service {
	case "google":
		return translator.NewGoogleService(), nil
	case "mymemory":
		return translator.NewMyMemoryService(c.Translator.MyMemoryEmail), nil
	case "niutrans":
		return translator.NewNiuTransService(c.Translator.NiuTransKey), nil
	case "llm":
		if model == nil {
			return nil, fmt.Errorf("llm translator requires a language model")
		}
		return translator.NewLLMService(model), nil
	default:
		return nil, fmt.Errorf("unknown translator: %s", c.Translator.Service)
	}
}

// serviceConfig passes each service only its own credentials.
func serviceConfig(c *config.Config) translator.ServiceConfig {
	switch c.Translator.Service {
	case "google":
		return translator.ServiceConfig{
			Credentials: c.Translator.Credentials,
			ProjectID:   c.Translator.ProjectID,
			APIKey:      c.Translator.GoogleKey,
		}
	case "niutrans":
		return translator.ServiceConfig{APIKey: c.Translator.NiuTransKey}
	default:
		return translator.ServiceConfig{}
	}
}

// openStore opens the translation memory database, creating its directory.
func openStore(c *config.Config) (*store.Store, error) {
	path := c.Storage.DBPath
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// withStore runs fn against the configured database.
func withStore(ctx context.Context, fn func(ctx context.Context, db *store.Store) error) error {
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}
