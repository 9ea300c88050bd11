package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable the service reads.
const EnvPrefix = "CODEVOICE_"

// Credential variables accepted when llm_api_key is unset.
var fallbackKeyVars = []string{"KRUTRIM_API_KEY", "OPENAI_API_KEY"} //nolint:gochecknoglobals // read-only list

// Load builds a validated Config by layering defaults, optional files and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. .env file in the working directory, when present (never overrides the real env)
//  3. YAML file if CODEVOICE_CONFIG is set
//  4. env (prefix CODEVOICE_)
func Load(_ context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: .env: %w", ErrLoadConfig, err)
	}

	base := New()
	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// CODEVOICE_MAX_QUESTIONS -> max_questions; keys are flat.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.LLMAPIKey == "" {
		for _, name := range fallbackKeyVars {
			if v := os.Getenv(name); v != "" {
				cfg.LLMAPIKey = v
				break
			}
		}
	}
	cfg.DefaultDifficulty = strings.ToUpper(strings.TrimSpace(cfg.DefaultDifficulty))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
