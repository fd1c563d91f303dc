package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// APIURLEnv overrides verse.api_url after the config file is applied.
const APIURLEnv = "VERSECATCH_API_URL"

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	base := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
		}
		cfg, err := applyEnvOverrides(base)
		if err != nil {
			return Loaded{}, err
		}
		return Loaded{
			Path:   resolvedPath,
			Config: cfg,
			Warnings: []Warning{{
				Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
			}},
			Exists: false,
		}, nil
	}

	cfg, warnings, err := Parse(string(content), base)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}
	cfg, err = applyEnvOverrides(cfg)
	if err != nil {
		return Loaded{}, err
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}, nil
}

// applyEnvOverrides applies process environment settings and revalidates when any changed.
func applyEnvOverrides(cfg Config) (Config, error) {
	apiURL := strings.TrimSpace(os.Getenv(APIURLEnv))
	if apiURL == "" {
		return cfg, nil
	}
	cfg.Verse.APIURL = apiURL
	if _, err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", APIURLEnv, err)
	}
	return cfg, nil
}
