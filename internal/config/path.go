package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// PathEnv names a config file used when --config is absent.
const PathEnv = "VERSECATCH_CONFIG"

// ResolvePath picks the config file: explicit flag, $VERSECATCH_CONFIG,
// $XDG_CONFIG_HOME/versecatch/config.jsonc, then ~/.config/versecatch/config.jsonc.
func ResolvePath(explicit string) (string, error) {
	for _, candidate := range []string{explicit, os.Getenv(PathEnv)} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed, nil
		}
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "versecatch", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", "versecatch", "config.jsonc"), nil
}
